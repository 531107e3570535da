package xlsxwriter

import (
	"fmt"
	"reflect"

	"github.com/tiendc/go-deepcopy"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// COLUMN STYLE TEMPLATE
// =============================================================================

// ColumnStyle is the captured formatting of one anchor-row cell.
type ColumnStyle struct {
	// ID is the cell's style index in the template workbook. Zero means the
	// default style.
	ID int

	// Style is a private copy of the resolved style (font, border, fill,
	// number format, protection, alignment).
	Style *excelize.Style
}

// ColumnStyleTemplate holds the formatting of the anchor row, captured
// before any row is removed or inserted and applied to every new row.
type ColumnStyleTemplate struct {
	// Columns is indexed by column number minus one.
	Columns []ColumnStyle

	// Height is the anchor row height in points.
	Height float64

	// Merges are the horizontal merges of the anchor row as inclusive
	// column ranges.
	Merges [][2]int

	ids []int
}

// CaptureColumnStyles records the style of cells 1..width of row.
func CaptureColumnStyles(f *excelize.File, sheet string, row, width int) (*ColumnStyleTemplate, error) {
	t := &ColumnStyleTemplate{Columns: make([]ColumnStyle, width)}
	for col := 1; col <= width; col++ {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return nil, err
		}
		id, err := f.GetCellStyle(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("failed to read style of %s: %w", cell, err)
		}
		if id == 0 {
			continue
		}
		style, err := f.GetStyle(id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve style %d of %s: %w", id, cell, err)
		}
		var owned excelize.Style
		if err := deepcopy.Copy(&owned, *style); err != nil {
			return nil, fmt.Errorf("failed to copy style of %s: %w", cell, err)
		}
		t.Columns[col-1] = ColumnStyle{ID: id, Style: &owned}
	}

	height, err := f.GetRowHeight(sheet, row)
	if err != nil {
		return nil, fmt.Errorf("failed to read height of row %d: %w", row, err)
	}
	t.Height = height

	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells: %w", err)
	}
	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		if r1 == row && r2 == row {
			t.Merges = append(t.Merges, [2]int{c1, c2})
		}
	}
	return t, nil
}

// resolve maps every captured style to an index valid in f. The original
// index is reused while the workbook still resolves it to the captured
// style; otherwise the copy is registered again.
func (t *ColumnStyleTemplate) resolve(f *excelize.File) error {
	if t.ids != nil {
		return nil
	}
	ids := make([]int, len(t.Columns))
	for i, cs := range t.Columns {
		if cs.Style == nil {
			continue
		}
		if current, err := f.GetStyle(cs.ID); err == nil && reflect.DeepEqual(current, cs.Style) {
			ids[i] = cs.ID
			continue
		}
		id, err := f.NewStyle(cs.Style)
		if err != nil {
			return fmt.Errorf("failed to register style for column %d: %w", i+1, err)
		}
		ids[i] = id
	}
	t.ids = ids
	return nil
}

// Apply decorates row with the captured styles, height and merges.
func (t *ColumnStyleTemplate) Apply(f *excelize.File, sheet string, row int) error {
	if err := t.resolve(f); err != nil {
		return err
	}
	for i, id := range t.ids {
		if id == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
			return fmt.Errorf("failed to style %s: %w", cell, err)
		}
	}
	if t.Height > 0 {
		if err := f.SetRowHeight(sheet, row, t.Height); err != nil {
			return fmt.Errorf("failed to set height of row %d: %w", row, err)
		}
	}
	for _, m := range t.Merges {
		start, _ := excelize.CoordinatesToCellName(m[0], row)
		end, _ := excelize.CoordinatesToCellName(m[1], row)
		if err := f.MergeCell(sheet, start, end); err != nil {
			return fmt.Errorf("failed to merge %s:%s: %w", start, end, err)
		}
	}
	return nil
}

// =============================================================================
// MERGED REGION INDEX
// =============================================================================

// MergedRegionIndex maps every cell covered by a merge to the merge's
// top-left cell, the only one excelize keeps a value for.
type MergedRegionIndex struct {
	owner map[[2]int][2]int
}

// NewMergedRegionIndex indexes the merges of a sheet as they are now.
func NewMergedRegionIndex(f *excelize.File, sheet string) (*MergedRegionIndex, error) {
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells: %w", err)
	}
	idx := &MergedRegionIndex{owner: make(map[[2]int][2]int)}
	for _, m := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			return nil, err
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			return nil, err
		}
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				idx.owner[[2]int{c, r}] = [2]int{c1, r1}
			}
		}
	}
	return idx, nil
}

// Resolve returns the writable coordinate for (col, row).
func (m *MergedRegionIndex) Resolve(col, row int) (int, int) {
	if top, ok := m.owner[[2]int{col, row}]; ok {
		return top[0], top[1]
	}
	return col, row
}
