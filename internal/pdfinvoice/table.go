package pdfinvoice

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

// =============================================================================
// GEOMETRIC TABLE DETECTION
// =============================================================================

const (
	// Ruling positions closer than edgeEpsilon points are one edge.
	edgeEpsilon = 2.0

	// A box thinner than rulingWidth in one dimension is a line.
	rulingWidth = 2.0

	// A run starting within columnSlack points left of a column start still
	// belongs to that column in stream mode.
	columnSlack = 5.0

	// Wrapped lines of one cell sit at most wrapGap x font size apart.
	wrapGap = 1.6
)

// DetectTable reconstructs the cell grid of the table on a page. Each cell
// keeps its visual lines separated by "\n".
//
// Lattice mode is used when the page carries rulings in both directions:
// the ruling edges define the grid and glyphs are placed by their centre.
// Otherwise stream mode takes the row containing "STT" as the header, uses
// the left edges of its runs as column starts, and folds wrapped lines
// (closely spaced, empty ordinal, no amount) into the row above.
func DetectTable(p Page) [][]string {
	xs, ys := rulingEdges(p.Boxes)
	if len(xs) >= 2 && len(ys) >= 2 {
		return latticeGrid(p.Glyphs, xs, ys)
	}
	return streamGrid(p.Glyphs)
}

// rulingEdges collects vertical (x) and horizontal (y) edges, clustered.
// ys are returned top to bottom.
func rulingEdges(boxes []Box) (xs, ys []float64) {
	var rawX, rawY []float64
	for _, b := range boxes {
		w, h := b.MaxX-b.MinX, b.MaxY-b.MinY
		switch {
		case w <= rulingWidth && h > rulingWidth:
			rawX = append(rawX, (b.MinX+b.MaxX)/2)
		case h <= rulingWidth && w > rulingWidth:
			rawY = append(rawY, (b.MinY+b.MaxY)/2)
		case w > rulingWidth && h > rulingWidth:
			rawX = append(rawX, b.MinX, b.MaxX)
			rawY = append(rawY, b.MinY, b.MaxY)
		}
	}
	xs = cluster(rawX)
	ys = cluster(rawY)
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
	return xs, ys
}

// cluster sorts values and merges runs closer than edgeEpsilon into their
// mean.
func cluster(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	sum, n := sorted[0], 1.0
	for _, v := range sorted[1:] {
		if v-sum/n <= edgeEpsilon {
			sum += v
			n++
			continue
		}
		out = append(out, sum/n)
		sum, n = v, 1
	}
	return append(out, sum/n)
}

func latticeGrid(glyphs []Glyph, xs, ys []float64) [][]string {
	rows, cols := len(ys)-1, len(xs)-1
	buckets := make([][][]Glyph, rows)
	for i := range buckets {
		buckets[i] = make([][]Glyph, cols)
	}

	for _, g := range glyphs {
		cx := g.X + g.W/2
		cy := g.Y + fontSize(g)*0.3
		r := sort.Search(rows, func(i int) bool { return ys[i+1] <= cy })
		c := sort.Search(cols, func(j int) bool { return xs[j+1] > cx })
		if r >= rows || c >= cols || cy > ys[r] || cx < xs[c] {
			continue
		}
		buckets[r][c] = append(buckets[r][c], g)
	}

	grid := make([][]string, rows)
	for r := range buckets {
		grid[r] = make([]string, cols)
		for c, cell := range buckets[r] {
			grid[r][c] = cellText(cell)
		}
	}
	return grid
}

func cellText(glyphs []Glyph) string {
	var lines []string
	for _, row := range groupRows(glyphs) {
		for _, seg := range splitRow(row.glyphs, false) {
			lines = append(lines, seg.text)
		}
	}
	return strings.Join(lines, "\n")
}

func streamGrid(glyphs []Glyph) [][]string {
	rows := groupRows(glyphs)

	header := -1
	var starts []float64
	for i, row := range rows {
		segs := splitRow(row.glyphs, true)
		for _, s := range segs {
			if strings.Contains(strings.ToUpper(s.text), "STT") {
				header = i
				break
			}
		}
		if header >= 0 {
			for _, s := range segs {
				starts = append(starts, s.x)
			}
			break
		}
	}
	if header < 0 {
		return nil
	}

	var grid [][]string
	prevY := 0.0
	for _, row := range rows[header:] {
		gap := prevY - row.y
		prevY = row.y

		cells := make([]string, len(starts))
		for _, s := range splitRow(row.glyphs, true) {
			c := 0
			for j, x := range starts {
				if s.x+columnSlack >= x {
					c = j
				}
			}
			cells[c] = strings.TrimSpace(cells[c] + " " + s.text)
		}

		n := len(grid)
		if n > 1 && gap <= wrapGap*fontSize(row.glyphs[0]) && isContinuation(cells) {
			for j, text := range cells {
				grid[n-1][j] += "\n" + text
			}
			continue
		}
		grid = append(grid, cells)
	}
	return grid
}

// isContinuation reports a wrapped visual line: empty ordinal cell and no
// cell that is a bare number. Totals rows carry an amount and are kept.
func isContinuation(cells []string) bool {
	if len(cells) == 0 || cells[0] != "" {
		return false
	}
	for _, c := range cells {
		if c != "" && isAmountText(c) {
			return false
		}
	}
	return true
}

func isAmountText(s string) bool {
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '.' || r == ',' || r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits
}

// =============================================================================
// ITEM ROWS
// =============================================================================

// ItemRows turns a detected grid into logical item rows.
//
// The header is the first row whose first cell contains "STT"; only its
// non-empty columns are kept. The row after it is a header sub-row when its
// first cell is not an ordinal, or when it and the next row both start with
// "1" (a column-number row). Rows are read until the first one whose first
// cell is not an ordinal. Every cell is then split on line breaks and the
// lines transposed, so a visual row holding several items yields one row per
// item; a transposed line with an empty ordinal continues the row above.
//
// RETURNS:
//   - header: the kept header cells
//   - rows: logical rows aligned with header
//   - ok: false when no header row exists
func ItemRows(grid [][]string) (header []string, rows [][]string, ok bool) {
	h := -1
	for i, row := range grid {
		if len(row) > 0 && strings.Contains(strings.ToUpper(locale.Squash(row[0])), "STT") {
			h = i
			break
		}
	}
	if h < 0 {
		return nil, nil, false
	}

	var keep []int
	for j, cell := range grid[h] {
		if locale.Squash(cell) != "" {
			keep = append(keep, j)
			header = append(header, locale.Squash(cell))
		}
	}
	project := func(row []string) []string {
		out := make([]string, len(keep))
		for k, j := range keep {
			if j < len(row) {
				out[k] = row[j]
			}
		}
		return out
	}

	body := grid[h+1:]
	if len(body) > 0 {
		firstCell := leadLine(body[0])
		nextCell := ""
		if len(body) > 1 {
			nextCell = leadLine(body[1])
		}
		if !isOrdinal(firstCell) || (firstCell == "1" && nextCell == "1") {
			body = body[1:]
		}
	}

	for _, visual := range body {
		if !isOrdinal(leadLine(visual)) {
			break
		}
		for _, line := range transpose(project(visual)) {
			n := len(rows)
			if line[0] == "" && n > 0 {
				for k, text := range line {
					if text != "" {
						rows[n-1][k] = strings.TrimSpace(rows[n-1][k] + " " + text)
					}
				}
				continue
			}
			rows = append(rows, line)
		}
	}
	return header, rows, true
}

func transpose(cells []string) [][]string {
	split := make([][]string, len(cells))
	depth := 0
	for k, c := range cells {
		split[k] = strings.Split(c, "\n")
		if len(split[k]) > depth {
			depth = len(split[k])
		}
	}
	out := make([][]string, depth)
	for i := range out {
		out[i] = make([]string, len(cells))
		for k := range cells {
			if i < len(split[k]) {
				out[i][k] = locale.Squash(split[k][i])
			}
		}
	}
	return out
}

func leadLine(row []string) string {
	if len(row) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(row[0], "\n")
	return locale.Squash(first)
}

func isOrdinal(s string) bool {
	return types.IsDigits(strings.TrimSuffix(s, "."))
}
