// =============================================================================
// Invoice Ledger - Column Mapping Overrides
// =============================================================================
//
// Some PDF invoice layouts carry more table columns than the six the line-item
// schema needs (ordinal, name, unit, quantity, price, amount). Which of them
// hold what cannot be inferred positionally, so the operator supplies a
// mapping per document in a small text file:
//
//	# document identifier: six 1-based column indices
//	"hoadon_0001234.pdf": 1,2,3,5,6,8
//
// Indices are converted to 0-based on load. Blank lines and lines starting
// with "#" are ignored.
//
// =============================================================================

package overrides

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Columns is the number of semantic roles a mapping must assign.
const Columns = 6

// Role positions inside a Mapping.
const (
	Ordinal = iota
	Name
	Unit
	Quantity
	Price
	Amount
)

// Mapping holds 0-based table column indices for the six roles.
type Mapping [Columns]int

// Default is the positional mapping used when a table has at most six columns.
var Default = Mapping{0, 1, 2, 3, 4, 5}

// Table maps document identifiers to mappings.
type Table struct {
	entries map[string]Mapping
}

var entryPattern = regexp.MustCompile(`^"([^"]+)"\s*:\s*(.+)$`)

// Load reads an override file. A missing path yields an empty table.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{entries: map[string]Mapping{}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{entries: map[string]Mapping{}}, nil
		}
		return nil, fmt.Errorf("failed to open column overrides: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads override entries from r.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{entries: map[string]Mapping{}}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("column overrides line %d: expected \"<document>\": i1,...,i6", lineNo)
		}

		fields := strings.Split(m[2], ",")
		if len(fields) != Columns {
			return nil, fmt.Errorf("column overrides line %d: want %d indices, got %d", lineNo, Columns, len(fields))
		}

		var mapping Mapping
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("column overrides line %d: index %q is not a positive integer", lineNo, strings.TrimSpace(f))
			}
			mapping[i] = n - 1
		}
		t.entries[m[1]] = mapping
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read column overrides: %w", err)
	}
	return t, nil
}

// Lookup finds the mapping for a document. The identifier is tried as given,
// then by base name, then by base name without extension.
func (t *Table) Lookup(document string) (Mapping, bool) {
	if t == nil {
		return Mapping{}, false
	}
	base := filepath.Base(document)
	for _, key := range []string{document, base, strings.TrimSuffix(base, filepath.Ext(base))} {
		if m, ok := t.entries[key]; ok {
			return m, true
		}
	}
	return Mapping{}, false
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Max returns the largest column index referenced by the mapping.
func (m Mapping) Max() int {
	max := 0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}
