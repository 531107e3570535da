package overrides_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
)

func TestParse(t *testing.T) {
	src := `
# supplier A prints tax columns between price and amount
"hoadon_a.pdf": 1,2,3,5,6,8

"hoadon_b": 1, 3, 4, 5, 6, 7
`
	table, err := overrides.Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	m, ok := table.Lookup("hoadon_a.pdf")
	require.True(t, ok)
	assert.Equal(t, overrides.Mapping{0, 1, 2, 4, 5, 7}, m)
	assert.Equal(t, 7, m.Max())

	m, ok = table.Lookup("/in/hoadon_b.pdf")
	require.True(t, ok)
	assert.Equal(t, 0, m[overrides.Ordinal])
	assert.Equal(t, 6, m[overrides.Amount])

	_, ok = table.Lookup("missing.pdf")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"no quotes":     `hoadon.pdf: 1,2,3,4,5,6`,
		"five indices":  `"hoadon.pdf": 1,2,3,4,5`,
		"zero index":    `"hoadon.pdf": 0,2,3,4,5,6`,
		"non numeric":   `"hoadon.pdf": 1,2,x,4,5,6`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := overrides.Parse(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	table, err := overrides.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	table, err = overrides.Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	path := filepath.Join(t.TempDir(), "overrides.txt")
	require.NoError(t, os.WriteFile(path, []byte(`"x.pdf": 2,3,4,5,6,7`+"\n"), 0o644))
	table, err = overrides.Load(path)
	require.NoError(t, err)
	m, ok := table.Lookup("x.pdf")
	require.True(t, ok)
	assert.Equal(t, overrides.Mapping{1, 2, 3, 4, 5, 6}, m)
}
