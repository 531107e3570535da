package locale_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
)

func TestParseInteger(t *testing.T) {
	n, err := locale.ParseInteger(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = locale.ParseInteger("4a")
	var ve *locale.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "integer", ve.Kind)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500", "1500"},
		{"1500.75", "1500.75"},
		{" -3 ", "-3"},
		{"0.5", "0.5"},
	}
	for _, tc := range tests {
		got, err := locale.ParseNumber(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s -> %s", tc.in, got)
	}

	for _, bad := range []string{"", "abc", "1,5", "1e9"} {
		_, err := locale.ParseNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseGroupedAmount_Conventions(t *testing.T) {
	n, err := locale.ParseGroupedAmount("1.234.567", locale.DotGrouping)
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), n)

	n, err = locale.ParseGroupedAmount("1,234", locale.CommaGrouping)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)

	// The same text means different things under the other convention.
	n, err = locale.ParseGroupedAmount("1,234", locale.DotGrouping)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = locale.ParseGroupedAmount("1 234 567,50", locale.DotGrouping)
	require.NoError(t, err)
	assert.Equal(t, int64(1234568), n)

	n, err = locale.ParseGroupedAmount(" -2.000", locale.DotGrouping)
	require.NoError(t, err)
	assert.Equal(t, int64(-2000), n)

	for _, bad := range []string{"", "1.234,5,6", "12a", "-"} {
		_, err := locale.ParseGroupedAmount(bad, locale.DotGrouping)
		assert.Error(t, err, bad)
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := locale.ParseDecimal("2,5", locale.DotGrouping)
	require.NoError(t, err)
	assert.Equal(t, "2.5", d.String())

	d, err = locale.ParseDecimal("1,250.75", locale.CommaGrouping)
	require.NoError(t, err)
	assert.Equal(t, "1250.75", d.String())
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10%", "0.1"},
		{"8 %", "0.08"},
		{"10", "0.1"},
		{"0.05", "0.05"},
		{"KCT", "0"},
		{"kkknt", "0"},
	}
	for _, tc := range tests {
		got, err := locale.ParsePercent(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s -> %s", tc.in, got)
	}

	_, err := locale.ParsePercent("ten")
	assert.Error(t, err)
}

func TestParseConvention(t *testing.T) {
	c, err := locale.ParseConvention("Comma")
	require.NoError(t, err)
	assert.Equal(t, locale.CommaGrouping, c)

	_, err = locale.ParseConvention("space")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		hints []locale.DateHint
		want  types.Date
	}{
		{"iso", "2024-03-15", []locale.DateHint{locale.ISODate}, types.Date{Day: 15, Month: 3, Year: 2024}},
		{"iso with time", "2024-03-15T08:00:00", nil, types.Date{Day: 15, Month: 3, Year: 2024}},
		{"slash", "Ngày lập: 05/11/2023", []locale.DateHint{locale.SlashDate}, types.Date{Day: 5, Month: 11, Year: 2023}},
		{"words", "Ngày 07 tháng 08 năm 2024", []locale.DateHint{locale.WordsDate}, types.Date{Day: 7, Month: 8, Year: 2024}},
		{"words bilingual", "Ngày (Date) 7 tháng (month) 8 năm (year) 2024", nil, types.Date{Day: 7, Month: 8, Year: 2024}},
		{"words upper", "NGÀY 1 THÁNG 2 NĂM 2025", nil, types.Date{Day: 1, Month: 2, Year: 2025}},
		{"english", "day 3 month 4 year 2022", []locale.DateHint{locale.WordsDate}, types.Date{Day: 3, Month: 4, Year: 2022}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := locale.ParseDate(tc.in, tc.hints...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDate_Failures(t *testing.T) {
	_, err := locale.ParseDate("15/03/2024", locale.ISODate)
	var de *locale.DateFormatError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []locale.DateHint{locale.ISODate}, de.Hints)

	_, err = locale.ParseDate("31/02/2024")
	assert.Error(t, err)

	_, err = locale.ParseDate("no date here")
	assert.Error(t, err)
}

func TestFormatGrouped(t *testing.T) {
	assert.Equal(t, "1.234.567", locale.FormatGrouped(decimal.NewFromInt(1234567), locale.DotGrouping))
	assert.Equal(t, "123", locale.FormatGrouped(decimal.NewFromInt(123), locale.DotGrouping))
	assert.Equal(t, "-1,000", locale.FormatGrouped(decimal.NewFromInt(-1000), locale.CommaGrouping))
	assert.Equal(t, "12.345,5", locale.FormatGrouped(decimal.RequireFromString("12345.5"), locale.DotGrouping))
}

func TestPadLeftAndPercent(t *testing.T) {
	assert.Equal(t, "00000123", locale.PadLeft("123", 8, '0'))
	assert.Equal(t, "123456789", locale.PadLeft("123456789", 8, '0'))
	assert.Equal(t, "10%", locale.FormatPercent(decimal.RequireFromString("0.1"), locale.DotGrouping))
	assert.Equal(t, "5,5%", locale.FormatPercent(decimal.RequireFromString("0.055"), locale.DotGrouping))
}

func TestCleanComposesAndReplacesSpaces(t *testing.T) {
	decomposed := "Co\u0302ng ty"
	assert.Equal(t, "Công ty", locale.Clean(decomposed))
	assert.Equal(t, "công ty abc", locale.Fold("  CÔNG   TY\tABC "))
}
