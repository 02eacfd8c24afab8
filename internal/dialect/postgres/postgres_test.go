package postgres

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migrasquiel/internal/value"
)

func TestQuoteIdentifier(t *testing.T) {
	d := &Dialect{}
	assert.Equal(t, `"orders"`, d.QuoteIdentifier("orders"))
	assert.Equal(t, `"weird""name"`, d.QuoteIdentifier(`weird"name`))
}

func TestFormatLiteralFloatSpecials(t *testing.T) {
	d := &Dialect{}

	lit, err := d.FormatLiteral(value.Float64(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "'NaN'::float8", lit.Text)
	assert.Empty(t, lit.Warning)

	lit, err = d.FormatLiteral(value.Float64(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, "'Infinity'::float8", lit.Text)

	lit, err = d.FormatLiteral(value.Float64(math.Inf(-1)))
	require.NoError(t, err)
	assert.Equal(t, "'-Infinity'::float8", lit.Text)
}

func TestFormatLiteralTimestampWithOffset(t *testing.T) {
	d := &Dialect{}
	ts, err := value.NewTimestamp(value.Date{Year: 2024, Month: 3, Day: 15}, value.Time{Hour: 9, Minute: 30}, true, -300)
	require.NoError(t, err)

	lit, err := d.FormatLiteral(ts)
	require.NoError(t, err)
	assert.Equal(t, "'2024-03-15 09:30:00.000000-05:00'", lit.Text)
}

func TestTokenizerHandlesDollarQuoting(t *testing.T) {
	d := &Dialect{}
	script := "SELECT $$semi;colon$$;\nSELECT 1;\n"
	tok := d.NewTokenizer(strings.NewReader(script))

	stmt1, err := tok.Next()
	require.NoError(t, err)
	assert.Equal(t, "SELECT $$semi;colon$$", stmt1)

	stmt2, err := tok.Next()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", stmt2)
}
