package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"migrasquiel/internal/schema"
	"migrasquiel/internal/value"
)

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", Placeholder(PlaceholderQuestion, 1))
	assert.Equal(t, "?", Placeholder(PlaceholderQuestion, 7))
	assert.Equal(t, "$1", Placeholder(PlaceholderDollar, 1))
	assert.Equal(t, "$3", Placeholder(PlaceholderDollar, 3))
	assert.Equal(t, "@p2", Placeholder(PlaceholderAt, 2))
}

func TestDriverValueToValueNull(t *testing.T) {
	v, err := driverValueToValue(nil, schema.Column{})
	assert.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDriverValueToValueBytesRespectsAbstractType(t *testing.T) {
	v, err := driverValueToValue([]byte("12.50"), schema.Column{Abstract: schema.AbstractDecimal})
	assert.NoError(t, err)
	s, ok := v.AsDecimal()
	assert.True(t, ok)
	assert.Equal(t, "12.5", s)

	v, err = driverValueToValue([]byte("hello"), schema.Column{Abstract: schema.AbstractText})
	assert.NoError(t, err)
	text, ok := v.AsText()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestValueToDriverArgRoundTripsNull(t *testing.T) {
	assert.Nil(t, valueToDriverArg(value.Null()))
	assert.Equal(t, int64(42), valueToDriverArg(value.Int64(42)))
}
