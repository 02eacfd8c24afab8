package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEqualDistinguishesSignedZero(t *testing.T) {
	a := Float64(0.0)
	b := Float64(math.Copysign(0, -1))
	require.False(t, a.Equal(b), "0.0 and -0.0 must not compare equal")
}

func TestValueEqualPreservesNaN(t *testing.T) {
	a := Float64(math.NaN())
	b := Float64(math.NaN())
	require.True(t, a.Equal(b))
	require.True(t, a.IsNaN())
}

func TestNewDecimalNormalizes(t *testing.T) {
	v, err := NewDecimal("-00012345.670000")
	require.NoError(t, err)
	s, ok := v.AsDecimal()
	require.True(t, ok)
	require.Equal(t, "-12345.67", s)
}

func TestNewDateRejectsInvalidDay(t *testing.T) {
	_, err := NewDate(2024, 2, 30)
	require.Error(t, err)
}

func TestNewDateAcceptsLeapDay(t *testing.T) {
	_, err := NewDate(2024, 2, 29)
	require.NoError(t, err)
}

func TestNewTimeRejectsOutOfRange(t *testing.T) {
	_, err := NewTime(24, 0, 0, 0)
	require.Error(t, err)
}

func TestValueKindString(t *testing.T) {
	require.Equal(t, "null", KindNull.String())
	require.Equal(t, "timestamp", KindTimestamp.String())
}

func TestIsNull(t *testing.T) {
	require.True(t, Null().IsNull())
	require.False(t, Int64(0).IsNull())
}
