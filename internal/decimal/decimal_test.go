package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("5.5")
	require.NoError(t, err)
	assert.Equal(t, "5.500000", d.String())
}

func TestParseTruncatesBeyondScale(t *testing.T) {
	d, err := Parse("1.1234567")
	require.NoError(t, err)
	assert.Equal(t, "1.123456", d.String())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-number")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseOverflow(t *testing.T) {
	_, err := Parse("10000")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestParseAtBoundary(t *testing.T) {
	d, err := Parse("9999.999999")
	require.NoError(t, err)
	assert.Equal(t, "9999.999999", d.String())
}

func TestAddSub(t *testing.T) {
	a := MustParse("500")
	b := MustParse("300")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "800.000000", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "200.000000", diff.String())
}

func TestMulTruncates(t *testing.T) {
	amount := MustParse("3.5")
	price := MustParse("3.333333")

	notional, err := amount.Mul(price)
	require.NoError(t, err)
	// 3.5 * 3.333333 = 11.6666655 exactly; truncating to scale 6 gives
	// 11.666665, where rounding would give 11.666666.
	assert.Equal(t, "11.666665", notional.String())
}

func TestMulOverflow(t *testing.T) {
	a := MustParse("9999")
	b := MustParse("2")
	_, err := a.Mul(b)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMin(t *testing.T) {
	a := MustParse("5")
	b := MustParse("3")
	assert.Equal(t, "3.000000", Min(a, b).String())
	assert.Equal(t, "3.000000", Min(b, a).String())
}

func TestCmpAndSign(t *testing.T) {
	a := MustParse("5")
	b := MustParse("3")
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
	assert.True(t, a.IsPositive())
	assert.False(t, Zero.IsPositive())
	assert.True(t, Zero.IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	d := MustParse("123.45")
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"123.450000"`, string(b))

	var out Decimal
	require.NoError(t, out.UnmarshalJSON(b))
	assert.Equal(t, d.String(), out.String())
}
