package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticWidening(t *testing.T) {
	assert.Equal(t, Int(5), Add(Int(2), Int(3)))
	assert.Equal(t, Double(5.5), Add(Double(2.5), Int(3)))
	assert.Equal(t, Str("ab"), Add(Str("a"), Str("b")))
}

func TestAdditionAssociative(t *testing.T) {
	a, b, c := Int(1), Int(2), Int(3)
	left := Add(Add(a, b), c)
	right := Add(a, Add(b, c))
	assert.True(t, StrictEqual(left, right))
}

func TestDivisionByZero(t *testing.T) {
	r := Div(Int(1), Int(0))
	require.True(t, r.IsDouble())
	assert.True(t, math.IsInf(r.ToDouble(), 1))
}

func TestModuloByZero(t *testing.T) {
	assert.Equal(t, Int(0), Mod(Int(7), Int(0)))
}

func TestStringEqualityCaseInsensitive(t *testing.T) {
	assert.True(t, Equal(Str("Hello"), Str("hello")))
	assert.False(t, StrictEqual(Str("Hello"), Str("hello")))
}

func TestBitwiseNibbleString(t *testing.T) {
	got := BitAnd(Str("FF"), Str("0F"))
	assert.Equal(t, "0F", got.ToString())
	not := BitNot(Str("0F"))
	assert.Equal(t, "F0", not.ToString())
}

func TestArrayGrowsOnAssignPastEnd(t *testing.T) {
	v := NewArray()
	v.Array().Set(3, Int(9))
	assert.Equal(t, 4, v.Array().Len())
	assert.Equal(t, Int(9), v.Array().Get(3))
	assert.True(t, v.Array().Get(0).IsNull())
}

func TestArrayPushPopShiftUnshift(t *testing.T) {
	v := NewArray()
	v.Array().Push(Int(1))
	v.Array().Push(Int(2))
	v.Array().Unshift(Int(0))
	assert.Equal(t, []Value{Int(0), Int(1), Int(2)}, v.Array().Items())
	assert.Equal(t, Int(2), v.Array().Pop())
	assert.Equal(t, Int(0), v.Array().Shift())
}

func TestTruthiness(t *testing.T) {
	assert.False(t, Null().ToBool())
	assert.False(t, Int(0).ToBool())
	assert.True(t, Int(1).ToBool())
	assert.False(t, Str("").ToBool())
	assert.True(t, Str("0").ToBool()) // a non-empty string, even "0", is truthy per spec §4.1
	assert.False(t, NewArray().ToBool())
}

func TestCompareStringLexicographic(t *testing.T) {
	assert.Equal(t, -1, Compare(Str("abc"), Str("abd")))
	assert.Equal(t, 0, Compare(Str("abc"), Str("abc")))
}
