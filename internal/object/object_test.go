package object

import (
	"testing"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineariseFirstOccurrenceWins(t *testing.T) {
	r := NewRegistry()
	base := compiler.NewUnit("base", "base.int")
	r.Load(base)
	mid := compiler.NewUnit("mid", "mid.int")
	mid.Bases = []string{"base"}
	r.Load(mid)
	leaf := compiler.NewUnit("leaf", "leaf.int")
	leaf.Bases = []string{"mid", "base"}
	leafClass := r.Load(leaf)

	names := make([]string, len(leafClass.Linear))
	for i, c := range leafClass.Linear {
		names[i] = c.Unit.ClassName
	}
	assert.Equal(t, []string{"leaf", "mid", "base"}, names)
}

func TestObjectChainAndDeletion(t *testing.T) {
	r := NewRegistry()
	u := compiler.NewUnit("thing", "thing.int")
	c := r.Load(u)

	o1 := c.NewObject()
	o2 := c.NewObject()
	o3 := c.NewObject()
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, o1, c.First())
	assert.Equal(t, o3, c.Last())
	assert.Equal(t, o2, o1.Next())
	assert.Equal(t, o1, o2.Previous())

	ref := o2.Ref()
	c.Delete(o2)
	assert.Equal(t, 2, c.Count())
	assert.False(t, ref.Valid())
	assert.Equal(t, o3, o1.Next())
}

func TestCursorIterationAndReset(t *testing.T) {
	r := NewRegistry()
	u := compiler.NewUnit("thing", "thing.int")
	c := r.Load(u)
	c.NewObject()
	c.NewObject()

	cur := c.NewCursor()
	var seen int
	for o := cur.Step(); o != nil; o = cur.Step() {
		seen++
	}
	assert.Equal(t, 2, seen)
	assert.Nil(t, cur.Step())

	cur.Reset()
	require.NotNil(t, cur.Step())
}

func TestFieldGetWalksCommonStorage(t *testing.T) {
	r := NewRegistry()
	u := compiler.NewUnit("thing", "thing.int")
	u.Variables = append(u.Variables, &compiler.Variable{Name: "contador", Common: true})
	u.EnsureCommonStorage(func(*compiler.Function) value.Value { return value.Int(0) })
	c := r.Load(u)
	o := c.NewObject()

	v, ok := o.FieldGet("contador")
	require.True(t, ok)
	assert.EqualValues(t, 0, v.ToInt())

	o.FieldSet("contador", value.Int(5))
	v2, _ := o.FieldGet("contador")
	assert.EqualValues(t, 5, v2.ToInt())
}
