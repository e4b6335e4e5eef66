package handler

import (
	"testing"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestObject(t *testing.T) *object.Object {
	t.Helper()
	r := object.NewRegistry()
	u := compiler.NewUnit("thing", "thing.int")
	c := r.Load(u)
	return c.NewObject()
}

// TestDataHoraLeapDayRollover exercises spec §8 scenario 5: 2024-02-28 plus
// two next-day steps lands on 2024-03-01 (2024 is a leap year).
func TestDataHoraLeapDayRollover(t *testing.T) {
	d := newDataHora(newTestObject(t), "d")
	_, ok := d.Call("numdata", []value.Value{value.Int(dataNum(2024, 2, 28))}, false)
	require.True(t, ok)

	d.Call("proximodia", nil, false)
	d.Call("proximodia", nil, false)

	y, _ := d.Call("ano", nil, false)
	m, _ := d.Call("mes", nil, false)
	day, _ := d.Call("dia", nil, false)
	assert.EqualValues(t, 2024, y.ToInt())
	assert.EqualValues(t, 3, m.ToInt())
	assert.EqualValues(t, 1, day.ToInt())
}

// TestDataNumRoundTrip exercises spec §8's universal property: dataNum then
// the numData inverse recovers (year, month, day), across a leap and a
// non-leap year.
func TestDataNumRoundTrip(t *testing.T) {
	for _, tc := range []struct{ y, m, d int }{
		{2024, 2, 29}, {2023, 2, 28}, {1, 1, 1}, {9999, 12, 31}, {2000, 3, 1}, {1900, 3, 1},
	} {
		n := dataNum(tc.y, tc.m, tc.d)
		y, m, d := numData(n)
		assert.Equal(t, tc, struct{ y, m, d int }{y, m, d}, "round-trip for %+v", tc)
	}
}

// TestListaObjRemoveDuplicates exercises spec §8 scenario 4: initial order
// A B A C B D A becomes A B C D, keeping first occurrence.
func TestListaObjRemoveDuplicates(t *testing.T) {
	owner := newTestObject(t)
	lista := newListaObj(owner, "l")

	objs := make([]*object.Object, 4)
	reg := object.NewRegistry()
	u := compiler.NewUnit("thing2", "thing2.int")
	c := reg.Load(u)
	for i := range objs {
		objs[i] = c.NewObject()
	}
	order := []int{0, 1, 0, 2, 1, 3, 0} // A B A C B D A
	for _, idx := range order {
		lista.Call("add", []value.Value{value.Obj(objs[idx].Ref())}, false)
	}

	_, ok := lista.Call("removerduplicados", nil, false)
	require.True(t, ok)

	totalV, _ := lista.Call("total", nil, false)
	require.EqualValues(t, 4, totalV.ToInt())

	var gotOrder []int
	for i := 0; i < 4; i++ {
		v, _ := lista.Call("item", []value.Value{value.Int(int64(i))}, false)
		ref := v.ObjHandle().(object.Ref)
		for j, o := range objs {
			if o.Ref() == ref {
				gotOrder = append(gotOrder, j)
			}
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, gotOrder)
}

// TestIntTempoFiresExactlyOnce exercises spec §8 scenario 3: set to 30, no
// fire through 29 ticks, exactly one fire on the 30th, value zero after.
func TestIntTempoFiresExactlyOnce(t *testing.T) {
	owner := newTestObject(t)
	timer := newIntTempo(owner, "t")
	defer timer.Close()

	timer.Call("valor", []value.Value{value.Int(30)}, false)

	for i := 0; i < 29; i++ {
		TickTimers()
	}
	assert.Empty(t, DrainPending())

	TickTimers()
	events := DrainPending()
	require.Len(t, events, 1)
	assert.Equal(t, "t_exec", events[0].FuncName)

	v, _ := timer.Call("valor", nil, false)
	assert.EqualValues(t, 0, v.ToInt())
}

// TestNomeObjWindowSelection exercises spec §4.8's NomeObj matcher: a
// "2.3 espada" pattern should skip the first two matches and bind the 3rd
// and 4th matching candidates.
func TestNomeObjWindowSelection(t *testing.T) {
	reg := object.NewRegistry()
	u := compiler.NewUnit("espada", "espada.int")
	cls := reg.Load(u)

	swords := make([]*object.Object, 5)
	for i := range swords {
		swords[i] = cls.NewObject()
	}

	matcher := newNomeObj(newTestObject(t), "n")
	matcher.Call("padrao", []value.Value{value.Str("2.3 espada")}, false)

	var bound []int
	for i, s := range swords {
		v, _ := matcher.Call("testar", []value.Value{value.Obj(s.Ref())}, false)
		if v.ToBool() {
			bound = append(bound, i)
		}
	}
	assert.Equal(t, []int{2, 3}, bound)

	cur, _ := matcher.Call("atual", nil, false)
	require.True(t, cur.IsObject())
	assert.Equal(t, swords[3].Ref(), cur.ObjHandle().(object.Ref))
}

// TestTextoVarIteration exercises spec §4.8's TextoVar named-value map:
// insertion-order iteration and get/set/remove by name.
func TestTextoVarIteration(t *testing.T) {
	tv := newTextoVar(newTestObject(t), "v")
	tv.Call("definir", []value.Value{value.Str("hp"), value.Int(10)}, false)
	tv.Call("definir", []value.Value{value.Str("mp"), value.Int(5)}, false)

	total, _ := tv.Call("total", nil, false)
	assert.EqualValues(t, 2, total.ToInt())

	got, _ := tv.Call("obter", []value.Value{value.Str("hp")}, false)
	assert.EqualValues(t, 10, got.ToInt())

	kind, _ := tv.Call("tipo", []value.Value{value.Str("hp")}, false)
	assert.Equal(t, "@", kind.ToString())

	first, _ := tv.Call("primeiro", nil, false)
	assert.Equal(t, "hp", first.ToString())
	next, _ := tv.Call("proximo", nil, false)
	assert.Equal(t, "mp", next.ToString())

	ok, _ := tv.Call("remover", []value.Value{value.Str("hp")}, false)
	assert.True(t, ok.ToBool())
	total, _ = tv.Call("total", nil, false)
	assert.EqualValues(t, 1, total.ToInt())
}

// TestTextoObjIteration exercises spec §4.8's TextoObj named object-ref map.
func TestTextoObjIteration(t *testing.T) {
	owner := newTestObject(t)
	reg := object.NewRegistry()
	u := compiler.NewUnit("slot", "slot.int")
	cls := reg.Load(u)
	a, b := cls.NewObject(), cls.NewObject()

	to := newTextoObj(owner, "o")
	to.Call("definir", []value.Value{value.Str("norte"), value.Obj(a.Ref())}, false)
	to.Call("definir", []value.Value{value.Str("sul"), value.Obj(b.Ref())}, false)

	got, _ := to.Call("obter", []value.Value{value.Str("norte")}, false)
	assert.Equal(t, a.Ref(), got.ObjHandle().(object.Ref))

	deleted, _ := to.Call("apagar", []value.Value{value.Str("norte")}, false)
	assert.True(t, deleted.ToBool())

	total, _ := to.Call("total", nil, false)
	assert.EqualValues(t, 1, total.ToInt())

	first, _ := to.Call("primeiro", nil, false)
	assert.Equal(t, "sul", first.ToString())
}
