package object

import (
	"fmt"

	"github.com/magoolation/intmud/internal/compiler"
	"github.com/magoolation/intmud/internal/value"
)

// Object is one live class instance. Deletion never frees the struct
// immediately — it is unlinked from its class chain and marked deleted,
// relying on Go's garbage collector (rather than manual slot reuse) to
// reclaim memory once the last Ref drops; the Generation counter is what
// lets a stale Ref detect that the object it names is gone (spec §9
// "arena-and-index representation with explicit deletion marks").
type Object struct {
	Class  *Class
	Fields map[string]value.Value

	prev, next *Object
	generation uint64
	deleted    bool
}

// Ref is a stable handle to an Object, usable as a value.Handle. Holding a
// Ref across a deletion is safe: Valid() reports false instead of
// dereferencing a reused or freed instance.
type Ref struct {
	obj        *Object
	generation uint64
}

func newRef(o *Object) Ref { return Ref{obj: o, generation: o.generation} }

// Valid reports whether the referenced object is still live.
func (r Ref) Valid() bool {
	return r.obj != nil && !r.obj.deleted && r.obj.generation == r.generation
}

// Object dereferences the Ref, returning nil if stale.
func (r Ref) Object() *Object {
	if !r.Valid() {
		return nil
	}
	return r.obj
}

func (r Ref) ValueDisplay() string {
	if !r.Valid() {
		return "#objeto-apagado"
	}
	return fmt.Sprintf("#%s", r.obj.Class.Unit.ClassName)
}

func (r Ref) ValueEqual(other value.Handle) bool {
	o, ok := other.(Ref)
	if !ok {
		return false
	}
	return r.obj == o.obj && r.generation == o.generation
}

// NewObject allocates an object of class c and links it into the class's
// live-object chain. Common (shared) variable initialisation is the
// caller's responsibility via Class.Unit.EnsureCommonStorage, since
// running an initialiser thunk requires the VM — this package only owns
// object storage and the chain, not bytecode execution (spec §9: common
// variables initialise once per class, on first object creation).
func (c *Class) NewObject() *Object {
	o := &Object{Class: c, Fields: make(map[string]value.Value), generation: 1}
	c.link(o)
	return o
}

func (c *Class) link(o *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tail == nil {
		c.head, c.tail = o, o
	} else {
		c.tail.next = o
		o.prev = c.tail
		c.tail = o
	}
	c.count++
}

// Delete unlinks o from its class chain and marks it deleted; the caller
// (VM, at the next safe point per spec §4.4) must not touch o's Fields
// afterward.
func (c *Class) Delete(o *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.deleted {
		return
	}
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		c.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		c.tail = o.prev
	}
	o.prev, o.next = nil, nil
	o.deleted = true
	o.generation++
	c.count--
}

// First returns the first live object of the class, or nil.
func (c *Class) First() *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// Last returns the last live object of the class, or nil.
func (c *Class) Last() *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tail
}

// Next returns the object following o in its class chain, or nil.
func (o *Object) Next() *Object {
	o.Class.mu.Lock()
	defer o.Class.mu.Unlock()
	return o.next
}

// Previous returns the object preceding o in its class chain, or nil.
func (o *Object) Previous() *Object {
	o.Class.mu.Lock()
	defer o.Class.mu.Unlock()
	return o.prev
}

// Ref returns a stable handle to o.
func (o *Object) Ref() Ref { return newRef(o) }

// Count returns the number of live objects of this class (inttotal over
// an object receiver, spec §4.4).
func (c *Class) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Cursor is an iteration cursor over a class's live-object chain, reset
// independently of other cursors (spec §4.4 "iteration cursor with
// reset"). An exhausted cursor returns nil from Current/Step forever until
// Reset.
type Cursor struct {
	class   *Class
	current *Object
	started bool
}

func (c *Class) NewCursor() *Cursor { return &Cursor{class: c} }

// Reset rewinds the cursor to the start of the chain.
func (cur *Cursor) Reset() {
	cur.current = nil
	cur.started = false
}

// Current returns the object the cursor is positioned on, or nil if
// exhausted or not yet started.
func (cur *Cursor) Current() *Object { return cur.current }

// Step advances the cursor to the next live object and returns it, or nil
// once the chain is exhausted.
func (cur *Cursor) Step() *Object {
	if !cur.started {
		cur.started = true
		cur.current = cur.class.First()
		return cur.current
	}
	if cur.current == nil {
		return nil
	}
	cur.current = cur.current.Next()
	return cur.current
}

// FieldGet resolves an instance or common (shared) field by walking the
// instance map first, then the linearised hierarchy's common-variable
// storage (spec §4.2 identifier resolution order, field tier). Constant
// resolution is a separate step (ResolveConstant) since a constant's
// expression form must be evaluated by the VM, not this package.
func (o *Object) FieldGet(name string) (value.Value, bool) {
	if v, ok := o.Fields[name]; ok {
		return v, true
	}
	for _, c := range o.Class.Linear {
		if v, ok := c.Unit.CommonGet(name); ok {
			return v, true
		}
	}
	return value.Null(), false
}

// ResolveConstant finds the first constant named `name` along the
// linearised hierarchy, returning the declaring class so the VM can
// evaluate its thunk (if any) with that class as the compiling context.
func (c *Class) ResolveConstant(name string) (*compiler.Constant, *Class, bool) {
	for _, anc := range c.Linear {
		if ct, ok := anc.Unit.Constants[name]; ok {
			return ct, anc, true
		}
	}
	return nil, nil, false
}

// FieldSet writes an instance field, or a common (shared) field on
// whichever ancestor class declares it.
func (o *Object) FieldSet(name string, v value.Value) {
	for _, c := range o.Class.Linear {
		if vr := c.Unit.VariableByName(name); vr != nil && vr.Common {
			c.Unit.CommonSet(name, v)
			return
		}
	}
	o.Fields[name] = v
}

// ResolveFunction finds the first function named fn along the linearised
// hierarchy (spec §4.3 "virtual call walks the receiver's linearised
// hierarchy for the first matching name").
func (c *Class) ResolveFunction(name string) (*Class, bool) {
	for _, anc := range c.Linear {
		if _, ok := anc.Unit.Functions[name]; ok {
			return anc, true
		}
	}
	return nil, false
}
