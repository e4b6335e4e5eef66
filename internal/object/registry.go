// Package object implements the class registry and object model: loaded
// classes, live object storage per class, inheritance linearisation, and
// the field/method/constant resolution chain that backs member access.
package object

import (
	"sort"
	"strings"
	"sync"

	"github.com/magoolation/intmud/internal/compiler"
)

func classKey(name string) string { return strings.ToLower(name) }

// Registry holds every loaded class, case-insensitively, and the
// linearised hierarchy computed for each at load time (spec §4.4, §9
// "linearise once per class at load time; store the resolved sequence on
// the CompiledUnit").
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// Class pairs a CompiledUnit with its runtime object list and the
// precomputed linearisation of itself plus its ancestors.
type Class struct {
	Unit   *compiler.Unit
	Linear []*Class // this class first, then bases, depth-first pre-order, first-occurrence-wins

	mu      sync.Mutex
	head    *Object // doubly linked live-object list
	tail    *Object
	count   int
}

func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Load registers a compiled unit and (re-)computes its linearisation.
// Bases must already be loaded.
func (r *Registry) Load(u *compiler.Unit) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Class{Unit: u}
	r.classes[classKey(u.ClassName)] = c
	c.Linear = r.linearise(u.ClassName)
	return c
}

// Lookup returns the class by name, case-insensitively.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[classKey(name)]
	return c, ok
}

// linearise performs depth-first pre-order traversal over the base lists,
// keeping first occurrence only (spec §4.4 Inheritance linearisation).
// Caller must hold r.mu.
func (r *Registry) linearise(name string) []*Class {
	var seen = make(map[string]bool)
	var order []*Class
	var visit func(n string)
	visit = func(n string) {
		key := classKey(n)
		if seen[key] {
			return
		}
		seen[key] = true
		c, ok := r.classes[key]
		if !ok {
			return
		}
		order = append(order, c)
		for _, base := range c.Unit.Bases {
			visit(base)
		}
	}
	visit(name)
	return order
}

// All returns every loaded class sorted by class name, for introspection (Prog handler "begin-iterations over classes").
func (r *Registry) All() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit.ClassName < out[j].Unit.ClassName })
	return out
}

// Reset discards every loaded class (spec §9 "a reload replaces the Class
// Registry atomically").
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = make(map[string]*Class)
}

// Reload atomically swaps one class's CompiledUnit and re-linearises it
// and every already-loaded class (a subclass's linearisation may walk
// through the reloaded class). Existing object instances keep their
// current Fields map and *Class pointer — their next field/method access
// resolves against the new Unit, but fields the old layout declared and
// the new one dropped simply become unreachable dead entries rather than
// being migrated (documented limitation, SPEC_FULL §4 "Reload").
func (r *Registry) Reload(u *compiler.Unit) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, existed := r.classes[classKey(u.ClassName)]
	if existed {
		c.Unit = u
	} else {
		c = &Class{Unit: u}
		r.classes[classKey(u.ClassName)] = c
	}
	for name, cls := range r.classes {
		cls.Linear = r.linearise(name)
	}
	return c
}
