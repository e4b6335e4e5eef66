package handler

import (
	"strconv"
	"strings"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/vm"
)

// progRegistry is a read-only view over vm.Active.Registry for the Prog
// introspection handler. Every method degrades to an empty/zero result
// when no VM is running yet, consistent with the handler framework's
// never-panic contract.
type progRegistry struct {
	reg *object.Registry
}

func registrySnapshot() progRegistry {
	if vm.Active == nil {
		return progRegistry{}
	}
	return progRegistry{reg: vm.Active.Registry}
}

func (p progRegistry) lookup(name string) (*object.Class, bool) {
	if p.reg == nil {
		return nil, false
	}
	return p.reg.Lookup(name)
}

func (p progRegistry) classNames() []string {
	if p.reg == nil {
		return nil
	}
	var out []string
	for _, c := range p.reg.All() {
		out = append(out, c.Unit.ClassName)
	}
	return out
}

func (p progRegistry) sourceFiles() []string {
	if p.reg == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range p.reg.All() {
		if c.Unit.Source != "" && !seen[c.Unit.Source] {
			seen[c.Unit.Source] = true
			out = append(out, c.Unit.Source)
		}
	}
	return out
}

func (p progRegistry) functionsOf(className string) []string {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, anc := range c.Linear {
		for _, name := range anc.Unit.FunctionOrder() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func (p progRegistry) functionsInSourceOrder(className string) []string {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	return append([]string(nil), c.Unit.FunctionOrder()...)
}

func (p progRegistry) allMembers(className string) []string {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, anc := range c.Linear {
		for _, v := range anc.Unit.Variables {
			add(v.Name)
		}
		for _, n := range anc.Unit.FunctionOrder() {
			add(n)
		}
		for _, n := range anc.Unit.ConstantOrder() {
			add(n)
		}
	}
	return out
}

func (p progRegistry) directBases(className string) []string {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	return append([]string(nil), c.Unit.Bases...)
}

func (p progRegistry) allAncestors(className string) []string {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	var out []string
	for _, anc := range c.Linear {
		out = append(out, anc.Unit.ClassName)
	}
	return out
}

func (p progRegistry) derivedClasses(className string) []string {
	if p.reg == nil {
		return nil
	}
	var out []string
	for _, c := range p.reg.All() {
		if c.Unit.ClassName == className {
			continue
		}
		for _, base := range c.Unit.Bases {
			if strings.EqualFold(base, className) {
				out = append(out, c.Unit.ClassName)
				break
			}
		}
	}
	return out
}

func (p progRegistry) classify(className, member string) int {
	c, ok := p.lookup(className)
	if !ok {
		return classifyNone
	}
	for _, anc := range c.Linear {
		if _, ok := anc.Unit.Functions[member]; ok {
			return classifyFunction
		}
	}
	if v := p.variable(className, member); v != nil {
		return classifyVariable
	}
	for _, anc := range c.Linear {
		if _, ok := anc.Unit.Constants[member]; ok {
			return classifyConstant
		}
	}
	return classifyNone
}

// varInfo is the subset of compiler.Variable the Prog predicates need,
// copied out so callers never hold a pointer into a CompiledUnit across a
// possible reload.
type varInfo struct {
	Name      string
	Type      string
	ArraySize int
	Common    bool
	Saved     bool
	Class     string
}

func (p progRegistry) variable(className, name string) *varInfo {
	c, ok := p.lookup(className)
	if !ok {
		return nil
	}
	for _, anc := range c.Linear {
		if v := anc.Unit.VariableByName(name); v != nil {
			return &varInfo{Name: v.Name, Type: v.Type, ArraySize: v.ArraySize, Common: v.Common, Saved: v.Saved, Class: anc.Unit.ClassName}
		}
	}
	return nil
}

func (p progRegistry) varIsKind(className, member string, pred func(string) bool) bool {
	v := p.variable(className, member)
	return v != nil && pred(v.Type)
}

func (p progRegistry) varFlag(className, member string, pred func(varInfo) bool) bool {
	v := p.variable(className, member)
	return v != nil && pred(*v)
}

func (p progRegistry) typeName(className, member string) string {
	if v := p.variable(className, member); v != nil {
		return v.Type
	}
	return ""
}

func (p progRegistry) definingClass(className, member string) string {
	if v := p.variable(className, member); v != nil {
		return v.Class
	}
	c, ok := p.lookup(className)
	if !ok {
		return ""
	}
	for _, anc := range c.Linear {
		if _, ok := anc.Unit.Functions[member]; ok {
			return anc.Unit.ClassName
		}
		if _, ok := anc.Unit.Constants[member]; ok {
			return anc.Unit.ClassName
		}
	}
	return ""
}

func (p progRegistry) arraySize(className, member string) int {
	if v := p.variable(className, member); v != nil {
		return v.ArraySize
	}
	return 0
}

func (p progRegistry) constantValueText(className, member string) string {
	c, ok := p.lookup(className)
	if !ok {
		return ""
	}
	ct, _, ok := c.ResolveConstant(member)
	if !ok {
		return ""
	}
	switch ct.Kind {
	case 0: // ConstInt
		return strconv.FormatInt(ct.I, 10)
	case 1: // ConstDouble
		return strconv.FormatFloat(ct.D, 'g', -1, 64)
	case 2: // ConstString
		return ct.S
	default:
		return "" // ConstExpr: not evaluable without a VM call context
	}
}

func (p progRegistry) inheritanceDepth(className string) int {
	c, ok := p.lookup(className)
	if !ok {
		return -1
	}
	return len(c.Linear) - 1
}
