package lang

import (
	"sort"
	"strings"
)

// binding pairs a value with the declared domain it was drawn from.
// The domain travels with the binding so that every store can be
// checked structurally at evaluation time.
type binding struct {
	val Value
	dom Domain
}

// Env maps variable names to values with their declared domains.
// Environments are treated as immutable per state: mutation helpers
// clone first, so a state's environment never changes after interning.
// Env equality is load-bearing: it is the cycle-detection key.
type Env struct {
	vars   map[string]binding
	parent *Env // lambda parameter scope, layered on the caller's env
}

// NewEnv creates a new empty environment.
func NewEnv() *Env {
	return &Env{
		vars: make(map[string]binding),
	}
}

// NewChildEnv creates a new environment with the given parent.
// Bindings in the child shadow those in the parent.
func NewChildEnv(parent *Env) *Env {
	return &Env{
		vars:   make(map[string]binding),
		parent: parent,
	}
}

// Get retrieves the value of a variable, searching parent scopes.
// Returns nil if the variable is not bound.
func (e *Env) Get(name string) Value {
	if b, ok := e.vars[name]; ok {
		return b.val
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return nil
}

// DomainOf retrieves the declared domain of a variable, searching
// parent scopes. Returns nil if the variable is not bound.
func (e *Env) DomainOf(name string) Domain {
	if b, ok := e.vars[name]; ok {
		return b.dom
	}
	if e.parent != nil {
		return e.parent.DomainOf(name)
	}
	return nil
}

// Set binds a variable in the current scope.
func (e *Env) Set(name string, val Value, dom Domain) {
	e.vars[name] = binding{val: val, dom: dom}
}

// With returns a copy of the environment with one binding replaced.
// The receiver is left untouched.
func (e *Env) With(name string, val Value, dom Domain) *Env {
	c := e.Clone()
	c.Set(name, val, dom)
	return c
}

// Clone creates a copy of the environment. The parent is shared: parent
// scopes are only layered transiently during lambda application and are
// never mutated.
func (e *Env) Clone() *Env {
	c := &Env{
		vars:   make(map[string]binding, len(e.vars)),
		parent: e.parent,
	}
	for k, b := range e.vars {
		c.vars[k] = b
	}
	return c
}

// Names returns the variable names bound in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for k := range e.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings in this scope.
func (e *Env) Len() int {
	return len(e.vars)
}

// Equal reports whether two environments have the same variable set
// with pairwise-equal values.
func (e *Env) Equal(other *Env) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Key() == other.Key()
}

// Key returns a stable canonical encoding of the environment: bindings
// sorted by name, each rendered with the value's canonical key. Two
// environments are equal iff their keys are equal.
func (e *Env) Key() string {
	var sb strings.Builder
	for i, name := range e.Names() {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(e.vars[name].val.Key())
	}
	if e.parent != nil {
		sb.WriteByte('|')
		sb.WriteString(e.parent.Key())
	}
	return sb.String()
}

// String returns a human-readable rendering of the environment.
func (e *Env) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range e.Names() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(e.vars[name].val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
