package lang

import (
	"fmt"
	"strings"
)

// Value represents a runtime value in the finity system.
// Every value a program can store is drawn from a statically finite domain.
type Value interface {
	isValue()
	String() string
	Equal(other Value) bool
	// Key returns a stable canonical encoding of the value.
	// It is the building block of environment keys used for
	// state interning and cycle detection.
	Key() string
}

// IntValue represents a bounded non-negative integer.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}
func (v IntValue) String() string {
	return fmt.Sprintf("%d", v.Val)
}

func (v IntValue) Equal(other Value) bool {
	if o, ok := other.(IntValue); ok {
		return v.Val == o.Val
	}
	return false
}

func (v IntValue) Key() string {
	return fmt.Sprintf("i%d", v.Val)
}

// BoolValue represents a boolean produced by comparison and logical
// operators. Booleans are transient: they appear while evaluating
// conditions but are never stored in an environment.
type BoolValue struct {
	Val bool
}

func (BoolValue) isValue() {}
func (v BoolValue) String() string {
	return fmt.Sprintf("%t", v.Val)
}

func (v BoolValue) Equal(other Value) bool {
	if o, ok := other.(BoolValue); ok {
		return v.Val == o.Val
	}
	return false
}

func (v BoolValue) Key() string {
	if v.Val {
		return "bt"
	}
	return "bf"
}

// StringValue represents a string drawn from a finite literal set.
type StringValue struct {
	Val string
}

func (StringValue) isValue() {}
func (v StringValue) String() string {
	return fmt.Sprintf("%q", v.Val)
}

func (v StringValue) Equal(other Value) bool {
	if o, ok := other.(StringValue); ok {
		return v.Val == o.Val
	}
	return false
}

func (v StringValue) Key() string {
	return fmt.Sprintf("s%q", v.Val)
}

// ArrayValue represents a fixed-length ordered sequence of values.
type ArrayValue struct {
	Elems []Value
}

func (ArrayValue) isValue() {}
func (v ArrayValue) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (v ArrayValue) Equal(other Value) bool {
	o, ok := other.(ArrayValue)
	if !ok || len(v.Elems) != len(o.Elems) {
		return false
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (v ArrayValue) Key() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.Key()
	}
	return "a(" + strings.Join(parts, ",") + ")"
}

// NilValue represents the absence of an output. A program that falls off
// the end of its statement list halts with NilValue.
type NilValue struct{}

func (NilValue) isValue() {}
func (NilValue) String() string {
	return "nil"
}

func (v NilValue) Equal(other Value) bool {
	_, ok := other.(NilValue)
	return ok
}

func (NilValue) Key() string {
	return "n"
}
