package lang

import (
	"fmt"
	"sort"
	"strings"
)

// Domain describes the statically finite set of legal values for a
// variable. Domains must be fully known before exploration begins;
// the Cartesian product of input-variable domains is what makes the
// reachable state space finite.
type Domain interface {
	isDomain()
	String() string
	// Contains reports whether v is a member of the domain.
	Contains(v Value) bool
	// Enumerate returns every member in a stable canonical order.
	Enumerate() []Value
	// Size returns the number of members.
	Size() int
	// Equal reports whether two domains describe the same value set.
	Equal(other Domain) bool
}

// IntDomain is the set of non-negative integers strictly below Bound.
type IntDomain struct {
	Bound int64
}

func (IntDomain) isDomain() {}
func (d IntDomain) String() string {
	return fmt.Sprintf("int[%d]", d.Bound)
}

func (d IntDomain) Contains(v Value) bool {
	iv, ok := v.(IntValue)
	return ok && iv.Val >= 0 && iv.Val < d.Bound
}

func (d IntDomain) Enumerate() []Value {
	vals := make([]Value, 0, d.Bound)
	for i := int64(0); i < d.Bound; i++ {
		vals = append(vals, IntValue{Val: i})
	}
	return vals
}

func (d IntDomain) Size() int {
	return int(d.Bound)
}

func (d IntDomain) Equal(other Domain) bool {
	o, ok := other.(IntDomain)
	return ok && d.Bound == o.Bound
}

// StringDomain is a finite set of string literals.
type StringDomain struct {
	Members []string
}

// NewStringDomain builds a string domain with members sorted and
// deduplicated so that equal sets compare equal.
func NewStringDomain(members ...string) StringDomain {
	seen := make(map[string]struct{}, len(members))
	uniq := make([]string, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		uniq = append(uniq, m)
	}
	sort.Strings(uniq)
	return StringDomain{Members: uniq}
}

func (StringDomain) isDomain() {}
func (d StringDomain) String() string {
	parts := make([]string, len(d.Members))
	for i, m := range d.Members {
		parts[i] = fmt.Sprintf("%q", m)
	}
	return "str{" + strings.Join(parts, ",") + "}"
}

func (d StringDomain) Contains(v Value) bool {
	sv, ok := v.(StringValue)
	if !ok {
		return false
	}
	for _, m := range d.Members {
		if m == sv.Val {
			return true
		}
	}
	return false
}

func (d StringDomain) Enumerate() []Value {
	vals := make([]Value, len(d.Members))
	for i, m := range d.Members {
		vals[i] = StringValue{Val: m}
	}
	return vals
}

func (d StringDomain) Size() int {
	return len(d.Members)
}

func (d StringDomain) Equal(other Domain) bool {
	o, ok := other.(StringDomain)
	if !ok || len(d.Members) != len(o.Members) {
		return false
	}
	for i := range d.Members {
		if d.Members[i] != o.Members[i] {
			return false
		}
	}
	return true
}

// ArrayDomain is the set of fixed-length arrays whose elements all come
// from Elem. Its size is Elem.Size() ** Length.
type ArrayDomain struct {
	Elem   Domain
	Length int
}

func (ArrayDomain) isDomain() {}
func (d ArrayDomain) String() string {
	return fmt.Sprintf("%s[%d]", d.Elem.String(), d.Length)
}

func (d ArrayDomain) Contains(v Value) bool {
	av, ok := v.(ArrayValue)
	if !ok || len(av.Elems) != d.Length {
		return false
	}
	for _, e := range av.Elems {
		if !d.Elem.Contains(e) {
			return false
		}
	}
	return true
}

// Enumerate lists every array in lexicographic order over the element
// domain's canonical order.
func (d ArrayDomain) Enumerate() []Value {
	elems := d.Elem.Enumerate()
	if d.Length == 0 {
		return []Value{ArrayValue{}}
	}
	var out []Value
	idx := make([]int, d.Length)
	for {
		arr := make([]Value, d.Length)
		for i, j := range idx {
			arr[i] = elems[j]
		}
		out = append(out, ArrayValue{Elems: arr})

		// advance the rightmost index, carrying left
		pos := d.Length - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(elems) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

func (d ArrayDomain) Size() int {
	size := 1
	for i := 0; i < d.Length; i++ {
		size *= d.Elem.Size()
	}
	return size
}

func (d ArrayDomain) Equal(other Domain) bool {
	o, ok := other.(ArrayDomain)
	return ok && d.Length == o.Length && d.Elem.Equal(o.Elem)
}
