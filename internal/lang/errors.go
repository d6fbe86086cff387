package lang

import (
	"errors"
	"fmt"
)

// RejectKind classifies why a program was rejected.
type RejectKind int

const (
	_ RejectKind = iota
	// KindDomain indicates a variable lacks a finite declared domain,
	// or a computed value fell outside its declared domain.
	KindDomain
	// KindBounds indicates an array index outside the declared length.
	KindBounds
	// KindName indicates use of an unbound variable or undefined function.
	KindName
	// KindArity indicates a call with the wrong number of arguments.
	KindArity
	// KindResource indicates a configured exploration budget was
	// exceeded. Unlike the other kinds this is a capacity limit, not a
	// program defect; callers may retry with a larger budget.
	KindResource
)

func (k RejectKind) String() string {
	switch k {
	case KindDomain:
		return "DomainError"
	case KindBounds:
		return "BoundsError"
	case KindName:
		return "NameError"
	case KindArity:
		return "ArityError"
	case KindResource:
		return "ResourceExhausted"
	default:
		return "?"
	}
}

// Reject is the error type for every compile-time rejection. Since
// exploration is exhaustive, any reachable error is discovered once and
// reported with the witnessing input when one is known.
type Reject struct {
	Kind RejectKind
	Msg  string
	// PC is the program location where the rejection occurred, or -1
	// when the rejection is static (pre-exploration).
	PC int
	// Input is the initial environment whose walk witnessed the
	// rejection, if any.
	Input *Env
}

func (e *Reject) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.PC >= 0 {
		s += fmt.Sprintf(" (at %d)", e.PC)
	}
	if e.Input != nil {
		s += fmt.Sprintf(" (input %s)", e.Input)
	}
	return s
}

// Rejectf builds a Reject with no location attached.
func Rejectf(kind RejectKind, format string, args ...any) *Reject {
	return &Reject{Kind: kind, Msg: fmt.Sprintf(format, args...), PC: -1}
}

// RejectAt builds a Reject at a program location.
func RejectAt(kind RejectKind, pc int, format string, args ...any) *Reject {
	return &Reject{Kind: kind, Msg: fmt.Sprintf(format, args...), PC: pc}
}

// AsReject unwraps err into a *Reject if possible.
func AsReject(err error) (*Reject, bool) {
	var r *Reject
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsKind reports whether err is a rejection of the given kind.
func IsKind(err error, kind RejectKind) bool {
	if r, ok := AsReject(err); ok {
		return r.Kind == kind
	}
	return false
}

// IsResourceExhausted reports whether err is a budget rejection.
// It is reported distinctly so callers can retry with a larger budget
// rather than treat the program as defective.
func IsResourceExhausted(err error) bool {
	return IsKind(err, KindResource)
}
