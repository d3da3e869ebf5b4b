package constprop

import (
	"fmt"
)

type kind uint8

const (
	undef kind = iota
	constant
	nac
)

// Value is an element of the constant-propagation lattice:
//
//	         NAC
//	/  /  /  |  \  \  \
//	... -2  -1  0  1  2 ...
//	\  \  \  |  /  /  /
//	        UNDEF
//
// UNDEF means that no definition has reached a point yet, NAC that the
// value isn't a compile-time constant. The zero value is UNDEF.
type Value struct {
	kind kind
	n    int32
}

// Undefined returns the bottom element.
func Undefined() Value { return Value{} }

// NAC returns the top element.
func NAC() Value { return Value{kind: nac} }

// MakeConstant returns the constant n.
func MakeConstant(n int32) Value { return Value{kind: constant, n: n} }

func (v Value) IsUndefined() bool { return v.kind == undef }
func (v Value) IsConstant() bool  { return v.kind == constant }
func (v Value) IsNAC() bool       { return v.kind == nac }

// Constant returns the value of a constant. It panics if v isn't a
// constant.
func (v Value) Constant() int32 {
	if v.kind != constant {
		panic(fmt.Sprintf("%s is not a constant", v))
	}
	return v.n
}

func (v Value) String() string {
	switch v.kind {
	case undef:
		return "UNDEF"
	case nac:
		return "NAC"
	default:
		return fmt.Sprint(v.n)
	}
}

// Meet returns the least upper bound of v1 and v2. It is commutative,
// associative and idempotent.
func Meet(v1, v2 Value) Value {
	switch {
	case v1.IsNAC() || v2.IsNAC():
		return NAC()
	case v1.IsConstant() && v2.IsConstant():
		if v1.n == v2.n {
			return v1
		}
		return NAC()
	case v1.IsUndefined():
		return v2
	default:
		return v1
	}
}

// lessEqual reports whether v1 ⊑ v2.
func lessEqual(v1, v2 Value) bool {
	return Meet(v1, v2) == v2
}
