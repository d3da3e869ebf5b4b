// Package typeutil maps Go types onto the primitive types of the IR.
package typeutil

import (
	"go/types"

	"honnef.co/go/dataflow/ir"

	"golang.org/x/exp/typeparams"
)

// Underlying returns the underlying type of t. For type parameters,
// that is the underlying type shared by every term of the type set, or
// nil if the terms disagree or the type set isn't restricted.
func Underlying(t types.Type) types.Type {
	tp, ok := t.(*typeparams.TypeParam)
	if !ok {
		return t.Underlying()
	}
	terms, err := typeparams.NormalTerms(tp)
	if err != nil || len(terms) == 0 {
		return nil
	}
	typ := terms[0].Type().Underlying()
	for _, term := range terms[1:] {
		if !types.Identical(typ, term.Type().Underlying()) {
			return nil
		}
	}
	return typ
}

// Primitive returns the IR type that represents values of type t.
//
// Integer types whose arithmetic matches an IR type are mapped to that
// type: int8 to byte, int16 to short, int32 to int, uint16 to char and
// bool to boolean. All other integer types are mapped to long, which
// isn't tracked by constant propagation. Type parameters are mapped by
// the underlying type of their terms.
func Primitive(t types.Type) ir.Type {
	if t == nil {
		return ir.Void
	}
	basic, ok := Underlying(t).(*types.Basic)
	if !ok {
		return ir.Ref
	}
	switch basic.Kind() {
	case types.Bool, types.UntypedBool:
		return ir.Boolean
	case types.Int8:
		return ir.Byte
	case types.Int16:
		return ir.Short
	case types.Int32, types.UntypedRune:
		return ir.Int
	case types.Uint16:
		return ir.Char
	case types.Int, types.Int64, types.Uint, types.Uint8, types.Uint32, types.Uint64, types.Uintptr, types.UntypedInt:
		return ir.Long
	case types.Float32:
		return ir.Float
	case types.Float64, types.UntypedFloat:
		return ir.Double
	default:
		return ir.Ref
	}
}

// IsBasic reports whether t's underlying type is a basic type. Comparing
// values of basic types can't panic.
func IsBasic(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := Underlying(t).(*types.Basic)
	return ok
}
