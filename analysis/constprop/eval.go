package constprop

import (
	"fmt"
	"unsafe"

	"honnef.co/go/dataflow/ir"

	"golang.org/x/exp/constraints"
)

// Evaluate computes the value of e given the fact in. It never fails:
// expressions it cannot reason about evaluate to NAC.
func Evaluate(e ir.Exp, in *Fact) Value {
	switch e := e.(type) {
	case *ir.Var:
		if !e.CanHoldInt() {
			return NAC()
		}
		return in.Get(e)
	case *ir.IntLiteral:
		return MakeConstant(e.Value)
	case *ir.BinaryExp:
		return evalBinary(e, in)
	case *ir.ArrayAccess, *ir.FieldAccess, *ir.CastExp, *ir.NewExp, *ir.InvokeExp, *ir.OtherExp:
		return NAC()
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

func evalBinary(e *ir.BinaryExp, in *Fact) Value {
	if !e.X.CanHoldInt() || !e.Y.CanHoldInt() {
		return NAC()
	}
	v1, v2 := in.Get(e.X), in.Get(e.Y)
	switch {
	case v1.IsConstant() && v2.IsConstant():
		if (e.Op == ir.DIV || e.Op == ir.REM) && v2.Constant() == 0 {
			return NAC()
		}
		n, ok := foldIn(e.Type, e.Op, v1.Constant(), v2.Constant())
		if !ok {
			return NAC()
		}
		return MakeConstant(n)
	case v1.IsNAC() || v2.IsNAC():
		return NAC()
	default:
		return Undefined()
	}
}

// foldIn folds x op y in the width of typ.
func foldIn(typ ir.Type, op ir.Op, x, y int32) (int32, bool) {
	switch typ {
	case ir.Byte:
		r, ok := fold(op, int8(x), int8(y))
		return int32(r), ok
	case ir.Short:
		r, ok := fold(op, int16(x), int16(y))
		return int32(r), ok
	case ir.Char:
		r, ok := fold(op, uint16(x), uint16(y))
		return int32(r), ok
	case ir.Int, ir.Boolean:
		return fold(op, x, y)
	default:
		return 0, false
	}
}

func bitsOf[T constraints.Integer]() uint {
	var zero T
	return uint(unsafe.Sizeof(zero)) * 8
}

// fold applies op to x and y with the wrap-around semantics of T. Shift
// amounts are taken modulo the width of T. It reports false for
// division by zero.
func fold[T constraints.Integer](op ir.Op, x, y T) (T, bool) {
	b := func(c bool) T {
		if c {
			return 1
		}
		return 0
	}
	width := bitsOf[T]()
	shift := uint(y) & (width - 1)

	switch op {
	case ir.ADD:
		return x + y, true
	case ir.SUB:
		return x - y, true
	case ir.MUL:
		return x * y, true
	case ir.DIV:
		if y == 0 {
			return 0, false
		}
		return x / y, true
	case ir.REM:
		if y == 0 {
			return 0, false
		}
		return x % y, true
	case ir.OR:
		return x | y, true
	case ir.AND:
		return x & y, true
	case ir.XOR:
		return x ^ y, true
	case ir.EQ:
		return b(x == y), true
	case ir.NE:
		return b(x != y), true
	case ir.LT:
		return b(x < y), true
	case ir.GT:
		return b(x > y), true
	case ir.LE:
		return b(x <= y), true
	case ir.GE:
		return b(x >= y), true
	case ir.SHL:
		return x << shift, true
	case ir.SHR:
		return x >> shift, true
	case ir.USHR:
		mask := ^uint64(0) >> (64 - width)
		return T((uint64(x) & mask) >> shift), true
	default:
		panic(fmt.Sprintf("unexpected operator %s", op))
	}
}
