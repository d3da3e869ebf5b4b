package lower

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
)

func within(pos token.Pos, n ast.Node) bool {
	return n.Pos() <= pos && pos < n.End()
}

// findEscaping returns the variables whose value may be observed or
// modified other than through their name in the function body: those
// captured by closures, those whose address is taken, and named
// results.
func findEscaping(info *types.Info, typ *ast.FuncType, body *ast.BlockStmt) map[*types.Var]bool {
	escaping := map[*types.Var]bool{}
	mark := func(e ast.Expr) {
		for {
			switch x := ast.Unparen(e).(type) {
			case *ast.Ident:
				if v, ok := info.ObjectOf(x).(*types.Var); ok {
					escaping[v] = true
				}
				return
			case *ast.IndexExpr:
				if _, ok := info.TypeOf(x.X).Underlying().(*types.Array); !ok {
					return
				}
				e = x.X
			case *ast.SelectorExpr:
				sel, ok := info.Selections[x]
				if !ok || sel.Kind() != types.FieldVal {
					return
				}
				if _, ok := info.TypeOf(x.X).Underlying().(*types.Pointer); ok {
					return
				}
				e = x.X
			default:
				return
			}
		}
	}

	if typ.Results != nil {
		for _, field := range typ.Results.List {
			for _, name := range field.Names {
				if v, ok := info.Defs[name].(*types.Var); ok {
					escaping[v] = true
				}
			}
		}
	}

	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			ast.Inspect(n.Body, func(m ast.Node) bool {
				if id, ok := m.(*ast.Ident); ok {
					if v, ok := info.Uses[id].(*types.Var); ok && !within(v.Pos(), n) {
						escaping[v] = true
					}
				}
				return true
			})
		case *ast.UnaryExpr:
			if n.Op == token.AND {
				mark(n.X)
			}
		case *ast.SliceExpr:
			if _, ok := info.TypeOf(n.X).Underlying().(*types.Array); ok {
				mark(n.X)
			}
		case *ast.SelectorExpr:
			// if this is a method on a pointer receiver, and the
			// operand is not a pointer, then it has its address
			// taken and escapes
			sel, ok := info.Selections[n]
			if !ok || sel.Kind() != types.MethodVal {
				break
			}
			recv := sel.Obj().Type().(*types.Signature).Recv()
			if recv == nil {
				break
			}
			if _, ok := recv.Type().Underlying().(*types.Pointer); !ok {
				break
			}
			if _, ok := info.TypeOf(n.X).Underlying().(*types.Pointer); ok {
				break
			}
			mark(n.X)
		}
		return true
	})
	return escaping
}

func isZeroConst(c constant.Value) bool {
	switch c.Kind() {
	case constant.Unknown:
		return false
	case constant.Bool:
		return !constant.BoolVal(c)
	case constant.String:
		return constant.StringVal(c) == ""
	case constant.Int:
		v, ok := constant.Uint64Val(c)
		return ok && v == 0
	case constant.Float:
		v, ok := constant.Float64Val(c)
		return ok && v == 0
	case constant.Complex:
		c1, ok1 := constant.Float64Val(constant.Real(c))
		c2, ok2 := constant.Float64Val(constant.Imag(c))
		return ok1 && ok2 && c1 == 0 && c2 == 0
	default:
		panic("unreachable")
	}
}

// isZeroLiteral reports whether e spells out a zero value, true or nil.
// Initializing a variable with such a value and overwriting it later is
// a matter of style, not a mistake.
func isZeroLiteral(info *types.Info, e ast.Expr) bool {
	switch e := ast.Unparen(e).(type) {
	case *ast.CallExpr:
		if !info.Types[e.Fun].IsType() || len(e.Args) != 1 {
			break
		}
		return isZeroLiteral(info, e.Args[0])
	case *ast.SelectorExpr:
		return isZeroLiteral(info, e.Sel)
	case *ast.Ident:
		obj := info.ObjectOf(e)
		if obj == types.Universe.Lookup("false") || obj == types.Universe.Lookup("true") {
			return true
		}
		if obj == types.Universe.Lookup("nil") {
			return true
		}
		if c, ok := obj.(*types.Const); ok {
			return isZeroConst(c.Val())
		}
		return false
	case *ast.BasicLit:
		return isZeroConst(constant.MakeFromLiteral(e.Value, e.Kind, 0))
	case *ast.CompositeLit:
		return len(e.Elts) == 0
	}
	return false
}
