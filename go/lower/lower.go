// Package lower translates the bodies of Go functions into the IR.
//
// Every Go statement becomes a sequence of three-address statements.
// Local variables of integer-like types are modeled precisely;
// everything else, including package-level variables, variables
// captured by closures and variables whose address is taken, is
// modeled conservatively through opaque expressions and calls, which
// are never side-effect-free.
package lower

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"math"

	"honnef.co/go/dataflow/go/types/typeutil"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"
)

// ErrNoBody is returned for function declarations without a body.
var ErrNoBody = errors.New("function has no body")

// Func is a lowered Go function.
type Func struct {
	IR *ir.Function
	// Origins maps statements to the innermost Go statement they were
	// lowered from. Statements that were synthesized to terminate the
	// body have no origin.
	Origins map[ir.Stmt]ast.Stmt
	// Stores maps assignments to the identifier they assign to. Only
	// explicit assignments of non-zero values to local variables are
	// included.
	Stores map[ir.Stmt]*ast.Ident
	// Vars maps IR variables to the Go variables they represent.
	// Temporaries have no entry.
	Vars map[*ir.Var]*types.Var
	// Unwinds holds the returns that were emitted after calls that
	// never return, such as calls to panic.
	Unwinds map[ir.Stmt]bool
	// Recovers is set if the function defers a call that may recover
	// from a panic.
	Recovers bool
}

// Config controls lowering. The zero value is ready to use.
type Config struct {
	// NoReturn reports whether calls to fn never return. Calls to
	// panic never return regardless.
	NoReturn func(fn *types.Func) bool
}

// NoReturn reports whether fn can't return normally, because every
// path to its exit goes through a call that never returns.
func (fn *Func) NoReturn() (bool, error) {
	g, err := cfg.New(fn.IR)
	if err != nil {
		return false, err
	}
	seen := map[ir.Stmt]bool{g.Entry(): true}
	queue := []ir.Stmt{g.Entry()}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, succ := range g.Succs(n) {
			if !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	for _, e := range g.InEdges(g.Exit()) {
		if seen[e.Source] && (fn.Recovers || !fn.Unwinds[e.Source]) {
			return false, nil
		}
	}
	return true, nil
}

type targets struct {
	label string
	brk   string
	cont  string
	fall  string
}

type lowerer struct {
	conf *Config
	fset *token.FileSet
	info *types.Info
	fn   *ir.Function
	out  *Func
	body *ast.BlockStmt

	vars     map[*types.Var]*ir.Var
	names    map[string]int
	escaping map[*types.Var]bool

	origin    ast.Stmt
	nextLabel string
	targets   []*targets
	ntemps    int
	nlabels   int
}

// Lower lowers fn with the default configuration.
func Lower(fset *token.FileSet, info *types.Info, fn ast.Node) (*Func, error) {
	return (&Config{}).Lower(fset, info, fn)
}

// Lower lowers fn, which must be an *ast.FuncDecl or an *ast.FuncLit.
// Function literals nested in fn aren't lowered; they are values
// like any other.
func (conf *Config) Lower(fset *token.FileSet, info *types.Info, fn ast.Node) (*Func, error) {
	var (
		name string
		recv *ast.FieldList
		typ  *ast.FuncType
		body *ast.BlockStmt
	)
	switch fn := fn.(type) {
	case *ast.FuncDecl:
		name = fn.Name.Name
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			name = fmt.Sprintf("(%s).%s", types.ExprString(fn.Recv.List[0].Type), name)
		}
		recv, typ, body = fn.Recv, fn.Type, fn.Body
	case *ast.FuncLit:
		name = fmt.Sprintf("func@%d", fset.Position(fn.Pos()).Line)
		typ, body = fn.Type, fn.Body
	default:
		return nil, fmt.Errorf("can't lower %T", fn)
	}
	if body == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoBody)
	}

	l := &lowerer{
		conf:     conf,
		fset:     fset,
		info:     info,
		fn:       ir.NewFunction(name),
		body:     body,
		vars:     map[*types.Var]*ir.Var{},
		names:    map[string]int{},
		escaping: findEscaping(info, typ, body),
	}
	l.fn.Pos = fset.Position(fn.Pos()).String()
	l.out = &Func{
		IR:      l.fn,
		Origins: map[ir.Stmt]ast.Stmt{},
		Stores:  map[ir.Stmt]*ast.Ident{},
		Vars:    map[*ir.Var]*types.Var{},
		Unwinds: map[ir.Stmt]bool{},
	}

	for _, fields := range []*ast.FieldList{recv, typ.Params} {
		if fields == nil {
			continue
		}
		for _, field := range fields.List {
			for _, name := range field.Names {
				if v, ok := info.Defs[name].(*types.Var); ok {
					l.declare(v, true)
				}
			}
		}
	}
	if typ.Results != nil {
		for _, field := range typ.Results.List {
			for _, name := range field.Names {
				if v, ok := info.Defs[name].(*types.Var); ok {
					l.declare(v, false)
				}
			}
		}
	}

	l.stmts(body.List)
	if err := l.fn.Finish(); err != nil {
		return nil, fmt.Errorf("lowering %s: %w", name, err)
	}
	return l.out, nil
}

func (l *lowerer) declare(obj *types.Var, param bool) *ir.Var {
	typ := typeutil.Primitive(obj.Type())
	if l.escaping[obj] {
		typ = ir.Ref
	}
	// shadowed variables get distinct names
	name := obj.Name()
	if n := l.names[name]; n > 0 {
		name = fmt.Sprintf("%s_%d", name, n)
	}
	l.names[obj.Name()]++
	var v *ir.Var
	if param {
		v = l.fn.NewParam(name, typ)
	} else {
		v = l.fn.NewVar(name, typ)
	}
	l.vars[obj] = v
	l.out.Vars[v] = obj
	return v
}

// local returns the IR variable of a non-escaping local variable.
func (l *lowerer) local(obj types.Object) (*ir.Var, bool) {
	v, ok := obj.(*types.Var)
	if !ok || l.escaping[v] {
		return nil, false
	}
	iv, ok := l.vars[v]
	return iv, ok
}

func (l *lowerer) emit(s ir.Stmt) ir.Stmt {
	l.fn.Emit(s)
	if l.origin != nil {
		l.out.Origins[s] = l.origin
		s.SetLine(l.fset.Position(l.origin.Pos()).Line)
	}
	return s
}

func (l *lowerer) label(kind string) string {
	l.nlabels++
	return fmt.Sprintf("%s.%d", kind, l.nlabels)
}

// assign emits v = x.
func (l *lowerer) assign(v *ir.Var, x ir.Exp) ir.Stmt {
	if call, ok := x.(*ir.InvokeExp); ok {
		return l.emit(&ir.Invoke{Result: v, Call: call})
	}
	return l.emit(&ir.Assign{LHS: v, RHS: x})
}

func (l *lowerer) temp(x ir.Exp, typ ir.Type) *ir.Var {
	v := l.fn.NewVar(fmt.Sprintf("$t%d", l.ntemps), typ)
	l.ntemps++
	l.assign(v, x)
	return v
}

// operand returns a variable holding the value of x.
func (l *lowerer) operand(x ir.Exp) *ir.Var {
	if v, ok := x.(*ir.Var); ok {
		return v
	}
	return l.temp(x, typeOf(x))
}

func typeOf(x ir.Exp) ir.Type {
	switch x := x.(type) {
	case *ir.Var:
		return x.Type
	case *ir.IntLiteral:
		return ir.Int
	case *ir.BinaryExp:
		if x.Op.Category() == ir.Relational {
			return ir.Boolean
		}
		return x.Type
	case *ir.CastExp:
		return x.Type
	default:
		return ir.Ref
	}
}

// opaque emits a call to a pseudo-function standing in for an
// operation that the IR doesn't model.
func (l *lowerer) opaque(desc string, args ...*ir.Var) {
	l.emit(&ir.Invoke{Call: &ir.InvokeExp{Func: desc, Args: args}})
}

// value lowers e and returns a variable holding its value.
func (l *lowerer) value(e ast.Expr) *ir.Var {
	x := l.rvalue(e)
	if v, ok := x.(*ir.Var); ok {
		return v
	}
	return l.temp(x, typeutil.Primitive(l.info.TypeOf(e)))
}

func (l *lowerer) values(es []ast.Expr) []*ir.Var {
	out := make([]*ir.Var, 0, len(es))
	for _, e := range es {
		out = append(out, l.value(e))
	}
	return out
}

func (l *lowerer) constant(tv types.TypeAndValue) ir.Exp {
	if typeutil.Primitive(tv.Type).CanHoldInt() {
		switch tv.Value.Kind() {
		case constant.Bool:
			if constant.BoolVal(tv.Value) {
				return &ir.IntLiteral{Value: 1}
			}
			return &ir.IntLiteral{Value: 0}
		case constant.Int:
			if n, exact := constant.Int64Val(tv.Value); exact && n >= math.MinInt32 && n <= math.MaxInt32 {
				return &ir.IntLiteral{Value: int32(n)}
			}
		}
	}
	return &ir.OtherExp{Desc: tv.Value.ExactString()}
}

// rvalue lowers e to an expression whose operands are variables.
func (l *lowerer) rvalue(e ast.Expr) ir.Exp {
	e = ast.Unparen(e)
	if tv, ok := l.info.Types[e]; ok && tv.Value != nil {
		return l.constant(tv)
	}

	switch e := e.(type) {
	case *ast.Ident:
		return l.ident(e)
	case *ast.BinaryExpr:
		return l.binary(e)
	case *ast.UnaryExpr:
		return l.unary(e)
	case *ast.CallExpr:
		return l.call(e)
	case *ast.SelectorExpr:
		sel, ok := l.info.Selections[e]
		switch {
		case !ok:
			// qualified identifier
			if v, ok := l.info.Uses[e.Sel].(*types.Var); ok {
				return &ir.FieldAccess{Class: v.Pkg().Name(), Field: v.Name()}
			}
			return &ir.OtherExp{Desc: types.ExprString(e)}
		case sel.Kind() == types.FieldVal:
			return &ir.FieldAccess{Base: l.value(e.X), Field: e.Sel.Name}
		case sel.Kind() == types.MethodExpr:
			return &ir.OtherExp{Desc: types.ExprString(e)}
		default:
			return &ir.OtherExp{Desc: "method value " + e.Sel.Name, Args: []*ir.Var{l.value(e.X)}}
		}
	case *ast.IndexExpr:
		if _, ok := l.info.TypeOf(e.X).(*types.Signature); ok {
			// instantiation of a generic function
			return &ir.OtherExp{Desc: types.ExprString(e)}
		}
		return &ir.ArrayAccess{Base: l.value(e.X), Index: l.value(e.Index)}
	case *ast.IndexListExpr:
		return &ir.OtherExp{Desc: types.ExprString(e)}
	case *ast.StarExpr:
		return &ir.OtherExp{Desc: "load", Args: []*ir.Var{l.value(e.X)}}
	case *ast.SliceExpr:
		args := []*ir.Var{l.value(e.X)}
		for _, idx := range []ast.Expr{e.Low, e.High, e.Max} {
			if idx != nil {
				args = append(args, l.value(idx))
			}
		}
		return &ir.OtherExp{Desc: "slice", Args: args}
	case *ast.TypeAssertExpr:
		return &ir.OtherExp{Desc: "type assertion", Args: []*ir.Var{l.value(e.X)}}
	case *ast.CompositeLit:
		return l.composite(e)
	case *ast.FuncLit:
		return &ir.OtherExp{Desc: "func literal"}
	default:
		return &ir.OtherExp{Desc: types.ExprString(e)}
	}
}

func (l *lowerer) ident(e *ast.Ident) ir.Exp {
	switch obj := l.info.ObjectOf(e).(type) {
	case *types.Var:
		if v, ok := l.vars[obj]; ok {
			return v
		}
		if obj.Pkg() != nil && obj.Parent() == obj.Pkg().Scope() {
			return &ir.FieldAccess{Class: obj.Pkg().Name(), Field: obj.Name()}
		}
		return &ir.OtherExp{Desc: "free " + obj.Name()}
	default:
		return &ir.OtherExp{Desc: e.Name}
	}
}

var binaryOps = map[token.Token]ir.Op{
	token.ADD: ir.ADD,
	token.SUB: ir.SUB,
	token.MUL: ir.MUL,
	token.QUO: ir.DIV,
	token.REM: ir.REM,
	token.OR:  ir.OR,
	token.AND: ir.AND,
	token.XOR: ir.XOR,
	token.EQL: ir.EQ,
	token.NEQ: ir.NE,
	token.LSS: ir.LT,
	token.GTR: ir.GT,
	token.LEQ: ir.LE,
	token.GEQ: ir.GE,
}

// binaryExp returns x op y. Operations that can't be expressed as an
// ir.BinaryExp, such as shifts with Go's semantics, become opaque.
func (l *lowerer) binaryExp(op token.Token, x, y *ir.Var, xt, yt types.Type) ir.Exp {
	irop, ok := binaryOps[op]
	if !ok || !typeutil.IsBasic(xt) || !typeutil.IsBasic(yt) {
		return &ir.OtherExp{Desc: op.String(), Args: []*ir.Var{x, y}}
	}
	return &ir.BinaryExp{Op: irop, X: x, Y: y, Type: typeutil.Primitive(xt)}
}

func (l *lowerer) binary(e *ast.BinaryExpr) ir.Exp {
	x := l.value(e.X)
	y := l.value(e.Y)
	return l.binaryExp(e.Op, x, y, l.info.TypeOf(e.X), l.info.TypeOf(e.Y))
}

func (l *lowerer) unary(e *ast.UnaryExpr) ir.Exp {
	switch e.Op {
	case token.ADD:
		return l.rvalue(e.X)
	case token.ARROW:
		return &ir.InvokeExp{Func: "<-", Args: []*ir.Var{l.value(e.X)}}
	case token.AND:
		return &ir.OtherExp{Desc: "&", Args: []*ir.Var{l.value(e.X)}}
	}

	x := l.value(e.X)
	typ := typeutil.Primitive(l.info.TypeOf(e.X))
	if !typ.CanHoldInt() {
		return &ir.OtherExp{Desc: e.Op.String(), Args: []*ir.Var{x}}
	}
	switch e.Op {
	case token.SUB:
		return &ir.BinaryExp{Op: ir.SUB, X: l.temp(&ir.IntLiteral{Value: 0}, typ), Y: x, Type: typ}
	case token.XOR:
		return &ir.BinaryExp{Op: ir.XOR, X: x, Y: l.temp(&ir.IntLiteral{Value: -1}, typ), Type: typ}
	case token.NOT:
		return &ir.BinaryExp{Op: ir.EQ, X: x, Y: l.temp(&ir.IntLiteral{Value: 0}, typ), Type: typ}
	default:
		return &ir.OtherExp{Desc: e.Op.String(), Args: []*ir.Var{x}}
	}
}

func (l *lowerer) isBuiltin(e ast.Expr, name string) bool {
	id, ok := ast.Unparen(e).(*ast.Ident)
	if !ok {
		return false
	}
	b, ok := l.info.Uses[id].(*types.Builtin)
	return ok && b.Name() == name
}

func (l *lowerer) call(e *ast.CallExpr) ir.Exp {
	fun := ast.Unparen(e.Fun)
	if l.info.Types[fun].IsType() {
		x := l.value(e.Args[0])
		to := l.info.TypeOf(e)
		if typeutil.IsBasic(to) && typeutil.IsBasic(l.info.TypeOf(e.Args[0])) {
			return &ir.CastExp{X: x, Type: typeutil.Primitive(to)}
		}
		return &ir.OtherExp{Desc: "conversion", Args: []*ir.Var{x}}
	}

	var args []*ir.Var
	switch fun := fun.(type) {
	case *ast.Ident:
		if _, ok := l.info.Uses[fun].(*types.Var); ok {
			args = append(args, l.value(fun))
		}
	case *ast.SelectorExpr:
		if sel, ok := l.info.Selections[fun]; ok {
			if sel.Kind() == types.MethodVal {
				args = append(args, l.value(fun.X))
			} else {
				args = append(args, l.value(fun))
			}
		}
	case *ast.FuncLit:
	default:
		args = append(args, l.value(fun))
	}
	for _, arg := range e.Args {
		if l.info.Types[arg].IsType() {
			continue
		}
		args = append(args, l.value(arg))
	}
	return &ir.InvokeExp{Func: types.ExprString(fun), Args: args}
}

func (l *lowerer) composite(e *ast.CompositeLit) ir.Exp {
	_, isStruct := typeutil.Underlying(l.info.TypeOf(e)).(*types.Struct)
	var args []*ir.Var
	for _, elt := range e.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			if !isStruct {
				args = append(args, l.value(kv.Key))
			}
			elt = kv.Value
		}
		args = append(args, l.value(elt))
	}
	return &ir.OtherExp{Desc: "composite " + types.TypeString(l.info.TypeOf(e), nil), Args: args}
}
