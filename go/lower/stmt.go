package lower

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"honnef.co/go/dataflow/go/types/typeutil"
	"honnef.co/go/dataflow/ir"

	gotypeutil "golang.org/x/tools/go/types/typeutil"
)

// lvalue is the destination of an assignment.
type lvalue struct {
	// v is set for non-escaping local variables.
	v  *ir.Var
	id *ast.Ident
	// desc and args describe any other destination.
	desc    string
	args    []*ir.Var
	discard bool
}

// lookup returns the IR variable of a variable declared in the body,
// declaring it on first use.
func (l *lowerer) lookup(obj types.Object) (*ir.Var, bool) {
	v, ok := obj.(*types.Var)
	if !ok {
		return nil, false
	}
	if iv, ok := l.vars[v]; ok {
		return iv, !l.escaping[v]
	}
	if !within(v.Pos(), l.body) {
		return nil, false
	}
	return l.declare(v, false), !l.escaping[v]
}

func (l *lowerer) prepare(lhs ast.Expr) lvalue {
	lhs = ast.Unparen(lhs)
	switch lhs := lhs.(type) {
	case *ast.Ident:
		if lhs.Name == "_" {
			return lvalue{discard: true}
		}
		obj := l.info.ObjectOf(lhs)
		if v, ok := l.lookup(obj); ok {
			return lvalue{v: v, id: lhs}
		}
		return lvalue{desc: "store " + lhs.Name}
	case *ast.SelectorExpr:
		if _, ok := l.info.Selections[lhs]; !ok {
			return lvalue{desc: "store " + types.ExprString(lhs)}
		}
		return lvalue{desc: "store ." + lhs.Sel.Name, args: []*ir.Var{l.value(lhs.X)}}
	case *ast.IndexExpr:
		return lvalue{desc: "store []", args: []*ir.Var{l.value(lhs.X), l.value(lhs.Index)}}
	case *ast.StarExpr:
		return lvalue{desc: "store *", args: []*ir.Var{l.value(lhs.X)}}
	default:
		return lvalue{desc: "store " + types.ExprString(lhs)}
	}
}

// store assigns x to lv. src is the Go expression x was lowered from,
// if any.
func (l *lowerer) store(lv lvalue, x ir.Exp, src ast.Expr) {
	switch {
	case lv.discard:
		if call, ok := x.(*ir.InvokeExp); ok {
			l.emit(&ir.Invoke{Call: call})
		} else {
			l.opaque("discard", l.operand(x))
		}
	case lv.v != nil:
		s := l.assign(lv.v, x)
		if _, ok := s.(*ir.Assign); ok && (src == nil || !isZeroLiteral(l.info, src)) {
			l.out.Stores[s] = lv.id
		}
	default:
		l.opaque(lv.desc, append(lv.args, l.operand(x))...)
	}
}

func (l *lowerer) stmts(list []ast.Stmt) {
	for _, s := range list {
		l.stmt(s)
	}
}

func (l *lowerer) stmt(s ast.Stmt) {
	label := l.nextLabel
	l.nextLabel = ""

	saved := l.origin
	l.origin = s
	defer func() { l.origin = saved }()

	switch s := s.(type) {
	case *ast.BlockStmt:
		l.stmts(s.List)
	case *ast.LabeledStmt:
		l.fn.Label("L." + s.Label.Name)
		l.nextLabel = s.Label.Name
		l.stmt(s.Stmt)
	case *ast.EmptyStmt, *ast.BadStmt:
	case *ast.ExprStmt:
		l.exprStmt(s)
	case *ast.AssignStmt:
		l.assignStmt(s)
	case *ast.IncDecStmt:
		op := token.ADD
		if s.Tok == token.DEC {
			op = token.SUB
		}
		l.opAssign(s.X, op, nil)
	case *ast.DeclStmt:
		l.declStmt(s)
	case *ast.ReturnStmt:
		l.returnStmt(s)
	case *ast.IfStmt:
		l.ifStmt(s)
	case *ast.ForStmt:
		l.forStmt(s, label)
	case *ast.RangeStmt:
		l.rangeStmt(s, label)
	case *ast.SwitchStmt:
		l.switchStmt(s, label)
	case *ast.TypeSwitchStmt:
		l.typeSwitchStmt(s, label)
	case *ast.SelectStmt:
		l.selectStmt(s, label)
	case *ast.BranchStmt:
		l.branchStmt(s)
	case *ast.GoStmt:
		l.deferred("go", s.Call)
	case *ast.DeferStmt:
		l.deferred("defer", s.Call)
	case *ast.SendStmt:
		l.opaque("send", l.value(s.Chan), l.value(s.Value))
	default:
		panic(fmt.Sprintf("unexpected statement %T", s))
	}
}

func (l *lowerer) exprStmt(s *ast.ExprStmt) {
	switch x := l.rvalue(s.X).(type) {
	case *ir.InvokeExp:
		l.emit(&ir.Invoke{Call: x})
	default:
		l.opaque("discard", l.operand(x))
	}
	if call, ok := ast.Unparen(s.X).(*ast.CallExpr); ok && l.noReturn(call) {
		l.out.Unwinds[l.emit(&ir.Return{})] = true
	}
}

func (l *lowerer) noReturn(call *ast.CallExpr) bool {
	if l.isBuiltin(call.Fun, "panic") {
		return true
	}
	if l.conf.NoReturn == nil {
		return false
	}
	fn := gotypeutil.StaticCallee(l.info, call)
	return fn != nil && l.conf.NoReturn(fn)
}

func (l *lowerer) deferred(kind string, call *ast.CallExpr) {
	x := l.rvalue(call)
	inv, ok := x.(*ir.InvokeExp)
	if !ok {
		// conversions can't be deferred, but builtins lowered to
		// something other than a call can
		inv = &ir.InvokeExp{Func: types.ExprString(call.Fun), Args: []*ir.Var{l.operand(x)}}
	}
	l.emit(&ir.Invoke{Call: &ir.InvokeExp{Func: kind + " " + inv.Func, Args: inv.Args}})
	if kind == "defer" && l.mayRecover(call) {
		l.out.Recovers = true
	}
}

// mayRecover reports whether the deferred call may recover from a
// panic. Only the bodies of function literals are inspected; any other
// call, except one to a builtin, may recover.
func (l *lowerer) mayRecover(call *ast.CallExpr) bool {
	lit, ok := ast.Unparen(call.Fun).(*ast.FuncLit)
	if !ok {
		id, ok := ast.Unparen(call.Fun).(*ast.Ident)
		if !ok {
			return true
		}
		_, builtin := l.info.Uses[id].(*types.Builtin)
		return !builtin
	}
	found := false
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		if c, ok := n.(*ast.CallExpr); ok && l.isBuiltin(c.Fun, "recover") {
			found = true
		}
		return !found
	})
	return found
}

func (l *lowerer) assignStmt(s *ast.AssignStmt) {
	switch s.Tok {
	case token.ASSIGN, token.DEFINE:
		l.assignment(s.Lhs, s.Rhs)
	default:
		l.opAssign(s.Lhs[0], s.Tok+token.ADD-token.ADD_ASSIGN, s.Rhs[0])
	}
}

// assignment lowers lhs = rhs, with either as many expressions on each
// side or a single multi-valued expression on the right.
func (l *lowerer) assignment(lhs, rhs []ast.Expr) {
	lvs := make([]lvalue, len(lhs))
	for i, e := range lhs {
		lvs[i] = l.prepare(e)
	}
	switch {
	case len(lhs) == 1 && len(rhs) == 1:
		l.store(lvs[0], l.rvalue(rhs[0]), rhs[0])
	case len(lhs) == len(rhs):
		// all operands are evaluated before any variable is assigned
		vals := make([]*ir.Var, len(rhs))
		for i, e := range rhs {
			vals[i] = l.temp(l.rvalue(e), typeutil.Primitive(l.info.TypeOf(e)))
		}
		for i, lv := range lvs {
			l.store(lv, vals[i], rhs[i])
		}
	default:
		tuple := l.temp(l.rvalue(rhs[0]), ir.Ref)
		for i, lv := range lvs {
			l.store(lv, &ir.OtherExp{Desc: fmt.Sprintf("extract #%d", i), Args: []*ir.Var{tuple}}, nil)
		}
	}
}

// opAssign lowers lhs op= rhs. A nil rhs stands for the constant 1.
func (l *lowerer) opAssign(lhs ast.Expr, op token.Token, rhs ast.Expr) {
	lv := l.prepare(lhs)
	xt := l.info.TypeOf(lhs)
	yt := xt
	var y *ir.Var
	if rhs == nil {
		y = l.temp(l.constant(types.TypeAndValue{Type: xt, Value: constant.MakeInt64(1)}), typeutil.Primitive(xt))
	} else {
		y = l.value(rhs)
		yt = l.info.TypeOf(rhs)
	}
	if lv.v == nil {
		l.store(lv, &ir.OtherExp{Desc: op.String(), Args: append(lv.args[:len(lv.args):len(lv.args)], y)}, nil)
		return
	}
	l.store(lv, l.binaryExp(op, lv.v, y, xt, yt), nil)
}

func (l *lowerer) declStmt(s *ast.DeclStmt) {
	decl, ok := s.Decl.(*ast.GenDecl)
	if !ok || decl.Tok != token.VAR {
		return
	}
	for _, spec := range decl.Specs {
		spec := spec.(*ast.ValueSpec)
		if len(spec.Values) > 0 {
			lhs := make([]ast.Expr, len(spec.Names))
			for i, name := range spec.Names {
				lhs[i] = name
			}
			l.assignment(lhs, spec.Values)
			continue
		}
		for _, name := range spec.Names {
			if name.Name == "_" {
				continue
			}
			v, ok := l.lookup(l.info.Defs[name])
			if !ok {
				continue
			}
			if v.CanHoldInt() {
				l.assign(v, &ir.IntLiteral{Value: 0})
			} else {
				l.assign(v, &ir.OtherExp{Desc: "zero"})
			}
		}
	}
}

func (l *lowerer) returnStmt(s *ast.ReturnStmt) {
	switch len(s.Results) {
	case 0:
		l.emit(&ir.Return{})
	case 1:
		l.emit(&ir.Return{Value: l.value(s.Results[0])})
	default:
		results := l.temp(&ir.OtherExp{Desc: "results", Args: l.values(s.Results)}, ir.Ref)
		l.emit(&ir.Return{Value: results})
	}
}

// condition lowers a branch condition. Conditions that are constant in
// the source, such as build-time feature switches, are not treated as
// constant.
func (l *lowerer) condition(e ast.Expr) ir.Exp {
	if tv, ok := l.info.Types[ast.Unparen(e)]; ok && tv.Value != nil {
		return l.temp(&ir.OtherExp{Desc: "const " + tv.Value.ExactString()}, ir.Boolean)
	}
	switch x := l.rvalue(e).(type) {
	case *ir.Var, *ir.BinaryExp:
		return x
	default:
		return l.operand(x)
	}
}

// branch emits code that jumps to t if e is true and to f otherwise.
func (l *lowerer) branch(e ast.Expr, t, f string) {
	switch x := ast.Unparen(e).(type) {
	case *ast.BinaryExpr:
		if tv, ok := l.info.Types[x]; ok && tv.Value != nil {
			break
		}
		switch x.Op {
		case token.LAND:
			mid := l.label("and")
			l.branch(x.X, mid, f)
			l.fn.Label(mid)
			l.branch(x.Y, t, f)
			return
		case token.LOR:
			mid := l.label("or")
			l.branch(x.X, t, mid)
			l.fn.Label(mid)
			l.branch(x.Y, t, f)
			return
		}
	case *ast.UnaryExpr:
		if tv, ok := l.info.Types[x]; ok && tv.Value != nil {
			break
		}
		if x.Op == token.NOT {
			l.branch(x.X, f, t)
			return
		}
	}
	l.emit(&ir.If{Cond: l.condition(e), Target: t})
	l.emit(&ir.Goto{Target: f})
}

func (l *lowerer) ifStmt(s *ast.IfStmt) {
	if s.Init != nil {
		l.stmt(s.Init)
	}
	then, els, done := l.label("if.then"), l.label("if.else"), l.label("if.done")
	if s.Else == nil {
		els = done
	}
	l.branch(s.Cond, then, els)
	l.fn.Label(then)
	l.stmt(s.Body)
	if s.Else != nil {
		l.emit(&ir.Goto{Target: done})
		l.fn.Label(els)
		l.stmt(s.Else)
	}
	l.fn.Label(done)
}

func (l *lowerer) push(t *targets) func() {
	l.targets = append(l.targets, t)
	return func() { l.targets = l.targets[:len(l.targets)-1] }
}

func (l *lowerer) forStmt(s *ast.ForStmt, label string) {
	if s.Init != nil {
		l.stmt(s.Init)
	}
	loop, body, cont, done := l.label("for.loop"), l.label("for.body"), l.label("for.post"), l.label("for.done")
	l.fn.Label(loop)
	if s.Cond != nil {
		l.branch(s.Cond, body, done)
	}
	l.fn.Label(body)
	pop := l.push(&targets{label: label, brk: done, cont: cont})
	l.stmt(s.Body)
	pop()
	l.fn.Label(cont)
	if s.Post != nil {
		l.stmt(s.Post)
	}
	l.emit(&ir.Goto{Target: loop})
	l.fn.Label(done)
}

func (l *lowerer) rangeStmt(s *ast.RangeStmt, label string) {
	x := l.value(s.X)
	loop, body, done := l.label("range.loop"), l.label("range.body"), l.label("range.done")
	l.fn.Label(loop)
	more := l.temp(&ir.OtherExp{Desc: "range next", Args: []*ir.Var{x}}, ir.Boolean)
	l.emit(&ir.If{Cond: more, Target: body})
	l.emit(&ir.Goto{Target: done})
	l.fn.Label(body)
	for i, e := range []ast.Expr{s.Key, s.Value} {
		if e == nil {
			continue
		}
		l.store(l.prepare(e), &ir.OtherExp{Desc: fmt.Sprintf("range #%d", i), Args: []*ir.Var{x}}, nil)
	}
	pop := l.push(&targets{label: label, brk: done, cont: loop})
	l.stmt(s.Body)
	pop()
	l.emit(&ir.Goto{Target: loop})
	l.fn.Label(done)
}

// caseValues returns the values of the case expressions of an
// expression switch on a tracked variable, if they are all distinct
// constants.
func (l *lowerer) caseValues(tag *ir.Var, clauses []ast.Stmt) ([][]int32, bool) {
	if !tag.CanHoldInt() {
		return nil, false
	}
	seen := map[int32]bool{}
	out := make([][]int32, len(clauses))
	for i, c := range clauses {
		for _, e := range c.(*ast.CaseClause).List {
			tv := l.info.Types[e]
			if tv.Value == nil {
				return nil, false
			}
			lit, ok := l.constant(tv).(*ir.IntLiteral)
			if !ok || seen[lit.Value] {
				return nil, false
			}
			seen[lit.Value] = true
			out[i] = append(out[i], lit.Value)
		}
	}
	return out, true
}

func (l *lowerer) switchStmt(s *ast.SwitchStmt, label string) {
	if s.Init != nil {
		l.stmt(s.Init)
	}
	var tag *ir.Var
	if s.Tag != nil {
		if tv := l.info.Types[ast.Unparen(s.Tag)]; tv.Value != nil {
			tag = l.temp(&ir.OtherExp{Desc: "const " + tv.Value.ExactString()}, typeutil.Primitive(tv.Type))
		} else {
			tag = l.value(s.Tag)
		}
	}

	clauses := s.Body.List
	bodies := make([]string, len(clauses))
	for i := range clauses {
		bodies[i] = l.label("switch.body")
	}
	done := l.label("switch.done")
	dflt := done
	for i, c := range clauses {
		if c.(*ast.CaseClause).List == nil {
			dflt = bodies[i]
		}
	}

	if values, ok := l.caseValues(tag, clauses); tag != nil && ok {
		sw := &ir.Switch{Var: tag, Default: dflt}
		for i, vs := range values {
			for _, v := range vs {
				sw.Cases = append(sw.Cases, ir.SwitchCase{Value: v, Target: bodies[i]})
			}
		}
		l.emit(sw)
	} else {
		for i, c := range clauses {
			for _, e := range c.(*ast.CaseClause).List {
				next := l.label("switch.next")
				if tag == nil {
					l.branch(e, bodies[i], next)
				} else {
					y := l.value(e)
					cond := l.binaryExp(token.EQL, tag, y, l.info.TypeOf(s.Tag), l.info.TypeOf(e))
					if _, ok := cond.(*ir.BinaryExp); !ok {
						cond = l.operand(cond)
					}
					l.emit(&ir.If{Cond: cond, Target: bodies[i]})
				}
				l.fn.Label(next)
			}
		}
		l.emit(&ir.Goto{Target: dflt})
	}
	l.clauses(clauses, bodies, done, label, nil)
}

// clauses lowers the bodies of the clauses of a switch or select
// statement. assign, if not nil, is called at the start of each body.
func (l *lowerer) clauses(clauses []ast.Stmt, bodies []string, done, label string, assign func(i int, c ast.Stmt)) {
	for i, c := range clauses {
		saved := l.origin
		l.origin = c
		l.fn.Label(bodies[i])
		if assign != nil {
			assign(i, c)
		}
		t := &targets{label: label, brk: done}
		if i+1 < len(bodies) {
			t.fall = bodies[i+1]
		}
		pop := l.push(t)
		switch c := c.(type) {
		case *ast.CaseClause:
			l.stmts(c.Body)
		case *ast.CommClause:
			l.stmts(c.Body)
		}
		pop()
		l.emit(&ir.Goto{Target: done})
		l.origin = saved
	}
	l.fn.Label(done)
}

// dispatch emits a switch on an opaque selector choosing one of the
// clauses.
func (l *lowerer) dispatch(desc string, args []*ir.Var, clauses []ast.Stmt, bodies []string, dflt string) {
	sel := l.temp(&ir.OtherExp{Desc: desc, Args: args}, ir.Int)
	sw := &ir.Switch{Var: sel, Default: dflt}
	for i, c := range clauses {
		if isDefault(c) {
			continue
		}
		sw.Cases = append(sw.Cases, ir.SwitchCase{Value: int32(i), Target: bodies[i]})
	}
	l.emit(sw)
}

func isDefault(c ast.Stmt) bool {
	switch c := c.(type) {
	case *ast.CaseClause:
		return c.List == nil
	case *ast.CommClause:
		return c.Comm == nil
	default:
		return false
	}
}

func (l *lowerer) typeSwitchStmt(s *ast.TypeSwitchStmt, label string) {
	if s.Init != nil {
		l.stmt(s.Init)
	}
	var x ast.Expr
	switch a := s.Assign.(type) {
	case *ast.AssignStmt:
		x = a.Rhs[0].(*ast.TypeAssertExpr).X
	case *ast.ExprStmt:
		x = a.X.(*ast.TypeAssertExpr).X
	}
	v := l.value(x)

	clauses := s.Body.List
	bodies := make([]string, len(clauses))
	for i := range clauses {
		bodies[i] = l.label("typeswitch.body")
	}
	done := l.label("typeswitch.done")
	dflt := done
	for i, c := range clauses {
		if isDefault(c) {
			dflt = bodies[i]
		}
	}
	l.dispatch("type switch", []*ir.Var{v}, clauses, bodies, dflt)
	l.clauses(clauses, bodies, done, label, func(i int, c ast.Stmt) {
		obj, ok := l.info.Implicits[c].(*types.Var)
		if !ok {
			return
		}
		if iv, ok := l.lookup(obj); ok {
			l.assign(iv, &ir.OtherExp{Desc: "type assertion", Args: []*ir.Var{v}})
		}
	})
}

func (l *lowerer) selectStmt(s *ast.SelectStmt, label string) {
	clauses := s.Body.List
	if len(clauses) == 0 {
		// blocks forever
		l.opaque("select")
		l.out.Unwinds[l.emit(&ir.Return{})] = true
		return
	}
	bodies := make([]string, len(clauses))
	for i := range clauses {
		bodies[i] = l.label("select.body")
	}
	done := l.label("select.done")
	// Without a default clause, one of the cases is always chosen.
	dflt := bodies[0]
	for i, c := range clauses {
		if isDefault(c) {
			dflt = bodies[i]
		}
	}
	l.dispatch("select", nil, clauses, bodies, dflt)
	l.clauses(clauses, bodies, done, label, func(i int, c ast.Stmt) {
		if comm := c.(*ast.CommClause).Comm; comm != nil {
			l.stmt(comm)
		}
	})
}

func (l *lowerer) branchStmt(s *ast.BranchStmt) {
	var target string
	for i := len(l.targets) - 1; i >= 0 && target == ""; i-- {
		t := l.targets[i]
		if s.Label != nil && t.label != s.Label.Name {
			continue
		}
		switch s.Tok {
		case token.BREAK:
			target = t.brk
		case token.CONTINUE:
			target = t.cont
		case token.FALLTHROUGH:
			target = t.fall
		}
	}
	if s.Tok == token.GOTO {
		target = "L." + s.Label.Name
	}
	if target == "" {
		panic(fmt.Sprintf("no target for %s", s.Tok))
	}
	l.emit(&ir.Goto{Target: target})
}
