package lower

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"
	"slices"
	"strconv"
	"testing"

	"honnef.co/go/dataflow/analysis/deadcode"
	"honnef.co/go/dataflow/debug"
	"honnef.co/go/dataflow/ir"
	"honnef.co/go/dataflow/ir/cfg"
)

func check(t *testing.T, src string) *debug.Package {
	t.Helper()
	pkg, err := debug.TypeCheck(src)
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func lowerFunc(t *testing.T, pkg *debug.Package, name string) *Func {
	t.Helper()
	decl := pkg.Func(name)
	if decl == nil {
		t.Fatalf("no function %s", name)
	}
	fn, err := Lower(pkg.Fset, pkg.Info, decl)
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func stmtStrings(fn *ir.Function) []string {
	out := make([]string, len(fn.Stmts))
	for i, s := range fn.Stmts {
		out[i] = s.String()
	}
	return out
}

const basics = `package p

func add(a int32) int32 {
	x := a + 1
	return x
}

func shadow(a int32) int32 {
	x := a
	if a > 0 {
		x := a
		a = x
	}
	return x
}

func sw(a int32) int32 {
	switch a {
	case 1:
		return 10
	case 2, 3:
		return 20
	}
	return 0
}

func wide(a int) int {
	b := a
	b++
	return b
}
`

func TestLower(t *testing.T) {
	p := check(t, basics)
	tests := []struct {
		name string
		want []string
	}{
		{"add", []string{
			"$t0 = 1",
			"x = a + $t0",
			"return x",
		}},
		{"shadow", []string{
			"x = a",
			"$t0 = 0",
			"if a > $t0 goto if.then.1",
			"goto if.done.3",
			"x_1 = a",
			"a = x_1",
			"return x",
		}},
		{"sw", []string{
			"switch a { case 1: switch.body.1; case 2: switch.body.2; case 3: switch.body.2; default: switch.done.3; }",
			"$t0 = 10",
			"return $t0",
			"goto switch.done.3",
			"$t1 = 20",
			"return $t1",
			"goto switch.done.3",
			"$t2 = 0",
			"return $t2",
		}},
		{"wide", []string{
			"b = a",
			"$t0 = <1>",
			"b = b + $t0",
			"return b",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := lowerFunc(t, p, tt.name)
			if got := stmtStrings(fn.IR); !slices.Equal(got, tt.want) {
				t.Errorf("got\n%q\nwant\n%q", got, tt.want)
			}
			if _, err := cfg.New(fn.IR); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	p := check(t, basics)
	fn := lowerFunc(t, p, "wide")
	for name, want := range map[string]ir.Type{"a": ir.Long, "b": ir.Long} {
		if v := fn.IR.Var(name); v == nil || v.Type != want {
			t.Errorf("%s: got %v, want type %s", name, v, want)
		}
	}
	fn = lowerFunc(t, p, "add")
	if len(fn.IR.Params) != 1 || fn.IR.Params[0].Type != ir.Int {
		t.Errorf("got params %v", fn.IR.Params)
	}
	for v, obj := range fn.Vars {
		if v.Name != obj.Name() {
			t.Errorf("%s maps to %s", v, obj)
		}
	}
	if len(fn.Vars) != 2 {
		t.Errorf("got %d Go variables, want 2", len(fn.Vars))
	}
}

const stores = `package p

func use(...any) {}

func f(a int32) int32 {
	x := int32(0)
	x = a
	y := a
	p := &y
	y = 2
	use(p)
	var z int32
	z = 3
	_ = z
	return x
}
`

func TestStores(t *testing.T) {
	p := check(t, stores)
	fn := lowerFunc(t, p, "f")
	var got []string
	for s, id := range fn.Stores {
		if s.(*ir.Assign).LHS.Name != id.Name {
			t.Errorf("%s is attributed to %s", s, id.Name)
		}
		got = append(got, s.String())
	}
	slices.Sort(got)
	want := []string{"p = <& y>", "x = a", "z = 3"}
	if !slices.Equal(got, want) {
		t.Errorf("got stores %q, want %q", got, want)
	}
	if v := fn.IR.Var("y"); v == nil || v.Type != ir.Ref {
		t.Errorf("y escapes but was lowered as %v", v)
	}
	for s := range fn.Origins {
		if s.Line() == 0 {
			t.Errorf("%s has an origin but no line", s)
		}
	}
}

const branches = `package p

const debug = false

func use(...any) {}

func g(a int32) int32 {
	ok := true
	if ok {
		return 1
	}
	return a
}

func h(a int32) {
	if debug {
		use(a)
	}
	for a > 0 && !debug {
		a--
	}
}

func k(a int32) int32 {
	x := a
	x = 4
	switch x {
	case 1:
		return 1
	case 4:
		return 2
	}
	return 3
}
`

type finding struct {
	idx    int
	reason deadcode.Reason
}

func TestDeadcode(t *testing.T) {
	p := check(t, branches)
	tests := []struct {
		name string
		want []finding
	}{
		// goto if.done and return a
		{"g", []finding{{2, deadcode.Unreachable}, {5, deadcode.Unreachable}}},
		{"h", nil},
		// x = a, case 1 and the code after the switch
		{"k", []finding{
			{0, deadcode.DeadStore},
			{3, deadcode.Unreachable},
			{4, deadcode.Unreachable},
			{5, deadcode.Unreachable},
			{8, deadcode.Unreachable},
			{9, deadcode.Unreachable},
			{10, deadcode.Unreachable},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := lowerFunc(t, p, tt.name)
			findings, err := deadcode.Analyze(fn.IR, deadcode.DefaultOptions)
			if err != nil {
				t.Fatal(err)
			}
			var got []finding
			for _, f := range findings {
				got = append(got, finding{f.Stmt.Index(), f.Reason})
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v\n%s", findings, tt.want, fn.IR)
			}
		})
	}
}

const constructs = `package p

type T struct{ f int32 }

func (t *T) M() {}

var global int32

func use(...any) {}

func all(a int32, s []int, m map[string]int, ch chan int, x any) (r int32) {
	var z int32
	z += a
	z++
	b, c := a, z
	b, c = c, b
	use(b, c)
	t := T{}
	t.M()
	t.f = 1
	global = z
	for i := 0; i < 10; i++ {
		if i == 5 {
			continue
		}
		if i == 7 && a > 0 || a < -1 {
			break
		}
	}
outer:
	for k, v := range m {
		for _, e := range s {
			if e == v {
				continue outer
			}
			if k == "" {
				break outer
			}
		}
	}
	switch a {
	case 1, 2:
		z = 3
		fallthrough
	case 3:
		z = 4
	default:
		z = 5
	}
	switch {
	case a > 1:
		z = 6
	}
	switch y := x.(type) {
	case int:
		use(y)
	case string, bool:
		use(y)
	default:
	}
	select {
	case v := <-ch:
		use(v)
	case ch <- 1:
	default:
	}
	v, ok := m["a"]
	use(v, ok)
	f := func() int32 { return z }
	defer f()
	go use(f)
	if a == 0 {
		goto end
	}
	z = -a
	z = ^z
	use(!ok, z, &r, s[1:], *(&c))
end:
	return z
}

func (t T) value() int32 { return t.f }

func loop() {
	for {
	}
}

func block() int {
	select {}
}

func fails() int {
	panic("no")
}
`

func TestConstructs(t *testing.T) {
	p := check(t, constructs)
	for _, decl := range p.Funcs() {
		t.Run(decl.Name.Name, func(t *testing.T) {
			fn, err := Lower(p.Fset, p.Info, decl)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := deadcode.Analyze(fn.IR, deadcode.DefaultOptions); err != nil {
				t.Fatalf("%s\n%s", err, fn.IR)
			}
		})
	}
}

func TestNames(t *testing.T) {
	p := check(t, constructs)
	if got := lowerFunc(t, p, "M").IR.Name; got != "(*T).M" {
		t.Errorf("got %q", got)
	}
	if got := lowerFunc(t, p, "value").IR.Name; got != "(T).value" {
		t.Errorf("got %q", got)
	}

	var lit *ast.FuncLit
	ast.Inspect(p.Func("all"), func(n ast.Node) bool {
		if n, ok := n.(*ast.FuncLit); ok {
			lit = n
		}
		return lit == nil
	})
	fn, err := Lower(p.Fset, p.Info, lit)
	if err != nil {
		t.Fatal(err)
	}
	line := p.Fset.Position(lit.Pos()).Line
	if want := "func@" + strconv.Itoa(line); fn.IR.Name != want {
		t.Errorf("got %q, want %q", fn.IR.Name, want)
	}
	want := []string{"$t0 = <free z>", "return $t0"}
	if got := stmtStrings(fn.IR); !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscaping(t *testing.T) {
	p := check(t, constructs)
	fn := lowerFunc(t, p, "all")
	for name, want := range map[string]bool{
		"a": false,
		"z": true, // captured
		"t": true, // pointer method
		"r": true, // named result
		"c": true, // address taken
		"b": false,
	} {
		v := fn.IR.Var(name)
		if v == nil {
			t.Fatalf("no variable %s", name)
		}
		if got := v.Type == ir.Ref; got != want {
			t.Errorf("%s: escaping = %t, want %t", name, got, want)
		}
	}
}

func TestLoopExit(t *testing.T) {
	p := check(t, constructs)
	fn := lowerFunc(t, p, "loop")
	want := []string{"goto for.loop.1", "nop"}
	if got := stmtStrings(fn.IR); !slices.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, ok := fn.Origins[fn.IR.Stmts[1]]; ok {
		t.Error("synthesized nop has an origin")
	}
}

func TestNoBody(t *testing.T) {
	decl := &ast.FuncDecl{Name: ast.NewIdent("ext"), Type: &ast.FuncType{}}
	_, err := Lower(token.NewFileSet(), &types.Info{}, decl)
	if !errors.Is(err, ErrNoBody) {
		t.Errorf("got %v, want %v", err, ErrNoBody)
	}
	if _, err := Lower(token.NewFileSet(), &types.Info{}, &ast.BlockStmt{}); err == nil {
		t.Error("lowered a block statement")
	}
}

const noreturn = `package p

func fatal() {
	panic("fatal")
}

func spin() {
	for {
	}
}

func block() {
	select {}
}

func maybe(a bool) {
	if a {
		panic("a")
	}
}

func caller(a int32) int32 {
	fatal()
	return a
}

func recovered() {
	defer func() {
		recover()
	}()
	panic("recovered")
}

func closes(ch chan int32) {
	defer close(ch)
	panic("closed")
}

func cleanup() {}

func deferred() {
	defer cleanup()
	panic("deferred")
}
`

func TestNoReturn(t *testing.T) {
	p := check(t, noreturn)
	for name, want := range map[string]bool{
		"fatal":     true,
		"spin":      true,
		"block":     true,
		"maybe":     false,
		"caller":    false,
		"recovered": false,
		"closes":    true,
		"deferred":  false,
	} {
		got, err := lowerFunc(t, p, name).NoReturn()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s: got %t, want %t", name, got, want)
		}
	}

	conf := &Config{NoReturn: func(fn *types.Func) bool { return fn.Name() == "fatal" }}
	fn, err := conf.Lower(p.Fset, p.Info, p.Func("caller"))
	if err != nil {
		t.Fatal(err)
	}
	if ok, _ := fn.NoReturn(); !ok {
		t.Errorf("caller returns:\n%s", fn.IR)
	}
	findings, err := deadcode.Analyze(fn.IR, deadcode.DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 1 || findings[0].Stmt.String() != "return a" {
		t.Errorf("got %v, want the final return to be unreachable", findings)
	}
}
