package ir

import (
	"strings"
	"testing"
)

const sample = `
// A procedure that exercises every construct.
proc sample(int a, byte b, ref o) {
	int x, y;
	char c;
	long l;
	ref arr;
	x = 1;
	y = -2147483648;
	x = a + y;
	x = a >>> y;
	c = (char) x;
	l = o.f;
	l = System.out;
	arr = new int[];
	x = arr[y];
	o = new Object;
	x = call Math.abs(a);
	call o.use(x, y);
	if x <= y goto L1;
	if b goto L2;
	switch x { case 1: L1; case -3: L2; default: L3; }
L1:
	goto L3;
L2:
L4:
	nop hint;
L3:
	return x;
}

proc empty() {
}
`

func TestParse(t *testing.T) {
	fns, err := Parse("sample.tir", strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 2 {
		t.Fatalf("got %d procedures, want 2", len(fns))
	}
	fn := fns[0]
	if fn.Name != "sample" || len(fn.Params) != 3 || len(fn.Vars) != 8 {
		t.Errorf("unexpected signature: %s %v %v", fn.Name, fn.Params, fn.Vars)
	}
	if fn.Labels["L2"] != fn.Labels["L4"] {
		t.Error("adjacent labels should refer to the same statement")
	}

	want := []string{
		"x = 1",
		"y = -2147483648",
		"x = a + y",
		"x = a >>> y",
		"c = (char) x",
		"l = o.f",
		"l = System.out",
		"arr = new int[]",
		"x = arr[y]",
		"o = new Object",
		"x = call Math.abs(a)",
		"call o.use(x, y)",
		"if x <= y goto L1",
		"if b goto L2",
		"switch x { case 1: L1; case -3: L2; default: L3; }",
		"goto L3",
		"nop hint",
		"return x",
	}
	if len(fn.Stmts) != len(want) {
		t.Fatalf("got %d statements, want %d:\n%s", len(fn.Stmts), len(want), fn)
	}
	for i, s := range fn.Stmts {
		if s.String() != want[i] {
			t.Errorf("statement %d: got %q, want %q", i, s, want[i])
		}
		if s.Index() != i {
			t.Errorf("statement %d has index %d", i, s.Index())
		}
	}

	bin := fn.Stmts[2].(*Assign).RHS.(*BinaryExp)
	if bin.Op != ADD || bin.Type != Int {
		t.Errorf("got %v in %s, want + in int", bin.Op, bin.Type)
	}
	if cond := fn.Stmts[13].(*If).Cond; cond != fn.Var("b") {
		t.Errorf("condition %s should be the variable b", cond)
	}
	if s := fn.Stmts[12].(*If); s.TargetStmt != fn.Stmts[15] {
		t.Errorf("if jumps to %s", s.TargetStmt)
	}
	if line := fn.Stmts[0].Line(); line != 8 {
		t.Errorf("first statement on line %d, want 8", line)
	}
	if fns[1].Name != "empty" || len(fns[1].Stmts) != 0 {
		t.Errorf("unexpected %s", fns[1])
	}
}

func TestUses(t *testing.T) {
	fn := MustParse(`
proc f(int a, int b, ref o) {
	int x;
	x = a * b;
	x = o.f;
	call g(a, b);
	return;
}`)[0]
	tests := []struct {
		stmt int
		want string
	}{
		{0, "a b a * b"},
		{1, "o o.f"},
		{2, "a b call g(a, b)"},
		{3, ""},
	}
	for _, tt := range tests {
		var got []string
		for _, u := range fn.Stmts[tt.stmt].Uses() {
			got = append(got, u.String())
		}
		if strings.Join(got, " ") != tt.want {
			t.Errorf("Uses(%s) = %v, want %s", fn.Stmts[tt.stmt], got, tt.want)
		}
	}
	if fn.Stmts[0].Def() != fn.Var("x") || fn.Stmts[2].Def() != nil {
		t.Error("wrong definitions")
	}
}

func TestRoundTrip(t *testing.T) {
	fns := MustParse(sample)
	for _, fn := range fns {
		printed := fn.String()
		again, err := Parse("printed", strings.NewReader(printed))
		if err != nil {
			t.Fatalf("can't parse printed form: %s\n%s", err, printed)
		}
		if got := again[0].String(); got != printed {
			t.Errorf("round trip changed the function:\n%s\nvs\n%s", printed, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{`proc f() { x = 1; }`, "undeclared variable x"},
		{`proc f(int a) { int a; }`, "duplicate variable a"},
		{`proc f(int a, byte a) {}`, "duplicate parameter a"},
		{`proc f() { L: nop; L: nop; }`, "duplicate label L"},
		{`proc f() { L: M: L: nop; }`, "duplicate label L"},
		{`proc f() { goto M; }`, `undefined label "M"`},
		{`proc f( {}`, "expected type"},
		{`proc f() { int x; x = 1;`, `expected "}"`},
		{`proc f() { int x; x = 3000000000; }`, "invalid integer"},
		{`proc f() { int x; if x goto; }`, "expected identifier"},
		{`proc f() { int x; switch x { case 1: L; } L: nop; }`, `expected "default"`},
		{`func f() {}`, `expected "proc"`},
		{`proc f() { int int; }`, "expected identifier"},
	}
	for _, tt := range tests {
		_, err := Parse("bad.tir", strings.NewReader(tt.src))
		if err == nil {
			t.Errorf("%s: expected an error", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%s: error %q doesn't mention %q", tt.src, err, tt.msg)
		}
		if !strings.HasPrefix(err.Error(), "bad.tir:") {
			t.Errorf("%s: error %q lacks a position", tt.src, err)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add(sample)
	f.Add(`proc f(int x) { switch x { case 1: A; default: B; } A: return x; B: }`)
	f.Fuzz(func(t *testing.T, src string) {
		fns, err := Parse("fuzz", strings.NewReader(src))
		if err != nil {
			return
		}
		for _, fn := range fns {
			printed := fn.String()
			again, err := Parse("printed", strings.NewReader(printed))
			if err != nil {
				t.Fatalf("can't parse printed form: %s\n%s", err, printed)
			}
			if got := again[0].String(); got != printed {
				t.Fatalf("round trip changed the function:\n%s\nvs\n%s", printed, got)
			}
		}
	})
}
