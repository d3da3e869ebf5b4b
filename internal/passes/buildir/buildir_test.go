package buildir

import (
	"bytes"
	"strings"
	"testing"

	"honnef.co/go/dataflow/analysis/lint/testutil"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAll(t *testing.T) {
	res, ok := testutil.Run(t, Analyzer)["example.com/NoReturnB"]
	if !ok {
		t.Fatal("no result for example.com/NoReturnB")
	}
	result := res.Result.(*IR)
	var names []string
	for _, fn := range result.SrcFuncs {
		names = append(names, fn.IR.Name)
		if fn.Decl == nil && fn.IR.Name != "func@24" {
			t.Errorf("%s has no enclosing declaration", fn.IR.Name)
		}
	}
	want := "Exit Check Loop func@24"
	if got := strings.Join(names, " "); got != want {
		t.Errorf("got functions %q, want %q", got, want)
	}
	if len(result.NoReturn) != 4 {
		t.Errorf("got %d functions that don't return, want 4", len(result.NoReturn))
	}
}

func TestDebug(t *testing.T) {
	var buf bytes.Buffer
	Debug.Print, Debug.Dot, Debug.Output = true, true, &buf
	defer func() {
		Debug.Print, Debug.Dot, Debug.Output = false, false, nil
	}()
	analysistest.Run(t, analysistest.TestData(), Analyzer, "example.com/NoReturnA")

	out := buf.String()
	for _, want := range []string{
		"proc Fatal(ref msg) {",
		"\tcall panic(msg); // 0\n",
		"digraph {\n\tlabel = \"Spin\";",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}
