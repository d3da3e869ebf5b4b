package ir

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

func (v *Var) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Name
}

func (e *IntLiteral) String() string { return fmt.Sprint(e.Value) }

func (e *BinaryExp) String() string {
	return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y)
}

func (e *ArrayAccess) String() string {
	return fmt.Sprintf("%s[%s]", e.Base, e.Index)
}

func (e *FieldAccess) String() string {
	if e.Base == nil {
		return e.Class + "." + e.Field
	}
	return e.Base.Name + "." + e.Field
}

func (e *CastExp) String() string {
	return fmt.Sprintf("(%s) %s", e.Type, e.X)
}

func (e *NewExp) String() string {
	return "new " + e.TypeName
}

func relVars(vs []*Var) string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return strings.Join(names, ", ")
}

func (e *InvokeExp) String() string {
	return fmt.Sprintf("call %s(%s)", e.Func, relVars(e.Args))
}

func (e *OtherExp) String() string {
	if len(e.Args) == 0 {
		return "<" + e.Desc + ">"
	}
	return fmt.Sprintf("<%s %s>", e.Desc, relVars(e.Args))
}

func (s *Assign) String() string {
	return fmt.Sprintf("%s = %s", s.LHS, s.RHS)
}

func (s *Invoke) String() string {
	if s.Result != nil {
		return fmt.Sprintf("%s = %s", s.Result, s.Call)
	}
	return s.Call.String()
}

func (s *If) String() string {
	return fmt.Sprintf("if %s goto %s", s.Cond, s.Target)
}

func (s *Switch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "switch %s {", s.Var)
	for _, c := range s.Cases {
		fmt.Fprintf(&b, " case %d: %s;", c.Value, c.Target)
	}
	fmt.Fprintf(&b, " default: %s; }", s.Default)
	return b.String()
}

func (s *Goto) String() string { return "goto " + s.Target }

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.Name
}

func (s *Nop) String() string {
	if s.Label != "" {
		return "nop " + s.Label
	}
	return "nop"
}

// WriteFunction writes a textual representation of fn to w, in the
// syntax accepted by Parse. Expressions of type *OtherExp have no
// textual form that Parse understands.
func WriteFunction(w io.Writer, fn *Function) {
	labels := map[Stmt][]string{}
	for name, s := range fn.Labels {
		labels[s] = append(labels[s], name)
	}

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	fmt.Fprintf(w, "proc %s(%s) {\n", fn.Name, strings.Join(params, ", "))
	for _, v := range fn.Vars[len(fn.Params):] {
		fmt.Fprintf(w, "\t%s %s;\n", v.Type, v.Name)
	}
	for _, s := range fn.Stmts {
		ls := labels[s]
		sort.Strings(ls)
		for _, l := range ls {
			fmt.Fprintf(w, "%s:\n", l)
		}
		fmt.Fprintf(w, "\t%s; // %d\n", s, s.Index())
	}
	fmt.Fprintln(w, "}")
}

func (fn *Function) String() string {
	var buf bytes.Buffer
	WriteFunction(&buf, fn)
	return buf.String()
}
