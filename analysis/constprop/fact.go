package constprop

import (
	"slices"
	"strings"

	"honnef.co/go/dataflow/ir"
)

// Fact maps variables to values. Variables that aren't in the map are
// UNDEF. A Fact belongs to exactly one program point; use Copy to
// derive a new one.
type Fact struct {
	m map[*ir.Var]Value
}

// NewFact returns an empty fact.
func NewFact() *Fact {
	return &Fact{m: map[*ir.Var]Value{}}
}

// Get returns the value of v.
func (f *Fact) Get(v *ir.Var) Value {
	return f.m[v]
}

// Update sets the value of v and reports whether it changed.
func (f *Fact) Update(v *ir.Var, val Value) bool {
	old := f.m[v]
	if val.IsUndefined() {
		delete(f.m, v)
	} else {
		f.m[v] = val
	}
	return old != val
}

// Copy returns an independent copy of f.
func (f *Fact) Copy() *Fact {
	out := &Fact{m: make(map[*ir.Var]Value, len(f.m))}
	for k, v := range f.m {
		out.m[k] = v
	}
	return out
}

// Set replaces the contents of f with those of o and reports whether f
// changed.
func (f *Fact) Set(o *Fact) bool {
	if f.Equal(o) {
		return false
	}
	clear(f.m)
	for k, v := range o.m {
		f.m[k] = v
	}
	return true
}

// Equal reports whether f and o map every variable to the same value.
func (f *Fact) Equal(o *Fact) bool {
	if len(f.m) != len(o.m) {
		return false
	}
	for k, v := range f.m {
		if ov, ok := o.m[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Len returns the number of variables that aren't UNDEF.
func (f *Fact) Len() int { return len(f.m) }

// Vars returns the variables that aren't UNDEF, ordered by their index.
func (f *Fact) Vars() []*ir.Var {
	out := make([]*ir.Var, 0, len(f.m))
	for v := range f.m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *ir.Var) int { return a.Index - b.Index })
	return out
}

func (f *Fact) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, v := range f.Vars() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.Name)
		sb.WriteString("=")
		sb.WriteString(f.m[v].String())
	}
	sb.WriteString("}")
	return sb.String()
}
