package typeutil

import (
	"go/types"
	"testing"

	"honnef.co/go/dataflow/ir"
)

func union(terms ...*types.Term) *types.TypeParam {
	pkg := types.NewPackage("pkg", "pkg")
	iface := types.NewInterfaceType(nil, []types.Type{types.NewUnion(terms)})
	return types.NewTypeParam(types.NewTypeName(0, pkg, "T", nil), iface)
}

func TestUnderlying(t *testing.T) {
	pkg := types.NewPackage("pkg", "pkg")
	i32 := types.Typ[types.Int32]
	a := types.NewNamed(types.NewTypeName(0, pkg, "A", nil), i32, nil)
	b := types.NewNamed(types.NewTypeName(0, pkg, "B", nil), i32, nil)
	free := types.NewTypeParam(types.NewTypeName(0, pkg, "U", nil), types.NewInterfaceType(nil, nil))

	tests := []struct {
		name string
		typ  types.Type
		want types.Type
	}{
		{"named", a, i32},
		{"same underlying", union(types.NewTerm(false, a), types.NewTerm(false, b)), i32},
		{"tilde", union(types.NewTerm(true, i32)), i32},
		{"different underlying", union(types.NewTerm(false, i32), types.NewTerm(false, types.Typ[types.Int8])), nil},
		{"unrestricted", free, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Underlying(tt.typ)
			if (got == nil) != (tt.want == nil) || (got != nil && !types.Identical(got, tt.want)) {
				t.Errorf("Underlying(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestPrimitive(t *testing.T) {
	pkg := types.NewPackage("pkg", "pkg")
	named := types.NewNamed(types.NewTypeName(0, pkg, "Small", nil), types.Typ[types.Int16], nil)
	tests := []struct {
		typ  types.Type
		want ir.Type
	}{
		{types.Typ[types.Bool], ir.Boolean},
		{types.Typ[types.Int8], ir.Byte},
		{types.Typ[types.Int16], ir.Short},
		{types.Typ[types.Int32], ir.Int},
		{types.Universe.Lookup("rune").Type(), ir.Int},
		{types.Typ[types.Uint16], ir.Char},
		{types.Typ[types.Int], ir.Long},
		{types.Universe.Lookup("byte").Type(), ir.Long},
		{types.Typ[types.Float64], ir.Double},
		{types.Typ[types.String], ir.Ref},
		{types.NewPointer(types.Typ[types.Int32]), ir.Ref},
		{named, ir.Short},
		{union(types.NewTerm(true, types.Typ[types.Int32])), ir.Int},
		{union(types.NewTerm(false, types.Typ[types.Int32]), types.NewTerm(false, types.Typ[types.Int8])), ir.Ref},
		{nil, ir.Void},
	}
	for _, tt := range tests {
		if got := Primitive(tt.typ); got != tt.want {
			t.Errorf("Primitive(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}
