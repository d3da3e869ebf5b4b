// Package debug contains helpers for testing and debugging the Go
// front end.
package debug

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
)

// Package is a type-checked package consisting of a single file.
type Package struct {
	Fset  *token.FileSet
	File  *ast.File
	Types *types.Package
	Info  *types.Info
}

// TypeCheck parses and type-checks a single-file Go package from a string.
// The package must not have any imports.
func TypeCheck(src string) (*Package, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "foo.go", src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	pkg := types.NewPackage("foo", f.Name.Name)
	info := &types.Info{
		Types:      map[ast.Expr]types.TypeAndValue{},
		Defs:       map[*ast.Ident]types.Object{},
		Uses:       map[*ast.Ident]types.Object{},
		Implicits:  map[ast.Node]types.Object{},
		Selections: map[*ast.SelectorExpr]*types.Selection{},
		Scopes:     map[ast.Node]*types.Scope{},
		Instances:  map[*ast.Ident]types.Instance{},
	}
	tcfg := &types.Config{
		Importer: importer.Default(),
	}
	if err := types.NewChecker(tcfg, fset, pkg, info).Files([]*ast.File{f}); err != nil {
		return nil, err
	}
	return &Package{Fset: fset, File: f, Types: pkg, Info: info}, nil
}

// Funcs returns the function declarations of the package in source
// order.
func (pkg *Package) Funcs() []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range pkg.File.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Func returns the declaration of the function or method named name,
// or nil.
func (pkg *Package) Func(name string) *ast.FuncDecl {
	for _, fn := range pkg.Funcs() {
		if fn.Name.Name == name {
			return fn
		}
	}
	return nil
}
