// Package ir defines a small three-address intermediate representation
// for single procedures. Expressions and statements form closed sets of
// types; code that consumes them is expected to switch over all of them.
package ir

import (
	"fmt"
)

// Type is the primitive type of a variable or operation.
type Type uint8

const (
	Void Type = iota
	Byte
	Short
	Int
	Long
	Float
	Double
	Char
	Boolean
	// Ref stands in for every non-primitive type: objects, arrays,
	// strings, pointers, structs.
	Ref
)

var typeNames = [...]string{
	Void:    "void",
	Byte:    "byte",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Char:    "char",
	Boolean: "boolean",
	Ref:     "ref",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// LookupType returns the type named name.
func LookupType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return 0, false
}

// CanHoldInt reports whether values of type t are tracked as
// integers: byte, short, int, char and boolean.
func (t Type) CanHoldInt() bool {
	switch t {
	case Byte, Short, Int, Char, Boolean:
		return true
	default:
		return false
	}
}

// Var is a local variable or parameter. Variables are compared by
// identity.
type Var struct {
	Name string
	Type Type
	// Index is the variable's position in Function.Vars.
	Index int
}

// CanHoldInt reports whether v's type can hold an integer.
func (v *Var) CanHoldInt() bool { return v != nil && v.Type.CanHoldInt() }

// Exp is an expression. The set of expressions is closed; it consists of
// *Var, *IntLiteral, *BinaryExp, *ArrayAccess, *FieldAccess, *CastExp,
// *NewExp, *InvokeExp and *OtherExp.
type Exp interface {
	fmt.Stringer
	isExp()
}

type IntLiteral struct {
	Value int32
}

// Op is a binary operator.
type Op uint8

const (
	ADD Op = iota
	SUB
	MUL
	DIV
	REM

	OR
	AND
	XOR

	EQ
	NE
	LT
	GT
	LE
	GE

	SHL
	SHR
	USHR
)

// OpCategory groups operators the way they are folded.
type OpCategory uint8

const (
	Arithmetic OpCategory = iota
	Bitwise
	Relational
	Shift
)

var opSymbols = [...]string{
	ADD:  "+",
	SUB:  "-",
	MUL:  "*",
	DIV:  "/",
	REM:  "%",
	OR:   "|",
	AND:  "&",
	XOR:  "^",
	EQ:   "==",
	NE:   "!=",
	LT:   "<",
	GT:   ">",
	LE:   "<=",
	GE:   ">=",
	SHL:  "<<",
	SHR:  ">>",
	USHR: ">>>",
}

func (op Op) String() string {
	if int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// LookupOp returns the operator spelled sym.
func LookupOp(sym string) (Op, bool) {
	for i, s := range opSymbols {
		if s == sym {
			return Op(i), true
		}
	}
	return 0, false
}

func (op Op) Category() OpCategory {
	switch {
	case op <= REM:
		return Arithmetic
	case op <= XOR:
		return Bitwise
	case op <= GE:
		return Relational
	default:
		return Shift
	}
}

// BinaryExp applies Op to two variables. Type is the type the
// operation is carried out in and determines the width of the result.
type BinaryExp struct {
	Op   Op
	X, Y *Var
	Type Type
}

// ArrayAccess reads Base[Index].
type ArrayAccess struct {
	Base, Index *Var
}

// FieldAccess reads a field, either of Base or, if Base is nil, a
// static field of Class.
type FieldAccess struct {
	Base  *Var
	Class string
	Field string
}

// CastExp converts X to Type.
type CastExp struct {
	X    *Var
	Type Type
}

// NewExp allocates an object or array of the named type.
type NewExp struct {
	TypeName string
}

// InvokeExp calls Func with Args.
type InvokeExp struct {
	Func string
	Args []*Var
}

// OtherExp is an expression the IR does not model, such as a string
// constant, a closure or a compound Go expression. Args lists the
// variables it reads.
type OtherExp struct {
	Desc string
	Args []*Var
}

func (*Var) isExp()         {}
func (*IntLiteral) isExp()  {}
func (*BinaryExp) isExp()   {}
func (*ArrayAccess) isExp() {}
func (*FieldAccess) isExp() {}
func (*CastExp) isExp()     {}
func (*NewExp) isExp()      {}
func (*InvokeExp) isExp()   {}
func (*OtherExp) isExp()    {}

// Stmt is a statement. The set of statements is closed; it consists of
// *Assign, *Invoke, *If, *Switch, *Goto, *Return and *Nop.
type Stmt interface {
	fmt.Stringer
	// Index returns the statement's position in its function, or -1
	// for statements not part of a function body.
	Index() int
	// Def returns the variable defined by the statement, if any.
	Def() *Var
	// Uses returns every expression the statement reads, including the
	// operands nested in compound expressions.
	Uses() []Exp
	// Line returns the source line the statement was created from, or 0.
	Line() int
	// SetLine records the source line the statement was created from.
	SetLine(int)

	setIndex(int)
}

type anInstruction struct {
	index int
	line  int
}

func (s *anInstruction) Index() int       { return s.index }
func (s *anInstruction) Line() int        { return s.line }
func (s *anInstruction) SetLine(line int) { s.line = line }
func (s *anInstruction) setIndex(idx int) { s.index = idx }

// Assign is a definition statement LHS = RHS.
type Assign struct {
	anInstruction
	LHS *Var
	RHS Exp
}

// Invoke is a call statement, optionally assigning the result.
type Invoke struct {
	anInstruction
	Result *Var
	Call   *InvokeExp
}

// If transfers control to Target if Cond is nonzero and falls through
// to the next statement otherwise.
type If struct {
	anInstruction
	Cond   Exp
	Target string
	// TargetStmt is resolved when the function is finished.
	TargetStmt Stmt
}

// SwitchCase is a single case of a Switch.
type SwitchCase struct {
	Value      int32
	Target     string
	TargetStmt Stmt
}

// Switch transfers control to the case whose value equals Var, or to
// the default target.
type Switch struct {
	anInstruction
	Var           *Var
	Cases         []SwitchCase
	Default       string
	DefaultTarget Stmt
}

// CaseValues returns the declared case values in order.
func (s *Switch) CaseValues() []int32 {
	out := make([]int32, len(s.Cases))
	for i, c := range s.Cases {
		out[i] = c.Value
	}
	return out
}

// Goto unconditionally transfers control to Target.
type Goto struct {
	anInstruction
	Target     string
	TargetStmt Stmt
}

// Return leaves the function, returning Value if it isn't nil.
type Return struct {
	anInstruction
	Value *Var
}

// Nop does nothing. The synthetic entry and exit of a control-flow
// graph are Nops.
type Nop struct {
	anInstruction
	Label string
}

// NewNop returns a Nop that isn't part of any function.
func NewNop(label string) *Nop {
	return &Nop{anInstruction: anInstruction{index: -1}, Label: label}
}

func (s *Assign) Def() *Var { return s.LHS }
func (s *Invoke) Def() *Var { return s.Result }
func (*If) Def() *Var       { return nil }
func (*Switch) Def() *Var   { return nil }
func (*Goto) Def() *Var     { return nil }
func (*Return) Def() *Var   { return nil }
func (*Nop) Def() *Var      { return nil }

func (s *Assign) Uses() []Exp {
	return expUses(s.RHS)
}

func (s *Invoke) Uses() []Exp {
	return expUses(s.Call)
}

func (s *If) Uses() []Exp {
	return expUses(s.Cond)
}

func (s *Switch) Uses() []Exp {
	return []Exp{s.Var}
}

func (*Goto) Uses() []Exp { return nil }

func (s *Return) Uses() []Exp {
	if s.Value == nil {
		return nil
	}
	return []Exp{s.Value}
}

func (*Nop) Uses() []Exp { return nil }

func expUses(e Exp) []Exp {
	var out []Exp
	add := func(vs ...*Var) {
		for _, v := range vs {
			if v != nil {
				out = append(out, v)
			}
		}
	}
	switch e := e.(type) {
	case *Var:
		add(e)
		return out
	case *IntLiteral, *NewExp:
	case *BinaryExp:
		add(e.X, e.Y)
	case *ArrayAccess:
		add(e.Base, e.Index)
	case *FieldAccess:
		add(e.Base)
	case *CastExp:
		add(e.X)
	case *InvokeExp:
		add(e.Args...)
	case *OtherExp:
		add(e.Args...)
	case nil:
		return nil
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
	return append(out, e)
}

// Function is a procedure: its parameters, locals and statements.
type Function struct {
	Name   string
	Params []*Var
	// Vars holds all variables of the function, parameters first.
	Vars  []*Var
	Stmts []Stmt
	// Labels maps label names to the statement they precede.
	Labels map[string]Stmt
	// Pos is an optional description of where the function came from,
	// such as a file name and line.
	Pos string

	pendingLabels []string
}

// NewFunction returns an empty function.
func NewFunction(name string) *Function {
	return &Function{Name: name, Labels: map[string]Stmt{}}
}

// NewVar declares a new local variable.
func (fn *Function) NewVar(name string, typ Type) *Var {
	v := &Var{Name: name, Type: typ, Index: len(fn.Vars)}
	fn.Vars = append(fn.Vars, v)
	return v
}

// NewParam declares a new parameter.
func (fn *Function) NewParam(name string, typ Type) *Var {
	v := fn.NewVar(name, typ)
	fn.Params = append(fn.Params, v)
	return v
}

// Var returns the variable named name, or nil.
func (fn *Function) Var(name string) *Var {
	for _, v := range fn.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Label attaches a label to the next statement that will be emitted.
func (fn *Function) Label(name string) {
	fn.pendingLabels = append(fn.pendingLabels, name)
}

// Emit appends s to the function body and returns it.
func (fn *Function) Emit(s Stmt) Stmt {
	s.setIndex(len(fn.Stmts))
	fn.Stmts = append(fn.Stmts, s)
	for _, l := range fn.pendingLabels {
		fn.Labels[l] = s
	}
	fn.pendingLabels = fn.pendingLabels[:0]
	return s
}

// Finish resolves jump targets. Labels that are pending at the end of
// the body refer to a final Nop that is emitted for them.
func (fn *Function) Finish() error {
	if len(fn.pendingLabels) > 0 {
		fn.Emit(&Nop{})
	}
	resolve := func(s Stmt, label string) (Stmt, error) {
		t, ok := fn.Labels[label]
		if !ok {
			return nil, fmt.Errorf("%s: statement %d (%s) jumps to undefined label %q", fn.Name, s.Index(), s, label)
		}
		return t, nil
	}
	var err error
	for _, s := range fn.Stmts {
		switch s := s.(type) {
		case *If:
			if s.TargetStmt, err = resolve(s, s.Target); err != nil {
				return err
			}
		case *Goto:
			if s.TargetStmt, err = resolve(s, s.Target); err != nil {
				return err
			}
		case *Switch:
			for i := range s.Cases {
				if s.Cases[i].TargetStmt, err = resolve(s, s.Cases[i].Target); err != nil {
					return err
				}
			}
			if s.DefaultTarget, err = resolve(s, s.Default); err != nil {
				return err
			}
		}
	}
	return nil
}
