package ir

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
)

type itemType int

const (
	itemEOF itemType = iota
	itemIdent
	itemInt
	itemPunct
)

type item struct {
	typ itemType
	val string
	pos scanner.Position
}

func (it item) String() string {
	switch it.typ {
	case itemEOF:
		return "EOF"
	default:
		return strconv.Quote(it.val)
	}
}

func lex(filename string, r io.Reader) ([]item, error) {
	var s scanner.Scanner
	s.Init(r)
	s.Filename = filename
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	var errs []string
	s.Error = func(s *scanner.Scanner, msg string) {
		errs = append(errs, fmt.Sprintf("%s: %s", s.Position, msg))
	}

	var items []item
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		pos := s.Position
		switch tok {
		case scanner.Ident:
			items = append(items, item{itemIdent, s.TokenText(), pos})
		case scanner.Int:
			items = append(items, item{itemInt, s.TokenText(), pos})
		default:
			val := string(tok)
			switch tok {
			case '=', '!', '<', '>':
				if s.Peek() == '=' {
					s.Next()
					val += "="
					break
				}
				if (tok == '<' || tok == '>') && s.Peek() == tok {
					s.Next()
					val += string(tok)
					if tok == '>' && s.Peek() == '>' {
						s.Next()
						val += ">"
					}
				}
			}
			items = append(items, item{itemPunct, val, pos})
		}
	}
	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "\n"))
	}
	items = append(items, item{typ: itemEOF, pos: s.Pos()})
	return items, nil
}

// Parser parses the textual form of the IR.
type Parser struct {
	items []item
	cur   int

	fn *Function
}

// Parse parses all procedures in r. The filename is only used in error
// messages.
func Parse(filename string, r io.Reader) ([]*Function, error) {
	p := &Parser{}
	return p.Parse(filename, r)
}

// MustParse is like Parse but panics on error. It is intended for
// tests.
func MustParse(src string) []*Function {
	fns, err := Parse("<input>", strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return fns
}

func (p *Parser) Parse(filename string, r io.Reader) ([]*Function, error) {
	items, err := lex(filename, r)
	if err != nil {
		return nil, err
	}
	p.items = items
	p.cur = 0

	var out []*Function
	for p.peek().typ != itemEOF {
		fn, err := p.proc()
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

// next returns the current item and advances. Past the end, every
// item is the final EOF item; rewind undoes exactly one call to next.
func (p *Parser) next() item {
	it := p.peek()
	p.cur++
	return it
}

func (p *Parser) rewind() {
	p.cur--
}

func (p *Parser) peek() item {
	return p.items[min(p.cur, len(p.items)-1)]
}

func (p *Parser) peekN(n int) item {
	if p.cur+n >= len(p.items) {
		return p.items[len(p.items)-1]
	}
	return p.items[p.cur+n]
}

func (p *Parser) accept(val string) (item, bool) {
	it := p.next()
	if it.typ != itemEOF && it.val == val {
		return it, true
	}
	p.rewind()
	return it, false
}

func (p *Parser) expect(val string) (item, error) {
	if it, ok := p.accept(val); ok {
		return it, nil
	}
	return item{}, p.unexpectedToken(strconv.Quote(val))
}

func (p *Parser) unexpectedToken(valid string) error {
	it := p.peek()
	return fmt.Errorf("%s: unexpected token %s, expected %s", it.pos, it, valid)
}

func (p *Parser) errorf(it item, format string, args ...any) error {
	return fmt.Errorf("%s: %s", it.pos, fmt.Sprintf(format, args...))
}

var keywords = map[string]bool{
	"proc": true, "if": true, "goto": true, "switch": true, "case": true,
	"default": true, "return": true, "nop": true, "call": true, "new": true,
}

func isKeyword(s string) bool {
	if keywords[s] {
		return true
	}
	_, ok := LookupType(s)
	return ok
}

func (p *Parser) ident() (item, error) {
	it := p.next()
	if it.typ != itemIdent || isKeyword(it.val) {
		p.rewind()
		return item{}, p.unexpectedToken("identifier")
	}
	return it, nil
}

func (p *Parser) typ() (Type, error) {
	it := p.next()
	if it.typ == itemIdent {
		if t, ok := LookupType(it.val); ok {
			return t, nil
		}
	}
	p.rewind()
	return 0, p.unexpectedToken("type")
}

func (p *Parser) variable() (*Var, error) {
	it, err := p.ident()
	if err != nil {
		return nil, err
	}
	v := p.fn.Var(it.val)
	if v == nil {
		return nil, p.errorf(it, "undeclared variable %s", it.val)
	}
	return v, nil
}

func (p *Parser) intLit() (int32, error) {
	neg := false
	if _, ok := p.accept("-"); ok {
		neg = true
	}
	it := p.next()
	if it.typ != itemInt {
		p.rewind()
		return 0, p.unexpectedToken("integer")
	}
	s := it.val
	if neg {
		s = "-" + s
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, p.errorf(it, "invalid integer %s: %s", s, err)
	}
	return int32(n), nil
}

func (p *Parser) proc() (*Function, error) {
	if _, err := p.expect("proc"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.fn = NewFunction(name.val)
	p.fn.Pos = name.pos.String()
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	if _, ok := p.accept(")"); !ok {
		for {
			t, err := p.typ()
			if err != nil {
				return nil, err
			}
			pname, err := p.ident()
			if err != nil {
				return nil, err
			}
			if p.fn.Var(pname.val) != nil {
				return nil, p.errorf(pname, "duplicate parameter %s", pname.val)
			}
			p.fn.NewParam(pname.val, t)
			if _, ok := p.accept(","); ok {
				continue
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("}"); ok {
			break
		}
		if p.peek().typ == itemEOF {
			return nil, p.unexpectedToken(`"}"`)
		}
		if err := p.bodyElement(); err != nil {
			return nil, err
		}
	}
	if err := p.fn.Finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", name.pos, err)
	}
	return p.fn, nil
}

func (p *Parser) bodyElement() error {
	it := p.peek()
	if it.typ != itemIdent {
		return p.unexpectedToken("declaration, label or statement")
	}
	if t, ok := LookupType(it.val); ok {
		p.next()
		for {
			name, err := p.ident()
			if err != nil {
				return err
			}
			if p.fn.Var(name.val) != nil {
				return p.errorf(name, "duplicate variable %s", name.val)
			}
			p.fn.NewVar(name.val, t)
			if _, ok := p.accept(","); !ok {
				break
			}
		}
		_, err := p.expect(";")
		return err
	}
	if !isKeyword(it.val) && p.peekN(1).val == ":" {
		p.next()
		p.next()
		if _, ok := p.fn.Labels[it.val]; ok {
			return p.errorf(it, "duplicate label %s", it.val)
		}
		for _, l := range p.fn.pendingLabels {
			if l == it.val {
				return p.errorf(it, "duplicate label %s", it.val)
			}
		}
		p.fn.Label(it.val)
		return nil
	}

	s, err := p.stmt()
	if err != nil {
		return err
	}
	s.SetLine(it.pos.Line)
	p.fn.Emit(s)
	return nil
}

func (p *Parser) stmt() (Stmt, error) {
	it := p.next()
	switch it.val {
	case "if":
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("goto"); err != nil {
			return nil, err
		}
		target, err := p.ident()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return &If{Cond: cond, Target: target.val}, err
	case "goto":
		target, err := p.ident()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return &Goto{Target: target.val}, err
	case "switch":
		return p.switchStmt()
	case "return":
		s := &Return{}
		if _, ok := p.accept(";"); ok {
			return s, nil
		}
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		s.Value = v
		_, err = p.expect(";")
		return s, err
	case "nop":
		s := &Nop{}
		if p.peek().typ == itemIdent {
			s.Label = p.next().val
		}
		_, err := p.expect(";")
		return s, err
	case "call":
		call, err := p.call()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return &Invoke{Call: call}, err
	}

	p.rewind()
	lhs, err := p.variable()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("="); err != nil {
		return nil, err
	}
	if _, ok := p.accept("call"); ok {
		call, err := p.call()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(";")
		return &Invoke{Result: lhs, Call: call}, err
	}
	rhs, err := p.rvalue()
	if err != nil {
		return nil, err
	}
	_, err = p.expect(";")
	return &Assign{LHS: lhs, RHS: rhs}, err
}

func (p *Parser) call() (*InvokeExp, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	call := &InvokeExp{Func: name.val}
	for {
		if _, ok := p.accept("."); !ok {
			break
		}
		sel, err := p.ident()
		if err != nil {
			return nil, err
		}
		call.Func += "." + sel.val
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	if _, ok := p.accept(")"); ok {
		return call, nil
	}
	for {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, v)
		if _, ok := p.accept(","); ok {
			continue
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func (p *Parser) condition() (Exp, error) {
	x, err := p.variable()
	if err != nil {
		return nil, err
	}
	it := p.peek()
	if it.typ != itemPunct {
		return x, nil
	}
	op, ok := LookupOp(it.val)
	if !ok || op.Category() != Relational {
		return x, nil
	}
	p.next()
	y, err := p.variable()
	if err != nil {
		return nil, err
	}
	return &BinaryExp{Op: op, X: x, Y: y, Type: operationType(x, y)}, nil
}

// operationType returns the type a binary operation on x and y is
// performed in. Integer-like operands are promoted to int.
func operationType(x, y *Var) Type {
	if x.CanHoldInt() && y.CanHoldInt() {
		return Int
	}
	if !x.CanHoldInt() {
		return x.Type
	}
	return y.Type
}

func (p *Parser) rvalue() (Exp, error) {
	it := p.peek()
	switch {
	case it.typ == itemInt || it.val == "-":
		n, err := p.intLit()
		if err != nil {
			return nil, err
		}
		return &IntLiteral{Value: n}, nil
	case it.val == "new":
		p.next()
		name := p.next()
		if name.typ != itemIdent {
			p.rewind()
			return nil, p.unexpectedToken("type name")
		}
		typeName := name.val
		if _, ok := p.accept("["); ok {
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			typeName += "[]"
		}
		return &NewExp{TypeName: typeName}, nil
	case it.val == "(":
		p.next()
		t, err := p.typ()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		x, err := p.variable()
		if err != nil {
			return nil, err
		}
		return &CastExp{X: x, Type: t}, nil
	}

	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	base := p.fn.Var(name.val)
	if _, ok := p.accept("."); ok {
		field, err := p.ident()
		if err != nil {
			return nil, err
		}
		if base == nil {
			return &FieldAccess{Class: name.val, Field: field.val}, nil
		}
		return &FieldAccess{Base: base, Field: field.val}, nil
	}
	if base == nil {
		return nil, p.errorf(name, "undeclared variable %s", name.val)
	}
	if _, ok := p.accept("["); ok {
		idx, err := p.variable()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		return &ArrayAccess{Base: base, Index: idx}, nil
	}

	opItem := p.peek()
	if opItem.typ != itemPunct {
		return base, nil
	}
	op, ok := LookupOp(opItem.val)
	if !ok {
		return base, nil
	}
	p.next()
	y, err := p.variable()
	if err != nil {
		return nil, err
	}
	return &BinaryExp{Op: op, X: base, Y: y, Type: operationType(base, y)}, nil
}

func (p *Parser) switchStmt() (Stmt, error) {
	v, err := p.variable()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	s := &Switch{Var: v}
	for {
		if _, ok := p.accept("case"); !ok {
			break
		}
		n, err := p.intLit()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		target, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(";"); err != nil {
			return nil, err
		}
		s.Cases = append(s.Cases, SwitchCase{Value: n, Target: target.val})
	}
	if _, err := p.expect("default"); err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	target, err := p.ident()
	if err != nil {
		return nil, err
	}
	s.Default = target.val
	p.accept(";")
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	p.accept(";")
	return s, nil
}
