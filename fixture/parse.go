package fixture

import (
	"go/token"
	"math/big"
	"strconv"
	"strings"

	"github.com/benbjohnson/cex/cfa"
)

// Scope resolves the identifiers of a program for the expression parser.
type Scope struct {
	Types   *TypeTable
	Machine *cfa.Machine

	globals   map[string]*cfa.Declaration
	functions map[string]*function
}

type function struct {
	decl   *cfa.FunctionDecl
	locals map[string]*cfa.Declaration
}

// NewScope returns an empty scope.
func NewScope(types *TypeTable, machine *cfa.Machine) *Scope {
	return &Scope{
		Types:     types,
		Machine:   machine,
		globals:   make(map[string]*cfa.Declaration),
		functions: make(map[string]*function),
	}
}

// DeclareGlobal adds a file scope variable.
func (s *Scope) DeclareGlobal(name string, t cfa.Type) *cfa.Declaration {
	decl := &cfa.Declaration{Name: name, Type: t}
	s.globals[name] = decl
	return decl
}

// DeclareFunction adds a function with its parameters.
func (s *Scope) DeclareFunction(name string, result cfa.Type, params ...*cfa.Declaration) *cfa.FunctionDecl {
	fn := &function{
		decl:   &cfa.FunctionDecl{Name: name, Result: result},
		locals: make(map[string]*cfa.Declaration),
	}
	for _, p := range params {
		p.Function = name
		fn.decl.Params = append(fn.decl.Params, p)
		fn.locals[p.Name] = p
	}
	s.functions[name] = fn
	return fn.decl
}

// DeclareLocal adds a local variable to a declared function.
func (s *Scope) DeclareLocal(fn, name string, t cfa.Type) (*cfa.Declaration, bool) {
	f, ok := s.functions[fn]
	if !ok {
		return nil, false
	}
	decl := &cfa.Declaration{Name: name, Function: fn, Type: t}
	f.locals[name] = decl
	return decl, true
}

// Function returns the declaration of the named function.
func (s *Scope) Function(name string) (*cfa.FunctionDecl, bool) {
	f, ok := s.functions[name]
	if !ok {
		return nil, false
	}
	return f.decl, true
}

// Lookup resolves name inside fn, falling back to globals.
func (s *Scope) Lookup(fn, name string) (*cfa.Declaration, bool) {
	if f, ok := s.functions[fn]; ok {
		if decl, ok := f.locals[name]; ok {
			return decl, true
		}
	}
	decl, ok := s.globals[name]
	return decl, ok
}

// ParseExpr parses a C expression in the scope of fn.
func (s *Scope) ParseExpr(fn, src string) (cfa.Expr, error) {
	p, err := s.newParser(fn, src)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr(1)
	if err != nil {
		return nil, err
	} else if !p.atEnd() {
		return nil, p.errorf(p.peek(), "unexpected %s", p.peek())
	}
	return e, nil
}

// ParseStmt parses an assignment or expression statement.
func (s *Scope) ParseStmt(fn, src string) (cfa.Stmt, error) {
	p, err := s.newParser(fn, src)
	if err != nil {
		return nil, err
	}
	lhs, err := p.parseExpr(1)
	if err != nil {
		return nil, err
	}

	var stmt cfa.Stmt = &cfa.ExprStmt{X: lhs}
	if p.accept(token.ASSIGN) {
		if !cfa.IsLvalue(lhs) {
			return nil, p.errorf(p.peek(), "cannot assign to %s", lhs)
		}
		rhs, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		stmt = &cfa.AssignStmt{LHS: lhs, RHS: rhs}
	}

	if !p.atEnd() {
		return nil, p.errorf(p.peek(), "unexpected %s", p.peek())
	}
	return stmt, nil
}

type parser struct {
	*stream
	scope *Scope
	fn    string
}

func (s *Scope) newParser(fn, src string) (*parser, error) {
	st, err := newStream(src)
	if err != nil {
		return nil, err
	}
	return &parser{stream: st, scope: s, fn: fn}, nil
}

var binaryOps = map[token.Token]struct {
	op   cfa.BinaryOp
	prec int
}{
	token.LOR:  {cfa.LOR, 1},
	token.LAND: {cfa.LAND, 2},
	token.OR:   {cfa.OR, 3},
	token.XOR:  {cfa.XOR, 4},
	token.AND:  {cfa.AND, 5},
	token.EQL:  {cfa.EQ, 6},
	token.NEQ:  {cfa.NE, 6},
	token.LSS:  {cfa.LT, 7},
	token.LEQ:  {cfa.LE, 7},
	token.GTR:  {cfa.GT, 7},
	token.GEQ:  {cfa.GE, 7},
	token.SHL:  {cfa.SHL, 8},
	token.SHR:  {cfa.SHR, 8},
	token.ADD:  {cfa.ADD, 9},
	token.SUB:  {cfa.SUB, 9},
	token.MUL:  {cfa.MUL, 10},
	token.QUO:  {cfa.DIV, 10},
	token.REM:  {cfa.MOD, 10},
}

// parseExpr parses a binary expression whose operators bind at least as
// tightly as prec.
func (p *parser) parseExpr(prec int) (cfa.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		info, ok := binaryOps[p.peek().tok]
		if !ok || info.prec < prec {
			return lhs, nil
		}
		p.next()

		rhs, err := p.parseExpr(info.prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &cfa.BinaryExpr{
			Op:  info.op,
			LHS: lhs,
			RHS: rhs,
			Typ: p.binaryType(info.op, lhs.Type(), rhs.Type()),
		}
	}
}

func (p *parser) parseUnary() (cfa.Expr, error) {
	it := p.peek()
	switch it.tok {
	case token.SUB, token.ADD, token.NOT, token.TILDE:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch it.tok {
		case token.SUB:
			return &cfa.UnaryExpr{Op: cfa.NEG, X: x, Typ: p.promote(x.Type())}, nil
		case token.ADD:
			return &cfa.UnaryExpr{Op: cfa.PLUS, X: x, Typ: p.promote(x.Type())}, nil
		case token.TILDE:
			return &cfa.UnaryExpr{Op: cfa.COMPLEMENT, X: x, Typ: p.promote(x.Type())}, nil
		default:
			return &cfa.UnaryExpr{Op: cfa.NOT, X: x, Typ: cfa.Typ[cfa.Int]}, nil
		}

	case token.MUL:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		elem, ok := cfa.ElemType(x.Type())
		if !ok {
			return nil, p.errorf(it, "cannot dereference %s", x)
		}
		return &cfa.Deref{Operand: x, Typ: elem}, nil

	case token.AND:
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		} else if !cfa.IsLvalue(x) {
			return nil, p.errorf(it, "cannot take address of %s", x)
		}
		return &cfa.AddrOf{Operand: x, Typ: cfa.NewPointer(x.Type())}, nil

	case token.LPAREN:
		if p.scope.Types.isTypeStart(p.peekN(1)) {
			p.next()
			t, err := p.scope.Types.parseType(p.stream)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &cfa.CastExpr{X: x, Typ: t}, nil
		}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (cfa.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		it := p.peek()
		switch it.tok {
		case token.LBRACK:
			p.next()
			index, err := p.parseExpr(1)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACK); err != nil {
				return nil, err
			}
			elem, ok := cfa.ElemType(x.Type())
			if !ok {
				return nil, p.errorf(it, "cannot index %s", x)
			}
			x = &cfa.Subscript{Array: x, Index: index, Typ: elem}

		case token.PERIOD:
			p.next()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}

			deref := it.lit == arrow
			owner := x.Type()
			if deref {
				if owner, _ = cfa.ElemType(owner); owner == nil {
					return nil, p.errorf(it, "%s is not a pointer", x)
				}
			}
			composite, ok := cfa.Canonical(owner).(*cfa.Composite)
			if !ok {
				return nil, p.errorf(it, "%s is not a struct or union", x)
			}
			f := composite.Field(name.lit)
			if f == nil {
				return nil, p.errorf(name, "%s has no member %q", composite, name.lit)
			}
			x = &cfa.FieldRef{Owner: x, Name: f.Name, Deref: deref, Typ: f.Type}

		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (cfa.Expr, error) {
	it := p.next()
	switch it.tok {
	case token.IDENT:
		if p.peek().tok == token.LPAREN {
			return p.parseCall(it)
		}
		decl, ok := p.scope.Lookup(p.fn, it.lit)
		if !ok {
			return nil, p.errorf(it, "undeclared identifier %q", it.lit)
		}
		return cfa.NewIDExpr(decl), nil

	case token.INT:
		return p.parseInt(it)

	case token.FLOAT:
		return p.parseFloat(it)

	case token.CHAR:
		s, err := strconv.Unquote(it.lit)
		if err != nil {
			return nil, p.errorf(it, "invalid character literal")
		}
		return &cfa.CharLiteral{Value: []rune(s)[0], Typ: cfa.Typ[cfa.Char]}, nil

	case token.STRING:
		s, err := strconv.Unquote(it.lit)
		if err != nil {
			return nil, p.errorf(it, "invalid string literal")
		}
		return &cfa.StringLiteral{Value: s, Typ: cfa.NewArray(cfa.Typ[cfa.Char], int64(len(s)+1))}, nil

	case token.LPAREN:
		x, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return x, nil

	default:
		return nil, p.errorf(it, "unexpected %s", it)
	}
}

func (p *parser) parseCall(name item) (cfa.Expr, error) {
	p.next() // (

	call := &cfa.CallExpr{Func: name.lit, Typ: cfa.Typ[cfa.Int]}
	if fn, ok := p.scope.Function(name.lit); ok && fn.Result != nil {
		call.Typ = fn.Result
	}
	if p.accept(token.RPAREN) {
		return call, nil
	}
	for {
		arg, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.accept(token.RPAREN) {
			return call, nil
		} else if _, err := p.expect(token.COMMA); err != nil {
			return nil, err
		}
	}
}

// parseInt parses an integer literal and its suffix. Unsuffixed literals take
// the first of int, long and long long that can hold them.
func (p *parser) parseInt(it item) (cfa.Expr, error) {
	digits := strings.TrimRight(it.lit, "uUlL")
	suffix := strings.ToUpper(it.lit[len(digits):])

	v, ok := new(big.Int).SetString(digits, 0)
	if !ok {
		return nil, p.errorf(it, "invalid integer literal %q", it.lit)
	}

	var candidates []cfa.BasicKind
	switch strings.ReplaceAll(suffix, "U", "") {
	case "":
		candidates = []cfa.BasicKind{cfa.Int, cfa.Long, cfa.LongLong}
	case "L":
		candidates = []cfa.BasicKind{cfa.Long, cfa.LongLong}
	case "LL":
		candidates = []cfa.BasicKind{cfa.LongLong}
	default:
		return nil, p.errorf(it, "invalid integer suffix %q", suffix)
	}
	if strings.Contains(suffix, "U") {
		for i := range candidates {
			candidates[i] = unsignedOf(candidates[i])
		}
	}

	for _, kind := range candidates {
		t := cfa.Typ[kind]
		if v.Cmp(p.scope.Machine.MaxInteger(t)) <= 0 {
			return &cfa.IntLiteral{Value: v, Typ: t}, nil
		}
	}
	return nil, p.errorf(it, "integer literal %q out of range", it.lit)
}

func (p *parser) parseFloat(it item) (cfa.Expr, error) {
	digits := strings.TrimRight(it.lit, "fFlL")
	t := cfa.Typ[cfa.Double]
	switch strings.ToUpper(it.lit[len(digits):]) {
	case "F":
		t = cfa.Typ[cfa.Float]
	case "L":
		t = cfa.Typ[cfa.LongDouble]
	}

	v, _, err := big.ParseFloat(digits, 0, 64, big.ToNearestEven)
	if err != nil {
		return nil, p.errorf(it, "invalid floating point literal %q", it.lit)
	}
	return &cfa.FloatLiteral{Value: v, Typ: t}, nil
}

// binaryType returns the result type of a binary operation.
func (p *parser) binaryType(op cfa.BinaryOp, l, r cfa.Type) cfa.Type {
	if op.IsCompare() || op == cfa.LAND || op == cfa.LOR {
		return cfa.Typ[cfa.Int]
	}

	lptr, rptr := cfa.IsPointerOrArray(l), cfa.IsPointerOrArray(r)
	switch {
	case lptr && rptr:
		return cfa.Typ[cfa.Long]
	case lptr:
		return decay(l)
	case rptr:
		return decay(r)
	case op == cfa.SHL || op == cfa.SHR:
		return p.promote(l)
	}
	return p.usualArithmetic(l, r)
}

// decay converts an array type to a pointer to its element.
func decay(t cfa.Type) cfa.Type {
	if arr, ok := cfa.Canonical(t).(*cfa.Array); ok {
		return cfa.NewPointer(arr.Elem)
	}
	return t
}

// promote applies the integer promotions.
func (p *parser) promote(t cfa.Type) cfa.Type {
	b, ok := cfa.BasicOf(t)
	if !ok || !b.Kind.IsInteger() {
		return t
	}
	if rank(b.Kind) == 0 {
		return cfa.Typ[cfa.Int]
	}
	return b
}

// usualArithmetic returns the common type of two arithmetic operands.
func (p *parser) usualArithmetic(l, r cfa.Type) cfa.Type {
	lb, lok := cfa.BasicOf(l)
	rb, rok := cfa.BasicOf(r)
	if !lok || !rok {
		return l
	}
	if lb.Kind.IsFloat() || rb.Kind.IsFloat() {
		if lb.Kind > rb.Kind {
			return lb
		}
		return rb
	}

	lb, rb = p.promote(lb).(*cfa.Basic), p.promote(rb).(*cfa.Basic)
	lu, ru := lb.Kind.IsUnsigned(), rb.Kind.IsUnsigned()
	switch {
	case lb.Kind == rb.Kind:
		return lb
	case lu == ru:
		if rank(lb.Kind) >= rank(rb.Kind) {
			return lb
		}
		return rb
	}

	signed, unsigned := lb, rb
	if lu {
		signed, unsigned = rb, lb
	}
	if rank(unsigned.Kind) >= rank(signed.Kind) {
		return unsigned
	}
	if p.scope.Machine.MaxInteger(signed).Cmp(p.scope.Machine.MaxInteger(unsigned)) >= 0 {
		return signed
	}
	return cfa.Typ[unsignedOf(signed.Kind)]
}

// rank returns the integer conversion rank of types at least as wide as int.
// Narrower types have rank zero.
func rank(k cfa.BasicKind) int {
	switch k {
	case cfa.Int, cfa.UInt:
		return 1
	case cfa.Long, cfa.ULong:
		return 2
	case cfa.LongLong, cfa.ULongLong:
		return 3
	default:
		return 0
	}
}

func unsignedOf(k cfa.BasicKind) cfa.BasicKind {
	switch k {
	case cfa.Int:
		return cfa.UInt
	case cfa.Long:
		return cfa.ULong
	case cfa.LongLong:
		return cfa.ULongLong
	default:
		return k
	}
}
