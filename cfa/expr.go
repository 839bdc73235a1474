package cfa

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Expr represents a C expression in the program model.
type Expr interface {
	String() string
	Type() Type
	expr()
}

func (*IDExpr) expr()        {}
func (*FieldRef) expr()      {}
func (*Subscript) expr()     {}
func (*Deref) expr()         {}
func (*AddrOf) expr()        {}
func (*UnaryExpr) expr()     {}
func (*BinaryExpr) expr()    {}
func (*CastExpr) expr()      {}
func (*IntLiteral) expr()    {}
func (*FloatLiteral) expr()  {}
func (*CharLiteral) expr()   {}
func (*StringLiteral) expr() {}
func (*CallExpr) expr()      {}

// Declaration is a declared variable or parameter. Function is empty for
// globals.
type Declaration struct {
	Name     string
	Function string
	Type     Type
}

// IsGlobal returns true if the variable is declared at file scope.
func (d *Declaration) IsGlobal() bool { return d.Function == "" }

// QualifiedName returns the scoped name of the variable, e.g. "main::x".
func (d *Declaration) QualifiedName() string {
	if d.Function == "" {
		return d.Name
	}
	return d.Function + "::" + d.Name
}

// String returns the declaration in C syntax.
func (d *Declaration) String() string {
	return declString(d.Type, d.Name)
}

func declString(t Type, name string) string {
	switch t := t.(type) {
	case *Array:
		if t.Len < 0 {
			return declString(t.Elem, name+"[]")
		}
		return declString(t.Elem, fmt.Sprintf("%s[%d]", name, t.Len))
	case *BitField:
		return fmt.Sprintf("%s %s : %d", t.Type, name, t.Bits)
	default:
		return t.String() + " " + name
	}
}

// IDExpr references a declared variable.
type IDExpr struct {
	Decl *Declaration
}

// NewIDExpr returns an expression referencing decl.
func NewIDExpr(decl *Declaration) *IDExpr { return &IDExpr{Decl: decl} }

func (e *IDExpr) Type() Type     { return e.Decl.Type }
func (e *IDExpr) String() string { return e.Decl.Name }

// FieldRef accesses a member of Owner. Deref is set for "->" accesses.
type FieldRef struct {
	Owner Expr
	Name  string
	Deref bool
	Typ   Type
}

func (e *FieldRef) Type() Type { return e.Typ }

func (e *FieldRef) String() string {
	var owner string
	switch e.Owner.(type) {
	case *IDExpr, *FieldRef:
		owner = e.Owner.String()
	default:
		owner = "(" + e.Owner.String() + ")"
	}
	if e.Deref {
		return owner + "->" + e.Name
	}
	return owner + "." + e.Name
}

// Subscript represents Array[Index]. Array may be array or pointer typed.
type Subscript struct {
	Array Expr
	Index Expr
	Typ   Type
}

func (e *Subscript) Type() Type     { return e.Typ }
func (e *Subscript) String() string { return "(" + e.Array.String() + ")[" + e.Index.String() + "]" }

// Deref represents *Operand.
type Deref struct {
	Operand Expr
	Typ     Type
}

func (e *Deref) Type() Type     { return e.Typ }
func (e *Deref) String() string { return "*(" + e.Operand.String() + ")" }

// AddrOf represents &Operand.
type AddrOf struct {
	Operand Expr
	Typ     Type
}

func (e *AddrOf) Type() Type     { return e.Typ }
func (e *AddrOf) String() string { return "&" + Parenthesize(e.Operand) }

// UnaryOp is a prefix arithmetic or logical operator.
type UnaryOp int

const (
	NEG = UnaryOp(iota)
	COMPLEMENT
	NOT
	PLUS
)

var unaryOps = [...]string{
	NEG:        "-",
	COMPLEMENT: "~",
	NOT:        "!",
	PLUS:       "+",
}

func (op UnaryOp) String() string {
	if op >= 0 && op < UnaryOp(len(unaryOps)) {
		return unaryOps[op]
	}
	return fmt.Sprintf("UnaryOp<%d>", op)
}

// UnaryExpr applies a prefix operator to X.
type UnaryExpr struct {
	Op  UnaryOp
	X   Expr
	Typ Type
}

func (e *UnaryExpr) Type() Type     { return e.Typ }
func (e *UnaryExpr) String() string { return e.Op.String() + Parenthesize(e.X) }

// BinaryOp is a binary C operator.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV
	MOD
	AND
	OR
	XOR
	SHL
	SHR
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	LAND
	LOR
)

var binaryOps = [...]string{
	ADD:  "+",
	SUB:  "-",
	MUL:  "*",
	DIV:  "/",
	MOD:  "%",
	AND:  "&",
	OR:   "|",
	XOR:  "^",
	SHL:  "<<",
	SHR:  ">>",
	EQ:   "==",
	NE:   "!=",
	LT:   "<",
	LE:   "<=",
	GT:   ">",
	GE:   ">=",
	LAND: "&&",
	LOR:  "||",
}

// String returns the C spelling of the operator.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic or bitwise operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a relational or equality operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
	Typ Type
}

func (e *BinaryExpr) Type() Type { return e.Typ }

func (e *BinaryExpr) String() string {
	return Parenthesize(e.LHS) + " " + e.Op.String() + " " + Parenthesize(e.RHS)
}

// CastExpr converts X to Typ.
type CastExpr struct {
	X   Expr
	Typ Type
}

func (e *CastExpr) Type() Type     { return e.Typ }
func (e *CastExpr) String() string { return "(" + e.Typ.String() + ")" + Parenthesize(e.X) }

// IntLiteral is an integer constant.
type IntLiteral struct {
	Value *big.Int
	Typ   Type
}

// NewIntLiteral returns an int-typed literal.
func NewIntLiteral(v int64) *IntLiteral {
	return &IntLiteral{Value: big.NewInt(v), Typ: Typ[Int]}
}

func (e *IntLiteral) Type() Type     { return e.Typ }
func (e *IntLiteral) String() string { return e.Value.String() + IntSuffix(e.Typ) }

// IntSuffix returns the literal suffix for an integer type, e.g. "UL".
func IntSuffix(t Type) string {
	b, ok := BasicOf(t)
	if !ok {
		return ""
	}
	switch b.Kind {
	case UInt:
		return "U"
	case Long:
		return "L"
	case ULong:
		return "UL"
	case LongLong:
		return "LL"
	case ULongLong:
		return "ULL"
	default:
		return ""
	}
}

// FloatLiteral is a floating point constant.
type FloatLiteral struct {
	Value *big.Float
	Typ   Type
}

func (e *FloatLiteral) Type() Type { return e.Typ }

func (e *FloatLiteral) String() string {
	s := e.Value.Text('g', -1)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if b, ok := BasicOf(e.Typ); ok {
		switch b.Kind {
		case Float:
			s += "f"
		case LongDouble:
			s += "L"
		}
	}
	return s
}

// CharLiteral is a character constant.
type CharLiteral struct {
	Value rune
	Typ   Type
}

func (e *CharLiteral) Type() Type     { return e.Typ }
func (e *CharLiteral) String() string { return strconv.QuoteRune(e.Value) }

// StringLiteral is a string constant.
type StringLiteral struct {
	Value string
	Typ   Type
}

func (e *StringLiteral) Type() Type     { return e.Typ }
func (e *StringLiteral) String() string { return strconv.Quote(e.Value) }

// CallExpr is a function call.
type CallExpr struct {
	Func string
	Args []Expr
	Typ  Type
}

func (e *CallExpr) Type() Type { return e.Typ }

func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, arg := range e.Args {
		args[i] = arg.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

// IsLiteral returns true if e is a constant literal.
func IsLiteral(e Expr) bool {
	switch e.(type) {
	case *IntLiteral, *FloatLiteral, *CharLiteral, *StringLiteral:
		return true
	default:
		return false
	}
}

// IsConstant returns true if e is built only from literals, so that its value
// does not depend on any state.
func IsConstant(e Expr) bool {
	switch e := e.(type) {
	case *UnaryExpr:
		return IsConstant(e.X)
	case *BinaryExpr:
		return IsConstant(e.LHS) && IsConstant(e.RHS)
	case *CastExpr:
		return IsConstant(e.X)
	default:
		return IsLiteral(e)
	}
}

// IsLvalue returns true if e designates a storage location.
func IsLvalue(e Expr) bool {
	switch e.(type) {
	case *IDExpr, *FieldRef, *Subscript, *Deref:
		return true
	default:
		return false
	}
}

// Parenthesize returns the string form of e, wrapped in parentheses unless it
// is an identifier or a literal.
func Parenthesize(e Expr) string {
	switch e.(type) {
	case *IDExpr:
		return e.String()
	default:
		if IsLiteral(e) {
			return e.String()
		}
		return "(" + e.String() + ")"
	}
}
