package cfa

import (
	"bytes"
	"fmt"
	"strings"
)

// Type represents a C type as it appears in the program model.
type Type interface {
	String() string
	typ()
}

func (*Basic) typ()      {}
func (*Void) typ()       {}
func (*Pointer) typ()    {}
func (*Array) typ()      {}
func (*Composite) typ()  {}
func (*Enum) typ()       {}
func (*Typedef) typ()    {}
func (*Elaborated) typ() {}
func (*BitField) typ()   {}
func (*Function) typ()   {}
func (*Problem) typ()    {}

// BasicKind describes the kind of a simple arithmetic type.
type BasicKind int

// Basic type kinds.
const (
	InvalidKind = BasicKind(iota)
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
)

var basicKinds = [...]string{
	InvalidKind: "invalid",
	Bool:        "_Bool",
	Char:        "char",
	SChar:       "signed char",
	UChar:       "unsigned char",
	Short:       "short",
	UShort:      "unsigned short",
	Int:         "int",
	UInt:        "unsigned int",
	Long:        "long",
	ULong:       "unsigned long",
	LongLong:    "long long",
	ULongLong:   "unsigned long long",
	Float:       "float",
	Double:      "double",
	LongDouble:  "long double",
}

// String returns the C spelling of the kind.
func (k BasicKind) String() string {
	if k >= 0 && k < BasicKind(len(basicKinds)) {
		return basicKinds[k]
	}
	return fmt.Sprintf("BasicKind<%d>", k)
}

// IsInteger returns true for boolean, character and integer kinds.
func (k BasicKind) IsInteger() bool {
	return k >= Bool && k <= ULongLong
}

// IsFloat returns true for floating point kinds.
func (k BasicKind) IsFloat() bool {
	return k >= Float && k <= LongDouble
}

// IsUnsigned returns true if the kind has no sign bit. Plain char is
// reported as signed; the machine model decides its actual signedness.
func (k BasicKind) IsUnsigned() bool {
	switch k {
	case Bool, UChar, UShort, UInt, ULong, ULongLong:
		return true
	default:
		return false
	}
}

// Basic represents an arithmetic type such as int or double.
type Basic struct {
	Kind BasicKind
}

// Typ holds the predeclared basic types, indexed by kind.
var Typ = [...]*Basic{
	Bool:       {Kind: Bool},
	Char:       {Kind: Char},
	SChar:      {Kind: SChar},
	UChar:      {Kind: UChar},
	Short:      {Kind: Short},
	UShort:     {Kind: UShort},
	Int:        {Kind: Int},
	UInt:       {Kind: UInt},
	Long:       {Kind: Long},
	ULong:      {Kind: ULong},
	LongLong:   {Kind: LongLong},
	ULongLong:  {Kind: ULongLong},
	Float:      {Kind: Float},
	Double:     {Kind: Double},
	LongDouble: {Kind: LongDouble},
}

func (t *Basic) String() string { return t.Kind.String() }

// Void represents the void type.
type Void struct{}

func (t *Void) String() string { return "void" }

// Pointer represents a pointer to Elem.
type Pointer struct {
	Elem Type
}

// NewPointer returns a pointer type to elem.
func NewPointer(elem Type) *Pointer { return &Pointer{Elem: elem} }

func (t *Pointer) String() string { return t.Elem.String() + "*" }

// Array represents a C array. Len is negative when the length is not a
// compile-time constant (variable length or incomplete arrays).
type Array struct {
	Elem Type
	Len  int64
}

// NewArray returns an array type of n elements.
func NewArray(elem Type, n int64) *Array { return &Array{Elem: elem, Len: n} }

// HasConstantLen returns true if the array length is statically known.
func (t *Array) HasConstantLen() bool { return t.Len >= 0 }

// String prints the element type followed by the dimensions, outermost first.
func (t *Array) String() string {
	var dims strings.Builder
	var elem Type = t
	for a, ok := elem.(*Array); ok; a, ok = elem.(*Array) {
		if a.Len < 0 {
			dims.WriteString("[]")
		} else {
			fmt.Fprintf(&dims, "[%d]", a.Len)
		}
		elem = a.Elem
	}
	return elem.String() + dims.String()
}

// CompositeKind distinguishes structs from unions.
type CompositeKind int

const (
	StructKind = CompositeKind(iota)
	UnionKind
)

func (k CompositeKind) String() string {
	if k == UnionKind {
		return "union"
	}
	return "struct"
}

// Field is a member of a struct or union.
type Field struct {
	Name string
	Type Type
}

// Composite represents a complete struct or union definition.
type Composite struct {
	Kind   CompositeKind
	Name   string
	Fields []*Field
}

// NewStruct returns a struct type with the given fields.
func NewStruct(name string, fields ...*Field) *Composite {
	return &Composite{Kind: StructKind, Name: name, Fields: fields}
}

// NewUnion returns a union type with the given fields.
func NewUnion(name string, fields ...*Field) *Composite {
	return &Composite{Kind: UnionKind, Name: name, Fields: fields}
}

// Field returns the member with the given name or nil.
func (t *Composite) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Composite) String() string {
	if t.Name != "" {
		return t.Kind.String() + " " + t.Name
	}

	// Anonymous composites print their member list so that distinct
	// anonymous types do not collapse onto the same key.
	var buf bytes.Buffer
	buf.WriteString(t.Kind.String())
	buf.WriteString(" {")
	for i, f := range t.Fields {
		if i > 0 {
			buf.WriteString(" ")
		}
		fmt.Fprintf(&buf, "%s %s;", f.Type, f.Name)
	}
	buf.WriteString("}")
	return buf.String()
}

// Enumerator is a named constant of an enum.
type Enumerator struct {
	Name  string
	Value int64
}

// Enum represents an enumeration type.
type Enum struct {
	Name        string
	Enumerators []Enumerator
}

func (t *Enum) String() string { return "enum " + t.Name }

// Typedef is a named alias for Underlying.
type Typedef struct {
	Name       string
	Underlying Type
}

func (t *Typedef) String() string { return t.Name }

// ElaboratedKind is the tag keyword of an elaborated type.
type ElaboratedKind int

const (
	StructTag = ElaboratedKind(iota)
	UnionTag
	EnumTag
)

func (k ElaboratedKind) String() string {
	switch k {
	case UnionTag:
		return "union"
	case EnumTag:
		return "enum"
	default:
		return "struct"
	}
}

// Elaborated is a reference to a tagged type by name, e.g. "struct node".
// Real is bound once the definition is known and may point back into a type
// that contains this reference.
type Elaborated struct {
	Kind ElaboratedKind
	Name string
	Real Type
}

func (t *Elaborated) String() string { return t.Kind.String() + " " + t.Name }

// BitField is an integer member of declared width Bits.
type BitField struct {
	Type Type
	Bits int
}

func (t *BitField) String() string { return fmt.Sprintf("%s : %d", t.Type, t.Bits) }

// Function represents a function type.
type Function struct {
	Result   Type
	Params   []Type
	Variadic bool
}

func (t *Function) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	if t.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("%s (%s)", t.Result, strings.Join(params, ", "))
}

// Problem marks a type the front end could not resolve.
type Problem struct {
	Msg string
}

func (t *Problem) String() string { return "<problem: " + t.Msg + ">" }

// Canonical unwraps typedefs, elaborated references and bit-fields until the
// real type is reached. An elaborated type without a definition is returned
// unchanged.
func Canonical(t Type) Type {
	for {
		switch u := t.(type) {
		case *Typedef:
			t = u.Underlying
		case *Elaborated:
			if u.Real == nil {
				return u
			}
			t = u.Real
		case *BitField:
			t = u.Type
		default:
			return t
		}
	}
}

// IsPointerOrArray returns true if the canonical type of t is a pointer or
// an array.
func IsPointerOrArray(t Type) bool {
	switch Canonical(t).(type) {
	case *Pointer, *Array:
		return true
	default:
		return false
	}
}

// IsAggregate returns true if values of t are represented by their location:
// arrays, structs and unions.
func IsAggregate(t Type) bool {
	switch Canonical(t).(type) {
	case *Array, *Composite:
		return true
	default:
		return false
	}
}

// ElemType returns the pointee or element type of a pointer or array type.
func ElemType(t Type) (Type, bool) {
	switch u := Canonical(t).(type) {
	case *Pointer:
		return u.Elem, true
	case *Array:
		return u.Elem, true
	default:
		return nil, false
	}
}

// BasicOf returns the canonical basic type of t, treating enums as int.
func BasicOf(t Type) (*Basic, bool) {
	switch u := Canonical(t).(type) {
	case *Basic:
		return u, true
	case *Enum:
		return Typ[Int], true
	default:
		return nil, false
	}
}
