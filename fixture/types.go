package fixture

import (
	"go/token"
	"strconv"
	"strings"

	"github.com/benbjohnson/cex/cfa"
)

// TypeTable holds the tagged types and typedefs of a fixture.
type TypeTable struct {
	composites map[string]*cfa.Composite // by "struct name" / "union name"
	enums      map[string]*cfa.Enum
	typedefs   map[string]*cfa.Typedef
}

// NewTypeTable returns an empty table.
func NewTypeTable() *TypeTable {
	return &TypeTable{
		composites: make(map[string]*cfa.Composite),
		enums:      make(map[string]*cfa.Enum),
		typedefs:   make(map[string]*cfa.Typedef),
	}
}

// DeclareComposite registers an empty struct or union so that it can be
// referenced before its members are defined.
func (tt *TypeTable) DeclareComposite(kind cfa.CompositeKind, name string) *cfa.Composite {
	key := kind.String() + " " + name
	if t := tt.composites[key]; t != nil {
		return t
	}
	t := &cfa.Composite{Kind: kind, Name: name}
	tt.composites[key] = t
	return t
}

// DeclareEnum registers an enum type.
func (tt *TypeTable) DeclareEnum(name string, enumerators []cfa.Enumerator) *cfa.Enum {
	t := &cfa.Enum{Name: name, Enumerators: enumerators}
	tt.enums[name] = t
	return t
}

// DeclareTypedef registers a typedef name.
func (tt *TypeTable) DeclareTypedef(name string, underlying cfa.Type) *cfa.Typedef {
	t := &cfa.Typedef{Name: name, Underlying: underlying}
	tt.typedefs[name] = t
	return t
}

// ParseType parses a C type such as "unsigned int", "struct node*",
// "int[4]" or "unsigned int : 3".
func (tt *TypeTable) ParseType(s string) (cfa.Type, error) {
	st, err := newStream(s)
	if err != nil {
		return nil, err
	}
	t, err := tt.parseType(st)
	if err != nil {
		return nil, err
	}

	if st.accept(token.COLON) {
		it, err := st.expect(token.INT)
		if err != nil {
			return nil, err
		}
		bits, err := strconv.Atoi(it.lit)
		if err != nil {
			return nil, st.errorf(it, "invalid bit-field width")
		}
		t = &cfa.BitField{Type: t, Bits: bits}
	}

	if !st.atEnd() {
		return nil, st.errorf(st.peek(), "unexpected %s", st.peek())
	}
	return t, nil
}

// isTypeStart returns true if it can begin a type name.
func (tt *TypeTable) isTypeStart(it item) bool {
	if it.tok == token.STRUCT || isQualifier(it) {
		return true
	} else if it.tok != token.IDENT {
		return false
	}
	switch it.lit {
	case "void", "_Bool", "bool", "char", "short", "int", "long", "float", "double",
		"signed", "unsigned", "union", "enum":
		return true
	}
	_, ok := tt.typedefs[it.lit]
	return ok
}

// isQualifier returns true for a type qualifier, which does not change the type.
func isQualifier(it item) bool {
	return it.tok == token.CONST || (it.tok == token.IDENT && it.lit == "volatile")
}

// parseType parses specifiers, pointer declarators and array dimensions.
func (tt *TypeTable) parseType(st *stream) (cfa.Type, error) {
	t, err := tt.parseSpecifiers(st)
	if err != nil {
		return nil, err
	}

	for st.accept(token.MUL) {
		t = cfa.NewPointer(t)
		for isQualifier(st.peek()) {
			st.next()
		}
	}

	var dims []int64
	for st.accept(token.LBRACK) {
		if st.accept(token.RBRACK) {
			dims = append(dims, -1)
			continue
		}
		it, err := st.expect(token.INT)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(it.lit, 0, 64)
		if err != nil {
			return nil, st.errorf(it, "invalid array length")
		}
		if _, err := st.expect(token.RBRACK); err != nil {
			return nil, err
		}
		dims = append(dims, n)
	}
	for i := len(dims) - 1; i >= 0; i-- {
		t = cfa.NewArray(t, dims[i])
	}
	return t, nil
}

func (tt *TypeTable) parseSpecifiers(st *stream) (cfa.Type, error) {
	for isQualifier(st.peek()) {
		st.next()
	}
	start := st.peek()

	// Go scans "struct" and "const" as keywords.
	if start.tok == token.STRUCT || (start.tok == token.IDENT && (start.lit == "union" || start.lit == "enum")) {
		st.next()
		name, err := st.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		return tt.tagged(st, start, name.lit)
	}

	var words []string
	for {
		it := st.peek()
		if isQualifier(it) {
			st.next()
			continue
		} else if it.tok != token.IDENT {
			break
		}
		switch it.lit {
		case "void", "_Bool", "bool", "char", "short", "int", "long", "float", "double", "signed", "unsigned":
			st.next()
			words = append(words, it.lit)
			continue
		}
		if len(words) == 0 {
			if td, ok := tt.typedefs[it.lit]; ok {
				st.next()
				return td, nil
			}
		}
		break
	}
	if len(words) == 0 {
		return nil, st.errorf(start, "expected type, found %s", start)
	}

	t, ok := basicType(words)
	if !ok {
		return nil, st.errorf(start, "unknown type %q", strings.Join(words, " "))
	}
	return t, nil
}

func (tt *TypeTable) tagged(st *stream, tag item, name string) (cfa.Type, error) {
	t := &cfa.Elaborated{Kind: cfa.StructTag, Name: name}
	switch {
	case tag.tok == token.STRUCT:
		if c, ok := tt.composites["struct "+name]; ok {
			t.Real = c
		}
	case tag.lit == "union":
		t.Kind = cfa.UnionTag
		if c, ok := tt.composites["union "+name]; ok {
			t.Real = c
		}
	default:
		e, ok := tt.enums[name]
		if !ok {
			return nil, st.errorf(tag, "unknown enum %q", name)
		}
		t.Kind, t.Real = cfa.EnumTag, e
	}
	return t, nil
}

// basicType maps a list of type specifier words to a basic type.
func basicType(words []string) (cfa.Type, bool) {
	var signed, unsigned bool
	var longs int
	var base string
	for _, w := range words {
		switch w {
		case "signed":
			signed = true
		case "unsigned":
			unsigned = true
		case "long":
			longs++
		default:
			if base != "" {
				return nil, false
			}
			base = w
		}
	}
	if signed && unsigned {
		return nil, false
	}

	switch base {
	case "void":
		if signed || unsigned || longs > 0 {
			return nil, false
		}
		return &cfa.Void{}, true
	case "_Bool", "bool":
		return cfa.Typ[cfa.Bool], !signed && !unsigned && longs == 0
	case "char":
		switch {
		case longs > 0:
			return nil, false
		case unsigned:
			return cfa.Typ[cfa.UChar], true
		case signed:
			return cfa.Typ[cfa.SChar], true
		default:
			return cfa.Typ[cfa.Char], true
		}
	case "short":
		if longs > 0 {
			return nil, false
		} else if unsigned {
			return cfa.Typ[cfa.UShort], true
		}
		return cfa.Typ[cfa.Short], true
	case "float":
		return cfa.Typ[cfa.Float], !signed && !unsigned && longs == 0
	case "double":
		if signed || unsigned || longs > 1 {
			return nil, false
		} else if longs == 1 {
			return cfa.Typ[cfa.LongDouble], true
		}
		return cfa.Typ[cfa.Double], true
	case "int", "":
		switch {
		case longs > 2:
			return nil, false
		case longs == 2 && unsigned:
			return cfa.Typ[cfa.ULongLong], true
		case longs == 2:
			return cfa.Typ[cfa.LongLong], true
		case longs == 1 && unsigned:
			return cfa.Typ[cfa.ULong], true
		case longs == 1:
			return cfa.Typ[cfa.Long], true
		case unsigned:
			return cfa.Typ[cfa.UInt], true
		default:
			return cfa.Typ[cfa.Int], true
		}
	default:
		return nil, false
	}
}
