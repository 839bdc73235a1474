package cex

import (
	"github.com/benbjohnson/cex/cfa"
)

// Assumption states that an lvalue holds a literal value.
type Assumption struct {
	LHS   cfa.Expr
	Value ValueLiteral
}

// NewAssumption returns a new instance of Assumption.
func NewAssumption(lhs cfa.Expr, value ValueLiteral) *Assumption {
	return &Assumption{LHS: lhs, Value: value}
}

// String returns the assumption as a C statement, e.g. "x == (0);".
func (a *Assumption) String() string {
	return cfa.Parenthesize(a.LHS) + " == (" + a.Value.String() + ");"
}

// decoder expands the value of one lvalue into assumptions about every
// location reachable from it. A decoder is used for a single top-level
// lvalue; its visited set must not be shared between unrelated lvalues.
type decoder struct {
	*resolver
	visited map[visitKey]struct{}
	facts   []*Assumption
	reads   int // values found in memory
}

// visitKey identifies a typed memory location.
type visitKey struct {
	typ  string
	addr string
}

func newDecoder(r *resolver) *decoder {
	return &decoder{resolver: r, visited: make(map[visitKey]struct{})}
}

// visit marks (t, addr) as decoded. Returns false if it already was.
func (d *decoder) visit(t cfa.Type, addr Address) bool {
	if addr.IsUnknown() {
		return true
	}
	key := visitKey{typ: cfa.Canonical(t).String(), addr: addr.Key()}
	if _, ok := d.visited[key]; ok {
		return false
	}
	d.visited[key] = struct{}{}
	return true
}

func (d *decoder) emit(lhs cfa.Expr, lit ValueLiteral) {
	d.facts = append(d.facts, NewAssumption(lhs, lit))
}

// decodeLvalue decodes the value of the lvalue e with static type t. The root
// literal is returned along with whether anything could be decoded at all.
func (d *decoder) decodeLvalue(e cfa.Expr, t cfa.Type) (ValueLiteral, bool) {
	addr := d.address(e)
	if !addr.IsUnknown() {
		d.visit(t, addr)
	}

	v, ok := d.value(e)
	if !ok {
		// Members may still be exposed under flattened names.
		if _, isComposite := cfa.Canonical(t).(*cfa.Composite); isComposite && addr.IsUnknown() {
			n := len(d.facts)
			d.expandComposite(UnknownAddress, cfa.Canonical(t).(*cfa.Composite), e)
			return Unknown, len(d.facts) > n
		}
		return Unknown, false
	}

	n := len(d.facts)
	lit := d.decodeValue(v, t, e)
	return lit, !lit.IsUnknown() || len(d.facts) > n
}

// decodeValue emits the literal of v for the lvalue e and expands everything
// reachable from it.
func (d *decoder) decodeValue(v Value, t cfa.Type, e cfa.Expr) ValueLiteral {
	lit := d.b.encodeLiteral(v, t)
	if !lit.IsUnknown() {
		d.emit(e, lit)
	}
	d.expand(v, t, e)
	return lit
}

// decodeAt decodes the lvalue e of type t stored at addr. Returns false if
// nothing could be decoded at that location.
func (d *decoder) decodeAt(addr Address, t cfa.Type, e cfa.Expr) bool {
	if addr.IsUnknown() {
		return false
	}

	var v Value = addr
	if !cfa.IsAggregate(t) {
		var ok bool
		if v, ok = d.state.ValueFromMemory(e, addr); !ok {
			return false
		}
		d.reads++
	}

	if !d.visit(t, addr) {
		return true
	}

	n := len(d.facts)
	lit := d.decodeValue(v, t, e)
	return !lit.IsUnknown() || len(d.facts) > n
}

// expand recurses into the locations reachable from a pointer, array or
// struct value.
func (d *decoder) expand(v Value, t cfa.Type, e cfa.Expr) {
	switch ct := cfa.Canonical(t).(type) {
	case *cfa.Pointer:
		addr := AddressOf(v)
		if addr.IsUnknown() || !isDecodable(ct.Elem) {
			return
		}
		d.decodeAt(addr, ct.Elem, deref(e, ct.Elem))

	case *cfa.Array:
		d.expandArray(AddressOf(v), ct, e)

	case *cfa.Composite:
		if ct.Kind == cfa.UnionKind {
			return
		}
		d.expandComposite(AddressOf(v), ct, e)
	}
}

// expandArray decodes elements in order until the first element that lies
// outside the array or cannot be decoded. Without a static size, an element
// ends the array unless something in it was found in memory.
func (d *decoder) expandArray(addr Address, t *cfa.Array, e cfa.Expr) {
	if !addr.IsConcrete() || !isDecodable(t.Elem) {
		return
	}
	size, ok := d.b.machine().Sizeof(t.Elem)
	if !ok || size <= 0 {
		return
	}
	total, hasTotal := d.b.machine().Sizeof(t)

	for i := int64(0); ; i++ {
		offset := i * size
		if hasTotal && offset >= total {
			return
		}
		elem := &cfa.Subscript{Array: e, Index: cfa.NewIntLiteral(i), Typ: t.Elem}
		n, reads := len(d.facts), d.reads
		if !d.decodeAt(addr.AddInt64Offset(offset), t.Elem, elem) {
			return
		} else if !hasTotal && d.reads == reads {
			d.facts = d.facts[:n]
			return
		}
	}
}

// expandComposite decodes each member of a struct in declaration order.
// Members without a byte offset or of a struct without a concrete address
// are looked up by their flattened name instead.
func (d *decoder) expandComposite(addr Address, t *cfa.Composite, e cfa.Expr) {
	for _, f := range t.Fields {
		member := field(e, f)

		if addr.IsConcrete() {
			if offset, ok := d.b.machine().FieldOffset(t, f.Name); ok {
				d.decodeAt(addr.AddInt64Offset(offset), f.Type, member)
				continue
			}
		}

		lhs, ok := leftHandSideOf(member)
		if !ok {
			continue
		}
		if d.state.HasValueForLeftHandSide(lhs) {
			d.decodeValue(d.state.VariableValue(lhs), f.Type, member)
		} else if ct, ok := cfa.Canonical(f.Type).(*cfa.Composite); ok && ct.Kind == cfa.StructKind {
			d.expandComposite(UnknownAddress, ct, member)
		}
	}
}

// isDecodable returns false for types whose values are never decoded.
func isDecodable(t cfa.Type) bool {
	switch ct := cfa.Canonical(t).(type) {
	case *cfa.Basic, *cfa.Pointer, *cfa.Array:
		return true
	case *cfa.Composite:
		return ct.Kind == cfa.StructKind
	default:
		return false
	}
}

// deref returns the lvalue *e.
func deref(e cfa.Expr, elem cfa.Type) cfa.Expr {
	return &cfa.Deref{Operand: e, Typ: elem}
}

// field returns the lvalue e.f, written as "p->f" when e is a dereference.
func field(e cfa.Expr, f *cfa.Field) cfa.Expr {
	if d, ok := e.(*cfa.Deref); ok {
		return &cfa.FieldRef{Owner: d.Operand, Name: f.Name, Deref: true, Typ: f.Type}
	}
	return &cfa.FieldRef{Owner: e, Name: f.Name, Typ: f.Type}
}
