package cex

import (
	"math/big"

	"github.com/benbjohnson/cex/cfa"
)

// resolver computes addresses and values of lvalues in a single state.
type resolver struct {
	b     *AssumptionBuilder
	state *ConcreteState
}

func newResolver(b *AssumptionBuilder, state *ConcreteState) *resolver {
	return &resolver{b: b, state: state}
}

// address returns the location designated by the lvalue e, or the unknown
// address if it cannot be resolved.
func (r *resolver) address(e cfa.Expr) Address {
	switch e := e.(type) {
	case *cfa.IDExpr:
		if id := IdentifierOf(e.Decl); r.state.HasAddressOfVariable(id) {
			return r.state.VariableAddress(id)
		}
		return UnknownAddress

	case *cfa.FieldRef:
		return r.fieldAddress(e)

	case *cfa.Subscript:
		return r.subscriptAddress(e)

	case *cfa.Deref:
		return r.pointerValue(e.Operand)

	default:
		return UnknownAddress
	}
}

func (r *resolver) fieldAddress(e *cfa.FieldRef) Address {
	var base Address
	var owner cfa.Type
	if e.Deref {
		base = r.pointerValue(e.Owner)
		owner, _ = cfa.ElemType(e.Owner.Type())
	} else {
		base = r.address(e.Owner)
		owner = e.Owner.Type()
	}
	if base.IsUnknown() {
		return UnknownAddress
	}

	composite, ok := cfa.Canonical(owner).(*cfa.Composite)
	if !ok {
		return UnknownAddress
	}
	offset, ok := r.b.machine().FieldOffset(composite, e.Name)
	if !ok {
		return UnknownAddress
	}
	return base.AddInt64Offset(offset)
}

func (r *resolver) subscriptAddress(e *cfa.Subscript) Address {
	base := r.pointerValue(e.Array)
	if base.IsUnknown() {
		return UnknownAddress
	}

	elem, ok := cfa.ElemType(e.Array.Type())
	if !ok {
		return UnknownAddress
	}
	size, ok := r.b.machine().Sizeof(elem)
	if !ok {
		return UnknownAddress
	}

	v, ok := r.eval(e.Index)
	if !ok {
		return UnknownAddress
	}
	index, ok := toInt(v)
	if !ok {
		return UnknownAddress
	}
	return base.AddOffset(index.Mul(index, big.NewInt(size)))
}

// pointerValue returns the address held by a pointer expression. Arrays decay
// to the address of their first element.
func (r *resolver) pointerValue(e cfa.Expr) Address {
	if _, ok := cfa.Canonical(e.Type()).(*cfa.Array); ok {
		return r.address(e)
	}

	v, ok := r.eval(e)
	if !ok {
		return UnknownAddress
	}
	switch v := v.(type) {
	case Address:
		return v
	case *big.Int:
		return NewConcreteAddress(v)
	default:
		return UnknownAddress
	}
}

// value returns the value of the lvalue e. Aggregates evaluate to their
// address. If the address space does not hold the value, the variable
// bindings are searched by name.
func (r *resolver) value(e cfa.Expr) (Value, bool) {
	addr := r.address(e)
	if !addr.IsUnknown() {
		if cfa.IsAggregate(e.Type()) {
			return addr, true
		} else if v, ok := r.state.ValueFromMemory(e, addr); ok {
			return v, true
		}
	}

	if lhs, ok := leftHandSideOf(e); ok && r.state.HasValueForLeftHandSide(lhs) {
		return r.state.VariableValue(lhs), true
	}
	return nil, false
}

// leftHandSideOf returns the binding name of an identifier or a chain of
// direct member accesses rooted at an identifier.
func leftHandSideOf(e cfa.Expr) (LeftHandSide, bool) {
	switch e := e.(type) {
	case *cfa.IDExpr:
		return IdentifierOf(e.Decl), true
	case *cfa.FieldRef:
		if e.Deref {
			return nil, false
		}
		switch owner, _ := leftHandSideOf(e.Owner); owner := owner.(type) {
		case *Identifier:
			return NewFieldChain(owner.Name, owner.Function, e.Name), true
		case *FieldChain:
			return owner.Append(e.Name), true
		}
	}
	return nil, false
}
