package cex

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/cex/cfa"
	"github.com/benbjohnson/immutable"
)

// Value is a raw model value bound in a concrete state. Values are integers
// (*big.Int, int64), decimals (*big.Rat, *big.Float, float64), their textual
// form as a string, or an Address.
type Value = interface{}

// RegionNamer returns the name of the memory region that holds the value of
// expr when it is read at addr.
type RegionNamer func(expr cfa.Expr, addr Address) string

// TypeRegionNamer models a type-indexed memory: each canonical C type has its
// own region.
func TypeRegionNamer(expr cfa.Expr, addr Address) string {
	return cfa.Canonical(expr.Type()).String()
}

// SingleRegionNamer returns a namer that places every value in one region.
func SingleRegionNamer(name string) RegionNamer {
	return func(cfa.Expr, Address) string { return name }
}

// ConcreteState is an immutable snapshot of variable values, variable
// addresses and memory contents at one program point.
type ConcreteState struct {
	variables   *immutable.SortedMap[string, Value]
	addresses   *immutable.SortedMap[string, Address]
	regions     *immutable.SortedMap[string, *immutable.SortedMap[Address, Value]]
	regionNamer RegionNamer
}

// NewConcreteState returns an empty state using a type-indexed memory.
func NewConcreteState() *ConcreteState {
	return &ConcreteState{
		variables:   immutable.NewSortedMap[string, Value](nil),
		addresses:   immutable.NewSortedMap[string, Address](nil),
		regions:     immutable.NewSortedMap[string, *immutable.SortedMap[Address, Value]](nil),
		regionNamer: TypeRegionNamer,
	}
}

func (s *ConcreteState) clone() *ConcreteState {
	other := *s
	return &other
}

// WithVariable returns a copy of s with the value of lhs bound to v.
func (s *ConcreteState) WithVariable(lhs LeftHandSide, v Value) *ConcreteState {
	other := s.clone()
	other.variables = s.variables.Set(lhs.Key(), v)
	return other
}

// WithVariableAddress returns a copy of s with the address of lhs bound to addr.
func (s *ConcreteState) WithVariableAddress(lhs LeftHandSide, addr Address) *ConcreteState {
	assert(!addr.IsUnknown(), "unknown address bound to %s", lhs)
	other := s.clone()
	other.addresses = s.addresses.Set(lhs.Key(), addr)
	return other
}

// WithMemory returns a copy of s with v stored at addr in the named region.
func (s *ConcreteState) WithMemory(region string, addr Address, v Value) *ConcreteState {
	assert(!addr.IsUnknown(), "value stored at unknown address in region %q", region)
	m, ok := s.regions.Get(region)
	if !ok {
		m = immutable.NewSortedMap[Address, Value](addressComparer{})
	}
	other := s.clone()
	other.regions = s.regions.Set(region, m.Set(addr, v))
	return other
}

// WithRegionNamer returns a copy of s using fn to select memory regions.
func (s *ConcreteState) WithRegionNamer(fn RegionNamer) *ConcreteState {
	other := s.clone()
	other.regionNamer = fn
	return other
}

// IsEmpty returns true if the state holds no bindings at all.
func (s *ConcreteState) IsEmpty() bool {
	return s.variables.Len() == 0 && s.addresses.Len() == 0 && s.regions.Len() == 0
}

// HasValueForLeftHandSide returns true if lhs has a value in the state.
func (s *ConcreteState) HasValueForLeftHandSide(lhs LeftHandSide) bool {
	_, ok := s.variables.Get(lhs.Key())
	return ok
}

// VariableValue returns the value bound to lhs. Panics if lhs is unbound;
// check HasValueForLeftHandSide() first.
func (s *ConcreteState) VariableValue(lhs LeftHandSide) Value {
	v, ok := s.variables.Get(lhs.Key())
	assert(ok, "no value for variable %s", lhs)
	return v
}

// HasAddressOfVariable returns true if lhs has an address in the state.
func (s *ConcreteState) HasAddressOfVariable(lhs LeftHandSide) bool {
	_, ok := s.addresses.Get(lhs.Key())
	return ok
}

// VariableAddress returns the address of lhs. Panics if lhs has no address;
// check HasAddressOfVariable() first.
func (s *ConcreteState) VariableAddress(lhs LeftHandSide) Address {
	addr, ok := s.addresses.Get(lhs.Key())
	assert(ok, "no address for variable %s", lhs)
	return addr
}

// RegionName returns the region that holds expr at addr.
func (s *ConcreteState) RegionName(expr cfa.Expr, addr Address) string {
	return s.regionNamer(expr, addr)
}

// ValueFromMemory returns the value of expr stored at addr. Returns false if
// the region or the address within it is not modeled.
func (s *ConcreteState) ValueFromMemory(expr cfa.Expr, addr Address) (Value, bool) {
	if addr.IsUnknown() {
		return nil, false
	}
	m, ok := s.regions.Get(s.regionNamer(expr, addr))
	if !ok {
		return nil, false
	}
	return m.Get(addr)
}

// Dump returns a deterministic listing of all bindings.
func (s *ConcreteState) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "VARIABLES")
	for itr := s.variables.Iterator(); !itr.Done(); {
		k, v, _ := itr.Next()
		fmt.Fprintf(&buf, "  %s = %s\n", k, formatValue(v))
	}

	fmt.Fprintln(&buf, "ADDRESSES")
	for itr := s.addresses.Iterator(); !itr.Done(); {
		k, addr, _ := itr.Next()
		fmt.Fprintf(&buf, "  &%s = %s\n", k, addr.CommentString())
	}

	fmt.Fprintln(&buf, "MEMORY")
	for itr := s.regions.Iterator(); !itr.Done(); {
		name, m, _ := itr.Next()
		fmt.Fprintf(&buf, "  %s:\n", name)
		for mitr := m.Iterator(); !mitr.Done(); {
			addr, v, _ := mitr.Next()
			fmt.Fprintf(&buf, "    %s = %s\n", addr.CommentString(), formatValue(v))
		}
	}

	return buf.String()
}
