package cex

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// AddressKind classifies an Address.
type AddressKind int

const (
	UnknownAddressKind = AddressKind(iota)
	ConcreteAddressKind
	SymbolicAddressKind
)

// Address represents a memory location in a concrete state. An address is
// either unknown, a concrete integer or an opaque symbolic token.
//
// Equality, ordering and arithmetic are undefined for the unknown address.
// Callers must check IsUnknown() first; violating this panics.
type Address struct {
	kind   AddressKind
	value  *big.Int
	symbol string
}

// UnknownAddress is the address of a location that could not be resolved.
var UnknownAddress = Address{}

// NewConcreteAddress returns an address at the exact location v.
func NewConcreteAddress(v *big.Int) Address {
	assert(v != nil, "concrete address requires a value")
	return Address{kind: ConcreteAddressKind, value: new(big.Int).Set(v)}
}

// NewSymbolicAddress returns an address identified by an opaque token.
func NewSymbolicAddress(symbol string) Address {
	return Address{kind: SymbolicAddressKind, symbol: symbol}
}

// AddressOf normalizes a raw model value into an address. Integers and
// integral decimals become concrete addresses; any other value is treated as
// a symbolic token. An Address is returned unchanged.
func AddressOf(raw interface{}) Address {
	switch raw := raw.(type) {
	case Address:
		return raw
	case int:
		return NewConcreteAddress(big.NewInt(int64(raw)))
	case int64:
		return NewConcreteAddress(big.NewInt(raw))
	case uint64:
		return NewConcreteAddress(new(big.Int).SetUint64(raw))
	case *big.Int:
		return NewConcreteAddress(raw)
	case *big.Rat:
		if raw.IsInt() {
			return NewConcreteAddress(raw.Num())
		}
	case *big.Float:
		if raw.IsInt() {
			v, _ := raw.Int(nil)
			return NewConcreteAddress(v)
		}
	case float64:
		if math.IsNaN(raw) {
			break
		} else if f := big.NewFloat(raw); !f.IsInf() && f.IsInt() {
			v, _ := f.Int(nil)
			return NewConcreteAddress(v)
		}
	case string:
		if v, ok := parseIntegral(raw); ok {
			return NewConcreteAddress(v)
		}
		return NewSymbolicAddress(raw)
	}
	return NewSymbolicAddress(fmt.Sprint(raw))
}

// parseIntegral parses s as an integer, accepting decimals whose fractional
// part is zero (e.g. "12.000").
func parseIntegral(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v, true
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(r.Num()), true
}

// Kind returns the classification of the address.
func (a Address) Kind() AddressKind { return a.kind }

// IsUnknown returns true if the location could not be resolved.
func (a Address) IsUnknown() bool { return a.kind == UnknownAddressKind }

// IsConcrete returns true if the address is an exact integer.
func (a Address) IsConcrete() bool { return a.kind == ConcreteAddressKind }

// IsSymbolic returns true if the address is an opaque token.
func (a Address) IsSymbolic() bool { return a.kind == SymbolicAddressKind }

// Value returns the integer location. Panics if the address is not concrete.
func (a Address) Value() *big.Int {
	assert(a.IsConcrete(), "address value requested for %s address", a.kindName())
	return new(big.Int).Set(a.value)
}

// Symbol returns the token of a symbolic address.
func (a Address) Symbol() string {
	assert(a.IsSymbolic(), "address symbol requested for %s address", a.kindName())
	return a.symbol
}

// AddOffset returns the address n bytes past a. Symbolic addresses cannot be
// offset and yield the unknown address.
func (a Address) AddOffset(n *big.Int) Address {
	assert(!a.IsUnknown(), "offset added to unknown address")
	if !a.IsConcrete() {
		return UnknownAddress
	}
	return Address{kind: ConcreteAddressKind, value: new(big.Int).Add(a.value, n)}
}

// AddInt64Offset is a convenience wrapper around AddOffset.
func (a Address) AddInt64Offset(n int64) Address {
	return a.AddOffset(big.NewInt(n))
}

// AddDecimalOffset adds a decimal offset. Offsets that are not a whole number
// of bytes yield the unknown address.
func (a Address) AddDecimalOffset(n *big.Rat) Address {
	assert(!a.IsUnknown(), "offset added to unknown address")
	if !n.IsInt() {
		return UnknownAddress
	}
	return a.AddOffset(n.Num())
}

// Equal returns true if a and other refer to the same location.
func (a Address) Equal(other Address) bool {
	assert(!a.IsUnknown() && !other.IsUnknown(), "equality on unknown address")
	if a.kind != other.kind {
		return false
	} else if a.IsConcrete() {
		return a.value.Cmp(other.value) == 0
	}
	return a.symbol == other.symbol
}

// Compare returns -1 if a sorts before b, 1 if after and 0 if equal.
// Concrete addresses sort before symbolic ones.
func (a Address) Compare(b Address) int {
	assert(!a.IsUnknown() && !b.IsUnknown(), "comparison on unknown address")
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	} else if a.IsConcrete() {
		return a.value.Cmp(b.value)
	}
	return strings.Compare(a.symbol, b.symbol)
}

// Key returns a string that uniquely identifies the location.
func (a Address) Key() string {
	assert(!a.IsUnknown(), "key requested for unknown address")
	if a.IsConcrete() {
		return a.value.String()
	}
	return "#" + a.symbol
}

// CommentString returns a human readable form of the address. Non-concrete
// addresses never start with a digit so they cannot be mistaken for a literal.
func (a Address) CommentString() string {
	switch a.kind {
	case ConcreteAddressKind:
		return a.value.String()
	case SymbolicAddressKind:
		return "#" + a.symbol
	default:
		return "?"
	}
}

// String returns a debugging representation of the address.
func (a Address) String() string {
	switch a.kind {
	case ConcreteAddressKind:
		return "Address<" + a.value.String() + ">"
	case SymbolicAddressKind:
		return "Address<" + a.symbol + ">"
	default:
		return "Address<unknown>"
	}
}

func (a Address) kindName() string {
	switch a.kind {
	case ConcreteAddressKind:
		return "concrete"
	case SymbolicAddressKind:
		return "symbolic"
	default:
		return "unknown"
	}
}

// addressComparer orders addresses within a memory region.
type addressComparer struct{}

func (addressComparer) Compare(a, b Address) int { return a.Compare(b) }
