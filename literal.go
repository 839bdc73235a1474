package cex

import (
	"math/big"

	"github.com/benbjohnson/cex/cfa"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// ValueLiteral is the decoded value of an lvalue: unknown, an explicit
// literal or a literal cast to a narrower type.
type ValueLiteral interface {
	IsUnknown() bool
	String() string
	valueLiteral()
}

func (unknownLiteral) valueLiteral()   {}
func (*ExplicitLiteral) valueLiteral() {}
func (*CastLiteral) valueLiteral()     {}

type unknownLiteral struct{}

// Unknown is the literal of a value that could not be decoded.
var Unknown ValueLiteral = unknownLiteral{}

func (unknownLiteral) IsUnknown() bool { return true }
func (unknownLiteral) String() string  { return "UNKNOWN" }

// ExplicitLiteral is an integer or floating point constant in C syntax.
type ExplicitLiteral struct {
	Expr cfa.Expr
}

// NewIntegerLiteral returns an explicit literal of the given integer type.
func NewIntegerLiteral(v *big.Int, t cfa.Type) *ExplicitLiteral {
	return &ExplicitLiteral{Expr: &cfa.IntLiteral{Value: v, Typ: t}}
}

func (l *ExplicitLiteral) IsUnknown() bool { return false }
func (l *ExplicitLiteral) String() string  { return l.Expr.String() }

// Type returns the numeric type of the literal.
func (l *ExplicitLiteral) Type() cfa.Type { return l.Expr.Type() }

// CastLiteral is an explicit literal converted to Target. It represents
// values that have no literal syntax in their own type, such as INT_MIN.
type CastLiteral struct {
	Of     *ExplicitLiteral
	Target cfa.Type
}

func (l *CastLiteral) IsUnknown() bool { return false }
func (l *CastLiteral) String() string  { return "(" + l.Target.String() + ") " + l.Of.String() }

// widenings maps an integer kind to the next larger kind of the same family.
var widenings = map[cfa.BasicKind]cfa.BasicKind{
	cfa.Char:   cfa.Short,
	cfa.SChar:  cfa.Short,
	cfa.Short:  cfa.Int,
	cfa.UChar:  cfa.UShort,
	cfa.UShort: cfa.UInt,
	cfa.Int:    cfa.Long,
	cfa.UInt:   cfa.ULong,
	cfa.Long:   cfa.LongLong,
	cfa.ULong:  cfa.ULongLong,
}

// unsignedKinds maps a signed integer kind to the unsigned kind of the same width.
var unsignedKinds = map[cfa.BasicKind]cfa.BasicKind{
	cfa.Char:     cfa.UChar,
	cfa.SChar:    cfa.UChar,
	cfa.Short:    cfa.UShort,
	cfa.Int:      cfa.UInt,
	cfa.Long:     cfa.ULong,
	cfa.LongLong: cfa.ULongLong,
}

// encodeLiteral returns the literal for a raw model value of type t.
func (b *AssumptionBuilder) encodeLiteral(v Value, t cfa.Type) ValueLiteral {
	switch ct := cfa.Canonical(t).(type) {
	case *cfa.Basic:
		if ct.Kind.IsInteger() {
			return b.encodeInteger(v, ct)
		} else if ct.Kind.IsFloat() {
			return b.encodeFloat(v, ct)
		}
		return Unknown
	case *cfa.Pointer, *cfa.Array:
		return b.encodeAddress(AddressOf(v))
	default:
		return Unknown
	}
}

func (b *AssumptionBuilder) encodeInteger(v Value, t *cfa.Basic) ValueLiteral {
	n, ok := toInt(v)
	if !ok {
		if kind, _ := classify(v); kind == malformedValue || kind == decimalValue {
			b.logger().Warn("cannot decode integer value",
				zap.String("value", formatValue(v)),
				zap.Stringer("type", t))
		}
		return Unknown
	}

	lo, hi := b.machine().MinInteger(t), b.machine().MaxInteger(t)
	if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
		if b.Config.AssumeLinearArithmetics {
			return Unknown
		}
		n = b.wrapInteger(n, t)
	}
	return b.integerLiteral(n, t)
}

// wrapInteger converts n to t with two's complement wraparound. Conversion to
// _Bool yields 1 for any non-zero value.
func (b *AssumptionBuilder) wrapInteger(n *big.Int, t *cfa.Basic) *big.Int {
	if t.Kind == cfa.Bool {
		if n.Sign() != 0 {
			return big.NewInt(1)
		}
		return new(big.Int)
	}
	return wrap(n, b.machine().Bits(t), b.machine().IsSigned(t))
}

// wrap reduces n modulo 2^bits and reinterprets the result as signed if
// requested. Widths up to 256 bits are supported.
func wrap(n *big.Int, bits int, signed bool) *big.Int {
	assert(bits > 0 && bits < 256, "unsupported integer width: %d", bits)

	u, _ := uint256.FromBig(n)
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits))
	mask.SubUint64(mask, 1)
	u.And(u, mask)

	result := u.ToBig()
	if signed && result.Bit(bits-1) == 1 {
		result.Sub(result, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return result
}

// integerLiteral returns the literal for n, which lies within the range of t.
// A negative value whose magnitude exceeds the maximum of t cannot be written
// as a negated literal of t, so it is written in the next larger type that
// holds it and cast back to t. Without such a type, the bit pattern is written
// as an unsigned literal of the same width.
func (b *AssumptionBuilder) integerLiteral(n *big.Int, t *cfa.Basic) ValueLiteral {
	lit := NewIntegerLiteral(n, t)
	if n.Sign() >= 0 {
		return lit
	}

	abs := new(big.Int).Abs(n)
	if abs.Cmp(b.machine().MaxInteger(t)) <= 0 {
		return lit
	}

	for kind, ok := widenings[t.Kind]; ok; kind, ok = widenings[kind] {
		wider := cfa.Typ[kind]
		if abs.Cmp(b.machine().MaxInteger(wider)) <= 0 {
			return &CastLiteral{Of: NewIntegerLiteral(n, wider), Target: t}
		}
	}
	if kind, ok := unsignedKinds[t.Kind]; ok {
		u := wrap(n, b.machine().Bits(t), false)
		return &CastLiteral{Of: NewIntegerLiteral(u, cfa.Typ[kind]), Target: t}
	}
	return lit
}

func (b *AssumptionBuilder) encodeFloat(v Value, t *cfa.Basic) ValueLiteral {
	kind, _ := classify(v)
	switch kind {
	case nonFiniteValue, symbolValue:
		return Unknown
	case malformedValue:
		b.logger().Warn("cannot decode floating point value",
			zap.String("value", formatValue(v)),
			zap.Stringer("type", t))
		return Unknown
	}
	if b.Config.AssumeLinearArithmetics {
		return Unknown
	}

	r, _ := toRat(v)
	prec := uint(53)
	switch t.Kind {
	case cfa.Float:
		prec = 24
	case cfa.LongDouble:
		prec = 64
	}
	f := new(big.Float).SetPrec(prec).SetRat(r)
	return &ExplicitLiteral{Expr: &cfa.FloatLiteral{Value: f, Typ: t}}
}

// encodeAddress returns the literal of a pointer value. Addresses are written
// as long long, or unsigned long long if they exceed LLONG_MAX.
func (b *AssumptionBuilder) encodeAddress(addr Address) ValueLiteral {
	if !addr.IsConcrete() {
		return Unknown
	}

	n := addr.Value()
	if n.Sign() < 0 {
		n = wrap(n, int(b.machine().PointerSize*b.machine().CharBits()), false)
	}

	llong := cfa.Typ[cfa.LongLong]
	if n.Cmp(b.machine().MaxInteger(llong)) <= 0 {
		return NewIntegerLiteral(n, llong)
	}
	ullong := cfa.Typ[cfa.ULongLong]
	if n.Cmp(b.machine().MaxInteger(ullong)) <= 0 {
		return NewIntegerLiteral(n, ullong)
	}
	return Unknown
}
