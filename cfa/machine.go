package cfa

import (
	"math/big"
)

// Machine describes the target platform: sizes and alignments of types,
// struct layout and integer ranges. All sizes are in bytes.
type Machine struct {
	Name string

	sizes  [LongDouble + 1]int64
	aligns [LongDouble + 1]int64

	PointerSize  int64
	PointerAlign int64
	EnumSize     int64
	CharSigned   bool
}

// Linux32 is a 32-bit x86 Linux target (ILP32).
var Linux32 = &Machine{
	Name: "linux32",
	sizes: [...]int64{
		Bool: 1, Char: 1, SChar: 1, UChar: 1,
		Short: 2, UShort: 2,
		Int: 4, UInt: 4,
		Long: 4, ULong: 4,
		LongLong: 8, ULongLong: 8,
		Float: 4, Double: 8, LongDouble: 12,
	},
	aligns: [...]int64{
		Bool: 1, Char: 1, SChar: 1, UChar: 1,
		Short: 2, UShort: 2,
		Int: 4, UInt: 4,
		Long: 4, ULong: 4,
		LongLong: 4, ULongLong: 4,
		Float: 4, Double: 4, LongDouble: 4,
	},
	PointerSize:  4,
	PointerAlign: 4,
	EnumSize:     4,
	CharSigned:   true,
}

// Linux64 is a 64-bit x86 Linux target (LP64).
var Linux64 = &Machine{
	Name: "linux64",
	sizes: [...]int64{
		Bool: 1, Char: 1, SChar: 1, UChar: 1,
		Short: 2, UShort: 2,
		Int: 4, UInt: 4,
		Long: 8, ULong: 8,
		LongLong: 8, ULongLong: 8,
		Float: 4, Double: 8, LongDouble: 16,
	},
	aligns: [...]int64{
		Bool: 1, Char: 1, SChar: 1, UChar: 1,
		Short: 2, UShort: 2,
		Int: 4, UInt: 4,
		Long: 8, ULong: 8,
		LongLong: 8, ULongLong: 8,
		Float: 4, Double: 8, LongDouble: 16,
	},
	PointerSize:  8,
	PointerAlign: 8,
	EnumSize:     4,
	CharSigned:   true,
}

// MachineByName returns a predefined machine model by name.
func MachineByName(name string) (*Machine, bool) {
	switch name {
	case "linux32", "LINUX32":
		return Linux32, true
	case "linux64", "LINUX64", "":
		return Linux64, true
	default:
		return nil, false
	}
}

// String returns the name of the machine.
func (m *Machine) String() string { return m.Name }

// CharBits returns the number of bits in a char.
func (m *Machine) CharBits() int64 { return 8 }

// Sizeof returns the size of t in bytes. Returns false for types without a
// static size such as functions, incomplete types and variable length arrays.
func (m *Machine) Sizeof(t Type) (int64, bool) {
	switch t := Canonical(t).(type) {
	case *Basic:
		return m.sizes[t.Kind], t.Kind != InvalidKind
	case *Void:
		return 1, true
	case *Pointer:
		return m.PointerSize, true
	case *Enum:
		return m.EnumSize, true
	case *Array:
		if !t.HasConstantLen() {
			return 0, false
		}
		n, ok := m.Sizeof(t.Elem)
		if !ok {
			return 0, false
		}
		return n * t.Len, true
	case *Composite:
		l, ok := m.layout(t)
		if !ok {
			return 0, false
		}
		return l.size, true
	default:
		return 0, false
	}
}

// Alignof returns the alignment of t in bytes.
func (m *Machine) Alignof(t Type) (int64, bool) {
	switch t := Canonical(t).(type) {
	case *Basic:
		return m.aligns[t.Kind], t.Kind != InvalidKind
	case *Void:
		return 1, true
	case *Pointer:
		return m.PointerAlign, true
	case *Enum:
		return m.EnumSize, true
	case *Array:
		return m.Alignof(t.Elem)
	case *Composite:
		l, ok := m.layout(t)
		if !ok {
			return 0, false
		}
		return l.align, true
	default:
		return 0, false
	}
}

// FieldOffsetInBits returns the offset of the named member from the start of
// the composite, in bits.
func (m *Machine) FieldOffsetInBits(t *Composite, name string) (int64, bool) {
	l, ok := m.layout(t)
	if !ok {
		return 0, false
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return l.offsets[i], true
		}
	}
	return 0, false
}

// FieldOffset returns the byte offset of the named member. Returns false if
// the member does not start on a byte boundary.
func (m *Machine) FieldOffset(t *Composite, name string) (int64, bool) {
	bits, ok := m.FieldOffsetInBits(t, name)
	if !ok || bits%m.CharBits() != 0 {
		return 0, false
	}
	return bits / m.CharBits(), true
}

// IsSigned returns true if values of the basic type carry a sign.
func (m *Machine) IsSigned(t *Basic) bool {
	if t.Kind == Char {
		return m.CharSigned
	}
	return !t.Kind.IsUnsigned()
}

// Bits returns the width of an integer type in bits. Bool is one byte wide
// for layout but holds a single bit of value.
func (m *Machine) Bits(t *Basic) int {
	if t.Kind == Bool {
		return 1
	}
	return int(m.sizes[t.Kind] * m.CharBits())
}

// MinInteger returns the smallest value representable by an integer type.
func (m *Machine) MinInteger(t *Basic) *big.Int {
	if !m.IsSigned(t) {
		return new(big.Int)
	}
	v := new(big.Int).Lsh(big.NewInt(1), uint(m.Bits(t)-1))
	return v.Neg(v)
}

// MaxInteger returns the largest value representable by an integer type.
func (m *Machine) MaxInteger(t *Basic) *big.Int {
	n := m.Bits(t)
	if m.IsSigned(t) {
		n--
	}
	v := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return v.Sub(v, big.NewInt(1))
}

type compositeLayout struct {
	offsets []int64 // in bits
	size    int64   // in bytes
	align   int64
}

// layout computes member offsets following the System V ABI: a bit-field is
// moved to the next storage unit of its declared type if it would otherwise
// straddle one, a zero-width bit-field aligns the next member to its type and
// every union member starts at offset zero.
func (m *Machine) layout(t *Composite) (compositeLayout, bool) {
	l := compositeLayout{offsets: make([]int64, len(t.Fields)), align: 1}
	cb := m.CharBits()

	var off, end int64
	for i, f := range t.Fields {
		if t.Kind == UnionKind {
			off = 0
		}

		bf, isBitField := f.Type.(*BitField)
		size, ok := m.Sizeof(f.Type)
		if !ok {
			// A flexible array member may close out a struct.
			if arr, isArr := Canonical(f.Type).(*Array); isArr && !arr.HasConstantLen() && i == len(t.Fields)-1 {
				size = 0
			} else {
				return l, false
			}
		}
		align, ok := m.Alignof(f.Type)
		if !ok {
			return l, false
		}
		if align > l.align {
			l.align = align
		}

		if isBitField {
			unit := size * cb
			if bf.Bits == 0 {
				off = roundUp(off, align*cb)
				l.offsets[i] = off
				continue
			}
			if off/unit != (off+int64(bf.Bits)-1)/unit {
				off = roundUp(off, unit)
			}
			l.offsets[i] = off
			off += int64(bf.Bits)
		} else {
			off = roundUp(off, align*cb)
			l.offsets[i] = off
			off += size * cb
		}

		if off > end {
			end = off
		}
	}

	l.size = roundUp(roundUp(end, cb)/cb, l.align)
	return l, true
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
