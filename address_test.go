package cex_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/benbjohnson/cex"
)

func TestAddressOf(t *testing.T) {
	for _, tt := range []struct {
		name string
		raw  interface{}
		s    string
	}{
		{"Int", 160, "Address<160>"},
		{"Int64", int64(-4), "Address<-4>"},
		{"Uint64", uint64(math.MaxUint64), "Address<18446744073709551615>"},
		{"BigInt", big.NewInt(12), "Address<12>"},
		{"IntegralRat", big.NewRat(24, 2), "Address<12>"},
		{"FractionalRat", big.NewRat(1, 2), "Address<1/2>"},
		{"IntegralFloat", big.NewFloat(8), "Address<8>"},
		{"Float64", float64(16), "Address<16>"},
		{"NaN", math.NaN(), "Address<NaN>"},
		{"DecimalString", "12.000", "Address<12>"},
		{"IntegerString", "1000", "Address<1000>"},
		{"SymbolString", "p@2", "Address<p@2>"},
		{"Address", cex.NewSymbolicAddress("q"), "Address<q>"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if s := cex.AddressOf(tt.raw).String(); s != tt.s {
				t.Fatalf("unexpected address: %s", s)
			}
		})
	}
}

func TestAddress_Kind(t *testing.T) {
	if a := cex.UnknownAddress; !a.IsUnknown() || a.IsConcrete() || a.IsSymbolic() {
		t.Fatal("expected unknown address")
	} else if a := cex.AddressOf(1); !a.IsConcrete() {
		t.Fatal("expected concrete address")
	} else if a := cex.AddressOf("x"); !a.IsSymbolic() || a.Symbol() != "x" {
		t.Fatal("expected symbolic address")
	}
}

func TestAddress_AddOffset(t *testing.T) {
	t.Run("Concrete", func(t *testing.T) {
		a := cex.AddressOf(1000).AddOffset(big.NewInt(12))
		if v := a.Value(); v.Int64() != 1012 {
			t.Fatalf("unexpected value: %s", v)
		} else if v := a.AddInt64Offset(-12).Value(); v.Int64() != 1000 {
			t.Fatalf("unexpected value: %s", v)
		}
	})

	t.Run("Symbolic", func(t *testing.T) {
		if a := cex.AddressOf("p").AddInt64Offset(4); !a.IsUnknown() {
			t.Fatalf("unexpected address: %s", a)
		}
	})

	t.Run("Decimal", func(t *testing.T) {
		if a := cex.AddressOf(8).AddDecimalOffset(big.NewRat(8, 2)); a.Value().Int64() != 12 {
			t.Fatalf("unexpected address: %s", a)
		} else if a := cex.AddressOf(8).AddDecimalOffset(big.NewRat(1, 2)); !a.IsUnknown() {
			t.Fatalf("unexpected address: %s", a)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		cex.UnknownAddress.AddInt64Offset(1)
	})
}

func TestAddress_Equal(t *testing.T) {
	if !cex.AddressOf(4).Equal(cex.AddressOf("4")) {
		t.Fatal("expected equal addresses")
	} else if cex.AddressOf(4).Equal(cex.AddressOf(5)) {
		t.Fatal("expected different addresses")
	} else if cex.AddressOf(4).Equal(cex.AddressOf("p")) {
		t.Fatal("expected concrete and symbolic to differ")
	} else if !cex.AddressOf("p").Equal(cex.NewSymbolicAddress("p")) {
		t.Fatal("expected equal symbols")
	}

	for _, fn := range []func(){
		func() { cex.UnknownAddress.Equal(cex.AddressOf(1)) },
		func() { cex.AddressOf(1).Equal(cex.UnknownAddress) },
		func() { cex.UnknownAddress.Compare(cex.AddressOf(1)) },
		func() { cex.UnknownAddress.Key() },
		func() { cex.AddressOf("p").Value() },
		func() { cex.AddressOf(1).Symbol() },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		}()
	}
}

func TestAddress_Compare(t *testing.T) {
	if cmp := cex.AddressOf(4).Compare(cex.AddressOf(5)); cmp != -1 {
		t.Fatalf("unexpected result: %d", cmp)
	} else if cmp := cex.AddressOf("a").Compare(cex.AddressOf(5)); cmp != 1 {
		t.Fatalf("unexpected result: %d", cmp)
	} else if cmp := cex.AddressOf("a").Compare(cex.AddressOf("a")); cmp != 0 {
		t.Fatalf("unexpected result: %d", cmp)
	}
}

func TestAddress_CommentString(t *testing.T) {
	if s := cex.AddressOf(160).CommentString(); s != "160" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := cex.AddressOf("heap1").CommentString(); s != "#heap1" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := cex.UnknownAddress.CommentString(); s != "?" {
		t.Fatalf("unexpected string: %s", s)
	}
}
