package cex

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// valueKind classifies a raw model value.
type valueKind int

const (
	malformedValue = valueKind(iota)
	integerValue
	decimalValue
	nonFiniteValue
	symbolValue
)

// classify normalizes a raw model value. Integral decimals are returned as
// integers. The second result is a *big.Int, a *big.Rat or nil.
func classify(v Value) (valueKind, interface{}) {
	switch v := v.(type) {
	case nil:
		return malformedValue, nil
	case Address:
		if v.IsConcrete() {
			return integerValue, v.Value()
		} else if v.IsSymbolic() {
			return symbolValue, nil
		}
		return malformedValue, nil
	case int:
		return integerValue, big.NewInt(int64(v))
	case int64:
		return integerValue, big.NewInt(v)
	case uint64:
		return integerValue, new(big.Int).SetUint64(v)
	case *big.Int:
		return integerValue, v
	case *big.Rat:
		return classifyRat(v)
	case *big.Float:
		if v.IsInf() {
			return nonFiniteValue, nil
		}
		r, _ := v.Rat(nil)
		return classifyRat(r)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nonFiniteValue, nil
		}
		return classifyRat(new(big.Rat).SetFloat64(v))
	case bool:
		if v {
			return integerValue, big.NewInt(1)
		}
		return integerValue, big.NewInt(0)
	case string:
		s := strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimLeft(s, "+-")) {
		case "nan", "inf", "infinity":
			return nonFiniteValue, nil
		}
		if n, ok := new(big.Int).SetString(s, 0); ok {
			return integerValue, n
		}
		if r, ok := new(big.Rat).SetString(s); ok {
			return classifyRat(r)
		}
		return malformedValue, nil
	default:
		return malformedValue, nil
	}
}

func classifyRat(r *big.Rat) (valueKind, interface{}) {
	if r.IsInt() {
		return integerValue, new(big.Int).Set(r.Num())
	}
	return decimalValue, r
}

// toInt returns v as an integer. Decimals with a fractional part are rejected.
func toInt(v Value) (*big.Int, bool) {
	kind, n := classify(v)
	if kind != integerValue {
		return nil, false
	}
	return new(big.Int).Set(n.(*big.Int)), true
}

// toRat returns v as a finite rational.
func toRat(v Value) (*big.Rat, bool) {
	switch kind, n := classify(v); kind {
	case integerValue:
		return new(big.Rat).SetInt(n.(*big.Int)), true
	case decimalValue:
		return new(big.Rat).Set(n.(*big.Rat)), true
	default:
		return nil, false
	}
}

// formatValue returns a printable form of a raw model value.
func formatValue(v Value) string {
	switch v := v.(type) {
	case Address:
		return v.CommentString()
	case *big.Rat:
		if v.IsInt() {
			return v.Num().String()
		}
		return v.RatString()
	case *big.Float:
		return v.Text('g', -1)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
