package cex

import (
	"math/big"

	"github.com/benbjohnson/cex/cfa"
)

// eval numerically evaluates e. The result is a *big.Int, a *big.Rat for
// non-integral decimals or a symbolic Address for pointers that have no
// integer value.
func (r *resolver) eval(e cfa.Expr) (Value, bool) {
	switch e := e.(type) {
	case *cfa.IntLiteral:
		return new(big.Int).Set(e.Value), true
	case *cfa.CharLiteral:
		return big.NewInt(int64(e.Value)), true
	case *cfa.FloatLiteral:
		if e.Value.IsInf() {
			return nil, false
		}
		v, _ := e.Value.Rat(nil)
		return v, true
	case *cfa.IDExpr, *cfa.FieldRef, *cfa.Subscript, *cfa.Deref:
		v, ok := r.value(e)
		if !ok {
			return nil, false
		}
		return normalize(v, e.Type())
	case *cfa.AddrOf:
		if addr := r.address(e.Operand); addr.IsConcrete() {
			return addr.Value(), true
		}
		return nil, false
	case *cfa.CastExpr:
		v, ok := r.eval(e.X)
		if !ok {
			return nil, false
		}
		return r.convert(v, e.Typ)
	case *cfa.UnaryExpr:
		return r.evalUnary(e)
	case *cfa.BinaryExpr:
		return r.evalBinary(e)
	default:
		return nil, false
	}
}

// normalize converts a raw model value of type t into an evaluation result.
func normalize(v Value, t cfa.Type) (Value, bool) {
	if cfa.IsPointerOrArray(t) {
		switch addr := AddressOf(v); {
		case addr.IsConcrete():
			return addr.Value(), true
		case addr.IsSymbolic():
			return addr, true
		default:
			return nil, false
		}
	}

	switch kind, n := classify(v); kind {
	case integerValue:
		return new(big.Int).Set(n.(*big.Int)), true
	case decimalValue:
		return n, true
	default:
		return nil, false
	}
}

// convert applies a C cast to an evaluated value.
func (r *resolver) convert(v Value, t cfa.Type) (Value, bool) {
	basic, ok := cfa.BasicOf(t)
	if !ok {
		return v, true
	}

	switch {
	case basic.Kind.IsInteger():
		switch v := v.(type) {
		case *big.Int:
			return r.fit(v, t)
		case *big.Rat:
			// Conversion from floating point truncates toward zero.
			n := new(big.Int).Quo(v.Num(), v.Denom())
			lo, hi := r.b.machine().MinInteger(basic), r.b.machine().MaxInteger(basic)
			if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
				return nil, false
			}
			return n, true
		default:
			return nil, false
		}
	case basic.Kind.IsFloat():
		if rat, ok := toRat(v); ok {
			return rat, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// fit converts an integer result to the integer type t. Out of range values
// wrap around unless linear arithmetic is assumed.
func (r *resolver) fit(n *big.Int, t cfa.Type) (Value, bool) {
	basic, ok := cfa.BasicOf(t)
	if !ok || !basic.Kind.IsInteger() {
		return n, true
	}
	lo, hi := r.b.machine().MinInteger(basic), r.b.machine().MaxInteger(basic)
	if n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0 {
		return n, true
	} else if r.b.Config.AssumeLinearArithmetics {
		return nil, false
	}
	return r.b.wrapInteger(n, basic), true
}

func (r *resolver) evalUnary(e *cfa.UnaryExpr) (Value, bool) {
	v, ok := r.eval(e.X)
	if !ok {
		return nil, false
	}

	switch e.Op {
	case cfa.PLUS:
		return v, true
	case cfa.NEG:
		switch v := v.(type) {
		case *big.Int:
			return r.fit(new(big.Int).Neg(v), e.Typ)
		case *big.Rat:
			return new(big.Rat).Neg(v), true
		}
	case cfa.COMPLEMENT:
		if r.b.Config.AssumeLinearArithmetics {
			return nil, false
		}
		if v, ok := v.(*big.Int); ok {
			return r.fit(new(big.Int).Not(v), e.Typ)
		}
	case cfa.NOT:
		if z, ok := isZero(v); ok {
			return boolValue(z), true
		}
	}
	return nil, false
}

func (r *resolver) evalBinary(e *cfa.BinaryExpr) (Value, bool) {
	lptr, rptr := cfa.IsPointerOrArray(e.LHS.Type()), cfa.IsPointerOrArray(e.RHS.Type())
	if (e.Op == cfa.ADD || e.Op == cfa.SUB) && lptr != rptr {
		return r.evalPointerArithmetic(e, lptr)
	} else if !r.isEvaluable(e) {
		return nil, false
	}

	lhs, ok := r.eval(e.LHS)
	if !ok {
		return nil, false
	}
	rhs, ok := r.eval(e.RHS)
	if !ok {
		return nil, false
	}

	// Symbolic pointers can only be compared for identity.
	la, lsym := lhs.(Address)
	ra, rsym := rhs.(Address)
	if lsym || rsym {
		if !lsym || !rsym {
			return nil, false
		}
		switch e.Op {
		case cfa.EQ:
			return boolValue(la.Equal(ra)), true
		case cfa.NE:
			return boolValue(!la.Equal(ra)), true
		}
		return nil, false
	}

	x, xint := lhs.(*big.Int)
	y, yint := rhs.(*big.Int)
	if xint && yint {
		return r.evalInteger(e, x, y)
	}

	xr, ok := toRat(lhs)
	if !ok {
		return nil, false
	}
	yr, ok := toRat(rhs)
	if !ok {
		return nil, false
	}
	return r.evalRational(e, xr, yr)
}

// isEvaluable returns false for operators excluded by linear arithmetic.
func (r *resolver) isEvaluable(e *cfa.BinaryExpr) bool {
	cfg := r.b.Config
	if !cfg.AssumeLinearArithmetics {
		return true
	}

	switch e.Op {
	case cfa.ADD, cfa.SUB:
		return true
	case cfa.MUL:
		return cfg.AllowMultiplicationWithConstants && (cfa.IsLiteral(e.LHS) || cfa.IsLiteral(e.RHS))
	case cfa.DIV, cfa.MOD:
		return cfg.AllowDivisionAndModuloByConstants && cfa.IsLiteral(e.RHS)
	default:
		return false
	}
}

// evalPointerArithmetic evaluates pointer +/- integer. The integer operand is
// scaled by the size of the pointee.
func (r *resolver) evalPointerArithmetic(e *cfa.BinaryExpr, lptr bool) (Value, bool) {
	ptr, offset := e.LHS, e.RHS
	if !lptr {
		if e.Op == cfa.SUB {
			return nil, false
		}
		ptr, offset = e.RHS, e.LHS
	}

	base := r.pointerValue(ptr)
	if base.IsUnknown() {
		return nil, false
	}
	elem, ok := cfa.ElemType(ptr.Type())
	if !ok {
		return nil, false
	}
	size, ok := r.b.machine().Sizeof(elem)
	if !ok {
		return nil, false
	}

	v, ok := r.eval(offset)
	if !ok {
		return nil, false
	}
	n, ok := toInt(v)
	if !ok {
		return nil, false
	}
	n.Mul(n, big.NewInt(size))
	if e.Op == cfa.SUB {
		n.Neg(n)
	}

	if addr := base.AddOffset(n); addr.IsConcrete() {
		return addr.Value(), true
	}
	return nil, false
}

func (r *resolver) evalInteger(e *cfa.BinaryExpr, x, y *big.Int) (Value, bool) {
	z := new(big.Int)
	switch e.Op {
	case cfa.ADD:
		z.Add(x, y)
	case cfa.SUB:
		z.Sub(x, y)
	case cfa.MUL:
		z.Mul(x, y)
	case cfa.DIV:
		if y.Sign() == 0 {
			return nil, false
		}
		z.Quo(x, y)
	case cfa.MOD:
		if y.Sign() == 0 {
			return nil, false
		}
		z.Rem(x, y)
	case cfa.AND:
		z.And(x, y)
	case cfa.OR:
		z.Or(x, y)
	case cfa.XOR:
		z.Xor(x, y)
	case cfa.SHL, cfa.SHR:
		if y.Sign() < 0 || y.Cmp(big.NewInt(255)) > 0 {
			return nil, false
		}
		if e.Op == cfa.SHL {
			z.Lsh(x, uint(y.Uint64()))
		} else {
			z.Rsh(x, uint(y.Uint64()))
		}
	case cfa.LAND:
		return boolValue(x.Sign() != 0 && y.Sign() != 0), true
	case cfa.LOR:
		return boolValue(x.Sign() != 0 || y.Sign() != 0), true
	default:
		if e.Op.IsCompare() {
			return boolValue(compareResult(e.Op, x.Cmp(y))), true
		}
		return nil, false
	}
	return r.fit(z, e.Typ)
}

func (r *resolver) evalRational(e *cfa.BinaryExpr, x, y *big.Rat) (Value, bool) {
	z := new(big.Rat)
	switch e.Op {
	case cfa.ADD:
		z.Add(x, y)
	case cfa.SUB:
		z.Sub(x, y)
	case cfa.MUL:
		z.Mul(x, y)
	case cfa.DIV:
		if y.Sign() == 0 {
			return nil, false
		}
		z.Quo(x, y)
	case cfa.LAND:
		return boolValue(x.Sign() != 0 && y.Sign() != 0), true
	case cfa.LOR:
		return boolValue(x.Sign() != 0 || y.Sign() != 0), true
	default:
		if e.Op.IsCompare() {
			return boolValue(compareResult(e.Op, x.Cmp(y))), true
		}
		return nil, false
	}
	return r.convert(z, e.Typ)
}

func compareResult(op cfa.BinaryOp, cmp int) bool {
	switch op {
	case cfa.EQ:
		return cmp == 0
	case cfa.NE:
		return cmp != 0
	case cfa.LT:
		return cmp < 0
	case cfa.LE:
		return cmp <= 0
	case cfa.GT:
		return cmp > 0
	case cfa.GE:
		return cmp >= 0
	default:
		panic("unreachable")
	}
}

func isZero(v Value) (bool, bool) {
	switch v := v.(type) {
	case *big.Int:
		return v.Sign() == 0, true
	case *big.Rat:
		return v.Sign() == 0, true
	default:
		return false, false
	}
}

func boolValue(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
