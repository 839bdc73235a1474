package cex_test

import (
	"math/big"
	"testing"

	"github.com/benbjohnson/cex"
	"github.com/benbjohnson/cex/cfa"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	intType    = cfa.Typ[cfa.Int]
	intPtrType = cfa.NewPointer(cfa.Typ[cfa.Int])
)

// local returns a reference to a variable of main.
func local(name string, typ cfa.Type) *cfa.IDExpr {
	return cfa.NewIDExpr(&cfa.Declaration{Name: name, Function: "main", Type: typ})
}

// global returns a reference to a file scope variable.
func global(name string, typ cfa.Type) *cfa.IDExpr {
	return cfa.NewIDExpr(&cfa.Declaration{Name: name, Type: typ})
}

func mainID(name string) *cex.Identifier { return cex.NewIdentifier(name, "main") }

func exprStmt(x cfa.Expr) *cfa.StatementEdge {
	return &cfa.StatementEdge{Stmt: &cfa.ExprStmt{X: x}}
}

func binary(op cfa.BinaryOp, lhs, rhs cfa.Expr, typ cfa.Type) *cfa.BinaryExpr {
	return &cfa.BinaryExpr{Op: op, LHS: lhs, RHS: rhs, Typ: typ}
}

// newListTypes returns "struct data {int h1; int h2[2];}" and a linked node
// type "struct node {struct node *n; struct data d;}".
func newListTypes() (data, node *cfa.Composite) {
	data = cfa.NewStruct("data",
		&cfa.Field{Name: "h1", Type: intType},
		&cfa.Field{Name: "h2", Type: cfa.NewArray(intType, 2)},
	)
	node = cfa.NewStruct("node")
	node.Fields = []*cfa.Field{
		{Name: "n", Type: cfa.NewPointer(&cfa.Elaborated{Kind: cfa.StructTag, Name: "node", Real: node})},
		{Name: "d", Type: &cfa.Elaborated{Kind: cfa.StructTag, Name: "data", Real: data}},
	}
	return data, node
}

// mustStatements builds the assumptions for edge and compares their text.
func mustStatements(tb testing.TB, b *cex.AssumptionBuilder, edge cfa.Edge, state *cex.ConcreteState, want []string) *cex.EdgeAssumptions {
	tb.Helper()
	ea := b.Build(edge, state)
	if diff := cmp.Diff(ea.Statements(), want); diff != "" {
		tb.Fatalf("%s\n%s", diff, state.Dump())
	}
	return ea
}

func TestAssumptionBuilder_Build(t *testing.T) {
	b := cex.NewAssumptionBuilder(cfa.Linux64, cex.DefaultConfig())

	t.Run("Scalar", func(t *testing.T) {
		x := global("x", intType)
		state := cex.NewConcreteState().
			WithVariableAddress(cex.NewIdentifier("x", ""), cex.AddressOf(100)).
			WithMemory("int", cex.AddressOf(100), "0")

		ea := mustStatements(t, b, &cfa.DeclarationEdge{Decl: x.Decl}, state, []string{"x == (0);"})
		if ea.Comment != "" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}
	})

	t.Run("Pointer", func(t *testing.T) {
		p := local("b", intPtrType)
		deref := &cfa.Deref{Operand: p, Typ: intType}
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("b"), cex.AddressOf(200)).
			WithMemory("int*", cex.AddressOf(200), 160).
			WithMemory("int", cex.AddressOf(160), 1)

		t.Run("Statement", func(t *testing.T) {
			edge := &cfa.StatementEdge{Stmt: &cfa.AssignStmt{LHS: deref, RHS: deref}}
			mustStatements(t, b, edge, state, []string{"(*(b)) == (1);"})
		})
		t.Run("Declaration", func(t *testing.T) {
			mustStatements(t, b, &cfa.DeclarationEdge{Decl: p.Decl}, state, []string{
				"b == (160LL);",
				"(*(b)) == (1);",
			})
		})
	})

	t.Run("LinkedStructs", func(t *testing.T) {
		_, node := newListTypes()
		nodeType := &cfa.Elaborated{Kind: cfa.StructTag, Name: "node", Real: node}
		list := global("list", nodeType)

		// list -> 2000 -> 3000 -> list
		state := cex.NewConcreteState().
			WithVariableAddress(cex.NewIdentifier("list", ""), cex.AddressOf(1000)).
			WithMemory("struct node*", cex.AddressOf(1000), 2000).
			WithMemory("struct node*", cex.AddressOf(2000), 3000).
			WithMemory("struct node*", cex.AddressOf(3000), 1000).
			WithMemory("int", cex.AddressOf(3012), 33)

		mustStatements(t, b, &cfa.DeclarationEdge{Decl: list.Decl}, state, []string{
			"(list.n) == (2000LL);",
			"(list.n->n) == (3000LL);",
			"(list.n->n->n) == (1000LL);",
			"(list.n->n->d.h2) == (3012LL);",
			"((list.n->n->d.h2)[0]) == (33);",
			"(list.n->d.h2) == (2012LL);",
			"(list.d.h2) == (1012LL);",
		})
	})

	t.Run("SelfReference", func(t *testing.T) {
		_, node := newListTypes()
		p := local("p", node.Fields[0].Type)
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("p"), cex.AddressOf(500)).
			WithMemory("struct node*", cex.AddressOf(500), 600).
			WithMemory("struct node*", cex.AddressOf(600), 600)

		mustStatements(t, b, &cfa.DeclarationEdge{Decl: p.Decl}, state, []string{
			"p == (600LL);",
			"(p->n) == (600LL);",
			"(p->d.h2) == (612LL);",
		})
	})

	t.Run("Array", func(t *testing.T) {
		a := local("a", cfa.NewArray(intType, 3))
		base := cex.NewConcreteState().WithVariableAddress(mainID("a"), cex.AddressOf(200))

		t.Run("Full", func(t *testing.T) {
			state := base.
				WithMemory("int", cex.AddressOf(200), 1).
				WithMemory("int", cex.AddressOf(204), 2).
				WithMemory("int", cex.AddressOf(208), 3).
				WithMemory("int", cex.AddressOf(212), 4)
			mustStatements(t, b, exprStmt(a), state, []string{
				"a == (200LL);",
				"((a)[0]) == (1);",
				"((a)[1]) == (2);",
				"((a)[2]) == (3);",
			})
		})

		t.Run("StopAtFirstMiss", func(t *testing.T) {
			state := base.
				WithMemory("int", cex.AddressOf(200), 1).
				WithMemory("int", cex.AddressOf(208), 3)
			mustStatements(t, b, exprStmt(a), state, []string{
				"a == (200LL);",
				"((a)[0]) == (1);",
			})
		})

		t.Run("Element", func(t *testing.T) {
			state := base.WithMemory("int", cex.AddressOf(208), 3)
			elem := &cfa.Subscript{Array: a, Index: cfa.NewIntLiteral(2), Typ: intType}
			mustStatements(t, b, exprStmt(elem), state, []string{"((a)[2]) == (3);"})
		})

		t.Run("ComputedIndex", func(t *testing.T) {
			i := local("i", intType)
			state := base.
				WithVariable(mainID("i"), 1).
				WithMemory("int", cex.AddressOf(208), 3)
			index := binary(cfa.ADD, i, cfa.NewIntLiteral(1), intType)
			elem := &cfa.Subscript{Array: a, Index: index, Typ: intType}
			mustStatements(t, b, exprStmt(elem), state, []string{"((a)[i + 1]) == (3);"})
		})

		t.Run("Unsized", func(t *testing.T) {
			a := local("a", cfa.NewArray(intType, -1))
			state := base.
				WithMemory("int", cex.AddressOf(200), 1).
				WithMemory("int", cex.AddressOf(204), 2)
			mustStatements(t, b, exprStmt(a), state, []string{
				"a == (200LL);",
				"((a)[0]) == (1);",
				"((a)[1]) == (2);",
			})
		})

		// Rows of an unsized array have an address whether or not memory
		// backs them, so only rows with a known element are kept.
		t.Run("UnsizedRows", func(t *testing.T) {
			a := local("a", cfa.NewArray(cfa.NewArray(intType, 2), -1))
			mustStatements(t, b, exprStmt(a), base, []string{"a == (200LL);"})

			state := base.WithMemory("int", cex.AddressOf(200), 1)
			mustStatements(t, b, exprStmt(a), state, []string{
				"a == (200LL);",
				"((a)[0]) == (200LL);",
				"(((a)[0])[0]) == (1);",
			})
		})
	})

	// Two pointers to one int: the int is decoded through the first only.
	t.Run("SharedPointee", func(t *testing.T) {
		pair := cfa.NewStruct("pair",
			&cfa.Field{Name: "p", Type: intPtrType},
			&cfa.Field{Name: "q", Type: intPtrType},
		)
		s := local("s", pair)
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("s"), cex.AddressOf(300)).
			WithMemory("int*", cex.AddressOf(300), 160).
			WithMemory("int*", cex.AddressOf(308), 160).
			WithMemory("int", cex.AddressOf(160), 7)

		mustStatements(t, b, exprStmt(s), state, []string{
			"(s.p) == (160LL);",
			"(*(s.p)) == (7);",
			"(s.q) == (160LL);",
		})
	})

	t.Run("FlattenedStruct", func(t *testing.T) {
		inner := cfa.NewStruct("inner", &cfa.Field{Name: "b", Type: intType})
		outer := cfa.NewStruct("outer",
			&cfa.Field{Name: "a", Type: intType},
			&cfa.Field{Name: "missing", Type: intType},
			&cfa.Field{Name: "in", Type: inner},
		)
		s := local("s", outer)
		state := cex.NewConcreteState().
			WithVariable(cex.NewFieldChain("s", "main", "a"), 1).
			WithVariable(cex.NewFieldChain("s", "main", "in", "b"), 2)

		mustStatements(t, b, exprStmt(s), state, []string{
			"(s.a) == (1);",
			"(s.in.b) == (2);",
		})
	})

	t.Run("BitField", func(t *testing.T) {
		flags := cfa.NewStruct("flags",
			&cfa.Field{Name: "a", Type: &cfa.BitField{Type: cfa.Typ[cfa.UInt], Bits: 3}},
			&cfa.Field{Name: "b", Type: &cfa.BitField{Type: cfa.Typ[cfa.UInt], Bits: 5}},
			&cfa.Field{Name: "c", Type: intType},
		)
		s := local("s", flags)
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("s"), cex.AddressOf(100)).
			WithMemory("unsigned int", cex.AddressOf(100), 5).
			WithMemory("int", cex.AddressOf(104), -1).
			WithVariable(cex.NewFieldChain("s", "main", "b"), 7)

		mustStatements(t, b, exprStmt(s), state, []string{
			"(s.a) == (5U);",
			"(s.b) == (7U);",
			"(s.c) == (-1);",
		})
	})

	t.Run("Union", func(t *testing.T) {
		u := local("u", cfa.NewUnion("u", &cfa.Field{Name: "i", Type: intType}))
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("u"), cex.AddressOf(100)).
			WithMemory("int", cex.AddressOf(100), 5)
		mustStatements(t, b, exprStmt(u), state, []string{})
	})

	t.Run("SymbolicAddress", func(t *testing.T) {
		x := local("x", intType)
		state := cex.NewConcreteState().
			WithVariableAddress(mainID("x"), cex.AddressOf("x@1")).
			WithVariable(mainID("x"), 9)

		ea := mustStatements(t, b, &cfa.DeclarationEdge{Decl: x.Decl}, state, []string{"x == (9);"})
		if ea.Comment != "&x == #x@1" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}
	})

	t.Run("NoAddress", func(t *testing.T) {
		x := local("x", intType)
		state := cex.NewConcreteState().WithVariable(mainID("x"), 9)
		mustStatements(t, b, &cfa.DeclarationEdge{Decl: x.Decl}, state, []string{})
		mustStatements(t, b, exprStmt(x), state, []string{"x == (9);"})
	})

	t.Run("NilState", func(t *testing.T) {
		x := local("x", intType)
		if ea := b.Build(exprStmt(x), nil); !ea.IsEmpty() {
			t.Fatalf("unexpected assumptions: %s", ea)
		}
	})

	t.Run("EmptyState", func(t *testing.T) {
		_, node := newListTypes()
		minusOne := &cfa.UnaryExpr{Op: cfa.NEG, X: cfa.NewIntLiteral(1), Typ: intType}
		for _, edge := range []cfa.Edge{
			&cfa.DeclarationEdge{Decl: local("x", intType).Decl},
			exprStmt(local("list", node)),
			&cfa.AssumeEdge{Cond: binary(cfa.EQ, local("x", intType), cfa.NewIntLiteral(0), intType), Truth: true},
			&cfa.AssumeEdge{Cond: binary(cfa.EQ, local("x", intType), minusOne, intType), Truth: true},
			&cfa.AssumeEdge{Cond: binary(cfa.LT, minusOne, &cfa.CastExpr{X: cfa.NewIntLiteral(2), Typ: cfa.Typ[cfa.Long]}, intType), Truth: true},
			&cfa.ReturnEdge{Result: local("x", intType), Function: "main"},
			&cfa.ReturnEdge{Result: minusOne, Function: "main"},
			&cfa.ReturnEdge{Result: binary(cfa.ADD, cfa.NewIntLiteral(1), cfa.NewIntLiteral(2), intType), Function: "main"},
			&cfa.BlankEdge{Description: "skip"},
		} {
			if ea := b.Build(edge, cex.NewConcreteState()); !ea.IsEmpty() {
				t.Fatalf("unexpected assumptions for %s: %s", edge, spew.Sdump(ea))
			}
		}
	})
}

func TestAssumptionBuilder_Literal(t *testing.T) {
	// decode returns the assumptions for a variable x of typ bound to v.
	decode := func(b *cex.AssumptionBuilder, typ cfa.Type, v cex.Value) []string {
		state := cex.NewConcreteState().WithVariable(mainID("x"), v)
		return b.Build(exprStmt(local("x", typ)), state).Statements()
	}

	b := cex.NewAssumptionBuilder(cfa.Linux64, cex.DefaultConfig())
	for _, tt := range []struct {
		name string
		kind cfa.BasicKind
		v    cex.Value
		want string
	}{
		{"Int", cfa.Int, 5, "x == (5);"},
		{"IntegralDecimal", cfa.Int, "12.000", "x == (12);"},
		{"IntMin", cfa.Int, "-2147483648", "x == ((int) -2147483648L);"},
		{"IntOverflow", cfa.Int, int64(4294967295), "x == (-1);"},
		{"IntWrapToMin", cfa.Int, int64(2147483648), "x == ((int) -2147483648L);"},
		{"UnsignedUnderflow", cfa.UInt, -1, "x == (4294967295U);"},
		{"Char", cfa.Char, 200, "x == (-56);"},
		{"UnsignedChar", cfa.UChar, -1, "x == (255);"},
		{"ShortMin", cfa.Short, -32768, "x == ((short) -32768);"},
		{"LongLongMin", cfa.LongLong, "-9223372036854775808", "x == ((long long) 9223372036854775808ULL);"},
		{"LongMin", cfa.Long, "-9223372036854775808", "x == ((long) 9223372036854775808UL);"},
		{"LongLongNegative", cfa.LongLong, "-9223372036854775807", "x == (-9223372036854775807LL);"},
		{"UnsignedLong", cfa.ULong, big.NewInt(7), "x == (7UL);"},
		{"Bool", cfa.Bool, 5, "x == (1);"},
		{"Double", cfa.Double, "0.5", "x == (0.5);"},
		{"DoubleIntegral", cfa.Double, 2, "x == (2.0);"},
		{"Float", cfa.Float, "0.1", "x == (0.1f);"},
		{"LongDouble", cfa.LongDouble, big.NewRat(3, 2), "x == (1.5L);"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(decode(b, cfa.Typ[tt.kind], tt.v), []string{tt.want}); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	t.Run("Linux32", func(t *testing.T) {
		b := cex.NewAssumptionBuilder(cfa.Linux32, cex.DefaultConfig())
		if diff := cmp.Diff(decode(b, intType, "-2147483648"), []string{"x == ((int) -2147483648LL);"}); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(decode(b, intPtrType, -1), []string{"x == (4294967295LL);"}); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(decode(b, cfa.Typ[cfa.LongLong], "-9223372036854775808"), []string{"x == ((long long) 9223372036854775808ULL);"}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Pointer", func(t *testing.T) {
		if diff := cmp.Diff(decode(b, intPtrType, 160), []string{"x == (160LL);"}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, intPtrType, -1), []string{"x == (18446744073709551615ULL);"}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, intPtrType, "heap@3"), []string{}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		for _, tt := range []struct {
			typ cfa.Type
			v   cex.Value
		}{
			{cfa.Typ[cfa.Double], "nan"},
			{cfa.Typ[cfa.Double], "-inf"},
			{cfa.Typ[cfa.Double], "x@1"},
			{&cfa.Enum{Name: "color"}, 1},
			{&cfa.Void{}, 1},
		} {
			if diff := cmp.Diff(decode(b, tt.typ, tt.v), []string{}); diff != "" {
				t.Fatalf("%s %v: %s", tt.typ, tt.v, diff)
			}
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		b := cex.NewAssumptionBuilder(cfa.Linux64, cex.DefaultConfig())
		b.Logger = zap.New(core)

		if diff := cmp.Diff(decode(b, intType, "1.5"), []string{}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, cfa.Typ[cfa.Double], "one"), []string{}); diff != "" {
			t.Fatal(diff)
		}

		var messages []string
		for _, entry := range logs.All() {
			messages = append(messages, entry.Message+": "+entry.ContextMap()["value"].(string))
		}
		if diff := cmp.Diff(messages, []string{
			"cannot decode integer value: 1.5",
			"cannot decode floating point value: one",
		}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Linear", func(t *testing.T) {
		b := cex.NewAssumptionBuilder(cfa.Linux64, cex.Config{AssumeLinearArithmetics: true})
		if diff := cmp.Diff(decode(b, intType, 5), []string{"x == (5);"}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, intType, int64(4294967295)), []string{}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, cfa.Typ[cfa.Double], "0.5"), []string{}); diff != "" {
			t.Fatal(diff)
		} else if diff := cmp.Diff(decode(b, intType, "-2147483648"), []string{"x == ((int) -2147483648L);"}); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestAssumptionBuilder_Comment(t *testing.T) {
	b := cex.NewAssumptionBuilder(cfa.Linux64, cex.DefaultConfig())
	x, y := local("x", intType), local("y", intType)

	t.Run("Assume", func(t *testing.T) {
		state := cex.NewConcreteState().WithVariable(mainID("x"), 4).WithVariable(mainID("y"), 5)
		cond := binary(cfa.EQ, binary(cfa.ADD, x, cfa.NewIntLiteral(1), intType), y, intType)

		ea := mustStatements(t, b, &cfa.AssumeEdge{Cond: cond, Truth: true}, state, []string{"y == (5);"})
		if ea.Comment != "x + 1 == 5" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}

		// Literal operands are skipped.
		cond = binary(cfa.LT, x, cfa.NewIntLiteral(10), intType)
		ea = mustStatements(t, b, &cfa.AssumeEdge{Cond: cond, Truth: false}, state, []string{"x == (4);"})
		if ea.Comment != "" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}
	})

	t.Run("Return", func(t *testing.T) {
		p, q := local("p", intPtrType), local("q", intPtrType)
		d := local("d", cfa.Typ[cfa.Double])
		state := cex.NewConcreteState().
			WithVariable(mainID("x"), 3).
			WithVariable(mainID("y"), 2147483647).
			WithVariable(mainID("d"), "1.5").
			WithVariable(mainID("p"), "heap@1").
			WithVariable(mainID("q"), "heap@1").
			WithVariableAddress(mainID("x"), cex.AddressOf(100)).
			WithMemory("int", cex.AddressOf(100), 3)

		for _, tt := range []struct {
			name    string
			result  cfa.Expr
			comment string
		}{
			{"Arithmetic", binary(cfa.MUL, x, cfa.NewIntLiteral(2), intType), "x * 2 = 6"},
			{"Overflow", binary(cfa.ADD, y, cfa.NewIntLiteral(1), intType), "y + 1 = (int) -2147483648L"},
			{"Cast", &cfa.CastExpr{X: local("c", intType), Typ: cfa.Typ[cfa.Char]}, ""},
			{"Float", binary(cfa.DIV, d, cfa.NewIntLiteral(2), cfa.Typ[cfa.Double]), "d / 2 = 0.75"},
			{"AddrOf", &cfa.AddrOf{Operand: x, Typ: intPtrType}, "&x = 100LL"},
			{"SymbolicEqual", binary(cfa.EQ, p, q, intType), "p == q = 1"},
			{"SymbolicLess", binary(cfa.LT, p, q, intType), ""},
			{"DivideByZero", binary(cfa.DIV, x, cfa.NewIntLiteral(0), intType), ""},
			{"Literal", cfa.NewIntLiteral(0), ""},
			{"NegativeLiteral", &cfa.UnaryExpr{Op: cfa.NEG, X: cfa.NewIntLiteral(1), Typ: intType}, ""},
			{"ConstantSum", binary(cfa.ADD, cfa.NewIntLiteral(1), cfa.NewIntLiteral(2), intType), ""},
		} {
			t.Run(tt.name, func(t *testing.T) {
				ea := b.Build(&cfa.ReturnEdge{Result: tt.result, Function: "main"}, state)
				if ea.Comment != tt.comment {
					t.Fatalf("unexpected comment: %q", ea.Comment)
				} else if len(ea.Assumptions) != 0 {
					t.Fatalf("unexpected assumptions: %s", ea)
				}
			})
		}
	})

	t.Run("Cast", func(t *testing.T) {
		state := cex.NewConcreteState().WithVariable(mainID("x"), 300)
		ea := b.Build(&cfa.ReturnEdge{Result: &cfa.CastExpr{X: x, Typ: cfa.Typ[cfa.Char]}}, state)
		if ea.Comment != "(char)x = 44" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}
	})

	t.Run("FunctionCall", func(t *testing.T) {
		callee := &cfa.FunctionDecl{
			Name: "f",
			Params: []*cfa.Declaration{
				{Name: "a", Function: "f", Type: intType},
				{Name: "p", Function: "f", Type: intPtrType},
			},
			Result: intType,
		}
		edge := &cfa.FunctionCallEdge{
			Call:   &cfa.CallExpr{Func: "f", Args: []cfa.Expr{x, local("q", intPtrType)}, Typ: intType},
			Callee: callee,
		}

		state := cex.NewConcreteState().
			WithVariable(cex.NewIdentifier("a", "f"), 1).
			WithVariable(cex.NewIdentifier("p", "f"), 160)
		if ea := b.Build(edge, state); ea.Comment != "f(1, 160LL)" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}

		// Every parameter must be known.
		state = cex.NewConcreteState().WithVariable(cex.NewIdentifier("a", "f"), 1)
		if ea := b.Build(edge, state); !ea.IsEmpty() {
			t.Fatalf("unexpected assumptions: %s", ea)
		}
	})

	t.Run("MultiEdge", func(t *testing.T) {
		state := cex.NewConcreteState().WithVariable(mainID("x"), 1).WithVariable(mainID("y"), 2)
		edge := cfa.NewMultiEdge(
			exprStmt(x),
			&cfa.StatementEdge{Stmt: &cfa.AssignStmt{LHS: y, RHS: x}},
			exprStmt(x),
			&cfa.ReturnEdge{Result: binary(cfa.SUB, y, x, intType)},
		)
		ea := mustStatements(t, b, edge, state, []string{"x == (1);", "y == (2);"})
		if ea.Comment != "y - x = 1" {
			t.Fatalf("unexpected comment: %q", ea.Comment)
		}
	})
}

func TestAssumptionBuilder_Evaluate(t *testing.T) {
	x, p := local("x", intType), local("p", intPtrType)
	state := cex.NewConcreteState().
		WithVariable(mainID("x"), 7).
		WithVariable(mainID("y"), 2).
		WithVariable(mainID("p"), 160)
	y := local("y", intType)

	// eval returns the comment produced for "return e;".
	eval := func(config cex.Config, e cfa.Expr) string {
		b := cex.NewAssumptionBuilder(cfa.Linux64, config)
		return b.Build(&cfa.ReturnEdge{Result: e, Function: "main"}, state).Comment
	}

	linear := cex.Config{AssumeLinearArithmetics: true}
	withConst := cex.Config{
		AssumeLinearArithmetics:           true,
		AllowMultiplicationWithConstants:  true,
		AllowDivisionAndModuloByConstants: true,
	}

	for _, tt := range []struct {
		name   string
		config cex.Config
		expr   cfa.Expr
		want   string
	}{
		{"Add", linear, binary(cfa.ADD, x, y, intType), "x + y = 9"},
		{"Mul", cex.DefaultConfig(), binary(cfa.MUL, x, y, intType), "x * y = 14"},
		{"LinearMul", linear, binary(cfa.MUL, x, y, intType), ""},
		{"LinearMulConst", withConst, binary(cfa.MUL, x, cfa.NewIntLiteral(3), intType), "x * 3 = 21"},
		{"LinearMulVars", withConst, binary(cfa.MUL, x, y, intType), ""},
		{"LinearModConst", withConst, binary(cfa.MOD, x, cfa.NewIntLiteral(3), intType), "x % 3 = 1"},
		{"LinearDivVar", withConst, binary(cfa.DIV, x, y, intType), ""},
		{"Div", cex.DefaultConfig(), binary(cfa.DIV, &cfa.UnaryExpr{Op: cfa.NEG, X: x, Typ: intType}, y, intType), "(-x) / y = -3"},
		{"Shift", cex.DefaultConfig(), binary(cfa.SHL, x, y, intType), "x << y = 28"},
		{"LinearShift", linear, binary(cfa.SHL, x, y, intType), ""},
		{"LinearCompare", linear, binary(cfa.LT, x, y, intType), ""},
		{"Compare", cex.DefaultConfig(), binary(cfa.GT, x, y, intType), "x > y = 1"},
		{"Complement", cex.DefaultConfig(), &cfa.UnaryExpr{Op: cfa.COMPLEMENT, X: x, Typ: intType}, "~x = -8"},
		{"LinearComplement", linear, &cfa.UnaryExpr{Op: cfa.COMPLEMENT, X: x, Typ: intType}, ""},
		{"Not", cex.DefaultConfig(), &cfa.UnaryExpr{Op: cfa.NOT, X: x, Typ: intType}, "!x = 0"},
		{"PointerAdd", linear, binary(cfa.ADD, p, cfa.NewIntLiteral(2), intPtrType), "p + 2 = 168LL"},
		{"PointerAddReversed", linear, binary(cfa.ADD, y, p, intPtrType), "y + p = 168LL"},
		{"PointerSub", linear, binary(cfa.SUB, p, y, intPtrType), "p - y = 152LL"},
		{"IntMinusPointer", linear, binary(cfa.SUB, y, p, intPtrType), ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval(tt.config, tt.expr); got != tt.want {
				t.Fatalf("unexpected comment: %q", got)
			}
		})
	}
}
