package cfa_test

import (
	"testing"

	"github.com/benbjohnson/cex/cfa"
	"github.com/google/go-cmp/cmp"
)

func TestEdge_String(t *testing.T) {
	x := cfa.NewIDExpr(&cfa.Declaration{Name: "x", Function: "main", Type: cfa.Typ[cfa.Int]})
	cond := &cfa.BinaryExpr{Op: cfa.EQ, LHS: x, RHS: cfa.NewIntLiteral(0), Typ: cfa.Typ[cfa.Int]}

	for _, tt := range []struct {
		edge cfa.Edge
		kind cfa.EdgeKind
		s    string
	}{
		{&cfa.BlankEdge{Description: "skip"}, cfa.BlankEdgeKind, "skip"},
		{&cfa.DeclarationEdge{Decl: x.Decl}, cfa.DeclarationEdgeKind, "int x;"},
		{&cfa.StatementEdge{Stmt: &cfa.AssignStmt{LHS: x, RHS: cfa.NewIntLiteral(1)}}, cfa.StatementEdgeKind, "x = 1;"},
		{&cfa.AssumeEdge{Cond: cond, Truth: true}, cfa.AssumeEdgeKind, "[x == 0]"},
		{&cfa.AssumeEdge{Cond: cond, Truth: false}, cfa.AssumeEdgeKind, "[!(x == 0)]"},
		{&cfa.ReturnEdge{Result: x, Function: "main"}, cfa.ReturnEdgeKind, "return x;"},
		{&cfa.ReturnEdge{Function: "main"}, cfa.ReturnEdgeKind, "return;"},
		{&cfa.FunctionReturnEdge{Function: "f"}, cfa.FunctionReturnEdgeKind, "Return edge from f"},
	} {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if tt.edge.Kind() != tt.kind {
				t.Fatalf("unexpected kind: %s", tt.edge.Kind())
			} else if s := tt.edge.String(); s != tt.s {
				t.Fatalf("unexpected string: %s", s)
			}
		})
	}
}

func TestNewMultiEdge(t *testing.T) {
	a := &cfa.BlankEdge{EdgeInfo: cfa.EdgeInfo{Pred: 1, Succ: 2, LineNumber: 10, FileName: "a.c"}, Description: "a"}
	b := &cfa.BlankEdge{EdgeInfo: cfa.EdgeInfo{Pred: 2, Succ: 3, LineNumber: 11, FileName: "a.c"}, Description: "b"}

	m := cfa.NewMultiEdge(a, b)
	if diff := cmp.Diff(*m.Info(), cfa.EdgeInfo{Pred: 1, Succ: 3, LineNumber: 10, FileName: "a.c"}); diff != "" {
		t.Fatal(diff)
	} else if s := m.String(); s != "a\nb" {
		t.Fatalf("unexpected string: %q", s)
	}

	t.Run("Empty", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		cfa.NewMultiEdge()
	})
}

func TestSameEdge(t *testing.T) {
	newEdge := func(pred, succ int, desc string) cfa.Edge {
		return &cfa.BlankEdge{EdgeInfo: cfa.EdgeInfo{Pred: pred, Succ: succ}, Description: desc}
	}

	if !cfa.SameEdge(newEdge(1, 2, "a"), newEdge(1, 2, "a")) {
		t.Fatal("expected same edge")
	} else if cfa.SameEdge(newEdge(1, 2, "a"), newEdge(1, 3, "a")) {
		t.Fatal("expected different nodes")
	} else if cfa.SameEdge(newEdge(1, 2, "a"), newEdge(1, 2, "b")) {
		t.Fatal("expected different code")
	} else if cfa.SameEdge(newEdge(1, 2, "a"), nil) {
		t.Fatal("expected nil mismatch")
	}
}
