package cfa

import (
	"fmt"
	"strings"
)

// EdgeKind identifies the kind of a CFA edge.
type EdgeKind int

const (
	BlankEdgeKind = EdgeKind(iota)
	DeclarationEdgeKind
	StatementEdgeKind
	AssumeEdgeKind
	FunctionCallEdgeKind
	ReturnEdgeKind
	FunctionReturnEdgeKind
	MultiEdgeKind
)

var edgeKinds = [...]string{
	BlankEdgeKind:          "blank",
	DeclarationEdgeKind:    "declaration",
	StatementEdgeKind:      "statement",
	AssumeEdgeKind:         "assume",
	FunctionCallEdgeKind:   "call",
	ReturnEdgeKind:         "return",
	FunctionReturnEdgeKind: "function-return",
	MultiEdgeKind:          "multi",
}

func (k EdgeKind) String() string {
	if k >= 0 && k < EdgeKind(len(edgeKinds)) {
		return edgeKinds[k]
	}
	return fmt.Sprintf("EdgeKind<%d>", k)
}

// Edge is a single control-flow transition between two CFA nodes.
type Edge interface {
	Kind() EdgeKind
	Info() *EdgeInfo
	String() string
}

// EdgeInfo holds the location data shared by all edges.
type EdgeInfo struct {
	Pred       int
	Succ       int
	LineNumber int
	FileName   string
	Code       string
}

func (e *EdgeInfo) Info() *EdgeInfo { return e }

// BlankEdge is a transition without an effect.
type BlankEdge struct {
	EdgeInfo
	Description string
}

func (e *BlankEdge) Kind() EdgeKind { return BlankEdgeKind }
func (e *BlankEdge) String() string { return e.Description }

// DeclarationEdge declares a variable.
type DeclarationEdge struct {
	EdgeInfo
	Decl *Declaration
}

func (e *DeclarationEdge) Kind() EdgeKind { return DeclarationEdgeKind }
func (e *DeclarationEdge) String() string { return e.Decl.String() + ";" }

// Stmt is a statement carried by a StatementEdge.
type Stmt interface {
	String() string
	stmt()
}

func (*AssignStmt) stmt() {}
func (*ExprStmt) stmt()   {}

// AssignStmt assigns RHS to the lvalue LHS.
type AssignStmt struct {
	LHS Expr
	RHS Expr
}

func (s *AssignStmt) String() string { return s.LHS.String() + " = " + s.RHS.String() + ";" }

// ExprStmt evaluates X for its side effects.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) String() string { return s.X.String() + ";" }

// StatementEdge executes a single statement.
type StatementEdge struct {
	EdgeInfo
	Stmt Stmt
}

func (e *StatementEdge) Kind() EdgeKind { return StatementEdgeKind }
func (e *StatementEdge) String() string { return e.Stmt.String() }

// AssumeEdge is taken when Cond evaluates to Truth.
type AssumeEdge struct {
	EdgeInfo
	Cond  Expr
	Truth bool
}

func (e *AssumeEdge) Kind() EdgeKind { return AssumeEdgeKind }

func (e *AssumeEdge) String() string {
	if e.Truth {
		return "[" + e.Cond.String() + "]"
	}
	return "[!(" + e.Cond.String() + ")]"
}

// FunctionDecl is the declaration of a called function.
type FunctionDecl struct {
	Name   string
	Params []*Declaration
	Result Type
}

// FunctionCallEdge enters Callee.
type FunctionCallEdge struct {
	EdgeInfo
	Call   *CallExpr
	Callee *FunctionDecl
}

func (e *FunctionCallEdge) Kind() EdgeKind { return FunctionCallEdgeKind }
func (e *FunctionCallEdge) String() string { return e.Call.String() + ";" }

// ReturnEdge leaves Function, optionally returning Result.
type ReturnEdge struct {
	EdgeInfo
	Result   Expr
	Function string
}

func (e *ReturnEdge) Kind() EdgeKind { return ReturnEdgeKind }

func (e *ReturnEdge) String() string {
	if e.Result == nil {
		return "return;"
	}
	return "return " + e.Result.String() + ";"
}

// FunctionReturnEdge transfers control back to the caller.
type FunctionReturnEdge struct {
	EdgeInfo
	Function string
}

func (e *FunctionReturnEdge) Kind() EdgeKind { return FunctionReturnEdgeKind }
func (e *FunctionReturnEdge) String() string { return "Return edge from " + e.Function }

// MultiEdge is a sequence of edges collapsed into a single transition.
type MultiEdge struct {
	EdgeInfo
	Edges []Edge
}

func (e *MultiEdge) Kind() EdgeKind { return MultiEdgeKind }

func (e *MultiEdge) String() string {
	a := make([]string, len(e.Edges))
	for i, inner := range e.Edges {
		a[i] = inner.String()
	}
	return strings.Join(a, "\n")
}

// NewMultiEdge returns a multi-edge spanning edges. Its location is taken from
// the first and last inner edge.
func NewMultiEdge(edges ...Edge) *MultiEdge {
	assert(len(edges) > 0, "multi-edge requires at least one edge")
	first, last := edges[0].Info(), edges[len(edges)-1].Info()
	return &MultiEdge{
		EdgeInfo: EdgeInfo{
			Pred:       first.Pred,
			Succ:       last.Succ,
			LineNumber: first.LineNumber,
			FileName:   first.FileName,
		},
		Edges: edges,
	}
}

// SameEdge returns true if a and b describe the same transition.
func SameEdge(a, b Edge) bool {
	if a == b {
		return true
	} else if a == nil || b == nil {
		return false
	}
	ai, bi := a.Info(), b.Info()
	return ai.Pred == bi.Pred && ai.Succ == bi.Succ && a.Kind() == b.Kind() && a.String() == b.String()
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
