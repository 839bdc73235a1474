package cex

import (
	"strings"

	"github.com/benbjohnson/cex/cfa"
	"go.uber.org/zap"
)

// AssumptionBuilder derives the assumptions that hold on a single CFA edge
// from the concrete state at that edge.
type AssumptionBuilder struct {
	Machine *cfa.Machine
	Config  Config
	Logger  *zap.Logger
}

// NewAssumptionBuilder returns a new builder for the given machine model.
func NewAssumptionBuilder(machine *cfa.Machine, config Config) *AssumptionBuilder {
	return &AssumptionBuilder{
		Machine: machine,
		Config:  config,
		Logger:  zap.NewNop(),
	}
}

func (b *AssumptionBuilder) machine() *cfa.Machine {
	if b.Machine == nil {
		return cfa.Linux64
	}
	return b.Machine
}

func (b *AssumptionBuilder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Build returns the assumptions for edge. A nil state yields no assumptions.
func (b *AssumptionBuilder) Build(edge cfa.Edge, state *ConcreteState) *EdgeAssumptions {
	result := NewEdgeAssumptions(edge)
	if state == nil {
		return result
	}
	b.build(result, edge, newResolver(b, state))

	if ce := b.logger().Check(zap.DebugLevel, "edge assumptions"); ce != nil {
		ce.Write(
			zap.Stringer("edge", edge),
			zap.Int("statements", len(result.Assumptions)),
			zap.String("comment", result.Comment),
		)
	}
	return result
}

func (b *AssumptionBuilder) build(result *EdgeAssumptions, edge cfa.Edge, r *resolver) {
	switch edge := edge.(type) {
	case *cfa.DeclarationEdge:
		b.buildDeclaration(result, edge, r)
	case *cfa.StatementEdge:
		b.buildStatement(result, edge, r)
	case *cfa.AssumeEdge:
		b.buildAssume(result, edge, r)
	case *cfa.FunctionCallEdge:
		b.buildFunctionCall(result, edge, r)
	case *cfa.ReturnEdge:
		b.buildReturn(result, edge, r)
	case *cfa.MultiEdge:
		for _, inner := range edge.Edges {
			b.build(result, inner, r)
		}
	}
}

func (b *AssumptionBuilder) buildDeclaration(result *EdgeAssumptions, edge *cfa.DeclarationEdge, r *resolver) {
	id := IdentifierOf(edge.Decl)
	if !r.state.HasAddressOfVariable(id) {
		return
	}

	// A symbolic address has no literal form.
	if addr := r.state.VariableAddress(id); addr.IsSymbolic() {
		result.AddComment("&" + edge.Decl.Name + " == " + addr.CommentString())
	}
	b.decodeLvalue(result, cfa.NewIDExpr(edge.Decl), edge.Decl.Type, r)
}

func (b *AssumptionBuilder) buildStatement(result *EdgeAssumptions, edge *cfa.StatementEdge, r *resolver) {
	switch stmt := edge.Stmt.(type) {
	case *cfa.AssignStmt:
		b.decodeLvalue(result, stmt.LHS, stmt.LHS.Type(), r)
	case *cfa.ExprStmt:
		if cfa.IsLvalue(stmt.X) {
			b.decodeLvalue(result, stmt.X, stmt.X.Type(), r)
		}
	}
}

// buildAssume decodes the operands of a branch condition. Lvalues become
// assumptions, other non-constant operands are evaluated into the comment.
func (b *AssumptionBuilder) buildAssume(result *EdgeAssumptions, edge *cfa.AssumeEdge, r *resolver) {
	operands := []cfa.Expr{edge.Cond}
	if cond, ok := edge.Cond.(*cfa.BinaryExpr); ok {
		operands = []cfa.Expr{cond.LHS, cond.RHS}
	}

	var comments []string
	for _, op := range operands {
		switch {
		case cfa.IsConstant(op):
			continue
		case cfa.IsLvalue(op):
			b.decodeLvalue(result, op, op.Type(), r)
		default:
			if lit := b.evalLiteral(op, r); !lit.IsUnknown() {
				comments = append(comments, op.String()+" == "+lit.String())
			}
		}
	}
	result.AddComment(strings.Join(comments, ", "))
}

// buildFunctionCall renders the argument values of a call as seen by the
// callee. Nothing is produced unless every parameter can be decoded.
func (b *AssumptionBuilder) buildFunctionCall(result *EdgeAssumptions, edge *cfa.FunctionCallEdge, r *resolver) {
	callee := edge.Callee
	if callee == nil || len(callee.Params) == 0 {
		return
	}

	args := make([]string, len(callee.Params))
	for i, param := range callee.Params {
		decl := *param
		decl.Function = callee.Name

		v, ok := r.value(cfa.NewIDExpr(&decl))
		if !ok {
			return
		}
		lit := b.encodeLiteral(v, decl.Type)
		if lit.IsUnknown() {
			return
		}
		args[i] = lit.String()
	}
	result.AddComment(callee.Name + "(" + strings.Join(args, ", ") + ")")
}

func (b *AssumptionBuilder) buildReturn(result *EdgeAssumptions, edge *cfa.ReturnEdge, r *resolver) {
	if edge.Result == nil || cfa.IsConstant(edge.Result) {
		return
	}
	if lit := b.evalLiteral(edge.Result, r); !lit.IsUnknown() {
		result.AddComment(edge.Result.String() + " = " + lit.String())
	}
}

// decodeLvalue adds assumptions for e and every location reachable from it.
func (b *AssumptionBuilder) decodeLvalue(result *EdgeAssumptions, e cfa.Expr, t cfa.Type, r *resolver) {
	d := newDecoder(r)
	d.decodeLvalue(e, t)
	for _, a := range d.facts {
		result.Add(a)
	}
}

// evalLiteral numerically evaluates e and encodes the result in e's type.
func (b *AssumptionBuilder) evalLiteral(e cfa.Expr, r *resolver) ValueLiteral {
	v, ok := r.eval(e)
	if !ok {
		return Unknown
	}
	return b.encodeLiteral(v, e.Type())
}
