package cex

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/cex/cfa"
	"go.uber.org/zap"
	"golang.org/x/tools/container/intsets"
)

// PathPoint is one edge of an error path with the state reached by it.
// State is nil if the analysis did not produce a state for this point.
// Untrusted marks states that cannot be used to project values because
// aliasing information is missing.
type PathPoint struct {
	Edge      cfa.Edge
	State     *ConcreteState
	Untrusted bool
	StateID   int
}

// PathComposer builds the assumptions for every edge of an error path.
type PathComposer struct {
	Builder *AssumptionBuilder
	Logger  *zap.Logger
}

// NewPathComposer returns a new instance of PathComposer.
func NewPathComposer(builder *AssumptionBuilder) *PathComposer {
	return &PathComposer{Builder: builder, Logger: zap.NewNop()}
}

func (c *PathComposer) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Compose returns the assumptions for each point of path in order.
//
// A run of points without a trusted state is a hole. The edges of a hole
// are decoded against the state that ends it and their assumptions are
// attached to the terminating edge; the hole edges themselves stay empty.
func (c *PathComposer) Compose(ctx context.Context, path []PathPoint) (*PathAssumptions, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}

	pa := newPathAssumptions(len(path))
	var pending []int
	for i, p := range path {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pa.stateIDs[i] = p.StateID

		if p.State == nil || p.Untrusted {
			pa.holes.Insert(i)
			pa.edges[i] = NewEdgeAssumptions(p.Edge)
			pending = append(pending, i)
			continue
		}

		ea := NewEdgeAssumptions(p.Edge)
		if len(pending) > 0 {
			c.logger().Debug("resolving hole",
				zap.Int("start", pending[0]),
				zap.Int("end", i),
			)
			for _, j := range pending {
				ea.union(c.Builder.Build(path[j].Edge, p.State))
			}
			pending = pending[:0]
		}
		ea.union(c.Builder.Build(p.Edge, p.State))
		pa.set(i, ea)
	}

	if len(pending) > 0 {
		c.logger().Debug("hole without terminating state",
			zap.Int("start", pending[0]),
			zap.Int("end", len(path)-1),
		)
	}
	return pa, nil
}

// PathAssumptions holds the assumptions for each edge of an error path.
type PathAssumptions struct {
	edges    []*EdgeAssumptions
	stateIDs []int
	holes    intsets.Sparse
	nonEmpty intsets.Sparse
}

func newPathAssumptions(n int) *PathAssumptions {
	return &PathAssumptions{
		edges:    make([]*EdgeAssumptions, n),
		stateIDs: make([]int, n),
	}
}

func (pa *PathAssumptions) set(i int, ea *EdgeAssumptions) {
	pa.edges[i] = ea
	if !ea.IsEmpty() {
		pa.nonEmpty.Insert(i)
	}
}

// Len returns the number of edges on the path.
func (pa *PathAssumptions) Len() int { return len(pa.edges) }

// At returns the assumptions for the i-th edge.
func (pa *PathAssumptions) At(i int) *EdgeAssumptions { return pa.edges[i] }

// ForState returns the assumptions of the first point produced by the
// abstract state with the given id.
func (pa *PathAssumptions) ForState(id int) (*EdgeAssumptions, bool) {
	for i, stateID := range pa.stateIDs {
		if stateID == id {
			return pa.edges[i], true
		}
	}
	return nil, false
}

// Holes returns the positions that had no trusted state.
func (pa *PathAssumptions) Holes() []int { return pa.holes.AppendTo(nil) }

// Indices returns the positions that carry assumptions or a comment.
func (pa *PathAssumptions) Indices() []int { return pa.nonEmpty.AppendTo(nil) }

// Record is the line-oriented export of one edge for reporting.
type Record struct {
	Pred    int    `json:"pred"`
	Succ    int    `json:"succ"`
	Line    int    `json:"line"`
	File    string `json:"file,omitempty"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// Records returns one record per edge.
func (pa *PathAssumptions) Records() []Record {
	records := make([]Record, len(pa.edges))
	for i, ea := range pa.edges {
		info := ea.Edge.Info()
		records[i] = Record{
			Pred:    info.Pred,
			Succ:    info.Succ,
			Line:    info.LineNumber,
			File:    info.FileName,
			Value:   strings.Join(ea.Statements(), " "),
			Comment: ea.Comment,
		}
	}
	return records
}

// String returns a listing of every edge that carries assumptions.
func (pa *PathAssumptions) String() string {
	var buf bytes.Buffer
	for _, i := range pa.Indices() {
		ea := pa.edges[i]
		fmt.Fprintf(&buf, "Line %d: %s\n", ea.Edge.Info().LineNumber, ea.Edge)
		buf.WriteString(ea.PrettyPrint(1))
	}
	return buf.String()
}

// MergePaths combines the paths produced by two independent analyses.
// Returns an error if the paths do not consist of the same edges, in which
// case the caller should fall back to one of them.
func MergePaths(a, b *PathAssumptions) (*PathAssumptions, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("%w: %d != %d", ErrPathLengthMismatch, a.Len(), b.Len())
	}

	pa := newPathAssumptions(a.Len())
	copy(pa.stateIDs, a.stateIDs)
	for i := range a.edges {
		if !cfa.SameEdge(a.edges[i].Edge, b.edges[i].Edge) {
			return nil, fmt.Errorf("%w at position %d: %q != %q", ErrEdgeMismatch, i, a.edges[i].Edge, b.edges[i].Edge)
		}
		pa.set(i, MergeEdgeAssumptions(a.edges[i], b.edges[i]))
	}
	pa.holes.Copy(&a.holes)
	pa.holes.IntersectionWith(&b.holes)
	return pa, nil
}
