package cex

import (
	"bytes"
	"slices"
	"strings"

	"github.com/benbjohnson/cex/cfa"
)

// EdgeAssumptions holds the assumptions that hold after an edge, in order of
// first appearance, plus a free-text comment for facts that cannot be stated
// as assumptions.
type EdgeAssumptions struct {
	Edge        cfa.Edge
	Assumptions []*Assumption
	Comment     string
}

// NewEdgeAssumptions returns an empty set of assumptions for edge.
func NewEdgeAssumptions(edge cfa.Edge) *EdgeAssumptions {
	return &EdgeAssumptions{Edge: edge}
}

// Add appends a unless an assumption with the same text already exists.
func (ea *EdgeAssumptions) Add(a *Assumption) bool {
	s := a.String()
	for _, other := range ea.Assumptions {
		if other.String() == s {
			return false
		}
	}
	ea.Assumptions = append(ea.Assumptions, a)
	return true
}

// AddComment appends a line to the comment. Empty text is ignored.
func (ea *EdgeAssumptions) AddComment(text string) {
	if text == "" {
		return
	} else if ea.Comment != "" {
		ea.Comment += "\n"
	}
	ea.Comment += text
}

// IsEmpty returns true if there are no assumptions and no comment.
func (ea *EdgeAssumptions) IsEmpty() bool {
	return len(ea.Assumptions) == 0 && ea.Comment == ""
}

// Statements returns the assumptions as C statements.
func (ea *EdgeAssumptions) Statements() []string {
	a := make([]string, len(ea.Assumptions))
	for i := range ea.Assumptions {
		a[i] = ea.Assumptions[i].String()
	}
	return a
}

// AsCode returns the assumptions as parseable C code, one per line.
func (ea *EdgeAssumptions) AsCode() string {
	return strings.Join(ea.Statements(), "\n")
}

// PrettyPrint returns the assumptions and comment indented by tabs. The output
// is meant for display and is not parseable.
func (ea *EdgeAssumptions) PrettyPrint(tabs int) string {
	indent := strings.Repeat("\t", tabs)

	var buf bytes.Buffer
	for _, s := range ea.Statements() {
		buf.WriteString(indent)
		buf.WriteString(s)
		buf.WriteString("\n")
	}
	if ea.Comment != "" {
		for _, line := range strings.Split(ea.Comment, "\n") {
			buf.WriteString(indent)
			buf.WriteString("// ")
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

func (ea *EdgeAssumptions) String() string {
	return ea.Edge.String() + "\n" + ea.PrettyPrint(1)
}

// union adds the assumptions and comment of other to ea. Comment lines of
// other are appended in order, skipping lines ea already holds.
func (ea *EdgeAssumptions) union(other *EdgeAssumptions) {
	for _, a := range other.Assumptions {
		ea.Add(a)
	}
	if other.Comment == "" {
		return
	}
	have := strings.Split(ea.Comment, "\n")
	for _, line := range strings.Split(other.Comment, "\n") {
		if !slices.Contains(have, line) {
			ea.AddComment(line)
			have = append(have, line)
		}
	}
}

// MergeEdgeAssumptions combines the results of independent analyses for the
// same edge. Assumptions are united by text. The comment is the comment of a
// followed by the lines of b's comment that a does not already contain.
func MergeEdgeAssumptions(a, b *EdgeAssumptions) *EdgeAssumptions {
	assert(cfa.SameEdge(a.Edge, b.Edge), "merge of assumptions for different edges: %s, %s", a.Edge, b.Edge)
	result := NewEdgeAssumptions(a.Edge)
	result.union(a)
	result.union(b)
	return result
}
