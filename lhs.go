package cex

import (
	"strings"

	"github.com/benbjohnson/cex/cfa"
)

// LeftHandSide identifies a variable binding in a concrete state.
type LeftHandSide interface {
	// Key returns a unique string for the binding. Globals and function
	// scoped variables of the same name have distinct keys.
	Key() string
	String() string
	lhs()
}

func (*Identifier) lhs() {}
func (*FieldChain) lhs() {}

// Identifier is a plain variable. Function is empty for globals.
type Identifier struct {
	Name     string
	Function string
}

// NewIdentifier returns a new instance of Identifier.
func NewIdentifier(name, function string) *Identifier {
	return &Identifier{Name: name, Function: function}
}

// IdentifierOf returns the identifier of a declared variable.
func IdentifierOf(decl *cfa.Declaration) *Identifier {
	return NewIdentifier(decl.Name, decl.Function)
}

// IsGlobal returns true if the identifier has no owning function.
func (id *Identifier) IsGlobal() bool { return id.Function == "" }

func (id *Identifier) Key() string {
	if id.Function == "" {
		return id.Name
	}
	return id.Function + "::" + id.Name
}

func (id *Identifier) String() string { return id.Key() }

// FieldChain is a struct member exposed only under a flattened name such as
// "s$inner$x".
type FieldChain struct {
	Name     string
	Function string
	Fields   []string
}

// NewFieldChain returns a new instance of FieldChain.
func NewFieldChain(name, function string, fields ...string) *FieldChain {
	return &FieldChain{Name: name, Function: function, Fields: fields}
}

// Append returns a new chain extended by field.
func (fc *FieldChain) Append(field string) *FieldChain {
	fields := make([]string, len(fc.Fields), len(fc.Fields)+1)
	copy(fields, fc.Fields)
	return &FieldChain{Name: fc.Name, Function: fc.Function, Fields: append(fields, field)}
}

func (fc *FieldChain) Key() string {
	var sb strings.Builder
	if fc.Function != "" {
		sb.WriteString(fc.Function)
		sb.WriteString("::")
	}
	sb.WriteString(fc.Name)
	for _, f := range fc.Fields {
		sb.WriteString("$")
		sb.WriteString(f)
	}
	return sb.String()
}

func (fc *FieldChain) String() string { return fc.Key() }
