// Package fixture loads counterexample descriptions from YAML documents. A
// fixture declares the types and variables of a C program, the edges of an
// error path and the concrete state reached at each edge.
package fixture

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/cex"
	"github.com/benbjohnson/cex/cfa"
	"gopkg.in/yaml.v3"
)

// Fixture is a loaded counterexample.
type Fixture struct {
	Name    string
	Machine *cfa.Machine
	Config  cex.Config
	Scope   *Scope
	Points  []*Point
	States  map[string]*cex.ConcreteState
}

// Point is one edge of the error path.
type Point struct {
	cex.PathPoint

	// Expected statements and comment, if the fixture declares them.
	Expect        []string
	ExpectComment string
}

// Path returns the path points in order.
func (f *Fixture) Path() []cex.PathPoint {
	a := make([]cex.PathPoint, len(f.Points))
	for i, p := range f.Points {
		a[i] = p.PathPoint
	}
	return a
}

type document struct {
	Name      string                   `yaml:"name"`
	Machine   string                   `yaml:"machine"`
	Config    cex.Config               `yaml:"config"`
	Types     []typeDocument           `yaml:"types"`
	Globals   []varDocument            `yaml:"globals"`
	Functions []functionDocument       `yaml:"functions"`
	States    map[string]stateDocument `yaml:"states"`
	Path      []pointDocument          `yaml:"path"`
}

type typeDocument struct {
	Struct      string           `yaml:"struct"`
	Union       string           `yaml:"union"`
	Enum        string           `yaml:"enum"`
	Typedef     string           `yaml:"typedef"`
	Type        string           `yaml:"type"`
	Fields      []varDocument    `yaml:"fields"`
	Enumerators map[string]int64 `yaml:"enumerators"`
}

type varDocument struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type functionDocument struct {
	Name   string        `yaml:"name"`
	Result string        `yaml:"result"`
	Params []varDocument `yaml:"params"`
	Locals []varDocument `yaml:"locals"`
}

type stateDocument struct {
	Variables map[string]string            `yaml:"variables"`
	Addresses map[string]string            `yaml:"addresses"`
	Memory    map[string]map[string]string `yaml:"memory"`
	Region    string                       `yaml:"region"`
}

type edgeDocument struct {
	Kind     string         `yaml:"kind"`
	Function string         `yaml:"function"`
	Code     string         `yaml:"code"`
	Decl     string         `yaml:"decl"`
	Truth    *bool          `yaml:"truth"`
	Line     int            `yaml:"line"`
	File     string         `yaml:"file"`
	Pred     int            `yaml:"pred"`
	Succ     int            `yaml:"succ"`
	Edges    []edgeDocument `yaml:"edges"`
}

type pointDocument struct {
	edgeDocument `yaml:",inline"`

	State     string   `yaml:"state"`
	StateID   int      `yaml:"stateId"`
	Untrusted bool     `yaml:"untrusted"`
	Expect    []string `yaml:"expect"`
	Comment   string   `yaml:"expectComment"`
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	machine, ok := cfa.MachineByName(doc.Machine)
	if !ok {
		return nil, fmt.Errorf("unknown machine %q", doc.Machine)
	}

	f := &Fixture{
		Name:    doc.Name,
		Machine: machine,
		Config:  doc.Config,
		States:  make(map[string]*cex.ConcreteState),
	}

	types := NewTypeTable()
	if err := declareTypes(types, doc.Types); err != nil {
		return nil, err
	}
	f.Scope = NewScope(types, machine)
	if err := declareVariables(f.Scope, &doc); err != nil {
		return nil, err
	}

	for name, sd := range doc.States {
		state, err := buildState(sd)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", name, err)
		}
		f.States[name] = state
	}

	pred := 0
	for i, pd := range doc.Path {
		edge, err := f.buildEdge(pd.edgeDocument, &pred)
		if err != nil {
			return nil, fmt.Errorf("path[%d]: %w", i, err)
		}

		p := &Point{
			PathPoint: cex.PathPoint{
				Edge:      edge,
				Untrusted: pd.Untrusted,
				StateID:   pd.StateID,
			},
			Expect:        pd.Expect,
			ExpectComment: pd.Comment,
		}
		if pd.State != "" {
			state, ok := f.States[pd.State]
			if !ok {
				return nil, fmt.Errorf("path[%d]: unknown state %q", i, pd.State)
			}
			p.State = state
		}
		f.Points = append(f.Points, p)
	}
	return f, nil
}

func declareTypes(types *TypeTable, docs []typeDocument) error {
	// Tags are declared before any member is parsed so that types may refer
	// to each other in any order.
	for _, td := range docs {
		switch {
		case td.Struct != "":
			types.DeclareComposite(cfa.StructKind, td.Struct)
		case td.Union != "":
			types.DeclareComposite(cfa.UnionKind, td.Union)
		case td.Enum != "":
			types.DeclareEnum(td.Enum, enumerators(td.Enumerators))
		}
	}

	for _, td := range docs {
		switch {
		case td.Struct != "", td.Union != "":
			kind, name := cfa.StructKind, td.Struct
			if td.Union != "" {
				kind, name = cfa.UnionKind, td.Union
			}
			t := types.DeclareComposite(kind, name)
			for _, fd := range td.Fields {
				ft, err := types.ParseType(fd.Type)
				if err != nil {
					return fmt.Errorf("%s %s: field %s: %w", kind, name, fd.Name, err)
				}
				t.Fields = append(t.Fields, &cfa.Field{Name: fd.Name, Type: ft})
			}
		case td.Typedef != "":
			t, err := types.ParseType(td.Type)
			if err != nil {
				return fmt.Errorf("typedef %s: %w", td.Typedef, err)
			}
			types.DeclareTypedef(td.Typedef, t)
		case td.Enum != "":
		default:
			return fmt.Errorf("type entry without struct, union, enum or typedef name")
		}
	}
	return nil
}

func enumerators(m map[string]int64) []cfa.Enumerator {
	a := make([]cfa.Enumerator, 0, len(m))
	for name, v := range m {
		a = append(a, cfa.Enumerator{Name: name, Value: v})
	}
	sort.Slice(a, func(i, j int) bool {
		if a[i].Value != a[j].Value {
			return a[i].Value < a[j].Value
		}
		return a[i].Name < a[j].Name
	})
	return a
}

func declareVariables(scope *Scope, doc *document) error {
	for _, vd := range doc.Globals {
		t, err := scope.Types.ParseType(vd.Type)
		if err != nil {
			return fmt.Errorf("global %s: %w", vd.Name, err)
		}
		scope.DeclareGlobal(vd.Name, t)
	}

	for _, fd := range doc.Functions {
		result := cfa.Type(&cfa.Void{})
		if fd.Result != "" {
			t, err := scope.Types.ParseType(fd.Result)
			if err != nil {
				return fmt.Errorf("function %s: result: %w", fd.Name, err)
			}
			result = t
		}

		params := make([]*cfa.Declaration, len(fd.Params))
		for i, pd := range fd.Params {
			t, err := scope.Types.ParseType(pd.Type)
			if err != nil {
				return fmt.Errorf("function %s: param %s: %w", fd.Name, pd.Name, err)
			}
			params[i] = &cfa.Declaration{Name: pd.Name, Type: t}
		}
		scope.DeclareFunction(fd.Name, result, params...)

		for _, ld := range fd.Locals {
			t, err := scope.Types.ParseType(ld.Type)
			if err != nil {
				return fmt.Errorf("function %s: local %s: %w", fd.Name, ld.Name, err)
			}
			scope.DeclareLocal(fd.Name, ld.Name, t)
		}
	}
	return nil
}

// buildState converts a state document. Keys of variables and addresses are
// binding names such as "x", "main::x" or "main::s$a$b".
func buildState(sd stateDocument) (*cex.ConcreteState, error) {
	state := cex.NewConcreteState()
	if sd.Region != "" {
		state = state.WithRegionNamer(cex.SingleRegionNamer(sd.Region))
	}

	for _, k := range sortedKeys(sd.Variables) {
		state = state.WithVariable(ParseLeftHandSide(k), sd.Variables[k])
	}
	for _, k := range sortedKeys(sd.Addresses) {
		addr := cex.AddressOf(sd.Addresses[k])
		state = state.WithVariableAddress(ParseLeftHandSide(k), addr)
	}
	for _, region := range sortedKeys(sd.Memory) {
		for _, k := range sortedKeys(sd.Memory[region]) {
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("empty address in region %q", region)
			}
			state = state.WithMemory(region, cex.AddressOf(k), sd.Memory[region][k])
		}
	}
	return state, nil
}

// ParseLeftHandSide parses a binding name into an identifier or field chain.
func ParseLeftHandSide(s string) cex.LeftHandSide {
	var fn string
	if i := strings.Index(s, "::"); i >= 0 {
		fn, s = s[:i], s[i+2:]
	}
	parts := strings.Split(s, "$")
	if len(parts) == 1 {
		return cex.NewIdentifier(parts[0], fn)
	}
	return cex.NewFieldChain(parts[0], fn, parts[1:]...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildEdge converts an edge document. Node ids that are not given are
// numbered consecutively along the path.
func (f *Fixture) buildEdge(ed edgeDocument, pred *int) (cfa.Edge, error) {
	info := cfa.EdgeInfo{
		Pred:       ed.Pred,
		Succ:       ed.Succ,
		LineNumber: ed.Line,
		FileName:   ed.File,
		Code:       ed.Code,
	}
	if info.Pred == 0 && info.Succ == 0 {
		info.Pred, info.Succ = *pred, *pred+1
	}
	*pred = info.Succ

	switch ed.Kind {
	case "blank", "":
		return &cfa.BlankEdge{EdgeInfo: info, Description: ed.Code}, nil

	case "declaration":
		decl, ok := f.Scope.Lookup(ed.Function, ed.Decl)
		if !ok {
			return nil, fmt.Errorf("undeclared variable %q", ed.Decl)
		}
		if info.Code == "" {
			info.Code = decl.String() + ";"
		}
		return &cfa.DeclarationEdge{EdgeInfo: info, Decl: decl}, nil

	case "statement":
		stmt, err := f.Scope.ParseStmt(ed.Function, ed.Code)
		if err != nil {
			return nil, err
		}
		return &cfa.StatementEdge{EdgeInfo: info, Stmt: stmt}, nil

	case "assume":
		cond, err := f.Scope.ParseExpr(ed.Function, ed.Code)
		if err != nil {
			return nil, err
		}
		truth := ed.Truth == nil || *ed.Truth
		return &cfa.AssumeEdge{EdgeInfo: info, Cond: cond, Truth: truth}, nil

	case "call":
		x, err := f.Scope.ParseExpr(ed.Function, ed.Code)
		if err != nil {
			return nil, err
		}
		call, ok := x.(*cfa.CallExpr)
		if !ok {
			return nil, fmt.Errorf("not a function call: %s", ed.Code)
		}
		callee, ok := f.Scope.Function(call.Func)
		if !ok {
			return nil, fmt.Errorf("undeclared function %q", call.Func)
		}
		return &cfa.FunctionCallEdge{EdgeInfo: info, Call: call, Callee: callee}, nil

	case "return":
		edge := &cfa.ReturnEdge{EdgeInfo: info, Function: ed.Function}
		if strings.TrimSpace(ed.Code) != "" {
			x, err := f.Scope.ParseExpr(ed.Function, ed.Code)
			if err != nil {
				return nil, err
			}
			edge.Result = x
		}
		return edge, nil

	case "function-return":
		return &cfa.FunctionReturnEdge{EdgeInfo: info, Function: ed.Function}, nil

	case "multi":
		if len(ed.Edges) == 0 {
			return nil, fmt.Errorf("multi-edge without edges")
		}
		inner := make([]cfa.Edge, len(ed.Edges))
		next := info.Pred
		for i, sub := range ed.Edges {
			if sub.Function == "" {
				sub.Function = ed.Function
			}
			e, err := f.buildEdge(sub, &next)
			if err != nil {
				return nil, fmt.Errorf("edges[%d]: %w", i, err)
			}
			inner[i] = e
		}
		m := cfa.NewMultiEdge(inner...)
		m.Code = info.Code
		if info.LineNumber != 0 {
			m.LineNumber, m.FileName = info.LineNumber, info.FileName
		}
		*pred = m.Succ
		return m, nil

	default:
		return nil, fmt.Errorf("unknown edge kind %q", ed.Kind)
	}
}

// String returns the fixture name.
func (f *Fixture) String() string {
	if f.Name != "" {
		return f.Name
	}
	return "fixture(" + strconv.Itoa(len(f.Points)) + " edges)"
}
