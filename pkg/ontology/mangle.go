package ontology

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// compatibilityProgram is the Datalog rule set Diff and Validate
// evaluate against the facts they assert about a version's types. Base
// predicates follow spec.md's ontology vocabulary: entity_type,
// relation_domain, relation_range, required_property, deprecated.
// Diff additionally asserts the precomputed per-type diff signals
// (removed_required, domain_changed, ...) and reads back the derived
// breaking/deprecated_change classification.
const compatibilityProgram = `
	Decl entity_type(Name, Kind).
	Decl required_property(Name, Prop).
	Decl relation_domain(Name, Domain).
	Decl relation_range(Name, Range).
	Decl deprecated(Name).

	Decl removed_required(Name, Prop).
	Decl added_required(Name, Prop).
	Decl domain_changed(Name).
	Decl range_changed(Name).
	Decl cardinality_tightened(Name).
	Decl type_removed(Name).
	Decl newly_deprecated(Name).

	Decl breaking(Name, Reason).
	Decl deprecated_change(Name).

	breaking(T, /removed_required) :- removed_required(T, P).
	breaking(T, /added_required) :- added_required(T, P).
	breaking(T, /domain_changed) :- domain_changed(T).
	breaking(T, /range_changed) :- range_changed(T).
	breaking(T, /cardinality_tightened) :- cardinality_tightened(T).
	breaking(T, /type_removed) :- type_removed(T).
	deprecated_change(T) :- newly_deprecated(T).
`

// mangleEngine is one evaluation of compatibilityProgram over a
// caller-built fact set, wrapping google/mangle's parse/analysis/
// engine/factstore packages the way a minimal embedding does: parse
// the source into a unit, analyze it into a ProgramInfo, add facts to
// an in-memory store, then evaluate to a fixed point before querying.
type mangleEngine struct {
	store factstore.FactStore
	info  *analysis.ProgramInfo
}

func newMangleEngine() (*mangleEngine, error) {
	unit, err := parse.Unit(strings.NewReader(compatibilityProgram))
	if err != nil {
		return nil, fmt.Errorf("ontology: parse compatibility program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("ontology: analyze compatibility program: %w", err)
	}
	return &mangleEngine{store: factstore.NewSimpleInMemoryStore(), info: info}, nil
}

// str builds a Mangle string-constant term for arbitrary ontology data
// (type names, property names) that need not follow Name-constant
// syntax.
func str(s string) ast.BaseTerm { return ast.String(s) }

func (m *mangleEngine) assert(predicate string, args ...ast.BaseTerm) {
	m.store.Add(ast.NewAtom(predicate, args...))
}

func (m *mangleEngine) eval() error {
	_, err := engine.EvalProgramWithStats(m.info, m.store)
	return err
}

// query returns the argument tuples of every fact currently derivable
// for predicate/arity.
func (m *mangleEngine) query(predicate string, arity int) ([][]ast.BaseTerm, error) {
	pred := ast.PredicateSym{Symbol: predicate, Arity: arity}
	q := ast.NewQuery(pred)

	var rows [][]ast.BaseTerm
	err := m.store.GetFacts(q, func(atom ast.Atom) error {
		rows = append(rows, atom.Args)
		return nil
	})
	return rows, err
}

// termString renders a Mangle constant back to its Go string value,
// for both String- and Name-typed constants.
func termString(t ast.BaseTerm) string {
	c, ok := t.(ast.Constant)
	if !ok {
		return t.String()
	}
	switch c.Type {
	case ast.NameType, ast.StringType:
		return c.Symbol
	default:
		return c.String()
	}
}
