package ontology

import "github.com/aegi-platform/aegi-core/pkg/contracts"

// ChangeLevel classifies a single type change between two ontology versions.
type ChangeLevel string

const (
	LevelCompatible ChangeLevel = "COMPATIBLE"
	LevelDeprecated ChangeLevel = "DEPRECATED"
	LevelBreaking   ChangeLevel = "BREAKING"
)

// Change describes one classified difference for a single type name.
type Change struct {
	TypeName    string      `json:"type_name"`
	Level       ChangeLevel `json:"level"`
	Description string      `json:"description"`
}

// CompatibilityReport is the output of Diff.
type CompatibilityReport struct {
	FromVersion  string      `json:"from_version"`
	ToVersion    string      `json:"to_version"`
	Changes      []Change    `json:"changes"`
	OverallLevel ChangeLevel `json:"overall_level"`
}

// Diff classifies every type-level change between from and to per
// spec.md §4.2: COMPATIBLE (added optional, description-only),
// DEPRECATED (type marked deprecated with a pointer), or BREAKING
// (removed required property, removed type still referenced, narrowed
// domain/range, tightened cardinality). The breaking/deprecated
// verdicts themselves are derived by asserting each type's diff
// signals as Mangle facts and evaluating compatibilityProgram's rules
// against them, rather than branching on the signals directly in Go.
func Diff(from, to *contracts.OntologyVersion) CompatibilityReport {
	report := CompatibilityReport{FromVersion: from.Version, ToVersion: to.Version, OverallLevel: LevelCompatible}

	m, err := newMangleEngine()
	if err != nil {
		report.Changes = []Change{{Level: LevelBreaking, Description: "compatibility engine error: " + err.Error()}}
		report.OverallLevel = LevelBreaking
		return report
	}

	var changes []Change
	changes = append(changes, diffTypeSet(m, from.EntityTypes, to.EntityTypes)...)
	changes = append(changes, diffTypeSet(m, from.EventTypes, to.EventTypes)...)
	changes = append(changes, diffTypeSet(m, from.RelationTypes, to.RelationTypes)...)

	if err := m.eval(); err != nil {
		changes = append(changes, Change{Level: LevelBreaking, Description: "compatibility engine evaluation error: " + err.Error()})
	} else {
		derived, err := classifiedChanges(m)
		if err != nil {
			changes = append(changes, Change{Level: LevelBreaking, Description: "compatibility engine query error: " + err.Error()})
		} else {
			changes = append(changes, derived...)
		}
	}

	report.Changes = changes
	for _, c := range changes {
		if rank(c.Level) > rank(report.OverallLevel) {
			report.OverallLevel = c.Level
		}
	}
	return report
}

// classifiedChanges reads back every breaking/deprecated_change fact
// derived by compatibilityProgram's rules and turns it into a Change.
func classifiedChanges(m *mangleEngine) ([]Change, error) {
	var changes []Change

	breaking, err := m.query("breaking", 2)
	if err != nil {
		return nil, err
	}
	for _, row := range breaking {
		typeName, reason := termString(row[0]), termString(row[1])
		changes = append(changes, Change{TypeName: typeName, Level: LevelBreaking, Description: breakingDescription(reason)})
	}

	deprecated, err := m.query("deprecated_change", 1)
	if err != nil {
		return nil, err
	}
	for _, row := range deprecated {
		changes = append(changes, Change{TypeName: termString(row[0]), Level: LevelDeprecated, Description: "type marked deprecated"})
	}
	return changes, nil
}

func breakingDescription(reason string) string {
	switch reason {
	case "removed_required":
		return "removed required property"
	case "added_required":
		return "added required property with no prior default"
	case "domain_changed":
		return "domain narrowed/changed"
	case "range_changed":
		return "range narrowed/changed"
	case "cardinality_tightened":
		return "cardinality tightened"
	case "type_removed":
		return "type removed while still in use"
	default:
		return reason
	}
}

func rank(l ChangeLevel) int {
	switch l {
	case LevelBreaking:
		return 2
	case LevelDeprecated:
		return 1
	default:
		return 0
	}
}

// diffTypeSet asserts each changed type's diff signals into m (read
// back later by classifiedChanges) and returns the Changes that don't
// need the rule engine: type additions and compatible property shifts.
func diffTypeSet(m *mangleEngine, from, to []contracts.OntologyTypeDef) []Change {
	fromByName := indexByName(from)
	toByName := indexByName(to)

	var changes []Change
	for typeName, oldDef := range fromByName {
		newDef, stillPresent := toByName[typeName]
		if !stillPresent {
			m.assert("type_removed", str(typeName))
			continue
		}
		changes = append(changes, assertTypeChange(m, oldDef, newDef)...)
	}
	for typeName := range toByName {
		if _, existed := fromByName[typeName]; !existed {
			changes = append(changes, Change{TypeName: typeName, Level: LevelCompatible, Description: "type added"})
		}
	}
	return changes
}

func indexByName(defs []contracts.OntologyTypeDef) map[string]contracts.OntologyTypeDef {
	out := make(map[string]contracts.OntologyTypeDef, len(defs))
	for _, d := range defs {
		out[d.Name] = d
	}
	return out
}

// assertTypeChange asserts oldDef/newDef's diff signals as facts and
// returns the subset of classifications (added/relaxed optional
// properties, newly deprecated pointer) that are compatible-or-simple
// enough not to need the rule engine's verdict.
func assertTypeChange(m *mangleEngine, oldDef, newDef contracts.OntologyTypeDef) []Change {
	var changes []Change

	if newDef.Deprecated && !oldDef.Deprecated {
		m.assert("newly_deprecated", str(newDef.Name))
		changes = append(changes, Change{TypeName: newDef.Name, Level: LevelDeprecated, Description: "deprecation pointer: " + newDef.DeprecatedBy})
	}

	oldReq := requiredSet(oldDef.Properties)
	newReq := requiredSet(newDef.Properties)
	newAll := propertySet(newDef.Properties)
	oldAll := propertySet(oldDef.Properties)

	for propName := range oldReq {
		if !newAll[propName] {
			m.assert("removed_required", str(newDef.Name), str(propName))
		} else if !newReq[propName] {
			changes = append(changes, Change{TypeName: newDef.Name, Level: LevelCompatible, Description: "property " + propName + " relaxed to optional"})
		}
	}
	for propName := range newAll {
		if oldAll[propName] {
			continue
		}
		if newReq[propName] {
			m.assert("added_required", str(newDef.Name), str(propName))
		} else {
			changes = append(changes, Change{TypeName: newDef.Name, Level: LevelCompatible, Description: "added optional property " + propName})
		}
	}

	if oldDef.Domain != "" && newDef.Domain != "" && oldDef.Domain != newDef.Domain {
		m.assert("domain_changed", str(newDef.Name))
	}
	if oldDef.Range != "" && newDef.Range != "" && oldDef.Range != newDef.Range {
		m.assert("range_changed", str(newDef.Name))
	}
	if oldDef.Cardinality != "" && newDef.Cardinality != "" && isCardinalityTightened(oldDef.Cardinality, newDef.Cardinality) {
		m.assert("cardinality_tightened", str(newDef.Name))
	}

	return changes
}

func requiredSet(props []contracts.PropertyDef) map[string]bool {
	out := make(map[string]bool)
	for _, p := range props {
		if p.Required {
			out[p.Name] = true
		}
	}
	return out
}

func propertySet(props []contracts.PropertyDef) map[string]bool {
	out := make(map[string]bool)
	for _, p := range props {
		out[p.Name] = true
	}
	return out
}

// isCardinalityTightened treats "many" -> "one" as tightening; any other
// transition (including unknown values) is left unclassified to avoid
// false positives.
func isCardinalityTightened(old, new string) bool {
	return old == "many" && new == "one"
}
