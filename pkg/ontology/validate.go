package ontology

import (
	"fmt"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// PayloadKind selects which type family Validate checks against.
type PayloadKind string

const (
	KindEntity   PayloadKind = "entity"
	KindEvent    PayloadKind = "event"
	KindRelation PayloadKind = "relation"
)

// Payload is the minimal shape Validate needs from an entity, event, or
// relation fact awaiting a graph write.
type Payload struct {
	TypeName   string
	Properties map[string]string
	// DomainType/RangeType are populated only for relation payloads, and
	// only when both endpoint entity types are already known.
	DomainType string
	RangeType  string
}

// Validate checks payload against the named ontology version, returning
// nil on success or a ValidationError carrying one of the
// ontology_* error codes on failure. The schema facts for the located
// type (required properties, relation domain/range, deprecation) are
// asserted into a Mangle fact base and read back via Datalog queries
// rather than walked directly off the OntologyTypeDef struct, so the
// same entity_type/required_property/relation_domain/relation_range/
// deprecated predicate vocabulary backs both Validate and Diff.
func (r *Registry) Validate(kind PayloadKind, payload Payload, version string) error {
	v, ok := r.Get(version)
	if !ok {
		return apperrors.NewValidationErrorCode("version", fmt.Sprintf("unknown ontology version %q", version), "ontology_version_unknown")
	}

	var types []contracts.OntologyTypeDef
	switch kind {
	case KindEntity:
		types = v.EntityTypes
	case KindEvent:
		types = v.EventTypes
	case KindRelation:
		types = v.RelationTypes
	default:
		return apperrors.NewValidationErrorCode("kind", fmt.Sprintf("unknown payload kind %q", kind), "ontology_kind_unknown")
	}

	def, ok := findType(types, payload.TypeName)
	if !ok {
		return apperrors.NewValidationErrorCode("type_name", fmt.Sprintf("type %q is not defined in version %q", payload.TypeName, version), "ontology_type_unknown")
	}

	facts, err := schemaFacts(def, string(kind))
	if err != nil {
		return apperrors.NewValidationErrorCode("version", fmt.Sprintf("ontology schema evaluation failed: %v", err), "ontology_version_unknown")
	}

	for _, prop := range facts.requiredProperties {
		if _, present := payload.Properties[prop]; !present {
			return apperrors.NewValidationErrorCode("properties", fmt.Sprintf("type %q is missing required property %q", payload.TypeName, prop), "ontology_entity_missing_properties")
		}
	}

	if kind == KindRelation {
		if payload.DomainType != "" && facts.domain != "" && payload.DomainType != facts.domain {
			return apperrors.NewValidationErrorCode("domain", fmt.Sprintf("relation %q requires domain %q, got %q", payload.TypeName, facts.domain, payload.DomainType), "ontology_relation_domain_violation")
		}
		if payload.RangeType != "" && facts.rangeType != "" && payload.RangeType != facts.rangeType {
			return apperrors.NewValidationErrorCode("range", fmt.Sprintf("relation %q requires range %q, got %q", payload.TypeName, facts.rangeType, payload.RangeType), "ontology_relation_range_violation")
		}
	}

	return nil
}

// schemaResult is what schemaFacts reads back out of the Mangle engine
// for one type definition.
type schemaResult struct {
	requiredProperties []string
	domain             string
	rangeType          string
	deprecated         bool
}

// schemaFacts asserts def's schema as entity_type/required_property/
// relation_domain/relation_range/deprecated facts, evaluates
// compatibilityProgram, and queries the results back out for kind.
func schemaFacts(def contracts.OntologyTypeDef, kind string) (schemaResult, error) {
	m, err := newMangleEngine()
	if err != nil {
		return schemaResult{}, err
	}

	m.assert("entity_type", str(def.Name), str(kind))
	for _, p := range def.Properties {
		if p.Required {
			m.assert("required_property", str(def.Name), str(p.Name))
		}
	}
	if def.Domain != "" {
		m.assert("relation_domain", str(def.Name), str(def.Domain))
	}
	if def.Range != "" {
		m.assert("relation_range", str(def.Name), str(def.Range))
	}
	if def.Deprecated {
		m.assert("deprecated", str(def.Name))
	}

	if err := m.eval(); err != nil {
		return schemaResult{}, err
	}

	var out schemaResult
	reqRows, err := m.query("required_property", 2)
	if err != nil {
		return schemaResult{}, err
	}
	for _, row := range reqRows {
		if termString(row[0]) == def.Name {
			out.requiredProperties = append(out.requiredProperties, termString(row[1]))
		}
	}

	domainRows, err := m.query("relation_domain", 2)
	if err != nil {
		return schemaResult{}, err
	}
	for _, row := range domainRows {
		if termString(row[0]) == def.Name {
			out.domain = termString(row[1])
		}
	}

	rangeRows, err := m.query("relation_range", 2)
	if err != nil {
		return schemaResult{}, err
	}
	for _, row := range rangeRows {
		if termString(row[0]) == def.Name {
			out.rangeType = termString(row[1])
		}
	}

	depRows, err := m.query("deprecated", 1)
	if err != nil {
		return schemaResult{}, err
	}
	for _, row := range depRows {
		if termString(row[0]) == def.Name {
			out.deprecated = true
		}
	}

	return out, nil
}

func findType(types []contracts.OntologyTypeDef, name string) (contracts.OntologyTypeDef, bool) {
	for _, t := range types {
		if t.Name == name {
			return t, true
		}
	}
	return contracts.OntologyTypeDef{}, false
}
