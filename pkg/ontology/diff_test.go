package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func typeDef(name string, required ...string) contracts.OntologyTypeDef {
	var props []contracts.PropertyDef
	for _, r := range required {
		props = append(props, contracts.PropertyDef{Name: r, Required: true})
	}
	return contracts.OntologyTypeDef{Name: name, Properties: props}
}

func TestDiff_AddedTypeIsCompatible(t *testing.T) {
	from := &contracts.OntologyVersion{Version: "v1", EntityTypes: []contracts.OntologyTypeDef{typeDef("Person")}}
	to := &contracts.OntologyVersion{Version: "v2", EntityTypes: []contracts.OntologyTypeDef{typeDef("Person"), typeDef("Organization")}}

	report := Diff(from, to)
	assert.Equal(t, LevelCompatible, report.OverallLevel)
}

func TestDiff_RemovedTypeIsBreaking(t *testing.T) {
	from := &contracts.OntologyVersion{Version: "v1", EntityTypes: []contracts.OntologyTypeDef{typeDef("Person")}}
	to := &contracts.OntologyVersion{Version: "v2", EntityTypes: nil}

	report := Diff(from, to)
	assert.Equal(t, LevelBreaking, report.OverallLevel)
}

func TestDiff_DeprecatedTypeIsDeprecatedLevel(t *testing.T) {
	old := typeDef("Person")
	newDef := typeDef("Person")
	newDef.Deprecated = true
	newDef.DeprecatedBy = "Individual"

	from := &contracts.OntologyVersion{Version: "v1", EntityTypes: []contracts.OntologyTypeDef{old}}
	to := &contracts.OntologyVersion{Version: "v2", EntityTypes: []contracts.OntologyTypeDef{newDef}}

	report := Diff(from, to)
	assert.Equal(t, LevelDeprecated, report.OverallLevel)
}

func TestDiff_RemovedRequiredPropertyIsBreaking(t *testing.T) {
	from := &contracts.OntologyVersion{Version: "v1", EntityTypes: []contracts.OntologyTypeDef{typeDef("Person", "name")}}
	to := &contracts.OntologyVersion{Version: "v2", EntityTypes: []contracts.OntologyTypeDef{typeDef("Person")}}

	report := Diff(from, to)
	assert.Equal(t, LevelBreaking, report.OverallLevel)
}

func TestDiff_AddedOptionalPropertyIsCompatible(t *testing.T) {
	old := typeDef("Person")
	newDef := contracts.OntologyTypeDef{Name: "Person", Properties: []contracts.PropertyDef{{Name: "nickname", Required: false}}}

	from := &contracts.OntologyVersion{Version: "v1", EntityTypes: []contracts.OntologyTypeDef{old}}
	to := &contracts.OntologyVersion{Version: "v2", EntityTypes: []contracts.OntologyTypeDef{newDef}}

	report := Diff(from, to)
	assert.Equal(t, LevelCompatible, report.OverallLevel)
}

func TestDiff_NarrowedRelationDomainIsBreaking(t *testing.T) {
	old := contracts.OntologyTypeDef{Name: "works_for", Domain: "Agent", Range: "Organization"}
	newDef := contracts.OntologyTypeDef{Name: "works_for", Domain: "Person", Range: "Organization"}

	from := &contracts.OntologyVersion{Version: "v1", RelationTypes: []contracts.OntologyTypeDef{old}}
	to := &contracts.OntologyVersion{Version: "v2", RelationTypes: []contracts.OntologyTypeDef{newDef}}

	report := Diff(from, to)
	assert.Equal(t, LevelBreaking, report.OverallLevel)
}

func TestDiff_TightenedCardinalityIsBreaking(t *testing.T) {
	old := contracts.OntologyTypeDef{Name: "affiliated_with", Cardinality: "many"}
	newDef := contracts.OntologyTypeDef{Name: "affiliated_with", Cardinality: "one"}

	from := &contracts.OntologyVersion{Version: "v1", RelationTypes: []contracts.OntologyTypeDef{old}}
	to := &contracts.OntologyVersion{Version: "v2", RelationTypes: []contracts.OntologyTypeDef{newDef}}

	report := Diff(from, to)
	assert.Equal(t, LevelBreaking, report.OverallLevel)
}
