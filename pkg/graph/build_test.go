package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
)

func testRegistry() *ontology.Registry {
	r := ontology.NewRegistry()
	r.Put(&contracts.OntologyVersion{
		Version: "v1",
		EntityTypes: []contracts.OntologyTypeDef{
			{Name: "GPE"}, {Name: "PERSON"},
		},
		RelationTypes: []contracts.OntologyTypeDef{
			{Name: "ALLY"},
		},
	})
	return r
}

func TestValidateBatch_AcceptsKnownTypes(t *testing.T) {
	entities := []contracts.Entity{{UID: "e1", Type: "GPE", Name: "Exampleland"}}
	relations := []contracts.RelationFact{{UID: "r1", Type: "ALLY", SourceEntityUID: "e1", TargetEntityUID: "e2"}}

	validEntities, validRelations, errs := validateBatch(testRegistry(), "v1", entities, relations)
	assert.Empty(t, errs)
	require.Len(t, validEntities, 1)
	require.Len(t, validRelations, 1)
}

func TestValidateBatch_RejectsUnknownEntityType(t *testing.T) {
	entities := []contracts.Entity{{UID: "e1", Type: "SPACESHIP", Name: "nope"}}
	validEntities, _, errs := validateBatch(testRegistry(), "v1", entities, nil)
	assert.Empty(t, validEntities)
	require.Len(t, errs, 1)
}

func TestValidateBatch_RejectsUnknownOntologyVersion(t *testing.T) {
	entities := []contracts.Entity{{UID: "e1", Type: "GPE", Name: "Exampleland"}}
	validEntities, _, errs := validateBatch(testRegistry(), "v999", entities, nil)
	assert.Empty(t, validEntities)
	require.Len(t, errs, 1)
}

func TestValidateBatch_PartialBatchKeepsValidItems(t *testing.T) {
	entities := []contracts.Entity{
		{UID: "e1", Type: "GPE", Name: "Exampleland"},
		{UID: "e2", Type: "UNKNOWN", Name: "bad"},
	}
	validEntities, _, errs := validateBatch(testRegistry(), "v1", entities, nil)
	require.Len(t, validEntities, 1)
	assert.Equal(t, "e1", validEntities[0].UID)
	require.Len(t, errs, 1)
}
