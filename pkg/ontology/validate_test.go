package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Put(&contracts.OntologyVersion{
		Version: "v1",
		EntityTypes: []contracts.OntologyTypeDef{
			{Name: "Person", Properties: []contracts.PropertyDef{{Name: "name", Required: true}}},
		},
		RelationTypes: []contracts.OntologyTypeDef{
			{Name: "works_for", Domain: "Person", Range: "Organization"},
		},
	})
	return r
}

func TestValidate_UnknownVersion(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindEntity, Payload{TypeName: "Person", Properties: map[string]string{"name": "a"}}, "v99")
	require.Error(t, err)
	assert.Equal(t, "ontology_version_unknown", apperrors.ErrorCode(err))
}

func TestValidate_UnknownType(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindEntity, Payload{TypeName: "Vehicle"}, "v1")
	require.Error(t, err)
}

func TestValidate_MissingRequiredProperty(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindEntity, Payload{TypeName: "Person", Properties: map[string]string{}}, "v1")
	require.Error(t, err)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "ontology_entity_missing_properties", ve.Code)
}

func TestValidate_PassesWithRequiredProperty(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindEntity, Payload{TypeName: "Person", Properties: map[string]string{"name": "Alice"}}, "v1")
	assert.NoError(t, err)
}

func TestValidate_RelationDomainViolation(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindRelation, Payload{TypeName: "works_for", DomainType: "Organization"}, "v1")
	require.Error(t, err)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "ontology_relation_domain_violation", ve.Code)
}

func TestValidate_RelationRangeOK(t *testing.T) {
	r := testRegistry()
	err := r.Validate(KindRelation, Payload{TypeName: "works_for", DomainType: "Person", RangeType: "Organization"}, "v1")
	assert.NoError(t, err)
}
