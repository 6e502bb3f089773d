package ontology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

func TestRegistry_LoadFullShape(t *testing.T) {
	r := NewRegistry()
	raw := json.RawMessage(`{
		"version": "v2",
		"entity_types": [{"name": "Person", "properties": [{"name": "name", "required": true}]}],
		"event_types": [],
		"relation_types": [{"name": "works_for", "domain": "Person", "range": "Organization"}]
	}`)

	v, err := r.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.Version)
	require.Len(t, v.EntityTypes, 1)
	assert.Equal(t, "Person", v.EntityTypes[0].Name)
	assert.True(t, v.EntityTypes[0].Properties[0].Required)

	got, ok := r.Get("v2")
	require.True(t, ok)
	assert.Same(t, v, got)
}

func TestRegistry_LoadLegacyShape(t *testing.T) {
	r := NewRegistry()
	raw := json.RawMessage(`{
		"version": "v1",
		"entity_types": ["Person", "Organization"],
		"event_types": ["Meeting"],
		"relation_types": ["works_for"]
	}`)

	v, err := r.Load(raw)
	require.NoError(t, err)
	require.Len(t, v.EntityTypes, 2)
	assert.Equal(t, "Person", v.EntityTypes[0].Name)
	assert.Empty(t, v.EntityTypes[0].Properties)
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.Put(&contracts.OntologyVersion{Version: "v1"})
	r.Reset()
	_, ok := r.Get("v1")
	assert.False(t, ok)
}
