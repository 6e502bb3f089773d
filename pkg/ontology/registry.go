// Package ontology holds the versioned entity/event/relation type schema
// that governs every graph write, and the compatibility diff between
// versions.
package ontology

import (
	"encoding/json"
	"sync"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// Registry is a process-wide map of version -> OntologyVersion. A database
// mirror persists versions for cross-process reads; Registry itself is the
// in-memory read path consulted on the hot path of graph writes.
type Registry struct {
	mu       sync.RWMutex
	versions map[string]*contracts.OntologyVersion
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{versions: make(map[string]*contracts.OntologyVersion)}
}

// Reset clears all loaded versions. Test-only hook, mirroring the event
// bus's own singleton reset discipline.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions = make(map[string]*contracts.OntologyVersion)
}

// Get returns the version, or (nil, false) if not loaded.
func (r *Registry) Get(version string) (*contracts.OntologyVersion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[version]
	return v, ok
}

// legacyShape is the backward-compatible "list of names" encoding some
// ontology payloads still arrive in.
type legacyShape struct {
	Version       string   `json:"version"`
	EntityTypes   []string `json:"entity_types"`
	EventTypes    []string `json:"event_types"`
	RelationTypes []string `json:"relation_types"`
}

// Load accepts either the full contract-dict shape of OntologyVersion or
// the legacy list-of-names shape, normalizing the legacy shape into
// required-property-free type definitions.
func (r *Registry) Load(raw json.RawMessage) (*contracts.OntologyVersion, error) {
	var full contracts.OntologyVersion
	if err := json.Unmarshal(raw, &full); err == nil && len(full.EntityTypes) > 0 {
		r.put(&full)
		return &full, nil
	}

	var legacy legacyShape
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	full = contracts.OntologyVersion{
		Version:       legacy.Version,
		EntityTypes:   namesToTypeDefs(legacy.EntityTypes),
		EventTypes:    namesToTypeDefs(legacy.EventTypes),
		RelationTypes: namesToTypeDefs(legacy.RelationTypes),
	}
	r.put(&full)
	return &full, nil
}

// Put registers an already-constructed version directly (used by tests and
// by the database-mirror hydration path).
func (r *Registry) Put(v *contracts.OntologyVersion) { r.put(v) }

func (r *Registry) put(v *contracts.OntologyVersion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[v.Version] = v
}

func namesToTypeDefs(names []string) []contracts.OntologyTypeDef {
	out := make([]contracts.OntologyTypeDef, 0, len(names))
	for _, n := range names {
		out = append(out, contracts.OntologyTypeDef{Name: n})
	}
	return out
}
