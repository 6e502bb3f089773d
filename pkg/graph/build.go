package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegi-platform/aegi-core/pkg/contracts"
	"github.com/aegi-platform/aegi-core/pkg/ontology"
)

// BuildFromAssertions validates a batch of entities and relation facts
// against the active ontology version, then upserts every valid one
// into the graph store. Invalid items are skipped and reported, not
// fatal to the batch.
func BuildFromAssertions(
	ctx context.Context,
	registry *ontology.Registry,
	store *Store,
	caseUID, ontologyVersion string,
	entities []contracts.Entity,
	relations []contracts.RelationFact,
) (contracts.Action, []error) {
	validEntities, validRelations, errs := validateBatch(registry, ontologyVersion, entities, relations)

	for _, e := range validEntities {
		if err := store.UpsertEntity(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", e.UID, err))
		}
	}
	for _, r := range validRelations {
		if err := store.UpsertRelation(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("relation %s: %w", r.UID, err))
		}
	}

	action := contracts.Action{
		UID: uuid.NewString(), CaseUID: caseUID, Kind: "kg.build",
		Rationale: fmt.Sprintf("projected %d entities and %d relations (%d errors)", len(entities), len(relations), len(errs)),
		CreatedAt: time.Now().UTC(),
	}
	return action, errs
}

// validateBatch is the pure, store-free core of BuildFromAssertions:
// it partitions entities and relations into ontology-valid items ready
// for upsert and the validation errors for anything rejected.
func validateBatch(
	registry *ontology.Registry,
	ontologyVersion string,
	entities []contracts.Entity,
	relations []contracts.RelationFact,
) ([]contracts.Entity, []contracts.RelationFact, []error) {
	var errs []error

	validEntities := make([]contracts.Entity, 0, len(entities))
	for _, e := range entities {
		if err := registry.Validate(ontology.KindEntity, ontology.Payload{
			TypeName: e.Type, Properties: e.Props,
		}, ontologyVersion); err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", e.UID, err))
			continue
		}
		validEntities = append(validEntities, e)
	}

	validRelations := make([]contracts.RelationFact, 0, len(relations))
	for _, r := range relations {
		if err := registry.Validate(ontology.KindRelation, ontology.Payload{
			TypeName: r.Type,
		}, ontologyVersion); err != nil {
			errs = append(errs, fmt.Errorf("relation %s: %w", r.UID, err))
			continue
		}
		validRelations = append(validRelations, r)
	}

	return validEntities, validRelations, errs
}
