// Package vectorstore wraps Qdrant as the embedding store for chunk text,
// memory scenarios, and subscription interest — anywhere the spec calls
// for cosine similarity search over a vector.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// DefaultVectorSize matches the BGE-M3 embedding dimension the rest of
// the system assumes unless qdrant.vector_size overrides it.
const DefaultVectorSize = 1024

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "aegi_chunks"

// Result is one scored hit from a similarity search.
type Result struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// Store is a thin façade over a Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
}

// Config configures Store construction.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	VectorSize int
}

// Open connects to Qdrant and ensures the configured collection exists,
// creating it with a cosine-distance vector config if absent.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	size := uint64(cfg.VectorSize)
	if size == 0 {
		size = DefaultVectorSize
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("open qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("check qdrant collection: %w", err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("create qdrant collection %q: %w", collection, err)
		}
	}

	return &Store{client: client, collection: collection, vectorSize: size}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Upsert stores one embedding under id, with text and metadata carried
// as payload fields so Search can render results without a second
// relational lookup.
func (s *Store) Upsert(ctx context.Context, id string, embedding []float32, text string, metadata map[string]string) error {
	payload := map[string]any{"text": text}
	for k, v := range metadata {
		payload[k] = v
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(payload),
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point %q: %w", id, err)
	}
	return nil
}

// Search runs a cosine similarity query, returning only hits scoring at
// or above scoreThreshold.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, scoreThreshold float32) ([]Result, error) {
	threshold := scoreThreshold
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query qdrant: %w", err)
	}

	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		payload := hit.GetPayload()
		text := ""
		metadata := make(map[string]string, len(payload))
		for k, v := range payload {
			if k == "text" {
				text = v.GetStringValue()
				continue
			}
			metadata[k] = v.GetStringValue()
		}
		out = append(out, Result{
			ID:       pointIDString(hit.GetId()),
			Text:     text,
			Score:    hit.GetScore(),
			Metadata: metadata,
		})
	}
	return out, nil
}

// Delete removes a point by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(id)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete point %q: %w", id, err)
	}
	return nil
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
