package retrieval

import (
	"context"

	"github.com/pbeckmann/evidex/model"
)

// EmbeddingProvider turns text into a fixed-dimension float vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs approximate nearest-neighbor search over document
// embeddings. Filters are applied by the backing store, not by the engine.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, topK int, filters model.SearchFilters) ([]model.VectorHit, error)
}

// GraphStore answers the hop queries of graph expansion against the
// concept/document relationship graph.
type GraphStore interface {
	// SeedDocuments returns documents with at least one edge into a seed
	// concept, capped at limit (hop A).
	SeedDocuments(ctx context.Context, seedKeys []string, limit int) ([]model.GraphDocument, error)
	// RelatedConcepts aggregates the concepts connected to the given
	// documents, excluding the listed keys, capped at limit (hop B).
	RelatedConcepts(ctx context.Context, documentIDs []string, excludeKeys []string, limit int) ([]model.RelatedConcept, error)
	// EvidencePairs selects document-concept pairs among the given documents
	// and concepts, preferring stronger evidence (hop C).
	EvidencePairs(ctx context.Context, documentIDs []string, conceptKeys []string, limit int) ([]model.GraphDocument, error)
}

// DocumentStore is the primary metadata store, used to enrich candidates
// with denormalized document fields.
type DocumentStore interface {
	BatchGet(ctx context.Context, ids []string) (map[string]*model.Document, error)
}
