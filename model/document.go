package model

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an evidentiary document (paper, report) in the corpus.
// Documents are written by the ingestion side of the library and only read
// during retrieval.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Domain    string    `json:"domain,omitempty"`
	Language  string    `json:"language,omitempty"`
	Year      *int      `json:"year,omitempty"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Results
	Similarity float64 `json:"similarity,omitempty"`
}

// VectorHit is a single ANN match returned by the vector index.
// Similarity is 1 - cosine_distance, in [0,1] for normalized embeddings.
type VectorHit struct {
	DocumentID string  `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// SearchFilters are conjunctive metadata predicates applied by the backing
// store during vector search, not by the engine.
type SearchFilters struct {
	Domain   *string `json:"domain,omitempty"`
	Language *string `json:"language,omitempty"`
}
