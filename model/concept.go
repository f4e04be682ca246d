package model

import (
	"time"

	"github.com/google/uuid"
)

// ConceptKind classifies a concept node in the externally curated vocabulary
type ConceptKind string

const (
	ConceptKindSeed         ConceptKind = "seed"
	ConceptKindOutcome      ConceptKind = "outcome"
	ConceptKindIntervention ConceptKind = "intervention"
	ConceptKindBiomarker    ConceptKind = "biomarker"
	ConceptKindDisease      ConceptKind = "disease"
	ConceptKindMeasurement  ConceptKind = "measurement"
	ConceptKindUnknown      ConceptKind = "unknown"
)

// ConceptNode represents a domain concept (node in the graph).
// The vocabulary is closed and externally curated; the engine treats
// concept keys as opaque identifiers.
type ConceptNode struct {
	ID        int64       `json:"id"`
	RID       uuid.UUID   `json:"rid"`
	Key       string      `json:"key"`
	Kind      ConceptKind `json:"kind"`
	Metadata  Metadata    `json:"metadata,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// RelatedConcept is a concept discovered during graph expansion, aggregated
// over the documents that connect to it.
type RelatedConcept struct {
	Key           string  `json:"key"`
	PaperCount    int     `json:"paper_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}
