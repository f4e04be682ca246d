package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationType represents the type of relationship between nodes
type RelationType string

const (
	RelationTypeMentions       RelationType = "mentions"
	RelationTypeCorrelatesWith RelationType = "correlates_with"
	RelationTypeIncreases      RelationType = "increases"
	RelationTypeReduces        RelationType = "reduces"
	RelationTypeSupports       RelationType = "supports"
	RelationTypeMeasures       RelationType = "measures"
	RelationTypeCustom         RelationType = "custom"
)

// EvidenceLevel grades the strength of evidence behind an edge
type EvidenceLevel string

const (
	EvidenceLevelHigh   EvidenceLevel = "high"
	EvidenceLevelMedium EvidenceLevel = "medium"
	EvidenceLevelLow    EvidenceLevel = "low"
)

// Rank orders evidence levels for preference sorting (high > medium > low).
// Unknown or empty levels rank lowest.
func (e EvidenceLevel) Rank() int {
	switch e {
	case EvidenceLevelHigh:
		return 3
	case EvidenceLevelMedium:
		return 2
	case EvidenceLevelLow:
		return 1
	}
	return 0
}

// DefaultEdgeConfidence is assumed when the producer left confidence unset.
const DefaultEdgeConfidence = 0.5

// Edge represents a directed relationship between documents and/or concepts
type Edge struct {
	ID              uuid.UUID      `json:"id"`
	SourceDocRID    *uuid.UUID     `json:"source_doc_rid,omitempty"`
	TargetDocRID    *uuid.UUID     `json:"target_doc_rid,omitempty"`
	SourceConceptID *uuid.UUID     `json:"source_concept_id,omitempty"`
	TargetConceptID *uuid.UUID     `json:"target_concept_id,omitempty"`
	RelationType    RelationType   `json:"relation_type"`
	Confidence      float64        `json:"confidence"`
	Count           int            `json:"count"`
	EvidenceLevel   *EvidenceLevel `json:"evidence_level,omitempty"`
	Metadata        Metadata       `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// GraphDocument is a document reached through graph expansion, carrying the
// edge signal that connected it.
type GraphDocument struct {
	DocumentID    string        `json:"document_id"`
	ConceptKey    string        `json:"concept_key"`
	Confidence    float64       `json:"confidence"`
	EvidenceLevel EvidenceLevel `json:"evidence_level,omitempty"`
}

// GraphExpansion is the result of a bounded multi-hop traversal from a set
// of seed concepts.
type GraphExpansion struct {
	Documents       []GraphDocument  `json:"documents"`
	RelatedConcepts []RelatedConcept `json:"related_concepts"`
	Evidence        []GraphDocument  `json:"evidence"`
}
