package model

// Provenance records which sub-search(es) contributed a candidate
type Provenance string

const (
	ProvenanceVector Provenance = "vector"
	ProvenanceGraph  Provenance = "graph"
	ProvenanceHybrid Provenance = "hybrid"
)

// Candidate is a scored document within a single retrieval call.
// Exactly one candidate exists per unique document id in a result.
type Candidate struct {
	DocumentID  string     `json:"document_id"`
	VectorScore float64    `json:"vector_score"`
	GraphScore  float64    `json:"graph_score"`
	FinalScore  float64    `json:"final_score"`
	RerankScore float64    `json:"rerank_score,omitempty"`
	Provenance  Provenance `json:"provenance"`
	// Denormalized document fields for the caller, filled by enrichment.
	// Left nil when the primary store has no record for the id.
	Document *Document `json:"document,omitempty"`
}

// RankedResult is the ordered output of a retrieval call, strictly descending
// by score with ties broken by ascending document id.
type RankedResult struct {
	Candidates []*Candidate `json:"candidates"`
	// Degraded is true when one of the two sub-searches failed or timed out
	// and the result was built from the other alone.
	Degraded bool `json:"degraded"`
	// Unranked is true when min-max normalization was skipped because all
	// fused scores were identical.
	Unranked bool `json:"unranked"`
	// Warnings carries non-fatal degradation notices for the caller.
	Warnings []string `json:"warnings,omitempty"`
}
