package model

import "time"

// RetrievalRequest describes one retrieval call against the engine.
// At least one of Query, PrecomputedEmbedding or SeedConceptKeys must be set.
type RetrievalRequest struct {
	Query                string     `json:"query"`
	PrecomputedEmbedding []float32  `json:"precomputed_embedding,omitempty"`
	SeedConceptKeys      []string   `json:"seed_concept_keys,omitempty"`
	TopK                 int        `json:"top_k"`
	Domain               *string    `json:"domain,omitempty"`
	Language             *string    `json:"language,omitempty"`
	UseRecencyRerank     bool       `json:"use_recency_rerank"`
	Deadline             time.Time  `json:"deadline,omitempty"`
	AsOf                 *time.Time `json:"as_of,omitempty"` // Reference time for recency decay, defaults to now
}

// Filters derives the store-side metadata predicates from the request.
func (r *RetrievalRequest) Filters() SearchFilters {
	return SearchFilters{
		Domain:   r.Domain,
		Language: r.Language,
	}
}

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Fusion weights, must sum to 1.0
	VectorWeight float64 `json:"vector_weight"`
	GraphWeight  float64 `json:"graph_weight"`

	// Graph expansion parameters
	MaxHops      int `json:"max_hops,omitempty"`
	MaxPerHop    int `json:"max_per_hop,omitempty"`
	TopKEvidence int `json:"top_k_evidence,omitempty"`

	// OverfetchFactor multiplies the requested top-k for the vector search so
	// a following rerank stage has room to change the order.
	OverfetchFactor int `json:"overfetch_factor"`

	// DefaultConfidence is assumed for edges whose producer left confidence unset.
	DefaultConfidence float64 `json:"default_confidence"`

	// Recency rerank weights
	SimilarityWeight float64 `json:"similarity_weight"`
	RecencyWeight    float64 `json:"recency_weight"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		VectorWeight:      0.7,
		GraphWeight:       0.3,
		MaxHops:           2,
		MaxPerHop:         20,
		TopKEvidence:      10,
		OverfetchFactor:   2,
		DefaultConfidence: DefaultEdgeConfidence,
		SimilarityWeight:  0.7,
		RecencyWeight:     0.3,
	}
}

// PaperProfile is the configuration used for scientific paper search
// (hybrid weights, no recency rerank).
func PaperProfile() QueryConfig {
	return DefaultQueryConfig()
}

// ReportProfile is the configuration used for a user's own report history
// (hybrid weights plus recency rerank over a 2x candidate window).
func ReportProfile() QueryConfig {
	config := DefaultQueryConfig()
	config.SimilarityWeight = 0.7
	config.RecencyWeight = 0.3
	return config
}

// EvidenceProfile is the configuration used for graph-expansion evidence
// lookup (graph-leaning weights).
func EvidenceProfile() QueryConfig {
	config := DefaultQueryConfig()
	config.VectorWeight = 0.4
	config.GraphWeight = 0.6
	config.TopKEvidence = 20
	return config
}
