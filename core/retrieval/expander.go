package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pbeckmann/evidex/model"
)

// Expander performs bounded multi-hop traversal from seed concepts to
// related documents and concepts.
type Expander struct {
	graph GraphStore
	log   *slog.Logger
}

// NewExpander creates a new graph expander
func NewExpander(graph GraphStore, logger *slog.Logger) *Expander {
	return &Expander{
		graph: graph,
		log:   logger,
	}
}

// Expand runs the hop sequence seed concepts -> documents -> related
// concepts -> evidence pairs. An empty seed set returns empty results
// immediately, never "expand everything".
func (e *Expander) Expand(ctx context.Context, seedKeys []string, config *model.QueryConfig) (*model.GraphExpansion, error) {
	expansion := &model.GraphExpansion{
		Documents:       []model.GraphDocument{},
		RelatedConcepts: []model.RelatedConcept{},
		Evidence:        []model.GraphDocument{},
	}

	if len(seedKeys) == 0 {
		return expansion, nil
	}

	// Hop A: seed concepts -> documents
	documents, err := e.graph.SeedDocuments(ctx, seedKeys, config.MaxPerHop)
	if err != nil {
		return nil, newDependencyError("graph", err)
	}
	for i := range documents {
		// A zero confidence means the producer left it unset
		if documents[i].Confidence == 0 {
			documents[i].Confidence = config.DefaultConfidence
		}
	}
	expansion.Documents = documents

	if len(documents) == 0 || config.MaxHops < 2 {
		return expansion, nil
	}

	documentIDs := make([]string, 0, len(documents))
	seen := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if !seen[doc.DocumentID] {
			seen[doc.DocumentID] = true
			documentIDs = append(documentIDs, doc.DocumentID)
		}
	}

	// Hop B: documents -> related concepts (seeds excluded)
	related, err := e.graph.RelatedConcepts(ctx, documentIDs, seedKeys, config.MaxPerHop)
	if err != nil {
		return nil, newDependencyError("graph", err)
	}
	related = mergeRelatedConcepts(related)
	if len(related) > config.MaxPerHop {
		related = related[:config.MaxPerHop]
	}
	expansion.RelatedConcepts = related

	if len(related) == 0 {
		return expansion, nil
	}

	// Hop C: evidence selection among the hop A documents and hop B concepts
	conceptKeys := make([]string, len(related))
	for i, concept := range related {
		conceptKeys[i] = concept.Key
	}

	evidence, err := e.graph.EvidencePairs(ctx, documentIDs, conceptKeys, config.TopKEvidence)
	if err != nil {
		return nil, newDependencyError("graph", err)
	}
	for i := range evidence {
		if evidence[i].Confidence == 0 {
			evidence[i].Confidence = config.DefaultConfidence
		}
	}
	expansion.Evidence = evidence

	e.log.Debug("Graph expansion complete",
		slog.Int("seed_concepts", len(seedKeys)),
		slog.Int("documents", len(expansion.Documents)),
		slog.Int("related_concepts", len(expansion.RelatedConcepts)),
		slog.Int("evidence_pairs", len(expansion.Evidence)),
	)

	return expansion, nil
}

// mergeRelatedConcepts merges duplicate concept keys by summing paper counts
// and averaging confidences, then restores the hop B ordering.
func mergeRelatedConcepts(concepts []model.RelatedConcept) []model.RelatedConcept {
	byKey := make(map[string]*model.RelatedConcept, len(concepts))
	keys := make([]string, 0, len(concepts))

	for _, concept := range concepts {
		if existing, ok := byKey[concept.Key]; ok {
			existing.PaperCount += concept.PaperCount
			existing.AvgConfidence = (existing.AvgConfidence + concept.AvgConfidence) / 2
			continue
		}
		merged := concept
		byKey[concept.Key] = &merged
		keys = append(keys, concept.Key)
	}

	result := make([]model.RelatedConcept, 0, len(keys))
	for _, key := range keys {
		result = append(result, *byKey[key])
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].PaperCount != result[j].PaperCount {
			return result[i].PaperCount > result[j].PaperCount
		}
		if result[i].AvgConfidence != result[j].AvgConfidence {
			return result[i].AvgConfidence > result[j].AvgConfidence
		}
		return result[i].Key < result[j].Key
	})

	return result
}
