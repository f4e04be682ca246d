package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/pbeckmann/evidex/model"
)

// FusionWeights control the contribution of each sub-search to the fused
// score. They must sum to 1.0.
type FusionWeights struct {
	Vector float64
	Graph  float64
}

// DefaultFusionWeights returns the default 0.7/0.3 split
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Vector: 0.7, Graph: 0.3}
}

const weightSumTolerance = 1e-6

// Validate rejects weights that are negative or do not sum to 1.0
func (w FusionWeights) Validate() error {
	if w.Vector < 0 || w.Graph < 0 {
		return &InputError{Reason: "fusion weights must not be negative"}
	}
	if math.Abs(w.Vector+w.Graph-1.0) > weightSumTolerance {
		return &InputError{Reason: fmt.Sprintf("fusion weights must sum to 1.0, got %g", w.Vector+w.Graph)}
	}
	return nil
}

// FusedSet is the scored, deduplicated candidate set produced by fusion
type FusedSet struct {
	Candidates []*model.Candidate
	// Unranked is true when min-max normalization was skipped because all
	// fused scores were identical.
	Unranked bool
}

// Fuse merges vector hits and graph documents into one deduplicated
// candidate set. Exactly one candidate exists per document id. Scores are
// min-max normalized into [0,1] and the set is sorted descending by final
// score with ties broken by ascending document id. A topK of 0 keeps the
// full set.
func Fuse(vectorHits []model.VectorHit, graphDocuments []model.GraphDocument, weights FusionWeights, topK int) (*FusedSet, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Candidate, len(vectorHits)+len(graphDocuments))

	for _, hit := range vectorHits {
		if existing, ok := byID[hit.DocumentID]; ok {
			if hit.Similarity > existing.VectorScore {
				existing.VectorScore = hit.Similarity
			}
			continue
		}
		byID[hit.DocumentID] = &model.Candidate{
			DocumentID:  hit.DocumentID,
			VectorScore: hit.Similarity,
			Provenance:  model.ProvenanceVector,
		}
	}

	for _, doc := range graphDocuments {
		if existing, ok := byID[doc.DocumentID]; ok {
			if doc.Confidence > existing.GraphScore {
				existing.GraphScore = doc.Confidence
			}
			if existing.Provenance == model.ProvenanceVector {
				existing.Provenance = model.ProvenanceHybrid
			}
			continue
		}
		byID[doc.DocumentID] = &model.Candidate{
			DocumentID: doc.DocumentID,
			GraphScore: doc.Confidence,
			Provenance: model.ProvenanceGraph,
		}
	}

	candidates := make([]*model.Candidate, 0, len(byID))
	for _, candidate := range byID {
		candidate.FinalScore = weights.Vector*candidate.VectorScore + weights.Graph*candidate.GraphScore
		candidates = append(candidates, candidate)
	}

	unranked := normalizeScores(candidates)

	SortCandidates(candidates)

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return &FusedSet{
		Candidates: candidates,
		Unranked:   unranked,
	}, nil
}

// normalizeScores rescales final scores linearly into [0,1] over the batch.
// When all scores are identical the batch is left unchanged and reported as
// unranked.
func normalizeScores(candidates []*model.Candidate) bool {
	if len(candidates) == 0 {
		return false
	}

	minScore := candidates[0].FinalScore
	maxScore := candidates[0].FinalScore
	for _, candidate := range candidates[1:] {
		if candidate.FinalScore < minScore {
			minScore = candidate.FinalScore
		}
		if candidate.FinalScore > maxScore {
			maxScore = candidate.FinalScore
		}
	}

	if maxScore == minScore {
		return true
	}

	for _, candidate := range candidates {
		candidate.FinalScore = (candidate.FinalScore - minScore) / (maxScore - minScore)
	}
	return false
}

// SortCandidates sorts descending by final score, ties broken by ascending
// document id for deterministic results.
func SortCandidates(candidates []*model.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})
}
