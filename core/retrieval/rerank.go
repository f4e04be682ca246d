package retrieval

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pbeckmann/evidex/model"
)

// RecencyReranker blends fused scores with a time-decay weight for
// time-sensitive corpora such as a user's own report history.
type RecencyReranker struct {
	log *slog.Logger
}

// NewRecencyReranker creates a new recency reranker
func NewRecencyReranker(logger *slog.Logger) *RecencyReranker {
	return &RecencyReranker{log: logger}
}

// TimeDecay returns 1 / (1 + ln(days + 1)) for whole days between createdAt
// and asOf. Ages are clamped to zero, a future timestamp never errors.
func TimeDecay(createdAt time.Time, asOf time.Time) float64 {
	days := int(asOf.Sub(createdAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return 1 / (1 + math.Log(float64(days)+1))
}

// Rerank recomputes candidate scores as
// fused*similarityWeight + decay*recencyWeight, re-sorts with the usual
// tie-break and truncates to topK. It must run on the pre-truncation
// candidate window so recency can promote documents past the fused cutoff.
func (r *RecencyReranker) Rerank(candidates []*model.Candidate, asOf time.Time, similarityWeight float64, recencyWeight float64, topK int) []*model.Candidate {
	for _, candidate := range candidates {
		decay := 0.0
		if candidate.Document != nil {
			createdAt := candidate.Document.CreatedAt
			if createdAt.After(asOf) {
				r.log.Warn("Document timestamp is in the future, clamping age to zero",
					slog.String("document_id", candidate.DocumentID),
					slog.Time("created_at", createdAt),
				)
			}
			decay = TimeDecay(createdAt, asOf)
		}
		candidate.RerankScore = candidate.FinalScore*similarityWeight + decay*recencyWeight
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RerankScore != candidates[j].RerankScore {
			return candidates[i].RerankScore > candidates[j].RerankScore
		}
		return candidates[i].DocumentID < candidates[j].DocumentID
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates
}
