package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pbeckmann/evidex/model"
)

type retrievalState string

const (
	stateIdle      retrievalState = "idle"
	stateEmbedding retrievalState = "embedding"
	stateFetching  retrievalState = "fetching"
	stateFusing    retrievalState = "fusing"
	stateReranking retrievalState = "reranking"
	stateDone      retrievalState = "done"
)

// Orchestrator is the engine's top-level entry point. It issues the vector
// and graph sub-searches concurrently, then pipes the results through score
// fusion and the optional recency rerank.
//
// All collaborators are injected at construction time, there is no hidden
// global state and concurrent calls never interfere.
type Orchestrator struct {
	embedder EmbeddingProvider
	vector   VectorIndex
	docs     DocumentStore
	expander *Expander
	reranker *RecencyReranker
	config   model.QueryConfig
	log      *slog.Logger
}

// NewOrchestrator creates a new retrieval orchestrator with the given
// collaborators. The embedder may be nil when callers always supply
// precomputed embeddings or seed concepts.
func NewOrchestrator(embedder EmbeddingProvider, vector VectorIndex, graph GraphStore, docs DocumentStore, config model.QueryConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		vector:   vector,
		docs:     docs,
		expander: NewExpander(graph, logger),
		reranker: NewRecencyReranker(logger),
		config:   config,
		log:      logger,
	}
}

// Retrieve turns a query into a ranked list of evidentiary documents.
// Callers always receive either a RankedResult (possibly degraded) or a
// typed error, never a partial result disguised as success.
func (o *Orchestrator) Retrieve(ctx context.Context, req *model.RetrievalRequest) (*model.RankedResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if !req.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
		defer cancel()
	}

	o.logState(stateIdle, req)

	// Embedding is a strict prerequisite to the vector search and must
	// complete or fail before the fan-out begins.
	embedding := req.PrecomputedEmbedding
	if len(embedding) == 0 && req.Query != "" {
		o.logState(stateEmbedding, req)
		if o.embedder == nil {
			return nil, &InputError{Reason: "query text given but no embedding provider is configured"}
		}
		vec, err := o.embedder.Embed(ctx, req.Query)
		if err != nil {
			return nil, newDependencyError("embedding", err)
		}
		embedding = vec
	}

	o.logState(stateFetching, req)

	overfetch := req.TopK * o.config.OverfetchFactor
	if overfetch < req.TopK {
		overfetch = req.TopK
	}

	var (
		vectorHits []model.VectorHit
		vectorErr  error
		expansion  *model.GraphExpansion
		graphErr   error
	)

	// Fan-out: both sub-searches are independent reads against different
	// stores and share no mutable state. Errors are recorded per side so
	// one failure never cancels the other.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if len(embedding) == 0 {
			return nil
		}
		vectorHits, vectorErr = o.vector.Search(groupCtx, embedding, overfetch, req.Filters())
		return nil
	})
	group.Go(func() error {
		expansion, graphErr = o.expander.Expand(groupCtx, req.SeedConceptKeys, &o.config)
		return nil
	})
	_ = group.Wait()

	if vectorErr != nil && errors.Is(vectorErr, ErrInvalidEmbeddingDimension) {
		return nil, newDependencyError("vector", vectorErr)
	}

	result := &model.RankedResult{Candidates: []*model.Candidate{}}

	hasVectorSide := len(embedding) > 0
	hasGraphSide := len(req.SeedConceptKeys) > 0
	vectorFailed := hasVectorSide && vectorErr != nil
	graphFailed := hasGraphSide && graphErr != nil

	// Terminal failure only when no side is left to degrade to
	if vectorFailed && (!hasGraphSide || graphFailed) {
		return nil, errors.Join(ErrAllBackendsFailed, vectorErr, graphErr)
	}
	if graphFailed && !hasVectorSide {
		return nil, errors.Join(ErrAllBackendsFailed, vectorErr, graphErr)
	}

	if vectorFailed {
		depErr := newDependencyError("vector", vectorErr)
		o.log.Warn("Vector search failed, degrading to graph-only retrieval", slog.String("error", depErr.Error()))
		result.Degraded = true
		result.Warnings = append(result.Warnings, depErr.Error())
		vectorHits = nil
	}
	if graphFailed {
		depErr := newDependencyError("graph", graphErr)
		o.log.Warn("Graph expansion failed, degrading to vector-only retrieval", slog.String("error", depErr.Error()))
		result.Degraded = true
		result.Warnings = append(result.Warnings, depErr.Error())
		expansion = &model.GraphExpansion{}
	}

	o.logState(stateFusing, req)

	graphDocuments := append([]model.GraphDocument{}, expansion.Documents...)
	graphDocuments = append(graphDocuments, expansion.Evidence...)

	weights := FusionWeights{Vector: o.config.VectorWeight, Graph: o.config.GraphWeight}
	fused, err := Fuse(vectorHits, graphDocuments, weights, 0)
	if err != nil {
		return nil, err
	}
	result.Unranked = fused.Unranked

	// Keep the overfetch window intact for the rerank stage, truncating
	// earlier would silently drop documents recency should promote.
	candidates := fused.Candidates
	if len(candidates) > overfetch {
		candidates = candidates[:overfetch]
	}

	o.enrich(ctx, candidates, result)

	if req.UseRecencyRerank {
		o.logState(stateReranking, req)
		asOf := time.Now()
		if req.AsOf != nil {
			asOf = *req.AsOf
		}
		candidates = o.reranker.Rerank(candidates, asOf, o.config.SimilarityWeight, o.config.RecencyWeight, req.TopK)
	} else if len(candidates) > req.TopK {
		candidates = candidates[:req.TopK]
	}

	result.Candidates = candidates

	o.logState(stateDone, req)
	o.log.Info("Retrieval complete",
		slog.Int("candidates", len(result.Candidates)),
		slog.Bool("degraded", result.Degraded),
		slog.Bool("unranked", result.Unranked),
	)

	return result, nil
}

// enrich attaches denormalized document fields to the candidates via a
// batched lookup. Enrichment is best effort, missing documents stay nil.
func (o *Orchestrator) enrich(ctx context.Context, candidates []*model.Candidate, result *model.RankedResult) {
	if o.docs == nil || len(candidates) == 0 {
		return
	}

	ids := make([]string, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.DocumentID
	}

	documents, err := o.docs.BatchGet(ctx, ids)
	if err != nil {
		depErr := newDependencyError("documents", err)
		o.log.Warn("Candidate enrichment failed", slog.String("error", depErr.Error()))
		result.Warnings = append(result.Warnings, depErr.Error())
		return
	}

	for _, candidate := range candidates {
		if doc, ok := documents[candidate.DocumentID]; ok {
			candidate.Document = doc
		}
	}
}

func (o *Orchestrator) logState(state retrievalState, req *model.RetrievalRequest) {
	o.log.Debug("Retrieval state",
		slog.String("state", string(state)),
		slog.Int("top_k", req.TopK),
		slog.Bool("recency_rerank", req.UseRecencyRerank),
	)
}

func validateRequest(req *model.RetrievalRequest) error {
	if req == nil {
		return &InputError{Reason: "request is nil"}
	}
	if req.TopK <= 0 {
		return &InputError{Reason: fmt.Sprintf("top_k must be positive, got %d", req.TopK)}
	}
	if req.Query == "" && len(req.PrecomputedEmbedding) == 0 && len(req.SeedConceptKeys) == 0 {
		return &InputError{Reason: "at least one of query, precomputed embedding or seed concepts is required"}
	}
	return nil
}
