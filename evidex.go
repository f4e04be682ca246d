package evidex

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pbeckmann/evidex/core/embedding"
	"github.com/pbeckmann/evidex/core/retrieval"
	"github.com/pbeckmann/evidex/database"
	"github.com/pbeckmann/evidex/helper"
	"github.com/pbeckmann/evidex/model"
	loadSql "github.com/pbeckmann/evidex/sql"
)

// Evidex provides a unified interface to the corpus handlers and the hybrid
// retrieval engine.
type Evidex struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Concepts  *database.ConceptsDBHandler
	Edges     *database.EdgesDBHandler
	Embedder  retrieval.EmbeddingProvider
	Config    model.QueryConfig
	// Logging
	log *slog.Logger
}

// NewEvidex creates a new Evidex instance with all handlers initialized
func NewEvidex(config *helper.DatabaseConfiguration, embeddingDim int, queryConfig model.QueryConfig) (*Evidex, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("evidex", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents and concepts first,
	// then edges for the foreign keys).
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	concepts, err := database.NewConceptsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create concepts handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	return &Evidex{
		DB:        db,
		Documents: documents,
		Concepts:  concepts,
		Edges:     edges,
		Config:    queryConfig,
		log:       logger,
	}, nil
}

// Close closes the database connection and the embedder session if set
func (e *Evidex) Close() error {
	if closer, ok := e.Embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return helper.NewError("close embedder", err)
		}
	}
	if e.DB != nil && e.DB.Instance != nil {
		return e.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder sets the embedding provider used for queries and ingestion
func (e *Evidex) SetEmbedder(embedder retrieval.EmbeddingProvider) {
	e.Embedder = embedder
}

// UseDefaultEmbedder sets up the default embedding provider with the
// all-MiniLM-L6-v2 model (384 dimensions), downloading it on first use
func (e *Evidex) UseDefaultEmbedder() error {
	provider, err := embedding.NewDefaultProvider()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	e.Embedder = provider
	return nil
}

// IngestDocument embeds the document content when no embedding is attached
// yet and inserts the document. Returns an error if neither an embedding nor
// an embedder is available.
func (e *Evidex) IngestDocument(ctx context.Context, doc *model.Document) error {
	if doc == nil {
		return helper.NewError("ingest document", fmt.Errorf("document is nil"))
	}

	if len(doc.Embedding) == 0 {
		if e.Embedder == nil {
			return helper.NewError("ingest document", fmt.Errorf("document has no embedding and no embedder is set, use SetEmbedder() first"))
		}
		if doc.Content == "" {
			return helper.NewError("ingest document", fmt.Errorf("document content is empty"))
		}

		embedding, err := e.Embedder.Embed(ctx, doc.Content)
		if err != nil {
			return helper.NewError("generate embedding", err)
		}
		doc.Embedding = embedding
	}

	if err := e.Documents.InsertDocument(doc); err != nil {
		return helper.NewError("insert document", err)
	}

	e.log.Info("Ingested document", slog.String("document_id", doc.RID.String()), slog.String("title", doc.Title))

	return nil
}

// AddConcept inserts a concept node. Inserting an existing key returns the
// stored node untouched.
func (e *Evidex) AddConcept(concept *model.ConceptNode) error {
	return e.Concepts.InsertConcept(concept)
}

// AddEvidence links a document to a concept with the given relation,
// confidence and optional evidence level.
func (e *Evidex) AddEvidence(docRID string, conceptKey string, relation model.RelationType, confidence float64, level *model.EvidenceLevel) (*model.Edge, error) {
	doc, err := e.Documents.BatchGet(context.Background(), []string{docRID})
	if err != nil {
		return nil, helper.NewError("resolve document", err)
	}
	document, ok := doc[docRID]
	if !ok {
		return nil, helper.NewError("resolve document", fmt.Errorf("document %s not found", docRID))
	}

	concept, err := e.Concepts.SelectConcept(conceptKey)
	if err != nil {
		return nil, helper.NewError("resolve concept", err)
	}

	edge := &model.Edge{
		SourceDocRID:    &document.RID,
		TargetConceptID: &concept.RID,
		RelationType:    relation,
		Confidence:      confidence,
		Count:           1,
		EvidenceLevel:   level,
		Metadata:        map[string]interface{}{},
	}
	if err := e.Edges.InsertEdge(edge); err != nil {
		return nil, helper.NewError("insert edge", err)
	}

	return edge, nil
}

// Retrieve runs hybrid retrieval with the instance configuration
func (e *Evidex) Retrieve(ctx context.Context, req *model.RetrievalRequest) (*model.RankedResult, error) {
	return e.retrieveWith(ctx, e.Config, req)
}

// SearchPapers runs hybrid retrieval tuned for a scientific paper corpus
func (e *Evidex) SearchPapers(ctx context.Context, req *model.RetrievalRequest) (*model.RankedResult, error) {
	return e.retrieveWith(ctx, model.PaperProfile(), req)
}

// SearchReports runs hybrid retrieval tuned for a user's own report history,
// blending fused scores with time decay.
func (e *Evidex) SearchReports(ctx context.Context, req *model.RetrievalRequest) (*model.RankedResult, error) {
	if req != nil {
		req.UseRecencyRerank = true
	}
	return e.retrieveWith(ctx, model.ReportProfile(), req)
}

// SearchEvidence runs graph-leaning hybrid retrieval for evidence lookup
// around seed concepts.
func (e *Evidex) SearchEvidence(ctx context.Context, req *model.RetrievalRequest) (*model.RankedResult, error) {
	return e.retrieveWith(ctx, model.EvidenceProfile(), req)
}

func (e *Evidex) retrieveWith(ctx context.Context, config model.QueryConfig, req *model.RetrievalRequest) (*model.RankedResult, error) {
	orchestrator := retrieval.NewOrchestrator(e.Embedder, e.Documents, e.Edges, e.Documents, config, e.log)
	return orchestrator.Retrieve(ctx, req)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (e *Evidex) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return e.Documents.ChangeIndexType(ctx, indexType, params)
}
