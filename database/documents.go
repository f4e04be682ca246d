package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/pbeckmann/evidex/core/retrieval"
	"github.com/pbeckmann/evidex/helper"
	"github.com/pbeckmann/evidex/model"
	loadSql "github.com/pbeckmann/evidex/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	InsertDocument(doc *model.Document) error
	SelectDocument(rid uuid.UUID) (*model.Document, error)
	SelectAllDocuments(lastCreatedAt *time.Time, limit int) ([]*model.Document, error)
	SearchDocuments(ctx context.Context, embedding []float32, limit int, filters model.SearchFilters) ([]*model.Document, error)
	Search(ctx context.Context, embedding []float32, topK int, filters model.SearchFilters) ([]model.VectorHit, error)
	BatchGet(ctx context.Context, ids []string) (map[string]*model.Document, error)
	UpdateDocument(doc *model.Document) error
	DeleteDocument(rid uuid.UUID) error
}

// DocumentsDBHandler handles document-related database operations.
// It implements the engine's VectorIndex and DocumentStore contracts.
type DocumentsDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, embeddingDim int, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes and triggers.
func (h *DocumentsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// InsertDocument inserts a new document
func (h *DocumentsDBHandler) InsertDocument(doc *model.Document) error {
	var embedding interface{}
	if len(doc.Embedding) > 0 {
		if len(doc.Embedding) != h.embeddingDim {
			return helper.NewError("embedding validation", fmt.Errorf("%w: got %d, index expects %d",
				retrieval.ErrInvalidEmbeddingDimension, len(doc.Embedding), h.embeddingDim))
		}
		embedding = pgvector.NewVector(doc.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_document($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.Title,
		doc.Content,
		doc.Domain,
		doc.Language,
		doc.Year,
		doc.Source,
		embedding,
		doc.Metadata,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document by RID
func (h *DocumentsDBHandler) SelectDocument(rid uuid.UUID) (*model.Document, error) {
	doc := &model.Document{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		rid,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectAllDocuments retrieves all documents with pagination
func (h *DocumentsDBHandler) SelectAllDocuments(lastCreatedAt *time.Time, limit int) ([]*model.Document, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_documents($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		if err := scanDocument(rows, doc); err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// SearchDocuments performs ANN search and returns full documents with their
// similarity (1 - cosine distance) filled in.
func (h *DocumentsDBHandler) SearchDocuments(ctx context.Context, embedding []float32, limit int, filters model.SearchFilters) ([]*model.Document, error) {
	if len(embedding) != h.embeddingDim {
		return nil, helper.NewError("embedding validation", fmt.Errorf("%w: got %d, index expects %d",
			retrieval.ErrInvalidEmbeddingDimension, len(embedding), h.embeddingDim))
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_documents_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		filters.Domain,
		filters.Language,
	)
	if err != nil {
		return nil, wrapUnavailable("similarity query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.RID,
			&doc.Title,
			&doc.Content,
			&doc.Domain,
			&doc.Language,
			&doc.Year,
			&doc.Source,
			&doc.Metadata,
			&doc.CreatedAt,
			&doc.UpdatedAt,
			&doc.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// Search implements the engine's VectorIndex contract
func (h *DocumentsDBHandler) Search(ctx context.Context, embedding []float32, topK int, filters model.SearchFilters) ([]model.VectorHit, error) {
	documents, err := h.SearchDocuments(ctx, embedding, topK, filters)
	if err != nil {
		return nil, err
	}

	hits := make([]model.VectorHit, len(documents))
	for i, doc := range documents {
		hits[i] = model.VectorHit{
			DocumentID: doc.RID.String(),
			Similarity: doc.Similarity,
		}
	}

	return hits, nil
}

// BatchGet implements the engine's DocumentStore contract. Ids that do not
// parse or do not exist are simply absent from the returned map.
func (h *DocumentsDBHandler) BatchGet(ctx context.Context, ids []string) (map[string]*model.Document, error) {
	rids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		rid, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		rids = append(rids, rid)
	}

	documents := make(map[string]*model.Document, len(rids))
	if len(rids) == 0 {
		return documents, nil
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_documents_by_ids($1)`,
		pq.Array(rids),
	)
	if err != nil {
		return nil, wrapUnavailable("batch get query", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc := &model.Document{}
		if err := scanDocument(rows, doc); err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents[doc.RID.String()] = doc
	}

	return documents, rows.Err()
}

// UpdateDocument updates title, content, embedding and metadata of a document
func (h *DocumentsDBHandler) UpdateDocument(doc *model.Document) error {
	var embedding interface{}
	if len(doc.Embedding) > 0 {
		embedding = pgvector.NewVector(doc.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_document($1, $2, $3, $4, $5)`,
		doc.RID,
		doc.Title,
		doc.Content,
		embedding,
		doc.Metadata,
	)

	err := scanDocument(row, doc)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteDocument deletes a document by RID
func (h *DocumentsDBHandler) DeleteDocument(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_document($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner, doc *model.Document) error {
	return row.Scan(
		&doc.ID,
		&doc.RID,
		&doc.Title,
		&doc.Content,
		&doc.Domain,
		&doc.Language,
		&doc.Year,
		&doc.Source,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
}

// wrapUnavailable marks a failed store call so the orchestrator can degrade
// instead of failing hard.
func wrapUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return err
	}
	return helper.NewError(op, fmt.Errorf("%w: %v", retrieval.ErrUnavailable, err))
}
