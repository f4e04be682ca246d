package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pbeckmann/evidex/helper"
	"github.com/pbeckmann/evidex/model"
	loadSql "github.com/pbeckmann/evidex/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	InsertEdge(edge *model.Edge) error
	SelectEdge(id uuid.UUID) (*model.Edge, error)
	SelectEdgesForDocument(docRID uuid.UUID) ([]*model.Edge, error)
	UpdateEdgeConfidence(id uuid.UUID, confidence float64) error
	DeleteEdge(id uuid.UUID) error
	SeedDocuments(ctx context.Context, seedKeys []string, limit int) ([]model.GraphDocument, error)
	RelatedConcepts(ctx context.Context, documentIDs []string, excludeKeys []string, limit int) ([]model.RelatedConcept, error)
	EvidencePairs(ctx context.Context, documentIDs []string, conceptKeys []string, limit int) ([]model.GraphDocument, error)
}

// EdgesDBHandler handles edge-related database operations.
// It implements the engine's GraphStore contract via the hop functions.
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates the relation_type and evidence_level enums and all
// necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// InsertEdge inserts a new edge
func (h *EdgesDBHandler) InsertEdge(edge *model.Edge) error {
	var level string
	if edge.EvidenceLevel != nil {
		level = string(*edge.EvidenceLevel)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_edge($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		edge.SourceDocRID,
		edge.TargetDocRID,
		edge.SourceConceptID,
		edge.TargetConceptID,
		string(edge.RelationType),
		edge.Confidence,
		edge.Count,
		level,
		edge.Metadata,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(id uuid.UUID) (*model.Edge, error) {
	edge := &model.Edge{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge($1)`,
		id,
	)

	err := scanEdge(row, edge)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgesForDocument retrieves all edges touching a document in either
// direction.
func (h *EdgesDBHandler) SelectEdgesForDocument(docRID uuid.UUID) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_for_document($1)`,
		docRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		if err := scanEdge(rows, edge); err != nil {
			return nil, helper.NewError("scan", err)
		}
		edges = append(edges, edge)
	}

	return edges, rows.Err()
}

// UpdateEdgeConfidence updates the confidence of an edge
func (h *EdgesDBHandler) UpdateEdgeConfidence(id uuid.UUID, confidence float64) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_edge_confidence($1, $2)`,
		id,
		confidence,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteEdge deletes an edge by ID
func (h *EdgesDBHandler) DeleteEdge(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edge($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SeedDocuments retrieves documents with at least one edge into a seed
// concept, ordered by confidence descending with deterministic tie-breaks.
func (h *EdgesDBHandler) SeedDocuments(ctx context.Context, seedKeys []string, limit int) ([]model.GraphDocument, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_seed_documents($1, $2)`,
		pq.Array(seedKeys),
		limit,
	)
	if err != nil {
		return nil, wrapUnavailable("seed documents query", err)
	}
	defer rows.Close()

	var documents []model.GraphDocument
	for rows.Next() {
		var (
			docRID uuid.UUID
			doc    model.GraphDocument
			level  string
		)
		err := rows.Scan(&docRID, &doc.ConceptKey, &doc.Confidence, &level)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		doc.DocumentID = docRID.String()
		doc.EvidenceLevel = model.EvidenceLevel(level)
		documents = append(documents, doc)
	}

	return documents, rows.Err()
}

// RelatedConcepts retrieves concepts connected to the given documents,
// excluding the given keys, aggregated by distinct document count and mean
// confidence.
func (h *EdgesDBHandler) RelatedConcepts(ctx context.Context, documentIDs []string, excludeKeys []string, limit int) ([]model.RelatedConcept, error) {
	rids, err := parseRIDs(documentIDs)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_related_concepts($1, $2, $3)`,
		pq.Array(rids),
		pq.Array(excludeKeys),
		limit,
	)
	if err != nil {
		return nil, wrapUnavailable("related concepts query", err)
	}
	defer rows.Close()

	var concepts []model.RelatedConcept
	for rows.Next() {
		var concept model.RelatedConcept
		err := rows.Scan(&concept.Key, &concept.PaperCount, &concept.AvgConfidence)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		concepts = append(concepts, concept)
	}

	return concepts, rows.Err()
}

// EvidencePairs retrieves document-concept pairs among the given documents
// and concepts, preferring stronger evidence levels, then higher confidence.
func (h *EdgesDBHandler) EvidencePairs(ctx context.Context, documentIDs []string, conceptKeys []string, limit int) ([]model.GraphDocument, error) {
	rids, err := parseRIDs(documentIDs)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_evidence_pairs($1, $2, $3)`,
		pq.Array(rids),
		pq.Array(conceptKeys),
		limit,
	)
	if err != nil {
		return nil, wrapUnavailable("evidence pairs query", err)
	}
	defer rows.Close()

	var pairs []model.GraphDocument
	for rows.Next() {
		var (
			docRID uuid.UUID
			pair   model.GraphDocument
			level  string
		)
		err := rows.Scan(&docRID, &pair.ConceptKey, &pair.Confidence, &level)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		pair.DocumentID = docRID.String()
		pair.EvidenceLevel = model.EvidenceLevel(level)
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

func scanEdge(row rowScanner, edge *model.Edge) error {
	var relationType string
	var level string
	err := row.Scan(
		&edge.ID,
		&edge.SourceDocRID,
		&edge.TargetDocRID,
		&edge.SourceConceptID,
		&edge.TargetConceptID,
		&relationType,
		&edge.Confidence,
		&edge.Count,
		&level,
		&edge.Metadata,
		&edge.CreatedAt,
	)
	if err != nil {
		return err
	}
	edge.RelationType = model.RelationType(relationType)
	if level == "" {
		edge.EvidenceLevel = nil
	} else {
		evidenceLevel := model.EvidenceLevel(level)
		edge.EvidenceLevel = &evidenceLevel
	}
	return nil
}

func parseRIDs(ids []string) ([]uuid.UUID, error) {
	rids := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		rid, err := uuid.Parse(id)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("parsing document id %s", id), err)
		}
		rids = append(rids, rid)
	}
	return rids, nil
}
