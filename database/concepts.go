package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pbeckmann/evidex/helper"
	"github.com/pbeckmann/evidex/model"
	loadSql "github.com/pbeckmann/evidex/sql"
)

// ConceptsDBHandlerFunctions defines the interface for Concepts database operations.
type ConceptsDBHandlerFunctions interface {
	InsertConcept(concept *model.ConceptNode) error
	SelectConcept(key string) (*model.ConceptNode, error)
	SelectConceptsByKind(kind model.ConceptKind) ([]*model.ConceptNode, error)
	SelectAllConcepts(lastCreatedAt *time.Time, limit int) ([]*model.ConceptNode, error)
	UpdateConceptMetadata(key string, metadata model.Metadata) error
	DeleteConcept(key string) error
}

// ConceptsDBHandler handles concept-related database operations
type ConceptsDBHandler struct {
	db *helper.Database
}

// NewConceptsDBHandler creates a new concepts database handler.
// It initializes the database connection and loads concept-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewConceptsDBHandler(db *helper.Database, force bool) (*ConceptsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	conceptsDbHandler := &ConceptsDBHandler{
		db: db,
	}

	err := loadSql.LoadConceptsSql(conceptsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load concepts sql", err)
	}

	err = conceptsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConceptsDBHandler")

	return conceptsDbHandler, nil
}

// CreateTable creates the 'concepts' table in the database.
// If the table already exists, it does not create it again.
// It also creates the concept_kind enum and all necessary indexes.
func (h *ConceptsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_concepts();`)
	if err != nil {
		log.Panicf("error initializing concepts table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table concepts")

	return nil
}

// InsertConcept inserts a new concept node. Keys are unique, inserting an
// existing key returns the stored row untouched.
func (h *ConceptsDBHandler) InsertConcept(concept *model.ConceptNode) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_concept($1, $2, $3)`,
		concept.Key,
		string(concept.Kind),
		concept.Metadata,
	)

	err := scanConcept(row, concept)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectConcept retrieves a concept by key
func (h *ConceptsDBHandler) SelectConcept(key string) (*model.ConceptNode, error) {
	concept := &model.ConceptNode{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_concept($1)`,
		key,
	)

	err := scanConcept(row, concept)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return concept, nil
}

// SelectConceptsByKind retrieves all concepts of a given kind
func (h *ConceptsDBHandler) SelectConceptsByKind(kind model.ConceptKind) ([]*model.ConceptNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_concepts_by_kind($1)`,
		string(kind),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var concepts []*model.ConceptNode
	for rows.Next() {
		concept := &model.ConceptNode{}
		if err := scanConcept(rows, concept); err != nil {
			return nil, helper.NewError("scan", err)
		}
		concepts = append(concepts, concept)
	}

	return concepts, rows.Err()
}

// SelectAllConcepts retrieves all concepts with pagination
func (h *ConceptsDBHandler) SelectAllConcepts(lastCreatedAt *time.Time, limit int) ([]*model.ConceptNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_concepts($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var concepts []*model.ConceptNode
	for rows.Next() {
		concept := &model.ConceptNode{}
		if err := scanConcept(rows, concept); err != nil {
			return nil, helper.NewError("scan", err)
		}
		concepts = append(concepts, concept)
	}

	return concepts, rows.Err()
}

// UpdateConceptMetadata replaces the metadata of a concept
func (h *ConceptsDBHandler) UpdateConceptMetadata(key string, metadata model.Metadata) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_concept_metadata($1, $2)`,
		key,
		metadata,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteConcept deletes a concept by key. Edges referencing the concept are
// removed by the cascade.
func (h *ConceptsDBHandler) DeleteConcept(key string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_concept($1)`,
		key,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanConcept(row rowScanner, concept *model.ConceptNode) error {
	var kind string
	err := row.Scan(
		&concept.ID,
		&concept.RID,
		&concept.Key,
		&kind,
		&concept.Metadata,
		&concept.CreatedAt,
	)
	if err != nil {
		return err
	}
	concept.Kind = model.ConceptKind(kind)
	return nil
}
