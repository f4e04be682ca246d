package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed concepts.sql
var conceptsSQL string

//go:embed edges.sql
var edgesSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_documents_by_ids",
	"select_all_documents",
	"select_documents_by_similarity",
	"update_document",
	"delete_document",
}

var ConceptsFunctions = []string{
	"init_concepts",
	"insert_concept",
	"select_concept",
	"select_concepts_by_kind",
	"select_all_concepts",
	"update_concept_metadata",
	"delete_concept",
}

var EdgesFunctions = []string{
	"init_edges",
	"insert_edge",
	"select_edge",
	"select_edges_for_document",
	"update_edge_confidence",
	"delete_edge",
	"select_seed_documents",
	"select_related_concepts",
	"select_evidence_pairs",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadDocumentsSql loads document-related SQL functions
func LoadDocumentsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, DocumentsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing documents functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(documentsSQL)
	if err != nil {
		return fmt.Errorf("error executing documents SQL: %w", err)
	}

	exist, err := checkFunctions(db, DocumentsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL documents functions loaded successfully")
	return nil
}

// LoadConceptsSql loads concept-related SQL functions
func LoadConceptsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ConceptsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing concepts functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(conceptsSQL)
	if err != nil {
		return fmt.Errorf("error executing concepts SQL: %w", err)
	}

	exist, err := checkFunctions(db, ConceptsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL concepts functions loaded successfully")
	return nil
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EdgesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing edges functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(edgesSQL)
	if err != nil {
		return fmt.Errorf("error executing edges SQL: %w", err)
	}

	exist, err := checkFunctions(db, EdgesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL edges functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadDocumentsSql(db, force); err != nil {
		return err
	}

	if err := LoadConceptsSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
