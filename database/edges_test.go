package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pbeckmann/evidex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgesNewEdgesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewEdgesDBHandler", func(t *testing.T) {
		// Documents and concepts tables must exist for the foreign keys
		_, err := NewDocumentsDBHandler(database, 384, true)
		require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		_, err = NewConceptsDBHandler(database, true)
		require.NoError(t, err, "Expected NewConceptsDBHandler to not return an error")

		edgesDbHandler, err := NewEdgesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEdgesDBHandler to not return an error")
		require.NotNil(t, edgesDbHandler, "Expected NewEdgesDBHandler to return a non-nil instance")
		require.NotNil(t, edgesDbHandler.db, "Expected NewEdgesDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewEdgesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEdgesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EdgesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

// graphFixture inserts a small corpus:
//
//	doc1 --(0.9, high)--> magnesium
//	doc1 --(0.7)--------> sleep_quality
//	doc2 --(0.6, low)---> magnesium
//	doc2 --(0.8, medium)> cortisol
//	doc3 --(0.5)--------> cortisol
type graphFixture struct {
	documents []*model.Document
	concepts  []*model.ConceptNode
	edges     []*model.Edge
}

func insertGraphFixture(t *testing.T, documentsDbHandler *DocumentsDBHandler, conceptsDbHandler *ConceptsDBHandler, edgesDbHandler *EdgesDBHandler) *graphFixture {
	fixture := &graphFixture{}

	for i := 0; i < 3; i++ {
		doc := &model.Document{
			Title:    "Fixture Document",
			Content:  "Fixture content",
			Metadata: map[string]interface{}{},
		}
		require.NoError(t, documentsDbHandler.InsertDocument(doc))
		fixture.documents = append(fixture.documents, doc)
	}

	for _, key := range []string{"magnesium", "sleep_quality", "cortisol"} {
		concept := &model.ConceptNode{Key: key, Kind: model.ConceptKindIntervention, Metadata: map[string]interface{}{}}
		require.NoError(t, conceptsDbHandler.InsertConcept(concept))
		fixture.concepts = append(fixture.concepts, concept)
	}

	high := model.EvidenceLevelHigh
	medium := model.EvidenceLevelMedium
	low := model.EvidenceLevelLow
	specs := []struct {
		doc        int
		concept    int
		confidence float64
		level      *model.EvidenceLevel
	}{
		{0, 0, 0.9, &high},
		{0, 1, 0.7, nil},
		{1, 0, 0.6, &low},
		{1, 2, 0.8, &medium},
		{2, 2, 0.5, nil},
	}
	for _, spec := range specs {
		docRID := fixture.documents[spec.doc].RID
		conceptRID := fixture.concepts[spec.concept].RID
		edge := &model.Edge{
			SourceDocRID:    &docRID,
			TargetConceptID: &conceptRID,
			RelationType:    model.RelationTypeMentions,
			Confidence:      spec.confidence,
			Count:           1,
			EvidenceLevel:   spec.level,
			Metadata:        map[string]interface{}{},
		}
		require.NoError(t, edgesDbHandler.InsertEdge(edge))
		fixture.edges = append(fixture.edges, edge)
	}

	return fixture
}

func (f *graphFixture) cleanup(documentsDbHandler *DocumentsDBHandler, conceptsDbHandler *ConceptsDBHandler, edgesDbHandler *EdgesDBHandler) {
	for _, edge := range f.edges {
		edgesDbHandler.DeleteEdge(edge.ID)
	}
	for _, concept := range f.concepts {
		conceptsDbHandler.DeleteConcept(concept.Key)
	}
	for _, doc := range f.documents {
		documentsDbHandler.DeleteDocument(doc.RID)
	}
}

func TestEdgesInsert(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	doc := &model.Document{Title: "Edge Doc", Content: "Test", Metadata: map[string]interface{}{}}
	require.NoError(t, documentsDbHandler.InsertDocument(doc))
	concept := &model.ConceptNode{Key: "vitamin_d", Kind: model.ConceptKindIntervention, Metadata: map[string]interface{}{}}
	require.NoError(t, conceptsDbHandler.InsertConcept(concept))

	t.Run("Insert edge with evidence level", func(t *testing.T) {
		high := model.EvidenceLevelHigh
		edge := &model.Edge{
			SourceDocRID:    &doc.RID,
			TargetConceptID: &concept.RID,
			RelationType:    model.RelationTypeSupports,
			Confidence:      0.85,
			Count:           2,
			EvidenceLevel:   &high,
			Metadata:        map[string]interface{}{},
		}

		err := edgesDbHandler.InsertEdge(edge)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEmpty(t, edge.ID, "Expected inserted edge to have an ID")
		require.NotNil(t, edge.EvidenceLevel, "Expected evidence level to be preserved")
		assert.Equal(t, model.EvidenceLevelHigh, *edge.EvidenceLevel, "Expected evidence level to match")
		assert.WithinDuration(t, edge.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")

		edgesDbHandler.DeleteEdge(edge.ID)
	})

	t.Run("Insert edge without evidence level", func(t *testing.T) {
		edge := &model.Edge{
			SourceDocRID:    &doc.RID,
			TargetConceptID: &concept.RID,
			RelationType:    model.RelationTypeMentions,
			Confidence:      0.4,
			Metadata:        map[string]interface{}{},
		}

		err := edgesDbHandler.InsertEdge(edge)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.Nil(t, edge.EvidenceLevel, "Expected evidence level to stay nil")

		edgesDbHandler.DeleteEdge(edge.ID)
	})

	// Cleanup
	conceptsDbHandler.DeleteConcept(concept.Key)
	documentsDbHandler.DeleteDocument(doc.RID)
}

func TestEdgesGet(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	retrieved, err := edgesDbHandler.SelectEdge(fixture.edges[0].ID)
	assert.NoError(t, err, "Expected Get to not return an error")
	assert.Equal(t, fixture.edges[0].ID, retrieved.ID, "Expected edge IDs to match")
	assert.Equal(t, 0.9, retrieved.Confidence, "Expected confidence to match")
	assert.Equal(t, model.RelationTypeMentions, retrieved.RelationType, "Expected relation type to match")

	_, err = edgesDbHandler.SelectEdge(uuid.New())
	assert.Error(t, err, "Expected Get to return an error for unknown edge")
}

func TestEdgesForDocument(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	edges, err := edgesDbHandler.SelectEdgesForDocument(fixture.documents[0].RID)
	assert.NoError(t, err, "Expected SelectEdgesForDocument to not return an error")
	assert.Len(t, edges, 2, "Expected 2 edges for doc1")
}

func TestEdgesUpdateConfidence(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	err := edgesDbHandler.UpdateEdgeConfidence(fixture.edges[0].ID, 0.33)
	assert.NoError(t, err, "Expected UpdateConfidence to not return an error")

	retrieved, err := edgesDbHandler.SelectEdge(fixture.edges[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0.33, retrieved.Confidence, "Expected confidence to be updated")
}

func TestEdgesDelete(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	err := edgesDbHandler.DeleteEdge(fixture.edges[4].ID)
	assert.NoError(t, err, "Expected Delete to not return an error")

	_, err = edgesDbHandler.SelectEdge(fixture.edges[4].ID)
	assert.Error(t, err, "Expected Get to return an error for deleted edge")
}

func TestEdgesSeedDocuments(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	t.Run("Seed documents ordered by confidence", func(t *testing.T) {
		documents, err := edgesDbHandler.SeedDocuments(context.Background(), []string{"magnesium"}, 10)
		assert.NoError(t, err, "Expected SeedDocuments to not return an error")
		require.Len(t, documents, 2, "Expected 2 documents linked to magnesium")
		assert.Equal(t, fixture.documents[0].RID.String(), documents[0].DocumentID, "Expected highest confidence first")
		assert.Equal(t, 0.9, documents[0].Confidence, "Expected confidence to match")
		assert.Equal(t, model.EvidenceLevelHigh, documents[0].EvidenceLevel, "Expected evidence level to match")
		assert.Equal(t, "magnesium", documents[0].ConceptKey, "Expected concept key to match")
	})

	t.Run("Seed documents respects limit", func(t *testing.T) {
		documents, err := edgesDbHandler.SeedDocuments(context.Background(), []string{"magnesium", "cortisol"}, 1)
		assert.NoError(t, err, "Expected SeedDocuments to not return an error")
		assert.Len(t, documents, 1, "Expected limit to cap the result")
	})

	t.Run("Seed documents with unknown key", func(t *testing.T) {
		documents, err := edgesDbHandler.SeedDocuments(context.Background(), []string{"unknown_concept"}, 10)
		assert.NoError(t, err, "Expected SeedDocuments to not return an error")
		assert.Empty(t, documents, "Expected no documents for unknown key")
	})
}

func TestEdgesRelatedConcepts(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	docIDs := []string{fixture.documents[0].RID.String(), fixture.documents[1].RID.String()}

	t.Run("Related concepts aggregated and seeds excluded", func(t *testing.T) {
		concepts, err := edgesDbHandler.RelatedConcepts(context.Background(), docIDs, []string{"magnesium"}, 10)
		assert.NoError(t, err, "Expected RelatedConcepts to not return an error")
		require.Len(t, concepts, 2, "Expected sleep_quality and cortisol")
		for _, concept := range concepts {
			assert.NotEqual(t, "magnesium", concept.Key, "Expected seed key to be excluded")
			assert.Equal(t, 1, concept.PaperCount, "Expected one supporting document each")
		}
	})

	t.Run("Related concepts with nil exclude list", func(t *testing.T) {
		concepts, err := edgesDbHandler.RelatedConcepts(context.Background(), docIDs, nil, 10)
		assert.NoError(t, err, "Expected RelatedConcepts to not return an error")
		assert.Len(t, concepts, 3, "Expected all connected concepts without exclusions")
	})

	t.Run("Related concepts with invalid document id", func(t *testing.T) {
		_, err := edgesDbHandler.RelatedConcepts(context.Background(), []string{"not-a-uuid"}, nil, 10)
		assert.Error(t, err, "Expected error for invalid document id")
	})
}

func TestEdgesEvidencePairs(t *testing.T) {
	_, documentsDbHandler, conceptsDbHandler, edgesDbHandler := initHandlers(t)

	fixture := insertGraphFixture(t, documentsDbHandler, conceptsDbHandler, edgesDbHandler)
	defer fixture.cleanup(documentsDbHandler, conceptsDbHandler, edgesDbHandler)

	docIDs := []string{
		fixture.documents[0].RID.String(),
		fixture.documents[1].RID.String(),
		fixture.documents[2].RID.String(),
	}

	t.Run("Evidence pairs prefer stronger levels", func(t *testing.T) {
		pairs, err := edgesDbHandler.EvidencePairs(context.Background(), docIDs, []string{"magnesium", "cortisol"}, 10)
		assert.NoError(t, err, "Expected EvidencePairs to not return an error")
		require.Len(t, pairs, 4, "Expected 4 pairs")
		assert.Equal(t, model.EvidenceLevelHigh, pairs[0].EvidenceLevel, "Expected high evidence first")
		assert.Equal(t, model.EvidenceLevelMedium, pairs[1].EvidenceLevel, "Expected medium evidence second")
		assert.Equal(t, model.EvidenceLevelLow, pairs[2].EvidenceLevel, "Expected low evidence third")
		assert.Equal(t, model.EvidenceLevel(""), pairs[3].EvidenceLevel, "Expected unset level last")
	})

	t.Run("Evidence pairs respects limit", func(t *testing.T) {
		pairs, err := edgesDbHandler.EvidencePairs(context.Background(), docIDs, []string{"magnesium", "cortisol"}, 2)
		assert.NoError(t, err, "Expected EvidencePairs to not return an error")
		assert.Len(t, pairs, 2, "Expected limit to cap the result")
	})
}
