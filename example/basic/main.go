package main

import (
	"context"
	"fmt"
	"log"

	"github.com/pbeckmann/evidex"
	"github.com/pbeckmann/evidex/helper"
	"github.com/pbeckmann/evidex/model"
)

type paper struct {
	title   string
	content string
	year    int
}

var papers = []paper{
	{
		title:   "Magnesium supplementation and sleep quality in older adults",
		content: "A randomized controlled trial examining the effect of nightly magnesium supplementation on subjective and objective sleep quality in adults over 60.",
		year:    2022,
	},
	{
		title:   "Dietary magnesium intake and serum cortisol",
		content: "Observational cohort study of dietary magnesium intake, stress markers and morning serum cortisol levels.",
		year:    2021,
	},
	{
		title:   "Blue light exposure and circadian rhythm disruption",
		content: "Review of evening screen exposure, melatonin suppression and downstream effects on sleep onset latency.",
		year:    2023,
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	e, err := evidex.NewEvidex(dbConfig, 384, model.DefaultQueryConfig())
	if err != nil {
		log.Fatalf("Failed to create evidex: %v", err)
	}
	defer e.Close()

	// Set up the default embedder (all-MiniLM-L6-v2, downloaded on first use)
	if err := e.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	ctx := context.Background()

	// Ingest the corpus, embedding each document's content
	documents := make([]*model.Document, 0, len(papers))
	for _, p := range papers {
		year := p.year
		doc := &model.Document{
			Title:    p.title,
			Content:  p.content,
			Domain:   "sleep",
			Language: "en",
			Year:     &year,
			Source:   "basic_example",
			Metadata: model.Metadata{},
		}
		if err := e.IngestDocument(ctx, doc); err != nil {
			log.Fatalf("Failed to ingest document: %v", err)
		}
		documents = append(documents, doc)
	}
	fmt.Printf("Ingested %d documents\n", len(documents))

	// Build a small concept graph
	concepts := []*model.ConceptNode{
		{Key: "magnesium", Kind: model.ConceptKindIntervention, Metadata: model.Metadata{}},
		{Key: "sleep_quality", Kind: model.ConceptKindOutcome, Metadata: model.Metadata{}},
		{Key: "cortisol", Kind: model.ConceptKindBiomarker, Metadata: model.Metadata{}},
	}
	for _, concept := range concepts {
		if err := e.AddConcept(concept); err != nil {
			log.Fatalf("Failed to add concept: %v", err)
		}
	}

	high := model.EvidenceLevelHigh
	medium := model.EvidenceLevelMedium
	links := []struct {
		doc        int
		concept    string
		relation   model.RelationType
		confidence float64
		level      *model.EvidenceLevel
	}{
		{0, "magnesium", model.RelationTypeSupports, 0.9, &high},
		{0, "sleep_quality", model.RelationTypeIncreases, 0.8, &high},
		{1, "magnesium", model.RelationTypeMentions, 0.6, &medium},
		{1, "cortisol", model.RelationTypeReduces, 0.7, &medium},
		{2, "sleep_quality", model.RelationTypeReduces, 0.5, nil},
	}
	for _, link := range links {
		if _, err := e.AddEvidence(documents[link.doc].RID.String(), link.concept, link.relation, link.confidence, link.level); err != nil {
			log.Fatalf("Failed to add evidence: %v", err)
		}
	}
	fmt.Println("Built the concept graph")

	// Hybrid retrieval: vector search over the query plus graph expansion
	// from the seed concept
	result, err := e.Retrieve(ctx, &model.RetrievalRequest{
		Query:           "does magnesium help with sleep?",
		SeedConceptKeys: []string{"magnesium"},
		TopK:            3,
	})
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}

	fmt.Println("\nHybrid retrieval results:")
	for i, candidate := range result.Candidates {
		title := candidate.DocumentID
		if candidate.Document != nil {
			title = candidate.Document.Title
		}
		fmt.Printf("%d. [%.3f] (%s) %s\n", i+1, candidate.FinalScore, candidate.Provenance, title)
	}

	// Graph-leaning evidence lookup around the seed concepts
	evidence, err := e.SearchEvidence(ctx, &model.RetrievalRequest{
		SeedConceptKeys: []string{"sleep_quality"},
		TopK:            5,
	})
	if err != nil {
		log.Fatalf("Evidence search failed: %v", err)
	}

	fmt.Println("\nEvidence for sleep_quality:")
	for i, candidate := range evidence.Candidates {
		title := candidate.DocumentID
		if candidate.Document != nil {
			title = candidate.Document.Title
		}
		fmt.Printf("%d. [graph %.2f] %s\n", i+1, candidate.GraphScore, title)
	}
}
