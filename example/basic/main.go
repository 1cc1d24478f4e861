package main

import (
	"context"
	"fmt"
	"log"

	"github.com/annotatehq/prepper"
	"github.com/annotatehq/prepper/helper"
	"github.com/annotatehq/prepper/model"
)

const sampleText = `John Smith founded Acme Robotics in Berlin. The company builds
industrial robots for assembly lines. Maria Lopez joined Acme Robotics as head
of research. She previously worked in Madrid. Acme Robotics opened a second
office in Munich last year.`

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
		Database: "prepper_test",
		Username: "postgres",
		Password: "postgres",
		Schema:   "public",
	}

	p, err := prepper.NewPrepper(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create prepper: %v", err)
	}
	defer p.Close()

	// Set up the default rule-based preprocessing pipeline
	p.UseDefaultPipeline()

	// Insert a document with its raw text
	doc := &model.Document{
		Title:  "Acme Robotics Notes",
		Source: "basic_example",
		Text:   sampleText,
		Metadata: model.Metadata{
			"author": "Example Author",
			"topic":  "company news",
		},
	}
	if err := p.Documents.InsertDocument(doc); err != nil {
		log.Fatalf("Failed to insert document: %v", err)
	}
	fmt.Printf("Document inserted with ID: %s\n", doc.RID)

	// Run tokenization, segmentation, tagging and entity labeling
	fmt.Println("Preprocessing document...")
	if err := p.PreprocessDocument(doc); err != nil {
		log.Fatalf("Failed to preprocess document: %v", err)
	}
	for _, step := range model.PreprocessSteps() {
		fmt.Printf("  %s done: %v\n", step, doc.WasPreprocessDone(step))
	}

	// Show the materialized sentences
	sentences, err := doc.GetSentences()
	if err != nil {
		log.Fatalf("Failed to get sentences: %v", err)
	}
	fmt.Println("\nSentences:")
	for sentence := range sentences {
		fmt.Printf("  %v\n", sentence)
	}

	// Build chunks of two sentences each
	numChunks, err := p.BuildChunks(doc, 2)
	if err != nil {
		log.Fatalf("Failed to build chunks: %v", err)
	}
	fmt.Printf("\nInserted %d chunks\n", numChunks)

	// Annotate the first chunk with entity mentions by hand; the default
	// pipeline has no chunk-level extractor.
	chunks, err := p.Chunks.SelectChunksByDocument(doc.RID)
	if err != nil {
		log.Fatalf("Failed to select chunks: %v", err)
	}
	john := &model.Entity{Key: "per:john_smith", CanonicalForm: "John Smith", Kind: "PER"}
	acme := &model.Entity{Key: "org:acme_robotics", CanonicalForm: "Acme Robotics", Kind: "ORG"}
	for _, entity := range []*model.Entity{john, acme} {
		if err := p.Entities.UpsertEntity(entity); err != nil {
			log.Fatalf("Failed to upsert entity: %v", err)
		}
	}
	chunks[0].Entities = model.EntityList{
		{Key: john.Key, CanonicalForm: john.CanonicalForm, Kind: john.Kind, Offset: 0},
		{Key: acme.Key, CanonicalForm: acme.CanonicalForm, Kind: acme.Kind, Offset: 19},
	}
	if err := p.Chunks.UpdateChunkEntities(chunks[0]); err != nil {
		log.Fatalf("Failed to update chunk entities: %v", err)
	}

	// Find chunks mentioning both entities
	results, err := p.ChunksWithBothEntities(john, acme)
	if err != nil {
		log.Fatalf("Failed to query chunks: %v", err)
	}
	fmt.Printf("\nChunks mentioning both %s and %s:\n", john.CanonicalForm, acme.CanonicalForm)
	for _, chunk := range results {
		fmt.Printf("  %s\n", chunk.Text)
	}

	fmt.Println("\nBasic example completed successfully!")
}
