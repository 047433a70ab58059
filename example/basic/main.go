package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mlehmk/fabula"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
)

// sampleSentences is a small annotated narrative as it would arrive from
// the external annotation service.
var sampleSentences = []*model.Sentence{
	{
		SentenceID: "sentence_1",
		ChapterID:  "chapter_1",
		Text:       "John gave Mary the book in the library yesterday.",
		Tokens: []model.Token{
			{Text: "John", Lemma: "John", POS: "PROPN", Dep: "nsubj", Head: 1, Index: 0},
			{Text: "gave", Lemma: "give", POS: "VERB", Dep: "ROOT", Head: 1, Index: 1},
			{Text: "Mary", Lemma: "Mary", POS: "PROPN", Dep: "dative", Head: 1, Index: 2},
			{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 4, Index: 3},
			{Text: "book", Lemma: "book", POS: "NOUN", Dep: "dobj", Head: 1, Index: 4},
			{Text: "in", Lemma: "in", POS: "ADP", Dep: "prep", Head: 1, Index: 5},
			{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 7, Index: 6},
			{Text: "library", Lemma: "library", POS: "NOUN", Dep: "pobj", Head: 5, Index: 7},
			{Text: "yesterday", Lemma: "yesterday", POS: "ADV", Dep: "advmod", Head: 1, Index: 8},
			{Text: ".", Lemma: ".", POS: "PUNCT", Dep: "punct", Head: 1, Index: 9, IsPunct: true},
		},
		Entities: []model.EntitySpan{
			{Text: "John", Label: "PERSON", Start: 0, End: 4},
			{Text: "Mary", Label: "PERSON", Start: 10, End: 14},
		},
	},
	{
		SentenceID: "sentence_2",
		ChapterID:  "chapter_1",
		Text:       "Mary read the book 2 days later.",
		Tokens: []model.Token{
			{Text: "Mary", Lemma: "Mary", POS: "PROPN", Dep: "nsubj", Head: 1, Index: 0},
			{Text: "read", Lemma: "read", POS: "VERB", Dep: "ROOT", Head: 1, Index: 1},
			{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 3, Index: 2},
			{Text: "book", Lemma: "book", POS: "NOUN", Dep: "dobj", Head: 1, Index: 3},
			{Text: "2", Lemma: "2", POS: "NUM", Dep: "nummod", Head: 5, Index: 4},
			{Text: "days", Lemma: "day", POS: "NOUN", Dep: "npadvmod", Head: 6, Index: 5},
			{Text: "later", Lemma: "later", POS: "ADV", Dep: "advmod", Head: 1, Index: 6},
			{Text: ".", Lemma: ".", POS: "PUNCT", Dep: "punct", Head: 1, Index: 7, IsPunct: true},
		},
		Entities: []model.EntitySpan{
			{Text: "Mary", Label: "PERSON", Start: 0, End: 4},
			{Text: "2 days later", Label: "DATE", Start: 19, End: 31},
		},
	},
}

// stubEmbedder keeps the example runnable without downloading models.
// Swap in f.UseDefaultPipeline() for real embeddings.
func stubEmbedder(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding := make([]float32, 3)
		for j, r := range text {
			embedding[j%3] += float32(r) / 1000
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
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
		User:     "fabula",
		Password: "fabula",
		Name:     "fabula",
		SSLMode:  "disable",
	}

	config := model.DefaultPipelineConfig()
	config.ReferenceDate = "2024-03-15"
	config.EmbeddingDim = 3

	f, err := fabula.NewFabula(dbConfig, config)
	if err != nil {
		log.Fatalf("Failed to create fabula: %v", err)
	}
	defer f.Close()

	f.Pipeline.SetEmbedder(stubEmbedder)

	// Build the memory graph and write all artifacts
	fmt.Println("Processing narrative...")
	memoryGraph, err := f.Run(context.Background(), sampleSentences, "./output")
	if err != nil {
		log.Fatalf("Failed to process narrative: %v", err)
	}

	fmt.Printf("Built graph with %d events\n", len(memoryGraph.Events))
	for _, event := range memoryGraph.Events {
		normalized := "-"
		if event.TimeNormalized != nil {
			normalized = *event.TimeNormalized
		}
		fmt.Printf("  %s: %q at %s\n", event.EventID, event.Action, normalized)
	}
	fmt.Printf("Timeline: %v\n", memoryGraph.Timeline)

	// Persist the graph to Postgres
	run, err := f.PersistGraph("Basic Example", "basic_example", memoryGraph)
	if err != nil {
		log.Fatalf("Failed to persist graph: %v", err)
	}
	fmt.Printf("Persisted run %s\n", run.RID)

	// Query similar stored events via pgvector
	results, err := f.SimilarEvents("Mary read the book", 5, 0.0, &run.RID)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	fmt.Printf("\nFound %d similar events:\n", len(results))
	for i, result := range results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Event: %s\n", result.EventKey)
		fmt.Printf("Content: %s\n", result.Content)
		if result.Similarity != nil {
			fmt.Printf("Similarity: %.4f\n", *result.Similarity)
		}
	}

	fmt.Println("\nBasic example completed successfully!")
}
