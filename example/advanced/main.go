package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mlehmk/fabula"
	"github.com/mlehmk/fabula/artifact"
	"github.com/mlehmk/fabula/core/graph"
	"github.com/mlehmk/fabula/model"
)

// newSentence builds an annotated SVO sentence of the form
// "<subject> <verb> <object> <time>." so the example can generate a small
// multi-chapter narrative without an annotation service.
func newSentence(sentenceID, chapterID, subject, verb, lemma, object, timeText string) *model.Sentence {
	text := subject + " " + verb + " the " + object
	if timeText != "" {
		text += " " + timeText
	}
	text += "."

	tokens := []model.Token{
		{Text: subject, Lemma: subject, POS: "PROPN", Dep: "nsubj", Head: 1, Index: 0},
		{Text: verb, Lemma: lemma, POS: "VERB", Dep: "ROOT", Head: 1, Index: 1},
		{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 3, Index: 2},
		{Text: object, Lemma: object, POS: "NOUN", Dep: "dobj", Head: 1, Index: 3},
	}
	next := 4
	if timeText != "" {
		tokens = append(tokens, model.Token{
			Text: timeText, Lemma: timeText, POS: "ADV", Dep: "advmod", Head: 1, Index: next,
		})
		next++
	}
	tokens = append(tokens, model.Token{
		Text: ".", Lemma: ".", POS: "PUNCT", Dep: "punct", Head: 1, Index: next, IsPunct: true,
	})

	return &model.Sentence{
		SentenceID: sentenceID,
		ChapterID:  chapterID,
		Text:       text,
		Tokens:     tokens,
		Entities: []model.EntitySpan{
			{Text: subject, Label: "PERSON", Start: 0, End: len(subject)},
		},
	}
}

// stubEmbedder keeps the example runnable without downloading models.
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
	sentences := []*model.Sentence{
		newSentence("sentence_1", "chapter_1", "Anna", "found", "find", "map", "yesterday"),
		newSentence("sentence_2", "chapter_1", "Anna", "studied", "study", "map", "today"),
		newSentence("sentence_3", "chapter_2", "Ben", "took", "take", "map", "tomorrow"),
		newSentence("sentence_4", "chapter_2", "Ben", "lost", "lose", "map", ""),
	}

	config := model.DefaultPipelineConfig()
	config.ReferenceDate = "2024-03-15"
	config.EmbeddingDim = 3
	config.EdgeThreshold = 0.5

	// No database configuration: artifacts only
	f, err := fabula.NewFabula(nil, config)
	if err != nil {
		log.Fatalf("Failed to create fabula: %v", err)
	}
	f.Pipeline.SetEmbedder(stubEmbedder)

	outputDir := "./output"
	memoryGraph, err := f.Run(context.Background(), sentences, outputDir)
	if err != nil {
		log.Fatalf("Failed to process narrative: %v", err)
	}

	fmt.Printf("Built graph with %d events across %d chapters\n",
		len(memoryGraph.Events), memoryGraph.Metadata.TotalChapters)
	fmt.Printf("Timeline: %v\n", memoryGraph.Timeline)

	// Traverse the graph from the first timeline event
	if len(memoryGraph.Timeline) > 0 {
		source := memoryGraph.Timeline[0]
		results, err := graph.BFS(memoryGraph, source, 3, []graph.EdgeKind{graph.EdgeKindTemporal})
		if err != nil {
			log.Fatalf("Failed to traverse graph: %v", err)
		}

		fmt.Printf("\nTemporal reachability from %s:\n", source)
		for _, result := range results {
			fmt.Printf("  %s at distance %d via %v\n", result.EventID, result.Distance, result.Path)
		}
	}

	// Reload the graph from its artifact to show the stable JSON contract
	store := artifact.NewStore(outputDir)
	reloaded, err := store.ReadGraph()
	if err != nil {
		log.Fatalf("Failed to reload graph artifact: %v", err)
	}
	fmt.Printf("\nReloaded graph artifact: %d events, generated on %s\n",
		len(reloaded.Events), reloaded.Metadata.GeneratedOn)

	// Export CSV projections
	events, err := store.ReadEvents()
	if err != nil {
		log.Fatalf("Failed to read events artifact: %v", err)
	}
	temporalPath := filepath.Join(outputDir, "temporal.csv")
	if err := artifact.ExportTemporalCSV(temporalPath, events); err != nil {
		log.Fatalf("Failed to export temporal csv: %v", err)
	}
	rolesPath := filepath.Join(outputDir, "role_completeness.csv")
	if err := artifact.ExportRoleCompletenessCSV(rolesPath, events); err != nil {
		log.Fatalf("Failed to export role completeness csv: %v", err)
	}

	data, _ := os.ReadFile(temporalPath)
	fmt.Printf("\ntemporal.csv:\n%s", data)

	fmt.Println("\nAdvanced example completed successfully!")
}
