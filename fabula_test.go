package fabula

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlehmk/fabula/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() model.PipelineConfig {
	config := model.DefaultPipelineConfig()
	config.ReferenceDate = "2024-03-15"
	config.EmbeddingDim = 3
	return config
}

// testSentences returns two annotated sentences of one chapter. The first
// carries a temporal adverb, the second is timeless.
func testSentences() []*model.Sentence {
	return []*model.Sentence{
		{
			SentenceID: "sentence_1",
			ChapterID:  "chapter_1",
			Text:       "John gave Mary the book yesterday.",
			Tokens: []model.Token{
				{Text: "John", Lemma: "John", POS: "PROPN", Dep: "nsubj", Head: 1, Index: 0},
				{Text: "gave", Lemma: "give", POS: "VERB", Dep: "ROOT", Head: 1, Index: 1},
				{Text: "Mary", Lemma: "Mary", POS: "PROPN", Dep: "dative", Head: 1, Index: 2},
				{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 4, Index: 3},
				{Text: "book", Lemma: "book", POS: "NOUN", Dep: "dobj", Head: 1, Index: 4},
				{Text: "yesterday", Lemma: "yesterday", POS: "ADV", Dep: "advmod", Head: 1, Index: 5},
				{Text: ".", Lemma: ".", POS: "PUNCT", Dep: "punct", Head: 1, Index: 6, IsPunct: true},
			},
			Entities: []model.EntitySpan{
				{Text: "John", Label: "PERSON", Start: 0, End: 4},
				{Text: "Mary", Label: "PERSON", Start: 10, End: 14},
			},
		},
		{
			SentenceID: "sentence_2",
			ChapterID:  "chapter_1",
			Text:       "Mary read the book.",
			Tokens: []model.Token{
				{Text: "Mary", Lemma: "Mary", POS: "PROPN", Dep: "nsubj", Head: 1, Index: 0},
				{Text: "read", Lemma: "read", POS: "VERB", Dep: "ROOT", Head: 1, Index: 1},
				{Text: "the", Lemma: "the", POS: "DET", Dep: "det", Head: 3, Index: 2},
				{Text: "book", Lemma: "book", POS: "NOUN", Dep: "dobj", Head: 1, Index: 3},
				{Text: ".", Lemma: ".", POS: "PUNCT", Dep: "punct", Head: 1, Index: 4, IsPunct: true},
			},
			Entities: []model.EntitySpan{
				{Text: "Mary", Label: "PERSON", Start: 0, End: 4},
			},
		},
	}
}

// constantEmbedder returns the same embedding for every text so runs stay
// deterministic without a model.
func constantEmbedder(texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0, 0}
	}
	return embeddings, nil
}

func TestNewFabula(t *testing.T) {
	t.Run("Valid call NewFabula without database", func(t *testing.T) {
		fabula, err := NewFabula(nil, testConfig())
		assert.NoError(t, err, "Expected NewFabula to not return an error")
		require.NotNil(t, fabula, "Expected NewFabula to return a non-nil instance")
		assert.Nil(t, fabula.DB, "Expected no database without a configuration")
		assert.NotNil(t, fabula.Pipeline, "Expected a pipeline to be created")
	})

	t.Run("Invalid call NewFabula with invalid config", func(t *testing.T) {
		config := testConfig()
		config.ReferenceDate = "not-a-date"
		_, err := NewFabula(nil, config)
		assert.Error(t, err, "Expected error for invalid reference date")
		assert.Contains(t, err.Error(), "invalid reference date", "Expected specific error message")
	})
}

func TestRun(t *testing.T) {
	fabula, err := NewFabula(nil, testConfig())
	require.NoError(t, err)
	fabula.Pipeline.SetEmbedder(constantEmbedder)

	t.Run("Run writes all artifacts and assembles the graph", func(t *testing.T) {
		outputDir := t.TempDir()

		memoryGraph, err := fabula.Run(context.Background(), testSentences(), outputDir)
		assert.NoError(t, err, "Expected Run to not return an error")
		require.NotNil(t, memoryGraph, "Expected Run to return a graph")

		assert.Len(t, memoryGraph.Events, 2, "Expected one event per verb")
		assert.Equal(t, "event_1", memoryGraph.Events[0].EventID, "Expected dense event ids")
		require.NotNil(t, memoryGraph.Events[0].TimeNormalized, "Expected the timed event to be normalized")
		assert.Equal(t, "2024-03-14", *memoryGraph.Events[0].TimeNormalized, "Expected yesterday resolved against the reference date")
		assert.Len(t, memoryGraph.Timeline, 2, "Expected all events on the timeline")
		assert.Len(t, memoryGraph.SemanticMemory, 2, "Expected semantic memory entries")

		expectedFiles := []string{
			filepath.Join(outputDir, "preprocessed", "sentences.json"),
			filepath.Join(outputDir, "memory", "events.json"),
			filepath.Join(outputDir, "memory", "timestamps.json"),
			filepath.Join(outputDir, "memory", "event_embeddings.json"),
			filepath.Join(outputDir, "memory", "memory_semantic.json"),
			filepath.Join(outputDir, "memory", "memory_graph.json"),
		}
		for _, path := range expectedFiles {
			_, err := os.Stat(path)
			assert.NoError(t, err, "Expected artifact %s to exist", path)
		}
	})

	t.Run("Run without embedder writes no embedding artifacts", func(t *testing.T) {
		degraded, err := NewFabula(nil, testConfig())
		require.NoError(t, err)
		outputDir := t.TempDir()

		memoryGraph, err := degraded.Run(context.Background(), testSentences(), outputDir)
		assert.NoError(t, err, "Expected degraded run to not return an error")
		require.NotNil(t, memoryGraph)
		assert.Empty(t, memoryGraph.SemanticEdges, "Expected no semantic edges without an embedder")

		_, err = os.Stat(filepath.Join(outputDir, "memory", "event_embeddings.json"))
		assert.True(t, os.IsNotExist(err), "Expected no embeddings artifact")
		_, err = os.Stat(filepath.Join(outputDir, "memory", "memory_graph.json"))
		assert.NoError(t, err, "Expected graph artifact to still be written")
	})

	t.Run("Run with no sentences errors", func(t *testing.T) {
		_, err := fabula.Run(context.Background(), nil, t.TempDir())
		assert.Error(t, err, "Expected error for empty input")
		assert.Contains(t, err.Error(), "no sentences", "Expected specific error message")
	})
}

func TestPersistGraphWithoutDatabase(t *testing.T) {
	fabula, err := NewFabula(nil, testConfig())
	require.NoError(t, err)

	_, err = fabula.PersistGraph("Title", "source.txt", &model.MemoryGraph{})
	assert.Error(t, err, "Expected error when persisting without a database")
	assert.Contains(t, err.Error(), "database not configured", "Expected specific error message")
}

func TestSimilarEventsWithoutDatabase(t *testing.T) {
	fabula, err := NewFabula(nil, testConfig())
	require.NoError(t, err)

	_, err = fabula.SimilarEvents("query", 10, 0.5, nil)
	assert.Error(t, err, "Expected error when searching without a database")
	assert.Contains(t, err.Error(), "database not configured", "Expected specific error message")
}

func TestChangeIndexTypeWithoutDatabase(t *testing.T) {
	fabula, err := NewFabula(nil, testConfig())
	require.NoError(t, err)

	err = fabula.ChangeIndexType(context.Background(), "hnsw", nil)
	assert.Error(t, err, "Expected error when changing the index without a database")
	assert.Contains(t, err.Error(), "database not configured", "Expected specific error message")
}
