package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mlehmk/fabula/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline() *Pipeline {
	config := model.DefaultPipelineConfig()
	config.ReferenceDate = "2024-03-15"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(config, logger)
}

// constantEmbedder embeds every text as the same unit vector.
func constantEmbedder(dim int) EmbedFunc {
	return func(texts []string) ([][]float32, error) {
		embeddings := make([][]float32, len(texts))
		for i := range texts {
			vector := make([]float32, dim)
			vector[0] = 1
			embeddings[i] = vector
		}
		return embeddings, nil
	}
}

func TestPipelineProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("Full run over an annotated sentence", func(t *testing.T) {
		pipeline := newTestPipeline()
		pipeline.SetEmbedder(constantEmbedder(4))

		sentence := newGaveSentence()
		result, err := pipeline.Process(ctx, []*model.Sentence{sentence}, 1)
		require.NoError(t, err, "Expected pipeline to run")

		require.Len(t, result.Events, 1, "Expected one event")
		event := result.Events[0]

		assert.Equal(t, "event_1", event.EventID, "Expected dense event id")
		require.NotNil(t, event.Roles.Agent, "Expected agent to be filled")
		assert.Equal(t, "John", *event.Roles.Agent, "Expected agent value")
		require.NotNil(t, event.Time.Normalized, "Expected normalized time")
		assert.Equal(t, "2024-03-14", *event.Time.Normalized, "Expected yesterday resolved against reference")

		assert.Contains(t, result.Embeddings, "event_1", "Expected embedding for the event")
		assert.Contains(t, result.Neighbors, "event_1", "Expected neighbor list for the event")
		assert.Empty(t, result.Neighbors["event_1"], "Expected no neighbors for a single event")
		assert.Equal(t, 2, result.NextEventID, "Expected counter to advance")
	})

	t.Run("Without embedder the run degrades gracefully", func(t *testing.T) {
		pipeline := newTestPipeline()

		sentence := newGaveSentence()
		result, err := pipeline.Process(ctx, []*model.Sentence{sentence}, 1)
		require.NoError(t, err, "Expected degraded run to succeed")

		assert.Len(t, result.Events, 1, "Expected events despite missing embedder")
		assert.Nil(t, result.Embeddings, "Expected no embeddings")
		assert.Nil(t, result.Neighbors, "Expected no neighbor lists")
	})

	t.Run("Parser failure skips only that sentence", func(t *testing.T) {
		pipeline := newTestPipeline()
		pipeline.SetParser(func(sentence *model.Sentence) (*DependencyTree, error) {
			if sentence.SentenceID == "sentence_1" {
				return nil, errors.New("malformed heads")
			}
			return BuildDependencyTree(sentence.Tokens)
		})

		first := newGaveSentence()
		second := newGaveSentence()
		second.SentenceID = "sentence_2"

		result, err := pipeline.Process(ctx, []*model.Sentence{first, second}, 1)
		require.NoError(t, err, "Expected run to survive a parser failure")

		require.Len(t, result.Events, 2, "Expected events for both sentences")
		assert.Nil(t, result.Events[0].Roles.Agent, "Expected no roles on the unparsed sentence")
		require.NotNil(t, result.Events[1].Roles.Agent, "Expected roles on the parsed sentence")
		assert.Equal(t, "John", *result.Events[1].Roles.Agent, "Expected agent on the parsed sentence")
	})

	t.Run("Embedder failure aborts the run", func(t *testing.T) {
		pipeline := newTestPipeline()
		pipeline.SetEmbedder(func(texts []string) ([][]float32, error) {
			return nil, errors.New("service down")
		})

		_, err := pipeline.Process(ctx, []*model.Sentence{newGaveSentence()}, 1)
		assert.Error(t, err, "Expected embedder failure to surface")
	})

	t.Run("Dimension mismatch aborts the run", func(t *testing.T) {
		pipeline := newTestPipeline()
		pipeline.SetEmbedder(func(texts []string) ([][]float32, error) {
			embeddings := make([][]float32, len(texts))
			for i := range texts {
				embeddings[i] = make([]float32, i+1)
			}
			return embeddings, nil
		})

		first := newGaveSentence()
		second := newGaveSentence()
		second.SentenceID = "sentence_2"

		_, err := pipeline.Process(ctx, []*model.Sentence{first, second}, 1)
		assert.Error(t, err, "Expected dimension mismatch to surface")
	})

	t.Run("Counter threads across process calls", func(t *testing.T) {
		pipeline := newTestPipeline()

		first, err := pipeline.Process(ctx, []*model.Sentence{newGaveSentence()}, 1)
		require.NoError(t, err, "Expected first run to succeed")

		second := newGaveSentence()
		second.SentenceID = "sentence_2"
		result, err := pipeline.Process(ctx, []*model.Sentence{second}, first.NextEventID)
		require.NoError(t, err, "Expected second run to succeed")

		assert.Equal(t, "event_2", result.Events[0].EventID, "Expected ids to continue without collision")
	})

	t.Run("Shared time expressions resolve identically", func(t *testing.T) {
		pipeline := newTestPipeline()

		first := newGaveSentence()
		second := newGaveSentence()
		second.SentenceID = "sentence_2"

		result, err := pipeline.Process(ctx, []*model.Sentence{first, second}, 1)
		require.NoError(t, err, "Expected run to succeed")
		require.Len(t, result.Events, 2, "Expected two events")

		assert.Equal(t, result.Events[0].Time, result.Events[1].Time,
			"Expected identical raw expressions to share one resolution")
		assert.Len(t, result.Resolutions, 1, "Expected one memo entry for one distinct expression")
	})
}
