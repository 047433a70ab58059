package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

var (
	// ErrMissingAPIKey is returned when OPENAI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmbeddingFailed wraps upstream embedding API failures.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// NewOpenAIEmbedder creates an embedder backed by OpenAI's embedding API as
// an alternative to the local ONNX model. Requests are rate limited to two
// per second with small bursts.
func NewOpenAIEmbedder(model string, dimension int) (EmbedFunc, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	limiter := rate.NewLimiter(rate.Limit(2), 4)

	return func(texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return nil, nil
		}

		ctx := context.Background()
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model:          model,
			Dimensions:     openai.Int(int64(dimension)),
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(resp.Data))
		}

		embeddings := make([][]float32, len(texts))
		for _, data := range resp.Data {
			vector := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vector[i] = float32(v)
			}
			embeddings[int(data.Index)] = vector
		}

		return embeddings, nil
	}, nil
}
