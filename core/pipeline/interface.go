package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlehmk/fabula/model"
)

// DependencyParseFunc rebuilds the dependency tree of an annotated sentence.
// The default implementation derives the tree from the token head indices;
// a custom function can call out to a parsing service instead.
type DependencyParseFunc func(sentence *model.Sentence) (*DependencyTree, error)

// EmbedFunc generates one embedding per input text. All returned vectors
// must share the same dimension.
type EmbedFunc func(texts []string) ([][]float32, error)

// EntityExtractFunc extracts named-entity spans from text.
// Used to re-discover entities in role surface strings.
type EntityExtractFunc func(text string) ([]model.EntitySpan, error)

// TemporalTagFunc resolves a raw time expression through an external tagging
// service. Returning a nil resolution without error falls back to the
// built-in rules.
type TemporalTagFunc func(ctx context.Context, raw string) (*model.Resolution, error)

// Pipeline combines the per-stage functions of a run: dependency parsing,
// role-level entity re-discovery, temporal tagging and embedding.
type Pipeline struct {
	Parser          DependencyParseFunc
	Embedder        EmbedFunc
	EntityExtractor EntityExtractFunc // Optional
	TemporalTagger  TemporalTagFunc   // Optional
	Config          model.PipelineConfig
	logger          *slog.Logger
}

// NewPipeline creates a pipeline with the default head-index dependency
// parser. The embedder starts unset; without one the pipeline runs degraded
// and produces no semantic neighbors.
func NewPipeline(config model.PipelineConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Parser: DefaultDependencyParser(),
		Config: config,
		logger: logger,
	}
}

// SetParser sets the dependency parsing function.
func (p *Pipeline) SetParser(parser DependencyParseFunc) {
	p.Parser = parser
}

// SetEmbedder sets the embedding function.
func (p *Pipeline) SetEmbedder(embedder EmbedFunc) {
	p.Embedder = embedder
}

// SetEntityExtractor sets the entity extraction function used to re-discover
// entities in filled role strings.
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// SetTemporalTagger sets the external temporal tagging function.
// When set, it takes precedence over the built-in normalization rules.
func (p *Pipeline) SetTemporalTagger(tagger TemporalTagFunc) {
	p.TemporalTagger = tagger
}

// Result contains everything a pipeline run produces before graph assembly.
type Result struct {
	Sentences   []*model.Sentence
	Events      []*model.Event
	Resolutions map[string]model.Resolution
	Embeddings  map[string][]float32
	Neighbors   map[string][]model.SemanticNeighbor
	NextEventID int
}

// Process runs the full pipeline over annotated sentences: frame assembly,
// role filling, temporal normalization and semantic linking. nextID is the
// first free event number; the updated counter is returned in the result so
// callers can process further batches without id collisions.
func (p *Pipeline) Process(ctx context.Context, sentences []*model.Sentence, nextID int) (*Result, error) {
	events, nextID := AssembleFrames(sentences, nextID)

	bySentence := make(map[string][]*model.Event, len(sentences))
	for _, event := range events {
		bySentence[event.SentenceID] = append(bySentence[event.SentenceID], event)
	}

	for _, sentence := range sentences {
		sentenceEvents := bySentence[sentence.SentenceID]
		if len(sentenceEvents) == 0 {
			continue
		}
		tree, err := p.Parser(sentence)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("Dependency parse failed, skipping role filling",
					slog.String("sentence_id", sentence.SentenceID),
					slog.String("error", err.Error()))
			}
			continue
		}
		FillRoles(sentence, tree, sentenceEvents, p.EntityExtractor)
	}

	normalizer := NewNormalizer(p.Config.Reference(), p.Config.MonthArithmetic, p.TemporalTagger, p.logger)
	resolutions := normalizer.ResolveAll(ctx, events)
	normalizer.Apply(events, resolutions)

	result := &Result{
		Sentences:   sentences,
		Events:      events,
		Resolutions: resolutions,
		NextEventID: nextID,
	}

	if p.Embedder == nil {
		if p.logger != nil {
			p.logger.Warn("No embedder configured, skipping semantic linking")
		}
		return result, nil
	}

	texts := make([]string, len(events))
	for i, event := range events {
		texts[i] = FormatEventText(event)
	}

	embeddings, err := p.Embedder(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(events) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d events", len(embeddings), len(events))
	}
	for i := 1; i < len(embeddings); i++ {
		if len(embeddings[i]) != len(embeddings[0]) {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d and %d", len(embeddings[0]), len(embeddings[i]))
		}
	}

	result.Embeddings = make(map[string][]float32, len(events))
	for i, event := range events {
		result.Embeddings[event.EventID] = embeddings[i]
	}

	ids := make([]string, len(events))
	for i, event := range events {
		ids[i] = event.EventID
	}
	result.Neighbors = Neighbors(ids, embeddings, p.Config.TopK, p.Config.NeighborThreshold)

	return result, nil
}
