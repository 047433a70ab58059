package fabula

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mlehmk/fabula/artifact"
	"github.com/mlehmk/fabula/core/graph"
	"github.com/mlehmk/fabula/core/pipeline"
	"github.com/mlehmk/fabula/database"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	loadSql "github.com/mlehmk/fabula/sql"
)

// Fabula provides a unified interface to the pipeline, the graph assembler
// and all database handlers
type Fabula struct {
	DB       *helper.Database
	Runs     *database.RunsDBHandler
	Events   *database.EventsDBHandler
	Edges    *database.EdgesDBHandler
	Entities *database.EntitiesDBHandler
	Pipeline *pipeline.Pipeline
	Config   model.PipelineConfig
	// Logging
	log *slog.Logger
}

// NewFabula creates a new Fabula instance. If dbConfig is nil, no database
// handlers are initialized and runs can only be written to JSON artifacts.
func NewFabula(dbConfig *helper.DatabaseConfiguration, config model.PipelineConfig) (*Fabula, error) {
	if err := config.Validate(); err != nil {
		return nil, helper.NewError("validate pipeline config", err)
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	fabula := &Fabula{
		Pipeline: pipeline.NewPipeline(config, logger),
		Config:   config,
		log:      logger,
	}

	if dbConfig == nil {
		return fabula, nil
	}

	// Initialize database
	db := helper.NewDatabase("fabula", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (runs first, then the tables
	// referencing them). force=false to not reload if functions already exist
	runs, err := database.NewRunsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create runs handler", err)
	}

	events, err := database.NewEventsDBHandler(db, config.EmbeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create events handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	fabula.DB = db
	fabula.Runs = runs
	fabula.Events = events
	fabula.Edges = edges
	fabula.Entities = entities

	return fabula, nil
}

// Close closes the database connection
func (f *Fabula) Close() error {
	if f.DB != nil && f.DB.Instance != nil {
		return f.DB.Instance.Close()
	}
	return nil
}

// SetPipeline replaces the processing pipeline
func (f *Fabula) SetPipeline(p *pipeline.Pipeline) {
	f.Pipeline = p
}

// UseDefaultPipeline wires the default local models into the pipeline:
// the all-MiniLM-L6-v2 embedder (384 dimensions) and the distilbert-NER
// entity annotator
func (f *Fabula) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	annotator, err := pipeline.DefaultEntityAnnotator()
	if err != nil {
		return helper.NewError("create default entity annotator", err)
	}

	f.Pipeline.SetEmbedder(embedder)
	f.Pipeline.SetEntityExtractor(annotator)
	return nil
}

// Run processes annotated sentences into a memory graph, writing every
// intermediate artifact plus the final graph to outputDir:
// 1. preprocessed/sentences.json
// 2. memory/events.json after frame extraction and role filling
// 3. memory/timestamps.json after temporal normalization
// 4. memory/event_embeddings.json and memory/memory_semantic.json when an
// embedder is configured
// 5. memory/memory_graph.json
// Returns the assembled graph.
func (f *Fabula) Run(ctx context.Context, sentences []*model.Sentence, outputDir string) (*model.MemoryGraph, error) {
	if len(sentences) == 0 {
		return nil, helper.NewError("run", fmt.Errorf("no sentences to process"))
	}

	store := artifact.NewStore(outputDir)

	result, err := f.Pipeline.Process(ctx, sentences, 1)
	if err != nil {
		return nil, helper.NewError("process sentences", err)
	}

	if err := store.WriteSentences(result.Sentences); err != nil {
		return nil, helper.NewError("write sentences", err)
	}

	if err := store.WriteEvents(result.Events); err != nil {
		return nil, helper.NewError("write events", err)
	}

	if err := store.WriteTimestamps(f.Config.ReferenceDate, result.Resolutions); err != nil {
		return nil, helper.NewError("write timestamps", err)
	}

	if len(result.Embeddings) > 0 {
		if err := store.WriteEmbeddings(result.Events, result.Embeddings, f.Config.EmbeddingModel); err != nil {
			return nil, helper.NewError("write embeddings", err)
		}
	}

	assembler := graph.NewAssembler(f.Config, f.log)
	memoryGraph := assembler.Assemble(result)

	if len(memoryGraph.SemanticMemory) > 0 {
		if err := store.WriteSemanticMemory(memoryGraph.SemanticMemory, f.Config.EmbeddingModel, memoryGraph.Metadata.EmbeddingDim); err != nil {
			return nil, helper.NewError("write semantic memory", err)
		}
	}

	if err := store.WriteGraph(memoryGraph); err != nil {
		return nil, helper.NewError("write graph", err)
	}

	f.log.Info("Assembled memory graph",
		slog.Int("events", len(memoryGraph.Events)),
		slog.Int("temporal_edges", len(memoryGraph.TemporalEdges)),
		slog.Int("semantic_edges", len(memoryGraph.SemanticEdges)),
		slog.String("output_dir", outputDir))

	return memoryGraph, nil
}

// eventPayload converts an event to its JSONB payload form.
func eventPayload(event *model.Event) (model.Metadata, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	payload := model.Metadata{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// PersistGraph writes a finished memory graph to the database as a new run
// with its events, edges and entities. Returns the created run.
func (f *Fabula) PersistGraph(title string, source string, memoryGraph *model.MemoryGraph) (*model.Run, error) {
	if f.Runs == nil {
		return nil, helper.NewError("persist graph", fmt.Errorf("database not configured"))
	}
	if memoryGraph == nil {
		return nil, helper.NewError("persist graph", fmt.Errorf("memory graph is nil"))
	}

	run := &model.Run{
		Title:         title,
		Source:        source,
		ReferenceDate: f.Config.Reference(),
		Metadata: model.Metadata{
			"model":           memoryGraph.Metadata.Model,
			"embedding_model": memoryGraph.Metadata.EmbeddingModel,
			"embedding_dim":   memoryGraph.Metadata.EmbeddingDim,
			"total_events":    memoryGraph.Metadata.TotalEvents,
			"total_chapters":  memoryGraph.Metadata.TotalChapters,
		},
	}
	if err := f.Runs.InsertRun(run); err != nil {
		return nil, helper.NewError("insert run", err)
	}

	embeddings := make(map[string][]float32, len(memoryGraph.SemanticMemory))
	for _, entry := range memoryGraph.SemanticMemory {
		embeddings[entry.EventID] = entry.Embedding
	}

	for _, event := range memoryGraph.Events {
		payload, err := eventPayload(event)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("marshal event %s", event.EventID), err)
		}

		record := &model.EventRecord{
			RunRID:         run.RID,
			EventKey:       event.EventID,
			ChapterID:      event.ChapterID,
			SentenceID:     event.SentenceID,
			Content:        event.Text,
			TimeNormalized: event.TimeNormalized,
			Payload:        payload,
			Embedding:      embeddings[event.EventID],
		}
		if err := f.Events.InsertEvent(record); err != nil {
			return nil, helper.NewError(fmt.Sprintf("insert event %s", event.EventID), err)
		}
	}

	for _, edge := range memoryGraph.TemporalEdges {
		relation := edge.Relation
		record := &model.EdgeRecord{
			RunRID:    run.RID,
			FromEvent: edge.FromEventID,
			ToEvent:   edge.ToEventID,
			EdgeType:  model.EdgeTypeTemporal,
			Relation:  &relation,
			Weight:    edge.Confidence,
		}
		if err := f.Edges.InsertEdge(record); err != nil {
			return nil, helper.NewError("insert temporal edge", err)
		}
	}

	for _, edge := range memoryGraph.SemanticEdges {
		threshold := edge.Threshold
		record := &model.EdgeRecord{
			RunRID:    run.RID,
			FromEvent: edge.FromEventID,
			ToEvent:   edge.ToEventID,
			EdgeType:  model.EdgeTypeSemantic,
			Weight:    edge.Similarity,
			Threshold: &threshold,
		}
		if err := f.Edges.InsertEdge(record); err != nil {
			return nil, helper.NewError("insert semantic edge", err)
		}
	}

	if memoryGraph.Entities != nil {
		for name, record := range memoryGraph.Entities.Entities {
			row := &model.EntityRow{
				RunRID:      run.RID,
				Name:        name,
				Label:       record.Label,
				Occurrences: record.Occurrences,
				Frequency:   len(record.Occurrences),
			}
			if err := f.Entities.InsertEntity(row); err != nil {
				return nil, helper.NewError(fmt.Sprintf("insert entity %s", name), err)
			}
		}
	}

	f.log.Info("Persisted memory graph",
		slog.String("run_rid", run.RID.String()),
		slog.Int("events", len(memoryGraph.Events)),
		slog.Int("edges", len(memoryGraph.TemporalEdges)+len(memoryGraph.SemanticEdges)))

	return run, nil
}

// SimilarEvents embeds a query and retrieves the most similar stored events.
// If runRID is nil, events of all runs are searched.
func (f *Fabula) SimilarEvents(query string, limit int, threshold float64, runRID *uuid.UUID) ([]*model.EventRecord, error) {
	if f.Events == nil {
		return nil, helper.NewError("similar events", fmt.Errorf("database not configured"))
	}
	if f.Pipeline == nil || f.Pipeline.Embedder == nil {
		return nil, helper.NewError("similar events", fmt.Errorf("embedder not set, use UseDefaultPipeline() or SetPipeline() first"))
	}

	embeddings, err := f.Pipeline.Embedder([]string{query})
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}
	if len(embeddings) != 1 {
		return nil, helper.NewError("generate embedding", fmt.Errorf("expected 1 embedding, got %d", len(embeddings)))
	}

	return f.Events.SelectEventsBySimilarity(embeddings[0], limit, threshold, runRID)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (f *Fabula) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	if f.Events == nil {
		return helper.NewError("change index type", fmt.Errorf("database not configured"))
	}
	return f.Events.ChangeIndexType(ctx, indexType, params)
}
