package graph

import (
	"log/slog"
	"sort"
	"time"

	"github.com/mlehmk/fabula/core/pipeline"
	"github.com/mlehmk/fabula/model"
)

// timeLayouts are the formats a normalized time string may parse as.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseNormalizedTime(normalized string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// timelineRank orders events for the timeline: parseable dates first,
// then events with an unparseable normalized time, then timeless events.
func timelineRank(event *model.Event) (int, time.Time, string) {
	normalized := event.NormalizedTime()
	if normalized == "" {
		return 2, time.Time{}, ""
	}
	if parsed, ok := parseNormalizedTime(normalized); ok {
		return 0, parsed, normalized
	}
	return 1, time.Time{}, normalized
}

// BuildTimeline returns the event ids in timeline order: dated events
// chronologically, then events with symbolic times in lexical order, then
// timeless events in their original order. The sort is stable, so ties keep
// event order.
func BuildTimeline(events []*model.Event) []string {
	ordered := make([]*model.Event, len(events))
	copy(ordered, events)

	sort.SliceStable(ordered, func(i, j int) bool {
		rankI, dateI, normI := timelineRank(ordered[i])
		rankJ, dateJ, normJ := timelineRank(ordered[j])
		if rankI != rankJ {
			return rankI < rankJ
		}
		switch rankI {
		case 0:
			return dateI.Before(dateJ)
		case 1:
			return normI < normJ
		default:
			return false
		}
	})

	timeline := make([]string, len(ordered))
	for i, event := range ordered {
		timeline[i] = event.EventID
	}
	return timeline
}

// BuildTemporalEdges creates a before-edge between each consecutive
// timeline pair in which both events carry a normalized time.
func BuildTemporalEdges(timeline []string, events []*model.Event) []model.TemporalEdge {
	byID := make(map[string]*model.Event, len(events))
	for _, event := range events {
		byID[event.EventID] = event
	}

	edges := make([]model.TemporalEdge, 0)
	for i := 0; i+1 < len(timeline); i++ {
		from := byID[timeline[i]]
		to := byID[timeline[i+1]]
		if from == nil || to == nil {
			continue
		}
		if from.NormalizedTime() == "" || to.NormalizedTime() == "" {
			continue
		}
		edges = append(edges, model.TemporalEdge{
			FromEventID: from.EventID,
			ToEventID:   to.EventID,
			Relation:    "before",
			Confidence:  0.9,
		})
	}
	return edges
}

// BuildSemanticEdges creates a directed edge for every neighbor whose
// similarity meets the threshold. The threshold is recorded on each edge.
func BuildSemanticEdges(events []*model.Event, neighbors map[string][]model.SemanticNeighbor, threshold float64) []model.SemanticEdge {
	edges := make([]model.SemanticEdge, 0)
	for _, event := range events {
		for _, neighbor := range neighbors[event.EventID] {
			if neighbor.Similarity < threshold {
				continue
			}
			edges = append(edges, model.SemanticEdge{
				FromEventID: event.EventID,
				ToEventID:   neighbor.EventID,
				Similarity:  neighbor.Similarity,
				Threshold:   threshold,
			})
		}
	}
	return edges
}

// BuildEventGraph converts edge lists into adjacency-list form.
func BuildEventGraph(temporal []model.TemporalEdge, semantic []model.SemanticEdge) *model.EventGraph {
	eventGraph := &model.EventGraph{
		TemporalEdges:      make(map[string][]model.TemporalLink),
		SemanticEdges:      make(map[string][]model.SemanticLink),
		TotalTemporalEdges: len(temporal),
		TotalSemanticEdges: len(semantic),
	}
	for _, edge := range temporal {
		eventGraph.TemporalEdges[edge.FromEventID] = append(eventGraph.TemporalEdges[edge.FromEventID], model.TemporalLink{
			ToEventID:  edge.ToEventID,
			Relation:   edge.Relation,
			Confidence: edge.Confidence,
		})
	}
	for _, edge := range semantic {
		eventGraph.SemanticEdges[edge.FromEventID] = append(eventGraph.SemanticEdges[edge.FromEventID], model.SemanticLink{
			ToEventID:  edge.ToEventID,
			Similarity: edge.Similarity,
		})
	}
	return eventGraph
}

// BuildChapterMap groups event ids by chapter, keeping event order within
// each chapter.
func BuildChapterMap(events []*model.Event) map[string][]string {
	chapterMap := make(map[string][]string)
	for _, event := range events {
		chapterMap[event.ChapterID] = append(chapterMap[event.ChapterID], event.EventID)
	}
	return chapterMap
}

// BuildEntityIndex builds the canonical entity registry: entities keyed by
// surface text with their occurrences, plus a per-label grouping with
// frequencies. The first seen label of a surface text wins.
func BuildEntityIndex(events []*model.Event) *model.EntityIndex {
	entities := make(map[string]*model.EntityRecord)
	var order []string

	for _, event := range events {
		for _, span := range event.Entities {
			record, ok := entities[span.Text]
			if !ok {
				record = &model.EntityRecord{Label: span.Label}
				entities[span.Text] = record
				order = append(order, span.Text)
			}
			record.Occurrences = append(record.Occurrences, event.EventID)
		}
	}

	byLabel := make(map[string][]model.EntityGroupEntry)
	for _, text := range order {
		record := entities[text]
		byLabel[record.Label] = append(byLabel[record.Label], model.EntityGroupEntry{
			Text:        text,
			Occurrences: record.Occurrences,
			Frequency:   len(record.Occurrences),
		})
	}

	return &model.EntityIndex{
		Entities:            entities,
		ByLabel:             byLabel,
		TotalUniqueEntities: len(entities),
	}
}

// buildSemanticMemory builds one semantic memory entry per embedded event.
func buildSemanticMemory(events []*model.Event, result *pipeline.Result) []model.SemanticMemoryEntry {
	if result.Embeddings == nil {
		return nil
	}
	memory := make([]model.SemanticMemoryEntry, 0, len(events))
	for _, event := range events {
		embedding, ok := result.Embeddings[event.EventID]
		if !ok {
			continue
		}
		memory = append(memory, model.SemanticMemoryEntry{
			EventID:           event.EventID,
			Embedding:         embedding,
			Text:              event.Text,
			Entities:          event.Entities,
			NormalizedTime:    event.Time.Normalized,
			ChapterID:         event.ChapterID,
			SentenceID:        event.SentenceID,
			SemanticNeighbors: result.Neighbors[event.EventID],
		})
	}
	return memory
}

// Assembler builds the unified memory graph out of a pipeline result.
type Assembler struct {
	config model.PipelineConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAssembler creates an assembler for the given configuration.
func NewAssembler(config model.PipelineConfig, logger *slog.Logger) *Assembler {
	return &Assembler{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Assemble builds the memory graph. Apart from the generation timestamp in
// the metadata, equal inputs always produce equal graphs.
func (a *Assembler) Assemble(result *pipeline.Result) *model.MemoryGraph {
	events := result.Events

	timeline := BuildTimeline(events)
	temporalEdges := BuildTemporalEdges(timeline, events)
	semanticEdges := BuildSemanticEdges(events, result.Neighbors, a.config.EdgeThreshold)
	entityIndex := BuildEntityIndex(events)
	chapterMap := BuildChapterMap(events)
	eventGraph := BuildEventGraph(temporalEdges, semanticEdges)
	semanticMemory := buildSemanticMemory(events, result)

	embeddingDim := a.config.EmbeddingDim
	for _, entry := range semanticMemory {
		embeddingDim = len(entry.Embedding)
		break
	}

	metadata := model.GraphMetadata{
		GeneratedOn:        a.now().Format(time.RFC3339),
		Model:              a.config.EmbeddingModel,
		TotalChapters:      len(chapterMap),
		TotalSentences:     len(result.Sentences),
		TotalEvents:        len(events),
		TotalTemporalEdges: len(temporalEdges),
		TotalSemanticEdges: len(semanticEdges),
		TotalCharacters:    len(entityIndex.ByLabel["PERSON"]),
		TotalLocations:     len(entityIndex.ByLabel["GPE"]) + len(entityIndex.ByLabel["LOC"]),
		TotalOrganizations: len(entityIndex.ByLabel["ORG"]),
		EmbeddingDim:       embeddingDim,
		EmbeddingModel:     a.config.EmbeddingModel,
	}

	if a.logger != nil {
		a.logger.Info(
			"Assembled memory graph",
			slog.Int("events", len(events)),
			slog.Int("temporal_edges", len(temporalEdges)),
			slog.Int("semantic_edges", len(semanticEdges)),
			slog.Int("entities", entityIndex.TotalUniqueEntities),
		)
	}

	return &model.MemoryGraph{
		Events:         events,
		Entities:       entityIndex,
		SemanticMemory: semanticMemory,
		Timeline:       timeline,
		TemporalEdges:  temporalEdges,
		SemanticEdges:  semanticEdges,
		ChapterMap:     chapterMap,
		EventGraph:     eventGraph,
		Metadata:       metadata,
	}
}
