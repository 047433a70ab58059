package model

// SemanticNeighbor is one entry of an event's ranked neighbor list.
// Similarity is cosine similarity in [-1, 1], rounded to 4 decimal digits.
type SemanticNeighbor struct {
	EventID    string  `json:"event_id"`
	Similarity float64 `json:"similarity"`
}

// TemporalEdge is a directed before-relation between two events inferred
// from their normalized times.
type TemporalEdge struct {
	FromEventID string  `json:"from_event_id"`
	ToEventID   string  `json:"to_event_id"`
	Relation    string  `json:"relation"`
	Confidence  float64 `json:"confidence"`
}

// SemanticEdge is a directed similarity relation between two events whose
// cosine similarity meets the edge threshold.
type SemanticEdge struct {
	FromEventID string  `json:"from_event_id"`
	ToEventID   string  `json:"to_event_id"`
	Similarity  float64 `json:"similarity"`
	Threshold   float64 `json:"threshold"`
}

// TemporalLink is the adjacency-list view of a temporal edge.
type TemporalLink struct {
	ToEventID  string  `json:"to_event_id"`
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
}

// SemanticLink is the adjacency-list view of a semantic edge.
type SemanticLink struct {
	ToEventID  string  `json:"to_event_id"`
	Similarity float64 `json:"similarity"`
}

// EventGraph holds adjacency-list views of all edges keyed by source
// event id, plus total edge counts.
type EventGraph struct {
	TemporalEdges      map[string][]TemporalLink `json:"temporal_edges"`
	SemanticEdges      map[string][]SemanticLink `json:"semantic_edges"`
	TotalTemporalEdges int                       `json:"total_temporal_edges"`
	TotalSemanticEdges int                       `json:"total_semantic_edges"`
}

// EntityRecord is one canonical entity keyed by surface text, with the
// events it occurs in.
type EntityRecord struct {
	Label       string   `json:"label"`
	Occurrences []string `json:"occurrences"`
}

// EntityGroupEntry is one entity within a by-label group.
type EntityGroupEntry struct {
	Text        string   `json:"text"`
	Occurrences []string `json:"occurrences"`
	Frequency   int      `json:"frequency"`
}

// EntityIndex is the canonical entity registry of a memory graph: every
// named entity across all events, grouped by surface text and by label.
type EntityIndex struct {
	Entities            map[string]*EntityRecord      `json:"entities"`
	ByLabel             map[string][]EntityGroupEntry `json:"by_label"`
	TotalUniqueEntities int                           `json:"total_unique_entities"`
}

// SemanticMemoryEntry is one event's semantic memory record: its embedding
// vector plus the context needed to use it without loading the full event.
type SemanticMemoryEntry struct {
	EventID           string             `json:"event_id"`
	Embedding         []float32          `json:"embedding"`
	Text              string             `json:"text"`
	Entities          []EntitySpan       `json:"entities"`
	NormalizedTime    *string            `json:"normalized_time"`
	ChapterID         string             `json:"chapter_id"`
	SentenceID        string             `json:"sentence_id"`
	SemanticNeighbors []SemanticNeighbor `json:"semantic_neighbors"`
}

// GraphMetadata summarizes a memory graph.
type GraphMetadata struct {
	GeneratedOn        string `json:"generated_on"`
	Model              string `json:"model"`
	TotalChapters      int    `json:"total_chapters"`
	TotalSentences     int    `json:"total_sentences"`
	TotalEvents        int    `json:"total_events"`
	TotalTemporalEdges int    `json:"total_temporal_edges"`
	TotalSemanticEdges int    `json:"total_semantic_edges"`
	TotalCharacters    int    `json:"total_characters"`
	TotalLocations     int    `json:"total_locations"`
	TotalOrganizations int    `json:"total_organizations"`
	EmbeddingDim       int    `json:"embedding_dim"`
	EmbeddingModel     string `json:"embedding_model"`
}

// MemoryGraph is the unified terminal artifact of a pipeline run. Its JSON
// shape is the stable contract for downstream consumers keying off events,
// entities.by_label, timeline, temporal_edges, semantic_edges, chapter_map
// and metadata.
type MemoryGraph struct {
	Events         []*Event              `json:"events"`
	Entities       *EntityIndex          `json:"entities"`
	SemanticMemory []SemanticMemoryEntry `json:"semantic_memory"`
	Timeline       []string              `json:"timeline"`
	TemporalEdges  []TemporalEdge        `json:"temporal_edges"`
	SemanticEdges  []SemanticEdge        `json:"semantic_edges"`
	ChapterMap     map[string][]string   `json:"chapter_map"`
	EventGraph     *EventGraph           `json:"event_graph"`
	Metadata       GraphMetadata         `json:"metadata"`
}

// EventIDs returns the set of event ids present in the graph.
func (g *MemoryGraph) EventIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Events))
	for _, event := range g.Events {
		ids[event.EventID] = true
	}
	return ids
}
