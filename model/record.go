package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType distinguishes the stored edge sets of a run.
type EdgeType string

const (
	EdgeTypeTemporal EdgeType = "temporal"
	EdgeTypeSemantic EdgeType = "semantic"
)

// Run is one stored pipeline run: a processed narrative with its reference
// date. Events, edges and entities reference their run by RID.
type Run struct {
	ID            int       `json:"id"`
	RID           uuid.UUID `json:"rid"`
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	ReferenceDate time.Time `json:"reference_date"`
	Metadata      Metadata  `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EventRecord is the stored form of an event: queryable columns plus the
// full event JSON as payload and the embedding vector for similarity
// search. Similarity is only set on records returned by similarity queries.
type EventRecord struct {
	ID             int       `json:"id"`
	RunID          int       `json:"run_id"`
	RunRID         uuid.UUID `json:"run_rid"`
	EventKey       string    `json:"event_key"`
	ChapterID      string    `json:"chapter_id"`
	SentenceID     string    `json:"sentence_id"`
	Content        string    `json:"content"`
	TimeNormalized *string   `json:"time_normalized"`
	Payload        Metadata  `json:"payload"`
	Embedding      []float32 `json:"embedding,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Similarity     *float64  `json:"similarity,omitempty"`
}

// EdgeRecord is a stored edge between two events of a run. Weight carries
// the confidence of temporal edges and the similarity of semantic edges.
type EdgeRecord struct {
	ID        int       `json:"id"`
	RunID     int       `json:"run_id"`
	RunRID    uuid.UUID `json:"run_rid"`
	FromEvent string    `json:"from_event"`
	ToEvent   string    `json:"to_event"`
	EdgeType  EdgeType  `json:"edge_type"`
	Relation  *string   `json:"relation"`
	Weight    float64   `json:"weight"`
	Threshold *float64  `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityRow is a stored canonical entity of a run with the event keys it
// occurs in.
type EntityRow struct {
	ID          int       `json:"id"`
	RunID       int       `json:"run_id"`
	RunRID      uuid.UUID `json:"run_rid"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Occurrences []string  `json:"occurrences"`
	Frequency   int       `json:"frequency"`
	CreatedAt   time.Time `json:"created_at"`
}
