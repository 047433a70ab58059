package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	loadSql "github.com/mlehmk/fabula/sql"
	"github.com/pgvector/pgvector-go"
)

// EventsDBHandlerFunctions defines the interface for Events database operations.
type EventsDBHandlerFunctions interface {
	InsertEvent(event *model.EventRecord) error
	SelectEvent(runRID uuid.UUID, eventKey string) (*model.EventRecord, error)
	SelectEventsByRun(runRID uuid.UUID) ([]*model.EventRecord, error)
	SelectEventsByChapter(runRID uuid.UUID, chapterID string) ([]*model.EventRecord, error)
	SelectEventsBySimilarity(embedding []float32, limit int, threshold float64, runRID *uuid.UUID) ([]*model.EventRecord, error)
	UpdateEventEmbedding(runRID uuid.UUID, eventKey string, embedding []float32) error
	DeleteEventsByRun(runRID uuid.UUID) error
}

// EventsDBHandler handles event-related database operations
type EventsDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewEventsDBHandler creates a new events database handler.
// It initializes the database connection and loads event-related SQL functions.
// The embedding dimension fixes the width of the vector column.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEventsDBHandler(db *helper.Database, embeddingDim int, force bool) (*EventsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	eventsDbHandler := &EventsDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadEventsSql(eventsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load events sql", err)
	}

	err = eventsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EventsDBHandler")

	return eventsDbHandler, nil
}

// CreateTable creates the 'events' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes including the vector index.
func (h *EventsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_events($1);`, h.embeddingDim)
	if err != nil {
		log.Panicf("error initializing events table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table events")

	return nil
}

// nullVector scans a nullable pgvector column. Events produced without an
// embedder have no embedding.
type nullVector struct {
	vector pgvector.Vector
	valid  bool
}

func (v *nullVector) Scan(src interface{}) error {
	if src == nil {
		v.valid = false
		return nil
	}
	if err := v.vector.Scan(src); err != nil {
		return err
	}
	v.valid = true
	return nil
}

func (v *nullVector) slice() []float32 {
	if !v.valid {
		return nil
	}
	return v.vector.Slice()
}

// embeddingParam converts an embedding to an insertable value, mapping an
// empty embedding to NULL.
func embeddingParam(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func scanEventRecord(row interface{ Scan(...interface{}) error }, event *model.EventRecord, withSimilarity bool) error {
	var embedding nullVector

	dest := []interface{}{
		&event.ID,
		&event.RunID,
		&event.RunRID,
		&event.EventKey,
		&event.ChapterID,
		&event.SentenceID,
		&event.Content,
		&event.TimeNormalized,
		&event.Payload,
		&embedding,
		&event.CreatedAt,
	}
	if withSimilarity {
		dest = append(dest, &event.Similarity)
	}

	err := row.Scan(dest...)
	if err != nil {
		return err
	}

	event.Embedding = embedding.slice()
	return nil
}

// InsertEvent inserts a new event
func (h *EventsDBHandler) InsertEvent(event *model.EventRecord) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_event($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.RunRID,
		event.EventKey,
		event.ChapterID,
		event.SentenceID,
		event.Content,
		event.TimeNormalized,
		event.Payload,
		embeddingParam(event.Embedding),
	)

	err := scanEventRecord(row, event, false)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEvent retrieves an event by run RID and event key
func (h *EventsDBHandler) SelectEvent(runRID uuid.UUID, eventKey string) (*model.EventRecord, error) {
	event := &model.EventRecord{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_event($1, $2)`,
		runRID,
		eventKey,
	)

	err := scanEventRecord(row, event, false)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return event, nil
}

// SelectEventsByRun retrieves all events of a run in insertion order
func (h *EventsDBHandler) SelectEventsByRun(runRID uuid.UUID) ([]*model.EventRecord, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_events_by_run($1)`,
		runRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var events []*model.EventRecord
	for rows.Next() {
		event := &model.EventRecord{}
		err := scanEventRecord(rows, event, false)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		events = append(events, event)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return events, nil
}

// SelectEventsByChapter retrieves the events of one chapter of a run
func (h *EventsDBHandler) SelectEventsByChapter(runRID uuid.UUID, chapterID string) ([]*model.EventRecord, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_events_by_chapter($1, $2)`,
		runRID,
		chapterID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var events []*model.EventRecord
	for rows.Next() {
		event := &model.EventRecord{}
		err := scanEventRecord(rows, event, false)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		events = append(events, event)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return events, nil
}

// SelectEventsBySimilarity retrieves events by cosine similarity to the given
// embedding, most similar first. Results below the threshold are excluded.
// If runRID is nil, events of all runs are searched.
func (h *EventsDBHandler) SelectEventsBySimilarity(embedding []float32, limit int, threshold float64, runRID *uuid.UUID) ([]*model.EventRecord, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_events_by_similarity($1, $2, $3, $4)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
		runRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var events []*model.EventRecord
	for rows.Next() {
		event := &model.EventRecord{}
		err := scanEventRecord(rows, event, true)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		events = append(events, event)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return events, nil
}

// UpdateEventEmbedding replaces the embedding of an event
func (h *EventsDBHandler) UpdateEventEmbedding(runRID uuid.UUID, eventKey string, embedding []float32) error {
	event := &model.EventRecord{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_event_embedding($1, $2, $3)`,
		runRID,
		eventKey,
		embeddingParam(embedding),
	)

	err := scanEventRecord(row, event, false)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteEventsByRun deletes all events of a run
func (h *EventsDBHandler) DeleteEventsByRun(runRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_events_by_run($1)`,
		runRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
