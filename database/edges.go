package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	loadSql "github.com/mlehmk/fabula/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	InsertEdge(edge *model.EdgeRecord) error
	SelectEdgesByRun(runRID uuid.UUID, edgeType *model.EdgeType) ([]*model.EdgeRecord, error)
	SelectEdgesFromEvent(runRID uuid.UUID, fromEvent string, edgeType *model.EdgeType) ([]*model.EdgeRecord, error)
	DeleteEdgesByRun(runRID uuid.UUID) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

func scanEdgeRecord(row interface{ Scan(...interface{}) error }, edge *model.EdgeRecord) error {
	return row.Scan(
		&edge.ID,
		&edge.RunID,
		&edge.RunRID,
		&edge.FromEvent,
		&edge.ToEvent,
		&edge.EdgeType,
		&edge.Relation,
		&edge.Weight,
		&edge.Threshold,
		&edge.CreatedAt,
	)
}

// InsertEdge inserts a new edge
func (h *EdgesDBHandler) InsertEdge(edge *model.EdgeRecord) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_edge($1, $2, $3, $4, $5, $6, $7)`,
		edge.RunRID,
		edge.FromEvent,
		edge.ToEvent,
		edge.EdgeType,
		edge.Relation,
		edge.Weight,
		edge.Threshold,
	)

	err := scanEdgeRecord(row, edge)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEdgesByRun retrieves the edges of a run, optionally filtered by type
func (h *EdgesDBHandler) SelectEdgesByRun(runRID uuid.UUID, edgeType *model.EdgeType) ([]*model.EdgeRecord, error) {
	var rows *sql.Rows
	var err error

	if edgeType != nil {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_by_run($1, $2)`,
			runRID,
			*edgeType,
		)
	} else {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_by_run($1, NULL)`,
			runRID,
		)
	}

	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.EdgeRecord
	for rows.Next() {
		edge := &model.EdgeRecord{}
		err := scanEdgeRecord(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectEdgesFromEvent retrieves edges originating from an event
func (h *EdgesDBHandler) SelectEdgesFromEvent(runRID uuid.UUID, fromEvent string, edgeType *model.EdgeType) ([]*model.EdgeRecord, error) {
	var rows *sql.Rows
	var err error

	if edgeType != nil {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_from_event($1, $2, $3)`,
			runRID,
			fromEvent,
			*edgeType,
		)
	} else {
		rows, err = h.db.Instance.Query(
			`SELECT * FROM select_edges_from_event($1, $2, NULL)`,
			runRID,
			fromEvent,
		)
	}

	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.EdgeRecord
	for rows.Next() {
		edge := &model.EdgeRecord{}
		err := scanEdgeRecord(rows, edge)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// DeleteEdgesByRun deletes all edges of a run
func (h *EdgesDBHandler) DeleteEdgesByRun(runRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edges_by_run($1)`,
		runRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
