package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	"github.com/mlehmk/fabula/sql"
)

// RunsDBHandlerFunctions defines the interface for Runs database operations.
type RunsDBHandlerFunctions interface {
	InsertRun(run *model.Run) error
	SelectRun(rid uuid.UUID) (*model.Run, error)
	SelectAllRuns(lastCreatedAt *time.Time, limit int) ([]*model.Run, error)
	SelectRunsBySearch(searchTerm string, limit int) ([]*model.Run, error)
	UpdateRun(run *model.Run) error
	DeleteRun(rid uuid.UUID) error
}

// RunsDBHandler handles run-related database operations
type RunsDBHandler struct {
	db *helper.Database
}

// NewRunsDBHandler creates a new runs database handler.
// It initializes the database connection and loads run-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRunsDBHandler(db *helper.Database, force bool) (*RunsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	runsDbHandler := &RunsDBHandler{
		db: db,
	}

	err := sql.LoadRunsSql(runsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load runs sql", err)
	}

	err = runsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RunsDBHandler")

	return runsDbHandler, nil
}

// CreateTable creates the 'runs' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RunsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_runs();`)
	if err != nil {
		log.Panicf("error initializing runs table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table runs")

	return nil
}

// InsertRun inserts a new run
func (h *RunsDBHandler) InsertRun(run *model.Run) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_run($1, $2, $3, $4)`,
		run.Title,
		run.Source,
		run.ReferenceDate,
		run.Metadata,
	)

	err := row.Scan(
		&run.ID,
		&run.RID,
		&run.Title,
		&run.Source,
		&run.ReferenceDate,
		&run.Metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectRun retrieves a run by RID
func (h *RunsDBHandler) SelectRun(rid uuid.UUID) (*model.Run, error) {
	run := &model.Run{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_run($1)`,
		rid,
	)

	err := row.Scan(
		&run.ID,
		&run.RID,
		&run.Title,
		&run.Source,
		&run.ReferenceDate,
		&run.Metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return run, nil
}

// SelectAllRuns retrieves all runs with pagination
func (h *RunsDBHandler) SelectAllRuns(lastCreatedAt *time.Time, limit int) ([]*model.Run, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_runs($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run := &model.Run{}
		err := rows.Scan(
			&run.ID,
			&run.RID,
			&run.Title,
			&run.Source,
			&run.ReferenceDate,
			&run.Metadata,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return runs, nil
}

// SelectRunsBySearch searches runs by title or source
func (h *RunsDBHandler) SelectRunsBySearch(searchTerm string, limit int) ([]*model.Run, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_runs($1, $2)`,
		searchTerm,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run := &model.Run{}
		err := rows.Scan(
			&run.ID,
			&run.RID,
			&run.Title,
			&run.Source,
			&run.ReferenceDate,
			&run.Metadata,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return runs, nil
}

// UpdateRun updates a run
func (h *RunsDBHandler) UpdateRun(run *model.Run) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_run($1, $2, $3, $4)`,
		run.RID,
		run.Title,
		run.Source,
		run.Metadata,
	)

	err := row.Scan(
		&run.ID,
		&run.RID,
		&run.Title,
		&run.Source,
		&run.ReferenceDate,
		&run.Metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteRun deletes a run by RID
func (h *RunsDBHandler) DeleteRun(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_run($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
