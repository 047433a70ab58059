package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
	loadSql "github.com/mlehmk/fabula/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.EntityRow) error
	SelectEntityByName(runRID uuid.UUID, name string) (*model.EntityRow, error)
	SelectEntitiesByRun(runRID uuid.UUID) ([]*model.EntityRow, error)
	SelectEntitiesByLabel(runRID uuid.UUID, label string) ([]*model.EntityRow, error)
	DeleteEntitiesByRun(runRID uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

func scanEntityRow(row interface{ Scan(...interface{}) error }, entity *model.EntityRow) error {
	return row.Scan(
		&entity.ID,
		&entity.RunID,
		&entity.RunRID,
		&entity.Name,
		&entity.Label,
		pq.Array(&entity.Occurrences),
		&entity.Frequency,
		&entity.CreatedAt,
	)
}

// InsertEntity inserts an entity. Inserting the same name for the same run
// again replaces the stored label, occurrences and frequency.
func (h *EntitiesDBHandler) InsertEntity(entity *model.EntityRow) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5)`,
		entity.RunRID,
		entity.Name,
		entity.Label,
		pq.Array(entity.Occurrences),
		entity.Frequency,
	)

	err := scanEntityRow(row, entity)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntityByName retrieves an entity by run RID and canonical name
func (h *EntitiesDBHandler) SelectEntityByName(runRID uuid.UUID, name string) (*model.EntityRow, error) {
	entity := &model.EntityRow{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		runRID,
		name,
	)

	err := scanEntityRow(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByRun retrieves all entities of a run in insertion order
func (h *EntitiesDBHandler) SelectEntitiesByRun(runRID uuid.UUID) ([]*model.EntityRow, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_run($1)`,
		runRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.collectEntities(rows)
}

// SelectEntitiesByLabel retrieves the entities of a run with the given label,
// most frequent first
func (h *EntitiesDBHandler) SelectEntitiesByLabel(runRID uuid.UUID, label string) ([]*model.EntityRow, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_label($1, $2)`,
		runRID,
		label,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return h.collectEntities(rows)
}

func (h *EntitiesDBHandler) collectEntities(rows *sql.Rows) ([]*model.EntityRow, error) {
	var entities []*model.EntityRow
	for rows.Next() {
		entity := &model.EntityRow{}
		err := scanEntityRow(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntitiesByRun deletes all entities of a run
func (h *EntitiesDBHandler) DeleteEntitiesByRun(runRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entities_by_run($1)`,
		runRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
