package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed runs.sql
var runsSQL string

//go:embed events.sql
var eventsSQL string

//go:embed edges.sql
var edgesSQL string

//go:embed entities.sql
var entitiesSQL string

// Function lists for verification
var RunsFunctions = []string{
	"init_runs",
	"insert_run",
	"select_run",
	"select_all_runs",
	"search_runs",
	"update_run",
	"delete_run",
}

var EventsFunctions = []string{
	"init_events",
	"insert_event",
	"select_event",
	"select_events_by_run",
	"select_events_by_chapter",
	"select_events_by_similarity",
	"update_event_embedding",
	"delete_events_by_run",
}

var EdgesFunctions = []string{
	"init_edges",
	"insert_edge",
	"select_edges_by_run",
	"select_edges_from_event",
	"delete_edges_by_run",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity_by_name",
	"select_entities_by_run",
	"select_entities_by_label",
	"delete_entities_by_run",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadRunsSql loads run-related SQL functions
func LoadRunsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, runsSQL, RunsFunctions, "runs")
}

// LoadEventsSql loads event-related SQL functions
func LoadEventsSql(db *sql.DB, force bool) error {
	return loadSql(db, force, eventsSQL, EventsFunctions, "events")
}

// LoadEdgesSql loads edge-related SQL functions
func LoadEdgesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, edgesSQL, EdgesFunctions, "edges")
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, force, entitiesSQL, EntitiesFunctions, "entities")
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadRunsSql(db, force); err != nil {
		return err
	}

	if err := LoadEventsSql(db, force); err != nil {
		return err
	}

	if err := LoadEdgesSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, force bool, source string, functions []string, name string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(source)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
