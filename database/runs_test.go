package database

import (
	"testing"
	"time"

	"github.com/mlehmk/fabula/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsNewRunsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewRunsDBHandler", func(t *testing.T) {
		runsDbHandler, err := NewRunsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewRunsDBHandler to not return an error")
		require.NotNil(t, runsDbHandler, "Expected NewRunsDBHandler to return a non-nil instance")
		require.NotNil(t, runsDbHandler.db, "Expected NewRunsDBHandler to have a non-nil database instance")
		require.NotNil(t, runsDbHandler.db.Instance, "Expected NewRunsDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewRunsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRunsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating RunsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestRunsInsert(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err, "Expected NewRunsDBHandler to not return an error")

	t.Run("Insert run", func(t *testing.T) {
		run := &model.Run{
			Title:         "Test Narrative",
			Source:        "narrative.txt",
			ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Metadata:      map[string]interface{}{"author": "Test Author", "chapters": 3},
		}

		err := runsDbHandler.InsertRun(run)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEmpty(t, run.RID, "Expected inserted run to have a RID")
		assert.WithinDuration(t, run.CreatedAt, time.Now(), 2*time.Second, "Expected CreatedAt to be set")
		assert.WithinDuration(t, run.UpdatedAt, time.Now(), 2*time.Second, "Expected UpdatedAt to be set")
		assert.Equal(t, "Test Narrative", run.Title, "Expected title to match")
		assert.Equal(t, 2024, run.ReferenceDate.Year(), "Expected reference date to round trip")

		// Cleanup
		runsDbHandler.DeleteRun(run.RID)
	})
}

func TestRunsGet(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	run := &model.Run{
		Title:         "Test Narrative",
		Source:        "narrative.txt",
		ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Metadata:      map[string]interface{}{"key": "value"},
	}
	err = runsDbHandler.InsertRun(run)
	require.NoError(t, err)

	retrievedRun, err := runsDbHandler.SelectRun(run.RID)
	assert.NoError(t, err, "Expected Get to not return an error")
	assert.NotNil(t, retrievedRun, "Expected Get to return a non-nil run")
	assert.Equal(t, run.RID, retrievedRun.RID, "Expected run RIDs to match")
	assert.Equal(t, run.Title, retrievedRun.Title, "Expected titles to match")
	assert.Equal(t, run.Source, retrievedRun.Source, "Expected sources to match")
	assert.Equal(t, "value", retrievedRun.Metadata["key"], "Expected metadata to round trip")

	// Cleanup
	runsDbHandler.DeleteRun(run.RID)
}

func TestRunsGetAll(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	runCount := 5
	runs := make([]*model.Run, runCount)
	for i := 0; i < runCount; i++ {
		runs[i] = &model.Run{
			Title:         "Test Narrative " + string(rune('A'+i)),
			Source:        "narrative.txt",
			ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Metadata:      map[string]interface{}{},
		}
		err = runsDbHandler.InsertRun(runs[i])
		require.NoError(t, err)
	}

	retrievedRuns, err := runsDbHandler.SelectAllRuns(nil, 10)
	assert.NoError(t, err, "Expected SelectAllRuns to not return an error")
	assert.GreaterOrEqual(t, len(retrievedRuns), runCount, "Expected to retrieve at least the inserted runs")

	// Test pagination
	pageLength := 3
	paginatedRuns, err := runsDbHandler.SelectAllRuns(nil, pageLength)
	assert.NoError(t, err, "Expected SelectAllRuns to not return an error")
	assert.LessOrEqual(t, len(paginatedRuns), pageLength, "Expected at most pageLength runs")

	// Cleanup
	for _, run := range runs {
		runsDbHandler.DeleteRun(run.RID)
	}
}

func TestRunsSearch(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	searchTerm := "UniqueSearchTerm"
	matchingRuns := 3
	otherRuns := 2

	runs := []*model.Run{}

	for i := 0; i < matchingRuns; i++ {
		run := &model.Run{
			Title:         searchTerm + " Narrative " + string(rune('A'+i)),
			Source:        "narrative.txt",
			ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Metadata:      map[string]interface{}{},
		}
		err = runsDbHandler.InsertRun(run)
		require.NoError(t, err)
		runs = append(runs, run)
	}

	for i := 0; i < otherRuns; i++ {
		run := &model.Run{
			Title:         "Other Narrative " + string(rune('A'+i)),
			Source:        "narrative.txt",
			ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Metadata:      map[string]interface{}{},
		}
		err = runsDbHandler.InsertRun(run)
		require.NoError(t, err)
		runs = append(runs, run)
	}

	results, err := runsDbHandler.SelectRunsBySearch(searchTerm, 10)
	assert.NoError(t, err, "Expected SelectRunsBySearch to not return an error")
	assert.Len(t, results, matchingRuns, "Expected to find only matching runs")

	// Cleanup
	for _, run := range runs {
		runsDbHandler.DeleteRun(run.RID)
	}
}

func TestRunsUpdate(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	run := &model.Run{
		Title:         "Original Title",
		Source:        "original.txt",
		ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Metadata:      map[string]interface{}{"version": 1},
	}
	err = runsDbHandler.InsertRun(run)
	require.NoError(t, err)

	run.Title = "Updated Title"
	run.Source = "updated.txt"
	run.Metadata = map[string]interface{}{"version": 2}

	err = runsDbHandler.UpdateRun(run)
	assert.NoError(t, err, "Expected UpdateRun to not return an error")

	retrievedRun, err := runsDbHandler.SelectRun(run.RID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Title", retrievedRun.Title, "Expected title to be updated")
	assert.Equal(t, "updated.txt", retrievedRun.Source, "Expected source to be updated")
	assert.Equal(t, float64(2), retrievedRun.Metadata["version"], "Expected metadata to be updated")

	// Cleanup
	runsDbHandler.DeleteRun(run.RID)
}

func TestRunsDelete(t *testing.T) {
	database := initDB(t)

	runsDbHandler, err := NewRunsDBHandler(database, true)
	require.NoError(t, err)

	run := &model.Run{
		Title:         "Test Narrative",
		Source:        "narrative.txt",
		ReferenceDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Metadata:      map[string]interface{}{},
	}
	err = runsDbHandler.InsertRun(run)
	require.NoError(t, err)

	err = runsDbHandler.DeleteRun(run.RID)
	assert.NoError(t, err, "Expected Delete to not return an error")

	_, err = runsDbHandler.SelectRun(run.RID)
	assert.Error(t, err, "Expected Get to return an error for deleted run")
}
