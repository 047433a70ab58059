package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlehmk/fabula/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err, "Expected export file to exist")
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err, "Expected export to parse as CSV")
	return rows
}

func TestExportTemporalCSV(t *testing.T) {
	timed := testEvent("event_1")
	timed.ActionLemma = "give"
	timed.ApplyResolution(model.Resolution{
		Original:   "yesterday",
		Normalized: "2024-03-14",
		TimeType:   model.TimeTypeDate,
		Confidence: 0.8,
	})
	timeless := &model.Event{EventID: "event_2", Action: "rained"}

	path := filepath.Join(t.TempDir(), "temporal.csv")
	require.NoError(t, ExportTemporalCSV(path, []*model.Event{timed, timeless}), "Expected export to succeed")

	rows := readCSV(t, path)
	require.Len(t, rows, 2, "Expected header plus one row, event without time type skipped")
	assert.Equal(t,
		[]string{"event_id", "chapter_id", "sentence_id", "action_lemma", "time_raw", "time_normalized", "time_type", "text"},
		rows[0], "Expected header")
	assert.Equal(t,
		[]string{"event_1", "chapter_1", "sentence_1", "give", "yesterday", "2024-03-14", "DATE",
			"John gave Mary the book in the library yesterday."},
		rows[1], "Expected timed event row")
}

func TestExportRoleCompletenessCSV(t *testing.T) {
	event := testEvent("event_1")
	event.ActionLemma = "give"
	actorless := &model.Event{EventID: "event_2", Action: "rained"}

	path := filepath.Join(t.TempDir(), "roles.csv")
	require.NoError(t, ExportRoleCompletenessCSV(path, []*model.Event{event, actorless}), "Expected export to succeed")

	rows := readCSV(t, path)
	require.Len(t, rows, 2, "Expected header plus one row, actor-less event skipped")
	assert.Equal(t,
		[]string{"event_id", "chapter_id", "sentence_id", "action_lemma", "actor", "target", "location", "text"},
		rows[0], "Expected header")
	assert.Equal(t,
		[]string{"event_1", "chapter_1", "sentence_1", "give", "John", "", "",
			"John gave Mary the book in the library yesterday."},
		rows[1], "Expected actor row with empty target and location cells")
}
