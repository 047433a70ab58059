package artifact

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
)

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return helper.NewError("create export directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return helper.NewError("create export file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return helper.NewError("write export header", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return helper.NewError("write export row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return helper.NewError("flush export", err)
	}
	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// ExportTemporalCSV writes one row per event that carries a temporal signal.
// Events without a time type are skipped.
func ExportTemporalCSV(path string, events []*model.Event) error {
	header := []string{
		"event_id", "chapter_id", "sentence_id", "action_lemma",
		"time_raw", "time_normalized", "time_type", "text",
	}
	var rows [][]string
	for _, event := range events {
		if event.TimeType == nil {
			continue
		}
		rows = append(rows, []string{
			event.EventID,
			event.ChapterID,
			event.SentenceID,
			event.ActionLemma,
			deref(event.TimeRaw),
			deref(event.TimeNormalized),
			string(*event.TimeType),
			event.Text,
		})
	}
	return writeCSV(path, header, rows)
}

// ExportRoleCompletenessCSV writes one row per event that has an actor.
// Events without an actor are skipped; missing target and location come out
// as empty cells.
func ExportRoleCompletenessCSV(path string, events []*model.Event) error {
	header := []string{
		"event_id", "chapter_id", "sentence_id", "action_lemma",
		"actor", "target", "location", "text",
	}
	var rows [][]string
	for _, event := range events {
		if event.Actor == nil {
			continue
		}
		rows = append(rows, []string{
			event.EventID,
			event.ChapterID,
			event.SentenceID,
			event.ActionLemma,
			*event.Actor,
			deref(event.Target),
			deref(event.Location),
			event.Text,
		})
	}
	return writeCSV(path, header, rows)
}
