package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mlehmk/fabula/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testReference = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		normalized string
		timeType   model.TimeType
		confidence float64
	}{
		{"ISO date", "2024-03-01", "2024-03-01", model.TimeTypeDate, 0.9},
		{"Slash date keeps its text", "3/1/2024", "3/1/2024", model.TimeTypeDate, 0.9},
		{"Dash date keeps its text", "12-25-2023", "12-25-2023", model.TimeTypeDate, 0.9},
		{"Date inside a phrase", "on 05/06/2024", "on 05/06/2024", model.TimeTypeDate, 0.9},
		{"Out of range slash date still matches", "13/45/2024", "13/45/2024", model.TimeTypeDate, 0.9},
		{"Yesterday", "yesterday", "2024-03-14", model.TimeTypeDate, 0.8},
		{"Today", "today", "2024-03-15", model.TimeTypeDate, 0.8},
		{"Tomorrow", "tomorrow", "2024-03-16", model.TimeTypeDate, 0.8},
		{"Tomorrow with daypart", "tomorrow morning", "2024-03-16", model.TimeTypeDate, 0.8},
		{"Days later", "3 days later", "2024-03-18", model.TimeTypeDate, 0.8},
		{"Weeks ago", "2 weeks ago", "2024-03-01", model.TimeTypeDate, 0.8},
		{"Months later approximate", "2 months later", "2024-05-14", model.TimeTypeDate, 0.8},
		{"Morning", "the next morning", "T-MORNING", model.TimeTypeTime, 0.7},
		{"Midnight", "at midnight", "T-MIDNIGHT", model.TimeTypeTime, 0.7},
		{"Later", "a little later", "REL-LATER", model.TimeTypeRelative, 0.6},
		{"Soon", "soon", "REL-SOON", model.TimeTypeRelative, 0.6},
		{"In N days", "in 3 days", "REL-3D", model.TimeTypeRelative, 0.6},
		{"In N weeks", "in 2 weeks", "REL-2W", model.TimeTypeRelative, 0.6},
		{"Next week", "next week", "2024-03-22", model.TimeTypeDate, 0.75},
		{"Last month approximate", "last month", "2024-02-14", model.TimeTypeDate, 0.75},
		{"Next year approximate", "next year", "2025-03-15", model.TimeTypeDate, 0.75},
		{"Month name without year", "march 1", "2024-03-01", model.TimeTypeDate, 0.8},
		{"Month name with year", "december 25, 2023", "2023-12-25", model.TimeTypeDate, 0.8},
		{"Abbreviated month", "on dec 5", "2024-12-05", model.TimeTypeDate, 0.8},
		{"Temporal keyword keeps its text", "that same hour", "that same hour", model.TimeTypeRelative, 0.4},
		{"Unknown keeps its text", "once upon a mist", "once upon a mist", model.TimeTypeUnknown, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := Resolve(tt.raw, testReference, model.MonthsApproximate)

			assert.Equal(t, tt.normalized, resolution.Normalized, "Expected normalized value")
			assert.Equal(t, tt.timeType, resolution.TimeType, "Expected time type")
			assert.InDelta(t, tt.confidence, resolution.Confidence, 1e-9, "Expected confidence")
		})
	}

	t.Run("Resolve trims whitespace and keeps the original", func(t *testing.T) {
		resolution := Resolve("  yesterday  ", testReference, model.MonthsApproximate)

		assert.Equal(t, "yesterday", resolution.Original, "Expected trimmed original")
		assert.Equal(t, "2024-03-14", resolution.Normalized, "Expected normalization of trimmed input")
	})

	t.Run("Resolve is deterministic", func(t *testing.T) {
		first := Resolve("2 weeks ago", testReference, model.MonthsApproximate)
		second := Resolve("2 weeks ago", testReference, model.MonthsApproximate)

		assert.Equal(t, first, second, "Expected equal inputs to yield equal resolutions")
	})

	t.Run("Calendar month arithmetic", func(t *testing.T) {
		resolution := Resolve("2 months later", testReference, model.MonthsCalendar)
		assert.Equal(t, "2024-05-15", resolution.Normalized, "Expected calendar month offset")

		resolution = Resolve("next year", testReference, model.MonthsCalendar)
		assert.Equal(t, "2025-03-15", resolution.Normalized, "Expected calendar year offset")
	})

	t.Run("Invalid month name date falls through", func(t *testing.T) {
		resolution := Resolve("february 30, 2023", testReference, model.MonthsApproximate)

		assert.NotEqual(t, model.TimeTypeDate, resolution.TimeType, "Expected impossible date to be rejected")
	})
}

func newTestNormalizer(tagger TemporalTagFunc) *Normalizer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNormalizer(testReference, model.MonthsApproximate, tagger, logger)
}

func timedEvent(id, raw string) *model.Event {
	event := &model.Event{EventID: id}
	event.SetRole(model.RoleTime, raw)
	return event
}

func TestNormalizerResolveAll(t *testing.T) {
	t.Run("Distinct expressions are resolved once", func(t *testing.T) {
		events := []*model.Event{
			timedEvent("event_1", "tomorrow"),
			timedEvent("event_2", "tomorrow"),
			timedEvent("event_3", "yesterday"),
		}

		calls := 0
		tagger := func(ctx context.Context, raw string) (*model.Resolution, error) {
			calls++
			return nil, nil
		}

		normalizer := newTestNormalizer(tagger)
		resolutions := normalizer.ResolveAll(context.Background(), events)

		assert.Len(t, resolutions, 2, "Expected one resolution per distinct expression")
		assert.Equal(t, 2, calls, "Expected tagger to be consulted once per distinct expression")
		assert.Equal(t, "2024-03-16", resolutions["tomorrow"].Normalized, "Expected tomorrow resolution")
	})

	t.Run("External tagger takes precedence", func(t *testing.T) {
		events := []*model.Event{timedEvent("event_1", "the feast day")}
		tagger := func(ctx context.Context, raw string) (*model.Resolution, error) {
			return &model.Resolution{
				Original:   raw,
				Normalized: "2024-06-24",
				TimeType:   model.TimeTypeDate,
				Confidence: 0.95,
			}, nil
		}

		normalizer := newTestNormalizer(tagger)
		resolutions := normalizer.ResolveAll(context.Background(), events)

		assert.Equal(t, "2024-06-24", resolutions["the feast day"].Normalized, "Expected tagger resolution")
	})

	t.Run("Tagger failure falls back to rules", func(t *testing.T) {
		events := []*model.Event{timedEvent("event_1", "yesterday")}
		tagger := func(ctx context.Context, raw string) (*model.Resolution, error) {
			return nil, errors.New("service down")
		}

		normalizer := newTestNormalizer(tagger)
		resolutions := normalizer.ResolveAll(context.Background(), events)

		assert.Equal(t, "2024-03-14", resolutions["yesterday"].Normalized, "Expected rule fallback")
	})
}

func TestNormalizerApply(t *testing.T) {
	t.Run("Resolutions are written back to events", func(t *testing.T) {
		events := []*model.Event{
			timedEvent("event_1", "yesterday"),
			{EventID: "event_2"},
		}

		normalizer := newTestNormalizer(nil)
		resolutions := normalizer.ResolveAll(context.Background(), events)
		normalizer.Apply(events, resolutions)

		require.NotNil(t, events[0].Time.Normalized, "Expected normalized time on timed event")
		assert.Equal(t, "2024-03-14", *events[0].Time.Normalized, "Expected normalized value")
		require.NotNil(t, events[0].TimeConfidence, "Expected confidence on timed event")
		assert.InDelta(t, 0.8, *events[0].TimeConfidence, 1e-9, "Expected confidence value")

		assert.Nil(t, events[1].Time.Raw, "Expected timeless event to keep nil raw")
		assert.Nil(t, events[1].Time.Normalized, "Expected timeless event to keep nil normalized")
		assert.Nil(t, events[1].TimeType, "Expected timeless event to keep nil type")
	})

	t.Run("Time from date entity is resolved", func(t *testing.T) {
		event := &model.Event{
			EventID:  "event_1",
			Entities: []model.EntitySpan{{Text: "2024-01-01", Label: "DATE"}},
		}

		normalizer := newTestNormalizer(nil)
		events := []*model.Event{event}
		resolutions := normalizer.ResolveAll(context.Background(), events)
		normalizer.Apply(events, resolutions)

		require.NotNil(t, event.Time.Normalized, "Expected entity-derived time")
		assert.Equal(t, "2024-01-01", *event.Time.Normalized, "Expected normalized entity date")
	})
}
