package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mlehmk/fabula/helper"
	"github.com/mlehmk/fabula/model"
)

const dateLayout = "2006-01-02"

var (
	// Date patterns match anywhere inside the expression, so phrases like
	// "on 05/06/2024" still resolve as dates.
	absoluteDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`),
	}

	offsetPattern = regexp.MustCompile(`(\d+)\s*(day|week|month)s?\s*(later|ago)`)
	inNPattern    = regexp.MustCompile(`^in\s+(\d+)\s+(day|week|month)s?$`)

	monthNamePattern = regexp.MustCompile(
		`\b(january|february|march|april|may|june|july|august|september|october|november|december|` +
			`jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b\.?\s+(\d{1,2})(?:\s*,\s*(\d{4}))?`)

	monthsByName = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "jun": time.June, "jul": time.July,
		"aug": time.August, "sep": time.September, "oct": time.October,
		"nov": time.November, "dec": time.December,
	}

	// Longer keywords come first so that "midnight" is not shadowed by
	// "night" and "afternoon" not by "noon".
	daypartCodes = []struct {
		keyword string
		code    string
	}{
		{"morning", "T-MORNING"},
		{"afternoon", "T-AFTERNOON"},
		{"evening", "T-EVENING"},
		{"midnight", "T-MIDNIGHT"},
		{"night", "T-NIGHT"},
		{"noon", "T-NOON"},
	}

	vagueCodes = []struct {
		keyword string
		code    string
	}{
		{"later", "REL-LATER"},
		{"soon", "REL-SOON"},
		{"eventually", "REL-EVENTUALLY"},
	}

	temporalKeywords = []string{"time", "day", "week", "month", "year", "hour", "minute"}
)

// temporalRule is one step of the normalization chain. Rules receive both
// the trimmed original expression and its lower-cased form; a nil result
// means the rule does not apply and the chain continues.
type temporalRule struct {
	Name    string
	Resolve func(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution
}

// temporalRules is the static rule chain, ordered by precedence. Each rule
// carries a fixed confidence; the final fallback classifies everything left
// as UNKNOWN.
var temporalRules = []temporalRule{
	{"absolute date", resolveAbsoluteDate},
	{"relative day offset", resolveRelativeOffset},
	{"time of day", resolveDaypart},
	{"vague relative", resolveVague},
	{"next/last period", resolveNextLast},
	{"month name date", resolveMonthName},
	{"temporal keyword", resolveKeyword},
}

// resolveAbsoluteDate keeps the whole original expression as the normalized
// value; downstream timeline parsing decides whether it is a calendar date.
func resolveAbsoluteDate(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	for _, pattern := range absoluteDatePatterns {
		if pattern.MatchString(lower) {
			return &model.Resolution{Normalized: raw, TimeType: model.TimeTypeDate, Confidence: 0.9}
		}
	}
	return nil
}

func resolveRelativeOffset(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	switch {
	case strings.Contains(lower, "yesterday"):
		return dateResolution(ref.AddDate(0, 0, -1), 0.8)
	case strings.Contains(lower, "today"):
		return dateResolution(ref, 0.8)
	case strings.Contains(lower, "tomorrow"):
		return dateResolution(ref.AddDate(0, 0, 1), 0.8)
	}

	match := offsetPattern.FindStringSubmatch(lower)
	if match == nil {
		return nil
	}
	n, _ := strconv.Atoi(match[1])
	if match[3] == "ago" {
		n = -n
	}
	return dateResolution(addPeriod(ref, n, match[2], months), 0.8)
}

func resolveDaypart(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	for _, daypart := range daypartCodes {
		if strings.Contains(lower, daypart.keyword) {
			return &model.Resolution{Normalized: daypart.code, TimeType: model.TimeTypeTime, Confidence: 0.7}
		}
	}
	return nil
}

func resolveVague(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	if match := inNPattern.FindStringSubmatch(lower); match != nil {
		unit := strings.ToUpper(match[2][:1])
		return &model.Resolution{
			Normalized: fmt.Sprintf("REL-%s%s", match[1], unit),
			TimeType:   model.TimeTypeRelative,
			Confidence: 0.6,
		}
	}
	for _, vague := range vagueCodes {
		if strings.Contains(lower, vague.keyword) {
			return &model.Resolution{Normalized: vague.code, TimeType: model.TimeTypeRelative, Confidence: 0.6}
		}
	}
	return nil
}

func resolveNextLast(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	sign := 0
	if strings.Contains(lower, "next") {
		sign = 1
	} else if strings.Contains(lower, "last") {
		sign = -1
	}
	if sign == 0 {
		return nil
	}

	var date time.Time
	switch {
	case strings.Contains(lower, "week"):
		date = ref.AddDate(0, 0, sign*7)
	case strings.Contains(lower, "month"):
		date = addPeriod(ref, sign, "month", months)
	case strings.Contains(lower, "year"):
		if months == model.MonthsCalendar {
			date = ref.AddDate(sign, 0, 0)
		} else {
			date = ref.AddDate(0, 0, sign*365)
		}
	default:
		return nil
	}
	return dateResolution(date, 0.75)
}

func resolveMonthName(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	match := monthNamePattern.FindStringSubmatch(lower)
	if match == nil {
		return nil
	}
	month := monthsByName[match[1]]
	day, _ := strconv.Atoi(match[2])
	year := ref.Year()
	if match[3] != "" {
		year, _ = strconv.Atoi(match[3])
	}
	date, ok := validDate(year, month, day)
	if !ok {
		return nil
	}
	return dateResolution(date, 0.8)
}

// resolveKeyword keeps the original expression as the normalized value so
// keyword-class events still order lexically by their own text.
func resolveKeyword(raw, lower string, ref time.Time, months model.MonthArithmetic) *model.Resolution {
	for _, keyword := range temporalKeywords {
		if strings.Contains(lower, keyword) {
			return &model.Resolution{Normalized: raw, TimeType: model.TimeTypeRelative, Confidence: 0.4}
		}
	}
	return nil
}

func dateResolution(date time.Time, confidence float64) *model.Resolution {
	return &model.Resolution{
		Normalized: date.Format(dateLayout),
		TimeType:   model.TimeTypeDate,
		Confidence: confidence,
	}
}

// addPeriod applies a day, week or month offset. Month offsets use 30-day
// months in approximate mode and calendar arithmetic otherwise.
func addPeriod(ref time.Time, n int, unit string, months model.MonthArithmetic) time.Time {
	switch unit {
	case "day":
		return ref.AddDate(0, 0, n)
	case "week":
		return ref.AddDate(0, 0, n*7)
	case "month":
		if months == model.MonthsCalendar {
			return ref.AddDate(0, n, 0)
		}
		return ref.AddDate(0, 0, n*30)
	}
	return ref
}

// validDate reports whether the components form a real calendar date and
// returns it. Overflowing days (for example February 30) are rejected.
func validDate(year int, month time.Month, day int) (time.Time, bool) {
	if day < 1 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month || date.Year() != year {
		return time.Time{}, false
	}
	return date, true
}

// Resolve normalizes a single raw time expression against a reference date.
// The function is pure: equal inputs always produce equal resolutions.
// Expressions no rule recognizes keep their text and resolve to UNKNOWN
// with confidence 0.3.
func Resolve(raw string, ref time.Time, months model.MonthArithmetic) model.Resolution {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	for _, rule := range temporalRules {
		if resolution := rule.Resolve(trimmed, lower, ref, months); resolution != nil {
			resolution.Original = trimmed
			return *resolution
		}
	}

	return model.Resolution{
		Original:   trimmed,
		Normalized: trimmed,
		TimeType:   model.TimeTypeUnknown,
		Confidence: 0.3,
	}
}

// Normalizer resolves the raw time expressions of a batch of events.
// An optional external tagger takes precedence over the built-in rules and
// is guarded by a circuit breaker; on tagger failure the rules still apply.
type Normalizer struct {
	ref     time.Time
	months  model.MonthArithmetic
	tagger  TemporalTagFunc
	breaker *helper.Breaker
	logger  *slog.Logger
}

// NewNormalizer creates a normalizer anchored at the given reference date.
func NewNormalizer(ref time.Time, months model.MonthArithmetic, tagger TemporalTagFunc, logger *slog.Logger) *Normalizer {
	n := &Normalizer{
		ref:    ref,
		months: months,
		tagger: tagger,
		logger: logger,
	}
	if tagger != nil {
		n.breaker = helper.NewBreaker("temporal-tagger", logger)
	}
	return n
}

// CollectExpressions returns the distinct trimmed raw time expressions of
// the events, in first-occurrence order. Events without time information
// contribute nothing.
func CollectExpressions(events []*model.Event) []string {
	seen := make(map[string]bool)
	var expressions []string
	for _, event := range events {
		raw := strings.TrimSpace(event.RawTime())
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		expressions = append(expressions, raw)
	}
	return expressions
}

// ResolveAll resolves every distinct raw expression of the events exactly
// once and returns the memo keyed by trimmed raw string.
func (n *Normalizer) ResolveAll(ctx context.Context, events []*model.Event) map[string]model.Resolution {
	memo := make(map[string]model.Resolution)
	for _, raw := range CollectExpressions(events) {
		memo[raw] = n.resolveOne(ctx, raw)
	}
	return memo
}

func (n *Normalizer) resolveOne(ctx context.Context, raw string) model.Resolution {
	if n.tagger != nil {
		result, err := n.breaker.Execute(ctx, func() (interface{}, error) {
			return n.tagger(ctx, raw)
		})
		if err == nil {
			if resolution, ok := result.(*model.Resolution); ok && resolution != nil {
				return *resolution
			}
		} else if n.logger != nil {
			n.logger.Warn(
				"Temporal tagger failed, falling back to rules",
				slog.String("raw", raw),
				slog.String("error", err.Error()),
			)
		}
	}
	return Resolve(raw, n.ref, n.months)
}

// Apply writes the memoized resolutions back onto the events. Events
// without a raw time expression keep nil time fields.
func (n *Normalizer) Apply(events []*model.Event, resolutions map[string]model.Resolution) {
	for _, event := range events {
		raw := strings.TrimSpace(event.RawTime())
		if raw == "" {
			continue
		}
		if resolution, ok := resolutions[raw]; ok {
			event.ApplyResolution(resolution)
		}
	}
}
