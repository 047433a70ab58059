package model

import "fmt"

// RoleKind identifies a semantic role slot on an event.
type RoleKind string

const (
	RoleAgent       RoleKind = "agent"
	RolePatient     RoleKind = "patient"
	RoleInstrument  RoleKind = "instrument"
	RoleBeneficiary RoleKind = "beneficiary"
	RoleLocation    RoleKind = "location"
	RoleTime        RoleKind = "time"
)

// Roles holds the semantic roles of an event. Agent/patient/location/time
// mirror the flat Actor/Target/Location/TimeRaw fields on Event; both views
// are kept consistent through SetRole.
type Roles struct {
	Agent       *string `json:"agent"`
	Patient     *string `json:"patient"`
	Instrument  *string `json:"instrument"`
	Beneficiary *string `json:"beneficiary"`
	Location    *string `json:"location"`
	Time        *string `json:"time"`
}

// Event is one event frame: a single verb predicate of a sentence with its
// semantic roles, timing and entity mentions. The parent sentence and
// chapter never change after creation.
type Event struct {
	EventID     string `json:"event_id"`
	ChapterID   string `json:"chapter_id"`
	SentenceID  string `json:"sentence_id"`
	Text        string `json:"text"`
	Predicate   string `json:"predicate"`
	Action      string `json:"action"`
	ActionLemma string `json:"action_lemma"`

	Actor    *string `json:"actor"`
	Target   *string `json:"target"`
	Location *string `json:"location"`
	TimeRaw  *string `json:"time_raw"`

	TimeNormalized *string  `json:"time_normalized"`
	TimeType       *TimeType `json:"time_type"`
	TimeConfidence *float64  `json:"time_confidence,omitempty"`

	Entities []EntitySpan   `json:"entities"`
	Roles    Roles          `json:"roles"`
	Time     TimeAnnotation `json:"time"`
}

// EventIDFor formats the id for the n-th event of a run (n starts at 1).
func EventIDFor(n int) string {
	return fmt.Sprintf("event_%d", n)
}

// NewEvent creates an event frame for a predicate token of a sentence.
// All roles start empty; entities are pre-populated from the sentence's
// named-entity spans.
func NewEvent(id string, sentence *Sentence, predicate Token) *Event {
	entities := make([]EntitySpan, len(sentence.Entities))
	copy(entities, sentence.Entities)

	lemma := predicate.Lemma
	if lemma == "" {
		lemma = predicate.Text
	}

	return &Event{
		EventID:     id,
		ChapterID:   sentence.ChapterID,
		SentenceID:  sentence.SentenceID,
		Text:        sentence.Text,
		Predicate:   predicate.Text,
		Action:      predicate.Text,
		ActionLemma: lemma,
		Entities:    entities,
	}
}

// SetRole fills a role slot if it is still empty and returns whether the
// value was written. A role, once set, is never overwritten; repeated
// passes over an event are therefore idempotent. The flat fields and the
// roles/time sub-objects are updated together.
func (e *Event) SetRole(kind RoleKind, value string) bool {
	slot := e.roleSlot(kind)
	if slot == nil || *slot != nil {
		return false
	}
	v := value
	*slot = &v

	switch kind {
	case RoleAgent:
		e.Actor = &v
	case RolePatient:
		e.Target = &v
	case RoleLocation:
		e.Location = &v
	case RoleTime:
		e.TimeRaw = &v
		e.Time.Raw = &v
	}
	return true
}

// Role returns the current value of a role slot, or nil if unset.
func (e *Event) Role(kind RoleKind) *string {
	slot := e.roleSlot(kind)
	if slot == nil {
		return nil
	}
	return *slot
}

func (e *Event) roleSlot(kind RoleKind) **string {
	switch kind {
	case RoleAgent:
		return &e.Roles.Agent
	case RolePatient:
		return &e.Roles.Patient
	case RoleInstrument:
		return &e.Roles.Instrument
	case RoleBeneficiary:
		return &e.Roles.Beneficiary
	case RoleLocation:
		return &e.Roles.Location
	case RoleTime:
		return &e.Roles.Time
	default:
		return nil
	}
}

// RawTime returns the raw time expression of the event, checking the time
// object first, then the time role, then any DATE/TIME entity mention.
// Returns the empty string when the event carries no time information.
func (e *Event) RawTime() string {
	if e.Time.Raw != nil && *e.Time.Raw != "" {
		return *e.Time.Raw
	}
	if e.TimeRaw != nil && *e.TimeRaw != "" {
		return *e.TimeRaw
	}
	if e.Roles.Time != nil && *e.Roles.Time != "" {
		return *e.Roles.Time
	}
	for _, ent := range e.Entities {
		if ent.Label == "DATE" || ent.Label == "TIME" {
			return ent.Text
		}
	}
	return ""
}

// ApplyResolution writes a normalized time resolution into the event,
// keeping the embedded time object and the flat legacy fields consistent.
func (e *Event) ApplyResolution(r Resolution) {
	raw := r.Original
	normalized := r.Normalized
	timeType := r.TimeType
	confidence := r.Confidence

	e.Time.Raw = &raw
	e.Time.Normalized = &normalized
	e.Time.Type = &timeType

	e.TimeRaw = &raw
	e.TimeNormalized = &normalized
	e.TimeType = &timeType
	e.TimeConfidence = &confidence

	if e.Roles.Time == nil {
		e.Roles.Time = &raw
	}
}

// NormalizedTime returns the normalized time string, or "" if absent.
func (e *Event) NormalizedTime() string {
	if e.Time.Normalized != nil {
		return *e.Time.Normalized
	}
	if e.TimeNormalized != nil {
		return *e.TimeNormalized
	}
	return ""
}

// HasEntity reports whether the event already carries an entity mention
// with the given surface text.
func (e *Event) HasEntity(text string) bool {
	for _, ent := range e.Entities {
		if ent.Text == text {
			return true
		}
	}
	return false
}

// MergeEntity appends an entity mention unless its surface text is already
// present. Returns whether the entity was added.
func (e *Event) MergeEntity(span EntitySpan) bool {
	if span.Text == "" || e.HasEntity(span.Text) {
		return false
	}
	e.Entities = append(e.Entities, span)
	return true
}
