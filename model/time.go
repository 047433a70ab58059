package model

// TimeType classifies a normalized time expression.
type TimeType string

const (
	TimeTypeDate     TimeType = "DATE"
	TimeTypeTime     TimeType = "TIME"
	TimeTypeRelative TimeType = "RELATIVE"
	TimeTypeUnknown  TimeType = "UNKNOWN"
)

// Resolution is the outcome of normalizing a single raw time expression.
// Two events sharing an identical raw expression within a run always
// receive the same Resolution.
type Resolution struct {
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	TimeType   TimeType `json:"time_type"`
	Confidence float64  `json:"confidence"`
}

// TimeAnnotation is the time object embedded in an event. All fields are
// nil for events without any time information.
type TimeAnnotation struct {
	Raw        *string   `json:"raw"`
	Normalized *string   `json:"normalized"`
	Type       *TimeType `json:"type"`
}
