package entity

// EventKind tags a ProgressEvent.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventFound    EventKind = "found"
	EventWarning  EventKind = "warning"
	EventError    EventKind = "error"
	EventComplete EventKind = "complete"
)

// ProgressEvent is one message on a calculation request's event stream.
// Exactly one EventComplete is emitted per request, always last, carrying
// the final snapshot.
type ProgressEvent struct {
	Kind     EventKind          `json:"-"`
	Message  string             `json:"message,omitempty"`
	Chain    string             `json:"chain,omitempty"`
	Token    string             `json:"token,omitempty"`
	Balance  float64            `json:"balance,omitempty"`
	Snapshot *PortfolioSnapshot `json:"-"`
}
