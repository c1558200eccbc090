package model

// Severity classifies a flash message for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Flash is a one-shot notice carried in the session until the next page renders it.
type Flash struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
