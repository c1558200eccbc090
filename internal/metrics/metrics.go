// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Outcome labels for auth events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Auth metrics
	IncSignup(outcome string)
	IncLogin(outcome string)
	IncLogout()
	IncLoginRequired()

	// Student management metrics
	IncStudentCreated()
	IncStudentUpdated()
	IncStudentDeleted()
	IncStudentSearch()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
