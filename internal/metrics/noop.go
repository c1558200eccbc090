package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncSignup is a no-op.
func (n *NoopRecorder) IncSignup(outcome string) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncLogout is a no-op.
func (n *NoopRecorder) IncLogout() {}

// IncLoginRequired is a no-op.
func (n *NoopRecorder) IncLoginRequired() {}

// IncStudentCreated is a no-op.
func (n *NoopRecorder) IncStudentCreated() {}

// IncStudentUpdated is a no-op.
func (n *NoopRecorder) IncStudentUpdated() {}

// IncStudentDeleted is a no-op.
func (n *NoopRecorder) IncStudentDeleted() {}

// IncStudentSearch is a no-op.
func (n *NoopRecorder) IncStudentSearch() {}
