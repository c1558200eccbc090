package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	SignupsSucceeded uint64
	SignupsFailed    uint64
	LoginsSucceeded  uint64
	LoginsFailed     uint64
	Logouts          uint64
	LoginsRequired   uint64
	StudentsCreated  uint64
	StudentsUpdated  uint64
	StudentsDeleted  uint64
	StudentSearches  uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	signupsSucceeded atomic.Uint64
	signupsFailed    atomic.Uint64
	loginsSucceeded  atomic.Uint64
	loginsFailed     atomic.Uint64
	logouts          atomic.Uint64
	loginsRequired   atomic.Uint64
	studentsCreated  atomic.Uint64
	studentsUpdated  atomic.Uint64
	studentsDeleted  atomic.Uint64
	studentSearches  atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		SignupsSucceeded: m.signupsSucceeded.Load(),
		SignupsFailed:    m.signupsFailed.Load(),
		LoginsSucceeded:  m.loginsSucceeded.Load(),
		LoginsFailed:     m.loginsFailed.Load(),
		Logouts:          m.logouts.Load(),
		LoginsRequired:   m.loginsRequired.Load(),
		StudentsCreated:  m.studentsCreated.Load(),
		StudentsUpdated:  m.studentsUpdated.Load(),
		StudentsDeleted:  m.studentsDeleted.Load(),
		StudentSearches:  m.studentSearches.Load(),
	}
}

// IncSignup counts a signup attempt by outcome.
func (m *InMemoryRecorder) IncSignup(outcome string) {
	if outcome == OutcomeSuccess {
		m.signupsSucceeded.Add(1)
		return
	}
	m.signupsFailed.Add(1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	if outcome == OutcomeSuccess {
		m.loginsSucceeded.Add(1)
		return
	}
	m.loginsFailed.Add(1)
}

// IncLogout increments the logout counter.
func (m *InMemoryRecorder) IncLogout() {
	m.logouts.Add(1)
}

// IncLoginRequired counts requests bounced to the login page.
func (m *InMemoryRecorder) IncLoginRequired() {
	m.loginsRequired.Add(1)
}

// IncStudentCreated increments student created counter.
func (m *InMemoryRecorder) IncStudentCreated() {
	m.studentsCreated.Add(1)
}

// IncStudentUpdated increments student updated counter.
func (m *InMemoryRecorder) IncStudentUpdated() {
	m.studentsUpdated.Add(1)
}

// IncStudentDeleted increments student deleted counter.
func (m *InMemoryRecorder) IncStudentDeleted() {
	m.studentsDeleted.Add(1)
}

// IncStudentSearch counts list requests carrying a search query.
func (m *InMemoryRecorder) IncStudentSearch() {
	m.studentSearches.Add(1)
}
