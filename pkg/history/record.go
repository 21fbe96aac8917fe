package history

import (
	"sync"
	"time"
)

// KindQuarantine is the annotation kind of a quarantine Record.
const KindQuarantine Kind = "quarantine"

// Record is the quarantine annotation of one test case in one build.
// State changes are individually atomic; callers never see a half-applied toggle.
type Record struct {
	mu    sync.Mutex
	state RecordState
}

// RecordState is a point-in-time copy of a Record.
type RecordState struct {
	FullName      string
	Build         int
	Quarantined   bool
	QuarantinedBy string
	Reason        string
	Changed       time.Time // when Quarantined last flipped; zero if never
}

// NewRecord returns a released record for fullName in build.
func NewRecord(build int, fullName string) *Record {
	return &Record{state: RecordState{FullName: fullName, Build: build}}
}

// RestoreRecord rebuilds a record from persisted state.
func RestoreRecord(s RecordState) *Record {
	return &Record{state: s}
}

// Kind implements Annotation.
func (r *Record) Kind() Kind { return KindQuarantine }

// State returns a copy of the current state.
func (r *Record) State() RecordState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// FullName returns the test identity this record belongs to.
func (r *Record) FullName() string { return r.State().FullName }

// IsQuarantined reports the current flag.
func (r *Record) IsQuarantined() bool { return r.State().Quarantined }

// Quarantine flips a released record to quarantined. It returns false, and
// changes nothing, when the record is already quarantined.
func (r *Record) Quarantine(user, reason string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Quarantined {
		return false
	}
	r.state.Quarantined = true
	r.state.QuarantinedBy = user
	r.state.Reason = reason
	r.state.Changed = at
	return true
}

// Release flips a quarantined record back. It returns false when the record
// was not quarantined.
func (r *Record) Release(at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Quarantined {
		return false
	}
	r.state.Quarantined = false
	r.state.QuarantinedBy = ""
	r.state.Reason = ""
	r.state.Changed = at
	return true
}

// Inherit copies the quarantine state of a prior record into r, keeping r's
// own identity. Used while a new build is being archived.
func (r *Record) Inherit(prior RecordState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Quarantined = prior.Quarantined
	r.state.QuarantinedBy = prior.QuarantinedBy
	r.state.Reason = prior.Reason
	r.state.Changed = prior.Changed
}
