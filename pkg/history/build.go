package history

import (
	"sync"
	"time"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

// Build is one sealed snapshot: the immutable test run and its verdict, plus
// the mutable annotations of each case.
type Build struct {
	Number  int
	Started time.Time
	Run     *testrun.Run
	Verdict Verdict

	// mu is the build-scoped lock: held exclusively while the build is being
	// archived, shared while annotations are looked up.
	mu          sync.RWMutex
	annotations map[string]*Annotations
}

// NewBuild creates an unsealed build for run.
func NewBuild(number int, started time.Time, run *testrun.Run) *Build {
	if run == nil {
		run = testrun.New(nil)
	}
	return &Build{
		Number:      number,
		Started:     started,
		Run:         run,
		annotations: make(map[string]*Annotations),
	}
}

// Lock acquires the build's exclusive archiving lock.
func (b *Build) Lock() { b.mu.Lock() }

// Unlock releases the archiving lock.
func (b *Build) Unlock() { b.mu.Unlock() }

// Annotations returns the registry for fullName, or nil when the build has
// no such case.
func (b *Build) Annotations(fullName string) *Annotations {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.annotations[fullName]
}

// Attach adds an annotation to fullName's registry. Callers archiving the
// build already hold the exclusive lock, so Attach does not take it.
func (b *Build) Attach(fullName string, a Annotation) {
	reg, ok := b.annotations[fullName]
	if !ok {
		reg = &Annotations{}
		b.annotations[fullName] = reg
	}
	reg.Attach(a)
}

// Record returns the quarantine record of fullName in this build.
func (b *Build) Record(fullName string) (*Record, bool) {
	return Lookup[*Record](b.Annotations(fullName), KindQuarantine)
}

// Records returns the quarantine records of every case, in run order.
func (b *Build) Records() []*Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.RecordsLocked()
}

// RecordsLocked is Records for callers already holding the build lock.
// Appender implementations receive the build that way.
func (b *Build) RecordsLocked() []*Record {
	var out []*Record
	for _, c := range b.Run.Cases() {
		if r, ok := Lookup[*Record](b.annotations[c.FullName], KindQuarantine); ok {
			out = append(out, r)
		}
	}
	return out
}

// Outcome returns the outcome of fullName in this build.
func (b *Build) Outcome(fullName string) (testrun.Outcome, bool) {
	c, ok := b.Run.Case(fullName)
	return c.Outcome, ok
}
