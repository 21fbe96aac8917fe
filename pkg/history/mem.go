package history

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"
)

// Mem is an in-memory Store. The zero value is ready to use.
type Mem struct {
	mu     sync.RWMutex
	builds []*Build // ascending by Number

	// Now stamps quarantine toggles; nil means time.Now.
	Now func() time.Time
}

var _ Store = (*Mem)(nil)

// NewMem returns an empty in-memory history.
func NewMem() *Mem { return &Mem{} }

func (m *Mem) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Head implements History.
func (m *Mem) Head(_ context.Context) (*Build, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.builds) == 0 {
		return nil, nil
	}
	return m.builds[len(m.builds)-1], nil
}

// Get implements History.
func (m *Mem) Get(_ context.Context, n int) (*Build, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.index(n)
	if i < 0 {
		return nil, fmt.Errorf("build %d: %w", n, ErrNotFound)
	}
	return m.builds[i], nil
}

func (m *Mem) index(n int) int {
	i := sort.Search(len(m.builds), func(i int) bool { return m.builds[i].Number >= n })
	if i < len(m.builds) && m.builds[i].Number == n {
		return i
	}
	return -1
}

// Before implements History.
func (m *Mem) Before(ctx context.Context, n int) iter.Seq2[*Build, error] {
	return func(yield func(*Build, error) bool) {
		m.mu.RLock()
		i := sort.Search(len(m.builds), func(i int) bool { return m.builds[i].Number >= n })
		snapshot := m.builds[:i:i]
		m.mu.RUnlock()
		for j := len(snapshot) - 1; j >= 0; j-- {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(snapshot[j], nil) {
				return
			}
		}
	}
}

// After implements History.
func (m *Mem) After(ctx context.Context, n int) iter.Seq2[*Build, error] {
	return func(yield func(*Build, error) bool) {
		m.mu.RLock()
		i := sort.Search(len(m.builds), func(i int) bool { return m.builds[i].Number > n })
		snapshot := append([]*Build(nil), m.builds[i:]...)
		m.mu.RUnlock()
		for _, b := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// Append implements Appender. Build numbers must increase strictly.
func (m *Mem) Append(_ context.Context, b *Build) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.builds); n > 0 && b.Number <= m.builds[n-1].Number {
		return fmt.Errorf("append build %d: head is already %d", b.Number, m.builds[n-1].Number)
	}
	m.builds = append(m.builds, b)
	return nil
}

// Quarantine implements Annotator.
func (m *Mem) Quarantine(ctx context.Context, build int, fullName, user, reason string) (bool, error) {
	r, err := m.record(ctx, build, fullName)
	if err != nil {
		return false, err
	}
	return r.Quarantine(user, reason, m.now()), nil
}

// Release implements Annotator.
func (m *Mem) Release(ctx context.Context, build int, fullName string) (bool, error) {
	r, err := m.record(ctx, build, fullName)
	if err != nil {
		return false, err
	}
	return r.Release(m.now()), nil
}

func (m *Mem) record(ctx context.Context, build int, fullName string) (*Record, error) {
	b, err := m.Get(ctx, build)
	if err != nil {
		return nil, err
	}
	r, ok := b.Record(fullName)
	if !ok {
		return nil, fmt.Errorf("test %q in build %d: %w", fullName, build, ErrNotFound)
	}
	return r, nil
}
