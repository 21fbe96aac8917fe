package history

import "sync"

// Kind tags an annotation type in a case's registry.
type Kind string

// Annotation is mutable metadata attached to an otherwise immutable test case.
type Annotation interface {
	Kind() Kind
}

// Annotations is a per-case registry holding at most one annotation per Kind.
type Annotations struct {
	mu sync.RWMutex
	m  map[Kind]Annotation
}

// Attach stores a, replacing any annotation of the same kind.
func (a *Annotations) Attach(x Annotation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.m == nil {
		a.m = make(map[Kind]Annotation)
	}
	a.m[x.Kind()] = x
}

// Get returns the annotation of kind k.
func (a *Annotations) Get(k Kind) (Annotation, bool) {
	if a == nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	x, ok := a.m[k]
	return x, ok
}

// Lookup returns the annotation of kind k as its concrete type.
func Lookup[T Annotation](a *Annotations, k Kind) (T, bool) {
	var zero T
	x, ok := a.Get(k)
	if !ok {
		return zero, false
	}
	t, ok := x.(T)
	return t, ok
}
