package pipeline

import "fmt"

// ResultKey is the stash key holding a pipeline's final value.
const ResultKey = "result"

// Stash is the request-scoped state threaded through the steps of one
// pipeline run. It is not safe for concurrent use and must never outlive
// the run.
type Stash struct {
	values map[string]any
}

// NewStash creates an empty stash.
func NewStash() *Stash {
	return &Stash{values: make(map[string]any)}
}

// Set stores v under key and returns the stash for chaining.
func (s *Stash) Set(key string, v any) *Stash {
	s.values[key] = v
	return s
}

// Has reports whether key was set. A key set to nil is present.
func (s *Stash) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Delete removes key.
func (s *Stash) Delete(key string) {
	delete(s.values, key)
}

// Get returns the value under key if present and of type T.
func Get[T any](s *Stash, key string) (T, bool) {
	v, ok := s.values[key].(T)
	return v, ok
}

// Must returns the value under key. Steps call it for keys they declared in
// Reads, which the pipeline has already checked, so a miss is a programming
// error.
func Must[T any](s *Stash, key string) T {
	v, ok := s.values[key].(T)
	if !ok {
		panic(fmt.Sprintf("pipeline: stash key %q holds %T, not %T", key, s.values[key], v))
	}
	return v
}
