package config

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSingletonChanged is returned when options that were fixed at
// initialization are later supplied with a different value.
var ErrSingletonChanged = errors.New("singleton option changed")

// Singleton holds the options the type-mapping registry was built from.
// The registry is built once, so later callers must agree with the first.
type Singleton struct {
	mu      sync.Mutex
	options Options
	set     bool
}

// Record stores o on first use. A later call with options that differ in
// a registry-shaping setting fails with ErrSingletonChanged.
func (s *Singleton) Record(o Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		s.options, s.set = o, true
		return nil
	}
	if diff := singletonDiff(s.options, o); diff != "" {
		return fmt.Errorf("%w: %s", ErrSingletonChanged, diff)
	}
	return nil
}

// Options returns the recorded options.
func (s *Singleton) Options() (Options, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options, s.set
}

// singletonDiff names the first registry-shaping setting that differs.
func singletonDiff(a, b Options) string {
	switch {
	case a.postgresVersion != b.postgresVersion:
		return fmt.Sprintf("PostgreSQL version %s -> %s", a.PostgresVersion(), b.PostgresVersion())
	case a.redshift != b.redshift:
		return "redshift"
	case a.reverseNullOrdering != b.reverseNullOrdering:
		return "reverse null ordering"
	case len(a.userRanges) != len(b.userRanges):
		return "user range definitions"
	}
	for i := range a.userRanges {
		if a.userRanges[i] != b.userRanges[i] {
			return "user range " + a.userRanges[i].StoreType()
		}
	}
	return ""
}
