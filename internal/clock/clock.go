// Package clock normalizes instants to the auction's single reference civil
// time. All window math in the engine goes through a Clock so schedule
// derivation is deterministic under test and every caller agrees on "now".
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current instant in the league's reference civil time.
type Clock interface {
	Now() time.Time
	// In converts an arbitrary instant to the reference civil time.
	In(t time.Time) time.Time
}

// League is the production Clock, pinned to one fixed civil calendar
// regardless of where the engine runs.
type League struct {
	loc *time.Location
}

// NewLeague loads the reference timezone by IANA name. The reference
// deployment uses "America/Chicago".
func NewLeague(tz string) (*League, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("clock: load location %q: %w", tz, err)
	}
	return &League{loc: loc}, nil
}

func (l *League) Now() time.Time { return time.Now().In(l.loc) }

func (l *League) In(t time.Time) time.Time { return t.In(l.loc) }

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock frozen at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) In(t time.Time) time.Time { return t }

// Set moves the fake clock to the given instant.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
