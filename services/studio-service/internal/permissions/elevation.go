package permissions

import (
	"sync"
	"time"
)

const DefaultElevation = 5 * time.Minute

// Elevations tracks which users entered the master code and until when.
// State is per process and lost on restart.
type Elevations struct {
	mu    sync.Mutex
	until map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

type ElevationOption func(*Elevations)

func WithClock(now func() time.Time) ElevationOption {
	return func(e *Elevations) { e.now = now }
}

// WithDefaultDuration changes the window used when Elevate is called without minutes.
func WithDefaultDuration(d time.Duration) ElevationOption {
	return func(e *Elevations) {
		if d > 0 {
			e.ttl = d
		}
	}
}

func NewElevations(opts ...ElevationOption) *Elevations {
	e := &Elevations{until: map[string]time.Time{}, ttl: DefaultElevation, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Elevate grants userID elevated rights for minutes; minutes <= 0 uses the default window.
// It returns the expiry.
func (e *Elevations) Elevate(userID string, minutes int) time.Time {
	d := e.ttl
	if minutes > 0 {
		d = time.Duration(minutes) * time.Minute
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	exp := e.now().Add(d)
	e.until[userID] = exp
	return exp
}

func (e *Elevations) IsElevated(userID string) bool {
	_, ok := e.ExpiresAt(userID)
	return ok
}

// ExpiresAt returns the expiry of an active elevation. Expired entries are dropped.
func (e *Elevations) ExpiresAt(userID string) (time.Time, bool) {
	if userID == "" {
		return time.Time{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.until[userID]
	if !ok {
		return time.Time{}, false
	}
	if !e.now().Before(exp) {
		delete(e.until, userID)
		return time.Time{}, false
	}
	return exp, true
}

func (e *Elevations) Clear(userID string) {
	e.mu.Lock()
	delete(e.until, userID)
	e.mu.Unlock()
}

func (e *Elevations) Reset() {
	e.mu.Lock()
	e.until = map[string]time.Time{}
	e.mu.Unlock()
}
