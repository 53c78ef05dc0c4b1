package database

import (
	"context"
	"fmt"
	"time"
)

// Pinger is a backing store that can report liveness.
type Pinger func(ctx context.Context) error

// Health reports the state of each named dependency.
type Health struct {
	checks map[string]Pinger
}

// NewHealth builds a checker over named pingers.
func NewHealth(checks map[string]Pinger) *Health {
	return &Health{checks: checks}
}

// Check pings every dependency with a short timeout. The map holds "ok" or
// the failure for each; err is non-nil when any dependency is down.
func (h *Health) Check(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	var failed error
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			status[name] = err.Error()
			failed = fmt.Errorf("%s: %w", name, err)
			continue
		}
		status[name] = "ok"
	}
	return status, failed
}
