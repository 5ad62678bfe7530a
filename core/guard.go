package core

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrSubmitTooSoon = errors.New("duplicate submission, please wait a moment")

// SubmitGuard enforces a minimum gap between submissions per key (actor ID).
// It is advisory protection against double-submits, not a substitute for
// idempotent writes.
type SubmitGuard struct {
	mu      sync.Mutex
	minGap  time.Duration
	last    map[string]time.Time
	nowFunc func() time.Time // mockable
}

func NewSubmitGuard(minGap time.Duration) *SubmitGuard {
	return &SubmitGuard{
		minGap:  minGap,
		last:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// Check records a submission for key and returns ErrSubmitTooSoon when the
// previous one was less than the minimum gap ago.
func (g *SubmitGuard) Check(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFunc()
	if prev, ok := g.last[key]; ok && now.Sub(prev) < g.minGap {
		return ErrSubmitTooSoon
	}
	g.last[key] = now
	return nil
}
