// Package stats provides simple local usage statistics for the conversation
// server. This is a lightweight alternative to an external metrics stack.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/hrygo/aicall/server/timezone"
	"github.com/hrygo/aicall/store"
)

// Stats is a point-in-time snapshot of conversation activity.
type Stats struct {
	TotalSessions int
	SessionsToday int
	TotalTurns    int
	UserTurns     int
	TotalAudio    int
	CollectedAt   time.Time
}

// Collector computes usage statistics from the store. Snapshots are cached
// briefly so frequent polling stays cheap.
type Collector struct {
	store *store.Store
	loc   *time.Location

	mu       sync.Mutex
	cached   *Stats
	cacheTTL time.Duration
}

func NewCollector(st *store.Store, loc *time.Location) *Collector {
	return &Collector{
		store:    st,
		loc:      loc,
		cacheTTL: 30 * time.Second,
	}
}

// Collect returns current usage statistics, serving a recent snapshot when
// one is available.
func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.cached.CollectedAt) < c.cacheTTL {
		cached := *c.cached
		c.mu.Unlock()
		return &cached, nil
	}
	c.mu.Unlock()

	sessions, err := c.store.ListSessions(ctx, &store.FindSession{})
	if err != nil {
		return nil, err
	}
	turns, err := c.store.ListTurns(ctx, &store.FindTurn{})
	if err != nil {
		return nil, err
	}

	s := &Stats{
		TotalSessions: len(sessions),
		TotalTurns:    len(turns),
		CollectedAt:   time.Now(),
	}
	today := timezone.PartitionDate(s.CollectedAt, c.loc)
	for _, session := range sessions {
		if session.PartitionDate == today {
			s.SessionsToday++
		}
	}
	for _, turn := range turns {
		if turn.Role == store.RoleUser {
			s.UserTurns++
		}
		if turn.AudioRef != "" {
			s.TotalAudio++
		}
	}

	c.mu.Lock()
	c.cached = s
	c.mu.Unlock()
	snapshot := *s
	return &snapshot, nil
}
