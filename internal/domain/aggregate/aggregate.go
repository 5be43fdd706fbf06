// Package aggregate derives per-group statistics from rating records.
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/metrics"
)

// Recompute derives GroupStats from ratings. It is deterministic and
// returns all-zero stats for an empty slice.
func Recompute(ratings []model.Rating) model.GroupStats {
	if len(ratings) == 0 {
		return model.GroupStats{}
	}
	var sum model.Scores
	for _, r := range ratings {
		sum.Communication += r.Scores.Communication
		sum.Presentation += r.Scores.Presentation
		sum.Content += r.Scores.Content
		sum.HelpfulForCompany += r.Scores.HelpfulForCompany
		sum.HelpfulForInterns += r.Scores.HelpfulForInterns
		sum.Participation += r.Scores.Participation
	}
	n := float64(len(ratings))
	st := model.GroupStats{
		RatingCount:          len(ratings),
		AvgCommunication:     float64(sum.Communication) / n,
		AvgPresentation:      float64(sum.Presentation) / n,
		AvgContent:           float64(sum.Content) / n,
		AvgHelpfulForCompany: float64(sum.HelpfulForCompany) / n,
		AvgHelpfulForInterns: float64(sum.HelpfulForInterns) / n,
		AvgParticipation:     float64(sum.Participation) / n,
	}
	st.TotalRating = st.AvgCommunication + st.AvgPresentation + st.AvgContent +
		st.AvgHelpfulForCompany + st.AvgHelpfulForInterns + st.AvgParticipation
	return st
}

// Loader fetches the current ratings of a group.
type Loader func(ctx context.Context, groupID string) ([]model.Rating, error)

type entry struct {
	stats model.GroupStats
	gen   uint64
}

// Cache memoises Recompute per group. Entries are dropped by Invalidate
// and InvalidateAll; a recompute that raced an invalidation is returned to
// its callers but never stored.
type Cache struct {
	load Loader

	mu      sync.RWMutex
	entries map[string]entry
	gens    map[string]uint64
	epoch   uint64

	// sf collapses concurrent recomputes of the same group generation.
	sf singleflight.Group
}

// NewCache returns an empty cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{
		load:    load,
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

// generation must be called with mu held.
func (c *Cache) generation(groupID string) uint64 {
	return c.epoch + c.gens[groupID]
}

// Stats returns the group's statistics, recomputing on a miss.
func (c *Cache) Stats(ctx context.Context, groupID string) (model.GroupStats, error) {
	c.mu.RLock()
	gen := c.generation(groupID)
	e, ok := c.entries[groupID]
	c.mu.RUnlock()
	if ok && e.gen == gen {
		metrics.RecordStatsCacheHit()
		return e.stats, nil
	}
	metrics.RecordStatsCacheMiss()

	key := fmt.Sprintf("%s#%d", groupID, gen)
	// The shared load must outlive any single caller; each caller still
	// stops waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (any, error) {
		start := time.Now()
		ratings, err := c.load(loadCtx, groupID)
		if err != nil {
			return nil, err
		}
		stats := Recompute(ratings)
		metrics.RecordRecomputeLatency(float64(time.Since(start).Microseconds()) / 1000)

		c.mu.Lock()
		if c.generation(groupID) == gen {
			c.entries[groupID] = entry{stats: stats, gen: gen}
		}
		c.mu.Unlock()
		return stats, nil
	})
	select {
	case <-ctx.Done():
		return model.GroupStats{}, fmt.Errorf("recompute %s: %w", groupID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return model.GroupStats{}, fmt.Errorf("recompute %s: %w", groupID, res.Err)
		}
		return res.Val.(model.GroupStats), nil
	}
}

// Invalidate drops the cached statistics of one group.
func (c *Cache) Invalidate(groupID string) {
	c.mu.Lock()
	c.gens[groupID]++
	delete(c.entries, groupID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
