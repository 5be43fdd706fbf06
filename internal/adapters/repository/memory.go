package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/metrics"
)

type ratingRecord struct {
	rating model.Rating
	seq    uint64
}

// MemoryStore is an in-process Store guarded by a single RWMutex. Every
// conditional write checks and mutates under the write lock.
type MemoryStore struct {
	mu       sync.RWMutex
	groups   []model.Group
	groupIdx map[string]int
	members  map[string][]model.Member
	memberOf map[string]string
	ratings  map[string]map[string]ratingRecord
	seq      uint64
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groupIdx: make(map[string]int),
		members:  make(map[string][]model.Member),
		memberOf: make(map[string]string),
		ratings:  make(map[string]map[string]ratingRecord),
	}
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// EnsureGroup creates the group if absent.
func (s *MemoryStore) EnsureGroup(_ context.Context, g model.Group) error {
	defer observe("ensure_group", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.groupIdx[g.ID]; ok {
		return nil
	}
	s.groupIdx[g.ID] = len(s.groups)
	s.groups = append(s.groups, g)
	return nil
}

// Group returns a single group.
func (s *MemoryStore) Group(_ context.Context, groupID string) (model.Group, error) {
	defer observe("group", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Group{}, ErrClosed
	}
	i, ok := s.groupIdx[groupID]
	if !ok {
		return model.Group{}, ErrNotFound
	}
	return s.groups[i], nil
}

// Groups returns all groups in creation order.
func (s *MemoryStore) Groups(_ context.Context) ([]model.Group, error) {
	defer observe("groups", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Group, len(s.groups))
	copy(out, s.groups)
	return out, nil
}

// MemberOf returns the user's current group.
func (s *MemoryStore) MemberOf(_ context.Context, userID string) (string, bool, error) {
	defer observe("member_of", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	groupID, ok := s.memberOf[userID]
	return groupID, ok, nil
}

// Members returns the group's members in join order.
func (s *MemoryStore) Members(_ context.Context, groupID string) ([]model.Member, error) {
	defer observe("members", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.groupIdx[groupID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Member, len(s.members[groupID]))
	copy(out, s.members[groupID])
	return out, nil
}

// PutMember adds a member unless the user already belongs to any group.
func (s *MemoryStore) PutMember(_ context.Context, groupID string, m model.Member) error {
	defer observe("put_member", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.groupIdx[groupID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.memberOf[m.UserID]; ok {
		return ErrConflict
	}
	s.memberOf[m.UserID] = groupID
	s.members[groupID] = append(s.members[groupID], m)
	return nil
}

// DeleteMember removes the user from the group.
func (s *MemoryStore) DeleteMember(_ context.Context, groupID, userID string) error {
	defer observe("delete_member", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if current, ok := s.memberOf[userID]; !ok || current != groupID {
		return ErrNotFound
	}
	delete(s.memberOf, userID)
	list := s.members[groupID]
	for i := range list {
		if list[i].UserID == userID {
			s.members[groupID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// Rating returns the rater's rating for the group.
func (s *MemoryStore) Rating(_ context.Context, groupID, raterID string) (model.Rating, error) {
	defer observe("rating", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Rating{}, ErrClosed
	}
	rec, ok := s.ratings[groupID][raterID]
	if !ok {
		return model.Rating{}, ErrNotFound
	}
	return rec.rating, nil
}

// Ratings returns the group's ratings, most recent first. Ratings created at
// the same instant are ordered by insertion, newest first.
func (s *MemoryStore) Ratings(_ context.Context, groupID string) ([]model.Rating, error) {
	defer observe("ratings", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.groupIdx[groupID]; !ok {
		return nil, ErrNotFound
	}
	recs := make([]ratingRecord, 0, len(s.ratings[groupID]))
	for _, rec := range s.ratings[groupID] {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].rating.CreatedAt, recs[j].rating.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]model.Rating, len(recs))
	for i, rec := range recs {
		out[i] = rec.rating
	}
	return out, nil
}

// PutRating stores a rating unless the rater already rated the group.
func (s *MemoryStore) PutRating(_ context.Context, r model.Rating) error {
	defer observe("put_rating", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.groupIdx[r.GroupID]; !ok {
		return ErrNotFound
	}
	byRater, ok := s.ratings[r.GroupID]
	if !ok {
		byRater = make(map[string]ratingRecord)
		s.ratings[r.GroupID] = byRater
	}
	if _, exists := byRater[r.RaterUserID]; exists {
		return ErrConflict
	}
	s.seq++
	byRater[r.RaterUserID] = ratingRecord{rating: r, seq: s.seq}
	return nil
}

// DeleteRating removes the rater's rating for the group.
func (s *MemoryStore) DeleteRating(_ context.Context, groupID, raterID string) error {
	defer observe("delete_rating", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.ratings[groupID][raterID]; !ok {
		return ErrNotFound
	}
	delete(s.ratings[groupID], raterID)
	return nil
}

// ClearRatings drops every rating.
func (s *MemoryStore) ClearRatings(_ context.Context) (int, error) {
	defer observe("clear_ratings", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, byRater := range s.ratings {
		n += len(byRater)
	}
	s.ratings = make(map[string]map[string]ratingRecord)
	return n, nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
