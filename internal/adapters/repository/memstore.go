package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

const defaultShardCount = 16

// MemStore is a sharded in-memory Store. Shards are keyed by user id so
// writes to different users never contend on the same lock.
type MemStore struct {
	shards []*shard
}

type shard struct {
	mu sync.RWMutex
	// rows holds each user's measurements ordered by RecordedAt.
	rows map[uuid.UUID][]model.Measurement
	// ids maps measurement id to owning user for uniqueness and lookup.
	ids map[uuid.UUID]uuid.UUID
}

// NewMemStore creates a MemStore with configuration options.
func NewMemStore(opts ...Option) *MemStore {
	cfg := options{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &MemStore{shards: make([]*shard, cfg.shardCount)}
	for i := range s.shards {
		s.shards[i] = &shard{
			rows: make(map[uuid.UUID][]model.Measurement),
			ids:  make(map[uuid.UUID]uuid.UUID),
		}
	}
	return s
}

func (s *MemStore) shardFor(userID uuid.UUID) *shard {
	h := fnv.New32a()
	h.Write(userID[:])
	return s.shards[int(h.Sum32())%len(s.shards)]
}

// Append persists a measurement, keeping the user's rows ordered by
// RecordedAt. Reused ids fail with ErrDuplicateID.
func (s *MemStore) Append(_ context.Context, m model.Measurement) error {
	sh := s.shardFor(m.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.ids[m.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
	}

	rows := sh.rows[m.UserID]
	at := sort.Search(len(rows), func(i int) bool {
		return rows[i].RecordedAt.After(m.RecordedAt)
	})
	rows = append(rows, model.Measurement{})
	copy(rows[at+1:], rows[at:])
	rows[at] = m

	sh.rows[m.UserID] = rows
	sh.ids[m.ID] = m.UserID
	return nil
}

// ByID returns a user's measurement by id.
func (s *MemStore) ByID(_ context.Context, userID, id uuid.UUID) (model.Measurement, error) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	for _, m := range sh.rows[userID] {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Measurement{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// QueryRange returns the user's rows for one modality in [from, to),
// ascending by RecordedAt. The returned slice is a copy.
func (s *MemStore) QueryRange(_ context.Context, userID uuid.UUID, modality model.Modality, from, to time.Time) ([]model.Measurement, error) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	var out []model.Measurement
	for _, m := range sh.rows[userID] {
		if m.RecordedAt.Before(from) || m.Modality != modality {
			continue
		}
		if !m.RecordedAt.Before(to) {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

// MarkAnomaly flips the anomaly flag on a stored row in place.
func (s *MemStore) MarkAnomaly(_ context.Context, userID, id uuid.UUID, anomaly bool) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rows := sh.rows[userID]
	for i := range rows {
		if rows[i].ID == id {
			rows[i].IsAnomaly = anomaly
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes a single measurement.
func (s *MemStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rows := sh.rows[userID]
	for i := range rows {
		if rows[i].ID == id {
			sh.rows[userID] = append(rows[:i], rows[i+1:]...)
			delete(sh.ids, id)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// DeleteUser removes every row the user owns.
func (s *MemStore) DeleteUser(_ context.Context, userID uuid.UUID) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for _, m := range sh.rows[userID] {
		delete(sh.ids, m.ID)
	}
	delete(sh.rows, userID)
	return nil
}

// Count returns the total number of stored measurements.
func (s *MemStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.ids)
		sh.mu.RUnlock()
	}
	return total
}
