// Package conversation_memory keeps the bounded history of conversation turns
// and the longer emotion-only analytics log, persisted through a pluggable
// backend.
package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

const (
	// DefaultMemoryBound is how many turns general memory keeps.
	DefaultMemoryBound = 50
	// DefaultAnalyticsBound is how many entries the analytics log keeps.
	DefaultAnalyticsBound = 200

	memoryKey    = "memory"
	analyticsKey = "analytics"

	contextTurns = 3
)

// Config holds configuration for the store.
type Config struct {
	Backend        Backend
	Logger         logger.Logger
	MemoryBound    int
	AnalyticsBound int
	// Now is the clock used for timestamps; time.Now when nil.
	Now func() time.Time
}

// Store is the shared conversation memory. Every append is one exclusive
// write section, so readers see either all or none of a turn.
type Store struct {
	backend        Backend
	log            logger.Logger
	memoryBound    int
	analyticsBound int
	now            func() time.Time

	mu        sync.RWMutex
	memory    []Record
	analytics []AnalyticsEntry
}

// New creates a store with the given configuration. Call Load to read
// previously persisted state.
func New(cfg Config) *Store {
	if cfg.Backend == nil {
		panic("memory backend cannot be nil")
	}
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.MemoryBound <= 0 {
		cfg.MemoryBound = DefaultMemoryBound
	}
	if cfg.AnalyticsBound <= 0 {
		cfg.AnalyticsBound = DefaultAnalyticsBound
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		backend:        cfg.Backend,
		log:            cfg.Logger,
		memoryBound:    cfg.MemoryBound,
		analyticsBound: cfg.AnalyticsBound,
		now:            cfg.Now,
	}
}

// Load replaces the in-memory state with what the backend holds. On a read
// failure the store starts empty and the error is returned for logging.
func (s *Store) Load(ctx context.Context) error {
	memory, memErr := readCollection[Record](ctx, s.backend, memoryKey, s.memoryBound, s.log)
	analytics, anaErr := readCollection[AnalyticsEntry](ctx, s.backend, analyticsKey, s.analyticsBound, s.log)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory, s.analytics = memory, analytics

	var result error
	if memErr != nil {
		result = multierror.Append(result, memErr)
	}
	if anaErr != nil {
		result = multierror.Append(result, anaErr)
	}
	if result != nil {
		s.log.Error("Failed to load conversation memory, starting empty", logger.ErrorField(result))
		return result
	}

	s.log.Debug("Loaded conversation memory",
		logger.IntField("records", len(memory)),
		logger.IntField("analytics_entries", len(analytics)))
	return nil
}

func readCollection[T any](ctx context.Context, b Backend, key string, bound int, log logger.Logger) ([]T, error) {
	raw, err := b.Range(ctx, key, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s collection: %w", key, err)
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			log.Warn("Skipping undecodable memory entry",
				logger.StringField("collection", key),
				logger.ErrorField(err))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Append records a turn in both collections, trims each to its bound and
// persists the result. A persistence failure is logged and returned, but the
// turn stays in memory.
func (s *Store) Append(ctx context.Context, t Turn) (Record, error) {
	rec := newRecord(t, s.now())
	entry := rec.analyticsEntry()

	recData, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode record: %w", err)
	}
	entryData, err := json.Marshal(entry)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode analytics entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory = trim(append(s.memory, rec), s.memoryBound)
	s.analytics = trim(append(s.analytics, entry), s.analyticsBound)

	var result error
	if err := s.backend.Append(ctx, memoryKey, recData, s.memoryBound); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to persist record: %w", err))
	}
	if err := s.backend.Append(ctx, analyticsKey, entryData, s.analyticsBound); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to persist analytics entry: %w", err))
	}
	if result != nil {
		s.log.Error("Failed to persist conversation turn",
			logger.TurnIDField(rec.ID),
			logger.ErrorField(result))
		return rec.clone(), result
	}

	s.log.Debug("Stored conversation turn",
		logger.TurnIDField(rec.ID),
		logger.SessionIDField(rec.SessionID),
		logger.EmotionField(rec.Emotion))
	return rec.clone(), nil
}

// trim drops the oldest items so at most bound remain, without reordering.
func trim[T any](items []T, bound int) []T {
	if over := len(items) - bound; over > 0 {
		return append([]T(nil), items[over:]...)
	}
	return items
}

// Recent returns copies of the last n records, oldest first. A non-positive
// n returns every record.
func (s *Store) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := tail(s.memory, n)
	out := make([]Record, len(recent))
	for i, r := range recent {
		out[i] = r.clone()
	}
	return out
}

// RecentEmotions returns the emotion tags of the last n records, oldest
// first, skipping turns without one.
func (s *Store) RecentEmotions(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, r := range tail(s.memory, n) {
		if r.Emotion != "" {
			out = append(out, r.Emotion)
		}
	}
	return out
}

// Len returns the number of records in general memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memory)
}

func tail[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

// Context renders the last three turns for a reply generator. With
// withEmotions each user line is annotated with its emotion tag.
func (s *Store) Context(withEmotions bool) string {
	var b strings.Builder
	for _, r := range s.Recent(contextTurns) {
		b.WriteString("User: ")
		b.WriteString(r.UserText)
		if withEmotions && r.Emotion != "" {
			b.WriteString(" [")
			b.WriteString(r.Emotion)
			b.WriteString("]")
		}
		b.WriteString("\nBot: ")
		b.WriteString(r.BotReply)
		b.WriteString("\n")
	}
	return b.String()
}

// Snapshot is a point-in-time copy of both collections.
type Snapshot struct {
	SavedAt   time.Time        `json:"saved_at"`
	Memory    []Record         `json:"memory"`
	Analytics []AnalyticsEntry `json:"analytics"`
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SavedAt:   s.now(),
		Memory:    make([]Record, len(s.memory)),
		Analytics: append([]AnalyticsEntry{}, s.analytics...),
	}
	for i, r := range s.memory {
		snap.Memory[i] = r.clone()
	}
	return snap
}

// Restore replaces both collections with a snapshot, trimmed to the bounds.
// The backend is rewritten first and the in-memory state only changes once
// both collections are persisted. If the analytics write fails the memory
// collection is put back.
func (s *Store) Restore(ctx context.Context, snap Snapshot) error {
	memory := make([]Record, len(snap.Memory))
	for i, r := range snap.Memory {
		memory[i] = r.clone()
	}
	memory = trim(memory, s.memoryBound)
	analytics := trim(append([]AnalyticsEntry{}, snap.Analytics...), s.analyticsBound)

	memData, err := encodeAll(memory)
	if err != nil {
		return err
	}
	anaData, err := encodeAll(analytics)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Replace(ctx, memoryKey, memData); err != nil {
		return fmt.Errorf("failed to restore memory collection: %w", err)
	}
	if err := s.backend.Replace(ctx, analyticsKey, anaData); err != nil {
		if prev, encErr := encodeAll(s.memory); encErr == nil {
			if rbErr := s.backend.Replace(ctx, memoryKey, prev); rbErr != nil {
				s.log.Error("Failed to roll back memory collection after restore failure", logger.ErrorField(rbErr))
			}
		}
		return fmt.Errorf("failed to restore analytics collection: %w", err)
	}
	s.memory, s.analytics = memory, analytics

	s.log.Info("Restored conversation memory",
		logger.IntField("records", len(memory)),
		logger.IntField("analytics_entries", len(analytics)))
	return nil
}

func encodeAll[T any](items []T) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to encode memory entry: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
