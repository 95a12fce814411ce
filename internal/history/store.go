package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/text2visuals/internal/identity"
	"github.com/roach88/text2visuals/internal/kv"
)

// Store is the per-user history log over a kv.Substrate.
//
// A Store serialises its own operations, so read-modify-write cycles from
// one Store never interleave. Separate Stores over the same substrate are
// not coordinated: concurrent saves can lose updates (last writer wins).
type Store struct {
	mu       sync.Mutex
	sub      kv.Substrate
	clock    Clock
	capacity int
	logger   *slog.Logger
	metrics  *Metrics
	notifier *Notifier
	ids      idMinter
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used for record ids and timestamps.
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		s.clock = c
	}
}

// WithCapacity sets the per-namespace record limit.
//
// Default: 50 (DefaultCapacity). Non-positive values keep the default.
func WithCapacity(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger for store diagnostics.
//
// Default: slog.Default(). A nil logger keeps the default.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records save, eviction, migration and failure counts on m.
// A nil m disables metrics.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithNotifier shares a notifier between stores.
func WithNotifier(n *Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// New creates a Store over sub.
func New(sub kv.Substrate, opts ...StoreOption) *Store {
	s := &Store{
		sub:      sub,
		clock:    SystemClock{},
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(s.logger)
	}
	return s
}

// Capacity returns the per-namespace record limit.
func (s *Store) Capacity() int { return s.capacity }

// Subscribe registers fn to run after every Save, Clear and DeleteOne.
// Listeners run synchronously before the mutating call returns.
func (s *Store) Subscribe(fn func()) *Subscription {
	return s.notifier.Subscribe(fn)
}

// Watch is the channel form of Subscribe; it unsubscribes when ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan struct{} {
	return s.notifier.Watch(ctx)
}

// Save appends a new record to the owner's log, evicting the oldest records
// beyond capacity, then merges any legacy log into the handle namespace.
// It returns false when the substrate failed; nothing is returned to retry.
func (s *Store) Save(ctx context.Context, owner identity.Owner, kind Kind, prompt, image string) (Record, bool) {
	rec, wrote, ok := s.save(ctx, owner, kind, prompt, image)
	if wrote {
		s.notifier.Notify()
	}
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

func (s *Store) save(ctx context.Context, owner identity.Owner, kind Kind, prompt, image string) (rec Record, wrote, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.Namespace()
	log, err := s.read(ctx, key)
	if err != nil {
		return Record{}, false, false
	}

	now := s.clock.Now()
	rec = Record{
		ID:          s.ids.next(now),
		Kind:        kind,
		Prompt:      prompt,
		Image:       image,
		CreatedAt:   now.UTC().Truncate(time.Millisecond),
		OwnerID:     owner.ID,
		OwnerHandle: owner.Handle,
	}

	log = append(log, rec)
	log = s.evict(log)

	if err := s.write(ctx, key, log); err != nil {
		return Record{}, false, false
	}
	s.metrics.saved()
	s.logger.Debug("history record saved",
		"namespace", key,
		"id", rec.ID,
		"kind", kind,
		"size", len(log))

	if owner.CanMigrate() {
		if err := s.migrate(ctx, owner, log); err != nil {
			return Record{}, true, false
		}
	}
	return rec, true, true
}

// migrate folds the legacy id-only log into the handle namespace and
// retires the legacy key. current is the log just written under the handle.
func (s *Store) migrate(ctx context.Context, owner identity.Owner, current []Record) error {
	legacyKey := owner.LegacyNamespace()
	legacy, err := s.read(ctx, legacyKey)
	if err != nil {
		return err
	}
	if len(legacy) == 0 {
		return nil
	}

	merged := make([]Record, 0, len(legacy)+len(current))
	merged = append(merged, legacy...)
	merged = append(merged, current...)
	merged = s.evict(dedupByID(merged))

	key := owner.Namespace()
	if err := s.write(ctx, key, merged); err != nil {
		return err
	}
	if err := s.remove(ctx, legacyKey); err != nil {
		return err
	}
	s.metrics.migrated()
	s.logger.Info("legacy history merged",
		"from", legacyKey,
		"to", key,
		"legacy", len(legacy),
		"size", len(merged))
	return nil
}

// Load returns the owner's log, oldest first. An empty handle log adopts a
// non-empty legacy log. Failures yield an empty log.
func (s *Store) Load(ctx context.Context, owner identity.Owner) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.Namespace()
	log, err := s.read(ctx, key)
	if err != nil {
		return []Record{}
	}
	if len(log) > 0 || !owner.CanMigrate() {
		return cloneLog(log)
	}

	legacyKey := owner.LegacyNamespace()
	raw, present, err := s.get(ctx, legacyKey)
	if err != nil {
		return []Record{}
	}
	legacy := s.decode(legacyKey, raw, present)
	if len(legacy) == 0 {
		return cloneLog(log)
	}

	if err := s.set(ctx, key, raw); err != nil {
		return []Record{}
	}
	if err := s.remove(ctx, legacyKey); err != nil {
		return []Record{}
	}
	s.metrics.migrated()
	s.logger.Info("legacy history adopted",
		"from", legacyKey,
		"to", key,
		"size", len(legacy))
	return cloneLog(legacy)
}

// Clear removes the owner's handle and legacy logs. Missing keys are not
// failures. Listeners are notified even when a removal fails.
func (s *Store) Clear(ctx context.Context, owner identity.Owner) bool {
	ok := s.clear(ctx, owner)
	s.notifier.Notify()
	return ok
}

func (s *Store) clear(ctx context.Context, owner identity.Owner) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := true
	key := owner.Namespace()
	if err := s.remove(ctx, key); err != nil {
		ok = false
	}
	if legacyKey := owner.LegacyNamespace(); legacyKey != "" && legacyKey != key {
		if err := s.remove(ctx, legacyKey); err != nil {
			ok = false
		}
	}
	return ok
}

// DeleteOne removes the record with itemID from the owner's log, keeping
// the order of the rest. A missing id changes nothing and reports success.
func (s *Store) DeleteOne(ctx context.Context, owner identity.Owner, itemID string) bool {
	changed, ok := s.deleteOne(ctx, owner, itemID)
	if changed {
		s.notifier.Notify()
	}
	return ok
}

func (s *Store) deleteOne(ctx context.Context, owner identity.Owner, itemID string) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := owner.Namespace()
	log, err := s.read(ctx, key)
	if err != nil {
		return false, false
	}

	kept := make([]Record, 0, len(log))
	for _, rec := range log {
		if rec.ID != itemID {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(log) {
		return false, true
	}

	if err := s.write(ctx, key, kept); err != nil {
		return false, false
	}
	s.logger.Debug("history record deleted", "namespace", key, "id", itemID)
	return true, true
}

func (s *Store) evict(log []Record) []Record {
	over := len(log) - s.capacity
	if over <= 0 {
		return log
	}
	s.metrics.evicted(over)
	return log[over:]
}

// dedupByID keeps the first occurrence of every id.
func dedupByID(log []Record) []Record {
	seen := make(map[string]bool, len(log))
	out := make([]Record, 0, len(log))
	for _, rec := range log {
		if seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out
}

func (s *Store) read(ctx context.Context, key string) ([]Record, error) {
	raw, present, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.decode(key, raw, present), nil
}

func (s *Store) decode(key, raw string, present bool) []Record {
	d := Decode(raw, present)
	switch {
	case d.State == Corrupted:
		s.metrics.corrupt()
		s.logger.Warn("corrupted history log, treating as empty",
			"namespace", key,
			"error", d.Err)
	case d.Skipped > 0:
		s.logger.Warn("skipped malformed history entries",
			"namespace", key,
			"skipped", d.Skipped)
	}
	return d.Log
}

func (s *Store) write(ctx context.Context, key string, log []Record) error {
	text, err := Encode(log)
	if err != nil {
		s.logger.Error("history encode failed", "namespace", key, "error", err)
		return err
	}
	return s.set(ctx, key, text)
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	raw, present, err := s.sub.Get(ctx, key)
	if err != nil {
		s.failed("get", key, err)
	}
	return raw, present, err
}

func (s *Store) set(ctx context.Context, key, value string) error {
	err := s.sub.Set(ctx, key, value)
	if err != nil {
		s.failed("set", key, err)
	}
	return err
}

func (s *Store) remove(ctx context.Context, key string) error {
	err := s.sub.Remove(ctx, key)
	if err != nil {
		s.failed("remove", key, err)
	}
	return err
}

func (s *Store) failed(op, key string, err error) {
	s.metrics.failed(op)
	s.logger.Error("history substrate failure",
		"op", op,
		"namespace", key,
		"driver", s.sub.Driver(),
		"error", err)
}
