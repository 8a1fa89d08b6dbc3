package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"payshield/internal/auth"
	"payshield/internal/logger"
)

// UserKey is the well-known key the identity record is stored under.
const UserKey = "payshield_user"

const mirrorTimeout = 5 * time.Second

// Store is the tab-scoped cache of the merged identity record.
// Reads are served from memory; every mutation is mirrored to Storage
// so a reloaded tab can pick the record up again.
//
// Only the identity bridge and the cross-tab relay's inbound path are
// expected to mutate a Store.
type Store struct {
	scope   string
	storage Storage

	wmu    sync.Mutex // orders memory updates with their storage mirror
	mu     sync.RWMutex
	record *auth.Record

	hmu      sync.Mutex
	handlers map[uint64]func(*auth.Record)
	nextID   uint64
}

// NewStore creates the store for one tab and loads any record the
// storage still holds for that scope. An unreadable persisted record is
// dropped rather than trusted.
func NewStore(ctx context.Context, scope string, storage Storage) (*Store, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	s := &Store{
		scope:    scope,
		storage:  storage,
		handlers: make(map[uint64]func(*auth.Record)),
	}

	data, err := storage.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var rec auth.Record
		if err := json.Unmarshal(data, &rec); err != nil || rec.Validate() != nil {
			logger.Warn("discarding unreadable session record", map[string]any{
				"scope": scope,
			})
			_ = storage.Delete(ctx, scope)
		} else {
			s.record = &rec
		}
	}

	return s, nil
}

// Scope returns the tab scope this store belongs to.
func (s *Store) Scope() string {
	return s.scope
}

// Read returns a copy of the current record, or false when the tab is
// not authenticated. It never performs I/O.
func (s *Store) Read() (*auth.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, false
	}
	return s.record.Clone(), true
}

// Write replaces the stored record wholesale.
func (s *Store) Write(ctx context.Context, rec *auth.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.set(ctx, rec.Clone())
	return nil
}

// Clear removes the record; Read reports absent afterwards.
func (s *Store) Clear(ctx context.Context) {
	s.set(ctx, nil)
}

// ApplyExternal folds a change made by a sibling tab into this store and
// notifies OnExternalChange handlers. A nil record clears the store.
func (s *Store) ApplyExternal(ctx context.Context, rec *auth.Record) error {
	if rec != nil {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	s.set(ctx, rec.Clone())

	s.hmu.Lock()
	handlers := make([]func(*auth.Record), 0, len(s.handlers))
	for id := uint64(0); id < s.nextID; id++ {
		if h, ok := s.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	s.hmu.Unlock()

	for _, h := range handlers {
		h(rec.Clone())
	}
	return nil
}

// OnExternalChange registers fn for changes applied through ApplyExternal.
// Local writes do not trigger it.
func (s *Store) OnExternalChange(fn func(*auth.Record)) (unsubscribe func()) {
	s.hmu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	s.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.hmu.Lock()
			delete(s.handlers, id)
			s.hmu.Unlock()
		})
	}
}

// Close drops all handlers. The persisted record is left in place so the
// tab can be restored.
func (s *Store) Close() {
	s.hmu.Lock()
	s.handlers = make(map[uint64]func(*auth.Record))
	s.hmu.Unlock()
}

func (s *Store) set(ctx context.Context, rec *auth.Record) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.record = rec
	s.mu.Unlock()

	// memory has already changed, so the mirror must follow it even when
	// the caller's context is done
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()

	if err := s.persist(mctx, rec); err != nil {
		logger.Error("session storage mirror failed", map[string]any{
			"scope": s.scope,
			"error": err.Error(),
		})
	}
}

func (s *Store) persist(ctx context.Context, rec *auth.Record) error {
	if rec == nil {
		return s.storage.Delete(ctx, s.scope)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, s.scope, data)
}
