// Package storage is the persistence helper behind the session store: typed
// JSON reads and writes over named slots in the local database.
//
// A Slots value without a database (see Detached) behaves like a process with
// no persistent storage at all: every read is absent and every write is a
// no-op. Reads never trust stored bytes: a slot that does not decode, or whose
// value fails its own Validate method, is deleted and reported as absent.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/storeadmin/internal/client/repositories/slots"
	"github.com/dmitrijs2005/storeadmin/internal/dbx"
	"github.com/dmitrijs2005/storeadmin/internal/logging"
)

type Slots struct {
	db   *sql.DB
	repo slots.Repository
	log  logging.Logger
}

// New binds slots to db. A nil db yields a detached store.
func New(db *sql.DB, log logging.Logger) *Slots {
	s := &Slots{db: db, log: log}
	if db != nil {
		s.repo = slots.NewSQLiteRepository(db)
	}
	return s
}

// Detached returns a store with no backing database.
func Detached(log logging.Logger) *Slots {
	return &Slots{log: log}
}

// Available reports whether the store is backed by a database.
func (s *Slots) Available() bool {
	return s != nil && s.repo != nil
}

// validator is implemented by persisted models that can check their own shape.
type validator interface {
	Validate() error
}

// Decoded is the result of parsing a slot: either a value or the reason it
// was rejected.
type Decoded[T any] struct {
	Value T
	Err   error
}

func (d Decoded[T]) OK() bool {
	return d.Err == nil
}

// Decode parses raw as JSON into T and runs T's Validate method when it has one.
func Decode[T any](raw []byte) Decoded[T] {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return Decoded[T]{Err: fmt.Errorf("decode: %w", err)}
	}
	if val, ok := any(v).(validator); ok {
		if err := val.Validate(); err != nil {
			return Decoded[T]{Err: fmt.Errorf("validate: %w", err)}
		}
	}
	return Decoded[T]{Value: v}
}

// Read returns the value stored under key. The boolean is false when the store
// is detached, the slot is empty or unreadable, or the value is corrupt; a
// corrupt slot is removed before returning.
func Read[T any](ctx context.Context, s *Slots, key string) (T, bool) {
	var zero T

	raw, ok := s.ReadRaw(ctx, key)
	if !ok {
		return zero, false
	}

	d := Decode[T](raw)
	if !d.OK() {
		s.log.Warn(ctx, "dropping corrupt storage slot", "key", key, "err", d.Err)
		if err := s.repo.Delete(ctx, key); err != nil {
			s.log.Warn(ctx, "failed to drop corrupt storage slot", "key", key, "err", err)
		}
		return zero, false
	}

	return d.Value, true
}

// Persist writes value under key as JSON, or deletes the slot when value is nil.
func Persist[T any](ctx context.Context, s *Slots, key string, value *T) error {
	if !s.Available() {
		return nil
	}
	if value == nil {
		return s.repo.Delete(ctx, key)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode slot[%s]: %w", key, err)
	}
	return s.repo.Set(ctx, key, b)
}

// ReadRaw returns the undecoded bytes under key.
func (s *Slots) ReadRaw(ctx context.Context, key string) ([]byte, bool) {
	if !s.Available() {
		return nil, false
	}

	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "storage slot unreadable", "key", key, "err", err)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// WriteRaw stores value under key without encoding.
func (s *Slots) WriteRaw(ctx context.Context, key string, value []byte) error {
	if !s.Available() {
		return nil
	}
	return s.repo.Set(ctx, key, value)
}

func (s *Slots) Remove(ctx context.Context, key string) error {
	if !s.Available() {
		return nil
	}
	return s.repo.Delete(ctx, key)
}

// Keys lists the occupied slots with their sizes in bytes.
func (s *Slots) Keys(ctx context.Context) (map[string]int, error) {
	if !s.Available() {
		return map[string]int{}, nil
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(all))
	for k, v := range all {
		out[k] = len(v)
	}
	return out, nil
}

// Update runs fn against a transactional view of the store. All writes made
// through tx commit together, or not at all.
func (s *Slots) Update(ctx context.Context, fn func(ctx context.Context, tx *Slots) error) error {
	if s.db == nil {
		return fn(ctx, s)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &Slots{repo: slots.NewSQLiteRepository(tx), log: s.log})
	})
}
