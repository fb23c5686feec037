// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

// Package idempotency deduplicates orchestrated photo uploads. Results are
// stored in BadgerDB under the client-supplied Idempotency-Key with a TTL,
// so a retried request replays the stored outcome instead of uploading the
// photo twice.
package idempotency

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/questmap/questmap/internal/config"
	"github.com/questmap/questmap/internal/logging"
	"github.com/questmap/questmap/internal/metrics"
)

const keyPrefix = "idem:"

// ErrKeyNotFound is returned when no result is stored for a key.
var ErrKeyNotFound = errors.New("idempotency key not found")

// Store is the Badger-backed idempotency key store.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates the store from config. InMemory mode keeps everything in RAM
// for tests and ephemeral deployments.
func Open(cfg *config.IdempotencyConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open idempotency store: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Put stores the JSON-encoded result for key. The entry expires after the
// configured TTL.
func (s *Store) Put(key string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal idempotency result: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
}

// Get loads the stored result for key into out. Returns ErrKeyNotFound when
// the key is absent or expired.
func (s *Store) Get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("get idempotency key: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err == nil {
		metrics.IdempotencyReplays.Inc()
	}
	return err
}

// RunGC reclaims Badger value-log space. Called periodically by the
// maintenance service; badger.ErrNoRewrite means there was nothing to do.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close shuts down the underlying database.
func (s *Store) Close() error {
	logging.Debug().Msg("Closing idempotency store")
	return s.db.Close()
}
