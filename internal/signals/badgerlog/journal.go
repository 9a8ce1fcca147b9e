// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package badgerlog implements the durable activity journal on BadgerDB.
// Every accepted activity event is appended under a monotonically
// increasing sequence key; on startup the journal is replayed in order to
// rebuild the in-memory aggregation state.
package badgerlog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
)

// eventPrefix namespaces journal entries inside the Badger keyspace.
var eventPrefix = []byte("evt:")

// Journal is an append-only activity event log backed by BadgerDB.
// Safe for concurrent use.
type Journal struct {
	db     *badger.DB
	cfg    config.JournalConfig
	logger zerolog.Logger

	seq *badger.Sequence
}

// Open opens (or creates) the journal at the configured path.
func Open(cfg config.JournalConfig) (*Journal, error) {
	logger := logging.With().Str("component", "journal").Logger()

	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal at %s: %w", cfg.Path, err)
	}

	seq, err := db.GetSequence([]byte("seq:events"), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open journal sequence: %w", err)
	}

	return &Journal{db: db, cfg: cfg, logger: logger, seq: seq}, nil
}

// Append durably records one activity event.
func (j *Journal) Append(event models.ActivityEvent) error {
	n, err := j.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate journal sequence: %w", err)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(n), value)
	})
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	metrics.JournalAppends.Inc()
	return nil
}

// Replay streams all journaled events to fn in append order. A non-nil
// error from fn aborts the replay.
func (j *Journal) Replay(fn func(models.ActivityEvent) error) error {
	var replayed int64

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(eventPrefix); it.ValidForPrefix(eventPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var event models.ActivityEvent
				if err := json.Unmarshal(val, &event); err != nil {
					// A corrupt entry is logged and skipped; the rest of
					// the journal is still usable.
					j.logger.Warn().Err(err).Msg("skipping undecodable journal entry")
					return nil
				}
				replayed++
				return fn(event)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("journal replay failed: %w", err)
	}

	metrics.JournalReplayed.Add(float64(replayed))
	j.logger.Info().Int64("events", replayed).Msg("journal replay complete")
	return nil
}

// RunGC runs Badger value-log garbage collection on the configured
// interval until ctx is cancelled.
func (j *Journal) RunGC(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Repeat until there is nothing left to rewrite.
			for {
				err := j.db.RunValueLogGC(0.5)
				if errors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					j.logger.Warn().Err(err).Msg("journal gc pass failed")
					break
				}
			}
		}
	}
}

// Close releases the sequence and closes the database.
func (j *Journal) Close() error {
	if err := j.seq.Release(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to release journal sequence")
	}
	return j.db.Close()
}

// eventKey builds the ordered key for sequence number n.
func eventKey(n uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], n)
	return key
}

// badgerLogger adapts zerolog to badger.Logger. Badger's info-level
// output is chatty, so it maps to debug.
type badgerLogger struct {
	logger zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.logger.Error().Msgf(format, args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.logger.Warn().Msgf(format, args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.logger.Debug().Msgf(format, args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.logger.Debug().Msgf(format, args...)
}
