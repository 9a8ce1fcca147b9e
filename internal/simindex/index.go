// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package simindex implements the content similarity index: exact
// brute-force cosine search over content embeddings.
//
// Readers query an immutable snapshot published through an atomic
// pointer, so queries never block behind writers. Inserts arriving while
// a rebuild is in flight are queued and replayed onto the new snapshot
// before it is published; nothing is dropped.
package simindex

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/logging"
	"github.com/powerstream/rankd/internal/metrics"
	"github.com/powerstream/rankd/internal/models"
	"github.com/powerstream/rankd/internal/scoring"
)

// entry is one indexed vector.
type entry struct {
	id          string
	contentType models.ContentType
	embedding   []float64
	publishedAt time.Time
}

// snapshot is an immutable view of the index.
type snapshot struct {
	entries []entry
	byID    map[string]int
}

// Result is one similarity query hit.
type Result struct {
	// ID is the matched content ID.
	ID string `json:"id"`

	// Similarity is the cosine similarity in [0, 1].
	Similarity float64 `json:"similarity"`

	// ContentType is the matched item's content type.
	ContentType models.ContentType `json:"content_type"`
}

// Index is the similarity index. Queries are lock-free against the
// current snapshot; writes serialize on an internal mutex.
type Index struct {
	current atomic.Pointer[snapshot]

	mu         sync.Mutex
	rebuilding bool
	pending    []models.ContentItem

	cfg    config.IndexConfig
	logger zerolog.Logger
}

// New creates an empty index.
func New(cfg config.IndexConfig) *Index {
	idx := &Index{
		cfg:    cfg,
		logger: logging.With().Str("component", "simindex").Logger(),
	}
	idx.current.Store(&snapshot{byID: make(map[string]int)})
	return idx
}

// Insert adds or replaces one item's vector. Items without embeddings are
// ignored; mismatched dimensions are rejected. During a rebuild the
// insert is queued and lands on the new snapshot when it is published.
func (x *Index) Insert(item models.ContentItem) error {
	if len(item.Embedding) == 0 {
		return nil
	}
	if len(item.Embedding) != x.cfg.EmbeddingDim {
		return fmt.Errorf("%w: embedding dimension %d, index requires %d",
			models.ErrInvalidArgument, len(item.Embedding), x.cfg.EmbeddingDim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.rebuilding {
		x.pending = append(x.pending, item)
		return nil
	}

	next := x.current.Load().withItem(item)
	x.current.Store(next)
	metrics.IndexSize.Set(float64(len(next.entries)))
	return nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	return len(x.current.Load().entries)
}

// Rebuild replaces the index contents from a full item set, typically a
// signal store snapshot. Queries keep hitting the old snapshot until the
// new one is complete; inserts racing the rebuild are replayed before the
// swap.
func (x *Index) Rebuild(items []models.ContentItem) {
	x.mu.Lock()
	x.rebuilding = true
	x.mu.Unlock()

	next := &snapshot{byID: make(map[string]int, len(items))}
	for _, item := range items {
		if len(item.Embedding) != x.cfg.EmbeddingDim {
			continue
		}
		next.add(item)
	}

	x.mu.Lock()
	for _, item := range x.pending {
		next.add(item)
	}
	x.pending = nil
	x.rebuilding = false
	x.current.Store(next)
	x.mu.Unlock()

	metrics.IndexSize.Set(float64(len(next.entries)))
	metrics.IndexRebuilds.Inc()
	x.logger.Debug().Int("vectors", len(next.entries)).Msg("index rebuilt")
}

// QueryByID returns the k nearest neighbors of an indexed item, excluding
// the item itself. Returns models.ErrNotFound for unindexed seeds.
func (x *Index) QueryByID(seedID string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: neighbor count must be positive", models.ErrInvalidArgument)
	}

	snap := x.current.Load()
	pos, ok := snap.byID[seedID]
	if !ok {
		return nil, fmt.Errorf("content %q not indexed: %w", seedID, models.ErrNotFound)
	}

	return snap.nearest(snap.entries[pos].embedding, k, seedID), nil
}

// QueryByVector returns the k nearest neighbors of an arbitrary embedding.
func (x *Index) QueryByVector(embedding []float64, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: neighbor count must be positive", models.ErrInvalidArgument)
	}
	if len(embedding) != x.cfg.EmbeddingDim {
		return nil, fmt.Errorf("%w: embedding dimension %d, index requires %d",
			models.ErrInvalidArgument, len(embedding), x.cfg.EmbeddingDim)
	}

	return x.current.Load().nearest(embedding, k, ""), nil
}

// withItem returns a copy of the snapshot with the item added or replaced.
// Published snapshots are immutable, so inserts copy before mutating.
func (s *snapshot) withItem(item models.ContentItem) *snapshot {
	next := &snapshot{
		entries: make([]entry, len(s.entries)),
		byID:    make(map[string]int, len(s.byID)+1),
	}
	copy(next.entries, s.entries)
	for id, pos := range s.byID {
		next.byID[id] = pos
	}
	next.add(item)
	return next
}

// add inserts or replaces an item in an unpublished snapshot.
func (s *snapshot) add(item models.ContentItem) {
	e := entry{
		id:          item.ID,
		contentType: item.ContentType,
		embedding:   append([]float64(nil), item.Embedding...),
		publishedAt: item.PublishedAt,
	}

	if pos, ok := s.byID[item.ID]; ok {
		s.entries[pos] = e
		return
	}
	s.byID[item.ID] = len(s.entries)
	s.entries = append(s.entries, e)
}

// nearest scans all entries and returns the top-k by cosine similarity,
// descending. Ties prefer the newer item, then the smaller ID, so results
// are deterministic. exclude is skipped (the query seed).
func (s *snapshot) nearest(embedding []float64, k int, exclude string) []Result {
	type scored struct {
		Result
		publishedAt time.Time
	}

	candidates := make([]scored, 0, len(s.entries))
	for i := range s.entries {
		e := &s.entries[i]
		if e.id == exclude {
			continue
		}
		candidates = append(candidates, scored{
			Result: Result{
				ID:          e.id,
				Similarity:  scoring.CosineSimilarity(embedding, e.embedding),
				ContentType: e.contentType,
			},
			publishedAt: e.publishedAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if !candidates[i].publishedAt.Equal(candidates[j].publishedAt) {
			return candidates[i].publishedAt.After(candidates[j].publishedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].Result
	}
	return out
}
