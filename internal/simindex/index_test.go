// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

package simindex

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/powerstream/rankd/internal/config"
	"github.com/powerstream/rankd/internal/models"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	return New(config.IndexConfig{EmbeddingDim: 3, RebuildInterval: time.Minute})
}

func item(id string, embedding []float64) models.ContentItem {
	return models.ContentItem{
		ID:          id,
		ContentType: models.ContentTypePost,
		Embedding:   embedding,
		PublishedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInsertValidation(t *testing.T) {
	x := testIndex(t)

	// No embedding: silently skipped, not an error.
	if err := x.Insert(models.ContentItem{ID: "bare"}); err != nil {
		t.Errorf("Insert without embedding = %v, want nil", err)
	}
	if x.Len() != 0 {
		t.Errorf("Len() = %d after embeddingless insert, want 0", x.Len())
	}

	if err := x.Insert(item("c1", []float64{1, 0})); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Insert with wrong dimension = %v, want ErrInvalidArgument", err)
	}
}

func TestQueryByIDOrdering(t *testing.T) {
	x := testIndex(t)

	seeds := []models.ContentItem{
		item("seed", []float64{1, 0, 0}),
		item("close", []float64{0.9, 0.1, 0}),
		item("far", []float64{0, 1, 0}),
		item("opposite", []float64{-1, 0, 0}),
	}
	for _, it := range seeds {
		if err := x.Insert(it); err != nil {
			t.Fatalf("Insert(%s) failed: %v", it.ID, err)
		}
	}

	got, err := x.QueryByID("seed", 10)
	if err != nil {
		t.Fatalf("QueryByID() failed: %v", err)
	}

	want := []string{"close", "far", "opposite"}
	if len(got) != len(want) {
		t.Fatalf("QueryByID() returned %d results, want %d (seed excluded)", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("result %d = %s, want %s", i, got[i].ID, id)
		}
	}

	// Similarities descend.
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("similarity not descending at %d: %f > %f", i, got[i].Similarity, got[i-1].Similarity)
		}
	}
}

func TestQueryErrors(t *testing.T) {
	x := testIndex(t)
	if err := x.Insert(item("c1", []float64{1, 0, 0})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	if _, err := x.QueryByID("ghost", 5); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("QueryByID(ghost) error = %v, want ErrNotFound", err)
	}
	if _, err := x.QueryByID("c1", 0); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("QueryByID(k=0) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := x.QueryByVector([]float64{1, 0}, 5); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("QueryByVector(bad dim) error = %v, want ErrInvalidArgument", err)
	}
}

func TestQueryTieBreaksNewerFirst(t *testing.T) {
	x := testIndex(t)

	older := item("older", []float64{0, 1, 0})
	older.PublishedAt = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	newer := item("newer", []float64{0, 1, 0})
	newer.PublishedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, it := range []models.ContentItem{item("seed", []float64{1, 0, 0}), older, newer} {
		if err := x.Insert(it); err != nil {
			t.Fatalf("Insert(%s) failed: %v", it.ID, err)
		}
	}

	got, err := x.QueryByID("seed", 2)
	if err != nil {
		t.Fatalf("QueryByID() failed: %v", err)
	}
	if got[0].ID != "newer" || got[1].ID != "older" {
		t.Errorf("tie order = [%s %s], want [newer older]", got[0].ID, got[1].ID)
	}
}

func TestInsertReplacesExisting(t *testing.T) {
	x := testIndex(t)

	if err := x.Insert(item("c1", []float64{1, 0, 0})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := x.Insert(item("c1", []float64{0, 1, 0})); err != nil {
		t.Fatalf("re-Insert() failed: %v", err)
	}
	if x.Len() != 1 {
		t.Errorf("Len() = %d after replacing insert, want 1", x.Len())
	}
}

func TestRebuildKeepsQueriesServable(t *testing.T) {
	x := testIndex(t)
	if err := x.Insert(item("c1", []float64{1, 0, 0})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := x.Insert(item("c2", []float64{0, 1, 0})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	items := []models.ContentItem{
		item("c1", []float64{1, 0, 0}),
		item("c3", []float64{0, 0, 1}),
		{ID: "no-vector", ContentType: models.ContentTypePost}, // skipped
	}
	x.Rebuild(items)

	if x.Len() != 2 {
		t.Errorf("Len() after rebuild = %d, want 2", x.Len())
	}
	if _, err := x.QueryByID("c3", 1); err != nil {
		t.Errorf("QueryByID(c3) after rebuild failed: %v", err)
	}
	if _, err := x.QueryByID("c2", 1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("QueryByID(c2) after rebuild = %v, want ErrNotFound (dropped by rebuild)", err)
	}
}

func TestConcurrentInsertAndQuery(t *testing.T) {
	x := testIndex(t)
	if err := x.Insert(item("seed", []float64{1, 0, 0})); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("w%d-%d", n, j)
				if err := x.Insert(item(id, []float64{0, 1, 0})); err != nil {
					t.Errorf("Insert(%s) failed: %v", id, err)
					return
				}
				if _, err := x.QueryByID("seed", 5); err != nil {
					t.Errorf("QueryByID during inserts failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if x.Len() != 401 {
		t.Errorf("Len() = %d after concurrent inserts, want 401", x.Len())
	}
}
