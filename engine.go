// Copyright 2026 The Orby Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orby implements an in-memory, column-oriented ring-buffer index
// engine for fixed-width 128-bit records, with an optional multi-file
// on-disk Vault and an append-only operation log.
package orby

import (
	"context"
	"log"
	"sync"

	"github.com/orbydb/orby/internal/aofwire"
	"github.com/orbydb/orby/internal/gopool"
	"github.com/orbydb/orby/internal/vault"
)

// Engine is a single named ring/silo plus its persistence wiring. The
// zero value is not usable; construct one with Builder.
type Engine struct {
	// Logger receives diagnostics for the soft-fault events spec.md §7
	// calls out: AOF channel overflow, AOF appender I/O errors, and
	// failed Vault commits. Defaults to log.Default() via Builder.
	Logger *log.Logger

	name       string
	capacity   int
	laneCount  int
	compaction bool

	mu sync.RWMutex
	s  *silo

	vlt *vault.Vault

	aofCh   chan aofwire.Msg
	aofPath string

	scanPool    *gopool.Pool
	persistPool *gopool.Pool

	stats statCounters
}

// Name returns the engine's configured name.
func (e *Engine) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// Len returns the current number of live (non-tombstone-by-construction)
// logical rows, tracked incrementally rather than recomputed per call.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.len
}

// IsEmpty reports whether Len() == 0.
func (e *Engine) IsEmpty() bool {
	return e.Len() == 0
}

// Meta returns (length, capacity, laneCount), mirroring the original
// meta() 3-tuple.
func (e *Engine) Meta() (length, capacity, laneCount int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s.len, e.s.capacity, e.s.laneCount
}

// Stats returns a point-in-time snapshot of the engine's lifetime
// operation counters (spec.md §4.2 supplemented diagnostic surface).
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// InsertBatch appends rows, overwriting the oldest entries once the ring
// is full.
func (e *Engine) InsertBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	e.mu.Lock()
	changes, err := ringInsertBatch(e.s, rows)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.stats.inserts.Add(uint64(len(rows)))
	return e.dispatch("InsertBatch", changes)
}

// InsertFixed inserts rows built via RowN, for callers that know their
// dimension at compile time. Each RowN is flattened to a Row and the
// batch goes through InsertBatch. It is a package-level generic function
// rather than a method, since Go methods cannot carry their own type
// parameters.
func InsertFixed[N rowSize](e *Engine, rows []RowN[N]) error {
	flat := make([]Row, len(rows))
	for i, r := range rows {
		flat[i] = r.ToRow()
	}
	return e.InsertBatch(flat)
}

// InsertLaneBatch streams values into a single lane, vertically
// zero-filling every other lane across the same index range.
func (e *Engine) InsertLaneBatch(laneIdx int, values []Cell) error {
	if len(values) == 0 {
		return nil
	}
	e.mu.Lock()
	changes, err := ringInsertLaneBatch(e.s, laneIdx, values)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.stats.inserts.Add(uint64(len(values)))
	return e.dispatch("InsertLaneBatch", changes)
}

// UpdateByID overwrites every row whose col-th cell equals id with
// newRow, reporting whether any row matched.
func (e *Engine) UpdateByID(col int, id Cell, newRow Row) bool {
	e.mu.Lock()
	found, changes := ringUpdateByID(e.s, col, id, newRow)
	e.mu.Unlock()
	if !found {
		return false
	}
	e.stats.updates.Add(uint64(len(changes)))
	_ = e.dispatch("UpdateByID", changes)
	return true
}

// Upsert updates every row matching id, or inserts row fresh if none
// matched.
func (e *Engine) Upsert(col int, id Cell, row Row) error {
	e.mu.Lock()
	changes, err := ringUpsert(e.s, col, id, row)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.stats.addInsert()
	return e.dispatch("Upsert", changes)
}

// Delete zeroes the row at physical index idx, optionally compacting the
// ring if the engine was built with Compaction(true). Reports whether a
// live row was found at idx.
func (e *Engine) Delete(idx int) bool {
	e.mu.Lock()
	ok, changes := ringDelete(e.s, idx)
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.stats.addDelete()
	_ = e.dispatch("Delete", changes)
	return true
}

// PurgeByID zeroes every row whose col-th cell equals id.
func (e *Engine) PurgeByID(col int, id Cell) {
	e.mu.Lock()
	changes := ringPurgeByID(e.s, col, id)
	e.mu.Unlock()
	if len(changes) == 0 {
		return
	}
	e.stats.addPurge()
	_ = e.dispatch("PurgeByID", changes)
}

// PurgeAllData discards every row currently held and replaces it with
// rows (truncated to capacity).
func (e *Engine) PurgeAllData(rows []Row) error {
	e.mu.Lock()
	changes, err := ringTruncate(e.s, rows)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return e.dispatch("PurgeAllData", changes)
}

// GetAt returns the row at logical index k (0 = newest).
func (e *Engine) GetAt(logical int) (Row, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ringGetAt(e.s, logical)
}

// CountActive recomputes the number of live rows by scanning lane 0; a
// diagnostic, never a replacement for Len().
func (e *Engine) CountActive() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ringCountActive(e.s)
}

// QueryRaw returns up to limit rows matching pred, latest-first.
func (e *Engine) QueryRaw(pred Predicate, limit int) []Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ringQueryRaw(e.scanPool, e.s, pred, limit)
}

// Take returns up to limit of the most recent rows, unfiltered.
func (e *Engine) Take(limit int) []Row {
	return e.QueryRaw(func(Row) bool { return true }, limit)
}

// FindBy returns up to limit rows whose col-th cell is one of targets.
func (e *Engine) FindBy(col int, targets []Cell, limit int) []Row {
	if len(targets) == 0 {
		return nil
	}
	set := make(map[Cell]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return e.QueryRaw(func(r Row) bool {
		if col < 0 || col >= len(r) {
			return false
		}
		_, ok := set[r[col]]
		return ok
	}, limit)
}

// FindCustom returns up to limit rows whose col-th cell falls in
// [min, max] (unsigned 128-bit comparison).
func (e *Engine) FindCustom(col int, min, max Cell, limit int) []Row {
	return e.QueryRaw(func(r Row) bool {
		if col < 0 || col >= len(r) {
			return false
		}
		v := r[col]
		return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
	}, limit)
}

// FindIndices returns up to limit logical indices of rows matching pred.
func (e *Engine) FindIndices(pred Predicate, limit int) []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ringFindIndices(e.scanPool, e.s, pred, limit)
}

// QueryIter returns a pull-based iterator over rows matching pred,
// latest-first. The iterator holds the engine's read lock for its entire
// lifetime (spec.md §4.5) and must be closed.
func (e *Engine) QueryIter(pred Predicate) *Iterator {
	e.mu.RLock()
	order := scanOrder(e.s.cursor, e.s.capacity, e.s.len)
	return &Iterator{e: e, pred: pred, order: order}
}

// Sleep performs a full checkpoint: every resident lane is re-serialized
// to the Vault in one pass, followed by the header. It is a no-op for a
// memory-only engine.
func (e *Engine) Sleep() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vlt == nil {
		return nil
	}
	rows := make([][]byte, e.s.capacity)
	for i := 0; i < e.s.capacity; i++ {
		rows[i] = rowBytes(e.s.rowAt(i))
	}
	if err := e.persistPool.Submit(context.Background(), func() error {
		return e.vlt.CommitRows(0, rows)
	}); err != nil {
		return wrapIOError("Sleep", e.name, err)
	}
	if err := e.vlt.CommitHeader(e.s.len, e.s.cursor); err != nil {
		return wrapIOError("Sleep", e.name, err)
	}
	return nil
}

// Close stops the background AOF appender (if any) and releases the
// Vault's open file handles.
func (e *Engine) Close() error {
	if e.aofCh != nil {
		close(e.aofCh)
	}
	if e.vlt != nil {
		if err := e.vlt.Close(); err != nil {
			return wrapIOError("Close", e.name, err)
		}
	}
	return nil
}
