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

package orby

import (
	"sync"

	"github.com/orbydb/orby/internal/gopool"
)

// Predicate is a pure function of a row, used by Scan/QueryRaw/FindIndices.
// It must not capture or mutate shared state (spec.md §9).
type Predicate func(Row) bool

// ringInsertBatch is the batch-insert ring logic (spec.md §4.1 "Insert
// (batch)"). It never touches I/O; it returns the persistence change list
// the caller must translate into AOF bytes and Vault writes.
func ringInsertBatch(s *silo, rows []Row) (changeList, error) {
	var changes changeList
	if len(rows) == 0 {
		return changes, nil
	}
	for _, r := range rows {
		if len(r) != s.laneCount {
			return nil, errLaneCountMismatch("InsertBatch", s.name, s.laneCount, len(r))
		}
	}

	startCursor := s.cursor
	stored := make([]Row, len(rows))
	for i, r := range rows {
		cur := s.cursor
		overwrite := s.isLive(cur)
		for d := 0; d < s.laneCount; d++ {
			s.lanes[d].buf[cur] = r[d]
		}
		if !overwrite && s.len < s.capacity {
			s.len++
		}
		stored[i] = r.clone()
		s.cursor = (s.cursor + 1) % s.capacity
	}

	changes.insert(startCursor, stored)
	changes.header(s.len, s.cursor)
	return changes, nil
}

// ringInsertLaneBatch is spec.md §4.1 "Insert into a single lane (lane
// batch)": it writes values into one lane with wrap-around handling and
// zero-fills the same index range in every other lane.
func ringInsertLaneBatch(s *silo, laneIdx int, values []Cell) (changeList, error) {
	var changes changeList
	if laneIdx < 0 || laneIdx >= s.laneCount {
		return nil, errLaneCountMismatch("InsertLaneBatch", s.name, s.laneCount, laneIdx+1)
	}
	count := len(values)
	if count == 0 {
		return changes, nil
	}
	if count > s.capacity {
		return nil, errStorageFull("InsertLaneBatch", s.name, s.capacity)
	}

	start := s.cursor
	writeRange := func(d int, vals []Cell) {
		buf := s.lanes[d].buf
		if start+count <= s.capacity {
			copy(buf[start:start+count], vals)
			return
		}
		tail := s.capacity - start
		copy(buf[start:s.capacity], vals[:tail])
		copy(buf[0:count-tail], vals[tail:])
	}

	writeRange(laneIdx, values)
	zeros := make([]Cell, count)
	for d := 0; d < s.laneCount; d++ {
		if d == laneIdx {
			continue
		}
		writeRange(d, zeros)
	}

	s.len = minInt(s.len+count, s.capacity)
	s.cursor = (s.cursor + count) % s.capacity

	storedValues := make([]Cell, count)
	copy(storedValues, values)
	changes.laneBatch(laneIdx, start, storedValues)
	changes.header(s.len, s.cursor)
	return changes, nil
}

// ringTruncate is spec.md §4.1 "Truncate + replace".
func ringTruncate(s *silo, rows []Row) (changeList, error) {
	var changes changeList
	for d := range s.lanes {
		for i := range s.lanes[d].buf {
			s.lanes[d].buf[i] = Cell{}
		}
	}
	s.len = 0
	s.cursor = 0

	limit := s.capacity
	if len(rows) < limit {
		limit = len(rows)
	}
	stored := make([]Row, 0, limit)
	for i := 0; i < limit; i++ {
		r := rows[i]
		if len(r) != s.laneCount {
			return nil, errLaneCountMismatch("PurgeAllData", s.name, s.laneCount, len(r))
		}
		cur := s.cursor
		for d := 0; d < s.laneCount; d++ {
			s.lanes[d].buf[cur] = r[d]
		}
		s.len++
		stored = append(stored, r.clone())
		s.cursor = (s.cursor + 1) % s.capacity
	}

	changes.truncate(stored)
	changes.header(s.len, s.cursor)
	return changes, nil
}

// ringDelete is spec.md §4.1 "Delete-at (physical index)".
func ringDelete(s *silo, idx int) (bool, changeList) {
	var changes changeList
	if idx < 0 || idx >= s.capacity {
		return false, changes
	}
	if !s.isLive(idx) {
		return false, changes
	}

	for d := range s.lanes {
		s.lanes[d].buf[idx] = Cell{}
	}
	if s.len > 0 {
		s.len--
	}
	changes.deleteAt(idx)

	if s.compaction && idx < s.capacity-1 {
		for d := range s.lanes {
			copy(s.lanes[d].buf[idx:s.capacity-1], s.lanes[d].buf[idx+1:s.capacity])
			s.lanes[d].buf[s.capacity-1] = Cell{}
		}
		s.cursor = s.len
	}

	changes.header(s.len, s.cursor)
	return true, changes
}

// ringUpdateByID is spec.md §4.1 "Update-by-id".
func ringUpdateByID(s *silo, col int, id Cell, newRow Row) (bool, changeList) {
	var changes changeList
	if id.IsZero() || len(newRow) != s.laneCount {
		return false, changes
	}
	if col < 0 || col >= s.laneCount {
		return false, changes
	}

	var targets []int
	search := s.lanes[col].buf
	for i := 0; i < s.capacity; i++ {
		if search[i] == id {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return false, changes
	}

	for _, idx := range targets {
		for d := 0; d < s.laneCount; d++ {
			s.lanes[d].buf[idx] = newRow[d]
		}
		changes.update(idx, id, col, newRow.clone())
	}
	return true, changes
}

// ringUpsert is spec.md §4.1 "Upsert".
func ringUpsert(s *silo, col int, id Cell, row Row) (changeList, error) {
	found, changes := ringUpdateByID(s, col, id, row)
	if found {
		return changes, nil
	}
	return ringInsertBatch(s, []Row{row})
}

// ringPurgeByID is spec.md §4.1 "Purge-by-id".
func ringPurgeByID(s *silo, col int, id Cell) changeList {
	var changes changeList
	if id.IsZero() || col < 0 || col >= s.laneCount {
		return changes
	}

	var targets []int
	search := s.lanes[col].buf
	for i := 0; i < s.capacity; i++ {
		if search[i] == id {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return changes
	}

	for _, idx := range targets {
		for d := range s.lanes {
			s.lanes[d].buf[idx] = Cell{}
		}
		if s.len > 0 {
			s.len--
		}
	}

	changes.purge(targets, id, col)
	changes.header(s.len, s.cursor)
	return changes
}

// ringCountActive is spec.md §4.1 "Count-active", a diagnostic that never
// replaces len.
func ringCountActive(s *silo) int {
	limit := s.cursor
	if s.cursor == 0 && s.len > 0 {
		limit = s.capacity
	}
	count := 0
	lane0 := s.lanes[0].buf
	for i := 0; i < limit; i++ {
		if !lane0[i].IsZero() {
			count++
		}
	}
	return count
}

// ringGetAt is spec.md §4.1 "Get-at (logical k)".
func ringGetAt(s *silo, logical int) (Row, bool) {
	if logical < 0 || logical >= s.len {
		return nil, false
	}
	idx := physicalIndex(s.cursor, s.capacity, logical)
	return s.rowAt(idx), true
}

// scanChunkBounds derives the scan chunking policy named in spec.md §4.1:
// a heuristic (cache size / (16*D)) clamped to [512, 8192]. We approximate
// "last-level cache size" with a fixed 8 MiB budget, matching typical L3
// sizes, since Go exposes no portable cache-topology API (see DESIGN.md).
func scanChunkBounds(laneCount int) int {
	const assumedL3Bytes = 8 * 1024 * 1024
	if laneCount <= 0 {
		laneCount = 1
	}
	chunk := assumedL3Bytes / (16 * laneCount)
	if chunk < 512 {
		chunk = 512
	}
	if chunk > 8192 {
		chunk = 8192
	}
	return chunk
}

// ringQueryRaw is spec.md §4.1 "Scan (query_raw)": a parallel, chunked,
// latest-first scan applying pred and returning up to limit matches in
// scan order. pool dispatches one task per chunk onto the engine's
// data-parallel scan pool (internal/gopool) instead of spawning bare
// goroutines, so scan concurrency shares the same worker-reuse/panic-
// recovery discipline as every other background task in the engine.
func ringQueryRaw(pool *gopool.Pool, s *silo, pred Predicate, limit int) []Row {
	order := scanOrder(s.cursor, s.capacity, s.len)
	if len(order) == 0 || limit <= 0 {
		return nil
	}

	chunk := scanChunkBounds(s.laneCount)
	matched := make([][]Row, (len(order)+chunk-1)/chunk)

	var wg sync.WaitGroup
	for c := 0; c*chunk < len(order); c++ {
		c := c
		start := c * chunk
		end := start + chunk
		if end > len(order) {
			end = len(order)
		}
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			var local []Row
			for _, physIdx := range order[start:end] {
				row := s.rowAt(physIdx)
				if row.IsZero() {
					continue
				}
				if pred(row) {
					local = append(local, row)
				}
			}
			matched[c] = local
		})
	}
	wg.Wait()

	results := make([]Row, 0, limit)
	for _, chunkResults := range matched {
		for _, row := range chunkResults {
			if len(results) >= limit {
				return results
			}
			results = append(results, row)
		}
	}
	return results
}

// ringFindIndices is spec.md §4.1 "Find-indices": same scan, but returns
// logical indices sorted ascending (newest first) before truncation.
func ringFindIndices(pool *gopool.Pool, s *silo, pred Predicate, limit int) []int {
	order := scanOrder(s.cursor, s.capacity, s.len)
	if len(order) == 0 || limit <= 0 {
		return nil
	}

	chunk := scanChunkBounds(s.laneCount)
	matched := make([][]int, (len(order)+chunk-1)/chunk)

	var wg sync.WaitGroup
	for c := 0; c*chunk < len(order); c++ {
		c := c
		start := c * chunk
		end := start + chunk
		if end > len(order) {
			end = len(order)
		}
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			var local []int
			for logicalIdx := start; logicalIdx < end; logicalIdx++ {
				row := s.rowAt(order[logicalIdx])
				if row.IsZero() {
					continue
				}
				if pred(row) {
					local = append(local, logicalIdx)
				}
			}
			matched[c] = local
		})
	}
	wg.Wait()

	var indices []int
	for _, chunkResults := range matched {
		indices = append(indices, chunkResults...)
	}
	sortInts(indices)
	if len(indices) > limit {
		indices = indices[:limit]
	}
	return indices
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// sortInts is an insertion sort. ringFindIndices calls it on the merged
// matches of every chunk, before truncating to limit. That input is
// already ascending (chunks are merged in scan order and each chunk's
// indices are ascending), so the insertion sort makes a single linear
// pass over it; it stands in for the original's par_sort_unstable.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] > v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}
