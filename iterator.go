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

// Iterator pulls rows one at a time, latest-first, applying a predicate.
//
// # Warning: holds the read lock for its entire lifetime
//
// Iterator keeps the Engine's read lock held from construction until
// Close. Every write operation (InsertBatch, Delete, PurgeByID, ...)
// blocks for as long as an Iterator is alive. Drain it quickly with Next
// in a tight loop, or collect into a slice and Close immediately — do not
// hold one across a long-running loop or a blocking call.
type Iterator struct {
	e     *Engine
	pred  Predicate
	order []int
	pos   int
	done  bool
}

// Next advances the iterator and returns the next matching row, or
// (nil, false) once exhausted. All-zero (tombstone) rows are skipped
// without being offered to pred.
func (it *Iterator) Next() (Row, bool) {
	if it.done {
		return nil, false
	}
	for it.pos < len(it.order) {
		physIdx := it.order[it.pos]
		it.pos++
		row := it.e.s.rowAt(physIdx)
		if row.IsZero() {
			continue
		}
		if it.pred(row) {
			return row, true
		}
	}
	return nil, false
}

// Close releases the read lock. It is safe to call more than once.
func (it *Iterator) Close() {
	if it.done {
		return
	}
	it.done = true
	it.e.mu.RUnlock()
}
