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

// opKind tags one entry of a persistence change list (spec.md §4.1). Ring
// logic never touches I/O directly: it emits a change list, and the Engine
// façade is the only thing that turns a change list into AOF bytes or
// Vault writes.
type opKind uint8

const (
	opInsert opKind = iota
	opUpdate
	opDelete
	opPurge
	opTruncate
	opLaneBatch
	opHeaderUpdate
)

// change is one tagged event in a persistence change list.
type change struct {
	kind opKind

	// opInsert
	insertCursor int
	insertRows   []Row

	// opUpdate (one change per matched physical slot)
	physicalIndex int
	id            Cell
	logicalColumn int
	newRow        Row

	// opDelete uses physicalIndex only.

	// opPurge
	purgeIndices []int

	// opTruncate
	truncateRows []Row

	// opLaneBatch
	laneIdx      int
	laneStart    int
	laneValues   []Cell

	// opHeaderUpdate
	headerLen    int
	headerCursor int
}

// changeList is an ordered sequence of change events produced by a single
// ring-logic call.
type changeList []change

func (c *changeList) insert(cursor int, rows []Row) {
	*c = append(*c, change{kind: opInsert, insertCursor: cursor, insertRows: rows})
}

func (c *changeList) update(physicalIdx int, id Cell, col int, row Row) {
	*c = append(*c, change{kind: opUpdate, physicalIndex: physicalIdx, id: id, logicalColumn: col, newRow: row})
}

func (c *changeList) deleteAt(physicalIdx int) {
	*c = append(*c, change{kind: opDelete, physicalIndex: physicalIdx})
}

func (c *changeList) purge(indices []int, id Cell, col int) {
	*c = append(*c, change{kind: opPurge, purgeIndices: indices, id: id, logicalColumn: col})
}

func (c *changeList) truncate(rows []Row) {
	*c = append(*c, change{kind: opTruncate, truncateRows: rows})
}

func (c *changeList) laneBatch(idx, start int, values []Cell) {
	*c = append(*c, change{kind: opLaneBatch, laneIdx: idx, laneStart: start, laneValues: values})
}

func (c *changeList) header(length, cursor int) {
	*c = append(*c, change{kind: opHeaderUpdate, headerLen: length, headerCursor: cursor})
}
