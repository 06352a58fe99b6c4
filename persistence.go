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
	"context"

	"github.com/orbydb/orby/internal/aofwire"
)

// vaultDo runs f on the engine's blocking persistence pool and waits for
// it, matching spec.md §5's "Vault lane commits run inside one blocking-
// pool task" — commit work still happens off the calling goroutine's
// stack, but the caller needs the error before deciding whether to issue
// the header update that follows.
func (e *Engine) vaultDo(f func() error) error {
	return e.persistPool.Submit(context.Background(), f)
}

// rowBytes packs a Row into its little-endian dim*16-byte wire form, the
// shape every AOF record and Vault commit needs.
func rowBytes(r Row) []byte {
	buf := make([]byte, len(r)*16)
	for i, c := range r {
		c.PutBytes(buf[i*16 : (i+1)*16])
	}
	return buf
}

func cellsBytes(cells []Cell) []byte {
	buf := make([]byte, len(cells)*16)
	for i, c := range cells {
		c.PutBytes(buf[i*16 : (i+1)*16])
	}
	return buf
}

// dispatch translates a changeList produced by ring logic into AOF bytes
// and Vault commits. It is always called outside the Engine's lock (the
// change list already captures everything it needs from the silo), per
// spec.md §5: mutation under the lock, I/O outside it.
func (e *Engine) dispatch(op string, changes changeList) error {
	for _, c := range changes {
		switch c.kind {
		case opInsert:
			e.appendAOFInsert(c.insertRows)
			if e.vlt != nil {
				rows := make([][]byte, len(c.insertRows))
				for i, r := range c.insertRows {
					rows[i] = rowBytes(r)
				}
				if err := e.vaultDo(func() error { return e.vlt.CommitRows(c.insertCursor, rows) }); err != nil {
					e.logf("vault commit rows failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
				e.stats.addVaultCommit()
			}

		case opUpdate:
			idBytes := c.id.Bytes()
			rb := rowBytes(c.newRow)
			e.appendAOF(aofwire.EncodeUpdate(uint32(c.logicalColumn), idBytes, rb))
			if e.vlt != nil {
				if err := e.vaultDo(func() error { return e.vlt.CommitRows(c.physicalIndex, [][]byte{rb}) }); err != nil {
					e.logf("vault commit update failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
				e.stats.addVaultCommit()
			}

		case opDelete:
			if e.vlt != nil {
				err := e.vaultDo(func() error {
					// Matches ringDelete: the last slot has nothing to
					// shift, so it is zeroed like a sparse delete.
					if e.compaction && c.physicalIndex < e.capacity-1 {
						return e.vlt.CompactFrom(c.physicalIndex)
					}
					return e.vlt.CommitSparseDelete(c.physicalIndex)
				})
				if err != nil {
					e.logf("vault delete failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
				e.stats.addVaultCommit()
			}

		case opPurge:
			idBytes := c.id.Bytes()
			e.appendAOF(aofwire.EncodePurge(uint32(c.logicalColumn), idBytes))
			if e.vlt != nil {
				for _, idx := range c.purgeIndices {
					idx := idx
					if err := e.vaultDo(func() error { return e.vlt.CommitSparseDelete(idx) }); err != nil {
						e.logf("vault purge failed: %v", err)
						return wrapIOError(op, e.name, err)
					}
				}
				e.stats.addVaultCommit()
			}

		case opTruncate:
			e.appendAOF(aofwire.EncodeTruncate())
			for _, r := range c.truncateRows {
				e.appendAOFInsertRow(r)
			}
			if e.vlt != nil {
				full := make([][]byte, e.capacity)
				for i := range full {
					if i < len(c.truncateRows) {
						full[i] = rowBytes(c.truncateRows[i])
					} else {
						full[i] = make([]byte, e.laneCount*16)
					}
				}
				if err := e.vaultDo(func() error { return e.vlt.CommitRows(0, full) }); err != nil {
					e.logf("vault truncate failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
				e.stats.addVaultCommit()
			}

		case opLaneBatch:
			vb := cellsBytes(c.laneValues)
			e.appendAOF(aofwire.EncodeLaneBatch(uint32(c.laneIdx), vb))
			if e.vlt != nil {
				if err := e.vaultDo(func() error { return e.vlt.CommitLaneBatch(c.laneIdx, c.laneStart, vb) }); err != nil {
					e.logf("vault lane batch failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
				e.stats.addVaultCommit()
			}

		case opHeaderUpdate:
			if e.vlt != nil {
				if err := e.vaultDo(func() error { return e.vlt.CommitHeader(c.headerLen, c.headerCursor) }); err != nil {
					e.logf("vault header commit failed: %v", err)
					return wrapIOError(op, e.name, err)
				}
			}
		}
	}
	return nil
}

func (e *Engine) appendAOFInsert(rows []Row) {
	for _, r := range rows {
		e.appendAOFInsertRow(r)
	}
}

func (e *Engine) appendAOFInsertRow(r Row) {
	e.appendAOF(aofwire.EncodeInsert(rowBytes(r)))
}

// appendAOF hands buf to the background appender without blocking; a full
// channel is a soft drop (spec.md §7), logged rather than propagated as an
// error, since AOF durability is best-effort relative to the in-memory
// source of truth.
func (e *Engine) appendAOF(buf []byte) {
	if e.aofCh == nil {
		aofwire.Free(buf)
		return
	}
	select {
	case e.aofCh <- aofwire.Msg{Buf: buf}:
	default:
		aofwire.Free(buf)
		e.stats.addAOFDrop()
		e.logf("AOF channel full, dropping record for %q", e.name)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf("[orby:%s] "+format, append([]any{e.name}, args...)...)
	}
}
