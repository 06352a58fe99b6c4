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

package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/orbydb/orby/cache/mempool"
)

const cellSize = 16

// Vault manages one directory holding D lane files plus header.bin
// (spec.md §4.4).
type Vault struct {
	dir       string
	capacity  int
	laneCount int

	mu     sync.Mutex
	header *os.File
	lanes  []*os.File
}

func lanePath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("lane_%d.bin", idx))
}

func headerPath(dir string) string {
	return filepath.Join(dir, "header.bin")
}

// Init creates a fresh Vault directory: one truncated+preallocated file
// per lane plus a zeroed header stamped with capacity/laneCount. Any
// existing contents at dir are overwritten, matching the original's
// create+truncate semantics.
func Init(dir string, capacity, laneCount int) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vault: create dir: %w", err)
	}

	laneSize := int64(capacity) * cellSize
	lanes := make([]*os.File, laneCount)
	for i := 0; i < laneCount; i++ {
		f, err := os.OpenFile(lanePath(dir, i), os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("vault: create lane %d: %w", i, err)
		}
		if err := preallocate(f, laneSize); err != nil {
			return nil, fmt.Errorf("vault: preallocate lane %d: %w", i, err)
		}
		if err := f.Sync(); err != nil {
			return nil, fmt.Errorf("vault: sync lane %d: %w", i, err)
		}
		lanes[i] = f
	}

	hf, err := os.OpenFile(headerPath(dir), os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vault: create header: %w", err)
	}
	h := Header{Capacity: uint64(capacity), Len: 0, Cursor: 0, LaneCount: uint32(laneCount)}
	if _, err := hf.Write(h.Encode()); err != nil {
		return nil, fmt.Errorf("vault: write header: %w", err)
	}
	if err := hf.Sync(); err != nil {
		return nil, fmt.Errorf("vault: sync header: %w", err)
	}

	return &Vault{dir: dir, capacity: capacity, laneCount: laneCount, header: hf, lanes: lanes}, nil
}

// preallocate grows f to size bytes. It prefers fallocate (no actual
// zero-fill I/O needed on most filesystems) and falls back to Truncate,
// which achieves the same logical size via a sparse file if fallocate is
// unsupported by the filesystem (e.g. tmpfs on some kernels). unix.Fallocate
// exists only on Linux, so this package builds only there.
func preallocate(f *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	err := unix.Fallocate(int(f.Fd()), 0, 0, size)
	if err == nil {
		return nil
	}
	return f.Truncate(size)
}

// Open attaches to an already-initialized Vault directory without
// truncating it, validating the header against the caller's expected
// capacity/laneCount (strict-mode size validation, spec.md §4.4).
func Open(dir string, expectCapacity, expectLaneCount int) (*Vault, Header, error) {
	hf, err := os.OpenFile(headerPath(dir), os.O_RDWR, 0o644)
	if err != nil {
		return nil, Header{}, fmt.Errorf("vault: open header: %w", err)
	}

	buf := make([]byte, HeaderSize)
	if _, err := hf.ReadAt(buf, 0); err != nil {
		hf.Close()
		return nil, Header{}, fmt.Errorf("vault: read header: %w", err)
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		hf.Close()
		return nil, Header{}, err
	}

	if int(h.Capacity) != expectCapacity || int(h.LaneCount) != expectLaneCount {
		hf.Close()
		return nil, Header{}, fmt.Errorf(
			"vault: config mismatch: header has capacity=%d laneCount=%d, expected capacity=%d laneCount=%d",
			h.Capacity, h.LaneCount, expectCapacity, expectLaneCount)
	}

	expectLaneSize := int64(h.Capacity) * cellSize
	lanes := make([]*os.File, h.LaneCount)
	for i := 0; i < int(h.LaneCount); i++ {
		p := lanePath(dir, i)
		info, statErr := os.Stat(p)
		if statErr != nil {
			hf.Close()
			closeAll(lanes)
			return nil, Header{}, fmt.Errorf("vault: lane %d missing or inaccessible: %w", i, statErr)
		}
		if info.Size() != expectLaneSize {
			hf.Close()
			closeAll(lanes)
			return nil, Header{}, fmt.Errorf("vault: lane %d size mismatch: expected %d, found %d", i, expectLaneSize, info.Size())
		}
		f, err := os.OpenFile(p, os.O_RDWR, 0o644)
		if err != nil {
			hf.Close()
			closeAll(lanes)
			return nil, Header{}, fmt.Errorf("vault: open lane %d: %w", i, err)
		}
		lanes[i] = f
	}

	return &Vault{
		dir:       dir,
		capacity:  int(h.Capacity),
		laneCount: int(h.LaneCount),
		header:    hf,
		lanes:     lanes,
	}, h, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Close releases all open file handles.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var firstErr error
	for _, f := range v.lanes {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := v.header.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ReadLane bulk-reads an entire lane file into a []byte of
// capacity*cellSize bytes, for restoring a resident silo (spec.md §4.4
// "load to memory").
func (v *Vault) ReadLane(laneIdx int) ([]byte, error) {
	buf := make([]byte, v.capacity*cellSize)
	if _, err := v.lanes[laneIdx].ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("vault: read lane %d: %w", laneIdx, err)
	}
	return buf, nil
}

// ReadLanesParallel bulk-reads every lane concurrently, matching the
// original restore path's intent to load all D lanes as fast as possible.
func (v *Vault) ReadLanesParallel() ([][]byte, error) {
	out := make([][]byte, v.laneCount)
	errs := make([]error, v.laneCount)
	var wg sync.WaitGroup
	for i := 0; i < v.laneCount; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf, err := v.ReadLane(i)
			out[i] = buf
			errs[i] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadCell performs a selective positioned read of one cell from one lane
// (spec.md §4.4 "selective column read").
func (v *Vault) ReadCell(laneIdx, index int) ([16]byte, error) {
	var buf [16]byte
	if index < 0 || index >= v.capacity {
		return buf, fmt.Errorf("vault: index %d out of bounds (capacity %d)", index, v.capacity)
	}
	if _, err := v.lanes[laneIdx].ReadAt(buf[:], int64(index)*cellSize); err != nil {
		return buf, fmt.Errorf("vault: read cell lane=%d index=%d: %w", laneIdx, index, err)
	}
	return buf, nil
}

// CommitHeader rewrites only the len/cursor fields, the final step of
// every commit path (spec.md §4.4 "strict lanes-before-header ordering").
func (v *Vault) CommitHeader(length, cursor int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return writeHeaderFields(v.header, uint64(length), uint64(cursor))
}

// bulkWriteLane performs a positioned write of values (packed cellSize-byte
// cells) into lane file f starting at physical index startIdx, splitting
// into two writes across the wrap boundary when the range crosses
// capacity (spec.md §4.4 "wrap-around split writes").
func bulkWriteLane(f *os.File, startIdx, capacity int, values []byte) error {
	count := len(values) / cellSize
	endIdx := startIdx + count
	if endIdx <= capacity {
		_, err := f.WriteAt(values, int64(startIdx)*cellSize)
		return err
	}
	lenToEnd := capacity - startIdx
	if _, err := f.WriteAt(values[:lenToEnd*cellSize], int64(startIdx)*cellSize); err != nil {
		return err
	}
	_, err := f.WriteAt(values[lenToEnd*cellSize:], 0)
	return err
}

// CommitRows writes a contiguous run of whole rows (one cell per lane)
// starting at physical index start, wrapping as needed, then fsyncs every
// lane file before the caller is expected to call CommitHeader. rows is
// row-major: rows[i] holds laneCount cellSize-byte cells concatenated.
func (v *Vault) CommitRows(start int, rows [][]byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	perLane := make([][]byte, v.laneCount)
	for d := 0; d < v.laneCount; d++ {
		perLane[d] = mempool.MallocCells(len(rows))
		defer mempool.Free(perLane[d])
	}
	for i, row := range rows {
		for d := 0; d < v.laneCount; d++ {
			copy(perLane[d][i*cellSize:(i+1)*cellSize], row[d*cellSize:(d+1)*cellSize])
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, v.laneCount)
	for d := 0; d < v.laneCount; d++ {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bulkWriteLane(v.lanes[d], start, v.capacity, perLane[d]); err != nil {
				errs[d] = err
				return
			}
			errs[d] = v.lanes[d].Sync()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CommitLaneBatch writes values into lane laneIdx starting at start, then
// zero-fills the same index range in every other lane (spec.md §4.4
// "vertical zero-fill"), syncing every touched file. values is packed
// cellSize-byte cells.
func (v *Vault) CommitLaneBatch(laneIdx, start int, values []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := bulkWriteLane(v.lanes[laneIdx], start, v.capacity, values); err != nil {
		return err
	}
	if err := v.lanes[laneIdx].Sync(); err != nil {
		return err
	}

	zeros := make([]byte, len(values))
	var wg sync.WaitGroup
	errs := make([]error, v.laneCount)
	for d := 0; d < v.laneCount; d++ {
		if d == laneIdx {
			continue
		}
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bulkWriteLane(v.lanes[d], start, v.capacity, zeros); err != nil {
				errs[d] = err
				return
			}
			errs[d] = v.lanes[d].Sync()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CommitSparseDelete zero-writes a single row at physical index idx across
// every lane (spec.md §4.4, the non-compacting delete path).
func (v *Vault) CommitSparseDelete(idx int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	zero := make([]byte, cellSize)
	for d := 0; d < v.laneCount; d++ {
		if _, err := v.lanes[d].WriteAt(zero, int64(idx)*cellSize); err != nil {
			return err
		}
		if err := v.lanes[d].Sync(); err != nil {
			return err
		}
	}
	return nil
}

// CompactFrom shifts every lane's contents left past idx by one slot
// (index+1..capacity moves to index..capacity-1) in 64 KiB chunks, then
// zero-fills the vacated last slot, matching spec.md §4.4
// "delete-and-compact". It does not touch the header. For idx >=
// capacity-1 it does nothing: no slot follows idx, so nothing is shifted
// or zeroed.
func (v *Vault) CompactFrom(idx int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx >= v.capacity {
		return nil
	}
	if idx >= v.capacity-1 {
		return nil
	}

	const chunkBytes = 64 * 1024
	chunkCells := chunkBytes / cellSize

	var wg sync.WaitGroup
	errs := make([]error, v.laneCount)
	for d := 0; d < v.laneCount; d++ {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[d] = compactLane(v.lanes[d], idx, v.capacity, chunkCells)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func compactLane(f *os.File, idx, capacity, chunkCells int) error {
	buf := mempool.MallocCells(chunkCells)
	defer mempool.Free(buf)
	pos := idx
	for pos < capacity-1 {
		toRead := chunkCells
		if remaining := capacity - 1 - pos; toRead > remaining {
			toRead = remaining
		}
		if toRead == 0 {
			break
		}
		byteCount := toRead * cellSize
		readOff := int64(pos+1) * cellSize
		writeOff := int64(pos) * cellSize
		if _, err := f.ReadAt(buf[:byteCount], readOff); err != nil {
			return err
		}
		if _, err := f.WriteAt(buf[:byteCount], writeOff); err != nil {
			return err
		}
		pos += toRead
	}
	var zero [cellSize]byte
	if _, err := f.WriteAt(zero[:], int64(capacity-1)*cellSize); err != nil {
		return err
	}
	return f.Sync()
}
