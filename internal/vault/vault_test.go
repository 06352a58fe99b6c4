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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellBytes(v uint64) []byte {
	b := make([]byte, cellSize)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	return b
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Capacity: 128, Len: 7, Cursor: 3, LaneCount: 4}
	decoded, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	_, err := DecodeHeader(buf)
	assert.Error(t, err)
}

func TestDecodeHeaderRejectsWrongSize(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	assert.Error(t, err)
}

func TestInitThenOpenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 8, 2)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	reopened, h, err := Open(dir, 8, 2)
	require.NoError(t, err)
	defer reopened.Close()
	assert.EqualValues(t, 8, h.Capacity)
	assert.EqualValues(t, 2, h.LaneCount)
}

func TestOpenRejectsConfigMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 8, 2)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, _, err = Open(dir, 8, 3) // wrong lane count
	assert.Error(t, err)
}

func TestOpenRejectsTruncatedLaneFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 8, 2)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	require.NoError(t, os.Truncate(lanePath(dir, 0), 4))

	_, _, err = Open(dir, 8, 2)
	assert.Error(t, err, "strict-mode size validation rejects a short lane file")
}

func TestCommitRowsThenReadLane(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 2)
	require.NoError(t, err)
	defer v.Close()

	row0 := append(cellBytes(10), cellBytes(20)...)
	row1 := append(cellBytes(11), cellBytes(21)...)
	require.NoError(t, v.CommitRows(0, [][]byte{row0, row1}))
	require.NoError(t, v.CommitHeader(2, 2))

	lane0, err := v.ReadLane(0)
	require.NoError(t, err)
	assert.Equal(t, byte(10), lane0[0])
	assert.Equal(t, byte(11), lane0[cellSize])

	lane1, err := v.ReadLane(1)
	require.NoError(t, err)
	assert.Equal(t, byte(20), lane1[0])
	assert.Equal(t, byte(21), lane1[cellSize])
}

func TestCommitRowsWrapsAcrossCapacity(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 1)
	require.NoError(t, err)
	defer v.Close()

	rows := [][]byte{cellBytes(1), cellBytes(2), cellBytes(3)}
	require.NoError(t, v.CommitRows(3, rows)) // start=3, wraps to 0,1

	lane0, err := v.ReadLane(0)
	require.NoError(t, err)
	assert.Equal(t, byte(1), lane0[3*cellSize], "first row lands at the tail slot")
	assert.Equal(t, byte(2), lane0[0], "second row wraps to slot 0")
	assert.Equal(t, byte(3), lane0[cellSize], "third row wraps to slot 1")
}

func TestReadLanesParallelMatchesSequentialReads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 3)
	require.NoError(t, err)
	defer v.Close()

	row := append(append(cellBytes(1), cellBytes(2)...), cellBytes(3)...)
	require.NoError(t, v.CommitRows(0, [][]byte{row}))

	all, err := v.ReadLanesParallel()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 0; i < 3; i++ {
		lane, err := v.ReadLane(i)
		require.NoError(t, err)
		assert.Equal(t, lane, all[i])
	}
}

func TestReadCellSelectiveColumnRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 2)
	require.NoError(t, err)
	defer v.Close()

	row := append(cellBytes(42), cellBytes(99)...)
	require.NoError(t, v.CommitRows(0, [][]byte{row}))

	cell, err := v.ReadCell(1, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(99), cell[0])

	_, err = v.ReadCell(0, 999)
	assert.Error(t, err, "out-of-bounds index is rejected")
}

func TestCommitLaneBatchZeroFillsOtherLanes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 3)
	require.NoError(t, err)
	defer v.Close()

	row := append(append(cellBytes(7), cellBytes(7)...), cellBytes(7)...)
	require.NoError(t, v.CommitRows(0, [][]byte{row}))

	values := append(cellBytes(55), cellBytes(56)...)
	require.NoError(t, v.CommitLaneBatch(1, 0, values))

	lane0, err := v.ReadLane(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), lane0[0], "untouched lane is zero-filled across the batch range")

	lane1, err := v.ReadLane(1)
	require.NoError(t, err)
	assert.Equal(t, byte(55), lane1[0])
	assert.Equal(t, byte(56), lane1[cellSize])
}

func TestCommitSparseDeleteZeroesRowAcrossLanes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 2)
	require.NoError(t, err)
	defer v.Close()

	row := append(cellBytes(1), cellBytes(2)...)
	require.NoError(t, v.CommitRows(0, [][]byte{row}))
	require.NoError(t, v.CommitSparseDelete(0))

	lane0, err := v.ReadLane(0)
	require.NoError(t, err)
	assert.True(t, isZero(lane0[:cellSize]))
	lane1, err := v.ReadLane(1)
	require.NoError(t, err)
	assert.True(t, isZero(lane1[:cellSize]))
}

func TestCompactFromShiftsLeftAndZeroesLastSlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 1)
	require.NoError(t, err)
	defer v.Close()

	rows := [][]byte{cellBytes(1), cellBytes(2), cellBytes(3), cellBytes(4)}
	require.NoError(t, v.CommitRows(0, rows))

	require.NoError(t, v.CompactFrom(0)) // delete slot 0

	lane0, err := v.ReadLane(0)
	require.NoError(t, err)
	assert.Equal(t, byte(2), lane0[0])
	assert.Equal(t, byte(3), lane0[cellSize])
	assert.Equal(t, byte(4), lane0[2*cellSize])
	assert.True(t, isZero(lane0[3*cellSize:4*cellSize]), "vacated last slot is zeroed")
}

func TestCompactFromNoopAtLastIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "v")
	v, err := Init(dir, 4, 1)
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.CompactFrom(3))
	require.NoError(t, v.CompactFrom(10))
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
