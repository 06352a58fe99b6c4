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

package aofwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id16(b byte) [16]byte {
	var id [16]byte
	id[0] = b
	return id
}

func TestEncodeDecodeInsert(t *testing.T) {
	row := make([]byte, 32) // dim=2
	row[0] = 0xAB
	buf := EncodeInsert(row)
	defer Free(buf)

	s := NewScanner(buf, 2)
	rec, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpInsert, rec.Op)
	assert.Equal(t, row, rec.Row)

	_, ok, err = s.Next()
	require.NoError(t, err)
	assert.False(t, ok, "clean EOF after the single record")
}

func TestEncodeDecodePurge(t *testing.T) {
	buf := EncodePurge(3, id16(0x7))
	defer Free(buf)

	s := NewScanner(buf, 2)
	rec, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpPurge, rec.Op)
	assert.EqualValues(t, 3, rec.Col)
	assert.Equal(t, id16(0x7), rec.ID)
}

func TestEncodeDecodeUpdate(t *testing.T) {
	row := make([]byte, 48) // dim=3
	buf := EncodeUpdate(1, id16(0x9), row)
	defer Free(buf)

	s := NewScanner(buf, 3)
	rec, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpUpdate, rec.Op)
	assert.EqualValues(t, 1, rec.Col)
	assert.Equal(t, row, rec.Row)
}

func TestEncodeDecodeTruncate(t *testing.T) {
	buf := EncodeTruncate()
	defer Free(buf)

	s := NewScanner(buf, 2)
	rec, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpTruncate, rec.Op)
}

func TestEncodeDecodeLaneBatch(t *testing.T) {
	values := make([]byte, 32) // 2 cells
	values[0] = 0x11
	values[16] = 0x22
	buf := EncodeLaneBatch(4, values)
	defer Free(buf)

	s := NewScanner(buf, 2)
	rec, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpLaneBatch, rec.Op)
	assert.EqualValues(t, 4, rec.LaneIdx)
	assert.Equal(t, values, rec.Values)
}

func TestScannerMultipleRecords(t *testing.T) {
	var all []byte
	for i := 0; i < 3; i++ {
		b := EncodeTruncate()
		all = append(all, b...)
		Free(b)
	}
	s := NewScanner(all, 2)
	count := 0
	for {
		_, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 3, count)
}

func TestScannerTruncatedRecordErrors(t *testing.T) {
	buf := EncodePurge(1, id16(0x1))
	truncated := buf[:len(buf)-4]
	Free(buf)

	s := NewScanner(truncated, 2)
	_, _, err := s.Next()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestScannerUnknownOpErrors(t *testing.T) {
	s := NewScanner([]byte{0xFF}, 2)
	_, _, err := s.Next()
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestReadAllMissingFileIsEmptyNotError(t *testing.T) {
	buf, err := ReadAll("/nonexistent/path/does-not-exist.aof")
	require.NoError(t, err)
	assert.Empty(t, buf)
}
