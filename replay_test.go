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
	"os"
	"path/filepath"
	"testing"

	"github.com/orbydb/orby/internal/aofwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayAOFReissuesOperations(t *testing.T) {
	dir := t.TempDir()
	aofPath := filepath.Join(dir, "replay.aof")

	var log []byte
	appendRec := func(b []byte) {
		log = append(log, b...)
		aofwire.Free(b)
	}
	appendRec(aofwire.EncodeInsert(rowToBytes(rowOf(1, 10))))
	appendRec(aofwire.EncodeInsert(rowToBytes(rowOf(2, 20))))
	appendRec(aofwire.EncodePurge(0, CellFromUint64(1).Bytes()))
	require.NoError(t, os.WriteFile(aofPath, log, 0o644))

	restored := newMemEngine(t, 8, 2)
	require.NoError(t, restored.ReplayAOF(aofPath))

	assert.Equal(t, 1, restored.Len())
	row, ok := restored.GetAt(0)
	require.True(t, ok)
	assert.Equal(t, uint64(20), row[1].Lo)
}

func rowToBytes(r Row) []byte {
	b := make([]byte, len(r)*16)
	for i, c := range r {
		c.PutBytes(b[i*16 : (i+1)*16])
	}
	return b
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.orby")

	e := newMemEngine(t, 8, 2)
	require.NoError(t, e.InsertBatch([]Row{rowOf(1, 10), rowOf(2, 20), rowOf(3, 30)}))
	require.NoError(t, e.WriteSnapshotToFile(path))

	restored := newMemEngine(t, 8, 2)
	require.NoError(t, restored.RestoreFromSnapshot(path))

	assert.Equal(t, e.Len(), restored.Len())
	row, ok := restored.GetAt(0)
	require.True(t, ok)
	assert.Equal(t, uint64(30), row[0].Lo)
}

func TestSnapshotRestoreRejectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.orby")

	e := newMemEngine(t, 8, 2)
	require.NoError(t, e.InsertBatch([]Row{rowOf(1, 10)}))
	require.NoError(t, e.WriteSnapshotToFile(path))

	other := newMemEngine(t, 8, 3) // different lane count
	err := other.RestoreFromSnapshot(path)
	require.Error(t, err)
}
