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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellZeroIsTombstone(t *testing.T) {
	assert.True(t, Cell{}.IsZero())
	assert.False(t, CellFromUint64(1).IsZero())
}

func TestCellCmp(t *testing.T) {
	low := CellFromUint64(1)
	high := CellFromParts(1, 0)
	assert.Equal(t, -1, low.Cmp(high))
	assert.Equal(t, 1, high.Cmp(low))
	assert.Equal(t, 0, low.Cmp(low))
}

func TestCellBytesRoundTrip(t *testing.T) {
	c := CellFromParts(0xAABBCCDD11223344, 0x0102030405060708)
	b := c.Bytes()
	assert.Len(t, b, 16)
	assert.Equal(t, c, CellFromBytes(b[:]))

	dst := make([]byte, 16)
	c.PutBytes(dst)
	assert.Equal(t, b[:], dst)
}
