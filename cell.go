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

import "encoding/binary"

// Cell is Orby's minimal unit of data: a 128-bit unsigned value stored as
// two 64-bit halves. The zero value is the tombstone/empty sentinel.
//
// Cell deliberately does not wrap a big.Int or a 256-bit library type
// (see DESIGN.md): either choice would widen storage past the 16
// bytes-per-cell the Vault's on-disk layout and the row cache-alignment
// invariant both depend on.
type Cell struct {
	Hi uint64
	Lo uint64
}

// CellFromUint64 builds a Cell from a plain 64-bit value.
func CellFromUint64(v uint64) Cell {
	return Cell{Lo: v}
}

// CellFromParts builds a Cell from its high and low 64-bit halves.
func CellFromParts(hi, lo uint64) Cell {
	return Cell{Hi: hi, Lo: lo}
}

// IsZero reports whether the cell is the tombstone/empty sentinel.
func (c Cell) IsZero() bool {
	return c.Hi == 0 && c.Lo == 0
}

// Cmp returns -1, 0, or 1 as c is less than, equal to, or greater than o,
// treating both as unsigned 128-bit integers.
func (c Cell) Cmp(o Cell) int {
	if c.Hi != o.Hi {
		if c.Hi < o.Hi {
			return -1
		}
		return 1
	}
	switch {
	case c.Lo < o.Lo:
		return -1
	case c.Lo > o.Lo:
		return 1
	default:
		return 0
	}
}

// Bytes returns the little-endian 16-byte wire representation of c, matching
// the Vault lane file and AOF record layouts (§6).
func (c Cell) Bytes() [16]byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], c.Lo)
	binary.LittleEndian.PutUint64(buf[8:16], c.Hi)
	return buf
}

// PutBytes writes the little-endian 16-byte wire representation of c into
// dst, which must have length >= 16.
func (c Cell) PutBytes(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], c.Lo)
	binary.LittleEndian.PutUint64(dst[8:16], c.Hi)
}

// CellFromBytes decodes the little-endian 16-byte wire representation
// produced by Bytes/PutBytes.
func CellFromBytes(b []byte) Cell {
	return Cell{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}
}
