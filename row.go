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

// Row is a dynamically-sized record: a sequence of exactly D cells, where D
// is fixed at construction of the owning Engine. Callers that want a
// compile-time-checked dimension should use RowN instead.
type Row []Cell

// IsZero reports whether every cell in the row is the tombstone sentinel.
func (r Row) IsZero() bool {
	for _, c := range r {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

// clone returns an independent copy of r, so callers may retain the result
// past the lifetime of the lock that produced it.
func (r Row) clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// RowN is a fixed-dimension row pack, the counterpart of
// PulseCellPack<const N: usize> in the original implementation. It exists
// for callers that know their dimension at compile time. It carries no
// alignment directive or padding, so it is not aligned to 64 bytes; its
// size is N*16 bytes.
type RowN[N rowSize] struct {
	_      [0]func() // prevents accidental comparison via ==
	Values N
}

// rowSize constrains RowN's type parameter to fixed-size Cell arrays.
// Go generics cannot parametrize over the array length directly, so callers
// pick the concrete arity they need, e.g. RowN[[2]Cell] or RowN[[4]Cell].
type rowSize interface {
	~[1]Cell | ~[2]Cell | ~[3]Cell | ~[4]Cell | ~[5]Cell | ~[6]Cell | ~[8]Cell
}

// NewRowN builds a RowN from a fixed-size array of cells.
func NewRowN[N rowSize](values N) RowN[N] {
	return RowN[N]{Values: values}
}

// ToRow flattens a RowN into a dynamically-sized Row for use with the
// dynamic-width API surface (insert_batch, query_raw, ...).
func (r RowN[N]) ToRow() Row {
	switch v := any(r.Values).(type) {
	case [1]Cell:
		return Row(v[:])
	case [2]Cell:
		return Row(v[:])
	case [3]Cell:
		return Row(v[:])
	case [4]Cell:
		return Row(v[:])
	case [5]Cell:
		return Row(v[:])
	case [6]Cell:
		return Row(v[:])
	case [8]Cell:
		return Row(v[:])
	default:
		panic("orby: unreachable rowSize variant")
	}
}
