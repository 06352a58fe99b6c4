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

// Package aofwire encodes and decodes Orby's append-only operation log
// records (spec.md §4.3). It works entirely in little-endian byte slices —
// a row is "D*16 bytes", an id or lane value is "16 bytes" — so it has no
// dependency on the root package's Cell/Row types and cannot import them
// (the root package imports aofwire, not the reverse).
package aofwire

import (
	"encoding/binary"

	"github.com/bytedance/gopkg/lang/mcache"
)

// Op tags identify the five record kinds on the wire.
const (
	OpInsert    byte = 0x01
	OpPurge     byte = 0x02
	OpUpdate    byte = 0x03
	OpTruncate  byte = 0x04
	OpLaneBatch byte = 0x05
)

// EncodeInsert serializes an Insert record: op byte + row (dim*16 bytes,
// already little-endian encoded by the caller).
func EncodeInsert(row []byte) []byte {
	buf := mcache.Malloc(1 + len(row))
	buf[0] = OpInsert
	copy(buf[1:], row)
	return buf
}

// EncodePurge serializes a Purge record: op byte + u32 column + u128 id.
func EncodePurge(col uint32, id [16]byte) []byte {
	buf := mcache.Malloc(1 + 4 + 16)
	buf[0] = OpPurge
	binary.LittleEndian.PutUint32(buf[1:5], col)
	copy(buf[5:21], id[:])
	return buf
}

// EncodeUpdate serializes an Update record: op byte + u32 column + u128 id
// + row (dim*16 bytes).
func EncodeUpdate(col uint32, id [16]byte, row []byte) []byte {
	buf := mcache.Malloc(1 + 4 + 16 + len(row))
	buf[0] = OpUpdate
	binary.LittleEndian.PutUint32(buf[1:5], col)
	copy(buf[5:21], id[:])
	copy(buf[21:], row)
	return buf
}

// EncodeTruncate serializes a Truncate record: just the op byte.
func EncodeTruncate() []byte {
	buf := mcache.Malloc(1)
	buf[0] = OpTruncate
	return buf
}

// EncodeLaneBatch serializes a LaneBatch record: op byte + u32 lane + u32
// count + count*16 bytes of values.
func EncodeLaneBatch(laneIdx uint32, values []byte) []byte {
	count := uint32(len(values) / 16)
	buf := mcache.Malloc(1 + 4 + 4 + len(values))
	buf[0] = OpLaneBatch
	binary.LittleEndian.PutUint32(buf[1:5], laneIdx)
	binary.LittleEndian.PutUint32(buf[5:9], count)
	copy(buf[9:], values)
	return buf
}

// Free returns a buffer obtained from one of the Encode* functions to the
// shared pool, mirroring gridbuf.WriteBuffer/xbuf.XWriteBuffer's pooling
// discipline.
func Free(buf []byte) {
	mcache.Free(buf)
}
