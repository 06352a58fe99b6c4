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

// Package vault implements Orby's on-disk persistence layer (spec.md §4.4):
// one fixed-size file per lane plus a 4 KiB header file, committed with
// strict lanes-before-header ordering. Like aofwire, it operates on raw
// []byte/uint64 values rather than the root package's Cell/Row types, to
// avoid an import cycle (the root package imports vault, not vice versa).
package vault

import (
	"encoding/binary"
	"fmt"
	"os"
)

// HeaderSize is the fixed size of header.bin. The remainder past the
// fields below is reserved for future use and left zeroed.
const HeaderSize = 4096

// Magic identifies an Orby Vault header, matching the 16-byte magic the
// original format stamps at offset 0.
var Magic = [16]byte{'O', 'R', 'B', 'Y', '_', 'D', 'A', 'T', 'A', '_', 'V', '1', '_', 'L', 'E', ' '}

const (
	offMagic    = 0
	offCapacity = 16
	offLen      = 24
	offCursor   = 32
	offLaneCnt  = 40
)

// Header is the decoded contents of header.bin.
type Header struct {
	Capacity  uint64
	Len       uint64
	Cursor    uint64
	LaneCount uint32
}

// Encode renders h into a HeaderSize-byte block ready to write to
// header.bin.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[offMagic:offMagic+16], Magic[:])
	binary.LittleEndian.PutUint64(buf[offCapacity:offCapacity+8], h.Capacity)
	binary.LittleEndian.PutUint64(buf[offLen:offLen+8], h.Len)
	binary.LittleEndian.PutUint64(buf[offCursor:offCursor+8], h.Cursor)
	binary.LittleEndian.PutUint32(buf[offLaneCnt:offLaneCnt+4], h.LaneCount)
	return buf
}

// DecodeHeader parses a HeaderSize-byte block, validating the magic.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderSize {
		return Header{}, fmt.Errorf("vault: header must be %d bytes, got %d", HeaderSize, len(buf))
	}
	if string(buf[offMagic:offMagic+16]) != string(Magic[:]) {
		return Header{}, fmt.Errorf("vault: invalid magic in header.bin")
	}
	return Header{
		Capacity:  binary.LittleEndian.Uint64(buf[offCapacity : offCapacity+8]),
		Len:       binary.LittleEndian.Uint64(buf[offLen : offLen+8]),
		Cursor:    binary.LittleEndian.Uint64(buf[offCursor : offCursor+8]),
		LaneCount: binary.LittleEndian.Uint32(buf[offLaneCnt : offLaneCnt+4]),
	}, nil
}

// writeHeaderFields rewrites only the len/cursor fields of an already-open
// header file with two positioned writes and a sync, matching
// commit_vault_header's narrow in-place update (the
// magic/capacity/lane-count fields never change after init).
func writeHeaderFields(f *os.File, length, cursor uint64) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], length)
	if _, err := f.WriteAt(lenBuf[:], offLen); err != nil {
		return err
	}
	var curBuf [8]byte
	binary.LittleEndian.PutUint64(curBuf[:], cursor)
	if _, err := f.WriteAt(curBuf[:], offCursor); err != nil {
		return err
	}
	return f.Sync()
}
