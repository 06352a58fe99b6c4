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
	"os"
)

// Msg is one unit of work sent to the background appender: a fully encoded
// record obtained from one of the Encode* functions. The appender takes
// ownership and calls Free on it once written.
type Msg struct {
	Buf []byte
}

// Appender owns the AOF file handle and drains a bounded channel of
// pre-encoded records on a single goroutine, matching spec.md §4.3's
// "single background writer, bounded channel, soft-drop on overflow"
// contract. The channel itself (with its drop-and-log behavior on a full
// buffer) lives in the caller, which is why Appender only exposes Run over
// a receive-only channel: Appender does not decide whether to drop, it only
// ever writes what it is handed.
type Appender struct {
	path string
	file *os.File

	// onError receives any I/O error encountered while writing or
	// flushing. The appender keeps running after reporting one: a single
	// bad write must not silently stop future appends (spec.md §7, I/O
	// errors are reported, not fatal to the process).
	onError func(error)
}

// NewAppender returns an Appender that will lazily create/open path on the
// first record it is asked to write.
func NewAppender(path string, onError func(error)) *Appender {
	if onError == nil {
		onError = func(error) {}
	}
	return &Appender{path: path, onError: onError}
}

// Run drains msgs until the channel is closed, writing and flushing each
// record in turn, then closes the underlying file. It is meant to be
// launched as `go appender.Run(ch)` exactly once.
func (a *Appender) Run(msgs <-chan Msg) {
	defer a.close()
	for m := range msgs {
		a.write(m.Buf)
		Free(m.Buf)
	}
}

func (a *Appender) write(buf []byte) {
	if err := a.ensureOpen(); err != nil {
		a.onError(err)
		return
	}
	if _, err := a.file.Write(buf); err != nil {
		a.onError(err)
		return
	}
	if err := a.file.Sync(); err != nil {
		a.onError(err)
	}
}

func (a *Appender) ensureOpen() error {
	if a.file != nil {
		return nil
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	a.file = f
	return nil
}

func (a *Appender) close() {
	if a.file != nil {
		_ = a.file.Close()
		a.file = nil
	}
}

// ReadAll loads the entire AOF file at path into memory for replay. A
// missing file is treated as "empty log", not an error, since a silo that
// has never written a record has nothing to replay.
func ReadAll(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return buf, err
}
