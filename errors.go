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

import "fmt"

// Code categorizes the failure modes an Orby operation can surface.
type Code string

const (
	CodeInsufficientMemory Code = "insufficient_memory"
	CodeLaneCountMismatch  Code = "lane_count_mismatch"
	CodeConfigMismatch     Code = "config_mismatch"
	CodeStorageFull        Code = "storage_full"
	CodeInconsistentState  Code = "inconsistent_state"
	CodeInvalidFormat      Code = "invalid_format"
	CodeIOError            Code = "io_error"
	CodeCustom             Code = "custom"
)

// Error is the structured error type returned by every Orby operation that
// can fail. Op names the operation that failed and Name the ring/silo it
// failed against; Inner carries the underlying cause where one exists.
type Error struct {
	Op    string
	Name  string
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("orby: %s (%s '%s'): %s", e.Op, e.Code, e.Name, e.Msg)
	}
	return fmt.Sprintf("orby: %s (%s): %s", e.Op, e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an *Error carrying the same Code, so callers
// can write errors.Is(err, &orby.Error{Code: orby.CodeStorageFull}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Code == "" {
		return false
	}
	return e.Code == te.Code
}

func newError(op, name string, code Code, msg string) *Error {
	return &Error{Op: op, Name: name, Code: code, Msg: msg}
}

func wrapIOError(op, name string, err error) *Error {
	return &Error{Op: op, Name: name, Code: CodeIOError, Msg: err.Error(), Inner: err}
}

func errLaneCountMismatch(op, name string, expected, found int) *Error {
	return newError(op, name, CodeLaneCountMismatch,
		fmt.Sprintf("expected %d lanes, got %d", expected, found))
}

func errStorageFull(op, name string, capacity int) *Error {
	return newError(op, name, CodeStorageFull,
		fmt.Sprintf("capacity is %d", capacity))
}

func errConfigMismatch(op, name, reason string) *Error {
	return newError(op, name, CodeConfigMismatch, reason)
}

func errInconsistentState(op, name, msg string) *Error {
	return newError(op, name, CodeInconsistentState, msg)
}

func errInvalidFormat(op, name, msg string) *Error {
	return newError(op, name, CodeInvalidFormat, msg)
}

func errInsufficientMemory(op, name string, requestedMB, availableMB uint64) *Error {
	return newError(op, name, CodeInsufficientMemory,
		fmt.Sprintf("requested %dMB, but only %dMB available", requestedMB, availableMB))
}
