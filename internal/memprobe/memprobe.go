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

// Package memprobe implements the builder's memory preflight check
// (spec.md §4.8 "supplemented feature"): before allocating D lanes of C
// cells, estimate whether the host has enough free memory and refuse to
// construct an engine that would not fit.
package memprobe

import "golang.org/x/sys/unix"

// Probe reports available system memory. It is an interface so builder
// tests can inject a fake without depending on the actual host's memory.
type Probe interface {
	AvailableBytes() (uint64, error)
}

// SysinfoProbe implements Probe via the sysinfo(2) syscall.
type SysinfoProbe struct{}

// AvailableBytes returns free RAM as reported by sysinfo(2), scaled by the
// kernel's reported unit size.
func (SysinfoProbe) AvailableBytes() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Freeram) * uint64(info.Unit), nil
}

// EstimateFootprint returns the byte footprint of D lanes of C 16-byte
// cells, the quantity the preflight check compares against AvailableBytes.
func EstimateFootprint(capacity, laneCount int) uint64 {
	return uint64(capacity) * uint64(laneCount) * 16
}
