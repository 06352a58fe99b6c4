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

import "github.com/orbydb/orby/internal/memprobe"

// checkMemoryBudget is the builder's preflight check (spec.md §4.8
// "supplemented feature"): refuse to allocate D lanes of C cells if doing
// so would use more than usageRatio of the host's currently available
// memory. usageRatio <= 0 disables the check entirely.
func checkMemoryBudget(probe memprobe.Probe, name string, capacity, laneCount int, usageRatio float64) error {
	if usageRatio <= 0 {
		return nil
	}
	required := memprobe.EstimateFootprint(capacity, laneCount)
	available, err := probe.AvailableBytes()
	if err != nil {
		// A failed probe is not itself fatal: without a reading we cannot
		// enforce the budget, so we proceed rather than block
		// construction on an unrelated syscall failure.
		return nil
	}
	limit := uint64(float64(available) * usageRatio)
	if limit > 0 && required > limit {
		return errInsufficientMemory("New", name, required/1024/1024, available/1024/1024)
	}
	return nil
}
