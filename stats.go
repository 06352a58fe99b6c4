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

import "sync/atomic"

// Stats is a snapshot of an Engine's lifetime operation counters, a
// supplemented diagnostic surface (spec.md §4.2) not present in the
// distilled spec but needed to operate the engine in production.
type Stats struct {
	Inserts      uint64
	Updates      uint64
	Purges       uint64
	Deletes      uint64
	AOFDrops     uint64
	VaultCommits uint64
}

// statCounters holds the live atomic counters backing Stats().
type statCounters struct {
	inserts      atomic.Uint64
	updates      atomic.Uint64
	purges       atomic.Uint64
	deletes      atomic.Uint64
	aofDrops     atomic.Uint64
	vaultCommits atomic.Uint64
}

func (s *statCounters) addInsert()      { s.inserts.Add(1) }
func (s *statCounters) addUpdate()      { s.updates.Add(1) }
func (s *statCounters) addPurge()       { s.purges.Add(1) }
func (s *statCounters) addDelete()      { s.deletes.Add(1) }
func (s *statCounters) addAOFDrop()     { s.aofDrops.Add(1) }
func (s *statCounters) addVaultCommit() { s.vaultCommits.Add(1) }

func (s *statCounters) snapshot() Stats {
	return Stats{
		Inserts:      s.inserts.Load(),
		Updates:      s.updates.Load(),
		Purges:       s.purges.Load(),
		Deletes:      s.deletes.Load(),
		AOFDrops:     s.aofDrops.Load(),
		VaultCommits: s.vaultCommits.Load(),
	}
}
