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
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/orbydb/orby/internal/aofwire"
	"github.com/orbydb/orby/internal/gopool"
	"github.com/orbydb/orby/internal/memprobe"
	"github.com/orbydb/orby/internal/vault"
)

// New builds an Engine with the given core settings and otherwise
// default configuration, the convenience constructor spec.md §6 names
// alongside the full Builder surface.
func New(name string, capacity, laneCount int, saveMode SaveMode, logicMode LogicMode) (*Engine, error) {
	return NewBuilder(name).
		Capacity(capacity).
		LaneCount(laneCount).
		StorageMode(saveMode).
		WithLogicMode(logicMode).
		Build()
}

// Builder assembles an Engine with a fluent configuration surface
// (spec.md §4.6 "Configuration"). It has no Autoload or MemoryLimit
// setting: an existing Vault is loaded only through RestorePath, and the
// memory preflight is bounded only by CapacityUsageRatio.
type Builder struct {
	name               string
	capacity           int
	laneCount          int
	saveMode           SaveMode
	logicMode          LogicMode
	compaction         bool
	aofEnabled         bool
	restorePath        string
	capacityUsageRatio float64
	strictCheck        bool
	logger             *log.Logger
	memProbe           memprobe.Probe
}

// NewBuilder returns a Builder with the original's defaults: capacity
// 10,000, 2 lanes, memory-only, ring-buffer logic, no compaction, no AOF.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:               name,
		capacity:           10_000,
		laneCount:          2,
		saveMode:           MemoryOnly(),
		logicMode:          LogicRingBuffer,
		capacityUsageRatio: 0.8,
		strictCheck:        true,
		memProbe:           memprobe.SysinfoProbe{},
	}
}

// Capacity sets the number of rows a lane holds before the ring starts
// overwriting the oldest entry.
func (b *Builder) Capacity(n int) *Builder {
	b.capacity = n
	return b
}

// LaneCount sets the number of dimensions (D) every row must carry.
func (b *Builder) LaneCount(n int) *Builder {
	b.laneCount = n
	return b
}

// StorageMode sets the persistence mode (MemoryOnly or VaultMode).
func (b *Builder) StorageMode(mode SaveMode) *Builder {
	b.saveMode = mode
	return b
}

// WithLogicMode sets the indexing discipline (only LogicRingBuffer exists
// today).
func (b *Builder) WithLogicMode(mode LogicMode) *Builder {
	b.logicMode = mode
	return b
}

// Compaction enables packed (slide-and-fill) delete semantics instead of
// sparse (zero-and-leave-a-gap) deletes.
func (b *Builder) Compaction(enabled bool) *Builder {
	b.compaction = enabled
	return b
}

// AOFEnabled turns on the append-only operation log.
func (b *Builder) AOFEnabled(enabled bool) *Builder {
	b.aofEnabled = enabled
	return b
}

// RestorePath points the builder at a restore source: a path ending in
// ".aof" replays an operation log, a path ending in a recognized
// snapshot extension restores a coalesced snapshot file, and a directory
// is treated as a Vault.
func (b *Builder) RestorePath(path string) *Builder {
	b.restorePath = path
	return b
}

// CapacityUsageRatio bounds the memory preflight check (0 disables it,
// clamped to [0, 1]).
func (b *Builder) CapacityUsageRatio(ratio float64) *Builder {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	b.capacityUsageRatio = ratio
	return b
}

// StrictCheck records the strict-check setting on the Builder. Vault
// restore validates lane file sizes against the header whatever this is
// set to; turning it off does not skip that check.
func (b *Builder) StrictCheck(enabled bool) *Builder {
	b.strictCheck = enabled
	return b
}

// Logger overrides the engine's diagnostic logger (default log.Default()).
func (b *Builder) Logger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// MemoryProbe overrides the memory preflight's Probe implementation,
// mainly for tests that want deterministic AvailableBytes().
func (b *Builder) MemoryProbe(p memprobe.Probe) *Builder {
	b.memProbe = p
	return b
}

// Build constructs the Engine, performing the memory preflight, wiring
// the AOF when AOFEnabled is set and the Vault per the configured
// SaveMode, and replaying/restoring from
// RestorePath if one was set.
func (b *Builder) Build() (*Engine, error) {
	if err := checkMemoryBudget(b.memProbe, b.name, b.capacity, b.laneCount, b.capacityUsageRatio); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{
		Logger:     logger,
		name:       b.name,
		capacity:   b.capacity,
		laneCount:  b.laneCount,
		compaction: b.compaction,
		s:          newSilo(b.name, b.capacity, b.laneCount, b.compaction, b.logicMode, b.saveMode),

		scanPool:    gopool.New(b.name+"-scan", nil),
		persistPool: gopool.New(b.name+"-persist", nil),
	}

	if b.aofEnabled {
		aofPath := b.name + ".aof"
		e.aofPath = aofPath
		e.aofCh = make(chan aofwire.Msg, 1024)
		appender := aofwire.NewAppender(aofPath, func(err error) {
			e.logf("AOF error: %v", err)
		})
		go appender.Run(e.aofCh)
	}

	if b.saveMode.Kind == SaveModeVault {
		dir := b.saveMode.Dir
		if dir == "" {
			dir = b.name + "_vault"
		}
		if b.restorePath == "" {
			v, err := vault.Init(dir, b.capacity, b.laneCount)
			if err != nil {
				return nil, wrapIOError("Build", b.name, err)
			}
			e.vlt = v
		}
	}

	if b.restorePath != "" {
		if err := b.restore(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (b *Builder) restore(e *Engine) error {
	path := b.restorePath
	info, statErr := os.Stat(path)
	if statErr != nil {
		return wrapIOError("Build", b.name, statErr)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".aof":
		return e.ReplayAOF(path)
	case ext == ".orby":
		return e.RestoreFromSnapshot(path)
	case info.IsDir():
		v, header, err := vault.Open(path, b.capacity, b.laneCount)
		if err != nil {
			return wrapIOError("Build", b.name, err)
		}
		e.vlt = v
		lanes, err := v.ReadLanesParallel()
		if err != nil {
			return wrapIOError("Build", b.name, err)
		}
		e.mu.Lock()
		for d, buf := range lanes {
			for i := 0; i < e.s.capacity; i++ {
				e.s.lanes[d].buf[i] = CellFromBytes(buf[i*16 : (i+1)*16])
			}
		}
		e.s.len = int(header.Len)
		e.s.cursor = int(header.Cursor)
		e.mu.Unlock()
		return nil
	default:
		return errInvalidFormat("Build", b.name, "unrecognized restore path: "+path)
	}
}
