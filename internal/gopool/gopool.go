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

// Package gopool provides a small self-growing worker pool, used by Orby
// for two concerns named in spec.md §5: a data-parallel scan pool (fire
// and forget, matching each ringQueryRaw/ringFindIndices chunk to a
// worker) and a blocking Vault-persistence pool (Submit waits for
// completion, since a commit's caller needs the error before it can move
// on to the header update).
package gopool

import (
	"context"
	"log"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Option configures a Pool's worker lifecycle.
type Option struct {
	// MaxIdleWorkers is the max idle workers kept around for waiting
	// tasks; workers beyond this exit as soon as their queue drains.
	MaxIdleWorkers int

	// WorkerMaxAge bounds how long an idle worker stays parked before
	// exiting, so a burst of scan/commit traffic doesn't pin goroutines
	// forever.
	WorkerMaxAge time.Duration

	// TaskChanBuffer is the task queue depth. If full, Go falls back to
	// an unpooled goroutine rather than blocking the caller.
	TaskChanBuffer int
}

// DefaultOption returns sensible defaults for a small embedded engine.
func DefaultOption() *Option {
	return &Option{
		MaxIdleWorkers: 64,
		WorkerMaxAge:   time.Minute,
		TaskChanBuffer: 256,
	}
}

type task struct {
	ctx context.Context
	f   func()
}

// Pool is a self-growing worker pool for background work.
type Pool struct {
	name string

	workers int32
	maxIdle int32
	maxage  int64 // milliseconds

	panicHandler func(ctx context.Context, r interface{})

	tasks     chan task
	unixMilli int64
}

// New creates a named Pool. A nil Option uses DefaultOption.
func New(name string, o *Option) *Pool {
	if o == nil {
		o = DefaultOption()
	}
	return &Pool{
		name:    name,
		tasks:   make(chan task, o.TaskChanBuffer),
		maxage:  o.WorkerMaxAge.Milliseconds(),
		maxIdle: int32(o.MaxIdleWorkers),
	}
}

// Go runs f in the background without waiting for it to finish.
func (p *Pool) Go(f func()) {
	p.CtxGo(context.Background(), f)
}

// CtxGo runs f in the background, passing ctx to the panic handler if f
// panics.
func (p *Pool) CtxGo(ctx context.Context, f func()) {
	select {
	case p.tasks <- task{ctx: ctx, f: f}:
	default:
		go p.runTask(ctx, f)
		return
	}
	if len(p.tasks) == 0 {
		return
	}
	go p.runWorker()
}

// Submit runs f in the pool and blocks until it completes, returning
// whatever error f produced. This is the shape the Vault commit path
// needs: the caller must know the commit succeeded before issuing the
// header update that follows it.
func (p *Pool) Submit(ctx context.Context, f func() error) error {
	done := make(chan error, 1)
	p.CtxGo(ctx, func() {
		done <- f()
	})
	return <-done
}

// SetPanicHandler overrides the default log.Printf-based panic recovery.
func (p *Pool) SetPanicHandler(f func(ctx context.Context, r interface{})) {
	p.panicHandler = f
}

func (p *Pool) runTask(ctx context.Context, f func()) {
	defer func(p *Pool, ctx context.Context) {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(ctx, r)
			} else {
				log.Printf("gopool: panic in pool %s: %v: %s", p.name, r, debug.Stack())
			}
		}
	}(p, ctx)
	f()
}

// CurrentWorkers reports the number of live workers; runTicker uses it to
// stop once no workers remain.
func (p *Pool) CurrentWorkers() int {
	return int(atomic.LoadInt32(&p.workers))
}

func (p *Pool) runWorker() {
	id := atomic.AddInt32(&p.workers, 1)
	defer atomic.AddInt32(&p.workers, -1)

	if id > p.maxIdle {
		for {
			select {
			case t := <-p.tasks:
				p.runTask(t.ctx, t.f)
			default:
				return
			}
		}
	}

	createdAt := time.Now().UnixMilli()
	for t := range p.tasks {
		p.runTask(t.ctx, t.f)

		now := atomic.LoadInt64(&p.unixMilli)
		if now == 0 {
			now = time.Now().UnixMilli()
			if atomic.CompareAndSwapInt64(&p.unixMilli, 0, now) {
				go p.runTicker()
			}
		}
		if now-createdAt > p.maxage {
			return
		}
	}
}

var noopTask = task{f: func() {}}

func (p *Pool) runTicker() {
	defer atomic.StoreInt64(&p.unixMilli, 0)

	d := time.Duration(p.maxage) * time.Millisecond / 100
	if d < time.Millisecond {
		d = time.Millisecond
	}

	t := time.NewTicker(d)
	defer t.Stop()

	for now := range t.C {
		if p.CurrentWorkers() == 0 {
			return
		}
		atomic.StoreInt64(&p.unixMilli, now.UnixMilli())
		p.tasks <- noopTask
	}
}
