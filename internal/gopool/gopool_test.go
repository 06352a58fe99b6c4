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

package gopool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRunsFunctionAsynchronously(t *testing.T) {
	p := New("test", nil)
	var wg sync.WaitGroup
	wg.Add(1)
	var ran int32
	p.Go(func() {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	})
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestSubmitWaitsAndReturnsError(t *testing.T) {
	p := New("test", nil)
	sentinel := errors.New("boom")
	err := p.Submit(context.Background(), func() error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	err = p.Submit(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}

func TestSubmitManyConcurrently(t *testing.T) {
	p := New("test", nil)
	const n = 50
	var wg sync.WaitGroup
	var sum int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			err := p.Submit(context.Background(), func() error {
				atomic.AddInt64(&sum, v)
				return nil
			})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()
	assert.EqualValues(t, n*(n-1)/2, atomic.LoadInt64(&sum))
}

func TestPanicHandlerIsInvokedInsteadOfCrashing(t *testing.T) {
	p := New("test", nil)
	handled := make(chan interface{}, 1)
	p.SetPanicHandler(func(ctx context.Context, r interface{}) {
		handled <- r
	})

	p.Go(func() { panic("expected test panic") })

	select {
	case r := <-handled:
		assert.Equal(t, "expected test panic", r)
	case <-time.After(time.Second):
		t.Fatal("panic handler was never invoked")
	}
}

func TestDefaultOptionIsUsedWhenNilPassed(t *testing.T) {
	p := New("defaults", nil)
	require.NotNil(t, p)
	assert.Equal(t, "defaults", p.name)
	assert.EqualValues(t, 64, p.maxIdle)
}
