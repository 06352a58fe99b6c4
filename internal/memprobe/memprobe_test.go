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

package memprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateFootprint(t *testing.T) {
	assert.EqualValues(t, 16*1024*4, EstimateFootprint(1024, 4))
	assert.EqualValues(t, 0, EstimateFootprint(0, 4))
}

type fakeProbe struct {
	bytes uint64
	err   error
}

func (f fakeProbe) AvailableBytes() (uint64, error) {
	return f.bytes, f.err
}

func TestFakeProbeSatisfiesInterface(t *testing.T) {
	var p Probe = fakeProbe{bytes: 1 << 30}
	b, err := p.AvailableBytes()
	assert.NoError(t, err)
	assert.EqualValues(t, 1<<30, b)
}
