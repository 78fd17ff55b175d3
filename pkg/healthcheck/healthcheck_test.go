// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package healthcheck

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	mu   sync.Mutex
	fail map[int]bool
}

func (p *fakeProber) Probe(node int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[node] {
		return errors.New("clone path stat failed")
	}
	return nil
}

func TestCheckerDrainsUnhealthyNodes(t *testing.T) {
	prober := &fakeProber{fail: map[int]bool{2: true}}

	drained := make(chan int, 8)
	c := New(10*time.Millisecond, prober, func(node int, reason error) {
		drained <- node
	})
	c.SetNodes([]int{0, 1, 2, 3})
	c.Start()
	defer c.Stop()

	select {
	case node := <-drained:
		require.Equal(t, 2, node)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for unhealthy node to be drained")
	}
}

func TestCheckerStopIsIdempotentWithoutStart(t *testing.T) {
	c := New(time.Second, &fakeProber{}, nil)
	c.Stop()
	c.Stop()
}

func TestCheckerStartTwiceIsNoop(t *testing.T) {
	c := New(time.Millisecond, &fakeProber{}, nil)
	c.Start()
	c.Start()
	c.Stop()
}

func TestCheckerDrainsEveryFailureDespiteLogRateLimit(t *testing.T) {
	prober := &fakeProber{fail: map[int]bool{5: true}}

	drained := make(chan int, 64)
	c := New(5*time.Millisecond, prober, func(node int, reason error) {
		drained <- node
	})
	c.SetNodes([]int{5})
	c.Start()
	defer c.Stop()

	// The probe-failure warning is rate-limited, but drain must still run
	// on every failed poll: a flapping node cannot be left undrained just
	// because its log line is being throttled.
	seen := 0
	timeout := time.After(time.Second)
	for seen < 3 {
		select {
		case node := <-drained:
			require.Equal(t, 5, node)
			seen++
		case <-timeout:
			t.Fatalf("only saw %d drains before timing out", seen)
		}
	}
}
