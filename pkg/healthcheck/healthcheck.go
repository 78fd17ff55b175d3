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

// Package healthcheck implements an optional periodic per-node health
// probe, modeled as its own supervised goroutine with its own ticker and
// its own mutex. It shares no state with the selection engine; it only
// ever calls the drain-nodes collaborator it is constructed with.
package healthcheck

import (
	"sync"
	"time"

	logger "github.com/clusterkit/nodesel/pkg/log"
)

var log = logger.NewLogger("healthcheck")

// probeLog rate-limits the per-node probe-failure warning: a single
// flapping node would otherwise log once per tick for as long as it stays
// unhealthy.
var probeLog = logger.RateLimit(log, logger.Interval(time.Minute))

// NodeProber polls a single node's clone-path (or equivalent liveness
// check) and reports an error when the node should be considered
// unhealthy. The real implementation lives outside this module; this is
// the external collaborator's interface.
type NodeProber interface {
	Probe(nodeIndex int) error
}

// DrainFunc is invoked for a node whose probe failed. It is the only
// interaction this package has with the rest of the system.
type DrainFunc func(nodeIndex int, reason error)

// Checker runs NodeProber.Probe against a configured set of nodes on a
// fixed interval, invoking DrainFunc for every node that fails. It never
// touches select.State.
type Checker struct {
	mu       sync.Mutex
	interval time.Duration
	prober   NodeProber
	drain    DrainFunc
	nodes    []int

	stop    chan struct{}
	stopped chan struct{}
}

// New creates a Checker. It does not start polling until Start is called.
func New(interval time.Duration, prober NodeProber, drain DrainFunc) *Checker {
	return &Checker{
		interval: interval,
		prober:   prober,
		drain:    drain,
	}
}

// SetNodes replaces the set of node indices this checker polls.
func (c *Checker) SetNodes(nodes []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append([]int(nil), nodes...)
}

// Start launches the checker's detached polling goroutine. Calling Start
// twice without an intervening Stop is a no-op.
func (c *Checker) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.loop(c.stop, c.stopped)
}

// Stop terminates the polling goroutine and waits for it to exit.
func (c *Checker) Stop() {
	c.mu.Lock()
	stop := c.stop
	stopped := c.stopped
	c.stop = nil
	c.stopped = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

func (c *Checker) loop(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

func (c *Checker) pollOnce() {
	c.mu.Lock()
	nodes := append([]int(nil), c.nodes...)
	c.mu.Unlock()

	for _, n := range nodes {
		if err := c.prober.Probe(n); err != nil {
			probeLog.Warn("node %d failed health probe: %v", n, err)
			if c.drain != nil {
				c.drain(n, err)
			}
		}
	}
}
