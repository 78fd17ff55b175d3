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

package main

import "sync"

// trackingCPUEstimator stands in for a cross-node CPU feasibility check:
// an external collaborator the engine only consumes. It keeps a simple
// per-node remaining-CPU count that the CLI's job lifecycle commands
// debit and credit directly, since this harness has no separate live job
// database to derive availability from.
type trackingCPUEstimator struct {
	mu   sync.Mutex
	free []int
}

func newTrackingCPUEstimator(total []int) *trackingCPUEstimator {
	free := make([]int, len(total))
	copy(free, total)
	return &trackingCPUEstimator{free: free}
}

func (e *trackingCPUEstimator) AvailableCPUs(node int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if node < 0 || node >= len(e.free) {
		return 0
	}
	return e.free[node]
}

func (e *trackingCPUEstimator) debit(node, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if node < 0 || node >= len(e.free) {
		return
	}
	e.free[node] -= n
	if e.free[node] < 0 {
		e.free[node] = 0
	}
}

func (e *trackingCPUEstimator) credit(node, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if node < 0 || node >= len(e.free) {
		return
	}
	e.free[node] += n
}

// debitNodes charges n CPUs against every listed node, used when a job
// claims a set of nodes in one step rather than node by node.
func (e *trackingCPUEstimator) debitNodes(nodes []int, n int) {
	for _, i := range nodes {
		e.debit(i, n)
	}
}

// creditNodes is debitNodes' inverse, used when a job releases its nodes.
func (e *trackingCPUEstimator) creditNodes(nodes []int, n int) {
	for _, i := range nodes {
		e.credit(i, n)
	}
}
