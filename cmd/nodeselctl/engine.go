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

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/clusterkit/nodesel/pkg/healthcheck"
	nodeselect "github.com/clusterkit/nodesel/pkg/select"
	"github.com/clusterkit/nodesel/pkg/select/selectmgr"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

// engine bundles a Manager with the stand-ins for its external
// collaborators (CPU estimator, GRES plugin) and the fixture it was built
// from, so the CLI's subcommands can load a cluster once and exercise the
// real entry points against it.
type engine struct {
	mgr     *selectmgr.Manager
	cpuEst  *trackingCPUEstimator
	fixture *clusterFixture
	checker *healthcheck.Checker
}

// nodeProber adapts the engine's CPU tracker into a healthcheck.NodeProber
// for the demo: a node is "unhealthy" once its tracked free CPU count goes
// negative, which cannot happen through normal debits and would indicate
// a bookkeeping bug surfaced by the probe loop.
type nodeProber struct {
	est *trackingCPUEstimator
}

func (p nodeProber) Probe(nodeIndex int) error {
	if p.est.AvailableCPUs(nodeIndex) < 0 {
		return errors.Errorf("node %d: negative free CPU count", nodeIndex)
	}
	return nil
}

// newEngine builds a Manager from a cluster fixture, wiring in a switch
// tree when the fixture declares one, and replays the fixture's resident
// jobs through JobBegin (and JobSuspend for those marked suspended) so
// the engine starts from a populated cluster rather than an empty one.
func newEngine(f *clusterFixture) (*engine, error) {
	nodes := f.nodeInfos()

	total := make([]int, len(nodes))
	for i := range nodes {
		total[i] = nodes[i].CPUCount(f.FastSchedule)
	}
	cpuEst := newTrackingCPUEstimator(total)

	var tree *switchtree.Tree
	if spec := f.switchSpec(); spec != nil {
		t, err := switchtree.Build(*spec)
		if err != nil {
			return nil, errors.Wrap(err, "build switch tree")
		}
		tree = t
	}

	opts := []selectmgr.Option{
		selectmgr.WithCPUEstimator(cpuEst),
		selectmgr.WithGRESPlugin(simpleGRES{}),
		selectmgr.WithPartitionLimits(f.defaultPartitionLimits()),
	}
	if tree != nil {
		opts = append(opts, selectmgr.WithSwitchTree(tree))
	}

	mgr := selectmgr.NewManager(opts...)
	if err := mgr.NodeInit(nodes, f.FastSchedule); err != nil {
		return nil, errors.Wrap(err, "node_init")
	}

	e := &engine{mgr: mgr, cpuEst: cpuEst, fixture: f}

	for _, fj := range f.Jobs {
		job := fj.request()
		if err := mgr.JobBegin(job); err != nil {
			return nil, errors.Wrapf(err, "begin resident job %d", fj.ID)
		}
		cpuEst.debitNodes(fj.Nodes, fj.CPUs)
		if fj.Suspended {
			if err := mgr.JobSuspend(job); err != nil {
				return nil, errors.Wrapf(err, "suspend resident job %d", fj.ID)
			}
		}
	}

	return e, nil
}

// startHealthcheck wires the healthcheck companion goroutine up to the
// engine's CPU tracker; its drain action only prints the node and the
// reason -- a placeholder standing in for whatever the surrounding
// scheduler does to pull a node out of rotation.
func (e *engine) startHealthcheck(interval int) {
	e.checker = healthcheck.New(
		secondsToDuration(interval),
		nodeProber{est: e.cpuEst},
		func(nodeIndex int, reason error) {
			fmt.Printf("healthcheck: draining node %d: %v\n", nodeIndex, reason)
		},
	)
	nodes := make([]int, len(e.fixture.Nodes))
	for i := range nodes {
		nodes[i] = i
	}
	e.checker.SetNodes(nodes)
	e.checker.Start()
}

func (e *engine) stopHealthcheck() {
	if e.checker != nil {
		e.checker.Stop()
	}
}

// jobRequestFromFlags assembles a pending JobRequest from the test/resv
// subcommands' flags, the CLI's counterpart of a scheduler parsing a
// submitted job description into the engine's consumed JobRequest shape.
func jobRequestFromFlags(id uint32, minNodes, maxNodes, minCPUs int, partition string, shared bool, memPerNode uint32) *nodeselect.JobRequest {
	sh := uint16(0)
	if shared {
		sh = 1
	}
	return &nodeselect.JobRequest{
		ID:          nodeselect.JobID(id),
		MinNodes:    minNodes,
		MaxNodes:    maxNodes,
		ReqNodes:    maxNodes,
		MinCPUs:     minCPUs,
		Partition:   nodeselect.PartitionID(partition),
		Shared:      sh,
		PnMinMemory: memPerNode,
	}
}
