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

package selectmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	nodeselect "github.com/clusterkit/nodesel/pkg/select"
)

type constCPU struct{ n int }

func (c constCPU) AvailableCPUs(int) int { return c.n }

func eightNodes() []nodeselect.NodeInfo {
	nodes := make([]nodeselect.NodeInfo, 8)
	for i := range nodes {
		nodes[i] = nodeselect.NodeInfo{
			Index:          i,
			Name:           "node",
			RealMemory:     65536,
			ConfiguredCPUs: 4,
			DetectedCPUs:   4,
			Partitions:     []nodeselect.PartitionID{"batch"},
			State:          nodeselect.NodeIdle,
		}
	}
	return nodes
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(WithCPUEstimator(constCPU{n: 4}))
	require.NoError(t, m.NodeInit(eightNodes(), false))
	return m
}

func TestManagerBeginFiniIsIdentity(t *testing.T) {
	m := newTestManager(t)

	job := &nodeselect.JobRequest{
		ID: 1, MinNodes: 3, MaxNodes: 3, ReqNodes: 3, MinCPUs: 12,
		Partition: "batch", Contiguous: true,
	}
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7)

	chosen, _, err := m.JobTest(job, in, nodeselect.RunNow, nil)
	require.NoError(t, err)
	require.Equal(t, 3, chosen.Count())

	job.NodeBitmap = chosen
	require.NoError(t, m.JobBegin(job))
	require.NoError(t, m.JobFini(job))

	require.True(t, m.ensureState().Empty())
}

func TestManagerSuspendResumeIsIdentity(t *testing.T) {
	m := newTestManager(t)

	job := &nodeselect.JobRequest{
		ID: 7, MinNodes: 2, MaxNodes: 2, ReqNodes: 2, MinCPUs: 8,
		Partition: "batch", NodeBitmap: nodeset.FromSlice(0, 1),
	}
	require.NoError(t, m.JobBegin(job))

	before := m.ensureState().Node(0).AllocMemory

	require.NoError(t, m.JobSuspend(job))
	require.False(t, m.ensureState().IsRunning(job.ID))
	require.True(t, m.ensureState().IsResident(job.ID))

	require.NoError(t, m.JobResume(job))
	require.True(t, m.ensureState().IsRunning(job.ID))
	require.Equal(t, before, m.ensureState().Node(0).AllocMemory)
}

func TestManagerReconfigureRebuildsFromResidentJobs(t *testing.T) {
	m := newTestManager(t)

	job := &nodeselect.JobRequest{
		ID: 3, MinNodes: 1, MaxNodes: 1, ReqNodes: 1, MinCPUs: 4,
		Partition: "batch", NodeBitmap: nodeset.FromSlice(5),
	}
	require.NoError(t, m.JobBegin(job))

	require.NoError(t, m.Reconfigure())
	require.True(t, m.ensureState().IsRunning(job.ID))
	require.Equal(t, uint32(1), m.ensureState().Node(5).ExclusiveCnt)
}

func TestManagerNodeInfoRoundTrip(t *testing.T) {
	m := newTestManager(t)
	m.nodes[2].State = nodeselect.NodeAllocated
	m.nodes[2].ConfiguredCPUs = 4

	require.NoError(t, m.NodeInfoSetAll(m.now()))

	v, err := m.NodeInfoGet(2, nodeselect.Subcount, nodeselect.NodeAllocated)
	require.NoError(t, err)
	require.Equal(t, 4, v)

	v, err = m.NodeInfoGet(2, nodeselect.SubgroupSize, nodeselect.NodeAllocated)
	require.NoError(t, err)
	require.Equal(t, 0, v)
}

func TestManagerResvTestNoTopology(t *testing.T) {
	m := newTestManager(t)
	avail := nodeset.FromSlice(0, 1, 2, 3)
	chosen := m.ResvTest(avail, 2)
	require.Equal(t, 2, chosen.Count())
}
