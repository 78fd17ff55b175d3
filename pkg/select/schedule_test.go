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

package nodeselect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	"github.com/clusterkit/nodesel/pkg/select"
)

var scheduleTestNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSchedulePreemptionRetry(t *testing.T) {
	nodes := makeNodes(4, 4, 1000)
	state := nodeselect.NewState(4)
	for i := 0; i < 4; i++ {
		state.Node(i).ExclusiveCnt = 1
	}

	jobA := &nodeselect.JobRequest{ID: 1, NodeBitmap: nodeset.FromSlice(0, 1, 2, 3)}
	jobB := &nodeselect.JobRequest{ID: 2, MinNodes: 2, MaxNodes: 2, ReqNodes: 2, MinCPUs: 8}

	in := &nodeselect.ScheduleInput{
		State:        state,
		Nodes:        nodes,
		FastSchedule: true,
		CPUEst:       flatCPUs{per: 4},
		Now:          scheduleTestNow,
	}

	preempt := []nodeselect.PreemptCandidate{{ID: jobA.ID, NodeBitmap: jobA.NodeBitmap}}
	candidates := nodeset.FromSlice(0, 1, 2, 3)

	chosen, victims, err := nodeselect.Schedule(in, jobB, candidates, nodeselect.RunNow, preempt)
	require.NoError(t, err)
	require.Equal(t, 2, chosen.Count())
	require.True(t, chosen.IsSubsetOf(jobA.NodeBitmap))
	require.Len(t, victims, 1)
	require.Equal(t, jobA.ID, victims[0].ID)
}

func TestScheduleRunNowFailsWithoutPreemptionCandidates(t *testing.T) {
	nodes := makeNodes(4, 4, 1000)
	state := nodeselect.NewState(4)
	for i := 0; i < 4; i++ {
		state.Node(i).ExclusiveCnt = 1
	}

	job := &nodeselect.JobRequest{ID: 2, MinNodes: 2, MaxNodes: 2, ReqNodes: 2}
	in := &nodeselect.ScheduleInput{
		State: state, Nodes: nodes, FastSchedule: true,
		CPUEst: flatCPUs{per: 4}, Now: scheduleTestNow,
	}

	_, _, err := nodeselect.Schedule(in, job, nodeset.FromSlice(0, 1, 2, 3), nodeselect.RunNow, nil)
	require.Error(t, err)
}

func TestScheduleWillRunOrdersBySimulatedEndTime(t *testing.T) {
	nodes := makeNodes(4, 4, 1000)
	state := nodeselect.NewState(4)
	for i := 0; i < 4; i++ {
		state.Node(i).ExclusiveCnt = 1
	}

	jobX := &nodeselect.JobRequest{ID: 10, NodeBitmap: nodeset.FromSlice(0, 1), EndTime: scheduleTestNow.Add(10 * time.Minute)}
	jobY := &nodeselect.JobRequest{ID: 11, NodeBitmap: nodeset.FromSlice(2, 3), EndTime: scheduleTestNow.Add(5 * time.Minute)}

	pending := &nodeselect.JobRequest{ID: 20, MinNodes: 2, MaxNodes: 2, ReqNodes: 2, MinCPUs: 8}

	in := &nodeselect.ScheduleInput{
		State:        state,
		Nodes:        nodes,
		FastSchedule: true,
		CPUEst:       flatCPUs{per: 4},
		Now:          scheduleTestNow,
		Resident:     []*nodeselect.JobRequest{jobX, jobY},
	}

	chosen, victims, err := nodeselect.Schedule(in, pending, nodeset.FromSlice(0, 1, 2, 3), nodeselect.WillRun, nil)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, chosen.Members())
	require.Empty(t, victims)
	require.True(t, pending.StartTime.Equal(jobY.EndTime))
}

func TestScheduleTestOnlyIgnoresMemoryState(t *testing.T) {
	nodes := makeNodes(2, 4, 100)
	state := nodeselect.NewState(2)
	state.Node(0).AllocMemory = 100
	state.Node(1).AllocMemory = 100

	job := &nodeselect.JobRequest{MinNodes: 1, MaxNodes: 1, ReqNodes: 1, PnMinMemory: 100}
	in := &nodeselect.ScheduleInput{
		State: state, Nodes: nodes, FastSchedule: true,
		CPUEst: flatCPUs{per: 4}, Now: scheduleTestNow,
	}

	chosen, _, err := nodeselect.Schedule(in, job, nodeset.FromSlice(0, 1), nodeselect.TestOnly, nil)
	require.NoError(t, err)
	require.Equal(t, 1, chosen.Count())
}
