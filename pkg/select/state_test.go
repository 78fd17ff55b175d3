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

package nodeselect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clusterkit/nodesel/pkg/nodeset"
)

func TestStateEmptyFreshBuild(t *testing.T) {
	s := NewState(4)
	require.True(t, s.Empty())
	require.Equal(t, 4, s.NumNodes())
}

func TestStateCloneIndependence(t *testing.T) {
	s := NewState(2)
	s.Node(0).AllocMemory = 100
	s.Node(0).Parts = append(s.Node(0).Parts, PartCR{Partition: "p", TotJobCnt: 1})
	s.runJobIDs.add(1)
	s.totJobIDs.add(1)

	clone := s.Clone(nil)
	clone.Node(0).AllocMemory = 0
	clone.Node(0).Parts[0].TotJobCnt = 0
	clone.runJobIDs.remove(1)

	require.Equal(t, uint32(100), s.Node(0).AllocMemory)
	require.Equal(t, 1, s.Node(0).Parts[0].TotJobCnt)
	require.True(t, s.IsRunning(1))

	require.Equal(t, uint32(0), clone.Node(0).AllocMemory)
	require.False(t, clone.IsRunning(1))
}

func TestStateResidencyBalancesAfterBeginFini(t *testing.T) {
	fresh := NewState(3)

	s := NewState(3)
	nodes := []NodeInfo{{Index: 0, RealMemory: 1000}, {Index: 1, RealMemory: 1000}, {Index: 2, RealMemory: 1000}}
	job := &JobRequest{ID: 1, Partition: "p", NodeBitmap: nodeset.FromSlice(0, 1), PnMinMemory: 10}
	s.Node(0).Parts = append(s.Node(0).Parts, PartCR{Partition: "p"})
	s.Node(1).Parts = append(s.Node(1).Parts, PartCR{Partition: "p"})

	require.NoError(t, Add(s, nodes, true, job, true, nil))
	require.NoError(t, Remove(s, nodes, true, job, true, nil))

	require.True(t, s.IsResident(1) == false)
	require.Equal(t, fresh.Node(0).AllocMemory, s.Node(0).AllocMemory)
	require.Equal(t, 0, s.Node(0).Parts[0].TotJobCnt)
}
