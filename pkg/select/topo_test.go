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

	"github.com/stretchr/testify/require"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	"github.com/clusterkit/nodesel/pkg/select"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

func buildTwoLeafTree(t *testing.T) *switchtree.Tree {
	tree, err := switchtree.Build(switchtree.SwitchSpec{
		Name: "spine0",
		Children: []switchtree.SwitchSpec{
			{Name: "leaf0", Nodes: []int{0, 1, 2, 3}},
			{Name: "leaf1", Nodes: []int{4, 5, 6, 7}},
		},
	})
	require.NoError(t, err)
	return tree
}

func TestJobTestTopoPicksTighterLeaf(t *testing.T) {
	tree := buildTwoLeafTree(t)
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7)
	job := &nodeselect.JobRequest{MinNodes: 4, MaxNodes: 4, ReqNodes: 4, MinCPUs: 0}

	out, err := nodeselect.JobTest(job, in, flatCPUs{per: 1}, tree, nodeselect.PreferPacked)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, out.Members())
}

func TestJobTestTopoFallsBackToSpine(t *testing.T) {
	tree := buildTwoLeafTree(t)
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7)
	job := &nodeselect.JobRequest{MinNodes: 5, MaxNodes: 5, ReqNodes: 5, MinCPUs: 0}

	out, err := nodeselect.JobTest(job, in, flatCPUs{per: 1}, tree, nodeselect.PreferPacked)
	require.NoError(t, err)
	require.Equal(t, 5, out.Count())
	require.True(t, out.IsSubsetOf(in))
}

func TestJobTestTopoNoFitBeyondCapacity(t *testing.T) {
	tree := buildTwoLeafTree(t)
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7)
	job := &nodeselect.JobRequest{MinNodes: 9, MaxNodes: 9, ReqNodes: 9}

	_, err := nodeselect.JobTest(job, in, flatCPUs{per: 1}, tree, nodeselect.PreferPacked)
	require.Error(t, err)
}
