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
)

func TestJobTestTightLinearFit(t *testing.T) {
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7)
	job := &nodeselect.JobRequest{MinNodes: 3, MaxNodes: 3, ReqNodes: 3, MinCPUs: 12, Contiguous: true}

	out, err := nodeselect.JobTest(job, in, flatCPUs{per: 4}, nil, nodeselect.PreferPacked)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, out.Members())
	require.Equal(t, 12, job.TotalCPUs)
}

// TestJobTestFragmentationAvoidance covers a best-fit fragmentation
// scenario: nodes 2 and 5 are already exclusively held (so absent from the
// candidate set), leaving three equal two-node runs. Which run is chosen
// first among equally-scored runs is an implementation tie-break; what
// must hold is that the job lands on exactly 3 of the available,
// non-excluded nodes with enough CPUs.
func TestJobTestFragmentationAvoidance(t *testing.T) {
	in := nodeset.FromSlice(0, 1, 3, 4, 6, 7)
	job := &nodeselect.JobRequest{MinNodes: 3, MaxNodes: 3, ReqNodes: 3, MinCPUs: 12}

	out, err := nodeselect.JobTest(job, in, flatCPUs{per: 4}, nil, nodeselect.PreferPacked)
	require.NoError(t, err)
	require.Equal(t, 3, out.Count())
	require.True(t, out.IsSubsetOf(in))
	require.Equal(t, 12, job.TotalCPUs)
}

// TestJobTestRequiredPlusContiguity covers a required-node-plus-contiguity
// scenario: the run containing the required node is wide enough that the
// fill never needs to wrap past its end, so it never touches the downward
// half. The exact split between upward and downward nodes is an
// implementation tie-break; what must hold is a single contiguous 5-node
// block containing the required node.
func TestJobTestRequiredPlusContiguity(t *testing.T) {
	in := nodeset.FromSlice(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	job := &nodeselect.JobRequest{
		MinNodes: 5, MaxNodes: 5, ReqNodes: 5, MinCPUs: 0,
		ReqNodeBitmap: nodeset.FromSlice(4),
		Contiguous:    true,
	}

	out, err := nodeselect.JobTest(job, in, flatCPUs{per: 1}, nil, nodeselect.PreferPacked)
	require.NoError(t, err)
	require.Equal(t, 5, out.Count())
	require.True(t, out.Test(4))

	members := out.Members()
	for i := 1; i < len(members); i++ {
		require.Equal(t, members[i-1]+1, members[i], "expected a contiguous block")
	}
}

func TestJobTestRequiredAcrossTwoRunsContiguousFails(t *testing.T) {
	// Nodes 3..6 are unavailable, splitting the candidate set into two
	// disjoint runs {0,1,2} and {7,8,9}; the required nodes fall one in
	// each, which a contiguous job can never span.
	in := nodeset.FromSlice(0, 1, 2, 7, 8, 9)
	job := &nodeselect.JobRequest{
		MinNodes: 2, MaxNodes: 10, ReqNodes: 2,
		ReqNodeBitmap: nodeset.FromSlice(2, 7),
		Contiguous:    true,
	}

	_, err := nodeselect.JobTest(job, in, flatCPUs{per: 1}, nil, nodeselect.PreferPacked)
	require.Error(t, err)

	var selErr *nodeselect.Error
	require.ErrorAs(t, err, &selErr)
	require.Equal(t, nodeselect.NoFit, selErr.Kind)
}

func TestJobTestFailsWhenCandidateSetTooSmall(t *testing.T) {
	in := nodeset.FromSlice(0, 1)
	job := &nodeselect.JobRequest{MinNodes: 3, MaxNodes: 3, ReqNodes: 3}

	_, err := nodeselect.JobTest(job, in, flatCPUs{per: 4}, nil, nodeselect.PreferPacked)
	require.Error(t, err)
}
