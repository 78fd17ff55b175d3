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

import "github.com/clusterkit/nodesel/pkg/nodeset"

// CountBitmap (component D, "count_bitmap") filters the candidate set in
// down to the nodes actually feasible for job, returning the filtered set;
// callers take its population count with Count.
func CountBitmap(state *State, nodes []NodeInfo, fastSchedule bool, job *JobRequest, in *nodeset.Set, runCap, totCap int, mode Mode, gres GRESPlugin) *nodeset.Set {
	out := nodeset.New(uint(len(nodes)))

	for _, i := range in.Members() {
		if i < 0 || i >= len(nodes) {
			continue
		}
		node := &nodes[i]
		acct := state.Node(i)
		cpus := node.CPUCount(fastSchedule)

		if !gresFits(gres, job.GRES, acct, node, cpus, mode == TestOnly) {
			continue
		}

		if mode == TestOnly {
			out.Set(i)
			continue
		}

		if acct.AllocMemory+job.MemoryPerNode(cpus) > node.RealMemory {
			continue
		}

		if acct.ExclusiveCnt != 0 {
			continue
		}

		runSum, totSum := acct.partitionCaps()
		if runSum > runCap || totSum > totCap {
			continue
		}

		out.Set(i)
	}

	return out
}

// gresFits consults the GRES collaborator, if one is configured, and
// prefers the State-owned view over the node table's when both exist.
func gresFits(gres GRESPlugin, req GRESRequest, acct *NodeAccounting, node *NodeInfo, cpus int, total bool) bool {
	if gres == nil || len(req) == 0 {
		return true
	}
	view := acct.GRES
	if view == nil {
		view = node.GRES
	}
	return gres.Fits(req, view, cpus, total)
}
