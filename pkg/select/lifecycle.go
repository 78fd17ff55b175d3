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
	"github.com/hashicorp/go-multierror"

	"github.com/clusterkit/nodesel/pkg/nodeset"
)

// Add commits a job's node bitmap into state (component H, "add"). When
// allocAll is false the job is resuming from suspension: only the running
// accounting is touched, memory and exclusivity were already held.
func Add(state *State, nodes []NodeInfo, fastSchedule bool, job *JobRequest, allocAll bool, gres GRESPlugin) error {
	const op = "job_begin"

	if allocAll {
		state.totJobIDs.add(JobID(job.ID))
	}
	state.runJobIDs.add(JobID(job.ID))

	var errs *multierror.Error
	job.PartNodesMissing = false

	for _, i := range job.NodeBitmap.Members() {
		if i < 0 || i >= len(nodes) {
			continue
		}
		acct := state.Node(i)
		node := &nodes[i]
		cpus := node.CPUCount(fastSchedule)

		if allocAll {
			acct.AllocMemory += job.MemoryPerNode(cpus)
			if gres != nil && len(job.GRES) > 0 {
				view := acct.GRES
				if view == nil {
					view = node.GRES
				}
				acct.GRES = gres.Allocate(job.GRES, view)
			}
			if job.Shared == 0 {
				acct.ExclusiveCnt++
			}
		}

		idx := acct.findPart(job.Partition)
		if idx < 0 {
			job.PartNodesMissing = true
			errs = multierror.Append(errs, invariantDebug(op, "node %d: no PartCR for partition %q", i, job.Partition))
			continue
		}
		if allocAll {
			acct.Parts[idx].TotJobCnt++
		}
		acct.Parts[idx].RunJobCnt++
	}

	return errs.ErrorOrNil()
}

// Remove releases a job's claim on state (component H, "remove"). When
// removeAll is false the job is only being suspended: memory, exclusivity
// and the total-job count are retained, only the running accounting is
// released.
func Remove(state *State, nodes []NodeInfo, fastSchedule bool, job *JobRequest, removeAll bool, gres GRESPlugin) error {
	const op = "job_fini"

	if removeAll {
		state.totJobIDs.remove(JobID(job.ID))
	}
	state.runJobIDs.remove(JobID(job.ID))

	var errs *multierror.Error

	for _, i := range job.NodeBitmap.Members() {
		if i < 0 || i >= len(nodes) {
			continue
		}
		if err := releaseNode(state, nodes, fastSchedule, job, i, removeAll, gres, op); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

// releaseNode releases one node's share of job's per-node accounting:
// memory, exclusivity, GRES, and partition run/total counts. It never
// touches the job-ID residency sets; callers that remove or suspend a
// whole job are responsible for that separately.
func releaseNode(state *State, nodes []NodeInfo, fastSchedule bool, job *JobRequest, i int, removeAll bool, gres GRESPlugin, op string) error {
	var errs *multierror.Error

	acct := state.Node(i)
	node := &nodes[i]
	cpus := node.CPUCount(fastSchedule)

	if removeAll {
		claim := job.MemoryPerNode(cpus)
		if claim > acct.AllocMemory {
			if fastSchedule {
				errs = multierror.Append(errs, newError(Invariant, op, "node %d: memory underflow releasing %d of %d", i, claim, acct.AllocMemory))
			} else {
				errs = multierror.Append(errs, invariantDebug(op, "node %d: memory underflow releasing %d of %d", i, claim, acct.AllocMemory))
			}
			acct.AllocMemory = 0
		} else {
			acct.AllocMemory -= claim
		}

		if gres != nil && len(job.GRES) > 0 {
			view := acct.GRES
			if view == nil {
				view = node.GRES
			}
			acct.GRES = gres.Release(job.GRES, view)
		}

		if job.Shared == 0 {
			if acct.ExclusiveCnt == 0 {
				errs = multierror.Append(errs, newError(Invariant, op, "node %d: exclusive counter underflow", i))
			} else {
				acct.ExclusiveCnt--
			}
		}
	}

	idx := acct.findPart(job.Partition)
	if idx < 0 {
		return errs.ErrorOrNil()
	}
	part := &acct.Parts[idx]
	if part.RunJobCnt == 0 {
		errs = multierror.Append(errs, newError(Invariant, op, "node %d: run job count underflow for partition %q", i, job.Partition))
	} else {
		part.RunJobCnt--
	}
	if removeAll {
		if part.TotJobCnt == 0 {
			errs = multierror.Append(errs, newError(Invariant, op, "node %d: total job count underflow for partition %q", i, job.Partition))
		} else {
			part.TotJobCnt--
		}
	}
	if part.TotJobCnt == 0 {
		part.RunJobCnt = 0
	}

	return errs.ErrorOrNil()
}

// RemoveOneNode releases a single node's claim on a job ("remove_one_node"),
// used when a node is lost. It releases only that node's per-node
// accounting via releaseNode, leaving the job's residency in
// run_job_ids/tot_job_ids untouched -- the job is still running on its
// remaining nodes. It releases by the node's own index, not a stale
// loop-local index.
func RemoveOneNode(state *State, nodes []NodeInfo, fastSchedule bool, job *JobRequest, nodeIndex int, gres GRESPlugin) error {
	const op = "job_resized"

	if !job.NodeBitmap.Test(nodeIndex) {
		return nil
	}
	if nodeIndex < 0 || nodeIndex >= len(nodes) {
		return newError(Invariant, op, "node index %d out of range", nodeIndex)
	}

	err := releaseNode(state, nodes, fastSchedule, job, nodeIndex, true, gres, op)
	job.NodeBitmap.Clear(nodeIndex)

	return err
}

// Expand moves all resources from "from" into "to" (component H,
// "expand"), merging per-node CPU and memory allocations. GRES merge is
// refused entirely.
func Expand(state *State, nodes []NodeInfo, fastSchedule bool, from, to *JobRequest) error {
	const op = "job_expand"

	if len(from.GRES) > 0 || len(to.GRES) > 0 {
		return newError(Unsupported, op, "cannot expand a job carrying GRES")
	}

	for _, i := range from.NodeBitmap.Members() {
		if i < 0 || i >= len(nodes) {
			continue
		}
		if !to.NodeBitmap.Test(i) {
			continue
		}
		// Node occupied by both: the merged job now counts once, so the
		// duplicate per-node memory contribution is debited, and
		// exclusivity is not double-counted.
		node := &nodes[i]
		if !to.MemPerCPU {
			acct := state.Node(i)
			claim := to.MemoryPerNode(node.CPUCount(fastSchedule))
			if claim > acct.AllocMemory {
				acct.AllocMemory = 0
			} else {
				acct.AllocMemory -= claim
			}
		}
	}

	to.TotalCPUs += from.TotalCPUs
	to.NodeBitmap = to.NodeBitmap.Union(from.NodeBitmap)
	from.NodeBitmap = nodeset.New(0)
	from.TotalCPUs = 0

	return nil
}
