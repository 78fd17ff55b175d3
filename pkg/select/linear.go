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
	"github.com/clusterkit/nodesel/pkg/nodeset"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

// consecRun is one maximal run of consecutive candidate nodes found by the
// first sweep of JobTest.
type consecRun struct {
	start, end    int // end is set when the run closes; inclusive
	nodeCount     int
	availCPUs     int
	firstRequired int // index of the first required node in the run, or -1
}

func (r *consecRun) sufficient(remNodes, remCPUs int) bool {
	return r.nodeCount >= remNodes && r.availCPUs >= remCPUs
}

// betterRun implements the lexicographic scoring used to pick the best run
// to fill from next.
func betterRun(candidate, best *consecRun, remNodes, remCPUs int, bias AllocBias) bool {
	if best == nil {
		return true
	}

	cReq := candidate.firstRequired >= 0
	bReq := best.firstRequired >= 0
	if cReq != bReq {
		return cReq
	}

	cSuff := candidate.sufficient(remNodes, remCPUs)
	bSuff := best.sufficient(remNodes, remCPUs)
	if cSuff != bSuff {
		return cSuff
	}

	if cSuff {
		if candidate.availCPUs != best.availCPUs {
			better := candidate.availCPUs < best.availCPUs
			if bias == PreferSpread {
				return !better
			}
			return better
		}
		return false
	}

	if candidate.availCPUs != best.availCPUs {
		better := candidate.availCPUs > best.availCPUs
		if bias == PreferSpread {
			return !better
		}
		return better
	}
	return false
}

// buildConsecRuns performs the first sweep over the node index line,
// committing required nodes immediately into out and returning the
// remaining runs over non-required candidate nodes.
func buildConsecRuns(in *nodeset.Set, job *JobRequest, cpuEst CPUEstimator, out *nodeset.Set, remNodes, maxNodes, remCPUs *int) []*consecRun {
	n := in.Len()
	runs := []*consecRun{}
	var cur *consecRun

	closeRun := func(end int) {
		if cur != nil {
			cur.end = end
			runs = append(runs, cur)
			cur = nil
		}
	}

	for i := 0; i < n; i++ {
		if !in.Test(i) {
			closeRun(i - 1)
			continue
		}

		required := job.ReqNodeBitmap != nil && job.ReqNodeBitmap.Test(i)
		if required {
			out.Set(i)
			*remNodes--
			*maxNodes--
			*remCPUs -= cpuEst.AvailableCPUs(i)
			if cur == nil {
				cur = &consecRun{start: i, firstRequired: -1}
			}
			if cur.firstRequired < 0 {
				cur.firstRequired = i
			}
			continue
		}

		if cur == nil {
			cur = &consecRun{start: i, firstRequired: -1}
		}
		cur.nodeCount++
		cur.availCPUs += cpuEst.AvailableCPUs(i)
	}
	closeRun(n - 1)

	return runs
}

// fillRun walks a chosen run, adding nodes to out until the job is
// satisfied or the run is exhausted.
func fillRun(run *consecRun, in *nodeset.Set, cpuEst CPUEstimator, out *nodeset.Set, remNodes, maxNodes, remCPUs *int) {
	take := func(i int) bool {
		if !in.Test(i) || out.Test(i) {
			return false
		}
		out.Set(i)
		*remNodes--
		*maxNodes--
		*remCPUs -= cpuEst.AvailableCPUs(i)
		return true
	}

	done := func() bool {
		return *maxNodes <= 0 || (*remNodes <= 0 && *remCPUs <= 0)
	}

	if run.firstRequired >= 0 {
		for i := run.firstRequired; i <= run.end; i++ {
			if done() {
				break
			}
			take(i)
		}
		if !done() {
			for i := run.firstRequired - 1; i >= run.start; i-- {
				if done() {
					break
				}
				take(i)
			}
		}
	} else {
		for i := run.start; i <= run.end; i++ {
			if done() {
				break
			}
			take(i)
		}
	}

	run.nodeCount, run.availCPUs = 0, 0
}

// JobTest is the linear best-fit selector (component E, "job_test").
// On success it returns the chosen node set with job.TotalCPUs populated.
func JobTest(job *JobRequest, in *nodeset.Set, cpuEst CPUEstimator, tree *switchtree.Tree, bias AllocBias) (*nodeset.Set, error) {
	const op = "job_test"

	if in.Count() < job.MinNodes {
		return nil, errNoFit(op, "only %d candidate nodes, need at least %d", in.Count(), job.MinNodes)
	}
	if job.ReqNodeBitmap != nil && !job.ReqNodeBitmap.IsSubsetOf(in) {
		return nil, errNoFit(op, "required nodes not all present in candidate set")
	}

	if tree != nil {
		return jobTestTopo(job, in, cpuEst, tree, bias)
	}

	work := in.Clone()
	out := nodeset.New(uint(in.Len()))

	remNodes := job.MinNodes
	maxNodes := job.MaxNodes
	remCPUs := job.MinCPUs

	runs := buildConsecRuns(work, job, cpuEst, out, &remNodes, &maxNodes, &remCPUs)

	requiredRuns := 0
	for _, r := range runs {
		if r.firstRequired >= 0 {
			requiredRuns++
		}
	}
	if job.Contiguous && requiredRuns > 1 {
		return nil, errNoFit(op, "required nodes span %d runs, contiguous job cannot be satisfied", requiredRuns)
	}

	totalCPUs := job.MinCPUs - remCPUs // CPUs already debited by required nodes

	for maxNodes > 0 && !(remNodes <= 0 && remCPUs <= 0) {
		var best *consecRun
		for _, r := range runs {
			if r.nodeCount == 0 && r.firstRequired < 0 {
				continue
			}
			if betterRun(r, best, remNodes, remCPUs, bias) {
				best = r
			}
		}
		if best == nil {
			break
		}

		if job.Contiguous && !best.sufficient(remNodes, remCPUs) {
			return nil, errNoFit(op, "no single run sufficient for contiguous request")
		}

		before := remCPUs
		fillRun(best, work, cpuEst, out, &remNodes, &maxNodes, &remCPUs)
		totalCPUs += before - remCPUs

		if job.Contiguous {
			break
		}
	}

	if remCPUs > 0 {
		return nil, errNoFit(op, "insufficient CPUs: %d short", remCPUs)
	}

	availNodes := out.Count()
	needed := remNodes
	if alt := remNodes + job.MinNodes - job.ReqNodes; alt > needed {
		needed = alt
	}
	if availNodes < needed {
		return nil, errNoFit(op, "insufficient nodes after fill")
	}

	job.TotalCPUs = totalCPUs
	return out, nil
}
