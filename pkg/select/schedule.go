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
	"math"
	"sort"
	"time"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

// ScheduleInput bundles the collaborators Schedule needs but does not own:
// the live State, the read-only node table, and the configured topology,
// CPU, and GRES helpers.
type ScheduleInput struct {
	State        *State
	Nodes        []NodeInfo
	FastSchedule bool
	CPUEst       CPUEstimator
	Tree         *switchtree.Tree
	GRES         GRESPlugin
	Partition    PartitionLimits
	Now          time.Time
	// Resident lists every running or suspended job, consulted by
	// FindMate and by WILL_RUN's simulated-termination sweep.
	Resident []*JobRequest
}

// Schedule is the three-mode dispatcher (component G, "job_test"
// orchestration). It returns the chosen node set and, for RUN_NOW/WILL_RUN
// paths that had to evict jobs to succeed, the list of actual victims.
func Schedule(in *ScheduleInput, job *JobRequest, candidates *nodeset.Set, mode Mode, preempt []PreemptCandidate) (*nodeset.Set, []PreemptCandidate, error) {
	switch mode {
	case TestOnly:
		return scheduleTestOnly(in, job, candidates)
	case RunNow:
		return scheduleRunNow(in, job, candidates, preempt)
	case WillRun:
		return scheduleWillRun(in, job, candidates, preempt)
	default:
		return nil, nil, newError(Unsupported, "job_test", "unknown mode %v", mode)
	}
}

func selectNodes(in *ScheduleInput, job *JobRequest, mask *nodeset.Set) (*nodeset.Set, error) {
	return JobTest(job, mask, in.CPUEst, in.Tree, job.AllocBias)
}

// scheduleTestOnly implements the TEST_ONLY branch: pn_min_memory is
// saved and zeroed so CountBitmap's mode==TestOnly path ignores current
// memory and GRES allocation state entirely.
func scheduleTestOnly(in *ScheduleInput, job *JobRequest, candidates *nodeset.Set) (*nodeset.Set, []PreemptCandidate, error) {
	saved := job.PnMinMemory
	job.PnMinMemory = 0
	defer func() { job.PnMinMemory = saved }()

	mask := CountBitmap(in.State, in.Nodes, in.FastSchedule, job, candidates, math.MaxInt32, math.MaxInt32, TestOnly, in.GRES)
	out, err := selectNodes(in, job, mask)
	if err != nil {
		return nil, nil, err
	}
	return out, nil, nil
}

// susJobsOptions enumerates the inner sweep's suspended-job allowance:
// 0, then 4, then unbounded on the last max_run_job iteration.
func susJobsOptions(maxRunJob, maxShare int) []int {
	opts := []int{0, 4}
	if maxRunJob == maxShare-1 {
		opts = append(opts, math.MaxInt32)
	}
	return opts
}

// scheduleRunNow implements the RUN_NOW branch: a nested sweep
// over (max_run_job, sus_jobs) cap pairs, mate-finding once sharing is in
// play, then a preemption retry against a duplicated state.
func scheduleRunNow(in *ScheduleInput, job *JobRequest, candidates *nodeset.Set, preempt []PreemptCandidate) (*nodeset.Set, []PreemptCandidate, error) {
	const op = "job_test"

	maxShare := EffectiveMaxShare(job, in.Partition)

	chosen, err := runNowSweep(in, job, candidates, maxShare)
	if chosen != nil {
		return chosen, nil, nil
	}
	if len(preempt) == 0 {
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, errNoFit(op, "no feasible allocation and no preemption candidates supplied")
	}

	dup := in.State.Clone(in.GRES)
	for _, cand := range preempt {
		releaseNodesForPreemption(dup, cand.NodeBitmap)

		dupIn := *in
		dupIn.State = dup
		set, err2 := runNowSweep(&dupIn, job, candidates, maxShare)
		if set != nil {
			return set, victimsOverlapping(preempt, set), nil
		}
		err = err2
	}

	if err != nil {
		return nil, nil, err
	}
	return nil, nil, errNoFit(op, "no feasible allocation even after preempting all candidates")
}

// runNowSweep performs one pass of the (max_run_job, sus_jobs) nested
// sweep against the state embedded in in, returning the first successful
// allocation or nil.
func runNowSweep(in *ScheduleInput, job *JobRequest, candidates *nodeset.Set, maxShare int) (*nodeset.Set, error) {
	var lastErr error
	prevCount := -1

	for maxRunJob := 0; maxRunJob < maxShare; maxRunJob++ {
		for _, susJobs := range susJobsOptions(maxRunJob, maxShare) {
			totCap := maxRunJob + susJobs
			if totCap < 0 { // overflow from MaxInt32 addition
				totCap = math.MaxInt32
			}
			mask := CountBitmap(in.State, in.Nodes, in.FastSchedule, job, candidates, maxRunJob, totCap, RunNow, in.GRES)
			count := mask.Count()
			if count <= prevCount || count < job.MinNodes {
				continue
			}
			prevCount = count

			if maxRunJob > 0 {
				if mateSet, cpus, ok := FindMate(in.Resident, job, mask); ok {
					job.TotalCPUs = cpus
					return mateSet, nil
				}
				continue
			}

			set, err := selectNodes(in, job, mask)
			if err == nil {
				return set, nil
			}
			lastErr = err
		}
	}

	return nil, lastErr
}

// releaseNodesForPreemption zeroes a node's accounting as if every job
// resident on it had already terminated. PreemptCandidate carries only an
// ID and a node bitmap, not per-node partition/GRES detail, so a full
// job_fini replay is not available here; this coarser release is
// sufficient to make the node appear free for the retry sweep.
func releaseNodesForPreemption(state *State, bitmap *nodeset.Set) {
	if bitmap == nil {
		return
	}
	for _, i := range bitmap.Members() {
		if i < 0 || i >= state.NumNodes() {
			continue
		}
		acct := state.Node(i)
		acct.AllocMemory = 0
		acct.ExclusiveCnt = 0
		acct.GRES = nil
		for j := range acct.Parts {
			acct.Parts[j].RunJobCnt = 0
			acct.Parts[j].TotJobCnt = 0
		}
	}
}

// victimsOverlapping filters preempt down to the candidates whose node
// bitmap actually overlaps the chosen allocation.
func victimsOverlapping(preempt []PreemptCandidate, chosen *nodeset.Set) []PreemptCandidate {
	victims := make([]PreemptCandidate, 0, len(preempt))
	for _, cand := range preempt {
		if cand.NodeBitmap != nil && cand.NodeBitmap.Intersects(chosen) {
			victims = append(victims, cand)
		}
	}
	return victims
}

// scheduleWillRun implements the WILL_RUN branch: try now, then
// try after immediately evicting every preemptible candidate, then
// simulate natural terminations of non-preemptible resident jobs in
// end-time order until the job fits.
func scheduleWillRun(in *ScheduleInput, job *JobRequest, candidates *nodeset.Set, preempt []PreemptCandidate) (*nodeset.Set, []PreemptCandidate, error) {
	const op = "job_will_run"

	maxShare := EffectiveMaxShare(job, in.Partition)

	if set, _ := runNowSweep(in, job, candidates, maxShare); set != nil {
		job.StartTime = in.Now
		return set, nil, nil
	}

	if len(preempt) > 0 {
		dup := in.State.Clone(in.GRES)
		for _, cand := range preempt {
			releaseNodesForPreemption(dup, cand.NodeBitmap)
		}
		dupIn := *in
		dupIn.State = dup
		if set, _ := runNowSweep(&dupIn, job, candidates, maxShare); set != nil {
			job.StartTime = in.Now.Add(time.Second)
			return set, victimsOverlapping(preempt, set), nil
		}
	}

	nonPreemptible := make([]*JobRequest, 0, len(in.Resident))
	for _, r := range in.Resident {
		if r == nil || isPreemptCandidate(preempt, r.ID) {
			continue
		}
		nonPreemptible = append(nonPreemptible, r)
	}
	sort.Slice(nonPreemptible, func(i, j int) bool {
		return nonPreemptible[i].EndTime.Before(nonPreemptible[j].EndTime)
	})

	dup := in.State.Clone(in.GRES)
	for _, cand := range preempt {
		releaseNodesForPreemption(dup, cand.NodeBitmap)
	}
	dupIn := *in
	dupIn.State = dup

	for _, ended := range nonPreemptible {
		if err := Remove(dup, in.Nodes, in.FastSchedule, ended, true, in.GRES); err != nil {
			log.Debug("job_will_run: simulated termination of job %d: %v", ended.ID, err)
		}
		if set, _ := runNowSweep(&dupIn, job, candidates, maxShare); set != nil {
			start := in.Now.Add(time.Second)
			if ended.EndTime.After(start) {
				start = ended.EndTime
			}
			job.StartTime = start
			return set, victimsOverlapping(preempt, set), nil
		}
	}

	return nil, nil, errNoFit(op, "job cannot run even after simulating every resident job's termination")
}

func isPreemptCandidate(preempt []PreemptCandidate, id JobID) bool {
	for _, cand := range preempt {
		if cand.ID == id {
			return true
		}
	}
	return false
}
