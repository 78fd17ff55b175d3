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

// Package nodeselect implements the core of a linear/topology-aware
// node-selection engine for a batch workload manager: given a job's
// resource request and a candidate set of cluster nodes, it decides which
// nodes to allocate, minimizing fragmentation on the node index line or
// within the smallest sufficient switch subtree.
package nodeselect

import (
	"time"

	"github.com/clusterkit/nodesel/pkg/nodeset"
)

// JobID identifies a job. Zero is reserved as the tombstone value; job IDs
// must be nonzero.
type JobID uint32

// PartitionID identifies a partition. Partition membership on a node is
// compared by equality of this value.
type PartitionID string

// Mode selects which of the three scheduling strategies job_test uses.
type Mode int

const (
	// TestOnly asks "could this job ever run", ignoring current memory and
	// GRES allocation state.
	TestOnly Mode = iota
	// RunNow asks for an allocation usable right now, retrying with
	// preemption if necessary.
	RunNow
	// WillRun asks for the earliest time the job could run, simulating
	// terminations of currently resident jobs.
	WillRun
)

func (m Mode) String() string {
	switch m {
	case TestOnly:
		return "TEST_ONLY"
	case RunNow:
		return "RUN_NOW"
	case WillRun:
		return "WILL_RUN"
	default:
		return "UNKNOWN"
	}
}

// NodeState is the external scheduler's notion of a node's run state,
// consulted by JobReady and NodeInfoGet.
type NodeState int

const (
	// NodeIdle is a powered-up, unallocated node.
	NodeIdle NodeState = iota
	// NodeAllocated is a node carrying at least one running job.
	NodeAllocated
	// NodeCompleting is a node whose last job is finishing up.
	NodeCompleting
	// NodePowerSave is a node that has been powered down.
	NodePowerSave
	// NodePowerUp is a node that is in the process of powering up.
	NodePowerUp
)

// NodeInfoKey enumerates the nodeinfo_get query keys.
type NodeInfoKey int

const (
	// SubgroupSize always returns 0 for this engine; no subgroup notion.
	SubgroupSize NodeInfoKey = iota
	// Subcount returns alloc_cpus iff the node's state is NodeAllocated.
	Subcount
	// Ptr returns the frame's alloc_cpus value; NodeInfoGet does not
	// return the record itself.
	Ptr
)

// GRESRequest is a job's requested generic-resource counts by name.
type GRESRequest map[string]int

// GRESView is a node's current generic-resource residency by name,
// owned either by the node table (total) or by a State entry (allocated).
type GRESView map[string]int

// GRESPlugin is the external generic-resource plugin collaborator.
// It is never implemented by this engine, only consumed through this
// interface.
type GRESPlugin interface {
	// Fits reports whether view has room for req on a node exposing cpus
	// CPUs; total asks it to ignore current allocation (TEST_ONLY).
	Fits(req GRESRequest, view GRESView, cpus int, total bool) bool
	// Allocate debits req from view, returning the updated view.
	Allocate(req GRESRequest, view GRESView) GRESView
	// Release credits req back into view, returning the updated view.
	Release(req GRESRequest, view GRESView) GRESView
	// Dup returns an independent copy of view, used when cloning State.
	Dup(view GRESView) GRESView
}

// CPUEstimator is the external avail-CPU estimator collaborator: it knows
// how many CPUs on a node are not currently claimed by resident jobs.
type CPUEstimator interface {
	AvailableCPUs(nodeIndex int) int
}

// AllocBias biases best-fit scoring in JobTest: the default PreferPacked
// preserves the engine's ordinary tight-fit behavior; PreferSpread
// reverses the CPU-total comparison between runs/leafs. ResvTest does
// not consult it.
type AllocBias int

const (
	// PreferPacked is the default, tight-fit scoring.
	PreferPacked AllocBias = iota
	// PreferSpread prefers the largest sufficient run/leaf (and the
	// smallest insufficient one); equal CPU totals still keep the earlier.
	PreferSpread
)

// NodeInfo is the externally owned, read-only node table entry for one
// cluster node.
type NodeInfo struct {
	Index          int
	Name           string
	RealMemory     uint32
	ConfiguredCPUs int
	DetectedCPUs   int
	Partitions     []PartitionID
	State          NodeState
	GRES           GRESView
}

// CPUCount returns this node's CPU count per the fast-schedule policy:
// configured CPUs when fast-schedule is enabled, else detected CPUs.
func (n *NodeInfo) CPUCount(fastSchedule bool) int {
	if fastSchedule {
		return n.ConfiguredCPUs
	}
	return n.DetectedCPUs
}

// PreemptCandidate names a job the caller is willing to evict, along with
// the nodes it currently occupies.
type PreemptCandidate struct {
	ID         JobID
	NodeBitmap *nodeset.Set
}

// JobRequest is the consumed (not owned) view of a job's resource ask.
// Fields written by the engine (TotalCPUs, StartTime) are documented as
// such; everything else is read-only input.
type JobRequest struct {
	ID JobID

	MinNodes int
	MaxNodes int
	ReqNodes int // preferred node count, min_nodes <= req_nodes <= max_nodes
	MinCPUs  int

	ReqNodeBitmap *nodeset.Set // optional
	ExcNodeBitmap *nodeset.Set // optional

	Contiguous bool

	// Shared is 0 for exclusive use; any nonzero value lets the job share
	// nodes up to the partition's max_share (see EffectiveMaxShare).
	Shared uint16

	// PnMinMemory: if MemPerCPU is true, this is memory per CPU; else
	// memory per node (MB).
	PnMinMemory uint32
	MemPerCPU   bool

	Partition PartitionID
	GRES      GRESRequest

	AllocBias AllocBias

	// TotalCPUs is set by the engine on a successful job_test.
	TotalCPUs int
	// StartTime is set by the engine for WILL_RUN.
	StartTime time.Time

	// NodeBitmap is the job's current resident node set, used by the
	// lifecycle mutators (H) and job_ready/job_resized. It is set by the
	// caller after a successful job_test commits the allocation.
	NodeBitmap *nodeset.Set

	// EndTime is the job's expected completion time, used to order
	// WILL_RUN's simulated-termination sweep.
	EndTime time.Time

	// PartNodesMissing is set by Add when a node in the job's bitmap has
	// no PartCR for this job's partition.
	PartNodesMissing bool
}

// MemoryPerNode returns the memory this job claims on a node exposing cpus
// CPUs, honoring the MemPerCPU flag.
func (j *JobRequest) MemoryPerNode(cpus int) uint32 {
	if j.MemPerCPU {
		return j.PnMinMemory * uint32(cpus)
	}
	return j.PnMinMemory
}

// PartitionLimits is the external partition table's per-partition sharing
// policy, consulted to derive max_share for RunNow's nested sweep.
type PartitionLimits struct {
	MaxShare uint16
	// SharedForce indicates the partition forces sharing regardless of
	// job preference; modeled as the SHARED_FORCE high bit in the
	// original design, exposed here as its own field.
	SharedForce bool
}

// EffectiveMaxShare derives the run-now sweep's max_run_job bound from the
// job's sharing preference and the partition's policy.
func EffectiveMaxShare(job *JobRequest, part PartitionLimits) int {
	if job.Shared == 0 {
		return 1
	}
	if part.MaxShare == 0 {
		return 1
	}
	return int(part.MaxShare)
}
