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

// Package selectmgr is the mutex-guarded façade that exposes the
// selection engine's entry points (node_init, job_test, job_begin, ...)
// as methods of a single Manager value: one lock held for the entire
// duration of each call, with internal state rebuilt lazily from a
// resident-job enumeration on first use.
package selectmgr

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	nodeselect "github.com/clusterkit/nodesel/pkg/select"
	"github.com/clusterkit/nodesel/pkg/switchtree"

	logger "github.com/clusterkit/nodesel/pkg/log"
	"github.com/clusterkit/nodesel/pkg/nodeset"
)

var log = logger.NewLogger("selectmgr")

// ConsumableResource names the accounting unit read once at startup from
// cluster configuration. Neither selector changes
// behavior by this value today -- CPU and memory are always accounted
// for explicitly -- it is carried so callers and logs can report which
// unit the surrounding scheduler is tracking.
type ConsumableResource int

const (
	// CRCPU tracks CPUs as the consumable resource.
	CRCPU ConsumableResource = iota
	// CRMemory tracks memory as the consumable resource.
	CRMemory
)

func (c ConsumableResource) String() string {
	if c == CRMemory {
		return "CR_MEMORY"
	}
	return "CR_CPU"
}

// jobRecord is a resident job (running or suspended) tracked by the
// manager so that State can be rebuilt from scratch after NodeInit or
// Reconfigure: State is rebuilt by enumerating all currently running or
// suspended jobs.
type jobRecord struct {
	job       *nodeselect.JobRequest
	suspended bool
}

// Manager is the concrete implementation of the engine's entry points. All
// of its exported methods take Manager's lock for their entire body; none
// of them perform blocking I/O -- mutex acquisition is the only blocking
// operation on the scheduling path.
type Manager struct {
	sync.Mutex

	nodes        []nodeselect.NodeInfo
	fastSchedule bool
	cr           ConsumableResource

	tree      *switchtree.Tree
	gres      nodeselect.GRESPlugin
	cpuEst    nodeselect.CPUEstimator
	partition nodeselect.PartitionLimits

	state *nodeselect.State
	jobs  map[nodeselect.JobID]*jobRecord

	nodeInfo []nodeselect.NodeInfoFrame

	now func() time.Time

	metrics *managerMetrics
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithSwitchTree installs the topology used for topology-aware selection
// (component F) and reservations (component J). Without it, both fall
// back to their plain linear/node-count-only behavior.
func WithSwitchTree(tree *switchtree.Tree) Option {
	return func(m *Manager) { m.tree = tree }
}

// WithGRESPlugin installs the external GRES collaborator.
func WithGRESPlugin(gres nodeselect.GRESPlugin) Option {
	return func(m *Manager) { m.gres = gres }
}

// WithCPUEstimator installs the external avail-CPU estimator collaborator.
func WithCPUEstimator(est nodeselect.CPUEstimator) Option {
	return func(m *Manager) { m.cpuEst = est }
}

// WithPartitionLimits sets the partition sharing policy consulted by
// RunNow's nested sweep.
func WithPartitionLimits(limits nodeselect.PartitionLimits) Option {
	return func(m *Manager) { m.partition = limits }
}

// WithConsumableResource records which unit (CPU or memory) the
// surrounding scheduler is configured to track.
func WithConsumableResource(cr ConsumableResource) Option {
	return func(m *Manager) { m.cr = cr }
}

// WithClock overrides the manager's notion of "now", for deterministic
// tests of WILL_RUN's start-time computation.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an idle Manager. NodeInit must be called before any
// scheduling entry point is used.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		jobs:      map[nodeselect.JobID]*jobRecord{},
		cpuEst:    uniformCPUEstimator{},
		now:       time.Now,
		metrics:   newManagerMetrics(),
		fastSchedule: opt.FastSchedule,
		cr:           parseConsumableResource(opt.ConsumableResource),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// uniformCPUEstimator is the zero-value fallback CPU estimator: every
// node offers its full configured/detected CPU count, i.e. nothing is
// currently claimed. Real deployments inject a CPUEstimator backed by
// live job accounting.
type uniformCPUEstimator struct{}

func (uniformCPUEstimator) AvailableCPUs(int) int { return 0 }

// NodeInit ("node_init") drops the current State and records the
// node table, node count, and fast-schedule flag.
func (m *Manager) NodeInit(nodes []nodeselect.NodeInfo, fastSchedule bool) error {
	m.Lock()
	defer m.Unlock()

	m.nodes = nodes
	m.fastSchedule = fastSchedule
	m.state = nil
	m.jobs = map[nodeselect.JobID]*jobRecord{}
	m.nodeInfo = make([]nodeselect.NodeInfoFrame, len(nodes))

	log.Info("node table initialized with %d nodes", len(nodes))
	return nil
}

// ensureState lazily (re)builds State from the resident job set, per spec
// the State lifecycle: created lazily on first use and rebuilt by
// enumerating all currently running or suspended jobs."
func (m *Manager) ensureState() *nodeselect.State {
	if m.state != nil {
		return m.state
	}

	state := nodeselect.NewState(len(m.nodes))
	state.SyncPartitions(m.nodes)
	for _, rec := range m.jobs {
		if err := nodeselect.Add(state, m.nodes, m.fastSchedule, rec.job, true, m.gres); err != nil {
			log.Warn("rebuild: job %d: %v", rec.job.ID, err)
		}
		if rec.suspended {
			if err := nodeselect.Remove(state, m.nodes, m.fastSchedule, rec.job, false, m.gres); err != nil {
				log.Warn("rebuild: job %d: %v", rec.job.ID, err)
			}
		}
	}
	m.state = state
	return state
}

// residentJobs returns every tracked job request, for Schedule's mate
// search and WILL_RUN's simulated-termination ordering.
func (m *Manager) residentJobs() []*nodeselect.JobRequest {
	out := make([]*nodeselect.JobRequest, 0, len(m.jobs))
	for _, rec := range m.jobs {
		out = append(out, rec.job)
	}
	return out
}

func (m *Manager) scheduleInput() *nodeselect.ScheduleInput {
	return &nodeselect.ScheduleInput{
		State:        m.ensureState(),
		Nodes:        m.nodes,
		FastSchedule: m.fastSchedule,
		CPUEst:       m.cpuEst,
		Tree:         m.tree,
		GRES:         m.gres,
		Partition:    m.partition,
		Now:          m.now(),
		Resident:     m.residentJobs(),
	}
}

// JobTest ("job_test") is the three-mode scheduling entry point. On
// success the candidate bitmap in is narrowed in place to the chosen
// nodes, matching the original design's in_out_bitmap semantics.
func (m *Manager) JobTest(job *nodeselect.JobRequest, in *nodeset.Set, mode nodeselect.Mode, preempt []nodeselect.PreemptCandidate) (*nodeset.Set, []nodeselect.PreemptCandidate, error) {
	m.Lock()
	defer m.Unlock()

	start := time.Now()
	chosen, victims, err := nodeselect.Schedule(m.scheduleInput(), job, in, mode, preempt)
	m.metrics.observeJobTest(mode, err == nil, len(victims), time.Since(start))

	if err != nil {
		return nil, nil, err
	}

	in.ClearAll()
	in.InPlaceUnion(chosen)
	return chosen, victims, nil
}

// JobBegin adds a job to State with alloc_all=true.
func (m *Manager) JobBegin(job *nodeselect.JobRequest) error {
	m.Lock()
	defer m.Unlock()

	if err := nodeselect.Add(m.ensureState(), m.nodes, m.fastSchedule, job, true, m.gres); err != nil {
		return err
	}
	m.jobs[job.ID] = &jobRecord{job: job}
	return nil
}

// JobReady reports whether every node job occupies is out of
// power-save/power-up transition.
func (m *Manager) JobReady(job *nodeselect.JobRequest) int {
	m.Lock()
	defer m.Unlock()
	return nodeselect.JobReady(m.nodes, job)
}

// JobFini removes a job from State with remove_all=true.
func (m *Manager) JobFini(job *nodeselect.JobRequest) error {
	m.Lock()
	defer m.Unlock()

	err := nodeselect.Remove(m.ensureState(), m.nodes, m.fastSchedule, job, true, m.gres)
	delete(m.jobs, job.ID)
	return err
}

// JobSuspend removes a job's running (but not resident) claim.
func (m *Manager) JobSuspend(job *nodeselect.JobRequest) error {
	m.Lock()
	defer m.Unlock()

	if err := nodeselect.Remove(m.ensureState(), m.nodes, m.fastSchedule, job, false, m.gres); err != nil {
		return err
	}
	if rec, ok := m.jobs[job.ID]; ok {
		rec.suspended = true
	}
	return nil
}

// JobResume re-adds a suspended job's running claim.
func (m *Manager) JobResume(job *nodeselect.JobRequest) error {
	m.Lock()
	defer m.Unlock()

	if err := nodeselect.Add(m.ensureState(), m.nodes, m.fastSchedule, job, false, m.gres); err != nil {
		return err
	}
	if rec, ok := m.jobs[job.ID]; ok {
		rec.suspended = false
	} else {
		m.jobs[job.ID] = &jobRecord{job: job}
	}
	return nil
}

// JobExpand merges from's allocation into to.
func (m *Manager) JobExpand(from, to *nodeselect.JobRequest) error {
	m.Lock()
	defer m.Unlock()

	if err := nodeselect.Expand(m.ensureState(), m.nodes, m.fastSchedule, from, to); err != nil {
		return err
	}
	delete(m.jobs, from.ID)
	if rec, ok := m.jobs[to.ID]; ok {
		rec.job = to
	} else {
		m.jobs[to.ID] = &jobRecord{job: to}
	}
	return nil
}

// JobResized releases a single lost node from job's claim.
func (m *Manager) JobResized(job *nodeselect.JobRequest, node int) error {
	m.Lock()
	defer m.Unlock()
	return nodeselect.RemoveOneNode(m.ensureState(), m.nodes, m.fastSchedule, job, node, m.gres)
}

// Reconfigure drops State and rebuilds it immediately.
func (m *Manager) Reconfigure() error {
	m.Lock()
	defer m.Unlock()

	m.state = nil
	m.ensureState()
	return nil
}

// ResvTest is the node-count-only topology best-fit reservation
// selector (component J).
func (m *Manager) ResvTest(avail *nodeset.Set, n int) *nodeset.Set {
	m.Lock()
	defer m.Unlock()
	return nodeselect.ResvTest(avail, n, m.tree)
}

// NodeInfoSetAll publishes each node's alloc_cpus snapshot.
func (m *Manager) NodeInfoSetAll(lastQuery time.Time) error {
	m.Lock()
	defer m.Unlock()

	if len(m.nodeInfo) != len(m.nodes) {
		m.nodeInfo = make([]nodeselect.NodeInfoFrame, len(m.nodes))
	}
	for i := range m.nodes {
		m.nodeInfo[i] = nodeselect.NodeInfoFrame{AllocCPUs: nodeselect.AllocCPUsFor(&m.nodes[i], m.fastSchedule)}
	}
	return nil
}

// NodeInfoGet answers one of the nodeinfo_get queries for a node.
func (m *Manager) NodeInfoGet(nodeIndex int, key nodeselect.NodeInfoKey, state nodeselect.NodeState) (int, error) {
	m.Lock()
	defer m.Unlock()

	if nodeIndex < 0 || nodeIndex >= len(m.nodeInfo) {
		return 0, errors.Errorf("nodeinfo_get: node index %d out of range", nodeIndex)
	}
	v, err := nodeselect.NodeInfoGet(key, m.nodeInfo[nodeIndex], state)
	return int(v), err
}

func parseConsumableResource(s string) ConsumableResource {
	if s == "CR_MEMORY" {
		return CRMemory
	}
	return CRCPU
}
