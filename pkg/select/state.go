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

// State aggregates the per-node accounting records for all nodes plus the
// job-ID residency sets. It is deep-clonable for hypothetical scheduling
// (WILL_RUN, preemption retry).
type State struct {
	nodes     []NodeAccounting
	runJobIDs *jobIDSet
	totJobIDs *jobIDSet
}

// NewState creates a fresh State sized for n nodes, with empty accounting
// and no resident jobs. It creates no partition entries; SyncPartitions
// populates them from the node table.
func NewState(n int) *State {
	return &State{
		nodes:     make([]NodeAccounting, n),
		runJobIDs: newJobIDSet(),
		totJobIDs: newJobIDSet(),
	}
}

// NumNodes returns the number of nodes this state was built for.
func (s *State) NumNodes() int {
	return len(s.nodes)
}

// Node returns the accounting record for node i.
func (s *State) Node(i int) *NodeAccounting {
	return &s.nodes[i]
}

// IsRunning reports whether job id is currently consuming CPUs anywhere.
func (s *State) IsRunning(id JobID) bool {
	return s.runJobIDs.contains(id)
}

// IsResident reports whether job id holds memory/exclusivity anywhere,
// running or suspended.
func (s *State) IsResident(id JobID) bool {
	return s.totJobIDs.contains(id)
}

// RunningJobIDs returns every currently running job id.
func (s *State) RunningJobIDs() []JobID {
	return s.runJobIDs.members()
}

// ResidentJobIDs returns every resident (running or suspended) job id.
func (s *State) ResidentJobIDs() []JobID {
	return s.totJobIDs.members()
}

// Empty reports whether this state has no resident jobs at all, used by
// the "balances back to a fresh rebuild" invariant.
func (s *State) Empty() bool {
	if !s.runJobIDs.empty() || !s.totJobIDs.empty() {
		return false
	}
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.AllocMemory != 0 || n.ExclusiveCnt != 0 || len(n.GRES) != 0 {
			return false
		}
		for _, p := range n.Parts {
			if p.RunJobCnt != 0 || p.TotJobCnt != 0 {
				return false
			}
		}
	}
	return true
}

// SyncPartitions ensures every node carries a PartCR entry for each
// partition listed in its node-table entry: a per-node entry exists
// exactly while the partition's node set includes that node, and is
// rebuilt whenever State is rebuilt. Entries for partitions no longer
// listed are dropped only if they carry no residents, so a rebuild
// never silently discards live accounting.
func (s *State) SyncPartitions(nodes []NodeInfo) {
	for i := range s.nodes {
		if i >= len(nodes) {
			continue
		}
		acct := &s.nodes[i]
		for _, part := range nodes[i].Partitions {
			acct.getOrAddPart(part)
		}

		kept := acct.Parts[:0]
		for _, p := range acct.Parts {
			if p.TotJobCnt > 0 || containsPartition(nodes[i].Partitions, p.Partition) {
				kept = append(kept, p)
			}
		}
		acct.Parts = kept
	}
}

func containsPartition(parts []PartitionID, target PartitionID) bool {
	for _, p := range parts {
		if p == target {
			return true
		}
	}
	return false
}

// Clone yields a deep, independent copy used for hypothetical "what if
// these jobs ended" scheduling. It shares no mutable memory with the
// original; gres may be nil if no node carries an owned GRES view.
func (s *State) Clone(gres GRESPlugin) *State {
	c := &State{
		nodes:     make([]NodeAccounting, len(s.nodes)),
		runJobIDs: s.runJobIDs.clone(),
		totJobIDs: s.totJobIDs.clone(),
	}
	for i := range s.nodes {
		c.nodes[i] = s.nodes[i].clone(gres)
	}
	return c
}
