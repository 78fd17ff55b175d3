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

// PartCR is one partition's tenant-counting entry on a single node. An
// entry exists exactly while the partition's node set includes that node.
type PartCR struct {
	Partition PartitionID
	RunJobCnt int
	TotJobCnt int
}

// NodeAccounting is the per-node accounting record: allocated memory,
// exclusive-use counter, and per-partition tenant counts.
type NodeAccounting struct {
	AllocMemory  uint32
	ExclusiveCnt uint32
	Parts        []PartCR
	// GRES is this node's allocated-GRES view, owned by this record when
	// non-nil; nil means "defer to the node table's own copy."
	GRES GRESView
}

// findPart returns the index of the PartCR for part, or -1 if absent.
func (n *NodeAccounting) findPart(part PartitionID) int {
	for i := range n.Parts {
		if n.Parts[i].Partition == part {
			return i
		}
	}
	return -1
}

// getOrAddPart returns the PartCR entry for part, creating one (zeroed) if
// none exists yet.
func (n *NodeAccounting) getOrAddPart(part PartitionID) *PartCR {
	if i := n.findPart(part); i >= 0 {
		return &n.Parts[i]
	}
	n.Parts = append(n.Parts, PartCR{Partition: part})
	return &n.Parts[len(n.Parts)-1]
}

// clone returns a deep, independent copy of this node's accounting record,
// with a fresh Parts slice and a cloned GRES view via plugin's Dup hook.
func (n *NodeAccounting) clone(gres GRESPlugin) NodeAccounting {
	c := NodeAccounting{
		AllocMemory:  n.AllocMemory,
		ExclusiveCnt: n.ExclusiveCnt,
	}
	if len(n.Parts) > 0 {
		c.Parts = make([]PartCR, len(n.Parts))
		copy(c.Parts, n.Parts)
	}
	if n.GRES != nil && gres != nil {
		c.GRES = gres.Dup(n.GRES)
	}
	return c
}

// partitionCaps sums run/total job counts across all of a node's PartCR
// entries, for the feasibility mask builder (component D).
func (n *NodeAccounting) partitionCaps() (runSum, totSum int) {
	for _, p := range n.Parts {
		runSum += p.RunJobCnt
		totSum += p.TotJobCnt
	}
	return runSum, totSum
}
