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
	"encoding/binary"
)

// wireMagic tags the per-node info wire frame so a mismatched version on
// free is caught rather than silently misinterpreted.
const wireMagic uint16 = 0xCA5E

// NodeInfoFrame is the wire representation of one node's published
// nodeinfo_get record: a magic half-word followed by its alloc_cpus count.
type NodeInfoFrame struct {
	AllocCPUs uint16
}

// Pack serializes f into a 4-byte frame: magic, then alloc_cpus, both
// big-endian.
func (f NodeInfoFrame) Pack() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], wireMagic)
	binary.BigEndian.PutUint16(buf[2:4], f.AllocCPUs)
	return buf
}

// UnpackNodeInfoFrame parses a 4-byte frame produced by Pack, verifying the
// magic. A magic mismatch is logged as an Invariant-kind error.
func UnpackNodeInfoFrame(buf []byte) (NodeInfoFrame, error) {
	const op = "nodeinfo_unpack"

	if len(buf) != 4 {
		return NodeInfoFrame{}, newError(Invariant, op, "frame length %d, want 4", len(buf))
	}

	magic := binary.BigEndian.Uint16(buf[0:2])
	if magic != wireMagic {
		return NodeInfoFrame{}, newError(Invariant, op, "magic mismatch: got %#x, want %#x", magic, wireMagic)
	}

	return NodeInfoFrame{AllocCPUs: binary.BigEndian.Uint16(buf[2:4])}, nil
}

// AllocCPUsFor computes the published alloc_cpus value for one node: the
// node's CPU count (fast-schedule aware) when allocated or completing,
// else zero.
func AllocCPUsFor(node *NodeInfo, fastSchedule bool) uint16 {
	switch node.State {
	case NodeAllocated, NodeCompleting:
		return uint16(node.CPUCount(fastSchedule))
	default:
		return 0
	}
}

// NodeInfoGet answers the three nodeinfo_get queries: SubgroupSize always
// 0, Subcount is alloc_cpus iff state is NodeAllocated, Ptr returns the
// frame's alloc_cpus regardless of state (not the frame itself).
func NodeInfoGet(key NodeInfoKey, frame NodeInfoFrame, state NodeState) (uint16, error) {
	switch key {
	case SubgroupSize:
		return 0, nil
	case Subcount:
		if state == NodeAllocated {
			return frame.AllocCPUs, nil
		}
		return 0, nil
	case Ptr:
		return frame.AllocCPUs, nil
	default:
		return 0, newError(Invariant, "nodeinfo_get", "unknown key %v", key)
	}
}
