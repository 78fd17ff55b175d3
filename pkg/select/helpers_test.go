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
	"github.com/clusterkit/nodesel/pkg/select"
)

// flatCPUs is a CPUEstimator test double reporting a fixed per-node CPU
// count, with per-node overrides for already-exclusively-held nodes.
type flatCPUs struct {
	per       int
	overrides map[int]int
}

func (f flatCPUs) AvailableCPUs(i int) int {
	if f.overrides != nil {
		if v, ok := f.overrides[i]; ok {
			return v
		}
	}
	return f.per
}

func makeNodes(n int, cpus int, mem uint32) []nodeselect.NodeInfo {
	nodes := make([]nodeselect.NodeInfo, n)
	for i := range nodes {
		nodes[i] = nodeselect.NodeInfo{
			Index:          i,
			Name:           "node",
			RealMemory:     mem,
			ConfiguredCPUs: cpus,
			DetectedCPUs:   cpus,
			State:          nodeselect.NodeIdle,
		}
	}
	return nodes
}
