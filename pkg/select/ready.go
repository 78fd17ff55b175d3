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

// ReadyNodeState is returned by JobReady when every node the job occupies
// is available to run it.
const ReadyNodeState = 1

// JobReady reports whether job's nodes are all out of power-save/power-up
// transition. It returns 0 the instant one node is not.
func JobReady(nodes []NodeInfo, job *JobRequest) int {
	if job.NodeBitmap == nil {
		return ReadyNodeState
	}
	for _, i := range job.NodeBitmap.Members() {
		if i < 0 || i >= len(nodes) {
			continue
		}
		switch nodes[i].State {
		case NodePowerSave, NodePowerUp:
			return 0
		}
	}
	return ReadyNodeState
}
