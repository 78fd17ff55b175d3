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

import "github.com/clusterkit/nodesel/pkg/nodeset"

// FindMate (component I) scans resident running jobs for one suitable to
// co-locate job with, when sharing is allowed. On the first match it
// returns the intersected node set and the matched job's total CPUs.
func FindMate(resident []*JobRequest, job *JobRequest, in *nodeset.Set) (*nodeset.Set, int, bool) {
	for _, candidate := range resident {
		if candidate == nil || candidate.NodeBitmap == nil {
			continue
		}
		if !candidate.NodeBitmap.IsSubsetOf(in) {
			continue
		}
		if candidate.NodeBitmap.Count() != job.ReqNodes {
			continue
		}
		if candidate.TotalCPUs < job.MinCPUs {
			continue
		}
		if job.Contiguous != candidate.Contiguous {
			continue
		}
		if job.ReqNodeBitmap != nil && !job.ReqNodeBitmap.IsSubsetOf(candidate.NodeBitmap) {
			continue
		}
		if job.ExcNodeBitmap != nil && job.ExcNodeBitmap.Intersects(candidate.NodeBitmap) {
			continue
		}

		return in.Intersection(candidate.NodeBitmap), candidate.TotalCPUs, true
	}

	return nil, 0, false
}
