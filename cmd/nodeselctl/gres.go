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

package main

import nodeselect "github.com/clusterkit/nodesel/pkg/select"

// simpleGRES is a minimal, in-memory stand-in for the external GRES
// plugin collaborator. It tracks remaining counts by resource name and
// ignores the per-CPU coverage argument beyond requiring at least one
// CPU be available.
type simpleGRES struct{}

func (simpleGRES) Fits(req nodeselect.GRESRequest, view nodeselect.GRESView, cpus int, total bool) bool {
	if cpus <= 0 {
		return false
	}
	for name, want := range req {
		have := view[name]
		if have < want {
			return false
		}
	}
	return true
}

func (simpleGRES) Allocate(req nodeselect.GRESRequest, view nodeselect.GRESView) nodeselect.GRESView {
	out := nodeselect.GRESView{}
	for k, v := range view {
		out[k] = v
	}
	for name, want := range req {
		out[name] -= want
	}
	return out
}

func (simpleGRES) Release(req nodeselect.GRESRequest, view nodeselect.GRESView) nodeselect.GRESView {
	out := nodeselect.GRESView{}
	for k, v := range view {
		out[k] = v
	}
	for name, want := range req {
		out[name] += want
	}
	return out
}

func (simpleGRES) Dup(view nodeselect.GRESView) nodeselect.GRESView {
	out := make(nodeselect.GRESView, len(view))
	for k, v := range view {
		out[k] = v
	}
	return out
}
