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

package selectmgr

import (
	"github.com/clusterkit/nodesel/pkg/config"
)

const configHelp = `
Configuration options for the node-selection engine: whether to derive
per-node CPU/memory figures from the node's declared configuration
(fast-schedule) or from detected values, and which unit the surrounding
scheduler tracks as its consumable resource.
`

// engineOptions is the runtime-configurable subset of Manager's behavior.
// NewManager reads these once; later changes do not reach a Manager that
// already exists (NodeInit takes its fast-schedule flag as an argument, and
// Reconfigure does not read them).
type engineOptions struct {
	FastSchedule       bool
	ConsumableResource string
}

var defaults = &engineOptions{FastSchedule: false, ConsumableResource: "CR_CPU"}
var opt = &engineOptions{}

func (o *engineOptions) configNotify(event config.Event, source config.Source) error {
	log.Info("select configuration %v from %s: fast-schedule=%v consumable-resource=%s",
		event, source, o.FastSchedule, o.ConsumableResource)
	return nil
}

func init() {
	*opt = *defaults

	m := config.Register("select", configHelp, config.WithNotify(opt.configNotify))
	m.BoolVar(&opt.FastSchedule, "fast-schedule", defaults.FastSchedule,
		"take CPU/memory from the node's declared configuration rather than probed values")
	m.StringVar(&opt.ConsumableResource, "consumable-resource", defaults.ConsumableResource,
		"consumable resource unit tracked by the surrounding scheduler: CR_CPU or CR_MEMORY")
}
