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

package healthcheck

import (
	"time"

	"github.com/clusterkit/nodesel/pkg/config"
)

const configHelp = `
Configuration options for the optional per-node health-check companion.
This agent never touches the selection engine's State; it only polls
nodes on an interval and invokes a drain callback for unhealthy ones.
`

// options is the runtime-configurable set of healthcheck parameters.
type options struct {
	// Interval is the polling period between probe sweeps.
	Interval time.Duration
}

var defaults = &options{Interval: 30 * time.Second}
var opt = &options{}

func (o *options) configNotify(event config.Event, source config.Source) error {
	log.Info("healthcheck configuration %v from %s: interval=%s", event, source, o.Interval)
	return nil
}

// Interval returns the currently configured polling interval.
func Interval() time.Duration {
	return opt.Interval
}

func init() {
	*opt = *defaults

	m := config.Register("healthcheck", configHelp, config.WithNotify(opt.configNotify))
	m.DurationVar(&opt.Interval, "interval", defaults.Interval, "polling interval between per-node health-check sweeps")
}
