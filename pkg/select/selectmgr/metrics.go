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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	nodeselect "github.com/clusterkit/nodesel/pkg/select"
)

// managerMetrics collects the counters/histograms registered per
// scheduling decision, scoped here to JobTest outcomes.
type managerMetrics struct {
	jobTestTotal    *prometheus.CounterVec
	jobTestDuration *prometheus.HistogramVec
	preemptVictims  prometheus.Histogram
}

func newManagerMetrics() *managerMetrics {
	m := &managerMetrics{
		jobTestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodesel",
			Subsystem: "select",
			Name:      "job_test_total",
			Help:      "Count of JobTest calls by mode and outcome.",
		}, []string{"mode", "outcome"}),
		jobTestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodesel",
			Subsystem: "select",
			Name:      "job_test_duration_seconds",
			Help:      "JobTest call latency by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		preemptVictims: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nodesel",
			Subsystem: "select",
			Name:      "preempt_victims",
			Help:      "Number of preemption victims in a successful JobTest.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}

	registerOrReuse(&m.jobTestTotal, m.jobTestTotal)
	registerOrReuse(&m.jobTestDuration, m.jobTestDuration)
	registerOrReuse(&m.preemptVictims, m.preemptVictims)

	return m
}

// registerOrReuse registers a collector, falling back to the
// already-registered instance when NewManager is called more than once
// in the same process (e.g. across table-driven tests), mirroring the
// teacher's pattern of registering collectors once per process.
func registerOrReuse[T prometheus.Collector](dst *T, c T) {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*dst = are.ExistingCollector.(T)
		}
	}
}

func (m *managerMetrics) observeJobTest(mode nodeselect.Mode, success bool, victims int, elapsed time.Duration) {
	outcome := "no_fit"
	if success {
		outcome = "ok"
	}
	m.jobTestTotal.WithLabelValues(mode.String(), outcome).Inc()
	m.jobTestDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
	if success && victims > 0 {
		m.preemptVictims.Observe(float64(victims))
	}
}
