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

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	nodeselect "github.com/clusterkit/nodesel/pkg/select"
)

var (
	scenarioHealthcheck bool
	scenarioInterval    int
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run a scripted begin/ready/suspend/resume/fini sequence against the cluster fixture",
	RunE:  runScenario,
}

func init() {
	scenarioCmd.Flags().BoolVar(&scenarioHealthcheck, "healthcheck", false, "start the periodic node health-check companion")
	scenarioCmd.Flags().IntVar(&scenarioInterval, "healthcheck-interval", 5, "health-check poll interval, in seconds")
}

func runScenario(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}

	out := cmdOut()
	fmt.Fprintf(out, "loaded %d nodes, %d resident jobs\n", len(eng.fixture.Nodes), len(eng.fixture.Jobs))

	if scenarioHealthcheck {
		eng.startHealthcheck(scenarioInterval)
		defer eng.stopHealthcheck()
	}

	job := jobRequestFromFlags(randomJobID(), 1, 2, 1, "batch", false, 0)
	candidates := allNodes(len(eng.fixture.Nodes))

	chosen, victims, err := eng.mgr.JobTest(job, candidates, nodeselect.RunNow, nil)
	if err != nil {
		fmt.Fprintf(out, "job_test: no fit: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "job %d: job_test chose nodes %v (victims %v)\n", job.ID, chosen.Members(), victimIDs(victims))

	job.NodeBitmap = chosen
	if err := eng.mgr.JobBegin(job); err != nil {
		return fmt.Errorf("job_begin: %w", err)
	}
	eng.cpuEst.debitNodes(chosen.Members(), job.MinCPUs)
	fmt.Fprintf(out, "job %d: begun\n", job.ID)

	if ready := eng.mgr.JobReady(job); ready != 0 {
		fmt.Fprintf(out, "job %d: ready\n", job.ID)
	} else {
		fmt.Fprintf(out, "job %d: waiting on node power state\n", job.ID)
	}

	if err := eng.mgr.JobSuspend(job); err != nil {
		return fmt.Errorf("job_suspend: %w", err)
	}
	fmt.Fprintf(out, "job %d: suspended\n", job.ID)

	if err := eng.mgr.JobResume(job); err != nil {
		return fmt.Errorf("job_resume: %w", err)
	}
	fmt.Fprintf(out, "job %d: resumed\n", job.ID)

	if scenarioHealthcheck {
		fmt.Fprintf(out, "health-check running every %ds, press Ctrl-C to finish the job and exit\n", scenarioInterval)
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigs:
		case <-time.After(time.Duration(scenarioInterval*3) * time.Second):
		}
	}

	eng.cpuEst.creditNodes(chosen.Members(), job.MinCPUs)
	if err := eng.mgr.JobFini(job); err != nil {
		return fmt.Errorf("job_fini: %w", err)
	}
	fmt.Fprintf(out, "job %d: finished\n", job.ID)

	return nil
}
