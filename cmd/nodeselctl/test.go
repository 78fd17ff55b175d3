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
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	nodeselect "github.com/clusterkit/nodesel/pkg/select"
)

// randomJobID derives a nonzero synthetic job ID from a fresh UUID, since
// this harness has no job-submission sequence of its own to draw IDs
// from.
func randomJobID() uint32 {
	id := uuid.New()
	if v := binary.BigEndian.Uint32(id[:4]); v != 0 {
		return v
	}
	return 1
}

var (
	testMode       string
	testMinNodes   int
	testMaxNodes   int
	testMinCPUs    int
	testPartition  string
	testShared     bool
	testMemPerNode uint32
	testJobID      uint32
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run job_test for a pending job request against the cluster fixture",
	RunE:  runTest,
}

func init() {
	testCmd.Flags().StringVar(&testMode, "mode", "run_now", "scheduling mode: test_only, run_now, or will_run")
	testCmd.Flags().IntVar(&testMinNodes, "min-nodes", 1, "minimum node count")
	testCmd.Flags().IntVar(&testMaxNodes, "max-nodes", 1, "maximum node count")
	testCmd.Flags().IntVar(&testMinCPUs, "min-cpus", 1, "minimum total CPU count")
	testCmd.Flags().StringVar(&testPartition, "partition", "batch", "partition name")
	testCmd.Flags().BoolVar(&testShared, "shared", false, "allow sharing nodes with other jobs")
	testCmd.Flags().Uint32Var(&testMemPerNode, "mem-per-node", 0, "memory required per node, in MB")
	testCmd.Flags().Uint32Var(&testJobID, "job-id", 0, "job ID; a random one is generated when 0")
}

func parseMode(s string) (nodeselect.Mode, error) {
	switch s {
	case "test_only":
		return nodeselect.TestOnly, nil
	case "run_now":
		return nodeselect.RunNow, nil
	case "will_run":
		return nodeselect.WillRun, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func runTest(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(testMode)
	if err != nil {
		return err
	}

	eng, err := loadEngine()
	if err != nil {
		return err
	}

	id := testJobID
	if id == 0 {
		id = randomJobID()
	}
	job := jobRequestFromFlags(id, testMinNodes, testMaxNodes, testMinCPUs, testPartition, testShared, testMemPerNode)

	candidates := allNodes(len(eng.fixture.Nodes))
	chosen, victims, err := eng.mgr.JobTest(job, candidates, mode, nil)
	if err != nil {
		return fmt.Errorf("job_test: %w", err)
	}

	result := map[string]interface{}{
		"mode":    mode.String(),
		"chosen":  chosen.Members(),
		"victims": victimIDs(victims),
	}
	if mode == nodeselect.WillRun {
		result["start_time"] = job.StartTime
	}
	return printResult(result)
}

func allNodes(n int) *nodeset.Set {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return nodeset.FromSlice(idx...)
}

func victimIDs(victims []nodeselect.PreemptCandidate) []uint32 {
	ids := make([]uint32, len(victims))
	for i, v := range victims {
		ids[i] = uint32(v.ID)
	}
	return ids
}

func printResult(v interface{}) error {
	if jsonOutput {
		enc := json.NewEncoder(cmdOut())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(cmdOut(), "%+v\n", v)
	return nil
}
