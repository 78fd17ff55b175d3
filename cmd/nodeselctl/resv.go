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

	"github.com/spf13/cobra"
)

var resvNodeCount int

var resvCmd = &cobra.Command{
	Use:   "resv",
	Short: "Run resv_test: pick the best-fit node set for an advance reservation",
	RunE:  runResv,
}

func init() {
	resvCmd.Flags().IntVar(&resvNodeCount, "nodes", 1, "number of nodes to reserve")
}

func runResv(cmd *cobra.Command, args []string) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}

	avail := allNodes(len(eng.fixture.Nodes))
	chosen := eng.mgr.ResvTest(avail, resvNodeCount)
	if chosen == nil || chosen.None() {
		fmt.Fprintln(cmdOut(), "resv_test: no feasible node set")
		return nil
	}
	return printResult(map[string]interface{}{"chosen": chosen.Members()})
}
