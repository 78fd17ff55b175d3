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

// Command nodeselctl exercises the node-selection engine end to end
// against a synthetic cluster description: a "test" subcommand for
// job_test, a "resv" subcommand for resv_test, and a "scenario" command
// that drives a short scripted sequence through a single in-process
// Manager.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterkit/nodesel/pkg/version"
)

var (
	clusterPath string
	jsonOutput  bool

	rootCmd = &cobra.Command{
		Use:     "nodeselctl",
		Short:   "Exercise the linear/topology-aware node-selection engine",
		Long:    `nodeselctl loads a synthetic cluster description and drives the node-selection engine's entry points against it.`,
		Version: version.Version,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&clusterPath, "cluster", "", "path to a cluster fixture YAML file (required)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON instead of text")
	rootCmd.MarkPersistentFlagRequired("cluster")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(resvCmd)
}

func secondsToDuration(s int) time.Duration {
	if s <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s) * time.Second
}

func loadEngine() (*engine, error) {
	fixture, err := loadFixture(clusterPath)
	if err != nil {
		return nil, fmt.Errorf("load cluster fixture %s: %w", clusterPath, err)
	}
	return newEngine(fixture)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func cmdOut() *os.File {
	return os.Stdout
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
