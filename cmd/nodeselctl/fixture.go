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
	"io/ioutil"

	"sigs.k8s.io/yaml"

	"github.com/clusterkit/nodesel/pkg/nodeset"
	nodeselect "github.com/clusterkit/nodesel/pkg/select"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

// fixtureNode is one node's description in a cluster fixture file, the
// YAML counterpart of nodeselect.NodeInfo.
type fixtureNode struct {
	Name       string         `json:"name"`
	CPUs       int            `json:"cpus"`
	Memory     uint32         `json:"memory"`
	Partitions []string       `json:"partitions"`
	GRES       map[string]int `json:"gres,omitempty"`
	State      string         `json:"state,omitempty"`
}

// fixtureSwitch is one switch's description, either a leaf (Nodes set) or
// a spine (Children set), the YAML counterpart of switchtree.SwitchSpec.
type fixtureSwitch struct {
	Name      string          `json:"name"`
	LinkSpeed int             `json:"linkSpeed,omitempty"`
	Nodes     []int           `json:"nodes,omitempty"`
	Children  []fixtureSwitch `json:"children,omitempty"`
}

// fixturePartition is a partition's sharing policy, the YAML counterpart
// of nodeselect.PartitionLimits.
type fixturePartition struct {
	MaxShare    uint16 `json:"maxShare"`
	SharedForce bool   `json:"sharedForce,omitempty"`
}

// fixtureJob is one already-resident job in the fixture, replayed into the
// engine by every subcommand to populate a cluster before testing a
// pending request against it.
type fixtureJob struct {
	ID        uint32         `json:"id"`
	Nodes     []int          `json:"nodes"`
	CPUs      int            `json:"cpus"`
	Partition string         `json:"partition"`
	Exclusive bool           `json:"exclusive,omitempty"`
	Suspended bool           `json:"suspended,omitempty"`
	GRES      map[string]int `json:"gres,omitempty"`
}

// clusterFixture is the synthetic cluster description cmd/nodeselctl runs
// against: a node table, an optional switch tree, partition policies, and
// an optional set of already-resident jobs, loaded once per invocation in
// place of a live node/partition/job database.
type clusterFixture struct {
	Nodes        []fixtureNode               `json:"nodes"`
	Switches     *fixtureSwitch              `json:"switches,omitempty"`
	Partitions   map[string]fixturePartition `json:"partitions,omitempty"`
	Jobs         []fixtureJob                `json:"jobs,omitempty"`
	FastSchedule bool                        `json:"fastSchedule,omitempty"`
}

func loadFixture(path string) (*clusterFixture, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f clusterFixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func nodeStateFromString(s string) nodeselect.NodeState {
	switch s {
	case "allocated":
		return nodeselect.NodeAllocated
	case "completing":
		return nodeselect.NodeCompleting
	case "powersave":
		return nodeselect.NodePowerSave
	case "powerup":
		return nodeselect.NodePowerUp
	default:
		return nodeselect.NodeIdle
	}
}

// nodeInfos converts the fixture's node list into the engine's node table.
func (f *clusterFixture) nodeInfos() []nodeselect.NodeInfo {
	nodes := make([]nodeselect.NodeInfo, len(f.Nodes))
	for i, n := range f.Nodes {
		parts := make([]nodeselect.PartitionID, len(n.Partitions))
		for j, p := range n.Partitions {
			parts[j] = nodeselect.PartitionID(p)
		}
		var gres nodeselect.GRESView
		if len(n.GRES) > 0 {
			gres = nodeselect.GRESView(n.GRES)
		}
		nodes[i] = nodeselect.NodeInfo{
			Index:          i,
			Name:           n.Name,
			RealMemory:     n.Memory,
			ConfiguredCPUs: n.CPUs,
			DetectedCPUs:   n.CPUs,
			Partitions:     parts,
			State:          nodeStateFromString(n.State),
			GRES:           gres,
		}
	}
	return nodes
}

// switchSpec converts the fixture's switch tree, if any, into a
// switchtree.SwitchSpec ready for switchtree.Build.
func (f *clusterFixture) switchSpec() *switchtree.SwitchSpec {
	if f.Switches == nil {
		return nil
	}
	var convert func(fixtureSwitch) switchtree.SwitchSpec
	convert = func(s fixtureSwitch) switchtree.SwitchSpec {
		spec := switchtree.SwitchSpec{Name: s.Name, LinkSpeed: s.LinkSpeed, Nodes: s.Nodes}
		for _, c := range s.Children {
			spec.Children = append(spec.Children, convert(c))
		}
		return spec
	}
	spec := convert(*f.Switches)
	return &spec
}

// partitionLimits returns the sharing policy for the named partition,
// defaulting to exclusive-only (MaxShare 1) when unconfigured.
func (f *clusterFixture) partitionLimits(name string) nodeselect.PartitionLimits {
	if p, ok := f.Partitions[name]; ok {
		return nodeselect.PartitionLimits{MaxShare: p.MaxShare, SharedForce: p.SharedForce}
	}
	return nodeselect.PartitionLimits{MaxShare: 1}
}

// defaultPartitionLimits returns the sharing policy the Manager should
// apply to its (single, global) partition sweep: the "batch" partition if
// configured, else an arbitrary one of the configured partitions (map
// iteration order), else the exclusive-only default.
func (f *clusterFixture) defaultPartitionLimits() nodeselect.PartitionLimits {
	if _, ok := f.Partitions["batch"]; ok {
		return f.partitionLimits("batch")
	}
	for name := range f.Partitions {
		return f.partitionLimits(name)
	}
	return nodeselect.PartitionLimits{MaxShare: 1}
}

// request converts a fixture job into a JobRequest already committed to
// specific nodes, the shape a resident (already-running) job takes: its
// NodeBitmap is pre-populated rather than left for job_test to fill in.
func (fj *fixtureJob) request() *nodeselect.JobRequest {
	var gres nodeselect.GRESRequest
	if len(fj.GRES) > 0 {
		gres = nodeselect.GRESRequest(fj.GRES)
	}
	shared := uint16(0)
	if !fj.Exclusive {
		shared = 1
	}
	return &nodeselect.JobRequest{
		ID:         nodeselect.JobID(fj.ID),
		MinNodes:   len(fj.Nodes),
		MaxNodes:   len(fj.Nodes),
		ReqNodes:   len(fj.Nodes),
		MinCPUs:    fj.CPUs,
		Partition:  nodeselect.PartitionID(fj.Partition),
		Shared:     shared,
		GRES:       gres,
		NodeBitmap: nodeset.FromSlice(fj.Nodes...),
		TotalCPUs:  fj.CPUs,
	}
}
