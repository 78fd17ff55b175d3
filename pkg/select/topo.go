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

import (
	"github.com/clusterkit/nodesel/pkg/nodeset"
	"github.com/clusterkit/nodesel/pkg/switchtree"
)

// leafState tracks one leaf switch's remaining candidate nodes and CPU
// total during the topology best-fit walk.
type leafState struct {
	leaf     *switchtree.Switch
	active   *nodeset.Set
	cpuTotal int
}

func (l *leafState) sufficient(remNodes, remCPUs int) bool {
	return l.active.Count() >= remNodes && l.cpuTotal >= remCPUs
}

func sumCPUs(set *nodeset.Set, cpuEst CPUEstimator) int {
	total := 0
	for _, i := range set.Members() {
		total += cpuEst.AvailableCPUs(i)
	}
	return total
}

// jobTestTopo is the topology best-fit selector (component F,
// "job_test_topo"): like JobTest but over a tree of switches, minimizing
// switch-subtree span.
func jobTestTopo(job *JobRequest, in *nodeset.Set, cpuEst CPUEstimator, tree *switchtree.Tree, bias AllocBias) (*nodeset.Set, error) {
	const op = "job_test_topo"

	out := nodeset.New(uint(in.Len()))
	remNodes := job.MinNodes
	remCPUs := job.MinCPUs

	leafs := make([]*leafState, 0, len(tree.Leafs()))
	for _, leaf := range tree.Leafs() {
		leafs = append(leafs, &leafState{leaf: leaf, active: leaf.NodeBitmap().Intersection(in)})
	}

	avail := nodeset.New(uint(in.Len()))
	for _, ls := range leafs {
		avail.InPlaceUnion(ls.active)
	}

	if job.ReqNodeBitmap != nil && !job.ReqNodeBitmap.IsSubsetOf(avail) {
		return nil, errNoFit(op, "required nodes not reachable in switch tree")
	}

	if job.ReqNodeBitmap != nil {
		for _, i := range job.ReqNodeBitmap.Members() {
			out.Set(i)
			remNodes--
			remCPUs -= cpuEst.AvailableCPUs(i)
			for _, ls := range leafs {
				ls.active.Clear(i)
			}
		}
	}

	// Step 3: fill leafs that already contained a required node, greedily.
	if job.ReqNodeBitmap != nil {
		for _, ls := range leafs {
			if remNodes <= 0 && remCPUs <= 0 {
				break
			}
			if !ls.leaf.NodeBitmap().Intersects(job.ReqNodeBitmap) {
				continue
			}
			drainLeaf(ls, cpuEst, out, &remNodes, &remCPUs)
		}
	}

	if remNodes <= 0 && remCPUs <= 0 {
		job.TotalCPUs = job.MinCPUs - remCPUs
		return out, nil
	}

	// Step 4: recompute per-switch CPU totals from remaining active bits.
	for _, ls := range leafs {
		ls.cpuTotal = sumCPUs(ls.active, cpuEst)
	}

	// Step 5: choose the satisfying subtree across all switches.
	chosen := chooseSubtree(tree, leafs, remNodes, remCPUs, bias)
	if chosen == nil {
		return nil, errNoFit(op, "no switch subtree satisfies the request")
	}

	// Step 6: restrict to leafs under the chosen subtree.
	usable := make([]*leafState, 0, len(leafs))
	for _, ls := range leafs {
		if ls.leaf.NodeBitmap().IsSubsetOf(chosen.NodeBitmap()) {
			usable = append(usable, ls)
		}
	}

	// Step 7: leaf best-fit loop.
	for remNodes > 0 || remCPUs > 0 {
		var best *leafState
		for _, ls := range usable {
			if ls.active.None() {
				continue
			}
			if leafBetter(ls, best, remNodes, remCPUs, bias) {
				best = ls
			}
		}
		if best == nil {
			return nil, errNoFit(op, "switch subtree exhausted before request satisfied")
		}
		drainLeaf(best, cpuEst, out, &remNodes, &remCPUs)
	}

	job.TotalCPUs = job.MinCPUs - remCPUs
	return out, nil
}

// drainLeaf pulls usable bits from a leaf's active set into out until the
// job is satisfied or the leaf is exhausted.
func drainLeaf(ls *leafState, cpuEst CPUEstimator, out *nodeset.Set, remNodes, remCPUs *int) {
	for _, i := range ls.active.Members() {
		if *remNodes <= 0 && *remCPUs <= 0 {
			break
		}
		out.Set(i)
		ls.active.Clear(i)
		*remNodes--
		*remCPUs -= cpuEst.AvailableCPUs(i)
	}
	ls.cpuTotal = 0
}

// leafBetter scores two leafs using the same sufficiency-first ordering as
// the linear selector, without the "has required node" dimension.
func leafBetter(candidate, best *leafState, remNodes, remCPUs int, bias AllocBias) bool {
	if best == nil {
		return true
	}

	cSuff := candidate.sufficient(remNodes, remCPUs)
	bSuff := best.sufficient(remNodes, remCPUs)
	if cSuff != bSuff {
		return cSuff
	}

	if cSuff {
		if candidate.cpuTotal != best.cpuTotal {
			better := candidate.cpuTotal < best.cpuTotal
			if bias == PreferSpread {
				return !better
			}
			return better
		}
		return false
	}

	if candidate.cpuTotal != best.cpuTotal {
		better := candidate.cpuTotal > best.cpuTotal
		if bias == PreferSpread {
			return !better
		}
		return better
	}
	return false
}

// chooseSubtree picks the switch (leaf or spine) with the smallest level
// whose active node count and CPU total satisfy the remaining request,
// breaking ties by smallest node count.
func chooseSubtree(tree *switchtree.Tree, leafs []*leafState, remNodes, remCPUs int, bias AllocBias) *switchtree.Switch {
	active := make(map[string]*nodeset.Set, len(tree.All()))
	cpuTotal := make(map[string]int, len(tree.All()))

	for _, ls := range leafs {
		active[ls.leaf.Name()] = ls.active
		cpuTotal[ls.leaf.Name()] = ls.cpuTotal
	}

	var pickByLevel func(sw *switchtree.Switch) (*nodeset.Set, int)
	pickByLevel = func(sw *switchtree.Switch) (*nodeset.Set, int) {
		if sw.IsLeaf() {
			return active[sw.Name()], cpuTotal[sw.Name()]
		}
		set := nodeset.New(0)
		cpus := 0
		for _, child := range sw.Children() {
			cs, cc := pickByLevel(child)
			set.InPlaceUnion(cs)
			cpus += cc
		}
		active[sw.Name()] = set
		cpuTotal[sw.Name()] = cpus
		return set, cpus
	}
	pickByLevel(tree.Root())

	var chosen *switchtree.Switch
	var chosenCount int
	for _, sw := range tree.All() {
		set := active[sw.Name()]
		cpus := cpuTotal[sw.Name()]
		count := set.Count()
		if count < remNodes || cpus < remCPUs {
			continue
		}
		switch {
		case chosen == nil:
			chosen, chosenCount = sw, count
		case sw.Level() < chosen.Level():
			chosen, chosenCount = sw, count
		case sw.Level() == chosen.Level() && count < chosenCount:
			chosen, chosenCount = sw, count
		}
	}
	return chosen
}
