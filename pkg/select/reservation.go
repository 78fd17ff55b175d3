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

// ResvTest is the node-count-only topology best-fit reservation selector
// (component J, "resv_test"). On shortfall it returns an empty set.
func ResvTest(avail *nodeset.Set, n int, tree *switchtree.Tree) *nodeset.Set {
	if tree == nil {
		return pickN(avail, n)
	}

	leafActive := make(map[string]*nodeset.Set, len(tree.Leafs()))
	for _, leaf := range tree.Leafs() {
		leafActive[leaf.Name()] = leaf.NodeBitmap().Intersection(avail)
	}

	counts := make(map[string]int, len(tree.All()))
	var count func(sw *switchtree.Switch) int
	count = func(sw *switchtree.Switch) int {
		if sw.IsLeaf() {
			c := leafActive[sw.Name()].Count()
			counts[sw.Name()] = c
			return c
		}
		total := 0
		for _, child := range sw.Children() {
			total += count(child)
		}
		counts[sw.Name()] = total
		return total
	}
	count(tree.Root())

	var chosen *switchtree.Switch
	for _, sw := range tree.All() {
		c := counts[sw.Name()]
		if c < n {
			continue
		}
		switch {
		case chosen == nil:
			chosen = sw
		case sw.Level() < chosen.Level():
			chosen = sw
		case sw.Level() == chosen.Level() && c < counts[chosen.Name()]:
			chosen = sw
		}
	}
	if chosen == nil {
		return nodeset.New(0)
	}

	usable := make([]*nodeset.Set, 0, len(tree.Leafs()))
	for _, leaf := range tree.Leafs() {
		if leaf.NodeBitmap().IsSubsetOf(chosen.NodeBitmap()) {
			usable = append(usable, leafActive[leaf.Name()])
		}
	}

	out := nodeset.New(uint(avail.Len()))
	rem := n
	for rem > 0 {
		var best *nodeset.Set
		for _, set := range usable {
			if set.None() {
				continue
			}
			if resvLeafBetter(set, best, rem) {
				best = set
			}
		}
		if best == nil {
			return nodeset.New(0)
		}
		for _, i := range best.Members() {
			if rem == 0 {
				break
			}
			out.Set(i)
			best.Clear(i)
			rem--
		}
	}

	return out
}

// resvLeafBetter scores leafs node-count-only: sufficient beats
// insufficient, smallest-sufficient wins, biggest-insufficient wins.
func resvLeafBetter(candidate, best *nodeset.Set, rem int) bool {
	if best == nil {
		return true
	}
	cSuff := candidate.Count() >= rem
	bSuff := best.Count() >= rem
	if cSuff != bSuff {
		return cSuff
	}
	if cSuff {
		return candidate.Count() < best.Count()
	}
	return candidate.Count() > best.Count()
}

// pickN picks the first n members of avail in index order, the
// no-topology fallback.
func pickN(avail *nodeset.Set, n int) *nodeset.Set {
	out := nodeset.New(uint(avail.Len()))
	picked := 0
	for _, i := range avail.Members() {
		if picked == n {
			break
		}
		out.Set(i)
		picked++
	}
	if picked < n {
		return nodeset.New(0)
	}
	return out
}
