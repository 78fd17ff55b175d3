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

// Package switchtree models the cluster's network-switch hierarchy used
// by the topology-aware selector: a configured, read-only tree of
// switches, each covering a subtree of cluster nodes.
package switchtree

import (
	"github.com/pkg/errors"

	"github.com/clusterkit/nodesel/pkg/nodeset"
)

// Switch is one node of the switch tree: leafs are level 0, spines are
// higher, up to the root.
type Switch struct {
	name      string
	level     int
	linkSpeed int
	nodes     *nodeset.Set
	children  []*Switch
	parent    *Switch
}

// Name returns the switch's configured name.
func (s *Switch) Name() string {
	return s.name
}

// Level returns the switch's level; 0 is a leaf.
func (s *Switch) Level() int {
	return s.level
}

// LinkSpeed returns the switch's configured link speed, used only for
// tie-break logging.
func (s *Switch) LinkSpeed() int {
	return s.linkSpeed
}

// NodeBitmap returns the (read-only) set of cluster nodes in this switch's
// subtree.
func (s *Switch) NodeBitmap() *nodeset.Set {
	return s.nodes
}

// Children returns this switch's immediate children, empty for a leaf.
func (s *Switch) Children() []*Switch {
	return s.children
}

// Parent returns this switch's parent, or nil at the root.
func (s *Switch) Parent() *Switch {
	return s.parent
}

// IsLeaf reports whether this switch has no children.
func (s *Switch) IsLeaf() bool {
	return len(s.children) == 0
}

// Tree is a configured switch hierarchy, indexed by level for the
// best-fit walk.
type Tree struct {
	root    *Switch
	leafs   []*Switch
	byLevel map[int][]*Switch
	all     []*Switch
}

// Root returns the tree's root switch.
func (t *Tree) Root() *Switch {
	return t.root
}

// Leafs returns every leaf (level 0) switch, in configuration order.
func (t *Tree) Leafs() []*Switch {
	return t.leafs
}

// AtLevel returns every switch at the given level.
func (t *Tree) AtLevel(level int) []*Switch {
	return t.byLevel[level]
}

// All returns every switch in the tree, in configuration order.
func (t *Tree) All() []*Switch {
	return t.all
}

// SwitchSpec is the read-only, externally provided description of a
// single switch used to build a Tree.
type SwitchSpec struct {
	Name      string
	LinkSpeed int
	// Nodes is this switch's own complement of directly attached nodes,
	// when it's a leaf. Spines derive their bitmap from their children.
	Nodes    []int
	Children []SwitchSpec
}

// Build constructs a Tree from a root SwitchSpec, computing each spine's
// node bitmap as the union of its children's and assigning levels bottom-up.
func Build(root SwitchSpec) (*Tree, error) {
	t := &Tree{byLevel: make(map[int][]*Switch)}

	s, err := t.build(root, nil)
	if err != nil {
		return nil, errors.Wrap(err, "switchtree: failed to build tree")
	}
	t.root = s

	return t, nil
}

func (t *Tree) build(spec SwitchSpec, parent *Switch) (*Switch, error) {
	s := &Switch{
		name:      spec.Name,
		linkSpeed: spec.LinkSpeed,
		parent:    parent,
	}

	if len(spec.Children) == 0 {
		if len(spec.Nodes) == 0 {
			return nil, errors.Errorf("switch %q: leaf has no nodes", spec.Name)
		}
		s.level = 0
		s.nodes = nodeset.FromSlice(spec.Nodes...)
		t.leafs = append(t.leafs, s)
	} else {
		if len(spec.Nodes) != 0 {
			return nil, errors.Errorf("switch %q: spine must not list its own nodes", spec.Name)
		}
		s.nodes = nodeset.New(0)
		maxChildLevel := -1
		for _, childSpec := range spec.Children {
			child, err := t.build(childSpec, s)
			if err != nil {
				return nil, err
			}
			s.children = append(s.children, child)
			s.nodes.InPlaceUnion(child.nodes)
			if child.level > maxChildLevel {
				maxChildLevel = child.level
			}
		}
		s.level = maxChildLevel + 1
	}

	t.byLevel[s.level] = append(t.byLevel[s.level], s)
	t.all = append(t.all, s)

	return s, nil
}
