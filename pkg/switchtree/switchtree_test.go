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

package switchtree_test

import (
	"testing"

	"github.com/clusterkit/nodesel/pkg/switchtree"
	"github.com/stretchr/testify/require"
)

func twoLeafSpine() switchtree.SwitchSpec {
	return switchtree.SwitchSpec{
		Name: "spine0",
		Children: []switchtree.SwitchSpec{
			{Name: "leaf0", Nodes: []int{0, 1, 2, 3}},
			{Name: "leaf1", Nodes: []int{4, 5, 6, 7}},
		},
	}
}

func TestBuildLevels(t *testing.T) {
	tree, err := switchtree.Build(twoLeafSpine())
	require.NoError(t, err)

	require.Equal(t, 1, tree.Root().Level())
	require.Len(t, tree.Leafs(), 2)

	spine := tree.AtLevel(1)
	require.Len(t, spine, 1)
	require.Equal(t, 8, spine[0].NodeBitmap().Count())
}

func TestBuildRejectsEmptyLeaf(t *testing.T) {
	_, err := switchtree.Build(switchtree.SwitchSpec{Name: "lonely"})
	require.Error(t, err)
}

func TestBuildRejectsSpineWithOwnNodes(t *testing.T) {
	spec := twoLeafSpine()
	spec.Nodes = []int{9}
	_, err := switchtree.Build(spec)
	require.Error(t, err)
}
