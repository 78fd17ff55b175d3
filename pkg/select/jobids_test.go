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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobIDSetAddRemove(t *testing.T) {
	s := newJobIDSet()
	require.False(t, s.contains(1))

	s.add(1)
	s.add(2)
	require.True(t, s.contains(1))
	require.True(t, s.contains(2))
	require.ElementsMatch(t, []JobID{1, 2}, s.members())

	require.True(t, s.remove(1))
	require.False(t, s.contains(1))
	require.False(t, s.remove(1))
}

func TestJobIDSetGrowsAndFillsHoles(t *testing.T) {
	s := newJobIDSet()
	for i := JobID(1); i <= idBlock+1; i++ {
		s.add(i)
	}
	require.Len(t, s.members(), idBlock+1)

	s.remove(3)
	s.add(999)
	require.True(t, s.contains(999))
	require.Len(t, s.members(), idBlock+1)
}

func TestJobIDSetClone(t *testing.T) {
	s := newJobIDSet()
	s.add(7)
	clone := s.clone()
	clone.add(8)

	require.False(t, s.contains(8))
	require.True(t, clone.contains(8))
}

func TestJobIDSetEmpty(t *testing.T) {
	s := newJobIDSet()
	require.True(t, s.empty())
	s.add(1)
	require.False(t, s.empty())
	s.remove(1)
	require.True(t, s.empty())
}
