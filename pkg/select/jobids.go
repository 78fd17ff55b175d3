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

// idBlock is the growth increment for a jobIDSet's backing array.
const idBlock = 16

// jobIDSet is a flat, sparse array of job IDs: zero entries are holes.
// Order is not significant; duplicates are tolerated on remove.
type jobIDSet struct {
	ids []JobID
}

func newJobIDSet() *jobIDSet {
	return &jobIDSet{}
}

// add inserts id into the first available hole, growing the backing array
// by idBlock if none is free.
func (s *jobIDSet) add(id JobID) {
	for i, existing := range s.ids {
		if existing == 0 {
			s.ids[i] = id
			return
		}
	}
	grown := make([]JobID, len(s.ids)+idBlock)
	copy(grown, s.ids)
	grown[len(s.ids)] = id
	s.ids = grown
}

// remove zeroes every slot matching id, returning whether any did.
func (s *jobIDSet) remove(id JobID) bool {
	found := false
	for i, existing := range s.ids {
		if existing == id {
			s.ids[i] = 0
			found = true
		}
	}
	return found
}

// contains reports whether id occupies any slot.
func (s *jobIDSet) contains(id JobID) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// members returns every nonzero id currently present.
func (s *jobIDSet) members() []JobID {
	members := make([]JobID, 0, len(s.ids))
	for _, id := range s.ids {
		if id != 0 {
			members = append(members, id)
		}
	}
	return members
}

// clone returns an independent copy.
func (s *jobIDSet) clone() *jobIDSet {
	c := &jobIDSet{ids: make([]JobID, len(s.ids))}
	copy(c.ids, s.ids)
	return c
}

// empty reports whether the set holds no job IDs at all, used by the
// "state rebuilds to a fresh empty state" law in the test suite.
func (s *jobIDSet) empty() bool {
	for _, id := range s.ids {
		if id != 0 {
			return false
		}
	}
	return true
}
