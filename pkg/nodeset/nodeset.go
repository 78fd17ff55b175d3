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

// Package nodeset implements the node-index bitmap used throughout the
// selection engine: candidate sets, required/excluded sets, per-switch
// active sets, and the chosen allocation are all nodeset.Set values.
package nodeset

import (
	"strconv"
	"strings"

	"github.com/willf/bitset"
)

// Set is an unordered set of dense node indices, backed by a bitset.
type Set struct {
	bits *bitset.BitSet
}

// New creates an empty set sized to hold indices up to length-1.
func New(length uint) *Set {
	return &Set{bits: bitset.New(length)}
}

// FromSlice creates a set containing exactly the given indices.
func FromSlice(indices ...int) *Set {
	s := New(0)
	for _, i := range indices {
		s.Set(i)
	}
	return s
}

// Set adds node i to the set.
func (s *Set) Set(i int) *Set {
	s.bits.Set(uint(i))
	return s
}

// Clear removes node i from the set.
func (s *Set) Clear(i int) *Set {
	s.bits.Clear(uint(i))
	return s
}

// Test reports whether node i is a member of the set.
func (s *Set) Test(i int) bool {
	if s == nil || s.bits == nil {
		return false
	}
	return s.bits.Test(uint(i))
}

// Count returns the number of nodes in the set.
func (s *Set) Count() int {
	if s == nil || s.bits == nil {
		return 0
	}
	return int(s.bits.Count())
}

// Len returns the capacity (highest indexable bit + 1) of the set.
func (s *Set) Len() int {
	if s == nil || s.bits == nil {
		return 0
	}
	return int(s.bits.Len())
}

// None reports whether the set is empty.
func (s *Set) None() bool {
	return s.Count() == 0
}

// Any reports whether the set has at least one member.
func (s *Set) Any() bool {
	return !s.None()
}

// Clone returns an independent deep copy of the set.
func (s *Set) Clone() *Set {
	if s == nil || s.bits == nil {
		return New(0)
	}
	return &Set{bits: s.bits.Clone()}
}

// Union returns a new set containing the members of s and other.
func (s *Set) Union(other *Set) *Set {
	if other == nil || other.bits == nil {
		return s.Clone()
	}
	return &Set{bits: s.bits.Union(other.bits)}
}

// Intersection returns a new set containing only members present in both s and other.
func (s *Set) Intersection(other *Set) *Set {
	if other == nil || other.bits == nil {
		return New(0)
	}
	return &Set{bits: s.bits.Intersection(other.bits)}
}

// Difference returns a new set with other's members removed from s.
func (s *Set) Difference(other *Set) *Set {
	if other == nil || other.bits == nil {
		return s.Clone()
	}
	return &Set{bits: s.bits.Difference(other.bits)}
}

// IsSubsetOf reports whether every member of s is also a member of other.
func (s *Set) IsSubsetOf(other *Set) bool {
	if s == nil || s.None() {
		return true
	}
	if other == nil {
		return false
	}
	return s.bits.IsSubset(other.bits)
}

// Intersects reports whether s and other share at least one member.
func (s *Set) Intersects(other *Set) bool {
	if s == nil || other == nil {
		return false
	}
	return s.bits.IntersectionCardinality(other.bits) > 0
}

// Equal reports whether s and other have exactly the same members.
func (s *Set) Equal(other *Set) bool {
	if s == nil && other == nil {
		return true
	}
	if s == nil || other == nil {
		return s.None() && other.None()
	}
	return s.bits.Equal(other.bits)
}

// InPlaceUnion merges other's members into s.
func (s *Set) InPlaceUnion(other *Set) {
	if other == nil || other.bits == nil {
		return
	}
	s.bits.InPlaceUnion(other.bits)
}

// InPlaceIntersection keeps only members s shares with other.
func (s *Set) InPlaceIntersection(other *Set) {
	if other == nil || other.bits == nil {
		s.bits.ClearAll()
		return
	}
	s.bits.InPlaceIntersection(other.bits)
}

// InPlaceDifference removes other's members from s.
func (s *Set) InPlaceDifference(other *Set) {
	if other == nil || other.bits == nil {
		return
	}
	s.bits.InPlaceDifference(other.bits)
}

// ClearAll empties the set.
func (s *Set) ClearAll() *Set {
	s.bits.ClearAll()
	return s
}

// Members returns the set's indices in ascending order.
func (s *Set) Members() []int {
	if s == nil || s.bits == nil {
		return nil
	}
	members := make([]int, 0, s.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		members = append(members, int(i))
	}
	return members
}

// NextSet returns the smallest member index >= from, and whether one exists.
// It mirrors bitset.BitSet's iteration idiom for best-fit sweeps.
func (s *Set) NextSet(from int) (int, bool) {
	i, ok := s.bits.NextSet(uint(from))
	return int(i), ok
}

// String renders the set as a sorted, comma-separated list of indices.
func (s *Set) String() string {
	members := s.Members()
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}
