// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package automata

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-pipegen/pkg/util/collection/hash"
)

// ReservSet is a bit string of length (units x cycles) recording which units
// are busy on which future cycles, indexed by cycle*units + unit.  All sets
// of one generation run share the same width.
type ReservSet struct {
	bits *bitset.BitSet
	// units per cycle
	units uint
}

// NewReservSet constructs an empty reservation set for a given number of
// units and cycles.
func NewReservSet(units int, cycles int) ReservSet {
	return ReservSet{bitset.New(uint(units * cycles)), uint(units)}
}

// newReservSet constructs an empty reservation set with this run's width.
func (c *Context) newReservSet() ReservSet {
	return NewReservSet(len(c.units), c.maxCycles)
}

// Clone creates a copy of this set which shares nothing with the original.
func (r ReservSet) Clone() ReservSet {
	return ReservSet{r.bits.Clone(), r.units}
}

// Set marks a given unit busy on a given cycle.
func (r ReservSet) Set(cycle int, unit int) {
	r.bits.Set(uint(cycle)*r.units + uint(unit))
}

// Test reports whether a given unit is busy on a given cycle.
func (r ReservSet) Test(cycle int, unit int) bool {
	return r.bits.Test(uint(cycle)*r.units + uint(unit))
}

// Or unions another set into this one.
func (r ReservSet) Or(other ReservSet) {
	r.bits.InPlaceUnion(other.bits)
}

// And intersects another set into this one.
func (r ReservSet) And(other ReservSet) {
	r.bits.InPlaceIntersection(other.bits)
}

// Shift models the advance of one CPU cycle: cycle 0 is dropped, all later
// cycles move one step closer and the final cycle is zero-filled.  A fresh
// set is returned.
func (r ReservSet) Shift() ReservSet {
	shifted := ReservSet{bitset.New(r.bits.Len()), r.units}
	//
	for i, ok := r.bits.NextSet(r.units); ok; i, ok = r.bits.NextSet(i + 1) {
		shifted.bits.Set(i - r.units)
	}
	//
	return shifted
}

// Empty reports whether no unit is busy on any cycle.
func (r ReservSet) Empty() bool {
	return r.bits.None()
}

// Intersects reports whether the two sets share any busy bit.  Constraint
// tables are not consulted here; see Context.SetsConflict.
func (r ReservSet) Intersects(other ReservSet) bool {
	return r.bits.IntersectionCardinality(other.bits) > 0
}

// Equals reports whether two sets mark exactly the same bits.
func (r ReservSet) Equals(other ReservSet) bool {
	return r.bits.Equal(other.bits)
}

// Hash returns a hashcode over the underlying words.
func (r ReservSet) Hash() uint64 {
	return hash.Uint64s(r.bits.Bytes())
}

// Cmp orders two sets lexicographically over their underlying words.
func (r ReservSet) Cmp(other ReservSet) int {
	var (
		a = r.bits.Bytes()
		b = other.bits.Bytes()
	)
	//
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] < b[i] {
			return -1
		} else if a[i] > b[i] {
			return 1
		}
	}
	//
	return len(a) - len(b)
}

// Words exposes the underlying bit words, for hashing and interning.
func (r ReservSet) Words() []uint64 {
	return r.bits.Bytes()
}

// describe renders the busy (cycle, unit) pairs of this set using unit
// names, for diagnostics and description files.
func (c *Context) describe(r ReservSet) string {
	var (
		builder strings.Builder
		first   = true
	)
	//
	for cycle := 0; cycle < c.maxCycles; cycle++ {
		for _, u := range c.units {
			if r.Test(cycle, u.Num) {
				if !first {
					builder.WriteString(" ")
				}
				//
				first = false
				//
				builder.WriteString(u.Name)
				builder.WriteString("@")
				builder.WriteString(strconv.Itoa(cycle))
			}
		}
	}
	//
	if first {
		return "<empty>"
	}
	//
	return builder.String()
}
