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

// SetsConflict reports whether two reservation sets are in conflict: either
// they share a busy bit outright, or some cycle pair violates an exclusion,
// presence, final-presence, absence or final-absence constraint of a unit
// mentioned in either operand.
func (c *Context) SetsConflict(a ReservSet, b ReservSet) bool {
	if a.Intersects(b) {
		return true
	}
	// Fast path: no unit carries any constraint.
	if !c.constrained {
		return false
	}
	// Final presence and absence are checked against the union of both
	// operands.
	union := a.Clone()
	union.Or(b)
	//
	return c.violates(a, b, union) || c.violates(b, a, union)
}

// violates checks the constraints of every unit busy in set a against the
// reservations of set b (and, for final forms, the union of both).
func (c *Context) violates(a ReservSet, b ReservSet, union ReservSet) bool {
	for cycle := 0; cycle < c.maxCycles; cycle++ {
		for _, u := range c.units {
			if !a.Test(cycle, u.Num) {
				continue
			}
			// Exclusion: no excluded unit may be busy in b on this cycle.
			for v := range u.Excl {
				if b.Test(cycle, v) {
					return true
				}
			}
			// Presence: at least one pattern must be fully busy in b.
			if len(u.Presence) > 0 && !presenceSatisfied(u.Presence, b, cycle) {
				return true
			}
			//
			if len(u.FinalPresence) > 0 && !presenceSatisfied(u.FinalPresence, union, cycle) {
				return true
			}
			// Absence: no pattern may be fully busy.
			if absenceViolated(u.Absence, b, cycle) {
				return true
			}
			//
			if absenceViolated(u.FinalAbsence, union, cycle) {
				return true
			}
		}
	}
	//
	return false
}

// presenceSatisfied reports whether at least one pattern is a subset of the
// reservations of rs on the given cycle.
func presenceSatisfied(patterns [][]*Unit, rs ReservSet, cycle int) bool {
	for _, pattern := range patterns {
		if patternSubset(pattern, rs, cycle) {
			return true
		}
	}
	//
	return false
}

// absenceViolated reports whether some pattern is entirely contained in the
// reservations of rs on the given cycle.
func absenceViolated(patterns [][]*Unit, rs ReservSet, cycle int) bool {
	for _, pattern := range patterns {
		if patternSubset(pattern, rs, cycle) {
			return true
		}
	}
	//
	return false
}

func patternSubset(pattern []*Unit, rs ReservSet, cycle int) bool {
	for _, u := range pattern {
		if !rs.Test(cycle, u.Num) {
			return false
		}
	}
	//
	return true
}
