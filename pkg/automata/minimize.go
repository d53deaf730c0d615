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
	"fmt"
	"sort"
	"strings"
)

// Minimize merges equivalent states of every automaton by partition
// refinement.  Two extra discriminators split states up front: differing
// out-arc counts, and differing cycle-0 observations of any queryable unit.
// Afterwards states reachable only through advance-cycle arcs are tagged,
// and the final states are enumerated with the start state first.  Under the
// no-minimization option the partitioning is skipped and every reachable
// state survives.
func (c *Context) Minimize() {
	for _, a := range c.automata {
		c.minimizeAutomaton(a)
	}
}

func (c *Context) minimizeAutomaton(a *Automaton) {
	states := c.reachable(a)
	//
	if !c.options.NoMinimize {
		c.refinePartition(a, states)
		states = c.mergeClasses(a, states)
	}
	//
	for i, s := range states {
		s.num = i
	}
	//
	a.States = states
	a.MinStates = len(states)
	a.MinArcs = countArcs(states)
	//
	tagNewCycleStates(a)
}

// refinePartition assigns equivalence class numbers to every state.  The
// initial partition distinguishes out-arc counts and queryable-unit
// observations; each refinement round then distinguishes states by their
// sorted (destination class, instruction, state alts) triples, iterating
// until stable.
func (c *Context) refinePartition(a *Automaton, states []*State) {
	assign := func(keyOf func(*State) string) bool {
		var (
			classes = make(map[string]int)
			changed = false
		)
		//
		for _, s := range states {
			key := keyOf(s)
			//
			class, ok := classes[key]
			//
			if !ok {
				class = len(classes)
				classes[key] = class
			}
			//
			if s.equivClass != class {
				s.equivClass = class
				changed = true
			}
		}
		//
		return changed
	}
	// Initial partition: arc count and queryable observations.
	assign(func(s *State) string {
		return fmt.Sprintf("%d:%s", arcCount(s), queryObservations(a, s))
	})
	// Refinement rounds.
	for {
		if !assign(func(s *State) string { return transitionSignature(s) }) {
			break
		}
	}
}

func arcCount(s *State) int {
	count := 0
	//
	for arc := s.arcs; arc != nil; arc = arc.next {
		count++
	}
	//
	return count
}

// queryObservations renders the cycle-0 reservation of every queryable unit
// of the automaton, as observed through this state.
func queryObservations(a *Automaton, s *State) string {
	var builder strings.Builder
	//
	for _, u := range a.QueryUnits {
		if s.Reservs().Test(0, u.Num) {
			builder.WriteByte('1')
		} else {
			builder.WriteByte('0')
		}
	}
	//
	return builder.String()
}

// transitionSignature renders the sorted (destination class, instruction,
// state alts) triples of a state's out-arcs.
func transitionSignature(s *State) string {
	var triples []string
	//
	for arc := s.arcs; arc != nil; arc = arc.next {
		triples = append(triples,
			fmt.Sprintf("%d/%d/%d", arc.to.equivClass, arc.insn.Insn.Num, arc.stateAlts))
	}
	//
	sort.Strings(triples)
	//
	return fmt.Sprintf("%d:%s", s.equivClass, strings.Join(triples, ","))
}

// mergeClasses merges the states of each final class into a representative,
// redirecting arcs onto representatives.  Each representative of a merged
// class records its members as component states, re-sorted-unique, so that
// downstream queries against merged states remain correct.
func (c *Context) mergeClasses(a *Automaton, states []*State) []*State {
	var (
		reps  = make(map[int]*State)
		final []*State
	)
	// The first state of a class, in reachability order, represents it.
	// The start state comes first, hence always represents its own class.
	for _, s := range states {
		if rep, ok := reps[s.equivClass]; ok {
			s.repState = rep
		} else {
			reps[s.equivClass] = s
			s.repState = s
			final = append(final, s)
		}
	}
	//
	a.Start = a.Start.repState
	// Record merged members on their representative.
	members := make(map[*State][]*State)
	//
	for _, s := range states {
		if s.repState != s {
			members[s.repState] = append(members[s.repState], s)
		}
	}
	//
	for rep, merged := range members {
		var all []*State
		//
		for _, s := range append(merged, rep) {
			if s.CompoundP() {
				all = append(all, s.components...)
			} else {
				all = append(all, s)
			}
		}
		//
		rep.components = sortUniqueStates(all)
	}
	// Redirect every arc onto representatives.  Arcs of merged states are
	// released; their representatives carry equivalent ones.
	for _, s := range final {
		type transition struct {
			insn      *AInsn
			to        *State
			stateAlts int
		}
		//
		var transitions []transition
		//
		for arc := s.arcs; arc != nil; arc = arc.next {
			transitions = append(transitions, transition{arc.insn, arc.to.repState, arc.stateAlts})
		}
		//
		c.clearArcs(s)
		//
		for _, t := range transitions {
			c.addArc(s, t.to, t.insn, t.stateAlts)
		}
	}
	//
	for _, s := range states {
		if s.repState != s {
			c.clearArcs(s)
		}
	}
	//
	return final
}

// tagNewCycleStates marks states every incoming arc of which is an
// advance-cycle transition, so the scheduler can distinguish transitions
// which end a cycle.
func tagNewCycleStates(a *Automaton) {
	var (
		hasIncoming   = make(map[*State]bool)
		otherIncoming = make(map[*State]bool)
	)
	//
	for _, s := range a.States {
		for arc := s.arcs; arc != nil; arc = arc.next {
			hasIncoming[arc.to] = true
			//
			if !arc.insn.Insn.AdvanceP() {
				otherIncoming[arc.to] = true
			}
		}
	}
	//
	for _, s := range a.States {
		s.newCycle = hasIncoming[s] && !otherIncoming[s]
	}
}

// ClassifyInsns partitions the instructions of every automaton into
// behavioural equivalence classes: two instructions are equivalent iff
// issuing either from any reachable state leads to the same destination
// with the same alternative count.
// The walk over states refines the partition until it stabilizes.  Final
// class numbers become the column indices of the compressed tables.
func (c *Context) ClassifyInsns() {
	for _, a := range c.automata {
		classifyInsns(a)
	}
}

func classifyInsns(a *Automaton) {
	// Start with all instructions in one class.  Only chain heads carry
	// arcs; members inherit their head's class at the end.
	heads := make([]*AInsn, 0, len(a.Insns))
	//
	for _, ainsn := range a.Insns {
		ainsn.equivClass = 0
		//
		if ainsn.HeadP() {
			heads = append(heads, ainsn)
		}
	}
	//
	for {
		changed := false
		//
		for _, s := range a.States {
			// Partition this state's out-arcs by destination; instructions
			// landing in different destinations split.
			dests := make(map[*AInsn]*Arc)
			//
			for arc := s.arcs; arc != nil; arc = arc.next {
				dests[arc.insn] = arc
			}
			//
			var (
				classes = make(map[string]int)
				next    = make(map[*AInsn]int)
			)
			//
			for _, ainsn := range heads {
				key := fmt.Sprintf("%d:-", ainsn.equivClass)
				//
				if arc, ok := dests[ainsn]; ok {
					key = fmt.Sprintf("%d:%d/%d", ainsn.equivClass, arc.to.num, arc.stateAlts)
				}
				//
				class, ok := classes[key]
				//
				if !ok {
					class = len(classes)
					classes[key] = class
				}
				//
				next[ainsn] = class
			}
			//
			for _, ainsn := range heads {
				if ainsn.equivClass != next[ainsn] {
					ainsn.equivClass = next[ainsn]
					changed = true
				}
			}
		}
		//
		if !changed {
			break
		}
	}
	// Renumber classes densely, in instruction order.
	var (
		renumber = make(map[int]int)
		count    = 0
	)
	//
	for _, ainsn := range heads {
		if _, ok := renumber[ainsn.equivClass]; !ok {
			renumber[ainsn.equivClass] = count
			count++
		}
	}
	//
	for _, ainsn := range heads {
		ainsn.equivClass = renumber[ainsn.equivClass]
	}
	// Chain members behave exactly as their head.
	for _, ainsn := range a.Insns {
		if !ainsn.HeadP() {
			ainsn.equivClass = ainsn.firstSame.equivClass
		}
	}
	//
	a.ClassCount = count
	a.AdvanceClass = a.Insns[len(a.Insns)-1].equivClass
}
