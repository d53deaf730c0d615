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
	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/util/collection/hash"
	"github.com/consensys/go-pipegen/pkg/util/collection/stack"
)

// BuildAltStates constructs, for every automaton and every instruction, the
// list of deterministic alternative reservation states, then chains together
// instructions whose sorted alternative lists coincide.  Only chain heads
// participate in automaton construction, which collapses duplicate work.
func (c *Context) BuildAltStates() {
	for _, a := range c.automata {
		a.statesTable = &stateTable{hash.NewMap[stateKey, *State](256)}
		a.mattersSet = c.buildMattersSet(a)
		//
		c.buildAltStates(a)
		c.chainSameReservs(a)
	}
	//
	c.computeImportant()
}

// buildMattersSet marks every reservation bit of an automaton which can
// affect a future transition: a bit matters iff its cycle is at least the
// unit's minimum occurrence cycle, or the unit is queryable, or the unit
// appears in some constraint.  Unions during construction are masked through
// this set, shrinking the reachable space without changing observable
// transitions.
func (c *Context) buildMattersSet(a *Automaton) ReservSet {
	matters := c.newReservSet()
	//
	for _, u := range a.Units {
		for cycle := 0; cycle < c.maxCycles; cycle++ {
			if cycle >= u.MinOcc || u.Query || u.constrainedP() {
				matters.Set(cycle, u.Num)
			}
		}
	}
	//
	return matters
}

func (c *Context) buildAltStates(a *Automaton) {
	a.Insns = make([]*AInsn, 0, len(c.insns))
	//
	for _, insn := range c.insns {
		ainsn := &AInsn{Insn: insn}
		a.Insns = append(a.Insns, ainsn)
		//
		if insn.Canon == nil {
			continue
		}
		// One deterministic state per canonical alternative, marking every
		// unit of this automaton at its relative cycle offset.
		var alts []*AltState
		//
		for _, alternative := range pipeline.Alternatives(insn.Canon) {
			rs := c.newReservSet()
			//
			for cycle, element := range alternative {
				for _, name := range pipeline.CycleUnits(element) {
					if u := c.declMap[name].(*Unit); u.Auto == a {
						rs.Set(cycle, u.Num)
					}
				}
			}
			//
			state, _ := c.internAtomic(a, rs)
			alts = append(alts, c.newAltState(state))
		}
		// Link the alternatives in canonical order.
		for i := len(alts) - 1; i > 0; i-- {
			alts[i-1].nextAlt = alts[i]
		}
		//
		ainsn.alts = alts[0]
		ainsn.sortedAlts = c.sortAltStates(alts)
	}
}

// sortAltStates builds the sorted-unique chain over a list of alternatives,
// keyed by state unique number.  Two alt-state lists are equal exactly when
// their sorted-unique chains reference identical states.
func (c *Context) sortAltStates(alts []*AltState) *AltState {
	states := make([]*State, len(alts))
	//
	for i, alt := range alts {
		states[i] = alt.state
	}
	//
	states = sortUniqueStates(states)
	//
	var head *AltState
	//
	for i := len(states) - 1; i >= 0; i-- {
		alt := c.newAltState(states[i])
		alt.nextSorted = head
		head = alt
	}
	//
	return head
}

// chainSameReservs groups instructions sharing a sorted alternative list
// onto a single chain, headed by the first such instruction.
func (c *Context) chainSameReservs(a *Automaton) {
	heads := hash.NewMap[hash.Uint64sKey, *AInsn](64)
	//
	for _, ainsn := range a.Insns {
		ainsn.firstSame = ainsn
		//
		if ainsn.Insn.AdvanceP() || ainsn.Insn.Canon == nil {
			continue
		}
		//
		var words []uint64
		//
		for alt := ainsn.sortedAlts; alt != nil; alt = alt.nextSorted {
			words = append(words, uint64(alt.state.uniq))
		}
		//
		key := hash.NewUint64sKey(words)
		//
		if head, ok := heads.Get(key); ok {
			ainsn.firstSame = head
			// Append to the end of the chain.
			tail := head
			for tail.nextSame != nil {
				tail = tail.nextSame
			}
			//
			tail.nextSame = ainsn
			// The head's sorted chain identifies the whole chain; release
			// the member's copy.
			for alt := ainsn.sortedAlts; alt != nil; {
				next := alt.nextSorted
				c.freeAlt(alt)
				alt = next
			}
			//
			ainsn.sortedAlts = nil
		} else {
			heads.Insert(key, ainsn)
		}
	}
}

// computeImportant records, per instruction, the automata whose state can
// change when it issues: those in which some alternative reserves anything.
func (c *Context) computeImportant() {
	for _, a := range c.automata {
		for _, ainsn := range a.Insns {
			for alt := ainsn.alts; alt != nil; alt = alt.nextAlt {
				if !alt.state.reservs.Empty() {
					ainsn.Insn.Important = append(ainsn.Insn.Important, a)
					break
				}
			}
		}
	}
}

// BuildNFA constructs, for every automaton, the nondeterministic automaton
// over the product of instruction alternatives and reachable states.  The
// start state is the empty reservation.  In deterministic mode each
// (state, instruction) pair commits to the first compatible alternative,
// recording on the arc how many alternatives would have been compatible.
// Every state also receives an advance-cycle arc to its shifted reservation.
func (c *Context) BuildNFA() {
	for _, a := range c.automata {
		c.buildNFA(a)
	}
}

func (c *Context) buildNFA(a *Automaton) {
	var (
		work    = stack.NewStack[*State]()
		pass    = c.nextPass()
		advance = a.Insns[len(a.Insns)-1]
	)
	// Alternative states were interned before construction started, hence
	// destination states are scheduled by traversal pass, not by interning.
	a.Start, _ = c.internAtomic(a, c.newReservSet())
	a.Start.passNum = pass
	work.Push(a.Start)
	//
	for !work.IsEmpty() {
		s := work.Pop()
		//
		for _, ainsn := range a.Insns {
			if ainsn.Insn.AdvanceP() || !ainsn.HeadP() || ainsn.Insn.Canon == nil {
				continue
			}
			//
			if c.options.NDFA {
				c.issueAllAlternatives(a, s, ainsn, pass, work)
			} else {
				c.issueFirstAlternative(a, s, ainsn, pass, work)
			}
		}
		// The advance-cycle transition is always present.
		shifted := s.reservs.Shift()
		shifted.And(a.mattersSet)
		//
		t, _ := c.internAtomic(a, shifted)
		c.addArc(s, t, advance, 1)
		c.enqueue(t, pass, work)
	}
	//
	reachable := c.reachable(a)
	a.NFAStates = len(reachable)
	a.NFAArcs = countArcs(reachable)
}

// issueFirstAlternative commits to the first alternative compatible with a
// given state, recording the count of all compatible alternatives.
func (c *Context) issueFirstAlternative(a *Automaton, s *State, ainsn *AInsn, pass int, work *stack.Stack[*State]) {
	var (
		first *State
		count = 0
	)
	//
	for alt := ainsn.alts; alt != nil; alt = alt.nextAlt {
		if !c.SetsConflict(s.reservs, alt.state.reservs) {
			count++
			//
			if first == nil {
				first = alt.state
			}
		}
	}
	//
	if first == nil {
		return
	}
	//
	t := c.internUnion(a, s, first)
	c.addArc(s, t, ainsn, count)
	c.enqueue(t, pass, work)
}

// issueAllAlternatives emits one arc per compatible alternative.
func (c *Context) issueAllAlternatives(a *Automaton, s *State, ainsn *AInsn, pass int, work *stack.Stack[*State]) {
	for alt := ainsn.alts; alt != nil; alt = alt.nextAlt {
		if c.SetsConflict(s.reservs, alt.state.reservs) {
			continue
		}
		//
		t := c.internUnion(a, s, alt.state)
		c.addArc(s, t, ainsn, 1)
		c.enqueue(t, pass, work)
	}
}

// internUnion interns the union of a state's reservations with an
// alternative's, masked through the matters set.
func (c *Context) internUnion(a *Automaton, s *State, alt *State) *State {
	rs := s.reservs.Clone()
	rs.Or(alt.reservs)
	rs.And(a.mattersSet)
	//
	state, _ := c.internAtomic(a, rs)
	//
	return state
}

// enqueue schedules a state for processing unless this pass already has.
func (c *Context) enqueue(t *State, pass int, work *stack.Stack[*State]) {
	if t.passNum != pass {
		t.passNum = pass
		work.Push(t)
	}
}

func countArcs(states []*State) int {
	count := 0
	//
	for _, s := range states {
		for arc := s.arcs; arc != nil; arc = arc.next {
			count++
		}
	}
	//
	return count
}

// reachable returns the states reachable from an automaton's start state, in
// depth-first order with the start state first.
func (c *Context) reachable(a *Automaton) []*State {
	var (
		pass   = c.nextPass()
		work   = stack.NewStack[*State]()
		states []*State
	)
	//
	a.Start.passNum = pass
	work.Push(a.Start)
	//
	for !work.IsEmpty() {
		s := work.Pop()
		states = append(states, s)
		//
		for arc := s.arcs; arc != nil; arc = arc.next {
			if arc.to.passNum != pass {
				arc.to.passNum = pass
				work.Push(arc.to)
			}
		}
	}
	//
	return states
}
