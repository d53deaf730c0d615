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
	"github.com/consensys/go-pipegen/pkg/util/collection/stack"
)

// Determinize applies the subset construction to every automaton.  Groups of
// arcs sharing an instruction label are replaced by a single arc; where a
// group has several destinations, a compound state is interned over the
// sorted-unique union of the atomic destinations, and inherits the out-arcs
// of its components.  In deterministic mode every group has one arc by
// construction, and the pass leaves the automaton unchanged.
func (c *Context) Determinize() {
	for _, a := range c.automata {
		c.determinizeAutomaton(a)
	}
}

func (c *Context) determinizeAutomaton(a *Automaton) {
	var (
		pass = c.nextPass()
		work = stack.NewStack[*State]()
	)
	//
	a.Start.passNum = pass
	work.Push(a.Start)
	//
	for !work.IsEmpty() {
		s := work.Pop()
		//
		for _, dest := range c.determinizeState(a, s) {
			if dest.passNum != pass {
				dest.passNum = pass
				work.Push(dest)
			}
		}
	}
	//
	reachable := c.reachable(a)
	a.DFAStates = len(reachable)
	a.DFAArcs = countArcs(reachable)
}

// determinizeState rewrites the out-arcs of one state so that each
// instruction labels at most one arc, returning the destinations.
func (c *Context) determinizeState(a *Automaton, s *State) []*State {
	type group struct {
		insn *AInsn
		arcs []*Arc
	}
	//
	var (
		groups []*group
		index  = make(map[*AInsn]*group)
	)
	// Group arcs by instruction label, in first-occurrence order.
	for arc := s.arcs; arc != nil; arc = arc.next {
		g, ok := index[arc.insn]
		//
		if !ok {
			g = &group{insn: arc.insn}
			index[arc.insn] = g
			groups = append(groups, g)
		}
		//
		g.arcs = append(g.arcs, arc)
	}
	// Resolve each group to a single destination.
	type transition struct {
		insn      *AInsn
		to        *State
		stateAlts int
	}
	//
	var (
		transitions []transition
		dests       []*State
	)
	//
	for _, g := range groups {
		var (
			to        *State
			stateAlts int
		)
		//
		if len(g.arcs) == 1 {
			to = g.arcs[0].to
			stateAlts = g.arcs[0].stateAlts
		} else {
			// Build a compound state over the union of all destinations,
			// flattening nested compounds.
			components := make([]*State, len(g.arcs))
			//
			for i, arc := range g.arcs {
				components[i] = arc.to
			}
			//
			compound, existed := c.internCompound(a, components)
			//
			if !existed {
				c.inheritArcs(compound)
			}
			//
			to = compound
			stateAlts = len(g.arcs)
		}
		//
		transitions = append(transitions, transition{g.insn, to, stateAlts})
		dests = append(dests, to)
	}
	// Rebuild the arc list, one arc per instruction.
	c.clearArcs(s)
	//
	for _, t := range transitions {
		c.addArc(s, t.to, t.insn, t.stateAlts)
	}
	//
	return dests
}

// inheritArcs gives a freshly interned compound state the union of its
// components' out-arcs.  Arcs with the same label and differing destinations
// remain parallel here; the work-list pass regroups them when the compound
// state itself is determinized.
func (c *Context) inheritArcs(compound *State) {
	for _, component := range compound.components {
		for arc := component.arcs; arc != nil; arc = arc.next {
			c.addArc(compound, arc.to, arc.insn, arc.stateAlts)
		}
	}
}
