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
	"sort"

	"github.com/consensys/go-pipegen/pkg/util/collection/hash"
)

// State is a state of one automaton.  An atomic state holds a reservation
// set; a compound state instead holds a non-empty sorted list of component
// atomic states, in which case the reservation set is unused.  Every state
// is interned in its automaton's state table and never freed.
type State struct {
	// uniq is the state's unique number, assigned monotonically at first
	// interning.  Sorted alt-state lists are keyed by it, hence state-list
	// equality is pointer equality after uniquification.
	uniq int
	// auto is the automaton owning this state.
	auto *Automaton
	// reservs is the reservation set of an atomic state.
	reservs ReservSet
	// components holds the component states of a compound state, sorted by
	// unique number and deduplicated.  Compound states nest only one level.
	components []*State
	// arcs heads the singly-linked list of outbound arcs.
	arcs *Arc
	// num is the enumeration order of this state in the final automaton.
	num int
	// equivClass and nextEquiv support minimization.
	equivClass int
	nextEquiv  *State
	// repState points at the representative this state merged into.
	repState *State
	// newCycle marks states reachable only through advance-cycle arcs.
	newCycle bool
	// passNum tags traversals.
	passNum int
}

// Uniq returns the unique number of this state.
func (p *State) Uniq() int {
	return p.uniq
}

// Num returns the enumeration order of this state in the final automaton.
func (p *State) Num() int {
	return p.num
}

// CompoundP reports whether this is a compound state.
func (p *State) CompoundP() bool {
	return len(p.components) > 0
}

// Components returns the component states of a compound state, or nil.
func (p *State) Components() []*State {
	return p.components
}

// NewCycleP reports whether this state is reachable only through
// advance-cycle arcs.
func (p *State) NewCycleP() bool {
	return p.newCycle
}

// Reservs returns the canonical reservation set observed for this state: an
// atomic state's own set, or the set of the first component of a compound
// state.
func (p *State) Reservs() ReservSet {
	if p.CompoundP() {
		return p.components[0].Reservs()
	}

	return p.reservs
}

// Arcs collects the outbound arcs of this state into a slice, preserving
// list order.
func (p *State) Arcs() []*Arc {
	var arcs []*Arc
	//
	for a := p.arcs; a != nil; a = a.next {
		arcs = append(arcs, a)
	}
	//
	return arcs
}

// FirstArc returns the head of the outbound arc list, or nil.
func (p *State) FirstArc() *Arc {
	return p.arcs
}

// Arc is a labelled transition owned by its origin state.
type Arc struct {
	// to is the destination state.
	to *State
	// insn labels the transition.
	insn *AInsn
	// stateAlts counts the alternative reservations compatible when this
	// transition was committed.
	stateAlts int
	// next links the origin state's arc list.
	next *Arc
}

// To returns the destination of this arc.
func (p *Arc) To() *State {
	return p.to
}

// Insn returns the instruction labelling this arc.
func (p *Arc) Insn() *AInsn {
	return p.insn
}

// StateAlts returns the alternative count recorded on this arc.
func (p *Arc) StateAlts() int {
	return p.stateAlts
}

// AltState is one deterministic alternative of an instruction: a pointer to
// one state, linked both in the instruction's alternative list and in the
// sorted-unique list.
type AltState struct {
	state      *State
	nextAlt    *AltState
	nextSorted *AltState
}

// State returns the deterministic state of this alternative.
func (p *AltState) State() *State {
	return p.state
}

// ============================================================================
// Interning
// ============================================================================

// stateTable interns the states of one automaton, keyed by the automaton's
// order number together with either the reservation set (atomic) or the
// sorted component unique numbers (compound).
type stateTable struct {
	table *hash.Map[stateKey, *State]
}

// stateKey aliases the word-array key so states intern through the generic
// hash map directly.
type stateKey = hash.Uint64sKey

const (
	atomicTag   uint64 = 0
	compoundTag uint64 = 1
)

func atomicKey(auto *Automaton, reservs ReservSet) stateKey {
	words := make([]uint64, 0, len(reservs.Words())+2)
	words = append(words, atomicTag, uint64(auto.Num))
	words = append(words, reservs.Words()...)
	//
	return hash.NewUint64sKey(words)
}

func compoundKey(auto *Automaton, components []*State) stateKey {
	words := make([]uint64, 0, len(components)+2)
	words = append(words, compoundTag, uint64(auto.Num))
	//
	for _, s := range components {
		words = append(words, uint64(s.uniq))
	}
	//
	return hash.NewUint64sKey(words)
}

// internAtomic returns the unique atomic state of a given automaton holding
// a given reservation set, creating and interning it on first sight.  The
// second result indicates whether the state already existed.
func (c *Context) internAtomic(auto *Automaton, reservs ReservSet) (*State, bool) {
	key := atomicKey(auto, reservs)
	//
	if existing, ok := auto.statesTable.table.Get(key); ok {
		return existing, true
	}
	//
	c.stateNum++
	//
	state := &State{uniq: c.stateNum, auto: auto, reservs: reservs}
	auto.statesTable.table.Insert(key, state)
	auto.AllStates = append(auto.AllStates, state)
	c.progressTick()
	//
	return state, false
}

// internCompound returns the unique compound state of a given automaton over
// a given collection of components.  Components are flattened one level,
// deduplicated and sorted by unique number before interning.  The second
// result indicates whether the state already existed.
func (c *Context) internCompound(auto *Automaton, components []*State) (*State, bool) {
	var flattened []*State
	//
	for _, s := range components {
		if s.CompoundP() {
			flattened = append(flattened, s.components...)
		} else {
			flattened = append(flattened, s)
		}
	}
	//
	flattened = sortUniqueStates(flattened)
	// A one-component compound is just that component.
	if len(flattened) == 1 {
		return flattened[0], true
	}
	//
	key := compoundKey(auto, flattened)
	//
	if existing, ok := auto.statesTable.table.Get(key); ok {
		return existing, true
	}
	//
	c.stateNum++
	//
	state := &State{uniq: c.stateNum, auto: auto, components: flattened}
	auto.statesTable.table.Insert(key, state)
	auto.AllStates = append(auto.AllStates, state)
	c.progressTick()
	//
	return state, false
}

// sortUniqueStates sorts states by unique number and removes duplicates.
func sortUniqueStates(states []*State) []*State {
	sort.Slice(states, func(i, j int) bool {
		return states[i].uniq < states[j].uniq
	})
	//
	var unique []*State
	//
	for _, s := range states {
		if len(unique) == 0 || unique[len(unique)-1] != s {
			unique = append(unique, s)
		}
	}
	//
	return unique
}

// progressTick emits a marker every 100 new states when progress output was
// requested.
func (c *Context) progressTick() {
	if c.options.Progress != nil && c.stateNum%100 == 0 {
		//nolint:errcheck
		c.options.Progress.Write([]byte("*"))
	}
}

// ============================================================================
// Arcs
// ============================================================================

// addArc adds the arc from --insn--> to, unless an identical arc already
// exists.  Arcs are recycled through the context's free list.  The arc is
// returned.
func (c *Context) addArc(from *State, to *State, insn *AInsn, stateAlts int) *Arc {
	// Parallel arcs with the same destination and instruction are forbidden.
	for a := from.arcs; a != nil; a = a.next {
		if a.to == to && a.insn == insn {
			return a
		}
	}
	//
	arc := c.newArc()
	arc.to = to
	arc.insn = insn
	arc.stateAlts = stateAlts
	// Append to preserve construction order.
	arc.next = nil
	//
	if from.arcs == nil {
		from.arcs = arc
	} else {
		last := from.arcs
		for last.next != nil {
			last = last.next
		}
		//
		last.next = arc
	}
	//
	return arc
}

// clearArcs releases every arc of a state back onto the free list.
func (c *Context) clearArcs(state *State) {
	for state.arcs != nil {
		arc := state.arcs
		state.arcs = arc.next
		c.freeArc(arc)
	}
}

func (c *Context) newArc() *Arc {
	if c.freeArcs != nil {
		arc := c.freeArcs
		c.freeArcs = arc.next
		//
		return arc
	}
	//
	return &Arc{}
}

func (c *Context) freeArc(arc *Arc) {
	*arc = Arc{next: c.freeArcs}
	c.freeArcs = arc
}

// ============================================================================
// Alt states
// ============================================================================

func (c *Context) newAltState(state *State) *AltState {
	if c.freeAlts != nil {
		alt := c.freeAlts
		c.freeAlts = alt.nextAlt
		*alt = AltState{state: state}
		//
		return alt
	}
	//
	return &AltState{state: state}
}

func (c *Context) freeAlt(alt *AltState) {
	*alt = AltState{nextAlt: c.freeAlts}
	c.freeAlts = alt
}
