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
)

// Unit is a declared functional unit together with everything derived about
// it during checking: its index, the automaton owning it, its cycle extents
// and its constraints.
type Unit struct {
	Name string
	// Query indicates the unit's cycle-0 reservation is exposed at
	// scheduling time.
	Query bool
	// QueryCode is the dense code of this unit amongst all queryable units,
	// assigned in sorted name order.  Meaningless unless Query is set.
	QueryCode int
	// Num is the integer index of this unit amongst all units.
	Num int
	// DeclAuto is the automaton name given at declaration, or empty.
	DeclAuto string
	// Auto is the automaton owning this unit, assigned during distribution.
	Auto *Automaton
	// MinOcc and MaxOcc bound the cycles on which this unit appears in any
	// instruction reservation.
	MinOcc, MaxOcc int
	// Excl is the set of unit indices this unit conflicts with.  It is kept
	// symmetric.
	Excl map[int]bool
	// Presence, FinalPresence, Absence and FinalAbsence are the constraint
	// patterns attached to this unit.  Each pattern is a group of units.
	Presence, FinalPresence, Absence, FinalAbsence [][]*Unit
	// used marks units referenced by at least one reservation regexp.
	used bool
}

// constrainedP reports whether this unit carries any exclusion, presence or
// absence constraint.
func (p *Unit) constrainedP() bool {
	return len(p.Excl) > 0 || len(p.Presence) > 0 || len(p.FinalPresence) > 0 ||
		len(p.Absence) > 0 || len(p.FinalAbsence) > 0
}

// Reserv is a declared, named reservation usable from other regexps.
type Reserv struct {
	Name   string
	Regexp pipeline.Regex
	// used marks reservations referenced from at least one other regexp.
	used bool
	// DFS bookkeeping for cycle detection.
	passNum int
	onPath  bool
}

// Insn is an instruction reservation: the unit usage pattern asserted when
// an instruction of this class issues.
type Insn struct {
	Name string
	// Num is the integer index of this instruction amongst all instructions.
	Num int
	// Latency is the default result latency of this instruction class.
	Latency int
	// Cond is an opaque condition predicate carried through to the tables.
	Cond string
	// Regexp is the original reservation regexp; nil for the advance-cycle
	// instruction.
	Regexp pipeline.Regex
	// Canon is the canonicalized regexp; nil for the advance-cycle
	// instruction.
	Canon pipeline.Regex
	// Bypasses are the outbound bypasses of this instruction.
	Bypasses []*Bypass
	// Important holds the automata whose state can change when this
	// instruction issues.
	Important []*Automaton
}

// AdvanceP reports whether this is the synthetic advance-cycle instruction.
func (p *Insn) AdvanceP() bool {
	return p.Regexp == nil
}

// Bypass overrides the latency between two instruction classes, optionally
// guarded by an opaque predicate.
type Bypass struct {
	Out     *Insn
	In      *Insn
	Latency int
	Guard   string
}

// Automaton is a DFA over one partition of the unit set.  Multiple automata
// run in parallel at query time, their states forming a product space.
type Automaton struct {
	// Name of the automaton, or a synthesized name for heuristic
	// distribution.
	Name string
	// Num is the order number of this automaton.
	Num int
	// Declared marks automata which were explicitly declared.
	Declared bool
	// Units owned by this automaton.
	Units []*Unit
	// QueryUnits owned by this automaton, in query-code order.
	QueryUnits []*Unit
	// Insns are the per-automaton instruction wrappers, with the
	// advance-cycle wrapper last.
	Insns []*AInsn
	// Start state: the empty reservation.
	Start *State
	// All states ever interned for this automaton, in interning order.
	AllStates []*State
	// States of the final automaton, in enumeration order.
	States []*State
	// interning table for this automaton's states.
	statesTable *stateTable
	// mattersSet masks reservation bits which can never affect a
	// transition.
	mattersSet ReservSet
	// Construction statistics.
	NFAStates, NFAArcs int
	DFAStates, DFAArcs int
	MinStates, MinArcs int
	// ClassCount is the number of instruction equivalence classes.
	ClassCount int
	// AdvanceClass is the equivalence class of the advance-cycle
	// instruction.
	AdvanceClass int
	// used marks declared automata which own at least one unit.
	used bool
}

// AInsn wraps an instruction for one particular automaton, carrying its
// alternative states and equivalence bookkeeping there.
type AInsn struct {
	Insn *Insn
	// alts is the list of alternative states, in canonical regexp order.
	alts *AltState
	// sortedAlts is the sorted-unique chain over the same states, keyed by
	// state unique number.  It is the identity used to group behaviourally
	// identical instructions.
	sortedAlts *AltState
	// firstSame is the head of the chain of instructions sharing this
	// instruction's sorted alt-states; only chain heads participate in
	// automaton construction.
	firstSame *AInsn
	// nextSame chains instructions with equal sorted alt-states.
	nextSame *AInsn
	// equivClass is the final instruction equivalence class.
	equivClass int
}

// HeadP reports whether this wrapper heads its same-reservation chain.
func (p *AInsn) HeadP() bool {
	return p.firstSame == p
}

// EquivClass returns the instruction equivalence class of this wrapper
// within its automaton.
func (p *AInsn) EquivClass() int {
	return p.equivClass
}
