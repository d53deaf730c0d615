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

// Package sched interprets the tables produced by automaton generation.  A
// Scheduler answers, in constant time, whether an instruction can issue in a
// given CPU state, advances that state, computes minimum issue delays and
// reports instruction latencies.
package sched

import (
	"sort"
	"strconv"

	"github.com/consensys/go-pipegen/pkg/automata"
)

// AdvanceCycle is the pseudo instruction code passed to Transition to model
// the passage of one CPU cycle.
const AdvanceCycle = -1

// State is the opaque scheduling state: one state number per automaton.
// The zero value of every component is the corresponding automaton's start
// state.
type State struct {
	auto []int
}

// Scheduler drives the generated tables.
type Scheduler struct {
	tables *automata.Tables
	// codes memoizes the mapping from external instruction names onto
	// internal instruction numbers.  Nil until Start.
	codes map[string]int
}

// New constructs a scheduler over a given set of generated tables.
func New(tables *automata.Tables) *Scheduler {
	return &Scheduler{tables: tables}
}

// StateSize returns the byte size of the scheduling state.
func (p *Scheduler) StateSize() int {
	return len(p.tables.Automata) * strconv.IntSize / 8
}

// NewState allocates a scheduling state positioned at the start state of
// every automaton.
func (p *Scheduler) NewState() *State {
	return &State{make([]int, len(p.tables.Automata))}
}

// CopyState copies one scheduling state over another.
func (p *Scheduler) CopyState(dst *State, src *State) {
	copy(dst.auto, src.auto)
}

// Reset returns a state to the start state of every automaton.
func (p *Scheduler) Reset(s *State) {
	for i := range s.auto {
		s.auto[i] = 0
	}
}

// Transition attempts to issue an instruction, or advances the cycle when
// insn is AdvanceCycle.  On success the state is mutated and -1 is returned;
// otherwise the state is unchanged and the minimum number of advance-cycles
// needed before issue is possible is returned.
func (p *Scheduler) Transition(s *State, insn int) int {
	if insn == AdvanceCycle {
		for i, a := range p.tables.Automata {
			if to, ok := a.Trans.Lookup(s.auto[i], a.AdvanceClass); ok {
				s.auto[i] = to
			}
		}
		//
		return -1
	}
	// The issue succeeds only when every automaton has a transition.
	next := make([]int, len(s.auto))
	//
	for i, a := range p.tables.Automata {
		to, ok := a.Trans.Lookup(s.auto[i], a.Translate[insn])
		//
		if !ok {
			return p.MinIssueDelay(s, insn)
		}
		//
		next[i] = to
	}
	//
	copy(s.auto, next)
	//
	return -1
}

// MinIssueDelay returns the minimum number of advance-cycles until an
// instruction can issue from a given state.
func (p *Scheduler) MinIssueDelay(s *State, insn int) int {
	delay := 0
	//
	for i, a := range p.tables.Automata {
		delay = max(delay, a.MinDelay.Get(s.auto[i], a.Translate[insn]))
	}
	//
	return delay
}

// StateAlts sums, across automata, the alternative reservations available
// for an instruction in a given state.
func (p *Scheduler) StateAlts(s *State, insn int) int {
	alts := 0
	//
	for i, a := range p.tables.Automata {
		if v, ok := a.StateAlts.Lookup(s.auto[i], a.Translate[insn]); ok {
			alts += v
		}
	}
	//
	return alts
}

// MinInsnConflictDelay returns the delay needed between issuing two
// instructions when the given state is first reset.
func (p *Scheduler) MinInsnConflictDelay(s *State, insn1 int, insn2 int) int {
	temp := p.NewState()
	//
	p.Transition(temp, insn1)
	//
	return p.MinIssueDelay(temp, insn2)
}

// DeadLock reports whether no instruction can issue from a given state
// until a cycle passes.
func (p *Scheduler) DeadLock(s *State) bool {
	for i, a := range p.tables.Automata {
		if a.DeadLock[s.auto[i]] {
			return true
		}
	}
	//
	return false
}

// InsnLatency returns the bypass latency from one instruction to another,
// or the default latency of the first when no bypass applies.  Bypass
// guards are opaque and do not influence the result.
func (p *Scheduler) InsnLatency(insn1 int, insn2 int) int {
	info := p.tables.Insns[insn1]
	//
	for _, b := range info.Bypasses {
		if b.In == insn2 {
			return b.Latency
		}
	}
	//
	return info.Latency
}

// UnitReservation reports whether the queryable unit with a given code is
// reserved on cycle 0 of a given state.
func (p *Scheduler) UnitReservation(s *State, code int) bool {
	for i, a := range p.tables.Automata {
		if a.QueryBytes == 0 {
			continue
		}
		//
		index := s.auto[i]*a.QueryBytes + code/8
		//
		if a.Reserved[index]&(1<<(code%8)) != 0 {
			return true
		}
	}
	//
	return false
}

// UnitCode returns the code of a queryable unit, found by binary search over
// the sorted unit names, or -1 when the name is not queryable.
func (p *Scheduler) UnitCode(name string) int {
	var (
		names = p.tables.QueryUnits
		index = sort.SearchStrings(names, name)
	)
	//
	if index < len(names) && names[index] == name {
		return index
	}
	//
	return -1
}

// Start allocates the instruction code cache.
func (p *Scheduler) Start() {
	p.codes = make(map[string]int)
}

// Finish releases the instruction code cache.
func (p *Scheduler) Finish() {
	p.codes = nil
}

// CleanCache invalidates the instruction code cache without releasing it.
func (p *Scheduler) CleanCache() {
	if p.codes != nil {
		p.codes = make(map[string]int)
	}
}

// InsnCode memoizes the mapping from an external instruction name onto its
// internal instruction number, or -1 when unknown.
func (p *Scheduler) InsnCode(name string) int {
	if p.codes != nil {
		if code, ok := p.codes[name]; ok {
			return code
		}
	}
	//
	code := -1
	//
	for i, info := range p.tables.Insns {
		if info.Name == name {
			code = i
			break
		}
	}
	//
	if p.codes != nil {
		p.codes[name] = code
	}
	//
	return code
}
