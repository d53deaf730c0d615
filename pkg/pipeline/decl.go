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
package pipeline

// Decl represents a single typed declaration record describing one construct
// of a processor pipeline.  A description is an ordered sequence of such
// records, typically produced by parsing a description file, though they can
// equally be constructed directly.
type Decl interface {
	decl()
}

// UnitDecl declares one functional unit, optionally owned by a named
// automaton.  Queryable units have their cycle-0 reservation exposed at
// scheduling time.
type UnitDecl struct {
	Name string
	// Automaton owning this unit, or empty if none was given.
	Automaton string
	// Query indicates the unit is queryable.
	Query bool
}

// AutomatonDecl declares a named automaton to which units can be assigned.
type AutomatonDecl struct {
	Name string
}

// ExclusionDecl declares mutual exclusion between two groups of units: no
// unit of the first group can be reserved on the same cycle as any unit of
// the second group.
type ExclusionDecl struct {
	NamesA []string
	NamesB []string
}

// PatternKind distinguishes the four unit requirement forms.
type PatternKind int

const (
	// Presence requires at least one pattern to be reserved alongside the
	// unit on a given cycle.
	Presence PatternKind = iota
	// FinalPresence is as Presence, but checked against the union of the
	// originating and the target reservations.
	FinalPresence
	// Absence forbids every pattern from being fully reserved alongside the
	// unit on a given cycle.
	Absence
	// FinalAbsence is as Absence, but checked against the union of the
	// originating and the target reservations.
	FinalAbsence
)

// PatternDecl attaches presence or absence patterns to a group of units.
// Each pattern is itself a group of unit names which must be reserved
// together for the pattern to apply.
type PatternDecl struct {
	Kind     PatternKind
	Names    []string
	Patterns [][]string
}

// ReservDecl declares a named reservation which can be referenced from other
// reservation regexps.
type ReservDecl struct {
	Name   string
	Regexp string
}

// InsnDecl declares an instruction reservation: the pattern of unit usage an
// instruction of this class asserts when issued.
type InsnDecl struct {
	Name string
	// Default latency of this instruction class.
	Latency int
	// Cond is an opaque condition predicate carried through to the emitted
	// tables.
	Cond   string
	Regexp string
}

// BypassDecl declares a bypass between two instruction classes, overriding
// the default latency of the output instruction.  The guard, if any, is an
// opaque predicate name.
type BypassDecl struct {
	Latency int
	Out     string
	In      string
	Guard   string
}

// OptionDecl records a generator option embedded in the description itself.
type OptionDecl struct {
	Name string
	// Value carries the argument of the split option; zero otherwise.
	Value int
}

func (p *UnitDecl) decl()      {}
func (p *AutomatonDecl) decl() {}
func (p *ExclusionDecl) decl() {}
func (p *PatternDecl) decl()   {}
func (p *ReservDecl) decl()    {}
func (p *InsnDecl) decl()      {}
func (p *BypassDecl) decl()    {}
func (p *OptionDecl) decl()    {}
