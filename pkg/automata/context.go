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
	"io"

	"github.com/consensys/go-pipegen/pkg/pipeline"
)

// AdvanceCycleName is the name of the synthetic instruction representing the
// passage of one CPU cycle.  It is always present and always last.
const AdvanceCycleName = "$advance_cycle"

// Options configures a generation run.
type Options struct {
	// NDFA preserves nondeterminism by emitting alternative arcs; otherwise
	// each (state, instruction) pair commits to one alternative.
	NDFA bool
	// NoMinimize skips DFA minimization.
	NoMinimize bool
	// Permissive downgrades selected errors to warnings.
	Permissive bool
	// Time reports phase timings at info level.
	Time bool
	// Describe additionally emits a human-readable description file.
	Describe bool
	// Split requests this many independent automata via heuristic
	// distribution; zero means one automaton per declared automaton.
	Split int
	// Progress, when non-nil, receives a marker for every 100 states
	// constructed.
	Progress io.Writer
}

// Diagnostic is a single user-facing problem discovered while checking or
// generating.  Warnings do not suppress generation; anything else does.
type Diagnostic struct {
	Warning bool
	Message string
}

func (p Diagnostic) String() string {
	if p.Warning {
		return "warning: " + p.Message
	}

	return "error: " + p.Message
}

// Context bundles all state of a single generation run: the interned
// declarations, the automata under construction, the unique-number counters
// and the accumulated diagnostics.  A Context is not reusable across runs,
// and is never touched concurrently.
type Context struct {
	options Options
	// Accumulated diagnostics, in order of discovery.
	diags []Diagnostic
	// Number of non-warning diagnostics.
	errors int
	// Declared functional units, in declaration order.
	units []*Unit
	// Declared reservations, in declaration order.  Units and reservations
	// share a name space, hence declMap spans both.
	reservs []*Reserv
	declMap map[string]any
	// Declared instructions, in declaration order, with the synthetic
	// advance-cycle instruction appended last.
	insns   []*Insn
	insnMap map[string]*Insn
	// Automata, either declared or synthesized by distribution.
	automata []*Automaton
	autoMap  map[string]*Automaton
	// Pending constraint and bypass declarations, processed after interning.
	exclusions []*pipeline.ExclusionDecl
	patterns   []*pipeline.PatternDecl
	bypasses   []*pipeline.BypassDecl
	// Maximum reservation length, in cycles, across all instructions.
	maxCycles int
	// The synthetic advance-cycle instruction.
	advance *Insn
	// Monotonic counters for state unique numbers and traversal passes.
	stateNum int
	passNum  int
	// Free lists for arc and alt-state recycling.
	freeArcs *Arc
	freeAlts *AltState
	// Whether any unit carries an exclusion, presence or absence constraint.
	constrained bool
}

// NewContext constructs an empty generation context with the given options.
func NewContext(options Options) *Context {
	return &Context{
		options: options,
		declMap: make(map[string]any),
		insnMap: make(map[string]*Insn),
		autoMap: make(map[string]*Automaton),
	}
}

// Options returns the effective options of this run, including any option
// declarations folded in during declaration processing.
func (c *Context) Options() Options {
	return c.options
}

// Diagnostics returns all diagnostics accumulated so far.
func (c *Context) Diagnostics() []Diagnostic {
	return c.diags
}

// Failed reports whether any non-warning diagnostic was raised.  Generation
// is suppressed for failed contexts.
func (c *Context) Failed() bool {
	return c.errors > 0
}

// Automata returns the automata of this run.  This is empty until
// distribution has happened.
func (c *Context) Automata() []*Automaton {
	return c.automata
}

// Insns returns the declared instructions, with the advance-cycle
// instruction last once inserted.
func (c *Context) Insns() []*Insn {
	return c.insns
}

// Units returns the declared units in declaration order.
func (c *Context) Units() []*Unit {
	return c.units
}

// errorf reports an error.
func (c *Context) errorf(format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{false, fmt.Sprintf(format, args...)})
	c.errors++
}

// warnf reports a warning.
func (c *Context) warnf(format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{true, fmt.Sprintf(format, args...)})
}

// permissivef reports an error which the permissive option downgrades to a
// warning.
func (c *Context) permissivef(format string, args ...any) {
	if c.options.Permissive {
		c.warnf(format, args...)
	} else {
		c.errorf(format, args...)
	}
}

// nextPass returns a fresh traversal pass number.
func (c *Context) nextPass() int {
	c.passNum++
	return c.passNum
}
