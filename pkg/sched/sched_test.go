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
package sched_test

import (
	"testing"

	"github.com/consensys/go-pipegen/pkg/automata"
	"github.com/consensys/go-pipegen/pkg/gen"
	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/sched"
	"github.com/consensys/go-pipegen/pkg/util/assert"
	"github.com/consensys/go-pipegen/pkg/util/source"
)

func Test_Sched_SingleUnitSingleInsn(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(insn a 1 "u")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
	)
	//
	assert.Equal(t, 0, scheduler.MinIssueDelay(s, a))
	assert.Equal(t, -1, scheduler.Transition(s, a))
	// The unit is busy for one cycle.
	assert.Equal(t, 1, scheduler.MinIssueDelay(s, a))
	assert.Equal(t, 1, scheduler.Transition(s, a))
	assert.True(t, scheduler.DeadLock(s))
	// One advance returns to the start state.
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, 0, scheduler.MinIssueDelay(s, a))
	assert.False(t, scheduler.DeadLock(s))
}

func Test_Sched_TwoCycleReservation(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(insn a 1 "u, u")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
	)
	//
	assert.Equal(t, -1, scheduler.Transition(s, a))
	assert.Equal(t, 2, scheduler.MinIssueDelay(s, a))
	assert.True(t, scheduler.DeadLock(s))
	//
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, 1, scheduler.MinIssueDelay(s, a))
	assert.True(t, scheduler.DeadLock(s))
	//
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, 0, scheduler.MinIssueDelay(s, a))
}

func Test_Sched_ParallelAlternatives(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u1 u2))
		(insn a 1 "u1 | u2")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
	)
	// Both alternatives are available from the start state.
	assert.Equal(t, 2, scheduler.StateAlts(s, a))
	assert.Equal(t, -1, scheduler.Transition(s, a))
	// One unit remains free, so a second issue still succeeds.
	assert.Equal(t, 1, scheduler.StateAlts(s, a))
	assert.Equal(t, -1, scheduler.Transition(s, a))
	// Now both are busy.
	assert.Equal(t, 0, scheduler.StateAlts(s, a))
	assert.True(t, scheduler.Transition(s, a) > 0)
}

func Test_Sched_Exclusion(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u1 u2))
		(exclusion (u1) (u2))
		(insn a 1 "u1")
		(insn b 1 "u2")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
		b = scheduler.InsnCode("b")
	)
	//
	assert.Equal(t, -1, scheduler.Transition(s, a))
	// The exclusion keeps b out until the cycle advances.
	delay := scheduler.Transition(s, b)
	//
	assert.True(t, delay > 0)
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, -1, scheduler.Transition(s, b))
}

func Test_Sched_Bypass(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u1 u2 u3))
		(insn a 3 "u1")
		(insn b 1 "u2")
		(insn c 1 "u3")
		(bypass 1 a b)
	`, automata.Options{})
	//
	var (
		a = scheduler.InsnCode("a")
		b = scheduler.InsnCode("b")
		c = scheduler.InsnCode("c")
	)
	//
	assert.Equal(t, 1, scheduler.InsnLatency(a, b))
	assert.Equal(t, 3, scheduler.InsnLatency(a, c))
	assert.Equal(t, 3, scheduler.InsnLatency(a, a))
	assert.Equal(t, 1, scheduler.InsnLatency(b, a))
}

func Test_Sched_Reset(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(insn a 1 "u, u")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
	)
	//
	assert.Equal(t, -1, scheduler.Transition(s, a))
	//
	scheduler.Reset(s)
	//
	assert.Equal(t, 0, scheduler.MinIssueDelay(s, a))
	// The start state self-loops on advance-cycle.
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, 0, scheduler.MinIssueDelay(s, a))
}

func Test_Sched_MinInsnConflictDelay(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(insn a 1 "u, u")
		(insn b 1 "u")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
		b = scheduler.InsnCode("b")
	)
	//
	assert.Equal(t, 2, scheduler.MinInsnConflictDelay(s, a, b))
	assert.Equal(t, 1, scheduler.MinInsnConflictDelay(s, b, a))
	assert.Equal(t, 1, scheduler.MinInsnConflictDelay(s, b, b))
}

func Test_Sched_UnitReservation(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(query-unit (q))
		(insn a 1 "u + q, u")
	`, automata.Options{})
	//
	var (
		s    = scheduler.NewState()
		a    = scheduler.InsnCode("a")
		code = scheduler.UnitCode("q")
	)
	//
	assert.True(t, code >= 0)
	assert.Equal(t, -1, scheduler.UnitCode("u"))
	assert.Equal(t, -1, scheduler.UnitCode("missing"))
	//
	assert.False(t, scheduler.UnitReservation(s, code))
	assert.Equal(t, -1, scheduler.Transition(s, a))
	assert.True(t, scheduler.UnitReservation(s, code))
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.False(t, scheduler.UnitReservation(s, code))
}

func Test_Sched_InsnCodeCache(t *testing.T) {
	scheduler := newScheduler(t, `
		(unit (u))
		(insn a 1 "u")
	`, automata.Options{})
	//
	scheduler.Start()
	//
	assert.Equal(t, 0, scheduler.InsnCode("a"))
	assert.Equal(t, 0, scheduler.InsnCode("a"))
	assert.Equal(t, -1, scheduler.InsnCode("missing"))
	//
	scheduler.CleanCache()
	//
	assert.Equal(t, 0, scheduler.InsnCode("a"))
	//
	scheduler.Finish()
	assert.Equal(t, 0, scheduler.InsnCode("a"))
}

func Test_Sched_StateSize(t *testing.T) {
	scheduler := newScheduler(t, `
		(automaton p1 p2)
		(unit (u1) p1)
		(unit (u2) p2)
		(insn a 1 "u1 + u2")
	`, automata.Options{})
	//
	assert.True(t, scheduler.StateSize() > 0)
	assert.Equal(t, 0, scheduler.StateSize()%2)
}

func Test_Sched_MultipleAutomata(t *testing.T) {
	scheduler := newScheduler(t, `
		(automaton p1 p2)
		(unit (u1) p1)
		(unit (u2) p2)
		(insn a 1 "u1 + u2")
		(insn b 1 "u2")
	`, automata.Options{})
	//
	var (
		s = scheduler.NewState()
		a = scheduler.InsnCode("a")
		b = scheduler.InsnCode("b")
	)
	//
	assert.Equal(t, -1, scheduler.Transition(s, a))
	// Both automata are now busy; b conflicts in p2.
	assert.True(t, scheduler.Transition(s, b) > 0)
	assert.Equal(t, -1, scheduler.Transition(s, sched.AdvanceCycle))
	assert.Equal(t, -1, scheduler.Transition(s, b))
}

func Test_Sched_MinimizationPreservesLanguage(t *testing.T) {
	description := `
		(unit (u1 u2))
		(insn a 1 "u1, u2")
		(insn b 1 "u2")
		(insn c 1 "u1 | u2")
	`
	//
	var (
		minimized   = newScheduler(t, description, automata.Options{})
		unminimized = newScheduler(t, description, automata.Options{NoMinimize: true})
		insns       = []int{0, 1, 2, sched.AdvanceCycle}
	)
	// Compare both schedulers over every instruction sequence of bounded
	// length.
	var walk func(s1, s2 *sched.State, depth int)
	//
	walk = func(s1, s2 *sched.State, depth int) {
		if depth == 0 {
			return
		}
		//
		for _, insn := range insns {
			var (
				c1 = clone(minimized, s1)
				c2 = clone(unminimized, s2)
				r1 = minimized.Transition(c1, insn)
				r2 = unminimized.Transition(c2, insn)
			)
			//
			assert.Equal(t, r2, r1, "sequences diverge on insn %d", insn)
			//
			if r1 == -1 {
				walk(c1, c2, depth-1)
			}
		}
	}
	//
	walk(minimized.NewState(), unminimized.NewState(), 4)
}

// ===================================================================
// Test Helpers
// ===================================================================

func newScheduler(t *testing.T, description string, options automata.Options) *sched.Scheduler {
	srcfile := source.NewSourceFile("test.pd", []byte(description))
	//
	decls, err := pipeline.ParseFile(srcfile)
	//
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	//
	tables, context, genErr := gen.Generate(decls, options)
	//
	if genErr != nil {
		t.Fatalf("unexpected generation failure: %v", context.Diagnostics())
	}
	//
	return sched.New(tables)
}

// clone copies a scheduling state into a freshly allocated one.
func clone(scheduler *sched.Scheduler, s *sched.State) *sched.State {
	copied := scheduler.NewState()
	scheduler.CopyState(copied, s)
	//
	return copied
}
