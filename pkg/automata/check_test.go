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
	"testing"

	"github.com/consensys/go-pipegen/pkg/util/assert"
)

func Test_Check_DuplicateUnit(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u1))
		(insn a 1 "u1")
	`, Options{}, "repeated declaration", false)
}

func Test_Check_DuplicateUnitPermissive(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u1))
		(insn a 1 "u1")
	`, Options{Permissive: true}, "repeated declaration", true)
}

func Test_Check_UndeclaredName(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a 1 "u1, u9")
	`, Options{}, "undeclared unit or reservation `u9`", false)
}

func Test_Check_UnitWithoutAutomaton(t *testing.T) {
	checkDiagnostic(t, `
		(automaton pipeline)
		(unit (u1) pipeline)
		(unit (u2))
		(insn a 1 "u1, u2")
	`, Options{}, "without automaton when one defined", false)
}

func Test_Check_UndeclaredAutomaton(t *testing.T) {
	checkDiagnostic(t, `
		(automaton pipeline)
		(unit (u1) other)
		(insn a 1 "u1")
	`, Options{}, "automaton `other` is not declared", false)
}

func Test_Check_ReservCycle(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(reserv r1 "u1, r2")
		(reserv r2 "r1")
		(insn a 1 "r1")
	`, Options{}, "cycle in definition of reservation", false)
}

func Test_Check_SelfExclusion(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u2))
		(exclusion (u1) (u1 u2))
		(insn a 1 "u1, u2")
	`, Options{}, "excludes itself", false)
}

func Test_Check_CrossAutomatonExclusion(t *testing.T) {
	checkDiagnostic(t, `
		(automaton p1 p2)
		(unit (u1) p1)
		(unit (u2) p2)
		(exclusion (u1) (u2))
		(insn a 1 "u1 + u2")
	`, Options{}, "belong to different automata", false)
}

func Test_Check_OwnAbsence(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u2))
		(absence (u1) (u1 u2))
		(insn a 1 "u1, u2")
	`, Options{}, "requires own absence", false)
}

func Test_Check_ExclusionPresenceConflict(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u2))
		(exclusion (u1) (u2))
		(presence (u1) (u2))
		(insn a 1 "u1, u2")
	`, Options{}, "excludes and requires presence", false)
}

func Test_Check_AbsencePresenceConflict(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u2))
		(absence (u1) (u2))
		(presence (u1) (u2))
		(insn a 1 "u1, u2")
	`, Options{Permissive: true}, "requires absence and presence", true)
}

func Test_Check_NegativeLatency(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a -2 "u1")
	`, Options{}, "negative latency", false)
}

func Test_Check_RepetitionCount(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a 1 "u1 * 1")
	`, Options{}, "repetition count", false)
}

func Test_Check_UnusedUnit(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1 u2))
		(insn a 1 "u1")
	`, Options{}, "unit `u2` is not used", true)
}

func Test_Check_UnknownBypassInsn(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a 1 "u1")
		(bypass 2 a b)
	`, Options{}, "undeclared insn reservation `b` in bypass", false)
}

func Test_Check_DuplicateBypassSameLatency(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a 1 "u1")
		(insn b 1 "u1")
		(bypass 2 a b)
		(bypass 2 a b)
	`, Options{}, "already defined", true)
}

func Test_Check_DuplicateBypassDifferentLatency(t *testing.T) {
	checkDiagnostic(t, `
		(unit (u1))
		(insn a 1 "u1")
		(insn b 1 "u1")
		(bypass 2 a b)
		(bypass 3 a b)
	`, Options{}, "different latency", false)
}

func Test_Check_SplitWithAutomata(t *testing.T) {
	checkDiagnostic(t, `
		(automaton pipeline)
		(unit (u1) pipeline)
		(insn a 1 "u1")
		(option split 2)
	`, Options{}, "split conflicts with declared automata", false)
}

func Test_Check_DistributionValidation(t *testing.T) {
	// The alternatives of an instruction must reserve each automaton on the
	// same cycles; here p2 appears on only one alternative.
	checkDiagnostic(t, `
		(automaton p1 p2)
		(unit (u1) p1)
		(unit (u2) p2)
		(insn a 1 "u1 + u2 | u1")
		(insn b 1 "u2")
	`, Options{}, "not reserved on cycle 0 of every alternative", false)
}

func Test_Check_Extents(t *testing.T) {
	c := newTestContext(t, `
		(unit (u1 u2))
		(insn a 1 "u1, u1 + u2, u1")
		(insn b 1 "nothing, u2")
	`)
	//
	units := c.Units()
	//
	assert.Equal(t, 0, units[0].MinOcc)
	assert.Equal(t, 2, units[0].MaxOcc)
	assert.Equal(t, 1, units[1].MinOcc)
	assert.Equal(t, 1, units[1].MaxOcc)
}

func Test_Check_AdvanceCycleLast(t *testing.T) {
	c := newTestContext(t, `
		(unit (u1))
		(insn a 1 "u1")
	`)
	//
	insns := c.Insns()
	//
	assert.Equal(t, 2, len(insns))
	assert.Equal(t, AdvanceCycleName, insns[1].Name)
	assert.True(t, insns[1].AdvanceP())
}
