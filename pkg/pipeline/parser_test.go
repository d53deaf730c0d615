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

import (
	"testing"

	"github.com/consensys/go-pipegen/pkg/util/assert"
	"github.com/consensys/go-pipegen/pkg/util/source"
)

func Test_DescriptionParser_00(t *testing.T) {
	decls := parseDescription(t, `
		; a minimal two-unit pipeline
		(automaton pipeline)
		(unit (u1 u2) pipeline)
		(query-unit (q) pipeline)
		(insn add 1 "u1")
	`)
	//
	assert.Equal(t, 5, len(decls))
	assert.Equal(t, &AutomatonDecl{"pipeline"}, decls[0])
	assert.Equal(t, &UnitDecl{"u1", "pipeline", false}, decls[1])
	assert.Equal(t, &UnitDecl{"u2", "pipeline", false}, decls[2])
	assert.Equal(t, &UnitDecl{"q", "pipeline", true}, decls[3])
	assert.Equal(t, &InsnDecl{"add", 1, "", "u1"}, decls[4])
}

func Test_DescriptionParser_01(t *testing.T) {
	decls := parseDescription(t, `
		(unit (u1 u2))
		(exclusion (u1) (u2))
		(presence (u1) (u2))
		(final-absence (u2) (u1 u2))
	`)
	//
	assert.Equal(t, 5, len(decls))
	assert.Equal(t, &ExclusionDecl{[]string{"u1"}, []string{"u2"}}, decls[2])
	assert.Equal(t, &PatternDecl{Presence, []string{"u1"}, [][]string{{"u2"}}}, decls[3])
	assert.Equal(t, &PatternDecl{FinalAbsence, []string{"u2"}, [][]string{{"u1", "u2"}}}, decls[4])
}

func Test_DescriptionParser_02(t *testing.T) {
	decls := parseDescription(t, `
		(reserv fdiv "div, div")
		(insn div 8 "predicate" "fdiv")
		(bypass 2 div div forward_p)
		(option ndfa)
		(option split 2)
	`)
	//
	assert.Equal(t, 5, len(decls))
	assert.Equal(t, &ReservDecl{"fdiv", "div, div"}, decls[0])
	assert.Equal(t, &InsnDecl{"div", 8, "predicate", "fdiv"}, decls[1])
	assert.Equal(t, &BypassDecl{2, "div", "div", "forward_p"}, decls[2])
	assert.Equal(t, &OptionDecl{"ndfa", 0}, decls[3])
	assert.Equal(t, &OptionDecl{"split", 2}, decls[4])
}

func Test_DescriptionParser_Invalid_00(t *testing.T) {
	checkDescriptionFails(t, `(widget (u1))`)
}

func Test_DescriptionParser_Invalid_01(t *testing.T) {
	checkDescriptionFails(t, `(unit u1)`)
}

func Test_DescriptionParser_Invalid_02(t *testing.T) {
	checkDescriptionFails(t, `(insn add one "u1")`)
}

func Test_DescriptionParser_Invalid_03(t *testing.T) {
	checkDescriptionFails(t, `(reserv fdiv)`)
}

func Test_DescriptionParser_Invalid_04(t *testing.T) {
	checkDescriptionFails(t, `(insn add 1 "u1"`)
}

// ===================================================================
// Test Helpers
// ===================================================================

func parseDescription(t *testing.T, text string) []Decl {
	srcfile := source.NewSourceFile("test.pd", []byte(text))
	//
	decls, err := ParseFile(srcfile)
	//
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	//
	return decls
}

func checkDescriptionFails(t *testing.T, text string) {
	srcfile := source.NewSourceFile("test.pd", []byte(text))
	//
	if _, err := ParseFile(srcfile); err == nil {
		t.Errorf("expected parse error for %q", text)
	}
}
