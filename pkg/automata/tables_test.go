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

func Test_PackTable_Full(t *testing.T) {
	// A dense table stays in full form.
	values := [][]int{{1, 2}, {3, 4}}
	packed := packTable(values, 2)
	//
	assert.True(t, packed.Full != nil)
	//
	checkPackedTable(t, values, packed)
}

func Test_PackTable_Comb(t *testing.T) {
	// A sparse diagonal overlays into a short comb vector.
	var values [][]int
	//
	for row := 0; row < 10; row++ {
		vs := make([]int, 10)
		//
		for col := range vs {
			vs[col] = noEntry
		}
		//
		vs[row] = row + 100
		values = append(values, vs)
	}
	//
	packed := packTable(values, 10)
	//
	assert.True(t, packed.Full == nil)
	assert.True(t, len(packed.Next) < 100)
	//
	checkPackedTable(t, values, packed)
}

func Test_PackTable_CombOwnership(t *testing.T) {
	// The comb-vector lookup property: every valid (row, col) slot is owned
	// by its row in the check vector.
	var values [][]int
	//
	for row := 0; row < 8; row++ {
		vs := make([]int, 12)
		//
		for col := range vs {
			vs[col] = noEntry
		}
		//
		vs[row%12] = row
		vs[(row+5)%12] = row * 2
		values = append(values, vs)
	}
	//
	packed := packTable(values, 12)
	//
	if packed.Full != nil {
		t.Skip("comb encoding not selected")
	}
	//
	for row, vs := range values {
		for col, v := range vs {
			if v != noEntry {
				assert.Equal(t, row, packed.Check[packed.Base[row]+col])
			}
		}
	}
}

func Test_PackMinDelay_00(t *testing.T) {
	checkMinDelay(t, [][]int{{0, 1}, {1, 0}}, 1)
}

func Test_PackMinDelay_01(t *testing.T) {
	checkMinDelay(t, [][]int{{0, 3}, {2, 1}}, 2)
}

func Test_PackMinDelay_02(t *testing.T) {
	checkMinDelay(t, [][]int{{0, 9}, {15, 1}}, 4)
}

func Test_PackMinDelay_03(t *testing.T) {
	checkMinDelay(t, [][]int{{0, 200}, {16, 1}}, 8)
}

func Test_PackMinDelay_04(t *testing.T) {
	// Values beyond a byte leave the table unpacked.
	checkMinDelay(t, [][]int{{0, 300}, {16, 1}}, 0)
}

func Test_Tables_TransitionsMatchArcs(t *testing.T) {
	c := buildTestAutomata(t, `
		(unit (u1 u2))
		(insn a 1 "u1, u2")
		(insn b 2 "u2 | u1")
		(insn c 0 "nothing")
	`)
	//
	tables := c.BuildTables()
	//
	for i, a := range c.Automata() {
		at := tables.Automata[i]
		//
		for _, s := range a.States {
			present := make(map[int]bool)
			//
			for _, arc := range s.Arcs() {
				class := arc.Insn().EquivClass()
				present[class] = true
				//
				dest, ok := at.Trans.Lookup(s.Num(), class)
				//
				assert.True(t, ok)
				assert.Equal(t, arc.To().Num(), dest)
				//
				alts, ok := at.StateAlts.Lookup(s.Num(), class)
				//
				assert.True(t, ok)
				assert.Equal(t, arc.StateAlts(), alts)
			}
			// Absent classes must miss.
			for class := 0; class < at.ClassCount; class++ {
				if !present[class] {
					_, ok := at.Trans.Lookup(s.Num(), class)
					assert.False(t, ok)
				}
			}
		}
	}
}

func Test_Tables_MinDelayZeroIffIssuable(t *testing.T) {
	c := buildTestAutomata(t, `
		(unit (u1 u2))
		(insn a 1 "u1, u2")
		(insn b 2 "u2")
	`)
	//
	tables := c.BuildTables()
	//
	for i, a := range c.Automata() {
		at := tables.Automata[i]
		//
		for _, s := range a.States {
			for _, insn := range c.Insns() {
				var (
					class    = at.Translate[insn.Num]
					delay    = at.MinDelay.Get(s.Num(), class)
					_, there = at.Trans.Lookup(s.Num(), class)
				)
				//
				assert.Equal(t, there, delay == 0,
					"state %d insn %s: delay %d, issuable %v", s.Num(), insn.Name, delay, there)
			}
		}
	}
}

func Test_Tables_ReservedUnits(t *testing.T) {
	c := buildTestAutomata(t, `
		(unit (u1))
		(query-unit (q))
		(insn a 1 "u1 + q, u1")
	`)
	//
	tables := c.BuildTables()
	//
	assert.Equal(t, []string{"q"}, tables.QueryUnits)
	//
	var (
		a  = c.Automata()[0]
		at = tables.Automata[0]
	)
	//
	for _, s := range a.States {
		var (
			expected = s.Reservs().Test(0, c.Units()[1].Num)
			actual   = at.Reserved[s.Num()*at.QueryBytes]&1 != 0
		)
		//
		assert.Equal(t, expected, actual)
	}
}

func Test_Tables_Translate(t *testing.T) {
	// Instructions with identical reservations share a table column.
	c := buildTestAutomata(t, `
		(unit (u))
		(insn a 1 "u")
		(insn b 1 "u")
		(insn d 1 "u, u")
	`)
	//
	at := c.BuildTables().Automata[0]
	//
	assert.Equal(t, at.Translate[0], at.Translate[1])
	assert.True(t, at.Translate[0] != at.Translate[2])
}

// ===================================================================
// Test Helpers
// ===================================================================

func checkPackedTable(t *testing.T, values [][]int, packed PackedTable) {
	for row, vs := range values {
		for col, v := range vs {
			got, ok := packed.Lookup(row, col)
			//
			if v == noEntry {
				assert.False(t, ok, "row %d col %d", row, col)
			} else {
				assert.True(t, ok, "row %d col %d", row, col)
				assert.Equal(t, v, got)
			}
		}
	}
}

func checkMinDelay(t *testing.T, values [][]int, bits int) {
	packed := packMinDelay(values, len(values[0]))
	//
	assert.Equal(t, bits, packed.Bits)
	//
	for row, vs := range values {
		for col, v := range vs {
			assert.Equal(t, v, packed.Get(row, col))
		}
	}
}
