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
)

// noEntry is the sentinel marking absent table entries.
const noEntry = -1

// Tables is the complete generated artifact of one run: per-automaton
// transition tables together with the instruction and queryable-unit
// catalogues.  A table-driven scheduler interprets this value.
type Tables struct {
	// Automata tables, in automaton order.
	Automata []*AutomatonTables
	// Insns catalogues every instruction, the advance-cycle instruction
	// last.
	Insns []InsnInfo
	// QueryUnits holds the names of all queryable units, sorted, indexed by
	// query code.
	QueryUnits []string
	// AdvanceInsn is the index of the advance-cycle instruction.
	AdvanceInsn int
}

// InsnInfo is the per-instruction slice of the generated tables.
type InsnInfo struct {
	Name string
	// Latency is the default result latency.
	Latency int
	// Cond is the opaque condition predicate, carried through verbatim.
	Cond string
	// Bypasses are the outbound bypasses.
	Bypasses []BypassInfo
	// Important holds the order numbers of automata whose state can change
	// when this instruction issues.
	Important []int
}

// BypassInfo is one outbound bypass of an instruction.
type BypassInfo struct {
	// In is the consuming instruction.
	In int
	// Latency overrides the default latency.
	Latency int
	// Guard is an opaque predicate name, or empty.
	Guard string
}

// AutomatonTables holds the compressed tables of a single automaton.
type AutomatonTables struct {
	Name string
	// StateCount is the number of states of the final automaton.
	StateCount int
	// ClassCount is the number of instruction equivalence classes.
	ClassCount int
	// AdvanceClass is the equivalence class of the advance-cycle
	// instruction.
	AdvanceClass int
	// Translate maps instruction number onto equivalence class.
	Translate []int
	// Trans maps (state, class) onto the destination state.
	Trans PackedTable
	// StateAlts maps (state, class) onto the count of compatible
	// alternative reservations.
	StateAlts PackedTable
	// MinDelay maps (state, class) onto the minimum number of
	// advance-cycles before an instruction of the class can issue.
	MinDelay MinDelayTable
	// DeadLock flags states whose only outgoing arc is advance-cycle.
	DeadLock []bool
	// Reserved packs, per state, one bit per queryable unit: whether the
	// unit is reserved on cycle 0.
	Reserved []byte
	// QueryBytes is the number of Reserved bytes per state.
	QueryBytes int
}

// BuildTables materializes the compressed tables of every automaton.
func (c *Context) BuildTables() *Tables {
	tables := &Tables{AdvanceInsn: c.advance.Num}
	//
	for _, insn := range c.insns {
		info := InsnInfo{Name: insn.Name, Latency: insn.Latency, Cond: insn.Cond}
		//
		for _, b := range insn.Bypasses {
			info.Bypasses = append(info.Bypasses, BypassInfo{b.In.Num, b.Latency, b.Guard})
		}
		//
		for _, a := range insn.Important {
			info.Important = append(info.Important, a.Num)
		}
		//
		tables.Insns = append(tables.Insns, info)
	}
	//
	for _, u := range c.QueryUnits() {
		tables.QueryUnits = append(tables.QueryUnits, u.Name)
	}
	//
	for _, a := range c.automata {
		tables.Automata = append(tables.Automata, c.buildAutomatonTables(a, len(tables.QueryUnits)))
	}
	//
	return tables
}

func (c *Context) buildAutomatonTables(a *Automaton, queryUnits int) *AutomatonTables {
	var (
		states  = len(a.States)
		classes = a.ClassCount
		t       = &AutomatonTables{
			Name:         a.Name,
			StateCount:   states,
			ClassCount:   classes,
			AdvanceClass: a.AdvanceClass,
			Translate:    make([]int, len(c.insns)),
		}
	)
	//
	for _, ainsn := range a.Insns {
		t.Translate[ainsn.Insn.Num] = ainsn.equivClass
	}
	// Logical state x class tables for transitions and alternative counts.
	var (
		trans = newMatrix(states, classes)
		alts  = newMatrix(states, classes)
	)
	//
	for _, s := range a.States {
		for arc := s.arcs; arc != nil; arc = arc.next {
			class := arc.insn.equivClass
			trans[s.num][class] = arc.to.num
			alts[s.num][class] = arc.stateAlts
		}
	}
	//
	t.Trans = packTable(trans, classes)
	t.StateAlts = packTable(alts, classes)
	t.MinDelay = packMinDelay(minIssueDelays(a), classes)
	// Dead-lock vector.
	t.DeadLock = make([]bool, states)
	//
	for _, s := range a.States {
		arc := s.arcs
		t.DeadLock[s.num] = arc != nil && arc.next == nil && arc.insn.Insn.AdvanceP()
	}
	// Queryable-unit reservations on cycle 0, packed one bit per unit.
	t.QueryBytes = (queryUnits + 7) / 8
	t.Reserved = make([]byte, states*t.QueryBytes)
	//
	for _, s := range a.States {
		for _, u := range a.QueryUnits {
			if s.Reservs().Test(0, u.Num) {
				index := s.num*t.QueryBytes + u.QueryCode/8
				t.Reserved[index] |= 1 << (u.QueryCode % 8)
			}
		}
	}
	//
	return t
}

func newMatrix(rows int, cols int) [][]int {
	matrix := make([][]int, rows)
	//
	for i := range matrix {
		matrix[i] = make([]int, cols)
		//
		for j := range matrix[i] {
			matrix[i][j] = noEntry
		}
	}
	//
	return matrix
}

// ============================================================================
// Comb-vector compression
// ============================================================================

// PackedTable is a logically two-dimensional table materialized either as a
// row-major full vector, or as the classic base/check/next comb encoding:
// sparse rows overlaid in one long next vector with a per-row offset, where
// a slot belongs to a row exactly when the check vector names it.
type PackedTable struct {
	Rows, Cols int
	// Full is the row-major flat vector, or nil when the comb encoding is
	// in use.
	Full []int
	// Base, Check and Next implement the comb encoding.
	Base  []int
	Check []int
	Next  []int
}

// Lookup returns the entry at (row, col), or false when absent.
func (t *PackedTable) Lookup(row int, col int) (int, bool) {
	if t.Full != nil {
		if v := t.Full[row*t.Cols+col]; v != noEntry {
			return v, true
		}
		//
		return 0, false
	}
	//
	index := t.Base[row] + col
	//
	if index < len(t.Next) && t.Check[index] == row {
		return t.Next[index], true
	}
	//
	return 0, false
}

// packTable materializes a logical table, choosing the comb encoding
// whenever it saves at least sixty percent over the full vector.
func packTable(values [][]int, cols int) PackedTable {
	var (
		rows = len(values)
		t    = PackedTable{Rows: rows, Cols: cols}
	)
	// Greedy comb placement: rows with the most real entries go first, each
	// placed at the lowest offset where its filled columns collide with
	// nothing already placed.
	order := make([]int, rows)
	//
	for i := range order {
		order[i] = i
	}
	//
	sort.SliceStable(order, func(i, j int) bool {
		return fillCount(values[order[i]]) > fillCount(values[order[j]])
	})
	//
	var (
		base  = make([]int, rows)
		check []int
		next  []int
	)
	//
	for _, row := range order {
		offset := 0
		//
		for ; ; offset++ {
			if fits(values[row], check, offset) {
				break
			}
		}
		//
		base[row] = offset
		//
		for col, v := range values[row] {
			if v == noEntry {
				continue
			}
			//
			for len(next) <= offset+col {
				next = append(next, noEntry)
				check = append(check, noEntry)
			}
			//
			next[offset+col] = v
			check[offset+col] = row
		}
	}
	// Selection rule: comb encoding only on substantial savings.
	if 2*rows*cols > 5*len(next) {
		t.Base = base
		t.Check = check
		t.Next = next
	} else {
		t.Full = make([]int, rows*cols)
		//
		for row, vs := range values {
			copy(t.Full[row*cols:], vs)
		}
	}
	//
	return t
}

func fillCount(row []int) int {
	count := 0
	//
	for _, v := range row {
		if v != noEntry {
			count++
		}
	}
	//
	return count
}

func fits(row []int, check []int, offset int) bool {
	for col, v := range row {
		if v == noEntry {
			continue
		}
		//
		index := offset + col
		//
		if index < len(check) && check[index] != noEntry {
			return false
		}
	}
	//
	return true
}

// ============================================================================
// Min-issue-delay table
// ============================================================================

// MinDelayTable maps (state, class) onto the minimum number of
// advance-cycles before an instruction of the class can issue.  When the
// maximum entry fits in 1, 2, 4 or 8 bits, entries are packed that many bits
// wide; otherwise the table stays unpacked.
type MinDelayTable struct {
	Rows, Cols int
	// Bits is the packed entry width, or zero when Full is in use.
	Bits   int
	Packed []byte
	Full   []int
}

// Get returns the entry at (row, col).
func (t *MinDelayTable) Get(row int, col int) int {
	if t.Bits == 0 {
		return t.Full[row*t.Cols+col]
	}
	//
	var (
		index   = row*t.Cols + col
		perByte = 8 / t.Bits
		b       = t.Packed[index/perByte]
		shift   = (index % perByte) * t.Bits
		mask    = byte(1<<t.Bits - 1)
	)
	//
	return int((b >> shift) & mask)
}

// minIssueDelays computes the logical min-issue-delay table of an automaton
// by a reachability search from each state, treating advance-cycle arcs as
// weight one and all other arcs as weight zero, halting each class at the
// first state from which an instruction of the class can issue.
func minIssueDelays(a *Automaton) [][]int {
	var (
		states = len(a.States)
		delays = make([][]int, states)
	)
	//
	for _, s := range a.States {
		dist := zeroOneSearch(a, s)
		row := make([]int, a.ClassCount)
		//
		for class := range row {
			row[class] = noEntry
		}
		//
		for _, x := range a.States {
			if dist[x.num] == noEntry {
				continue
			}
			//
			for arc := x.arcs; arc != nil; arc = arc.next {
				class := arc.insn.equivClass
				//
				if row[class] == noEntry || dist[x.num] < row[class] {
					row[class] = dist[x.num]
				}
			}
		}
		// Unreachable entries cannot arise from a well-formed description;
		// they are stored as zero.
		for class := range row {
			if row[class] == noEntry {
				row[class] = 0
			}
		}
		//
		delays[s.num] = row
	}
	//
	return delays
}

// zeroOneSearch computes, for every state, the minimum number of
// advance-cycle arcs on any path from the origin.
func zeroOneSearch(a *Automaton, origin *State) []int {
	dist := make([]int, len(a.States))
	//
	for i := range dist {
		dist[i] = noEntry
	}
	//
	dist[origin.num] = 0
	deque := []*State{origin}
	//
	for len(deque) > 0 {
		x := deque[0]
		deque = deque[1:]
		//
		for arc := x.arcs; arc != nil; arc = arc.next {
			var (
				weight = 0
				to     = arc.to
			)
			//
			if arc.insn.Insn.AdvanceP() {
				weight = 1
			}
			//
			d := dist[x.num] + weight
			//
			if dist[to.num] == noEntry || d < dist[to.num] {
				dist[to.num] = d
				//
				if weight == 0 {
					deque = append([]*State{to}, deque...)
				} else {
					deque = append(deque, to)
				}
			}
		}
	}
	//
	return dist
}

// packMinDelay packs a logical min-issue-delay table into the narrowest of
// 1, 2, 4 or 8 bits per entry which fits its maximum value.
func packMinDelay(values [][]int, cols int) MinDelayTable {
	var (
		rows = len(values)
		t    = MinDelayTable{Rows: rows, Cols: cols}
		most = 0
	)
	//
	for _, row := range values {
		for _, v := range row {
			most = max(most, v)
		}
	}
	//
	for _, bits := range []int{1, 2, 4, 8} {
		if most < 1<<bits {
			t.Bits = bits
			break
		}
	}
	//
	if t.Bits == 0 {
		t.Full = make([]int, rows*cols)
		//
		for row, vs := range values {
			copy(t.Full[row*cols:], vs)
		}
		//
		return t
	}
	//
	perByte := 8 / t.Bits
	t.Packed = make([]byte, (rows*cols+perByte-1)/perByte)
	//
	for row, vs := range values {
		for col, v := range vs {
			index := row*cols + col
			shift := (index % perByte) * t.Bits
			t.Packed[index/perByte] |= byte(v) << shift
		}
	}
	//
	return t
}
