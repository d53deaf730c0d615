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
	"strings"
)

// Describe writes a human-readable description of every automaton: its
// states with their reservations, its arcs, its instruction equivalence
// classes and the construction statistics.
func (c *Context) Describe(w io.Writer) {
	for _, a := range c.automata {
		c.describeAutomaton(w, a)
	}
}

func (c *Context) describeAutomaton(w io.Writer, a *Automaton) {
	fmt.Fprintf(w, "automaton %s\n", a.Name)
	fmt.Fprintf(w, "  %d NFA states, %d NFA arcs\n", a.NFAStates, a.NFAArcs)
	fmt.Fprintf(w, "  %d DFA states, %d DFA arcs\n", a.DFAStates, a.DFAArcs)
	fmt.Fprintf(w, "  %d minimal DFA states, %d minimal DFA arcs\n", a.MinStates, a.MinArcs)
	fmt.Fprintf(w, "  %d instruction equivalence classes\n\n", a.ClassCount)
	// Instruction classes.
	classes := make([][]string, a.ClassCount)
	//
	for _, ainsn := range a.Insns {
		classes[ainsn.equivClass] = append(classes[ainsn.equivClass], ainsn.Insn.Name)
	}
	//
	for class, names := range classes {
		fmt.Fprintf(w, "  class %d: %s\n", class, strings.Join(names, " "))
	}
	//
	fmt.Fprintln(w)
	// States and arcs.
	for _, s := range a.States {
		flags := ""
		//
		if s.newCycle {
			flags = " (new cycle)"
		}
		//
		if s.CompoundP() {
			fmt.Fprintf(w, "  state %d%s: %d components\n", s.num, flags, len(s.components))
		} else {
			fmt.Fprintf(w, "  state %d%s: %s\n", s.num, flags, c.describe(s.reservs))
		}
		//
		for arc := s.arcs; arc != nil; arc = arc.next {
			fmt.Fprintf(w, "    --%s--> %d", arc.insn.Insn.Name, arc.to.num)
			//
			if arc.stateAlts > 1 {
				fmt.Fprintf(w, " (%d alternatives)", arc.stateAlts)
			}
			//
			fmt.Fprintln(w)
		}
	}
	//
	fmt.Fprintln(w)
}
