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
	"math"
	"sort"

	"github.com/consensys/go-pipegen/pkg/pipeline"
)

// maxEstimate bounds the running state-space estimate during heuristic
// distribution, keeping the floating-point products finite.
const maxEstimate = 1e37

// Distribute assigns every unit to an automaton.  When automata were
// declared, each unit goes to the automaton it names.  Otherwise, with the
// split option, units are spread heuristically over the requested number of
// automata so that each automaton's estimated state space stays near the
// nth root of the global estimate; without it, a single automaton holds
// everything.  Afterwards the distribution is validated against every
// instruction reservation.
func (c *Context) Distribute() {
	switch {
	case len(c.automata) > 0:
		if c.options.Split > 0 {
			c.errorf("option split conflicts with declared automata")
		}
		//
		for _, u := range c.units {
			if auto, ok := c.autoMap[u.DeclAuto]; ok {
				u.Auto = auto
			}
		}
	case c.options.Split > 1:
		c.distributeHeuristically(c.options.Split)
	default:
		auto := &Automaton{Name: "auto0", Num: 0}
		c.automata = append(c.automata, auto)
		//
		for _, u := range c.units {
			u.Auto = auto
		}
	}
	//
	for _, u := range c.units {
		if u.Auto == nil {
			continue
		}
		//
		u.Auto.Units = append(u.Auto.Units, u)
		//
		if u.Query {
			u.Auto.QueryUnits = append(u.Auto.QueryUnits, u)
		}
	}
	//
	for _, a := range c.automata {
		sort.Slice(a.QueryUnits, func(i, j int) bool {
			return a.QueryUnits[i].QueryCode < a.QueryUnits[j].QueryCode
		})
	}
	//
	c.validateDistribution()
}

// distributeHeuristically spreads units over n automata.  Units are taken in
// decreasing max-occurrence-cycle order and each automaton is filled until
// its estimated state space, the product of (max-occ-cycle + 1) over its
// units, reaches the nth root of the global estimate.
func (c *Context) distributeHeuristically(n int) {
	for i := 0; i < n; i++ {
		auto := &Automaton{Name: fmt.Sprintf("auto%d", i), Num: i}
		c.automata = append(c.automata, auto)
	}
	//
	sorted := make([]*Unit, len(c.units))
	copy(sorted, c.units)
	//
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MaxOcc > sorted[j].MaxOcc
	})
	//
	estimate := 1.0
	//
	for _, u := range sorted {
		estimate = math.Min(estimate*float64(u.MaxOcc+1), maxEstimate)
	}
	//
	var (
		target  = math.Pow(estimate, 1.0/float64(n))
		index   = 0
		current = 1.0
	)
	//
	for _, u := range sorted {
		factor := float64(u.MaxOcc + 1)
		//
		if current > 1 && current*factor > target && index < n-1 {
			index++
			current = 1.0
		}
		//
		u.Auto = c.automata[index]
		current = math.Min(current*factor, maxEstimate)
	}
}

// validateDistribution checks that, within every instruction reservation,
// the units of each automaton appear on every top-level alternative.  An
// automaton mentioned on only some alternatives would over-accept: committing
// to an alternative without it would leave that automaton's state
// unconstrained.
func (c *Context) validateDistribution() {
	for _, i := range c.insns {
		if i.Canon == nil {
			continue
		}
		//
		c.validateInsnDistribution(i)
	}
}

func (c *Context) validateInsnDistribution(insn *Insn) {
	type usage struct {
		alt   int
		cycle int
		auto  *Automaton
	}
	//
	var (
		alternatives = pipeline.Alternatives(insn.Canon)
		usages       []usage
		names        = make(map[usage]string)
		reported     = make(map[usage]bool)
	)
	// Collect unit usages keyed by (alternative, cycle, automaton).
	for alt, alternative := range alternatives {
		for cycle, element := range alternative {
			for _, name := range pipeline.CycleUnits(element) {
				u, ok := c.declMap[name].(*Unit)
				//
				if !ok || u.Auto == nil {
					continue
				}
				//
				key := usage{alt, cycle, u.Auto}
				//
				if _, ok := names[key]; !ok {
					usages = append(usages, key)
					names[key] = u.Name
				}
			}
		}
	}
	// Every usage must be mirrored, on the same cycle, by every other
	// alternative.
	for _, use := range usages {
		for alt := range alternatives {
			if alt == use.alt {
				continue
			}
			//
			mirrored := usage{alt, use.cycle, use.auto}
			//
			if _, ok := names[mirrored]; !ok && !reported[use] {
				reported[use] = true
				//
				c.errorf("unit `%s` of insn reservation `%s` is not reserved on cycle %d of every alternative",
					names[use], insn.Name, use.cycle)
			}
		}
	}
}
