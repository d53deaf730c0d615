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
package gen_test

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/consensys/go-pipegen/pkg/automata"
	"github.com/consensys/go-pipegen/pkg/gen"
	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/sched"
	"github.com/consensys/go-pipegen/pkg/util/source"
)

// A small but complete description exercising automata, reservations,
// queryable units, constraints and bypasses together.
const pipelineDescription = `
	; pipelined core with a separate divider
	(automaton core div)
	(unit (fetch decode) core)
	(query-unit (alu) core)
	(unit (divider) div)
	(reserv frontend "fetch, decode")
	(insn add 1 "frontend, alu")
	(insn mul 3 "frontend, alu, alu")
	(insn fdiv 8 "frontend, divider * 4")
	(insn nop 0 "nothing")
	(bypass 1 mul add)
`

func Test_Generate_EndToEnd(t *testing.T) {
	g := NewWithT(t)
	//
	tables, context, err := generate(t, pipelineDescription, automata.Options{})
	//
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tables.Automata).To(HaveLen(2))
	g.Expect(tables.QueryUnits).To(Equal([]string{"alu"}))
	// The advance-cycle instruction is always last.
	g.Expect(tables.Insns).To(HaveLen(5))
	g.Expect(tables.Insns[4].Name).To(Equal(automata.AdvanceCycleName))
	g.Expect(tables.AdvanceInsn).To(Equal(4))
	//
	for _, a := range context.Automata() {
		g.Expect(a.MinStates).To(BeNumerically(">", 0))
		g.Expect(a.MinStates).To(BeNumerically("<=", a.DFAStates))
	}
	// The tables drive a scheduler.
	scheduler := sched.New(tables)
	//
	var (
		s   = scheduler.NewState()
		add = scheduler.InsnCode("add")
		mul = scheduler.InsnCode("mul")
	)
	//
	g.Expect(scheduler.Transition(s, mul)).To(Equal(-1))
	// The pipeline is busy; add cannot claim the ALU for two cycles.
	g.Expect(scheduler.MinIssueDelay(s, add)).To(Equal(2))
	g.Expect(scheduler.Transition(s, add)).To(Equal(2))
	g.Expect(scheduler.Transition(s, sched.AdvanceCycle)).To(Equal(-1))
	g.Expect(scheduler.MinIssueDelay(s, add)).To(Equal(1))
	g.Expect(scheduler.Transition(s, sched.AdvanceCycle)).To(Equal(-1))
	g.Expect(scheduler.Transition(s, add)).To(Equal(-1))
	// Bypass latencies.
	g.Expect(scheduler.InsnLatency(mul, add)).To(Equal(1))
	g.Expect(scheduler.InsnLatency(mul, mul)).To(Equal(3))
}

func Test_Generate_Failure(t *testing.T) {
	g := NewWithT(t)
	//
	tables, context, err := generate(t, `
		(unit (u1))
		(insn a 1 "u1, u9")
	`, automata.Options{})
	//
	g.Expect(err).To(MatchError(gen.ErrFailed))
	g.Expect(tables).To(BeNil())
	g.Expect(context.Failed()).To(BeTrue())
	g.Expect(context.Diagnostics()).NotTo(BeEmpty())
}

func Test_Generate_EmbeddedOptions(t *testing.T) {
	g := NewWithT(t)
	// Options declared in the description fold into the run.
	_, context, err := generate(t, `
		(unit (u1 u2))
		(insn a 1 "u1 | u2")
		(option ndfa)
	`, automata.Options{})
	//
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(context.Options().NDFA).To(BeTrue())
}

func Test_Generate_Describe(t *testing.T) {
	g := NewWithT(t)
	//
	_, context, err := generate(t, pipelineDescription, automata.Options{})
	//
	g.Expect(err).NotTo(HaveOccurred())
	//
	var builder strings.Builder
	//
	context.Describe(&builder)
	description := builder.String()
	//
	g.Expect(description).To(ContainSubstring("automaton core"))
	g.Expect(description).To(ContainSubstring("automaton div"))
	g.Expect(description).To(ContainSubstring("minimal DFA states"))
	g.Expect(description).To(ContainSubstring(automata.AdvanceCycleName))
}

func Test_Generate_EmitGo(t *testing.T) {
	g := NewWithT(t)
	//
	tables, _, err := generate(t, pipelineDescription, automata.Options{})
	//
	g.Expect(err).NotTo(HaveOccurred())
	//
	var builder strings.Builder
	//
	g.Expect(gen.EmitGo(&builder, "cputables", tables)).To(Succeed())
	//
	emitted := builder.String()
	//
	g.Expect(emitted).To(HavePrefix("// Code generated by go-pipegen. DO NOT EDIT."))
	g.Expect(emitted).To(ContainSubstring("package cputables"))
	g.Expect(emitted).To(ContainSubstring("var Tables = &automata.Tables{"))
	g.Expect(emitted).To(ContainSubstring(`Name: "core"`))
	g.Expect(emitted).To(ContainSubstring(`QueryUnits: []string{"alu"}`))
	g.Expect(emitted).To(ContainSubstring(`{Name: "mul", Latency: 3, Bypasses: []automata.BypassInfo{{In: 0, Latency: 1}}`))
}

// ===================================================================
// Test Helpers
// ===================================================================

func generate(t *testing.T, description string, options automata.Options,
) (*automata.Tables, *automata.Context, error) {
	srcfile := source.NewSourceFile("test.pd", []byte(description))
	//
	decls, err := pipeline.ParseFile(srcfile)
	//
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	//
	return gen.Generate(decls, options)
}
