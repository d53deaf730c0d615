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
package gen

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/consensys/go-pipegen/pkg/automata"
)

// EmitGo renders a set of generated tables as a compilable Go source file.
// The emitted file declares a single exported variable, Tables, which a
// sched.Scheduler interprets at compile-time scheduling.
func EmitGo(w io.Writer, pkg string, tables *automata.Tables) error {
	var b strings.Builder
	//
	b.WriteString("// Code generated by go-pipegen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("import \"github.com/consensys/go-pipegen/pkg/automata\"\n\n")
	b.WriteString("// Tables drive the pipeline-hazard scheduler for this processor description.\n")
	b.WriteString("var Tables = &automata.Tables{\n")
	// Automata.
	b.WriteString("\tAutomata: []*automata.AutomatonTables{\n")
	//
	for _, a := range tables.Automata {
		emitAutomaton(&b, a)
	}
	//
	b.WriteString("\t},\n")
	// Instructions.
	b.WriteString("\tInsns: []automata.InsnInfo{\n")
	//
	for _, insn := range tables.Insns {
		emitInsn(&b, insn)
	}
	//
	b.WriteString("\t},\n")
	// Queryable units.
	fmt.Fprintf(&b, "\tQueryUnits: %s,\n", stringsLit(tables.QueryUnits))
	fmt.Fprintf(&b, "\tAdvanceInsn: %d,\n", tables.AdvanceInsn)
	b.WriteString("}\n")
	//
	_, err := io.WriteString(w, b.String())
	//
	return err
}

func emitAutomaton(b *strings.Builder, a *automata.AutomatonTables) {
	b.WriteString("\t\t{\n")
	fmt.Fprintf(b, "\t\t\tName: %q,\n", a.Name)
	fmt.Fprintf(b, "\t\t\tStateCount: %d,\n", a.StateCount)
	fmt.Fprintf(b, "\t\t\tClassCount: %d,\n", a.ClassCount)
	fmt.Fprintf(b, "\t\t\tAdvanceClass: %d,\n", a.AdvanceClass)
	fmt.Fprintf(b, "\t\t\tTranslate: %s,\n", intsLit(a.Translate))
	fmt.Fprintf(b, "\t\t\tTrans: %s,\n", packedLit(&a.Trans))
	fmt.Fprintf(b, "\t\t\tStateAlts: %s,\n", packedLit(&a.StateAlts))
	fmt.Fprintf(b, "\t\t\tMinDelay: %s,\n", minDelayLit(&a.MinDelay))
	fmt.Fprintf(b, "\t\t\tDeadLock: %s,\n", boolsLit(a.DeadLock))
	fmt.Fprintf(b, "\t\t\tReserved: %s,\n", bytesLit(a.Reserved))
	fmt.Fprintf(b, "\t\t\tQueryBytes: %d,\n", a.QueryBytes)
	b.WriteString("\t\t},\n")
}

func emitInsn(b *strings.Builder, insn automata.InsnInfo) {
	fmt.Fprintf(b, "\t\t{Name: %q, Latency: %d", insn.Name, insn.Latency)
	//
	if insn.Cond != "" {
		fmt.Fprintf(b, ", Cond: %q", insn.Cond)
	}
	//
	if len(insn.Bypasses) > 0 {
		b.WriteString(", Bypasses: []automata.BypassInfo{")
		//
		for i, bypass := range insn.Bypasses {
			if i != 0 {
				b.WriteString(", ")
			}
			//
			fmt.Fprintf(b, "{In: %d, Latency: %d", bypass.In, bypass.Latency)
			//
			if bypass.Guard != "" {
				fmt.Fprintf(b, ", Guard: %q", bypass.Guard)
			}
			//
			b.WriteString("}")
		}
		//
		b.WriteString("}")
	}
	//
	if len(insn.Important) > 0 {
		fmt.Fprintf(b, ", Important: %s", intsLit(insn.Important))
	}
	//
	b.WriteString("},\n")
}

func packedLit(t *automata.PackedTable) string {
	var b strings.Builder
	//
	fmt.Fprintf(&b, "automata.PackedTable{Rows: %d, Cols: %d", t.Rows, t.Cols)
	//
	if t.Full != nil {
		fmt.Fprintf(&b, ", Full: %s", intsLit(t.Full))
	} else {
		fmt.Fprintf(&b, ", Base: %s, Check: %s, Next: %s",
			intsLit(t.Base), intsLit(t.Check), intsLit(t.Next))
	}
	//
	b.WriteString("}")
	//
	return b.String()
}

func minDelayLit(t *automata.MinDelayTable) string {
	var b strings.Builder
	//
	fmt.Fprintf(&b, "automata.MinDelayTable{Rows: %d, Cols: %d, Bits: %d", t.Rows, t.Cols, t.Bits)
	//
	if t.Bits == 0 {
		fmt.Fprintf(&b, ", Full: %s", intsLit(t.Full))
	} else {
		fmt.Fprintf(&b, ", Packed: %s", bytesLit(t.Packed))
	}
	//
	b.WriteString("}")
	//
	return b.String()
}

func intsLit(values []int) string {
	if values == nil {
		return "nil"
	}
	//
	parts := make([]string, len(values))
	//
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	//
	return "[]int{" + strings.Join(parts, ", ") + "}"
}

func boolsLit(values []bool) string {
	parts := make([]string, len(values))
	//
	for i, v := range values {
		parts[i] = strconv.FormatBool(v)
	}
	//
	return "[]bool{" + strings.Join(parts, ", ") + "}"
}

func bytesLit(values []byte) string {
	if values == nil {
		return "nil"
	}
	//
	parts := make([]string, len(values))
	//
	for i, v := range values {
		parts[i] = strconv.Itoa(int(v))
	}
	//
	return "[]byte{" + strings.Join(parts, ", ") + "}"
}

func stringsLit(values []string) string {
	if values == nil {
		return "nil"
	}
	//
	parts := make([]string, len(values))
	//
	for i, v := range values {
		parts[i] = strconv.Quote(v)
	}
	//
	return "[]string{" + strings.Join(parts, ", ") + "}"
}
