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
	"strings"
	"testing"

	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/util/source"
)

// parseDecls parses an inline description into declaration records.
func parseDecls(t *testing.T, description string) []pipeline.Decl {
	srcfile := source.NewSourceFile("test.pd", []byte(description))
	//
	decls, err := pipeline.ParseFile(srcfile)
	//
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	//
	return decls
}

// newTestContext runs declaration, checking, transformation and
// distribution over an inline description, failing the test on any error.
func newTestContext(t *testing.T, description string) *Context {
	return newTestContextWith(t, description, Options{})
}

func newTestContextWith(t *testing.T, description string, options Options) *Context {
	c := NewContext(options)
	c.Declare(parseDecls(t, description))
	c.Check()
	//
	requireClean(t, c)
	//
	c.Transform()
	c.Finalize()
	c.Distribute()
	//
	requireClean(t, c)
	//
	return c
}

// buildTestAutomata additionally runs the full automaton construction
// pipeline over an inline description.
func buildTestAutomata(t *testing.T, description string) *Context {
	return buildTestAutomataWith(t, description, Options{})
}

func buildTestAutomataWith(t *testing.T, description string, options Options) *Context {
	c := newTestContextWith(t, description, options)
	//
	c.BuildAltStates()
	c.BuildNFA()
	c.Determinize()
	c.Minimize()
	c.ClassifyInsns()
	//
	return c
}

func requireClean(t *testing.T, c *Context) {
	if c.Failed() {
		var msgs []string
		//
		for _, d := range c.Diagnostics() {
			msgs = append(msgs, d.String())
		}
		//
		t.Fatalf("unexpected diagnostics:\n%s", strings.Join(msgs, "\n"))
	}
}

// checkDiagnostic runs declaration and checking over an inline description
// and requires a diagnostic containing the given fragment, with the given
// severity.
func checkDiagnostic(t *testing.T, description string, options Options, fragment string, warning bool) {
	c := NewContext(options)
	c.Declare(parseDecls(t, description))
	c.Check()
	//
	if !c.Failed() {
		c.Transform()
		c.Finalize()
		c.Distribute()
	}
	//
	for _, d := range c.Diagnostics() {
		if strings.Contains(d.Message, fragment) && d.Warning == warning {
			return
		}
	}
	//
	t.Errorf("expected diagnostic containing %q, got %v", fragment, c.Diagnostics())
}
