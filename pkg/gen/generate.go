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

// Package gen drives the end-to-end generation pipeline: semantic checking,
// regexp canonicalization, automaton construction, minimization and table
// compression.
package gen

import (
	"errors"

	"github.com/consensys/go-pipegen/pkg/automata"
	"github.com/consensys/go-pipegen/pkg/pipeline"
	"github.com/consensys/go-pipegen/pkg/util"
	log "github.com/sirupsen/logrus"
)

// ErrFailed signals that the description contained errors and generation was
// suppressed.  The context's diagnostics carry the details.
var ErrFailed = errors.New("pipeline description contains errors")

// Generate runs the whole pipeline over a sequence of declaration records.
// The returned context carries the accumulated diagnostics (and, for
// describe output, the constructed automata); the tables are nil whenever
// ErrFailed is returned.
func Generate(decls []pipeline.Decl, options automata.Options) (*automata.Tables, *automata.Context, error) {
	c := automata.NewContext(options)
	//
	phase := phaseTimer(c)
	//
	c.Declare(decls)
	c.Check()
	phase("semantic checking")
	//
	if c.Failed() {
		return nil, c, ErrFailed
	}
	//
	c.Transform()
	phase("regexp transformation")
	//
	c.Finalize()
	c.Distribute()
	phase("unit distribution")
	//
	if c.Failed() {
		return nil, c, ErrFailed
	}
	//
	c.BuildAltStates()
	c.BuildNFA()
	phase("NFA construction")
	//
	c.Determinize()
	phase("determinization")
	//
	c.Minimize()
	c.ClassifyInsns()
	phase("minimization")
	//
	tables := c.BuildTables()
	phase("table compression")
	//
	for _, a := range c.Automata() {
		log.Debugf("automaton %s: %d NFA states, %d DFA states, %d minimal states, %d classes",
			a.Name, a.NFAStates, a.DFAStates, a.MinStates, a.ClassCount)
	}
	//
	return tables, c, nil
}

// phaseTimer returns a closure reporting per-phase statistics, at info level
// when timings were requested and debug level otherwise.
func phaseTimer(c *automata.Context) func(string) {
	stats := util.NewPerfStats()
	//
	return func(name string) {
		if c.Options().Time {
			stats.LogInfo(name)
		} else {
			stats.Log(name)
		}
		//
		stats = util.NewPerfStats()
	}
}
