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

	"github.com/consensys/go-pipegen/pkg/pipeline"
)

// This file implements the semantic checker.  Checking runs in passes over
// the interned declarations: reference resolution, reservation cycle
// detection, constraint normalization, usage audit, bypass resolution and
// finally insertion of the synthetic advance-cycle instruction.  Errors
// accumulate so a single run reports as many problems as possible;
// generation is suppressed afterwards if any was raised.

// Declare interns a sequence of declaration records, in order.  Automata,
// instructions and units/reservations each live in their own name space;
// duplicates are errors, or warnings under the permissive option.  Option
// declarations are folded into the run's options.
func (c *Context) Declare(decls []pipeline.Decl) {
	for _, decl := range decls {
		switch d := decl.(type) {
		case *pipeline.AutomatonDecl:
			c.declareAutomaton(d)
		case *pipeline.UnitDecl:
			c.declareUnit(d)
		case *pipeline.ReservDecl:
			c.declareReserv(d)
		case *pipeline.InsnDecl:
			c.declareInsn(d)
		case *pipeline.ExclusionDecl:
			c.exclusions = append(c.exclusions, d)
		case *pipeline.PatternDecl:
			c.patterns = append(c.patterns, d)
		case *pipeline.BypassDecl:
			c.bypasses = append(c.bypasses, d)
		case *pipeline.OptionDecl:
			c.declareOption(d)
		default:
			c.errorf("unknown declaration record %T", decl)
		}
	}
}

func (c *Context) declareAutomaton(d *pipeline.AutomatonDecl) {
	if _, ok := c.autoMap[d.Name]; ok {
		c.permissivef("repeated declaration of automaton `%s`", d.Name)
		return
	}
	//
	auto := &Automaton{Name: d.Name, Num: len(c.automata), Declared: true}
	c.automata = append(c.automata, auto)
	c.autoMap[d.Name] = auto
}

func (c *Context) declareUnit(d *pipeline.UnitDecl) {
	if _, ok := c.declMap[d.Name]; ok {
		c.permissivef("repeated declaration of unit or reservation `%s`", d.Name)
		return
	}
	//
	unit := &Unit{
		Name:     d.Name,
		Query:    d.Query,
		Num:      len(c.units),
		DeclAuto: d.Automaton,
		MinOcc:   -1,
		Excl:     make(map[int]bool),
	}
	c.units = append(c.units, unit)
	c.declMap[d.Name] = unit
}

func (c *Context) declareReserv(d *pipeline.ReservDecl) {
	if _, ok := c.declMap[d.Name]; ok {
		c.permissivef("repeated declaration of unit or reservation `%s`", d.Name)
		return
	}
	//
	reserv := &Reserv{Name: d.Name}
	//
	if regexp, err := pipeline.ParseRegex(d.Regexp); err != nil {
		c.errorf("reservation `%s`: %s", d.Name, err.Message())
	} else {
		reserv.Regexp = regexp
	}
	//
	c.reservs = append(c.reservs, reserv)
	c.declMap[d.Name] = reserv
}

func (c *Context) declareInsn(d *pipeline.InsnDecl) {
	if _, ok := c.insnMap[d.Name]; ok {
		c.permissivef("repeated declaration of insn reservation `%s`", d.Name)
		return
	}
	//
	if d.Latency < 0 {
		c.errorf("negative latency of insn reservation `%s`", d.Name)
	}
	//
	insn := &Insn{
		Name:    d.Name,
		Num:     len(c.insns),
		Latency: max(d.Latency, 0),
		Cond:    d.Cond,
	}
	//
	if regexp, err := pipeline.ParseRegex(d.Regexp); err != nil {
		c.errorf("insn reservation `%s`: %s", d.Name, err.Message())
	} else {
		insn.Regexp = regexp
	}
	//
	c.insns = append(c.insns, insn)
	c.insnMap[d.Name] = insn
}

func (c *Context) declareOption(d *pipeline.OptionDecl) {
	switch d.Name {
	case "ndfa":
		c.options.NDFA = true
	case "no-minimization":
		c.options.NoMinimize = true
	case "time":
		c.options.Time = true
	case "v":
		c.options.Describe = true
	case "w":
		c.options.Permissive = true
	case "split":
		c.options.Split = d.Value
	default:
		c.errorf("unknown option `%s`", d.Name)
	}
}

// Check runs the resolution passes: reference resolution, reservation cycle
// detection, constraint normalization and the usage audit.  It is safe to
// call on a context which has already accumulated errors.
func (c *Context) Check() {
	c.resolveReferences()
	c.detectReservCycles()
	c.normalizeConstraints()
	c.auditUsage()
}

// ============================================================================
// Reference resolution
// ============================================================================

func (c *Context) resolveReferences() {
	// Units must name a declared automaton whenever any is declared.
	for _, u := range c.units {
		if u.DeclAuto == "" {
			if len(c.automata) > 0 {
				c.errorf("define_unit `%s` without automaton when one defined", u.Name)
			}
		} else if auto, ok := c.autoMap[u.DeclAuto]; !ok {
			c.errorf("automaton `%s` is not declared", u.DeclAuto)
		} else {
			auto.used = true
		}
	}
	// Every name within a regexp must resolve to a unit or a reservation.
	for _, r := range c.reservs {
		c.resolveRegexp(r.Regexp, "reservation", r.Name)
	}
	//
	for _, i := range c.insns {
		c.resolveRegexp(i.Regexp, "insn reservation", i.Name)
	}
}

func (c *Context) resolveRegexp(regexp pipeline.Regex, what string, name string) {
	if regexp == nil {
		return
	}
	//
	for _, ref := range pipeline.Names(regexp) {
		switch d := c.declMap[ref].(type) {
		case *Unit:
			d.used = true
		case *Reserv:
			d.used = true
		default:
			c.errorf("undeclared unit or reservation `%s` in %s `%s`", ref, what, name)
		}
	}
	//
	c.checkRepeats(regexp, what, name)
}

// checkRepeats rejects out-of-range repetition counts before they reach the
// transformer.
func (c *Context) checkRepeats(regexp pipeline.Regex, what string, name string) {
	switch t := regexp.(type) {
	case *pipeline.Repeat:
		if t.Count <= 1 {
			c.errorf("repetition count %d in %s `%s` must be greater than one", t.Count, what, name)
		}
		//
		c.checkRepeats(t.Body, what, name)
	case *pipeline.Sequence:
		for _, e := range t.Elements {
			c.checkRepeats(e, what, name)
		}
	case *pipeline.AllOf:
		for _, e := range t.Elements {
			c.checkRepeats(e, what, name)
		}
	case *pipeline.OneOf:
		for _, e := range t.Elements {
			c.checkRepeats(e, what, name)
		}
	}
}

// ============================================================================
// Reservation cycle detection
// ============================================================================

// detectReservCycles runs a DFS, tagged by a fresh pass number, over the
// reference graph of every declared reservation.
func (c *Context) detectReservCycles() {
	pass := c.nextPass()
	//
	for _, r := range c.reservs {
		if r.passNum != pass {
			c.reservDFS(r, pass)
		}
	}
}

func (c *Context) reservDFS(r *Reserv, pass int) {
	r.passNum = pass
	r.onPath = true
	//
	if r.Regexp != nil {
		for _, ref := range pipeline.Names(r.Regexp) {
			target, ok := c.declMap[ref].(*Reserv)
			//
			if !ok {
				continue
			}
			//
			if target.onPath {
				c.errorf("cycle in definition of reservation `%s`", target.Name)
			} else if target.passNum != pass {
				c.reservDFS(target, pass)
			}
		}
	}
	//
	r.onPath = false
}

// ============================================================================
// Constraint normalization
// ============================================================================

func (c *Context) normalizeConstraints() {
	for _, d := range c.exclusions {
		c.normalizeExclusion(d)
	}
	//
	for _, d := range c.patterns {
		c.normalizePattern(d)
	}
	// Record whether the conflict check needs to consult constraints at all.
	for _, u := range c.units {
		if u.constrainedP() {
			c.constrained = true
		}
	}
}

func (c *Context) normalizeExclusion(d *pipeline.ExclusionDecl) {
	var (
		unitsA = c.resolveUnits(d.NamesA, "exclusion set")
		unitsB = c.resolveUnits(d.NamesB, "exclusion set")
	)
	//
	for _, a := range unitsA {
		for _, b := range unitsB {
			if a == b {
				c.errorf("unit `%s` excludes itself", a.Name)
				continue
			}
			//
			if a.DeclAuto != "" && b.DeclAuto != "" && a.DeclAuto != b.DeclAuto {
				c.errorf("units `%s` and `%s` in exclusion set belong to different automata",
					a.Name, b.Name)
				continue
			}
			// Exclusion is symmetric.
			a.Excl[b.Num] = true
			b.Excl[a.Num] = true
		}
	}
}

func (c *Context) normalizePattern(d *pipeline.PatternDecl) {
	var (
		units    = c.resolveUnits(d.Names, "pattern set")
		patterns [][]*Unit
	)
	//
	for _, group := range d.Patterns {
		patterns = append(patterns, c.resolveUnits(group, "pattern set"))
	}
	//
	for _, u := range units {
		switch d.Kind {
		case pipeline.Presence, pipeline.FinalPresence:
			c.attachPresence(u, patterns, d.Kind == pipeline.FinalPresence)
		case pipeline.Absence, pipeline.FinalAbsence:
			c.attachAbsence(u, patterns, d.Kind == pipeline.FinalAbsence)
		}
	}
}

func (c *Context) attachPresence(u *Unit, patterns [][]*Unit, final bool) {
	for _, pattern := range patterns {
		for _, v := range pattern {
			if u.Excl[v.Num] {
				c.permissivef("unit `%s` excludes and requires presence of `%s`", u.Name, v.Name)
			}
			//
			if patternsMention(u.Absence, v) || patternsMention(u.FinalAbsence, v) {
				c.permissivef("unit `%s` requires absence and presence of `%s`", u.Name, v.Name)
			}
		}
	}
	//
	if final {
		u.FinalPresence = append(u.FinalPresence, patterns...)
	} else {
		u.Presence = append(u.Presence, patterns...)
	}
}

func (c *Context) attachAbsence(u *Unit, patterns [][]*Unit, final bool) {
	for _, pattern := range patterns {
		for _, v := range pattern {
			if v == u {
				c.errorf("unit `%s` requires own absence", u.Name)
			}
			//
			if patternsMention(u.Presence, v) || patternsMention(u.FinalPresence, v) {
				c.permissivef("unit `%s` requires absence and presence of `%s`", u.Name, v.Name)
			}
		}
	}
	//
	if final {
		u.FinalAbsence = append(u.FinalAbsence, patterns...)
	} else {
		u.Absence = append(u.Absence, patterns...)
	}
}

func patternsMention(patterns [][]*Unit, v *Unit) bool {
	for _, pattern := range patterns {
		for _, u := range pattern {
			if u == v {
				return true
			}
		}
	}
	//
	return false
}

// resolveUnits maps a group of names onto declared units, reporting anything
// which does not resolve.
func (c *Context) resolveUnits(names []string, what string) []*Unit {
	var units []*Unit
	//
	for _, name := range names {
		if u, ok := c.declMap[name].(*Unit); ok {
			units = append(units, u)
		} else {
			c.errorf("undeclared unit `%s` in %s", name, what)
		}
	}
	//
	return units
}

// ============================================================================
// Usage audit
// ============================================================================

func (c *Context) auditUsage() {
	for _, u := range c.units {
		if !u.used {
			c.warnf("unit `%s` is not used", u.Name)
		}
	}
	//
	for _, r := range c.reservs {
		if !r.used {
			c.warnf("reservation `%s` is not used", r.Name)
		}
	}
	//
	for _, a := range c.automata {
		if !a.used {
			c.warnf("automaton `%s` is not used", a.Name)
		}
	}
}

// ============================================================================
// Transformation and cycle extents
// ============================================================================

// Transform inlines reservation references and canonicalizes every
// instruction regexp, then derives the cycle extents of every unit together
// with the global maximum reservation length.  Must only be called on a
// context which has not failed.
func (c *Context) Transform() {
	resolve := func(name string) (pipeline.Regex, bool) {
		if r, ok := c.declMap[name].(*Reserv); ok {
			return r.Regexp, true
		}
		//
		return nil, false
	}
	//
	for _, i := range c.insns {
		if i.Regexp != nil {
			i.Canon = pipeline.Canonicalize(pipeline.Inline(i.Regexp, resolve))
		}
	}
	//
	c.computeExtents()
}

// computeExtents finds, for every unit, the minimum and maximum cycle on
// which any instruction can reserve it, and the global maximum reservation
// length.
func (c *Context) computeExtents() {
	c.maxCycles = 1
	//
	for _, i := range c.insns {
		if i.Canon == nil {
			continue
		}
		//
		for _, alternative := range pipeline.Alternatives(i.Canon) {
			c.maxCycles = max(c.maxCycles, len(alternative))
			//
			for cycle, element := range alternative {
				for _, name := range pipeline.CycleUnits(element) {
					u := c.declMap[name].(*Unit)
					//
					if u.MinOcc < 0 {
						u.MinOcc = cycle
					} else {
						u.MinOcc = min(u.MinOcc, cycle)
					}
					//
					u.MaxOcc = max(u.MaxOcc, cycle)
				}
			}
		}
	}
	//
	for _, u := range c.units {
		if u.MinOcc < 0 {
			u.MinOcc = 0
		}
	}
}

// ============================================================================
// Bypass resolution and advance-cycle insertion
// ============================================================================

// Finalize resolves bypasses onto their instruction endpoints and appends
// the synthetic advance-cycle instruction.
func (c *Context) Finalize() {
	for _, d := range c.bypasses {
		c.resolveBypass(d)
	}
	// The advance-cycle instruction is always present and always last.
	c.advance = &Insn{Name: AdvanceCycleName, Num: len(c.insns)}
	c.insns = append(c.insns, c.advance)
	// Assign dense codes to queryable units, in sorted name order.
	c.assignQueryCodes()
}

func (c *Context) resolveBypass(d *pipeline.BypassDecl) {
	if d.Latency < 0 {
		c.errorf("negative latency of bypass from `%s` to `%s`", d.Out, d.In)
		return
	}
	//
	out, ok := c.insnMap[d.Out]
	//
	if !ok {
		c.errorf("undeclared insn reservation `%s` in bypass", d.Out)
		return
	}
	//
	in, ok := c.insnMap[d.In]
	//
	if !ok {
		c.errorf("undeclared insn reservation `%s` in bypass", d.In)
		return
	}
	//
	for _, existing := range out.Bypasses {
		if existing.In == in {
			if existing.Latency == d.Latency {
				c.warnf("the same bypass `%s` to `%s` is already defined", d.Out, d.In)
			} else {
				c.errorf("bypass `%s` to `%s` is already defined with different latency", d.Out, d.In)
			}
			//
			return
		}
	}
	//
	out.Bypasses = append(out.Bypasses, &Bypass{out, in, d.Latency, d.Guard})
}

func (c *Context) assignQueryCodes() {
	var query []*Unit
	//
	for _, u := range c.units {
		if u.Query {
			query = append(query, u)
		}
	}
	//
	sort.Slice(query, func(i, j int) bool {
		return query[i].Name < query[j].Name
	})
	//
	for code, u := range query {
		u.QueryCode = code
	}
}

// QueryUnits returns all queryable units in query-code order.
func (c *Context) QueryUnits() []*Unit {
	var query []*Unit
	//
	for _, u := range c.units {
		if u.Query {
			query = append(query, u)
		}
	}
	//
	sort.Slice(query, func(i, j int) bool {
		return query[i].QueryCode < query[j].QueryCode
	})
	//
	return query
}
