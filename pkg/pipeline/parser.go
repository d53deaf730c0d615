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
	"strconv"

	"github.com/consensys/go-pipegen/pkg/util/source"
	"github.com/consensys/go-pipegen/pkg/util/source/sexp"
)

// ParseFile parses a pipeline description file into a sequence of typed
// declaration records.  A description file is a sequence of s-expressions,
// one per declaration:
//
//	(automaton NAME...)
//	(unit (NAME...) [AUTOMATON])
//	(query-unit (NAME...) [AUTOMATON])
//	(exclusion (NAME...) (NAME...))
//	(presence (NAME...) (NAME...)...)       likewise final-presence,
//	                                        absence, final-absence
//	(reserv NAME "REGEXP")
//	(insn NAME LATENCY ["COND"] "REGEXP")
//	(bypass LATENCY OUT IN [GUARD])
//	(option NAME [VALUE])
//
// Line comments are introduced by a semi-colon.  Parsing stops at the first
// malformed declaration.
func ParseFile(srcfile *source.File) ([]Decl, *source.SyntaxError) {
	parser := sexp.NewParser(srcfile)
	//
	var decls []Decl
	//
	for {
		term, err := parser.Parse()
		//
		if err != nil {
			return nil, err
		} else if term == nil {
			return decls, nil
		}
		//
		parsed, err := parseDecl(parser, term)
		//
		if err != nil {
			return nil, err
		}
		//
		decls = append(decls, parsed...)
	}
}

func parseDecl(p *sexp.Parser, term sexp.SExp) ([]Decl, *source.SyntaxError) {
	list := term.AsList()
	//
	if list == nil || list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return nil, p.SyntaxError(term, "expected declaration")
	}
	//
	switch list.Get(0).AsSymbol().Value {
	case "automaton":
		return parseAutomaton(p, list)
	case "unit":
		return parseUnit(p, list, false)
	case "query-unit":
		return parseUnit(p, list, true)
	case "exclusion":
		return parseExclusion(p, list)
	case "presence":
		return parsePattern(p, list, Presence)
	case "final-presence":
		return parsePattern(p, list, FinalPresence)
	case "absence":
		return parsePattern(p, list, Absence)
	case "final-absence":
		return parsePattern(p, list, FinalAbsence)
	case "reserv":
		return parseReserv(p, list)
	case "insn":
		return parseInsn(p, list)
	case "bypass":
		return parseBypass(p, list)
	case "option":
		return parseOption(p, list)
	default:
		return nil, p.SyntaxError(list.Get(0), "unknown declaration")
	}
}

func parseAutomaton(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() < 2 {
		return nil, p.SyntaxError(list, "automaton requires at least one name")
	}
	//
	var decls []Decl
	//
	for _, e := range list.Elements[1:] {
		name, err := symbolOf(p, e)
		//
		if err != nil {
			return nil, err
		}
		//
		decls = append(decls, &AutomatonDecl{name})
	}
	//
	return decls, nil
}

func parseUnit(p *sexp.Parser, list *sexp.List, query bool) ([]Decl, *source.SyntaxError) {
	if list.Len() != 2 && list.Len() != 3 {
		return nil, p.SyntaxError(list, "malformed unit declaration")
	}
	//
	names, err := symbolsOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	var automaton string
	//
	if list.Len() == 3 {
		if automaton, err = symbolOf(p, list.Get(2)); err != nil {
			return nil, err
		}
	}
	//
	var decls []Decl
	//
	for _, name := range names {
		decls = append(decls, &UnitDecl{name, automaton, query})
	}
	//
	return decls, nil
}

func parseExclusion(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() != 3 {
		return nil, p.SyntaxError(list, "exclusion requires two unit groups")
	}
	//
	namesA, err := symbolsOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	namesB, err := symbolsOf(p, list.Get(2))
	//
	if err != nil {
		return nil, err
	}
	//
	return []Decl{&ExclusionDecl{namesA, namesB}}, nil
}

func parsePattern(p *sexp.Parser, list *sexp.List, kind PatternKind) ([]Decl, *source.SyntaxError) {
	if list.Len() < 3 {
		return nil, p.SyntaxError(list, "requires a unit group and at least one pattern")
	}
	//
	names, err := symbolsOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	var patterns [][]string
	//
	for _, e := range list.Elements[2:] {
		pattern, err := symbolsOf(p, e)
		//
		if err != nil {
			return nil, err
		}
		//
		patterns = append(patterns, pattern)
	}
	//
	return []Decl{&PatternDecl{kind, names, patterns}}, nil
}

func parseReserv(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() != 3 {
		return nil, p.SyntaxError(list, "reserv requires a name and a regexp")
	}
	//
	name, err := symbolOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	regexp, err := stringOf(p, list.Get(2))
	//
	if err != nil {
		return nil, err
	}
	//
	return []Decl{&ReservDecl{name, regexp}}, nil
}

func parseInsn(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() != 4 && list.Len() != 5 {
		return nil, p.SyntaxError(list, "malformed insn declaration")
	}
	//
	name, err := symbolOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	latency, err := numberOf(p, list.Get(2))
	//
	if err != nil {
		return nil, err
	}
	//
	var cond string
	//
	index := 3
	//
	if list.Len() == 5 {
		if cond, err = stringOf(p, list.Get(index)); err != nil {
			return nil, err
		}
		//
		index++
	}
	//
	regexp, err := stringOf(p, list.Get(index))
	//
	if err != nil {
		return nil, err
	}
	//
	return []Decl{&InsnDecl{name, latency, cond, regexp}}, nil
}

func parseBypass(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() != 4 && list.Len() != 5 {
		return nil, p.SyntaxError(list, "malformed bypass declaration")
	}
	//
	latency, err := numberOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	out, err := symbolOf(p, list.Get(2))
	//
	if err != nil {
		return nil, err
	}
	//
	in, err := symbolOf(p, list.Get(3))
	//
	if err != nil {
		return nil, err
	}
	//
	var guard string
	//
	if list.Len() == 5 {
		if guard, err = symbolOf(p, list.Get(4)); err != nil {
			return nil, err
		}
	}
	//
	return []Decl{&BypassDecl{latency, out, in, guard}}, nil
}

func parseOption(p *sexp.Parser, list *sexp.List) ([]Decl, *source.SyntaxError) {
	if list.Len() != 2 && list.Len() != 3 {
		return nil, p.SyntaxError(list, "malformed option declaration")
	}
	//
	name, err := symbolOf(p, list.Get(1))
	//
	if err != nil {
		return nil, err
	}
	//
	var value int
	//
	if list.Len() == 3 {
		if value, err = numberOf(p, list.Get(2)); err != nil {
			return nil, err
		}
	}
	//
	return []Decl{&OptionDecl{name, value}}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func symbolOf(p *sexp.Parser, term sexp.SExp) (string, *source.SyntaxError) {
	if s := term.AsSymbol(); s != nil && !s.Quoted {
		return s.Value, nil
	}
	//
	return "", p.SyntaxError(term, "expected name")
}

func symbolsOf(p *sexp.Parser, term sexp.SExp) ([]string, *source.SyntaxError) {
	list := term.AsList()
	//
	if list == nil || list.Len() == 0 {
		return nil, p.SyntaxError(term, "expected non-empty name group")
	}
	//
	names := make([]string, list.Len())
	//
	for i, e := range list.Elements {
		name, err := symbolOf(p, e)
		//
		if err != nil {
			return nil, err
		}
		//
		names[i] = name
	}
	//
	return names, nil
}

func stringOf(p *sexp.Parser, term sexp.SExp) (string, *source.SyntaxError) {
	if s := term.AsSymbol(); s != nil && s.Quoted {
		return s.Value, nil
	}
	//
	return "", p.SyntaxError(term, "expected quoted string")
}

func numberOf(p *sexp.Parser, term sexp.SExp) (int, *source.SyntaxError) {
	if s := term.AsSymbol(); s != nil && !s.Quoted {
		if n, err := strconv.Atoi(s.Value); err == nil {
			return n, nil
		}
	}
	//
	return 0, p.SyntaxError(term, "expected number")
}
