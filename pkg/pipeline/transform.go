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
	"fmt"
)

// This file canonicalizes reservation regexps into an
// alternation-of-alternatives form: a top-level OneOf whose alternatives are
// each a Sequence of per-cycle elements, where every element is a single
// Unit, Nothing, or an AllOf of Units.  Three transformations are applied
// bottom-up until none fires:
//
//	T1 (unroll):     Repeat(R, n) becomes a Sequence of n copies of R.
//	T2 (flatten):    nested Sequence/AllOf/OneOf of the same shape merge.
//	T3 (distribute): OneOf is lifted out of Sequence and AllOf; an AllOf
//	                 of Sequences becomes a Sequence of position-aligned
//	                 AllOfs, padded with Nothing.
//
// Reservation references must have been inlined beforehand (see Inline).

// Inline replaces every reservation reference within a given regexp by a
// deep copy of the referenced reservation's regexp.  The resolve function
// returns the regexp for a reservation name, or false for unit names.
// Resolution must be acyclic; the semantic checker rejects recursive
// reservations before inlining is attempted.
func Inline(r Regex, resolve func(string) (Regex, bool)) Regex {
	switch t := r.(type) {
	case *Unit:
		if body, ok := resolve(t.Name); ok {
			return Inline(Copy(body), resolve)
		}
		//
		return t
	case *ReservRef:
		body, ok := resolve(t.Name)
		//
		if !ok {
			panic(fmt.Sprintf("unresolved reservation %s", t.Name))
		}
		//
		return Inline(Copy(body), resolve)
	case *Nothing:
		return t
	case *Sequence:
		return &Sequence{inlineAll(t.Elements, resolve)}
	case *Repeat:
		return &Repeat{Inline(t.Body, resolve), t.Count}
	case *AllOf:
		return &AllOf{inlineAll(t.Elements, resolve)}
	case *OneOf:
		return &OneOf{inlineAll(t.Elements, resolve)}
	default:
		panic(fmt.Sprintf("unknown regex shape %T", r))
	}
}

func inlineAll(elements []Regex, resolve func(string) (Regex, bool)) []Regex {
	inlined := make([]Regex, len(elements))
	//
	for i, e := range elements {
		inlined[i] = Inline(e, resolve)
	}
	//
	return inlined
}

// Canonicalize transforms a regexp into its canonical
// alternation-of-alternatives form.  The result is either Nothing, or a
// OneOf whose alternatives are each a Sequence of per-cycle elements.
// Canonicalize is idempotent.  Reservation references and repeats with a
// count below two must have been dealt with beforehand, and cause a panic
// here.
func Canonicalize(r Regex) Regex {
	// Apply transformations to a fixed point.
	for {
		var changed bool
		//
		r, changed = rewrite(r)
		//
		if !changed {
			break
		}
	}
	// Impose the top-level shape.
	r = normalizeTop(r)
	// Sanity check the result.
	if !IsCanonical(r) {
		panic(fmt.Sprintf("regexp not canonical after transformation: %s", r))
	}
	//
	return r
}

// rewrite applies one bottom-up pass of T1-T3, reporting whether anything
// changed.
func rewrite(r Regex) (Regex, bool) {
	switch t := r.(type) {
	case *Unit, *Nothing:
		return r, false
	case *ReservRef:
		panic(fmt.Sprintf("reservation %s not inlined before transformation", t.Name))
	case *Repeat:
		return unrollRepeat(t)
	case *Sequence:
		return rewriteSequence(t)
	case *AllOf:
		return rewriteAllOf(t)
	case *OneOf:
		return rewriteOneOf(t)
	default:
		panic(fmt.Sprintf("unknown regex shape %T", r))
	}
}

// T1: Repeat(R, n) becomes Sequence(R, ..., R) with n copies.
func unrollRepeat(t *Repeat) (Regex, bool) {
	if t.Count <= 1 {
		panic(fmt.Sprintf("repetition count %d out of range", t.Count))
	}
	//
	copies := make([]Regex, t.Count)
	//
	for i := range copies {
		copies[i] = Copy(t.Body)
	}
	//
	return &Sequence{copies}, true
}

func rewriteSequence(t *Sequence) (Regex, bool) {
	elements, changed := rewriteAll(t.Elements)
	// T2: flatten nested sequences.
	elements, flattened := flatten(elements, func(r Regex) ([]Regex, bool) {
		if s, ok := r.(*Sequence); ok {
			return s.Elements, true
		}
		//
		return nil, false
	})
	//
	changed = changed || flattened
	//
	if len(elements) == 1 {
		return elements[0], true
	}
	// T3: lift an alternation out of the sequence.
	for i, e := range elements {
		if alt, ok := e.(*OneOf); ok {
			return distribute(elements, i, alt, func(es []Regex) Regex {
				return &Sequence{es}
			}), true
		}
	}
	//
	return &Sequence{elements}, changed
}

func rewriteAllOf(t *AllOf) (Regex, bool) {
	elements, changed := rewriteAll(t.Elements)
	// T2: flatten nested conjunctions.
	elements, flattened := flatten(elements, func(r Regex) ([]Regex, bool) {
		if s, ok := r.(*AllOf); ok {
			return s.Elements, true
		}
		//
		return nil, false
	})
	//
	changed = changed || flattened
	//
	if len(elements) == 1 {
		return elements[0], true
	}
	// T3: lift an alternation out of the conjunction.
	for i, e := range elements {
		if alt, ok := e.(*OneOf); ok {
			return distribute(elements, i, alt, func(es []Regex) Regex {
				return &AllOf{es}
			}), true
		}
	}
	// T3: parallel composition of sequences.
	for _, e := range elements {
		if _, ok := e.(*Sequence); ok {
			return composeParallel(elements), true
		}
	}
	//
	return &AllOf{elements}, changed
}

func rewriteOneOf(t *OneOf) (Regex, bool) {
	elements, changed := rewriteAll(t.Elements)
	// T2: flatten nested alternations.
	elements, flattened := flatten(elements, func(r Regex) ([]Regex, bool) {
		if s, ok := r.(*OneOf); ok {
			return s.Elements, true
		}
		//
		return nil, false
	})
	//
	changed = changed || flattened
	//
	if len(elements) == 1 {
		return elements[0], true
	}
	//
	return &OneOf{elements}, changed
}

func rewriteAll(elements []Regex) ([]Regex, bool) {
	var (
		changed  = false
		rewrites = make([]Regex, len(elements))
	)
	//
	for i, e := range elements {
		var c bool
		//
		rewrites[i], c = rewrite(e)
		changed = changed || c
	}
	//
	return rewrites, changed
}

// flatten merges elements which the extractor recognises as nested copies of
// the enclosing shape.
func flatten(elements []Regex, extract func(Regex) ([]Regex, bool)) ([]Regex, bool) {
	var (
		changed   = false
		flattened []Regex
	)
	//
	for _, e := range elements {
		if nested, ok := extract(e); ok {
			flattened = append(flattened, nested...)
			changed = true
		} else {
			flattened = append(flattened, e)
		}
	}
	//
	return flattened, changed
}

// distribute lifts the alternation found at position i over the enclosing
// shape: one alternative is produced per choice, rebuilt by the given
// constructor.
func distribute(elements []Regex, i int, alt *OneOf, rebuild func([]Regex) Regex) Regex {
	alternatives := make([]Regex, len(alt.Elements))
	//
	for j, choice := range alt.Elements {
		rebuilt := make([]Regex, len(elements))
		//
		for k, e := range elements {
			if k == i {
				rebuilt[k] = Copy(choice)
			} else {
				rebuilt[k] = Copy(e)
			}
		}
		//
		alternatives[j] = rebuild(rebuilt)
	}
	//
	return &OneOf{alternatives}
}

// composeParallel turns a conjunction containing sequences into a sequence
// of position-aligned conjunctions.  Elements which are not sequences occupy
// position zero; sequences shorter than the longest are padded with Nothing.
func composeParallel(elements []Regex) Regex {
	length := 1
	//
	for _, e := range elements {
		if s, ok := e.(*Sequence); ok {
			length = max(length, len(s.Elements))
		}
	}
	//
	composed := make([]Regex, length)
	//
	for cycle := 0; cycle < length; cycle++ {
		var parts []Regex
		//
		for _, e := range elements {
			if s, ok := e.(*Sequence); ok {
				if cycle < len(s.Elements) {
					parts = append(parts, s.Elements[cycle])
				}
			} else if cycle == 0 {
				parts = append(parts, e)
			}
		}
		//
		switch len(parts) {
		case 0:
			composed[cycle] = &Nothing{}
		case 1:
			composed[cycle] = parts[0]
		default:
			composed[cycle] = &AllOf{parts}
		}
	}
	//
	return &Sequence{composed}
}

// normalizeTop imposes the outer OneOf-of-Sequence shape on an otherwise
// fully transformed regexp.
func normalizeTop(r Regex) Regex {
	if _, ok := r.(*Nothing); ok {
		return r
	}
	//
	alt, ok := r.(*OneOf)
	//
	if !ok {
		alt = &OneOf{[]Regex{r}}
	}
	//
	for i, a := range alt.Elements {
		if _, ok := a.(*Sequence); !ok {
			alt.Elements[i] = &Sequence{[]Regex{a}}
		}
	}
	//
	return alt
}

// IsCanonical reports whether a regexp is in canonical form: either Nothing,
// or a OneOf whose alternatives are each a Sequence of elements, where each
// element is a Unit, Nothing, or an AllOf of Units and Nothings.
func IsCanonical(r Regex) bool {
	if _, ok := r.(*Nothing); ok {
		return true
	}
	//
	alt, ok := r.(*OneOf)
	//
	if !ok {
		return false
	}
	//
	for _, a := range alt.Elements {
		seq, ok := a.(*Sequence)
		//
		if !ok {
			return false
		}
		//
		for _, e := range seq.Elements {
			if !isCanonicalElement(e) {
				return false
			}
		}
	}
	//
	return true
}

func isCanonicalElement(r Regex) bool {
	switch t := r.(type) {
	case *Unit, *Nothing:
		return true
	case *AllOf:
		for _, e := range t.Elements {
			switch e.(type) {
			case *Unit, *Nothing:
			default:
				return false
			}
		}
		//
		return true
	default:
		return false
	}
}

// Alternatives destructures a canonical regexp into its alternatives, each a
// list of per-cycle elements.  A Nothing regexp has a single, empty
// alternative.
func Alternatives(r Regex) [][]Regex {
	if _, ok := r.(*Nothing); ok {
		return [][]Regex{nil}
	}
	//
	alt, ok := r.(*OneOf)
	//
	if !ok {
		panic(fmt.Sprintf("regexp not canonical: %s", r))
	}
	//
	alternatives := make([][]Regex, len(alt.Elements))
	//
	for i, a := range alt.Elements {
		alternatives[i] = a.(*Sequence).Elements
	}
	//
	return alternatives
}

// CycleUnits returns the units reserved by one per-cycle element of a
// canonical alternative.
func CycleUnits(r Regex) []string {
	switch t := r.(type) {
	case *Unit:
		return []string{t.Name}
	case *Nothing:
		return nil
	case *AllOf:
		var units []string
		//
		for _, e := range t.Elements {
			if u, ok := e.(*Unit); ok {
				units = append(units, u.Name)
			}
		}
		//
		return units
	default:
		panic(fmt.Sprintf("regexp element not canonical: %s", r))
	}
}
