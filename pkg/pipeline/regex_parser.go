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
	"unicode"

	"github.com/consensys/go-pipegen/pkg/util/source"
)

// ParseRegex parses a reservation regexp string according to the grammar:
//
//	expr  := seq
//	seq   := oneof ("," oneof)*
//	oneof := all ("|" all)*
//	all   := rep ("+" rep)*
//	rep   := el ("*" NUMBER)*
//	el    := NAME | "nothing" | "(" expr ")"
//
// Whitespace between tokens is ignored.  An empty (or blank) string is
// rejected.
func ParseRegex(input string) (Regex, *source.SyntaxError) {
	srcfile := source.NewSourceFile("<reservation>", []byte(input))
	p := &regexParser{srcfile, srcfile.Contents(), 0}
	// Reject the degenerate case up front.
	p.skipWhiteSpace()
	//
	if p.index >= len(p.text) {
		return nil, p.error(0, "empty reservation string")
	}
	//
	r, err := p.parseSeq()
	//
	if err != nil {
		return nil, err
	}
	// Sanity check everything was parsed
	p.skipWhiteSpace()
	//
	if p.index != len(p.text) {
		return nil, p.error(p.index, "unexpected remainder")
	}
	//
	return r, nil
}

type regexParser struct {
	srcfile *source.File
	text    []rune
	index   int
}

// seq := oneof ("," oneof)*
func (p *regexParser) parseSeq() (Regex, *source.SyntaxError) {
	var elements []Regex
	//
	for {
		element, err := p.parseOneof()
		//
		if err != nil {
			return nil, err
		}
		//
		elements = append(elements, element)
		//
		if !p.match(',') {
			break
		}
	}
	//
	if len(elements) == 1 {
		return elements[0], nil
	}
	//
	return &Sequence{elements}, nil
}

// oneof := all ("|" all)*
func (p *regexParser) parseOneof() (Regex, *source.SyntaxError) {
	var elements []Regex
	//
	for {
		element, err := p.parseAll()
		//
		if err != nil {
			return nil, err
		}
		//
		elements = append(elements, element)
		//
		if !p.match('|') {
			break
		}
	}
	//
	if len(elements) == 1 {
		return elements[0], nil
	}
	//
	return &OneOf{elements}, nil
}

// all := rep ("+" rep)*
func (p *regexParser) parseAll() (Regex, *source.SyntaxError) {
	var elements []Regex
	//
	for {
		element, err := p.parseRep()
		//
		if err != nil {
			return nil, err
		}
		//
		elements = append(elements, element)
		//
		if !p.match('+') {
			break
		}
	}
	//
	if len(elements) == 1 {
		return elements[0], nil
	}
	//
	return &AllOf{elements}, nil
}

// rep := el ("*" NUMBER)*
func (p *regexParser) parseRep() (Regex, *source.SyntaxError) {
	element, err := p.parseEl()
	//
	if err != nil {
		return nil, err
	}
	//
	for p.match('*') {
		p.skipWhiteSpace()
		//
		start := p.index
		//
		for p.index < len(p.text) && unicode.IsDigit(p.text[p.index]) {
			p.index++
		}
		//
		if start == p.index {
			return nil, p.error(start, "expected repetition count")
		}
		// Cannot fail since the token is all digits.
		count, _ := strconv.Atoi(string(p.text[start:p.index]))
		element = &Repeat{element, count}
	}
	//
	return element, nil
}

// el := NAME | "nothing" | "(" expr ")"
func (p *regexParser) parseEl() (Regex, *source.SyntaxError) {
	p.skipWhiteSpace()
	//
	if p.index >= len(p.text) {
		return nil, p.error(p.index, "unexpected end of reservation")
	}
	//
	if p.match('(') {
		element, err := p.parseSeq()
		//
		if err != nil {
			return nil, err
		}
		//
		if !p.match(')') {
			return nil, p.error(p.index, "expected ')'")
		}
		//
		return element, nil
	}
	//
	start := p.index
	//
	for p.index < len(p.text) && isNameRune(p.text[p.index]) {
		p.index++
	}
	//
	if start == p.index {
		return nil, p.error(start, "expected unit or reservation name")
	}
	//
	name := string(p.text[start:p.index])
	//
	if name == "nothing" {
		return &Nothing{}, nil
	}
	//
	return &Unit{name}, nil
}

// match consumes the given rune if it is next in the input, skipping any
// leading whitespace.
func (p *regexParser) match(c rune) bool {
	p.skipWhiteSpace()
	//
	if p.index < len(p.text) && p.text[p.index] == c {
		p.index++
		return true
	}
	//
	return false
}

func (p *regexParser) skipWhiteSpace() {
	for p.index < len(p.text) && unicode.IsSpace(p.text[p.index]) {
		p.index++
	}
}

func (p *regexParser) error(start int, msg string) *source.SyntaxError {
	end := min(start+1, len(p.text))
	//
	return p.srcfile.SyntaxError(source.NewSpan(start, end), msg)
}

func isNameRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' || c == '.'
}
