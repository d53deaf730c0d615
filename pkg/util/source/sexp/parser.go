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
package sexp

import (
	"unicode"

	"github.com/consensys/go-pipegen/pkg/util/source"
)

// ParseAll converts a given string into zero or more S-expressions, or returns
// an error if the string is malformed.  Parsing continues after the first
// S-expression is encountered, until the end of the file is reached.
func ParseAll(s *source.File) ([]SExp, *source.SyntaxError) {
	p := NewParser(s)
	//
	terms := make([]SExp, 0)
	// Parse the input
	for {
		term, err := p.Parse()
		// Sanity check everything was parsed
		if err != nil {
			return terms, err
		} else if term == nil {
			// EOF reached
			return terms, nil
		}

		terms = append(terms, term)
	}
}

// Parser represents a parser in the process of parsing a given string into one
// or more S-expressions.
type Parser struct {
	// Source file being parsed
	srcfile *source.File
	// Cache (for simplicity)
	text []rune
	// Determine current position within text
	index int
	// Mapping from constructed S-Expressions to their spans in the original
	// text.
	spans map[SExp]source.Span
}

// NewParser constructs a new instance of Parser
func NewParser(srcfile *source.File) *Parser {
	return &Parser{
		srcfile: srcfile,
		text:    srcfile.Contents(),
		index:   0,
		spans:   make(map[SExp]source.Span),
	}
}

// SpanOf returns the span in the original text from which a given term was
// parsed.  This is helpful, for example, when reporting errors against terms.
func (p *Parser) SpanOf(term SExp) source.Span {
	return p.spans[term]
}

// SyntaxError constructs a syntax error against a given term.
func (p *Parser) SyntaxError(term SExp, msg string) *source.SyntaxError {
	return p.srcfile.SyntaxError(p.spans[term], msg)
}

// Parse a given string into an S-Expression, or produce an error.
func (p *Parser) Parse() (SExp, *source.SyntaxError) {
	var term SExp
	// Skip over any whitespace and comments.  This is important to get the
	// correct starting point for this term.
	p.skipWhiteSpace()
	// Record start of this term
	start := p.index
	//
	if p.index >= len(p.text) {
		// EOF reached
		return nil, nil
	}
	//
	switch c := p.text[p.index]; {
	case c == ')':
		return nil, p.error(start, "unexpected end-of-list")
	case c == '(':
		p.index++
		//
		elements, err := p.parseSequence()
		// Check for error
		if err != nil {
			return nil, err
		}
		// Done
		term = &List{elements}
	case c == '"':
		value, err := p.parseString()
		//
		if err != nil {
			return nil, err
		}
		//
		term = &Symbol{value, true}
	default:
		term = &Symbol{p.parseSymbol(), false}
	}
	// Register span of this term
	p.spans[term] = source.NewSpan(start, p.index)
	// Done
	return term, nil
}

// parseSequence parses the elements of a list up to (and including) the
// closing bracket.
func (p *Parser) parseSequence() ([]SExp, *source.SyntaxError) {
	var elements []SExp
	//
	for {
		p.skipWhiteSpace()
		//
		if p.index >= len(p.text) {
			return nil, p.error(p.index, "unexpected end-of-file")
		} else if p.text[p.index] == ')' {
			p.index++
			return elements, nil
		}
		//
		element, err := p.Parse()
		//
		if err != nil {
			return nil, err
		}
		//
		elements = append(elements, element)
	}
}

// parseString parses a double-quoted string, up to (and including) the
// terminating quote.  There is no escaping mechanism.
func (p *Parser) parseString() (string, *source.SyntaxError) {
	start := p.index
	// Skip opening quote
	p.index++
	//
	for p.index < len(p.text) {
		if p.text[p.index] == '"' {
			value := string(p.text[start+1 : p.index])
			p.index++
			//
			return value, nil
		}
		//
		p.index++
	}
	//
	return "", p.error(start, "unterminated string")
}

// parseSymbol parses a bare symbol, terminating on whitespace, brackets or a
// quote.
func (p *Parser) parseSymbol() string {
	start := p.index
	//
	for p.index < len(p.text) && !isTerminator(p.text[p.index]) {
		p.index++
	}
	//
	return string(p.text[start:p.index])
}

// skipWhiteSpace skips over whitespace and line comments (introduced by a
// semi-colon).
func (p *Parser) skipWhiteSpace() {
	for p.index < len(p.text) {
		c := p.text[p.index]
		//
		if c == ';' {
			// Line comment
			for p.index < len(p.text) && p.text[p.index] != '\n' {
				p.index++
			}
		} else if unicode.IsSpace(c) {
			p.index++
		} else {
			return
		}
	}
}

func (p *Parser) error(start int, msg string) *source.SyntaxError {
	end := min(start+1, len(p.text))
	span := source.NewSpan(start, end)
	//
	return p.srcfile.SyntaxError(span, msg)
}

func isTerminator(c rune) bool {
	return unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' || c == ';'
}
