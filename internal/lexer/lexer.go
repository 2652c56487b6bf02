// Copyright 2025 ccarm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lexer implements §4.2 of the compiler: tokenizing cleaned source
// text into an indexed sequence terminated by an Eof sentinel.
package lexer

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/gorse-io/ccarm/internal/token"
)

// Lexer scans a fixed input buffer into tokens. It holds no state beyond
// the cursor, matching the teacher's preference for small, stateless
// per-stage values threaded explicitly rather than file-scope globals.
type Lexer struct {
	src []byte
	pos int
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{src: []byte(src)}
}

// Tokenize runs the lexer to completion, returning all tokens plus a
// trailing Eof token whose offset equals len(src) (§4.2 public contract).
func Tokenize(src string) ([]token.Token, error) {
	l := New(src)
	var toks []token.Token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == token.Eof {
			return toks, nil
		}
	}
}

func (l *Lexer) next() (token.Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.Eof, Offset: len(l.src)}, nil
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c >= '0' && c <= '9':
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexIdentOrKeyword(start)
	case c == '\'':
		return l.lexChar(start)
	case c == '"':
		return l.lexString(start)
	default:
		return l.lexOperator(start)
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// lexNumber scans decimal digits, or 0x/0X followed by hex digits (§4.2).
// The lexeme is stored verbatim; value conversion is the parser's job.
func (l *Lexer) lexNumber(start int) (token.Token, error) {
	l.pos++
	if l.src[start] == '0' && l.pos < len(l.src) && (l.src[l.pos] == 'x' || l.src[l.pos] == 'X') {
		l.pos++
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
	} else {
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			l.pos++
		}
	}
	// trailing integer-suffix letters (L, U, LL, UL, ...) are parsed and
	// ignored, matching the parser's lenient-width stance (spec §1 Non-goals).
	for l.pos < len(l.src) && strings.ContainsRune("uUlL", rune(l.src[l.pos])) {
		l.pos++
	}
	return token.Token{Kind: token.Number, Lexeme: string(l.src[start:l.pos]), Offset: start}, nil
}

func (l *Lexer) lexIdentOrKeyword(start int) (token.Token, error) {
	l.pos++
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	lexeme := string(l.src[start:l.pos])
	if token.Keywords[lexeme] {
		return token.Token{Kind: token.Keyword, Lexeme: lexeme, Offset: start}, nil
	}
	return token.Token{Kind: token.Ident, Lexeme: lexeme, Offset: start}, nil
}

// lexChar scans a single-quoted character literal, decodes its escape, and
// emits it as a Number token carrying the decimal code point (§4.2).
func (l *Lexer) lexChar(start int) (token.Token, error) {
	l.pos++ // consume opening '
	code, err := l.readEscapedByteOrRune()
	if err != nil {
		return token.Token{}, err
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '\'' {
		return token.Token{}, &Error{Offset: start, Msg: "unterminated character literal"}
	}
	l.pos++
	return token.Token{Kind: token.Number, Lexeme: strconv.Itoa(code), Offset: start}, nil
}

// lexString scans a double-quoted string literal. Escape sequences are
// retained verbatim in the lexeme (decoding happens in codegen); adjacent
// string literals are not concatenated (§4.2).
func (l *Lexer) lexString(start int) (token.Token, error) {
	l.pos++ // consume opening "
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		if l.src[l.pos] == '\n' {
			return token.Token{}, &Error{Offset: start, Msg: "unterminated string literal"}
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token.Token{}, &Error{Offset: start, Msg: "unterminated string literal"}
	}
	l.pos++ // consume closing "
	return token.Token{Kind: token.String, Lexeme: string(l.src[start:l.pos]), Offset: start}, nil
}

// readEscapedByteOrRune decodes one character-literal body: \n \t \r \a \b
// \f \v \\ \' \" \0, octal \ooo (1-3 digits), hex \xHH…, or a plain byte.
func (l *Lexer) readEscapedByteOrRune() (int, error) {
	if l.pos >= len(l.src) {
		return 0, &Error{Offset: l.pos, Msg: "unterminated character literal"}
	}
	c := l.src[l.pos]
	if c != '\\' {
		l.pos++
		return int(c), nil
	}
	l.pos++
	if l.pos >= len(l.src) {
		return 0, &Error{Offset: l.pos, Msg: "unterminated escape in character literal"}
	}
	e := l.src[l.pos]
	simple := map[byte]int{
		'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b',
		'f': '\f', 'v': '\v', '\\': '\\', '\'': '\'', '"': '"', '0': 0,
	}
	if v, ok := simple[e]; ok && e != '0' {
		l.pos++
		return v, nil
	}
	switch {
	case e == 'x':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == start {
			return 0, &Error{Offset: start, Msg: "empty hex escape"}
		}
		n, _ := strconv.ParseInt(string(l.src[start:l.pos]), 16, 32)
		return int(n), nil
	case e >= '0' && e <= '7':
		start := l.pos
		end := lo.Min([]int{start + 3, len(l.src)})
		j := start
		for j < end && l.src[j] >= '0' && l.src[j] <= '7' {
			j++
		}
		l.pos = j
		n, _ := strconv.ParseInt(string(l.src[start:j]), 8, 32)
		return int(n), nil
	default:
		l.pos++
		return int(e), nil
	}
}

func (l *Lexer) lexOperator(start int) (token.Token, error) {
	rest := string(l.src[start:])
	for _, op := range token.ThreeCharOps {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			return token.Token{Kind: token.Op, Lexeme: op, Offset: start}, nil
		}
	}
	for _, op := range token.TwoCharOps {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			return token.Token{Kind: token.Op, Lexeme: op, Offset: start}, nil
		}
	}
	c := l.src[start]
	if strings.IndexByte(token.OneCharOps, c) < 0 {
		return token.Token{}, &Error{Offset: start, Msg: "unexpected byte " + strconv.QuoteRune(rune(c))}
	}
	l.pos++
	return token.Token{Kind: token.Op, Lexeme: string(c), Offset: start}, nil
}
