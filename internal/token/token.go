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

// Package token defines the lexical token kinds shared by the lexer and
// the parser.
package token

import "fmt"

// Kind classifies a Token.
type Kind int

const (
	Number Kind = iota
	Ident
	String
	Keyword
	Op
	Eof
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Ident:
		return "ident"
	case String:
		return "string"
	case Keyword:
		return "keyword"
	case Op:
		return "op"
	case Eof:
		return "eof"
	default:
		return "unknown"
	}
}

// Token is an immutable lexical unit: a kind, its verbatim source lexeme,
// and the byte offset into the cleaned source it started at. Never mutated
// after the lexer produces it.
type Token struct {
	Kind   Kind
	Lexeme string
	Offset int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Lexeme, t.Offset)
}

// Is reports whether the token is an Op or Keyword with the given lexeme.
func (t Token) Is(lexeme string) bool {
	return (t.Kind == Op || t.Kind == Keyword) && t.Lexeme == lexeme
}

// Keywords is the fixed keyword set recognized by the lexer (Glossary).
var Keywords = map[string]bool{
	"int": true, "return": true, "if": true, "else": true, "while": true,
	"for": true, "break": true, "continue": true, "struct": true, "union": true,
	"enum": true, "do": true, "switch": true, "case": true, "default": true,
	"goto": true, "sizeof": true, "char": true, "void": true, "const": true,
	"volatile": true, "register": true, "static": true, "extern": true,
	"unsigned": true, "signed": true, "long": true, "short": true,
	"typedef": true, "inline": true, "_Bool": true, "bool": true,
	"float": true, "double": true,
}

// TwoCharOps is the two-character operator set, checked before single-char
// operators so that e.g. "->" is not lexed as "-" followed by ">".
var TwoCharOps = []string{
	"->", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"<<", ">>", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
}

// ThreeCharOps must be checked before TwoCharOps (e.g. "<<=" before "<<").
// "..." (variadic ellipsis) is here too since it must win over three
// successive "." one-char operators.
var ThreeCharOps = []string{"<<=", ">>=", "..."}

// OneCharOps is the single-character operator set.
const OneCharOps = "+-*/%<>=!&|^~.;,(){}[]?:"
