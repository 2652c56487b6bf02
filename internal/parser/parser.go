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

// Package parser implements §4.3 of the compiler: a single-pass,
// Pratt-style parser that builds a typed Program AST and the struct,
// typedef, enum, and global symbol tables codegen depends on.
package parser

import (
	"fmt"

	"github.com/gorse-io/ccarm/internal/ast"
	"github.com/gorse-io/ccarm/internal/token"
)

// typedefInfo is what the `typedefs` table (§4.3) carries per alias.
type typedefInfo struct {
	StructTag string
	IsChar    bool
	IsUnsigned bool
	PtrDepth  int
	Kind      ast.TypeKind
}

// localInfo is what the per-function `local_vars` table carries.
type localInfo struct {
	StructTag string
	PtrDepth  int
	ArrayLen  int
}

// funcRetInfo is what `func_ret_info` carries: the return struct tag, if
// the function returns pointer-to-struct.
type funcRetInfo struct {
	StructTag string
	PtrDepth  int
}

// Parser holds the token cursor and every symbol table built during a
// single-pass parse (§4.3). Re-created per compilation unit (§5): there is
// no file-scope global state, so driving the compiler as a library is
// just constructing a fresh Parser.
type Parser struct {
	toks []token.Token
	pos  int

	prog *ast.Program

	structDefs map[string]*ast.StructDef
	typedefs   map[string]typedefInfo
	enumConsts map[string]int64
	funcRet    map[string]funcRetInfo
	locals     map[string]localInfo

	lastCastTag string
	anonCounter int
	loopDepth   int
}

// Parse runs the parser to completion over toks, returning the Program AST
// (§4.3 public contract).
func Parse(toks []token.Token) (*ast.Program, error) {
	p := &Parser{
		toks:       toks,
		prog:       &ast.Program{},
		structDefs: map[string]*ast.StructDef{},
		typedefs:   map[string]typedefInfo{},
		enumConsts: map[string]int64{},
		funcRet:    map[string]funcRetInfo{},
	}
	for !p.atEnd() {
		if err := p.parseTopLevel(); err != nil {
			return nil, err
		}
	}
	return p.prog, nil
}

func (p *Parser) atEnd() bool { return p.peek().Kind == token.Eof }

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(lexeme string) bool {
	return p.peek().Is(lexeme)
}

func (p *Parser) match(lexeme string) bool {
	if p.check(lexeme) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(lexeme string) (token.Token, error) {
	if !p.check(lexeme) {
		return token.Token{}, p.errf("expected %q", lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (string, error) {
	if p.peek().Kind != token.Ident {
		return "", p.errf("expected identifier")
	}
	return p.advance().Lexeme, nil
}

func (p *Parser) errf(format string, args ...any) *Error {
	return &Error{
		Offset:  p.peek().Offset,
		Msg:     fmt.Sprintf(format, args...),
		Context: contextWindow(p.toks, p.pos),
	}
}

func (p *Parser) newAnonTag() string {
	p.anonCounter++
	return fmt.Sprintf("__anon_%d", p.anonCounter)
}
