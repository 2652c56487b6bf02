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

package parser

import (
	"github.com/gorse-io/ccarm/internal/ast"
	"github.com/gorse-io/ccarm/internal/token"
)

// declSpec is the parsed result of parseBaseType: a base type plus the
// qualifier/flags carried by the multi-keyword combinations (§4.3
// "Type parsing").
type declSpec struct {
	Kind       ast.TypeKind
	StructTag  string
	IsUnsigned bool
	IsChar     bool // plain/unsigned char: byte-sized. signed char: not (§9).
	IsStatic   bool
}

// isTypeStart reports whether tok begins a type specifier: a type keyword,
// a struct/union/enum tag, or a known typedef name. Used to disambiguate
// cast-vs-parenthesized-expression and to recognize declarations (§4.3).
func (p *Parser) isTypeStart(tok token.Token) bool {
	if tok.Kind == token.Keyword {
		switch tok.Lexeme {
		case "void", "char", "short", "int", "long", "float", "double",
			"struct", "union", "enum", "unsigned", "signed", "const",
			"volatile", "register", "static", "extern", "typedef",
			"inline", "_Bool", "bool":
			return true
		}
		return false
	}
	if tok.Kind == token.Ident {
		_, ok := p.typedefs[tok.Lexeme]
		return ok
	}
	return false
}

// parseBaseType recognizes the multi-keyword combinations ("unsigned long
// long int", etc.), collapses them to one declSpec, and follows
// struct/union/enum tags and typedef aliases (§4.3 "Type parsing").
func (p *Parser) parseBaseType() (declSpec, error) {
	var spec declSpec
	spec.Kind = ast.Int
	sawCharOrShortOrLong := false
	sawAnyKeyword := false
	sawSigned := false

	for {
		tok := p.peek()
		if tok.Kind == token.Keyword {
			switch tok.Lexeme {
			case "const", "volatile", "register", "extern", "inline", "typedef":
				p.advance()
				continue
			case "static":
				spec.IsStatic = true
				p.advance()
				continue
			case "unsigned":
				spec.IsUnsigned = true
				sawAnyKeyword = true
				p.advance()
				continue
			case "signed":
				sawSigned = true
				sawAnyKeyword = true
				p.advance()
				continue
			case "void":
				spec.Kind = ast.Void
				sawAnyKeyword = true
				p.advance()
				continue
			case "char":
				spec.Kind = ast.Char
				spec.IsChar = !sawSigned
				sawCharOrShortOrLong = true
				sawAnyKeyword = true
				p.advance()
				continue
			case "_Bool", "bool":
				spec.Kind = ast.Int
				sawAnyKeyword = true
				p.advance()
				continue
			case "short":
				spec.Kind = ast.Short
				sawCharOrShortOrLong = true
				sawAnyKeyword = true
				p.advance()
				continue
			case "int":
				if !sawCharOrShortOrLong {
					spec.Kind = ast.Int
				}
				sawAnyKeyword = true
				p.advance()
				continue
			case "long":
				if spec.Kind == ast.Long {
					spec.Kind = ast.LLong
				} else {
					spec.Kind = ast.Long
				}
				sawCharOrShortOrLong = true
				sawAnyKeyword = true
				p.advance()
				continue
			case "float":
				spec.Kind = ast.Float
				sawAnyKeyword = true
				p.advance()
				continue
			case "double":
				spec.Kind = ast.Double
				sawAnyKeyword = true
				p.advance()
				continue
			case "struct", "union":
				isUnion := tok.Lexeme == "union"
				p.advance()
				tag, err := p.parseStructOrUnionTag(isUnion)
				if err != nil {
					return declSpec{}, err
				}
				if isUnion {
					spec.Kind = ast.Union
				} else {
					spec.Kind = ast.Struct
				}
				spec.StructTag = tag
				return spec, nil
			case "enum":
				p.advance()
				if err := p.parseEnumDef(); err != nil {
					return declSpec{}, err
				}
				spec.Kind = ast.Enum
				return spec, nil
			}
		}
		if tok.Kind == token.Ident && !sawAnyKeyword {
			if info, ok := p.typedefs[tok.Lexeme]; ok {
				p.advance()
				spec.Kind = info.Kind
				spec.StructTag = info.StructTag
				spec.IsUnsigned = info.IsUnsigned
				spec.IsChar = info.IsChar
				return spec, nil
			}
		}
		break
	}
	if !sawAnyKeyword {
		return declSpec{}, p.errf("expected type specifier")
	}
	return spec, nil
}

// parsePointerStars consumes zero or more '*' and returns the count.
func (p *Parser) parsePointerStars() int {
	n := 0
	for p.match("*") {
		n++
	}
	return n
}

// parseStructOrUnionTag parses the body following `struct`/`union`: an
// optional tag name and an optional brace-delimited field list. Registers
// the definition in structDefs when a body is present (§4.3 "Struct/union
// definition"). Returns the tag name (possibly synthesized for anonymous
// structs).
func (p *Parser) parseStructOrUnionTag(isUnion bool) (string, error) {
	tag := ""
	if p.peek().Kind == token.Ident {
		tag = p.advance().Lexeme
	}
	if !p.check("{") {
		if tag == "" {
			return "", p.errf("expected struct/union tag or body")
		}
		return tag, nil
	}
	if tag == "" {
		tag = p.newAnonTag()
	}
	if _, err := p.expect("{"); err != nil {
		return "", err
	}
	def := &ast.StructDef{Tag: tag, IsUnion: isUnion}
	curWord, curBit := 0, 0
	flush := func() {
		if curBit != 0 {
			curWord++
			curBit = 0
		}
	}
	for !p.check("}") {
		spec, err := p.parseBaseType()
		if err != nil {
			return "", err
		}
		for {
			ptrDepth := p.parsePointerStars()
			var name string
			if p.check("(") {
				// `ret (*name)(...)` style nested function pointer field.
				p.advance()
				if _, err := p.expect("*"); err != nil {
					return "", err
				}
				name, err = p.expectIdent()
				if err != nil {
					return "", err
				}
				if _, err := p.expect(")"); err != nil {
					return "", err
				}
				if err := p.skipParenGroup(); err != nil {
					return "", err
				}
				field := ast.StructField{Name: name, WordIndex: curWord, SlotCount: 1}
				flush()
				def.Fields = append(def.Fields, field)
				if !isUnion {
					curWord++
				}
				if !p.match(",") {
					break
				}
				continue
			}
			name, err = p.expectIdent()
			if err != nil {
				return "", err
			}
			arrayLen := -1
			for p.match("[") {
				n, err := p.parseConstInt()
				if err != nil {
					return "", err
				}
				if _, err := p.expect("]"); err != nil {
					return "", err
				}
				if arrayLen < 0 {
					arrayLen = int(n)
				} else {
					arrayLen *= int(n)
				}
			}
			if p.match(":") {
				widthTok, err := p.parseConstInt()
				if err != nil {
					return "", err
				}
				width := int(widthTok)
				if !isUnion && curBit+width > 64 {
					curWord++
					curBit = 0
				}
				def.Fields = append(def.Fields, ast.StructField{
					Name: name, BitfieldWidth: width, BitfieldOffset: curBit,
					WordIndex: curWord, SlotCount: 1,
				})
				if isUnion {
					def.PackedWordCount = curWord + 1
				} else {
					curBit += width
					if curBit >= 64 {
						curWord++
						curBit = 0
					}
					def.PackedWordCount = curWord
				}
				if !p.match(",") {
					break
				}
				continue
			}
			flush()
			field := ast.StructField{Name: name, ArrayLen: arrayLen, WordIndex: curWord}
			field.ArrayLen = arrayLen
			slots := 1
			if ptrDepth > 0 {
				if structTag, isStructPtr := spec.toType(ptrDepth).PointerBase(); isStructPtr {
					field.PtrToStructTag = structTag
				}
			} else if spec.Kind == ast.Struct || spec.Kind == ast.Union {
				field.EmbeddedTag = spec.StructTag
				if sub, ok := p.structDefs[spec.StructTag]; ok {
					slots = sub.SlotCount()
				}
			}
			if arrayLen >= 0 {
				slots *= arrayLen
			}
			field.SlotCount = slots
			def.Fields = append(def.Fields, field)
			if !isUnion {
				curWord += slots
			}
			if !p.match(",") {
				break
			}
		}
		if _, err := p.expect(";"); err != nil {
			return "", err
		}
	}
	if _, err := p.expect("}"); err != nil {
		return "", err
	}
	flush()
	if def.PackedWordCount == 0 {
		hasBitfield := false
		for _, f := range def.Fields {
			if f.BitfieldWidth > 0 {
				hasBitfield = true
			}
		}
		if hasBitfield {
			def.PackedWordCount = curWord
		}
	}
	p.structDefs[tag] = def
	p.prog.Structs = append(p.prog.Structs, def)
	return tag, nil
}

// parseEnumDef parses `enum [tag] { A, B = v, ... }`, registering each
// constant's integer value in enumConsts (§4.3 symbol table "enum_consts").
func (p *Parser) parseEnumDef() error {
	if p.peek().Kind == token.Ident && !p.peekAt(1).Is("{") {
		p.advance() // tag name without a body: plain reference
		return nil
	}
	if p.peek().Kind == token.Ident {
		p.advance()
	}
	if !p.check("{") {
		return nil
	}
	p.advance()
	next := int64(0)
	for !p.check("}") {
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		val := next
		if p.match("=") {
			val, err = p.parseConstInt()
			if err != nil {
				return err
			}
		}
		p.enumConsts[name] = val
		next = val + 1
		if !p.match(",") {
			break
		}
	}
	_, err := p.expect("}")
	return err
}

// skipParenGroup consumes a balanced `( ... )` group, used for opaque
// function-pointer parameter lists (§4.3 "opaque prototype").
func (p *Parser) skipParenGroup() error {
	if _, err := p.expect("("); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		if p.atEnd() {
			return p.errf("unterminated parameter list")
		}
		if p.check("(") {
			depth++
		} else if p.check(")") {
			depth--
		}
		p.advance()
	}
	return nil
}

// toType builds the ast.Type for a declSpec wrapped in ptrDepth pointer
// levels; declarator parsing calls PointerBase on it to detect
// pointer-to-struct declarations.
func (spec declSpec) toType(ptrDepth int) *ast.Type {
	t := &ast.Type{Kind: spec.Kind, Tag: spec.StructTag, Unsigned: spec.IsUnsigned, IsChar: spec.IsChar}
	for i := 0; i < ptrDepth; i++ {
		t = &ast.Type{Kind: ast.Ptr, Base: t}
	}
	return t
}
