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

package ast

// StructField describes one field slot of a StructDef.
type StructField struct {
	Name           string
	EmbeddedTag    string // "" if not an embedded struct/union
	PtrToStructTag string // "" if not a pointer-to-struct field
	ArrayLen       int    // -1 if not an array field
	BitfieldWidth  int    // 0 if not a bitfield
	BitfieldOffset int    // bit offset within WordIndex, valid iff BitfieldWidth>0
	WordIndex      int    // which 8-byte slot this field occupies (or starts at)
	SlotCount      int    // number of 8-byte slots this field consumes
}

// StructDef is a struct/union definition (§3). For a bitfield-free struct,
// PackedWordCount is 0 and each field occupies one 8-byte slot (or
// ArrayLen slots, or recursive substruct slots). For unions, all fields
// share slot 0; slot count = the max member's slot count.
type StructDef struct {
	Tag             string
	Fields          []StructField
	IsUnion         bool
	PackedWordCount int
}

// SlotCount returns the total number of 8-byte slots the struct occupies.
func (s *StructDef) SlotCount() int {
	if s.IsUnion {
		max := 0
		for _, f := range s.Fields {
			if f.SlotCount > max {
				max = f.SlotCount
			}
		}
		return max
	}
	total := 0
	for _, f := range s.Fields {
		if f.WordIndex+f.SlotCount > total {
			total = f.WordIndex + f.SlotCount
		}
	}
	return total
}

// FieldByName looks up a field by name; ok is false if absent.
func (s *StructDef) FieldByName(name string) (StructField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// Param is one function parameter's declarator metadata.
type Param struct {
	Name      string
	StructTag string
	PtrDepth  int
}

// FuncDef is a function definition with a body (§3).
type FuncDef struct {
	Name          string
	Params        []Param
	Variadic      bool
	IsStatic      bool
	ReturnPtr     bool
	ReturnStruct  string // "" if return type isn't pointer-to-struct
	Body          Block
	DefPos        int
}

// FuncProto is a function declared but not defined: a prototype, or an
// opaque function-returning-function-pointer declaration (§4.3).
type FuncProto struct {
	Name     string
	Params   []Param
	Variadic bool
	Opaque   bool // recorded without fully modeling parameters (§4.3)
}

// GlobalDecl is a file-scope variable declaration.
type GlobalDecl struct {
	Name       string
	StructTag  string
	PtrDepth   int
	ArrayLen   int // -1 if scalar
	IsStatic   bool
	IsUnsigned bool
	IsChar     bool
	Init       Expr // nil if uninitialized (goes to .comm/.bss)
}

// Program is the parser's output: the full translation unit (§3). Mutable
// during parsing; frozen before codegen.
type Program struct {
	Structs []*StructDef
	Funcs   []*FuncDef
	Globals []*GlobalDecl
	Protos  []*FuncProto
}

// StructByTag looks up a registered struct/union by tag.
func (p *Program) StructByTag(tag string) (*StructDef, bool) {
	for _, s := range p.Structs {
		if s.Tag == tag {
			return s, true
		}
	}
	return nil, false
}

// FuncByName looks up a defined function by name.
func (p *Program) FuncByName(name string) (*FuncDef, bool) {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// GlobalByName looks up a global declaration by name.
func (p *Program) GlobalByName(name string) (*GlobalDecl, bool) {
	for _, g := range p.Globals {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}
