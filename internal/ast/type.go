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

// Package ast defines the Program/Type/Expr/Stmt node set built by the
// parser and walked by the code generator (§3).
package ast

// TypeKind tags a structural Type. Order preserved from the original
// self-hosting implementation's ast.h enum; codegen does not read
// TypeKind, so nothing depends on the numeric values.
type TypeKind int

const (
	Void TypeKind = iota
	Char
	Short
	Int
	Long
	LLong
	Float
	Double
	Ptr
	Array
	Struct
	Union
	Enum
	Func
)

// Type is the structural, tagged-variant type description built during
// parsing (§3). Codegen mostly ignores width and treats everything as 8
// bytes except char loads/stores.
type Type struct {
	Kind       TypeKind
	Base       *Type // Ptr(base), Array(base, _), Func(return)
	Len        int   // Array length
	Tag        string // Struct/Union tag, or Func's nothing
	Unsigned   bool
	IsChar     bool // true for plain/unsigned char (byte-sized); false for signed char (§9)
	cachedSize int
	sizeKnown  bool
}

// IsByteSized reports whether loads/stores of this type use ldrb/strb
// rather than the default 8-byte ldr/str (§4.4 machine model).
func (t *Type) IsByteSized() bool {
	return t.Kind == Char && t.IsChar
}

// Size returns the sizeof value the const-evaluator and codegen use. Per
// spec §9's documented simplification, every scalar is 8 except char
// (always 1, including unsigned char; signed char is intentionally NOT
// byte-sized so its value stays sign-extended through the uniform slot).
func (t *Type) Size() int {
	if t.sizeKnown {
		return t.cachedSize
	}
	switch t.Kind {
	case Char:
		if t.IsChar {
			return 1
		}
		return 8
	case Void:
		return 0
	default:
		return 8
	}
}

// SetSize caches a struct/union's computed size (words * 8) so repeated
// sizeof lookups avoid re-walking the struct registry.
func (t *Type) SetSize(n int) {
	t.cachedSize = n
	t.sizeKnown = true
}

// PointerBase returns the pointee type's tag for struct-pointer arithmetic
// scaling (§4.4), or "" if this isn't a pointer-to-struct.
func (t *Type) PointerBase() (tag string, isStructPtr bool) {
	if t.Kind != Ptr || t.Base == nil {
		return "", false
	}
	if t.Base.Kind == Struct || t.Base.Kind == Union {
		return t.Base.Tag, true
	}
	return "", false
}
