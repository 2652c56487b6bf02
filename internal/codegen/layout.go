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

package codegen

import "github.com/gorse-io/ccarm/internal/ast"

// slot describes one local or parameter's home (§4.4 "Stack layout").
type slot struct {
	offset    int // relative to x29, always negative
	structTag string
	ptrDepth  int
	arrayLen  int // -1 if scalar
	isChar    bool
}

const (
	maxSlots      = 256
	maxArrayVars  = 64
	maxStructVars = 64
)

// layout is the per-function result of the pre-codegen stack-layout walk
// (§4.4 "Stack layout"): every local and parameter assigned a unique
// offset, and the total frame size rounded up to 16 bytes.
type layout struct {
	slots     map[string]slot
	frameSize int
}

// buildLayout walks every statement of fn's body — including nested
// blocks, for-loop initializers, and switch cases — assigning each local
// and parameter a unique stack offset (§4.4). Structs consume
// nfields*8 bytes (recursive; unions collapse to the widest member);
// arrays consume length*8 (or length*nested_struct_size). Duplicate names
// within one function are an error, as is exceeding the documented slot
// budgets (spec §7).
func (g *Generator) buildLayout(fn *ast.FuncDef) (*layout, error) {
	lo := &layout{slots: map[string]slot{}}
	cur := 0
	arrayCount, structCount := 0, 0

	alloc := func(name string, words int, tag string, ptrDepth, arrayLen int, isChar bool) error {
		if _, dup := lo.slots[name]; dup {
			return errf(fn.Name, "duplicate local variable %q", name)
		}
		if arrayLen >= 0 {
			arrayCount++
			if arrayCount > maxArrayVars {
				return errf(fn.Name, "too many array locals (> %d)", maxArrayVars)
			}
		}
		if tag != "" && ptrDepth == 0 {
			structCount++
			if structCount > maxStructVars {
				return errf(fn.Name, "too many struct locals (> %d)", maxStructVars)
			}
		}
		cur -= words * 8
		if -cur/8 > maxSlots {
			return errf(fn.Name, "stack frame exceeds %d slots", maxSlots)
		}
		lo.slots[name] = slot{offset: cur, structTag: tag, ptrDepth: ptrDepth, arrayLen: arrayLen, isChar: isChar}
		return nil
	}

	for _, prm := range fn.Params {
		if err := alloc(prm.Name, 1, prm.StructTag, prm.PtrDepth, -1, false); err != nil {
			return nil, err
		}
	}

	var walkEntry func(e ast.VarDeclEntry) error
	walkEntry = func(e ast.VarDeclEntry) error {
		words := 1
		if e.ArrayLen >= 0 {
			if e.StructTag != "" {
				if def, ok := g.prog.StructByTag(e.StructTag); ok {
					words = def.SlotCount() * e.ArrayLen
				} else {
					words = e.ArrayLen
				}
			} else {
				words = e.ArrayLen
			}
		} else if e.StructTag != "" && e.PtrDepth == 0 {
			if def, ok := g.prog.StructByTag(e.StructTag); ok {
				words = def.SlotCount()
			}
		}
		return alloc(e.Name, words, e.StructTag, e.PtrDepth, e.ArrayLen, e.IsChar)
	}

	var walkStmt func(s ast.Stmt) error
	var walkBlock func(b ast.Block) error
	walkBlock = func(b ast.Block) error {
		for _, s := range b {
			if err := walkStmt(s); err != nil {
				return err
			}
		}
		return nil
	}
	walkStmt = func(s ast.Stmt) error {
		switch v := s.(type) {
		case *ast.VarDecl:
			for _, e := range v.Entries {
				if err := walkEntry(e); err != nil {
					return err
				}
			}
		case *ast.If:
			if err := walkBlock(v.Then); err != nil {
				return err
			}
			return walkBlock(v.Else)
		case *ast.While:
			return walkBlock(v.Body)
		case *ast.DoWhile:
			return walkBlock(v.Body)
		case *ast.For:
			if v.Init != nil {
				if err := walkStmt(v.Init); err != nil {
					return err
				}
			}
			return walkBlock(v.Body)
		case *ast.Switch:
			for _, c := range v.Cases {
				if err := walkBlock(c.Body); err != nil {
					return err
				}
			}
		case *ast.Label:
			return walkStmt(v.Stmt)
		case *ast.NestedBlock:
			return walkBlock(v.Body)
		}
		return nil
	}
	if err := walkBlock(fn.Body); err != nil {
		return nil, err
	}

	frame := -cur
	if frame%16 != 0 {
		frame += 16 - frame%16
	}
	lo.frameSize = frame
	return lo, nil
}
