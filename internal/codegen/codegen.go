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

// Package codegen walks a parsed Program and emits Apple AArch64 (Mach-O)
// assembly text (§4.4). Lowering is strictly template-expansion per AST
// node: the stack is used as an expression evaluator, x0 carries every
// node's result, and no optimization passes run.
package codegen

import (
	"fmt"
	"strings"

	"github.com/gorse-io/ccarm/internal/ast"
)

// Generator holds all state threaded through one compilation unit's
// lowering: the program being compiled, the output buffer, the string
// pool, and the label/loop/switch bookkeeping that's reset per function
// or per unit as appropriate (§5: "no locking required... tables owned by
// the compilation").
type Generator struct {
	prog *ast.Program
	out  strings.Builder

	strPool  map[string]string
	strOrder []string
	labelSeq int

	curFunc  *ast.FuncDef
	lo       *layout
	ctrl     []ctrlFrame
	retLabel string
}

// ctrlFrame is one entry of the break/continue target stack: loops push a
// continue target too; switch frames leave continueLabel empty so
// `continue` skips past them to the nearest enclosing loop (§4.4
// "Statement lowering").
type ctrlFrame struct {
	continueLabel string
	breakLabel    string
	isLoop        bool
}

// Generate lowers prog to assembly text. Deterministic: the same AST
// always produces byte-identical output (§4.4 public contract).
func Generate(prog *ast.Program) (string, error) {
	g := &Generator{prog: prog, strPool: map[string]string{}}
	g.emitPreamble()
	for _, fn := range prog.Funcs {
		if err := g.genFunc(fn); err != nil {
			return "", err
		}
	}
	g.emitGlobals()
	g.emitStringPool()
	return g.out.String(), nil
}

func (g *Generator) emitPreamble() {
	g.out.WriteString(".section __TEXT,__text,regular,pure_instructions\n")
}

func (g *Generator) emit(format string, args ...any) {
	g.out.WriteString("\t" + fmt.Sprintf(format, args...) + "\n")
}

func (g *Generator) emitLabel(name string) {
	g.out.WriteString(name + ":\n")
}

func (g *Generator) emitRaw(line string) {
	g.out.WriteString(line + "\n")
}

// emitAddrOffset emits `dst = base + offset`, routing through x9 when the
// immediate doesn't fit a 12-bit add/sub encoding. Frame-relative (x29)
// local addresses and struct-field offsets are computed here, so their
// loads/stores can use a zero-offset `[reg]` form regardless of how far a
// local sits from x29 (§4.4 "large frames via x9"). Global addresses
// (adrp/add) and indexed element addresses are formed elsewhere.
func (g *Generator) emitAddrOffset(dst, base string, offset int) {
	switch {
	case offset == 0:
		g.emit("mov %s, %s", dst, base)
	case offset > 0 && offset <= 4095:
		g.emit("add %s, %s, #%d", dst, base, offset)
	case offset > 0:
		g.emit("mov x9, #%d", offset)
		g.emit("add %s, %s, x9", dst, base)
	case -offset <= 4095:
		g.emit("sub %s, %s, #%d", dst, base, -offset)
	default:
		g.emit("mov x9, #%d", -offset)
		g.emit("sub %s, %s, x9", dst, base)
	}
}

// newLabel allocates a fresh, function-local label (`L_<base>_<n>`, §4.4).
func (g *Generator) newLabel(base string) string {
	g.labelSeq++
	return fmt.Sprintf("L_%s_%d", base, g.labelSeq)
}

// internString interns a string literal's raw (still-escaped) lexeme text
// and returns its pool label, reusing an existing label for an identical
// raw literal. Literals with the same raw text always share a label;
// literals that decode to the same bytes but are spelled differently
// (e.g. "\x41" and "A") get separate labels.
func (g *Generator) internString(raw string) string {
	if label, ok := g.strPool[raw]; ok {
		return label
	}
	label := fmt.Sprintf("l_.str_%d", len(g.strOrder))
	g.strPool[raw] = label
	g.strOrder = append(g.strOrder, raw)
	return label
}

func (g *Generator) emitStringPool() {
	if len(g.strOrder) == 0 {
		return
	}
	g.out.WriteString(".section __TEXT,__cstring,cstring_literals\n")
	for _, raw := range g.strOrder {
		g.emitLabel(g.strPool[raw])
		g.emit(".asciz %s", raw)
	}
}

// emitGlobals lowers every GlobalDecl: initialized scalars into `.data`
// with `.quad`, uninitialized data into `.comm` (§4.4 "Globals").
func (g *Generator) emitGlobals() {
	if len(g.prog.Globals) == 0 {
		return
	}
	var inited, uninited []*ast.GlobalDecl
	for _, gd := range g.prog.Globals {
		if gd.Init != nil {
			inited = append(inited, gd)
		} else {
			uninited = append(uninited, gd)
		}
	}
	if len(inited) > 0 {
		g.out.WriteString(".section __DATA,__data\n")
		g.out.WriteString(".p2align 3\n")
		for _, gd := range inited {
			g.emitRaw("_" + gd.Name + ":")
			g.emitGlobalInit(gd)
		}
	}
	for _, gd := range uninited {
		words := g.globalSlotCount(gd)
		g.emit(".comm _%s, %d, 3", gd.Name, words*8)
	}
}

func (g *Generator) globalSlotCount(gd *ast.GlobalDecl) int {
	words := 1
	if gd.ArrayLen >= 0 {
		words = gd.ArrayLen
		if gd.StructTag != "" && gd.PtrDepth == 0 {
			if def, ok := g.prog.StructByTag(gd.StructTag); ok {
				words = def.SlotCount() * gd.ArrayLen
			}
		}
	} else if gd.StructTag != "" && gd.PtrDepth == 0 {
		if def, ok := g.prog.StructByTag(gd.StructTag); ok {
			words = def.SlotCount()
		}
	}
	return words
}

func (g *Generator) emitGlobalInit(gd *ast.GlobalDecl) {
	switch v := gd.Init.(type) {
	case *ast.Num:
		g.emit(".quad %d", v.Value)
	case *ast.StrLit:
		label := g.internString(v.Raw)
		g.emit(".quad %s", label)
	case *ast.InitList:
		for _, el := range v.Elems {
			switch e := el.Value.(type) {
			case *ast.Num:
				g.emit(".quad %d", e.Value)
			case *ast.StrLit:
				g.emit(".quad %s", g.internString(e.Raw))
			default:
				g.emit(".quad 0")
			}
		}
	default:
		g.emit(".quad 0")
	}
}
