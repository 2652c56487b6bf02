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

var argRegs = [8]string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}

// genFunc lowers one function definition: layout pass, prologue, body,
// epilogue (§4.4 "Per-function prologue/epilogue").
func (g *Generator) genFunc(fn *ast.FuncDef) error {
	lo, err := g.buildLayout(fn)
	if err != nil {
		return err
	}
	g.curFunc = fn
	g.lo = lo
	g.ctrl = nil

	if !fn.IsStatic {
		g.out.WriteString(".globl _" + fn.Name + "\n")
	}
	g.out.WriteString(".p2align 2\n")
	g.emitRaw("_" + fn.Name + ":")
	g.emit("stp x29, x30, [sp, #-16]!")
	g.emit("mov x29, sp")
	if lo.frameSize > 0 {
		g.emitFrameAdjust("sub", lo.frameSize)
	}

	for i, prm := range fn.Params {
		if i >= len(argRegs) {
			break
		}
		sl := lo.slots[prm.Name]
		g.storeSlot(sl, argRegs[i])
	}

	retLabel := g.newLabel(fn.Name + "_ret")
	g.retLabel = retLabel
	if err := g.genBlock(fn.Body); err != nil {
		return err
	}
	g.emit("mov w0, #0")
	g.emitLabel(retLabel)
	if lo.frameSize > 0 {
		g.emitFrameAdjust("add", lo.frameSize)
	}
	g.emit("ldp x29, x30, [sp], #16")
	g.emit("ret")
	return nil
}

// emitFrameAdjust emits `<op> sp, sp, #<n>`, routing through x9 for
// immediates too large to encode directly (§4.4 prologue comment: "large
// frames via x9").
func (g *Generator) emitFrameAdjust(op string, n int) {
	if n <= 4095 {
		g.emit("%s sp, sp, #%d", op, n)
		return
	}
	g.emit("mov x9, #%d", n)
	g.emit("%s sp, sp, x9", op)
}

// storeSlot stores reg into a parameter's home slot on function entry.
func (g *Generator) storeSlot(sl slot, reg string) {
	g.emitAddrOffset("x9", "x29", sl.offset)
	if sl.isChar && sl.arrayLen < 0 {
		g.emit("strb %s, [x9]", wReg(reg))
		return
	}
	g.emit("str %s, [x9]", reg)
}

func wReg(x string) string {
	if len(x) > 1 && x[0] == 'x' {
		return "w" + x[1:]
	}
	return x
}
