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

const maxCallArgs = 64

// genCall lowers a Call node (§4.4 "Call: described in §5", §6 intrinsics
// and variadic ABI). __read_byte/__write_byte are inlined directly;
// IndirectCallName routes through `blr x8`; everything else is `bl
// _<name>`.
func (g *Generator) genCall(c *ast.Call) error {
	if len(c.Args) > maxCallArgs {
		return errf(g.curFunc.Name, "too many call arguments (> %d)", maxCallArgs)
	}
	switch c.Name {
	case "__read_byte":
		return g.genReadByte(c)
	case "__write_byte":
		return g.genWriteByte(c)
	}
	if c.Name == ast.IndirectCallName {
		if err := g.genValue(c.Args[0]); err != nil {
			return err
		}
		g.emit("mov x8, x0")
		extra, err := g.genArgs(c.Args[1:])
		if err != nil {
			return err
		}
		g.emit("blr x8")
		if extra > 0 {
			g.emit("add sp, sp, #%d", extra)
		}
		return nil
	}
	extra, err := g.genArgs(c.Args)
	if err != nil {
		return err
	}
	g.emit("bl _%s", c.Name)
	if extra > 0 {
		g.emit("add sp, sp, #%d", extra)
	}
	return nil
}

func (g *Generator) genReadByte(c *ast.Call) error {
	if err := g.genValue(c.Args[0]); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(c.Args[1]); err != nil {
		return err
	}
	g.pop("x1")
	g.emit("ldrb w0, [x1, x0]")
	return nil
}

func (g *Generator) genWriteByte(c *ast.Call) error {
	if err := g.genValue(c.Args[0]); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(c.Args[1]); err != nil {
		return err
	}
	g.push("x0")
	if err := g.genValue(c.Args[2]); err != nil {
		return err
	}
	g.pop("x1")
	g.pop("x2")
	g.emit("strb w0, [x2, x1]")
	return nil
}

// genArgs evaluates args left to right and loads the first 8 into
// x0..x7. Arguments beyond the 8th are stacked at [sp, #0], [sp, #8], ...
// immediately below the call; it returns the byte count the caller must
// pop after the call (0 when there are 8 or fewer arguments). The split is
// the same for every callee: variadic callees are not treated specially,
// so their variadic arguments among the first 8 travel in registers.
//
// x10 anchors the reserved outgoing-argument region. It is computed only
// after every argument has been evaluated, so a nested call inside an
// argument cannot clobber it before the stores below.
func (g *Generator) genArgs(args []ast.Expr) (int, error) {
	n := len(args)
	extra := n - 8
	if extra < 0 {
		extra = 0
	}
	extraSize := extra * 8
	if extraSize%16 != 0 {
		extraSize += 8
	}
	if extraSize > 0 {
		g.emit("sub sp, sp, #%d", extraSize)
	}
	for _, a := range args {
		if err := g.genValue(a); err != nil {
			return 0, err
		}
		g.push("x0")
	}
	if extraSize > 0 {
		// The region starts just above the n pushed 16-byte argument slots.
		g.emitAddrOffset("x10", "sp", n*16)
	}
	for i := n - 1; i >= 8; i-- {
		g.pop("x9")
		g.emit("str x9, [x10, #%d]", (i-8)*8)
	}
	limit := n
	if limit > 8 {
		limit = 8
	}
	for i := limit - 1; i >= 0; i-- {
		g.pop(argRegs[i])
	}
	return extraSize, nil
}

func (g *Generator) push(reg string) {
	g.emit("str %s, [sp, #-16]!", reg)
}

func (g *Generator) pop(reg string) {
	g.emit("ldr %s, [sp], #16", reg)
}
