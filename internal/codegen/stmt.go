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

func (g *Generator) genBlock(b ast.Block) error {
	for _, s := range b {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genStmt lowers one statement (§4.4 "Statement lowering").
func (g *Generator) genStmt(s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.Return:
		return g.genReturn(v)
	case *ast.If:
		return g.genIf(v)
	case *ast.While:
		return g.genWhile(v)
	case *ast.For:
		return g.genFor(v)
	case *ast.DoWhile:
		return g.genDoWhile(v)
	case *ast.Switch:
		return g.genSwitch(v)
	case *ast.Break:
		return g.genBreak()
	case *ast.Continue:
		return g.genContinue()
	case *ast.Goto:
		g.emit("b %s", g.userLabel(v.Label))
		return nil
	case *ast.Label:
		g.emitLabel(g.userLabel(v.Name))
		return g.genStmt(v.Stmt)
	case *ast.ExprStmt:
		if v.X == nil {
			return nil
		}
		return g.genValue(v.X)
	case *ast.VarDecl:
		return g.genVarDecl(v)
	case *ast.NestedBlock:
		return g.genBlock(v.Body)
	}
	return errf(g.curFunc.Name, "unsupported statement %T", s)
}

func (g *Generator) userLabel(name string) string {
	return "L_usr_" + g.curFunc.Name + "_" + name
}

func (g *Generator) genReturn(v *ast.Return) error {
	if v.Value != nil {
		if err := g.genValue(v.Value); err != nil {
			return err
		}
	} else {
		g.emit("mov w0, #0")
	}
	g.emit("b %s", g.retLabel)
	return nil
}

func (g *Generator) genIf(v *ast.If) error {
	if err := g.genValue(v.Cond); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	if v.Else == nil {
		endLabel := g.newLabel("if_end")
		g.emit("beq %s", endLabel)
		if err := g.genBlock(v.Then); err != nil {
			return err
		}
		g.emitLabel(endLabel)
		return nil
	}
	elseLabel := g.newLabel("if_else")
	endLabel := g.newLabel("if_end")
	g.emit("beq %s", elseLabel)
	if err := g.genBlock(v.Then); err != nil {
		return err
	}
	g.emit("b %s", endLabel)
	g.emitLabel(elseLabel)
	if err := g.genBlock(v.Else); err != nil {
		return err
	}
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genWhile(v *ast.While) error {
	testLabel := g.newLabel("while_test")
	endLabel := g.newLabel("while_end")
	g.emitLabel(testLabel)
	if err := g.genValue(v.Cond); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("beq %s", endLabel)
	g.ctrl = append(g.ctrl, ctrlFrame{continueLabel: testLabel, breakLabel: endLabel, isLoop: true})
	err := g.genBlock(v.Body)
	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	if err != nil {
		return err
	}
	g.emit("b %s", testLabel)
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genFor(v *ast.For) error {
	if v.Init != nil {
		if err := g.genStmt(v.Init); err != nil {
			return err
		}
	}
	testLabel := g.newLabel("for_test")
	postLabel := g.newLabel("for_post")
	endLabel := g.newLabel("for_end")
	g.emitLabel(testLabel)
	if v.Cond != nil {
		if err := g.genValue(v.Cond); err != nil {
			return err
		}
		g.emit("cmp x0, #0")
		g.emit("beq %s", endLabel)
	}
	g.ctrl = append(g.ctrl, ctrlFrame{continueLabel: postLabel, breakLabel: endLabel, isLoop: true})
	err := g.genBlock(v.Body)
	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	if err != nil {
		return err
	}
	g.emitLabel(postLabel)
	if v.Post != nil {
		if err := g.genValue(v.Post); err != nil {
			return err
		}
	}
	g.emit("b %s", testLabel)
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genDoWhile(v *ast.DoWhile) error {
	bodyLabel := g.newLabel("do_body")
	testLabel := g.newLabel("do_test")
	endLabel := g.newLabel("do_end")
	g.emitLabel(bodyLabel)
	g.ctrl = append(g.ctrl, ctrlFrame{continueLabel: testLabel, breakLabel: endLabel, isLoop: true})
	err := g.genBlock(v.Body)
	g.ctrl = g.ctrl[:len(g.ctrl)-1]
	if err != nil {
		return err
	}
	g.emitLabel(testLabel)
	if err := g.genValue(v.Cond); err != nil {
		return err
	}
	g.emit("cmp x0, #0")
	g.emit("bne %s", bodyLabel)
	g.emitLabel(endLabel)
	return nil
}

// genSwitch lowers `switch`: the discriminant is pushed once, every case
// value is compared against it, and each case body is preceded by a
// trampoline that restores sp before entry. A case body ends with an
// explicit jump to the next body (rather than relying on physical
// fall-through) so a fall-through case never re-executes the next
// trampoline's stack fixup (§4.4 "trampolines restore the stack... to
// avoid stack drift on fall-through").
func (g *Generator) genSwitch(v *ast.Switch) error {
	if err := g.genValue(v.Cond); err != nil {
		return err
	}
	g.push("x0")
	endLabel := g.newLabel("switch_end")
	g.ctrl = append(g.ctrl, ctrlFrame{breakLabel: endLabel})
	defer func() { g.ctrl = g.ctrl[:len(g.ctrl)-1] }()

	trampolines := make([]string, len(v.Cases))
	bodies := make([]string, len(v.Cases))
	defaultIdx := -1
	for i, c := range v.Cases {
		trampolines[i] = g.newLabel("case_tramp")
		bodies[i] = g.newLabel("case_body")
		if c.IsDefault {
			defaultIdx = i
		}
	}
	for i, c := range v.Cases {
		if c.IsDefault {
			continue
		}
		if err := g.genValue(c.Value); err != nil {
			return err
		}
		g.emit("ldr x1, [sp]")
		g.emit("cmp x1, x0")
		g.emit("beq %s", trampolines[i])
	}
	noMatch := g.newLabel("switch_nomatch")
	g.emit("b %s", noMatch)

	for i, c := range v.Cases {
		g.emitLabel(trampolines[i])
		g.emit("add sp, sp, #16")
		g.emitLabel(bodies[i])
		if err := g.genBlock(c.Body); err != nil {
			return err
		}
		if i+1 < len(v.Cases) {
			g.emit("b %s", bodies[i+1])
		} else {
			g.emit("b %s", endLabel)
		}
	}
	g.emitLabel(noMatch)
	g.emit("add sp, sp, #16")
	if defaultIdx >= 0 {
		g.emit("b %s", bodies[defaultIdx])
	} else {
		g.emit("b %s", endLabel)
	}
	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genBreak() error {
	if len(g.ctrl) == 0 {
		return errf(g.curFunc.Name, "break outside loop/switch")
	}
	g.emit("b %s", g.ctrl[len(g.ctrl)-1].breakLabel)
	return nil
}

func (g *Generator) genContinue() error {
	for i := len(g.ctrl) - 1; i >= 0; i-- {
		if g.ctrl[i].isLoop {
			g.emit("b %s", g.ctrl[i].continueLabel)
			return nil
		}
	}
	return errf(g.curFunc.Name, "continue outside loop")
}
