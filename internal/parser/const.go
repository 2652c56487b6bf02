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

import "github.com/gorse-io/ccarm/internal/ast"

// parseConstInt parses a constant-expression (§4.3: used for case values,
// array lengths, bitfield widths) and evaluates it immediately. sizeof is
// already folded to Num by the expression parser; the remaining special
// form handled here is the `&((T*)0)->f` offsetof approximation (§9).
func (p *Parser) parseConstInt() (int64, error) {
	e, err := p.parseTernary()
	if err != nil {
		return 0, err
	}
	return p.evalConst(e)
}

// evalConst folds a constant-expression AST to an int64, supporting
// arithmetic, shifts, bitwise ops, comparisons, and the documented
// offsetof approximation (§4.3, §9).
func (p *Parser) evalConst(e ast.Expr) (int64, error) {
	switch v := e.(type) {
	case *ast.Num:
		return v.Value, nil
	case *ast.Unary:
		if v.Op == "&" {
			if isZeroCastFieldAccess(v.Rhs) {
				return 0, nil // §9: &((T*)0)->member folds to 0
			}
		}
		rhs, err := p.evalConst(v.Rhs)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case "-":
			return -rhs, nil
		case "+":
			return rhs, nil
		case "~":
			return ^rhs, nil
		case "!":
			return boolInt(rhs == 0), nil
		}
		return 0, p.errf("non-constant unary operator %q in constant expression", v.Op)
	case *ast.Binary:
		lhs, err := p.evalConst(v.Lhs)
		if err != nil {
			return 0, err
		}
		rhs, err := p.evalConst(v.Rhs)
		if err != nil {
			return 0, err
		}
		return evalConstBinary(v.Op, lhs, rhs)
	case *ast.Ternary:
		cond, err := p.evalConst(v.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return p.evalConst(v.Then)
		}
		return p.evalConst(v.Else)
	}
	return 0, p.errf("non-constant expression in constant context")
}

// isZeroCastFieldAccess detects the `(T*)0)->member` shape underneath a
// leading `&` (§9 open question: offsetof approximation).
func isZeroCastFieldAccess(e ast.Expr) bool {
	var obj ast.Expr
	switch v := e.(type) {
	case *ast.Arrow:
		obj = v.Obj
	case *ast.Field:
		obj = v.Obj
	default:
		return false
	}
	cast, ok := obj.(*ast.Cast)
	if !ok {
		return false
	}
	n, ok := cast.X.(*ast.Num)
	return ok && n.Value == 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalConstBinary(op string, l, r int64) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, nil
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, nil
		}
		return l % r, nil
	case "<<":
		return l << uint(r), nil
	case ">>":
		return l >> uint(r), nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "&&":
		return boolInt(l != 0 && r != 0), nil
	case "||":
		return boolInt(l != 0 || r != 0), nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	case "<":
		return boolInt(l < r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">":
		return boolInt(l > r), nil
	case ">=":
		return boolInt(l >= r), nil
	case ",":
		return r, nil
	}
	return 0, nil
}
