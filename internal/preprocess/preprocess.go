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

// Package preprocess implements §4.1 of the compiler: comment stripping,
// `#include`/`#define`/conditional-compilation handling, and macro
// expansion, producing cleaned source text for the lexer.
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

const maxIncludeDepth = 64

// Config carries the include search path and command-line macro bindings
// (`-D name[=value]`) that seed a Preprocessor (§4.1 public contract).
type Config struct {
	IncludePaths []string
	Defines      map[string]string
}

// condFrame tracks one level of `#if`/`#ifdef` nesting.
type condFrame struct {
	active       bool // this branch's condition held and no sibling fired yet
	everTaken    bool // some branch in this chain has already fired
	parentActive bool // the enclosing scope is live
	sawElse      bool
}

// Preprocessor holds the macro table and conditional-nesting state for one
// compilation. It is re-created per input file to avoid cross-run state
// leaking when the compiler is driven as a library (§5).
type Preprocessor struct {
	cfg          Config
	macros       map[string]*Macro
	stack        []condFrame
	includeDepth int
}

// New constructs a Preprocessor seeded with -D command-line macros.
func New(cfg Config) *Preprocessor {
	pp := &Preprocessor{cfg: cfg, macros: map[string]*Macro{}}
	for name, val := range cfg.Defines {
		if val == "" {
			val = "1"
		}
		pp.macros[name] = &Macro{Body: val}
	}
	return pp
}

// active reports whether the current nesting level should emit text.
func (pp *Preprocessor) active() bool {
	for _, f := range pp.stack {
		if !f.active {
			return false
		}
	}
	return true
}

// Process reads path, strips comments, resolves includes/conditionals, and
// macro-expands the result, returning cleaned text for the lexer.
func (pp *Preprocessor) Process(path string) (string, error) {
	var directiveFree strings.Builder
	if err := pp.resolveFile(path, &directiveFree); err != nil {
		return "", err
	}
	if len(pp.stack) != 0 {
		return "", errf(path, 0, "unterminated #if/#ifdef block")
	}
	return pp.expandMacros(directiveFree.String()), nil
}

// resolveFile strips comments/continuations from one file and walks its
// lines, handling directives and splicing in `#include`s, appending
// surviving text (still unexpanded) to out.
func (pp *Preprocessor) resolveFile(path string, out *strings.Builder) error {
	if pp.includeDepth > maxIncludeDepth {
		return errf(path, 0, "include recursion depth exceeded")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return errf(path, 0, "cannot open include file: %v", err)
	}
	cleaned := stripComments(joinContinuations(string(raw)))
	lines := strings.Split(cleaned, "\n")
	baseDepth := len(pp.stack)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			if err := pp.handleDirective(path, trimmed[1:], out); err != nil {
				return err
			}
			continue
		}
		if pp.active() {
			out.WriteString(line)
			out.WriteByte('\n')
		} else {
			out.WriteByte('\n')
		}
	}
	if len(pp.stack) != baseDepth {
		return errf(path, 0, "unterminated #if/#ifdef block in %s", path)
	}
	return nil
}

func (pp *Preprocessor) handleDirective(file, rest string, out *strings.Builder) error {
	rest = strings.TrimLeft(rest, " \t")
	name, arg := splitDirective(rest)
	switch name {
	case "ifdef":
		_, ok := pp.macros[strings.TrimSpace(arg)]
		pp.pushCond(ok)
	case "ifndef":
		_, ok := pp.macros[strings.TrimSpace(arg)]
		pp.pushCond(!ok)
	case "if":
		if !pp.active() {
			pp.pushCond(false)
			break
		}
		v, err := pp.evalCondExpr(arg)
		if err != nil {
			return errf(file, 0, "%v", err)
		}
		pp.pushCond(v != 0)
	case "elif":
		if err := pp.handleElif(file, arg); err != nil {
			return err
		}
	case "else":
		if err := pp.handleElse(file); err != nil {
			return err
		}
	case "endif":
		if len(pp.stack) == 0 {
			return errf(file, 0, "#endif without matching #if")
		}
		pp.stack = pp.stack[:len(pp.stack)-1]
	case "define":
		if pp.active() {
			if err := pp.handleDefine(arg); err != nil {
				return errf(file, 0, "%v", err)
			}
		}
	case "undef":
		if pp.active() {
			delete(pp.macros, strings.TrimSpace(arg))
		}
	case "include":
		if pp.active() {
			if err := pp.handleInclude(file, arg, out); err != nil {
				return err
			}
		}
	case "error":
		if pp.active() {
			return errf(file, 0, "#error %s", strings.TrimSpace(arg))
		}
	case "pragma":
		// recognized, no-op (§4.1)
	default:
		// unknown directives are silently dropped (§4.1)
	}
	return nil
}

func (pp *Preprocessor) pushCond(cond bool) {
	parentActive := pp.active()
	active := parentActive && cond
	pp.stack = append(pp.stack, condFrame{active: active, everTaken: active, parentActive: parentActive})
}

func (pp *Preprocessor) handleElif(file, arg string) error {
	if len(pp.stack) == 0 {
		return errf(file, 0, "#elif without matching #if")
	}
	top := &pp.stack[len(pp.stack)-1]
	if top.sawElse {
		return errf(file, 0, "#elif after #else")
	}
	if !top.parentActive || top.everTaken {
		top.active = false
		return nil
	}
	v, err := pp.evalCondExpr(arg)
	if err != nil {
		return errf(file, 0, "%v", err)
	}
	top.active = v != 0
	if top.active {
		top.everTaken = true
	}
	return nil
}

func (pp *Preprocessor) handleElse(file string) error {
	if len(pp.stack) == 0 {
		return errf(file, 0, "#else without matching #if")
	}
	top := &pp.stack[len(pp.stack)-1]
	if top.sawElse {
		return errf(file, 0, "duplicate #else")
	}
	top.sawElse = true
	top.active = top.parentActive && !top.everTaken
	if top.active {
		top.everTaken = true
	}
	return nil
}

// handleDefine registers or replaces a macro table entry; `define` adds or
// replaces (§4.1).
func (pp *Preprocessor) handleDefine(arg string) error {
	arg = strings.TrimLeft(arg, " \t")
	i := 0
	for i < len(arg) && isIdentCont(arg[i]) {
		i++
	}
	if i == 0 {
		return errf("", 0, "malformed #define: %s", arg)
	}
	name := arg[:i]
	rest := arg[i:]
	if strings.HasPrefix(rest, "(") {
		// function-like macro: parse parameter list immediately (no space).
		close := strings.Index(rest, ")")
		if close < 0 {
			return errf("", 0, "unterminated macro parameter list in #define %s", name)
		}
		paramStr := rest[1:close]
		body := strings.TrimSpace(rest[close+1:])
		var params []string
		variadic := false
		if strings.TrimSpace(paramStr) != "" {
			for _, p := range strings.Split(paramStr, ",") {
				p = strings.TrimSpace(p)
				if p == "..." {
					variadic = true
					params = append(params, "__VA_ARGS__")
					continue
				}
				params = append(params, p)
			}
		}
		pp.macros[name] = &Macro{FuncLike: true, Params: params, Variadic: variadic, Body: body}
		return nil
	}
	pp.macros[name] = &Macro{Body: strings.TrimSpace(rest)}
	return nil
}

func (pp *Preprocessor) handleInclude(file, arg string, out *strings.Builder) error {
	arg = strings.TrimSpace(arg)
	var angled bool
	var name string
	switch {
	case strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">"):
		angled = true
		name = arg[1 : len(arg)-1]
	case strings.HasPrefix(arg, "\"") && strings.HasSuffix(arg, "\"") && len(arg) >= 2:
		name = arg[1 : len(arg)-1]
	default:
		return errf(file, 0, "malformed #include: %s", arg)
	}

	var candidates []string
	if !angled {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), name))
	}
	candidates = append(candidates, lo.Map(pp.cfg.IncludePaths, func(dir string, _ int) string {
		return filepath.Join(dir, name)
	})...)

	for _, cand := range candidates {
		if _, err := os.Stat(cand); err == nil {
			pp.includeDepth++
			err := pp.resolveFile(cand, out)
			pp.includeDepth--
			return err
		}
	}
	return errf(file, 0, "include file not found: %s", name)
}

func splitDirective(s string) (name, rest string) {
	i := 0
	for i < len(s) && isIdentCont(s[i]) {
		i++
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

// joinContinuations removes backslash-newline line-continuation pairs
// before any other processing (§4.1).
func joinContinuations(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\\\r\n", ""), "\\\n", "")
}

// stripComments removes `//` and `/* … */` comments outside of string and
// character literals (§4.1), replacing block comments with a single space
// so adjacent tokens don't merge.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			j := i + 2
			for j+1 < len(s) && !(s[j] == '*' && s[j+1] == '/') {
				j++
			}
			j = min(j+2, len(s))
			b.WriteByte(' ')
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// expandMacros performs the single macro-expansion scan over fully
// directive-resolved text (§4.1), skipping string/char literal interiors
// and guarding against self-recursive expansion.
func (pp *Preprocessor) expandMacros(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentCont(s[j]) {
				j++
			}
			name := s[i:j]
			expanded, consumed := pp.expandIdent(s, i, j, name, map[string]bool{})
			b.WriteString(expanded)
			i = j + consumed
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// expandIdent expands one macro invocation starting at s[start:end]==name,
// returning the replacement text and the number of extra bytes consumed
// past `end` (e.g. a function-like macro's argument list).
func (pp *Preprocessor) expandIdent(s string, start, end int, name string, disabled map[string]bool) (string, int) {
	m, ok := pp.macros[name]
	if !ok || disabled[name] {
		return name, 0
	}
	if !m.FuncLike {
		next := disabledWith(disabled, name)
		return pp.expandText(m.Body, next), 0
	}
	// function-like: the next non-whitespace character must be '('.
	j := end
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
		j++
	}
	if j >= len(s) || s[j] != '(' {
		return name, 0
	}
	args, closeIdx := scanBalancedArgs(s, j)
	bound := bindArgs(m, args)
	substituted := paste(substitute(m, bound))
	next := disabledWith(disabled, name)
	return pp.expandText(joinToks(substituted), next), closeIdx - end
}

func disabledWith(disabled map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(disabled)+1)
	for k := range disabled {
		next[k] = true
	}
	next[name] = true
	return next
}

// expandText re-scans already-substituted macro output for further
// expansion, honoring the "no name re-expands within its own replacement"
// rule via `disabled`.
func (pp *Preprocessor) expandText(s string, disabled map[string]bool) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			b.WriteString(s[i:j])
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentCont(s[j]) {
				j++
			}
			name := s[i:j]
			expanded, consumed := pp.expandIdent(s, i, j, name, disabled)
			b.WriteString(expanded)
			i = j + consumed
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// scanBalancedArgs parses a parenthesized, balanced, comma-separated
// argument list starting at s[open]=='(' and returns the raw argument
// texts plus the index just past the matching ')'.
func scanBalancedArgs(s string, open int) ([]string, int) {
	depth := 0
	var args []string
	var cur strings.Builder
	i := open
	for i < len(s) {
		c := s[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				cur.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				if cur.Len() > 0 || len(args) > 0 {
					args = append(args, cur.String())
				}
				return args, i + 1
			}
			cur.WriteByte(c)
		case ',':
			if depth == 1 {
				args = append(args, cur.String())
				cur.Reset()
			} else {
				cur.WriteByte(c)
			}
		case '"', '\'':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				j++
			}
			if j < len(s) {
				j++
			}
			cur.WriteString(s[i:j])
			i = j
			continue
		default:
			cur.WriteByte(c)
		}
		i++
	}
	return args, i
}
