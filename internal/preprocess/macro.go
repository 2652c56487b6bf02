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

package preprocess

import (
	"strings"

	"github.com/samber/lo"
)

// Macro is a table entry: `name → {parameters?, replacement text}` (§4.1).
type Macro struct {
	FuncLike bool
	Params   []string
	Variadic bool // last parameter is __VA_ARGS__
	Body     string
}

// ppTok is a minimal macro-body token: an identifier/number run, a string or
// char literal (kept whole, quotes included), or a single punctuation byte.
// It exists only to let macro expansion reason about token boundaries for
// `#` stringification and `##` pasting; it is not the compiler's Token type
// (that belongs to the lexer, which only ever sees already-expanded text).
type ppTok struct {
	text  string
	ident bool // identifier or number: candidate for further macro expansion
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// tokenizeBody splits macro-body text into ppToks, preserving whitespace
// as a single-space separator token so re-joining stays readable.
func tokenizeBody(s string) []ppTok {
	var out []ppTok
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			j := i
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			out = append(out, ppTok{text: " "})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentCont(s[j]) {
				j++
			}
			out = append(out, ppTok{text: s[i:j], ident: true})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(s) && (isIdentCont(s[j]) || s[j] == '.') {
				j++
			}
			out = append(out, ppTok{text: s[i:j], ident: true})
			i = j
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
			out = append(out, ppTok{text: s[i:j]})
			i = j
		case c == '#' && i+1 < len(s) && s[i+1] == '#':
			out = append(out, ppTok{text: "##"})
			i += 2
		default:
			out = append(out, ppTok{text: string(c)})
			i++
		}
	}
	return out
}

// bindArgs maps formal parameter names to argument text for a function-like
// macro invocation, folding trailing variadic arguments into __VA_ARGS__.
func bindArgs(m *Macro, args []string) map[string]string {
	bound := map[string]string{}
	n := len(m.Params)
	for i, p := range m.Params {
		if i < len(args) {
			bound[p] = strings.TrimSpace(args[i])
		} else {
			bound[p] = ""
		}
	}
	if m.Variadic {
		var rest []string
		// m.Params ends with "__VA_ARGS__", so the variadic run starts at
		// argument n-1.
		if len(args) > n-1 {
			rest = args[n-1:]
		}
		bound["__VA_ARGS__"] = strings.TrimSpace(strings.Join(rest, ","))
	}
	return bound
}

// substitute expands `#`-stringification and plain parameter substitution in
// a macro body, returning ppToks ready for `##` pasting.
func substitute(m *Macro, bound map[string]string) []ppTok {
	body := tokenizeBody(m.Body)
	out := make([]ppTok, 0, len(body))
	for i := 0; i < len(body); i++ {
		t := body[i]
		if t.text == "#" && i+1 < len(body) {
			// stringification: skip intervening whitespace tokens
			j := i + 1
			for j < len(body) && body[j].text == " " {
				j++
			}
			if j < len(body) && body[j].ident {
				if val, ok := bound[body[j].text]; ok {
					out = append(out, ppTok{text: quoteArg(val)})
					i = j
					continue
				}
			}
		}
		if t.ident {
			if val, ok := bound[t.text]; ok {
				out = append(out, tokenizeBody(val)...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func quoteArg(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// paste applies `##` token pasting over an already-substituted token stream.
func paste(toks []ppTok) []ppTok {
	out := make([]ppTok, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		if toks[i].text == "##" {
			// drop surrounding whitespace and glue neighbors
			for len(out) > 0 && out[len(out)-1].text == " " {
				out = out[:len(out)-1]
			}
			j := i + 1
			for j < len(toks) && toks[j].text == " " {
				j++
			}
			if len(out) > 0 && j < len(toks) {
				left := out[len(out)-1]
				right := toks[j]
				out[len(out)-1] = ppTok{text: left.text + right.text, ident: isIdentStart(left.text[0])}
				i = j
				continue
			}
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

func joinToks(toks []ppTok) string {
	return strings.Join(lo.Map(toks, func(t ppTok, _ int) string { return t.text }), "")
}
