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

import (
	"fmt"
	"strings"

	"github.com/gorse-io/ccarm/internal/token"
)

// Error is a fatal parse failure (spec §7: Parse error), carrying a
// context window of tokens around the failure point for diagnostics.
type Error struct {
	Offset  int
	Msg     string
	Context string
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("cc: offset %d: parse error: %s\n  near: %s", e.Offset, e.Msg, e.Context)
	}
	return fmt.Sprintf("cc: offset %d: parse error: %s", e.Offset, e.Msg)
}

// contextWindow renders up to 2 tokens before pos, the token at pos
// (marked `>>`), and up to 2 after, for the diagnostic context window
// (§4.3 failure modes).
func contextWindow(toks []token.Token, pos int) string {
	lo := pos - 2
	if lo < 0 {
		lo = 0
	}
	hi := pos + 3
	if hi > len(toks) {
		hi = len(toks)
	}
	var parts []string
	for i := lo; i < hi; i++ {
		marker := ""
		if i == pos {
			marker = ">>"
		}
		parts = append(parts, marker+toks[i].Lexeme)
	}
	return strings.Join(parts, " ")
}
