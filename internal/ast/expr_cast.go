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

package ast

// Cast is `(Type) expr`. The machine model is uniformly 8-byte and the
// compiler does no type checking, so the node records only the cast's
// struct tag: the parser uses it for field-access resolution ("the most
// recent cast's struct type", §4.3), and codegen uses it as the stride of
// pointer arithmetic on the cast value and to recognize the
// `&((T*)0)->member` idiom. Otherwise codegen lowers a Cast by lowering X.
type Cast struct {
	ExprBase
	StructTag string // "" unless Type names a struct/union
	X         Expr
}
