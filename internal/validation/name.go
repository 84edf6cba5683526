// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"fmt"
	"strings"
)

const (
	// MaxServiceNameLength is the largest service name the registry accepts
	MaxServiceNameLength = 127
)

// nameValidator checks a registry service name
type nameValidator struct {
	name string
}

var _ Validator = (*nameValidator)(nil)

// NewServiceNameValidator creates a validator for registry service names.
// A name is valid when it holds between 1 and MaxServiceNameLength bytes and no NUL byte.
func NewServiceNameValidator(name string) Validator {
	return &nameValidator{name: name}
}

// Validate executes the validation
func (v *nameValidator) Validate() error {
	chain := New(FailFast()).
		AddAssertion(v.name != "", "service name is required").
		AddValidator(NewLengthValidator("service name", v.name, 1, MaxServiceNameLength)).
		AddAssertion(!strings.ContainsRune(v.name, 0), fmt.Sprintf("service name %q contains a NUL byte", v.name))
	return chain.Validate()
}
