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

package looper

import (
	"github.com/tochemey/goipc/log"
)

// Printer receives the dispatch trace lines of a Looper
type Printer interface {
	Println(line string)
}

// PrinterFunc adapts a function to a Printer
type PrinterFunc func(line string)

// Println implements Printer
func (f PrinterFunc) Println(line string) {
	f(line)
}

// LogPrinter writes the trace lines to a logger at debug level
type LogPrinter struct {
	logger log.Logger
}

// enforce compilation error
var _ Printer = (*LogPrinter)(nil)

// NewLogPrinter creates a LogPrinter
func NewLogPrinter(logger log.Logger) *LogPrinter {
	return &LogPrinter{logger: logger}
}

// Println implements Printer
func (p *LogPrinter) Println(line string) {
	p.logger.Debug(line)
}
