package output

/*
crt-subs — subdomain discovery via Certificate Transparency logs
Copyright (C) 2026  0xAshura

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package output handles everything the user sees or keeps: severity-tagged
console logging, result display, and the flat-file exporters (txt, json,
csv). None of it holds process-wide state; the logger is a plain value that
gets injected into the components that need one.
*/

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Severity classifies a log line. The console logger maps each severity to
// the classic bracket-tag recon tool prefix.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
	Debug
)

// Logger is a stateless logging interface taking a severity and a message.
// Components receive one explicitly instead of reaching for a singleton.
type Logger interface {
	Logf(sev Severity, format string, args ...any)
}

var (
	infoTag    = color.New(color.FgBlue).Sprint("[*]")
	successTag = color.New(color.FgGreen).Sprint("[+]")
	warningTag = color.New(color.FgYellow).Sprint("[!]")
	errorTag   = color.New(color.FgRed).Sprint("[-]")
	debugTag   = color.New(color.FgCyan).Sprint("[D]")
)

// Console is a Logger that writes colored, tagged lines to Out.
type Console struct {
	Out io.Writer
}

// NewConsole returns a console logger writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{Out: w}
}

// Logf writes one tagged line.
func (c *Console) Logf(sev Severity, format string, args ...any) {
	tag := infoTag
	switch sev {
	case Success:
		tag = successTag
	case Warning:
		tag = warningTag
	case Error:
		tag = errorTag
	case Debug:
		tag = debugTag
	}
	fmt.Fprintf(c.Out, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func (nopLogger) Logf(Severity, string, ...any) {}

// Nop returns a Logger that discards everything. Used in tests.
func Nop() Logger {
	return nopLogger{}
}
