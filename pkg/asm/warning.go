package asm

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// WarningID names a warning category. Each category can be disabled or
// promoted to an error independently via -W flags.
type WarningID int

const (
	WarningLargeConstant WarningID = iota // constant does not fit 32 bits
	WarningObsolete                       // deprecated keyword (LDIO, ...)
	WarningNestedComment                  // `/*` inside a block comment
	WarningPurgedSymbol                   // reference to a purged symbol
	WarningUser                           // WARN directive

	nbWarnings
)

var warningFlags = [nbWarnings]string{
	WarningLargeConstant: "large-constant",
	WarningObsolete:      "obsolete",
	WarningNestedComment: "nested-comment",
	WarningPurgedSymbol:  "purged-symbol",
	WarningUser:          "user",
}

type warnLevel int

const (
	warnEnabled warnLevel = iota
	warnDisabled
	warnPromoted // reported as an error
)

// fatalError is the sentinel carried by the panic that a fatal diagnostic
// raises. CatchFatal converts it back into an ordinary error at the driver
// boundary; the lexer itself never returns errors to the token consumer.
type fatalError struct {
	msg string
}

// Diagnostics owns the warning state and the error budget of one assembly
// unit.
type Diagnostics struct {
	Out       io.Writer
	MaxErrors uint64
	NbErrors  uint64

	warningsEnabled bool
	levels          [nbWarnings]warnLevel

	// Where reports the current source location; wired up by the file stack.
	Where func() (path string, lineNo uint32)
	// DumpContext prints active expansions after a diagnostic; wired up by
	// the lexer.
	DumpContext func(w io.Writer)
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Out: os.Stderr, warningsEnabled: true}
}

func (d *Diagnostics) location() string {
	if d.Where == nil {
		return ""
	}
	path, lineNo := d.Where()
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s(%d): ", path, lineNo)
}

func (d *Diagnostics) print(kind, suffix, format string, args ...any) {
	fmt.Fprintf(d.Out, "%s: %s", kind, d.location())
	fmt.Fprintf(d.Out, format, args...)
	fmt.Fprintf(d.Out, "%s\n", suffix)
	if d.DumpContext != nil {
		d.DumpContext(d.Out)
	}
}

// Warnf emits a categorised warning, or an error if the category has been
// promoted. Warnings never stop assembly.
func (d *Diagnostics) Warnf(id WarningID, format string, args ...any) {
	if !d.warningsEnabled || d.levels[id] == warnDisabled {
		return
	}
	if d.levels[id] == warnPromoted {
		d.print("error", fmt.Sprintf(" [-Werror=%s]", warningFlags[id]), format, args...)
		d.countError()
		return
	}
	d.print("warning", fmt.Sprintf(" [-W%s]", warningFlags[id]), format, args...)
}

// Errorf emits an error and counts it against the error budget. Assembly
// continues so later problems are still reported.
func (d *Diagnostics) Errorf(format string, args ...any) {
	d.print("error", "", format, args...)
	d.countError()
}

func (d *Diagnostics) countError() {
	d.NbErrors++
	if d.MaxErrors != 0 && d.NbErrors >= d.MaxErrors {
		d.Fatalf("Assembly aborted after %d errors", d.NbErrors)
	}
}

// Fatalf reports a non-recoverable condition and unwinds to the nearest
// CatchFatal.
func (d *Diagnostics) Fatalf(format string, args ...any) {
	d.print("fatal", "", format, args...)
	panic(fatalError{msg: fmt.Sprintf(format, args...)})
}

// RequireZeroErrors returns a non-nil error iff any error was reported.
func (d *Diagnostics) RequireZeroErrors() error {
	if d.NbErrors == 0 {
		return nil
	}
	plural := "s"
	if d.NbErrors == 1 {
		plural = ""
	}
	return fmt.Errorf("assembly aborted with %d error%s", d.NbErrors, plural)
}

// DisableWarnings implements -w.
func (d *Diagnostics) DisableWarnings() {
	d.warningsEnabled = false
}

// ProcessWarningFlag implements -W. Accepted forms: a flag name, "no-" +
// name, "error" (promote everything), "error=" + name, and the meta flags
// "all" / "everything".
func (d *Diagnostics) ProcessWarningFlag(flag string) error {
	level := warnEnabled
	if rest, ok := strings.CutPrefix(flag, "no-"); ok {
		flag, level = rest, warnDisabled
	} else if flag == "error" {
		for id := range d.levels {
			d.levels[id] = warnPromoted
		}
		return nil
	} else if rest, ok := strings.CutPrefix(flag, "error="); ok {
		flag, level = rest, warnPromoted
	}

	if flag == "all" || flag == "everything" {
		for id := range d.levels {
			d.levels[id] = level
		}
		return nil
	}
	for id, name := range warningFlags {
		if name == flag {
			d.levels[id] = level
			return nil
		}
	}
	return fmt.Errorf("unknown warning flag %q", flag)
}

// CatchFatal runs fn, converting a fatal diagnostic into an error.
func CatchFatal(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(fatalError); ok {
				err = fmt.Errorf("fatal: %s", f.msg)
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// printChar renders a byte for inclusion in a diagnostic.
func printChar(c int) string {
	switch {
	case c == eofChar:
		return "end of input"
	case c == '\n':
		return "'\\n'"
	case c == '\r':
		return "'\\r'"
	case c == '\t':
		return "'\\t'"
	case c >= ' ' && c <= '~':
		return fmt.Sprintf("'%c'", c)
	default:
		return fmt.Sprintf("0x%02X", c)
	}
}
