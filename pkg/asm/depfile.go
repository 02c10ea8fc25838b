package asm

import (
	"fmt"
	"io"
	"strings"
)

// DepFile streams a Make-style dependency file while the assembly unit's
// inputs are being opened.
type DepFile struct {
	W             io.Writer
	TargetFiles   string // space-joined; -MQ targets arrive pre-escaped
	GeneratePhony bool   // -MP

	seen map[string]bool
}

// MakeEscape escapes Make-special characters: every '$' is doubled.
func MakeEscape(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// FileOpened records path as a prerequisite of the unit's targets. It is
// wired into the file stack's OnFileOpened hook.
func (df *DepFile) FileOpened(path string) {
	if df.W == nil || df.seen[path] {
		return
	}
	if df.seen == nil {
		df.seen = make(map[string]bool)
	}
	df.seen[path] = true

	fmt.Fprintf(df.W, "%s: %s\n", df.TargetFiles, path)
	if df.GeneratePhony {
		// A phony rule keeps Make happy when the prerequisite disappears
		fmt.Fprintf(df.W, "%s:\n", path)
	}
}
