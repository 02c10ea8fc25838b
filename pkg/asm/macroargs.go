package asm

import "strings"

// MacroArgs holds the unparsed positional arguments of one macro invocation.
// SHIFT renumbers them by moving a window start; `\1` is always relative to
// the current shift.
type MacroArgs struct {
	args  []string
	shift int
}

func NewMacroArgs(args []string) *MacroArgs {
	return &MacroArgs{args: args}
}

// Arg returns the i-th positional argument (1-based, shift-relative).
func (ma *MacroArgs) Arg(i int32) (string, bool) {
	idx := int(i) + ma.shift
	if i < 1 || idx > len(ma.args) {
		return "", false
	}
	return ma.args[idx-1], true
}

// AllArgs returns the `\#` expansion: every remaining argument joined with
// commas.
func (ma *MacroArgs) AllArgs() string {
	return strings.Join(ma.args[ma.shift:], ",")
}

// NArg returns the number of arguments still visible after shifting.
func (ma *MacroArgs) NArg() int32 {
	return int32(len(ma.args) - ma.shift)
}

// Shift drops n arguments from the front of the window. Shifting past either
// end reports false and leaves the window clamped.
func (ma *MacroArgs) Shift(n int32) bool {
	shifted := ma.shift + int(n)
	ok := shifted >= 0 && shifted <= len(ma.args)
	ma.shift = min(max(shifted, 0), len(ma.args))
	return ok
}
