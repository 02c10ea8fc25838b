package asm

// expansion is one frame of substituted text layered on top of the current
// source. name is set for interpolations and string-equate expansions (it
// shows up in diagnostics); macro argument substitutions are anonymous. The
// painted-blue rule is enforced by LexerState.macroArgScanDistance, not here.
type expansion struct {
	name     string
	named    bool
	contents string
	offset   int
}

// advance steps one byte forward and reports whether the frame is spent.
func (e *expansion) advance() bool {
	e.offset++
	return e.offset > len(e.contents)
}
