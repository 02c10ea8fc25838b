package asm

import (
	"fmt"
	"os"
)

// Mode selects which top-level recogniser runs on the next NextToken call.
type Mode int

const (
	ModeNormal Mode = iota
	ModeRaw
	ModeSkipToElif
	ModeSkipToEndc
	ModeSkipToEndr
)

// ifFrame is one entry of the per-context conditional stack.
type ifFrame struct {
	ranIfBlock       bool // whether an IF/ELIF/ELSE block ran in this frame
	reachedElseBlock bool // whether an ELSE block has been reached already
}

// LexerState is the lexing context of one active source unit: a file, a
// macro invocation, a REPT/FOR body replay, or a fragment literal.
type LexerState struct {
	path string

	// Exactly one of view/buffered is set.
	view     *viewedContent
	buffered *bufferedContent

	mode        Mode
	atLineStart bool
	lastToken   Kind
	nextToken   Kind // pre-queued token, used for the `]]` synthetic EOL

	ifStack []ifFrame

	capturing    bool
	captureBuf   []byte // nil while capturing means zero-copy capture
	captureStart int    // view offset at capture start (zero-copy only)
	captureSize  int

	disableMacroArgs     bool
	disableInterpolation bool
	macroArgScanDistance int
	expandStrings        bool

	expansions []expansion // innermost last

	lineNo uint32
}

func (ls *LexerState) clear(lineNo uint32) {
	ls.mode = ModeNormal
	ls.atLineStart = true
	ls.lastToken = EOF
	ls.nextToken = 0

	ls.ifStack = ls.ifStack[:0]

	ls.capturing = false
	ls.captureBuf = nil
	ls.captureSize = 0

	ls.disableMacroArgs = false
	ls.disableInterpolation = false
	ls.macroArgScanDistance = 0
	ls.expandStrings = true

	ls.expansions = ls.expansions[:0]

	ls.lineNo = lineNo // Will be incremented at next line start
}

// newFileState opens path ("-" denotes stdin) as a new lexing context.
// Regular files are read whole into a viewedContent; stdin gets a ring
// buffer.
func newFileState(path string) (*LexerState, error) {
	ls := &LexerState{}
	if path == "-" {
		ls.path = "<stdin>"
		ls.buffered = newBufferedContent(os.Stdin)
	} else {
		ls.path = path
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %q: %w", path, err)
		}
		ls.view = &viewedContent{bytes: contents}
	}
	ls.clear(0)
	return ls, nil
}

// newViewState wraps an in-memory span (a macro body, a REPT capture, a
// fragment literal) as a new lexing context. name is used in diagnostics.
func newViewState(name string, span []byte, lineNo uint32) *LexerState {
	ls := &LexerState{path: name, view: &viewedContent{bytes: span}}
	ls.clear(lineNo)
	return ls
}

// restartRept rewinds a view-backed context to its start for the next
// REPT/FOR iteration.
func (ls *LexerState) restartRept(lineNo uint32) {
	if ls.view != nil {
		ls.view.offset = 0
	}
	ls.clear(lineNo)
}

func (ls *LexerState) close() {
	if ls.buffered != nil {
		ls.buffered.close()
	}
}

// peekChar returns the next logical byte, descending into expansion frames,
// without performing any on-the-fly expansion.
func (ls *LexerState) peekChar() int {
	for i := len(ls.expansions) - 1; i >= 0; i-- {
		if exp := &ls.expansions[i]; exp.offset < len(exp.contents) {
			return int(exp.contents[exp.offset])
		}
	}

	if ls.view != nil {
		return ls.view.peek(0)
	}
	return ls.buffered.peek(0)
}

// peekCharAhead peeks one byte past the current position. Only one byte of
// lookahead is ever needed, to recognise macro-argument introducers.
func (ls *LexerState) peekCharAhead() int {
	distance := 1

	for i := len(ls.expansions) - 1; i >= 0; i-- {
		// An exhausted expansion has offset == len(contents); lookahead
		// continues into its parent.
		exp := &ls.expansions[i]
		if idx := exp.offset + distance; idx < len(exp.contents) {
			return int(exp.contents[idx])
		}
		distance -= len(exp.contents) - exp.offset
	}

	if ls.view != nil {
		return ls.view.peek(distance)
	}
	return ls.buffered.peek(distance)
}
