package asm

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Lexer tokenises one assembly unit. It owns the active lexing context, the
// context scheduled to take over at the next end of line, and the on-the-fly
// expansion machinery. A fresh Lexer is built per unit; there is no global
// state.
type Lexer struct {
	state    *LexerState
	stateEOL *LexerState

	opts   *Options
	diags  *Diagnostics
	syms   *SymbolTable
	fstack *FileStack
}

func NewLexer(opts *Options, diags *Diagnostics, syms *SymbolTable) *Lexer {
	lx := &Lexer{opts: opts, diags: diags, syms: syms}
	diags.DumpContext = lx.DumpStringExpansions
	return lx
}

// AtTopLevel reports whether no context is active yet.
func (lx *Lexer) AtTopLevel() bool { return lx.state == nil }

// State returns the active context; the file stack swaps it on include and
// macro boundaries.
func (lx *Lexer) State() *LexerState { return lx.state }

func (lx *Lexer) setAsCurrentState(ls *LexerState) { lx.state = ls }

// scheduleAtEOL makes ls take over when the current line has been fully
// lexed, so partially consumed logical lines never cross contexts.
func (lx *Lexer) scheduleAtEOL(ls *LexerState) { lx.stateEOL = ls }

func (lx *Lexer) nextLine() { lx.state.lineNo++ }

// LineNo returns the 1-based line number of the current source.
func (lx *Lexer) LineNo() uint32 {
	if lx.state == nil {
		return 0
	}
	return lx.state.lineNo
}

func (lx *Lexer) SetMode(mode Mode) { lx.state.mode = mode }

// ToggleStringExpansion turns EQUS auto-expansion on or off; the parser
// disables it while lexing names being defined or purged.
func (lx *Lexer) ToggleStringExpansion(enable bool) { lx.state.expandStrings = enable }

// IF-stack introspection and mutation, driven by the conditional rules of
// the grammar.

func (lx *Lexer) IFDepth() uint32 { return uint32(len(lx.state.ifStack)) }

func (lx *Lexer) IncIFDepth() {
	lx.state.ifStack = append(lx.state.ifStack, ifFrame{})
}

func (lx *Lexer) DecIFDepth() {
	if len(lx.state.ifStack) == 0 {
		lx.diags.Fatalf("Found ENDC outside of an IF construct")
	}
	lx.state.ifStack = lx.state.ifStack[:len(lx.state.ifStack)-1]
}

func (lx *Lexer) topIfFrame() *ifFrame {
	return &lx.state.ifStack[len(lx.state.ifStack)-1]
}

func (lx *Lexer) RanIfBlock() bool        { return lx.topIfFrame().ranIfBlock }
func (lx *Lexer) ReachedElseBlock() bool  { return lx.topIfFrame().reachedElseBlock }
func (lx *Lexer) RunIfBlock()             { lx.topIfFrame().ranIfBlock = true }
func (lx *Lexer) ReachElseBlock()         { lx.topIfFrame().reachedElseBlock = true }

// DumpStringExpansions lists active named expansions after a diagnostic, so
// errors inside an EQUS or interpolation point back at the symbol.
func (lx *Lexer) DumpStringExpansions(w io.Writer) {
	if lx.state == nil {
		return
	}
	for i := len(lx.state.expansions) - 1; i >= 0; i-- {
		// Only named expansions are reported, not macro args
		if exp := &lx.state.expansions[i]; exp.named {
			fmt.Fprintf(w, "while expanding symbol %q\n", exp.name)
		}
	}
}

// beginExpansion layers substituted text on top of the current source.
// Empty strings are not pushed.
func (lx *Lexer) beginExpansion(contents, name string, named bool) {
	if named {
		lx.CheckRecursionDepth()
	}
	if contents == "" {
		return
	}
	lx.state.expansions = append(lx.state.expansions, expansion{
		name:     name,
		named:    named,
		contents: contents,
	})
}

func (lx *Lexer) CheckRecursionDepth() {
	if len(lx.state.expansions) > lx.opts.MaxRecursionDepth+1 {
		lx.diags.Fatalf("Recursion limit (%d) exceeded", lx.opts.MaxRecursionDepth)
	}
}

func isMacroChar(c int) bool {
	return c == '@' || c == '#' || c == '<' || (c >= '1' && c <= '9')
}

func isWhitespace(c int) bool { return c == ' ' || c == '\t' }

func startsIdentifier(c int) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		c == '_' || c == '.' || c == '?'
}

func continuesIdentifier(c int) bool {
	return startsIdentifier(c) || (c >= '0' && c <= '9') || c == '@' || c == '$'
}

// peek returns the next logical character, expanding macro-argument
// references and interpolations on demand. It is written as a loop with a
// restart-after-push step rather than recursing, so huge macro bodies cannot
// overflow the stack.
func (lx *Lexer) peek() int {
	for {
		c := lx.state.peekChar()

		if lx.state.macroArgScanDistance > 0 {
			return c
		}

		lx.state.macroArgScanDistance++ // Do not consider again

		if c == '\\' && !lx.state.disableMacroArgs {
			// If character is a backslash, check for a macro arg
			lx.state.macroArgScanDistance++
			if !isMacroChar(lx.state.peekCharAhead()) {
				return c
			}

			// If character is a macro arg char, do macro arg expansion
			lx.shift()
			if str, ok := lx.readMacroArg(); ok {
				lx.beginExpansion(str, "", false)

				// Mark the entire expansion as painted blue so that macro
				// args can't be recursive
				lx.state.macroArgScanDistance += len(str)
			}
			continue // Restart with the pushed expansion on top
		} else if c == '{' && !lx.state.disableInterpolation {
			// If character is an open brace, do symbol interpolation
			lx.shift()
			if str, ok := lx.readInterpolation(0); ok {
				lx.beginExpansion(str, str, true)
			}
			continue
		}

		return c
	}
}

// shift advances one byte, recording it first when a capture is active.
func (lx *Lexer) shift() {
	ls := lx.state

	if ls.capturing {
		if ls.captureBuf != nil {
			if c := lx.peek(); c != eofChar {
				ls.captureBuf = append(ls.captureBuf, byte(c))
			}
		}
		ls.captureSize++
	}

	if ls.macroArgScanDistance > 0 {
		ls.macroArgScanDistance--
	}

	for {
		if n := len(ls.expansions); n > 0 {
			// Advance within the current expansion; an already exhausted
			// frame is popped, and its parent advanced instead.
			if ls.expansions[n-1].advance() {
				ls.expansions = ls.expansions[:n-1]
				continue
			}
			return
		}
		if ls.view != nil {
			ls.view.advance()
		} else {
			ls.buffered.advance()
		}
		return
	}
}

// bump consumes and returns the current character.
func (lx *Lexer) bump() int {
	c := lx.peek()
	if c != eofChar {
		lx.shift()
	}
	return c
}

// next consumes the current character and peeks at the following one.
func (lx *Lexer) next() int {
	lx.shift()
	return lx.peek()
}

// handleCRLF folds a \r\n pair into a single line terminator; the caller has
// consumed the \r.
func (lx *Lexer) handleCRLF(c int) {
	if c == '\r' && lx.peek() == '\n' {
		lx.shift()
	}
}

// disableExpansions suppresses macro-arg and interpolation expansion until
// the returned restore function runs.
func (lx *Lexer) disableExpansions() func() {
	ls := lx.state
	savedArgs, savedInterp := ls.disableMacroArgs, ls.disableInterpolation
	ls.disableMacroArgs = true
	ls.disableInterpolation = true
	return func() {
		ls.disableMacroArgs = savedArgs
		ls.disableInterpolation = savedInterp
	}
}

// readBracketedMacroArgNum resolves the `<expr>` of a `\<expr>` reference:
// a signed decimal number, or a symbol name (optionally `#`-prefixed to
// bypass the keyword check) holding a numeric constant.
func (lx *Lexer) readBracketedMacroArgNum() int32 {
	ls := lx.state
	savedArgs, savedInterp := ls.disableMacroArgs, ls.disableInterpolation
	ls.disableMacroArgs = false
	ls.disableInterpolation = false
	defer func() {
		ls.disableMacroArgs = savedArgs
		ls.disableInterpolation = savedInterp
	}()

	var num int32
	c := lx.peek()
	empty := false
	symbolError := false
	negative := c == '-'

	if negative {
		c = lx.next()
	}

	if c >= '0' && c <= '9' {
		n := lx.readDecimalNumber(lx.bump())
		if n > math.MaxInt32 {
			lx.diags.Errorf("Number in bracketed macro argument is too large")
			return 0
		}
		num = int32(n)
		if negative {
			num = -num
		}
	} else if startsIdentifier(c) || c == '#' {
		if c == '#' {
			c = lx.next()
			if !startsIdentifier(c) {
				lx.diags.Errorf("Empty raw symbol in bracketed macro argument")
				return 0
			}
		}

		var symName strings.Builder
		for ; continuesIdentifier(c); c = lx.next() {
			symName.WriteByte(byte(c))
		}

		if sym := lx.syms.FindScoped(symName.String()); sym == nil {
			if lx.syms.IsPurgedScoped(symName.String()) {
				lx.diags.Errorf("Bracketed symbol %q does not exist; it was purged", symName.String())
			} else {
				lx.diags.Errorf("Bracketed symbol %q does not exist", symName.String())
			}
			num = 0
			symbolError = true
		} else if !sym.IsNumeric() {
			lx.diags.Errorf("Bracketed symbol %q is not numeric", symName.String())
			num = 0
			symbolError = true
		} else {
			num = sym.Value
		}
	} else {
		empty = true
	}

	c = lx.bump()
	if c != '>' {
		lx.diags.Errorf("Invalid character in bracketed macro argument %s", printChar(c))
		return 0
	} else if empty {
		lx.diags.Errorf("Empty bracketed macro argument")
		return 0
	} else if num == 0 && !symbolError {
		lx.diags.Errorf(`Invalid bracketed macro argument '\<0>'`)
		return 0
	}
	return num
}

// readMacroArg resolves one macro-argument reference; the backslash has been
// consumed, the introducer has not.
func (lx *Lexer) readMacroArg() (string, bool) {
	switch c := lx.bump(); c {
	case '@':
		str, ok := lx.fstack.UniqueIDStr()
		if !ok {
			lx.diags.Errorf(`'\@' cannot be used outside of a macro or REPT/FOR block`)
		}
		return str, ok

	case '#':
		macroArgs := lx.fstack.CurrentMacroArgs()
		if macroArgs == nil {
			lx.diags.Errorf(`'\#' cannot be used outside of a macro`)
			return "", false
		}
		// '\#' is always defined, at least as an empty string
		return macroArgs.AllArgs(), true

	case '<':
		num := lx.readBracketedMacroArgNum()
		if num == 0 {
			// The error was already reported by readBracketedMacroArgNum
			return "", false
		}

		macroArgs := lx.fstack.CurrentMacroArgs()
		if macroArgs == nil {
			lx.diags.Errorf(`'\<%d>' cannot be used outside of a macro`, num)
			return "", false
		}

		str, ok := macroArgs.Arg(num)
		if !ok {
			lx.diags.Errorf(`Macro argument '\<%d>' not defined`, num)
		}
		return str, ok

	default: // '1'..'9'
		macroArgs := lx.fstack.CurrentMacroArgs()
		if macroArgs == nil {
			lx.diags.Errorf(`'\%c' cannot be used outside of a macro`, c)
			return "", false
		}

		str, ok := macroArgs.Arg(int32(c - '0'))
		if !ok {
			lx.diags.Errorf(`Macro argument '\%c' not defined`, c)
		}
		return str, ok
	}
}

// readInterpolation reads a `{body}` past its opening brace and resolves it
// to the formatted value of the named symbol. Nested interpolations recurse,
// each level counting against the recursion limit.
func (lx *Lexer) readInterpolation(depth int) (string, bool) {
	if depth > lx.opts.MaxRecursionDepth {
		lx.diags.Fatalf("Recursion limit (%d) exceeded", lx.opts.MaxRecursionDepth)
	}

	var fmtBuf strings.Builder
	var spec FormatSpec

	// While interpolation is disabled, peek will not expand nested
	// interpolations; this function handles them itself by recursing with
	// depth+1, which is checked against the recursion limit.
	ls := lx.state
	savedInterp := ls.disableInterpolation
	ls.disableInterpolation = true
	defer func() { ls.disableInterpolation = savedInterp }()

	for {
		if c := lx.peek(); c == '{' { // Nested interpolation
			lx.shift()
			if str, ok := lx.readInterpolation(depth + 1); ok {
				lx.beginExpansion(str, str, true)
			}
			continue // Restart, reading from the new buffer
		} else if c == eofChar || c == '\r' || c == '\n' || c == '"' {
			lx.diags.Errorf("Missing }")
			break
		} else if c == '}' {
			lx.shift()
			break
		} else if c == ':' && !spec.IsFinished() { // Format spec, only once
			lx.shift()
			for i := 0; i < fmtBuf.Len(); i++ {
				spec.UseCharacter(fmtBuf.String()[i])
			}
			spec.Finish()
			if !spec.IsValid() {
				lx.diags.Errorf("Invalid format spec %q", fmtBuf.String())
			}
			fmtBuf.Reset() // Restart at the beginning of the symbol name
		} else {
			lx.shift()
			fmtBuf.WriteByte(byte(c))
		}
	}

	name := fmtBuf.String()
	if rest, ok := strings.CutPrefix(name, "#"); ok {
		// A '#' prefix makes the body a raw symbol, skipping the keyword
		// check; it is stripped after expanding nested interpolations.
		name = rest
	} else if isKeyword(name) {
		lx.diags.Errorf(
			"Interpolated symbol %q is a reserved keyword; add a '#' prefix to use it as a raw symbol",
			name,
		)
		return "", false
	}

	sym := lx.syms.FindScoped(name)
	switch {
	case sym == nil:
		if lx.syms.IsPurgedScoped(name) {
			lx.diags.Errorf("Interpolated symbol %q does not exist; it was purged", name)
		} else {
			lx.diags.Errorf("Interpolated symbol %q does not exist", name)
		}
	case sym.Type == SymEqus:
		var sb strings.Builder
		if err := spec.AppendString(&sb, sym.Str); err != nil {
			lx.diags.Errorf("%v", err)
			return "", false
		}
		return sb.String(), true
	case sym.IsNumeric():
		var sb strings.Builder
		if err := spec.AppendNumber(&sb, uint32(sym.Value), lx.opts); err != nil {
			lx.diags.Errorf("%v", err)
			return "", false
		}
		return sb.String(), true
	default:
		lx.diags.Errorf("Interpolated symbol %q is not a numeric or string symbol", name)
	}
	return "", false
}
