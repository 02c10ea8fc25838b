package asm

import (
	"fmt"
	"io"
	"os"
)

// Interp is the directive pass: the minimal token consumer that drives the
// lexer the way the grammar-driven parser does. It handles the directives
// that feed back into lexing (conditionals, macros, loops, includes,
// definitions); every other token streams through untouched.
type Interp struct {
	lx       *Lexer
	fs       *FileStack
	syms     *SymbolTable
	opts     *Options
	diags    *Diagnostics
	charmaps *Charmaps

	Stdout io.Writer

	// Collect makes Run record every token that reaches the consumer; the
	// tests use it for stream assertions.
	Collect bool
	Tokens  []Token

	stopped bool
}

func NewInterp(lx *Lexer, fs *FileStack, syms *SymbolTable, opts *Options, diags *Diagnostics, charmaps *Charmaps) *Interp {
	return &Interp{
		lx:       lx,
		fs:       fs,
		syms:     syms,
		opts:     opts,
		diags:    diags,
		charmaps: charmaps,
		Stdout:   os.Stdout,
	}
}

func (ip *Interp) emit(t Token) {
	if ip.Collect {
		ip.Tokens = append(ip.Tokens, t)
	}
}

// Run consumes the unit's whole token stream.
func (ip *Interp) Run() {
	for !ip.stopped {
		t := ip.lx.NextToken()
		switch t.Kind {
		case EOF:
			return
		case NEWLINE, EOB:
			ip.emit(t)
		default:
			ip.statement(t)
		}
	}
}

func isLineEnd(k Kind) bool { return k == NEWLINE || k == EOB || k == EOF }

// skipToEOL discards tokens to the end of the logical line.
func (ip *Interp) skipToEOL() {
	for {
		t := ip.lx.NextToken()
		if isLineEnd(t.Kind) {
			ip.emit(t)
			return
		}
	}
}

// expectEOL checks that the directive's line is over.
func (ip *Interp) expectEOL() {
	t := ip.lx.NextToken()
	if isLineEnd(t.Kind) {
		ip.emit(t)
		return
	}
	ip.diags.Errorf("Syntax error, unexpected %s at the end of a directive", t)
	ip.skipToEOL()
}

// collectLine gathers the remaining tokens of the line, consuming its
// terminator.
func (ip *Interp) collectLine() []Token {
	var toks []Token
	for {
		t := ip.lx.NextToken()
		if isLineEnd(t.Kind) {
			ip.emit(t)
			return toks
		}
		toks = append(toks, t)
	}
}

// splitArgs splits a token line on top-level commas.
func splitArgs(toks []Token) [][]Token {
	var out [][]Token
	var cur []Token
	depth := 0
	for _, t := range toks {
		switch t.Kind {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
		case COMMA:
			if depth == 0 {
				out = append(out, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return append(out, cur)
}

func (ip *Interp) statement(t Token) {
	// Label definitions come first on a line
	if t.Kind == LABEL || t.Kind == LOCAL {
		name := t.Str
		after := ip.lx.NextToken()

		if after.Kind != COLON && after.Kind != DOUBLE_COLON {
			if t.Kind == LOCAL {
				// A bare local label also defines itself
				if err := ip.syms.AddLabel(name); err != nil {
					ip.diags.Errorf("%v", err)
				}
				ip.emit(t)
				if isLineEnd(after.Kind) {
					ip.emit(after)
					return
				}
				ip.statement(after)
				return
			}
			ip.diags.Errorf("Syntax error, expected ':' after label %q", name)
			ip.skipToEOL()
			return
		}

		next := ip.lx.NextToken()
		if next.Kind == POP_MACRO {
			// Old-style `Name: MACRO` definition
			ip.diags.Warnf(WarningObsolete, "`%s: MACRO` is deprecated; use `MACRO %s`", name, name)
			ip.defineMacro(name)
			return
		}

		if err := ip.syms.AddLabel(name); err != nil {
			ip.diags.Errorf("%v", err)
		}
		if after.Kind == DOUBLE_COLON {
			ip.syms.Export(name)
		}
		ip.emit(t)
		ip.emit(after)
		if isLineEnd(next.Kind) {
			ip.emit(next)
			return
		}
		ip.statement(next)
		return
	}

	switch t.Kind {
	case COLON:
		// An anonymous label definition
		ip.syms.AddAnonLabel()
		next := ip.lx.NextToken()
		if isLineEnd(next.Kind) {
			ip.emit(next)
			return
		}
		ip.statement(next)

	case POP_IF:
		ip.doIf()
	case POP_ELIF:
		ip.doElif()
	case POP_ELSE:
		ip.doElse()
	case POP_ENDC:
		ip.lx.DecIFDepth()
		ip.expectEOL()

	case POP_MACRO:
		ip.doMacroDef()
	case POP_ENDM:
		ip.diags.Errorf("Found ENDM outside of a macro definition")
		ip.skipToEOL()

	case POP_REPT:
		ip.doRept()
	case POP_FOR:
		ip.doFor()
	case POP_ENDR:
		ip.diags.Errorf("Found ENDR outside of a REPT/FOR block")
		ip.skipToEOL()
	case POP_BREAK:
		ip.doBreak()

	case POP_INCLUDE:
		ip.doInclude()

	case OP_DEF:
		ip.doDef(false)
	case POP_REDEF:
		ip.doDef(true)
	case POP_PURGE:
		ip.doPurge()
	case POP_EXPORT:
		ip.doExport()
	case POP_SHIFT:
		ip.doShift()

	case POP_PRINT:
		ip.doPrint(false)
	case POP_PRINTLN:
		ip.doPrint(true)

	case POP_FAIL:
		msg := ip.readMessage()
		ip.diags.Errorf("%s", msg)
	case POP_WARN:
		msg := ip.readMessage()
		ip.diags.Warnf(WarningUser, "%s", msg)
	case POP_FATAL:
		msg := ip.readMessage()
		ip.diags.Fatalf("%s", msg)

	case POP_OPT:
		ip.doOpt()
	case POP_PUSHO:
		ip.opts.Push()
		ip.expectEOL()
	case POP_POPO:
		ip.opts.Pop(ip.diags)
		ip.expectEOL()

	case POP_CHARMAP:
		ip.doCharmap()
	case POP_NEWCHARMAP:
		ip.doNewCharmap()
	case POP_SETCHARMAP:
		if name, ok := ip.readName(); ok {
			if err := ip.charmaps.Set(name); err != nil {
				ip.diags.Errorf("%v", err)
			}
		}
		ip.expectEOL()
	case POP_PUSHC:
		ip.charmaps.Push()
		ip.expectEOL()
	case POP_POPC:
		if err := ip.charmaps.Pop(); err != nil {
			ip.diags.Errorf("%v", err)
		}
		ip.expectEOL()

	case SYMBOL:
		if sym := ip.syms.FindExact(t.Str); sym != nil && sym.Type == SymMacro {
			ip.invokeMacro(sym)
			return
		}
		ip.passLine(t)

	default:
		ip.passLine(t)
	}
}

// passLine streams a non-directive statement through to the consumer.
func (ip *Interp) passLine(t Token) {
	ip.emit(t)
	for {
		t = ip.lx.NextToken()
		ip.emit(t)
		if isLineEnd(t.Kind) {
			return
		}
	}
}

// Conditionals

func (ip *Interp) doIf() {
	ip.lx.IncIFDepth()
	cond, _ := ip.evalTokens(ip.collectLine())
	if cond != 0 {
		ip.lx.RunIfBlock()
	} else {
		ip.lx.SetMode(ModeSkipToElif)
	}
}

func (ip *Interp) doElif() {
	if ip.lx.IFDepth() == 0 {
		ip.diags.Fatalf("Found ELIF outside of an IF construct")
	}
	if ip.lx.RanIfBlock() {
		// A previous branch already ran; the lexer shortcut usually catches
		// this, but an ELIF reached otherwise still skips to the ENDC.
		if ip.lx.ReachedElseBlock() {
			ip.diags.Fatalf("Found ELIF after an ELSE block")
		}
		ip.skipToEOL()
		ip.lx.SetMode(ModeSkipToEndc)
		return
	}
	cond, _ := ip.evalTokens(ip.collectLine())
	if cond != 0 {
		ip.lx.RunIfBlock()
	} else {
		ip.lx.SetMode(ModeSkipToElif)
	}
}

func (ip *Interp) doElse() {
	if ip.lx.IFDepth() == 0 {
		ip.diags.Fatalf("Found ELSE outside of an IF construct")
	}
	if ip.lx.RanIfBlock() {
		// Seen in normal mode after a taken branch: skip the ELSE body.
		if ip.lx.ReachedElseBlock() {
			ip.diags.Fatalf("Found ELSE after an ELSE block")
		}
		ip.lx.ReachElseBlock()
		ip.expectEOL()
		ip.lx.SetMode(ModeSkipToEndc)
		return
	}
	// Returned from skip-to-elif: the skip already flagged the ELSE block;
	// run its body.
	ip.lx.ReachElseBlock()
	ip.lx.RunIfBlock()
	ip.expectEOL()
}

// Macros

func (ip *Interp) doMacroDef() {
	name, ok := ip.readName()
	if !ok {
		ip.skipToEOL()
		return
	}
	ip.defineMacro(name)
}

func (ip *Interp) defineMacro(name string) {
	ip.expectEOL()
	capture := ip.lx.CaptureMacro()
	if capture.Span == nil {
		// Unterminated definition; the lexer reported it
		return
	}
	if err := ip.syms.AddMacro(name, capture.Span, capture.LineNo); err != nil {
		ip.diags.Errorf("%v", err)
	}
}

func (ip *Interp) invokeMacro(sym *Symbol) {
	ip.lx.SetMode(ModeRaw)
	var args []string
	for {
		t := ip.lx.NextToken()
		if isLineEnd(t.Kind) {
			ip.emit(t)
			break
		}
		if t.Kind == STRING {
			args = append(args, t.Str)
		}
	}
	ip.fs.RunMacro(sym, args)
}

// Loops

func (ip *Interp) doRept() {
	count, ok := ip.evalTokens(ip.collectLine())
	capture := ip.lx.CaptureRept()
	if capture.Span == nil || !ok {
		return
	}
	if count > 0 {
		ip.fs.RunRept(uint32(count), capture)
	}
}

func (ip *Interp) doFor() {
	ip.lx.ToggleStringExpansion(false)
	nameTok := ip.lx.NextToken()
	ip.lx.ToggleStringExpansion(true)
	if nameTok.Kind != SYMBOL && nameTok.Kind != LOCAL {
		ip.diags.Errorf("Syntax error, expected a symbol after FOR")
		ip.skipToEOL()
		return
	}
	comma := ip.lx.NextToken()
	if comma.Kind != COMMA {
		ip.diags.Errorf("Syntax error, expected ',' after the FOR symbol")
		ip.skipToEOL()
		return
	}

	parts := splitArgs(ip.collectLine())
	var start, stop, step int32 = 0, 0, 1
	ok := true
	eval := func(toks []Token) int32 {
		v, evalOK := ip.evalTokens(toks)
		ok = ok && evalOK
		return v
	}
	switch len(parts) {
	case 1:
		stop = eval(parts[0])
	case 2:
		start = eval(parts[0])
		stop = eval(parts[1])
	case 3:
		start = eval(parts[0])
		stop = eval(parts[1])
		step = eval(parts[2])
	default:
		ip.diags.Errorf("Syntax error, FOR takes 1 to 3 bounds")
		ok = false
	}

	capture := ip.lx.CaptureRept()
	if capture.Span == nil || !ok {
		return
	}
	ip.fs.RunFor(nameTok.Str, start, stop, step, capture)
}

func (ip *Interp) doBreak() {
	if !ip.fs.BreakCurrentRept() {
		ip.diags.Errorf("BREAK can only be used inside a REPT/FOR block")
		ip.skipToEOL()
		return
	}
	ip.expectEOL()
	ip.lx.SetMode(ModeSkipToEndr)
}

// Includes

func (ip *Interp) doInclude() {
	t := ip.lx.NextToken()
	if t.Kind != STRING {
		ip.diags.Errorf("Syntax error, expected a file name string after INCLUDE")
		ip.skipToEOL()
		return
	}
	ip.fs.RunInclude(t.Str)
	if ip.fs.FailedOnMissingInclude() && ip.fs.MissingInclude == MissingIncludeGenExit {
		// -MG without -MC: the dependency is recorded, stop cleanly
		ip.stopped = true
		return
	}
	ip.expectEOL()
}

// Definitions

// readName reads a symbol name with EQUS expansion off, so the name being
// handled is not itself expanded.
func (ip *Interp) readName() (string, bool) {
	ip.lx.ToggleStringExpansion(false)
	t := ip.lx.NextToken()
	ip.lx.ToggleStringExpansion(true)
	if t.Kind != SYMBOL && t.Kind != LOCAL && t.Kind != LABEL {
		ip.diags.Errorf("Syntax error, expected a symbol name, got %s", t)
		return "", false
	}
	return t.Str, true
}

func (ip *Interp) doDef(redef bool) {
	name, ok := ip.readName()
	if !ok {
		ip.skipToEOL()
		return
	}

	op := ip.lx.NextToken()
	switch op.Kind {
	case POP_EQU:
		value, ok := ip.evalTokens(ip.collectLine())
		if !ok {
			return
		}
		err := ip.syms.AddEqu(name, value)
		if redef {
			err = ip.syms.RedefEqu(name, value)
		}
		if err != nil {
			ip.diags.Errorf("%v", err)
		}

	case POP_EQUAL:
		value, ok := ip.evalTokens(ip.collectLine())
		if !ok {
			return
		}
		if err := ip.syms.SetVar(name, value); err != nil {
			ip.diags.Errorf("%v", err)
		}

	case POP_EQUS:
		t := ip.lx.NextToken()
		if t.Kind != STRING {
			ip.diags.Errorf("Syntax error, expected a string after EQUS")
			ip.skipToEOL()
			return
		}
		err := ip.syms.AddString(name, t.Str)
		if redef {
			err = ip.syms.RedefString(name, t.Str)
		}
		if err != nil {
			ip.diags.Errorf("%v", err)
		}
		ip.expectEOL()

	case POP_ADDEQ, POP_SUBEQ, POP_MULEQ, POP_DIVEQ, POP_MODEQ,
		POP_ANDEQ, POP_OREQ, POP_XOREQ, POP_SHLEQ, POP_SHREQ:
		value, ok := ip.evalTokens(ip.collectLine())
		if !ok {
			return
		}
		sym := ip.syms.FindScoped(name)
		if sym == nil || sym.Type != SymVar {
			ip.diags.Errorf("%q is not a variable", name)
			return
		}
		if err := ip.syms.SetVar(name, applyCompound(op.Kind, sym.Value, value, ip.diags)); err != nil {
			ip.diags.Errorf("%v", err)
		}

	default:
		ip.diags.Errorf("Syntax error, expected EQU, EQUS or an assignment after the symbol name")
		if !isLineEnd(op.Kind) {
			ip.skipToEOL()
		}
	}
}

func applyCompound(op Kind, cur, value int32, diags *Diagnostics) int32 {
	switch op {
	case POP_ADDEQ:
		return int32(uint32(cur) + uint32(value))
	case POP_SUBEQ:
		return int32(uint32(cur) - uint32(value))
	case POP_MULEQ:
		return int32(uint32(cur) * uint32(value))
	case POP_DIVEQ:
		if value == 0 {
			diags.Errorf("Division by zero")
			return 0
		}
		return cur / value
	case POP_MODEQ:
		if value == 0 {
			diags.Errorf("Modulo by zero")
			return 0
		}
		return cur % value
	case POP_ANDEQ:
		return cur & value
	case POP_OREQ:
		return cur | value
	case POP_XOREQ:
		return cur ^ value
	case POP_SHLEQ:
		return int32(uint32(cur) << (uint32(value) & 31))
	default: // POP_SHREQ
		return cur >> (uint32(value) & 31)
	}
}

func (ip *Interp) doPurge() {
	ip.lx.ToggleStringExpansion(false)
	defer ip.lx.ToggleStringExpansion(true)
	for {
		t := ip.lx.NextToken()
		switch {
		case isLineEnd(t.Kind):
			ip.emit(t)
			return
		case t.Kind == COMMA:
		case t.Kind == SYMBOL || t.Kind == LOCAL:
			if err := ip.syms.Purge(t.Str); err != nil {
				ip.diags.Errorf("%v", err)
			}
		default:
			ip.diags.Errorf("Syntax error, expected a symbol name in PURGE")
		}
	}
}

func (ip *Interp) doExport() {
	for {
		t := ip.lx.NextToken()
		switch {
		case isLineEnd(t.Kind):
			ip.emit(t)
			return
		case t.Kind == COMMA:
		case t.Kind == SYMBOL || t.Kind == LOCAL:
			ip.syms.Export(t.Str)
		default:
			ip.diags.Errorf("Syntax error, expected a symbol name in EXPORT")
		}
	}
}

func (ip *Interp) doShift() {
	toks := ip.collectLine()
	amount := int32(1)
	if len(toks) > 0 {
		if v, ok := ip.evalTokens(toks); ok {
			amount = v
		}
	}
	macroArgs := ip.fs.CurrentMacroArgs()
	if macroArgs == nil {
		ip.diags.Errorf("SHIFT cannot be used outside of a macro")
		return
	}
	if !macroArgs.Shift(amount) {
		ip.diags.Errorf("Cannot shift macro arguments by %d", amount)
	}
}

// Output directives

func (ip *Interp) readMessage() string {
	toks := ip.collectLine()
	if len(toks) == 1 && toks[0].Kind == STRING {
		return toks[0].Str
	}
	if len(toks) == 0 {
		return ""
	}
	if v, ok := ip.evalTokens(toks); ok {
		return fmt.Sprintf("$%X", uint32(v))
	}
	return ""
}

func (ip *Interp) doPrint(newline bool) {
	for _, arg := range splitArgs(ip.collectLine()) {
		if len(arg) == 1 && arg[0].Kind == STRING {
			fmt.Fprint(ip.Stdout, arg[0].Str)
			continue
		}
		if len(arg) == 0 {
			continue
		}
		if v, ok := ip.evalTokens(arg); ok {
			fmt.Fprintf(ip.Stdout, "$%X", uint32(v))
		}
	}
	if newline {
		fmt.Fprintln(ip.Stdout)
	}
}

func (ip *Interp) doOpt() {
	ip.lx.SetMode(ModeRaw)
	for {
		t := ip.lx.NextToken()
		if isLineEnd(t.Kind) {
			ip.emit(t)
			return
		}
		if t.Kind == STRING {
			ip.opts.Parse(t.Str, ip.diags)
		}
	}
}

// Charmap directives

func (ip *Interp) doCharmap() {
	t := ip.lx.NextToken()
	if t.Kind != STRING {
		ip.diags.Errorf("Syntax error, expected a string after CHARMAP")
		ip.skipToEOL()
		return
	}
	comma := ip.lx.NextToken()
	if comma.Kind != COMMA {
		ip.diags.Errorf("Syntax error, expected ',' after the CHARMAP string")
		ip.skipToEOL()
		return
	}
	value, ok := ip.evalTokens(ip.collectLine())
	if !ok {
		return
	}
	ip.charmaps.Add(t.Str, value)
}

func (ip *Interp) doNewCharmap() {
	name, ok := ip.readName()
	if !ok {
		ip.skipToEOL()
		return
	}
	base := ""
	t := ip.lx.NextToken()
	if t.Kind == COMMA {
		base, ok = ip.readName()
		if !ok {
			ip.skipToEOL()
			return
		}
		t = ip.lx.NextToken()
	}
	if !isLineEnd(t.Kind) {
		ip.diags.Errorf("Syntax error, unexpected %s after NEWCHARMAP", t)
		ip.skipToEOL()
	} else {
		ip.emit(t)
	}
	if err := ip.charmaps.New(name, base); err != nil {
		ip.diags.Errorf("%v", err)
	}
}
