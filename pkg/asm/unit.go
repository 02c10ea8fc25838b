package asm

import "io"

// Unit wires together everything one assembly run needs: options,
// diagnostics, symbol table, charmaps, lexer, file stack and the directive
// pass. Tests and drivers instantiate fresh ones; nothing is global.
type Unit struct {
	Opts     *Options
	Diags    *Diagnostics
	Syms     *SymbolTable
	Charmaps *Charmaps
	Lexer    *Lexer
	Fstack   *FileStack
	Interp   *Interp
}

func NewUnit(opts *Options, diags *Diagnostics) *Unit {
	syms := NewSymbolTable()
	charmaps := NewCharmaps()
	lexer := NewLexer(opts, diags, syms)
	fstack := NewFileStack(lexer, opts, diags, syms)
	interp := NewInterp(lexer, fstack, syms, opts, diags, charmaps)
	return &Unit{
		Opts:     opts,
		Diags:    diags,
		Syms:     syms,
		Charmaps: charmaps,
		Lexer:    lexer,
		Fstack:   fstack,
		Interp:   interp,
	}
}

// InitString activates an in-memory buffer as the unit's main input.
func (fs *FileStack) InitString(name, src string) {
	state := newViewState(name, []byte(src), 0)
	fs.contexts = append(fs.contexts, &fstackContext{typ: ContextFile, state: state})
	fs.lexer.setAsCurrentState(state)
}

// InitReader activates a stream as the unit's main input, read through the
// ring buffer the same way stdin is.
func (fs *FileStack) InitReader(name string, r io.Reader) {
	state := &LexerState{path: name, buffered: newBufferedContent(r)}
	state.clear(0)
	fs.contexts = append(fs.contexts, &fstackContext{typ: ContextFile, state: state})
	fs.lexer.setAsCurrentState(state)
}
