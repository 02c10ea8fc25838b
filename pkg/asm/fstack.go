package asm

import (
	"fmt"
	"os"
	"path/filepath"
)

// ContextType discriminates the file stack entries.
type ContextType int

const (
	ContextFile ContextType = iota
	ContextMacro
	ContextRept
	ContextFor
	ContextFragment
)

type fstackContext struct {
	typ   ContextType
	state *LexerState

	macroArgs *MacroArgs
	uniqueID  uint32

	// REPT/FOR replay state
	reptRemaining uint32
	broke         bool
	forName       string
	forValue      int32
	forStep       int32
	bodyLineNo    uint32
}

// MissingIncludeState selects what happens when an INCLUDE target does not
// exist on disk while generating dependency files.
type MissingIncludeState int

const (
	MissingIncludeFatal    MissingIncludeState = iota
	MissingIncludeGenExit                      // -MG: record the dependency, stop cleanly
	MissingIncludeContinue                     // -MG -MC: record and assemble past it
)

// FileStack manages the stack of lexing contexts: one per INCLUDE, macro
// invocation, REPT/FOR replay, or fragment literal. Context switches happen
// at end-of-line boundaries only.
type FileStack struct {
	lexer *Lexer
	opts  *Options
	diags *Diagnostics
	syms  *SymbolTable

	contexts     []*fstackContext
	includePaths []string
	preInclude   string

	nextUniqueID uint32

	MissingInclude         MissingIncludeState
	failedOnMissingInclude bool

	// OnFileOpened records dependencies; wired up by the -M machinery.
	OnFileOpened func(path string)
}

func NewFileStack(lexer *Lexer, opts *Options, diags *Diagnostics, syms *SymbolTable) *FileStack {
	fs := &FileStack{lexer: lexer, opts: opts, diags: diags, syms: syms}
	lexer.fstack = fs
	diags.Where = fs.Where
	syms.NargFn = func() (int32, bool) {
		if ma := fs.CurrentMacroArgs(); ma != nil {
			return ma.NArg(), true
		}
		return 0, false
	}
	syms.LineFn = lexer.LineNo
	return fs
}

// AddIncludePath appends a directory to the include search list.
func (fs *FileStack) AddIncludePath(path string) {
	fs.includePaths = append(fs.includePaths, path)
}

// SetPreIncludeFile registers a file to process before the main input.
func (fs *FileStack) SetPreIncludeFile(path string) {
	fs.preInclude = path
}

// Where reports the active source location for diagnostics.
func (fs *FileStack) Where() (string, uint32) {
	if len(fs.contexts) == 0 || fs.lexer.state == nil {
		return "", 0
	}
	return fs.lexer.state.path, fs.lexer.state.lineNo
}

// Backtrace returns the active context paths, innermost last.
func (fs *FileStack) Backtrace() []string {
	out := make([]string, 0, len(fs.contexts))
	for _, ctx := range fs.contexts {
		out = append(out, ctx.state.path)
	}
	return out
}

func (fs *FileStack) FailedOnMissingInclude() bool { return fs.failedOnMissingInclude }

func (fs *FileStack) top() *fstackContext {
	return fs.contexts[len(fs.contexts)-1]
}

func (fs *FileStack) checkDepth() {
	if len(fs.contexts) > fs.opts.MaxRecursionDepth {
		fs.diags.Fatalf("Recursion limit (%d) exceeded", fs.opts.MaxRecursionDepth)
	}
}

// Init opens the main input file ("-" = stdin) and activates it; the
// pre-include file, if any, is stacked on top so it is processed first.
func (fs *FileStack) Init(mainPath string) error {
	state, err := newFileState(mainPath)
	if err != nil {
		return err
	}
	fs.contexts = append(fs.contexts, &fstackContext{typ: ContextFile, state: state})
	fs.lexer.setAsCurrentState(state)
	if fs.OnFileOpened != nil && mainPath != "-" {
		fs.OnFileOpened(mainPath)
	}

	if fs.preInclude != "" {
		fs.RunInclude(fs.preInclude)
		// The pre-include takes over immediately, not at the next EOL
		if fs.lexer.stateEOL != nil {
			fs.lexer.setAsCurrentState(fs.lexer.stateEOL)
			fs.lexer.stateEOL = nil
		}
	}
	return nil
}

// resolveInclude finds an include target: the path as given first, then
// each -I directory in order.
func (fs *FileStack) resolveInclude(path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	for _, dir := range fs.includePaths {
		full := filepath.Join(dir, path)
		if _, err := os.Stat(full); err == nil {
			return full, true
		}
	}
	return "", false
}

// RunInclude stacks a new file context; it becomes active at the next end
// of line. A missing file is fatal unless dependency generation says
// otherwise.
func (fs *FileStack) RunInclude(path string) {
	full, found := fs.resolveInclude(path)
	if !found {
		if fs.MissingInclude != MissingIncludeFatal {
			if fs.OnFileOpened != nil {
				fs.OnFileOpened(path)
			}
			fs.failedOnMissingInclude = fs.MissingInclude == MissingIncludeGenExit
			return
		}
		fs.diags.Fatalf("Unable to open included file %q", path)
	}

	state, err := newFileState(full)
	if err != nil {
		fs.diags.Fatalf("%v", err)
	}
	if fs.OnFileOpened != nil {
		fs.OnFileOpened(full)
	}

	fs.contexts = append(fs.contexts, &fstackContext{typ: ContextFile, state: state})
	fs.checkDepth()
	fs.lexer.scheduleAtEOL(state)
}

// RunMacro stacks an invocation of macro with the given unparsed arguments.
func (fs *FileStack) RunMacro(macro *Symbol, args []string) {
	state := newViewState(fmt.Sprintf("<macro %s>", macro.Name), macro.Body, macro.BodyLineNo)
	fs.nextUniqueID++
	fs.contexts = append(fs.contexts, &fstackContext{
		typ:       ContextMacro,
		state:     state,
		macroArgs: NewMacroArgs(args),
		uniqueID:  fs.nextUniqueID,
	})
	fs.checkDepth()
	fs.lexer.scheduleAtEOL(state)
}

// RunRept stacks count replays of a captured body.
func (fs *FileStack) RunRept(count uint32, body Capture) {
	if count == 0 || body.Span == nil {
		return
	}
	state := newViewState("<REPT block>", body.Span, body.LineNo)
	fs.nextUniqueID++
	fs.contexts = append(fs.contexts, &fstackContext{
		typ:           ContextRept,
		state:         state,
		reptRemaining: count,
		uniqueID:      fs.nextUniqueID,
		bodyLineNo:    body.LineNo,
	})
	fs.checkDepth()
	fs.lexer.scheduleAtEOL(state)
}

// RunFor stacks replays of a captured body with symName stepping from start
// towards stop.
func (fs *FileStack) RunFor(symName string, start, stop, step int32, body Capture) {
	if body.Span == nil {
		return
	}
	count := forIterationCount(start, stop, step, fs.diags)
	if err := fs.syms.SetVar(symName, start); err != nil {
		fs.diags.Errorf("%v", err)
		return
	}
	if count == 0 {
		return
	}

	state := newViewState("<FOR block>", body.Span, body.LineNo)
	fs.nextUniqueID++
	fs.contexts = append(fs.contexts, &fstackContext{
		typ:           ContextFor,
		state:         state,
		reptRemaining: count,
		forName:       symName,
		forValue:      start,
		forStep:       step,
		uniqueID:      fs.nextUniqueID,
		bodyLineNo:    body.LineNo,
	})
	fs.checkDepth()
	fs.lexer.scheduleAtEOL(state)
}

func forIterationCount(start, stop, step int32, diags *Diagnostics) uint32 {
	switch {
	case step > 0 && start < stop:
		return uint32((int64(stop) - int64(start) + int64(step) - 1) / int64(step))
	case step < 0 && start > stop:
		return uint32((int64(start) - int64(stop) - int64(step) - 1) / -int64(step))
	case step == 0:
		diags.Errorf("FOR cannot have a step value of 0")
	}
	return 0
}

// RunFragment stacks a `[[ ... ]]` fragment literal's contents.
func (fs *FileStack) RunFragment(contents string, lineNo uint32) {
	state := newViewState("<fragment>", []byte(contents), lineNo)
	fs.nextUniqueID++
	fs.contexts = append(fs.contexts, &fstackContext{
		typ:      ContextFragment,
		state:    state,
		uniqueID: fs.nextUniqueID,
	})
	fs.checkDepth()
	fs.lexer.scheduleAtEOL(state)
}

// BreakCurrentRept stops the innermost REPT/FOR from iterating further.
func (fs *FileStack) BreakCurrentRept() bool {
	for i := len(fs.contexts) - 1; i >= 0; i-- {
		if ctx := fs.contexts[i]; ctx.typ == ContextRept || ctx.typ == ContextFor {
			ctx.broke = true
			return true
		}
	}
	return false
}

// CurrentMacroArgs returns the innermost macro invocation's arguments.
func (fs *FileStack) CurrentMacroArgs() *MacroArgs {
	for i := len(fs.contexts) - 1; i >= 0; i-- {
		if ctx := fs.contexts[i]; ctx.typ == ContextMacro {
			return ctx.macroArgs
		}
	}
	return nil
}

// UniqueIDStr returns the `\@` expansion of the innermost macro or
// REPT/FOR context.
func (fs *FileStack) UniqueIDStr() (string, bool) {
	for i := len(fs.contexts) - 1; i >= 0; i-- {
		switch ctx := fs.contexts[i]; ctx.typ {
		case ContextMacro, ContextRept, ContextFor:
			return fmt.Sprintf("_u%d", ctx.uniqueID), true
		}
	}
	return "", false
}

// yywrap handles the end of the active context's buffer: replaying REPT/FOR
// iterations, or popping the context. It reports true when the whole stack
// is exhausted.
func (fs *FileStack) yywrap() bool {
	if len(fs.contexts) == 0 {
		return true
	}
	ctx := fs.top()

	switch ctx.typ {
	case ContextRept:
		if ctx.reptRemaining > 1 && !ctx.broke {
			ctx.reptRemaining--
			fs.nextUniqueID++
			ctx.uniqueID = fs.nextUniqueID
			ctx.state.restartRept(ctx.bodyLineNo)
			return false
		}
	case ContextFor:
		if ctx.reptRemaining > 1 && !ctx.broke {
			ctx.reptRemaining--
			ctx.forValue += ctx.forStep
			if err := fs.syms.SetVar(ctx.forName, ctx.forValue); err != nil {
				fs.diags.Errorf("%v", err)
			}
			fs.nextUniqueID++
			ctx.uniqueID = fs.nextUniqueID
			ctx.state.restartRept(ctx.bodyLineNo)
			return false
		}
	}

	// Pop the context, preserving conditional-stack invariants
	if n := len(ctx.state.ifStack); n != 0 {
		fs.diags.Errorf("Unterminated IF construct (%d levels)", n)
	}
	ctx.state.close()
	fs.contexts = fs.contexts[:len(fs.contexts)-1]
	if len(fs.contexts) == 0 {
		return true
	}
	fs.lexer.setAsCurrentState(fs.top().state)
	return false
}
