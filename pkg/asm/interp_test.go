package asm

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func dbPayloads(tokens []Token) []uint32 {
	var out []uint32
	for i, tk := range tokens {
		if tk.Kind == POP_DB && i+1 < len(tokens) && tokens[i+1].Kind == NUMBER {
			out = append(out, tokens[i+1].Num)
		}
	}
	return out
}

func TestIfElifChain(t *testing.T) {
	src := "IF 0\ndb 1\nELIF 1\ndb 2\nENDC\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{2}, dbPayloads(tokens))
}

func TestIfTakenSkipsElif(t *testing.T) {
	src := "IF 1\ndb 1\nELIF 1\ndb 2\nELSE\ndb 3\nENDC\ndb 4\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 4}, dbPayloads(tokens))
}

func TestIfElseTaken(t *testing.T) {
	src := "IF 0\ndb 1\nELSE\ndb 2\nENDC\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{2}, dbPayloads(tokens))
}

func TestIfNesting(t *testing.T) {
	// The skipped outer branch contains a whole nested construct; the
	// skipper must track depth to find the matching ELSE.
	src := "IF 0\nIF 1\ndb 1\nELSE\ndb 2\nENDC\nELSE\ndb 3\nENDC\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{3}, dbPayloads(tokens))
}

func TestIfConditionExpressions(t *testing.T) {
	src := "DEF V EQU 5\n" +
		"IF V > 3 && DEF(V)\ndb 1\nENDC\n" +
		"IF !DEF(W)\ndb 2\nENDC\n" +
		"IF (V + 3) * 2 == 16\ndb 3\nENDC\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 2, 3}, dbPayloads(tokens))
}

func TestElseAfterElseIsFatal(t *testing.T) {
	unit := newTestUnit("IF 1\nELSE\nELSE\nENDC\n")
	unit.Interp.Stdout = io.Discard
	err := CatchFatal(unit.Interp.Run)
	require.ErrorContains(t, err, "ELSE after an ELSE block")
}

func TestEndcUnderflowIsFatal(t *testing.T) {
	unit := newTestUnit("ENDC\n")
	unit.Interp.Stdout = io.Discard
	err := CatchFatal(unit.Interp.Run)
	require.ErrorContains(t, err, "ENDC outside of an IF construct")
}

func TestUnterminatedIfIsReported(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("IF 1\ndb 1\n")
	unit.Diags.Out = &sb
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Contains(t, sb.String(), "Unterminated IF construct")
}

func TestReptReplays(t *testing.T) {
	src := "REPT 3\ndb 1\nENDR\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 1, 1}, dbPayloads(tokens))
}

func TestReptZeroSkipsBody(t *testing.T) {
	src := "REPT 0\ndb 1\nENDR\ndb 2\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{2}, dbPayloads(tokens))
}

func TestReptRoundTrip(t *testing.T) {
	// Replaying a captured span n times matches n inlined copies
	body := "db 1\ndb 2\n"
	_, looped := runSource(t, "REPT 3\n"+body+"ENDR\n")
	_, inlined := runSource(t, strings.Repeat(body, 3))
	require.Equal(t, dbPayloads(inlined), dbPayloads(looped))
}

func TestNestedRept(t *testing.T) {
	src := "REPT 2\nREPT 2\ndb 1\nENDR\nENDR\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 1, 1, 1}, dbPayloads(tokens))
}

func TestForLoop(t *testing.T) {
	src := "FOR i, 3\ndb {d:i}\nENDR\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{0, 1, 2}, dbPayloads(tokens))
}

func TestForLoopBounds(t *testing.T) {
	src := "FOR i, 10, 0, -4\ndb {d:i}\nENDR\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{10, 6, 2}, dbPayloads(tokens))
}

func TestForZeroStepIsError(t *testing.T) {
	unit, _ := runSource(t, "FOR i, 0, 5, 0\ndb 1\nENDR\n")
	require.NotZero(t, unit.Diags.NbErrors)
}

func TestBreakStopsRept(t *testing.T) {
	src := "REPT 10\ndb 1\nBREAK\nENDR\ndb 2\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 2}, dbPayloads(tokens))
}

func TestBreakOutsideReptIsError(t *testing.T) {
	unit, _ := runSource(t, "BREAK\n")
	require.NotZero(t, unit.Diags.NbErrors)
}

func TestUnterminatedReptIsError(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("REPT 2\ndb 1\n")
	unit.Diags.Out = &sb
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Contains(t, sb.String(), "Unterminated REPT/FOR block")
}

func TestUnterminatedMacroIsError(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("MACRO foo\ndb 1\n")
	unit.Diags.Out = &sb
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Contains(t, sb.String(), "Unterminated macro definition")
	require.Nil(t, unit.Syms.FindExact("foo"))
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inc.asm"), []byte("db 2\n"), 0o644))

	unit := newTestUnit("db 1\nINCLUDE \"inc.asm\"\ndb 3\n")
	unit.Interp.Collect = true
	unit.Interp.Stdout = io.Discard
	unit.Fstack.AddIncludePath(dir)
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{1, 2, 3}, dbPayloads(unit.Interp.Tokens))
}

func TestIncludeMissingIsFatal(t *testing.T) {
	unit := newTestUnit("INCLUDE \"nope.asm\"\n")
	unit.Interp.Stdout = io.Discard
	err := CatchFatal(unit.Interp.Run)
	require.ErrorContains(t, err, "Unable to open included file")
}

func TestIncludeMissingWithDepGeneration(t *testing.T) {
	var dep strings.Builder
	unit := newTestUnit("INCLUDE \"gen/generated.asm\"\ndb 1\n")
	unit.Interp.Stdout = io.Discard
	unit.Fstack.MissingInclude = MissingIncludeGenExit
	depFile := &DepFile{W: &dep, TargetFiles: "out.o"}
	unit.Fstack.OnFileOpened = depFile.FileOpened
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.True(t, unit.Fstack.FailedOnMissingInclude())
	require.Contains(t, dep.String(), "out.o: gen/generated.asm")
}

func TestDefAndRedef(t *testing.T) {
	src := "DEF X EQU 1\n" +
		"REDEF X EQU 2\n" +
		"DEF V = 1\n" +
		"DEF V += 9\n" +
		"DEF S EQUS \"text\"\n"
	unit, _ := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, int32(2), unit.Syms.FindExact("X").Value)
	require.Equal(t, int32(10), unit.Syms.FindExact("V").Value)
	require.Equal(t, "text", unit.Syms.FindExact("S").Str)
}

func TestDefEquRedefinitionIsError(t *testing.T) {
	unit, _ := runSource(t, "DEF A EQU 1\nDEF A EQU 2\n")
	require.NotZero(t, unit.Diags.NbErrors)
}

func TestPurgeDistinguishesNeverDefined(t *testing.T) {
	unit, _ := runSource(t, "DEF X EQU 1\nPURGE X\n")
	require.Zero(t, unit.Diags.NbErrors)
	require.Nil(t, unit.Syms.FindExact("X"))
	require.True(t, unit.Syms.IsPurgedScoped("X"))
	require.False(t, unit.Syms.IsPurgedScoped("B"))
}

func TestLabelScopes(t *testing.T) {
	src := "Global:\n.loc\nOther:\n.loc\n"
	unit, _ := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.NotNil(t, unit.Syms.FindExact("Global.loc"))
	require.NotNil(t, unit.Syms.FindExact("Other.loc"))
}

func TestPrintln(t *testing.T) {
	var out strings.Builder
	unit := newTestUnit("PRINTLN \"value: \", 255\nPRINT \"no newline\"\n")
	unit.Interp.Stdout = &out
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Equal(t, "value: $FF\nno newline", out.String())
}

func TestFailAndWarn(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("WARN \"heads up\"\nFAIL \"boom\"\n")
	unit.Diags.Out = &sb
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Equal(t, uint64(1), unit.Diags.NbErrors)
	require.Contains(t, sb.String(), "heads up")
	require.Contains(t, sb.String(), "boom")
}

func TestFatalDirective(t *testing.T) {
	unit := newTestUnit("FATAL \"stop now\"\n")
	unit.Interp.Stdout = io.Discard
	err := CatchFatal(unit.Interp.Run)
	require.ErrorContains(t, err, "stop now")
}

func TestOptionStack(t *testing.T) {
	src := "PUSHO\nOPT b.X\ndb %XX.\nPOPO\ndb %10\n"
	unit, tokens := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)
	require.Equal(t, []uint32{6, 2}, dbPayloads(tokens))
}

func TestMaxErrorsAborts(t *testing.T) {
	unit := newTestUnit("db \\1\ndb \\1\ndb \\1\n")
	unit.Diags.MaxErrors = 2
	unit.Interp.Stdout = io.Discard
	err := CatchFatal(unit.Interp.Run)
	require.ErrorContains(t, err, "Assembly aborted after 2 errors")
}

func TestWarningPromotion(t *testing.T) {
	unit := newTestUnit("ldio a, [c]\n")
	require.NoError(t, unit.Diags.ProcessWarningFlag("error=obsolete"))
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Equal(t, uint64(1), unit.Diags.NbErrors)
}

func TestWarningDisable(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("ldio a, [c]\n")
	unit.Diags.Out = &sb
	require.NoError(t, unit.Diags.ProcessWarningFlag("no-obsolete"))
	unit.Interp.Stdout = io.Discard
	require.NoError(t, CatchFatal(unit.Interp.Run))
	require.Empty(t, sb.String())
}

func TestStateFileDump(t *testing.T) {
	src := "DEF X EQU 255\n" +
		"DEF V = 3\n" +
		"DEF S EQUS \"hi\"\n" +
		"CHARMAP \"x\", 7\n" +
		"MACRO m\ndb 1\nENDM\n"
	unit, _ := runSource(t, src)
	require.Zero(t, unit.Diags.NbErrors)

	var sb strings.Builder
	features, err := ParseStateFeatures("all")
	require.NoError(t, err)
	require.NoError(t, WriteState(&sb, features, unit.Syms, unit.Charmaps))

	out := sb.String()
	require.Contains(t, out, "def X equ $FF\n")
	require.Contains(t, out, "def V = $3\n")
	require.Contains(t, out, "def S equs \"hi\"\n")
	require.Contains(t, out, "charmap \"x\", $7\n")
	require.Contains(t, out, "macro m\ndb 1\nendm\n")
}

func TestStateFeatureSubset(t *testing.T) {
	features, err := ParseStateFeatures("equ, macro")
	require.NoError(t, err)
	require.Equal(t, []StateFeature{StateEqu, StateMacro}, features)

	_, err = ParseStateFeatures("bogus")
	require.Error(t, err)
}

func TestStateFileRoundTrip(t *testing.T) {
	// A dumped state file must be consumable as source again
	unit, _ := runSource(t, "DEF X EQU 255\nDEF S EQUS \"hi\"\n")
	var sb strings.Builder
	features, _ := ParseStateFeatures("all")
	require.NoError(t, WriteState(&sb, features, unit.Syms, unit.Charmaps))

	reread, _ := runSource(t, sb.String())
	require.Zero(t, reread.Diags.NbErrors)
	require.Equal(t, int32(255), reread.Syms.FindExact("X").Value)
	require.Equal(t, "hi", reread.Syms.FindExact("S").Str)
}

func TestDepFileOutput(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "inc.asm")
	require.NoError(t, os.WriteFile(incPath, []byte("db 2\n"), 0o644))

	var dep strings.Builder
	unit := newTestUnit("INCLUDE \"" + incPath + "\"\n")
	unit.Interp.Stdout = io.Discard
	depFile := &DepFile{W: &dep, TargetFiles: "out.o", GeneratePhony: true}
	unit.Fstack.OnFileOpened = depFile.FileOpened
	require.NoError(t, CatchFatal(unit.Interp.Run))

	require.Contains(t, dep.String(), "out.o: "+incPath+"\n")
	require.Contains(t, dep.String(), incPath+":\n")
}

func TestMakeEscape(t *testing.T) {
	require.Equal(t, "a$$b$$", MakeEscape("a$b$"))
}
