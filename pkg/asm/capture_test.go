package asm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureReptZeroCopy(t *testing.T) {
	src := "db 1\ndb 2\nENDR\n"
	unit := newTestUnit(src)
	capture := unit.Lexer.CaptureRept()
	require.Equal(t, "db 1\ndb 2\n", string(capture.Span))
	require.Zero(t, unit.Diags.NbErrors)
}

func TestCaptureReptNested(t *testing.T) {
	src := "REPT 2\ndb 1\nENDR\nENDR\n"
	unit := newTestUnit(src)
	capture := unit.Lexer.CaptureRept()
	require.Equal(t, "REPT 2\ndb 1\nENDR\n", string(capture.Span))
}

func TestCaptureMacro(t *testing.T) {
	src := "\tld a, 1\nENDM\n"
	unit := newTestUnit(src)
	capture := unit.Lexer.CaptureMacro()
	require.Equal(t, "\tld a, 1\n", string(capture.Span))
}

func TestCaptureIndentedSentinel(t *testing.T) {
	// Leading whitespace before the sentinel stays in the span; only the
	// keyword itself is dropped
	src := "db 1\n  ENDM\n"
	unit := newTestUnit(src)
	capture := unit.Lexer.CaptureMacro()
	require.Equal(t, "db 1\n  ", string(capture.Span))
}

func TestCaptureOwningBuffer(t *testing.T) {
	// A ring-buffered source cannot be zero-copy captured
	opts := NewOptions()
	diags := NewDiagnostics()
	diags.Out = io.Discard
	unit := NewUnit(opts, diags)
	unit.Fstack.InitReader("<stream>", strings.NewReader("db 1\ndb 2\nENDM\n"))
	capture := unit.Lexer.CaptureMacro()
	require.Equal(t, "db 1\ndb 2\n", string(capture.Span))
}

func TestCaptureUnterminatedRept(t *testing.T) {
	unit := newTestUnit("db 1\n")
	capture := unit.Lexer.CaptureRept()
	require.Nil(t, capture.Span)
	require.NotZero(t, unit.Diags.NbErrors)
}

func TestCaptureUnterminatedMacro(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("db 1")
	unit.Diags.Out = &sb
	capture := unit.Lexer.CaptureMacro()
	require.Nil(t, capture.Span)
	require.Contains(t, sb.String(), "Unterminated macro definition")
}

func TestCaptureKeywordsAreWholeWords(t *testing.T) {
	// ENDMOST is not ENDM; the capture must not stop there
	src := "ENDMOST\nENDM\n"
	unit := newTestUnit(src)
	capture := unit.Lexer.CaptureMacro()
	require.Equal(t, "ENDMOST\n", string(capture.Span))
}

func TestCaptureLineNumbers(t *testing.T) {
	// The capture records the directive's line so replays report correct
	// line numbers
	unit := newTestUnit("db 1\nENDR\n")
	unit.Lexer.State().lineNo = 4 // as if REPT had just been lexed on line 4
	capture := unit.Lexer.CaptureRept()
	require.Equal(t, uint32(4), capture.LineNo)
}
