package asm

import (
	"io"
	"reflect"
	"strings"
	"testing"
)

// newTestUnit builds a fresh assembly unit over an in-memory source.
func newTestUnit(src string) *Unit {
	opts := NewOptions()
	diags := NewDiagnostics()
	diags.Out = io.Discard
	unit := NewUnit(opts, diags)
	unit.Fstack.InitString("test.asm", src)
	return unit
}

// lexAll drains the token stream, including the final EOB.
func lexAll(unit *Unit) []Token {
	var tokens []Token
	for {
		t := unit.Lexer.NextToken()
		if t.Kind == EOF {
			return tokens
		}
		tokens = append(tokens, t)
	}
}

func TestLexNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint32
	}{
		{"Binary", "%1010", 10},
		{"Binary with underscores", "%0110_1010", 106},
		{"Hex dollar", "$FF", 255},
		{"Hex 0x", "0x1A", 26},
		{"Hex uppercase prefix", "0XfF", 255},
		{"Decimal with leading zero", "010", 10},
		{"Decimal", "123456", 123456},
		{"Decimal with underscores", "1_000", 1000},
		{"Octal ampersand", "&17", 15},
		{"Octal 0o", "0o17", 15},
		{"Binary 0b", "0b101", 5},
		{"Gfx", "`0123", 0x0305},
		{"Gfx all dark", "`33333333", 0xFF00 | 0xFF},
		{"Fixed point", "1.5", 98304},
		{"Fixed point explicit precision", "2.5q8", 640},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			unit := newTestUnit(tc.input)
			got := lexAll(unit)
			want := []Token{numTok(tc.want), tok(EOB)}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("lex(%q) = %v; want %v", tc.input, got, want)
			}
			if unit.Diags.NbErrors != 0 {
				t.Errorf("lex(%q) reported %d errors", tc.input, unit.Diags.NbErrors)
			}
		})
	}
}

func TestLexTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{
			name:  "Empty",
			input: "",
			want:  []Token{tok(EOB)},
		},
		{
			name:  "Operators",
			input: "+ - * / % ** ++ & | ^ ~ << >> >>> && || ! == != < > <= >=",
			want: []Token{
				tok(OP_ADD), tok(OP_SUB), tok(OP_MUL), tok(OP_DIV), tok(OP_MOD),
				tok(OP_EXP), tok(OP_CAT), tok(OP_AND), tok(OP_OR), tok(OP_XOR),
				tok(OP_NOT), tok(OP_SHL), tok(OP_SHR), tok(OP_USHR),
				tok(OP_LOGICAND), tok(OP_LOGICOR), tok(OP_LOGICNOT),
				tok(OP_LOGICEQU), tok(OP_LOGICNE), tok(OP_LOGICLT), tok(OP_LOGICGT),
				tok(OP_LOGICLE), tok(OP_LOGICGE), tok(EOB),
			},
		},
		{
			name:  "Assignment operators",
			input: "= += -= *= /= %= &= |= ^= <<= >>=",
			want: []Token{
				tok(POP_EQUAL), tok(POP_ADDEQ), tok(POP_SUBEQ), tok(POP_MULEQ),
				tok(POP_DIVEQ), tok(POP_MODEQ), tok(POP_ANDEQ), tok(POP_OREQ),
				tok(POP_XOREQ), tok(POP_SHLEQ), tok(POP_SHREQ), tok(EOB),
			},
		},
		{
			name:  "Keywords case-insensitive",
			input: "ld LD Ld db REPT endm",
			want: []Token{
				tok(SM83_LD), tok(SM83_LD), tok(SM83_LD), tok(POP_DB),
				tok(POP_REPT), tok(POP_ENDM), tok(EOB),
			},
		},
		{
			name:  "Instruction line",
			input: "ld a, [hl]\n",
			want: []Token{
				tok(SM83_LD), tok(TOKEN_A), tok(COMMA), tok(LBRACK), tok(MODE_HL),
				tok(RBRACK), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Symbols and locals",
			input: "foo .loc foo.bar ...",
			want: []Token{
				strTok(SYMBOL, "foo"), strTok(LOCAL, ".loc"),
				strTok(LOCAL, "foo.bar"), strTok(SYMBOL, "..."), tok(EOB),
			},
		},
		{
			name:  "Label definition vs invocation",
			input: "Label: other :\n",
			want: []Token{
				strTok(LABEL, "Label"), tok(COLON), strTok(SYMBOL, "other"),
				tok(COLON), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Exported label",
			input: "Label::\n",
			want: []Token{
				strTok(LABEL, "Label"), tok(DOUBLE_COLON), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Anonymous label refs",
			input: ": jr :+ \n jr :--\n",
			want: []Token{
				tok(COLON), tok(SM83_JR), strTok(ANON, "!0"), tok(NEWLINE),
				tok(SM83_JR), strTok(ANON, "!-2"), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "At sign is a symbol",
			input: "db @\n",
			want: []Token{
				tok(POP_DB), strTok(SYMBOL, "@"), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Raw identifier bypasses keywords",
			input: "#ld",
			want:  []Token{strTok(SYMBOL, "ld"), tok(EOB)},
		},
		{
			name:  "Comment to end of line",
			input: "db 1 ; comment, with ** tokens\ndb 2\n",
			want: []Token{
				tok(POP_DB), numTok(1), tok(NEWLINE),
				tok(POP_DB), numTok(2), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Block comment",
			input: "db /* nothing \n to see */ 3\n",
			want:  []Token{tok(POP_DB), numTok(3), tok(NEWLINE), tok(EOB)},
		},
		{
			name:  "Line continuation",
			input: "db 1 + \\\n 2\n",
			want: []Token{
				tok(POP_DB), numTok(1), tok(OP_ADD), numTok(2), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "CRLF is one newline",
			input: "db 1\r\ndb 2\r\n",
			want: []Token{
				tok(POP_DB), numTok(1), tok(NEWLINE),
				tok(POP_DB), numTok(2), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Fragment literal brackets",
			input: "[[ db 1 ]]",
			want: []Token{
				tok(LBRACKS), tok(POP_DB), numTok(1),
				tok(NEWLINE), tok(RBRACKS), tok(EOB),
			},
		},
		{
			name:  "Strings",
			input: `db "hello", "a\tb"` + "\n",
			want: []Token{
				tok(POP_DB), strTok(STRING, "hello"), tok(COMMA),
				strTok(STRING, "a\tb"), tok(NEWLINE), tok(EOB),
			},
		},
		{
			name:  "Empty string",
			input: `db ""` + "\n",
			want:  []Token{tok(POP_DB), strTok(STRING, ""), tok(NEWLINE), tok(EOB)},
		},
		{
			name:  "Raw string keeps escapes",
			input: `db #"a\n"` + "\n",
			want:  []Token{tok(POP_DB), strTok(STRING, `a\n`), tok(NEWLINE), tok(EOB)},
		},
		{
			name:  "Multi-line string",
			input: "db \"\"\"a\nb\"\"\"\n",
			want:  []Token{tok(POP_DB), strTok(STRING, "a\nb"), tok(NEWLINE), tok(EOB)},
		},
		{
			name:  "Multi-line string with inner quotes",
			input: "db \"\"\"a\"b\"\"\"\n",
			want:  []Token{tok(POP_DB), strTok(STRING, `a"b`), tok(NEWLINE), tok(EOB)},
		},
		{
			name:  "Character literal",
			input: "db 'a'\n",
			want:  []Token{tok(POP_DB), strTok(CHARACTER, "a"), tok(NEWLINE), tok(EOB)},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			unit := newTestUnit(tc.input)
			got := lexAll(unit)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("lex(%q) =\n%v\nwant\n%v", tc.input, got, tc.want)
			}
			if unit.Diags.NbErrors != 0 {
				t.Errorf("lex(%q) reported %d errors", tc.input, unit.Diags.NbErrors)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Unterminated string", "db \"abc\n"},
		{"Unterminated character", "db 'a\n"},
		{"No digits after dollar", "db $\n"},
		{"No digits after 0b prefix", "db 0bz\n"},
		{"No digits after backquote", "db `x\n"},
		{"Garbage character", "db \x01\n"},
		{"Invalid line continuation", "db 1 \\ x\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			unit := newTestUnit(tc.input)
			lexAll(unit)
			if unit.Diags.NbErrors == 0 {
				t.Errorf("lex(%q) reported no error", tc.input)
			}
		})
	}
}

func TestUnterminatedBlockCommentIsFatal(t *testing.T) {
	unit := newTestUnit("db 1 /* foo")
	err := CatchFatal(func() { lexAll(unit) })
	if err == nil || !strings.Contains(err.Error(), "Unterminated block comment") {
		t.Errorf("expected a fatal unterminated-comment diagnostic, got %v", err)
	}
}

func TestLexGarbageGrouping(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("\x01\x02\x03\n")
	unit.Diags.Out = &sb
	lexAll(unit)
	if unit.Diags.NbErrors != 1 {
		t.Errorf("consecutive garbage reported %d errors; want one grouped report", unit.Diags.NbErrors)
	}
	if !strings.Contains(sb.String(), "Unknown characters") {
		t.Errorf("diagnostic %q does not group the characters", sb.String())
	}
}

func TestLexObsoleteLdio(t *testing.T) {
	var sb strings.Builder
	unit := newTestUnit("ldio a, [c]\n")
	unit.Diags.Out = &sb
	got := lexAll(unit)
	if got[0].Kind != SM83_LDH {
		t.Errorf("LDIO lexed as %v; want the LDH token", got[0])
	}
	if !strings.Contains(sb.String(), "LDIO is deprecated") {
		t.Errorf("no obsolete warning emitted, got %q", sb.String())
	}
}

func TestLexBinDigitAliases(t *testing.T) {
	unit := newTestUnit("%.X.X\n")
	unit.Opts.SetBinDigits([]byte(".X"), unit.Diags)
	got := lexAll(unit)
	want := []Token{numTok(5), tok(NEWLINE), tok(EOB)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("aliased binary = %v; want %v", got, want)
	}
}

func TestLexGfxDigitAliases(t *testing.T) {
	unit := newTestUnit("`.xXo\n")
	unit.Opts.SetGfxDigits([]byte(".xXo"), unit.Diags)
	got := lexAll(unit)
	want := []Token{numTok(0x0305), tok(NEWLINE), tok(EOB)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("aliased gfx = %v; want %v", got, want)
	}
}

func TestLexLineNumbers(t *testing.T) {
	unit := newTestUnit("db 1\ndb 2\ndb 3\n")
	for lx := unit.Lexer; ; {
		tk := lx.NextToken()
		if tk.Kind == EOB || tk.Kind == EOF {
			break
		}
		if tk.Kind == NUMBER && tk.Num != uint32(lx.LineNo()) {
			t.Errorf("number %d lexed on reported line %d", tk.Num, lx.LineNo())
		}
	}
}

func TestLexBufferedReader(t *testing.T) {
	// Large enough to force several ring-buffer refills
	var sb strings.Builder
	for i := 0; i < 20000; i++ {
		sb.WriteString("db 255\n")
	}
	opts := NewOptions()
	diags := NewDiagnostics()
	diags.Out = io.Discard
	unit := NewUnit(opts, diags)
	unit.Fstack.InitReader("<stream>", strings.NewReader(sb.String()))

	count := 0
	for {
		tk := unit.Lexer.NextToken()
		if tk.Kind == EOF {
			break
		}
		if tk.Kind == NUMBER {
			if tk.Num != 255 {
				t.Fatalf("number %d; want 255", tk.Num)
			}
			count++
		}
	}
	if count != 20000 {
		t.Errorf("lexed %d numbers; want 20000", count)
	}
}
