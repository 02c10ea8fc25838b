package asm

// Functions to discard non-tokenized characters

func (lx *Lexer) discardBlockComment() {
	restore := lx.disableExpansions()
	defer restore()
	for {
		c := lx.bump()

		switch c {
		case eofChar:
			lx.diags.Fatalf("Unterminated block comment")
		case '\r':
			lx.handleCRLF(c)
			fallthrough
		case '\n':
			if len(lx.state.expansions) == 0 {
				lx.nextLine()
			}
		case '/':
			if lx.peek() == '*' {
				lx.diags.Warnf(WarningNestedComment, "/* in block comment")
			}
		case '*':
			if lx.peek() == '/' {
				lx.shift()
				return
			}
		}
	}
}

func (lx *Lexer) discardComment() {
	restore := lx.disableExpansions()
	defer restore()
	for ; ; lx.shift() {
		if c := lx.peek(); c == eofChar || c == '\r' || c == '\n' {
			break
		}
	}
}

// discardLineContinuation eats the whitespace and newline after a trailing
// backslash, so the logical line continues on the next physical one.
func (lx *Lexer) discardLineContinuation() {
	for {
		if c := lx.peek(); isWhitespace(c) {
			lx.shift()
		} else if c == '\r' || c == '\n' {
			lx.shift()
			lx.handleCRLF(c)
			if len(lx.state.expansions) == 0 {
				lx.nextLine()
			}
			break
		} else if c == ';' {
			lx.discardComment()
		} else if c == eofChar {
			lx.diags.Errorf("Invalid line continuation at end of file")
			break
		} else {
			lx.diags.Errorf("Invalid character after line continuation %s", printChar(c))
			break
		}
	}
}

// Functions to read identifiers and keywords

func (lx *Lexer) readIdentifier(firstChar byte, raw bool) Token {
	identifier := []byte{firstChar}
	tokenKind := SYMBOL
	if firstChar == '.' {
		tokenKind = LOCAL
	}

	// Continue reading while the char is in the identifier charset
	for c := lx.peek(); continuesIdentifier(c); c = lx.next() {
		identifier = append(identifier, byte(c))

		// If the char was a dot, the identifier is a local label
		if c == '.' {
			tokenKind = LOCAL
		}
	}

	// Attempt to check for a keyword if the identifier is not raw
	if !raw {
		if kind, ok := lookupKeyword(string(identifier)); ok {
			if isLdioSpelling(identifier) {
				lx.diags.Warnf(WarningObsolete, "LDIO is deprecated; use LDH")
			}
			return tok(kind)
		}
	}

	// Label scopes `.` and `..` are the only nonlocal identifiers that
	// consist of dots only
	if allDots(identifier) {
		tokenKind = SYMBOL
	}

	return strTok(tokenKind, string(identifier))
}

func isLdioSpelling(identifier []byte) bool {
	if len(identifier) != 4 {
		return false
	}
	upper := [4]byte{}
	for i, c := range identifier {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return upper == [4]byte{'L', 'D', 'I', 'O'}
}

func allDots(identifier []byte) bool {
	for _, c := range identifier {
		if c != '.' {
			return false
		}
	}
	return true
}

// Functions to read strings

// appendExpandedString appends expanded text to a literal; in raw mode the
// characters that would need escaping are re-escaped, so a macro argument
// survives another round of lexing.
func (lx *Lexer) appendExpandedString(str []byte, expanded string) []byte {
	if lx.state.mode != ModeRaw {
		return append(str, expanded...)
	}

	for i := 0; i < len(expanded); i++ {
		c := expanded[i]
		switch c {
		case '\n':
			str = append(str, '\\', 'n')
		case '\r':
			str = append(str, '\\', 'r')
		case '\t':
			str = append(str, '\\', 't')
		case 0:
			str = append(str, '\\', '0')
		case '\\', '"', '\'', '{':
			str = append(str, '\\', c)
		default:
			str = append(str, c)
		}
	}
	return str
}

// appendCharInLiteral handles one character inside a string or character
// literal: interpolations, escapes, line continuations and macro args.
func (lx *Lexer) appendCharInLiteral(str []byte, c int) []byte {
	rawMode := lx.state.mode == ModeRaw

	// Symbol interpolation
	if c == '{' {
		// We'll be exiting the literal's scope, so re-enable macro args
		// (interpolations are handled by readInterpolation itself)
		lx.state.disableMacroArgs = false
		if interp, ok := lx.readInterpolation(0); ok {
			str = lx.appendExpandedString(str, interp)
		}
		lx.state.disableMacroArgs = true
		return str
	}

	// Regular characters will just get copied
	if c != '\\' {
		return append(str, byte(c))
	}

	c = lx.peek()
	switch c {
	// Character escape
	case '\\', '"', '\'', '{', '}':
		if rawMode {
			str = append(str, '\\')
		}
		str = append(str, byte(c))
		lx.shift()
	case 'n':
		if rawMode {
			str = append(str, '\\', 'n')
		} else {
			str = append(str, '\n')
		}
		lx.shift()
	case 'r':
		if rawMode {
			str = append(str, '\\', 'r')
		} else {
			str = append(str, '\r')
		}
		lx.shift()
	case 't':
		if rawMode {
			str = append(str, '\\', 't')
		} else {
			str = append(str, '\t')
		}
		lx.shift()
	case '0':
		if rawMode {
			str = append(str, '\\', '0')
		} else {
			str = append(str, 0)
		}
		lx.shift()

	// Line continuation
	case ' ', '\t', '\r', '\n':
		lx.discardLineContinuation()

	// Macro arg
	case '@', '#', '1', '2', '3', '4', '5', '6', '7', '8', '9', '<':
		if arg, ok := lx.readMacroArg(); ok {
			str = lx.appendExpandedString(str, arg)
		}

	case eofChar: // Can't really print that one
		lx.diags.Errorf("Illegal character escape at end of input")
		str = append(str, '\\')

	default:
		lx.diags.Errorf("Illegal character escape %s", printChar(c))
		str = append(str, byte(c))
		lx.shift()
	}
	return str
}

// readString reads a string literal past its opening quote into str.
// Triple quotes open a multi-line string; rawString disables escape
// processing except for interpolations.
func (lx *Lexer) readString(str *[]byte, rawString bool) {
	restore := lx.disableExpansions()
	defer restore()

	rawMode := lx.state.mode == ModeRaw

	// We reach this function after reading a single quote, but we also
	// support triple quotes
	multiline := false
	if rawMode {
		*str = append(*str, '"')
	}
	if lx.peek() == '"' {
		if rawMode {
			*str = append(*str, '"')
		}
		if lx.next() != '"' {
			// "" is an empty string, skip the loop
			return
		}
		// """ begins a multi-line string
		lx.shift()
		if rawMode {
			*str = append(*str, '"')
		}
		multiline = true
	}

	for {
		c := lx.peek()

		// '\r', '\n' or EOF ends a single-line string early
		if c == eofChar || (!multiline && (c == '\r' || c == '\n')) {
			lx.diags.Errorf("Unterminated string")
			return
		}

		// We'll be staying in the string, so we can safely consume the char
		lx.shift()

		// Handle '\r' or '\n' (in multiline strings only, already handled
		// above otherwise)
		if c == '\r' || c == '\n' {
			lx.handleCRLF(c)
			lx.nextLine()
			*str = append(*str, '\n')
			continue
		}

		if c != '"' {
			// Append the character or handle special ones
			if rawString {
				*str = append(*str, byte(c))
			} else {
				*str = lx.appendCharInLiteral(*str, c)
			}
			continue
		}

		// Close the string and return if it's terminated
		if !multiline {
			if rawMode {
				*str = append(*str, byte(c))
			}
			return
		}
		// Only """ ends a multi-line string
		if lx.peek() != '"' {
			*str = append(*str, byte(c))
			continue
		}
		if lx.next() != '"' {
			*str = append(*str, '"', '"')
			continue
		}
		lx.shift()
		if rawMode {
			*str = append(*str, '"', '"', '"')
		}
		return
	}
}

// readCharacter reads a character literal past its opening quote; it is
// essentially a simplified readString bounded by single quotes.
func (lx *Lexer) readCharacter(str *[]byte) {
	restore := lx.disableExpansions()
	defer restore()

	rawMode := lx.state.mode == ModeRaw

	if rawMode {
		*str = append(*str, '\'')
	}

	for {
		switch c := lx.peek(); c {
		case '\r', '\n', eofChar:
			// '\r', '\n' or EOF ends a character early
			lx.diags.Errorf("Unterminated character")
			return
		case '\'':
			// Close the character and return if it's terminated
			lx.shift()
			if rawMode {
				*str = append(*str, byte(c))
			}
			return
		default:
			// Append the character or handle special ones
			lx.shift()
			*str = lx.appendCharInLiteral(*str, c)
		}
	}
}
