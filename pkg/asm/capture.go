package asm

// Capture records the raw bytes of a REPT/FOR/MACRO body for later replay.
// Span is a slice of the source's immutable buffer when the capture could be
// zero-copy, or an owning buffer collected byte by byte otherwise. A nil
// Span means end of input was reached before the block's sentinel keyword.
type Capture struct {
	LineNo uint32
	Span   []byte
}

// startCapture begins recording. The parser reads the EOL after the
// directive before calling this, so recording starts at a line boundary.
func (lx *Lexer) startCapture() Capture {
	ls := lx.state
	ls.capturing = true
	ls.captureSize = 0

	lineNo := lx.LineNo()
	if ls.view != nil && len(ls.expansions) == 0 {
		// Zero-copy: the capture references the file's own buffer
		ls.captureBuf = nil
		ls.captureStart = ls.view.offset
		return Capture{LineNo: lineNo, Span: ls.view.bytes[ls.view.offset:ls.view.offset]}
	}
	ls.captureBuf = make([]byte, 0, 64)
	return Capture{LineNo: lineNo, Span: nil}
}

func (lx *Lexer) endCapture(capture *Capture) {
	ls := lx.state
	if ls.captureBuf != nil {
		capture.Span = ls.captureBuf
	} else {
		capture.Span = ls.view.bytes[ls.captureStart : ls.captureStart+ls.captureSize]
	}

	// The sentinel keyword puts us past the start of the line
	ls.atLineStart = false

	ls.capturing = false
	ls.captureBuf = nil
}

// CaptureRept records a REPT/FOR body up to the matching first-on-line ENDR.
// Nested REPT/FOR blocks are tracked by depth; the final ENDR itself is not
// part of the returned span.
func (lx *Lexer) CaptureRept() Capture {
	capture := lx.startCapture()

	restore := lx.disableExpansions()
	defer restore()

	depth := 0

	for {
		lx.nextLine()
		// We're at line start, so attempt to match a REPT or ENDR token
		c := lx.bump()
		for isWhitespace(c) { // Discard initial whitespace
			c = lx.bump()
		}
		// Now, try to match REPT, FOR or ENDR as a whole keyword
		if startsIdentifier(c) {
			switch lx.readIdentifier(byte(c), false).Kind {
			case POP_REPT, POP_FOR:
				depth++ // Ignore the rest of that line

			case POP_ENDR:
				if depth > 0 {
					depth-- // Ignore the rest of that line
					break
				}
				lx.endCapture(&capture)
				// The final ENDR has been captured, but we don't want it!
				// We know we have read exactly "ENDR", not e.g. an EQUS
				capture.Span = capture.Span[:len(capture.Span)-len("ENDR")]
				return capture
			}
		}

		// Just consume characters until EOL or EOF
		for {
			if c == eofChar {
				lx.diags.Errorf("Unterminated REPT/FOR block")
				lx.endCapture(&capture)
				capture.Span = nil // Indicates that EOF came before an ENDR
				return capture
			} else if c == '\n' || c == '\r' {
				lx.handleCRLF(c)
				break
			}
			c = lx.bump()
		}
	}
}

// CaptureMacro records a macro body up to the first-on-line ENDM; the ENDM
// itself is not part of the returned span.
func (lx *Lexer) CaptureMacro() Capture {
	capture := lx.startCapture()

	restore := lx.disableExpansions()
	defer restore()

	for {
		lx.nextLine()
		// We're at line start, so attempt to match an ENDM token
		c := lx.bump()
		for isWhitespace(c) { // Discard initial whitespace
			c = lx.bump()
		}
		// Now, try to match ENDM as a whole keyword
		if startsIdentifier(c) && lx.readIdentifier(byte(c), false).Kind == POP_ENDM {
			lx.endCapture(&capture)
			// The ENDM has been captured, but we don't want it!
			// We know we have read exactly "ENDM", not e.g. an EQUS
			capture.Span = capture.Span[:len(capture.Span)-len("ENDM")]
			return capture
		}

		// Just consume characters until EOL or EOF
		for {
			if c == eofChar {
				lx.diags.Errorf("Unterminated macro definition")
				lx.endCapture(&capture)
				capture.Span = nil // Indicates that EOF came before an ENDM
				return capture
			} else if c == '\n' || c == '\r' {
				lx.handleCRLF(c)
				break
			}
			c = lx.bump()
		}
	}
}
