package asm

import (
	"math"
)

// readAnonLabelRef reads a run of '+' or '-' after a ':' and encodes it as
// an anonymous label reference. The first char has been peeked, not shifted.
func (lx *Lexer) readAnonLabelRef(c int) string {
	n := uint32(1)
	for lx.next() == c {
		n++
	}
	return lx.syms.MakeAnonLabelName(n, c == '-')
}

type fracState int

const (
	fracDigits fracState = iota
	fracPrecision
	fracPrecisionDigits
)

// readFractionalPart reads the digits after the '.' of a fixed-point
// constant, with an optional `q<precision>` suffix, and combines them with
// the integer part.
func (lx *Lexer) readFractionalPart(integer uint32) uint32 {
	var value, precision uint32
	divisor := uint32(1)
	state := fracDigits

	for c := lx.peek(); ; c = lx.next() {
		if state == fracDigits {
			if c == '_' {
				continue
			} else if c == 'q' || c == 'Q' {
				state = fracPrecision
				continue
			} else if c < '0' || c > '9' {
				break
			}
			if divisor > (math.MaxUint32-uint32(c-'0'))/10 {
				lx.diags.Warnf(WarningLargeConstant, "Precision of fixed-point constant is too large")
				// Discard any additional digits
				for c = lx.peek(); (c >= '0' && c <= '9') || c == '_'; c = lx.next() {
				}
				break
			}
			value = value*10 + uint32(c-'0')
			divisor *= 10
		} else {
			if c == '.' && state == fracPrecision {
				state = fracPrecisionDigits
				continue
			} else if c < '0' || c > '9' {
				break
			}
			precision = precision*10 + uint32(c-'0')
		}
	}

	if precision == 0 {
		if state >= fracPrecision {
			lx.diags.Errorf("Invalid fixed-point constant, no significant digits after 'q'")
		}
		precision = uint32(lx.opts.FixPrecision)
	} else if precision > 31 {
		lx.diags.Errorf("Fixed-point constant precision must be between 1 and 31")
		precision = uint32(lx.opts.FixPrecision)
	}

	if uint64(integer) >= uint64(1)<<(32-precision) {
		lx.diags.Warnf(WarningLargeConstant, "Magnitude of fixed-point constant is too large")
	}

	fractional := uint32(math.Round(float64(value) / float64(divisor) * math.Pow(2, float64(precision))))

	return integer<<precision | fractional
}

func (lx *Lexer) readBinaryNumber() uint32 {
	var value uint32
	empty := true

	for c := lx.peek(); ; c = lx.next() {
		var bit uint32

		if c == '_' && !empty {
			continue
		} else if c == '0' || c == int(lx.opts.BinDigits[0]) {
			bit = 0
		} else if c == '1' || c == int(lx.opts.BinDigits[1]) {
			bit = 1
		} else {
			break
		}
		if value > (math.MaxUint32-bit)/2 {
			lx.diags.Warnf(WarningLargeConstant, "Integer constant is too large")
		}
		value = value*2 + bit

		empty = false
	}

	if empty {
		lx.diags.Errorf("Invalid integer constant, no digits after '%%'")
	}

	return value
}

func (lx *Lexer) readOctalNumber() uint32 {
	var value uint32
	empty := true

	for c := lx.peek(); ; c = lx.next() {
		var digit uint32

		if c == '_' && !empty {
			continue
		} else if c >= '0' && c <= '7' {
			digit = uint32(c - '0')
		} else {
			break
		}

		if value > (math.MaxUint32-digit)/8 {
			lx.diags.Warnf(WarningLargeConstant, "Integer constant is too large")
		}
		value = value*8 + digit

		empty = false
	}

	if empty {
		lx.diags.Errorf("Invalid integer constant, no digits after '&'")
	}

	return value
}

// readDecimalNumber reads a decimal constant whose first digit has already
// been consumed.
func (lx *Lexer) readDecimalNumber(initial int) uint32 {
	value := uint32(initial - '0')

	for c := lx.peek(); ; c = lx.next() {
		var digit uint32

		if c == '_' {
			continue
		} else if c >= '0' && c <= '9' {
			digit = uint32(c - '0')
		} else {
			break
		}

		if value > (math.MaxUint32-digit)/10 {
			lx.diags.Warnf(WarningLargeConstant, "Integer constant is too large")
		}
		value = value*10 + digit
	}

	return value
}

func (lx *Lexer) readHexNumber() uint32 {
	var value uint32
	empty := true

	for c := lx.peek(); ; c = lx.next() {
		var digit uint32

		if c == '_' && !empty {
			continue
		} else if c >= 'a' && c <= 'f' {
			digit = uint32(c-'a') + 10
		} else if c >= 'A' && c <= 'F' {
			digit = uint32(c-'A') + 10
		} else if c >= '0' && c <= '9' {
			digit = uint32(c - '0')
		} else {
			break
		}

		if value > (math.MaxUint32-digit)/16 {
			lx.diags.Warnf(WarningLargeConstant, "Integer constant is too large")
		}
		value = value*16 + digit

		empty = false
	}

	if empty {
		lx.diags.Errorf("Invalid integer constant, no digits after '$'")
	}

	return value
}

// readGfxConstant reads a `` ` `` constant of up to 8 pixels of a 2-bit
// pattern, packing the low and high bitplanes into a 16-bit word.
func (lx *Lexer) readGfxConstant() uint32 {
	var bitPlaneLower, bitPlaneUpper uint32
	width := 0

	for c := lx.peek(); ; c = lx.next() {
		var pixel uint32

		if c == '_' && width > 0 {
			continue
		} else if c == '0' || c == int(lx.opts.GfxDigits[0]) {
			pixel = 0
		} else if c == '1' || c == int(lx.opts.GfxDigits[1]) {
			pixel = 1
		} else if c == '2' || c == int(lx.opts.GfxDigits[2]) {
			pixel = 2
		} else if c == '3' || c == int(lx.opts.GfxDigits[3]) {
			pixel = 3
		} else {
			break
		}

		if width < 8 {
			bitPlaneLower = bitPlaneLower<<1 | (pixel & 1)
			bitPlaneUpper = bitPlaneUpper<<1 | (pixel >> 1)
		}
		if width < 9 {
			width++
		}
	}

	if width == 0 {
		lx.diags.Errorf("Invalid graphics constant, no digits after '`'")
	} else if width == 9 {
		lx.diags.Warnf(
			WarningLargeConstant, "Graphics constant is too long, only first 8 pixels considered",
		)
	}

	return bitPlaneUpper<<8 | bitPlaneLower
}
