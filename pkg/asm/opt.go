package asm

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultFixPrecision   = 16
	defaultMaxRecursion   = 64
	defaultMaxErrorsIfTTY = 100
)

// Options is the per-unit options record. It is threaded explicitly through
// the lexer and the drivers; PUSHO/POPO snapshot the mutable subset.
type Options struct {
	BinDigits         [2]byte
	GfxDigits         [4]byte
	PadByte           uint8
	FixPrecision      uint8
	MaxRecursionDepth int
	Verbose           bool

	stack []savedOpts
}

type savedOpts struct {
	binDigits    [2]byte
	gfxDigits    [4]byte
	padByte      uint8
	fixPrecision uint8
}

func NewOptions() *Options {
	return &Options{
		BinDigits:         [2]byte{'0', '1'},
		GfxDigits:         [4]byte{'0', '1', '2', '3'},
		FixPrecision:      defaultFixPrecision,
		MaxRecursionDepth: defaultMaxRecursion,
	}
}

func isValidDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		c == '.' || c == '#' || c == '@'
}

func checkDigitErrors(digits []byte, kind string, d *Diagnostics) bool {
	n := len(digits)
	for i, c := range digits {
		if !isValidDigit(c) {
			d.Errorf("Invalid digit for %s constant %s", kind, printChar(int(c)))
			return false
		}
		// The fixed digits 0..n-1 may only alias themselves.
		if c >= '0' && c < byte(n)+'0' && c != byte(i)+'0' {
			d.Errorf("Changed digit for %s constant %s", kind, printChar(int(c)))
			return false
		}
		for _, later := range digits[i+1:] {
			if c == later {
				d.Errorf("Repeated digit for %s constant %s", kind, printChar(int(c)))
				return false
			}
		}
	}
	return true
}

// SetBinDigits installs the two characters aliased to binary 0 and 1.
func (o *Options) SetBinDigits(digits []byte, d *Diagnostics) {
	if len(digits) == 2 && checkDigitErrors(digits, "binary", d) {
		copy(o.BinDigits[:], digits)
	}
}

// SetGfxDigits installs the four characters aliased to pixel values 0-3.
func (o *Options) SetGfxDigits(digits []byte, d *Diagnostics) {
	if len(digits) == 4 && checkDigitErrors(digits, "graphics", d) {
		copy(o.GfxDigits[:], digits)
	}
}

func (o *Options) SetFixPrecision(precision uint64, d *Diagnostics) {
	if precision < 1 || precision > 31 {
		d.Errorf("Fixed-point precision must be between 1 and 31")
		return
	}
	o.FixPrecision = uint8(precision)
}

// Parse handles one OPT directive argument, e.g. `b.X`, `g.xXo`, `p0xFF`,
// `Q8`, `Wno-obsolete`, `r64`.
func (o *Options) Parse(opt string, d *Diagnostics) {
	if opt == "" {
		d.Errorf("Empty OPT option")
		return
	}
	arg := opt[1:]
	switch opt[0] {
	case 'b':
		if len(arg) != 2 {
			d.Errorf("Must specify exactly 2 characters for option 'b'")
			return
		}
		o.SetBinDigits([]byte(arg), d)
	case 'g':
		if len(arg) != 4 {
			d.Errorf("Must specify exactly 4 characters for option 'g'")
			return
		}
		o.SetGfxDigits([]byte(arg), d)
	case 'p':
		value, err := strconv.ParseUint(arg, 0, 64)
		if err != nil || value > 0xFF {
			d.Errorf("Invalid argument for option 'p'")
			return
		}
		o.PadByte = uint8(value)
	case 'Q':
		arg = strings.TrimPrefix(arg, ".")
		value, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			d.Errorf("Invalid argument for option 'Q'")
			return
		}
		o.SetFixPrecision(value, d)
	case 'r':
		value, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			d.Errorf("Invalid argument for option 'r'")
			return
		}
		o.MaxRecursionDepth = int(value)
	case 'W':
		if err := d.ProcessWarningFlag(arg); err != nil {
			d.Errorf("%v", err)
		}
	default:
		d.Errorf("Unknown option %s", printChar(int(opt[0])))
	}
}

// Push saves the mutable option subset for a later Pop.
func (o *Options) Push() {
	o.stack = append(o.stack, savedOpts{
		binDigits:    o.BinDigits,
		gfxDigits:    o.GfxDigits,
		padByte:      o.PadByte,
		fixPrecision: o.FixPrecision,
	})
}

// Pop restores the most recently pushed options.
func (o *Options) Pop(d *Diagnostics) {
	if len(o.stack) == 0 {
		d.Errorf("No entries in the option stack")
		return
	}
	saved := o.stack[len(o.stack)-1]
	o.stack = o.stack[:len(o.stack)-1]
	o.BinDigits = saved.binDigits
	o.GfxDigits = saved.gfxDigits
	o.PadByte = saved.padByte
	o.FixPrecision = saved.fixPrecision
}

// CheckStack reports PUSHO without a matching POPO at end of assembly.
func (o *Options) CheckStack() error {
	if n := len(o.stack); n != 0 {
		return fmt.Errorf("%d unclosed PUSHO", n)
	}
	return nil
}
