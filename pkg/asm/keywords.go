package asm

import "strings"

// keywords maps upper-cased source text to its keyword Kind. All identifiers
// are looked up here case-insensitively; non-identifier tokens are lexed
// separately.
var keywords = map[string]Kind{
	"ADC":  SM83_ADC,
	"ADD":  SM83_ADD,
	"AND":  SM83_AND,
	"BIT":  SM83_BIT,
	"CALL": SM83_CALL,
	"CCF":  SM83_CCF,
	"CPL":  SM83_CPL,
	"CP":   SM83_CP,
	"DAA":  SM83_DAA,
	"DEC":  SM83_DEC,
	"DI":   SM83_DI,
	"EI":   SM83_EI,
	"HALT": SM83_HALT,
	"INC":  SM83_INC,
	"JP":   SM83_JP,
	"JR":   SM83_JR,
	"LD":   SM83_LD,
	"LDI":  SM83_LDI,
	"LDD":  SM83_LDD,
	"LDIO": SM83_LDH, // deprecated alias, kept with an "obsolete" warning
	"LDH":  SM83_LDH,
	"NOP":  SM83_NOP,
	"OR":   SM83_OR,
	"POP":  SM83_POP,
	"PUSH": SM83_PUSH,
	"RES":  SM83_RES,
	"RETI": SM83_RETI,
	"RET":  SM83_RET,
	"RLCA": SM83_RLCA,
	"RLC":  SM83_RLC,
	"RLA":  SM83_RLA,
	"RL":   SM83_RL,
	"RRC":  SM83_RRC,
	"RRCA": SM83_RRCA,
	"RRA":  SM83_RRA,
	"RR":   SM83_RR,
	"RST":  SM83_RST,
	"SBC":  SM83_SBC,
	"SCF":  SM83_SCF,
	"SET":  SM83_SET,
	"SLA":  SM83_SLA,
	"SRA":  SM83_SRA,
	"SRL":  SM83_SRL,
	"STOP": SM83_STOP,
	"SUB":  SM83_SUB,
	"SWAP": SM83_SWAP,
	"XOR":  SM83_XOR,

	"NZ": CC_NZ,
	"Z":  CC_Z,
	"NC": CC_NC,
	// There is no CC_C; it's lexed as TOKEN_C

	"AF":  MODE_AF,
	"BC":  MODE_BC,
	"DE":  MODE_DE,
	"HL":  MODE_HL,
	"SP":  MODE_SP,
	"HLD": MODE_HL_DEC,
	"HLI": MODE_HL_INC,

	"A": TOKEN_A,
	"B": TOKEN_B,
	"C": TOKEN_C,
	"D": TOKEN_D,
	"E": TOKEN_E,
	"H": TOKEN_H,
	"L": TOKEN_L,

	"DEF": OP_DEF,

	"FRAGMENT": POP_FRAGMENT,
	"BANK":     OP_BANK,
	"ALIGN":    POP_ALIGN,

	"SIZEOF":  OP_SIZEOF,
	"STARTOF": OP_STARTOF,

	"ROUND": OP_ROUND,
	"CEIL":  OP_CEIL,
	"FLOOR": OP_FLOOR,
	"DIV":   OP_FDIV,
	"MUL":   OP_FMUL,
	"FMOD":  OP_FMOD,
	"POW":   OP_POW,
	"LOG":   OP_LOG,
	"SIN":   OP_SIN,
	"COS":   OP_COS,
	"TAN":   OP_TAN,
	"ASIN":  OP_ASIN,
	"ACOS":  OP_ACOS,
	"ATAN":  OP_ATAN,
	"ATAN2": OP_ATAN2,

	"HIGH":    OP_HIGH,
	"LOW":     OP_LOW,
	"ISCONST": OP_ISCONST,

	"BITWIDTH": OP_BITWIDTH,
	"TZCOUNT":  OP_TZCOUNT,

	"BYTELEN":  OP_BYTELEN,
	"READFILE": OP_READFILE,
	"STRBYTE":  OP_STRBYTE,
	"STRCAT":   OP_STRCAT,
	"STRCHAR":  OP_STRCHAR,
	"STRCMP":   OP_STRCMP,
	"STRFIND":  OP_STRFIND,
	"STRFMT":   OP_STRFMT,
	"STRIN":    OP_STRIN,
	"STRLEN":   OP_STRLEN,
	"STRLWR":   OP_STRLWR,
	"STRRFIND": OP_STRRFIND,
	"STRRIN":   OP_STRRIN,
	"STRRPL":   OP_STRRPL,
	"STRSLICE": OP_STRSLICE,
	"STRSUB":   OP_STRSUB,
	"STRUPR":   OP_STRUPR,

	"CHARCMP":   OP_CHARCMP,
	"CHARLEN":   OP_CHARLEN,
	"CHARSIZE":  OP_CHARSIZE,
	"CHARSUB":   OP_CHARSUB,
	"CHARVAL":   OP_CHARVAL,
	"INCHARMAP": OP_INCHARMAP,
	"REVCHAR":   OP_REVCHAR,

	"INCLUDE":    POP_INCLUDE,
	"PRINT":      POP_PRINT,
	"PRINTLN":    POP_PRINTLN,
	"EXPORT":     POP_EXPORT,
	"DS":         POP_DS,
	"DB":         POP_DB,
	"DW":         POP_DW,
	"DL":         POP_DL,
	"SECTION":    POP_SECTION,
	"ENDSECTION": POP_ENDSECTION,
	"PURGE":      POP_PURGE,

	"RSRESET": POP_RSRESET,
	"RSSET":   POP_RSSET,

	"INCBIN":     POP_INCBIN,
	"CHARMAP":    POP_CHARMAP,
	"NEWCHARMAP": POP_NEWCHARMAP,
	"SETCHARMAP": POP_SETCHARMAP,
	"PUSHC":      POP_PUSHC,
	"POPC":       POP_POPC,

	"FAIL":          POP_FAIL,
	"WARN":          POP_WARN,
	"FATAL":         POP_FATAL,
	"ASSERT":        POP_ASSERT,
	"STATIC_ASSERT": POP_STATIC_ASSERT,

	"MACRO": POP_MACRO,
	"ENDM":  POP_ENDM,
	"SHIFT": POP_SHIFT,

	"REPT":  POP_REPT,
	"FOR":   POP_FOR,
	"ENDR":  POP_ENDR,
	"BREAK": POP_BREAK,

	"LOAD": POP_LOAD,
	"ENDL": POP_ENDL,

	"IF":   POP_IF,
	"ELSE": POP_ELSE,
	"ELIF": POP_ELIF,
	"ENDC": POP_ENDC,

	"UNION": POP_UNION,
	"NEXTU": POP_NEXTU,
	"ENDU":  POP_ENDU,

	"WRAM0": SECT_WRAM0,
	"VRAM":  SECT_VRAM,
	"ROMX":  SECT_ROMX,
	"ROM0":  SECT_ROM0,
	"HRAM":  SECT_HRAM,
	"WRAMX": SECT_WRAMX,
	"SRAM":  SECT_SRAM,
	"OAM":   SECT_OAM,

	"RB": POP_RB,
	"RW": POP_RW,
	// There is no POP_RL; it's lexed as SM83_RL

	"EQU":   POP_EQU,
	"EQUS":  POP_EQUS,
	"REDEF": POP_REDEF,

	"PUSHS": POP_PUSHS,
	"POPS":  POP_POPS,
	"PUSHO": POP_PUSHO,
	"POPO":  POP_POPO,

	"OPT": POP_OPT,
}

// keywordNames is the reverse of keywords, for diagnostics. Kinds with
// several spellings (LDH/LDIO, ...) report their canonical one.
var keywordNames = func() map[Kind]string {
	names := make(map[Kind]string, len(keywords))
	for name, kind := range keywords {
		if prev, ok := names[kind]; !ok || name < prev {
			names[kind] = name
		}
	}
	names[SM83_LDH] = "LDH"
	return names
}()

func lookupKeyword(name string) (Kind, bool) {
	kind, ok := keywords[strings.ToUpper(name)]
	return kind, ok
}

func isKeyword(name string) bool {
	_, ok := lookupKeyword(name)
	return ok
}
