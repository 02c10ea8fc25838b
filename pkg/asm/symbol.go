package asm

import (
	"fmt"
	"strings"
)

// SymType discriminates the symbol table entries.
type SymType int

const (
	SymEqu   SymType = iota // numeric constant, not redefinable
	SymVar                  // numeric variable, redefinable with =
	SymEqus                 // string equate
	SymMacro                // captured macro body
	SymLabel                // label definition
)

// Symbol is one entry of the table. Value is meaningful for EQU/VAR/LABEL,
// Str for EQUS, Body plus BodyLineNo for macros.
type Symbol struct {
	Name       string
	Type       SymType
	Value      int32
	Str        string
	Body       []byte
	BodyLineNo uint32
	Exported   bool
	defOrder   int
}

func (s *Symbol) IsNumeric() bool {
	return s.Type == SymEqu || s.Type == SymVar || s.Type == SymLabel
}

func (s *Symbol) IsDefined() bool { return s != nil }

// SymbolTable holds every symbol of one assembly unit, the purge memory
// used to tell "was purged" apart from "never defined", and the label scope
// that local names resolve against.
type SymbolTable struct {
	syms      map[string]*Symbol
	purged    map[string]bool
	scope     string // innermost global label, for `.local` resolution
	anonCount uint32
	exportAll bool
	defOrder  int

	// NargFn reports the current macro's argument count, when inside one.
	// Wired up by the file stack for the _NARG built-in.
	NargFn func() (int32, bool)
	// LineFn reports the current line number for __LINE__.
	LineFn func() uint32
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		syms:   make(map[string]*Symbol),
		purged: make(map[string]bool),
	}
}

func (st *SymbolTable) SetExportAll(exportAll bool) { st.exportAll = exportAll }

// SetScope records the active global label; local symbols (`.loc`) resolve
// inside it.
func (st *SymbolTable) SetScope(label string) { st.scope = label }

func (st *SymbolTable) Scope() string { return st.scope }

// scopedName expands a leading-dot local name against the current scope.
func (st *SymbolTable) scopedName(name string) string {
	if strings.HasPrefix(name, ".") {
		return st.scope + name
	}
	return name
}

// FindExact looks a symbol up without scope resolution.
func (st *SymbolTable) FindExact(name string) *Symbol {
	return st.syms[name]
}

// FindScoped resolves local names against the current scope, then looks the
// symbol up. Dynamic built-ins are synthesised here.
func (st *SymbolTable) FindScoped(name string) *Symbol {
	switch name {
	case "_NARG":
		if st.NargFn != nil {
			if n, ok := st.NargFn(); ok {
				return &Symbol{Name: name, Type: SymEqu, Value: n}
			}
		}
		return nil
	case "__LINE__":
		if st.LineFn != nil {
			return &Symbol{Name: name, Type: SymEqu, Value: int32(st.LineFn())}
		}
		return nil
	}
	return st.syms[st.scopedName(name)]
}

// IsPurgedScoped reports whether the (scope-resolved) name was purged.
func (st *SymbolTable) IsPurgedScoped(name string) bool {
	return st.purged[st.scopedName(name)]
}

func (st *SymbolTable) define(name string, typ SymType) *Symbol {
	sym := &Symbol{Name: name, Type: typ, Exported: st.exportAll, defOrder: st.defOrder}
	st.defOrder++
	st.syms[name] = sym
	delete(st.purged, name)
	return sym
}

// AddEqu defines a numeric constant. Redefinition of anything but a
// same-named EQU through REDEF is an error.
func (st *SymbolTable) AddEqu(name string, value int32) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymEqu).Value = value
	return nil
}

// RedefEqu redefines (or defines) a numeric constant.
func (st *SymbolTable) RedefEqu(name string, value int32) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok && prev.Type != SymEqu {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymEqu).Value = value
	return nil
}

// SetVar defines or updates a variable.
func (st *SymbolTable) SetVar(name string, value int32) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok && prev.Type != SymVar {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymVar).Value = value
	return nil
}

// AddString defines a string equate.
func (st *SymbolTable) AddString(name, value string) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymEqus).Str = value
	return nil
}

// RedefString redefines (or defines) a string equate.
func (st *SymbolTable) RedefString(name, value string) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok && prev.Type != SymEqus {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymEqus).Str = value
	return nil
}

// AddMacro defines a macro from a captured body.
func (st *SymbolTable) AddMacro(name string, body []byte, lineNo uint32) error {
	if prev, ok := st.syms[name]; ok {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	sym := st.define(name, SymMacro)
	sym.Body = body
	sym.BodyLineNo = lineNo
	return nil
}

// AddLabel defines a label. Global labels open a new local scope.
func (st *SymbolTable) AddLabel(name string) error {
	name = st.scopedName(name)
	if prev, ok := st.syms[name]; ok {
		return fmt.Errorf("%q already defined as %s", name, prev.describe())
	}
	st.define(name, SymLabel)
	if !strings.Contains(name, ".") {
		st.scope = name
	}
	return nil
}

// Purge removes a symbol and remembers the name so later references can be
// diagnosed as "purged" rather than "never defined".
func (st *SymbolTable) Purge(name string) error {
	name = st.scopedName(name)
	if _, ok := st.syms[name]; !ok {
		return fmt.Errorf("%q is not defined", name)
	}
	delete(st.syms, name)
	st.purged[name] = true
	return nil
}

func (st *SymbolTable) Export(name string) {
	if sym := st.syms[st.scopedName(name)]; sym != nil {
		sym.Exported = true
	}
}

// MakeAnonLabelName encodes a `:+`/`:-` run as a reference to the n-th
// anonymous label before or after the current position.
func (st *SymbolTable) MakeAnonLabelName(n uint32, backward bool) string {
	if backward {
		return fmt.Sprintf("!%d", int64(st.anonCount)-int64(n))
	}
	return fmt.Sprintf("!%d", int64(st.anonCount)+int64(n)-1)
}

// AddAnonLabel defines the next anonymous label.
func (st *SymbolTable) AddAnonLabel() {
	st.define(fmt.Sprintf("!%d", st.anonCount), SymLabel)
	st.anonCount++
}

// InDefOrder returns all symbols sorted by definition order, for the state
// file dump.
func (st *SymbolTable) InDefOrder() []*Symbol {
	out := make([]*Symbol, 0, len(st.syms))
	for _, sym := range st.syms {
		out = append(out, sym)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].defOrder > out[j].defOrder; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (s *Symbol) describe() string {
	switch s.Type {
	case SymEqu:
		return "a constant"
	case SymVar:
		return "a variable"
	case SymEqus:
		return "a string equate"
	case SymMacro:
		return "a macro"
	default:
		return "a label"
	}
}
