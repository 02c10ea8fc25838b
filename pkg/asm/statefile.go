package asm

import (
	"fmt"
	"io"
	"strings"
)

// StateFeature selects which definitions a -s state file carries.
type StateFeature int

const (
	StateEqu StateFeature = iota
	StateVar
	StateEqus
	StateChar
	StateMacro
)

var stateFeatureNames = map[string]StateFeature{
	"EQU":   StateEqu,
	"VAR":   StateVar,
	"EQUS":  StateEqus,
	"CHAR":  StateChar,
	"MACRO": StateMacro,
}

// ParseStateFeatures parses the comma-separated feature list of a
// `-s features:file` argument. "all" selects every feature.
func ParseStateFeatures(list string) ([]StateFeature, error) {
	var features []StateFeature
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("empty feature for option 's'")
		}
		if strings.EqualFold(name, "all") {
			return []StateFeature{StateEqu, StateVar, StateEqus, StateChar, StateMacro}, nil
		}
		feature, ok := stateFeatureNames[strings.ToUpper(name)]
		if !ok {
			return nil, fmt.Errorf("invalid feature for option 's': %q", name)
		}
		duplicate := false
		for _, prev := range features {
			if prev == feature {
				duplicate = true
				break
			}
		}
		if !duplicate {
			features = append(features, feature)
		}
	}
	return features, nil
}

func hasFeature(features []StateFeature, feature StateFeature) bool {
	for _, f := range features {
		if f == feature {
			return true
		}
	}
	return false
}

// WriteState dumps the selected feature subset as a line-oriented text file
// that can be fed back through -P.
func WriteState(w io.Writer, features []StateFeature, syms *SymbolTable, charmaps *Charmaps) error {
	for _, sym := range syms.InDefOrder() {
		switch {
		case sym.Type == SymEqu && hasFeature(features, StateEqu):
			if _, err := fmt.Fprintf(w, "def %s equ $%X\n", sym.Name, uint32(sym.Value)); err != nil {
				return err
			}
		case sym.Type == SymVar && hasFeature(features, StateVar):
			if _, err := fmt.Fprintf(w, "def %s = $%X\n", sym.Name, uint32(sym.Value)); err != nil {
				return err
			}
		case sym.Type == SymEqus && hasFeature(features, StateEqus):
			if _, err := fmt.Fprintf(w, "def %s equs \"%s\"\n", sym.Name, escapeStateString(sym.Str)); err != nil {
				return err
			}
		case sym.Type == SymMacro && hasFeature(features, StateMacro):
			body := sym.Body
			if len(body) > 0 && body[len(body)-1] != '\n' {
				body = append(append([]byte{}, body...), '\n')
			}
			if _, err := fmt.Fprintf(w, "macro %s\n%sendm\n", sym.Name, body); err != nil {
				return err
			}
		}
	}

	if hasFeature(features, StateChar) {
		for _, cm := range charmaps.InDefOrder() {
			for _, entry := range cm.Entries {
				if _, err := fmt.Fprintf(w, "charmap \"%s\", $%X\n",
					escapeStateString(entry.Str), uint32(entry.Value)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func escapeStateString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		case '\\', '"', '{', '}':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
