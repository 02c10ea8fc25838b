package asm

import "fmt"

const DefaultCharmapName = "main"

// CharmapEntry maps one source string to its encoded value.
type CharmapEntry struct {
	Str   string
	Value int32
}

type Charmap struct {
	Name    string
	Entries []CharmapEntry
}

func (cm *Charmap) add(str string, value int32) {
	cm.Entries = append(cm.Entries, CharmapEntry{Str: str, Value: value})
}

// Charmaps is the set of named character maps plus the PUSHC/POPC stack.
type Charmaps struct {
	maps   map[string]*Charmap
	order  []string
	active *Charmap
	stack  []*Charmap
}

func NewCharmaps() *Charmaps {
	cs := &Charmaps{maps: make(map[string]*Charmap)}
	cs.active = cs.create(DefaultCharmapName)
	return cs
}

func (cs *Charmaps) create(name string) *Charmap {
	cm := &Charmap{Name: name}
	cs.maps[name] = cm
	cs.order = append(cs.order, name)
	return cm
}

// New creates a charmap, optionally copying baseName's entries, and makes
// it active.
func (cs *Charmaps) New(name, baseName string) error {
	if _, exists := cs.maps[name]; exists {
		return fmt.Errorf("charmap %q already exists", name)
	}
	cm := cs.create(name)
	if baseName != "" {
		base, ok := cs.maps[baseName]
		if !ok {
			return fmt.Errorf("base charmap %q doesn't exist", baseName)
		}
		cm.Entries = append(cm.Entries, base.Entries...)
	}
	cs.active = cm
	return nil
}

// Set switches the active charmap.
func (cs *Charmaps) Set(name string) error {
	cm, ok := cs.maps[name]
	if !ok {
		return fmt.Errorf("charmap %q doesn't exist", name)
	}
	cs.active = cm
	return nil
}

// Add maps str to value in the active charmap.
func (cs *Charmaps) Add(str string, value int32) {
	cs.active.add(str, value)
}

func (cs *Charmaps) Push() {
	cs.stack = append(cs.stack, cs.active)
}

func (cs *Charmaps) Pop() error {
	if len(cs.stack) == 0 {
		return fmt.Errorf("no entries in the charmap stack")
	}
	cs.active = cs.stack[len(cs.stack)-1]
	cs.stack = cs.stack[:len(cs.stack)-1]
	return nil
}

// CheckStack reports PUSHC without a matching POPC at end of assembly.
func (cs *Charmaps) CheckStack() error {
	if n := len(cs.stack); n != 0 {
		return fmt.Errorf("%d unclosed PUSHC", n)
	}
	return nil
}

// InDefOrder returns all charmaps in creation order.
func (cs *Charmaps) InDefOrder() []*Charmap {
	out := make([]*Charmap, 0, len(cs.order))
	for _, name := range cs.order {
		out = append(out, cs.maps[name])
	}
	return out
}
