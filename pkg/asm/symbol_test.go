package asm

import "testing"

func TestSymbolScoping(t *testing.T) {
	st := NewSymbolTable()
	if err := st.AddLabel("Global"); err != nil {
		t.Fatal(err)
	}
	if st.Scope() != "Global" {
		t.Fatalf("scope = %q; want Global", st.Scope())
	}
	if err := st.AddLabel(".loc"); err != nil {
		t.Fatal(err)
	}
	if st.FindExact("Global.loc") == nil {
		t.Error("local label did not resolve against the scope")
	}
	if st.FindScoped(".loc") == nil {
		t.Error("FindScoped did not resolve the local name")
	}
}

func TestSymbolRedefinition(t *testing.T) {
	st := NewSymbolTable()
	if err := st.AddEqu("A", 1); err != nil {
		t.Fatal(err)
	}
	if err := st.AddEqu("A", 2); err == nil {
		t.Error("redefining an EQU did not error")
	}
	if err := st.RedefEqu("A", 2); err != nil {
		t.Errorf("REDEF of an EQU: %v", err)
	}
	if err := st.SetVar("A", 3); err == nil {
		t.Error("turning an EQU into a variable did not error")
	}

	if err := st.SetVar("V", 1); err != nil {
		t.Fatal(err)
	}
	if err := st.SetVar("V", 2); err != nil {
		t.Errorf("variable update: %v", err)
	}
	if st.FindExact("V").Value != 2 {
		t.Errorf("V = %d; want 2", st.FindExact("V").Value)
	}
}

func TestSymbolPurgeMemory(t *testing.T) {
	st := NewSymbolTable()
	if err := st.Purge("A"); err == nil {
		t.Error("purging an undefined symbol did not error")
	}
	st.AddEqu("A", 1)
	if err := st.Purge("A"); err != nil {
		t.Fatal(err)
	}
	if !st.IsPurgedScoped("A") {
		t.Error("purged symbol not remembered")
	}
	// Redefining clears the purge memory
	st.AddEqu("A", 2)
	if st.IsPurgedScoped("A") {
		t.Error("redefined symbol still flagged as purged")
	}
}

func TestMacroArgsWindow(t *testing.T) {
	ma := NewMacroArgs([]string{"a", "b", "c"})
	if got, _ := ma.Arg(1); got != "a" {
		t.Errorf("arg 1 = %q", got)
	}
	if ma.AllArgs() != "a,b,c" {
		t.Errorf("all args = %q", ma.AllArgs())
	}
	if ma.NArg() != 3 {
		t.Errorf("narg = %d", ma.NArg())
	}

	if !ma.Shift(1) {
		t.Error("shift by 1 failed")
	}
	if got, _ := ma.Arg(1); got != "b" {
		t.Errorf("arg 1 after shift = %q", got)
	}
	if ma.AllArgs() != "b,c" {
		t.Errorf("all args after shift = %q", ma.AllArgs())
	}
	if _, ok := ma.Arg(3); ok {
		t.Error("arg past the window resolved")
	}
	if ma.Shift(5) {
		t.Error("shifting past the end reported success")
	}
	if ma.NArg() != 0 {
		t.Errorf("narg after clamped shift = %d", ma.NArg())
	}
}

func TestAnonLabelNames(t *testing.T) {
	st := NewSymbolTable()
	st.AddAnonLabel()
	st.AddAnonLabel()
	// Two anon labels defined; a backward single-step ref names the last one
	if got := st.MakeAnonLabelName(1, true); got != "!1" {
		t.Errorf("backward ref = %q; want !1", got)
	}
	if got := st.MakeAnonLabelName(1, false); got != "!2" {
		t.Errorf("forward ref = %q; want !2", got)
	}
}
