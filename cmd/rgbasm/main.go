// rgbasm is the assembler driver: it runs the front end over one input
// file, reporting diagnostics and writing dependency and state files.
// Object emission is handled by the later pipeline stages.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulcandth/rgbds/pkg/asm"
)

type cliFlags struct {
	binDigits   string
	defines     []string
	exportAll   bool
	gfxDigits   string
	includes    []string
	dependFile  string
	depContinue bool
	depGenerate bool
	depPhony    bool
	depTargets  []string
	depQTargets []string
	output      string
	preInclude  string
	padValue    uint8
	precision   uint8
	recursion   int
	stateSpecs  []string
	version     bool
	verbose     bool
	warnings    []string
	noWarn      bool
	maxErrors   uint64
}

const versionString = "rgbasm v0.9.0"

// normalizeArgs rewrites the single-dash spellings of the dependency-file
// modifiers into the double-dash form the flag parser understands.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "-MC", "-MG", "-MP", "-MT", "-MQ":
			out = append(out, "-"+arg)
		default:
			out = append(out, arg)
		}
	}
	return out
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func run(flags *cliFlags, input string) int {
	if flags.version {
		fmt.Println(versionString)
		return 0
	}

	opts := asm.NewOptions()
	diags := asm.NewDiagnostics()
	if isTerminal(os.Stderr) {
		diags.MaxErrors = 100
	}
	if flags.maxErrors != 0 {
		diags.MaxErrors = flags.maxErrors
	}
	if flags.noWarn {
		diags.DisableWarnings()
	}
	for _, flag := range flags.warnings {
		if err := diags.ProcessWarningFlag(flag); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	opts.Verbose = flags.verbose
	if flags.recursion != 0 {
		opts.MaxRecursionDepth = flags.recursion
	}
	opts.PadByte = flags.padValue

	fail := asm.CatchFatal(func() {
		if flags.binDigits != "" {
			if len(flags.binDigits) != 2 {
				diags.Fatalf("Must specify exactly 2 characters for option 'b'")
			}
			opts.SetBinDigits([]byte(flags.binDigits), diags)
		}
		if flags.gfxDigits != "" {
			if len(flags.gfxDigits) != 4 {
				diags.Fatalf("Must specify exactly 4 characters for option 'g'")
			}
			opts.SetGfxDigits([]byte(flags.gfxDigits), diags)
		}
		if flags.precision != 0 {
			opts.SetFixPrecision(uint64(flags.precision), diags)
		}
	})
	if fail != nil {
		return 1
	}

	unit := asm.NewUnit(opts, diags)
	unit.Syms.SetExportAll(flags.exportAll)

	for _, define := range flags.defines {
		name, value, found := strings.Cut(define, "=")
		if !found {
			value = "1"
		}
		if err := unit.Syms.AddString(name, value); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	for _, dir := range flags.includes {
		unit.Fstack.AddIncludePath(dir)
	}
	if flags.preInclude != "" {
		unit.Fstack.SetPreIncludeFile(flags.preInclude)
	}

	// State file specs: "features:path"
	stateFiles := make(map[string][]asm.StateFeature)
	for _, spec := range flags.stateSpecs {
		features, path, found := strings.Cut(spec, ":")
		if !found {
			fmt.Fprintln(os.Stderr, "error: Invalid argument for option 's'")
			return 1
		}
		parsed, err := asm.ParseStateFeatures(features)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if _, dup := stateFiles[path]; dup {
			fmt.Fprintf(os.Stderr, "warning: Overriding state filename %s\n", path)
		}
		stateFiles[path] = parsed
	}

	// Dependency file setup
	var depOut *os.File
	if flags.dependFile != "" {
		targets := append([]string{}, flags.depTargets...)
		for _, target := range flags.depQTargets {
			targets = append(targets, asm.MakeEscape(target))
		}
		if len(targets) == 0 && flags.output != "" {
			targets = []string{flags.output}
		}
		if len(targets) == 0 {
			fmt.Fprintln(os.Stderr,
				"error: Dependency files can only be created if a target file is specified with either -o, -MQ or -MT")
			return 1
		}

		if flags.dependFile == "-" {
			depOut = os.Stdout
		} else {
			f, err := os.Create(flags.dependFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: Failed to open dependfile %q: %v\n", flags.dependFile, err)
				return 1
			}
			depOut = f
			defer f.Close()
		}
		depFile := &asm.DepFile{
			W:             depOut,
			TargetFiles:   strings.Join(targets, " "),
			GeneratePhony: flags.depPhony,
		}
		unit.Fstack.OnFileOpened = depFile.FileOpened

		if flags.depGenerate {
			unit.Fstack.MissingInclude = asm.MissingIncludeGenExit
			if flags.depContinue {
				unit.Fstack.MissingInclude = asm.MissingIncludeContinue
			}
		}
	}

	if flags.verbose {
		fmt.Fprintf(os.Stderr, "Assembling %s\n", input)
	}

	fail = asm.CatchFatal(func() {
		if err := unit.Fstack.Init(input); err != nil {
			diags.Fatalf("%v", err)
		}
		unit.Interp.Run()
	})
	if fail != nil {
		return 1
	}

	if !unit.Fstack.FailedOnMissingInclude() {
		if err := opts.CheckStack(); err != nil {
			diags.Errorf("%v", err)
		}
		if err := unit.Charmaps.CheckStack(); err != nil {
			diags.Errorf("%v", err)
		}
	}

	if err := diags.RequireZeroErrors(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	// If assembly stopped on a missing include and -MG was given, this is a
	// successful dependency-generation run.
	if unit.Fstack.FailedOnMissingInclude() {
		return 0
	}

	for path, features := range stateFiles {
		if flags.verbose {
			fmt.Fprintf(os.Stderr, "State filename %s\n", path)
		}
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: Failed to open state file %q: %v\n", path, err)
			return 1
		}
		err = asm.WriteState(f, features, unit.Syms, unit.Charmaps)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: Failed to write state file %q: %v\n", path, err)
			return 1
		}
	}

	return 0
}

func main() {
	flags := &cliFlags{}
	exitCode := 0

	rootCmd := &cobra.Command{
		Use:   "rgbasm [flags] <file>",
		Short: "Game Boy assembler front end",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.version {
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("please specify an input file (pass `-` to read from standard input)")
			}
			if len(args) > 1 {
				return fmt.Errorf("more than one input file specified")
			}
			return nil
		},
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			exitCode = run(flags, input)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&flags.binDigits, "binary-digits", "b", "", "change the two characters used for binary constants")
	f.StringArrayVarP(&flags.defines, "define", "D", nil, "add a string symbol to the assembled source")
	f.BoolVarP(&flags.exportAll, "export-all", "E", false, "export all labels")
	f.StringVarP(&flags.gfxDigits, "gfx-chars", "g", "", "change the four characters used for graphics constants")
	f.StringArrayVarP(&flags.includes, "include", "I", nil, "add an include directory")
	f.StringVarP(&flags.dependFile, "dependfile", "M", "", "set the output dependency file")
	f.BoolVar(&flags.depContinue, "MC", false, "continue after a missing dependency (with --MG)")
	f.BoolVar(&flags.depGenerate, "MG", false, "assume missing includes are generated, exit cleanly")
	f.BoolVar(&flags.depPhony, "MP", false, "add a phony target for each dependency")
	f.StringArrayVar(&flags.depTargets, "MT", nil, "add a target to the rules emitted in dependency files")
	f.StringArrayVar(&flags.depQTargets, "MQ", nil, "like --MT, but escaping Make-special characters")
	f.StringVarP(&flags.output, "output", "o", "", "set the output object file")
	f.StringVarP(&flags.preInclude, "preinclude", "P", "", "include a file before the input")
	f.Uint8VarP(&flags.padValue, "pad-value", "p", 0, "set the value to use for `ds'")
	f.Uint8VarP(&flags.precision, "q-precision", "Q", 0, "set the fixed-point precision (1..31)")
	f.IntVarP(&flags.recursion, "recursion-depth", "r", 0, "set the maximum recursion depth")
	f.StringArrayVarP(&flags.stateSpecs, "state", "s", nil, "set an output state file (features:path)")
	f.BoolVarP(&flags.version, "version", "V", false, "print the version and exit")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print progress information")
	f.StringArrayVarP(&flags.warnings, "warning", "W", nil, "enable or disable warnings")
	f.BoolVarP(&flags.noWarn, "nowarn", "w", false, "disable all warnings")
	f.Uint64VarP(&flags.maxErrors, "max-errors", "X", 0, "abort after this many errors")

	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
