// Package cli wires one source-file argument through the preprocessor,
// compiler, and VM, and maps the outcome onto the BSD sysexits this
// command line promises: 64 for bad arguments, 65 for a compile error,
// 70 for a runtime error, 74 for a file that can't be read, 0 otherwise.
package cli

import (
	"fmt"

	"github.com/mna/mainer"

	"github.com/salmon-lang/salmon/lang/compiler"
	"github.com/salmon-lang/salmon/lang/machine"
	"github.com/salmon-lang/salmon/lang/preprocess"
)

const binName = "salmon"

const (
	exitOK       mainer.ExitCode = 0
	exitUsage    mainer.ExitCode = 64
	exitDataErr  mainer.ExitCode = 65
	exitSoftware mainer.ExitCode = 70
	exitNoInput  mainer.ExitCode = 74
)

var shortUsage = fmt.Sprintf(`usage: %s <path>
       %[1]s -h|--help
       %[1]s -v|--version

Runs the source file at <path> to completion.
`, binName)

// Cmd is the salmon command-line entry point: one positional source
// file, run to completion.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("expected exactly one source file argument, got %d", len(c.args))
	}
	return nil
}

// Main parses args, dispatches to Help/Version or to run, and returns the
// sysexits-style code the process should exit with.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, shortUsage)
		return exitOK
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return exitOK
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid environment configuration: %s\n", err)
		return exitUsage
	}
	return run(c.args[0], cfg, stdio)
}

func run(path string, cfg Config, stdio mainer.Stdio) mainer.ExitCode {
	src, err := preprocess.Load(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitNoInput
	}

	var onLogGC func(string, ...any)
	if cfg.LogGC {
		onLogGC = func(format string, a ...any) { fmt.Fprintf(stdio.Stderr, format+"\n", a...) }
	}
	heap := machine.NewHeap(cfg.GCHeapGrowFactor, cfg.StressGC, cfg.LogGC, onLogGC)

	fn, err := compiler.Compile(heap, path, src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitDataErr
	}

	vm := machine.New(
		machine.WithStdio(stdio.Stdout, stdio.Stderr),
		machine.WithHeap(heap),
		machine.WithTraceExecution(cfg.TraceExecution),
		machine.WithPrintCode(cfg.PrintCode),
	)
	if res := vm.Interpret(fn, path); res != machine.InterpretOK {
		return exitSoftware
	}
	return exitOK
}
