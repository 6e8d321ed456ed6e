// Package cli implements the falcon command line: script execution,
// inline evaluation and the interactive REPL.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/filipefalcaos/falcon/internal/config"
	"github.com/filipefalcaos/falcon/internal/runtime"
	"github.com/filipefalcaos/falcon/internal/vm"
)

// Entry parses arguments, runs the requested mode and returns the
// process exit code.
func Entry() int {
	var (
		scriptPath string
		inline     string
		disasm     bool
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "-h", "--help":
			printUsage(os.Stdout)
			return config.ExitOK
		case "-v", "--version":
			fmt.Printf("falcon %s\n", config.Version)
			return config.ExitOK
		case "-d":
			disasm = true
		case "-i":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: '-i' requires a source string.")
				printUsage(os.Stderr)
				return config.ExitUsageError
			}
			i++
			inline = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Error: unknown option '%s'.\n", arg)
				printUsage(os.Stderr)
				return config.ExitUsageError
			}
			if scriptPath != "" {
				fmt.Fprintln(os.Stderr, "Error: only one script path is accepted.")
				printUsage(os.Stderr)
				return config.ExitUsageError
			}
			scriptPath = arg
		}
	}

	rc, err := config.LoadRC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return config.ExitOSError
	}

	heap := runtime.NewHeap()
	heap.SetStress(rc.GC.Stress)
	heap.SetLog(rc.GC.Log)
	if rc.GC.NextMB > 0 {
		heap.SetNextGC(rc.GC.NextMB << 20)
	}

	machine := vm.New(heap)
	defer machine.Free()

	switch {
	case inline != "":
		return runSource(machine, heap, inline, "input", disasm)
	case scriptPath != "":
		source, err := os.ReadFile(scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not read '%s': %s\n", scriptPath, err)
			return config.ExitOSError
		}
		return runSource(machine, heap, string(source), scriptPath, disasm)
	default:
		return runREPL(machine, rc)
	}
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "Usage: falcon [options] [script]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -h, --help      print this help and exit")
	fmt.Fprintln(w, "  -v, --version   print the version and exit")
	fmt.Fprintln(w, "  -i <source>     execute an inline source string")
	fmt.Fprintln(w, "  -d              disassemble instead of executing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "With no script, falcon starts an interactive session.")
}

func runSource(machine *vm.VM, heap *runtime.Heap, source, name string, disasm bool) int {
	if disasm {
		return disassemble(heap, source, name)
	}

	switch err := machine.Interpret(source, name); {
	case err == nil:
		return config.ExitOK
	case errors.Is(err, vm.ErrCompile):
		return config.ExitCompileError
	case errors.Is(err, vm.ErrRuntime):
		return config.ExitRuntimeError
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return config.ExitOSError
	}
}

// disassemble compiles without executing and prints every function's
// bytecode, nested functions included.
func disassemble(heap *runtime.Heap, source, name string) int {
	compiler := vm.NewCompiler(heap, source, name)
	fn, err := compiler.Compile()
	if err != nil {
		return config.ExitCompileError
	}
	printFunction(fn)
	return config.ExitOK
}

func printFunction(fn *runtime.ObjFunction) {
	fmt.Print(vm.Disassemble(&fn.Chunk, fn.String()))
	for _, v := range fn.Chunk.Constants.Values() {
		if v.IsObjType(runtime.FunctionType) {
			printFunction(v.Obj.(*runtime.ObjFunction))
		}
	}
}

func runREPL(machine *vm.VM, rc *config.RC) int {
	machine.SetREPL(true)

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Printf("falcon %s (type Ctrl-D to exit)\n", config.Version)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print(rc.Prompt)
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Errors were already reported; the session continues
		_ = machine.Interpret(line, "repl")
	}

	if interactive {
		fmt.Println()
	}
	return config.ExitOK
}
