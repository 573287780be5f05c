package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/snapshot"
	"github.com/wippyai/zend-abi/zval"
)

func main() {
	var (
		profileFile = flag.String("profile", "", "Path to an ABI profile (TOML)")
		builtin     = flag.String("builtin", "php-8.0-x86_64", "Built-in ABI profile name")
		list        = flag.Bool("list", false, "List built-in profiles and exit")
		showLayout  = flag.Bool("layout", false, "Print struct layouts of the profile")
		funcName    = flag.String("call", "", "Function to call")
		argStr      = flag.String("args", "", "Arguments (comma-separated: ints, floats, true/false, null, strings)")
		saveFile    = flag.String("save", "", "Capture the frame of -call to a snapshot file instead of calling")
		loadFile    = flag.String("load", "", "Restore a snapshot file and print its frame")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			abi.SetLogger(l)
			zval.SetLogger(l)
			engine.SetLogger(l)
			snapshot.SetLogger(l)
			defer func() { _ = l.Sync() }()
		}
	}

	if *list {
		for _, name := range abi.Builtins() {
			p := abi.MustBuiltin(name)
			fmt.Printf("%-16s %s\n", name, p.Description)
		}
		return
	}

	p, err := loadProfile(*profileFile, *builtin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(p); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !*showLayout && *funcName == "" && *loadFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: zvalctl [-builtin name | -profile file] -layout")
		fmt.Fprintln(os.Stderr, "       zvalctl -call name [-args a,b,c] [-save file]")
		fmt.Fprintln(os.Stderr, "       zvalctl -load file")
		fmt.Fprintln(os.Stderr, "       zvalctl -list")
		fmt.Fprintln(os.Stderr, "       zvalctl -i  (interactive mode)")
		os.Exit(1)
	}

	if *showLayout {
		printLayout(p)
	}
	if err := run(p, *funcName, *argStr, *saveFile, *loadFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadProfile(file, builtin string) (*abi.Profile, error) {
	if file != "" {
		return abi.Load(file)
	}
	return abi.Builtin(builtin)
}

func printLayout(p *abi.Profile) {
	fmt.Printf("Profile: %s (%s)\n", p.Name, p.Description)
	fmt.Printf("Pointer size: %d, alignment: %d, mask: %#x\n", p.PointerSize, p.Alignment, uint64(p.AlignmentMask))
	fmt.Printf("Header slots: %d\n", frame.ResolverFor(p).HeaderSlotCount())

	for _, name := range p.StructNames() {
		info, _ := p.Struct(name)
		fmt.Printf("\n%s  size=%d align=%d\n", name, info.Size, info.Align)
		for _, f := range sortedFields(info.FieldOffs) {
			fmt.Printf("  %4d  %-28s %d\n", info.FieldOffs[f], f, info.FieldSizes[f])
		}
	}
}

func run(p *abi.Profile, funcName, argStr, saveFile, loadFile string) error {
	e, cleanup, err := newDemoEngine(p)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer cleanup()

	if loadFile != "" {
		return restore(e, loadFile)
	}
	if funcName == "" {
		return nil
	}

	args, err := parseArgs(e, argStr)
	if err != nil {
		return fmt.Errorf("parse args: %w", err)
	}

	if saveFile != "" {
		return capture(e, funcName, args, saveFile)
	}

	callee, err := resolveCallee(e, funcName)
	if err != nil {
		return err
	}
	fmt.Printf("Calling %s(%s)...\n", funcName, renderArgs(args))
	result, ok := callee.TryCall(args)
	if !ok {
		return fmt.Errorf("%s is not callable", funcName)
	}
	fmt.Printf("Result: %s\n", result)
	if exc := e.Exception(); exc != nil {
		fmt.Printf("Exception: %v\n", exc)
	}
	return nil
}

// resolveCallee maps "Counter" to an invokable object and anything else to
// a function name.
func resolveCallee(e *engine.Engine, name string) (zval.Zval, error) {
	if strings.EqualFold(name, "Counter") {
		return newCounter(e, 10)
	}
	return zval.FromString(e, name)
}

func capture(e *engine.Engine, funcName string, args []zval.Zval, path string) error {
	defer releaseArgs(e, args)

	ex, err := e.EnterFunction(funcName, zval.Zval{}, args)
	if err != nil {
		return err
	}
	defer e.Leave(ex)

	s, err := snapshot.Capture(e, ex, e.NumArgs(ex))
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(path, s); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Printf("Saved frame of %s with %d arguments to %s\n", funcName, len(args), path)
	return nil
}

func restore(e *engine.Engine, path string) error {
	s, err := snapshot.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	ex, err := snapshot.Restore(e, s)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer e.Leave(ex)

	fmt.Print(describeFrame(e, ex))
	return nil
}

func describeFrame(e *engine.Engine, ex *frame.ExecuteData) string {
	var b strings.Builder
	r := ex.Resolver()
	name := "?"
	if fn, ok := e.FunctionAt(ex.Function()); ok {
		name = fn.QualifiedName()
	}
	fmt.Fprintf(&b, "Frame of %s at %#x, %d header slots\n", name, ex.Base(), r.HeaderSlotCount())
	n := e.NumArgs(ex)
	for i := uint32(0); i < n; i++ {
		v, _ := ex.Argument(i)
		fmt.Fprintf(&b, "  arg %d @ %#x: %s\n", i, r.SlotAddress(ex.Base(), i), v)
	}
	return b.String()
}

func frameSlots(e *engine.Engine) uint32 {
	return frame.ResolverFor(e.Profile()).HeaderSlotCount()
}
