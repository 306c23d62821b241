package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/hostcall/wasm-bridge/marshal"
	"github.com/hostcall/wasm-bridge/runtime"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module")
		funcName    = flag.String("func", "", "Exported function to call")
		argsStr     = flag.String("args", "", "Call arguments (comma-separated)")
		list        = flag.Bool("list", false, "List imports and exports and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> -func name [-args a,b,...]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argsStr, *list, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, argsStr string, listOnly, verbose bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer logger.Sync()
	}

	rt := runtime.NewWithConfig(&runtime.Config{Logger: logger})
	defer rt.Close(ctx)

	module, err := rt.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	fmt.Printf("Module: %s\n", wasmFile)
	printDescriptors(module)

	if listOnly {
		return nil
	}

	if funcName == "" {
		fmt.Println("\nUse -func to specify a function to call.")
		return nil
	}

	args, err := parseCallArgs(module, funcName, argsStr)
	if err != nil {
		return err
	}

	instance, err := module.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer instance.Close(ctx)

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
	res, err := instance.Call(ctx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	// Every suspension is surfaced to the terminal; the user plays host.
	reader := bufio.NewReader(os.Stdin)
	for res.Status == runtime.StatusSuspended {
		imp := res.Import
		fmt.Printf("\nsuspended on %s.%s%s with args %v\n",
			imp.Namespace, imp.Field, imp.Signature, imp.Args)

		var value any
		if imp.ResultCode() == marshal.KindNone {
			fmt.Print("press enter to resume: ")
			if _, err := reader.ReadString('\n'); err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
		} else {
			fmt.Printf("enter %c result: ", imp.ResultCode())
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			value, err = parseValue(strings.TrimSpace(line), imp.ResultCode())
			if err != nil {
				fmt.Printf("bad value: %v\n", err)
				continue
			}
		}

		res, err = instance.Resume(ctx, value)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
	}

	switch res.Status {
	case runtime.StatusCompleted:
		fmt.Printf("\nResult: %v\n", res.Value)
	case runtime.StatusTrapped:
		fmt.Printf("\nTrap: %s\n", res.Trap)
	}
	return nil
}

func printDescriptors(module *runtime.Module) {
	imports := module.Imports()
	fmt.Printf("\nImports (%d):\n", len(imports))
	for _, imp := range imports {
		fmt.Printf("  [%s] %s.%s %s\n", imp.Kind, imp.Namespace, imp.Field, imp.Signature)
	}

	exports := module.Exports()
	fmt.Printf("\nExports (%d):\n", len(exports))
	for _, exp := range exports {
		fmt.Printf("  [%s] %s %s\n", exp.Kind, exp.Field, exp.Signature)
	}

	libs := module.HookLibraries()
	if len(libs) > 0 {
		fmt.Printf("\nHook namespaces (%d):\n", len(libs))
		for _, lib := range libs {
			fmt.Printf("  %s: %d hook(s)\n", lib.Namespace, len(lib.Hooks))
		}
	}
}

// parseCallArgs converts the comma-separated argument string against the
// exported function's declared signature.
func parseCallArgs(module *runtime.Module, funcName, argsStr string) ([]any, error) {
	var sig string
	for _, exp := range module.Exports() {
		if exp.Kind == runtime.ExternFunc && exp.Field == funcName {
			sig = exp.Signature
			break
		}
	}
	if sig == "" {
		return nil, fmt.Errorf("function %q not exported", funcName)
	}

	params, _, err := marshal.ParseSignature(sig)
	if err != nil {
		return nil, fmt.Errorf("signature %s: %w", sig, err)
	}

	var fields []string
	if argsStr != "" {
		fields = strings.Split(argsStr, ",")
	}
	if len(fields) != len(params) {
		return nil, fmt.Errorf("%s declares %d parameter(s), got %d", funcName, len(params), len(fields))
	}

	args := make([]any, len(fields))
	for i, field := range fields {
		v, err := parseValue(strings.TrimSpace(field), params[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseValue(s string, kind marshal.Kind) (any, error) {
	switch kind {
	case marshal.KindI32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case marshal.KindI64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case marshal.KindF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return float32(v), nil
	case marshal.KindF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("cannot parse a value for signature code %c", kind)
}
