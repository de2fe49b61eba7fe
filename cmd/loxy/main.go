package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"loxy-vm/internal/manifest"
	"loxy-vm/internal/vm"

	_ "github.com/tliron/commonlog/simple"
)

const (
	exitOk      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
	exitIO      = 74
)

func main() {
	switch len(os.Args) {
	case 1:
		os.Exit(repl())
	case 2:
		os.Exit(runFile(os.Args[1]))
	default:
		fmt.Fprintln(os.Stderr, "Usage: loxy [script]")
		os.Exit(exitUsage)
	}
}

func configure(dir string) (*manifest.Manifest, *vm.VM) {
	cfg, err := manifest.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loxy.toml: %s\n", err)
		cfg = manifest.Default()
	}

	if cfg.VM.Trace {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	machine := vm.New()
	machine.TraceExecution = cfg.VM.Trace
	machine.DumpCode = cfg.VM.DumpCode
	machine.SetGCThreshold(cfg.VM.GCThreshold)

	return cfg, machine
}

func runFile(path string) int {
	_, machine := configure(filepath.Dir(path))

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read file '%s': %s\n", path, err)
		return exitIO
	}

	switch machine.Interpret(string(content), "main") {
	case vm.CompileError:
		return exitCompile
	case vm.RuntimeError:
		return exitRuntime
	}
	return exitOk
}

func repl() int {
	cfg, machine := configure(".")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.REPL.History); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(cfg.REPL.History); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			fmt.Println()
			return exitOk
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		ln.AppendHistory(line)
		machine.Interpret(line, "main")
	}
}
