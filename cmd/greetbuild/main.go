// Command greetbuild compiles the reference greeting provider for a platform.
//
// On a terminal it asks for confirmation and a target platform; with -yes or
// without a terminal it builds -platform (default: the running platform).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/woxQAQ/greetffi/internal/build"
	"github.com/woxQAQ/greetffi/pkg/abi"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		platform = flag.String("platform", "", "Target platform (windows, linux, darwin, wasip1)")
		yes      = flag.Bool("yes", false, "Build without prompting")
		outDir   = flag.String("out", ".", "Output directory for the artifact")
		goBin    = flag.String("go", "go", "Go binary used to compile")
		dir      = flag.String("dir", ".", "Module root containing ./cmd/libgreet")
		logLevel = flag.String("log-level", "", "Log level for non-interactive builds (debug, info, warn, error)")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var preset *build.Target
	if *platform != "" {
		t, err := build.LookupTarget(*platform)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return 1
		}
		preset = &t
	}

	opts := &build.Options{GoBinary: *goBin, Dir: *dir, OutDir: *outDir}

	if !*yes && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		// The TUI owns the terminal; builder logs are discarded.
		builder := build.NewBuilder(build.ExecRunner{}, zap.NewNop(), opts)
		return runInteractive(ctx, builder, preset)
	}

	logger := newLogger(*logLevel)
	defer logger.Sync()

	target := preset
	if target == nil {
		t, err := build.LookupTarget(abi.CurrentPlatform().String())
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return 1
		}
		target = &t
	}

	builder := build.NewBuilder(build.ExecRunner{}, logger, opts)
	fmt.Printf("Compiling Go shared library for %s...\n", target.Label)

	artifact, err := builder.Build(ctx, *target)
	if err != nil {
		fmt.Fprint(os.Stderr, renderFailure(err))
		return 1
	}

	fmt.Print(renderSuccess(artifact))
	return 0
}

func runInteractive(ctx context.Context, builder *build.Builder, preset *build.Target) int {
	m := newBuildModel(ctx, builder, preset)

	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, cancelStyle.Render("Build process canceled."))
			return 0
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}

	if fm, ok := final.(*buildModel); ok && fm.err != nil {
		return 1
	}
	return 0
}

func newLogger(level string) *zap.Logger {
	if level == "" {
		return zap.NewNop()
	}

	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		if lvl, parseErr := zap.ParseAtomicLevel(level); parseErr == nil {
			cfg.Level = lvl
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
