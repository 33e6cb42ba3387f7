package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Options configures a Builder.
type Options struct {
	// Go binary to invoke. Default: "go".
	GoBinary string

	// Module root the target packages are resolved against. Default: ".".
	Dir string

	// Directory artifacts are written to. Default: Dir.
	OutDir string
}

// Artifact is a successfully built provider.
type Artifact struct {
	Target   Target
	Path     string
	Duration time.Duration
	Output   string
}

// Builder compiles provider targets with go build -buildmode=c-shared.
type Builder struct {
	runner CommandRunner
	opts   Options
	logger *zap.Logger
}

// NewBuilder creates a builder running commands through runner.
func NewBuilder(runner CommandRunner, logger *zap.Logger, opts *Options) *Builder {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.GoBinary == "" {
		o.GoBinary = "go"
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.OutDir == "" {
		o.OutDir = o.Dir
	}

	return &Builder{
		runner: runner,
		opts:   o,
		logger: logger.With(zap.String("component", "builder")),
	}
}

// OutputPath returns the absolute path target is written to.
func (b *Builder) OutputPath(target Target) (string, error) {
	output, err := filepath.Abs(filepath.Join(b.opts.OutDir, target.Output))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of output file %s: %w", target.Output, err)
	}
	return output, nil
}

// Command returns the go build invocation for target.
func (b *Builder) Command(target Target) (Command, error) {
	output, err := b.OutputPath(target)
	if err != nil {
		return Command{}, err
	}

	return Command{
		Name: b.opts.GoBinary,
		Args: []string{"build", "-buildmode=c-shared", "-o", output, target.Package},
		Dir:  b.opts.Dir,
		Env:  target.Env(),
	}, nil
}

// Build compiles target and returns the artifact. Failures of the compiler
// itself are returned as *BuildError.
func (b *Builder) Build(ctx context.Context, target Target) (*Artifact, error) {
	output, err := b.OutputPath(target)
	if err != nil {
		return nil, err
	}
	cmd, err := b.Command(target)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(b.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", b.opts.OutDir, err)
	}

	b.logger.Info("Building provider",
		zap.String("target", target.Name),
		zap.String("package", target.Package),
		zap.Strings("env", cmd.Env),
	)

	start := time.Now()
	res, err := b.runner.Run(ctx, cmd)
	if err != nil {
		buildErr := &BuildError{Target: target.Name, Err: err}
		if res != nil {
			buildErr.ExitCode = res.ExitCode
			buildErr.Stdout = string(res.Stdout)
			buildErr.Stderr = string(res.Stderr)
		}
		b.logger.Error("Build failed",
			zap.String("target", target.Name),
			zap.Int("exit_code", buildErr.ExitCode),
			zap.String("stderr", buildErr.Stderr),
		)
		return nil, buildErr
	}

	artifact := &Artifact{
		Target:   target,
		Path:     output,
		Duration: time.Since(start),
		Output:   string(res.Stdout) + string(res.Stderr),
	}

	b.logger.Info("Build completed",
		zap.String("target", target.Name),
		zap.String("artifact", artifact.Path),
		zap.Duration("duration", artifact.Duration),
	)

	return artifact, nil
}
