// Copyright (c) 2025 A Bit of Help, Inc.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abitofhelp/pathcompress/pkg/engine"
	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/logger"
	"github.com/abitofhelp/pathcompress/pkg/options"
	"github.com/abitofhelp/pathcompress/pkg/progress"
	"github.com/abitofhelp/pathcompress/pkg/seal"
	"github.com/abitofhelp/pathcompress/pkg/stats"
	"github.com/abitofhelp/pathcompress/pkg/utils"
)

// ExitFunc is a function that exits the program with a given status code
type ExitFunc func(int)

// DefaultExitFunc is the default implementation of ExitFunc
var DefaultExitFunc = os.Exit

// LoggerFactory builds the run logger once the configuration is known
type LoggerFactory func(cfg logger.Config) (*zap.Logger, error)

// ProcessFunc compresses or decompresses input to output
type ProcessFunc func(ctx context.Context, log *zap.Logger, opts *options.Options, inputPath, outputPath string) (*stats.Stats, error)

// KeygenFunc writes a new keyset to path
type KeygenFunc func(path string) error

// Processors are the operations the commands dispatch to
type Processors struct {
	Compress   ProcessFunc
	Decompress ProcessFunc
	Keygen     KeygenFunc
}

// DefaultProcessors runs the real engine
func DefaultProcessors() Processors {
	return Processors{
		Compress:   compressPath,
		Decompress: decompressPath,
		Keygen:     seal.GenerateKeyset,
	}
}

// app holds the state of one command line invocation
type app struct {
	newLogger LoggerFactory
	procs     Processors
	viper     *viper.Viper
	stdout    io.Writer

	cfg *Config
	log *zap.Logger
}

// run is the main logic of the application, extracted for testability
func run(args []string, newLogger LoggerFactory, exit ExitFunc, procs Processors) {
	a := &app{
		newLogger: newLogger,
		procs:     procs,
		viper:     viper.New(),
		stdout:    os.Stdout,
	}

	root := a.rootCommand()
	root.SetArgs(args)
	err := root.Execute()

	if a.log != nil {
		defer logger.SafeSync(a.log)
	}
	if err != nil {
		a.reportError(root, err)
		exit(1)
		return
	}
}

// reportError logs err by kind. Failures before the logger exists, such as
// usage errors, go to stderr.
func (a *app) reportError(root *cobra.Command, err error) {
	if a.log == nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return
	}

	kind := zap.String("error_kind", string(customErrors.KindOf(err)))
	if customErrors.IsCancellationError(err) {
		a.log.Warn("Processing was canceled", zap.Error(err), kind)
	} else if customErrors.IsConfigError(err) {
		a.log.Error("Invalid configuration", zap.Error(err), kind)
	} else if customErrors.IsNotFoundError(err) {
		a.log.Error("Input path not found", zap.Error(err), kind)
	} else if customErrors.IsUnsupportedError(err) {
		a.log.Error("Unsupported input path", zap.Error(err), kind)
	} else if customErrors.IsPathTraversalError(err) {
		a.log.Error("Archive entry escapes the destination", zap.Error(err), kind)
	} else if customErrors.IsCorruptStreamError(err) {
		a.log.Error("Compressed data is corrupt", zap.Error(err), kind)
	} else if customErrors.IsIOError(err) {
		a.log.Error("I/O error during processing", zap.Error(err), kind)
	} else {
		a.log.Error("Failed to process path", zap.Error(err), kind)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pathcompress",
		Short: "Compress and decompress files and directory trees",
		Long: `pathcompress compresses a single file as one stream, or a directory as a
tar container compressed in the same pass. Decompression picks the strategy
and algorithm from the artifact suffix (.gz, .zst, .br, .lz4, .tar.gz, ...).`,
		SilenceErrors:     true,
		PersistentPreRunE: a.configure,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		a.processCommand("compress", "Compress a file or directory",
			"With no output, a file gets the algorithm suffix and a directory gets .tar plus that suffix.",
			a.procs.Compress),
		a.processCommand("decompress", "Decompress an artifact to a file or directory",
			"With no output, the artifact suffix is removed; a name without a known suffix gets .out.",
			a.procs.Decompress),
		a.keygenCommand(),
	)
	return root
}

// configure loads the configuration and builds the logger before any
// command runs
func (a *app) configure(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.viper, cmd)
	if err != nil {
		return err
	}
	log, err := a.newLogger(cfg.Logger())
	if err != nil {
		return customErrors.InvalidConfig("create_logger", err)
	}
	a.cfg = cfg
	a.log = log

	// Arguments parsed; later failures are run errors rather than usage errors.
	cmd.SilenceUsage = true
	return nil
}

func (a *app) processCommand(name, short, long string, process ProcessFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <input> [output]",
		Short: short,
		Long:  long,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			outputPath := ""
			if len(args) == 2 {
				outputPath = args[1]
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Setup graceful shutdown
			cleanup := utils.SetupGracefulShutdown(ctx, cancel, a.log, a.cfg.ShutdownTimeout)
			defer cleanup()

			s, err := process(ctx, a.log, a.cfg.Options(), inputPath, outputPath)
			if err != nil {
				return err
			}

			if s.Output != "" {
				outputPath = s.Output
			}
			s.WriteSummary(a.stdout, inputPath, outputPath)
			s.LogSummary(a.log, inputPath, outputPath)
			return nil
		},
	}
}

func (a *app) keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <keyset-file>",
		Short: "Write a new streaming AEAD keyset for --keyset",
		Long:  "The keyset is stored as cleartext JSON with mode 0600. An existing file is never overwritten.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.procs.Keygen(args[0]); err != nil {
				return err
			}
			a.log.Info("Keyset written", zap.String("keyset_path", args[0]))
			return nil
		},
	}
}

func compressPath(ctx context.Context, log *zap.Logger, opts *options.Options, inputPath, outputPath string) (*stats.Stats, error) {
	return withEngine(log, opts, func(e *engine.Engine) (*stats.Stats, error) {
		return e.Compress(ctx, inputPath, outputPath)
	})
}

func decompressPath(ctx context.Context, log *zap.Logger, opts *options.Options, inputPath, outputPath string) (*stats.Stats, error) {
	return withEngine(log, opts, func(e *engine.Engine) (*stats.Stats, error) {
		return e.Decompress(ctx, inputPath, outputPath)
	})
}

// withEngine builds an engine for opts, with a progress reporter subscribed
// when progress logging is enabled, and runs fn on it
func withEngine(log *zap.Logger, opts *options.Options, fn func(*engine.Engine) (*stats.Stats, error)) (*stats.Stats, error) {
	var engineOpts []engine.Option
	if opts.ProgressInterval > 0 {
		reporter := progress.NewReporter(log, opts.ProgressInterval)
		engineOpts = append(engineOpts, engine.WithObserver(reporter.Observe))
		reporter.Start()
		defer reporter.Stop()
	}

	e, err := engine.New(log, opts, engineOpts...)
	if err != nil {
		return nil, err
	}
	return fn(e)
}

func main() {
	run(os.Args[1:], logger.New, DefaultExitFunc, DefaultProcessors())
}
