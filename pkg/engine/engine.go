// Copyright (c) 2025 A Bit of Help, Inc.

// Package engine runs one compression or decompression of a path.
//
// Compress classifies the input once. A regular file is streamed through the
// codec; a directory is walked, archived and compressed in one pass. Decompress
// picks its strategy from the artifact name: a plain artifact decodes to one
// file, a container artifact is validated in full and then extracted into a
// directory. Every run is single threaded and synchronous. Progress is
// published through an optional observer called after each chunk write.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/abitofhelp/pathcompress/pkg/archive"
	"github.com/abitofhelp/pathcompress/pkg/classifier"
	"github.com/abitofhelp/pathcompress/pkg/codec"
	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/format"
	"github.com/abitofhelp/pathcompress/pkg/options"
	"github.com/abitofhelp/pathcompress/pkg/progress"
	"github.com/abitofhelp/pathcompress/pkg/seal"
	"github.com/abitofhelp/pathcompress/pkg/stats"
	"github.com/abitofhelp/pathcompress/pkg/stream"
)

// Strategy names recorded in stats
const (
	StrategyPlain   = "plain_file"
	StrategyArchive = "container_archive"
)

// Engine compresses and decompresses paths with a fixed configuration
type Engine struct {
	logger    *zap.Logger
	level     int
	algorithm codec.Algorithm
	sealer    *seal.Sealer
	observer  progress.Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver installs a progress observer
func WithObserver(observer progress.Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}

// WithSealer enables the seal stage with an already loaded keyset. It takes
// precedence over options.Options.KeysetPath.
func WithSealer(sealer *seal.Sealer) Option {
	return func(e *Engine) {
		e.sealer = sealer
	}
}

// New validates opts and creates an Engine. When opts names a keyset it is
// loaded here so a bad keyset fails before any file is touched.
func New(logger *zap.Logger, opts *options.Options, optFns ...Option) (*Engine, error) {
	if opts == nil {
		opts = options.DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	algo, err := codec.ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		logger:    logger,
		level:     opts.Level,
		algorithm: algo,
	}
	for _, fn := range optFns {
		fn(e)
	}

	if e.sealer == nil && opts.Sealed() {
		sealer, err := seal.Load(opts.KeysetPath)
		if err != nil {
			return nil, err
		}
		e.sealer = sealer
		logger.Info("Keyset loaded", zap.String("keyset_path", opts.KeysetPath))
	}
	return e, nil
}

// Compress compresses input to output and returns the run statistics. An
// empty output selects a name next to input with the canonical suffix for the
// strategy and algorithm.
func (e *Engine) Compress(ctx context.Context, input, output string) (*stats.Stats, error) {
	r := newRun(e.logger, stats.OperationCompress, input)
	r.stats.Algorithm = string(e.algorithm)
	r.stats.Sealed = e.sealer != nil

	src, err := classifier.Classify(input)
	if err != nil {
		return nil, r.fail(err)
	}
	r.transition(StateClassified, zap.String("kind", src.Kind.String()))

	switch src.Kind {
	case classifier.File:
		if output == "" {
			output = format.CompressedName(input, format.PlainFile, e.algorithm)
		}
		err = e.compressFile(ctx, r, src, output)
	case classifier.Directory:
		if output == "" {
			output = format.CompressedName(input, format.ContainerArchive, e.algorithm)
		}
		err = e.compressDirectory(ctx, r, src, output)
	default:
		err = customErrors.Unsupported("compress", input, fmt.Errorf("unexpected kind %s", src.Kind))
	}
	if err != nil {
		return nil, r.fail(err)
	}

	r.stats.Output = output
	s := r.complete()
	e.logger.Info("Compression complete",
		zap.String("input", input),
		zap.String("output", output),
		zap.String("strategy", s.Strategy),
		zap.Uint64("input_bytes", s.InputBytes.Load()),
		zap.Uint64("output_bytes", s.OutputBytes.Load()))
	return s, nil
}

// Decompress restores the artifact at input to output. The strategy and
// algorithm come from the name of input. An empty output strips the artifact
// suffix from input.
func (e *Engine) Decompress(ctx context.Context, input, output string) (*stats.Stats, error) {
	r := newRun(e.logger, stats.OperationDecompress, input)
	r.stats.Sealed = e.sealer != nil

	src, err := classifier.Classify(input)
	if err != nil {
		return nil, r.fail(err)
	}
	if src.Kind != classifier.File {
		return nil, r.fail(customErrors.Unsupported("decompress", input, errors.New("artifact must be a regular file")))
	}
	r.transition(StateClassified, zap.String("kind", src.Kind.String()))

	f := format.Detect(input)
	r.stats.Algorithm = string(f.Algorithm)
	r.transition(StateDetected,
		zap.String("format", f.Kind.String()),
		zap.String("algorithm", string(f.Algorithm)),
		zap.String("suffix", f.Suffix))

	if output == "" {
		output = format.StripSuffix(input)
	}

	switch f.Kind {
	case format.ContainerArchive:
		err = e.decompressArchive(ctx, r, src, f.Algorithm, output)
	default:
		err = e.decompressFile(ctx, r, src, f.Algorithm, output)
	}
	if err != nil {
		return nil, r.fail(err)
	}

	r.stats.Output = output
	s := r.complete()
	e.logger.Info("Decompression complete",
		zap.String("input", input),
		zap.String("output", output),
		zap.String("strategy", s.Strategy),
		zap.Uint64("input_bytes", s.InputBytes.Load()),
		zap.Uint64("output_bytes", s.OutputBytes.Load()))
	return s, nil
}

func (e *Engine) compressFile(ctx context.Context, r *run, src classifier.SourcePath, output string) error {
	r.stats.Strategy = StrategyPlain
	if err := checkDistinct(src.Path, output); err != nil {
		return err
	}
	r.transition(StateStreaming, zap.String("output", output), zap.Int("level", e.level))

	in, err := os.Open(src.Path)
	if err != nil {
		return customErrors.IO("open_input", src.Path, err)
	}
	defer in.Close()

	out, err := createOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()

	counted := &stream.CountingWriter{W: out}
	sink, finish, err := e.sealSink(counted)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(uint64(src.Size), e.observer)
	n, err := codec.Compress(ctx, in, sink, e.algorithm, e.level, e.chunkHook(r, tracker.Add))
	r.stats.InputBytes.Store(uint64(n))
	if err != nil {
		return err
	}
	if err := finish(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return customErrors.IO("close_output", output, err)
	}

	r.stats.OutputBytes.Store(counted.N)
	r.stats.IncrementEntries()
	return nil
}

func (e *Engine) compressDirectory(ctx context.Context, r *run, src classifier.SourcePath, output string) error {
	r.stats.Strategy = StrategyArchive

	// Collected before the output exists so a stale or fresh artifact inside
	// the tree is never archived into itself.
	entries, err := archive.Collect(src.Path, archive.RegularFiles, output)
	if err != nil {
		return err
	}
	total := archive.TotalSize(entries)
	r.transition(StateArchiving,
		zap.String("output", output),
		zap.Int("entries", len(entries)),
		zap.Uint64("total_bytes", total),
		zap.Int("level", e.level))

	out, err := createOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()

	counted := &stream.CountingWriter{W: out}
	sink, finish, err := e.sealSink(counted)
	if err != nil {
		return err
	}

	zw, err := codec.NewWriter(sink, e.algorithm, e.level)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(total, e.observer)
	if err := archive.Build(ctx, entries, zw, e.chunkHook(r, tracker.Add)); err != nil {
		zw.Close()
		r.stats.InputBytes.Store(tracker.Processed())
		return err
	}
	if err := zw.Close(); err != nil {
		return customErrors.IO("finalize_compressor", output, err)
	}
	if err := finish(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return customErrors.IO("close_output", output, err)
	}

	r.stats.InputBytes.Store(tracker.Processed())
	r.stats.OutputBytes.Store(counted.N)
	r.stats.Entries.Store(uint64(len(entries)))
	return nil
}

func (e *Engine) decompressFile(ctx context.Context, r *run, src classifier.SourcePath, algo codec.Algorithm, output string) error {
	r.stats.Strategy = StrategyPlain
	if err := checkDistinct(src.Path, output); err != nil {
		return err
	}
	r.transition(StateStreaming, zap.String("output", output))

	dec, err := e.openDecoder(src.Path, algo)
	if err != nil {
		return err
	}
	defer dec.Close()

	out, err := createOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()

	tracker := progress.NewTracker(uint64(src.Size), e.observer)
	onChunk := e.chunkHook(r, func(int) { tracker.Set(dec.consumed()) })

	n, err := stream.Copy(ctx, out, dec, nil, onChunk)
	r.stats.InputBytes.Store(dec.consumed())
	r.stats.OutputBytes.Store(uint64(n))
	if err != nil {
		return copyError("decompress", output, err)
	}
	if err := out.Close(); err != nil {
		return customErrors.IO("close_output", output, err)
	}

	r.stats.IncrementEntries()
	return nil
}

func (e *Engine) decompressArchive(ctx context.Context, r *run, src classifier.SourcePath, algo codec.Algorithm, output string) error {
	r.stats.Strategy = StrategyArchive
	r.transition(StateArchiving, zap.String("output", output))

	// First pass: every header is checked before anything is written.
	count, err := e.validateArchive(src.Path, algo)
	if err != nil {
		return err
	}
	r.logger.Debug("Container validated", zap.Int("entries", count))

	if err := ctx.Err(); err != nil {
		return customErrors.Canceled("decompress", src.Path, err)
	}

	// Second pass over a fresh decode of the same artifact.
	dec, err := e.openDecoder(src.Path, algo)
	if err != nil {
		return err
	}
	defer dec.Close()

	var produced uint64
	tracker := progress.NewTracker(uint64(src.Size), e.observer)
	onChunk := e.chunkHook(r, func(n int) {
		produced += uint64(n)
		tracker.Set(dec.consumed())
	})

	written, err := archive.Extract(ctx, dec, output, onChunk)
	r.stats.InputBytes.Store(dec.consumed())
	r.stats.OutputBytes.Store(produced)
	r.stats.Entries.Store(uint64(written))
	return err
}

func (e *Engine) validateArchive(path string, algo codec.Algorithm) (int, error) {
	dec, err := e.openDecoder(path, algo)
	if err != nil {
		return 0, err
	}
	defer dec.Close()
	return archive.Validate(dec)
}

// chunkHook counts chunks into the run stats and forwards the chunk size
func (e *Engine) chunkHook(r *run, next func(int)) stream.ChunkFunc {
	return func(n int) {
		r.stats.IncrementChunksProcessed()
		next(n)
	}
}

// sealSink wraps w with the seal stage when one is configured. finish must be
// called after the last write to flush the final sealed segment.
func (e *Engine) sealSink(w io.Writer) (io.Writer, func() error, error) {
	if e.sealer == nil {
		return w, func() error { return nil }, nil
	}
	sw, err := e.sealer.Seal(w)
	if err != nil {
		return nil, nil, err
	}
	finish := func() error {
		if err := sw.Close(); err != nil {
			return customErrors.IO("finalize_seal", "", err)
		}
		return nil
	}
	return sw, finish, nil
}

// decoder is an artifact opened for reading: file, byte counter, optional
// seal stage and decompressor
type decoder struct {
	file    *os.File
	counter *stream.CountingReader
	reader  io.ReadCloser
}

func (e *Engine) openDecoder(path string, algo codec.Algorithm) (*decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, customErrors.IO("open_input", path, err)
	}

	counter := &stream.CountingReader{R: f}
	var src io.Reader = counter
	if e.sealer != nil {
		src, err = e.sealer.Open(counter)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	zr, err := codec.NewReader(src, algo)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &decoder{file: f, counter: counter, reader: zr}, nil
}

func (d *decoder) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

// consumed returns the artifact bytes read so far
func (d *decoder) consumed() uint64 {
	return d.counter.N
}

func (d *decoder) Close() error {
	d.reader.Close()
	return d.file.Close()
}

// createOutput creates or truncates the output file, creating missing parents
func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, customErrors.IO("create_output_dir", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, customErrors.IO("create_output", path, err)
	}
	return f, nil
}

// checkDistinct refuses to write a plain output over its own input
func checkDistinct(input, output string) error {
	in, err := os.Stat(input)
	if err != nil {
		return nil
	}
	out, err := os.Stat(output)
	if err != nil {
		return nil
	}
	if os.SameFile(in, out) {
		return customErrors.InvalidConfig("check_output",
			fmt.Errorf("output %s is the input file", output))
	}
	return nil
}

func copyError(operation, path string, err error) error {
	var opErr *customErrors.OperationError
	switch {
	case errors.As(err, &opErr):
		return opErr
	case customErrors.IsCancellationError(err):
		return customErrors.Canceled(operation, path, err)
	default:
		return customErrors.IO(operation, path, err)
	}
}
