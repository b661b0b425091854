// Copyright (c) 2025 A Bit of Help, Inc.

// Package codec provides the streaming compression transform used by the
// engine, both for single files and as the final stage of a directory archive.
//
// Every algorithm takes the same 1..9 level scale, mapped onto the algorithm's
// own range. The level trades speed for size and never affects decodability.
package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/stream"
)

// Algorithm names a compression algorithm
type Algorithm string

const (
	Gzip   Algorithm = "gzip"
	Zstd   Algorithm = "zstd"
	Brotli Algorithm = "brotli"
	LZ4    Algorithm = "lz4"
)

// DefaultAlgorithm is used when none is configured or detected
const DefaultAlgorithm = Gzip

const (
	// MinLevel is the fastest level with the largest output
	MinLevel = 1

	// MaxLevel is the slowest level with the smallest output
	MaxLevel = 9

	// DefaultLevel balances speed and size
	DefaultLevel = 6
)

// Algorithms lists the supported algorithms in a stable order
func Algorithms() []Algorithm {
	return []Algorithm{Gzip, Zstd, Brotli, LZ4}
}

// ParseAlgorithm resolves a case-insensitive algorithm name. The empty string
// selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultAlgorithm, nil
	}
	for _, algo := range Algorithms() {
		if string(algo) == name {
			return algo, nil
		}
	}
	return "", customErrors.InvalidConfig("parse_algorithm", fmt.Errorf("unknown algorithm %q", name))
}

// ValidateLevel rejects levels outside [MinLevel, MaxLevel]
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return customErrors.InvalidConfig("validate_level",
			fmt.Errorf("compression level %d outside [%d, %d]", level, MinLevel, MaxLevel))
	}
	return nil
}

// NewWriter wraps dst with a compressor. The caller must Close the writer to
// flush the stream footer; closing does not close dst.
func NewWriter(dst io.Writer, algo Algorithm, level int) (io.WriteCloser, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	b, err := lookup(algo)
	if err != nil {
		return nil, err
	}
	w, err := b.newWriter(dst, level)
	if err != nil {
		return nil, customErrors.IO("create_compressor", string(algo), err)
	}
	return w, nil
}

// NewReader wraps src with a decompressor. A stream whose header cannot be
// parsed fails with a corrupt stream error. Closing does not close src.
func NewReader(src io.Reader, algo Algorithm) (io.ReadCloser, error) {
	b, err := lookup(algo)
	if err != nil {
		return nil, err
	}
	tracked := &trackingReader{r: src}
	r, err := b.newReader(tracked)
	if err != nil {
		return nil, classifyReadError("open_decompressor", string(algo), tracked, err)
	}
	return &decodeReader{rc: r, src: tracked, algo: algo}, nil
}

// Compress reads src to EOF and writes its compressed form to dst. It returns
// the number of uncompressed bytes consumed.
func Compress(ctx context.Context, src io.Reader, dst io.Writer, algo Algorithm, level int, onChunk stream.ChunkFunc) (int64, error) {
	zw, err := NewWriter(dst, algo, level)
	if err != nil {
		return 0, err
	}

	n, err := stream.Copy(ctx, zw, src, nil, onChunk)
	if err != nil {
		zw.Close()
		return n, classifyCopyError("compress", string(algo), err)
	}
	if err := zw.Close(); err != nil {
		return n, customErrors.IO("finalize_compressor", string(algo), err)
	}
	return n, nil
}

// Decompress decodes src to EOF into dst. It returns the number of
// uncompressed bytes produced.
func Decompress(ctx context.Context, src io.Reader, dst io.Writer, algo Algorithm, onChunk stream.ChunkFunc) (int64, error) {
	zr, err := NewReader(src, algo)
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	n, err := stream.Copy(ctx, dst, zr, nil, onChunk)
	if err != nil {
		return n, classifyCopyError("decompress", string(algo), err)
	}
	return n, nil
}

// trackingReader remembers the first error from the raw source so decode
// failures can be told apart from I/O failures
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// decodeReader turns decoder failures into engine errors as they surface
type decodeReader struct {
	rc   io.ReadCloser
	src  *trackingReader
	algo Algorithm
}

func (d *decodeReader) Read(p []byte) (int, error) {
	n, err := d.rc.Read(p)
	if err != nil && err != io.EOF {
		err = classifyReadError("decode", string(d.algo), d.src, err)
	}
	return n, err
}

func (d *decodeReader) Close() error {
	return d.rc.Close()
}

func classifyReadError(operation, path string, src *trackingReader, err error) error {
	var opErr *customErrors.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	if src.err != nil {
		// A layer below may already have classified its own failure.
		if errors.As(src.err, &opErr) {
			return src.err
		}
		return customErrors.IO(operation, path, src.err)
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return customErrors.Corrupt(operation, path, err)
}

func classifyCopyError(operation, path string, err error) error {
	var opErr *customErrors.OperationError
	switch {
	case errors.As(err, &opErr):
		return err
	case customErrors.IsCancellationError(err):
		return customErrors.Canceled(operation, path, err)
	default:
		return customErrors.IO(operation, path, err)
	}
}
