// Copyright (c) 2025 A Bit of Help, Inc.

package codec

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
)

type backend struct {
	newWriter func(w io.Writer, level int) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var backends = map[Algorithm]backend{
	Gzip:   {newWriter: newGzipWriter, newReader: newGzipReader},
	Zstd:   {newWriter: newZstdWriter, newReader: newZstdReader},
	Brotli: {newWriter: newBrotliWriter, newReader: newBrotliReader},
	LZ4:    {newWriter: newLZ4Writer, newReader: newLZ4Reader},
}

func lookup(algo Algorithm) (backend, error) {
	b, ok := backends[algo]
	if !ok {
		return backend{}, customErrors.InvalidConfig("lookup_algorithm", fmt.Errorf("unknown algorithm %q", algo))
	}
	return b, nil
}

// scaleLevel maps level in [MinLevel, MaxLevel] onto [lo, hi], keeping the
// end points
func scaleLevel(level, lo, hi int) int {
	return lo + (level-MinLevel)*(hi-lo)/(MaxLevel-MinLevel)
}

func newGzipWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, level)
}

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	// Concatenated members are part of the same stream, as with gunzip.
	zr.Multistream(true)
	return zr, nil
}

// zstdLevel maps onto zstd's 1..22 scale, which the encoder groups into its
// four speed classes
func zstdLevel(level int) zstd.EncoderLevel {
	return zstd.EncoderLevelFromZstd(scaleLevel(level, 1, 22))
}

func newZstdWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstdLevel(level)),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true))
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

func newBrotliWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return brotli.NewWriterLevel(w, scaleLevel(level, 1, brotli.BestCompression)), nil
}

func newBrotliReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level2,
	lz4.Level3,
	lz4.Level4,
	lz4.Level5,
	lz4.Level6,
	lz4.Level7,
	lz4.Level8,
	lz4.Level9,
}

func newLZ4Writer(w io.Writer, level int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level-MinLevel])); err != nil {
		return nil, err
	}
	return zw, nil
}

func newLZ4Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
