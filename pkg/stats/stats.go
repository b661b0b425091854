// Copyright (c) 2025 A Bit of Help, Inc.

// Package stats provides functionality for tracking per-run compression statistics
package stats

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Operation names the direction of a run
type Operation string

const (
	OperationCompress   Operation = "compress"
	OperationDecompress Operation = "decompress"
)

// Stats tracks run statistics with thread-safe access methods
type Stats struct {
	// Byte counts at both ends of the run
	InputBytes  atomic.Uint64
	OutputBytes atomic.Uint64

	// Entries is the number of files archived or extracted, 1 for a plain file
	Entries atomic.Uint64

	// ChunksProcessed counts chunk writes seen by the progress hook
	ChunksProcessed atomic.Uint64

	// Description of the run
	Operation Operation
	Strategy  string
	Algorithm string
	Sealed    bool

	// Output is the path written, resolved to the default when none was given
	Output string

	// Performance metrics
	ProcessingTime time.Duration
}

// NewStats creates a new Stats instance for op
func NewStats(op Operation) *Stats {
	return &Stats{Operation: op}
}

// UpdateInputBytes safely adds n bytes to the input byte count
func (s *Stats) UpdateInputBytes(n uint64) {
	s.InputBytes.Add(n)
}

// UpdateOutputBytes safely adds n bytes to the output byte count
func (s *Stats) UpdateOutputBytes(n uint64) {
	s.OutputBytes.Add(n)
}

// IncrementEntries safely increments the entry counter
func (s *Stats) IncrementEntries() {
	s.Entries.Add(1)
}

// IncrementChunksProcessed safely increments the chunks processed counter
func (s *Stats) IncrementChunksProcessed() {
	s.ChunksProcessed.Add(1)
}

// UncompressedBytes returns the byte count on the uncompressed side of the run
func (s *Stats) UncompressedBytes() uint64 {
	if s.Operation == OperationDecompress {
		return s.OutputBytes.Load()
	}
	return s.InputBytes.Load()
}

// CompressedBytes returns the byte count on the compressed side of the run
func (s *Stats) CompressedBytes() uint64 {
	if s.Operation == OperationDecompress {
		return s.InputBytes.Load()
	}
	return s.OutputBytes.Load()
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds %dms", hours, minutes, seconds, milliseconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds %dms", minutes, seconds, milliseconds)
	} else if seconds > 0 {
		return fmt.Sprintf("%ds %dms", seconds, milliseconds)
	}
	return fmt.Sprintf("%dms", milliseconds)
}

// CalculateRatios returns the uncompressed to compressed ratio and the
// percentage of space saved. Both are zero when either side is empty.
func (s *Stats) CalculateRatios() (float64, float64) {
	uncompressed := s.UncompressedBytes()
	compressed := s.CompressedBytes()
	if uncompressed == 0 || compressed == 0 {
		return 0, 0
	}

	ratio := float64(uncompressed) / float64(compressed)

	// Percentage of space saved = (1 - (compressed / uncompressed)) * 100
	saved := (1 - (float64(compressed) / float64(uncompressed))) * 100

	return ratio, saved
}

// WriteSummary writes a human-readable summary of the run to w
func (s *Stats) WriteSummary(w io.Writer, inputPath, outputPath string) {
	ratio, saved := s.CalculateRatios()
	inputBytes := s.InputBytes.Load()
	outputBytes := s.OutputBytes.Load()

	fmt.Fprintln(w, "\n==================")
	fmt.Fprintln(w, "Processing Summary")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Operation: %s (%s, %s)\n", s.Operation, s.Strategy, s.Algorithm)
	fmt.Fprintf(w, "Input: %s\n", inputPath)
	fmt.Fprintf(w, "Output: %s\n", outputPath)
	if s.Sealed {
		fmt.Fprintln(w, "Sealed: yes")
	}
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Total input bytes: %s (%d bytes)\n", humanize.Bytes(inputBytes), inputBytes)
	fmt.Fprintf(w, "Total output bytes: %s (%d bytes)\n", humanize.Bytes(outputBytes), outputBytes)
	fmt.Fprintf(w, "Entries: %s\n", humanize.Comma(int64(s.Entries.Load())))
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Uncompressed to Compressed Ratio: %.2f:1\n", ratio)
	fmt.Fprintf(w, "Space Saved: %.2f%%\n", saved)
	fmt.Fprintf(w, "Number of chunks processed: %d\n", s.ChunksProcessed.Load())
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Total processing time: %s (%v)\n", FormatDuration(s.ProcessingTime), s.ProcessingTime)
	fmt.Fprintln(w, "==================")
}

// DisplaySummary prints and logs a summary of the run
func (s *Stats) DisplaySummary(logger *zap.Logger, inputPath, outputPath string) {
	s.WriteSummary(os.Stdout, inputPath, outputPath)
	s.LogSummary(logger, inputPath, outputPath)
}

// LogSummary logs the summary values at debug level
func (s *Stats) LogSummary(logger *zap.Logger, inputPath, outputPath string) {
	ratio, saved := s.CalculateRatios()
	logger.Debug("Processing completed successfully",
		zap.String("operation", string(s.Operation)),
		zap.String("strategy", s.Strategy),
		zap.String("algorithm", s.Algorithm),
		zap.Bool("sealed", s.Sealed),
		zap.String("input_path", inputPath),
		zap.String("output_path", outputPath),
		zap.Uint64("total_input_bytes", s.InputBytes.Load()),
		zap.Uint64("total_output_bytes", s.OutputBytes.Load()),
		zap.Uint64("entries", s.Entries.Load()),
		zap.Float64("compression_ratio", ratio),
		zap.Float64("saved_space", saved),
		zap.Uint64("chunks_processed", s.ChunksProcessed.Load()),
		zap.Duration("processing_time", s.ProcessingTime),
		zap.String("formatted_processing_time", FormatDuration(s.ProcessingTime)))
}
