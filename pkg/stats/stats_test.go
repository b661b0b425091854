// Copyright (c) 2025 A Bit of Help, Inc.

package stats

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewStats(t *testing.T) {
	stats := NewStats(OperationCompress)

	if stats == nil {
		t.Fatal("Expected non-nil Stats instance, got nil")
	}
	if stats.Operation != OperationCompress {
		t.Errorf("Expected operation %q, got %q", OperationCompress, stats.Operation)
	}
	if stats.InputBytes.Load() != 0 || stats.OutputBytes.Load() != 0 {
		t.Error("Expected byte counters to start at 0")
	}
	if stats.Entries.Load() != 0 || stats.ChunksProcessed.Load() != 0 {
		t.Error("Expected entry and chunk counters to start at 0")
	}
}

func TestUpdateBytes(t *testing.T) {
	stats := NewStats(OperationCompress)

	stats.UpdateInputBytes(100)
	stats.UpdateInputBytes(50)
	stats.UpdateOutputBytes(30)

	if stats.InputBytes.Load() != 150 {
		t.Errorf("Expected InputBytes to be 150, got %d", stats.InputBytes.Load())
	}
	if stats.OutputBytes.Load() != 30 {
		t.Errorf("Expected OutputBytes to be 30, got %d", stats.OutputBytes.Load())
	}
}

func TestCompressedSide(t *testing.T) {
	c := NewStats(OperationCompress)
	c.InputBytes.Store(1000)
	c.OutputBytes.Store(250)
	if c.UncompressedBytes() != 1000 || c.CompressedBytes() != 250 {
		t.Errorf("Unexpected sides for compress: %d/%d", c.UncompressedBytes(), c.CompressedBytes())
	}

	d := NewStats(OperationDecompress)
	d.InputBytes.Store(250)
	d.OutputBytes.Store(1000)
	if d.UncompressedBytes() != 1000 || d.CompressedBytes() != 250 {
		t.Errorf("Unexpected sides for decompress: %d/%d", d.UncompressedBytes(), d.CompressedBytes())
	}
}

func TestConcurrentUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}

	stats := NewStats(OperationCompress)
	numGoroutines := 50
	updatesPerGoroutine := 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines * 3)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < updatesPerGoroutine; j++ {
				stats.UpdateInputBytes(1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < updatesPerGoroutine; j++ {
				stats.IncrementChunksProcessed()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < updatesPerGoroutine; j++ {
				stats.IncrementEntries()
			}
		}()
	}
	wg.Wait()

	expected := uint64(numGoroutines * updatesPerGoroutine)
	if stats.InputBytes.Load() != expected {
		t.Errorf("Expected InputBytes to be %d, got %d", expected, stats.InputBytes.Load())
	}
	if stats.ChunksProcessed.Load() != expected {
		t.Errorf("Expected ChunksProcessed to be %d, got %d", expected, stats.ChunksProcessed.Load())
	}
	if stats.Entries.Load() != expected {
		t.Errorf("Expected Entries to be %d, got %d", expected, stats.Entries.Load())
	}
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"hours", 2*time.Hour + 30*time.Minute + 15*time.Second + 500*time.Millisecond, "2h 30m 15s 500ms"},
		{"minutes", 30*time.Minute + 15*time.Second + 500*time.Millisecond, "30m 15s 500ms"},
		{"seconds", 15*time.Second + 500*time.Millisecond, "15s 500ms"},
		{"milliseconds", 500 * time.Millisecond, "500ms"},
		{"zero", 0, "0ms"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if result := FormatDuration(tc.duration); result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

// Helper function for approximate floating point comparison
func approxEqual(a, b, epsilon float64) bool {
	return a-b < epsilon && b-a < epsilon
}

func TestCalculateRatios(t *testing.T) {
	testCases := []struct {
		name          string
		op            Operation
		input, output uint64
		expectedRatio float64
		expectedSaved float64
	}{
		{"compress", OperationCompress, 1000, 250, 4.0, 75.0},
		{"decompress", OperationDecompress, 250, 1000, 4.0, 75.0},
		{"expansion", OperationCompress, 1000, 1200, 0.833, -20.0},
		{"empty input", OperationCompress, 0, 20, 0, 0},
		{"zero values", OperationDecompress, 0, 0, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStats(tc.op)
			s.InputBytes.Store(tc.input)
			s.OutputBytes.Store(tc.output)

			ratio, saved := s.CalculateRatios()
			if !approxEqual(ratio, tc.expectedRatio, 0.01) {
				t.Errorf("Expected ratio %.3f, got %.3f", tc.expectedRatio, ratio)
			}
			if !approxEqual(saved, tc.expectedSaved, 0.01) {
				t.Errorf("Expected saved %.3f, got %.3f", tc.expectedSaved, saved)
			}
		})
	}
}

func TestWriteSummary(t *testing.T) {
	s := NewStats(OperationCompress)
	s.Strategy = "archive"
	s.Algorithm = "zstd"
	s.Sealed = true
	s.InputBytes.Store(2048)
	s.OutputBytes.Store(1024)
	s.Entries.Store(1200)
	s.ChunksProcessed.Store(5)
	s.ProcessingTime = time.Second

	var buf bytes.Buffer
	s.WriteSummary(&buf, "photos", "photos.tar.zst")
	output := buf.String()

	expectedStrings := []string{
		"Processing Summary",
		"Operation: compress (archive, zstd)",
		"Input: photos",
		"Output: photos.tar.zst",
		"Sealed: yes",
		"Total input bytes: 2.0 kB (2048 bytes)",
		"Entries: 1,200",
		"Uncompressed to Compressed Ratio: 2.00:1",
		"Space Saved: 50.00%",
		"Number of chunks processed: 5",
		"Total processing time: 1s 0ms",
	}
	for _, e := range expectedStrings {
		if !strings.Contains(output, e) {
			t.Errorf("Expected output to contain %q, got:\n%s", e, output)
		}
	}
}

func TestDisplaySummary_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	s := NewStats(OperationDecompress)
	s.Strategy = "plain"
	s.InputBytes.Store(10)
	s.OutputBytes.Store(40)
	s.DisplaySummary(logger, "in.gz", "in")

	entries := logs.FilterMessage("Processing completed successfully").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one summary log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "decompress" || fields["total_output_bytes"] != uint64(40) {
		t.Errorf("Unexpected summary fields: %v", fields)
	}
}
