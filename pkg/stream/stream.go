// Copyright (c) 2025 A Bit of Help, Inc.

// Package stream provides the chunked copy loop shared by every stage of the
// engine.
//
// Copy moves data one chunk at a time, checks the context between chunks and
// calls an after-write hook so callers can observe progress without being
// interleaved with the I/O calls themselves.
package stream

import (
	"context"
	"errors"
	"io"
)

// DefaultChunkSize is the size of the buffer used when the caller passes none
const DefaultChunkSize = 32 * 1024

// ChunkFunc is called after each chunk has been written in full
type ChunkFunc func(n int)

// ReadError marks an error returned by the source of a Copy
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "read: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError marks an error returned by the destination of a Copy
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "write: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }

// Copy copies src to dst until EOF. It returns the number of bytes written.
// Source failures come back as *ReadError, sink failures as *WriteError and a
// done context as ctx.Err().
func Copy(ctx context.Context, dst io.Writer, src io.Reader, buf []byte, onChunk ChunkFunc) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultChunkSize)
	}

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr == nil && w != n {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				return written, &WriteError{Err: writeErr}
			}
			if onChunk != nil {
				onChunk(n)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, &ReadError{Err: readErr}
		}
	}
}

// IsReadError reports whether err came from the source side of a Copy
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// IsWriteError reports whether err came from the sink side of a Copy
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// CountingReader counts the bytes read through it
type CountingReader struct {
	R io.Reader
	N uint64
}

// Read implements io.Reader
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += uint64(n)
	return n, err
}

// CountingWriter counts the bytes written through it
type CountingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer
func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += uint64(n)
	return n, err
}
