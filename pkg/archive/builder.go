// Copyright (c) 2025 A Bit of Help, Inc.

// Package archive turns a directory tree into a tar container stream and
// back.
//
// Building is split into three visible steps: Walk records every walk
// result, a Filter decides which results become entries, and Build serializes
// the accepted entries. Extraction validates entry names before anything is
// written to disk.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/stream"
)

// WalkResult is one callback of a directory walk, kept with its error
type WalkResult struct {
	// Path is the host path of the entry
	Path string

	// Entry is nil when the walk could not stat Path
	Entry fs.DirEntry

	// Err is the error the walk reported for Path, if any
	Err error
}

// Filter decides whether a walk result becomes an archive entry
type Filter func(WalkResult) bool

// RegularFiles accepts only regular files that were walked without error.
// Directories, symlinks, devices, sockets and failed entries are skipped.
func RegularFiles(r WalkResult) bool {
	return r.Err == nil && r.Entry != nil && r.Entry.Type().IsRegular()
}

// Entry is a file accepted into the archive
type Entry struct {
	// RelPath is relative to the walk root and always uses forward slashes
	RelPath string

	// SourcePath is the host path the contents are read from
	SourcePath string

	// Size is the length recorded in the entry header
	Size int64

	// Mode holds the permission bits recorded in the entry header
	Mode fs.FileMode

	// ModTime is the modification time recorded in the entry header,
	// truncated to the second
	ModTime time.Time
}

// Walk visits root depth first in lexical order and records every callback.
// It never fails; errors are carried on the results.
func Walk(root string) []WalkResult {
	var results []WalkResult
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		results = append(results, WalkResult{Path: path, Entry: d, Err: err})
		if err != nil && d != nil && d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
	return results
}

// Collect walks root and returns the entries accepted by filter, in walk
// order. Paths listed in exclude are skipped, which keeps an output file
// that lives inside root out of its own archive. A nil filter means
// RegularFiles.
func Collect(root string, filter Filter, exclude ...string) ([]Entry, error) {
	if filter == nil {
		filter = RegularFiles
	}

	// A symlinked root is walked through its target.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		skip[canonicalPath(p)] = struct{}{}
	}

	var entries []Entry
	for _, r := range Walk(root) {
		if !filter(r) {
			continue
		}
		if _, excluded := skip[canonicalPath(r.Path)]; excluded {
			continue
		}

		info, err := r.Entry.Info()
		if err != nil {
			// Removed between the directory read and now; same policy as a
			// walk error.
			continue
		}

		rel, err := RelativeName(root, r.Path)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{
			RelPath:    rel,
			SourcePath: r.Path,
			Size:       info.Size(),
			Mode:       info.Mode().Perm(),
			ModTime:    info.ModTime().Truncate(time.Second),
		})
	}
	return entries, nil
}

// canonicalPath resolves symlinks in p, or in its parent when p does not
// exist yet
func canonicalPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(dir, filepath.Base(p))
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// RelativeName returns path relative to root with forward slashes. A result
// that would leave root is a path traversal error.
func RelativeName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", customErrors.IO("relative_path", path, err)
	}
	name := filepath.ToSlash(rel)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// TotalSize sums the recorded sizes of entries
func TotalSize(entries []Entry) uint64 {
	var total uint64
	for _, e := range entries {
		total += uint64(e.Size)
	}
	return total
}

// Build writes entries to w as a tar stream, in order. Headers hold only
// name, mode, size and mtime so an unchanged tree always produces the same
// bytes. A file that cannot be opened or no longer has its recorded size is
// an I/O error.
func Build(ctx context.Context, entries []Entry, w io.Writer, onChunk stream.ChunkFunc) error {
	tw := tar.NewWriter(w)
	buf := make([]byte, stream.DefaultChunkSize)

	for _, entry := range entries {
		if err := addEntry(ctx, tw, entry, buf, onChunk); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return customErrors.IO("finalize_archive", "", err)
	}
	return nil
}

func addEntry(ctx context.Context, tw *tar.Writer, entry Entry, buf []byte, onChunk stream.ChunkFunc) error {
	f, err := os.Open(entry.SourcePath)
	if err != nil {
		return customErrors.IO("open_entry", entry.SourcePath, err)
	}
	defer f.Close()

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     entry.RelPath,
		Mode:     int64(entry.Mode),
		Size:     entry.Size,
		ModTime:  entry.ModTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return customErrors.IO("write_header", entry.RelPath, err)
	}

	n, err := stream.Copy(ctx, tw, io.LimitReader(f, entry.Size), buf, onChunk)
	if err != nil {
		if customErrors.IsCancellationError(err) {
			return customErrors.Canceled("archive_entry", entry.SourcePath, err)
		}
		return customErrors.IO("archive_entry", entry.SourcePath, err)
	}
	if n != entry.Size {
		return customErrors.IO("archive_entry", entry.SourcePath,
			fmt.Errorf("file changed during archiving: recorded %d bytes, read %d", entry.Size, n))
	}
	return nil
}
