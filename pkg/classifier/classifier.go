// Copyright (c) 2025 A Bit of Help, Inc.

// Package classifier decides, once per run, whether an input path is
// compressed as a single stream or archived first.
package classifier

import (
	"errors"
	"io/fs"
	"os"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
)

// Kind is the filesystem type of a source path
type Kind int

const (
	// File is a regular file, compressed as a single stream
	File Kind = iota + 1

	// Directory is a directory tree, archived before compression
	Directory
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

// SourcePath is a classified input. Size is only meaningful for File.
type SourcePath struct {
	Kind Kind
	Path string
	Size int64
	Mode fs.FileMode
}

// IsDir reports whether the source must be archived
func (s SourcePath) IsDir() bool {
	return s.Kind == Directory
}

// Classify inspects path, following symlinks. A missing path is a not-found
// error; a broken symlink or anything other than a regular file or a
// directory is unsupported.
func Classify(path string) (SourcePath, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return SourcePath{}, customErrors.IO("classify", path, err)
		}
		if _, lerr := os.Lstat(path); lerr == nil {
			return SourcePath{}, customErrors.Unsupported("classify", path, errors.New("broken symlink"))
		}
		return SourcePath{}, customErrors.NotFound("classify", path, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return SourcePath{Kind: File, Path: path, Size: info.Size(), Mode: mode}, nil
	case mode.IsDir():
		return SourcePath{Kind: Directory, Path: path, Mode: mode}, nil
	default:
		return SourcePath{}, customErrors.Unsupported("classify", path, errors.New("not a regular file or directory: "+mode.Type().String()))
	}
}
