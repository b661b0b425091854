// Copyright (c) 2025 A Bit of Help, Inc.

package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/stream"
)

// ValidateName rejects entry names that are empty, absolute, contain a ".."
// element or a volume name, or otherwise resolve outside the root
func ValidateName(name string) error {
	if name == "" || name == "." {
		return customErrors.Traversal("validate_name", name)
	}
	if strings.ContainsRune(name, 0) {
		return customErrors.Traversal("validate_name", name)
	}

	slashed := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return customErrors.Traversal("validate_name", name)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return customErrors.Traversal("validate_name", name)
		}
	}
	if !filepath.IsLocal(filepath.FromSlash(path.Clean(slashed))) {
		return customErrors.Traversal("validate_name", name)
	}
	return nil
}

// Validate reads every header of the tar stream in r and checks each name
// without writing anything. Contents are skipped.
func Validate(r io.Reader) (int, error) {
	tr := tar.NewReader(r)
	count := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, readError("validate_archive", header, err)
		}
		if err := ValidateName(header.Name); err != nil {
			return count, err
		}
		count++
	}
}

// Extract writes the regular file entries of the tar stream in r below dest,
// in stored order, and returns how many files were written. dest and any
// missing parents are created. Non-regular entries are skipped. Files written
// before a failure stay on disk.
func Extract(ctx context.Context, r io.Reader, dest string, onChunk stream.ChunkFunc) (int, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, customErrors.IO("create_destination", dest, err)
	}

	tr := tar.NewReader(r)
	buf := make([]byte, stream.DefaultChunkSize)
	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return written, customErrors.Canceled("extract_archive", dest, err)
		}

		header, err := tr.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, readError("extract_archive", header, err)
		}

		if err := ValidateName(header.Name); err != nil {
			return written, err
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		target, err := securePath(dest, header.Name)
		if err != nil {
			return written, err
		}
		if err := writeEntry(ctx, tr, target, header, buf, onChunk); err != nil {
			return written, err
		}
		written++
	}
}

// securePath joins name onto dest and checks that the result stays inside
// dest once existing symlinks in the parent chain are resolved
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))

	root, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return "", customErrors.IO("resolve_destination", dest, err)
	}
	parent := filepath.Dir(target)
	if resolved, err := resolveExisting(parent); err == nil {
		rel, err := filepath.Rel(root, resolved)
		if err != nil || (rel != "." && !filepath.IsLocal(rel)) {
			return "", customErrors.Traversal("secure_path", name)
		}
	}
	return target, nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p
func resolveExisting(p string) (string, error) {
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		next := filepath.Dir(p)
		if next == p {
			return "", err
		}
		missing = append(missing, filepath.Base(p))
		p = next
	}
}

func writeEntry(ctx context.Context, tr *tar.Reader, target string, header *tar.Header, buf []byte, onChunk stream.ChunkFunc) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return customErrors.IO("create_parent", target, err)
	}

	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return customErrors.IO("create_entry", target, err)
	}
	defer f.Close()

	n, err := stream.Copy(ctx, f, tr, buf, onChunk)
	if err != nil {
		switch {
		case customErrors.IsCancellationError(err):
			return customErrors.Canceled("write_entry", target, err)
		case stream.IsReadError(err):
			return readError("read_entry", header, err)
		default:
			return customErrors.IO("write_entry", target, err)
		}
	}
	if n != header.Size {
		return customErrors.Corrupt("read_entry", header.Name, io.ErrUnexpectedEOF)
	}
	if err := f.Close(); err != nil {
		return customErrors.IO("close_entry", target, err)
	}
	return nil
}

// readError keeps engine errors raised by the decoder underneath the tar
// reader and reports anything else as a malformed container
func readError(operation string, header *tar.Header, err error) error {
	var opErr *customErrors.OperationError
	if errors.As(err, &opErr) {
		return err
	}
	name := ""
	if header != nil {
		name = header.Name
	}
	return customErrors.Corrupt(operation, name, err)
}
