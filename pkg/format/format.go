// Copyright (c) 2025 A Bit of Help, Inc.

// Package format maps file names to the decompression strategy and back.
//
// Detection is purely suffix driven and total: a name that carries no known
// suffix is a plain gzip file.
package format

import (
	"path/filepath"
	"strings"

	"github.com/abitofhelp/pathcompress/pkg/codec"
)

// Kind selects the decompression strategy
type Kind int

const (
	// PlainFile decodes to a single output file
	PlainFile Kind = iota

	// ContainerArchive decodes to a tar stream extracted into a directory
	ContainerArchive
)

// String implements fmt.Stringer
func (k Kind) String() string {
	if k == ContainerArchive {
		return "container_archive"
	}
	return "plain_file"
}

// Format is the detected strategy and algorithm for a compressed artifact
type Format struct {
	Kind      Kind
	Algorithm codec.Algorithm

	// Suffix is the matched suffix, empty when the default was used
	Suffix string
}

type suffixRule struct {
	suffix string
	format Format
}

// Longest suffixes first so ".tar.gz" wins over ".gz". The first rule per
// algorithm and kind is the canonical one used by CompressedName.
var rules = []suffixRule{
	{".tar.gz", Format{Kind: ContainerArchive, Algorithm: codec.Gzip}},
	{".tar.zst", Format{Kind: ContainerArchive, Algorithm: codec.Zstd}},
	{".tar.lz4", Format{Kind: ContainerArchive, Algorithm: codec.LZ4}},
	{".tar.br", Format{Kind: ContainerArchive, Algorithm: codec.Brotli}},
	{".tzst", Format{Kind: ContainerArchive, Algorithm: codec.Zstd}},
	{".tgz", Format{Kind: ContainerArchive, Algorithm: codec.Gzip}},
	{".gzip", Format{Kind: PlainFile, Algorithm: codec.Gzip}},
	{".zstd", Format{Kind: PlainFile, Algorithm: codec.Zstd}},
	{".zst", Format{Kind: PlainFile, Algorithm: codec.Zstd}},
	{".lz4", Format{Kind: PlainFile, Algorithm: codec.LZ4}},
	{".gz", Format{Kind: PlainFile, Algorithm: codec.Gzip}},
	{".br", Format{Kind: PlainFile, Algorithm: codec.Brotli}},
}

var canonical = map[Format]string{
	{Kind: ContainerArchive, Algorithm: codec.Gzip}:   ".tar.gz",
	{Kind: ContainerArchive, Algorithm: codec.Zstd}:   ".tar.zst",
	{Kind: ContainerArchive, Algorithm: codec.Brotli}: ".tar.br",
	{Kind: ContainerArchive, Algorithm: codec.LZ4}:    ".tar.lz4",
	{Kind: PlainFile, Algorithm: codec.Gzip}:          ".gz",
	{Kind: PlainFile, Algorithm: codec.Zstd}:          ".zst",
	{Kind: PlainFile, Algorithm: codec.Brotli}:        ".br",
	{Kind: PlainFile, Algorithm: codec.LZ4}:           ".lz4",
}

// DefaultOutputSuffix is appended by StripSuffix when no suffix is known
const DefaultOutputSuffix = ".out"

// Detect classifies name by suffix, case-insensitively. It never fails.
func Detect(name string) Format {
	base := strings.ToLower(filepath.Base(name))
	for _, rule := range rules {
		if len(base) > len(rule.suffix) && strings.HasSuffix(base, rule.suffix) {
			f := rule.format
			f.Suffix = rule.suffix
			return f
		}
	}
	return Format{Kind: PlainFile, Algorithm: codec.DefaultAlgorithm}
}

// Suffix returns the canonical suffix for kind and algo
func Suffix(kind Kind, algo codec.Algorithm) string {
	if s, ok := canonical[Format{Kind: kind, Algorithm: algo}]; ok {
		return s
	}
	return canonical[Format{Kind: kind, Algorithm: codec.DefaultAlgorithm}]
}

// CompressedName returns the default artifact name for path. Trailing
// separators are dropped so "dir/" becomes "dir.tar.gz".
func CompressedName(path string, kind Kind, algo codec.Algorithm) string {
	clean := filepath.Clean(path)
	return clean + Suffix(kind, algo)
}

// StripSuffix returns the default output name for a compressed artifact.
// A name without a known suffix gets DefaultOutputSuffix so the artifact is
// never overwritten by its own output.
func StripSuffix(name string) string {
	f := Detect(name)
	if f.Suffix == "" {
		return name + DefaultOutputSuffix
	}
	return name[:len(name)-len(f.Suffix)]
}
