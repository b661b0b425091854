// Copyright (c) 2025 A Bit of Help, Inc.

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abitofhelp/pathcompress/pkg/codec"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		algo codec.Algorithm
	}{
		{"x.tar.gz", ContainerArchive, codec.Gzip},
		{"X.TAR.GZ", ContainerArchive, codec.Gzip},
		{"backup.tgz", ContainerArchive, codec.Gzip},
		{"dir/backup.tar.zst", ContainerArchive, codec.Zstd},
		{"backup.tzst", ContainerArchive, codec.Zstd},
		{"backup.tar.br", ContainerArchive, codec.Brotli},
		{"backup.tar.lz4", ContainerArchive, codec.LZ4},
		{"x.gz", PlainFile, codec.Gzip},
		{"x.gzip", PlainFile, codec.Gzip},
		{"x.zst", PlainFile, codec.Zstd},
		{"x.zstd", PlainFile, codec.Zstd},
		{"x.br", PlainFile, codec.Brotli},
		{"x.lz4", PlainFile, codec.LZ4},
		{"x.tar", PlainFile, codec.Gzip},
		{"notes.txt", PlainFile, codec.Gzip},
		{"", PlainFile, codec.Gzip},
		{".gz", PlainFile, codec.Gzip},
		{"archive.tar.gz/", ContainerArchive, codec.Gzip},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.name)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.algo, got.Algorithm)
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	for _, name := range []string{"a.tar.gz", "b.gz", "c.unknown", ""} {
		first := Detect(name)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Detect(name))
		}
	}
}

func TestCompressedName(t *testing.T) {
	assert.Equal(t, "data.txt.gz", CompressedName("data.txt", PlainFile, codec.Gzip))
	assert.Equal(t, "data.txt.zst", CompressedName("data.txt", PlainFile, codec.Zstd))
	assert.Equal(t, "photos.tar.gz", CompressedName("photos/", ContainerArchive, codec.Gzip))
	assert.Equal(t, "photos.tar.lz4", CompressedName("photos", ContainerArchive, codec.LZ4))
	assert.Equal(t, "data.gz", CompressedName("data", PlainFile, codec.Algorithm("bogus")))
}

func TestNameRoundTrip(t *testing.T) {
	for _, algo := range codec.Algorithms() {
		for _, kind := range []Kind{PlainFile, ContainerArchive} {
			name := CompressedName("payload", kind, algo)
			f := Detect(name)
			assert.Equal(t, kind, f.Kind, name)
			assert.Equal(t, algo, f.Algorithm, name)
			assert.Equal(t, "payload", StripSuffix(name))
		}
	}
}

func TestStripSuffix(t *testing.T) {
	assert.Equal(t, "x", StripSuffix("x.tar.gz"))
	assert.Equal(t, "x", StripSuffix("x.TGZ"))
	assert.Equal(t, "x.txt", StripSuffix("x.txt.gz"))
	assert.Equal(t, "x.bin.out", StripSuffix("x.bin"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "plain_file", PlainFile.String())
	assert.Equal(t, "container_archive", ContainerArchive.String())
}
