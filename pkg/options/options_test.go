// Copyright (c) 2025 A Bit of Help, Inc.

package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abitofhelp/pathcompress/pkg/codec"
	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, 6, opts.Level)
	assert.Equal(t, codec.Gzip, opts.Algorithm)
	assert.Equal(t, time.Second, opts.ProgressInterval)
	assert.False(t, opts.Sealed())
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr bool
	}{
		{"min level", func(o *Options) { o.Level = 1 }, false},
		{"max level", func(o *Options) { o.Level = 9 }, false},
		{"level zero", func(o *Options) { o.Level = 0 }, true},
		{"level ten", func(o *Options) { o.Level = 10 }, true},
		{"negative level", func(o *Options) { o.Level = -3 }, true},
		{"zstd", func(o *Options) { o.Algorithm = codec.Zstd }, false},
		{"empty algorithm", func(o *Options) { o.Algorithm = "" }, false},
		{"unknown algorithm", func(o *Options) { o.Algorithm = "lzma" }, true},
		{"no progress", func(o *Options) { o.ProgressInterval = 0 }, false},
		{"negative interval", func(o *Options) { o.ProgressInterval = -time.Second }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.modify(opts)
			err := opts.Validate()
			if tc.wantErr {
				assert.True(t, customErrors.IsConfigError(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSealed(t *testing.T) {
	opts := DefaultOptions()
	opts.KeysetPath = "keyset.json"
	assert.True(t, opts.Sealed())
}
