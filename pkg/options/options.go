// Copyright (c) 2025 A Bit of Help, Inc.

// Package options provides configuration options for the compression engine.
package options

import (
	"fmt"
	"time"

	"github.com/abitofhelp/pathcompress/pkg/codec"
	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/progress"
)

const (
	// DefaultLevel is the compression level used when none is configured
	DefaultLevel = codec.DefaultLevel

	// DefaultAlgorithm is the algorithm used for compression when none is configured
	DefaultAlgorithm = codec.DefaultAlgorithm

	// DefaultProgressInterval defines how often progress is logged
	DefaultProgressInterval = progress.DefaultInterval
)

// Options contains configuration options for the compression engine
type Options struct {
	// Level is the compression level in [codec.MinLevel, codec.MaxLevel]
	Level int

	// Algorithm is used when compressing. Decompression takes the
	// algorithm from the artifact name instead.
	Algorithm codec.Algorithm

	// KeysetPath enables the seal stage when set
	KeysetPath string

	// ProgressInterval defines how often progress is logged, zero disables it
	ProgressInterval time.Duration
}

// DefaultOptions returns Options with default values
func DefaultOptions() *Options {
	return &Options{
		Level:            DefaultLevel,
		Algorithm:        DefaultAlgorithm,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Validate checks every option. Out of range values are rejected, never
// clamped.
func (o *Options) Validate() error {
	if err := codec.ValidateLevel(o.Level); err != nil {
		return err
	}
	if _, err := codec.ParseAlgorithm(string(o.Algorithm)); err != nil {
		return err
	}
	if o.ProgressInterval < 0 {
		return customErrors.InvalidConfig("validate_options",
			fmt.Errorf("progress interval %s must not be negative", o.ProgressInterval))
	}
	return nil
}

// Sealed reports whether the seal stage is enabled
func (o *Options) Sealed() bool {
	return o.KeysetPath != ""
}
