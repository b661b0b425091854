// Copyright (c) 2025 A Bit of Help, Inc.

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abitofhelp/pathcompress/pkg/codec"
	customErrors "github.com/abitofhelp/pathcompress/pkg/errors"
	"github.com/abitofhelp/pathcompress/pkg/logger"
	"github.com/abitofhelp/pathcompress/pkg/options"
	"github.com/abitofhelp/pathcompress/pkg/progress"
	"github.com/abitofhelp/pathcompress/pkg/utils"
)

// EnvPrefix is prepended to every environment variable, e.g. PATHCOMPRESS_LEVEL
const EnvPrefix = "PATHCOMPRESS"

// ConfigName is the file name searched for when --config is not given
const ConfigName = "pathcompress"

// Viper keys; flags use the same names with dashes
const (
	keyConfig           = "config"
	keyLevel            = "level"
	keyAlgorithm        = "algorithm"
	keyKeyset           = "keyset"
	keyLogLevel         = "log_level"
	keyLogConsole       = "log_console"
	keyProgressInterval = "progress_interval"
	keyShutdownTimeout  = "shutdown_timeout"
)

// Config is the resolved command line configuration.
// Precedence is flag, then environment, then config file, then default.
type Config struct {
	Level            int
	Algorithm        string
	Keyset           string
	LogLevel         string
	LogConsole       bool
	ProgressInterval time.Duration
	ShutdownTimeout  time.Duration
}

// Options converts c into engine options
func (c *Config) Options() *options.Options {
	return &options.Options{
		Level:            c.Level,
		Algorithm:        codec.Algorithm(strings.ToLower(c.Algorithm)),
		KeysetPath:       c.Keyset,
		ProgressInterval: c.ProgressInterval,
	}
}

// Logger returns the logger configuration
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Console: c.LogConsole}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// registerFlags declares the persistent flags shared by every command
func registerFlags(flags *pflag.FlagSet) {
	flags.String(flagName(keyConfig), "", "config file (yaml, toml or json); default searches ./"+ConfigName+".*")
	flags.Int(flagName(keyLevel), options.DefaultLevel, fmt.Sprintf("compression level %d (fastest) to %d (smallest)", codec.MinLevel, codec.MaxLevel))
	flags.String(flagName(keyAlgorithm), string(options.DefaultAlgorithm), "compression algorithm: gzip, zstd, brotli or lz4")
	flags.String(flagName(keyKeyset), "", "streaming AEAD keyset file; enables the seal stage")
	flags.String(flagName(keyLogLevel), logger.DefaultLevel, "log level: debug, info, warn or error")
	flags.Bool(flagName(keyLogConsole), false, "human readable console logs instead of JSON")
	flags.Duration(flagName(keyProgressInterval), progress.DefaultInterval, "progress log interval, 0 disables progress logging")
	flags.Duration(flagName(keyShutdownTimeout), utils.DefaultShutdownTimeout, "time allowed to unwind after an interrupt")
}

// loadConfig binds the flags of cmd to v, reads the environment and the
// optional config file, and returns the merged configuration
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*Config, error) {
	for _, key := range []string{
		keyConfig, keyLevel, keyAlgorithm, keyKeyset, keyLogLevel,
		keyLogConsole, keyProgressInterval, keyShutdownTimeout,
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName(key))); err != nil {
			return nil, customErrors.InvalidConfig("bind_flag", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, customErrors.InvalidConfig("read_config", fmt.Errorf("config file %s: %w", path, err))
		}
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/pathcompress")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, customErrors.InvalidConfig("read_config", err)
			}
		}
	}

	return &Config{
		Level:            v.GetInt(keyLevel),
		Algorithm:        v.GetString(keyAlgorithm),
		Keyset:           v.GetString(keyKeyset),
		LogLevel:         v.GetString(keyLogLevel),
		LogConsole:       v.GetBool(keyLogConsole),
		ProgressInterval: v.GetDuration(keyProgressInterval),
		ShutdownTimeout:  v.GetDuration(keyShutdownTimeout),
	}, nil
}
