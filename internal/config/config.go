// Package config resolves the handful of settings every cmd/ binary
// shares — sector size, FILETIME display offset, hash chunk size, and
// log file path — from flags, DFT_* environment variables, and an
// optional --config file, in that priority order (flags win).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings is the resolved configuration for one analysis run.
type Settings struct {
	SectorSize      int // bytes per sector, default 512
	TZOffsetMinutes int // FILETIME display offset from UTC, default 0
	HashChunkSize   int // resolved only; hashutil always reads hashutil.ChunkSize bytes at a time
	LogFile         string
	LogLevel        string
}

const envPrefix = "DFT"

// BindFlags registers the shared flag set on a command's pflag.FlagSet.
// Call once per cobra command before Load.
func BindFlags(flags *pflag.FlagSet) {
	flags.Int("sector-size", 512, "bytes per disk sector")
	flags.Int("tz-offset", 0, "FILETIME display offset from UTC, in minutes")
	flags.Int("hash-chunk-size", 8192, "hash chunk size setting, in bytes (file-hash reads in fixed 8192-byte chunks)")
	flags.String("log-file", "", "path to a rotating log file (defaults to stderr)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("config", "", "path to a YAML or TOML config file")
}

// Load resolves Settings from flags (highest priority), DFT_* environment
// variables, and an optional --config file (lowest priority).
func Load(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file %s: %w", cfgFile, err)
		}
	}

	return &Settings{
		SectorSize:      v.GetInt("sector-size"),
		TZOffsetMinutes: v.GetInt("tz-offset"),
		HashChunkSize:   v.GetInt("hash-chunk-size"),
		LogFile:         v.GetString("log-file"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}
