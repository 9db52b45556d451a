// Package config reads and writes a repository's .outpack/config.json
// and enforces the constraints server mode requires of it.
package config

import (
	"encoding/json"
	"os"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
)

// Location describes one named source of packets. The reserved name
// "local" records what this repository has itself; its Type is "local"
// and Args is empty.
type Location struct {
	Name string                 `json:"name"`
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args"`
}

// Core holds the repository's storage configuration.
type Core struct {
	HashAlgorithm       hash.Algorithm `json:"hash_algorithm"`
	PathArchive         *string        `json:"path_archive,omitempty"`
	UseFileStore        bool           `json:"use_file_store"`
	RequireCompleteTree bool           `json:"require_complete_tree"`
}

// Config is the parsed contents of .outpack/config.json.
type Config struct {
	Core     Core       `json:"core"`
	Location []Location `json:"location"`
}

// New builds a Config for a freshly initialised repository. At least one
// of archive-mode storage or the file store must be selected.
func New(pathArchive *string, useFileStore, requireCompleteTree bool) (*Config, error) {
	if !useFileStore && pathArchive == nil {
		return nil, apperror.New(apperror.InvalidInput, "If 'path_archive' is None, then use_file_store must be true")
	}
	return &Config{
		Core: Core{
			HashAlgorithm:       hash.Sha256,
			PathArchive:         pathArchive,
			UseFileStore:        useFileStore,
			RequireCompleteTree: requireCompleteTree,
		},
		Location: []Location{
			{Name: layout.LocalLocation, Type: "local", Args: map[string]interface{}{}},
		},
	}, nil
}

// Read loads root/.outpack/config.json.
func Read(root string) (*Config, error) {
	data, err := os.ReadFile(layout.ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.Wrap(err, apperror.NotFound, "config for '%s' does not exist", root)
		}
		return nil, apperror.Wrap(err, apperror.Internal, "failed to read config for '%s': %s", root, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "failed to parse config for '%s': %s", root, err)
	}
	return &cfg, nil
}

// Write replaces root/.outpack/config.json atomically: it writes to a
// sibling temp file and renames it into place, so a reader never
// observes a partially-written config.
func Write(root string, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to serialise config: %s", err)
	}

	dest := layout.ConfigPath(root)
	tmp, err := os.CreateTemp(layout.OutpackDir(root), "config-*.json.tmp")
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to create temp config file: %s", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperror.Wrap(err, apperror.Internal, "failed to write config: %s", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperror.Wrap(err, apperror.Internal, "failed to write config: %s", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return apperror.Wrap(err, apperror.Internal, "failed to replace config: %s", err)
	}
	return nil
}

// CheckServerConfig enforces the four rules server mode requires of a
// repository's configuration, naming the offending field in the first
// violation found.
func CheckServerConfig(cfg *Config) error {
	if !cfg.Core.UseFileStore {
		return apperror.New(apperror.InvalidInput, "Server requires 'use_file_store' to be true")
	}
	if !cfg.Core.RequireCompleteTree {
		return apperror.New(apperror.InvalidInput, "Server requires 'require_complete_tree' to be true")
	}
	if cfg.Core.HashAlgorithm != hash.Sha256 {
		return apperror.New(apperror.InvalidInput, "Server requires 'hash_algorithm' to be sha256, found '%s'", cfg.Core.HashAlgorithm)
	}
	if cfg.Core.PathArchive != nil {
		return apperror.New(apperror.InvalidInput, "Server requires 'path_archive' to be absent (archive-mode storage is not supported)")
	}
	return nil
}
