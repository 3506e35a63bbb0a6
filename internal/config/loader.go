package config

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// Loader reads and writes a FlighthookConfig at a fixed path.
type Loader struct {
	Path string
}

// NewLoader constructs a Loader for the given TOML file path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load parses the TOML file at l.Path. A missing file is reported as a
// plain *os.PathError so callers can distinguish "no config yet" from a
// parse failure.
func (l *Loader) Load() (*FlighthookConfig, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}
	cfg := &FlighthookConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", l.Path, err)
	}
	return cfg, nil
}

// Persist atomically (fsync + rename) replaces the TOML file at l.Path
// with the serialized form of cfg, mirroring the durability guarantees
// of a renameio-backed write.
func (l *Loader) Persist(cfg *FlighthookConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	pending, err := renameio.NewPendingFile(l.Path)
	if err != nil {
		return fmt.Errorf("config: create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("config: write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("config: atomically replace %s: %w", l.Path, err)
	}
	return nil
}
