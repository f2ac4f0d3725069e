package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tickerpane/internal/models"
)

// Store loads and saves the persisted user configuration.
// Load never fails: a missing or corrupt file falls back to defaults
// and the problem is logged as a recoverable event. Save is
// best-effort: a write failure is reported to the caller but must not
// crash the process or roll back the in-memory config.
type Store struct {
	path string
}

// NewStore creates a store for the given path. An empty path resolves
// to the per-user default location.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

// DefaultPath returns the per-user config file location,
// e.g. ~/.config/tickerpane/config.json on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "tickerpane", "config.json"), nil
}

// Path returns the resolved config file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the config file, merging the parsed document over the
// defaults so missing fields keep their default values. Unknown fields
// in the file are ignored.
func (s *Store) Load() models.Config {
	cfg := models.DefaultConfig()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("[CONFIG] Read failed, using defaults: %v\n", err)
		}
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("[CONFIG] Malformed config, using defaults: %v\n", err)
		return models.DefaultConfig()
	}

	return sanitize(cfg)
}

// Save writes the config atomically (temp file + rename).
func (s *Store) Save(cfg models.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// sanitize repairs values a hand-edited file may carry: symbols are
// normalized and de-duplicated, out-of-whitelist intervals and unknown
// periods revert to defaults.
func sanitize(cfg models.Config) models.Config {
	defaults := models.DefaultConfig()

	seen := make(map[string]bool, len(cfg.Watchlist))
	var list []string
	for _, sym := range cfg.Watchlist {
		sym = NormalizeSymbol(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		list = append(list, sym)
	}
	cfg.Watchlist = list

	if !models.ValidRefreshInterval(cfg.RefreshInterval) {
		fmt.Printf("[CONFIG] Interval %ds not allowed, using %ds\n",
			cfg.RefreshInterval, defaults.RefreshInterval)
		cfg.RefreshInterval = defaults.RefreshInterval
	}
	if !cfg.ChartPeriod.Valid() {
		fmt.Printf("[CONFIG] Unknown chart period %q, using %q\n",
			cfg.ChartPeriod, defaults.ChartPeriod)
		cfg.ChartPeriod = defaults.ChartPeriod
	}
	if cfg.Theme == "" {
		cfg.Theme = defaults.Theme
	}
	return cfg
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}
