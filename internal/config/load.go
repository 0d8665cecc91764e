package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"remedy/internal/project"
)

// Environment variables that override the file.
const (
	EnvJobs       = "REMEDY_JOBS"
	EnvBackupRoot = "REMEDY_BACKUP_ROOT"
	EnvCacheSize  = "REMEDY_CACHE_SIZE"
)

// Source describes where a loaded configuration came from.
type Source struct {
	// Manifest is the remedy.toml path, empty when defaults were used.
	Manifest string
	// EnvFile is the .env path, empty when none was read.
	EnvFile string
}

// Load resolves configuration for a project root: defaults, then the nearest
// remedy.toml (or explicit path when non-empty), then <root>/.env, then the
// process environment. Process variables win over .env entries.
func Load(root, explicit string) (Config, Source, error) {
	cfg := Default()
	var src Source

	manifest := explicit
	if manifest == "" {
		found, ok, err := project.FindManifest(root)
		if err != nil {
			return Config{}, src, err
		}
		if ok {
			manifest = found
		}
	}
	if manifest != "" {
		if err := decodeFile(manifest, &cfg); err != nil {
			return Config{}, src, err
		}
		src.Manifest = manifest
	}

	envFile := filepath.Join(root, ".env")
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		src.EnvFile = envFile
	case errors.Is(err, fs.ErrNotExist):
		dotenv = nil
	default:
		return Config{}, src, fmt.Errorf("%s: %w", envFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, src, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, src, err
	}
	return cfg, src, nil
}

// Decode parses TOML text over the defaults. Unknown keys are rejected.
func Decode(text string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := checkUndecoded(meta); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := checkUndecoded(meta); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func checkUndecoded(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvJobs); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvJobs, err)
		}
		cfg.Remediation.Jobs = n
	}
	if v, ok := lookup(EnvBackupRoot); ok && strings.TrimSpace(v) != "" {
		cfg.Backup.Root = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCacheSize); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheSize, err)
		}
		cfg.Classifier.CacheSize = n
	}
	return nil
}
