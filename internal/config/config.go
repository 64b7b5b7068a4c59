// Package config implements facade configuration decode (§6.7).
//
// Grounded on google-oss-rebuild's command Config structs (a plain
// struct with a Validate method, populated from cobra flags) merged
// with AltairaLabs-Omnia's yaml.v3 on-disk config convention: flags
// take precedence over a YAML file's values, which take precedence
// over the package defaults.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/voxelforge/launcher-core/internal/retry"
)

// Config is the enumerated option set from §6.7.
type Config struct {
	StoreRoot       string `yaml:"store_root"`
	ObjectsBaseURL  string `yaml:"objects_base_url"`
	IndexURL        string `yaml:"index_url"`
	ParallelFetches int    `yaml:"parallel_fetches"`
	ConnectTimeoutMS int   `yaml:"connect_timeout_ms"`
	ReadTimeoutMS   int    `yaml:"read_timeout_ms"`
	MaxRetries      int    `yaml:"max_retries"`
	UserAgent       string `yaml:"user_agent"`

	// StrictAssets flips the §9 Open Question decision: when true, a
	// failed asset-index download fails the whole install instead of
	// degrading to a warning.
	StrictAssets bool `yaml:"strict_assets"`
}

// Default matches §5/§6.7's defaults.
func Default() Config {
	return Config{
		ObjectsBaseURL:   "https://resources.download.minecraft.net",
		IndexURL:         "https://launchermeta.mojang.com/mc/game/version_manifest_v2.json",
		ParallelFetches:  8,
		ConnectTimeoutMS: 10_000,
		ReadTimeoutMS:    30_000,
		MaxRetries:       3,
		UserAgent:        "voxelforge-launcher-core/1.0",
	}
}

// PlatformDefaultStoreRoot returns the conventional per-OS install
// directory, adapted from the teacher's GetMCDir (Windows:
// %APPDATA%/.minecraft, macOS: ~/Library/Application Support/minecraft,
// else: ~/.minecraft) and generalized to this engine's own brand
// directory name. Callers pass this as store_root when the user hasn't
// named one explicitly; BindFlags does not call it automatically since
// an empty default makes a missing --store-root fail loudly instead of
// silently writing into a surprising directory.
func PlatformDefaultStoreRoot() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "voxelforge-launcher")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "voxelforge-launcher")
	default:
		return filepath.Join(os.Getenv("HOME"), ".voxelforge-launcher")
	}
}

// Validate rejects configurations that would make the engine
// inoperable rather than failing confusingly later.
func (c Config) Validate() error {
	if c.StoreRoot == "" {
		return errors.New("store_root is required")
	}
	if c.ParallelFetches < 1 || c.ParallelFetches > 32 {
		return errors.New("parallel_fetches must be between 1 and 32")
	}
	if c.IndexURL == "" {
		return errors.New("index_url is required")
	}
	return nil
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{MaxRetries: c.MaxRetries, BaseDelay: 500 * time.Millisecond}
}

// LoadYAML merges file on top of base, leaving base's values for any
// field the file omits (the zero value in the decoded struct would
// otherwise clobber it, so decode into a copy of base).
func LoadYAML(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config file")
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Config{}, errors.Wrap(err, "decoding config file")
	}
	return out, nil
}

// BindFlags registers every §6.7 option as a cobra flag on cmd,
// writing into cfg. Call after LoadYAML (or Default) so flags default
// to the already-merged values and only override what the user
// actually passed on the command line.
func BindFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.StoreRoot, "store-root", cfg.StoreRoot, "local store root directory")
	flags.StringVar(&cfg.ObjectsBaseURL, "objects-base-url", cfg.ObjectsBaseURL, "asset objects base URL")
	flags.StringVar(&cfg.IndexURL, "index-url", cfg.IndexURL, "version manifest index URL")
	flags.IntVar(&cfg.ParallelFetches, "parallel-fetches", cfg.ParallelFetches, "max concurrent downloads (1-32)")
	flags.IntVar(&cfg.ConnectTimeoutMS, "connect-timeout-ms", cfg.ConnectTimeoutMS, "TCP connect timeout")
	flags.IntVar(&cfg.ReadTimeoutMS, "read-timeout-ms", cfg.ReadTimeoutMS, "read inactivity timeout")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "max retries per task")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "HTTP User-Agent header")
	flags.BoolVar(&cfg.StrictAssets, "strict-assets", cfg.StrictAssets, "fail install if the asset index cannot be fetched")
}
