package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"k8s.io/client-go/util/homedir"
)

const (
	// DefaultEndpoint is the public Hub.
	DefaultEndpoint = "https://huggingface.co"
	// DefaultFlavor is the hardware flavor of submitted
	// jobs.
	DefaultFlavor = "cpu-basic"

	envConfig   = "HFJOBS_CONFIG"
	envEndpoint = "HF_ENDPOINT"
)

// Config holds the settings read from the config file.
type Config struct {
	// Endpoint is the base URL of the Hub.
	Endpoint string `yaml:"endpoint"`
	// Flavor is the default hardware flavor of "run".
	Flavor string `yaml:"flavor"`
	// MaxAttempts bounds the log stream attempts of a
	// follow. Zero means no bound.
	MaxAttempts int `yaml:"max_attempts"`
	// LogFormat overrides the log line format. It may use
	// the {timestamp} and {data} placeholders.
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Flavor:   DefaultFlavor,
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is an explicit config file, which must exist.
	// Empty means the default location, which may be
	// missing.
	Path string
	// Getenv reads environment variables. Nil means
	// os.Getenv.
	Getenv func(key string) string
	// HomeDir is the user home directory. Empty means the
	// directory reported by the OS.
	HomeDir string
}

// DefaultPath returns the config file location used when no
// path is given.
func DefaultPath(getenv func(string) string, home string) string {
	if p := getenv(envConfig); p != "" {
		return p
	}

	return filepath.Join(home, ".config", "hfjobs", "config.yaml")
}

// Load reads the config file selected by opts over the
// defaults, then applies environment overrides.
func Load(opts LoadOptions) (Config, error) {
	const errCtx = "loading config"

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	home := opts.HomeDir
	if home == "" {
		home = homedir.HomeDir()
	}

	path := opts.Path
	mustExist := path != ""

	if !mustExist {
		path = DefaultPath(getenv, home)
	}

	cfg := Default()

	f, err := os.Open(path) //nolint:gosec // user config file
	switch {
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
	case err != nil:
		return Config{}, fmt.Errorf("%s: %w", errCtx, err)
	default:
		defer f.Close() //nolint:errcheck

		if err := decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf(
				"%s: %s: %w", errCtx, path, err,
			)
		}
	}

	if ep := getenv(envEndpoint); ep != "" {
		cfg.Endpoint = ep
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r, yaml.DisallowUnknownField())

	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err //nolint:wrapcheck // wrapped by Load
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint must not be empty")
	}

	if c.Flavor == "" {
		return errors.New("flavor must not be empty")
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf(
			"max_attempts must not be negative, got %d",
			c.MaxAttempts,
		)
	}

	return nil
}
