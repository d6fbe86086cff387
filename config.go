package finity

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/finity-lang/finity/internal/eval"
	"github.com/finity-lang/finity/internal/explore"
)

// Config controls compilation. It is an explicit value passed into
// every entry point, so multiple compilations with different bounds can
// run concurrently without interference.
type Config struct {
	// MaxInt bounds the default integer domain: "int x" means
	// x in {0, ..., MaxInt-1}. Explicit "int[n]" declarations override
	// it per variable.
	MaxInt int64 `yaml:"maxint"`
	// MaxStates caps the total number of explored states.
	MaxStates int `yaml:"max_states"`
	// MaxCallDepth caps nested lambda application.
	MaxCallDepth int `yaml:"max_call_depth"`
	// OverflowWrap wraps stored integers modulo their domain bound
	// instead of rejecting the program.
	OverflowWrap bool `yaml:"overflow_wrap"`
	// Parallel explores initial environments on a bounded worker pool.
	Parallel bool `yaml:"parallel"`

	// Logger may be nil; it is not part of the serialised config.
	Logger *zap.Logger `yaml:"-"`
	// Progress, if non-nil, is invoked after each completed initial
	// environment with (done, total).
	Progress func(done, total int) `yaml:"-"`
}

// DefaultConfig returns the default compilation configuration.
func DefaultConfig() Config {
	return Config{
		MaxInt:       16,
		MaxStates:    1 << 20,
		MaxCallDepth: 64,
	}
}

func (c Config) exploreConfig() explore.Config {
	overflow := eval.OverflowReject
	if c.OverflowWrap {
		overflow = eval.OverflowWrap
	}
	return explore.Config{
		Eval: eval.Config{
			Overflow:     overflow,
			MaxCallDepth: c.MaxCallDepth,
		},
		MaxStates: c.MaxStates,
		Parallel:  c.Parallel,
		Logger:    c.Logger,
		Progress:  c.Progress,
	}
}

// LoadConfig reads a YAML configuration file, filling unset fields with
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.MaxInt <= 0 {
		cfg.MaxInt = DefaultConfig().MaxInt
	}
	if cfg.MaxStates <= 0 {
		cfg.MaxStates = DefaultConfig().MaxStates
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultConfig().MaxCallDepth
	}
	return cfg, nil
}

// WriteDefaultConfig creates a configuration file with the defaults.
func WriteDefaultConfig(path string) error {
	d, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
