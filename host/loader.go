package host

import (
	"fmt"
	"os"

	"github.com/reglet-dev/reglet-oscall/application/validation"
	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
	"github.com/reglet-dev/reglet-oscall/infrastructure/parser"
)

type loaderConfig struct {
	parser    ports.ConfigParser
	validator ports.ConfigValidator
	base      entities.BridgeConfig
}

// ConfigLoader orchestrates the config loading pipeline: parse over the
// defaults, then validate.
type ConfigLoader struct {
	config loaderConfig
}

// LoaderOption configures the ConfigLoader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom config parser.
func WithParser(p ports.ConfigParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithValidator sets a custom config validator.
func WithValidator(v ports.ConfigValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithBase sets the config that parsed documents are applied on top of.
func WithBase(cfg entities.BridgeConfig) LoaderOption {
	return func(c *loaderConfig) {
		c.base = cfg
	}
}

// NewConfigLoader creates a loader with the YAML parser and the schema validator.
func NewConfigLoader(opts ...LoaderOption) (*ConfigLoader, error) {
	cfg := loaderConfig{
		parser: parser.NewYamlConfigParser(),
		base:   entities.DefaultBridgeConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.validator == nil {
		v, err := validation.NewConfigValidator()
		if err != nil {
			return nil, err
		}
		cfg.validator = v
	}
	return &ConfigLoader{config: cfg}, nil
}

// Load parses and validates a config document.
func (l *ConfigLoader) Load(raw []byte) (*entities.BridgeConfig, error) {
	cfg, err := l.config.parser.Parse(raw, l.config.base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := l.config.validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and loads a config file.
func (l *ConfigLoader) LoadFile(path string) (*entities.BridgeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.Load(raw)
}
