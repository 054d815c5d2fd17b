// Package parser decodes bridge configuration files.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// YamlConfigParser implements ConfigParser for YAML.
// Unknown keys are rejected so a misspelled limit does not silently fall back
// to its default.
type YamlConfigParser struct{}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{}
}

// Parse decodes data on top of base. Keys absent from data keep their base value.
func (p *YamlConfigParser) Parse(data []byte, base entities.BridgeConfig) (*entities.BridgeConfig, error) {
	cfg := base
	if base.Grants != nil {
		cfg.Grants = base.Grants.Clone()
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, &domainerrors.ConfigError{Err: fmt.Errorf("parse yaml: %w", err)}
	}
	return &cfg, nil
}
