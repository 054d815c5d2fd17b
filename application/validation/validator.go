// Package validation checks bridge configuration before a bridge is built.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reglet-dev/reglet-oscall/application/schema"
	"github.com/reglet-dev/reglet-oscall/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oscall/domain/errors"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

var _ ports.ConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates a BridgeConfig twice: against its struct tags and
// against the JSON schema generated from the same struct.
type ConfigValidator struct {
	validate *validator.Validate
	schema   *jsonschema.Schema
}

// NewConfigValidator compiles the BridgeConfig schema.
func NewConfigValidator() (*ConfigValidator, error) {
	raw, err := schema.BridgeConfigSchema()
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schema.BridgeConfigSchemaID, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	sch, err := compiler.Compile(schema.BridgeConfigSchemaID)
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	return &ConfigValidator{validate: validator.New(), schema: sch}, nil
}

// Validate returns a *ConfigError naming the first offending field.
func (v *ConfigValidator) Validate(cfg *entities.BridgeConfig) error {
	if cfg == nil {
		return &domainerrors.ConfigError{Err: errors.New("config is nil")}
	}

	if err := v.validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &domainerrors.ConfigError{
				Field: fe.Namespace(),
				Err:   fmt.Errorf("failed on '%s' (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &domainerrors.ConfigError{Err: err}
	}

	b, err := json.Marshal(cfg)
	if err != nil {
		return &domainerrors.ConfigError{Err: fmt.Errorf("marshal config: %w", err)}
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return &domainerrors.ConfigError{Err: fmt.Errorf("prepare config: %w", err)}
	}
	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			field := ve.InstanceLocation
			if len(ve.Causes) > 0 {
				field = ve.Causes[0].InstanceLocation
			}
			return &domainerrors.ConfigError{Field: field, Err: ve}
		}
		return &domainerrors.ConfigError{Err: err}
	}
	return nil
}
