// Package schema generates JSON schemas for bridge configuration.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
)

// BridgeConfigSchemaID is the $id of the generated BridgeConfig schema.
const BridgeConfigSchemaID = "https://reglet.dev/schemas/oscall/bridge-config.json"

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
// Fields without omitempty are required.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}

// BridgeConfigSchema returns the schema of entities.BridgeConfig.
func BridgeConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	s := reflector.Reflect(&entities.BridgeConfig{})
	s.ID = jsonschema.ID(BridgeConfigSchemaID)
	s.Title = "oscall bridge configuration"

	jsonBytes, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return jsonBytes, nil
}
