package ports

import "github.com/reglet-dev/reglet-oscall/domain/entities"

// ConfigParser parses raw bytes into a BridgeConfig.
type ConfigParser interface {
	// Parse unmarshals data on top of base and returns the result.
	Parse(data []byte, base entities.BridgeConfig) (*entities.BridgeConfig, error)
}
