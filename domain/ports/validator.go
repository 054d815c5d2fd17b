package ports

import "github.com/reglet-dev/reglet-oscall/domain/entities"

// ConfigValidator validates a bridge configuration.
type ConfigValidator interface {
	Validate(cfg *entities.BridgeConfig) error
}
