package ports

import "github.com/reglet-dev/reglet-oscall/domain/entities"

// Policy enforces capability grants against runtime requests.
type Policy interface {
	CheckNative(req entities.NativeRequest, grants *entities.GrantSet) bool
}
