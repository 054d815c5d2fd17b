package ports

// DenialHandler is called when a policy check denies a request.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	// OnDenial is called when a capability request is denied.
	// kind: "native"
	// request: the denied request (entities.NativeRequest for "native")
	// reason: human-readable denial reason
	OnDenial(kind string, request interface{}, reason string)
}
