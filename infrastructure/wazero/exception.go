package wazero

// GuestException is the error a guest call fails with when the bridge raises
// an exception, such as an out-of-bounds guest address or os.abort.
// It reaches the embedder through the error returned by api.Function.Call.
type GuestException struct {
	Message string
}

func (e *GuestException) Error() string {
	return e.Message
}
