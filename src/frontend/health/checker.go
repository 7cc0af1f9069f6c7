package health

// Checker is an interface for querying the health of the proxy server.
type Checker interface {
	// Check returns information about the health of the proxy server.
	Check() Status
}
