package health

import (
	"fmt"
	"net"
	"net/http"

	"github.com/chrisjchandler/Riffy/src/upstream"
)

// Endpoint intercepts requests to http://localhost/health and returns a basic
// health status, suitable for use with container health checks. Requests for
// any other host are proxied as normal, so an upstream application keeps
// ownership of its own /health path.
type Endpoint struct {
	Pool *upstream.Pool
}

// CanHandle returns true if request is a local health probe.
func (ep *Endpoint) CanHandle(request *http.Request) bool {
	if request.URL.Path != requestPath {
		return false
	}

	host, _, err := net.SplitHostPort(request.Host)
	if err != nil {
		host = request.Host
	}

	return host == "localhost" || host == "127.0.0.1"
}

// ServeHTTP responds with the server's health status. The fact that the
// request made it this far is enough to verify the listener is serving.
func (ep *Endpoint) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(writer, "Serving requests across %d upstream(s).\n", ep.Pool.Len())
}
