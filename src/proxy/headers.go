package proxy

import (
	"net"
	"net/http"
	"strings"
)

// isHopByHopHeader checks if a given header name is a Hop-by-Hop header, and
// hence should not be forwarded to upstream servers. The name must already be
// canonicalized with http.CanonicalHeaderKey().
func isHopByHopHeader(name string) bool {
	switch name {
	case "Sec-Websocket-Key",
		"Sec-Websocket-Version",
		"Sec-Websocket-Accept",

		// The remainder of this list is lifted from httputil.ReverseProxy
		// https://golang.org/src/net/http/httputil/reverseproxy.go
		"Connection",
		"Proxy-Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Te",
		"Trailer",
		"Transfer-Encoding",
		"Upgrade":
		return true
	default:
		return false
	}
}

// buildUpstreamHeaders creates the set of headers that are forwarded to the
// upstream server for the given request. Hop-by-hop headers are dropped and
// the standard X-Forwarded-* headers are added.
func buildUpstreamHeaders(request *http.Request) http.Header {
	headers := http.Header{}
	hasXForwardedFor := false
	clientIP, _, _ := net.SplitHostPort(request.RemoteAddr)

	for name, values := range request.Header {
		if !isHopByHopHeader(name) {
			headers[name] = values
		}

		if name == "X-Forwarded-For" && !hasXForwardedFor {
			chain := strings.Join(values, ", ") + ", " + clientIP
			headers.Set(name, chain)
			hasXForwardedFor = true
		}
	}

	if !hasXForwardedFor {
		headers.Set("X-Forwarded-For", clientIP)
	}

	if headers.Get("X-Forwarded-Host") == "" {
		headers.Set("X-Forwarded-Host", request.Host)
	}

	if headers.Get("X-Forwarded-Proto") == "" {
		headers.Set("X-Forwarded-Proto", "http")
	}

	return headers
}

// writeResponseHeaders relays the response status and headers to the client.
func writeResponseHeaders(writer http.ResponseWriter, response *http.Response) {
	headers := writer.Header()
	for name, values := range response.Header {
		if !isHopByHopHeader(name) {
			headers[name] = values
		}
	}

	writer.WriteHeader(response.StatusCode)
}
