package upstream

import (
	"fmt"
	"net/url"
	"strings"
)

// Target holds information about a single upstream HTTP server. Targets are
// created once at startup and never mutated; they are shared read-only by all
// request handlers.
type Target struct {
	// A human readable description of the upstream, used in log output.
	Description string

	// Address is the network address of the upstream server, including the
	// port number.
	Address string
}

// ParseTarget creates a target from a "scheme://host:port" string. Only the
// "http" scheme is supported; the port defaults to 80 if omitted.
func ParseTarget(raw string) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("upstream address must not be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a valid upstream address: %s", raw, err)
	}

	if u.Scheme != "http" {
		return nil, fmt.Errorf("'%s' is not a valid upstream address: unsupported scheme '%s'", raw, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("'%s' is not a valid upstream address: missing host", raw)
	}

	if u.Path != "" || u.RawQuery != "" {
		return nil, fmt.Errorf("'%s' is not a valid upstream address: must not include a path", raw)
	}

	host := u.Host
	if u.Port() == "" {
		host += ":80"
	}

	return &Target{
		Description: u.Hostname(),
		Address:     host,
	}, nil
}

// ParseList creates targets from an ordered, comma-separated list of
// "scheme://host:port" entries. A malformed entry is an error, not a skip.
func ParseList(raw string) ([]*Target, error) {
	var targets []*Target

	for _, entry := range strings.Split(raw, ",") {
		target, err := ParseTarget(entry)
		if err != nil {
			return nil, err
		}

		targets = append(targets, target)
	}

	return targets, nil
}
