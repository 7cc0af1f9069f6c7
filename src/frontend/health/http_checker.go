package health

import (
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"time"
)

const requestHost = "localhost"
const requestPath = "/health"

// HTTPChecker is a checker that connects to the proxy server to check its
// status. It is used by the healthcheck command, typically as a container
// health probe.
type HTTPChecker struct {
	Address string
	Client  *http.Client
}

// Check returns information about the health of the proxy server.
func (checker *HTTPChecker) Check() Status {
	host, port, err := net.SplitHostPort(checker.Address)
	if err != nil {
		return Status{false, err.Error()}
	} else if host == "" {
		host = requestHost
	}

	client := checker.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	var u url.URL
	u.Scheme = "http"
	u.Host = net.JoinHostPort(host, port)
	u.Path = requestPath

	response, err := client.Get(u.String())
	if err != nil {
		return Status{false, err.Error()}
	}
	defer response.Body.Close()

	content, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return Status{false, err.Error()}
	}

	return Status{
		200 <= response.StatusCode && response.StatusCode <= 299,
		string(content),
	}
}
