package proxy

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chrisjchandler/Riffy/src/upstream"
	"github.com/gorilla/websocket"
)

// Forwarder relays a single request/response cycle between a client and a
// selected upstream target. It holds no per-request state; upstream
// connections are pooled by the underlying transport.
type Forwarder struct {
	// ConnectTimeout bounds the time spent establishing an upstream
	// connection. Exceeding it makes the target unreachable for the request.
	ConnectTimeout time.Duration

	// ResponseTimeout bounds the time the upstream may take to produce
	// response headers once connected.
	ResponseTimeout time.Duration

	// Logger is used for forwarding-level diagnostics.
	Logger *log.Logger

	// Transport performs the HTTP leg. If nil, a transport honouring the
	// timeouts above is built on first use.
	Transport http.RoundTripper

	buildTransport   sync.Once
	defaultTransport http.RoundTripper
}

// NewForwarder creates a forwarder with a transport that honours the given
// timeouts.
func NewForwarder(connectTimeout, responseTimeout time.Duration, logger *log.Logger) *Forwarder {
	return &Forwarder{
		ConnectTimeout:  connectTimeout,
		ResponseTimeout: responseTimeout,
		Logger:          logger,
		Transport:       newTransport(connectTimeout, responseTimeout),
	}
}

// newTransport creates the HTTP transport used for upstream requests. Dial
// errors are wrapped so they can be told apart from response timeouts.
func newTransport(connectTimeout, responseTimeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, address)
			if err != nil {
				return nil, &dialError{err}
			}
			return conn, nil
		},
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// transport returns the transport to use, building the default lazily when
// the forwarder was constructed as a struct literal.
func (fwd *Forwarder) transport() http.RoundTripper {
	if fwd.Transport != nil {
		return fwd.Transport
	}

	fwd.buildTransport.Do(func() {
		fwd.defaultTransport = newTransport(fwd.ConnectTimeout, fwd.ResponseTimeout)
	})

	return fwd.defaultTransport
}

// Forward relays request to target and streams the response back through
// writer. WebSocket upgrade requests are relayed over a raw TCP pipe; all
// other requests go through the pooled HTTP transport.
func (fwd *Forwarder) Forward(
	writer http.ResponseWriter,
	request *http.Request,
	target *upstream.Target,
) Result {
	if websocket.IsWebSocketUpgrade(request) {
		return fwd.forwardWebSocket(writer, request, target)
	}

	return fwd.forwardHTTP(writer, request, target)
}

func (fwd *Forwarder) forwardHTTP(
	writer http.ResponseWriter,
	request *http.Request,
	target *upstream.Target,
) Result {
	started := time.Now()

	response, err := fwd.transport().RoundTrip(
		buildUpstreamRequest(request, target),
	)
	if err != nil {
		return Result{
			Outcome:  classifyError(request, err),
			Duration: time.Since(started),
			Err:      err,
		}
	}
	defer response.Body.Close()

	writeResponseHeaders(writer, response)

	bytesOut, copyErr := copyFlush(writer, response.Body)

	result := Result{
		Outcome:    OutcomeSuccess,
		StatusCode: response.StatusCode,
		HeaderSent: true,
		BytesOut:   bytesOut,
		Duration:   time.Since(started),
	}

	if copyErr != nil {
		// A response has already been partially relayed; the attempt is
		// terminal regardless of classification.
		result.Outcome = classifyError(request, copyErr)
		result.Err = copyErr
	}

	return result
}

// buildUpstreamRequest produces the HTTP request sent to the upstream: the
// URL and Host header point at the target, hop-by-hop headers are dropped and
// X-Forwarded-* headers added. The inbound request is never modified.
func buildUpstreamRequest(request *http.Request, target *upstream.Target) *http.Request {
	upstreamRequest := request.Clone(request.Context())
	upstreamRequest.URL.Scheme = "http"
	upstreamRequest.URL.Host = target.Address
	upstreamRequest.Host = target.Address
	upstreamRequest.Header = buildUpstreamHeaders(request)
	upstreamRequest.RequestURI = ""
	upstreamRequest.Close = false

	return upstreamRequest
}

// classifyError maps a transport error to an outcome. Client cancellation
// takes precedence; dial failures are distinguished from response timeouts so
// the dispatcher can choose between 502 and 504.
func classifyError(request *http.Request, err error) Outcome {
	if request.Context().Err() != nil {
		return OutcomeClientGone
	}

	var dErr *dialError
	if errors.As(err, &dErr) {
		return OutcomeUnreachable
	}

	var nErr net.Error
	if errors.As(err, &nErr) && nErr.Timeout() {
		return OutcomeTimeout
	}

	return OutcomeUnreachable
}

// dialError marks errors that occurred while establishing the upstream
// connection, before any request byte was sent.
type dialError struct {
	err error
}

func (e *dialError) Error() string { return e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }
