package frontend

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chrisjchandler/Riffy/src/health"
	"github.com/chrisjchandler/Riffy/src/proxy"
	"github.com/chrisjchandler/Riffy/src/proxyprotocol"
	"github.com/chrisjchandler/Riffy/src/statuspage"
	"github.com/chrisjchandler/Riffy/src/upstream"
	"github.com/gorilla/websocket"
	"github.com/quipo/statsd"
)

// Server accepts plaintext HTTP connections from clients and dispatches each
// request to the next upstream in the pool. Every accepted connection is
// handled on its own goroutine by net/http; the pool cursor is the only state
// shared between them.
type Server struct {
	// BindAddress is the TCP address to listen on, e.g. ":8080".
	BindAddress string

	// Pool provides round-robin upstream selection.
	Pool *upstream.Pool

	// Forwarder relays individual request/response cycles.
	Forwarder *proxy.Forwarder

	// Observer tracks forwarding outcomes per target. If nil, outcomes are
	// discarded and every target stays eligible.
	Observer health.Observer

	// HealthCheck optionally intercepts health-probe requests before they are
	// proxied.
	HealthCheck ConditionalHandler

	// StatusPageWriter renders gateway error pages. Defaults to
	// statuspage.DefaultWriter.
	StatusPageWriter statuspage.Writer

	// Stats receives per-request counters and timings, if non-nil.
	Stats statsd.Statsd

	// UseProxyProtocol enables PROXY protocol parsing on accepted
	// connections, for deployments behind a layer-4 balancer.
	UseProxyProtocol bool

	// IdleTimeout bounds how long a keep-alive client connection may sit
	// idle between requests.
	IdleTimeout time.Duration

	// ReadHeaderTimeout bounds how long a client may take to send request
	// headers.
	ReadHeaderTimeout time.Duration

	Logger *log.Logger

	mutex      sync.Mutex
	httpServer *http.Server
}

// Run starts the server and blocks until it exits. It returns
// http.ErrServerClosed after a graceful Shutdown.
func (svr *Server) Run() error {
	listener, err := net.Listen("tcp", svr.BindAddress)
	if err != nil {
		return err
	}

	if svr.UseProxyProtocol {
		listener = &proxyprotocol.Listener{Inner: listener}
	}

	server := &http.Server{
		Handler:           svr.Handler(),
		ErrorLog:          svr.Logger,
		IdleTimeout:       svr.IdleTimeout,
		ReadHeaderTimeout: svr.ReadHeaderTimeout,
	}

	svr.mutex.Lock()
	svr.httpServer = server
	svr.mutex.Unlock()

	svr.Logger.Printf("http: listening on %s, %d upstream(s)", listener.Addr(), svr.Pool.Len())
	return server.Serve(listener)
}

// Shutdown stops accepting new connections and waits for in-flight requests
// to complete, or for ctx to expire.
func (svr *Server) Shutdown(ctx context.Context) error {
	svr.mutex.Lock()
	server := svr.httpServer
	svr.mutex.Unlock()

	if server == nil {
		return nil
	}

	return server.Shutdown(ctx)
}

// Handler returns the http.Handler the server runs. It is exposed so tests
// can drive the dispatcher without binding a socket.
func (svr *Server) Handler() http.Handler {
	return &Handler{
		Proxy:       http.HandlerFunc(svr.forwardRequest),
		HealthCheck: svr.HealthCheck,
	}
}

// forwardRequest is the per-request dispatcher: it selects a target, forwards
// the request, and retries the next pool entry while the failure is still
// invisible to the client. The retry budget equals the pool size so a fully
// dead pool terminates with a gateway error rather than looping.
func (svr *Server) forwardRequest(innerWriter http.ResponseWriter, request *http.Request) {
	logContext := &proxy.LogContext{
		Logger:      svr.Logger,
		Request:     request,
		IsWebSocket: websocket.IsWebSocketUpgrade(request),
	}
	logContext.Metrics.Start()

	writer := &ResponseWriter{
		Inner:      innerWriter,
		FirstWrite: func(int) { logContext.Metrics.FirstByteSent() },
	}

	var body *proxy.ReplayBody
	if request.Body != nil && request.Body != http.NoBody {
		body = proxy.NewReplayBody(request.Body, proxy.MaxReplayBytes)
		defer body.CloseSource()
		request.Body = body
	}

	budget := svr.Pool.Len()
	attempts := 0

	var target *upstream.Target
	var result proxy.Result

	for attempts < budget {
		target = svr.Pool.NextEligible(svr.Observer)
		attempts++

		result = svr.Forwarder.Forward(writer, request, target)
		svr.recordOutcome(request, target, result)

		if !result.Outcome.IsFailure() || result.HeaderSent {
			break
		}

		// Retry only while the request body can be faithfully re-sent.
		if body != nil && !body.Rewind() {
			break
		}
	}

	logContext.Upstream = target
	logContext.Attempts = attempts

	if result.Outcome.IsFailure() && !result.HeaderSent {
		svr.writeGatewayError(writer, request, result)
	}

	logContext.StatusCode = writer.StatusCode
	if logContext.StatusCode == 0 {
		logContext.StatusCode = result.StatusCode
	}

	logContext.Metrics.LastByteSent()
	logContext.Metrics.BytesOut = int64(writer.Size)
	if body != nil {
		logContext.Metrics.BytesIn = body.BytesRead()
	}

	svr.publishStats(result, attempts, logContext)
	logContext.Log(result.Err)
}

// writeGatewayError renders a status page once every attempt has failed
// without a byte reaching the client: 504 when the upstream accepted the
// connection but timed out, 502 otherwise.
func (svr *Server) writeGatewayError(
	writer http.ResponseWriter,
	request *http.Request,
	result proxy.Result,
) {
	statusCode := http.StatusBadGateway
	if result.Outcome == proxy.OutcomeTimeout {
		statusCode = http.StatusGatewayTimeout
	}

	pageWriter := svr.StatusPageWriter
	if pageWriter == nil {
		pageWriter = statuspage.DefaultWriter
	}

	pageWriter.WriteError(writer, request, statuspage.Error{
		Inner:      result.Err,
		StatusCode: statusCode,
	})
}

func (svr *Server) recordOutcome(
	request *http.Request,
	target *upstream.Target,
	result proxy.Result,
) {
	if svr.Observer == nil {
		return
	}

	if result.Outcome.IsFailure() {
		svr.Observer.RecordFailure(request.Context(), target)
	} else if result.Outcome == proxy.OutcomeSuccess {
		svr.Observer.RecordSuccess(request.Context(), target)
	}
}

func (svr *Server) publishStats(result proxy.Result, attempts int, logContext *proxy.LogContext) {
	if svr.Stats == nil {
		return
	}

	svr.Stats.Incr("request", 1)
	svr.Stats.Incr("request.outcome."+result.Outcome.String(), 1)
	if attempts > 1 {
		svr.Stats.Incr("request.retry", int64(attempts-1))
	}
	svr.Stats.PrecisionTiming("request.duration", time.Since(logContext.Metrics.StartedAt))
}
