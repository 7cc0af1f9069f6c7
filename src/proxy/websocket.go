package proxy

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chrisjchandler/Riffy/src/upstream"
)

// forwardWebSocket relays a websocket upgrade request over a raw TCP
// connection to the upstream. If the upstream agrees to the upgrade, the
// client connection is hijacked and both legs are piped until either side
// disconnects.
func (fwd *Forwarder) forwardWebSocket(
	writer http.ResponseWriter,
	request *http.Request,
	target *upstream.Target,
) Result {
	started := time.Now()

	upstreamConn, err := net.DialTimeout("tcp", target.Address, fwd.ConnectTimeout)
	if err != nil {
		return Result{
			Outcome:  classifyError(request, &dialError{err}),
			Duration: time.Since(started),
			Err:      err,
		}
	}
	defer upstreamConn.Close()

	// Forward the upgrade request verbatim, except for the usual proxy
	// header adjustments. The websocket negotiation headers must survive the
	// hop-by-hop filter for the upstream to complete the handshake.
	headers := buildUpstreamHeaders(request)
	headers.Set("Connection", "Upgrade")
	headers.Set("Upgrade", "websocket")
	for _, name := range []string{
		"Sec-Websocket-Key",
		"Sec-Websocket-Version",
		"Sec-Websocket-Protocol",
		"Sec-Websocket-Extensions",
	} {
		if value := request.Header.Get(name); value != "" {
			headers.Set(name, value)
		}
	}

	if fwd.ResponseTimeout > 0 {
		upstreamConn.SetReadDeadline(time.Now().Add(fwd.ResponseTimeout))
	}

	if err := writeRequestHeaders(upstreamConn, request, target.Address, headers); err != nil {
		return Result{
			Outcome:  classifyError(request, err),
			Duration: time.Since(started),
			Err:      err,
		}
	}

	reader := bufio.NewReader(upstreamConn)
	response, err := http.ReadResponse(reader, request)
	if err != nil {
		return Result{
			Outcome:  classifyError(request, err),
			Duration: time.Since(started),
			Err:      err,
		}
	}

	upstreamConn.SetReadDeadline(time.Time{})

	// The upstream declined the upgrade; relay its response like any other.
	if response.StatusCode != http.StatusSwitchingProtocols {
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
			result.Outcome = classifyError(request, copyErr)
			result.Err = copyErr
		}

		return result
	}

	hijacker, ok := writer.(http.Hijacker)
	if !ok {
		return Result{
			Outcome:  OutcomeClientGone,
			Duration: time.Since(started),
			Err:      errors.New("client connection does not support hijacking"),
		}
	}

	clientConn, clientRW, err := hijacker.Hijack()
	if err != nil {
		return Result{
			Outcome:  OutcomeClientGone,
			Duration: time.Since(started),
			Err:      err,
		}
	}
	defer clientConn.Close()

	if err := response.Write(clientConn); err != nil {
		return Result{
			Outcome:    OutcomeClientGone,
			HeaderSent: true,
			Duration:   time.Since(started),
			Err:        err,
		}
	}

	// Flush any frame data read ahead of the response headers, on both legs.
	if n := reader.Buffered(); n > 0 {
		if _, err := io.CopyN(clientConn, reader, int64(n)); err != nil {
			return Result{
				Outcome:    OutcomeClientGone,
				HeaderSent: true,
				Duration:   time.Since(started),
				Err:        err,
			}
		}
	}
	if n := clientRW.Reader.Buffered(); n > 0 {
		if _, err := io.CopyN(upstreamConn, clientRW.Reader, int64(n)); err != nil {
			return Result{
				Outcome:    OutcomeClientGone,
				HeaderSent: true,
				Duration:   time.Since(started),
				Err:        err,
			}
		}
	}

	pipeErr := Pipe(upstreamConn, clientConn)

	return Result{
		Outcome:    OutcomeSuccess,
		StatusCode: http.StatusSwitchingProtocols,
		HeaderSent: true,
		Duration:   time.Since(started),
		Err:        pipeErr,
	}
}
