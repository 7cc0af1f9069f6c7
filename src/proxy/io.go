package proxy

import (
	"fmt"
	"io"
	"net/http"
)

// copyFlush copies src to dst in bounded chunks, flushing after each write so
// the client sees response data as it arrives. Memory use is bounded by the
// buffer size regardless of the total response size.
func copyFlush(dst io.Writer, src io.Reader) (int64, error) {
	flusher, _ := dst.(http.Flusher)
	buffer := make([]byte, 32*1024)
	var written int64

	for {
		n, readErr := src.Read(buffer)
		if n > 0 {
			w, writeErr := dst.Write(buffer[:n])
			written += int64(w)
			if writeErr != nil {
				return written, writeErr
			}
			if w < n {
				return written, io.ErrShortWrite
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// writeRequestHeaders writes the request line and headers for request to
// writer, as sent on a raw upstream connection. The Host header is set to
// host, not to the value the client sent.
func writeRequestHeaders(writer io.Writer, request *http.Request, host string, headers http.Header) error {
	if _, err := fmt.Fprintf(
		writer,
		"%s %s HTTP/1.1\r\n",
		request.Method,
		request.URL.RequestURI(),
	); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(writer, "Host: %s\r\n", host); err != nil {
		return err
	}

	if err := headers.Write(writer); err != nil {
		return err
	}

	_, err := io.WriteString(writer, "\r\n")
	return err
}
