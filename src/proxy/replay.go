package proxy

import (
	"bytes"
	"io"
)

// MaxReplayBytes is the largest request body that is buffered for retries.
// Requests with larger bodies get a single forwarding attempt.
const MaxReplayBytes = 1 << 20 // 1MiB

// ReplayBody wraps a request body so that the request can be re-sent to a
// different upstream after a failed attempt. Bytes are copied into a capped
// buffer as the transport reads them; a body that exceeds the cap, or that was
// only partially consumed when the attempt failed, cannot be replayed.
//
// Close is a no-op so the transport closing the body between attempts does not
// discard the buffered bytes; the dispatcher closes the source when the
// request is finished.
type ReplayBody struct {
	src       io.ReadCloser
	buffer    bytes.Buffer
	max       int
	bytesRead int64
	sawEOF    bool
	overflow  bool
	replay    *bytes.Reader
}

// NewReplayBody wraps body, buffering up to max bytes for replay.
func NewReplayBody(body io.ReadCloser, max int) *ReplayBody {
	return &ReplayBody{src: body, max: max}
}

func (b *ReplayBody) Read(data []byte) (int, error) {
	if b.replay != nil {
		return b.replay.Read(data)
	}

	n, err := b.src.Read(data)
	if n > 0 {
		b.bytesRead += int64(n)
		if b.buffer.Len()+n > b.max {
			b.overflow = true
		} else {
			b.buffer.Write(data[:n])
		}
	}

	if err == io.EOF {
		b.sawEOF = true
	}

	return n, err
}

// Close does nothing; see CloseSource.
func (b *ReplayBody) Close() error {
	return nil
}

// CloseSource closes the underlying body.
func (b *ReplayBody) CloseSource() error {
	return b.src.Close()
}

// BytesRead returns the number of bytes consumed from the original body.
func (b *ReplayBody) BytesRead() int64 {
	return b.bytesRead
}

// Rewind prepares the body to be sent again. It reports false when the body
// cannot be faithfully reproduced, in which case the request must not be
// retried.
func (b *ReplayBody) Rewind() bool {
	if b.replay != nil {
		b.replay.Seek(0, io.SeekStart)
		return true
	}

	// Untouched body; the failed attempt never read from it.
	if b.bytesRead == 0 {
		return true
	}

	// Fully consumed and small enough; replay from the buffer.
	if b.sawEOF && !b.overflow {
		b.replay = bytes.NewReader(b.buffer.Bytes())
		return true
	}

	return false
}
