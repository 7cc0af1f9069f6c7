package proxy

import (
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Pipe relays bytes between two connections in both directions until either
// side disconnects, then closes both so the opposite leg unblocks. No frame
// is ever buffered beyond the copy window.
func Pipe(lhs, rhs net.Conn) error {
	var group sync.WaitGroup
	results := make(chan error, 2)

	relay := func(dst, src net.Conn) {
		defer group.Done()
		_, err := io.Copy(dst, src)
		lhs.Close()
		rhs.Close()
		results <- err
	}

	group.Add(2)
	go relay(lhs, rhs)
	go relay(rhs, lhs)
	group.Wait()
	close(results)

	var err error
	for e := range results {
		if e != nil && !isClosedConnError(e) {
			err = multierr.Append(err, e)
		}
	}

	return err
}

// isClosedConnError reports whether err is the read/write error produced when
// the other relay leg tears the connection down.
func isClosedConnError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
