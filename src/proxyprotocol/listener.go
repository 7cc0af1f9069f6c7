package proxyprotocol

import (
	"net"
	"time"
)

// Listener wraps a net.Listener, consuming PROXY protocol headers from each
// accepted connection. Connections that send a malformed header are dropped;
// connections without a header are served with their transport addresses.
type Listener struct {
	Inner net.Listener
}

// Accept waits for the next connection and parses its PROXY header, if any.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		nc, err := l.Inner.Accept()
		if err != nil {
			return nil, err
		}

		// Bound the header parse so a silent client cannot stall the accept
		// loop indefinitely.
		nc.SetReadDeadline(time.Now().Add(handshakeTimeout))

		conn, err := NewConn(nc)
		if err != nil {
			nc.Close()
			continue
		}

		conn.SetReadDeadline(time.Time{})
		return conn, nil
	}
}

// Close closes the inner listener.
func (l *Listener) Close() error {
	return l.Inner.Close()
}

// Addr returns the inner listener's address.
func (l *Listener) Addr() net.Addr {
	return l.Inner.Addr()
}
