package proxyprotocol

import (
	"bufio"
	"net"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// handshakeTimeout bounds how long a client may take to send the PROXY
// header before the connection falls back to its transport addresses.
const handshakeTimeout = 5 * time.Second

// Conn is a net.Conn that transparently consumes a PROXY protocol header from
// the start of the stream, reporting the addresses the header carries instead
// of the transport's. Connections without a PROXY header pass through
// untouched.
type Conn struct {
	rd  *bufio.Reader
	c   net.Conn
	r   net.Addr
	l   net.Addr
	hdr *proxyproto.Header
}

// NewConn parses an optional PROXY protocol header from nc and returns a
// net.Conn whose RemoteAddr reflects the original client.
func NewConn(nc net.Conn) (net.Conn, error) {
	c := &Conn{
		c:  nc,
		rd: bufio.NewReader(nc),
	}
	if err := c.proxyInit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) proxyInit() error {
	hdr, err := proxyproto.Read(c.rd)
	switch err {
	case proxyproto.ErrNoProxyProtocol, proxyproto.ErrInvalidLength:
		// Not a PROXY protocol connection; serve it as-is.
		return nil
	case nil:
		c.hdr = hdr
		c.l = NewProxyAddr(hdr.TransportProtocol, hdr.DestinationAddress, hdr.DestinationPort)
		c.r = NewProxyAddr(hdr.TransportProtocol, hdr.SourceAddress, hdr.SourcePort)
		return nil
	default:
		return err
	}
}

// Read reads data from the connection, starting after any PROXY header.
func (c *Conn) Read(b []byte) (n int, err error) {
	return c.rd.Read(b)
}

// Write writes data to the connection.
func (c *Conn) Write(b []byte) (n int, err error) {
	return c.c.Write(b)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.c.Close()
}

// LocalAddr returns the destination address from the PROXY header, or the
// transport's local address when no header was present.
func (c *Conn) LocalAddr() net.Addr {
	if c.hdr == nil || c.l == nil {
		return c.c.LocalAddr()
	}
	return c.l
}

// RemoteAddr returns the source address from the PROXY header, or the
// transport's remote address when no header was present.
func (c *Conn) RemoteAddr() net.Addr {
	if c.hdr == nil || c.r == nil {
		return c.c.RemoteAddr()
	}
	return c.r
}

// SetDeadline sets the read and write deadlines of the underlying connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.c.SetDeadline(t)
}

// SetReadDeadline sets the read deadline of the underlying connection.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.c.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline of the underlying connection.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.c.SetWriteDeadline(t)
}
