package proxyprotocol

import (
	"net"

	proxyproto "github.com/pires/go-proxyproto"
)

// NewProxyAddr creates a net.Addr from the address family, IP and port
// carried in a PROXY protocol header.
func NewProxyAddr(proto proxyproto.AddressFamilyAndProtocol, addr net.IP, port uint16) net.Addr {
	switch {
	case proto.IsUnix():
		return &net.UnixAddr{
			Net:  "unix",
			Name: addr.String(),
		}
	case !proto.IsStream():
		return &net.UDPAddr{
			IP:   addr,
			Port: int(port),
		}
	default:
		return &net.TCPAddr{
			IP:   addr,
			Port: int(port),
		}
	}
}
