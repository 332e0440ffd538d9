package netrx

import (
	"errors"
	"net"
	"os"
	"time"

	"eventnode-go/errcode"
)

// PacketConn is one bound datagram endpoint.
type PacketConn interface {
	// ReadTimeout waits at most d for one datagram. An expired wait returns
	// errcode.Timeout; any other error means the endpoint is unusable.
	ReadTimeout(buf []byte, d time.Duration) (int, net.Addr, error)
	LocalAddr() net.Addr
	Close() error
}

// Transport creates bound endpoints.
type Transport interface {
	Listen(port int) (PacketConn, error)
}

// UDPTransport binds real UDP sockets. Host "" binds all interfaces.
type UDPTransport struct {
	Host string
}

func (u UDPTransport) Listen(port int) (PacketConn, error) {
	addr := &net.UDPAddr{Port: port}
	if u.Host != "" {
		ip := net.ParseIP(u.Host)
		if ip == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "udp.listen", Msg: "bad host " + u.Host}
		}
		addr.IP = ip
	}
	c, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errcode.Wrap(errcode.Transport, "udp.listen", err)
	}
	return &udpConn{c: c}, nil
}

type udpConn struct {
	c *net.UDPConn
}

func (u *udpConn) ReadTimeout(buf []byte, d time.Duration) (int, net.Addr, error) {
	if err := u.c.SetReadDeadline(time.Now().Add(d)); err != nil {
		return 0, nil, errcode.Wrap(errcode.Transport, "udp.deadline", err)
	}
	n, from, err := u.c.ReadFromUDP(buf)
	if err == nil {
		return n, from, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil, errcode.Timeout
	}
	if errors.Is(err, net.ErrClosed) {
		return 0, nil, errcode.Wrap(errcode.Closed, "udp.read", err)
	}
	return 0, nil, errcode.Wrap(errcode.Transport, "udp.read", err)
}

func (u *udpConn) LocalAddr() net.Addr { return u.c.LocalAddr() }
func (u *udpConn) Close() error        { return u.c.Close() }
