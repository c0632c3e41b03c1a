package secure

import (
	"net"
	"time"
)

// ioConn arms a fresh deadline before every read and write so no single
// protocol exchange can block indefinitely on a peer that has gone silent.
type ioConn struct {
	net.Conn
	timeout time.Duration
}

func (c *ioConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *ioConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

// WithIOTimeout wraps conn so every individual read and write carries a
// deadline of timeout from the moment it starts. The deadline bounds one
// blocking call, not the whole session.
func WithIOTimeout(conn net.Conn, timeout time.Duration) net.Conn {
	return &ioConn{Conn: conn, timeout: timeout}
}
