package theatremix

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ResolveFunc turns the configured host into the console's UDP address.
type ResolveFunc func(host string, port int) (*net.UDPAddr, error)

// endpoint is the connected UDP socket owned by the agent loop.
type endpoint interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

type dialFunc func(remote *net.UDPAddr) (endpoint, error)

// ResolveHost resolves host:port through the system resolver and returns the
// first address. Bracketed IPv6 literals are accepted.
func ResolveHost(host string, port int) (*net.UDPAddr, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("empty host")
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// dialUDP binds an ephemeral port on all interfaces and connects it to
// remote, so writes need no address and reads only see the console.
func dialUDP(remote *net.UDPAddr) (endpoint, error) {
	conn, err := net.DialUDP("udp", &net.UDPAddr{Port: 0}, remote)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// isTimeout reports whether a receive error is just the poll deadline.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
