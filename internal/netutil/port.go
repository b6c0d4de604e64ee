package netutil

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNoBindAddr is returned when neither the preferred address nor any
// candidate can be listened on.
var ErrNoBindAddr = errors.New("no available bind addresses")

// Listen opens a TCP listener on preferred, or on the first free candidate
// when autoFallback is set. The listener is returned open so the address
// cannot be taken between the check and http.Server.Serve.
func Listen(preferred string, candidates []string, autoFallback bool) (net.Listener, error) {
	var tried []string
	if preferred != "" {
		ln, err := net.Listen("tcp", preferred)
		if err == nil {
			return ln, nil
		}
		if !autoFallback {
			return nil, fmt.Errorf("preferred bind address in use: %s: %w", preferred, err)
		}
		tried = append(tried, preferred)
	}

	for _, addr := range candidates {
		if addr == preferred {
			continue
		}
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		tried = append(tried, addr)
	}

	return nil, fmt.Errorf("%w (tried %s)", ErrNoBindAddr, strings.Join(tried, ", "))
}

// IsAddrAvailable reports whether addr can be listened on right now.
func IsAddrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
