package ports

import (
	"context"
	"net"
)

// Dialer opens the outbound connection to the collection server. Production
// wiring uses net.Dialer; simulation substitutes an in-process peer so the
// retry path is exercisable without real network conditions.
type Dialer interface {
	DialContext(ctx context.Context, addr string) (net.Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, addr string) (net.Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	return f(ctx, addr)
}
