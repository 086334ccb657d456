package bridge

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/snowmerak/bridge.go/lib/channel"
)

// AttachUnixSocket connects to the host's Unix domain socket and builds the
// Endpoint over the connection. The host may still be setting the socket up,
// so the dial is retried briefly.
func AttachUnixSocket(ctx context.Context, socketPath string, set *channel.Set, opts ...Option) (*Endpoint, error) {
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to unix socket: %w", err)
	}

	return Attach(conn, conn, set, opts...), nil
}

// AttachWebSocket dials the host's websocket listener and builds the
// Endpoint over the connection. The connection lives until ctx is cancelled.
func AttachWebSocket(ctx context.Context, url string, set *channel.Set, opts ...Option) (*Endpoint, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	conn := websocket.NetConn(ctx, ws, websocket.MessageBinary)
	return Attach(conn, conn, set, opts...), nil
}
