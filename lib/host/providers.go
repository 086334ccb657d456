package host

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/snowmerak/bridge.go/lib/process"
)

// LinkProvider acquires the byte transport the host frames messages over.
type LinkProvider interface {
	// Open establishes the transport and returns its reader and writer.
	Open(ctx context.Context) (io.Reader, io.Writer, error)
	// Close cleans up any resources.
	Close() error
}

// ConsumerWaiter is implemented by providers that own the consumer process
// and can report its exit.
type ConsumerWaiter interface {
	Wait() error
}

// ExecProvider forks the consumer executable and talks to it over stdio.
type ExecProvider struct {
	Path string
	Args []string

	proc *process.Process
}

// Open implements LinkProvider by forking the consumer process.
func (e *ExecProvider) Open(ctx context.Context) (io.Reader, io.Writer, error) {
	p, err := process.Fork(e.Path, e.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fork consumer: %w", err)
	}
	e.proc = p
	return p.Stdout(), p.Stdin(), nil
}

// Wait implements ConsumerWaiter.
func (e *ExecProvider) Wait() error {
	if e.proc == nil {
		return fmt.Errorf("consumer not started")
	}
	return e.proc.Wait()
}

// Close implements LinkProvider.
func (e *ExecProvider) Close() error {
	if e.proc == nil {
		return nil
	}
	return e.proc.Close()
}

// PipeProvider uses a caller-supplied reader and writer. It is the transport
// for tests and for embedding a consumer endpoint in the same process.
type PipeProvider struct {
	Reader io.Reader
	Writer io.Writer
}

// Open implements LinkProvider.
func (p *PipeProvider) Open(ctx context.Context) (io.Reader, io.Writer, error) {
	if p.Reader == nil || p.Writer == nil {
		return nil, nil, fmt.Errorf("pipe provider requires both a reader and a writer")
	}
	return p.Reader, p.Writer, nil
}

// Close implements LinkProvider.
func (p *PipeProvider) Close() error {
	return nil
}

// UnixSocketProvider listens on a Unix domain socket and accepts a single
// consumer connection.
type UnixSocketProvider struct {
	SocketPath string

	listener net.Listener
	conn     net.Conn
}

// Open implements LinkProvider by accepting one connection on the socket.
func (u *UnixSocketProvider) Open(ctx context.Context) (io.Reader, io.Writer, error) {
	// Remove any stale socket file from an earlier run.
	os.Remove(u.SocketPath)

	listener, err := net.Listen("unix", u.SocketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on unix socket: %w", err)
	}
	u.listener = listener

	connChan := make(chan net.Conn, 1)
	errChan := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			errChan <- err
			return
		}
		connChan <- conn
	}()

	select {
	case conn := <-connChan:
		u.conn = conn
		return conn, conn, nil
	case err := <-errChan:
		return nil, nil, fmt.Errorf("failed to accept connection: %w", err)
	case <-time.After(5 * time.Second):
		listener.Close()
		return nil, nil, fmt.Errorf("timeout waiting for consumer connection")
	case <-ctx.Done():
		listener.Close()
		return nil, nil, ctx.Err()
	}
}

// Close implements LinkProvider.
func (u *UnixSocketProvider) Close() error {
	var errs []error

	if u.conn != nil {
		if err := u.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if u.listener != nil {
		if err := u.listener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	os.Remove(u.SocketPath)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// WebSocketProvider serves a websocket listener and accepts a single
// consumer connection. The consumer dials with bridge.AttachWebSocket.
type WebSocketProvider struct {
	Addr string

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	conn     net.Conn
}

// URL returns the websocket URL consumers should dial. It is safe to poll
// from another goroutine while Open is still waiting for the connection;
// it returns "" until the listener is up.
func (w *WebSocketProvider) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return ""
	}
	return fmt.Sprintf("ws://%s/bridge", w.listener.Addr().String())
}

// Open implements LinkProvider by serving HTTP on Addr and upgrading the
// first request on /bridge to a websocket connection.
func (w *WebSocketProvider) Open(ctx context.Context) (io.Reader, io.Writer, error) {
	listener, err := net.Listen("tcp", w.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", w.Addr, err)
	}
	w.mu.Lock()
	w.listener = listener
	w.mu.Unlock()

	connChan := make(chan net.Conn, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(rw http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(rw, r, nil)
		if err != nil {
			return
		}

		conn := websocket.NetConn(context.Background(), ws, websocket.MessageBinary)
		select {
		case connChan <- conn:
		default:
			// Only one consumer per bridge.
			conn.Close()
		}
	})

	w.server = &http.Server{Handler: mux}
	go w.server.Serve(listener)

	select {
	case conn := <-connChan:
		w.conn = conn
		return conn, conn, nil
	case <-time.After(30 * time.Second):
		w.server.Close()
		return nil, nil, fmt.Errorf("timeout waiting for consumer connection")
	case <-ctx.Done():
		w.server.Close()
		return nil, nil, ctx.Err()
	}
}

// Close implements LinkProvider.
func (w *WebSocketProvider) Close() error {
	var errs []error

	if w.conn != nil {
		if err := w.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.server != nil {
		if err := w.server.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
