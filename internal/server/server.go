// Package server implements the connection server: the OS-specific listener
// bind (Unix socket on macOS/Linux, TCP loopback on Windows) and the accept
// loop that hands each incoming connection to the JSON-RPC 2.0 handler over
// a Content-Length-framed stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/clankers-daemon/clankers/internal/apperr"
	"github.com/clankers-daemon/clankers/internal/rpc"
	"github.com/sourcegraph/jsonrpc2"
)

// Listen binds the daemon's listener. On Windows it falls back to a loopback
// TCP socket on an OS-assigned port, since named pipes aren't exposed by
// net.Listen; socketPath is not used there, and the bound address is
// available from the returned listener's Addr.
func Listen(socketPath string) (net.Listener, error) {
	if runtime.GOOS == "windows" {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, apperr.Wrap(apperr.InternalError, "failed to listen on loopback TCP", err)
		}
		return listener, nil
	}

	os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, fmt.Sprintf("failed to listen on %s", socketPath), err)
	}
	return listener, nil
}

// Server accepts connections on a bound listener and dispatches each one to
// an rpc.Handler.
type Server struct {
	listener net.Listener
	handler  *rpc.Handler
	onAccept func(conn net.Conn)
	onError  func(err error)
}

// New wraps an already-bound listener. onAccept/onError are optional hooks
// the daemon orchestrator uses for logging; either may be nil.
func New(listener net.Listener, handler *rpc.Handler, onAccept func(net.Conn), onError func(error)) *Server {
	return &Server{listener: listener, handler: handler, onAccept: onAccept, onError: onError}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. It blocks the calling goroutine.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				if s.onError != nil {
					s.onError(err)
				}
				continue
			}
		}

		if s.onAccept != nil {
			s.onAccept(conn)
		}
		go serveConn(ctx, conn, s.handler)
	}
}

// serveConn speaks JSON-RPC 2.0 over conn until the peer disconnects, using
// the vscode-style Content-Length framing the editor plugins expect.
func serveConn(ctx context.Context, conn net.Conn, handler *rpc.Handler) {
	defer conn.Close()

	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	rpcConn := jsonrpc2.NewConn(
		ctx,
		stream,
		jsonrpc2.HandlerWithError(
			func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
				handler.Handle(ctx, conn, req)
				return nil, nil
			},
		),
	)

	<-rpcConn.DisconnectNotify()
}
