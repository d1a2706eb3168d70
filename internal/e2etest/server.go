// Package e2etest starts the web application in-process and drives it like a browser with a virtual passkey
// authenticator.
package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/logging"
)

type Server struct {
	url    string
	client *Client
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

const (
	rpID     = "localhost"
	rpOrigin = "http://localhost:0"
)

// StartServer starts the test server, waits for it to be ready, and return the server URL for testing.
//
// logSink is the writer to which the server logs are written. You usually want to use [io.Discard].
// lookupEnv is a function that returns the value of an environment variable. It has same signature as [os.LookupEnv].
// It should configure the server to listen on localhost:0 so that the WebAuthn origin matches the test clients.
// run is the function that starts the server. We expect the server to log the address it's listening on with
// [LogAddrKey]. The server stops when ctx is cancelled.
func StartServer(
	ctx context.Context,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	// We need to grab the dynamically allocated port from the log output.
	addrCh := make(chan string, 1)
	logger := logging.NewLogger(logSink, slog.LevelDebug, func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == LogAddrKey {
			select {
			case addrCh <- a.Value.String():
			default:
			}
		}
		return a
	})

	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(context.Cause(ctx), "server stopped before it was ready")
	case addr := <-addrCh:
		var (
			err    error
			client *Client
		)
		serverURL := fmt.Sprintf("http://%s", addr)
		if client, err = NewClient(serverURL, rpID, rpOrigin); err != nil {
			return nil, errors.Wrap(err, "new client")
		}
		if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
			return nil, errors.Wrap(err, "wait for ready")
		}
		return &Server{
			url:    serverURL,
			client: client,
		}, nil
	}
}

// Client returns the default client of the server.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns another client with its own cookies and authenticator for playing against the default one.
func (s *Server) NewClient() (*Client, error) {
	return NewClient(s.url, rpID, rpOrigin)
}

func (s *Server) URL() string {
	return s.url
}
