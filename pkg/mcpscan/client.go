package mcpscan

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/version"
)

// Session is an initialized connection to one MCP server.
type Session interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	Close() error
}

// Connector opens sessions to MCP servers.
type Connector interface {
	Connect(ctx context.Context, name string, server Server) (Session, error)
}

// RetryConfig controls connection retries.
type RetryConfig struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig is used when no retry config is given.
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// ClientConnector connects with mcp-go clients.
type ClientConnector struct {
	retry RetryConfig
}

// NewClientConnector returns a connector retrying failed connections per rc.
func NewClientConnector(rc RetryConfig) *ClientConnector {
	if rc.Attempts == 0 {
		rc = DefaultRetryConfig
	}
	return &ClientConnector{retry: rc}
}

// newClient builds an unstarted client for the server's transport.
func newClient(server Server) (*client.Client, error) {
	switch server.EffectiveType() {
	case ServerTypeStdio:
		if server.Command == "" {
			return nil, errors.New("command is required for stdio server")
		}
		envArgs := []string{}
		for k, v := range server.Env {
			envArgs = append(envArgs, k+"="+v)
		}
		tp := transport.NewStdio(server.Command, envArgs, server.Args...)
		return client.NewClient(tp), nil
	case ServerTypeHTTP:
		if server.URL == "" {
			return nil, errors.New("url is required for http server")
		}
		tp, err := transport.NewStreamableHTTP(server.URL, transport.WithHTTPHeaders(requestHeaders(server.Headers)))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create http transport")
		}
		return client.NewClient(tp), nil
	case ServerTypeSSE:
		if server.URL == "" {
			return nil, errors.New("url is required for sse server")
		}
		tp, err := transport.NewSSE(server.URL, transport.WithHeaders(requestHeaders(server.Headers)))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sse transport")
		}
		return client.NewClient(tp), nil
	default:
		return nil, errors.Errorf("unsupported server type: %s", server.Type)
	}
}

// requestHeaders copies headers, normalizing the bearer token header.
func requestHeaders(headers map[string]string) map[string]string {
	token, hasToken := BearerToken(headers)
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if hasToken && strings.EqualFold(k, "Authorization") {
			continue
		}
		out[k] = v
	}
	if hasToken {
		out["Authorization"] = "Bearer " + token
	}
	return out
}

// Connect starts and initializes a client, retrying with backoff.
func (c *ClientConnector) Connect(ctx context.Context, name string, server Server) (Session, error) {
	var session *clientSession

	err := retry.Do(
		func() error {
			cl, err := newClient(server)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if err := cl.Start(ctx); err != nil {
				_ = cl.Close()
				return errors.Wrap(err, "failed to start client")
			}

			initReq := mcp.InitializeRequest{}
			initReq.Params.ClientInfo = mcp.Implementation{
				Name:    "agentkit",
				Version: version.Version,
			}
			initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
			if _, err := cl.Initialize(ctx, initReq); err != nil {
				_ = cl.Close()
				return errors.Wrap(err, "failed to initialize client")
			}

			session = &clientSession{client: cl}
			return nil
		},
		retry.Attempts(c.retry.Attempts),
		retry.Delay(c.retry.InitialDelay),
		retry.MaxDelay(c.retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("server", name).
				WithField("attempt", n+1).
				Debug("retrying mcp connection")
		}),
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

type clientSession struct {
	client *client.Client
}

func (s *clientSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tools")
	}
	return res.Tools, nil
}

func (s *clientSession) Close() error {
	return s.client.Close()
}
