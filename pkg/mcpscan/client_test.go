package mcpscan

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConnectorSSE(t *testing.T) {
	var (
		mu   sync.Mutex
		auth []string
		team []string
	)
	srv := server.NewMCPServer("files", "1.0.0", server.WithToolCapabilities(false))
	srv.AddTool(
		mcp.NewTool("read_file", mcp.WithDescription("Read a file")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		},
	)
	ts := server.NewTestServer(srv, server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
		mu.Lock()
		defer mu.Unlock()
		auth = append(auth, r.Header.Get("Authorization"))
		team = append(team, r.Header.Get("X-Team"))
		return ctx
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connector := NewClientConnector(RetryConfig{Attempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
	session, err := connector.Connect(ctx, "files", Server{
		Type:    ServerTypeSSE,
		URL:     ts.URL + "/sse",
		Headers: map[string]string{"authorization": "Bearer tok", "X-Team": "core"},
	})
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "read_file", tools[0].Name)
	assert.Equal(t, "Read a file", tools[0].Description)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, auth)
	for i := range auth {
		assert.Equal(t, "Bearer tok", auth[i])
		assert.Equal(t, "core", team[i])
	}
}

func TestClientConnectorUnreachable(t *testing.T) {
	connector := NewClientConnector(RetryConfig{Attempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := connector.Connect(context.Background(), "down", Server{Type: ServerTypeSSE, URL: "http://127.0.0.1:1/sse"})
	assert.ErrorContains(t, err, "failed to start client")

	_, err = connector.Connect(context.Background(), "empty", Server{Type: ServerTypeSSE})
	assert.ErrorContains(t, err, "url is required for sse server")
}
