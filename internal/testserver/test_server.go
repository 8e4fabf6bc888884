// Package testserver runs the full editor stack over in-memory SQLite for
// end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/mcp"
	"github.com/rpggio/panotour/internal/sqlite"
	"github.com/rpggio/panotour/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Token   string
	Session *editor.Session
	Store   *blobstore.Store
}

// New starts a server guarded by token. An empty token disables auth.
func New(t *testing.T, token string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	ts := &TestServer{DB: db, Token: token}
	ts.start(t)

	t.Cleanup(func() {
		ts.stop(t)
		_ = db.Close()
	})
	return ts
}

// Restart flushes the autosave and brings up a fresh session over the same
// database, as a process restart would.
func (ts *TestServer) Restart(t *testing.T) {
	t.Helper()
	ts.stop(t)
	ts.start(t)
}

func (ts *TestServer) start(t *testing.T) {
	t.Helper()
	ts.Store = blobstore.New(sqlite.NewBlobRepository(ts.DB).Opener(), blobstore.Options{})
	ts.Session = editor.NewSession(ts.Store, sqlite.NewSlotRepository(ts.DB), editor.Options{
		AutosaveDelay: 10 * time.Millisecond,
	})
	require.NoError(t, ts.Session.Restore(context.Background()))

	mcpServer := mcp.NewServer(mcp.Config{
		Editor:        ts.Session,
		Token:         ts.Token,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)
	ts.Server = httptest.NewServer(transport.NewServer(ts.Session, transport.Options{
		Token: ts.Token,
		MCP:   mcpHandler,
	}))
}

func (ts *TestServer) stop(t *testing.T) {
	t.Helper()
	if ts.Server == nil {
		return
	}
	ts.Server.Close()
	require.NoError(t, ts.Session.Close(context.Background()))
	ts.Server = nil
}

// URL returns the absolute URL for path.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// Client returns an HTTP client that sends the bearer token.
func (ts *TestServer) Client() *http.Client {
	return &http.Client{Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport}}
}

// ConnectMCP opens an MCP client session against /mcp.
func (ts *TestServer) ConnectMCP(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "testserver-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.URL("/mcp"),
		HTTPClient: ts.Client(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.token == "" {
		return b.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}
