package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"cellexec/api/execrpc"
	"cellexec/internal/assets"
	"cellexec/internal/config"
	"cellexec/internal/security"
	"cellexec/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*Server, *assets.MemoryFetcher) {
	t.Helper()
	cfg := config.DefaultConfig()
	fetcher := assets.NewMemoryFetcher()
	mgr := session.NewManager(cfg, security.NewValidator(cfg.Security), fetcher, nil, zaptest.NewLogger(t))
	t.Cleanup(mgr.EndAll)
	return New(mgr, zaptest.NewLogger(t)), fetcher
}

func startSession(t *testing.T, srv *Server, f *assets.MemoryFetcher, id, source string) {
	t.Helper()
	f.Put("books/"+id+"/notebook.go", []byte(source))
	resp, err := srv.StartSession(context.Background(), &execrpc.StartSessionRequest{
		SessionID:    id,
		NotebookPath: "books/" + id + "/notebook.go",
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Error)
}

func TestStartSession_RequiresNotebookPath(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.StartSession(context.Background(), &execrpc.StartSessionRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "notebook_path")
}

func TestStartSession_MissingNotebookInEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.StartSession(context.Background(), &execrpc.StartSessionRequest{
		SessionID:    "s1",
		NotebookPath: "books/none/notebook.go",
	})
	require.NoError(t, err, "domain failures never become gRPC errors")
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestExecuteCell_RoundTrip(t *testing.T) {
	srv, f := newTestServer(t)
	startSession(t, srv, f, "s1", "x := 40")

	resp, err := srv.ExecuteCell(context.Background(), &execrpc.ExecuteCellRequest{
		SessionID: "s1",
		CellID:    "c1",
		Code:      "x + 2",
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Error)
	require.NotEmpty(t, resp.Outputs)
	assert.Equal(t, execrpc.OutputExpressionResult, resp.Outputs[0].Kind)
	assert.Equal(t, "42", resp.Outputs[0].Content)
	assert.Equal(t, "40", resp.CellState["x"])
}

func TestExecuteCell_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.ExecuteCell(context.Background(), &execrpc.ExecuteCellRequest{
		SessionID: "nope",
		CellID:    "c1",
		Code:      "1",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Session not found", resp.Error)
}

func TestExecuteCell_RejectedCode(t *testing.T) {
	srv, f := newTestServer(t)
	startSession(t, srv, f, "s1", "")

	resp, err := srv.ExecuteCell(context.Background(), &execrpc.ExecuteCellRequest{
		SessionID: "s1",
		CellID:    "c1",
		Code:      "import \"os\"\nos.Getenv(\"HOME\")",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Outputs)
	assert.Equal(t, execrpc.OutputError, resp.Outputs[0].Kind)
}

func TestEndSession(t *testing.T) {
	srv, f := newTestServer(t)
	startSession(t, srv, f, "s1", "")

	resp, err := srv.EndSession(context.Background(), &execrpc.EndSessionRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	resp, err = srv.EndSession(context.Background(), &execrpc.EndSessionRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Session not found", resp.Error)
}

func TestGetSessionState(t *testing.T) {
	srv, f := newTestServer(t)
	startSession(t, srv, f, "s1", "x := 7")

	resp, err := srv.GetSessionState(context.Background(), &execrpc.GetSessionStateRequest{SessionID: "s1"})
	require.NoError(t, err)
	require.True(t, resp.Exists)
	assert.Equal(t, "7", resp.State["x"])

	resp, err = srv.GetSessionState(context.Background(), &execrpc.GetSessionStateRequest{SessionID: "gone"})
	require.NoError(t, err)
	assert.False(t, resp.Exists)
}

func TestUpdateWidgetValue(t *testing.T) {
	srv, f := newTestServer(t)
	startSession(t, srv, f, "s1", "")

	exec, err := srv.ExecuteCell(context.Background(), &execrpc.ExecuteCellRequest{
		SessionID: "s1",
		CellID:    "c1",
		Code:      "import \"ui\"\nui.Slider(0, 100, 5)",
	})
	require.NoError(t, err)
	require.True(t, exec.Success, exec.Error)

	var widgetID string
	for _, out := range exec.Outputs {
		if out.Kind == execrpc.OutputWidget {
			widgetID = out.Metadata["widget_id"]
		}
	}
	require.NotEmpty(t, widgetID)

	resp, err := srv.UpdateWidgetValue(context.Background(), &execrpc.UpdateWidgetValueRequest{
		SessionID: "s1",
		WidgetID:  widgetID,
		Value:     "42",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success, resp.Error)

	state, err := srv.GetSessionState(context.Background(), &execrpc.GetSessionStateRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Contains(t, state.Widgets[widgetID], "40", "42 snaps to the nearest step of 5")

	resp, err = srv.UpdateWidgetValue(context.Background(), &execrpc.UpdateWidgetValueRequest{
		SessionID: "s1",
		WidgetID:  "widget_unknown1",
		Value:     "1",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
}
