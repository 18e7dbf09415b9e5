package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/loomworks/weft"
	httpapi "github.com/loomworks/weft/internal/adapters/http"
	"github.com/loomworks/weft/pkg/domain"
)

func newTestServer(t *testing.T) (*weft.Engine, *httptest.Server) {
	t.Helper()
	sm := httpapi.NewStreamManager()
	eng := weft.New(weft.WithLifecycleHooks(sm.Hooks()))
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(httpapi.NewServer(eng, httpapi.WithStreams(sm)).Handler())
	t.Cleanup(srv.Close)
	return eng, srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func TestServer_NodeLifecycle(t *testing.T) {
	_, srv := newTestServer(t)

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/nodes", map[string]any{
		"type":   "prompt",
		"title":  "Ask",
		"config": map[string]any{"promptText": "hello"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	resp, node := doJSON(t, http.MethodGet, srv.URL+"/nodes/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ask", node["title"])

	resp, node = doJSON(t, http.MethodPatch, srv.URL+"/nodes/"+id, map[string]any{
		"title":  "Ask better",
		"config": map[string]any{"promptText": "hello there"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ask better", node["title"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/nodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WiringFlow(t *testing.T) {
	eng, srv := newTestServer(t)

	a, err := eng.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "a"})
	require.NoError(t, err)
	b, err := eng.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "b"})
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/wiring/output", map[string]any{"node_id": a.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, state := doJSON(t, http.MethodGet, srv.URL+"/wiring", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, state["pending"])
	assert.Equal(t, a.ID, state["from"])

	resp, edge := doJSON(t, http.MethodPost, srv.URL+"/wiring/input", map[string]any{"node_id": b.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, a.ID, edge["from"])
	assert.Equal(t, b.ID, edge["to"])

	// Same pair again: restart gesture, expect conflict on completion.
	doJSON(t, http.MethodPost, srv.URL+"/wiring/output", map[string]any{"node_id": a.ID})
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/wiring/input", map[string]any{"node_id": b.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Self-loop is unprocessable.
	doJSON(t, http.MethodPost, srv.URL+"/wiring/output", map[string]any{"node_id": a.ID})
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/wiring/input", map[string]any{"node_id": a.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_RunAndOverride(t *testing.T) {
	eng, srv := newTestServer(t)

	n, err := eng.AddNode(domain.Node{
		Type:   domain.NodeTypePrompt,
		Title:  "p",
		Config: domain.PromptConfig{PromptText: "go"},
	})
	require.NoError(t, err)

	// Echo dispatcher completes synchronously.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/nodes/"+n.ID+"/run", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, domain.StatusCompleted, eng.Status(n.ID))

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/"+n.ID+"/status", map[string]any{"status": "unknown"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, domain.StatusUnknown, eng.Status(n.ID))

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/nodes/"+n.ID+"/status", map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/nodes/"+n.ID+"/reset", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, domain.StatusQueued, eng.Status(n.ID))
}

func TestServer_RunRefusedWithoutConfig(t *testing.T) {
	eng, srv := newTestServer(t)

	n, err := eng.AddNode(domain.Node{Type: domain.NodeTypeWebSummarizer, Title: "s"})
	require.NoError(t, err)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/nodes/"+n.ID+"/run", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "url")
	assert.Equal(t, domain.StatusQueued, eng.Status(n.ID))
}

func TestServer_GraphAndTrail(t *testing.T) {
	eng, srv := newTestServer(t)

	_, err := eng.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "w"})
	require.NoError(t, err)

	resp, graph := doJSON(t, http.MethodGet, srv.URL+"/graph", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nodes, ok := graph["nodes"].([]any)
	require.True(t, ok)
	assert.Len(t, nodes, 1)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/timeline", nil)
	require.NoError(t, err)
	tlResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer tlResp.Body.Close()

	var timeline []map[string]any
	require.NoError(t, json.NewDecoder(tlResp.Body).Decode(&timeline))
	require.NotEmpty(t, timeline)
	assert.Equal(t, "node_added", timeline[0]["type"])
}

func TestServer_SnapshotRoundTrip(t *testing.T) {
	eng, srv := newTestServer(t)

	n, err := eng.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "w"})
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/snapshots/main", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	eng.DeleteNode(n.ID)
	require.Empty(t, eng.Nodes())

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/snapshots/main/restore", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, eng.Nodes(), 1)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/snapshots/missing/restore", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_EventsStreamBroadcastsChanges(t *testing.T) {
	eng, srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// First frame is the connection ping.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "event: ping"))

	lines := make(chan string, 32)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- l
		}
	}()

	// Give the subscriber a moment, then mutate the graph.
	time.Sleep(50 * time.Millisecond)
	_, err = eng.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "w"})
	require.NoError(t, err)

	for {
		select {
		case <-ctx.Done():
			t.Fatal("no graph event received on the stream")
		case l, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			if !strings.HasPrefix(l, "data: {") {
				continue
			}
			var envelope map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(l), "data: ")), &envelope))
			assert.Equal(t, "graph", envelope["kind"])
			return
		}
	}
}

func TestServer_HealthAndInfo(t *testing.T) {
	_, srv := newTestServer(t)

	resp, health := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	resp, info := doJSON(t, http.MethodGet, srv.URL+"/info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "weft-http", info["app"])
}

func TestServer_TemplateNotFound(t *testing.T) {
	_, srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+fmt.Sprintf("/templates/%s/instantiate", "ghost"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
