package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/essboard/essboard/pkg/board"
	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/storage"
	"github.com/essboard/essboard/pkg/storage/storagemock"
	"github.com/essboard/essboard/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type fakeInterpreter struct {
	mu    sync.Mutex
	calls int
	h     types.HealthInterpretation
}

func (f *fakeInterpreter) Interpret(context.Context, float64, []string) types.HealthInterpretation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.h
}

func testServer(t *testing.T) (*Server, *fakeInterpreter) {
	t.Helper()
	db := storage.NewStaticProvider("fleet", storage.BuiltinDashboard())
	in := &fakeInterpreter{h: types.HealthInterpretation{
		Summary:         "整体运行平稳",
		Causes:          []string{"温度波动"},
		Recommendations: []string{"加强巡检"},
	}}
	return New(db, board.New(in, db, 0)), in
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.setupHandler()

	t.Run("headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, "essboard", w.Header().Get("Server"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		_, err := uuid.Parse(w.Header().Get(requestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("request id reused", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set(requestIDHeader, id)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, id, w.Header().Get(requestIDHeader))
	})

	t.Run("invalid request id replaced", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.Header.Set(requestIDHeader, "<script>")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.NotEqual(t, "<script>", w.Header().Get(requestIDHeader))
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/dashboard", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		var d types.Dashboard
		require.NoError(t, json.NewDecoder(zr).Decode(&d))
		assert.Equal(t, 91.6, d.AverageHealthScore)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/api/dashboard", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestDashboardPage(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.setupHandler()

	get := func() string {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		return w.Body.String()
	}

	t.Run("before interpretation", func(t *testing.T) {
		body := get()
		assert.Contains(t, body, loadingText)
		assert.Contains(t, body, `data-loading="true"`)
		assert.Contains(t, body, "北京一号站")
		assert.Contains(t, body, "电池组模块过温告警")
		assert.Contains(t, body, "91.6")
		assert.Contains(t, body, "待升级 2000 台")
		assert.Contains(t, body, "width: 85.2%")
		assert.Contains(t, body, "width: 45.2%")
	})

	t.Run("after interpretation", func(t *testing.T) {
		_, err := srv.board.Refresh(context.Background())
		require.NoError(t, err)

		body := get()
		assert.NotContains(t, body, loadingText)
		assert.Contains(t, body, "整体运行平稳")
		assert.Contains(t, body, "<li>温度波动</li>")
		assert.Contains(t, body, "<li>加强巡检</li>")
	})

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDashboardNotFound(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("GetDashboard", mock.Anything).Return(types.Dashboard{}, storage.ErrDashboardNotFound)
	srv := New(db, board.New(&fakeInterpreter{}, db, 0))
	h := srv.setupHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"failed to get dashboard"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/interpretation/refresh", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardStorageError(t *testing.T) {
	db := &storagemock.MockDatabase{}
	db.On("GetDashboard", mock.Anything).Return(types.Dashboard{}, errors.New("boom"))
	srv := New(db, board.New(&fakeInterpreter{}, db, 0))

	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestInterpretationAPI(t *testing.T) {
	srv, in := testServer(t)
	h := srv.setupHandler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/interpretation", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st board.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Loading)
	assert.Nil(t, st.Interpretation)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/interpretation/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Interpretation)
	assert.Equal(t, "整体运行平稳", st.Interpretation.Summary)
	assert.Equal(t, 1, in.calls)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/interpretation", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "整体运行平稳", st.Interpretation.Summary)
}

func TestStatic(t *testing.T) {
	srv, _ := testServer(t)

	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/static/dashboard.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), "/api/ws")

	srv.webCacheDuration = time.Hour
	w = httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/static/dashboard.css", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebsocket(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.setupHandler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	msg := readMessage(t, conn)
	assert.Equal(t, "init", msg.Type)
	assert.Nil(t, msg.Data.Interpretation)
	assert.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 5*time.Millisecond)

	_, err = srv.board.Refresh(context.Background())
	require.NoError(t, err)

	// intermediate states may be coalesced, the last one must be the result
	var prev uint64
	for {
		msg = readMessage(t, conn)
		assert.Equal(t, "update", msg.Type)
		assert.Greater(t, msg.Data.Version, prev)
		prev = msg.Data.Version
		if !msg.Data.Loading {
			break
		}
	}
	require.NotNil(t, msg.Data.Interpretation)
	assert.Equal(t, "整体运行平稳", msg.Data.Interpretation.Summary)

	conn.Close()
	assert.Eventually(t, func() bool { return srv.hub.count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	srv, _ := testServer(t)
	w := httptest.NewRecorder()
	srv.setupHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRun(t *testing.T) {
	srv, _ := testServer(t)
	srv.listenAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, "bad", http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	b, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"bad"}`, string(b))
}

func TestDashboardScriptLoadingClearsLists(t *testing.T) {
	b, err := webFS.ReadFile("web/static/dashboard.js")
	require.NoError(t, err)
	js := string(b)

	start := strings.Index(js, "if (loading) {")
	require.NotEqual(t, -1, start)
	end := strings.Index(js[start:], "return;")
	require.NotEqual(t, -1, end)
	branch := js[start : start+end]

	assert.Contains(t, branch, "summary.textContent = loadingText;")
	assert.Contains(t, branch, "fill(causes, []);")
	assert.Contains(t, branch, "fill(recommendations, []);")
}
