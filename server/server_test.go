package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/messages"
	"github.com/room4-2/dinedialog/session"
)

var testClassifier = dialog.ClassifierFunc(func(_ context.Context, u string) (dialog.Act, error) {
	if strings.EqualFold(u, "bye") {
		return dialog.ActBye, nil
	}
	return dialog.ActInform, nil
})

var testExtractor = dialog.ExtractorFunc(func(u string, _ dialog.Slot) dialog.Extraction {
	var e dialog.Extraction
	for _, w := range strings.Fields(strings.ToLower(u)) {
		switch w {
		case "chinese":
			e.Food = w
		case "south":
			e.Area = w
		case "cheap":
			e.Price = w
		}
	}
	return e
})

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *session.Manager) {
	t.Helper()
	cfg := config.Default()
	cfg.RedisURL = ""
	cfg.KeepAlivePeriod = 0
	cfg.AllowedOrigins = []string{"http://allowed.test"}
	if mutate != nil {
		mutate(cfg)
	}
	cat := catalog.New([]catalog.Restaurant{
		{Name: "golden dragon", Food: "chinese", Area: "south", PriceRange: "cheap"},
	})
	m, err := session.NewManager(cfg, cat, testClassifier, testExtractor, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(cfg, m, zap.NewNop()).Handler())
	t.Cleanup(func() {
		m.Shutdown()
		srv.Close()
	})
	return srv, m
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHealth(t *testing.T) {
	srv, m := newTestServer(t, nil)
	_, err := m.CreateSession(context.Background(), "rest")
	require.NoError(t, err)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "dinedialog_sessions_active")
}

func TestREST_Conversation(t *testing.T) {
	srv, m := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created messages.CreateSessionResponse
	require.NoError(t, messages.Decode([]byte(body), &created))
	assert.Equal(t, "Welcome to the system, enter your preferences for a restaurant.", created.Prompt.Text)

	base := srv.URL + "/api/sessions/" + created.SessionID
	resp, body = do(t, http.MethodPost, base+"/utterances", `{"text":"cheap chinese food in the south"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prompt messages.PromptPayload
	require.NoError(t, messages.Decode([]byte(body), &prompt))
	assert.Equal(t, "Any other requirements?", prompt.Text)
	assert.Equal(t, "AskForFurtherRequirements", prompt.State)
	assert.Equal(t, "inform", prompt.Act)

	resp, body = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view messages.SessionView
	require.NoError(t, messages.Decode([]byte(body), &view))
	assert.Equal(t, "south", view.Preferences.Area)
	assert.Len(t, view.Transcript, 1)

	resp, body = do(t, http.MethodPost, base+"/utterances", `{"text":"bye"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, messages.Decode([]byte(body), &prompt))
	assert.True(t, prompt.Complete)
	assert.Equal(t, 0, m.GetActiveSessionCount())

	resp, _ = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestREST_Errors(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.MaxSessions = 1
		c.TurnRate = 0.001
		c.TurnBurst = 1
	})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created messages.CreateSessionResponse
	require.NoError(t, messages.Decode([]byte(body), &created))
	base := srv.URL + "/api/sessions/" + created.SessionID

	resp, body = do(t, http.MethodPost, srv.URL+"/api/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "SESSION_FAILED")

	resp, body = do(t, http.MethodPost, base+"/utterances", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "INVALID_MESSAGE")

	resp, _ = do(t, http.MethodPost, base+"/utterances", `{"text":"chinese"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, http.MethodPost, base+"/utterances", `{"text":"south"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "RATE_LIMITED")

	resp, body = do(t, http.MethodPost, srv.URL+"/api/sessions/missing/utterances", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "SESSION_NOT_FOUND")

	resp, _ = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestREST_CORS(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://allowed.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://allowed.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.test")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

type envelope struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, messages.Decode(data, &env))
	return env
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func TestWebSocket_Conversation(t *testing.T) {
	srv, m := newTestServer(t, nil)
	conn, _, err := dial(t, srv, "http://allowed.test")
	require.NoError(t, err)
	defer conn.Close()

	env := read(t, conn)
	assert.Equal(t, messages.TypeStatus, env.Type)
	assert.Equal(t, "connected", env.Payload["status"])

	env = read(t, conn)
	assert.Equal(t, messages.TypePrompt, env.Type)
	assert.Equal(t, "Welcome", env.Payload["state"])

	send(t, conn, `{"type":"utterance","payload":{"text":"cheap chinese food in the south"}}`)
	env = read(t, conn)
	assert.Equal(t, "Any other requirements?", env.Payload["text"])

	send(t, conn, `{"type":"control","payload":{"action":"ping"}}`)
	env = read(t, conn)
	assert.Equal(t, "pong", env.Payload["status"])

	send(t, conn, `not json`)
	env = read(t, conn)
	assert.Equal(t, messages.TypeError, env.Type)
	assert.Equal(t, messages.ErrCodeInvalidMessage, env.Payload["code"])

	send(t, conn, `{"type":"utterance","payload":{"text":"bye"}}`)
	env = read(t, conn)
	assert.Equal(t, true, env.Payload["complete"])
	env = read(t, conn)
	assert.Equal(t, "complete", env.Payload["status"])

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return m.GetActiveSessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_Restart(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	conn, _, err := dial(t, srv, "http://allowed.test")
	require.NoError(t, err)
	defer conn.Close()
	read(t, conn)
	read(t, conn)

	send(t, conn, `{"type":"utterance","payload":{"text":"chinese"}}`)
	env := read(t, conn)
	assert.Equal(t, "AskArea", env.Payload["state"])

	send(t, conn, `{"type":"control","payload":{"action":"restart_session"}}`)
	env = read(t, conn)
	assert.Equal(t, "restarted", env.Payload["status"])
	env = read(t, conn)
	assert.Equal(t, "Welcome", env.Payload["state"])
}

func TestWebSocket_RejectsWhenFull(t *testing.T) {
	srv, m := newTestServer(t, func(c *config.Config) { c.MaxSessions = 1 })
	_, err := m.CreateSession(context.Background(), "rest")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, "http://allowed.test")
	require.NoError(t, err)
	defer conn.Close()
	env := read(t, conn)
	assert.Equal(t, messages.TypeError, env.Type)
	assert.Equal(t, messages.ErrCodeSessionFailed, env.Payload["code"])
}

func TestWebSocket_RejectsOrigin(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	_, resp, err := dial(t, srv, "http://evil.test")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestShutdown_DrainsRequestsBeforeClosingSessions(t *testing.T) {
	cfg := config.Default()
	cfg.RedisURL = ""
	cfg.ResponseDelay = 400 * time.Millisecond
	entered := make(chan struct{}, 1)
	classifier := dialog.ClassifierFunc(func(ctx context.Context, u string) (dialog.Act, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		return testClassifier(ctx, u)
	})
	cat := catalog.New([]catalog.Restaurant{
		{Name: "golden dragon", Food: "chinese", Area: "south", PriceRange: "cheap"},
	})
	m, err := session.NewManager(cfg, cat, classifier, testExtractor, zap.NewNop())
	require.NoError(t, err)
	conv, err := m.CreateSession(context.Background(), "rest")
	require.NoError(t, err)

	s := NewServer(cfg, m, zap.NewNop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- s.httpServer.Serve(ln) }()

	type result struct {
		status int
		err    error
	}
	replied := make(chan result, 1)
	go func() {
		url := "http://" + ln.Addr().String() + "/api/sessions/" + conv.ID + "/utterances"
		resp, err := http.Post(url, "application/json", strings.NewReader(`{"text":"chinese"}`))
		if err != nil {
			replied <- result{err: err}
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		replied <- result{status: resp.StatusCode}
	}()

	<-entered
	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- s.Shutdown(ctx)
	}()

	assert.Never(t, func() bool { return m.GetActiveSessionCount() == 0 }, 200*time.Millisecond, 10*time.Millisecond,
		"session must outlive the in-flight request")

	res := <-replied
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	require.NoError(t, <-stopped)
	assert.ErrorIs(t, <-served, http.ErrServerClosed)
	assert.Equal(t, 0, m.GetActiveSessionCount())
	<-conv.Done()
}
