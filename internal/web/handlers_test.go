package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/eventsink/internal/channels"
	"github.com/JonMunkholm/eventsink/internal/config"
	"github.com/JonMunkholm/eventsink/internal/notify"
	"github.com/gorilla/websocket"
)

// ------------------------------------------------------------------
// Test fixtures
// ------------------------------------------------------------------

// captureExecutor records executed commands and can be scripted to fail.
type captureExecutor struct {
	cmds    []notify.Command
	err     error
	pingErr error
}

func (e *captureExecutor) Execute(_ context.Context, cmd notify.Command) error {
	e.cmds = append(e.cmds, cmd)
	return e.err
}

func (e *captureExecutor) Ping(_ context.Context) error { return e.pingErr }

// fakeStore approves the first use of each idempotency key.
type fakeStore struct {
	seen map[string]bool
}

func (s *fakeStore) Once(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a server with one registered "alerts" channel
// backed by a capture executor.
func newTestServer(t *testing.T, store notify.IdempotencyStore, cfg *config.Config) (*Server, *captureExecutor) {
	t.Helper()
	notify.Clear()
	t.Cleanup(notify.Clear)

	exec := &captureExecutor{}
	disp, err := notify.NewDispatcher(notify.Spec{
		Table: "alerts",
		Kind:  notify.CommandInsert,
		Fields: []notify.FieldMapping{
			{Name: "device_id", Tag: notify.TagInteger, Template: "{device}"},
			{Name: "severity", Tag: notify.TagString, Template: "{severity}"},
			{Name: "reading", Tag: notify.TagFloat, Template: "{reading}", Nullable: true},
		},
	}, exec)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	notify.Register(notify.Channel{
		Name:       "alerts",
		Kind:       notify.KindSQL,
		Connection: "primary",
		Spec:       disp.Spec(),
		Notifier:   disp,
	})

	if cfg == nil {
		cfg = &config.Config{}
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = time.Minute
	}

	svc := notify.NewService(notify.ServiceConfig{HistorySize: 16}, store, discardLogger())
	set := &channels.Set{Connections: map[string]notify.Executor{"primary": exec}}
	return NewServer(svc, set, cfg), exec
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&er); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, w.Body.String())
	}
	return er
}

// ------------------------------------------------------------------
// POST /api/notify/{channel}
// ------------------------------------------------------------------

func TestNotifyJSON(t *testing.T) {
	srv, exec := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/alerts",
		`{"device": 12, "severity": "critical", "reading": 3.5}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}

	var rec notify.DispatchRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if !rec.OK {
		t.Errorf("record.OK = false, want true (error %q)", rec.Error)
	}
	if rec.Channel != "alerts" {
		t.Errorf("record.Channel = %q, want %q", rec.Channel, "alerts")
	}
	if rec.ID == "" {
		t.Error("record.ID is empty")
	}

	if len(exec.cmds) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.cmds))
	}
	cmd := exec.cmds[0]
	if cmd.Table != "alerts" || len(cmd.Assignments) != 3 {
		t.Fatalf("command = %+v, want alerts with 3 assignments", cmd)
	}
	if got, ok := cmd.Assignments[0].Value.(int64); !ok || got != 12 {
		t.Errorf("device_id value = %v, want int64(12)", cmd.Assignments[0].Value)
	}
}

func TestNotifyForm(t *testing.T) {
	srv, exec := newTestServer(t, nil, nil)

	form := url.Values{}
	form.Set("device", "7")
	form.Set("severity", "minor")
	form.Set("reading", "none")

	req := httptest.NewRequest(http.MethodPost, "/api/notify/alerts", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}
	if len(exec.cmds) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.cmds))
	}
	// The nullable reading field scrubbed "none" to NULL
	if got := exec.cmds[0].Assignments[2].Value; got != nil {
		t.Errorf("reading value = %v, want nil", got)
	}
}

func TestNotifyUnknownChannel(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/nope", `{"device": 1}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if er := decodeError(t, w); er.Code != "CH001" {
		t.Errorf("error code = %q, want %q", er.Code, "CH001")
	}
}

func TestNotifyMissingPlaceholder(t *testing.T) {
	srv, exec := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/alerts", `{"device": 1, "severity": "low"}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
	if er := decodeError(t, w); er.Code != "TPL001" {
		t.Errorf("error code = %q, want %q", er.Code, "TPL001")
	}
	if len(exec.cmds) != 0 {
		t.Errorf("executor was called %d times, want 0", len(exec.cmds))
	}
}

func TestNotifyBadValue(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/alerts",
		`{"device": "twelve", "severity": "low", "reading": "1.5"}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if er := decodeError(t, w); er.Code != "COE001" {
		t.Errorf("error code = %q, want %q", er.Code, "COE001")
	}
}

func TestNotifyAttachmentRejected(t *testing.T) {
	srv, exec := newTestServer(t, nil, nil)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	mp.WriteField("device", "1")
	mp.WriteField("severity", "low")
	mp.WriteField("reading", "2.5")
	part, err := mp.CreateFormFile("file", "dump.bin")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write([]byte("payload"))
	mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/notify/alerts", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
	if er := decodeError(t, w); er.Code != "ATT001" {
		t.Errorf("error code = %q, want %q", er.Code, "ATT001")
	}
	if len(exec.cmds) != 0 {
		t.Errorf("executor was called %d times, want 0", len(exec.cmds))
	}
}

func TestNotifyNonScalarValue(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/alerts", `{"device": {"id": 1}}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if er := decodeError(t, w); er.Code != "REQ001" {
		t.Errorf("error code = %q, want %q", er.Code, "REQ001")
	}
}

func TestNotifyMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	w := postJSON(t, srv, "/api/notify/alerts", `{"device": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestNotifyIdempotencyKey(t *testing.T) {
	srv, exec := newTestServer(t, &fakeStore{}, nil)

	send := func() notify.DispatchRecord {
		req := httptest.NewRequest(http.MethodPost, "/api/notify/alerts",
			strings.NewReader(`{"device": 1, "severity": "low", "reading": "2.5"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "evt-42")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
		}
		var rec notify.DispatchRecord
		if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		return rec
	}

	first := send()
	second := send()

	if first.Duplicate {
		t.Error("first dispatch flagged as duplicate")
	}
	if !second.Duplicate {
		t.Error("second dispatch not flagged as duplicate")
	}
	if len(exec.cmds) != 1 {
		t.Errorf("executor calls = %d, want 1", len(exec.cmds))
	}
}

// ------------------------------------------------------------------
// Channel inspection
// ------------------------------------------------------------------

func TestListChannels(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Channels []channelSummary `json:"channels"`
		Count    int              `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Channels) != 1 {
		t.Fatalf("count = %d, channels = %d, want 1 each", resp.Count, len(resp.Channels))
	}
	ch := resp.Channels[0]
	if ch.Name != "alerts" || ch.Kind != "sql" || ch.Table != "alerts" || ch.Fields != 3 {
		t.Errorf("channel summary = %+v", ch)
	}
	if ch.Command != "INSERT" {
		t.Errorf("command = %q, want INSERT", ch.Command)
	}
}

func TestChannelDetail(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels/alerts", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var detail channelDetail
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(detail.Mappings) != 3 {
		t.Fatalf("mappings = %d, want 3", len(detail.Mappings))
	}
	first := detail.Mappings[0]
	if first.Column != "device_id" || first.Type != "integer" || first.Template != "{device}" {
		t.Errorf("first mapping = %+v", first)
	}
	if !detail.Mappings[2].Nullable {
		t.Error("reading mapping should be nullable")
	}
}

func TestChannelDetailNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ------------------------------------------------------------------
// Dispatch history and status
// ------------------------------------------------------------------

func TestDispatches(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	if w := postJSON(t, srv, "/api/notify/alerts",
		`{"device": 1, "severity": "low", "reading": "2.5"}`); w.Code != http.StatusOK {
		t.Fatalf("notify status = %d, want %d", w.Code, http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dispatches", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Stats  notify.Stats            `json:"stats"`
		Recent []notify.DispatchRecord `json:"recent"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats.Dispatched != 1 {
		t.Errorf("stats.Dispatched = %d, want 1", resp.Stats.Dispatched)
	}
	if len(resp.Recent) != 1 || resp.Recent[0].Channel != "alerts" {
		t.Errorf("recent = %+v, want one alerts record", resp.Recent)
	}
}

func TestQueueStatus(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var status notify.LimiterStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.MaxConcurrent != notify.DefaultMaxConcurrentDispatches {
		t.Errorf("MaxConcurrent = %d, want %d", status.MaxConcurrent, notify.DefaultMaxConcurrentDispatches)
	}
	if status.Active != 0 {
		t.Errorf("Active = %d, want 0", status.Active)
	}
}

// ------------------------------------------------------------------
// Health
// ------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv, exec := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}

	// A failing connection ping degrades the health report
	exec.pingErr = context.DeadlineExceeded
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp struct {
		Status      string             `json:"status"`
		Connections []connectionHealth `json:"connections"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
	if len(resp.Connections) != 1 || resp.Connections[0].OK {
		t.Errorf("connections = %+v, want one failing", resp.Connections)
	}
}

// ------------------------------------------------------------------
// Auth and security middleware
// ------------------------------------------------------------------

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1", "k2"}
	srv, _ := newTestServer(t, nil, cfg)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusForbidden},
		{"first key", "k1", http.StatusOK},
		{"second key", "k2", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1"}
	srv, _ := newTestServer(t, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request should be rejected")
	}
	// Other clients have their own bucket
	if !rl.allow("5.6.7.8") {
		t.Error("different IP should be allowed")
	}
}

// ------------------------------------------------------------------
// Live feed
// ------------------------------------------------------------------

func TestFeedStreamsDispatches(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial(%q) error = %v (resp %+v)", wsURL, err, resp)
	}
	defer conn.Close()

	// The handler subscribes after the handshake; give it a moment
	// before dispatching.
	time.Sleep(100 * time.Millisecond)

	if w := postJSON(t, srv, "/api/notify/alerts",
		`{"device": 1, "severity": "low", "reading": "2.5"}`); w.Code != http.StatusOK {
		t.Fatalf("notify status = %d, want %d", w.Code, http.StatusOK)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var rec notify.DispatchRecord
	if err := conn.ReadJSON(&rec); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if rec.Channel != "alerts" || !rec.OK {
		t.Errorf("streamed record = %+v, want successful alerts dispatch", rec)
	}
}
