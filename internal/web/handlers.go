package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/eventsink/internal/notify"
	"github.com/go-chi/chi/v5"
)

// maxEventBody is the maximum allowed request body size (1MB).
// Events are small maps of scalars; anything larger is a mistake.
const maxEventBody = 1 << 20

// healthCheckTimeout bounds the connection pings in /healthz.
const healthCheckTimeout = 5 * time.Second

// handleNotify dispatches a notification event to a channel.
//
// The event payload can arrive as a JSON object, a form-encoded body, or
// multipart form fields. Multipart file parts become attachments, which
// channels reject; the handler still parses them so the caller gets the
// proper error instead of a parse failure.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if channel == "" {
		respondBadRequest(w, "Channel name is required.", "POST to /api/notify/{channel}.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)

	event, attachments, err := parseEventRequest(r)
	if err != nil {
		respondBadRequest(w,
			"Could not parse the event payload: "+err.Error(),
			"Send scalar values as a JSON object, form fields, or multipart fields.")
		return
	}

	opts := notify.DispatchOptions{
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}

	rec, err := s.service.Dispatch(r.Context(), channel, event, attachments, opts)
	if err != nil {
		status := dispatchStatus(err)
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "5")
		}
		s.respondError(w, r, err, status)
		return
	}

	writeJSON(w, rec)
}

// parseEventRequest extracts the event and any attachments from the
// request body based on its content type. An absent or JSON content type
// is decoded as a JSON object.
func parseEventRequest(r *http.Request) (notify.Event, []notify.Attachment, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType := contentType
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid content type %q", contentType)
		}
		mediaType = parsed
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return eventFromMultipart(r)
	case mediaType == "application/x-www-form-urlencoded":
		return eventFromForm(r)
	default:
		event, err := eventFromJSON(r.Body)
		return event, nil, err
	}
}

// eventFromJSON decodes a flat JSON object into an event.
// Numbers keep their source text via json.Number, so float values reach
// the coercion layer without binary rounding.
func eventFromJSON(body io.Reader) (notify.Event, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	event := make(notify.Event, len(raw))
	for name, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		event[name] = s
	}
	return event, nil
}

// scalarString renders a decoded JSON value as event text.
// Objects and arrays have no event representation and are rejected.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("value must be a scalar, got %T", v)
	}
}

func eventFromForm(r *http.Request) (notify.Event, []notify.Attachment, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("parse form: %w", err)
	}

	event := make(notify.Event, len(r.PostForm))
	for name, values := range r.PostForm {
		event[name] = values[0]
	}
	return event, nil, nil
}

func eventFromMultipart(r *http.Request) (notify.Event, []notify.Attachment, error) {
	if err := r.ParseMultipartForm(maxEventBody); err != nil {
		return nil, nil, fmt.Errorf("parse multipart form: %w", err)
	}

	event := make(notify.Event, len(r.MultipartForm.Value))
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			event[name] = values[0]
		}
	}

	// File parts are rejected downstream; the name alone produces the
	// error without buffering the upload.
	var attachments []notify.Attachment
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			attachments = append(attachments, notify.Attachment{Name: fh.Filename})
		}
	}
	return event, attachments, nil
}

// channelSummary is the JSON shape for a registered channel.
type channelSummary struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Connection string `json:"connection,omitempty"`
	Logger     string `json:"logger,omitempty"`
	Table      string `json:"table,omitempty"`
	Command    string `json:"command,omitempty"`
	Fields     int    `json:"fields,omitempty"`
}

func summarize(ch notify.Channel) channelSummary {
	cs := channelSummary{Name: ch.Name, Kind: string(ch.Kind)}
	switch ch.Kind {
	case notify.KindSQL:
		cs.Connection = ch.Connection
		cs.Table = ch.Spec.Table
		cs.Command = ch.Spec.Kind.String()
		cs.Fields = len(ch.Spec.Fields)
	case notify.KindLog:
		cs.Logger = ch.Logger
	}
	return cs
}

// handleListChannels returns all registered channels.
func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	all := notify.All()
	out := make([]channelSummary, len(all))
	for i, ch := range all {
		out[i] = summarize(ch)
	}

	writeJSON(w, map[string]any{
		"channels": out,
		"count":    len(out),
	})
}

type fieldView struct {
	Column   string `json:"column"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
	Template string `json:"template"`
}

type channelDetail struct {
	channelSummary
	Mappings []fieldView `json:"mappings,omitempty"`
}

// handleChannelDetail returns one channel including its field mappings.
func (s *Server) handleChannelDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "channel")

	ch, ok := notify.Get(name)
	if !ok {
		s.respondError(w, r, notify.ErrChannelNotFound, http.StatusNotFound)
		return
	}

	detail := channelDetail{channelSummary: summarize(ch)}
	for _, f := range ch.Spec.Fields {
		detail.Mappings = append(detail.Mappings, fieldView{
			Column:   f.Name,
			Type:     f.Tag.String(),
			Nullable: f.Nullable,
			Template: f.Template,
		})
	}

	writeJSON(w, detail)
}

// handleDispatches returns recent dispatch records plus lifetime counters.
// The limit query parameter caps the record count (default 50).
func (s *Server) handleDispatches(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)

	writeJSON(w, map[string]any{
		"stats":  s.service.Stats(),
		"recent": s.service.Recent(limit),
	})
}

// handleQueueStatus returns the current state of the dispatch limiter.
// Used for monitoring and to check if the system can accept more dispatches.
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

// connectionHealth is the per-connection result in the health response.
type connectionHealth struct {
	Connection string `json:"connection"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// handleHealth pings every database connection that supports pinging.
// Returns 200 when all respond, 503 when any fail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	healthy := true
	conns := make([]connectionHealth, 0, len(s.set.Connections))
	for name, exec := range s.set.Connections {
		h := connectionHealth{Connection: name, OK: true}
		if pinger, ok := exec.(notify.Pinger); ok {
			if err := pinger.Ping(ctx); err != nil {
				h.OK = false
				h.Error = err.Error()
				healthy = false
			}
		}
		conns = append(conns, h)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Connection < conns[j].Connection })

	state := "ok"
	status := http.StatusOK
	if !healthy {
		state = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSONStatus(w, status, map[string]any{
		"status":      state,
		"channels":    notify.Count(),
		"connections": conns,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
