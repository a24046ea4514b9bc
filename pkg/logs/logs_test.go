package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Alijeyrad/notifyhub/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLokiWriterPush(t *testing.T) {
	var got lokiPush
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %s, want /loki/api/v1/push", r.URL.Path)
		}
		user, pass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode push: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Logging.Output.Loki = config.LokiConfig{Enabled: true, Endpoint: srv.URL + "/", Username: "u", Password: "p"}

	lw := newLokiWriter(cfg)
	lw.now = func() time.Time { return time.Unix(0, 42) }

	line := `{"msg":"created \"quoted\""}` + "\n"
	n, err := lw.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(line) {
		t.Errorf("Write() = %d, want %d", n, len(line))
	}
	if user != "u" || pass != "p" {
		t.Errorf("basic auth = %q/%q, want u/p", user, pass)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("Expected 1 stream, got %d", len(got.Streams))
	}
	s := got.Streams[0]
	if s.Stream["service"] != "notifyhub" || s.Stream["env"] != "test" {
		t.Errorf("labels = %v", s.Stream)
	}
	if len(s.Values) != 1 || s.Values[0][0] != "42" || s.Values[0][1] != strings.TrimSpace(line) {
		t.Errorf("values = %v", s.Values)
	}
}

func TestLokiWriterRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Logging.Output.Loki.Endpoint = srv.URL
	if _, err := newLokiWriter(cfg).Write([]byte("x\n")); err == nil {
		t.Fatal("Expected error for 400 response")
	}
}

func TestMultiHandlerRespectsLevels(t *testing.T) {
	var debug, warn bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	log := slog.New(h).With(slog.String("service", "notifyhub"))

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be enabled by the first handler")
	}
	log.Info("fan-out done")
	log.Warn("duplicate event")

	if !strings.Contains(debug.String(), "fan-out done") || !strings.Contains(debug.String(), "duplicate event") {
		t.Errorf("debug handler output = %q", debug.String())
	}
	if strings.Contains(warn.String(), "fan-out done") {
		t.Errorf("warn handler got an info record: %q", warn.String())
	}
	if !strings.Contains(warn.String(), "service=notifyhub") {
		t.Errorf("warn handler lost attrs: %q", warn.String())
	}
}
