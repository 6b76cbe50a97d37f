package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ziadkadry99/form-relay/internal/config"
	"github.com/ziadkadry99/form-relay/internal/logging"
	"github.com/ziadkadry99/form-relay/internal/relay"
	"github.com/ziadkadry99/form-relay/internal/server"
)

type recordingPoster struct {
	mu    sync.Mutex
	posts []relay.Message
}

func (p *recordingPoster) Post(_ context.Context, msg relay.Message) (relay.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, msg)
	return relay.Receipt{Channel: msg.Channel, Timestamp: "1.1"}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Slack.BotToken = "xoxb-test"
	cfg.Callbacks.AcceptURL = "https://relay.example.com/accept-action"
	cfg.Callbacks.RejectURL = "https://relay.example.com/reject-action"
	cfg.Channels.Approval = "#forms"
	cfg.Channels.Decision = "#decisions"
	return cfg
}

func TestRegisterRelayRoutes(t *testing.T) {
	cfg := testConfig()
	logger := logging.Discard()
	srv := server.New(server.Config{Port: cfg.Server.Port}, logger)
	poster := &recordingPoster{}

	registerRelayRoutes(context.Background(), srv, cfg, nil, poster, "UBOT", logger)

	send := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		return w.Code
	}

	if code := send("/receive-messages", `{"answer":42}`); code != http.StatusOK {
		t.Errorf("/receive-messages: status %d", code)
	}
	if code := send("/slack-interaction", `{"user":{"name":"bob"},"actions":[{"value":"reject"}]}`); code != http.StatusOK {
		t.Errorf("/slack-interaction: status %d", code)
	}

	if len(poster.posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(poster.posts))
	}
	if poster.posts[0].Channel != "#forms" {
		t.Errorf("form went to %q, want #forms", poster.posts[0].Channel)
	}
	if poster.posts[1].Channel != "#decisions" || poster.posts[1].Text != "bob rejects" {
		t.Errorf("decision = %q to %q", poster.posts[1].Text, poster.posts[1].Channel)
	}
}

func TestRegisterRelayRoutesMirrorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Mirror.Enabled = false
	logger := logging.Discard()
	srv := server.New(server.Config{}, logger)
	poster := &recordingPoster{}

	registerRelayRoutes(context.Background(), srv, cfg, nil, poster, "UBOT", logger)

	body := `{"type":"event_callback","event":{"type":"message","channel":"C1","user":"U1","text":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(poster.posts) != 0 {
		t.Errorf("expected no mirror posts when disabled, got %d", len(poster.posts))
	}
}
