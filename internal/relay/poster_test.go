package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/form-relay/internal/audit"
	"github.com/ziadkadry99/form-relay/internal/db"
	"github.com/ziadkadry99/form-relay/internal/logging"
)

// fakeSlack is a minimal Slack Web API.
type fakeSlack struct {
	mu       sync.Mutex
	calls    []map[string]string
	postResp string
	status   int
	userID   string
}

func (f *fakeSlack) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		call := map[string]string{
			"channel":     r.FormValue("channel"),
			"text":        r.FormValue("text"),
			"attachments": r.FormValue("attachments"),
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if f.postResp != "" {
			w.Write([]byte(f.postResp))
			return
		}
		w.Write([]byte(`{"ok":true,"channel":"C0GENERAL","ts":"1700000000.000200"}`))
	})
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"url":     "https://example.slack.com/",
			"team":    "Example",
			"user":    "formrelay",
			"team_id": "T1",
			"user_id": f.userID,
		})
	})
	return mux
}

func newFakeSlack(t *testing.T, f *fakeSlack) *SlackPoster {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewSlackPoster(NewSlackClient(ClientOptions{
		BotToken: "xoxb-test",
		APIURL:   srv.URL,
		Timeout:  2 * time.Second,
	}))
}

func TestSlackPosterPost(t *testing.T) {
	f := &fakeSlack{}
	p := newFakeSlack(t, f)

	msg, err := BuildNotification([]byte(`{"q":"a"}`), testIngressConfig)
	if err != nil {
		t.Fatalf("BuildNotification: %v", err)
	}
	receipt, err := p.Post(context.Background(), msg)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if receipt.Channel != "C0GENERAL" || receipt.Timestamp != "1700000000.000200" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	if len(f.calls) != 1 {
		t.Fatalf("expected 1 API call, got %d", len(f.calls))
	}
	call := f.calls[0]
	if call["channel"] != "#general" {
		t.Errorf("channel = %q, want #general", call["channel"])
	}
	if call["text"] != NotificationHeader {
		t.Errorf("text = %q, want %q", call["text"], NotificationHeader)
	}

	var atts []struct {
		Fallback   string `json:"fallback"`
		Text       string `json:"text"`
		CallbackID string `json:"callback_id"`
		Actions    []struct {
			Name  string `json:"name"`
			Text  string `json:"text"`
			Type  string `json:"type"`
			Value string `json:"value"`
			URL   string `json:"url"`
		} `json:"actions"`
	}
	if err := json.Unmarshal([]byte(call["attachments"]), &atts); err != nil {
		t.Fatalf("attachments are not JSON: %v (%q)", err, call["attachments"])
	}
	if len(atts) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(atts))
	}
	if atts[0].CallbackID != DecisionCallbackID || atts[0].Fallback != NotificationFallback {
		t.Errorf("unexpected attachment: %+v", atts[0])
	}
	if atts[0].Text != "```{\n  \"q\": \"a\"\n}```" {
		t.Errorf("attachment text = %q", atts[0].Text)
	}
	if len(atts[0].Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(atts[0].Actions))
	}
	accept := atts[0].Actions[0]
	if accept.Name != "accept" || accept.Text != "Accept" || accept.Type != "button" || accept.Value != "accept" || accept.URL != testIngressConfig.AcceptURL {
		t.Errorf("unexpected accept action: %+v", accept)
	}
	if atts[0].Actions[1].URL != testIngressConfig.RejectURL {
		t.Errorf("reject url = %q", atts[0].Actions[1].URL)
	}
}

func TestSlackPosterRejected(t *testing.T) {
	p := newFakeSlack(t, &fakeSlack{postResp: `{"ok":false,"error":"channel_not_found"}`})

	_, err := p.Post(context.Background(), Message{Channel: "#nope", Text: "hi"})
	if err == nil {
		t.Fatal("expected error for ok:false")
	}
	if !IsRejected(err) {
		t.Errorf("expected ok:false to count as rejected, got %v", err)
	}
}

func TestSlackPosterHTTPError(t *testing.T) {
	p := newFakeSlack(t, &fakeSlack{status: http.StatusInternalServerError})

	_, err := p.Post(context.Background(), Message{Channel: "#general", Text: "hi"})
	if !IsRejected(err) {
		t.Errorf("expected HTTP 500 to count as rejected, got %v", err)
	}
}

func TestSlackPosterTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewSlackPoster(NewSlackClient(ClientOptions{BotToken: "xoxb-test", APIURL: url, Timeout: time.Second}))
	_, err := p.Post(context.Background(), Message{Channel: "#general", Text: "hi"})
	if err == nil {
		t.Fatal("expected error when the API is unreachable")
	}
	if IsRejected(err) {
		t.Errorf("unreachable API should not count as rejected: %v", err)
	}
}

func TestResolveBotIdentity(t *testing.T) {
	p := newFakeSlack(t, &fakeSlack{userID: "UBOT42"})

	id, err := ResolveBotIdentity(context.Background(), p)
	if err != nil {
		t.Fatalf("ResolveBotIdentity: %v", err)
	}
	if id != "UBOT42" {
		t.Errorf("id = %q, want UBOT42", id)
	}
}

func TestResolveBotIdentityEmpty(t *testing.T) {
	if _, err := ResolveBotIdentity(context.Background(), &fakePoster{}); err == nil {
		t.Error("expected error for empty bot id")
	}
	if _, err := ResolveBotIdentity(context.Background(), &fakePoster{err: errors.New("boom")}); err == nil {
		t.Error("expected error when auth.test fails")
	}
}

func TestIsRejectedNil(t *testing.T) {
	if IsRejected(nil) {
		t.Error("nil error should not be rejected")
	}
}

func TestAuditedPoster(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := audit.NewStore(database)
	ctx := context.Background()

	ok := NewAuditedPoster(&fakePoster{}, store, logging.Discard())
	if _, err := ok.Post(ctx, Message{Channel: "#bots", Text: "alice accepts", Kind: audit.KindDecision, Actor: "alice"}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	failing := NewAuditedPoster(&fakePoster{err: errors.New("timeout")}, store, logging.Discard())
	if _, err := failing.Post(ctx, Message{Channel: "C1", Text: "hi", Kind: audit.KindMirror, Actor: "U1"}); err == nil {
		t.Fatal("expected error to pass through")
	}

	entries, err := store.Query(ctx, audit.QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 records, got %d", len(entries))
	}

	byKind := map[audit.Kind]audit.Entry{}
	for _, e := range entries {
		byKind[e.Kind] = e
	}
	if d := byKind[audit.KindDecision]; d.Outcome != audit.OutcomeDelivered || d.Actor != "alice" || d.MessageTS == "" {
		t.Errorf("unexpected decision record: %+v", d)
	}
	if m := byKind[audit.KindMirror]; m.Outcome != audit.OutcomeFailed || m.Error != "timeout" {
		t.Errorf("unexpected mirror record: %+v", m)
	}
}
