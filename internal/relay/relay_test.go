package relay

import (
	"context"
	"sync"
)

// fakePoster implements Poster and IdentityResolver for testing.
type fakePoster struct {
	mu    sync.Mutex
	posts []Message
	err   error
	botID string
}

func (f *fakePoster) Post(_ context.Context, msg Message) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, msg)
	if f.err != nil {
		return Receipt{}, f.err
	}
	return Receipt{Channel: msg.Channel, Timestamp: "1700000000.000100"}, nil
}

func (f *fakePoster) BotUserID(context.Context) (string, error) {
	return f.botID, f.err
}

func (f *fakePoster) sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.posts...)
}
