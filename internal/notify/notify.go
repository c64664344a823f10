// Package notify is the delivery boundary for patron-facing messages.
// The engine composes the full message and fires it here; delivery is
// best-effort and a failure never rolls back the state transition that
// produced the message.
package notify

import (
	"context"
	"sync"

	applog "github.com/Tejas56934/LibraryManagementSystem/internal/log"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Notifier interface {
	Notify(ctx context.Context, patronID string, channel Channel, message string) error
}

// EmailLog delivers by appending to the structured log, standing in for a
// real mail/SMS gateway. It never fails.
type EmailLog struct{}

func (EmailLog) Notify(_ context.Context, patronID string, channel Channel, message string) error {
	applog.BgInfo("notify.deliver", map[string]any{
		"patron_id": patronID,
		"channel":   string(channel),
		"message":   message,
	})
	return nil
}

// Recorder captures notifications for tests. Err, when set, is returned
// from every Notify call to simulate an unavailable channel.
type Recorder struct {
	mu   sync.Mutex
	Err  error
	sent []Sent
}

type Sent struct {
	PatronID string
	Channel  Channel
	Message  string
}

func (r *Recorder) Notify(_ context.Context, patronID string, channel Channel, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{PatronID: patronID, Channel: channel, Message: message})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}
