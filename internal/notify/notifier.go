package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Notifier delivers a user-facing message on some channel.
type Notifier interface {
	Publish(ctx context.Context, userID, message string) error
}

// LogNotifier writes notifications to the log. It stands in wherever a
// push channel is not configured.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(ctx context.Context, userID, message string) error {
	n.log.Infow("notification", "user_id", userID, "message", message)
	return nil
}

// Message is one recorded publish.
type Message struct {
	UserID string
	Text   string
}

// Recorder keeps every published message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(ctx context.Context, userID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{UserID: userID, Text: message})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message{}, r.messages...)
}
