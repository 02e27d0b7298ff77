// Package notify delivers guest notifications. Delivery is at-least-once per
// call; the dispatch ledger decides whether a call happens at all.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrRejected marks a message the transport will never accept. Callers should
// not retry it.
var ErrRejected = errors.New("notification rejected")

type Message struct {
	Kind      string         `json:"kind"`
	Recipient string         `json:"recipient"`
	Payload   map[string]any `json:"payload"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log. It backs local runs without a broker.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.With(zap.String("sender", "log"))}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if msg.Recipient == "" {
		return ErrRejected
	}
	s.log.Info("Notification sent",
		zap.String("kind", msg.Kind),
		zap.String("recipient", msg.Recipient),
		zap.Any("payload", msg.Payload),
	)
	return nil
}
