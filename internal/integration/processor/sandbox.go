package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Sandbox issues local intents without a network call. Requests that repeat an
// idempotency key get the original intent back, like a real processor.
type Sandbox struct {
	mu    sync.Mutex
	byKey map[string]*Intent
}

func NewSandbox() *Sandbox {
	return &Sandbox{byKey: make(map[string]*Intent)}
}

func (s *Sandbox) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrRejected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.IdempotencyKey != "" {
		if intent, ok := s.byKey[req.IdempotencyKey]; ok {
			return intent, nil
		}
	}

	id := "pi_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Status:       "requires_payment_method",
	}
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = intent
	}
	return intent, nil
}
