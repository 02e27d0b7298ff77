package entity

import (
	"encoding/json"
	"fmt"
)

// Processor event kinds understood by reconciliation.
const (
	EventKindPaymentSucceeded = "payment_intent.succeeded"
	EventKindPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentEvent is a closed set: PaymentSucceeded, PaymentFailed or
// UnknownPaymentEvent. Consumers switch on the concrete type.
type PaymentEvent interface {
	Kind() string
	isPaymentEvent()
}

type PaymentSucceeded struct {
	EventID  string
	IntentID string
}

type PaymentFailed struct {
	EventID  string
	IntentID string
	Reason   string
}

// UnknownPaymentEvent keeps unrecognized kinds so they can be acknowledged.
type UnknownPaymentEvent struct {
	EventID string
	RawKind string
}

func (PaymentSucceeded) Kind() string      { return EventKindPaymentSucceeded }
func (PaymentFailed) Kind() string         { return EventKindPaymentFailed }
func (e UnknownPaymentEvent) Kind() string { return e.RawKind }

func (PaymentSucceeded) isPaymentEvent()    {}
func (PaymentFailed) isPaymentEvent()       {}
func (UnknownPaymentEvent) isPaymentEvent() {}

type paymentEventEnvelope struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	IntentID string `json:"intent_id"`
	Payload  struct {
		FailureMessage string `json:"failure_message"`
	} `json:"payload"`
}

// DecodePaymentEvent parses an already-verified processor delivery.
func DecodePaymentEvent(raw []byte) (PaymentEvent, error) {
	var env paymentEventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode payment event: %w", err)
	}

	switch env.Kind {
	case EventKindPaymentSucceeded:
		if env.IntentID == "" {
			return nil, fmt.Errorf("decode payment event %s: missing intent_id", env.ID)
		}
		return PaymentSucceeded{EventID: env.ID, IntentID: env.IntentID}, nil
	case EventKindPaymentFailed:
		if env.IntentID == "" {
			return nil, fmt.Errorf("decode payment event %s: missing intent_id", env.ID)
		}
		return PaymentFailed{EventID: env.ID, IntentID: env.IntentID, Reason: env.Payload.FailureMessage}, nil
	default:
		return UnknownPaymentEvent{EventID: env.ID, RawKind: env.Kind}, nil
	}
}
