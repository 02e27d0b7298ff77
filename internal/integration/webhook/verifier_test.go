package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifier(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	v := NewVerifier("whsec_test", 5*time.Minute)
	v.now = func() time.Time { return now }
	payload := []byte(`{"id":"evt_1","kind":"payment_intent.succeeded","intent_id":"pi_1"}`)

	tests := []struct {
		name    string
		payload []byte
		header  string
		want    error
	}{
		{"valid", payload, v.Header(now, payload), nil},
		{"valid within tolerance", payload, v.Header(now.Add(-4*time.Minute), payload), nil},
		{"second signature matches", payload, fmt.Sprintf("t=%d,v1=deadbeef,%s", now.Unix(), v.Header(now, payload)[len(fmt.Sprintf("t=%d,", now.Unix())):]), nil},
		{"missing header", payload, "", ErrMissingSignature},
		{"no v1", payload, fmt.Sprintf("t=%d", now.Unix()), ErrMissingSignature},
		{"stale", payload, v.Header(now.Add(-6*time.Minute), payload), ErrStaleSignature},
		{"future", payload, v.Header(now.Add(6*time.Minute), payload), ErrStaleSignature},
		{"tampered body", append([]byte(" "), payload...), v.Header(now, payload), ErrBadSignature},
		{"wrong secret", payload, NewVerifier("other", 0).Header(now, payload), ErrBadSignature},
		{"bad timestamp", payload, "t=abc,v1=00", ErrBadSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.payload, tt.header)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_RejectsEverythingWithoutSecret(t *testing.T) {
	v := NewVerifier("", time.Minute)
	payload := []byte(`{"kind":"payment_intent.succeeded","intent_id":"pi_1"}`)

	assert.False(t, v.Enabled())
	assert.ErrorIs(t, v.Verify(payload, ""), ErrNotConfigured)
	// a header signed with the empty key must not pass either
	assert.ErrorIs(t, v.Verify(payload, v.Header(time.Now(), payload)), ErrNotConfigured)
}
