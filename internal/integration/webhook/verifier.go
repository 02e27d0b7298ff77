// Package webhook authenticates processor deliveries before they reach the core.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac>".
const SignatureHeader = "Processor-Signature"

var (
	// ErrNotConfigured rejects every delivery while no signing secret is set.
	ErrNotConfigured    = errors.New("webhook signing secret not configured")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrStaleSignature   = errors.New("webhook signature outside tolerance")
)

type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier returns a verifier for secret. With an empty secret nothing verifies.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

func (v *Verifier) Enabled() bool { return len(v.secret) > 0 }

func (v *Verifier) Verify(payload []byte, header string) error {
	if !v.Enabled() {
		return ErrNotConfigured
	}
	if header == "" {
		return ErrMissingSignature
	}

	var (
		ts     int64
		sigs   []string
		parsed bool
	)
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
			}
			ts, parsed = n, true
		case "v1":
			sigs = append(sigs, val)
		}
	}
	if !parsed || len(sigs) == 0 {
		return ErrMissingSignature
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return ErrStaleSignature
		}
	}

	expected := v.sign(ts, payload)
	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err == nil && hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrBadSignature
}

// Header builds a signature header for payload at ts.
func (v *Verifier) Header(ts time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(v.sign(ts.Unix(), payload)))
}

func (v *Verifier) sign(ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
