package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/packcredits/backend/pkg/config"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
)

// Verifier validates that an inbound webhook payload originates from the
// payment provider. Implementations are pure: no side effects, no retries.
type Verifier interface {
	Verify(payload []byte, header string) error
}

// HMACVerifier implements the gateway's timestamped HMAC-SHA256 scheme.
//
// The signature header has the form "t=<unix seconds>,v1=<hex digest>" where
// the digest covers "<t>.<payload>". The timestamp bounds replay of captured
// deliveries; the shared secret is injected at construction, never read from
// ambient process state.
type HMACVerifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewHMACVerifier builds a verifier from gateway configuration.
func NewHMACVerifier(cfg config.GatewayConfig) (*HMACVerifier, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	maxSkew := cfg.SignatureMaxSkew
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	return &HMACVerifier{
		secret:  []byte(cfg.WebhookSecret),
		maxSkew: maxSkew,
		now:     time.Now,
	}, nil
}

// Verify checks the signature header against the payload. Any failure is a
// terminal rejection for the delivery attempt.
func (v *HMACVerifier) Verify(payload []byte, header string) error {
	ts, digest, err := parseHeader(header)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid signature header")
	}

	issued := time.Unix(ts, 0)
	skew := v.now().Sub(issued)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature timestamp outside tolerance")
	}

	expected := v.sign(ts, payload)
	provided, err := hex.DecodeString(digest)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "malformed signature digest")
	}
	if !hmac.Equal(expected, provided) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "signature mismatch")
	}
	return nil
}

func (v *HMACVerifier) sign(ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Sign produces a header value for the given payload. Exposed for tests and
// for the local webhook replay tooling.
func (v *HMACVerifier) Sign(payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(v.sign(ts, payload)))
}

func parseHeader(header string) (int64, string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, "", fmt.Errorf("signature header missing")
	}

	var ts int64
	var digest string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid timestamp %q", kv[1])
			}
			ts = parsed
		case "v1":
			digest = kv[1]
		}
	}
	if ts == 0 || digest == "" {
		return 0, "", fmt.Errorf("signature header incomplete")
	}
	return ts, digest, nil
}
