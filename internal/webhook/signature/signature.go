// Package signature verifies standard-webhooks HMAC signatures on Polar
// deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/solvance/cashier-polar/internal/clock"
	"github.com/solvance/cashier-polar/internal/config"
	"go.uber.org/fx"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

var (
	ErrMissingSecret     = errors.New("missing_webhook_secret")
	ErrMissingHeaders    = errors.New("missing_signature_headers")
	ErrInvalidTimestamp  = errors.New("invalid_signature_timestamp")
	ErrTimestampTooOld   = errors.New("signature_timestamp_out_of_tolerance")
	ErrSignatureMismatch = errors.New("signature_mismatch")
)

type Params struct {
	fx.In

	Holder *config.WebhookConfigHolder
	Clock  clock.Clock
}

// Verifier checks each delivery against the currently configured secret, so
// a rotated secret takes effect without restart.
type Verifier struct {
	holder *config.WebhookConfigHolder
	clock  clock.Clock
}

func New(p Params) *Verifier {
	return &Verifier{
		holder: p.Holder,
		clock:  p.Clock,
	}
}

// Verify checks the signed message `{id}.{timestamp}.{body}` against every
// v1 candidate in the signature header. Any failure is reported as an
// error; it never panics on malformed input.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	cfg := v.holder.Get()
	secret, err := secretBytes(cfg)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(header.Get(HeaderID))
	timestamp := strings.TrimSpace(header.Get(HeaderTimestamp))
	signatures := strings.TrimSpace(header.Get(HeaderSignature))
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	if cfg.Tolerance > 0 {
		skew := v.clock.Now().Unix() - unix
		if skew < 0 {
			skew = -skew
		}
		if skew > int64(cfg.Tolerance.Seconds()) {
			return ErrTimestampTooOld
		}
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signatures) {
		version, value, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(value), []byte(expected)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

func secretBytes(cfg config.WebhookConfig) ([]byte, error) {
	raw := strings.TrimSpace(cfg.Secret)
	if raw == "" {
		return nil, ErrMissingSecret
	}
	if !cfg.SecretBase64 {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) == 0 {
		return nil, ErrMissingSecret
	}
	return decoded, nil
}
