package dispatch

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrWebhookRejected marks a 4xx response; retrying the same payload cannot
// succeed, so delivery stops immediately.
var ErrWebhookRejected = errors.New("dispatch: webhook rejected")

// WebhookDispatcher delivers messages as signed JSON POSTs with bounded
// retries. Signatures follow the timestamp-bound HMAC-SHA256 scheme so
// receivers can verify authenticity and reject replays.
type WebhookDispatcher struct {
	url        string
	secret     string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// WebhookOption configures a WebhookDispatcher.
type WebhookOption func(*WebhookDispatcher)

// WithWebhookClient overrides the HTTP client.
func WithWebhookClient(client *http.Client) WebhookOption {
	return func(d *WebhookDispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithWebhookRetries sets the retry count after the first attempt.
func WithWebhookRetries(n int) WebhookOption {
	return func(d *WebhookDispatcher) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithWebhookBackoff sets the base delay between attempts; attempt n waits
// n times the base.
func WithWebhookBackoff(base time.Duration) WebhookOption {
	return func(d *WebhookDispatcher) {
		if base > 0 {
			d.backoff = base
		}
	}
}

// NewWebhookDispatcher creates a webhook channel for alert delivery.
// Panics on missing URL or secret to fail fast during initialization.
func NewWebhookDispatcher(url, secret string, opts ...WebhookOption) *WebhookDispatcher {
	if url == "" {
		panic("dispatch: webhook URL is required")
	}
	if secret == "" {
		panic("dispatch: webhook secret is required")
	}
	d := &WebhookDispatcher{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: 3,
		backoff:    time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("dispatch: encode webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * d.backoff):
			}
		}

		err := d.attempt(ctx, msg, payload)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrWebhookRejected) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, d.maxRetries+1, lastErr)
}

func (d *WebhookDispatcher) attempt(ctx context.Context, msg Message, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	timestamp := d.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", msg.ID.String())
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Webhook-Signature", sign(d.secret, timestamp, payload))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection returns to the pool.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	default:
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
}

// sign binds the signature to the timestamp so receivers can bound replay
// windows. Format: HMAC-SHA256(secret, "<unix>.<payload>") hex-encoded.
func sign(secret string, timestamp int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature lets receivers validate a delivery. The timestamp header
// value and raw body must match what was signed; maxAge bounds replays.
func VerifySignature(secret string, timestamp int64, payload []byte, signature string, maxAge time.Duration) error {
	if maxAge > 0 && time.Since(time.Unix(timestamp, 0)) > maxAge {
		return fmt.Errorf("%w: signature timestamp too old", ErrWebhookRejected)
	}
	expected := sign(secret, timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrWebhookRejected)
	}
	return nil
}
