package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oscarh/taskwatch/internal/logging"
)

// Delivery headers. The receiver recomputes the HMAC over the raw body and
// compares it against X-Webhook-Signature.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"

	signaturePrefix = "sha256="

	// DefaultTimeout bounds a single delivery when the endpoint does not
	// configure one.
	DefaultTimeout = 10 * time.Second

	// maxErrorDetail caps how much of an error response is kept around.
	maxErrorDetail = 256
)

// Endpoint is one subscriber's delivery configuration.
type Endpoint struct {
	URL    string
	Secret string
	// Events is an allow-list; when non-empty, events of other types are
	// skipped without being sent.
	Events  []EventType
	Timeout time.Duration
}

// Allows reports whether the endpoint's filter admits the event type.
func (e Endpoint) Allows(typ EventType) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, allowed := range e.Events {
		if allowed == typ {
			return true
		}
	}
	return false
}

// Result records the outcome of one delivery attempt.
type Result struct {
	// Delivered is true when the endpoint acknowledged with a 2xx.
	Delivered bool
	// Skipped is true when the event type was filtered out; a skip is a
	// success, not an error.
	Skipped    bool
	StatusCode int
	Duration   time.Duration
	// Detail holds a truncated response body or transport error on failure.
	Detail string
}

// Dispatcher signs and delivers events. Delivery is fire-and-forget per
// cycle: there is no internal retry, a lost delivery is remedied only when
// the underlying task changes again.
type Dispatcher struct {
	client *http.Client
	log    *logging.Logger
}

// NewDispatcher returns a Dispatcher. Per-delivery timeouts come from the
// endpoint, not the shared client.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client: &http.Client{},
		log:    logging.Get(),
	}
}

// Send serializes, signs, and POSTs the event to the endpoint. Any non-2xx
// response or transport failure is a delivery failure; it is logged and
// reported in the result, never returned as an error, so one failed delivery
// cannot abort the caller's cycle.
func (d *Dispatcher) Send(ctx context.Context, ep Endpoint, ev Event) Result {
	if !ep.Allows(ev.Type) {
		return Result{Skipped: true}
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return Result{Detail: fmt.Sprintf("marshal event: %v", err)}
	}

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signaturePrefix+Sign(ep.Secret, body))
	req.Header.Set(HeaderEvent, string(ev.Type))
	req.Header.Set(HeaderTimestamp, ev.Timestamp.Format(time.RFC3339))

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		detail := truncate(err.Error(), maxErrorDetail)
		d.log.WithFields(map[string]interface{}{
			"event":       ev.Type,
			"url":         ep.URL,
			"duration_ms": elapsed.Milliseconds(),
		}).Warnf("webhook delivery failed: %s", detail)
		return Result{Duration: elapsed, Detail: detail}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		detail := truncate(string(raw), maxErrorDetail)
		d.log.WithFields(map[string]interface{}{
			"event":       ev.Type,
			"url":         ep.URL,
			"status":      resp.StatusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Warnf("webhook delivery rejected: %s", detail)
		return Result{StatusCode: resp.StatusCode, Duration: elapsed, Detail: detail}
	}

	return Result{Delivered: true, StatusCode: resp.StatusCode, Duration: elapsed}
}

// Sign computes the hex HMAC-SHA256 of body under the given secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
