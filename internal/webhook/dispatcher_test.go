package webhook

import (
	"context"
	"crypto/hmac"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oscarh/taskwatch/internal/task"
)

func sampleEvent() Event {
	snap := task.NewSnapshot(task.Task{ID: "t1", Text: "Buy milk", Completed: true}, time.Now())
	return NewEvent("sub-1", EventTaskCompleted, EventData{Task: &snap}, time.Now())
}

func TestSendSignsAndDelivers(t *testing.T) {
	const secret = "s3cret"

	var gotBody []byte
	var gotSig, gotEvent, gotTimestamp, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(HeaderSignature)
		gotEvent = r.Header.Get(HeaderEvent)
		gotTimestamp = r.Header.Get(HeaderTimestamp)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	ev := sampleEvent()
	res := d.Send(context.Background(), Endpoint{URL: srv.URL, Secret: secret}, ev)

	if !res.Delivered {
		t.Fatalf("delivery failed: %+v", res)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotEvent != string(EventTaskCompleted) {
		t.Errorf("event header = %q, want %q", gotEvent, EventTaskCompleted)
	}
	if gotTimestamp == "" {
		t.Error("timestamp header missing")
	}

	// Receiver contract: recompute the HMAC over the raw body and compare.
	if !strings.HasPrefix(gotSig, "sha256=") {
		t.Fatalf("signature header = %q, want sha256= prefix", gotSig)
	}
	want := Sign(secret, gotBody)
	got := strings.TrimPrefix(gotSig, "sha256=")
	if !hmac.Equal([]byte(got), []byte(want)) {
		t.Errorf("signature mismatch: header %s, recomputed %s", got, want)
	}
}

func TestSendFilteredEventIsSkippedSuccess(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	ep := Endpoint{
		URL:    srv.URL,
		Secret: "s",
		Events: []EventType{EventTaskCompleted},
	}

	d := NewDispatcher()
	ev := sampleEvent()
	ev.Type = EventTaskUpdated

	res := d.Send(context.Background(), ep, ev)

	if called {
		t.Error("filtered event must not reach the endpoint")
	}
	if !res.Skipped {
		t.Error("filtered event should report Skipped")
	}
	if res.Detail != "" {
		t.Errorf("skip is not an error, got detail %q", res.Detail)
	}
}

func TestSendAllowListAdmitsMatchingType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ep := Endpoint{
		URL:    srv.URL,
		Secret: "s",
		Events: []EventType{EventTaskCompleted, EventTaskScheduled},
	}

	d := NewDispatcher()
	res := d.Send(context.Background(), ep, sampleEvent())

	if !res.Delivered {
		t.Errorf("allowed event should be delivered: %+v", res)
	}
}

func TestSendNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	d := NewDispatcher()
	res := d.Send(context.Background(), Endpoint{URL: srv.URL, Secret: "s"}, sampleEvent())

	if res.Delivered {
		t.Error("non-2xx should not count as delivered")
	}
	if res.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", res.StatusCode)
	}
	if !strings.Contains(res.Detail, "upstream exploded") {
		t.Errorf("Detail = %q, want response body detail", res.Detail)
	}
	if res.Duration <= 0 {
		t.Error("failure result should include elapsed duration")
	}
}

func TestSendDetailTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	d := NewDispatcher()
	res := d.Send(context.Background(), Endpoint{URL: srv.URL, Secret: "s"}, sampleEvent())

	if len(res.Detail) > maxErrorDetail+3 {
		t.Errorf("Detail length = %d, want <= %d", len(res.Detail), maxErrorDetail+3)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewDispatcher()
	ep := Endpoint{URL: srv.URL, Secret: "s", Timeout: 20 * time.Millisecond}
	res := d.Send(context.Background(), ep, sampleEvent())

	if res.Delivered {
		t.Error("timed-out delivery should fail")
	}
	if res.Detail == "" {
		t.Error("timeout failure should carry detail")
	}
}

func TestSendTransportError(t *testing.T) {
	d := NewDispatcher()
	// Closed port; connection refused.
	res := d.Send(context.Background(), Endpoint{URL: "http://127.0.0.1:1", Secret: "s"}, sampleEvent())

	if res.Delivered || res.Skipped {
		t.Errorf("transport error should be a plain failure: %+v", res)
	}
}

func TestEndpointAllows(t *testing.T) {
	tests := []struct {
		name   string
		events []EventType
		typ    EventType
		want   bool
	}{
		{"empty filter allows all", nil, EventTaskDeleted, true},
		{"match", []EventType{EventTaskCompleted}, EventTaskCompleted, true},
		{"no match", []EventType{EventTaskCompleted}, EventTaskUpdated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := Endpoint{Events: tt.events}
			if got := ep.Allows(tt.typ); got != tt.want {
				t.Errorf("Allows(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2025, 1, 15, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	ev := NewEvent("sub-1", EventTaskCreated, EventData{}, at)

	if ev.ID == "" {
		t.Error("event ID should be set")
	}
	if ev.SubscriberID != "sub-1" {
		t.Errorf("SubscriberID = %q", ev.SubscriberID)
	}
	if ev.Timestamp.Location() != time.UTC {
		t.Error("event timestamps should be UTC")
	}

	other := NewEvent("sub-1", EventTaskCreated, EventData{}, at)
	if other.ID == ev.ID {
		t.Error("event IDs should be unique")
	}
}
