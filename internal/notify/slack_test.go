package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hamed0406/dnsoptimizer/internal/domain"
)

func appliedEvent() Event {
	return Event{
		Kind:         KindApplied,
		At:           time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Best:         &domain.ProbeResult{Label: "Quad9", Address: "9.9.9.9", Latency: domain.Latency(12 * time.Millisecond)},
		Previous:     domain.Snapshot{Address: "192.168.1.1"},
		Confirmation: domain.Snapshot{Address: "9.9.9.9"},
	}
}

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	if err := s.Notify(context.Background(), appliedEvent()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if !strings.HasPrefix(got, "*🟢 Resolver changed*") {
		t.Fatalf("payload not as expected: %q", got)
	}
	if !strings.Contains(got, "Selected: Quad9 (9.9.9.9, 12ms)") {
		t.Fatalf("selection missing: %q", got)
	}
}

func TestSlack_SkipsTestRounds(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()

	if err := NewSlack(ts.URL).Notify(context.Background(), Event{Kind: KindTestDone}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("test rounds should not be posted")
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	if err := NewSlack(ts.URL).Notify(context.Background(), appliedEvent()); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestNewSlack_EmptyWebhook(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatal("want nil notifier for empty webhook")
	}
}

func TestSlack_NilIsSilent(t *testing.T) {
	var s *Slack
	if err := s.Notify(context.Background(), appliedEvent()); err != nil {
		t.Fatalf("nil slack should behave like Nop, got %v", err)
	}
	if err := (Multi{NewSlack("")}).Notify(context.Background(), appliedEvent()); err != nil {
		t.Fatalf("disabled slack inside Multi reported %v", err)
	}
}
