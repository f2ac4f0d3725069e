package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"tickerpane/internal/models"
)

func webhookServer(t *testing.T, hits *atomic.Int32, lastBody *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		lastBody.Store(payload)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMoveAlerter_FiresOnceAndRearms(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value
	srv := webhookServer(t, &hits, &lastBody)
	defer srv.Close()

	alerter := NewMoveAlerter(NewSender(srv.URL, "ticker-test"), 5.0)

	up6 := []models.Quote{{Symbol: "AAPL", Price: 106, PrevClose: 100}}
	calm := []models.Quote{{Symbol: "AAPL", Price: 102, PrevClose: 100}}

	alerter.CheckQuotes(up6)
	if hits.Load() != 1 {
		t.Fatalf("expected 1 alert, got %d", hits.Load())
	}

	// Still over threshold: no repeat.
	alerter.CheckQuotes(up6)
	if hits.Load() != 1 {
		t.Fatalf("expected no repeat alert, got %d", hits.Load())
	}

	// Back under threshold re-arms, next crossing fires again.
	alerter.CheckQuotes(calm)
	alerter.CheckQuotes(up6)
	if hits.Load() != 2 {
		t.Fatalf("expected re-armed alert, got %d", hits.Load())
	}

	payload := lastBody.Load().(map[string]string)
	if !strings.Contains(payload["text"], "AAPL up 6.00%") {
		t.Fatalf("unexpected message %q", payload["text"])
	}
}

func TestMoveAlerter_DownMove(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value
	srv := webhookServer(t, &hits, &lastBody)
	defer srv.Close()

	alerter := NewMoveAlerter(NewSender(srv.URL, "ticker-test"), 5.0)
	alerter.CheckQuotes([]models.Quote{{Symbol: "AAPL", Price: 94, PrevClose: 100}})

	if hits.Load() != 1 {
		t.Fatalf("expected alert on -6%%, got %d", hits.Load())
	}
	payload := lastBody.Load().(map[string]string)
	if !strings.Contains(payload["text"], "AAPL down 6.00%") {
		t.Fatalf("unexpected message %q", payload["text"])
	}
}

func TestMoveAlerter_UnderThreshold(t *testing.T) {
	var hits atomic.Int32
	var lastBody atomic.Value
	srv := webhookServer(t, &hits, &lastBody)
	defer srv.Close()

	alerter := NewMoveAlerter(NewSender(srv.URL, "ticker-test"), 5.0)
	alerter.CheckQuotes([]models.Quote{{Symbol: "AAPL", Price: 104, PrevClose: 100}})

	if hits.Load() != 0 {
		t.Fatalf("expected no alert under threshold, got %d", hits.Load())
	}
}

func TestMoveAlerter_Disabled(t *testing.T) {
	var nilAlerter *MoveAlerter
	if nilAlerter.Enabled() {
		t.Fatal("nil alerter should report disabled")
	}
	// Must not panic.
	nilAlerter.CheckQuotes([]models.Quote{{Symbol: "AAPL", Price: 200, PrevClose: 100}})

	zero := NewMoveAlerter(NewSender("", ""), 0)
	if zero.Enabled() {
		t.Fatal("zero threshold should report disabled")
	}
}

func TestSender_DiscordPayload(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		got.Store(payload)
	}))
	defer srv.Close()

	// The URL shape picks the payload format.
	s := NewSender(srv.URL+"/discord/api/webhooks/x", "ticker-test")
	s.Send("hello")

	payload := got.Load().(map[string]string)
	if payload["content"] == "" {
		t.Fatalf("expected discord content field, got %v", payload)
	}
	if payload["username"] != "ticker-test" {
		t.Fatalf("unexpected username %q", payload["username"])
	}
}

func TestSender_DisabledWithoutURL(t *testing.T) {
	s := NewSender("", "")
	if s.Enabled() {
		t.Fatal("sender without URL should report disabled")
	}
	// Logs locally, no panic, no network.
	s.Send("local only")
}
