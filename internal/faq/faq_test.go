package faq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "goldflow/config"
)

func testResponder() *Responder {
	return NewResponder(&appconfig.ChatbotConfig{ContactLink: "https://example.com/contact"})
}

func TestLocalAnswerKeyMatch(t *testing.T) {
	r := testResponder()

	got := r.LocalAnswer("What is arbitrage trading?")
	if !strings.Contains(got, "price differences") {
		t.Errorf("unexpected answer: %q", got)
	}

	// containment works in both directions
	if r.LocalAnswer("arbitrage trading") != got {
		t.Errorf("partial question should hit the same entry")
	}
}

func TestLocalAnswerKeywordFallback(t *testing.T) {
	r := testResponder()

	got := r.LocalAnswer("Is this safe for beginners?")
	if !strings.Contains(got, "directional risk") {
		t.Errorf("expected risk answer, got %q", got)
	}

	got = r.LocalAnswer("how do I CONTACT you")
	if !strings.Contains(got, "https://example.com/contact") {
		t.Errorf("expected contact answer, got %q", got)
	}
}

func TestLocalAnswerGenericFallback(t *testing.T) {
	r := testResponder()

	for _, q := range []string{"", "   ", "what's the weather like"} {
		got := r.LocalAnswer(q)
		if !strings.Contains(got, "https://example.com/contact") {
			t.Errorf("%q: fallback should carry the contact link, got %q", q, got)
		}
	}
}

func TestAnswerUsesRemoteWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"remote answer"}}]}`))
	}))
	defer srv.Close()

	r := NewResponder(&appconfig.ChatbotConfig{
		Enabled:       true,
		CompletionURL: srv.URL,
		Model:         "test-model",
		Timeout:       time.Second,
		ContactLink:   "https://example.com/contact",
	})

	if got := r.Answer(context.Background(), "anything"); got != "remote answer" {
		t.Errorf("got %q, want remote answer", got)
	}
}

func TestAnswerFallsBackOnRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResponder(&appconfig.ChatbotConfig{
		Enabled:       true,
		CompletionURL: srv.URL,
		Model:         "test-model",
		Timeout:       time.Second,
		ContactLink:   "https://example.com/contact",
	})

	got := r.Answer(context.Background(), "is arbitrage risky?")
	if !strings.Contains(got, "directional risk") {
		t.Errorf("expected canned risk answer, got %q", got)
	}
}
