package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkarlsen/shopchat/pkg/config"
)

func TestClient_AskWithoutKeyFailsCleanly(t *testing.T) {
	c := NewClient(config.PerplexityConfig{})

	_, err := c.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClient_AskParsesContentAndSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "sonar-small" {
			t.Errorf("model = %v", req["model"])
		}
		w.Write([]byte(`{
			"choices": [{"message": {"content": "Budget microphones under $30 exist."}}],
			"sources": [{"title": "guide", "url": "https://example.com"}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(config.PerplexityConfig{APIKey: "test-key", APIBase: srv.URL})

	ans, err := c.Ask(context.Background(), "cheap microphones?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Content != "Budget microphones under $30 exist." {
		t.Errorf("content = %q", ans.Content)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].URL != "https://example.com" {
		t.Errorf("sources = %+v", ans.Sources)
	}
}

func TestClient_AskNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.PerplexityConfig{APIKey: "test-key", APIBase: srv.URL})
	if _, err := c.Ask(context.Background(), "hi"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
