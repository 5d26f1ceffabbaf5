package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lnup/eventscout/internal/retry"
)

func geminiTextResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
}

func TestGeminiProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v1beta/models/gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected key query param, got %q", r.URL.Query().Get("key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Tools) != 1 {
			t.Errorf("expected web-search tool enabled, got %d tools", len(req.Tools))
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "Passau") {
			t.Error("expected prompt to mention the city")
		}

		_ = json.NewEncoder(w).Encode(geminiTextResponse(`[{"title":"Event"}]`))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}

	text, err := p.Generate(context.Background(), BuildPrompt("Passau", "2026-09-01", 14))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if text != `[{"title":"Event"}]` {
		t.Errorf("unexpected text %q", text)
	}
}

func TestGeminiProvider_Generate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p, _ := NewGeminiProvider(Config{APIKey: "k", BaseURL: server.URL})
	_, err := p.Generate(context.Background(), "prompt")
	if !retry.IsRateLimited(err) {
		t.Fatalf("expected RateLimited error, got %v", err)
	}
}

func TestGeminiProvider_Generate_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	p, _ := NewGeminiProvider(Config{APIKey: "k", BaseURL: server.URL})
	_, err := p.Generate(context.Background(), "prompt")
	var provErr *retry.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", provErr.Status)
	}
}

func TestGeminiProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiProvider(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewProvider_EmptyDisables(t *testing.T) {
	p, err := NewProvider(Config{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("empty provider must disable discovery, got (%v, %v)", p, err)
	}

	if _, err := NewProvider(Config{Provider: "unbekannt"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
