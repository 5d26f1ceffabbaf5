package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_Check_ValidPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/event":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Pub Quiz im Adler</title></head><body>ok</body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewChecker("eventscout-test", 5*time.Second)
	if err := c.Check(context.Background(), server.URL+"/event"); err != nil {
		t.Fatalf("expected valid page to verify, got %v", err)
	}
}

func TestChecker_Check_DeadLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewChecker("eventscout-test", 5*time.Second)
	if err := c.Check(context.Background(), server.URL+"/gone"); err == nil {
		t.Fatal("expected dead link to fail verification")
	}
}

func TestChecker_Check_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Geheim</title></head></html>`))
		}
	}))
	defer server.Close()

	c := NewChecker("eventscout-test", 5*time.Second)
	if err := c.Check(context.Background(), server.URL+"/private/event"); err == nil {
		t.Fatal("expected robots.txt disallow to fail verification")
	}
	if err := c.Check(context.Background(), server.URL+"/public/event"); err != nil {
		t.Fatalf("expected allowed path to verify, got %v", err)
	}
}

func TestChecker_Check_UntitledPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>kein titel</body></html>`))
	}))
	defer server.Close()

	c := NewChecker("eventscout-test", 5*time.Second)
	if err := c.Check(context.Background(), server.URL+"/x"); err == nil {
		t.Fatal("expected untitled page to fail verification")
	}
}

func TestChecker_Check_RejectsNonHTTP(t *testing.T) {
	c := NewChecker("eventscout-test", time.Second)
	if err := c.Check(context.Background(), "ftp://example.com/x"); err == nil {
		t.Fatal("expected non-http URL to be rejected")
	}
}

func TestPageTitle(t *testing.T) {
	body := []byte(`<!doctype html><html><head><title>  Flohmarkt  </title></head></html>`)
	if got := pageTitle(body); got != "Flohmarkt" {
		t.Errorf("pageTitle = %q, want %q", got, "Flohmarkt")
	}
	if got := pageTitle([]byte("plain text")); got != "" {
		t.Errorf("expected empty title for non-html, got %q", got)
	}
}
