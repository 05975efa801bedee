package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchParsesOpenGraph(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="Geometry Set">
			<meta property="og:image" content="https://cdn.example.com/set.jpg">
			<meta property="product:price:amount" content="12.50">
		</head><body></body></html>`))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(2*time.Second, nil)
	p, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Title != "Geometry Set" || p.Image != "https://cdn.example.com/set.jpg" || p.Price != "12.50" {
		t.Fatalf("unexpected preview: %+v", p)
	}
}

func TestFetchFallsBackToDocumentTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title> Plain Page </title></head><body></body></html>`))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(2*time.Second, nil)
	p, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Title != "Plain Page" {
		t.Fatalf("unexpected title: %q", p.Title)
	}
}

func TestFetchBlockedOnErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(2*time.Second, nil)
	if _, err := f.Fetch(context.Background(), ts.URL); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestFetchTimesOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	f := NewHTTPFetcher(100*time.Millisecond, nil)
	start := time.Now()
	_, err := f.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout was not bounded")
	}
}

func TestFetchParseErrorWithoutMetadata(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "html"}`))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(2*time.Second, nil)
	if _, err := f.Fetch(context.Background(), ts.URL); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestFetchUnreachableHostIsBlocked(t *testing.T) {
	f := NewHTTPFetcher(500*time.Millisecond, nil)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	if !errors.Is(err, ErrBlocked) && !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected typed failure, got %v", err)
	}
}
