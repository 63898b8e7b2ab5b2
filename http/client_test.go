package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yever/Paket/resilience"
)

func TestDoSetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewClient(nil)
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
}

func TestDoWithRetryRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(&Config{
		Timeout: 5 * time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  2,
		},
	})

	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := client.DoWithRetry(context.Background(), req)
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
}

func TestDoWithRetryDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(nil)
	req, _ := http.NewRequest("GET", server.URL, nil)
	resp, err := client.DoWithRetry(context.Background(), req)
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	defer resp.Body.Close()

	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 (404 is not retriable)", calls.Load())
	}
}

func TestProxyProviderIsConsulted(t *testing.T) {
	var consulted atomic.Bool
	client := NewClient(&Config{
		Timeout: time.Second,
		Proxy: func(req *http.Request) (*url.URL, error) {
			consulted.Store(true)
			return nil, nil // direct connection
		},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if !consulted.Load() {
		t.Error("proxy provider was not consulted")
	}
}

func TestBreakerRejectsAfterRepeatedServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(&Config{
		Timeout:     time.Second,
		RetryConfig: &RetryConfig{MaxRetries: 0, InitialBackoff: time.Millisecond, BackoffFactor: 1},
		Breaker:     resilience.NewFeedBreaker(resilience.Config{MaxFailures: 2, CoolDown: time.Hour}),
	})

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}

	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Error("expected circuit breaker rejection after repeated 500s")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"900", 300 * time.Second},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.input); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
