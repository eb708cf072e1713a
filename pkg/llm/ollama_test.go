package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Model != "llama3:8b" {
			t.Errorf("expected model llama3:8b, got %q", req.Model)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "  a reply  ", Done: true})
	}))
	defer srv.Close()

	client, err := NewOllama(WithHost(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	reply, err := client.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "a reply" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
}

func TestOllamaGenerateHTTPErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model crashed"))
	}))
	defer srv.Close()

	client, err := NewOllama(WithHost(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	_, err = client.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apiErr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("HTTP errors must not be retried, got %d calls", got)
	}
}

func TestOllamaGenerateReconnectsOnce(t *testing.T) {
	// A server that is down: connection refused is a transient network
	// failure, so exactly one reconnect attempt happens, then ErrUnavailable.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the port refuses connections

	client, err := NewOllama(WithHost(srv.URL), WithReconnectDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	_, err = client.Generate(context.Background(), "hello")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestOllamaGenerateModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Error: "model not found"})
	}))
	defer srv.Close()

	client, err := NewOllama(WithHost(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if _, err := client.Generate(context.Background(), "hello"); err == nil {
		t.Error("expected error for model error response")
	}
}

func TestOllamaHealth(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tags" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			w.Write([]byte(`{"models":[]}`))
		}))
		defer srv.Close()

		client, err := NewOllama(WithHost(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		if err := client.Health(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client, err := NewOllama(WithHost(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		if err := client.Health(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestNewOllamaValidation(t *testing.T) {
	if _, err := NewOllama(WithModel("")); !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
}
