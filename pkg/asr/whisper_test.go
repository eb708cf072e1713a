package asr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewWhisperRequiresEndpoint(t *testing.T) {
	_, err := NewWhisper()
	if !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "small" {
			t.Errorf("expected model=small, got %q", got)
		}
		if got := r.FormValue("compute_type"); got != "int8" {
			t.Errorf("expected compute_type=int8, got %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing audio file: %v", err)
		} else {
			file.Close()
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello there  "})
	}))
	defer srv.Close()

	rec, err := NewWhisper(WithEndpoint(srv.URL), WithModel("small"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	text, err := rec.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello there" {
		t.Errorf("expected trimmed transcript, got %q", text)
	}
}

func TestWhisperTranscribeJoinsSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"text": "",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.2, "text": " first part"},
				{"start": 1.2, "end": 2.0, "text": "second part "},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	rec, err := NewWhisper(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	text, err := rec.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "first part second part" {
		t.Errorf("expected joined segments, got %q", text)
	}
}

func TestWhisperTranscribeSilenceIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer srv.Close()

	rec, err := NewWhisper(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	text, err := rec.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("silence must not be an error, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty transcript, got %q", text)
	}
}

func TestWhisperTranscribeDecoderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model load failed"}`))
	}))
	defer srv.Close()

	rec, err := NewWhisper(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	_, err = rec.Transcribe(context.Background(), []byte("RIFFfake"))
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("expected ErrDecodeFailed, got %v", err)
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("expected ProviderError wrapping, got %T", err)
	}
}

func TestWhisperHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	rec, err := NewWhisper(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rec.Close()

	// A 405 still proves the server is reachable.
	if err := rec.Health(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
