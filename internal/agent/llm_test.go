package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testMessages() []Message {
	return []Message{
		{Role: "system", Content: "You are a test."},
		{Role: "user", Content: "Say hi."},
	}
}

func TestLLMClientStringContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello there"}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	got, err := c.Chat(context.Background(), testMessages(), 0.2)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "hello there" {
		t.Fatalf("Chat() = %q, want %q", got, "hello there")
	}
}

func TestLLMClientPartListContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"part one"},{"type":"text","text":"part two"}]}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{BaseURL: srv.URL, Model: "test-model"})
	got, err := c.Chat(context.Background(), testMessages(), 0)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "part one\npart two" {
		t.Fatalf("Chat() = %q, want joined parts", got)
	}
}

func TestLLMClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"recovered"}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{BaseURL: srv.URL, Model: "test-model", MaxRetries: 3, Timeout: 5 * time.Second})
	got, err := c.Chat(context.Background(), testMessages(), 0)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got != "recovered" {
		t.Fatalf("Chat() = %q, want %q", got, "recovered")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("server calls = %d, want 2", n)
	}
}

func TestLLMClientClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{BaseURL: srv.URL, Model: "test-model", MaxRetries: 3})
	_, err := c.Chat(context.Background(), testMessages(), 0)
	if !errors.Is(err, ErrLLM) {
		t.Fatalf("Chat() error = %v, want ErrLLM", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server calls = %d, want 1 (no retry on 401)", n)
	}
}

func TestLLMClientBaseURLNormalization(t *testing.T) {
	c := NewLLMClient(LLMConfig{BaseURL: "https://openrouter.ai/api/v1/", Model: "m"})
	if c.cfg.BaseURL != "https://openrouter.ai/api/v1/chat/completions" {
		t.Fatalf("BaseURL = %q, want chat/completions suffix", c.cfg.BaseURL)
	}
	c = NewLLMClient(LLMConfig{BaseURL: "https://host/api/chat/completions", Model: "m"})
	if c.cfg.BaseURL != "https://host/api/chat/completions" {
		t.Fatalf("BaseURL = %q, want unchanged", c.cfg.BaseURL)
	}
}
