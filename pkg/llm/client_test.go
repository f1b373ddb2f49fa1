package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"costlens/pkg/config"
)

func testConfig(url string) *config.LLMConfig {
	return &config.LLMConfig{
		Enabled:     true,
		APIKey:      "test-key",
		BaseURL:     url,
		Model:       "test-model",
		Temperature: 0.3,
		Timeout:     5,
		MaxRetries:  2,
		RetryDelay:  0,
	}
}

func TestGenerateSendsCompletionRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"model":"test-model"`) || !strings.Contains(string(body), `"role":"system"`) {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  costs rose  "}}]}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))
	text, err := c.Generate(context.Background(), "be brief", "summarize")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "costs rose" {
		t.Errorf("expected trimmed content, got %q", text)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	text, err := NewClient(testConfig(server.URL)).Generate(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected success on third call, got %q after %d calls", text, calls)
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Generate(context.Background(), "", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "bad key" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestGenerateRetryExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Generate(context.Background(), "", "hi")
	if !errors.Is(err, ErrRetryExceeded) {
		t.Fatalf("expected ErrRetryExceeded, got %v", err)
	}
}

func TestEmptyChoicesIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Generate(context.Background(), "", "hi")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestDisabledClient(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false
	c := NewClient(cfg)
	if c.Enabled() {
		t.Fatal("client without an enabled key should be disabled")
	}
	if _, err := c.Generate(context.Background(), "", "hi"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if NewClient(nil).Enabled() {
		t.Error("nil config should produce a disabled client")
	}
}

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Enabled() bool { return true }

func (s stubGenerator) Generate(context.Context, string, string) (string, error) {
	return s.text, s.err
}

func TestGenerateOr(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		gen  Generator
		want string
	}{
		{"nil generator", nil, "fallback"},
		{"disabled client", NewClient(nil), "fallback"},
		{"failing generator", stubGenerator{err: errors.New("boom")}, "fallback"},
		{"working generator", stubGenerator{text: "generated"}, "generated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateOr(ctx, tt.gen, "sys", "user", "fallback"); got != tt.want {
				t.Errorf("GenerateOr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrDisabled, false},
		{&APIError{StatusCode: 400}, false},
		{&APIError{StatusCode: 429}, true},
		{&APIError{StatusCode: 503}, true},
		{errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
