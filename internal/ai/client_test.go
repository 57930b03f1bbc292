package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *ipv4Server {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
}

func TestGenerateRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	// Ask server to instruct a 1-second Retry-After, then succeed.
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okBody)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 5*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 900*time.Millisecond { // allow some scheduling variance
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	// Server returns 400 with X-Request-Id header
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 10*time.Millisecond, 50*time.Millisecond, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: []Message{{Role: "user", Content: "hi"}}, MaxTokens: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestGenerateSendsJSONModeAndHeaders(t *testing.T) {
	var got map[string]any
	var title string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "{}"}}}})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 1, 0, 0, srv.URL)
	resp, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}, JSON: true})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content() != "{}" {
		t.Fatalf("unexpected content %q", resp.Content())
	}
	rf, ok := got["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Fatalf("expected json_object response_format, got %v", got["response_format"])
	}
	if got["model"] != "m" {
		t.Fatalf("expected model to be forwarded, got %v", got["model"])
	}
	if title != "datafix" {
		t.Fatalf("unexpected X-Title %q", title)
	}
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	srv := testServerSequence(t, []int{503, 503, 200}, nil, GenerateResponse{})
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 2, time.Millisecond, 5*time.Millisecond, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError after exhausting retries, got %T %v", err, err)
	}
}

func TestGenerateBackoffHonorsContext(t *testing.T) {
	srv := testServerSequence(t, []int{429}, []http.Header{{"Retry-After": {"5"}}}, nil)
	defer srv.Close()

	c := NewClientWithBaseURL("test", 2*time.Second, 3, 0, 0, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("backoff ignored context cancellation")
	}
}

func TestClassifiedErrors(t *testing.T) {
	for status, check := range map[int]func(error) bool{
		http.StatusUnauthorized: func(err error) bool { var e *AuthError; return errors.As(err, &e) },
		http.StatusBadRequest:   func(err error) bool { var e *BadRequestError; return errors.As(err, &e) },
	} {
		srv := testServerSequence(t, []int{status}, nil, nil)
		c := NewClientWithBaseURL("test", 2*time.Second, 3, time.Millisecond, time.Millisecond, srv.URL)
		_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
		srv.Close()
		if !check(err) {
			t.Fatalf("status %d: unexpected error type %T %v", status, err, err)
		}
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := NewClient("", time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestHint(t *testing.T) {
	cases := []struct {
		err      error
		provider string
		want     string
	}{
		{&UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, ProviderOllama, "Ollama not reachable"},
		{&AuthError{APIError: &APIError{StatusCode: 401}}, ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{&RateLimitError{APIError: &APIError{StatusCode: 429}, RetryAfter: 3 * time.Second}, ProviderOpenRouter, "~3s"},
		{&ModelNotFoundError{APIError: &APIError{StatusCode: 404}}, ProviderOllama, "ollama pull m"},
		{errors.New("boom"), ProviderOpenRouter, "generation failed"},
	}
	for _, tc := range cases {
		got := Hint(tc.err, tc.provider, "m")
		if got == nil || !strings.Contains(got.Error(), tc.want) {
			t.Fatalf("Hint(%v) = %v, want substring %q", tc.err, got, tc.want)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("Hint should wrap the original error")
		}
	}
	if Hint(nil, ProviderOllama, "m") != nil {
		t.Fatalf("Hint(nil) should be nil")
	}
}

func TestModelCatalog(t *testing.T) {
	if ContextWindow("openai/gpt-4o-mini") != 128000 {
		t.Fatalf("unexpected context window")
	}
	if ContextWindow("unknown/model") != DefaultContextTokens {
		t.Fatalf("unknown models should use the default window")
	}
	if _, ok := EstimateCostUSD("unknown/model", 10, 10); ok {
		t.Fatalf("unknown model should not be priced")
	}

	path := filepath.Join(t.TempDir(), "models.yaml")
	data := "custom/model:\n  context_tokens: 4000\n  input_per_k: 1\n  output_per_k: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if m["custom/model"].Name != "custom/model" {
		t.Fatalf("name should default to the key, got %+v", m["custom/model"])
	}
	MergeCatalog(m)
	defer delete(models, "custom/model")
	cost, ok := EstimateCostUSD("custom/model", 1000, 500)
	if !ok || cost != 2 {
		t.Fatalf("unexpected cost %v %v", cost, ok)
	}
	cat := Catalog()
	found := false
	for i, mi := range cat {
		if i > 0 && cat[i-1].Name > mi.Name {
			t.Fatalf("catalog not sorted at %s", mi.Name)
		}
		found = found || mi.Name == "custom/model"
	}
	if !found {
		t.Fatalf("merged model missing from catalog")
	}
}
