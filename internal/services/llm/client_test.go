package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sheetlingo/internal/services"
)

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"ok":true}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "```json\n{\"ok\":true}\n```",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func completionServer(t *testing.T, content string, capture func(chatRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if capture != nil {
			capture(req)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": content,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func TestClientTranslate(t *testing.T) {
	var captured chatRequest
	server := completionServer(t, `{"translation":" लाल सूती शर्ट "}`, func(req chatRequest) {
		captured = req
	})
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Translate(context.Background(), "Red cotton __BRAND_0__ shirt", "en", "hi", "marketing")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "लाल सूती शर्ट" {
		t.Fatalf("Translate = %q", got)
	}
	if captured.Model != "demo-model" || len(captured.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", captured)
	}
	system := captured.Messages[0].Content
	if !strings.Contains(system, "Hindi (hi)") || !strings.Contains(system, "English (en)") {
		t.Fatalf("system prompt missing languages: %q", system)
	}
	if !strings.Contains(system, tonePresets["marketing"]) {
		t.Fatalf("system prompt missing tone line: %q", system)
	}
	var user struct {
		Text   string `json:"text"`
		Target string `json:"target_language"`
	}
	if err := json.Unmarshal([]byte(captured.Messages[1].Content), &user); err != nil {
		t.Fatalf("user prompt is not JSON: %v", err)
	}
	if user.Text != "Red cotton __BRAND_0__ shirt" || user.Target != "hi" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestClientTranslateCustomTonePassesThrough(t *testing.T) {
	var captured chatRequest
	server := completionServer(t, `{"translation":"ok"}`, func(req chatRequest) { captured = req })
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if _, err := client.Translate(context.Background(), "Hello", "", "fr", "like a pirate"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(captured.Messages[0].Content, "like a pirate") {
		t.Fatalf("custom tone not forwarded: %q", captured.Messages[0].Content)
	}
}

func TestClientTranslateUnwrapsReplies(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"code fence", "```json\n{\"translation\":\"Bonjour\"}\n```", "Bonjour"},
		{"prose around object", "Sure! {\"translation\":\"Hola\"} Hope this helps.", "Hola"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := completionServer(t, tt.content, nil)
			defer server.Close()
			client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
			got, err := client.Translate(context.Background(), "Hello", "en", "fr", "")
			if err != nil || got != tt.want {
				t.Fatalf("Translate = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestClientTranslateBlankTextSkipsRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "   ", "en", "hi", "")
	if err != nil || got != "   " {
		t.Fatalf("Translate blank = %q, %v", got, err)
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestClientTranslateErrorsCarryMarkers(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Translate(context.Background(), "Hello", "en", "hi", "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing key: expected ErrConfiguration, got %v", err)
	}

	missing := completionServer(t, `{"text":"nope"}`, nil)
	defer missing.Close()
	client = NewClient(Config{APIKey: "test", BaseURL: missing.URL})
	_, err = client.Translate(context.Background(), "Hello", "en", "hi", "")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("missing field: expected ErrExternalService, got %v", err)
	}

	var calls int
	badRequest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer badRequest.Close()
	client = NewClient(Config{APIKey: "test", BaseURL: badRequest.URL}, WithSleeper(func(time.Duration) {}))
	_, err = client.Translate(context.Background(), "Hello", "en", "hi", "")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("http 400: expected ErrExternalService, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("http 400 should not be retried, got %d calls", calls)
	}
}

func TestClientTranslateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Translate(ctx, "Hello", "en", "hi", "")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if services.Kind(err) != "timeout" {
		t.Fatalf("Kind = %q", services.Kind(err))
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"translation":"नमस्ते"}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	got, err := client.Translate(context.Background(), "Hello", "en", "hi", "")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "नमस्ते" {
		t.Fatalf("Translate = %q", got)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"translation":"Hallo"}`
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content": content,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	got, err := client.Translate(context.Background(), "Hello", "en", "de", "")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Hallo" {
		t.Fatalf("Translate = %q", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestToneInstruction(t *testing.T) {
	if ToneInstruction("") != tonePresets["neutral"] {
		t.Fatal("empty tone should use neutral preset")
	}
	if ToneInstruction(" FORMAL ") != tonePresets["formal"] {
		t.Fatal("preset lookup should ignore case and spaces")
	}
	if got := ToneInstruction("playful but brief"); !strings.Contains(got, "playful but brief") {
		t.Fatalf("custom tone not passed through: %q", got)
	}
	if len(Tones()) != 6 || !IsPresetTone("technical") || IsPresetTone("pirate") {
		t.Fatalf("unexpected presets: %v", Tones())
	}
}

func TestToneLabel(t *testing.T) {
	tests := map[string]string{
		"":                  "Neutral",
		" MARKETING ":       "Marketing",
		"playful but brief": `custom: "playful but brief"`,
	}
	for tone, want := range tests {
		if got := ToneLabel(tone); got != want {
			t.Errorf("ToneLabel(%q) = %q, want %q", tone, got, want)
		}
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := retryPolicy{attempts: 6, base: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	if got := (retryPolicy{max: time.Second}).backoff(3); got != 0 {
		t.Errorf("zero base backoff = %s, want 0", got)
	}
}

func TestRetryPolicyNext(t *testing.T) {
	p := retryPolicy{attempts: 3, base: time.Second, max: 10 * time.Second}
	ctx := context.Background()
	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
		again   bool
	}{
		{"server error", &statusError{Code: http.StatusBadGateway}, 1, time.Second, true},
		{"retry after wins", &statusError{Code: http.StatusTooManyRequests, RetryAfter: 30 * time.Second}, 1, 10 * time.Second, true},
		{"client error is final", &statusError{Code: http.StatusUnauthorized}, 1, 0, false},
		{"empty reply", &emptyReplyError{}, 2, 2 * time.Second, true},
		{"attempts exhausted", &emptyReplyError{}, 3, 0, false},
		{"deadline", context.DeadlineExceeded, 1, 0, false},
		{"plain error", errors.New("decode response"), 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, again := p.next(ctx, tt.err, tt.attempt)
			if got != tt.want || again != tt.again {
				t.Fatalf("next = %s, %v; want %s, %v", got, again, tt.want, tt.again)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Fatalf("seconds = %s", got)
	}
	if got := parseRetryAfter("-1"); got != 0 {
		t.Fatalf("negative = %s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("garbage = %s", got)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 50*time.Minute {
		t.Fatalf("http date = %s", got)
	}
}
