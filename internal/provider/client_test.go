package provider

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeProvider is an in-memory Provider for router/client tests.
type fakeProvider struct {
	id      string
	content string
	err     error
	calls   atomic.Int64
	failFor int64 // fail the first N calls, then succeed
}

func (f *fakeProvider) ID() string   { return f.id }
func (f *fakeProvider) Name() string { return f.id }

func (f *fakeProvider) Chat(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	n := f.calls.Add(1)
	if f.err != nil && (f.failFor == 0 || n <= f.failFor) {
		return nil, f.err
	}
	return &ChatResponse{Content: f.content}, nil
}

func (f *fakeProvider) HealthCheck(context.Context) error { return f.err }

func newTestClient(p Provider) *Client {
	router := NewRouter(zap.NewNop())
	router.Register(p)
	return NewClient(router, "morgan", "test-model", zap.NewNop()).
		WithRetries(2, time.Millisecond)
}

func TestGenerateSuccess(t *testing.T) {
	c := newTestClient(&fakeProvider{id: "ok", content: "hello world"})
	got := c.Generate(context.Background(), "say hello", nil)
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
	if IsSentinel(got) {
		t.Error("success mistaken for sentinel")
	}
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{id: "flaky", content: "recovered", err: errors.New("boom"), failFor: 2}
	c := newTestClient(p)
	got := c.Generate(context.Background(), "anything", nil)
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
	if p.calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", p.calls.Load())
	}
}

func TestGenerateSentinelPlainText(t *testing.T) {
	c := newTestClient(&fakeProvider{id: "down", err: errors.New("connection refused")})
	got := c.Generate(context.Background(), "tell me a story", nil)
	if !strings.HasPrefix(got, ErrorPrefix) {
		t.Errorf("expected plain sentinel, got %q", got)
	}
	if !IsSentinel(got) {
		t.Error("sentinel not detected")
	}
}

func TestGenerateSentinelJSONEnvelope(t *testing.T) {
	c := newTestClient(&fakeProvider{id: "down", err: errors.New("connection refused")})
	prompt := `Respond ONLY with valid JSON containing 'goal' and 'plan' keys.`
	got := c.Generate(context.Background(), prompt, nil)
	if !strings.HasPrefix(strings.TrimSpace(got), "{") {
		t.Errorf("expected JSON envelope, got %q", got)
	}
	if !IsSentinel(got) {
		t.Errorf("envelope not detected as sentinel: %q", got)
	}
	if !strings.Contains(got, "Respond ONLY") {
		t.Error("envelope lost the failed prompt")
	}
}

func TestGenerateRouterFallback(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.Register(&fakeProvider{id: "primary", err: errors.New("down")})
	router.Register(&fakeProvider{id: "backup", content: "from backup"})
	router.SetDefault("primary")
	router.SetFallbacks("morgan", []string{"backup"})

	c := NewClient(router, "morgan", "m", zap.NewNop()).WithRetries(0, time.Millisecond)
	if got := c.Generate(context.Background(), "hi", nil); got != "from backup" {
		t.Errorf("got %q", got)
	}
}

func TestIsSentinelNegatives(t *testing.T) {
	for _, s := range []string{
		"a normal answer",
		`{"goal": "build rapport"}`,
		"  {\"error\": \"not prefixed right\"}",
		"",
	} {
		if IsSentinel(s) {
			t.Errorf("false positive for %q", s)
		}
	}
}

func TestRouterBinding(t *testing.T) {
	router := NewRouter(zap.NewNop())
	router.Register(&fakeProvider{id: "a", content: "from a"})
	router.Register(&fakeProvider{id: "b", content: "from b"})
	router.SetDefault("a")
	router.Bind("casey", "b")

	resp, err := router.Route(context.Background(), "casey", &ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "from b" {
		t.Errorf("binding ignored: %q", resp.Content)
	}

	resp, err = router.Route(context.Background(), "unbound", &ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "from a" {
		t.Errorf("default ignored: %q", resp.Content)
	}
}
