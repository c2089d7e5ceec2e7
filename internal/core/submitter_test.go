package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/fieldsync/internal/crm"
)

// stubCreator replays a fixed sequence of results, one per call.
type stubCreator struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
	tokens  []string
}

type stubResult struct {
	resp *crm.Response
	err  error
}

func (s *stubCreator) CreateCustomField(_ context.Context, token string, _ crm.FieldPayload) (*crm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = append(s.tokens, token)
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i].resp, s.results[i].err
}

func (s *stubCreator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

func (r *sleepRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delays)
}

var errRefused = errors.New("dial tcp 127.0.0.1:9: connect: connection refused")

func TestSubmitter_CreatedFirstAttempt(t *testing.T) {
	stub := &stubCreator{results: []stubResult{{resp: &crm.Response{StatusCode: 201, Body: `{"_id":"1"}`}}}}
	sleeps := &sleepRecorder{}
	s := NewSubmitter(stub, WithSleeper(sleeps.Sleep))

	got := s.Submit(context.Background(), crm.FieldPayload{Name: "Tier"}, "Tier", "tok")

	if got.Line != "✅ Created: Tier" {
		t.Errorf("Line = %q", got.Line)
	}
	if got.Outcome != OutcomeCreated || got.Attempts != 1 || got.StatusCode != 201 {
		t.Errorf("result = %+v", got)
	}
	if sleeps.Count() != 0 {
		t.Errorf("slept %d times, want 0", sleeps.Count())
	}
	if stub.tokens[0] != "tok" {
		t.Errorf("credential = %q, want tok", stub.tokens[0])
	}
}

func TestSubmitter_RejectedIsNotRetried(t *testing.T) {
	for _, status := range []int{400, 401, 302, 500} {
		stub := &stubCreator{results: []stubResult{{resp: &crm.Response{StatusCode: status, Body: "bad field"}}}}
		sleeps := &sleepRecorder{}
		s := NewSubmitter(stub, WithSleeper(sleeps.Sleep))

		got := s.Submit(context.Background(), crm.FieldPayload{}, "Tier", "tok")

		if stub.Calls() != 1 {
			t.Errorf("status %d: %d calls, want 1", status, stub.Calls())
		}
		if got.Outcome != OutcomeRejected {
			t.Errorf("status %d: outcome %v, want rejected", status, got.Outcome)
		}
		want := RejectedLine(status, "Tier", "bad field")
		if got.Line != want {
			t.Errorf("status %d: Line = %q, want %q", status, got.Line, want)
		}
		if sleeps.Count() != 0 {
			t.Errorf("status %d: slept %d times", status, sleeps.Count())
		}
	}
}

func TestSubmitter_RejectedLineFormat(t *testing.T) {
	got := RejectedLine(400, "Tier", `{"error":"bad field"}`)
	want := `❌ Error (400) for 'Tier': {"error":"bad field"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSubmitter_TransportFailureExhausts(t *testing.T) {
	stub := &stubCreator{results: []stubResult{{err: errRefused}}}
	sleeps := &sleepRecorder{}
	s := NewSubmitter(stub, WithSleeper(sleeps.Sleep), WithRetryDelay(time.Second))

	got := s.Submit(context.Background(), crm.FieldPayload{}, "Tier", "tok")

	if stub.Calls() != 3 {
		t.Errorf("calls = %d, want 3", stub.Calls())
	}
	if sleeps.Count() != 2 {
		t.Errorf("sleeps = %d, want 2", sleeps.Count())
	}
	for _, d := range sleeps.delays {
		if d != time.Second {
			t.Errorf("delay = %v, want 1s", d)
		}
	}
	if got.Outcome != OutcomeExhausted || got.StatusCode != 0 {
		t.Errorf("result = %+v", got)
	}
	if got.Line != "⚠️ Failed for 'Tier': exhausted after 3 attempts" {
		t.Errorf("Line = %q", got.Line)
	}
}

func TestSubmitter_RecoversAfterTransportFailure(t *testing.T) {
	stub := &stubCreator{results: []stubResult{
		{err: errRefused},
		{resp: &crm.Response{StatusCode: 200}},
	}}
	sleeps := &sleepRecorder{}
	s := NewSubmitter(stub, WithSleeper(sleeps.Sleep))

	got := s.Submit(context.Background(), crm.FieldPayload{}, "Tier", "tok")

	if got.Outcome != OutcomeCreated || got.Attempts != 2 {
		t.Errorf("result = %+v", got)
	}
	if sleeps.Count() != 1 {
		t.Errorf("sleeps = %d, want 1", sleeps.Count())
	}
}

func TestSubmitter_MaxAttemptsOption(t *testing.T) {
	stub := &stubCreator{results: []stubResult{{err: errRefused}}}
	s := NewSubmitter(stub, WithMaxAttempts(5), WithSleeper(func(context.Context, time.Duration) {}))

	got := s.Submit(context.Background(), crm.FieldPayload{}, "Tier", "tok")

	if stub.Calls() != 5 || got.Attempts != 5 {
		t.Errorf("calls=%d attempts=%d, want 5", stub.Calls(), got.Attempts)
	}
	if !strings.Contains(got.Line, "5 attempts") {
		t.Errorf("Line = %q", got.Line)
	}
}

func TestSubmitter_IgnoresInvalidOptions(t *testing.T) {
	s := NewSubmitter(&stubCreator{}, WithMaxAttempts(0), WithRetryDelay(-time.Second), WithSleeper(nil))
	if s.maxAttempts != DefaultMaxAttempts || s.retryDelay != DefaultRetryDelay || s.sleep == nil {
		t.Errorf("defaults not kept: attempts=%d delay=%v", s.maxAttempts, s.retryDelay)
	}
}

func TestSleepContext_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	if time.Since(start) > time.Second {
		t.Error("sleepContext ignored cancellation")
	}
}
