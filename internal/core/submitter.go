package core

// submitter.go sends one custom field to the CRM and turns the exchange into
// a single log line.
//
// Outcomes per call:
//
//	2xx response              -> Created, returned immediately
//	any other response        -> Rejected, returned immediately (no retry)
//	no response (transport)   -> wait RetryDelay and try again, up to
//	                             MaxAttempts; then Exhausted
//
// The delay is fixed. There is no backoff or jitter.

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/fieldsync/internal/crm"
	"github.com/JonMunkholm/fieldsync/internal/logging"
	"github.com/JonMunkholm/fieldsync/internal/redact"
)

// Submission defaults.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// FieldCreator performs a single create request. *crm.Client satisfies it.
type FieldCreator interface {
	CreateCustomField(ctx context.Context, token string, payload crm.FieldPayload) (*crm.Response, error)
}

// Sleeper pauses between attempts. Tests substitute a recorder.
type Sleeper func(ctx context.Context, d time.Duration)

// Outcome classifies how a submission ended.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeRejected
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// SubmissionResult is the display line for one row plus how it was reached.
type SubmissionResult struct {
	Line       string
	Outcome    Outcome
	Attempts   int
	StatusCode int // zero when exhausted
}

func (r SubmissionResult) String() string {
	return r.Line
}

// Submitter posts payloads with a bounded number of attempts.
type Submitter struct {
	client      FieldCreator
	maxAttempts int
	retryDelay  time.Duration
	sleep       Sleeper
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithMaxAttempts sets the attempt budget for transport failures.
func WithMaxAttempts(n int) SubmitterOption {
	return func(s *Submitter) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithSleeper replaces the pause implementation.
func WithSleeper(fn Sleeper) SubmitterOption {
	return func(s *Submitter) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewSubmitter creates a Submitter with 3 attempts and a 1s delay unless overridden.
func NewSubmitter(client FieldCreator, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates the custom field and returns exactly one result line.
// It never returns an error; every failure is folded into the line.
func (s *Submitter) Submit(ctx context.Context, payload crm.FieldPayload, displayName, credential string) SubmissionResult {
	logger := logging.WithFields(ctx, "field", displayName)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.client.CreateCustomField(ctx, credential, payload)
		if err == nil {
			if resp.OK() {
				logger.Debug("custom field created", "status", resp.StatusCode, "attempt", attempt)
				return SubmissionResult{
					Line:       CreatedLine(displayName),
					Outcome:    OutcomeCreated,
					Attempts:   attempt,
					StatusCode: resp.StatusCode,
				}
			}
			logger.Warn("custom field rejected", "status", resp.StatusCode, "attempt", attempt)
			return SubmissionResult{
				Line:       RejectedLine(resp.StatusCode, displayName, resp.Body),
				Outcome:    OutcomeRejected,
				Attempts:   attempt,
				StatusCode: resp.StatusCode,
			}
		}

		msg := MapError(err)
		logger.Warn("crm transport failure",
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"code", msg.Code,
			"error", redact.Secrets(err.Error()),
		)
		if attempt < s.maxAttempts {
			s.sleep(ctx, s.retryDelay)
		}
	}

	logger.Error("custom field not created, attempts exhausted", "attempts", s.maxAttempts)
	return SubmissionResult{
		Line:     ExhaustedLine(displayName, s.maxAttempts),
		Outcome:  OutcomeExhausted,
		Attempts: s.maxAttempts,
	}
}

// CreatedLine is the log line for a successful submission.
func CreatedLine(name string) string {
	return "✅ Created: " + name
}

// RejectedLine is the log line for a non-2xx response.
func RejectedLine(status int, name, body string) string {
	return fmt.Sprintf("❌ Error (%d) for '%s': %s", status, name, body)
}

// ExhaustedLine is the log line when no response was ever received.
func ExhaustedLine(name string, attempts int) string {
	return fmt.Sprintf("⚠️ Failed for '%s': exhausted after %d attempts", name, attempts)
}

// sleepContext waits for d. The wait ends early only if ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
