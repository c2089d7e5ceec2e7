package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/fieldsync/internal/config"
	"github.com/JonMunkholm/fieldsync/internal/crm"
	"github.com/JonMunkholm/fieldsync/internal/logging"
	"github.com/JonMunkholm/fieldsync/internal/redact"
	"github.com/google/uuid"
)

// Batch-level lines that are shown verbatim.
const (
	NoFileLine  = "No file uploaded."
	NoTokenLine = "No API token provided."
)

// UploadRequest is one form submission.
// File is nil when the form carried no file part.
type UploadRequest struct {
	Token    string
	Filename string
	File     io.Reader
}

// UploadStats counts row outcomes for one batch.
type UploadStats struct {
	Rows      int `json:"rows"`
	Invalid   int `json:"invalid"`
	Created   int `json:"created"`
	Rejected  int `json:"rejected"`
	Exhausted int `json:"exhausted"`
}

// UploadResult is the ordered log of one batch.
type UploadResult struct {
	BatchID  string
	Lines    []string
	Stats    UploadStats
	Aborted  bool // a batch-level error stopped processing
	Duration time.Duration
}

// Log joins the lines with newlines for display.
func (r UploadResult) Log() string {
	return strings.Join(r.Lines, "\n")
}

func (r *UploadResult) add(line string) {
	r.Lines = append(r.Lines, line)
}

func (r *UploadResult) abort(line string) {
	r.Lines = append(r.Lines, line)
	r.Aborted = true
}

// Service runs upload batches: validate each row, submit the valid ones.
type Service struct {
	validator *RowValidator
	submitter *Submitter
	limiter   *UploadLimiter
	endpoint  string
}

// NewService wires a Service from configuration.
// Extra submitter options are applied after the configured ones.
func NewService(cfg *config.Config, opts ...SubmitterOption) (*Service, error) {
	client, err := crm.NewClient(cfg.CRM.Endpoint, cfg.CRM.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("crm client: %w", err)
	}

	subOpts := append([]SubmitterOption{
		WithMaxAttempts(cfg.CRM.MaxAttempts),
		WithRetryDelay(cfg.CRM.RetryDelay),
	}, opts...)

	return NewServiceWith(
		NewRowValidator(DefaultRequiredFields),
		NewSubmitter(client, subOpts...),
		NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		client.Endpoint(),
	), nil
}

// NewServiceWith assembles a Service from already-built parts.
func NewServiceWith(v *RowValidator, s *Submitter, l *UploadLimiter, endpoint string) *Service {
	return &Service{
		validator: v,
		submitter: s,
		limiter:   l,
		endpoint:  endpoint,
	}
}

// UploadLimiterStatus returns the current concurrency snapshot.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until running batches finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ProcessUpload runs one batch and returns its log.
//
// Missing file or token, an empty file, a busy limiter and an unreadable
// upload each produce a single line and stop the batch. Row-level problems never
// stop it. Client disconnects do not cancel a running batch.
func (s *Service) ProcessUpload(ctx context.Context, req UploadRequest) (result UploadResult) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	result.BatchID = uuid.New().String()
	logger := logging.WithFields(ctx,
		"batch_id", result.BatchID,
		"file", req.Filename,
		"ip", IPAddressFromContext(ctx),
		"user_agent", UserAgentFromContext(ctx),
	)

	defer func() {
		result.Duration = time.Since(start)
	}()

	if req.File == nil {
		logger.Info("upload rejected", "reason", "no file")
		result.abort(NoFileLine)
		return result
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		logger.Info("upload rejected", "reason", "no token")
		result.abort(NoTokenLine)
		return result
	}

	if !s.limiter.TryAcquire() {
		logger.Info("waiting for upload slot", "active", s.limiter.ActiveCount())
		if err := s.limiter.Acquire(ctx); err != nil {
			logger.Warn("upload slot unavailable", "error", err)
			result.abort(FormatUserError(err))
			return result
		}
	}
	defer s.limiter.Release()

	logger.Info("batch started", "endpoint", redact.URL(s.endpoint), "token", redact.Token(token))

	src := WrapForStreaming(req.File)
	err := s.eachRow(src, func(row CsvRow, rowNumber int) {
		result.Stats.Rows++

		if ok, msg := s.validator.Validate(row, rowNumber); !ok {
			result.Stats.Invalid++
			result.add(msg)
			return
		}

		payload := BuildPayload(row)
		sub := s.submitter.Submit(ctx, payload, payload.Name, token)
		switch sub.Outcome {
		case OutcomeCreated:
			result.Stats.Created++
		case OutcomeRejected:
			result.Stats.Rejected++
		case OutcomeExhausted:
			result.Stats.Exhausted++
		}
		result.add(sub.Line)
	})

	var re *readError
	switch {
	case errors.Is(err, ErrEmptyFile):
		result.abort(FormatUserError(err))
	case errors.As(err, &re):
		result.abort(fmt.Sprintf("Invalid CSV at line %d: %v. Processing stopped.", re.Line, re.Err))
	case err != nil:
		result.abort(FormatUserError(err))
	}

	logger.Info("batch finished",
		"rows", result.Stats.Rows,
		"created", result.Stats.Created,
		"invalid", result.Stats.Invalid,
		"rejected", result.Stats.Rejected,
		"exhausted", result.Stats.Exhausted,
		"aborted", result.Aborted,
		"bytes", src.BytesRead,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		logger.Warn("batch stopped early", "error", err)
	}

	return result
}

// readError records the line at which reading the upload failed.
type readError struct {
	Line int
	Err  error
}

func (e *readError) Error() string {
	return fmt.Sprintf("invalid csv at line %d: %v", e.Line, e.Err)
}

func (e *readError) Unwrap() error {
	return e.Err
}

// newReadError points at the line being read when err occurred.
func newReadError(line int, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &readError{Line: pe.Line, Err: pe.Err}
	}
	return &readError{Line: line, Err: err}
}

// eachRow reads the header and then calls fn for every data row in order.
// Quoting is lenient: a stray quote inside an unquoted cell is kept as data.
// Rows shorter than the header leave the trailing columns absent.
// The first read error stops iteration and is returned as a *readError.
func (s *Service) eachRow(r io.Reader, fn func(row CsvRow, rowNumber int)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return ErrEmptyFile
	}
	if err != nil {
		return newReadError(1, err)
	}

	rowNumber := FirstDataRow - 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return newReadError(rowNumber+1, err)
		}
		rowNumber++

		row := make(CsvRow, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		fn(row, rowNumber)
	}
}
