package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/zombor/betslip-tracker/internal/betslip"
	"github.com/zombor/betslip-tracker/internal/credential"
	"github.com/zombor/betslip-tracker/internal/scanning"
)

// Authenticator is the part of the credential manager the pipeline needs
type Authenticator interface {
	IsLinked(ctx context.Context, userID string) bool
	Invalidate(ctx context.Context, userID string) error
	LinkURL(userID string) string
}

// Extractor turns raw model output into a record
type Extractor interface {
	Extract(raw string) (betslip.Record, error)
}

// Appender writes a record to the user's sheet and returns its link
type Appender interface {
	AppendRecord(ctx context.Context, userID string, rec betslip.Record) (string, error)
}

// Image is an uploaded image that has not been downloaded yet
type Image interface {
	Download(ctx context.Context, w io.Writer) error
	ContentType() string
}

// Upload is one image sent by one user
type Upload struct {
	UserID string
	Image  Image
	// Accepted is called once the user is known to be linked, before any
	// slow work starts
	Accepted func(ctx context.Context)
}

// Orchestrator runs the ingestion pipeline for single uploads
type Orchestrator struct {
	auth      Authenticator
	scanner   scanning.Scanner
	extractor Extractor
	sheets    Appender
	metrics   *Metrics
	tempDir   string
}

// NewOrchestrator creates an Orchestrator using the system temp directory
func NewOrchestrator(auth Authenticator, scanner scanning.Scanner, extractor Extractor, sheets Appender, metrics *Metrics) *Orchestrator {
	return NewOrchestratorWithDeps(auth, scanner, extractor, sheets, metrics, "")
}

// NewOrchestratorWithDeps creates an Orchestrator with a custom temp directory for testing
func NewOrchestratorWithDeps(auth Authenticator, scanner scanning.Scanner, extractor Extractor, sheets Appender, metrics *Metrics, tempDir string) *Orchestrator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		auth:      auth,
		scanner:   scanner,
		extractor: extractor,
		sheets:    sheets,
		metrics:   metrics,
		tempDir:   tempDir,
	}
}

// Ingest runs one upload to a terminal outcome. It always returns exactly
// one Result and never panics.
func (o *Orchestrator) Ingest(ctx context.Context, up Upload) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Ingestion panicked", "user_id", up.UserID, "panic", r)
			res = Result{Outcome: OutcomeInternal, Err: fmt.Errorf("ingestion panicked: %v", r)}
		}
		o.metrics.observeResult(res.Outcome)
		slog.Info("Ingestion finished",
			"user_id", up.UserID,
			"outcome", res.Outcome.String(),
			"duration", time.Since(start),
		)
	}()

	if !o.auth.IsLinked(ctx, up.UserID) {
		return Result{Outcome: OutcomeLinkRequired, LinkURL: o.auth.LinkURL(up.UserID)}
	}
	if up.Accepted != nil {
		up.Accepted(ctx)
	}
	return o.process(ctx, up)
}

func (o *Orchestrator) process(ctx context.Context, up Upload) Result {
	tmp, err := os.CreateTemp(o.tempDir, "betslip-*")
	if err != nil {
		return Result{Outcome: OutcomeInternal, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove temp file", "path", tmp.Name(), "error", err)
		}
	}()

	data, err := o.fetch(ctx, up.Image, tmp)
	if err != nil {
		slog.Error("Failed to download image", "user_id", up.UserID, "error", err)
		return Result{Outcome: OutcomeFetchFailed, Err: err}
	}

	stageStart := time.Now()
	raw, err := o.scanner.ExtractText(ctx, data, up.Image.ContentType())
	o.metrics.observeStage(StageOCR, time.Since(stageStart))
	if err != nil {
		slog.Error("Failed to scan slip",
			"user_id", up.UserID,
			"content_type", up.Image.ContentType(),
			"file_size", len(data),
			"error", err,
		)
		return Result{Outcome: OutcomeOCRFailed, Err: err}
	}

	stageStart = time.Now()
	rec, err := o.extractor.Extract(raw)
	o.metrics.observeStage(StageExtract, time.Since(stageStart))
	if err != nil {
		slog.Warn("Model answer not readable", "user_id", up.UserID, "error", err)
		return Result{Outcome: OutcomeUnreadable, Err: err}
	}

	stageStart = time.Now()
	link, err := o.sheets.AppendRecord(ctx, up.UserID, rec)
	o.metrics.observeStage(StageWrite, time.Since(stageStart))
	if err != nil {
		return o.writeFailure(ctx, up.UserID, rec, err)
	}

	return Result{Outcome: OutcomeWritten, SheetURL: link, Record: &rec}
}

// fetch downloads the image into tmp and reads it back
func (o *Orchestrator) fetch(ctx context.Context, img Image, tmp *os.File) ([]byte, error) {
	start := time.Now()
	defer func() { o.metrics.observeStage(StageFetch, time.Since(start)) }()

	if err := img.Download(ctx, tmp); err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("reading temp file: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("downloaded image is empty")
	}
	return data, nil
}

// writeFailure classifies an AppendRecord error. Credential problems
// found at write time get the same treatment as an unlinked user.
func (o *Orchestrator) writeFailure(ctx context.Context, userID string, rec betslip.Record, err error) Result {
	authErr, ok := credential.AsAuthRequired(err)
	if !ok {
		slog.Error("Failed to write record", "user_id", userID, "record_id", rec.ID, "error", err)
		return Result{Outcome: OutcomeWriteFailed, Record: &rec, Err: err}
	}

	if authErr.Reason == credential.ReasonUnavailable {
		slog.Warn("Credential refresh unavailable", "user_id", userID, "error", err)
		return Result{Outcome: OutcomeAuthUnavailable, Record: &rec, Err: err}
	}

	slog.Info("Credential no longer usable, requesting relink", "user_id", userID, "reason", authErr.Reason.String())
	if ierr := o.auth.Invalidate(ctx, userID); ierr != nil {
		slog.Error("Failed to invalidate credential", "user_id", userID, "error", ierr)
	}
	return Result{Outcome: OutcomeLinkRequired, LinkURL: o.auth.LinkURL(userID), Record: &rec, Err: err}
}
