package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docgate/internal/approval"
	"docgate/internal/audit"
	"docgate/internal/breaker"
	"docgate/internal/document"
	"docgate/internal/llm"
	"docgate/internal/metrics"
	"docgate/internal/model"
	"docgate/internal/repository"
	"docgate/internal/sanitizer"
	"docgate/internal/scanner"
	"docgate/internal/validation"
)

// Issue codes added by the service on top of the validator's.
const (
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeDocumentTooLarge = "DOCUMENT_TOO_LARGE"
	CodeRequesterMissing = "REQUESTER_REQUIRED"
)

var tracer = otel.Tracer("docgate/internal/service")

// GenerateRequest asks for one summary of a batch of documents.
type GenerateRequest struct {
	Documents   []string
	Format      string
	Audience    string
	RequestedBy string
}

// GenerateMetadata describes what the pipeline did to the content.
type GenerateMetadata struct {
	ContentSanitized     bool     `json:"content_sanitized"`
	RemovedPatterns      []string `json:"removed_patterns"`
	ValidationPassed     bool     `json:"validation_passed"`
	ValidationIssues     []string `json:"validation_issues"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	RedactedFindings     int      `json:"redacted_findings"`
	DroppedDocuments     []string `json:"dropped_documents,omitempty"`
}

// GenerateResult is a draft that passed output validation and now waits in
// PENDING_REVIEW.
type GenerateResult struct {
	SummaryID string           `json:"summary_id"`
	Content   string           `json:"content"`
	State     string           `json:"state"`
	Warnings  []string         `json:"warnings,omitempty"`
	Metadata  GenerateMetadata `json:"metadata"`
}

// Recorder receives pipeline metrics. *metrics.Metrics implements it.
type Recorder interface {
	PipelineOutcome(outcome string)
	SecretsFound(stage string, res model.ScanResult)
}

type nopRecorder struct{}

func (nopRecorder) PipelineOutcome(string) {}

func (nopRecorder) SecretsFound(string, model.ScanResult) {}

// TranslationService turns internal documents into reviewable summaries.
type TranslationService interface {
	// Generate runs one request through validation, sanitization, secret
	// scanning, generation and output validation.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Paused reports whether an output leak has stopped generation.
	Paused() bool

	// Resume re-enables generation after an operator reviewed a leak.
	Resume(ctx context.Context, operatorID string) bool
}

// TranslationDeps are the collaborators of the translation service.
type TranslationDeps struct {
	Validator  *validation.Validator
	SizeGuard  *validation.SizeGuard
	Resolver   document.Resolver
	Sanitizer  *sanitizer.Sanitizer
	Scanner    *scanner.Scanner
	Generator  llm.Generator
	Breaker    *breaker.Breaker
	Workflow   *approval.Workflow
	Quarantine repository.QuarantineRepository
	Audit      *audit.Logger
	Metrics    Recorder
	Log        *zap.Logger
}

type translationService struct {
	TranslationDeps
	paused atomic.Bool
	now    func() time.Time
}

// NewTranslationService constructs a TranslationService.
func NewTranslationService(d TranslationDeps) TranslationService {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Validator == nil {
		d.Validator = validation.New(validation.Config{})
	}
	if d.SizeGuard == nil {
		d.SizeGuard = validation.NewSizeGuard(validation.SizeLimits{})
	}
	if d.Sanitizer == nil {
		d.Sanitizer = sanitizer.New()
	}
	if d.Scanner == nil {
		d.Scanner = scanner.New()
	}
	return &translationService{TranslationDeps: d, now: time.Now}
}

func (s *translationService) Paused() bool { return s.paused.Load() }

func (s *translationService) Resume(ctx context.Context, operatorID string) bool {
	if !s.paused.CompareAndSwap(true, false) {
		return false
	}
	s.Audit.ConfigModified(ctx, operatorID, "translation_service.paused", true, false)
	s.Log.Warn("translation service resumed", zap.String("operator", operatorID))
	return true
}

func (s *translationService) Generate(ctx context.Context, req GenerateRequest) (res *GenerateResult, err error) {
	ctx, span := tracer.Start(ctx, "translation.generate", trace.WithAttributes(
		attribute.String("docgate.format", req.Format),
		attribute.Int("docgate.documents", len(req.Documents)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generate failed")
		}
		span.End()
	}()

	if s.paused.Load() {
		s.Audit.CommandBlocked(ctx, req.RequestedBy, "generate", "service paused after output leak")
		s.Metrics.PipelineOutcome(metrics.OutcomePaused)
		return nil, ErrServicePaused
	}
	s.Audit.TranslationRequested(ctx, req.RequestedBy, req.Documents, req.Format, req.Audience)

	paths, format, audience, warnings, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, dropped, err := s.load(ctx, req.RequestedBy, paths)
	if err != nil {
		return nil, err
	}
	for _, name := range dropped {
		warnings = append(warnings, fmt.Sprintf("%s dropped to fit batch size limits", name))
	}

	meta := GenerateMetadata{RemovedPatterns: []string{}, ValidationIssues: []string{}, DroppedDocuments: dropped}
	docs = s.sanitize(ctx, req.RequestedBy, docs, &meta)

	docs, err = s.scanInput(ctx, req.RequestedBy, docs, &meta)
	if err != nil {
		return nil, err
	}

	output, err := s.callGenerator(ctx, req.RequestedBy, llm.BuildPrompt(format, audience, docs))
	if err != nil {
		return nil, err
	}

	if err := s.validateOutput(ctx, req.RequestedBy, format, audience, output); err != nil {
		return nil, err
	}

	summaryID := uuid.NewString()
	if _, err := s.Workflow.CreateRecord(ctx, summaryID, output, format, audience, req.RequestedBy); err != nil {
		s.Metrics.PipelineOutcome(metrics.OutcomeError)
		return nil, fmt.Errorf("store summary: %w", err)
	}
	s.Audit.TranslationGenerated(ctx, req.RequestedBy, summaryID, format, map[string]any{
		"documents":         paths,
		"removed_patterns":  meta.RemovedPatterns,
		"redacted_findings": meta.RedactedFindings,
	})
	s.Metrics.PipelineOutcome(metrics.OutcomeGenerated)

	meta.ValidationPassed = true
	meta.RequiresManualReview = meta.ContentSanitized || meta.RedactedFindings > 0 || len(dropped) > 0
	return &GenerateResult{
		SummaryID: summaryID,
		Content:   output,
		State:     string(model.StatePendingReview),
		Warnings:  warnings,
		Metadata:  meta,
	}, nil
}

func (s *translationService) reject(ctx context.Context, userID string, issues []validation.Issue, warnings []string, cause error) error {
	verr := &ValidationError{Issues: issues, Warnings: warnings, Err: cause}
	s.Audit.CommandBlocked(ctx, userID, "generate", strings.Join(verr.Codes(), ","))
	s.Metrics.PipelineOutcome(metrics.OutcomeInvalid)
	return verr
}

func (s *translationService) validate(ctx context.Context, req GenerateRequest) (paths []string, format, audience string, warnings []string, err error) {
	_, span := tracer.Start(ctx, "translation.validate")
	defer span.End()

	var issues []validation.Issue
	if strings.TrimSpace(req.RequestedBy) == "" {
		issues = append(issues, validation.Issue{Code: CodeRequesterMissing, Message: "requesting user is required"})
	}
	p := s.Validator.ValidatePaths(req.Documents)
	issues = append(issues, p.Errors...)
	f := s.Validator.ValidateFormat(req.Format)
	issues = append(issues, f.Errors...)
	a := s.Validator.ValidateAudience(req.Audience)
	issues = append(issues, a.Errors...)

	if len(issues) > 0 {
		return nil, "", "", nil, s.reject(ctx, req.RequestedBy, issues, p.Warnings, nil)
	}
	return p.Sanitized, f.Sanitized, a.Sanitized, p.Warnings, nil
}

func (s *translationService) load(ctx context.Context, userID string, paths []string) ([]model.Document, []string, error) {
	ctx, span := tracer.Start(ctx, "translation.load")
	defer span.End()

	docs := make([]model.Document, 0, len(paths))
	for _, p := range paths {
		res := s.Resolver.Resolve(ctx, p)
		if !res.Exists {
			if res.Err != nil && !errors.Is(res.Err, document.ErrNotFound) && !errors.Is(res.Err, document.ErrOutsideRoots) {
				s.Audit.CommandFailed(ctx, userID, "generate", res.Err)
				return nil, nil, s.resolveFailure(p, res.Err)
			}
			return nil, nil, s.reject(ctx, userID, []validation.Issue{{
				Code:    CodeDocumentNotFound,
				Message: fmt.Sprintf("document %s not found", p),
			}}, nil, res.Err)
		}
		doc, err := s.Resolver.Read(ctx, res)
		if err != nil {
			s.Audit.CommandFailed(ctx, userID, "generate", err)
			return nil, nil, s.resolveFailure(p, err)
		}
		s.Audit.DocumentAccessed(ctx, userID, p)
		docs = append(docs, doc)
	}

	out, err := s.SizeGuard.CheckBatch(docs)
	var v *validation.SizeViolation
	if errors.As(err, &v) {
		resource := v.Document
		if resource == "" {
			resource = "batch"
		}
		s.Audit.DocumentRejectedSize(ctx, userID, resource, v.Limit, v.Actual, v.Max)
		return nil, nil, s.reject(ctx, userID, []validation.Issue{{Code: CodeDocumentTooLarge, Message: v.Error()}}, nil, err)
	}
	if err != nil {
		return nil, nil, err
	}
	for _, name := range out.Dropped {
		s.Audit.DocumentRejectedSize(ctx, userID, name, "batch", 0, 0)
	}
	return out.Documents, out.Dropped, nil
}

func (s *translationService) resolveFailure(path string, err error) error {
	s.Metrics.PipelineOutcome(metrics.OutcomeError)
	if errors.Is(err, breaker.ErrOpen) {
		return &CircuitOpenError{Dependency: "documents", Err: err}
	}
	return fmt.Errorf("read document %s: %w", path, err)
}

func (s *translationService) sanitize(ctx context.Context, userID string, docs []model.Document, meta *GenerateMetadata) []model.Document {
	_, span := tracer.Start(ctx, "translation.sanitize")
	defer span.End()

	seen := map[string]struct{}{}
	out := make([]model.Document, len(docs))
	for i, d := range docs {
		r := s.Sanitizer.Sanitize(d.Content)
		out[i] = d.WithContent(r.Sanitized)
		if !r.Flagged {
			continue
		}
		meta.ContentSanitized = true
		for _, p := range r.RemovedPatterns {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				meta.RemovedPatterns = append(meta.RemovedPatterns, p)
			}
		}
		s.Log.Info("prompt injection removed",
			zap.String("user_id", userID),
			zap.String("document", d.Name),
			zap.Strings("patterns", r.RemovedPatterns),
		)
	}
	return out
}

// scanInput redacts every document and fails closed on a critical finding in
// any document or in the batch as a whole.
func (s *translationService) scanInput(ctx context.Context, userID string, docs []model.Document, meta *GenerateMetadata) ([]model.Document, error) {
	_, span := tracer.Start(ctx, "translation.scan_input")
	defer span.End()

	opts := scanner.Options{SkipFalsePositives: true}
	redacted := make([]model.Document, len(docs))
	critical := 0
	var types []string
	var contents []string

	for i, d := range docs {
		r := s.Scanner.Scan(d.Content, opts)
		redacted[i] = d.WithContent(r.RedactedContent)
		contents = append(contents, d.Content)
		if !r.HasSecrets {
			continue
		}
		s.Metrics.SecretsFound("input", r)
		meta.RedactedFindings += r.TotalFound
		critical += r.CriticalFound
		types = append(types, r.Types()...)
		s.Audit.SecretDetected(ctx, userID, d.Name, r, r.CriticalFound > 0)
	}

	// Joining documents can complete a secret split across a boundary.
	batch := s.Scanner.Scan(strings.Join(contents, ""), opts)
	if batch.CriticalFound > critical {
		s.Audit.SecretDetected(ctx, userID, "batch", batch, true)
		critical = batch.CriticalFound
		types = append(types, batch.Types()...)
	}

	span.SetAttributes(attribute.Int("docgate.critical_found", critical))
	if critical > 0 {
		s.Metrics.PipelineOutcome(metrics.OutcomeSecret)
		return nil, &SecretRejection{Resource: "request", Stage: "input", CriticalFound: critical, Types: dedupe(types)}
	}
	return redacted, nil
}

func (s *translationService) callGenerator(ctx context.Context, userID string, prompt llm.Prompt) (string, error) {
	ctx, span := tracer.Start(ctx, "translation.llm")
	defer span.End()

	out, err := breaker.Do(ctx, s.Breaker, func(ctx context.Context) (string, error) {
		return s.Generator.Generate(ctx, prompt)
	})
	if errors.Is(err, breaker.ErrOpen) {
		s.Audit.CommandFailed(ctx, userID, "generate", err)
		s.Metrics.PipelineOutcome(metrics.OutcomeCircuitOpen)
		return "", &CircuitOpenError{Dependency: s.Breaker.Name(), Err: err}
	}
	if err != nil {
		s.Audit.CommandFailed(ctx, userID, "generate", err)
		s.Metrics.PipelineOutcome(metrics.OutcomeError)
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return out, nil
}

// validateOutput quarantines any draft that leaks a secret or carries an
// injection payload. A leak also pauses the service.
func (s *translationService) validateOutput(ctx context.Context, userID, format, audience, output string) error {
	ctx, span := tracer.Start(ctx, "translation.validate_output")
	defer span.End()

	scan := s.Scanner.Scan(output, scanner.Options{})
	var issues []string
	for _, t := range scan.Types() {
		issues = append(issues, "SECRET_LEAK: "+t)
	}
	for _, name := range s.Sanitizer.Detect(output) {
		issues = append(issues, "PROMPT_INJECTION: "+strings.ToUpper(name))
	}
	if len(issues) == 0 {
		return nil
	}

	draft := &model.QuarantinedDraft{
		ID:          uuid.NewString(),
		RequestedBy: userID,
		Format:      format,
		Audience:    audience,
		Content:     s.Sanitizer.Sanitize(scan.RedactedContent).Sanitized,
		Issues:      issues,
		CreatedAt:   s.now().UTC(),
	}
	exc := &SecurityException{DraftID: draft.ID, Issues: issues, Leak: scan.HasSecrets}

	if scan.HasSecrets {
		s.Metrics.SecretsFound("output", scan)
		s.Audit.LeakDetected(ctx, userID, draft.ID, scan)
		if s.paused.CompareAndSwap(false, true) {
			s.Audit.ServicePaused(ctx, "secret leaked in generated output")
			s.Log.Error("translation service paused after output leak", zap.String("draft_id", draft.ID))
		}
	}
	if err := s.Quarantine.Add(ctx, draft); err != nil {
		exc.QuarantineErr = err
		s.Log.Error("quarantine draft failed", zap.String("draft_id", draft.ID), zap.Error(err))
	}
	s.Audit.SecurityException(ctx, userID, draft.ID, exc, map[string]any{"issues": issues})
	s.Metrics.PipelineOutcome(metrics.OutcomeQuarantined)
	return exc
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
