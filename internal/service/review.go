package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docgate/internal/approval"
	"docgate/internal/audit"
	"docgate/internal/breaker"
	"docgate/internal/model"
	"docgate/internal/rbac"
	"docgate/internal/repository"
	"docgate/internal/scanner"
	"docgate/internal/storage"
)

const (
	publishPrefix = "summaries"
	publishExpiry = 24 * time.Hour

	// maxTransitionAttempts bounds re-reads when another reviewer moves a
	// record between our read and our conditional write.
	maxTransitionAttempts = 3
)

// Actor identifies the user performing a review action. ContextID scopes
// role lookups, for example to a team.
type Actor struct {
	UserID    string
	Username  string
	ContextID string
}

// SummaryView is a record together with its approval history.
type SummaryView struct {
	Record    model.ApprovalRecord `json:"record"`
	Approvals []model.Approval     `json:"approvals"`
}

// PublishResult tells where a published summary can be fetched.
type PublishResult struct {
	SummaryID string `json:"summary_id"`
	Key       string `json:"key"`
	URL       string `json:"url"`
	Approvals int    `json:"approvals"`
}

// ReviewService moves generated summaries through the approval gate.
type ReviewService interface {
	Get(ctx context.Context, summaryID string) (*SummaryView, error)
	ListPending(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error)
	Approve(ctx context.Context, actor Actor, summaryID, notes string) (*model.Approval, error)
	Reject(ctx context.Context, actor Actor, summaryID, notes string) (*model.Approval, error)
	Publish(ctx context.Context, actor Actor, summaryID string) (*PublishResult, error)
}

// ReviewDeps are the collaborators of the review service.
type ReviewDeps struct {
	Workflow *approval.Workflow
	RBAC     *rbac.RBAC
	Scanner  *scanner.Scanner
	Storage  storage.Storage
	Breaker  *breaker.Breaker
	Audit    *audit.Logger
	Log      *zap.Logger
}

type reviewService struct {
	ReviewDeps
}

// NewReviewService constructs a ReviewService.
func NewReviewService(d ReviewDeps) ReviewService {
	if d.Scanner == nil {
		d.Scanner = scanner.New()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &reviewService{ReviewDeps: d}
}

func (s *reviewService) Get(ctx context.Context, summaryID string) (*SummaryView, error) {
	rec, err := s.record(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	history, err := s.Workflow.GetApprovals(ctx, rec.SummaryID)
	if err != nil {
		return nil, err
	}
	return &SummaryView{Record: *rec, Approvals: history}, nil
}

func (s *reviewService) ListPending(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.ApprovalRecord], error) {
	return s.Workflow.GetPendingApprovals(ctx, pq)
}

func (s *reviewService) Approve(ctx context.Context, actor Actor, summaryID, notes string) (*model.Approval, error) {
	rec, err := s.record(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if !s.RBAC.CanApprove(ctx, actor.UserID, actor.ContextID) {
		return nil, &AuthorizationDenied{UserID: actor.UserID, Permission: rbac.PermApprove, Resource: rec.SummaryID, Reason: "approval role required"}
	}
	if rec.RequestedBy != "" && rec.RequestedBy == actor.UserID {
		s.Audit.PermissionDenied(ctx, actor.UserID, rbac.PermApprove, rec.SummaryID, "requester cannot approve own summary")
		return nil, &AuthorizationDenied{UserID: actor.UserID, Permission: rbac.PermApprove, Resource: rec.SummaryID, Reason: "requester cannot approve own summary"}
	}
	a, err := s.advance(ctx, actor, rec, model.StateApproved, notes)
	if err != nil {
		return nil, err
	}
	s.Audit.TranslationApproved(ctx, actor.UserID, actor.Username, rec.SummaryID, notes)
	return a, nil
}

func (s *reviewService) Reject(ctx context.Context, actor Actor, summaryID, notes string) (*model.Approval, error) {
	rec, err := s.record(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if !s.RBAC.CanReview(ctx, actor.UserID, actor.ContextID) {
		return nil, &AuthorizationDenied{UserID: actor.UserID, Permission: rbac.PermReview, Resource: rec.SummaryID, Reason: "reviewer role required"}
	}
	a, err := s.advance(ctx, actor, rec, model.StateRejected, notes)
	if err != nil {
		return nil, err
	}
	s.Audit.TranslationRejected(ctx, actor.UserID, actor.Username, rec.SummaryID, notes)
	return a, nil
}

// Publish releases an approved summary to object storage. The content is
// scanned again right before it leaves the gate.
func (s *reviewService) Publish(ctx context.Context, actor Actor, summaryID string) (*PublishResult, error) {
	rec, err := s.record(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if !s.RBAC.CanPublish(ctx, actor.UserID) {
		return nil, &AuthorizationDenied{UserID: actor.UserID, Permission: rbac.PermPublish, Resource: rec.SummaryID, Reason: "publisher allow-list required"}
	}
	if err := s.transition(ctx, actor, rec, model.StatePublished); err != nil {
		return nil, err
	}

	have, err := s.Workflow.DistinctApprovers(ctx, rec.SummaryID)
	if err != nil {
		return nil, err
	}
	need := 1
	if s.RBAC.RequiresMultiApproval(rbac.PermPublish) {
		need = s.RBAC.MinimumApprovals()
	}
	if have < need {
		s.Audit.CommandBlocked(ctx, actor.UserID, "publish", fmt.Sprintf("%d of %d approvals", have, need))
		return nil, &InsufficientApprovals{SummaryID: rec.SummaryID, Have: have, Need: need}
	}

	scan := s.Scanner.Scan(rec.Content, scanner.Options{})
	if scan.CriticalFound > 0 {
		s.Audit.SecretDetected(ctx, actor.UserID, rec.SummaryID, scan, true)
		return nil, &SecretRejection{Resource: rec.SummaryID, Stage: "publish", CriticalFound: scan.CriticalFound, Types: scan.Types()}
	}
	if scan.HasSecrets {
		s.Audit.SecretDetected(ctx, actor.UserID, rec.SummaryID, scan, false)
	}

	key := fmt.Sprintf("%s/%s.md", publishPrefix, rec.SummaryID)
	url, err := s.upload(ctx, key, rec, scan.RedactedContent)
	if err != nil {
		s.Audit.CommandFailed(ctx, actor.UserID, "publish", err)
		return nil, err
	}

	// The record may have been rejected while the upload ran. Only a record
	// still APPROVED becomes PUBLISHED.
	_, err = s.Workflow.TrackTransition(ctx, rec.SummaryID, model.StateApproved, model.StatePublished,
		actor.UserID, actor.Username, "", map[string]string{"key": key})
	if errors.Is(err, repository.ErrStateConflict) {
		s.withdraw(ctx, rec.SummaryID, key)
		s.Audit.CommandBlocked(ctx, actor.UserID, "publish", "summary changed state during publication")
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if err != nil {
		return nil, err
	}
	s.Audit.TranslationPublished(ctx, actor.UserID, actor.Username, rec.SummaryID, key)
	s.Log.Info("summary published", zap.String("summary_id", rec.SummaryID), zap.String("key", key))
	return &PublishResult{SummaryID: rec.SummaryID, Key: key, URL: url, Approvals: have}, nil
}

func (s *reviewService) upload(ctx context.Context, key string, rec *model.ApprovalRecord, content string) (string, error) {
	url, err := breaker.Do(ctx, s.Breaker, func(ctx context.Context) (string, error) {
		_, err := s.Storage.Put(ctx, key, strings.NewReader(content), storage.PutObjectOptions{
			Size:        int64(len(content)),
			ContentType: "text/markdown; charset=utf-8",
			Metadata: map[string]string{
				"summary-id": rec.SummaryID,
				"format":     rec.Format,
			},
		})
		if err != nil {
			return "", err
		}
		return s.Storage.PresignGet(ctx, key, publishExpiry)
	})
	if errors.Is(err, breaker.ErrOpen) {
		return "", &CircuitOpenError{Dependency: s.Breaker.Name(), Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", rec.SummaryID, err)
	}
	return url, nil
}

// advance applies to on top of rec with a conditional write, re-reading and
// re-checking the graph when a concurrent reviewer got there first.
func (s *reviewService) advance(ctx context.Context, actor Actor, rec *model.ApprovalRecord, to model.ApprovalState, notes string) (*model.Approval, error) {
	for attempt := 1; ; attempt++ {
		if err := s.transition(ctx, actor, rec, to); err != nil {
			return nil, err
		}
		a, err := s.Workflow.TrackTransition(ctx, rec.SummaryID, rec.CurrentState, to, actor.UserID, actor.Username, notes, nil)
		if !errors.Is(err, repository.ErrStateConflict) {
			return a, err
		}
		if attempt == maxTransitionAttempts {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		if rec, err = s.record(ctx, rec.SummaryID); err != nil {
			return nil, err
		}
	}
}

// withdraw removes an object uploaded by a publish that lost its
// transition. A record that ended up PUBLISHED owns the same key and keeps it.
func (s *reviewService) withdraw(ctx context.Context, summaryID, key string) {
	if cur, err := s.Workflow.GetRecord(ctx, summaryID); err == nil && cur.CurrentState == model.StatePublished {
		return
	}
	err := s.Breaker.Execute(ctx, func(ctx context.Context) error {
		return s.Storage.Remove(ctx, key)
	})
	if err != nil {
		s.Log.Error("withdraw unpublished summary", zap.String("summary_id", summaryID), zap.String("key", key), zap.Error(err))
	}
}

func (s *reviewService) record(ctx context.Context, summaryID string) (*model.ApprovalRecord, error) {
	id := strings.TrimSpace(summaryID)
	if id == "" {
		return nil, ErrIDRequired
	}
	rec, err := s.Workflow.GetRecord(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *reviewService) transition(ctx context.Context, actor Actor, rec *model.ApprovalRecord, to model.ApprovalState) error {
	if approval.CanTransition(rec.CurrentState, to) {
		return nil
	}
	s.Audit.CommandBlocked(ctx, actor.UserID, strings.ToLower(string(to)),
		fmt.Sprintf("illegal transition %s -> %s", rec.CurrentState, to))
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.CurrentState, to)
}
