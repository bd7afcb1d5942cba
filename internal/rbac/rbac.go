package rbac

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Permissions checked by RBAC.
const (
	PermApprove = "approve"
	PermReview  = "review"
	PermPublish = "publish"
)

// RoleLookup resolves the roles a user holds, optionally scoped to a
// context such as a team or channel.
type RoleLookup interface {
	GetRoles(ctx context.Context, userID, contextID string) ([]string, error)
}

// Auditor receives every authorization decision.
type Auditor interface {
	PermissionGranted(ctx context.Context, userID, permission, resource string)
	PermissionDenied(ctx context.Context, userID, permission, resource, reason string)
}

// RBAC answers authorization questions. Every check fails closed.
type RBAC struct {
	cfg        Config
	roles      RoleLookup
	audit      Auditor
	log        *zap.Logger
	approval   map[string]struct{}
	reviewers  map[string]struct{}
	publishers map[string]struct{}
	multi      map[string]struct{}
}

func New(cfg Config, roles RoleLookup, audit Auditor, log *zap.Logger) *RBAC {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MinimumApprovals < 1 {
		cfg.MinimumApprovals = 1
	}
	return &RBAC{
		cfg:        cfg,
		roles:      roles,
		audit:      audit,
		log:        log,
		approval:   toSet(cfg.ApprovalRoles),
		reviewers:  toSet(cfg.AuthorizedReviewers),
		publishers: toSet(cfg.AuthorizedPublishers),
		multi:      toSet(cfg.MultiApprovalActions),
	}
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := normalize(v); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// CanApprove reports whether userID holds an approval role in contextID.
// A lookup error or panic, or an empty user, denies.
func (r *RBAC) CanApprove(ctx context.Context, userID, contextID string) bool {
	ok, reason := r.hasApprovalRole(ctx, userID, contextID)
	r.record(ctx, userID, PermApprove, contextID, ok, reason)
	return ok
}

// CanReview reports whether userID may review drafts: listed reviewers and
// approval-role holders qualify.
func (r *RBAC) CanReview(ctx context.Context, userID, contextID string) bool {
	if normalize(userID) == "" {
		r.record(ctx, userID, PermReview, contextID, false, "empty user")
		return false
	}
	if _, ok := r.reviewers[normalize(userID)]; ok {
		r.record(ctx, userID, PermReview, contextID, true, "")
		return true
	}
	ok, reason := r.hasApprovalRole(ctx, userID, contextID)
	r.record(ctx, userID, PermReview, contextID, ok, reason)
	return ok
}

// CanPublish reports whether userID is on the publisher allow-list.
func (r *RBAC) CanPublish(ctx context.Context, userID string) bool {
	id := normalize(userID)
	_, ok := r.publishers[id]
	reason := ""
	switch {
	case id == "":
		ok, reason = false, "empty user"
	case !ok:
		reason = "not an authorized publisher"
	}
	r.record(ctx, userID, PermPublish, "", ok, reason)
	return ok
}

// RequiresMultiApproval reports whether action needs the approval threshold.
func (r *RBAC) RequiresMultiApproval(action string) bool {
	_, ok := r.multi[normalize(action)]
	return ok
}

// MinimumApprovals is the number of distinct approvers a gated action needs.
func (r *RBAC) MinimumApprovals() int { return r.cfg.MinimumApprovals }

func (r *RBAC) hasApprovalRole(ctx context.Context, userID, contextID string) (ok bool, reason string) {
	if normalize(userID) == "" {
		return false, "empty user"
	}
	if r.roles == nil {
		return false, "no role lookup configured"
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("role lookup panicked", zap.String("user_id", userID), zap.Any("panic", rec))
			ok, reason = false, "role lookup failed"
		}
	}()

	roles, err := r.roles.GetRoles(ctx, userID, contextID)
	if err != nil {
		r.log.Warn("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		return false, "role lookup failed"
	}
	for _, role := range roles {
		if _, match := r.approval[normalize(role)]; match {
			return true, ""
		}
	}
	return false, fmt.Sprintf("none of %d roles grant approval", len(roles))
}

func (r *RBAC) record(ctx context.Context, userID, perm, resource string, ok bool, reason string) {
	if r.audit == nil {
		return
	}
	if ok {
		r.audit.PermissionGranted(ctx, userID, perm, resource)
		return
	}
	r.audit.PermissionDenied(ctx, userID, perm, resource, reason)
}
