package rbac

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/audit"
	"docgate/internal/model"
)

type lookupFunc func(ctx context.Context, userID, contextID string) ([]string, error)

func (f lookupFunc) GetRoles(ctx context.Context, userID, contextID string) ([]string, error) {
	return f(ctx, userID, contextID)
}

func newRBAC(t *testing.T, cfg Config, roles RoleLookup) (*RBAC, *audit.MemorySink) {
	t.Helper()
	mem := audit.NewMemorySink()
	return New(cfg, roles, audit.New(nil, nil, mem), nil), mem
}

func TestRBAC_CanApprove(t *testing.T) {
	lookup := NewStaticRoleLookup(map[string][]string{
		"alice": {"  Approver "},
		"bob":   {"viewer"},
	})
	r, mem := newRBAC(t, DefaultConfig(), lookup)
	ctx := context.Background()

	assert.True(t, r.CanApprove(ctx, "alice", "team-a"))
	assert.True(t, r.CanApprove(ctx, " ALICE ", ""))
	assert.False(t, r.CanApprove(ctx, "bob", ""))
	assert.False(t, r.CanApprove(ctx, "carol", ""))
	assert.False(t, r.CanApprove(ctx, "  ", ""))

	assert.Len(t, mem.ByType(model.EventPermissionGranted), 2)
	assert.Len(t, mem.ByType(model.EventPermissionDenied), 3)
}

func TestRBAC_CanApproveFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup error", func(t *testing.T) {
		r, mem := newRBAC(t, DefaultConfig(), lookupFunc(func(context.Context, string, string) ([]string, error) {
			return []string{"approver"}, errors.New("directory unavailable")
		}))
		assert.False(t, r.CanApprove(ctx, "alice", ""))
		denied := mem.ByType(model.EventPermissionDenied)
		require.Len(t, denied, 1)
		assert.Equal(t, "role lookup failed", denied[0].Details["reason"])
	})

	t.Run("lookup panic", func(t *testing.T) {
		r, _ := newRBAC(t, DefaultConfig(), lookupFunc(func(context.Context, string, string) ([]string, error) {
			panic("nil directory client")
		}))
		assert.False(t, r.CanApprove(ctx, "alice", ""))
	})

	t.Run("no lookup", func(t *testing.T) {
		r, _ := newRBAC(t, DefaultConfig(), nil)
		assert.False(t, r.CanApprove(ctx, "alice", ""))
	})
}

func TestRBAC_CanReview(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthorizedReviewers = []string{"dana"}
	r, _ := newRBAC(t, cfg, NewStaticRoleLookup(map[string][]string{"alice": {"admin"}}))
	ctx := context.Background()

	assert.True(t, r.CanReview(ctx, "Dana", ""))
	assert.True(t, r.CanReview(ctx, "alice", ""))
	assert.False(t, r.CanReview(ctx, "eve", ""))
	assert.False(t, r.CanReview(ctx, "", ""))
}

func TestRBAC_CanPublishDefaultsToDenied(t *testing.T) {
	ctx := context.Background()
	r, _ := newRBAC(t, DefaultConfig(), NewStaticRoleLookup(map[string][]string{"alice": {"admin"}}))
	assert.False(t, r.CanPublish(ctx, "alice"))

	cfg := DefaultConfig()
	cfg.AuthorizedPublishers = []string{"alice"}
	r, mem := newRBAC(t, cfg, nil)
	assert.True(t, r.CanPublish(ctx, "alice"))
	assert.False(t, r.CanPublish(ctx, ""))
	assert.Len(t, mem.ByType(model.EventPermissionGranted), 1)
}

func TestRBAC_ConfigReads(t *testing.T) {
	r, _ := newRBAC(t, DefaultConfig(), nil)

	assert.True(t, r.RequiresMultiApproval("publish"))
	assert.True(t, r.RequiresMultiApproval(" PUBLISH "))
	assert.False(t, r.RequiresMultiApproval("approve"))
	assert.Equal(t, 2, r.MinimumApprovals())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rbac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
approval_roles: [lead, owner]
authorized_publishers: [pat]
minimum_approvals: 3
user_roles:
  alice: [lead]
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead", "owner"}, cfg.ApprovalRoles)
	assert.Equal(t, []string{"pat"}, cfg.AuthorizedPublishers)
	assert.Equal(t, 3, cfg.MinimumApprovals)
	assert.Equal(t, []string{"publish"}, cfg.MultiApprovalActions)
	assert.Equal(t, []string{"lead"}, cfg.UserRoles["alice"])

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("approval_roles: {"), 0o600))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}
