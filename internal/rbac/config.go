package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the authorization policy document.
type Config struct {
	ApprovalRoles        []string            `yaml:"approval_roles"`
	AuthorizedReviewers  []string            `yaml:"authorized_reviewers"`
	AuthorizedPublishers []string            `yaml:"authorized_publishers"`
	MultiApprovalActions []string            `yaml:"multi_approval_actions"`
	MinimumApprovals     int                 `yaml:"minimum_approvals"`
	UserRoles            map[string][]string `yaml:"user_roles"`
}

// DefaultConfig returns the policy used when no file is configured.
// Publishing is disabled until publishers are listed explicitly.
func DefaultConfig() Config {
	return Config{
		ApprovalRoles:        []string{"approver", "admin"},
		MultiApprovalActions: []string{"publish"},
		MinimumApprovals:     2,
	}
}

// LoadConfig reads a YAML policy file. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rbac config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse rbac config: %w", err)
	}
	if cfg.MinimumApprovals < 1 {
		cfg.MinimumApprovals = 1
	}
	return cfg, nil
}
