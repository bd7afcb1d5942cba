package rbac

import (
	"context"
	"strings"
)

// StaticRoleLookup serves roles from a fixed user to roles map. Context
// IDs are ignored.
type StaticRoleLookup struct {
	roles map[string][]string
}

func NewStaticRoleLookup(userRoles map[string][]string) *StaticRoleLookup {
	m := make(map[string][]string, len(userRoles))
	for user, roles := range userRoles {
		m[strings.ToLower(strings.TrimSpace(user))] = append([]string(nil), roles...)
	}
	return &StaticRoleLookup{roles: m}
}

func (s *StaticRoleLookup) GetRoles(_ context.Context, userID, _ string) ([]string, error) {
	return s.roles[strings.ToLower(strings.TrimSpace(userID))], nil
}
