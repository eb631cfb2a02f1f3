// Package authz holds the single role predicate shared by every service.
package authz

import (
	"context"
	"fmt"

	"github.com/campus-shuttle/transport-api/internal/app/apperr"
	"github.com/campus-shuttle/transport-api/internal/domain"
)

// RoleChecker answers has_role(user, role). userrepo.Repository satisfies it.
type RoleChecker interface {
	HasRole(ctx context.Context, id domain.UserID, role domain.RoleName) (bool, error)
}

// Require returns a FORBIDDEN error unless user holds role.
func Require(ctx context.Context, rc RoleChecker, user domain.UserID, role domain.RoleName) error {
	ok, err := rc.HasRole(ctx, user, role)
	if err != nil {
		return fmt.Errorf("check role %s: %w", role, err)
	}
	if !ok {
		return apperr.Forbidden("requires role " + string(role))
	}
	return nil
}
