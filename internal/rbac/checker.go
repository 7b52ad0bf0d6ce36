package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	perms, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- caller in context ----

type ctxKey int

const (
	ctxKeyRole ctxKey = iota
	ctxKeyUser
)

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRole); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUser stores the authenticated user id (the token's sub claim).
func WithUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, id)
}

func UserFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID   string
	Role string
}

func CallerFromContext(ctx context.Context) Caller {
	return Caller{ID: UserFromContext(ctx), Role: RoleFromContext(ctx)}
}
