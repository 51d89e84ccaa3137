// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// Role strings carried in access tokens.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// UserContext contains authenticated user information.
type UserContext struct {
	UserID         int64
	DispensaryID   int64
	OrganizationID int64
	Name           string
	Roles          []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or 0.
func GetUserID(ctx context.Context) int64 {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return 0
}

// GetDispensaryID returns the caller's dispensary or 0.
func GetDispensaryID(ctx context.Context) int64 {
	if u := GetUser(ctx); u != nil {
		return u.DispensaryID
	}
	return 0
}

// HasRole checks if user has specific role. Admins hold every role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role) || slices.Contains(u.Roles, RoleAdmin)
}
