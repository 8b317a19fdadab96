package tenantctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// SchoolKey is the request context key for the active school (tenant) ID.
type SchoolKey struct{}

// AccountKey is the request context key for the authenticated account ID.
type AccountKey struct{}

// RoleKey carries the authenticated account's role name.
type RoleKey struct{}

func WithSchoolID(ctx context.Context, schoolID snowflake.ID) context.Context {
	return context.WithValue(ctx, SchoolKey{}, schoolID)
}

func WithAccountID(ctx context.Context, accountID snowflake.ID) context.Context {
	return context.WithValue(ctx, AccountKey{}, accountID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey{}, role)
}

func SchoolIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, SchoolKey{})
}

func AccountIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, AccountKey{})
}

func RoleFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	role, ok := ctx.Value(RoleKey{}).(string)
	if !ok || strings.TrimSpace(role) == "" {
		return "", false
	}
	return role, true
}

func idFromContext(ctx context.Context, key any) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(key).(type) {
	case int64:
		if typed == 0 {
			return 0, false
		}
		return snowflake.ID(typed), true
	case snowflake.ID:
		if typed == 0 {
			return 0, false
		}
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err != nil || parsed == 0 {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
