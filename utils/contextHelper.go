package utils

import (
	"context"

	"github.com/warelink/stocksync_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyUsername        = appctx.ContextKeyUsername
	ContextKeyUserId          = appctx.ContextKeyUserId
	ContextKeyCorrelationId   = appctx.ContextKeyCorrelationId
	ContextKeyAPIKey          = appctx.ContextKeyAPIKey
	ContextKeyCredentialLabel = appctx.ContextKeyCredentialLabel
)

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetAPIKeyFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAPIKey)
}

func GetCredentialLabelFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCredentialLabel)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetAPIKeyInContext(ctx context.Context, apiKey string) context.Context {
	return appctx.Set(ctx, ContextKeyAPIKey, apiKey)
}

func SetCredentialLabelInContext(ctx context.Context, label string) context.Context {
	return appctx.Set(ctx, ContextKeyCredentialLabel, label)
}
