package requestctx

import "context"

type ctxKey string

const (
	companyIDKey ctxKey = "company_id"
	userIDKey    ctxKey = "user_id"
)

// WithCompanyID stores the trusted tenant id. HTTP middleware copies it from the
// access token; jobs and cron set it from their payload.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyIDKey, companyID)
}

func CompanyID(ctx context.Context) string {
	if value, ok := ctx.Value(companyIDKey).(string); ok {
		return value
	}
	return ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) string {
	if value, ok := ctx.Value(userIDKey).(string); ok {
		return value
	}
	return ""
}
