package middleware

import (
	"context"
	"net/http"

	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/profiles"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ProfileIDKey is the context key for the browser profile ID
	ProfileIDKey contextKey = "profile_id"

	// ProviderKey is the context key for the profile's session provider
	ProviderKey contextKey = "provider"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetProfileIDFromContext retrieves the profile ID from context
func GetProfileIDFromContext(ctx context.Context) string {
	if val := ctx.Value(ProfileIDKey); val != nil {
		if profileID, ok := val.(string); ok {
			return profileID
		}
	}
	return ""
}

// WithProfileID adds a profile ID to the context
func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, ProfileIDKey, profileID)
}

// GetProviderFromContext retrieves the session provider from context
func GetProviderFromContext(ctx context.Context) *profiles.Provider {
	if val := ctx.Value(ProviderKey); val != nil {
		if p, ok := val.(*profiles.Provider); ok {
			return p
		}
	}
	return nil
}

// WithProvider adds a session provider to the context
func WithProvider(ctx context.Context, p *profiles.Provider) context.Context {
	return context.WithValue(ctx, ProviderKey, p)
}

// RequestMeta collects the request fields recorded with audit events
func RequestMeta(r *http.Request) audit.RequestMeta {
	return audit.RequestMeta{
		RequestID: GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}
