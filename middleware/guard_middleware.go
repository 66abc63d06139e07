package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/edulytics/portal/services/audit"
	"github.com/edulytics/portal/services/guard"
	"github.com/edulytics/portal/utils"
	"go.uber.org/zap"
)

// checkingRetryAfter is the Retry-After, in seconds, sent while sessions restore
const checkingRetryAfter = 1

// GuardAuditor records guard denials
type GuardAuditor interface {
	LogGuardDenied(profileID, policy, path, redirect string, meta audit.RequestMeta) error
}

// GuardMiddleware protects routes with a guard policy
type GuardMiddleware struct {
	settleTimeout time.Duration
	auditor       GuardAuditor
	logger        *zap.Logger
}

// NewGuardMiddleware creates a GuardMiddleware. auditor may be nil.
func NewGuardMiddleware(settleTimeout time.Duration, auditor GuardAuditor, logger *zap.Logger) *GuardMiddleware {
	return &GuardMiddleware{
		settleTimeout: settleTimeout,
		auditor:       auditor,
		logger:        logger,
	}
}

// Require admits requests the policy allows. While the session the policy
// depends on is still restoring it waits up to the settle timeout and then
// answers 202 without a redirect. A denial is a 303 to the policy's login path.
// Must run after ProfileMiddleware.Identify.
func (m *GuardMiddleware) Require(policy guard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			provider := GetProviderFromContext(ctx)
			if provider == nil {
				m.logger.Error("guard without profile provider",
					zap.String("request_id", requestID))
				_ = utils.WriteInternalServerError(w, "An internal error occurred")
				return
			}

			if m.settleTimeout > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, m.settleTimeout)
				err := provider.WaitReady(waitCtx, policy.Provider())
				cancel()
				if err != nil && errors.Is(ctx.Err(), context.Canceled) {
					return
				}
			}

			decision := guard.Evaluate(policy, provider.Snapshot())
			switch decision.State {
			case guard.StateAllowed:
				next.ServeHTTP(w, r)

			case guard.StateChecking:
				m.logger.Debug("guard still checking",
					zap.String("request_id", requestID),
					zap.String("guard", policy.Name()))
				_ = utils.WriteAccepted(w, checkingRetryAfter, decision)

			default:
				m.logger.Info("guard denied request",
					zap.String("request_id", requestID),
					zap.String("profile_id", provider.ID),
					zap.String("guard", policy.Name()),
					zap.String("path", r.URL.Path))
				if m.auditor != nil {
					if err := m.auditor.LogGuardDenied(provider.ID, policy.Name(), r.URL.Path, decision.Redirect, RequestMeta(r)); err != nil {
						m.logger.Debug("guard denial not audited", zap.Error(err))
					}
				}
				_ = utils.WriteSeeOther(w, decision.Redirect, decision)
			}
		})
	}
}
