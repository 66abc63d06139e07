package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edulytics/portal/config"
	"github.com/edulytics/portal/services/profiles"
	"github.com/edulytics/portal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileCookieName identifies the browser profile
const ProfileCookieName = "edulytics_profile"

const profileIssuer = "edulytics-portal"

// ProfileSigner issues and verifies profile cookies. The cookie is an HS256
// JWT whose subject is the profile ID; it carries no session data.
type ProfileSigner struct {
	secret []byte
	now    func() time.Time
}

// NewProfileSigner creates a signer
func NewProfileSigner(secret string) *ProfileSigner {
	return &ProfileSigner{secret: []byte(secret), now: time.Now}
}

// Sign returns a signed token for the profile
func (s *ProfileSigner) Sign(profileID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  profileID,
		Issuer:   profileIssuer,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the profile ID of a valid token
func (s *ProfileSigner) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(profileIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("verify profile cookie: %w", err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("verify profile cookie: subject is not a profile id")
	}
	return claims.Subject, nil
}

// ProfileMiddleware resolves the browser profile of each request and puts
// its session provider on the context
type ProfileMiddleware struct {
	signer   *ProfileSigner
	registry *profiles.Registry
	secure   bool
	maxAge   time.Duration
	logger   *zap.Logger
}

// NewProfileMiddleware creates a ProfileMiddleware
func NewProfileMiddleware(signer *ProfileSigner, registry *profiles.Registry, cfg config.AuthConfig, logger *zap.Logger) *ProfileMiddleware {
	return &ProfileMiddleware{
		signer:   signer,
		registry: registry,
		secure:   cfg.ProfileCookieSecure,
		maxAge:   cfg.ProfileCookieMaxAge,
		logger:   logger,
	}
}

// Identify reads the profile cookie. A missing or invalid cookie starts a
// new profile and sets a fresh cookie.
func (m *ProfileMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		profileID := ""
		if cookie, err := r.Cookie(ProfileCookieName); err == nil && cookie.Value != "" {
			id, err := m.signer.Verify(cookie.Value)
			if err != nil {
				m.logger.Warn("rejected profile cookie",
					zap.String("request_id", requestID),
					zap.Error(err))
			} else {
				profileID = id
			}
		}

		if profileID == "" {
			profileID = uuid.NewString()
			token, err := m.signer.Sign(profileID)
			if err != nil {
				m.logger.Error("failed to sign profile cookie",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteInternalServerError(w, "An internal error occurred")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(m.maxAge.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
			m.logger.Debug("started new profile",
				zap.String("request_id", requestID),
				zap.String("profile_id", profileID))
		}

		ctx = WithProfileID(ctx, profileID)
		ctx = WithProvider(ctx, m.registry.Get(profileID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
