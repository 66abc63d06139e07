package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/edulytics/portal/models"
)

// TokenResponse is the bearer token issued by /auth/login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest is the body of /auth/register. Optional fields go out as null.
type RegisterRequest struct {
	Name         *string `json:"name"`
	Email        string  `json:"email"`
	MobileNumber *string `json:"mobile_number"`
	AccountType  string  `json:"account_type"`
	Password     string  `json:"password"`
}

// AdminLoginResponse is the body of a successful admin login
type AdminLoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	Admin       models.AdminUser `json:"admin"`
}

// AdminLogin exchanges admin credentials for a token and the admin record
func (c *Client) AdminLogin(ctx context.Context, email, password string) (*AdminLoginResponse, error) {
	var out AdminLoginResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/admin/login",
		json:     map[string]string{"email": email, "password": password},
		fallback: "Login failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UserLogin exchanges personal credentials for a bearer token (OAuth2 password form)
func (c *Client) UserLogin(ctx context.Context, email, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		form:     url.Values{"username": {email}, "password": {password}},
		fallback: "Login failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile owning the bearer token
func (c *Client) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	var out models.UserProfile
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/auth/me",
		token:    token,
		fallback: "Could not load profile",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a personal account. The backend answers 201 with the new
// user; a taken email comes back as 400 "Email already registered".
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*models.UserProfile, error) {
	var out models.UserProfile
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		json:     in,
		fallback: "Signup failed. Please try again.",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
