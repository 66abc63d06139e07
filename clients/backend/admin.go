package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/edulytics/portal/models"
)

// AddUserRequest enrols a user into an institution
type AddUserRequest struct {
	Email         string `json:"email" validate:"required,email"`
	MobileNumber  string `json:"mobile_number" validate:"required"`
	InstitutionID string `json:"institution_id" validate:"required,uuid"`
	UserID        string `json:"user_id" validate:"required"`
	Role          string `json:"role" validate:"required,oneof=student teacher"`
}

// AddUserResponse is the backend's answer to add-user
type AddUserResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// AssignStudentsRequest links students to a teacher
type AssignStudentsRequest struct {
	TeacherID  string   `json:"teacher_id" validate:"required,uuid"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,uuid"`
}

// CreateInstitutionRequest creates a tenant
type CreateInstitutionRequest struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
	Code string `json:"code,omitempty" validate:"omitempty,max=50"`
}

// MessageResponse is a bare acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// AddUser enrols a user into an institution
func (c *Client) AddUser(ctx context.Context, token string, req AddUserRequest) (*AddUserResponse, error) {
	var out AddUserResponse
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/admin/add-user",
		token:    token,
		json:     req,
		fallback: "Failed to add user",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignStudents links students to a teacher
func (c *Client) AssignStudents(ctx context.Context, token string, req AssignStudentsRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/admin/assign-students",
		token:    token,
		json:     req,
		fallback: "Failed to assign students",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func institutionQuery(institutionID string) url.Values {
	if institutionID == "" {
		return nil
	}
	return url.Values{"institution_id": {institutionID}}
}

// ListUsers lists users, optionally filtered to one institution
func (c *Client) ListUsers(ctx context.Context, token, institutionID string) ([]models.UserProfile, error) {
	var out []models.UserProfile
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/admin/users",
		query:    institutionQuery(institutionID),
		token:    token,
		fallback: "Failed to load users",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTeachers lists teachers, optionally filtered to one institution
func (c *Client) ListTeachers(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error) {
	var out []models.DirectoryUser
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/admin/teachers",
		query:    institutionQuery(institutionID),
		token:    token,
		fallback: "Failed to load teachers",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStudents lists students, optionally filtered to one institution
func (c *Client) ListStudents(ctx context.Context, token, institutionID string) ([]models.DirectoryUser, error) {
	var out []models.DirectoryUser
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/admin/students",
		query:    institutionQuery(institutionID),
		token:    token,
		fallback: "Failed to load students",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListInstitutions lists the institutions visible to the admin
func (c *Client) ListInstitutions(ctx context.Context, token string) ([]models.Institution, error) {
	var out []models.Institution
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/admin/institutions",
		token:    token,
		fallback: "Failed to load institutions",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInstitution creates a tenant; the backend only allows developer admins
func (c *Client) CreateInstitution(ctx context.Context, token string, req CreateInstitutionRequest) (*models.Institution, error) {
	var out models.Institution
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/admin/institutions",
		token:    token,
		json:     req,
		fallback: "Failed to create institution",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
