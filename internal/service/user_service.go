package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"caseworker-tasks/internal/apperr"
	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/domain"
	"caseworker-tasks/internal/repo"
	"caseworker-tasks/pkg/utils"
)

const msgInvalidCredentials = "Invalid email or password"

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// ProfileInput is a partial update; nil fields are left alone.
type ProfileInput struct {
	Name  *string
	Email *string
}

type AuthResult struct {
	User  *domain.PublicUser `json:"user"`
	Token string             `json:"token"`
}

type UserPage struct {
	Users      []*domain.PublicUser `json:"users"`
	Pagination Pagination           `json:"pagination"`
}

type UserService struct {
	users  domain.UserRepository
	hasher *auth.Hasher
	jwt    *auth.JWTer
	log    *zap.Logger
}

func NewUserService(users domain.UserRepository, hasher *auth.Hasher, jwt *auth.JWTer, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, hasher: hasher, jwt: jwt, log: log.Named("users")}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("User with this email already exists")
	}

	role := in.Role
	if role == "" {
		role = domain.RoleCaseworker
	}
	if !role.Valid() {
		return nil, apperr.Validation("Validation failed", apperr.FieldError{Field: "role", Message: "role must be one of caseworker, supervisor, admin"})
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, apperr.Internal("Failed to register user", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return s.authResult(u, "Failed to register user")
}

// Login reports the same error for an unknown email and a wrong password.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperr.Internal("Failed to login", err)
	}
	if u == nil || !s.hasher.Verify(password, u.PasswordHash) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	return s.authResult(u, "Failed to login")
}

func (s *UserService) authResult(u *domain.User, failMsg string) (*AuthResult, error) {
	tok, err := s.jwt.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return &AuthResult{User: u.Public(), Token: tok}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.PublicUser, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to get user profile", err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u.Public(), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.PublicUser, error) {
	const failMsg = "Failed to update user profile"
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != u.Email {
			other, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, apperr.Internal(failMsg, err)
			}
			if other != nil && other.ID != userID {
				return nil, apperr.Conflict("Email is already taken")
			}
			fields["email"] = email
		}
	}
	if len(fields) == 0 {
		return u.Public(), nil
	}
	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("Email is already taken")
		}
		return nil, apperr.Internal(failMsg, err)
	}

	u, err = s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u.Public(), nil
}

// Role returns the stored role of userID. The token only carries the id,
// so role changes apply on the next request.
func (s *UserService) Role(ctx context.Context, userID string) (domain.Role, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", apperr.Internal("Failed to load user", err)
	}
	if u == nil {
		return "", apperr.Unauthorized("User not found")
	}
	return u.Role, nil
}

func (s *UserService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = clampPage(page, limit)
	users, total, err := s.users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch users", err)
	}
	out := make([]*domain.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return &UserPage{Users: out, Pagination: newPagination(page, limit, total)}, nil
}
