package service

import (
	"context"
	"strings"

	"excel-insights-api/internal/auth"
	"excel-insights-api/internal/db"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/rs/zerolog"
)

type AccountService struct {
	users  db.UserRepository
	tokens *auth.TokenManager
	log    zerolog.Logger
}

func NewAccountService(users db.UserRepository, tokens *auth.TokenManager) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		log:    logger.Component("account_service"),
	}
}

func (s *AccountService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, errors.NewValidationError("user", req.Email, "all fields are required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		Role:         model.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("User signed up")
	return s.respond(user)
}

func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.ComparePassword(user.PasswordHash, req.Password) {
		return nil, errors.ErrInvalidCredentials
	}
	return s.respond(user)
}

func (s *AccountService) Me(ctx context.Context, id auth.Identity) (*model.User, error) {
	if id.UserID == "" {
		return nil, errors.ErrUnauthorized
	}
	return s.users.GetByID(ctx, id.UserID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, id auth.Identity, update model.ProfileUpdate) (*model.User, error) {
	if id.UserID == "" {
		return nil, errors.ErrUnauthorized
	}
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)
	return s.users.UpdateProfile(ctx, id.UserID, update)
}

func (s *AccountService) respond(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Token:    token,
	}, nil
}
