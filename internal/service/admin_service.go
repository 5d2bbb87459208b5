package service

import (
	"context"
	"fmt"
	"strings"

	"excel-insights-api/internal/auth"
	"excel-insights-api/internal/db"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/rs/zerolog"
)

// AdminService exposes system settings and user administration. Every
// operation is gated by the ManageSystem permission.
type AdminService struct {
	settings db.SettingsRepository
	users    db.UserRepository
	policy   *auth.Policy
	log      zerolog.Logger
}

func NewAdminService(settings db.SettingsRepository, users db.UserRepository, policy *auth.Policy) *AdminService {
	return &AdminService{
		settings: settings,
		users:    users,
		policy:   policy,
		log:      logger.Component("admin_service"),
	}
}

func (s *AdminService) GetSettings(ctx context.Context, id auth.Identity) (*model.SystemSettings, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	return s.settings.GetOrCreate(ctx)
}

func (s *AdminService) UpdateSettings(ctx context.Context, id auth.Identity, update model.SettingsUpdate) (*model.SystemSettings, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}

	if update.MaxFileSize <= 0 {
		return nil, errors.NewValidationError("maxFileSize", update.MaxFileSize, "must be a positive number")
	}
	exts, err := parseExtensions(update.AllowedFileTypes)
	if err != nil {
		return nil, err
	}

	updated, err := s.settings.Update(ctx, model.SystemSettings{
		MaxFileSizeMB:         update.MaxFileSize,
		AllowedFileExtensions: exts,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("admin_id", id.UserID).
		Float64("max_file_size_mb", updated.MaxFileSizeMB).
		Strs("allowed_file_types", updated.AllowedFileExtensions).
		Msg("System settings updated")
	return updated, nil
}

func (s *AdminService) ListUsers(ctx context.Context, id auth.Identity) ([]model.User, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *AdminService) GetUser(ctx context.Context, id auth.Identity, userID string) (*model.User, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	if err := validateID("id", userID); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *AdminService) DeleteUser(ctx context.Context, id auth.Identity, userID string) error {
	if err := s.authorize(id); err != nil {
		return err
	}
	if err := validateID("id", userID); err != nil {
		return err
	}
	if userID == id.UserID {
		return errors.ErrSelfDeletion
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("admin_id", id.UserID).Str("user_id", userID).Msg("User deleted")
	return nil
}

func (s *AdminService) authorize(id auth.Identity) error {
	if id.UserID == "" {
		return errors.ErrUnauthorized
	}
	if decision := s.policy.Check(id, auth.ManageSystem); !decision.Allowed() {
		s.log.Warn().Str("user_id", id.UserID).Str("role", string(id.Role)).Msg("Admin access denied")
		return errors.ErrForbidden
	}
	return nil
}

// parseExtensions accepts a JSON array or a comma separated string and
// returns lower-cased extensions with a leading dot.
func parseExtensions(raw interface{}) ([]string, error) {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, errors.NewValidationError("allowedFileTypes", raw, fmt.Sprintf("unexpected entry %v", item))
			}
			items = append(items, str)
		}
	default:
		return nil, errors.NewValidationError("allowedFileTypes", raw, "must be an array or a comma separated string")
	}

	exts := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		ext := strings.ToLower(strings.TrimSpace(item))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !seen[ext] {
			seen[ext] = true
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return nil, errors.NewValidationError("allowedFileTypes", raw, "at least one file type is required")
	}
	return exts, nil
}
