package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"excel-insights-api/internal/auth"
	"excel-insights-api/internal/db"
	"excel-insights-api/internal/excel"
	"excel-insights-api/internal/logger"
	"excel-insights-api/internal/model"
	"excel-insights-api/internal/storage"
	"excel-insights-api/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	chartsPerFile  = 5
	importsPerFile = 2
)

// CleanupEnqueuer schedules removal of blobs that outlived their record.
type CleanupEnqueuer interface {
	EnqueueBlobCleanup(ctx context.Context, job model.BlobCleanupJob) error
}

type UploadInput struct {
	Filename string
	MIMEType string
	Size     int64
	Data     []byte
}

// Download is an open blob plus the name the client should save it under.
// The caller closes Body.
type Download struct {
	Body     io.ReadCloser
	Filename string
	Size     int64
}

type FileService struct {
	files      db.FileRepository
	settings   db.SettingsRepository
	storage    storage.Storage
	normalizer *excel.Normalizer
	validator  *excel.Validator
	policy     *auth.Policy
	cleanup    CleanupEnqueuer
	now        func() time.Time
	log        zerolog.Logger
}

func NewFileService(
	files db.FileRepository,
	settings db.SettingsRepository,
	store storage.Storage,
	normalizer *excel.Normalizer,
	validator *excel.Validator,
	policy *auth.Policy,
) *FileService {
	return &FileService{
		files:      files,
		settings:   settings,
		storage:    store,
		normalizer: normalizer,
		validator:  validator,
		policy:     policy,
		now:        time.Now,
		log:        logger.Component("file_service"),
	}
}

// WithCleanup enables deferred blob removal when a delete cannot remove the
// binary inline.
func (s *FileService) WithCleanup(enqueuer CleanupEnqueuer) *FileService {
	s.cleanup = enqueuer
	return s
}

// Upload validates, normalizes and persists one workbook. Nothing is stored
// unless normalization succeeds, and no record exists without its blob.
func (s *FileService) Upload(ctx context.Context, id auth.Identity, in UploadInput) (*model.FileRecord, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Filename) == "" || len(in.Data) == 0 {
		return nil, errors.NewValidationError("file", in.Filename, "no file uploaded")
	}
	if err := s.validator.ValidateMIME(in.MIMEType); err != nil {
		return nil, err
	}

	settings, err := s.settings.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	meta := excel.UploadMeta{Filename: in.Filename, Size: in.Size}
	if err := s.validator.Validate(meta, *settings); err != nil {
		return nil, err
	}

	data, err := s.normalizer.NormalizeAs(ctx, in.Data, excel.DetectFormat(in.Data, in.Filename))
	if err != nil {
		s.log.Warn().Err(err).Str("filename", in.Filename).Str("user_id", id.UserID).Msg("Failed to normalize upload")
		return nil, err
	}

	storedName := StoredName(s.now(), in.Filename)
	if err := s.storage.Upload(ctx, storedName, bytes.NewReader(in.Data)); err != nil {
		return nil, errors.NewStorageError("store upload", err)
	}

	record, err := s.files.Create(ctx, model.FileRecord{
		OwnerID:      id.UserID,
		StoredName:   storedName,
		OriginalName: in.Filename,
		SizeBytes:    in.Size,
		Data:         data,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, storedName); delErr != nil {
			s.log.Error().Err(delErr).Str("stored_name", storedName).Msg("Failed to remove blob after record write failed")
		}
		return nil, err
	}

	s.log.Info().
		Str("file_id", record.ID).
		Str("user_id", id.UserID).
		Int("sheets", len(data)).
		Int("rows", data.TotalRows()).
		Msg("File processed")

	return record, nil
}

func (s *FileService) List(ctx context.Context, id auth.Identity) ([]model.FileSummary, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	return s.files.ListByOwner(ctx, id.UserID)
}

func (s *FileService) Get(ctx context.Context, id auth.Identity, fileID string) (*model.FileRecord, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}
	if err := validateID("id", fileID); err != nil {
		return nil, err
	}
	return s.files.GetByIDAndOwner(ctx, fileID, id.UserID)
}

// Delete removes the record and then its blob. A blob that cannot be removed
// is logged and handed to the cleanup queue; the delete still succeeds.
func (s *FileService) Delete(ctx context.Context, id auth.Identity, fileID string) error {
	if err := s.authorize(id); err != nil {
		return err
	}
	if err := validateID("id", fileID); err != nil {
		return err
	}

	record, err := s.files.GetByIDAndOwner(ctx, fileID, id.UserID)
	if err != nil {
		return err
	}
	if _, err := s.files.DeleteByIDAndOwner(ctx, fileID, id.UserID); err != nil {
		return err
	}

	err = s.storage.Delete(ctx, record.StoredName)
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return nil
	}

	log := s.log.With().Str("file_id", fileID).Str("stored_name", record.StoredName).Logger()
	log.Error().Err(err).Msg("File record deleted but blob removal failed")

	if s.cleanup == nil {
		return nil
	}
	job := model.BlobCleanupJob{StoredName: record.StoredName, FileID: fileID, OwnerID: id.UserID}
	if err := s.cleanup.EnqueueBlobCleanup(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue blob cleanup")
	}
	return nil
}

// DownloadBinary opens the stored upload. A record whose blob is missing is
// reported as not found.
func (s *FileService) DownloadBinary(ctx context.Context, id auth.Identity, fileID string) (*Download, error) {
	record, err := s.Get(ctx, id, fileID)
	if err != nil {
		return nil, err
	}

	body, err := s.storage.Download(ctx, record.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Error().Str("file_id", fileID).Str("stored_name", record.StoredName).Msg("File record has no stored binary")
			return nil, fmt.Errorf("%w: binary for file %s is missing", errors.ErrNotFound, fileID)
		}
		return nil, errors.NewStorageError("open upload", err)
	}

	return &Download{Body: body, Filename: record.OriginalName, Size: record.SizeBytes}, nil
}

// DashboardStats reports the exact file count. The other counters are fixed
// multiples of it and are listed in Estimated.
func (s *FileService) DashboardStats(ctx context.Context, id auth.Identity) (*model.DashboardStats, error) {
	if err := s.authorize(id); err != nil {
		return nil, err
	}

	count, err := s.files.CountByOwner(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	return &model.DashboardStats{
		FilesProcessed: count,
		ChartsCreated:  count * chartsPerFile,
		ChartImports:   count * importsPerFile,
		Estimated:      []string{"chartsCreated", "chartImports"},
	}, nil
}

func (s *FileService) authorize(id auth.Identity) error {
	if id.UserID == "" {
		return errors.ErrUnauthorized
	}
	if !s.policy.Check(id, auth.ManageOwnFiles).Allowed() {
		return errors.ErrForbidden
	}
	return nil
}

// StoredName builds a collision resistant blob key from the upload time and
// a sanitized base name.
func StoredName(at time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		clean = "upload"
	}
	return fmt.Sprintf("%d-%s", at.UnixNano(), clean)
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidationError(field, id, "malformed id")
	}
	return nil
}
