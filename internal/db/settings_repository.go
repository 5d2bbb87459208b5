package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"
)

// settingsRowID is the primary key of the single system_settings row.
const settingsRowID = 1

type SettingsRepository interface {
	// GetOrCreate returns the stored settings, inserting the defaults first
	// when none exist.
	GetOrCreate(ctx context.Context) (*model.SystemSettings, error)
	Update(ctx context.Context, settings model.SystemSettings) (*model.SystemSettings, error)
}

type settingsRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewSettingsRepository(db *sql.DB, driver string) SettingsRepository {
	return &settingsRepository{db: db, driver: driver, now: time.Now}
}

func (r *settingsRepository) GetOrCreate(ctx context.Context) (*model.SystemSettings, error) {
	settings, err := r.get(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	defaults := model.DefaultSettings()
	if err := r.insertIgnore(ctx, defaults); err != nil {
		return nil, err
	}
	// a concurrent first read may have inserted before us; read back the winner
	return r.get(ctx)
}

func (r *settingsRepository) Update(ctx context.Context, settings model.SystemSettings) (*model.SystemSettings, error) {
	types, err := json.Marshal(settings.AllowedFileExtensions)
	if err != nil {
		return nil, errors.NewStorageError("encode settings", err)
	}
	settings.UpdatedAt = r.now().UTC().Truncate(time.Microsecond)

	res, err := r.db.ExecContext(ctx,
		`UPDATE system_settings SET max_file_size_mb = ?, allowed_file_types = ?, updated_at = ? WHERE id = ?`,
		settings.MaxFileSizeMB, string(types), settings.UpdatedAt, settingsRowID)
	if err != nil {
		return nil, errors.NewStorageError("update settings", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if err := r.insertIgnore(ctx, settings); err != nil {
			return nil, err
		}
		return r.get(ctx)
	}

	return &settings, nil
}

func (r *settingsRepository) get(ctx context.Context) (*model.SystemSettings, error) {
	var (
		settings model.SystemSettings
		types    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT max_file_size_mb, allowed_file_types, updated_at FROM system_settings WHERE id = ?`,
		settingsRowID,
	).Scan(&settings.MaxFileSizeMB, &types, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStorageError("get settings", err)
	}

	if err := json.Unmarshal([]byte(types), &settings.AllowedFileExtensions); err != nil {
		return nil, errors.NewStorageError("decode settings", err)
	}
	return &settings, nil
}

func (r *settingsRepository) insertIgnore(ctx context.Context, settings model.SystemSettings) error {
	types, err := json.Marshal(settings.AllowedFileExtensions)
	if err != nil {
		return errors.NewStorageError("encode settings", err)
	}

	verb := "INSERT IGNORE"
	if r.driver == "sqlite3" {
		verb = "INSERT OR IGNORE"
	}
	query := verb + ` INTO system_settings (id, max_file_size_mb, allowed_file_types, updated_at) VALUES (?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query, settingsRowID, settings.MaxFileSizeMB, string(types),
		r.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return errors.NewStorageError("create settings", err)
	}
	return nil
}
