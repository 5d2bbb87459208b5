package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/google/uuid"
)

// FileRepository persists file records. Every read and delete is scoped to
// an owner in the query itself, so a record owned by someone else looks
// exactly like a missing one.
type FileRepository interface {
	Create(ctx context.Context, record model.FileRecord) (*model.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.FileSummary, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.FileRecord, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type fileRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewFileRepository(db *sql.DB) FileRepository {
	return &fileRepository{db: db, now: time.Now}
}

func (r *fileRepository) Create(ctx context.Context, record model.FileRecord) (*model.FileRecord, error) {
	if record.OwnerID == "" {
		return nil, errors.NewValidationError("ownerId", record.OwnerID, "owner is required")
	}

	data, err := json.Marshal(record.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	record.ID = uuid.NewString()
	record.CreatedAt = r.now().UTC().Truncate(time.Microsecond)

	query := `INSERT INTO files (id, owner_id, stored_name, original_name, size_bytes, data, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, record.ID, record.OwnerID, record.StoredName,
		record.OriginalName, record.SizeBytes, string(data), record.CreatedAt)
	if err != nil {
		return nil, errors.NewStorageError("create file", err)
	}

	return &record, nil
}

func (r *fileRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.FileSummary, error) {
	query := `SELECT id, original_name, created_at FROM files
			  WHERE owner_id = ? ORDER BY created_at DESC, seq DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errors.NewStorageError("list files", err)
	}
	defer rows.Close()

	files := []model.FileSummary{}
	for rows.Next() {
		var f model.FileSummary
		if err := rows.Scan(&f.ID, &f.Filename, &f.CreatedAt); err != nil {
			return nil, errors.NewStorageError("list files", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list files", err)
	}

	return files, nil
}

func (r *fileRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.FileRecord, error) {
	query := `SELECT id, owner_id, stored_name, original_name, size_bytes, data, created_at
			  FROM files WHERE id = ? AND owner_id = ?`

	var (
		record model.FileRecord
		data   string
	)
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&record.ID, &record.OwnerID, &record.StoredName, &record.OriginalName,
		&record.SizeBytes, &data, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStorageError("get file", err)
	}

	if err := json.Unmarshal([]byte(data), &record.Data); err != nil {
		return nil, errors.NewStorageError("decode file data", err)
	}

	return &record, nil
}

func (r *fileRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, errors.NewStorageError("delete file", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewStorageError("delete file", err)
	}
	if n == 0 {
		return false, errors.ErrNotFound
	}
	return true, nil
}

func (r *fileRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, errors.NewStorageError("count files", err)
	}
	return count, nil
}
