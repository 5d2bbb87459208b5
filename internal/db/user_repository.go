package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"excel-insights-api/internal/model"
	"excel-insights-api/pkg/errors"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db, now: time.Now}
}

const userColumns = `id, username, email, role, password_hash, created_at`

func (r *userRepository) Create(ctx context.Context, user model.User) (*model.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return nil, errors.ErrUserExists
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	user.ID = uuid.NewString()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = r.now().UTC().Truncate(time.Microsecond)
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return nil, errors.NewStorageError("create user", err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "get user")
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row, "get user by email")
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, errors.NewStorageError("list users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, errors.NewStorageError("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("list users", err)
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.User, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Username != "" {
		current.Username = update.Username
	}
	if update.Email != "" && normalizeEmail(update.Email) != current.Email {
		if _, err := r.GetByEmail(ctx, update.Email); err == nil {
			return nil, errors.ErrUserExists
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		current.Email = normalizeEmail(update.Email)
	}

	_, err = r.db.ExecContext(ctx, `UPDATE users SET username = ?, email = ? WHERE id = ?`,
		current.Username, current.Email, id)
	if err != nil {
		return nil, errors.NewStorageError("update user", err)
	}
	return current, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.NewStorageError("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageError("delete user", err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row, op string) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStorageError(op, err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
