package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id, last_name, first_name, email, role, entity, unit,
	has_fixed_allowance, admin_granted_by, admin_since,
	workplace_address, workplace_lat, workplace_lng,
	home_address, home_lat, home_lng,
	created_at, updated_at, removed_at
`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	wpAddr, wpLat, wpLng := locationColumns(user.Workplace)
	hmAddr, hmLat, hmLng := locationColumns(user.Home)

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.LastName,
		user.FirstName,
		user.Email,
		string(user.Role),
		user.Entity,
		user.Unit,
		user.HasFixedAllowance,
		nullString(user.AdminGrantedBy),
		nullTime(user.AdminSince),
		wpAddr, wpLat, wpLng,
		hmAddr, hmLat, hmLng,
		user.CreatedAt,
		user.UpdatedAt,
		nullTime(user.RemovedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List retrieves users; removed users are filtered out unless asked for
func (r *UserRepository) List(ctx context.Context, includeRemoved bool) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeRemoved {
		query += ` WHERE removed_at IS NULL`
	}
	query += ` ORDER BY last_name, first_name`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update rewrites a user's mutable fields
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			last_name = ?, first_name = ?, email = ?, role = ?,
			entity = ?, unit = ?, has_fixed_allowance = ?,
			admin_granted_by = ?, admin_since = ?,
			workplace_address = ?, workplace_lat = ?, workplace_lng = ?,
			home_address = ?, home_lat = ?, home_lng = ?,
			updated_at = ?
		WHERE id = ?
	`

	wpAddr, wpLat, wpLng := locationColumns(user.Workplace)
	hmAddr, hmLat, hmLng := locationColumns(user.Home)

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		user.LastName,
		user.FirstName,
		user.Email,
		string(user.Role),
		user.Entity,
		user.Unit,
		user.HasFixedAllowance,
		nullString(user.AdminGrantedBy),
		nullTime(user.AdminSince),
		wpAddr, wpLat, wpLng,
		hmAddr, hmLat, hmLng,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SoftRemove marks a user removed without deleting the row
func (r *UserRepository) SoftRemove(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET removed_at = ?, updated_at = ? WHERE id = ? AND removed_at IS NULL`

	_, err := executorFor(ctx, r.db).ExecContext(ctx, query, at, at, id)
	if err != nil {
		r.logger.Error("Failed to remove user", zap.String("user_id", id), zap.Error(err))
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var role string
	var adminGrantedBy sql.NullString
	var adminSince, removedAt sql.NullTime
	var wpAddr, hmAddr sql.NullString
	var wpLat, wpLng, hmLat, hmLng sql.NullFloat64

	err := row.Scan(
		&user.ID,
		&user.LastName,
		&user.FirstName,
		&user.Email,
		&role,
		&user.Entity,
		&user.Unit,
		&user.HasFixedAllowance,
		&adminGrantedBy,
		&adminSince,
		&wpAddr, &wpLat, &wpLng,
		&hmAddr, &hmLat, &hmLng,
		&user.CreatedAt,
		&user.UpdatedAt,
		&removedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = entity.Role(role)
	user.AdminGrantedBy = adminGrantedBy.String
	if adminSince.Valid {
		user.AdminSince = &adminSince.Time
	}
	if removedAt.Valid {
		user.RemovedAt = &removedAt.Time
	}
	user.Workplace = locationFrom(wpAddr, wpLat, wpLng)
	user.Home = locationFrom(hmAddr, hmLat, hmLng)
	return &user, nil
}

func locationColumns(loc *entity.Location) (sql.NullString, sql.NullFloat64, sql.NullFloat64) {
	if loc == nil {
		return sql.NullString{}, sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullString{String: loc.Address, Valid: true},
		sql.NullFloat64{Float64: loc.Latitude, Valid: true},
		sql.NullFloat64{Float64: loc.Longitude, Valid: true}
}

func locationFrom(addr sql.NullString, lat, lng sql.NullFloat64) *entity.Location {
	if !addr.Valid && !lat.Valid {
		return nil
	}
	return &entity.Location{Address: addr.String, Latitude: lat.Float64, Longitude: lng.Float64}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
