package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-publisher/internal/models"
)

// UserRepository reads administrator contacts from the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FirstActiveAdminEmail returns the email of the oldest active superadmin,
// falling back to admins. An empty string means nobody qualifies.
func (r *UserRepository) FirstActiveAdminEmail(ctx context.Context) (string, error) {
	const query = `SELECT email FROM users WHERE active = TRUE AND email <> '' AND role IN ($1, $2) ORDER BY CASE WHEN role = $1 THEN 0 ELSE 1 END, created_at ASC, id ASC LIMIT 1`
	var email string
	if err := r.db.GetContext(ctx, &email, query, models.RoleSuperAdmin, models.RoleAdmin); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("first active admin email: %w", err)
	}
	return email, nil
}
