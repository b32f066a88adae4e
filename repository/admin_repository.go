package repository

import (
	"context"
	"fmt"

	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
)

// AdminRepository stores principals holding the admin capability
type AdminRepository struct {
	q Queryable
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{q: db.Pool}
}

// NewAdminRepositoryWithTx creates a new admin repository bound to a transaction
func NewAdminRepositoryWithTx(tx Queryable) interfaces.AdminRepository {
	return &AdminRepository{q: tx}
}

// Grant is idempotent
func (r *AdminRepository) Grant(ctx context.Context, principal entities.Principal) error {
	_, err := r.q.Exec(ctx, `INSERT INTO admins (principal) VALUES ($1) ON CONFLICT (principal) DO NOTHING`, principal)
	if err != nil {
		return fmt.Errorf("failed to grant admin to %s: %w", principal, err)
	}
	return nil
}

func (r *AdminRepository) IsAdmin(ctx context.Context, principal entities.Principal) (bool, error) {
	var isAdmin bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE principal = $1)`, principal).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to check admin %s: %w", principal, err)
	}
	return isAdmin, nil
}
