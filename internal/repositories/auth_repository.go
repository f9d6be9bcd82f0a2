package repositories

import (
	"context"
	"fmt"

	"gaming_lounge_backend/internal/models"
)

const selectUserFields = `SELECT id, username, password_hash, full_name, role, is_active, created_at, updated_at FROM staff_users`

type pgUserRepository struct {
	ex SQLExecutor
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new staff account. The username constraint surfaces as ErrDuplicateKey.
func (r *pgUserRepository) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO staff_users (id, username, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.ex.ExecContext(ctx, query,
		u.ID, u.Username, u.PasswordHash, u.FullName, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapPQError(err, "creating user")
	}
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.ex.QueryRowContext(ctx, selectUserFields+" WHERE id = $1", id))
	if err != nil {
		return nil, mapPQError(err, fmt.Sprintf("finding user by id %s", id))
	}
	return u, nil
}

func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.ex.QueryRowContext(ctx, selectUserFields+" WHERE lower(username) = lower($1)", username))
	if err != nil {
		return nil, mapPQError(err, "finding user by username")
	}
	return u, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.ex.QueryContext(ctx, selectUserFields+" ORDER BY username")
	if err != nil {
		return nil, mapPQError(err, "listing users")
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating users: %v", ErrDatabaseError, err)
	}
	return users, nil
}

func (r *pgUserRepository) Update(ctx context.Context, u *models.User) error {
	query := `UPDATE staff_users SET password_hash = $2, full_name = $3, role = $4, is_active = $5, updated_at = $6
	          WHERE id = $1`
	res, err := r.ex.ExecContext(ctx, query, u.ID, u.PasswordHash, u.FullName, u.Role, u.IsActive, u.UpdatedAt)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("updating user %s", u.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM staff_users WHERE role = $1 AND is_active", models.RoleAdmin).Scan(&n)
	if err != nil {
		return 0, mapPQError(err, "counting admins")
	}
	return n, nil
}
