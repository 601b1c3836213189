package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

type UserRepo struct{ q querier }

const userCols = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if pgCode(err) == codeUniqueViolation {
		return apperr.New(apperr.Conflict, "User already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		return model.User{}, notFound(err, apperr.NotFound, "User not found", "get user")
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=lower($1)`, email))
	if err != nil {
		return model.User{}, notFound(err, apperr.NotFound, "User not found", "get user by email")
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context, page model.PageRequest) ([]model.User, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := r.q.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY email OFFSET $1 LIMIT $2`,
		page.Skip(), page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE(lower($3), email),
			updated_at = now()
		WHERE id=$1
		RETURNING `+userCols, id, patch.Name, patch.Email))
	if pgCode(err) == codeUniqueViolation {
		return model.User{}, apperr.New(apperr.Conflict, "User already exists")
	}
	if err != nil {
		return model.User{}, notFound(err, apperr.NotFound, "User not found", "update user")
	}
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	ct, err := r.q.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "No such user found")
	}
	return nil
}

func (r *UserRepo) HasRole(ctx context.Context, role model.Role) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE role=$1)`, string(role)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return ok, nil
}
