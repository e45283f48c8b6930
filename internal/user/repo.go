package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("user: not found")

// User is the slice of the account row the checkout pipeline needs.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides account reads. Registration and auth live in the identity
// service; this API only verifies and addresses existing accounts.
type Repo struct {
	DB Querier
}

// GetByID loads a user by identifier.
func (r Repo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, email, name, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
