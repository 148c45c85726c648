package profiles

import (
	"context"
	"errors"
	"fmt"

	"taxi-booking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines methods for interacting with profile storage.
type RepositoryInterface interface {
	FindByID(ctx context.Context, userID string) (*models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetRole(ctx context.Context, userID string) (models.Role, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const profileColumns = `id::text, email, role, auth_provider, COALESCE(password_hash, ''), created_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.Role, &p.AuthProvider, &p.PasswordHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) FindByID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return p, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	p, err := scanProfile(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByEmail: %w", err)
	}
	return p, nil
}

// Create inserts a profile with the default role. A duplicate email yields ErrConflict.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `INSERT INTO profiles (email, auth_provider, password_hash)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query, profile.Email, profile.AuthProvider, profile.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("repository.Create: %w", err)
	}
	return p, nil
}

// GetRole reads only the role column; used on every admin request.
func (r *Repository) GetRole(ctx context.Context, userID string) (models.Role, error) {
	var role models.Role
	err := r.db.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("repository.GetRole: %w", err)
	}
	return role, nil
}
