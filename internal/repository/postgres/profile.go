package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/pkg/database"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool database.DBTX
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(pool database.DBTX) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get retrieves a profile by user id.
func (r *ProfileRepository) Get(ctx context.Context, id string) (_ *domain.Profile, err error) {
	ctx, end := database.TraceQuery(ctx, "GetProfile", "SELECT FROM profiles WHERE id")
	defer func() { end(ignoreNoRows(err)) }()

	query := `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(address, ''), COALESCE(phone_number, ''),
			   COALESCE(pincode, ''), is_admin, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	var p domain.Profile
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Address,
		&p.PhoneNumber,
		&p.Pincode,
		&p.IsAdmin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile", id)
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// Upsert inserts the profile or updates the contact fields of an existing one.
// The admin flag is never changed through this path.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertProfile", "INSERT INTO profiles ON CONFLICT")
	defer func() { end(err) }()

	query := `
		INSERT INTO profiles (id, email, full_name, address, phone_number, pincode, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			address = EXCLUDED.address,
			phone_number = EXCLUDED.phone_number,
			pincode = EXCLUDED.pincode,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Email,
		p.FullName,
		p.Address,
		p.PhoneNumber,
		p.Pincode,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// CountCustomers returns the number of non-admin profiles.
func (r *ProfileRepository) CountCustomers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE is_admin = FALSE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
