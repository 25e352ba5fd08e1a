package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/connecthub/backend/internal/db"
	"github.com/connecthub/backend/internal/models"
)

// PostgresProfileRepository provides PostgreSQL-backed persistence for
// accounts and profiles.
type PostgresProfileRepository struct {
	pool db.Pool
}

// NewPostgresProfileRepository constructs a profile repository backed by PostgreSQL.
func NewPostgresProfileRepository(pool db.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

const profileColumns = `
    SELECT pr.id, pr.account_id, ac.username, pr.bio, pr.gender, pr.age, pr.picture_url, pr.created_at
    FROM profiles pr
    JOIN accounts ac ON ac.id = pr.account_id
`

// likeEscaper neutralizes LIKE metacharacters in user-supplied search text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Register persists the account and its profile inside a single transaction.
func (r *PostgresProfileRepository) Register(ctx context.Context, account models.Account, profile models.Profile) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin register transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO accounts (id, username, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, account.ID, account.Username, account.Email, account.PasswordHash, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return registerConflict(err, "insert account")
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO profiles (id, account_id, bio, gender, age, picture_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, profile.ID, account.ID, profile.Bio, profile.Gender, ageParam(profile.Age), profile.PictureURL, profile.CreatedAt)
	if err != nil {
		return registerConflict(err, "insert profile")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit register transaction: %w", err)
	}

	return nil
}

// FindAccountByUsername fetches an account by its username.
func (r *PostgresProfileRepository) FindAccountByUsername(ctx context.Context, username string) (models.Account, error) {
	return r.findAccount(ctx, `WHERE username = $1`, username)
}

// FindAccountByEmail fetches an account by its email address.
func (r *PostgresProfileRepository) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.findAccount(ctx, `WHERE email = $1`, email)
}

func (r *PostgresProfileRepository) findAccount(ctx context.Context, where string, arg any) (models.Account, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, created_at, updated_at
        FROM accounts
    `+where, arg)

	var account models.Account
	if err := row.Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("select account: %w", err)
	}

	return account, nil
}

// FindProfileByAccountID fetches the profile belonging to an account.
func (r *PostgresProfileRepository) FindProfileByAccountID(ctx context.Context, accountID string) (models.Profile, error) {
	return r.findProfile(ctx, `WHERE pr.account_id = $1`, accountID)
}

// FindProfileByID fetches a profile by its own identifier.
func (r *PostgresProfileRepository) FindProfileByID(ctx context.Context, profileID string) (models.Profile, error) {
	return r.findProfile(ctx, `WHERE pr.id = $1`, profileID)
}

func (r *PostgresProfileRepository) findProfile(ctx context.Context, where string, arg any) (models.Profile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, profileColumns+where, arg)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("select profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile applies a partial profile edit and returns the stored result.
// A nil Age writes NULL; a nil PictureURL keeps the current picture.
func (r *PostgresProfileRepository) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (models.Profile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE profiles
        SET bio = $2,
            gender = $3,
            age = $4,
            picture_url = COALESCE($5, picture_url)
        WHERE id = $1
    `, update.ProfileID, update.Bio, update.Gender, ageParam(update.Age), update.PictureURL)
	if err != nil {
		return models.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.Profile{}, ErrNotFound
	}

	row := conn.QueryRow(ctx, profileColumns+`WHERE pr.id = $1`, update.ProfileID)
	profile, err := scanProfile(row)
	if err != nil {
		return models.Profile{}, fmt.Errorf("reload profile: %w", err)
	}

	return profile, nil
}

// Search returns profiles whose username or bio contains the query,
// case-insensitively, excluding the requesting profile.
func (r *PostgresProfileRepository) Search(ctx context.Context, query, excludeProfileID string) ([]models.Profile, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// Escape LIKE metacharacters so the query is matched as a literal
	// substring, not a pattern.
	pattern := "%" + likeEscaper.Replace(query) + "%"

	rows, err := conn.Query(ctx, profileColumns+`
        WHERE pr.id <> $2
          AND (ac.username ILIKE $1 ESCAPE '\' OR pr.bio ILIKE $1 ESCAPE '\')
        ORDER BY pr.id
    `, pattern, excludeProfileID)
	if err != nil {
		return nil, fmt.Errorf("query profile search: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile search: %w", err)
	}

	return profiles, nil
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var (
		profile models.Profile
		age     sql.NullInt32
	)
	if err := row.Scan(&profile.ID, &profile.AccountID, &profile.Username, &profile.Bio, &profile.Gender, &age, &profile.PictureURL, &profile.CreatedAt); err != nil {
		return models.Profile{}, err
	}
	if age.Valid {
		v := int(age.Int32)
		profile.Age = &v
	}
	return profile, nil
}

func ageParam(age *int) sql.NullInt32 {
	if age == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Valid: true, Int32: int32(*age)}
}

func registerConflict(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrEmailTaken
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrUsernameTaken
		}
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
