package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/smartbrain-service/internal/core/domain"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool used by the repositories.
// pgxmock pools satisfy it as well.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const userColumns = `id, name, email, entries, joined, age, pet, avatar`

// PgxUserRepository implements domain.UserRepository over the login and users tables.
type PgxUserRepository struct {
	db DB
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(db DB) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

// GetCredential returns the login row for email.
// Returns (nil, nil) when no credential exists.
func (r *PgxUserRepository) GetCredential(ctx context.Context, email string) (*domain.CredentialRow, error) {
	query := `SELECT email, hash FROM login WHERE email = $1`

	var row domain.CredentialRow
	err := r.db.QueryRow(ctx, query, email).Scan(&row.Email, &row.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// EmailExists reports whether a credential for email already exists.
func (r *PgxUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM login WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// CreateWithCredential inserts the login and users rows in a single transaction.
func (r *PgxUserRepository) CreateWithCredential(ctx context.Context, u domain.NewUser) (*domain.User, error) {
	var created *domain.User

	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO login (hash, email) VALUES ($1, $2)`, u.Hash, u.Email); err != nil {
			return fmt.Errorf("insert login: %w", err)
		}

		query := `INSERT INTO users (email, name, joined) VALUES ($1, $2, $3) RETURNING ` + userColumns
		user, err := scanUser(tx.QueryRow(ctx, query, u.Email, u.Name, u.Joined))
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		created = user
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUniqueViolation, err)
		}
		return nil, err
	}

	return created, nil
}

// GetByEmail returns the user with the given email.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return nilOnNoRows(scanUser(r.db.QueryRow(ctx, query, email)))
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return nilOnNoRows(scanUser(r.db.QueryRow(ctx, query, id)))
}

// UpdateProfile applies the non-nil fields of upd; NULL parameters keep the stored value.
func (r *PgxUserRepository) UpdateProfile(ctx context.Context, id int, upd domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			age = COALESCE($3, age),
			pet = COALESCE($4, pet),
			avatar = COALESCE($5, avatar)
		WHERE id = $1
		RETURNING ` + userColumns

	return nilOnNoRows(scanUser(r.db.QueryRow(ctx, query, id, upd.Name, upd.Age, upd.Pet, upd.Avatar)))
}

// IncrementEntries bumps the entry counter for the user.
func (r *PgxUserRepository) IncrementEntries(ctx context.Context, id int) (int64, bool, error) {
	query := `UPDATE users SET entries = entries + 1 WHERE id = $1 RETURNING entries`

	var entries int64
	err := r.db.QueryRow(ctx, query, id).Scan(&entries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return entries, true, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		name *string
		age  *int32
	)
	err := row.Scan(&u.ID, &name, &u.Email, &u.Entries, &u.Joined, &age, &u.Pet, &u.Avatar)
	if err != nil {
		return nil, err
	}
	if name != nil {
		u.Name = *name
	}
	if age != nil {
		v := int(*age)
		u.Age = &v
	}
	return &u, nil
}

func nilOnNoRows(u *domain.User, err error) (*domain.User, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// withTx runs fn in a transaction, committing on success and rolling back on
// error or panic. Panics are rethrown.
func withTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(tx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
