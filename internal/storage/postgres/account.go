package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/lanes/internal/storage"
)

const accountColumns = `id::text, email, username, password_hash, role, created_at`

// AccountRepository provides account persistence operations.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (storage.Account, error) {
	var acct storage.Account
	err := row.Scan(&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash, &acct.Role, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Account{}, storage.ErrAccountNotFound
		}
		return storage.Account{}, fmt.Errorf("querying account: %w", err)
	}
	return acct, nil
}

// Create inserts a new bowler account with a bcrypt-hashed password.
//
// Precondition: email, username and password must be non-empty.
// Postcondition: Returns the created Account with ID and CreatedAt set,
// or storage.ErrAccountExists if the email is taken.
func (r *AccountRepository) Create(ctx context.Context, email, username, password string) (storage.Account, error) {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return storage.Account{}, fmt.Errorf("hashing password: %w", err)
	}

	acct, err := scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts (email, username, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+accountColumns,
		storage.NormalizeEmail(email), username, hash,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.Account{}, storage.ErrAccountExists
		}
		return storage.Account{}, fmt.Errorf("inserting account: %w", err)
	}
	return acct, nil
}

// Authenticate verifies credentials and returns the matching account.
//
// Precondition: email and password must be non-empty.
// Postcondition: Returns the Account if credentials are valid,
// storage.ErrAccountNotFound if the email is unknown,
// or storage.ErrInvalidCredentials if the password is wrong.
func (r *AccountRepository) Authenticate(ctx context.Context, email, password string) (storage.Account, error) {
	acct, err := r.GetByEmail(ctx, email)
	if err != nil {
		return storage.Account{}, err
	}
	if !storage.CheckPassword(password, acct.PasswordHash) {
		return storage.Account{}, storage.ErrInvalidCredentials
	}
	return acct, nil
}

// GetByID retrieves an account by its ID.
//
// Postcondition: Returns the Account or storage.ErrAccountNotFound.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (storage.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	))
}

// GetByEmail retrieves an account by email, ignoring case.
//
// Postcondition: Returns the Account or storage.ErrAccountNotFound.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (storage.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		storage.NormalizeEmail(email),
	))
}

// SetRole updates the role for the given account.
//
// Precondition: role must be a valid role string (use storage.ValidRole to check).
// Postcondition: The account's role is updated, or storage.ErrInvalidRole /
// storage.ErrAccountNotFound is returned.
func (r *AccountRepository) SetRole(ctx context.Context, accountID, role string) error {
	if !storage.ValidRole(role) {
		return storage.ErrInvalidRole
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return storage.ErrAccountNotFound
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET role = $1 WHERE id = $2`,
		role, accountID,
	)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}
