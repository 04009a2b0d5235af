package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const PersonalAccountsTable = "personal_accounts"

// Account status values.
const (
	AccountStatusAvailable = "available"
	AccountStatusAssigned  = "assigned"
	AccountStatusExpired   = "expired"
)

// PersonalAccount is the single-tenant sibling of a resource pool: one
// credential, one occupant, no seat ledger.
type PersonalAccount struct {
	AccountID   uuid.UUID `db:"account_id" json:"accountId"`
	Provider    string    `db:"provider" json:"provider"`
	LoginEmail  string    `db:"login_email" json:"loginEmail"`
	LoginSecret *string   `db:"login_secret" json:"loginSecret,omitempty"`
	ExpiryDate  time.Time `db:"expiry_date" json:"expiryDate"`
	Status      string    `db:"status" json:"status"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ErrAccountNotFound indicates a missing personal account record.
var ErrAccountNotFound = errors.New("personal account not found")

const accountColumns = `account_id, provider, login_email, login_secret,
        expiry_date, status, notes, created_at, updated_at`

// AccountStore exposes persistence helpers for the personal_accounts table.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore returns a store instance bound to the shared pool.
func NewAccountStore(ctx context.Context, pool *pgxpool.Pool) (*AccountStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AccountStore{pool: pool}, nil
}

// CreateAccountParams captures the fields required to insert a new account.
type CreateAccountParams struct {
	AccountID   uuid.UUID
	Provider    string
	LoginEmail  string
	LoginSecret *string
	ExpiryDate  time.Time
	Notes       *string
}

// CreateAccount inserts a new personal account and returns the persisted record.
func (s *AccountStore) CreateAccount(ctx context.Context, params CreateAccountParams) (PersonalAccount, error) {
	if params.AccountID == uuid.Nil {
		return PersonalAccount{}, errors.New("account id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (account_id, provider, login_email, login_secret, expiry_date, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, PersonalAccountsTable, accountColumns),
		params.AccountID,
		strings.TrimSpace(params.Provider),
		strings.TrimSpace(params.LoginEmail),
		params.LoginSecret,
		params.ExpiryDate,
		params.Notes,
	)

	account, err := scanAccount(row)
	if err != nil {
		return PersonalAccount{}, fmt.Errorf("insert personal account: %w", err)
	}
	return account, nil
}

// ListAccountsParams captures filters for ListAccounts.
type ListAccountsParams struct {
	Provider *string
	Status   *string
}

// ListAccounts returns accounts matching the filters, newest first.
func (s *AccountStore) ListAccounts(ctx context.Context, params ListAccountsParams) ([]PersonalAccount, error) {
	whereParts := []string{"1=1"}
	var args []any

	if params.Provider != nil && strings.TrimSpace(*params.Provider) != "" {
		args = append(args, strings.TrimSpace(*params.Provider))
		whereParts = append(whereParts, fmt.Sprintf("provider = $%d", len(args)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		args = append(args, strings.TrimSpace(*params.Status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE %s ORDER BY created_at DESC
    `, accountColumns, PersonalAccountsTable, strings.Join(whereParts, " AND ")), args...)
	if err != nil {
		return nil, fmt.Errorf("list personal accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]PersonalAccount, 0)
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan personal account: %w", scanErr)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personal accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount returns a single account by identifier.
func (s *AccountStore) GetAccount(ctx context.Context, id uuid.UUID) (PersonalAccount, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE account_id = $1
    `, accountColumns, PersonalAccountsTable), id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PersonalAccount{}, ErrAccountNotFound
		}
		return PersonalAccount{}, err
	}
	return account, nil
}

// UpdateAccountParams represents the editable account fields.
type UpdateAccountParams struct {
	Provider    *string
	LoginEmail  *string
	LoginSecret *string
	ExpiryDate  *time.Time
	Status      *string
	Notes       *string
}

// UpdateAccount applies the provided fields and returns the updated record.
func (s *AccountStore) UpdateAccount(ctx context.Context, id uuid.UUID, params UpdateAccountParams) (PersonalAccount, error) {
	setParts := []string{}
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Provider != nil {
		add("provider", strings.TrimSpace(*params.Provider))
	}
	if params.LoginEmail != nil {
		add("login_email", strings.TrimSpace(*params.LoginEmail))
	}
	if params.LoginSecret != nil {
		add("login_secret", *params.LoginSecret)
	}
	if params.ExpiryDate != nil {
		add("expiry_date", *params.ExpiryDate)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}

	if len(setParts) == 0 {
		return PersonalAccount{}, errors.New("no fields to update")
	}

	args = append(args, id)
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE account_id = $%d
        RETURNING %s
    `, PersonalAccountsTable, strings.Join(setParts, ", "), len(args), accountColumns), args...)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PersonalAccount{}, ErrAccountNotFound
		}
		return PersonalAccount{}, err
	}
	return account, nil
}

// DeleteAccount removes the account.
func (s *AccountStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE account_id = $1
    `, PersonalAccountsTable), id)
	if err != nil {
		return fmt.Errorf("delete personal account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SweepAccountStatuses marks every non-expired account whose expiry date has
// passed as expired. Idempotent: rows already expired are not rewritten.
// Returns the number of accounts transitioned.
func (s *AccountStore) SweepAccountStatuses(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET status = '%s', updated_at = NOW()
        WHERE status <> '%s' AND $1 >= expiry_date
    `, PersonalAccountsTable, AccountStatusExpired, AccountStatusExpired), now)
	if err != nil {
		return 0, fmt.Errorf("sweep account statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAccount(row rowScanner) (PersonalAccount, error) {
	var a PersonalAccount
	err := row.Scan(
		&a.AccountID,
		&a.Provider,
		&a.LoginEmail,
		&a.LoginSecret,
		&a.ExpiryDate,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}
