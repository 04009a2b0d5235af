package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

// Repository defines the persistence operations for personal accounts.
type Repository interface {
	CreateAccount(ctx context.Context, params persistence.CreateAccountParams) (persistence.PersonalAccount, error)
	ListAccounts(ctx context.Context, params persistence.ListAccountsParams) ([]persistence.PersonalAccount, error)
	GetAccount(ctx context.Context, id uuid.UUID) (persistence.PersonalAccount, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, params persistence.UpdateAccountParams) (persistence.PersonalAccount, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	SweepAccountStatuses(ctx context.Context, now time.Time) (int64, error)
}

type postgresRepository struct {
	store *persistence.AccountStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.AccountStore) Repository {
	if store == nil {
		panic("account store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateAccount(ctx context.Context, params persistence.CreateAccountParams) (persistence.PersonalAccount, error) {
	return r.store.CreateAccount(ctx, params)
}

func (r *postgresRepository) ListAccounts(ctx context.Context, params persistence.ListAccountsParams) ([]persistence.PersonalAccount, error) {
	return r.store.ListAccounts(ctx, params)
}

func (r *postgresRepository) GetAccount(ctx context.Context, id uuid.UUID) (persistence.PersonalAccount, error) {
	return r.store.GetAccount(ctx, id)
}

func (r *postgresRepository) UpdateAccount(ctx context.Context, id uuid.UUID, params persistence.UpdateAccountParams) (persistence.PersonalAccount, error) {
	return r.store.UpdateAccount(ctx, id, params)
}

func (r *postgresRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.store.DeleteAccount(ctx, id)
}

func (r *postgresRepository) SweepAccountStatuses(ctx context.Context, now time.Time) (int64, error) {
	return r.store.SweepAccountStatuses(ctx, now)
}
