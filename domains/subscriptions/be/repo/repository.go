package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

// Repository defines the linker's persistence operations. Link, unlink and
// switch are transactional in the backing store.
type Repository interface {
	CreateSubscription(ctx context.Context, params persistence.CreateSubscriptionParams) (persistence.Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (persistence.Subscription, error)
	LinkSubscription(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error)
	UnlinkSubscription(ctx context.Context, subID uuid.UUID) (persistence.Subscription, error)
	SwitchSubscriptionPool(ctx context.Context, subID, targetPoolID uuid.UUID) (persistence.Subscription, error)
}

type postgresRepository struct {
	store *persistence.SubscriptionStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.SubscriptionStore) Repository {
	if store == nil {
		panic("subscription store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateSubscription(ctx context.Context, params persistence.CreateSubscriptionParams) (persistence.Subscription, error) {
	return r.store.CreateSubscription(ctx, params)
}

func (r *postgresRepository) GetSubscription(ctx context.Context, id uuid.UUID) (persistence.Subscription, error) {
	return r.store.GetSubscription(ctx, id)
}

func (r *postgresRepository) LinkSubscription(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error) {
	return r.store.LinkSubscription(ctx, subID, poolID, seatID)
}

func (r *postgresRepository) UnlinkSubscription(ctx context.Context, subID uuid.UUID) (persistence.Subscription, error) {
	return r.store.UnlinkSubscription(ctx, subID)
}

func (r *postgresRepository) SwitchSubscriptionPool(ctx context.Context, subID, targetPoolID uuid.UUID) (persistence.Subscription, error) {
	return r.store.SwitchSubscriptionPool(ctx, subID, targetPoolID)
}
