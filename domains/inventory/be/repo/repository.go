package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

// Repository defines the persistence operations required by the inventory
// service: pool CRUD, the lifecycle sweep, the seat allocator and the query
// surface.
type Repository interface {
	ListPools(ctx context.Context, params persistence.ListPoolsParams) (persistence.ListPoolsResult, error)
	CreatePool(ctx context.Context, params persistence.CreatePoolParams) (persistence.ResourcePool, error)
	GetPool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error)
	GetPoolSeats(ctx context.Context, poolID uuid.UUID) ([]persistence.PoolSeat, error)
	UpdatePool(ctx context.Context, id uuid.UUID, params persistence.UpdatePoolParams) (persistence.ResourcePool, error)
	DeletePool(ctx context.Context, id uuid.UUID) error
	ArchivePool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error)
	RestorePool(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (persistence.ResourcePool, error)
	SweepPoolStatuses(ctx context.Context, now time.Time) (int64, error)
	GetPoolStats(ctx context.Context, id uuid.UUID) (persistence.PoolStats, error)
	SearchPoolsBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error)
	GetSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error)
	AssignSeat(ctx context.Context, seatID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error)
	AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error)
	UnassignSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error)
}

type postgresRepository struct {
	store *persistence.PoolStore
}

// NewPostgresRepository constructs a repository backed by the shared
// persistence layer.
func NewPostgresRepository(store *persistence.PoolStore) Repository {
	if store == nil {
		panic("pool store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) ListPools(ctx context.Context, params persistence.ListPoolsParams) (persistence.ListPoolsResult, error) {
	return r.store.ListPools(ctx, params)
}

func (r *postgresRepository) CreatePool(ctx context.Context, params persistence.CreatePoolParams) (persistence.ResourcePool, error) {
	return r.store.CreatePool(ctx, params)
}

func (r *postgresRepository) GetPool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error) {
	return r.store.GetPool(ctx, id)
}

func (r *postgresRepository) GetPoolSeats(ctx context.Context, poolID uuid.UUID) ([]persistence.PoolSeat, error) {
	return r.store.GetPoolSeats(ctx, poolID)
}

func (r *postgresRepository) UpdatePool(ctx context.Context, id uuid.UUID, params persistence.UpdatePoolParams) (persistence.ResourcePool, error) {
	return r.store.UpdatePool(ctx, id, params)
}

func (r *postgresRepository) DeletePool(ctx context.Context, id uuid.UUID) error {
	return r.store.DeletePool(ctx, id)
}

func (r *postgresRepository) ArchivePool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error) {
	return r.store.ArchivePool(ctx, id)
}

func (r *postgresRepository) RestorePool(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (persistence.ResourcePool, error) {
	return r.store.RestorePool(ctx, id, newEndAt)
}

func (r *postgresRepository) SweepPoolStatuses(ctx context.Context, now time.Time) (int64, error) {
	return r.store.SweepPoolStatuses(ctx, now)
}

func (r *postgresRepository) GetPoolStats(ctx context.Context, id uuid.UUID) (persistence.PoolStats, error) {
	return r.store.GetPoolStats(ctx, id)
}

func (r *postgresRepository) SearchPoolsBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error) {
	return r.store.SearchPoolsBySeatEmail(ctx, substring)
}

func (r *postgresRepository) GetSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error) {
	return r.store.GetSeat(ctx, seatID)
}

func (r *postgresRepository) AssignSeat(ctx context.Context, seatID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error) {
	return r.store.AssignSeat(ctx, seatID, params)
}

func (r *postgresRepository) AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error) {
	return r.store.AssignNextFreeSeat(ctx, poolID, params)
}

func (r *postgresRepository) UnassignSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error) {
	return r.store.UnassignSeat(ctx, seatID)
}
