package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

// MemoryRepository is a mutex-guarded in-memory implementation suitable for
// tests and early development. It maintains the same invariants as the
// Postgres store: used_seats is recomputed on every seat mutation, and seat
// claims are atomic with the pool assignability check.
type MemoryRepository struct {
	mu    sync.Mutex
	pools map[uuid.UUID]persistence.ResourcePool
	seats map[uuid.UUID]persistence.PoolSeat
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		pools: make(map[uuid.UUID]persistence.ResourcePool),
		seats: make(map[uuid.UUID]persistence.PoolSeat),
	}
}

func (r *MemoryRepository) CreatePool(ctx context.Context, params persistence.CreatePoolParams) (persistence.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	pool := persistence.ResourcePool{
		PoolID:      params.PoolID,
		Provider:    params.Provider,
		PoolType:    params.PoolType,
		LoginEmail:  params.LoginEmail,
		LoginSecret: params.LoginSecret,
		StartAt:     params.StartAt,
		EndAt:       params.EndAt,
		MaxSeats:    params.MaxSeats,
		Status:      persistence.PoolStatusActive,
		IsAlive:     true,
		Notes:       params.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.pools[pool.PoolID] = pool

	for idx := 0; idx < params.MaxSeats; idx++ {
		seat := persistence.PoolSeat{
			SeatID:     uuid.New(),
			PoolID:     pool.PoolID,
			SeatIndex:  idx,
			SeatStatus: persistence.SeatStatusAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.seats[seat.SeatID] = seat
	}

	return pool, nil
}

func (r *MemoryRepository) ListPools(ctx context.Context, params persistence.ListPoolsParams) (persistence.ListPoolsResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]persistence.ResourcePool, 0, len(r.pools))
	for _, p := range r.pools {
		if !params.IncludeArchived && !p.IsAlive {
			continue
		}
		if params.Provider != nil && p.Provider != *params.Provider {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		if params.PoolType != nil && p.PoolType != *params.PoolType {
			continue
		}
		if params.HasAvailableSeats && p.UsedSeats >= p.MaxSeats {
			continue
		}
		if params.FullyUtilized && p.UsedSeats < p.MaxSeats {
			continue
		}
		if params.SeatEmail != nil && !r.poolHasSeatEmailLocked(p.PoolID, *params.SeatEmail) {
			continue
		}
		items = append(items, p)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return persistence.ListPoolsResult{Pools: items[start:end], TotalItems: len(items)}, nil
}

func (r *MemoryRepository) GetPool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return persistence.ResourcePool{}, persistence.ErrPoolNotFound
	}
	return pool, nil
}

func (r *MemoryRepository) GetPoolSeats(ctx context.Context, poolID uuid.UUID) ([]persistence.PoolSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seats := make([]persistence.PoolSeat, 0)
	for _, s := range r.seats {
		if s.PoolID == poolID {
			seats = append(seats, s)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatIndex < seats[j].SeatIndex })
	return seats, nil
}

func (r *MemoryRepository) UpdatePool(ctx context.Context, id uuid.UUID, params persistence.UpdatePoolParams) (persistence.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return persistence.ResourcePool{}, persistence.ErrPoolNotFound
	}

	if params.Provider != nil {
		pool.Provider = *params.Provider
	}
	if params.PoolType != nil {
		pool.PoolType = *params.PoolType
	}
	if params.LoginEmail != nil {
		pool.LoginEmail = *params.LoginEmail
	}
	if params.LoginSecret != nil {
		pool.LoginSecret = params.LoginSecret
	}
	if params.StartAt != nil {
		pool.StartAt = *params.StartAt
	}
	if params.EndAt != nil {
		pool.EndAt = *params.EndAt
	}
	if params.Status != nil {
		pool.Status = *params.Status
	}
	if params.Notes != nil {
		pool.Notes = params.Notes
	}

	if params.MaxSeats != nil {
		switch {
		case *params.MaxSeats < pool.MaxSeats:
			// Check every trimmed seat first so a refused shrink leaves the
			// ledger untouched.
			for _, s := range r.seats {
				if s.PoolID != id || s.SeatIndex < *params.MaxSeats {
					continue
				}
				if s.SeatStatus != persistence.SeatStatusAvailable {
					return persistence.ResourcePool{}, persistence.ErrSeatsStillAssigned
				}
			}
			for seatID, s := range r.seats {
				if s.PoolID == id && s.SeatIndex >= *params.MaxSeats {
					delete(r.seats, seatID)
				}
			}
		case *params.MaxSeats > pool.MaxSeats:
			now := time.Now().UTC()
			for idx := pool.MaxSeats; idx < *params.MaxSeats; idx++ {
				seat := persistence.PoolSeat{
					SeatID:     uuid.New(),
					PoolID:     id,
					SeatIndex:  idx,
					SeatStatus: persistence.SeatStatusAvailable,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				r.seats[seat.SeatID] = seat
			}
		}
		pool.MaxSeats = *params.MaxSeats
	}

	pool.UpdatedAt = time.Now().UTC()
	r.pools[id] = pool
	r.recountLocked(id)
	return r.pools[id], nil
}

func (r *MemoryRepository) DeletePool(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[id]; !ok {
		return persistence.ErrPoolNotFound
	}
	delete(r.pools, id)
	for seatID, s := range r.seats {
		if s.PoolID == id {
			delete(r.seats, seatID)
		}
	}
	return nil
}

func (r *MemoryRepository) ArchivePool(ctx context.Context, id uuid.UUID) (persistence.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return persistence.ResourcePool{}, persistence.ErrPoolNotFound
	}
	pool.IsAlive = false
	pool.UpdatedAt = time.Now().UTC()
	r.pools[id] = pool
	return pool, nil
}

func (r *MemoryRepository) RestorePool(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (persistence.ResourcePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return persistence.ResourcePool{}, persistence.ErrPoolNotFound
	}
	pool.Status = persistence.PoolStatusActive
	pool.IsAlive = true
	if newEndAt != nil {
		pool.EndAt = *newEndAt
	}
	pool.UpdatedAt = time.Now().UTC()
	r.pools[id] = pool
	return pool, nil
}

func (r *MemoryRepository) SweepPoolStatuses(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var transitioned int64
	for id, pool := range r.pools {
		if pool.Status != persistence.PoolStatusActive && pool.Status != persistence.PoolStatusOverdue {
			continue
		}
		next := persistence.DerivePoolStatus(now, pool.EndAt)
		if next == pool.Status {
			continue
		}
		pool.Status = next
		if next == persistence.PoolStatusExpired {
			pool.IsAlive = false
		}
		pool.UpdatedAt = time.Now().UTC()
		r.pools[id] = pool
		transitioned++
	}
	return transitioned, nil
}

func (r *MemoryRepository) GetPoolStats(ctx context.Context, id uuid.UUID) (persistence.PoolStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.pools[id]
	if !ok {
		return persistence.PoolStats{}, persistence.ErrPoolNotFound
	}
	return persistence.PoolStats{
		TotalSeats:     pool.MaxSeats,
		UsedSeats:      pool.UsedSeats,
		AvailableSeats: pool.MaxSeats - pool.UsedSeats,
	}, nil
}

func (r *MemoryRepository) SearchPoolsBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	needle := strings.ToLower(strings.TrimSpace(substring))
	for _, s := range r.seats {
		if s.AssignedEmail == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(*s.AssignedEmail), needle) {
			continue
		}
		if _, ok := seen[s.PoolID]; ok {
			continue
		}
		seen[s.PoolID] = struct{}{}
		ids = append(ids, s.PoolID)
	}
	return ids, nil
}

func (r *MemoryRepository) GetSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return persistence.PoolSeat{}, persistence.ErrSeatNotFound
	}
	return seat, nil
}

func (r *MemoryRepository) AssignSeat(ctx context.Context, seatID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return persistence.PoolSeat{}, persistence.ErrSeatNotFound
	}
	if seat.SeatStatus != persistence.SeatStatusAvailable {
		return persistence.PoolSeat{}, persistence.ErrSeatUnavailable
	}
	if !r.poolAssignableLocked(seat.PoolID) {
		return persistence.PoolSeat{}, persistence.ErrPoolNotAssignable
	}
	return r.claimLocked(seat, params), nil
}

func (r *MemoryRepository) AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, params persistence.AssignSeatParams) (persistence.PoolSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[poolID]; !ok {
		return persistence.PoolSeat{}, persistence.ErrPoolNotFound
	}
	if !r.poolAssignableLocked(poolID) {
		return persistence.PoolSeat{}, persistence.ErrPoolNotAssignable
	}

	var candidate *persistence.PoolSeat
	for _, s := range r.seats {
		if s.PoolID != poolID || s.SeatStatus != persistence.SeatStatusAvailable {
			continue
		}
		if candidate == nil || s.SeatIndex < candidate.SeatIndex {
			seat := s
			candidate = &seat
		}
	}
	if candidate == nil {
		return persistence.PoolSeat{}, persistence.ErrNoAvailableSeats
	}
	return r.claimLocked(*candidate, params), nil
}

func (r *MemoryRepository) UnassignSeat(ctx context.Context, seatID uuid.UUID) (persistence.PoolSeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[seatID]
	if !ok {
		return persistence.PoolSeat{}, persistence.ErrSeatNotFound
	}
	if seat.SeatStatus == persistence.SeatStatusAvailable {
		return seat, nil
	}

	now := time.Now().UTC()
	seat.SeatStatus = persistence.SeatStatusAvailable
	seat.AssignedEmail = nil
	seat.AssignedClient = nil
	seat.AssignedSub = nil
	seat.AssignedAt = nil
	seat.UnassignedAt = &now
	seat.UpdatedAt = now
	r.seats[seatID] = seat
	r.recountLocked(seat.PoolID)
	return seat, nil
}

func (r *MemoryRepository) claimLocked(seat persistence.PoolSeat, params persistence.AssignSeatParams) persistence.PoolSeat {
	now := time.Now().UTC()
	seat.SeatStatus = persistence.SeatStatusAssigned
	if email := strings.TrimSpace(params.Email); email != "" {
		seat.AssignedEmail = &email
	} else {
		seat.AssignedEmail = nil
	}
	seat.AssignedClient = params.ClientID
	seat.AssignedSub = params.SubscriptionID
	seat.AssignedAt = &now
	seat.UnassignedAt = nil
	seat.UpdatedAt = now
	r.seats[seat.SeatID] = seat
	r.recountLocked(seat.PoolID)
	return seat
}

func (r *MemoryRepository) poolAssignableLocked(poolID uuid.UUID) bool {
	pool, ok := r.pools[poolID]
	if !ok {
		return false
	}
	if !pool.IsAlive {
		return false
	}
	return pool.Status == persistence.PoolStatusActive || pool.Status == persistence.PoolStatusOverdue
}

func (r *MemoryRepository) poolHasSeatEmailLocked(poolID uuid.UUID, substring string) bool {
	needle := strings.ToLower(strings.TrimSpace(substring))
	for _, s := range r.seats {
		if s.PoolID != poolID || s.AssignedEmail == nil {
			continue
		}
		if strings.Contains(strings.ToLower(*s.AssignedEmail), needle) {
			return true
		}
	}
	return false
}

// recountLocked mirrors the database trigger: used_seats always equals the
// count of assigned seats.
func (r *MemoryRepository) recountLocked(poolID uuid.UUID) {
	pool, ok := r.pools[poolID]
	if !ok {
		return
	}
	count := 0
	for _, s := range r.seats {
		if s.PoolID == poolID && s.SeatStatus == persistence.SeatStatusAssigned {
			count++
		}
	}
	pool.UsedSeats = count
	r.pools[poolID] = pool
}
