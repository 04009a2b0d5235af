package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func createPoolForTest(t *testing.T, store *PoolStore, maxSeats int, startAt, endAt time.Time) ResourcePool {
	t.Helper()
	pool, err := store.CreatePool(context.Background(), CreatePoolParams{
		PoolID:     uuid.New(),
		Provider:   "chatgpt",
		PoolType:   "team",
		LoginEmail: "owner@example.com",
		StartAt:    startAt,
		EndAt:      endAt,
		MaxSeats:   maxSeats,
	})
	require.NoError(t, err)
	return pool
}

func TestPoolStoreLifecycle(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewPoolStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC()
	created := createPoolForTest(t, store, 3, now, now.Add(30*24*time.Hour))
	require.Equal(t, PoolStatusActive, created.Status)
	require.True(t, created.IsAlive)
	require.Zero(t, created.UsedSeats)

	seats, err := store.GetPoolSeats(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	for idx, seat := range seats {
		require.Equal(t, idx, seat.SeatIndex)
		require.Equal(t, SeatStatusAvailable, seat.SeatStatus)
	}

	// The recount trigger keeps used_seats in lockstep with the ledger.
	claimed, err := store.AssignSeat(ctx, seats[1].SeatID, AssignSeatParams{Email: "alice@example.com"})
	require.NoError(t, err)
	require.Equal(t, SeatStatusAssigned, claimed.SeatStatus)
	require.NotNil(t, claimed.AssignedAt)

	refetched, err := store.GetPool(ctx, created.PoolID)
	require.NoError(t, err)
	require.Equal(t, 1, refetched.UsedSeats)

	stats, err := store.GetPoolStats(ctx, created.PoolID)
	require.NoError(t, err)
	require.Equal(t, PoolStats{TotalSeats: 3, UsedSeats: 1, AvailableSeats: 2}, stats)

	// Claiming the same seat again conflicts.
	_, err = store.AssignSeat(ctx, seats[1].SeatID, AssignSeatParams{Email: "bob@example.com"})
	require.ErrorIs(t, err, ErrSeatUnavailable)

	ids, err := store.SearchPoolsBySeatEmail(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{created.PoolID}, ids)

	released, err := store.UnassignSeat(ctx, seats[1].SeatID)
	require.NoError(t, err)
	require.Equal(t, SeatStatusAvailable, released.SeatStatus)
	require.Nil(t, released.AssignedEmail)
	require.NotNil(t, released.UnassignedAt)

	refetched, err = store.GetPool(ctx, created.PoolID)
	require.NoError(t, err)
	require.Zero(t, refetched.UsedSeats)

	// Releasing an available seat is a no-op success.
	_, err = store.UnassignSeat(ctx, seats[1].SeatID)
	require.NoError(t, err)

	require.NoError(t, store.DeletePool(ctx, created.PoolID))
	_, err = store.GetPool(ctx, created.PoolID)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, err = store.GetSeat(ctx, seats[0].SeatID)
	require.ErrorIs(t, err, ErrSeatNotFound)
}

func TestPoolStoreConcurrentNextFreeClaims(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewPoolStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC()
	created := createPoolForTest(t, store, 3, now, now.Add(30*24*time.Hour))

	const claimers = 10
	var wg sync.WaitGroup
	errs := make(chan error, claimers)
	seatIDs := make(chan uuid.UUID, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seat, claimErr := store.AssignNextFreeSeat(ctx, created.PoolID, AssignSeatParams{Email: "claimer@example.com"})
			errs <- claimErr
			if claimErr == nil {
				seatIDs <- seat.SeatID
			}
		}()
	}
	wg.Wait()
	close(errs)
	close(seatIDs)

	var won int
	for claimErr := range errs {
		if claimErr == nil {
			won++
			continue
		}
		require.ErrorIs(t, claimErr, ErrNoAvailableSeats)
	}
	require.Equal(t, 3, won)

	distinct := make(map[uuid.UUID]struct{})
	for id := range seatIDs {
		distinct[id] = struct{}{}
	}
	require.Len(t, distinct, 3)

	refetched, err := store.GetPool(ctx, created.PoolID)
	require.NoError(t, err)
	require.Equal(t, 3, refetched.UsedSeats)
}

func TestPoolStoreUsedSeatsSurvivesConcurrentDistinctClaims(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewPoolStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC()
	created := createPoolForTest(t, store, 8, now, now.Add(30*24*time.Hour))

	seats, err := store.GetPoolSeats(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, seats, 8)

	// Every claimer targets its own seat, so the only contention left is the
	// used_seats bookkeeping on the shared pool row.
	var wg sync.WaitGroup
	errs := make(chan error, len(seats))
	for _, seat := range seats {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, claimErr := store.AssignSeat(ctx, id, AssignSeatParams{Email: "holder@example.com"})
			errs <- claimErr
		}(seat.SeatID)
	}
	wg.Wait()
	close(errs)
	for claimErr := range errs {
		require.NoError(t, claimErr)
	}

	refetched, err := store.GetPool(ctx, created.PoolID)
	require.NoError(t, err)
	require.Equal(t, 8, refetched.UsedSeats)

	errs = make(chan error, len(seats))
	for _, seat := range seats {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, releaseErr := store.UnassignSeat(ctx, id)
			errs <- releaseErr
		}(seat.SeatID)
	}
	wg.Wait()
	close(errs)
	for releaseErr := range errs {
		require.NoError(t, releaseErr)
	}

	refetched, err = store.GetPool(ctx, created.PoolID)
	require.NoError(t, err)
	require.Zero(t, refetched.UsedSeats)
}

func TestPoolStoreSweepAndRestore(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewPoolStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC()
	overduePool := createPoolForTest(t, store, 1, now.Add(-30*24*time.Hour), now.Add(12*time.Hour))
	expiredPool := createPoolForTest(t, store, 1, now.Add(-30*24*time.Hour), now.Add(-time.Hour))
	healthyPool := createPoolForTest(t, store, 1, now, now.Add(30*24*time.Hour))

	transitioned, err := store.SweepPoolStatuses(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, transitioned)

	got, err := store.GetPool(ctx, overduePool.PoolID)
	require.NoError(t, err)
	require.Equal(t, PoolStatusOverdue, got.Status)
	require.True(t, got.IsAlive)

	got, err = store.GetPool(ctx, expiredPool.PoolID)
	require.NoError(t, err)
	require.Equal(t, PoolStatusExpired, got.Status)
	require.False(t, got.IsAlive)

	got, err = store.GetPool(ctx, healthyPool.PoolID)
	require.NoError(t, err)
	require.Equal(t, PoolStatusActive, got.Status)

	// Second run is a no-op.
	transitioned, err = store.SweepPoolStatuses(ctx, now)
	require.NoError(t, err)
	require.Zero(t, transitioned)

	// Expired pools refuse claims even though a seat is free.
	_, err = store.AssignNextFreeSeat(ctx, expiredPool.PoolID, AssignSeatParams{Email: "late@example.com"})
	require.ErrorIs(t, err, ErrPoolNotAssignable)

	// Restore without an extension comes back alive, then re-expires.
	restored, err := store.RestorePool(ctx, expiredPool.PoolID, nil)
	require.NoError(t, err)
	require.Equal(t, PoolStatusActive, restored.Status)
	require.True(t, restored.IsAlive)

	transitioned, err = store.SweepPoolStatuses(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, transitioned)

	// Restore with a pushed-out end date stays active.
	newEnd := now.Add(60 * 24 * time.Hour)
	restored, err = store.RestorePool(ctx, expiredPool.PoolID, &newEnd)
	require.NoError(t, err)
	require.Equal(t, PoolStatusActive, restored.Status)

	transitioned, err = store.SweepPoolStatuses(ctx, now)
	require.NoError(t, err)
	require.Zero(t, transitioned)
}

func TestPoolStoreCapacityRules(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewPoolStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC()
	created := createPoolForTest(t, store, 2, now, now.Add(30*24*time.Hour))

	grown := 4
	updated, err := store.UpdatePool(ctx, created.PoolID, UpdatePoolParams{MaxSeats: &grown})
	require.NoError(t, err)
	require.Equal(t, 4, updated.MaxSeats)

	seats, err := store.GetPoolSeats(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, seats, 4)
	for idx, seat := range seats {
		require.Equal(t, idx, seat.SeatIndex)
	}

	// Occupy the top seat so shrinking below it must fail.
	_, err = store.AssignSeat(ctx, seats[3].SeatID, AssignSeatParams{Email: "top@example.com"})
	require.NoError(t, err)

	shrunk := 2
	_, err = store.UpdatePool(ctx, created.PoolID, UpdatePoolParams{MaxSeats: &shrunk})
	require.ErrorIs(t, err, ErrSeatsStillAssigned)

	_, err = store.UnassignSeat(ctx, seats[3].SeatID)
	require.NoError(t, err)

	updated, err = store.UpdatePool(ctx, created.PoolID, UpdatePoolParams{MaxSeats: &shrunk})
	require.NoError(t, err)
	require.Equal(t, 2, updated.MaxSeats)

	seats, err = store.GetPoolSeats(ctx, created.PoolID)
	require.NoError(t, err)
	require.Len(t, seats, 2)
}
