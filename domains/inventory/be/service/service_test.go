package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nimbusdesk/inventory-service/domains/inventory/be/repo"
	"github.com/nimbusdesk/inventory-service/platform/go/clock"
)

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *clock.Manual) {
	t.Helper()
	manual := clock.NewManual(baseTime)
	return New(repo.NewMemoryRepository(), manual), manual
}

func createTestPool(t *testing.T, svc Service, maxSeats int, endAt time.Time) Pool {
	t.Helper()
	pool, err := svc.Create(context.Background(), CreateInput{
		Provider:   "chatgpt",
		PoolType:   "team",
		LoginEmail: "owner@example.com",
		StartAt:    baseTime.Add(-24 * time.Hour),
		EndAt:      endAt,
		MaxSeats:   maxSeats,
	})
	require.NoError(t, err)
	return pool
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "provider")
	require.Contains(t, validationErr.Fields, "poolType")
	require.Contains(t, validationErr.Fields, "startAt")
	require.Contains(t, validationErr.Fields, "endAt")
	require.Contains(t, validationErr.Fields, "maxSeats")
}

func TestCreateSeedsSeatLedger(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 3, baseTime.Add(30*24*time.Hour))

	require.Equal(t, StatusActive, pool.Status)
	require.True(t, pool.IsAlive)
	require.Equal(t, 0, pool.UsedSeats)

	full, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Len(t, full.Seats, 3)
	for idx, seat := range full.Seats {
		require.Equal(t, idx, seat.SeatIndex)
		require.Equal(t, "available", seat.SeatStatus)
	}

	stats, err := svc.Stats(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, Stats{TotalSeats: 3, UsedSeats: 0, AvailableSeats: 3}, stats)
}

func TestGetUnknownPool(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycleSweep(t *testing.T) {
	t.Parallel()

	svc, manual := newTestService(t)
	endAt := baseTime.Add(48 * time.Hour)
	pool := createTestPool(t, svc, 2, endAt)

	transitioned, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.Zero(t, transitioned)

	// Inside the 24h overdue window before end.
	manual.Set(endAt.Add(-12 * time.Hour))
	transitioned, err = svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, transitioned)

	current, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, current.Status)
	require.True(t, current.IsAlive)

	// Past the end date.
	manual.Set(endAt.Add(time.Hour))
	transitioned, err = svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, transitioned)

	current, err = svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, current.Status)
	require.False(t, current.IsAlive)

	// The sweep is idempotent: a second run changes nothing.
	transitioned, err = svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.Zero(t, transitioned)
}

func TestSweepSkipsPausedPools(t *testing.T) {
	t.Parallel()

	svc, manual := newTestService(t)
	endAt := baseTime.Add(48 * time.Hour)
	pool := createTestPool(t, svc, 1, endAt)

	paused := StatusPaused
	_, err := svc.Update(context.Background(), pool.ID, UpdateInput{Status: &paused})
	require.NoError(t, err)

	manual.Set(endAt.Add(72 * time.Hour))
	transitioned, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.Zero(t, transitioned)

	current, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaused, current.Status)
}

func TestAssignNextFreeSeatClaimsLowestIndex(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 3, baseTime.Add(30*24*time.Hour))

	first, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, 0, first.SeatIndex)
	require.Equal(t, "assigned", first.SeatStatus)
	require.NotNil(t, first.AssignedAt)

	second, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "b@example.com"})
	require.NoError(t, err)
	require.Equal(t, 1, second.SeatIndex)

	stats, err := svc.Stats(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, Stats{TotalSeats: 3, UsedSeats: 2, AvailableSeats: 1}, stats)
}

func TestAssignNextFreeSeatExhausted(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 1, baseTime.Add(30*24*time.Hour))

	_, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "b@example.com"})
	require.ErrorIs(t, err, ErrNoAvailableSeats)
}

func TestAssignSpecificSeatAlreadyTaken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	full, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	seatID := full.Seats[0].ID

	claimed, err := svc.AssignSeat(context.Background(), seatID, AssignInput{Email: "a@example.com"})
	require.NoError(t, err)
	require.Equal(t, "assigned", claimed.SeatStatus)
	require.NotNil(t, claimed.AssignedEmail)
	require.Equal(t, "a@example.com", *claimed.AssignedEmail)

	_, err = svc.AssignSeat(context.Background(), seatID, AssignInput{Email: "b@example.com"})
	require.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestAssignValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 1, baseTime.Add(30*24*time.Hour))

	var validationErr *ValidationError

	_, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")

	_, err = svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "not-an-email"})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")

	// Email is stored lowercase.
	seat, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "Mixed.Case@Example.COM"})
	require.NoError(t, err)
	require.NotNil(t, seat.AssignedEmail)
	require.Equal(t, "mixed.case@example.com", *seat.AssignedEmail)
}

func TestUnassignRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	seat, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "a@example.com"})
	require.NoError(t, err)

	released, err := svc.UnassignSeat(context.Background(), seat.ID)
	require.NoError(t, err)
	require.Equal(t, "available", released.SeatStatus)
	require.Nil(t, released.AssignedEmail)
	require.Nil(t, released.AssignedAt)
	require.NotNil(t, released.UnassignedAt)

	stats, err := svc.Stats(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Zero(t, stats.UsedSeats)

	// Releasing an already free seat is a no-op success.
	again, err := svc.UnassignSeat(context.Background(), seat.ID)
	require.NoError(t, err)
	require.Equal(t, "available", again.SeatStatus)
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
	t.Parallel()

	const seats = 5
	const claimers = 20

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, seats, baseTime.Add(30*24*time.Hour))

	var wg sync.WaitGroup
	results := make(chan error, claimers)
	seatIDs := make(chan uuid.UUID, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seat, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "claimer@example.com"})
			results <- err
			if err == nil {
				seatIDs <- seat.ID
			}
		}()
	}
	wg.Wait()
	close(results)
	close(seatIDs)

	var won, lost int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, ErrNoAvailableSeats)
		lost++
	}
	require.Equal(t, seats, won)
	require.Equal(t, claimers-seats, lost)

	distinct := make(map[uuid.UUID]struct{})
	for id := range seatIDs {
		distinct[id] = struct{}{}
	}
	require.Len(t, distinct, seats)

	stats, err := svc.Stats(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, Stats{TotalSeats: seats, UsedSeats: seats, AvailableSeats: 0}, stats)
}

func TestClaimAgainstArchivedPool(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	_, err := svc.Archive(context.Background(), pool.ID)
	require.NoError(t, err)

	_, err = svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "a@example.com"})
	require.ErrorIs(t, err, ErrPoolNotAssignable)

	full, err := svc.List(context.Background(), ListOptions{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, full.Pools, 1)

	hidden, err := svc.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Empty(t, hidden.Pools)
}

func TestRestoreWithoutExtensionReExpires(t *testing.T) {
	t.Parallel()

	svc, manual := newTestService(t)
	endAt := baseTime.Add(24 * time.Hour)
	pool := createTestPool(t, svc, 1, endAt)

	manual.Set(endAt.Add(time.Hour))
	_, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)

	restored, err := svc.Restore(context.Background(), pool.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusActive, restored.Status)
	require.True(t, restored.IsAlive)

	// The end date was not moved, so the next sweep expires it again.
	transitioned, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, transitioned)

	current, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, current.Status)
}

func TestRestoreWithExtensionStaysActive(t *testing.T) {
	t.Parallel()

	svc, manual := newTestService(t)
	endAt := baseTime.Add(24 * time.Hour)
	pool := createTestPool(t, svc, 1, endAt)

	manual.Set(endAt.Add(time.Hour))
	_, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)

	newEnd := manual.Now().Add(60 * 24 * time.Hour)
	restored, err := svc.Restore(context.Background(), pool.ID, &newEnd)
	require.NoError(t, err)
	require.Equal(t, StatusActive, restored.Status)
	require.Equal(t, newEnd, restored.EndAt)

	transitioned, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.Zero(t, transitioned)
}

func TestRestoreRejectsPastEndDate(t *testing.T) {
	t.Parallel()

	svc, manual := newTestService(t)
	pool := createTestPool(t, svc, 1, baseTime.Add(24*time.Hour))

	past := manual.Now().Add(-time.Hour)
	_, err := svc.Restore(context.Background(), pool.ID, &past)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "endAt")
}

func TestCapacityGrowthAppendsSeats(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	grown := 4
	updated, err := svc.Update(context.Background(), pool.ID, UpdateInput{MaxSeats: &grown})
	require.NoError(t, err)
	require.Equal(t, 4, updated.MaxSeats)

	full, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Len(t, full.Seats, 4)
	for idx, seat := range full.Seats {
		require.Equal(t, idx, seat.SeatIndex)
	}
}

func TestCapacityShrinkBelowAssignedFails(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 3, baseTime.Add(30*24*time.Hour))

	// Occupy all three seats so every index above the new capacity is taken.
	for i := 0; i < 3; i++ {
		_, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "a@example.com"})
		require.NoError(t, err)
	}

	shrunk := 1
	_, err := svc.Update(context.Background(), pool.ID, UpdateInput{MaxSeats: &shrunk})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "maxSeats")
}

func TestCapacityShrinkRefusalLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 4, baseTime.Add(30*24*time.Hour))

	full, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Len(t, full.Seats, 4)

	// Assign only the seat above the new capacity; the free seats above it
	// must survive the refused shrink too.
	_, err = svc.AssignSeat(context.Background(), full.Seats[2].ID, AssignInput{Email: "holder@example.com"})
	require.NoError(t, err)

	shrunk := 2
	_, err = svc.Update(context.Background(), pool.ID, UpdateInput{MaxSeats: &shrunk})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "maxSeats")

	after, err := svc.Get(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, 4, after.Pool.MaxSeats)
	require.Len(t, after.Seats, 4)
	for idx, seat := range after.Seats {
		require.Equal(t, idx, seat.SeatIndex)
	}
	require.Equal(t, "assigned", after.Seats[2].SeatStatus)
}

func TestUpdateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 1, baseTime.Add(30*24*time.Hour))

	var validationErr *ValidationError

	_, err := svc.Update(context.Background(), pool.ID, UpdateInput{})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "payload")

	bogus := "expired"
	_, err = svc.Update(context.Background(), pool.ID, UpdateInput{Status: &bogus})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "status")

	// Moving endAt before the current startAt inverts the window.
	inverted := pool.StartAt.Add(-time.Hour)
	_, err = svc.Update(context.Background(), pool.ID, UpdateInput{EndAt: &inverted})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "endAt")
}

func TestSearchBySeatEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	pool := createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	_, err := svc.AssignNextFreeSeat(context.Background(), pool.ID, AssignInput{Email: "carol.díaz@example.com"})
	require.NoError(t, err)

	ids, err := svc.SearchBySeatEmail(context.Background(), "carol")
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{pool.ID}, ids)

	ids, err = svc.SearchBySeatEmail(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, ids)

	var validationErr *ValidationError
	_, err = svc.SearchBySeatEmail(context.Background(), "   ")
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "seatEmail")
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	full := createTestPool(t, svc, 1, baseTime.Add(30*24*time.Hour))
	_ = createTestPool(t, svc, 2, baseTime.Add(30*24*time.Hour))

	_, err := svc.AssignNextFreeSeat(context.Background(), full.ID, AssignInput{Email: "a@example.com"})
	require.NoError(t, err)

	utilized, err := svc.List(context.Background(), ListOptions{FullyUtilized: true})
	require.NoError(t, err)
	require.Len(t, utilized.Pools, 1)
	require.Equal(t, full.ID, utilized.Pools[0].ID)

	available, err := svc.List(context.Background(), ListOptions{HasAvailableSeats: true})
	require.NoError(t, err)
	require.Len(t, available.Pools, 1)
	require.NotEqual(t, full.ID, available.Pools[0].ID)
}
