package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

type mockRepository struct {
	createFn func(ctx context.Context, params persistence.CreateSubscriptionParams) (persistence.Subscription, error)
	getFn    func(ctx context.Context, id uuid.UUID) (persistence.Subscription, error)
	linkFn   func(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error)
	unlinkFn func(ctx context.Context, subID uuid.UUID) (persistence.Subscription, error)
	switchFn func(ctx context.Context, subID, targetPoolID uuid.UUID) (persistence.Subscription, error)
}

func (m *mockRepository) CreateSubscription(ctx context.Context, params persistence.CreateSubscriptionParams) (persistence.Subscription, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params)
}

func (m *mockRepository) GetSubscription(ctx context.Context, id uuid.UUID) (persistence.Subscription, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) LinkSubscription(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error) {
	if m.linkFn == nil {
		panic("linkFn not configured")
	}
	return m.linkFn(ctx, subID, poolID, seatID)
}

func (m *mockRepository) UnlinkSubscription(ctx context.Context, subID uuid.UUID) (persistence.Subscription, error) {
	if m.unlinkFn == nil {
		panic("unlinkFn not configured")
	}
	return m.unlinkFn(ctx, subID)
}

func (m *mockRepository) SwitchSubscriptionPool(ctx context.Context, subID, targetPoolID uuid.UUID) (persistence.Subscription, error) {
	if m.switchFn == nil {
		panic("switchFn not configured")
	}
	return m.switchFn(ctx, subID, targetPoolID)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.Create(context.Background(), CreateInput{})
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "subscriptionId")
	require.Contains(t, validationErr.Fields, "label")
}

func TestCreateSuccess(t *testing.T) {
	t.Parallel()

	subID := uuid.New()
	repository := &mockRepository{}
	repository.createFn = func(ctx context.Context, params persistence.CreateSubscriptionParams) (persistence.Subscription, error) {
		require.Equal(t, subID, params.SubscriptionID)
		require.Equal(t, "Team plan", params.Label)
		now := time.Now().UTC()
		return persistence.Subscription{
			SubscriptionID: params.SubscriptionID,
			Label:          params.Label,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, nil
	}

	svc := New(repository)
	sub, err := svc.Create(context.Background(), CreateInput{
		SubscriptionID: subID,
		Label:          "  Team plan  ",
	})
	require.NoError(t, err)
	require.Equal(t, subID, sub.ID)
	require.Nil(t, sub.ResourcePoolID)
}

func TestLinkRequiresPool(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.Link(context.Background(), uuid.New(), LinkInput{})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "poolId")
}

func TestLinkMapsAllocationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		repoErr  error
		expected error
	}{
		{"subscription missing", persistence.ErrSubscriptionNotFound, ErrNotFound},
		{"pool missing", persistence.ErrPoolNotFound, ErrPoolNotFound},
		{"pool full", persistence.ErrNoAvailableSeats, ErrNoAvailableSeats},
		{"seat taken", persistence.ErrSeatUnavailable, ErrSeatUnavailable},
		{"pool archived", persistence.ErrPoolNotAssignable, ErrPoolNotAssignable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repository := &mockRepository{}
			repository.linkFn = func(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error) {
				return persistence.Subscription{}, tc.repoErr
			}

			svc := New(repository)
			_, err := svc.Link(context.Background(), uuid.New(), LinkInput{PoolID: uuid.New()})
			require.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestLinkSeatPoolMismatchIsValidation(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{}
	repository.linkFn = func(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (persistence.Subscription, error) {
		return persistence.Subscription{}, persistence.ErrSeatPoolMismatch
	}

	svc := New(repository)
	seatID := uuid.New()
	_, err := svc.Link(context.Background(), uuid.New(), LinkInput{PoolID: uuid.New(), SeatID: &seatID})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "seatId")
}

func TestLinkPassesSeatThrough(t *testing.T) {
	t.Parallel()

	subID := uuid.New()
	poolID := uuid.New()
	seatID := uuid.New()

	repository := &mockRepository{}
	repository.linkFn = func(ctx context.Context, gotSub, gotPool uuid.UUID, gotSeat *uuid.UUID) (persistence.Subscription, error) {
		require.Equal(t, subID, gotSub)
		require.Equal(t, poolID, gotPool)
		require.NotNil(t, gotSeat)
		require.Equal(t, seatID, *gotSeat)
		return persistence.Subscription{
			SubscriptionID: gotSub,
			ResourcePoolID: &gotPool,
			ResourceSeatID: gotSeat,
		}, nil
	}

	svc := New(repository)
	sub, err := svc.Link(context.Background(), subID, LinkInput{PoolID: poolID, SeatID: &seatID})
	require.NoError(t, err)
	require.NotNil(t, sub.ResourceSeatID)
	require.Equal(t, seatID, *sub.ResourceSeatID)
}

func TestUnlink(t *testing.T) {
	t.Parallel()

	subID := uuid.New()
	repository := &mockRepository{}
	repository.unlinkFn = func(ctx context.Context, gotSub uuid.UUID) (persistence.Subscription, error) {
		require.Equal(t, subID, gotSub)
		return persistence.Subscription{SubscriptionID: gotSub}, nil
	}

	svc := New(repository)
	sub, err := svc.Unlink(context.Background(), subID)
	require.NoError(t, err)
	require.Nil(t, sub.ResourcePoolID)
	require.Nil(t, sub.ResourceSeatID)
}

func TestSwitchPoolValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.SwitchPool(context.Background(), uuid.New(), uuid.Nil)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "poolId")
}

func TestSwitchPool(t *testing.T) {
	t.Parallel()

	subID := uuid.New()
	targetPool := uuid.New()
	newSeat := uuid.New()

	repository := &mockRepository{}
	repository.switchFn = func(ctx context.Context, gotSub, gotPool uuid.UUID) (persistence.Subscription, error) {
		require.Equal(t, subID, gotSub)
		require.Equal(t, targetPool, gotPool)
		return persistence.Subscription{
			SubscriptionID: gotSub,
			ResourcePoolID: &gotPool,
			ResourceSeatID: &newSeat,
		}, nil
	}

	svc := New(repository)
	sub, err := svc.SwitchPool(context.Background(), subID, targetPool)
	require.NoError(t, err)
	require.Equal(t, &targetPool, sub.ResourcePoolID)
	require.Equal(t, &newSeat, sub.ResourceSeatID)
}
