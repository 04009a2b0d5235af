package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/domains/subscriptions/be/repo"
	"github.com/nimbusdesk/inventory-service/platform/go/persistence"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound          = errors.New("subscription not found")
	ErrPoolNotFound      = errors.New("resource pool not found")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrSeatUnavailable   = errors.New("seat unavailable")
	ErrNoAvailableSeats  = errors.New("no available seats")
	ErrPoolNotAssignable = errors.New("pool not assignable")
)

// Subscription is the domain view of the collaborator projection.
type Subscription struct {
	ID             uuid.UUID
	ClientID       *uuid.UUID
	Label          string
	ResourcePoolID *uuid.UUID
	ResourceSeatID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateInput registers a subscription with the inventory service.
type CreateInput struct {
	SubscriptionID uuid.UUID
	ClientID       *uuid.UUID
	Label          string
}

// LinkInput names the target pool and, optionally, a specific seat.
type LinkInput struct {
	PoolID uuid.UUID
	SeatID *uuid.UUID
}

// Service defines the linker operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Subscription, error)
	Get(ctx context.Context, id uuid.UUID) (Subscription, error)
	Link(ctx context.Context, subID uuid.UUID, input LinkInput) (Subscription, error)
	Unlink(ctx context.Context, subID uuid.UUID) (Subscription, error)
	SwitchPool(ctx context.Context, subID, targetPoolID uuid.UUID) (Subscription, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a linker Service backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("subscription repository is required")
	}
	return &service{repo: r}
}

func (s *service) Create(ctx context.Context, input CreateInput) (Subscription, error) {
	fieldErrors := FieldErrors{}
	if input.SubscriptionID == uuid.Nil {
		fieldErrors.add("subscriptionId", "subscriptionId is required")
	}
	label := strings.TrimSpace(input.Label)
	if label == "" {
		fieldErrors.add("label", "label is required")
	}
	if len(fieldErrors) > 0 {
		return Subscription{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateSubscription(ctx, persistence.CreateSubscriptionParams{
		SubscriptionID: input.SubscriptionID,
		ClientID:       input.ClientID,
		Label:          label,
	})
	if err != nil {
		return Subscription{}, mapPersistenceError(err)
	}
	return mapSubscription(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Subscription, error) {
	if id == uuid.Nil {
		return Subscription{}, ErrNotFound
	}
	record, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, mapPersistenceError(err)
	}
	return mapSubscription(record), nil
}

func (s *service) Link(ctx context.Context, subID uuid.UUID, input LinkInput) (Subscription, error) {
	if subID == uuid.Nil {
		return Subscription{}, ErrNotFound
	}
	if input.PoolID == uuid.Nil {
		return Subscription{}, &ValidationError{Fields: FieldErrors{
			"poolId": {"poolId is required"},
		}}
	}
	if input.SeatID != nil && *input.SeatID == uuid.Nil {
		return Subscription{}, &ValidationError{Fields: FieldErrors{
			"seatId": {"seatId must be a valid UUID when provided"},
		}}
	}

	record, err := s.repo.LinkSubscription(ctx, subID, input.PoolID, input.SeatID)
	if err != nil {
		return Subscription{}, mapPersistenceError(err)
	}
	return mapSubscription(record), nil
}

func (s *service) Unlink(ctx context.Context, subID uuid.UUID) (Subscription, error) {
	if subID == uuid.Nil {
		return Subscription{}, ErrNotFound
	}
	record, err := s.repo.UnlinkSubscription(ctx, subID)
	if err != nil {
		return Subscription{}, mapPersistenceError(err)
	}
	return mapSubscription(record), nil
}

func (s *service) SwitchPool(ctx context.Context, subID, targetPoolID uuid.UUID) (Subscription, error) {
	if subID == uuid.Nil {
		return Subscription{}, ErrNotFound
	}
	if targetPoolID == uuid.Nil {
		return Subscription{}, &ValidationError{Fields: FieldErrors{
			"poolId": {"poolId is required"},
		}}
	}

	record, err := s.repo.SwitchSubscriptionPool(ctx, subID, targetPoolID)
	if err != nil {
		return Subscription{}, mapPersistenceError(err)
	}
	return mapSubscription(record), nil
}

func mapSubscription(record persistence.Subscription) Subscription {
	return Subscription{
		ID:             record.SubscriptionID,
		ClientID:       record.ClientID,
		Label:          record.Label,
		ResourcePoolID: record.ResourcePoolID,
		ResourceSeatID: record.ResourceSeatID,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrSubscriptionNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrPoolNotFound):
		return ErrPoolNotFound
	case errors.Is(err, persistence.ErrSeatNotFound):
		return ErrSeatNotFound
	case errors.Is(err, persistence.ErrSeatUnavailable):
		return ErrSeatUnavailable
	case errors.Is(err, persistence.ErrNoAvailableSeats):
		return ErrNoAvailableSeats
	case errors.Is(err, persistence.ErrPoolNotAssignable):
		return ErrPoolNotAssignable
	case errors.Is(err, persistence.ErrSeatPoolMismatch):
		return &ValidationError{Fields: FieldErrors{
			"seatId": {"seat does not belong to the requested pool"},
		}}
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
