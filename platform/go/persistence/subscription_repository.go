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

const SubscriptionsTable = "subscriptions"

// Subscription is the collaborator projection the linker works against: the
// identity plus the pool/seat back-references. The full subscription record
// (billing, product, renewal) lives outside this service.
type Subscription struct {
	SubscriptionID uuid.UUID  `db:"subscription_id" json:"subscriptionId"`
	ClientID       *uuid.UUID `db:"client_id" json:"clientId,omitempty"`
	Label          string     `db:"label" json:"label"`
	ResourcePoolID *uuid.UUID `db:"resource_pool_id" json:"resourcePoolId,omitempty"`
	ResourceSeatID *uuid.UUID `db:"resource_pool_seat_id" json:"resourcePoolSeatId,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

var (
	// ErrSubscriptionNotFound indicates a missing subscription record.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSeatPoolMismatch indicates a link request naming a seat that does
	// not belong to the named pool.
	ErrSeatPoolMismatch = errors.New("seat does not belong to pool")
)

const subscriptionColumns = `subscription_id, client_id, label,
        resource_pool_id, resource_pool_seat_id, created_at, updated_at`

// SubscriptionStore exposes the linker's persistence operations. Unlink and
// switch each run as one transaction, so no reader can observe a subscription
// back-reference pointing at a released seat or vice versa.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore returns a store instance bound to the shared pool.
func NewSubscriptionStore(ctx context.Context, pool *pgxpool.Pool) (*SubscriptionStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SubscriptionStore{pool: pool}, nil
}

// CreateSubscriptionParams captures the minimal fields to register a
// subscription with the inventory service.
type CreateSubscriptionParams struct {
	SubscriptionID uuid.UUID
	ClientID       *uuid.UUID
	Label          string
}

// CreateSubscription registers a subscription so it can be linked to a pool.
func (s *SubscriptionStore) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (Subscription, error) {
	if params.SubscriptionID == uuid.Nil {
		return Subscription{}, errors.New("subscription id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (subscription_id, client_id, label)
        VALUES ($1, $2, $3)
        RETURNING %s
    `, SubscriptionsTable, subscriptionColumns),
		params.SubscriptionID, params.ClientID, strings.TrimSpace(params.Label))

	sub, err := scanSubscription(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Subscription{}, fmt.Errorf("subscription %s already registered", params.SubscriptionID)
		}
		return Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return sub, nil
}

// GetSubscription returns a single subscription by identifier.
func (s *SubscriptionStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE subscription_id = $1
    `, subscriptionColumns, SubscriptionsTable), id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return Subscription{}, err
	}
	return sub, nil
}

// LinkSubscription binds the subscription to a pool and seat. When seatID is
// nil the next free seat in the pool is claimed inside the same transaction;
// when it is set, the seat must already carry this subscription's assignment
// (the allocator ran first) or still be available, in which case it is
// claimed here. Any previously linked seat is released first, so re-linking
// cannot leak a claim.
func (s *SubscriptionStore) LinkSubscription(ctx context.Context, subID, poolID uuid.UUID, seatID *uuid.UUID) (Subscription, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Subscription{}, fmt.Errorf("begin link tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := lockSubscription(ctx, tx, subID)
	if err != nil {
		return Subscription{}, err
	}

	if current.ResourceSeatID != nil && (seatID == nil || *current.ResourceSeatID != *seatID) {
		if _, err := releaseSeat(ctx, tx, *current.ResourceSeatID); err != nil {
			return Subscription{}, fmt.Errorf("release previous seat: %w", err)
		}
	}

	var seat PoolSeat
	if seatID == nil {
		seat, err = assignNextFreeSeat(ctx, tx, poolID, AssignSeatParams{
			Email:          "",
			ClientID:       current.ClientID,
			SubscriptionID: &subID,
		})
		if err != nil {
			return Subscription{}, err
		}
	} else {
		seat, err = getSeatForUpdate(ctx, tx, *seatID)
		if err != nil {
			return Subscription{}, err
		}
		if seat.PoolID != poolID {
			return Subscription{}, ErrSeatPoolMismatch
		}
		alreadyOurs := seat.SeatStatus == SeatStatusAssigned &&
			seat.AssignedSub != nil && *seat.AssignedSub == subID
		if !alreadyOurs {
			seat, err = assignSeat(ctx, tx, *seatID, AssignSeatParams{
				Email:          "",
				ClientID:       current.ClientID,
				SubscriptionID: &subID,
			})
			if err != nil {
				return Subscription{}, err
			}
		}
	}

	updated, err := setSubscriptionLink(ctx, tx, subID, &seat.PoolID, &seat.SeatID)
	if err != nil {
		return Subscription{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, fmt.Errorf("commit link tx: %w", err)
	}
	return updated, nil
}

// UnlinkSubscription releases the subscription's seat and clears both
// back-references in one transaction. Unlinking an unlinked subscription is
// a no-op success.
func (s *SubscriptionStore) UnlinkSubscription(ctx context.Context, subID uuid.UUID) (Subscription, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Subscription{}, fmt.Errorf("begin unlink tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := lockSubscription(ctx, tx, subID)
	if err != nil {
		return Subscription{}, err
	}

	if current.ResourceSeatID != nil {
		if _, err := releaseSeat(ctx, tx, *current.ResourceSeatID); err != nil && !errors.Is(err, ErrSeatNotFound) {
			return Subscription{}, fmt.Errorf("release linked seat: %w", err)
		}
	}

	updated, err := setSubscriptionLink(ctx, tx, subID, nil, nil)
	if err != nil {
		return Subscription{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, fmt.Errorf("commit unlink tx: %w", err)
	}
	return updated, nil
}

// SwitchSubscriptionPool moves the subscription to the next free seat of the
// target pool: old seat released, new seat claimed, back-references
// rewritten, one commit. A failure anywhere rolls the whole move back, so
// the subscription never lands in the half-switched state the two-call
// unlink+link sequence permits.
func (s *SubscriptionStore) SwitchSubscriptionPool(ctx context.Context, subID, targetPoolID uuid.UUID) (Subscription, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Subscription{}, fmt.Errorf("begin switch tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := lockSubscription(ctx, tx, subID)
	if err != nil {
		return Subscription{}, err
	}

	if current.ResourceSeatID != nil {
		if _, err := releaseSeat(ctx, tx, *current.ResourceSeatID); err != nil && !errors.Is(err, ErrSeatNotFound) {
			return Subscription{}, fmt.Errorf("release current seat: %w", err)
		}
	}

	seat, err := assignNextFreeSeat(ctx, tx, targetPoolID, AssignSeatParams{
		Email:          "",
		ClientID:       current.ClientID,
		SubscriptionID: &subID,
	})
	if err != nil {
		return Subscription{}, err
	}

	updated, err := setSubscriptionLink(ctx, tx, subID, &seat.PoolID, &seat.SeatID)
	if err != nil {
		return Subscription{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, fmt.Errorf("commit switch tx: %w", err)
	}
	return updated, nil
}

func lockSubscription(ctx context.Context, q querier, subID uuid.UUID) (Subscription, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE subscription_id = $1 FOR UPDATE
    `, subscriptionColumns, SubscriptionsTable), subID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return Subscription{}, fmt.Errorf("lock subscription: %w", err)
	}
	return sub, nil
}

func getSeatForUpdate(ctx context.Context, q querier, seatID uuid.UUID) (PoolSeat, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE seat_id = $1 FOR UPDATE
    `, seatColumns, ResourcePoolSeatsTable), seatID)

	seat, err := scanSeat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PoolSeat{}, ErrSeatNotFound
		}
		return PoolSeat{}, fmt.Errorf("lock seat: %w", err)
	}
	return seat, nil
}

func setSubscriptionLink(ctx context.Context, q querier, subID uuid.UUID, poolID, seatID *uuid.UUID) (Subscription, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET resource_pool_id = $2,
            resource_pool_seat_id = $3,
            updated_at = NOW()
        WHERE subscription_id = $1
        RETURNING %s
    `, SubscriptionsTable, subscriptionColumns), subID, poolID, seatID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return Subscription{}, fmt.Errorf("update subscription link: %w", err)
	}
	return sub, nil
}

func scanSubscription(row rowScanner) (Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.SubscriptionID,
		&sub.ClientID,
		&sub.Label,
		&sub.ResourcePoolID,
		&sub.ResourceSeatID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}
