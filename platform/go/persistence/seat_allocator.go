package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgxpool.Pool / pgx.Tx the allocator needs, so the
// same claim statements run standalone or inside a linker transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AssignSeatParams carries the assignment metadata written onto a claimed
// seat. ClientID and SubscriptionID are descriptive references, not locks.
type AssignSeatParams struct {
	Email          string
	ClientID       *uuid.UUID
	SubscriptionID *uuid.UUID
}

// emailArg maps an empty email to NULL so an assigned seat claimed by the
// linker (which has no customer email at hand) keeps the assignment fields
// consistent with the available ⇔ all-null invariant.
func (p AssignSeatParams) emailArg() *string {
	if e := strings.TrimSpace(p.Email); e != "" {
		return &e
	}
	return nil
}

// AssignSeat claims one specific seat. The claim is a single conditional
// update joined against the owning pool, so exactly one of two concurrent
// callers can win, and a pool the sweep just expired (or an operator paused
// or archived) refuses the claim atomically.
func (s *PoolStore) AssignSeat(ctx context.Context, seatID uuid.UUID, params AssignSeatParams) (PoolSeat, error) {
	return assignSeat(ctx, s.pool, seatID, params)
}

// AssignNextFreeSeat claims the available seat with the lowest index in the
// pool. Candidate rows are locked with SKIP LOCKED so concurrent callers
// race for different seats instead of serializing on the same one;
// ErrNoAvailableSeats means the pool is genuinely exhausted, not contended.
func (s *PoolStore) AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, params AssignSeatParams) (PoolSeat, error) {
	return assignNextFreeSeat(ctx, s.pool, poolID, params)
}

// UnassignSeat releases a seat back to available, clearing the assignment
// fields and stamping unassigned_at. Any subscription back-reference to the
// seat is cleared in the same transaction, so no reader observes a
// subscription pointing at a released seat. Releasing an already-available
// seat is a no-op success.
func (s *PoolStore) UnassignSeat(ctx context.Context, seatID uuid.UUID) (PoolSeat, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PoolSeat{}, fmt.Errorf("begin unassign tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	seat, err := releaseSeat(ctx, tx, seatID)
	if err != nil {
		return PoolSeat{}, err
	}
	if err := clearSeatBackRefs(ctx, tx, seatID); err != nil {
		return PoolSeat{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PoolSeat{}, fmt.Errorf("commit unassign tx: %w", err)
	}
	return seat, nil
}

const assignSetSQL = `seat_status = '` + SeatStatusAssigned + `',
            assigned_email = $2,
            assigned_client_id = $3,
            assigned_subscription_id = $4,
            assigned_at = NOW(),
            unassigned_at = NULL,
            updated_at = NOW()`

func assignSeat(ctx context.Context, q querier, seatID uuid.UUID, params AssignSeatParams) (PoolSeat, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s s
        SET %s
        FROM %s p
        WHERE s.seat_id = $1
          AND p.pool_id = s.pool_id
          AND s.seat_status = '%s'
          AND p.status IN ('%s', '%s')
          AND p.is_alive
        RETURNING %s
    `, ResourcePoolSeatsTable, assignSetSQL, ResourcePoolsTable,
		SeatStatusAvailable, PoolStatusActive, PoolStatusOverdue,
		prefixedSeatColumns("s")),
		seatID, params.emailArg(), params.ClientID, params.SubscriptionID)

	seat, err := scanSeat(row)
	if err == nil {
		return seat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PoolSeat{}, fmt.Errorf("assign seat: %w", err)
	}

	// The claim was refused; work out why for a precise error. The lookup is
	// a separate statement, so a write landing in between can shift which
	// sentinel comes back. The claim itself stays refused either way.
	var seatStatus string
	var poolStatus string
	var poolAlive bool
	lookupErr := q.QueryRow(ctx, fmt.Sprintf(`
        SELECT s.seat_status, p.status, p.is_alive
        FROM %s s JOIN %s p ON p.pool_id = s.pool_id
        WHERE s.seat_id = $1
    `, ResourcePoolSeatsTable, ResourcePoolsTable), seatID).Scan(&seatStatus, &poolStatus, &poolAlive)
	switch {
	case errors.Is(lookupErr, pgx.ErrNoRows):
		return PoolSeat{}, ErrSeatNotFound
	case lookupErr != nil:
		return PoolSeat{}, fmt.Errorf("inspect refused seat claim: %w", lookupErr)
	case seatStatus != SeatStatusAvailable:
		return PoolSeat{}, ErrSeatUnavailable
	default:
		return PoolSeat{}, ErrPoolNotAssignable
	}
}

func assignNextFreeSeat(ctx context.Context, q querier, poolID uuid.UUID, params AssignSeatParams) (PoolSeat, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        WITH candidate AS (
            SELECT s.seat_id
            FROM %s s
            JOIN %s p ON p.pool_id = s.pool_id
            WHERE s.pool_id = $1
              AND s.seat_status = '%s'
              AND p.status IN ('%s', '%s')
              AND p.is_alive
            ORDER BY s.seat_index
            LIMIT 1
            FOR UPDATE OF s SKIP LOCKED
        )
        UPDATE %s s
        SET %s
        FROM candidate
        WHERE s.seat_id = candidate.seat_id
        RETURNING %s
    `, ResourcePoolSeatsTable, ResourcePoolsTable,
		SeatStatusAvailable, PoolStatusActive, PoolStatusOverdue,
		ResourcePoolSeatsTable, assignSetSQL,
		prefixedSeatColumns("s")),
		poolID, params.emailArg(), params.ClientID, params.SubscriptionID)

	seat, err := scanSeat(row)
	if err == nil {
		return seat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PoolSeat{}, fmt.Errorf("assign next free seat: %w", err)
	}

	// Same best-effort classification caveat as the specific-seat path.
	var poolStatus string
	var poolAlive bool
	lookupErr := q.QueryRow(ctx, fmt.Sprintf(`
        SELECT status, is_alive FROM %s WHERE pool_id = $1
    `, ResourcePoolsTable), poolID).Scan(&poolStatus, &poolAlive)
	switch {
	case errors.Is(lookupErr, pgx.ErrNoRows):
		return PoolSeat{}, ErrPoolNotFound
	case lookupErr != nil:
		return PoolSeat{}, fmt.Errorf("inspect refused pool claim: %w", lookupErr)
	case !poolAlive, poolStatus != PoolStatusActive && poolStatus != PoolStatusOverdue:
		return PoolSeat{}, ErrPoolNotAssignable
	default:
		return PoolSeat{}, ErrNoAvailableSeats
	}
}

func releaseSeat(ctx context.Context, q querier, seatID uuid.UUID) (PoolSeat, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET seat_status = '%s',
            assigned_email = NULL,
            assigned_client_id = NULL,
            assigned_subscription_id = NULL,
            assigned_at = NULL,
            unassigned_at = NOW(),
            updated_at = NOW()
        WHERE seat_id = $1 AND seat_status <> '%s'
        RETURNING %s
    `, ResourcePoolSeatsTable, SeatStatusAvailable, SeatStatusAvailable, seatColumns), seatID)

	seat, err := scanSeat(row)
	if err == nil {
		return seat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PoolSeat{}, fmt.Errorf("release seat: %w", err)
	}

	// Either the seat is already available (idempotent success) or missing.
	row = q.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE seat_id = $1
    `, seatColumns, ResourcePoolSeatsTable), seatID)
	seat, err = scanSeat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PoolSeat{}, ErrSeatNotFound
	}
	if err != nil {
		return PoolSeat{}, fmt.Errorf("inspect released seat: %w", err)
	}
	return seat, nil
}

func clearSeatBackRefs(ctx context.Context, q querier, seatID uuid.UUID) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET resource_pool_id = NULL,
            resource_pool_seat_id = NULL,
            updated_at = NOW()
        WHERE resource_pool_seat_id = $1
    `, SubscriptionsTable), seatID)
	if err != nil {
		return fmt.Errorf("clear seat back-references: %w", err)
	}
	return nil
}

func prefixedSeatColumns(alias string) string {
	cols := strings.Split(seatColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
