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

const (
	ResourcePoolsTable     = "resource_pools"
	ResourcePoolSeatsTable = "resource_pool_seats"
)

// Pool status values. The sweep only ever writes the time-derived triple
// (active, overdue, expired); paused and completed are operator-set and
// sticky.
const (
	PoolStatusActive    = "active"
	PoolStatusPaused    = "paused"
	PoolStatusCompleted = "completed"
	PoolStatusOverdue   = "overdue"
	PoolStatusExpired   = "expired"
)

// Seat status values.
const (
	SeatStatusAvailable = "available"
	SeatStatusReserved  = "reserved"
	SeatStatusAssigned  = "assigned"
)

// OverdueWindow is how long before end_at a pool is reported as overdue.
const OverdueWindow = 24 * time.Hour

// DerivePoolStatus returns the time-derived status for a validity window.
// It is the Go mirror of the CASE expression in SweepPoolStatuses and the
// single source of truth for non-SQL implementations.
func DerivePoolStatus(now, endAt time.Time) string {
	switch {
	case !now.Before(endAt):
		return PoolStatusExpired
	case !now.Before(endAt.Add(-OverdueWindow)):
		return PoolStatusOverdue
	default:
		return PoolStatusActive
	}
}

// ResourcePool represents a row in the resource_pools table. UsedSeats is
// maintained by the recount trigger and is never written by Go code.
type ResourcePool struct {
	PoolID      uuid.UUID `db:"pool_id" json:"poolId"`
	Provider    string    `db:"provider" json:"provider"`
	PoolType    string    `db:"pool_type" json:"poolType"`
	LoginEmail  string    `db:"login_email" json:"loginEmail"`
	LoginSecret *string   `db:"login_secret" json:"loginSecret,omitempty"`
	StartAt     time.Time `db:"start_at" json:"startAt"`
	EndAt       time.Time `db:"end_at" json:"endAt"`
	MaxSeats    int       `db:"max_seats" json:"maxSeats"`
	UsedSeats   int       `db:"used_seats" json:"usedSeats"`
	Status      string    `db:"status" json:"status"`
	IsAlive     bool      `db:"is_alive" json:"isAlive"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// PoolSeat represents a row in the resource_pool_seats table.
type PoolSeat struct {
	SeatID         uuid.UUID  `db:"seat_id" json:"seatId"`
	PoolID         uuid.UUID  `db:"pool_id" json:"poolId"`
	SeatIndex      int        `db:"seat_index" json:"seatIndex"`
	SeatStatus     string     `db:"seat_status" json:"seatStatus"`
	AssignedEmail  *string    `db:"assigned_email" json:"assignedEmail,omitempty"`
	AssignedClient *uuid.UUID `db:"assigned_client_id" json:"assignedClientId,omitempty"`
	AssignedSub    *uuid.UUID `db:"assigned_subscription_id" json:"assignedSubscriptionId,omitempty"`
	AssignedAt     *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
	UnassignedAt   *time.Time `db:"unassigned_at" json:"unassignedAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// PoolStats is the read-only capacity projection of a pool's seat ledger.
type PoolStats struct {
	TotalSeats     int `json:"totalSeats"`
	UsedSeats      int `json:"usedSeats"`
	AvailableSeats int `json:"availableSeats"`
}

var (
	// ErrPoolNotFound indicates a missing resource pool record.
	ErrPoolNotFound = errors.New("resource pool not found")
	// ErrSeatNotFound indicates a missing seat record.
	ErrSeatNotFound = errors.New("pool seat not found")
	// ErrSeatUnavailable indicates a specific-seat claim against a seat that
	// is not currently available.
	ErrSeatUnavailable = errors.New("pool seat unavailable")
	// ErrNoAvailableSeats indicates a pool with zero claimable seats at the
	// moment of the attempt.
	ErrNoAvailableSeats = errors.New("no available seats in pool")
	// ErrPoolNotAssignable indicates the owning pool is paused, completed,
	// expired or archived, so seat claims are refused.
	ErrPoolNotAssignable = errors.New("resource pool not assignable")
	// ErrSeatsStillAssigned indicates a capacity reduction would drop seats
	// that still carry assignments.
	ErrSeatsStillAssigned = errors.New("seats above new capacity still assigned")
)

const poolColumns = `pool_id, provider, pool_type, login_email, login_secret,
        start_at, end_at, max_seats, used_seats, status, is_alive, notes,
        created_at, updated_at`

const seatColumns = `seat_id, pool_id, seat_index, seat_status, assigned_email,
        assigned_client_id, assigned_subscription_id, assigned_at,
        unassigned_at, created_at, updated_at`

// PoolStore exposes persistence helpers for resource pools and their seats.
// Every seat mutation goes through this store so the recount trigger is the
// single writer of used_seats.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore returns a store instance bound to the shared connection pool.
func NewPoolStore(ctx context.Context, pool *pgxpool.Pool) (*PoolStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PoolStore{pool: pool}, nil
}

// CreatePoolParams captures the fields required to insert a new pool. Seats
// are created alongside, indexes 0..MaxSeats-1.
type CreatePoolParams struct {
	PoolID      uuid.UUID
	Provider    string
	PoolType    string
	LoginEmail  string
	LoginSecret *string
	StartAt     time.Time
	EndAt       time.Time
	MaxSeats    int
	Notes       *string
}

// CreatePool inserts the pool row plus its seat rows in one transaction and
// returns the persisted record.
func (s *PoolStore) CreatePool(ctx context.Context, params CreatePoolParams) (ResourcePool, error) {
	if params.PoolID == uuid.Nil {
		return ResourcePool{}, errors.New("pool id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ResourcePool{}, fmt.Errorf("begin pool tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (pool_id, provider, pool_type, login_email, login_secret,
                        start_at, end_at, max_seats, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING %s
    `, ResourcePoolsTable, poolColumns),
		params.PoolID,
		strings.TrimSpace(params.Provider),
		params.PoolType,
		strings.TrimSpace(params.LoginEmail),
		params.LoginSecret,
		params.StartAt,
		params.EndAt,
		params.MaxSeats,
		params.Notes,
	)

	created, err := scanPool(row)
	if err != nil {
		return ResourcePool{}, fmt.Errorf("insert resource pool: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (seat_id, pool_id, seat_index)
        SELECT gen_random_uuid(), $1, idx
        FROM generate_series(0, $2::int - 1) AS idx
    `, ResourcePoolSeatsTable), params.PoolID, params.MaxSeats); err != nil {
		return ResourcePool{}, fmt.Errorf("insert pool seats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ResourcePool{}, fmt.Errorf("commit pool tx: %w", err)
	}

	return created, nil
}

// ListPoolsParams captures filters and pagination for ListPools.
type ListPoolsParams struct {
	Page              int
	PageSize          int
	Provider          *string
	Status            *string
	PoolType          *string
	SeatEmail         *string
	HasAvailableSeats bool
	FullyUtilized     bool
	IncludeArchived   bool
}

// ListPoolsResult includes the rows and the total count for pagination metadata.
type ListPoolsResult struct {
	Pools      []ResourcePool
	TotalItems int
}

// ListPools returns pools matching the filters with pagination applied,
// newest first.
func (s *PoolStore) ListPools(ctx context.Context, params ListPoolsParams) (ListPoolsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	whereParts := []string{"1=1"}
	var args []any

	if !params.IncludeArchived {
		whereParts = append(whereParts, "is_alive")
	}
	if params.Provider != nil && strings.TrimSpace(*params.Provider) != "" {
		args = append(args, strings.TrimSpace(*params.Provider))
		whereParts = append(whereParts, fmt.Sprintf("provider = $%d", len(args)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		args = append(args, strings.TrimSpace(*params.Status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.PoolType != nil && strings.TrimSpace(*params.PoolType) != "" {
		args = append(args, strings.TrimSpace(*params.PoolType))
		whereParts = append(whereParts, fmt.Sprintf("pool_type = $%d", len(args)))
	}
	if params.HasAvailableSeats {
		whereParts = append(whereParts, "used_seats < max_seats")
	}
	if params.FullyUtilized {
		whereParts = append(whereParts, "used_seats >= max_seats")
	}
	if params.SeatEmail != nil && strings.TrimSpace(*params.SeatEmail) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.SeatEmail))+"%")
		whereParts = append(whereParts, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM %s s
            WHERE s.pool_id = %s.pool_id AND LOWER(s.assigned_email) LIKE $%d
        )`, ResourcePoolSeatsTable, ResourcePoolsTable, len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", ResourcePoolsTable, whereSQL)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListPoolsResult{}, fmt.Errorf("count pools: %w", err)
	}

	result := ListPoolsResult{Pools: []ResourcePool{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, params.PageSize, (params.Page-1)*params.PageSize)

	query := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, poolColumns, ResourcePoolsTable, whereSQL, len(dataArgs)-1, len(dataArgs))

	rows, err := s.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return ListPoolsResult{}, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	pools := make([]ResourcePool, 0)
	for rows.Next() {
		pool, scanErr := scanPool(rows)
		if scanErr != nil {
			return ListPoolsResult{}, fmt.Errorf("scan pool: %w", scanErr)
		}
		pools = append(pools, pool)
	}
	if err = rows.Err(); err != nil {
		return ListPoolsResult{}, fmt.Errorf("iterate pools: %w", err)
	}

	result.Pools = pools
	return result, nil
}

// GetPool returns a single pool by identifier.
func (s *PoolStore) GetPool(ctx context.Context, id uuid.UUID) (ResourcePool, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE pool_id = $1
    `, poolColumns, ResourcePoolsTable), id)

	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourcePool{}, ErrPoolNotFound
		}
		return ResourcePool{}, err
	}
	return pool, nil
}

// GetPoolSeats returns the pool's seats ordered by seat index.
func (s *PoolStore) GetPoolSeats(ctx context.Context, poolID uuid.UUID) ([]PoolSeat, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE pool_id = $1 ORDER BY seat_index
    `, seatColumns, ResourcePoolSeatsTable), poolID)
	if err != nil {
		return nil, fmt.Errorf("list pool seats: %w", err)
	}
	defer rows.Close()

	seats := make([]PoolSeat, 0)
	for rows.Next() {
		seat, scanErr := scanSeat(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan pool seat: %w", scanErr)
		}
		seats = append(seats, seat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool seats: %w", err)
	}
	return seats, nil
}

// GetSeat returns a single seat by identifier.
func (s *PoolStore) GetSeat(ctx context.Context, seatID uuid.UUID) (PoolSeat, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE seat_id = $1
    `, seatColumns, ResourcePoolSeatsTable), seatID)

	seat, err := scanSeat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PoolSeat{}, ErrSeatNotFound
		}
		return PoolSeat{}, err
	}
	return seat, nil
}

// UpdatePoolParams represents the editable pool fields. A nil field is left
// untouched. MaxSeats growth appends fresh seats at the next indexes; a
// reduction is refused unless every dropped seat is available.
type UpdatePoolParams struct {
	Provider    *string
	PoolType    *string
	LoginEmail  *string
	LoginSecret *string
	StartAt     *time.Time
	EndAt       *time.Time
	MaxSeats    *int
	Status      *string
	Notes       *string
}

// UpdatePool applies the provided fields and returns the updated record. The
// validity window is re-validated against the merged values, and seat rows
// are appended or trimmed when capacity changes, all in one transaction.
func (s *PoolStore) UpdatePool(ctx context.Context, id uuid.UUID, params UpdatePoolParams) (ResourcePool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ResourcePool{}, fmt.Errorf("begin pool update tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE pool_id = $1 FOR UPDATE
    `, poolColumns, ResourcePoolsTable), id)

	current, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourcePool{}, ErrPoolNotFound
		}
		return ResourcePool{}, err
	}

	setParts := []string{}
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Provider != nil {
		add("provider", strings.TrimSpace(*params.Provider))
	}
	if params.PoolType != nil {
		add("pool_type", *params.PoolType)
	}
	if params.LoginEmail != nil {
		add("login_email", strings.TrimSpace(*params.LoginEmail))
	}
	if params.LoginSecret != nil {
		add("login_secret", *params.LoginSecret)
	}
	if params.StartAt != nil {
		add("start_at", *params.StartAt)
	}
	if params.EndAt != nil {
		add("end_at", *params.EndAt)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}
	if params.MaxSeats != nil {
		add("max_seats", *params.MaxSeats)
	}

	if len(setParts) == 0 {
		return ResourcePool{}, errors.New("no fields to update")
	}

	if params.MaxSeats != nil && *params.MaxSeats < current.MaxSeats {
		var blocked int
		if err := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT COUNT(*) FROM %s
            WHERE pool_id = $1 AND seat_index >= $2 AND seat_status <> $3
        `, ResourcePoolSeatsTable), id, *params.MaxSeats, SeatStatusAvailable).Scan(&blocked); err != nil {
			return ResourcePool{}, fmt.Errorf("check seats above capacity: %w", err)
		}
		if blocked > 0 {
			return ResourcePool{}, ErrSeatsStillAssigned
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
            DELETE FROM %s WHERE pool_id = $1 AND seat_index >= $2
        `, ResourcePoolSeatsTable), id, *params.MaxSeats); err != nil {
			return ResourcePool{}, fmt.Errorf("trim pool seats: %w", err)
		}
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE pool_id = $%d
        RETURNING %s
    `, ResourcePoolsTable, strings.Join(setParts, ", "), len(args), poolColumns)

	updated, err := scanPool(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return ResourcePool{}, fmt.Errorf("update resource pool: %w", err)
	}

	if params.MaxSeats != nil && *params.MaxSeats > current.MaxSeats {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
            INSERT INTO %s (seat_id, pool_id, seat_index)
            SELECT gen_random_uuid(), $1, idx
            FROM generate_series($2::int, $3::int - 1) AS idx
        `, ResourcePoolSeatsTable), id, current.MaxSeats, *params.MaxSeats); err != nil {
			return ResourcePool{}, fmt.Errorf("append pool seats: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ResourcePool{}, fmt.Errorf("commit pool update tx: %w", err)
	}

	return updated, nil
}

// DeletePool removes the pool; seat rows cascade.
func (s *PoolStore) DeletePool(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE pool_id = $1
    `, ResourcePoolsTable), id)
	if err != nil {
		return fmt.Errorf("delete resource pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// ArchivePool flips is_alive off without touching the status fields.
func (s *PoolStore) ArchivePool(ctx context.Context, id uuid.UUID) (ResourcePool, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET is_alive = FALSE, updated_at = NOW()
        WHERE pool_id = $1
        RETURNING %s
    `, ResourcePoolsTable, poolColumns), id)

	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourcePool{}, ErrPoolNotFound
		}
		return ResourcePool{}, err
	}
	return pool, nil
}

// RestorePool un-archives a pool: status back to active, is_alive on. When
// newEndAt is non-nil the validity window is extended in the same write;
// without it a pool whose end_at already passed will be re-expired by the
// next sweep tick.
func (s *PoolStore) RestorePool(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (ResourcePool, error) {
	setSQL := "status = $2, is_alive = TRUE, updated_at = NOW()"
	args := []any{id, PoolStatusActive}
	if newEndAt != nil {
		args = append(args, *newEndAt)
		setSQL += fmt.Sprintf(", end_at = $%d", len(args))
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET %s
        WHERE pool_id = $1
        RETURNING %s
    `, ResourcePoolsTable, setSQL, poolColumns), args...)

	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourcePool{}, ErrPoolNotFound
		}
		return ResourcePool{}, err
	}
	return pool, nil
}

// SweepPoolStatuses recomputes the time-derived status of every live pool in
// active or overdue state, forcing is_alive off at expiry. Paused and
// completed pools are never touched. The statement only writes rows whose
// derived status differs, so running it twice with the same clock reading is
// a no-op. Returns the number of pools transitioned.
func (s *PoolStore) SweepPoolStatuses(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s
        SET status = derived.next_status,
            is_alive = CASE WHEN derived.next_status = '%s' THEN FALSE ELSE is_alive END,
            updated_at = NOW()
        FROM (
            SELECT pool_id,
                   CASE
                       WHEN $1 >= end_at THEN '%s'
                       WHEN $1 >= end_at - $2::interval THEN '%s'
                       ELSE '%s'
                   END AS next_status
            FROM %s
            WHERE status IN ('%s', '%s')
        ) AS derived
        WHERE %s.pool_id = derived.pool_id
          AND %s.status <> derived.next_status
    `,
		ResourcePoolsTable,
		PoolStatusExpired,
		PoolStatusExpired, PoolStatusOverdue, PoolStatusActive,
		ResourcePoolsTable,
		PoolStatusActive, PoolStatusOverdue,
		ResourcePoolsTable, ResourcePoolsTable,
	), now, OverdueWindow)
	if err != nil {
		return 0, fmt.Errorf("sweep pool statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetPoolStats returns the capacity projection for one pool.
func (s *PoolStore) GetPoolStats(ctx context.Context, id uuid.UUID) (PoolStats, error) {
	var stats PoolStats
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT max_seats, used_seats, max_seats - used_seats
        FROM %s WHERE pool_id = $1
    `, ResourcePoolsTable), id).Scan(&stats.TotalSeats, &stats.UsedSeats, &stats.AvailableSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PoolStats{}, ErrPoolNotFound
		}
		return PoolStats{}, fmt.Errorf("pool stats: %w", err)
	}
	return stats, nil
}

// SearchPoolsBySeatEmail returns the ids of pools having at least one seat
// whose assignee email contains the given substring, case-insensitively.
func (s *PoolStore) SearchPoolsBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(substring)) + "%"

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT DISTINCT pool_id
        FROM %s
        WHERE assigned_email IS NOT NULL AND LOWER(assigned_email) LIKE $1
    `, ResourcePoolSeatsTable), pattern)
	if err != nil {
		return nil, fmt.Errorf("search pools by seat email: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pool id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (ResourcePool, error) {
	var p ResourcePool
	err := row.Scan(
		&p.PoolID,
		&p.Provider,
		&p.PoolType,
		&p.LoginEmail,
		&p.LoginSecret,
		&p.StartAt,
		&p.EndAt,
		&p.MaxSeats,
		&p.UsedSeats,
		&p.Status,
		&p.IsAlive,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanSeat(row rowScanner) (PoolSeat, error) {
	var s PoolSeat
	err := row.Scan(
		&s.SeatID,
		&s.PoolID,
		&s.SeatIndex,
		&s.SeatStatus,
		&s.AssignedEmail,
		&s.AssignedClient,
		&s.AssignedSub,
		&s.AssignedAt,
		&s.UnassignedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}
