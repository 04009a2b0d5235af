package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/domains/inventory/be/repo"
	"github.com/nimbusdesk/inventory-service/platform/go/clock"
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
	ErrNotFound          = errors.New("resource pool not found")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrSeatUnavailable   = errors.New("seat unavailable")
	ErrNoAvailableSeats  = errors.New("no available seats")
	ErrPoolNotAssignable = errors.New("pool not assignable")
)

// PoolStatus enumerates pool lifecycle states.
type PoolStatus = string

const (
	StatusActive    PoolStatus = persistence.PoolStatusActive
	StatusPaused    PoolStatus = persistence.PoolStatusPaused
	StatusCompleted PoolStatus = persistence.PoolStatusCompleted
	StatusOverdue   PoolStatus = persistence.PoolStatusOverdue
	StatusExpired   PoolStatus = persistence.PoolStatusExpired
)

var poolTypes = map[string]struct{}{
	"admin_console": {},
	"family":        {},
	"team":          {},
	"workspace":     {},
}

// Statuses an operator may set directly. Overdue and expired are
// time-derived and owned by the sweep.
var manualStatuses = map[string]struct{}{
	StatusActive:    {},
	StatusPaused:    {},
	StatusCompleted: {},
}

// Pool is the domain view of a resource pool.
type Pool struct {
	ID          uuid.UUID
	Provider    string
	PoolType    string
	LoginEmail  string
	LoginSecret *string
	StartAt     time.Time
	EndAt       time.Time
	MaxSeats    int
	UsedSeats   int
	Status      PoolStatus
	IsAlive     bool
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Seat is the domain view of a pool seat.
type Seat struct {
	ID             uuid.UUID
	PoolID         uuid.UUID
	SeatIndex      int
	SeatStatus     string
	AssignedEmail  *string
	AssignedClient *uuid.UUID
	AssignedSub    *uuid.UUID
	AssignedAt     *time.Time
	UnassignedAt   *time.Time
}

// PoolWithSeats bundles a pool with its full seat ledger.
type PoolWithSeats struct {
	Pool
	Seats []Seat
}

// Stats is the capacity projection of one pool.
type Stats struct {
	TotalSeats     int
	UsedSeats      int
	AvailableSeats int
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
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

// ListResult wraps a page of pools with pagination metadata.
type ListResult struct {
	Pools      []Pool
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// CreateInput represents the payload required to create a new pool.
type CreateInput struct {
	Provider    string
	PoolType    string
	LoginEmail  string
	LoginSecret *string
	StartAt     time.Time
	EndAt       time.Time
	MaxSeats    int
	Notes       *string
}

// UpdateInput encapsulates the editable pool fields.
type UpdateInput struct {
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

// AssignInput carries the metadata stamped onto a claimed seat.
type AssignInput struct {
	Email          string
	ClientID       *uuid.UUID
	SubscriptionID *uuid.UUID
}

// Service defines the business operations for the inventory domain.
type Service interface {
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Create(ctx context.Context, input CreateInput) (Pool, error)
	Get(ctx context.Context, id uuid.UUID) (PoolWithSeats, error)
	Stats(ctx context.Context, id uuid.UUID) (Stats, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Pool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) (Pool, error)
	Restore(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (Pool, error)
	RefreshStatuses(ctx context.Context) (int64, error)
	AssignSeat(ctx context.Context, seatID uuid.UUID, input AssignInput) (Seat, error)
	AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, input AssignInput) (Seat, error)
	UnassignSeat(ctx context.Context, seatID uuid.UUID) (Seat, error)
	SearchBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error)
}

type service struct {
	repo  repo.Repository
	clock clock.Clock
}

// New constructs an inventory Service backed by the provided repository. The
// clock drives the lifecycle sweep and is injected so tests can simulate
// date progression.
func New(r repo.Repository, c clock.Clock) Service {
	if r == nil {
		panic("inventory repository is required")
	}
	if c == nil {
		c = clock.System()
	}
	return &service{repo: r, clock: c}
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	result, err := s.repo.ListPools(ctx, persistence.ListPoolsParams{
		Page:              page,
		PageSize:          pageSize,
		Provider:          trimmed(opts.Provider),
		Status:            trimmed(opts.Status),
		PoolType:          trimmed(opts.PoolType),
		SeatEmail:         trimmed(opts.SeatEmail),
		HasAvailableSeats: opts.HasAvailableSeats,
		FullyUtilized:     opts.FullyUtilized,
		IncludeArchived:   opts.IncludeArchived,
	})
	if err != nil {
		return ListResult{}, err
	}

	pools := make([]Pool, 0, len(result.Pools))
	for _, record := range result.Pools {
		pools = append(pools, mapPool(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Pools:      pools,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (Pool, error) {
	fieldErrors := FieldErrors{}

	provider := strings.TrimSpace(input.Provider)
	if provider == "" {
		fieldErrors.add("provider", "provider is required")
	}
	if _, ok := poolTypes[input.PoolType]; !ok {
		fieldErrors.add("poolType", "poolType must be one of admin_console, family, team, workspace")
	}
	if input.StartAt.IsZero() {
		fieldErrors.add("startAt", "startAt is required")
	}
	if input.EndAt.IsZero() {
		fieldErrors.add("endAt", "endAt is required")
	} else if !input.EndAt.After(input.StartAt) {
		fieldErrors.add("endAt", "endAt must be after startAt")
	}
	if input.MaxSeats < 1 {
		fieldErrors.add("maxSeats", "maxSeats must be at least 1")
	}
	if email := strings.TrimSpace(input.LoginEmail); email != "" && !strings.Contains(email, "@") {
		fieldErrors.add("loginEmail", "loginEmail must contain '@'")
	}

	if len(fieldErrors) > 0 {
		return Pool{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreatePool(ctx, persistence.CreatePoolParams{
		PoolID:      uuid.New(),
		Provider:    provider,
		PoolType:    input.PoolType,
		LoginEmail:  strings.TrimSpace(input.LoginEmail),
		LoginSecret: input.LoginSecret,
		StartAt:     input.StartAt.UTC(),
		EndAt:       input.EndAt.UTC(),
		MaxSeats:    input.MaxSeats,
		Notes:       input.Notes,
	})
	if err != nil {
		return Pool{}, mapPersistenceError(err)
	}

	return mapPool(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (PoolWithSeats, error) {
	if id == uuid.Nil {
		return PoolWithSeats{}, ErrNotFound
	}

	record, err := s.repo.GetPool(ctx, id)
	if err != nil {
		return PoolWithSeats{}, mapPersistenceError(err)
	}

	seatRecords, err := s.repo.GetPoolSeats(ctx, id)
	if err != nil {
		return PoolWithSeats{}, mapPersistenceError(err)
	}

	seats := make([]Seat, 0, len(seatRecords))
	for _, sr := range seatRecords {
		seats = append(seats, mapSeat(sr))
	}

	return PoolWithSeats{Pool: mapPool(record), Seats: seats}, nil
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (Stats, error) {
	if id == uuid.Nil {
		return Stats{}, ErrNotFound
	}

	stats, err := s.repo.GetPoolStats(ctx, id)
	if err != nil {
		return Stats{}, mapPersistenceError(err)
	}

	return Stats{
		TotalSeats:     stats.TotalSeats,
		UsedSeats:      stats.UsedSeats,
		AvailableSeats: stats.AvailableSeats,
	}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Pool, error) {
	if id == uuid.Nil {
		return Pool{}, ErrNotFound
	}

	params, err := s.buildUpdateParams(ctx, id, input)
	if err != nil {
		return Pool{}, err
	}

	record, repoErr := s.repo.UpdatePool(ctx, id, params)
	if repoErr != nil {
		return Pool{}, mapPersistenceError(repoErr)
	}

	return mapPool(record), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if err := s.repo.DeletePool(ctx, id); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

func (s *service) Archive(ctx context.Context, id uuid.UUID) (Pool, error) {
	if id == uuid.Nil {
		return Pool{}, ErrNotFound
	}
	record, err := s.repo.ArchivePool(ctx, id)
	if err != nil {
		return Pool{}, mapPersistenceError(err)
	}
	return mapPool(record), nil
}

func (s *service) Restore(ctx context.Context, id uuid.UUID, newEndAt *time.Time) (Pool, error) {
	if id == uuid.Nil {
		return Pool{}, ErrNotFound
	}

	if newEndAt != nil && !newEndAt.After(s.clock.Now()) {
		return Pool{}, &ValidationError{Fields: FieldErrors{
			"endAt": {"endAt must be in the future"},
		}}
	}

	record, err := s.repo.RestorePool(ctx, id, newEndAt)
	if err != nil {
		return Pool{}, mapPersistenceError(err)
	}
	return mapPool(record), nil
}

// RefreshStatuses runs the idempotent lifecycle sweep against the injected
// clock and reports how many pools transitioned.
func (s *service) RefreshStatuses(ctx context.Context) (int64, error) {
	return s.repo.SweepPoolStatuses(ctx, s.clock.Now())
}

func (s *service) AssignSeat(ctx context.Context, seatID uuid.UUID, input AssignInput) (Seat, error) {
	if seatID == uuid.Nil {
		return Seat{}, ErrSeatNotFound
	}
	params, err := validateAssignInput(input)
	if err != nil {
		return Seat{}, err
	}

	record, err := s.repo.AssignSeat(ctx, seatID, params)
	if err != nil {
		return Seat{}, mapPersistenceError(err)
	}
	return mapSeat(record), nil
}

func (s *service) AssignNextFreeSeat(ctx context.Context, poolID uuid.UUID, input AssignInput) (Seat, error) {
	if poolID == uuid.Nil {
		return Seat{}, ErrNotFound
	}
	params, err := validateAssignInput(input)
	if err != nil {
		return Seat{}, err
	}

	record, err := s.repo.AssignNextFreeSeat(ctx, poolID, params)
	if err != nil {
		return Seat{}, mapPersistenceError(err)
	}
	return mapSeat(record), nil
}

func (s *service) UnassignSeat(ctx context.Context, seatID uuid.UUID) (Seat, error) {
	if seatID == uuid.Nil {
		return Seat{}, ErrSeatNotFound
	}
	record, err := s.repo.UnassignSeat(ctx, seatID)
	if err != nil {
		return Seat{}, mapPersistenceError(err)
	}
	return mapSeat(record), nil
}

func (s *service) SearchBySeatEmail(ctx context.Context, substring string) ([]uuid.UUID, error) {
	needle := strings.TrimSpace(substring)
	if needle == "" {
		return nil, &ValidationError{Fields: FieldErrors{
			"seatEmail": {"seatEmail is required"},
		}}
	}
	return s.repo.SearchPoolsBySeatEmail(ctx, needle)
}

func (s *service) buildUpdateParams(ctx context.Context, id uuid.UUID, input UpdateInput) (persistence.UpdatePoolParams, error) {
	fieldErrors := FieldErrors{}
	params := persistence.UpdatePoolParams{}
	fieldsSet := 0

	if input.Provider != nil {
		provider := strings.TrimSpace(*input.Provider)
		if provider == "" {
			fieldErrors.add("provider", "provider cannot be empty")
		} else {
			params.Provider = &provider
			fieldsSet++
		}
	}
	if input.PoolType != nil {
		if _, ok := poolTypes[*input.PoolType]; !ok {
			fieldErrors.add("poolType", "poolType must be one of admin_console, family, team, workspace")
		} else {
			params.PoolType = input.PoolType
			fieldsSet++
		}
	}
	if input.LoginEmail != nil {
		email := strings.TrimSpace(*input.LoginEmail)
		if email != "" && !strings.Contains(email, "@") {
			fieldErrors.add("loginEmail", "loginEmail must contain '@'")
		} else {
			params.LoginEmail = &email
			fieldsSet++
		}
	}
	if input.LoginSecret != nil {
		params.LoginSecret = input.LoginSecret
		fieldsSet++
	}
	if input.Status != nil {
		if _, ok := manualStatuses[*input.Status]; !ok {
			fieldErrors.add("status", "status must be one of active, paused, completed")
		} else {
			params.Status = input.Status
			fieldsSet++
		}
	}
	if input.Notes != nil {
		params.Notes = input.Notes
		fieldsSet++
	}
	if input.MaxSeats != nil {
		if *input.MaxSeats < 1 {
			fieldErrors.add("maxSeats", "maxSeats must be at least 1")
		} else {
			params.MaxSeats = input.MaxSeats
			fieldsSet++
		}
	}

	// The validity window is validated against the merged values, so moving
	// only one endpoint cannot invert it.
	if input.StartAt != nil || input.EndAt != nil {
		current, err := s.repo.GetPool(ctx, id)
		if err != nil {
			return persistence.UpdatePoolParams{}, mapPersistenceError(err)
		}
		startAt := current.StartAt
		endAt := current.EndAt
		if input.StartAt != nil {
			startAt = input.StartAt.UTC()
			params.StartAt = &startAt
			fieldsSet++
		}
		if input.EndAt != nil {
			endAt = input.EndAt.UTC()
			params.EndAt = &endAt
			fieldsSet++
		}
		if !endAt.After(startAt) {
			fieldErrors.add("endAt", "endAt must be after startAt")
		}
	}

	if fieldsSet == 0 && len(fieldErrors) == 0 {
		fieldErrors.add("payload", "at least one field must be provided")
	}

	if len(fieldErrors) > 0 {
		return persistence.UpdatePoolParams{}, &ValidationError{Fields: fieldErrors}
	}

	return params, nil
}

func validateAssignInput(input AssignInput) (persistence.AssignSeatParams, error) {
	fieldErrors := FieldErrors{}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	if len(fieldErrors) > 0 {
		return persistence.AssignSeatParams{}, &ValidationError{Fields: fieldErrors}
	}

	return persistence.AssignSeatParams{
		Email:          strings.ToLower(email),
		ClientID:       input.ClientID,
		SubscriptionID: input.SubscriptionID,
	}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func mapPool(record persistence.ResourcePool) Pool {
	return Pool{
		ID:          record.PoolID,
		Provider:    record.Provider,
		PoolType:    record.PoolType,
		LoginEmail:  record.LoginEmail,
		LoginSecret: record.LoginSecret,
		StartAt:     record.StartAt,
		EndAt:       record.EndAt,
		MaxSeats:    record.MaxSeats,
		UsedSeats:   record.UsedSeats,
		Status:      record.Status,
		IsAlive:     record.IsAlive,
		Notes:       record.Notes,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapSeat(record persistence.PoolSeat) Seat {
	return Seat{
		ID:             record.SeatID,
		PoolID:         record.PoolID,
		SeatIndex:      record.SeatIndex,
		SeatStatus:     record.SeatStatus,
		AssignedEmail:  record.AssignedEmail,
		AssignedClient: record.AssignedClient,
		AssignedSub:    record.AssignedSub,
		AssignedAt:     record.AssignedAt,
		UnassignedAt:   record.UnassignedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrPoolNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrSeatNotFound):
		return ErrSeatNotFound
	case errors.Is(err, persistence.ErrSeatUnavailable):
		return ErrSeatUnavailable
	case errors.Is(err, persistence.ErrNoAvailableSeats):
		return ErrNoAvailableSeats
	case errors.Is(err, persistence.ErrPoolNotAssignable):
		return ErrPoolNotAssignable
	case errors.Is(err, persistence.ErrSeatsStillAssigned):
		return &ValidationError{Fields: FieldErrors{
			"maxSeats": {"cannot reduce capacity below the highest assigned seat"},
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
