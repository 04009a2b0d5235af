package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdesk/inventory-service/domains/accounts/be/repo"
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

// ErrNotFound indicates a missing personal account.
var ErrNotFound = errors.New("personal account not found")

var accountStatuses = map[string]struct{}{
	persistence.AccountStatusAvailable: {},
	persistence.AccountStatusAssigned:  {},
	persistence.AccountStatusExpired:   {},
}

// Account is the domain view of a personal account.
type Account struct {
	ID          uuid.UUID
	Provider    string
	LoginEmail  string
	LoginSecret *string
	ExpiryDate  time.Time
	Status      string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListOptions controls account filtering.
type ListOptions struct {
	Provider *string
	Status   *string
}

// CreateInput represents the payload required to create a new account.
type CreateInput struct {
	Provider    string
	LoginEmail  string
	LoginSecret *string
	ExpiryDate  time.Time
	Notes       *string
}

// UpdateInput encapsulates the editable account fields.
type UpdateInput struct {
	Provider    *string
	LoginEmail  *string
	LoginSecret *string
	ExpiryDate  *time.Time
	Status      *string
	Notes       *string
}

// Service defines the business operations for personal accounts.
type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Account, error)
	Create(ctx context.Context, input CreateInput) (Account, error)
	Get(ctx context.Context, id uuid.UUID) (Account, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RefreshStatuses(ctx context.Context) (int64, error)
}

type service struct {
	repo  repo.Repository
	clock clock.Clock
}

// New constructs an accounts Service backed by the provided repository. The
// clock drives expiry detection and is injected so tests can simulate date
// progression.
func New(r repo.Repository, c clock.Clock) Service {
	if r == nil {
		panic("account repository is required")
	}
	if c == nil {
		c = clock.System()
	}
	return &service{repo: r, clock: c}
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Account, error) {
	records, err := s.repo.ListAccounts(ctx, persistence.ListAccountsParams{
		Provider: opts.Provider,
		Status:   opts.Status,
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, mapAccount(record))
	}
	return accounts, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (Account, error) {
	fieldErrors := FieldErrors{}

	provider := strings.TrimSpace(input.Provider)
	if provider == "" {
		fieldErrors.add("provider", "provider is required")
	}
	email := strings.TrimSpace(input.LoginEmail)
	if email == "" {
		fieldErrors.add("loginEmail", "loginEmail is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("loginEmail", "loginEmail must contain '@'")
	}
	if input.ExpiryDate.IsZero() {
		fieldErrors.add("expiryDate", "expiryDate is required")
	}

	if len(fieldErrors) > 0 {
		return Account{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateAccount(ctx, persistence.CreateAccountParams{
		AccountID:   uuid.New(),
		Provider:    provider,
		LoginEmail:  email,
		LoginSecret: input.LoginSecret,
		ExpiryDate:  input.ExpiryDate.UTC(),
		Notes:       input.Notes,
	})
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}
	return mapAccount(record), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	if id == uuid.Nil {
		return Account{}, ErrNotFound
	}
	record, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}
	return mapAccount(record), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Account, error) {
	if id == uuid.Nil {
		return Account{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}
	params := persistence.UpdateAccountParams{}
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
	if input.LoginEmail != nil {
		email := strings.TrimSpace(*input.LoginEmail)
		if email == "" || !strings.Contains(email, "@") {
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
	if input.ExpiryDate != nil {
		expiry := input.ExpiryDate.UTC()
		params.ExpiryDate = &expiry
		fieldsSet++
	}
	if input.Status != nil {
		if _, ok := accountStatuses[*input.Status]; !ok {
			fieldErrors.add("status", "status must be one of available, assigned, expired")
		} else {
			params.Status = input.Status
			fieldsSet++
		}
	}
	if input.Notes != nil {
		params.Notes = input.Notes
		fieldsSet++
	}

	if fieldsSet == 0 && len(fieldErrors) == 0 {
		fieldErrors.add("payload", "at least one field must be provided")
	}
	if len(fieldErrors) > 0 {
		return Account{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.UpdateAccount(ctx, id, params)
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}
	return mapAccount(record), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrNotFound
	}
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// RefreshStatuses marks accounts past their expiry date as expired, using the
// injected clock. Idempotent.
func (s *service) RefreshStatuses(ctx context.Context) (int64, error) {
	return s.repo.SweepAccountStatuses(ctx, s.clock.Now())
}

func mapAccount(record persistence.PersonalAccount) Account {
	return Account{
		ID:          record.AccountID,
		Provider:    record.Provider,
		LoginEmail:  record.LoginEmail,
		LoginSecret: record.LoginSecret,
		ExpiryDate:  record.ExpiryDate,
		Status:      record.Status,
		Notes:       record.Notes,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	if errors.Is(err, persistence.ErrAccountNotFound) {
		return ErrNotFound
	}
	return err
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
