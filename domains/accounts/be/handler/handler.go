package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbusdesk/inventory-service/domains/accounts/be/service"
	platformlogging "github.com/nimbusdesk/inventory-service/platform/go/logging"
	"github.com/nimbusdesk/inventory-service/platform/go/problem"
)

// Handler wires the accounts service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("account service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the account endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Post("/refresh", h.refreshStatuses)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", h.getAccount)
			r.Patch("/", h.updateAccount)
			r.Delete("/", h.deleteAccount)
		})
	})
}

type accountResponse struct {
	AccountID  uuid.UUID `json:"accountId"`
	Provider   string    `json:"provider"`
	LoginEmail string    `json:"loginEmail"`
	HasSecret  bool      `json:"hasSecret"`
	ExpiryDate time.Time `json:"expiryDate"`
	Status     string    `json:"status"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type createAccountRequest struct {
	Provider    string    `json:"provider"`
	LoginEmail  string    `json:"loginEmail"`
	LoginSecret *string   `json:"loginSecret,omitempty"`
	ExpiryDate  time.Time `json:"expiryDate"`
	Notes       *string   `json:"notes,omitempty"`
}

type updateAccountRequest struct {
	Provider    *string    `json:"provider,omitempty"`
	LoginEmail  *string    `json:"loginEmail,omitempty"`
	LoginSecret *string    `json:"loginSecret,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accounts, err := h.svc.List(r.Context(), service.ListOptions{
		Provider: optionalQuery(q.Get("provider")),
		Status:   optionalQuery(q.Get("status")),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, toAccountResponse(account))
	}
	problem.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Provider:    req.Provider,
		LoginEmail:  req.LoginEmail,
		LoginSecret: req.LoginSecret,
		ExpiryDate:  req.ExpiryDate,
		Notes:       req.Notes,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/accounts/"+created.ID.String())
	problem.WriteJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	account, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		Provider:    req.Provider,
		LoginEmail:  req.LoginEmail,
		LoginSecret: req.LoginSecret,
		ExpiryDate:  req.ExpiryDate,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toAccountResponse(updated))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refreshStatuses(w http.ResponseWriter, r *http.Request) {
	transitioned, err := h.svc.RefreshStatuses(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, map[string]int64{"transitioned": transitioned})
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		problem.Render(w, problem.Details{
			Type:   problem.TypeValidation,
			Title:  "Invalid identifier",
			Detail: "accountID must be a UUID",
			Status: http.StatusBadRequest,
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) renderBodyError(w http.ResponseWriter) {
	problem.Render(w, problem.Details{
		Type:   problem.TypeValidation,
		Title:  "Invalid request body",
		Detail: "request body must be valid JSON",
		Status: http.StatusBadRequest,
	})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		problem.Render(w, problem.Details{
			Type:   problem.TypeValidation,
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Fields: validationErr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		problem.Render(w, problem.Details{
			Type:   problem.TypeNotFound,
			Title:  "Not found",
			Detail: err.Error(),
			Status: http.StatusNotFound,
		})
	default:
		platformlogging.FromRequest(r, h.logger).Error("account request failed", zap.Error(err))
		problem.Render(w, problem.Details{
			Type:   problem.TypeInternal,
			Title:  "Internal error",
			Status: http.StatusInternalServerError,
		})
	}
}

func optionalQuery(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

func toAccountResponse(account service.Account) accountResponse {
	return accountResponse{
		AccountID:  account.ID,
		Provider:   account.Provider,
		LoginEmail: account.LoginEmail,
		HasSecret:  account.LoginSecret != nil,
		ExpiryDate: account.ExpiryDate,
		Status:     account.Status,
		Notes:      account.Notes,
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}
