package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbusdesk/inventory-service/domains/subscriptions/be/service"
	platformlogging "github.com/nimbusdesk/inventory-service/platform/go/logging"
	"github.com/nimbusdesk/inventory-service/platform/go/problem"
)

// Handler wires the linker service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("subscription service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the subscription endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.createSubscription)
		r.Route("/{subID}", func(r chi.Router) {
			r.Get("/", h.getSubscription)
			r.Put("/pool-link", h.linkPool)
			r.Delete("/pool-link", h.unlinkPool)
			r.Post("/pool-switch", h.switchPool)
		})
	})
}

type subscriptionResponse struct {
	SubscriptionID uuid.UUID  `json:"subscriptionId"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
	Label          string     `json:"label"`
	ResourcePoolID *uuid.UUID `json:"resourcePoolId,omitempty"`
	ResourceSeatID *uuid.UUID `json:"resourcePoolSeatId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type createSubscriptionRequest struct {
	SubscriptionID uuid.UUID  `json:"subscriptionId"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
	Label          string     `json:"label"`
}

type linkPoolRequest struct {
	PoolID uuid.UUID  `json:"poolId"`
	SeatID *uuid.UUID `json:"seatId,omitempty"`
}

type switchPoolRequest struct {
	PoolID uuid.UUID `json:"poolId"`
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		SubscriptionID: req.SubscriptionID,
		ClientID:       req.ClientID,
		Label:          req.Label,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/subscriptions/"+created.ID.String())
	problem.WriteJSON(w, http.StatusCreated, toSubscriptionResponse(created))
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subID(w, r)
	if !ok {
		return
	}

	sub, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) linkPool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subID(w, r)
	if !ok {
		return
	}

	var req linkPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	sub, err := h.svc.Link(r.Context(), id, service.LinkInput{
		PoolID: req.PoolID,
		SeatID: req.SeatID,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) unlinkPool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subID(w, r)
	if !ok {
		return
	}

	sub, err := h.svc.Unlink(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) switchPool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.subID(w, r)
	if !ok {
		return
	}

	var req switchPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	sub, err := h.svc.SwitchPool(r.Context(), id, req.PoolID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) subID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "subID"))
	if err != nil {
		problem.Render(w, problem.Details{
			Type:   problem.TypeValidation,
			Title:  "Invalid identifier",
			Detail: "subID must be a UUID",
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
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrPoolNotFound),
		errors.Is(err, service.ErrSeatNotFound):
		problem.Render(w, problem.Details{
			Type:   problem.TypeNotFound,
			Title:  "Not found",
			Detail: err.Error(),
			Status: http.StatusNotFound,
		})
	case errors.Is(err, service.ErrSeatUnavailable),
		errors.Is(err, service.ErrNoAvailableSeats),
		errors.Is(err, service.ErrPoolNotAssignable):
		problem.Render(w, problem.Details{
			Type:   problem.TypeConflict,
			Title:  "Seat allocation conflict",
			Detail: err.Error(),
			Status: http.StatusConflict,
		})
	default:
		platformlogging.FromRequest(r, h.logger).Error("subscription request failed", zap.Error(err))
		problem.Render(w, problem.Details{
			Type:   problem.TypeInternal,
			Title:  "Internal error",
			Status: http.StatusInternalServerError,
		})
	}
}

func toSubscriptionResponse(sub service.Subscription) subscriptionResponse {
	return subscriptionResponse{
		SubscriptionID: sub.ID,
		ClientID:       sub.ClientID,
		Label:          sub.Label,
		ResourcePoolID: sub.ResourcePoolID,
		ResourceSeatID: sub.ResourceSeatID,
		CreatedAt:      sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
	}
}
