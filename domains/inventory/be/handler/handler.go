package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbusdesk/inventory-service/domains/inventory/be/service"
	platformlogging "github.com/nimbusdesk/inventory-service/platform/go/logging"
	"github.com/nimbusdesk/inventory-service/platform/go/problem"
)

// Handler wires the inventory service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("inventory service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the inventory endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/pools", func(r chi.Router) {
		r.Get("/", h.listPools)
		r.Post("/", h.createPool)
		r.Post("/refresh", h.refreshStatuses)
		r.Get("/search", h.searchBySeatEmail)
		r.Route("/{poolID}", func(r chi.Router) {
			r.Get("/", h.getPool)
			r.Patch("/", h.updatePool)
			r.Delete("/", h.deletePool)
			r.Get("/stats", h.poolStats)
			r.Post("/archive", h.archivePool)
			r.Post("/restore", h.restorePool)
			r.Post("/seats/assignments", h.assignNextFreeSeat)
		})
	})
	r.Route("/seats/{seatID}/assignment", func(r chi.Router) {
		r.Post("/", h.assignSeat)
		r.Delete("/", h.unassignSeat)
	})
}

type poolResponse struct {
	PoolID     uuid.UUID  `json:"poolId"`
	Provider   string     `json:"provider"`
	PoolType   string     `json:"poolType"`
	LoginEmail string     `json:"loginEmail"`
	HasSecret  bool       `json:"hasSecret"`
	StartAt    time.Time  `json:"startAt"`
	EndAt      time.Time  `json:"endAt"`
	MaxSeats   int        `json:"maxSeats"`
	UsedSeats  int        `json:"usedSeats"`
	Status     string     `json:"status"`
	IsAlive    bool       `json:"isAlive"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Seats      []seatItem `json:"seats,omitempty"`
}

type seatItem struct {
	SeatID         uuid.UUID  `json:"seatId"`
	PoolID         uuid.UUID  `json:"poolId"`
	SeatIndex      int        `json:"seatIndex"`
	SeatStatus     string     `json:"seatStatus"`
	AssignedEmail  *string    `json:"assignedEmail,omitempty"`
	AssignedClient *uuid.UUID `json:"assignedClientId,omitempty"`
	AssignedSub    *uuid.UUID `json:"assignedSubscriptionId,omitempty"`
	AssignedAt     *time.Time `json:"assignedAt,omitempty"`
	UnassignedAt   *time.Time `json:"unassignedAt,omitempty"`
}

type createPoolRequest struct {
	Provider    string    `json:"provider"`
	PoolType    string    `json:"poolType"`
	LoginEmail  string    `json:"loginEmail"`
	LoginSecret *string   `json:"loginSecret,omitempty"`
	StartAt     time.Time `json:"startAt"`
	EndAt       time.Time `json:"endAt"`
	MaxSeats    int       `json:"maxSeats"`
	Notes       *string   `json:"notes,omitempty"`
}

type updatePoolRequest struct {
	Provider    *string    `json:"provider,omitempty"`
	PoolType    *string    `json:"poolType,omitempty"`
	LoginEmail  *string    `json:"loginEmail,omitempty"`
	LoginSecret *string    `json:"loginSecret,omitempty"`
	StartAt     *time.Time `json:"startAt,omitempty"`
	EndAt       *time.Time `json:"endAt,omitempty"`
	MaxSeats    *int       `json:"maxSeats,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

type assignSeatRequest struct {
	Email          string     `json:"email"`
	ClientID       *uuid.UUID `json:"clientId,omitempty"`
	SubscriptionID *uuid.UUID `json:"subscriptionId,omitempty"`
}

type restorePoolRequest struct {
	EndAt *time.Time `json:"endAt,omitempty"`
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.ListOptions{
		Page:              intQuery(q.Get("page")),
		PageSize:          intQuery(q.Get("pageSize")),
		Provider:          optionalQuery(q.Get("provider")),
		Status:            optionalQuery(q.Get("status")),
		PoolType:          optionalQuery(q.Get("poolType")),
		SeatEmail:         optionalQuery(q.Get("seatEmail")),
		HasAvailableSeats: q.Get("hasAvailableSeats") == "true",
		FullyUtilized:     q.Get("fullyUtilized") == "true",
		IncludeArchived:   q.Get("includeArchived") == "true",
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	items := make([]poolResponse, 0, len(result.Pools))
	for _, pool := range result.Pools {
		items = append(items, toPoolResponse(pool, nil))
	}

	problem.WriteJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalItems": result.TotalItems,
		"totalPages": result.TotalPages,
	})
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Provider:    req.Provider,
		PoolType:    req.PoolType,
		LoginEmail:  req.LoginEmail,
		LoginSecret: req.LoginSecret,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		MaxSeats:    req.MaxSeats,
		Notes:       req.Notes,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/pools/"+created.ID.String())
	problem.WriteJSON(w, http.StatusCreated, toPoolResponse(created, nil))
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	pool, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	seats := make([]seatItem, 0, len(pool.Seats))
	for _, seat := range pool.Seats {
		seats = append(seats, toSeatItem(seat))
	}
	problem.WriteJSON(w, http.StatusOK, toPoolResponse(pool.Pool, seats))
}

func (h *Handler) updatePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	var req updatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, service.UpdateInput{
		Provider:    req.Provider,
		PoolType:    req.PoolType,
		LoginEmail:  req.LoginEmail,
		LoginSecret: req.LoginSecret,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		MaxSeats:    req.MaxSeats,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	problem.WriteJSON(w, http.StatusOK, toPoolResponse(updated, nil))
}

func (h *Handler) deletePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) poolStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	problem.WriteJSON(w, http.StatusOK, map[string]int{
		"totalSeats":     stats.TotalSeats,
		"usedSeats":      stats.UsedSeats,
		"availableSeats": stats.AvailableSeats,
	})
}

func (h *Handler) archivePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	pool, err := h.svc.Archive(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toPoolResponse(pool, nil))
}

func (h *Handler) restorePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	var req restorePoolRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.renderBodyError(w)
			return
		}
	}

	pool, err := h.svc.Restore(r.Context(), id, req.EndAt)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toPoolResponse(pool, nil))
}

func (h *Handler) refreshStatuses(w http.ResponseWriter, r *http.Request) {
	transitioned, err := h.svc.RefreshStatuses(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, map[string]int64{"transitioned": transitioned})
}

func (h *Handler) assignNextFreeSeat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.poolID(w, r)
	if !ok {
		return
	}

	var req assignSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	seat, err := h.svc.AssignNextFreeSeat(r.Context(), id, service.AssignInput{
		Email:          req.Email,
		ClientID:       req.ClientID,
		SubscriptionID: req.SubscriptionID,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusCreated, toSeatItem(seat))
}

func (h *Handler) assignSeat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.seatID(w, r)
	if !ok {
		return
	}

	var req assignSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderBodyError(w)
		return
	}

	seat, err := h.svc.AssignSeat(r.Context(), id, service.AssignInput{
		Email:          req.Email,
		ClientID:       req.ClientID,
		SubscriptionID: req.SubscriptionID,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusCreated, toSeatItem(seat))
}

func (h *Handler) unassignSeat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.seatID(w, r)
	if !ok {
		return
	}

	seat, err := h.svc.UnassignSeat(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, toSeatItem(seat))
}

func (h *Handler) searchBySeatEmail(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.SearchBySeatEmail(r.Context(), r.URL.Query().Get("seatEmail"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	problem.WriteJSON(w, http.StatusOK, map[string]any{"poolIds": ids})
}

func (h *Handler) poolID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return h.pathID(w, r, "poolID")
}

func (h *Handler) seatID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return h.pathID(w, r, "seatID")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		problem.Render(w, problem.Details{
			Type:   problem.TypeValidation,
			Title:  "Invalid identifier",
			Detail: param + " must be a UUID",
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
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrSeatNotFound):
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
		platformlogging.FromRequest(r, h.logger).Error("inventory request failed", zap.Error(err))
		problem.Render(w, problem.Details{
			Type:   problem.TypeInternal,
			Title:  "Internal error",
			Status: http.StatusInternalServerError,
		})
	}
}

func intQuery(raw string) int {
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func optionalQuery(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

func toPoolResponse(pool service.Pool, seats []seatItem) poolResponse {
	return poolResponse{
		PoolID:     pool.ID,
		Provider:   pool.Provider,
		PoolType:   pool.PoolType,
		LoginEmail: pool.LoginEmail,
		HasSecret:  pool.LoginSecret != nil,
		StartAt:    pool.StartAt,
		EndAt:      pool.EndAt,
		MaxSeats:   pool.MaxSeats,
		UsedSeats:  pool.UsedSeats,
		Status:     pool.Status,
		IsAlive:    pool.IsAlive,
		Notes:      pool.Notes,
		CreatedAt:  pool.CreatedAt,
		UpdatedAt:  pool.UpdatedAt,
		Seats:      seats,
	}
}

func toSeatItem(seat service.Seat) seatItem {
	return seatItem{
		SeatID:         seat.ID,
		PoolID:         seat.PoolID,
		SeatIndex:      seat.SeatIndex,
		SeatStatus:     seat.SeatStatus,
		AssignedEmail:  seat.AssignedEmail,
		AssignedClient: seat.AssignedClient,
		AssignedSub:    seat.AssignedSub,
		AssignedAt:     seat.AssignedAt,
		UnassignedAt:   seat.UnassignedAt,
	}
}
