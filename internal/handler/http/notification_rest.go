package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/middleware"
	"github.com/chedlikh/greenspace-notify/internal/response"
	"github.com/chedlikh/greenspace-notify/internal/usecase"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

type NotificationHandler struct {
	uc *usecase.NotificationUsecase
}

func NewNotificationHandler(uc *usecase.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{uc: uc}
}

// ListByUser serves the bootstrap fetch. The body is a bare array of
// notification records, which is what the sync clients decode.
func (h *NotificationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != middleware.UserID(r.Context()) {
		response.Error(w, http.StatusForbidden, "cannot read another user's notifications")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.uc.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	wire := make([]domain.WireNotification, 0, len(items))
	for _, n := range items {
		wire = append(wire, n.Wire())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(wire)
}

func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != middleware.UserID(r.Context()) {
		response.Error(w, http.StatusForbidden, "cannot read another user's notifications")
		return
	}

	count, err := h.uc.CountUnread(r.Context(), userID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	userID := middleware.UserID(r.Context())
	if err := h.uc.MarkAsRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "notification not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, nil)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != middleware.UserID(r.Context()) {
		response.Error(w, http.StatusForbidden, "cannot modify another user's notifications")
		return
	}

	if err := h.uc.MarkAllAsRead(r.Context(), userID); err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, nil)
}

type createRequest struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Create is the ingest path for other services (and the admin UI).
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid input")
		return
	}
	if req.UserID == "" {
		response.Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	created, err := h.uc.CreateNotification(r.Context(), &domain.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusCreated, created.Wire())
}

func (h *NotificationHandler) ClearByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != middleware.UserID(r.Context()) {
		response.Error(w, http.StatusForbidden, "cannot modify another user's notifications")
		return
	}

	if err := h.uc.ClearByUser(r.Context(), userID); err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.JSON(w, http.StatusOK, nil)
}
