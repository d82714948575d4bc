package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/fencing-club/services"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService services.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(ns services.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: ns, logger: logger}
}

// ListHandler handles GET /me/notifications?unread=true&limit=20.
func (h *NotificationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}

	query := r.URL.Query()
	unreadOnly := query.Get("unread") == "true"
	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			badRequestResponse(w, r, h.logger, errors.New("invalid limit query parameter"))
			return
		}
		limit = l
	}

	notifications, err := h.notificationService.List(r.Context(), actor, unreadOnly, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"notifications": notifications}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

// MarkReadHandler handles POST /notifications/{notificationID}/read.
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
