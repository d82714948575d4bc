package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/services"
	"go.uber.org/zap"
)

type MatchHandler struct {
	matchService services.MatchService
	logger       *zap.Logger
}

func NewMatchHandler(ms services.MatchService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{matchService: ms, logger: logger}
}

func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	match, err := h.matchService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusOK, match)
}

// RecordResultHandler handles POST /matches/{matchID}/result.
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	match, err := h.matchService.RecordResult(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusOK, match)
}

func (h *MatchHandler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.matchService.Approve)
}

func (h *MatchHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.matchService.Reject)
}

func (h *MatchHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.matchService.Reset)
}

type matchAction func(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error)

func (h *MatchHandler) action(w http.ResponseWriter, r *http.Request, do matchAction) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	match, err := do(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusOK, match)
}

// CreateBoutHandler handles POST /bouts, a self-registered bout outside
// any tournament.
func (h *MatchHandler) CreateBoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}

	var input services.StandaloneBoutInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	match, err := h.matchService.CreateStandaloneBout(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusCreated, match)
}

// ListMyBoutsHandler handles GET /me/bouts.
func (h *MatchHandler) ListMyBoutsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}

	bouts, err := h.matchService.ListStandalone(r.Context(), actor.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bouts": bouts}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

func (h *MatchHandler) respond(w http.ResponseWriter, r *http.Request, status int, match *models.Match) {
	if err := writeJSON(w, status, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}
