package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/services"
	"go.uber.org/zap"
)

type TeamMatchHandler struct {
	relayService services.RelayService
	logger       *zap.Logger
}

func NewTeamMatchHandler(rs services.RelayService, logger *zap.Logger) *TeamMatchHandler {
	return &TeamMatchHandler{relayService: rs, logger: logger}
}

// CreateHandler handles POST /team-matches.
func (h *TeamMatchHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}

	var input services.CreateTeamMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	state, err := h.relayService.Create(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusCreated, state)
}

func (h *TeamMatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "teamMatchID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	state, err := h.relayService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusOK, state)
}

type relayAction func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error)

func (h *TeamMatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.relayService.Start)
}

func (h *TeamMatchHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.relayService.Pause)
}

func (h *TeamMatchHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.relayService.Resume)
}

func (h *TeamMatchHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.relayService.Cancel)
}

// ScoreHandler handles POST /team-matches/{teamMatchID}/score with
// {"team": "A", "delta": 1}.
func (h *TeamMatchHandler) ScoreHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team  models.Team `json:"team"`
		Delta int         `json:"delta"`
	}
	h.withBody(w, r, &req, false, func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error) {
		return h.relayService.AdjustScore(ctx, actor, id, req.Team, req.Delta)
	})
}

// TickHandler handles POST /team-matches/{teamMatchID}/tick with the
// client's view of the elapsed bout time.
func (h *TeamMatchHandler) TickHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}
	h.withBody(w, r, &req, false, func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error) {
		if req.ElapsedSeconds < 0 {
			return nil, fmt.Errorf("%w: elapsed_seconds must not be negative", services.ErrValidation)
		}
		elapsed := time.Duration(req.ElapsedSeconds * float64(time.Second))
		return h.relayService.Tick(ctx, actor, id, elapsed)
	})
}

// EndBoutHandler handles POST /team-matches/{teamMatchID}/end-bout. With
// {"force": true} the bout closes even if no end condition holds.
func (h *TeamMatchHandler) EndBoutHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	h.withBody(w, r, &req, true, func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error) {
		return h.relayService.EndBout(ctx, actor, id, req.Force)
	})
}

func (h *TeamMatchHandler) OvertimeTouchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team models.Team `json:"team"`
	}
	h.withBody(w, r, &req, false, func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error) {
		return h.relayService.OvertimeTouch(ctx, actor, id, req.Team)
	})
}

// DecideHandler handles POST /team-matches/{teamMatchID}/decide, settling an
// overtime that ran out without a touch.
func (h *TeamMatchHandler) DecideHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Team models.Team `json:"team"`
	}
	h.withBody(w, r, &req, false, func(ctx context.Context, actor models.Actor, id int) (*services.TeamMatchState, error) {
		return h.relayService.DecideOvertime(ctx, actor, id, req.Team)
	})
}

func (h *TeamMatchHandler) action(w http.ResponseWriter, r *http.Request, do relayAction) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "teamMatchID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	state, err := do(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	h.respond(w, r, http.StatusOK, state)
}

func (h *TeamMatchHandler) withBody(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool, do relayAction) {
	read := readJSON
	if optional {
		read = readOptionalJSON
	}
	if err := read(w, r, dst); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}
	h.action(w, r, do)
}

func (h *TeamMatchHandler) respond(w http.ResponseWriter, r *http.Request, status int, state *services.TeamMatchState) {
	if err := writeJSON(w, status, state, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}
