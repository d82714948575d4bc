package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/services"
	"go.uber.org/zap"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	logger            *zap.Logger
}

func NewTournamentHandler(ts services.TournamentService, logger *zap.Logger) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts, logger: logger}
}

type createTournamentRequest struct {
	Name       string `json:"name"`
	Date       string `json:"date"`
	GymID      int    `json:"gym_id"`
	AthleteIDs []int  `json:"athlete_ids"`
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required")
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return d, nil
}

// CreateHandler handles POST /tournaments.
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	tournament, matches, err := h.tournamentService.Create(r.Context(), actor, services.CreateTournamentInput{
		Name:       req.Name,
		Date:       date,
		GymID:      req.GymID,
		AthleteIDs: req.AthleteIDs,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament, "matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

// SnapshotHandler handles GET /tournaments/{tournamentID}/snapshot. It has
// no side effects, so clients poll it freely when the live feed drops.
func (h *TournamentHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	snapshot, err := h.tournamentService.Snapshot(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, snapshot, http.Header{"Cache-Control": []string{"no-store"}}); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	tournament, err := h.tournamentService.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

// ListByGymHandler handles GET /gyms/{gymID}/tournaments?status=...
func (h *TournamentHandler) ListByGymHandler(w http.ResponseWriter, r *http.Request) {
	gymID, err := getIDFromURL(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	var status *models.TournamentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.TournamentStatus(s)
		switch st {
		case models.TournamentSetup, models.TournamentInProgress, models.TournamentCompleted, models.TournamentCancelled:
			status = &st
		default:
			badRequestResponse(w, r, h.logger, fmt.Errorf("invalid status query parameter %q", s))
			return
		}
	}

	tournaments, err := h.tournamentService.ListByGym(r.Context(), gymID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	standings, err := h.tournamentService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

func (h *TournamentHandler) RoundsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	rounds, err := h.tournamentService.Rounds(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

// FinalizeHandler handles POST /tournaments/{tournamentID}/finalize.
func (h *TournamentHandler) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	result, err := h.tournamentService.Finalize(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}

// CancelHandler handles POST /tournaments/{tournamentID}/cancel with
// {"confirm": true}.
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := readOptionalJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	tournament, err := h.tournamentService.Cancel(r.Context(), actor, id, req.Confirm)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}
