package handlers

import (
	"net/http"

	"github.com/Dosada05/fencing-club/services"
	"go.uber.org/zap"
)

type MemberHandler struct {
	memberService services.MemberService
	logger        *zap.Logger
}

func NewMemberHandler(ms services.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{memberService: ms, logger: logger}
}

// ListHandler handles GET /gyms/{gymID}/members.
func (h *MemberHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r, h.logger)
	if !ok {
		return
	}
	gymID, err := getIDFromURL(r, "gymID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	members, err := h.memberService.ListByGym(r.Context(), actor, gymID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"members": members}, nil); err != nil {
		serverErrorResponse(w, r, h.logger, err)
	}
}
