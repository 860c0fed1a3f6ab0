package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/platform"
)

// stateResponse is the body of GET /api/gamification.
type stateResponse struct {
	State   *domain.GamificationState `json:"state"`
	Loading bool                      `json:"loading"`
}

// awardRequest is the body of POST /api/gamification/xp.
type awardRequest struct {
	Amount *int64 `json:"amount"`
	Reason string `json:"reason"`
}

// handleState serves the cached state, running a first refresh when the
// user has none yet.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	st, loading := s.provider.State(sess.UserID)
	if st == nil && !loading {
		fresh, err := s.provider.Refresh(outbound(r), sess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		st = &fresh
	}
	respond(w, http.StatusOK, stateResponse{State: st, Loading: loading})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	st, err := s.provider.Refresh(outbound(r), sess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	respond(w, http.StatusOK, st)
}

func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	st, err := s.provider.AwardXP(sess, *req.Amount, req.Reason)
	if err != nil {
		writeAwardError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (s *Server) handleAwardAction(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	action := domain.Action(chi.URLParam(r, "action"))

	st, err := s.provider.AwardAction(sess, action)
	if err != nil {
		writeAwardError(w, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	s.provider.Forget(sess.UserID)
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, gamification.Levels())
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, domain.Rewards())
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, gamification.Catalog())
}

func writeAwardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNegativeXP):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownAction):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// outbound carries the request id to platform calls.
func outbound(r *http.Request) context.Context {
	return platform.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
}
