package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"megasena/internal/auth"
	"megasena/internal/lottery"
	"megasena/internal/models"
)

// Handler exposes the betting core as a JSON API.
type Handler struct {
	lottery *lottery.Service
	auth    *auth.Service
	log     zerolog.Logger
}

func New(lotterySvc *lottery.Service, authSvc *auth.Service, log zerolog.Logger) *Handler {
	return &Handler{lottery: lotterySvc, auth: authSvc, log: log}
}

// Routes mounts all API routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)

	r.Get("/api/contests", h.ListContests)
	r.Get("/api/contests/open", h.OpenContest)
	r.Get("/api/contests/history", h.History)
	r.Get("/api/contests/{id}/status", h.ContestStatus)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireUser)
		r.Post("/api/bets", h.PlaceBets)
		r.Get("/api/bets/mine", h.MyBets)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin)
		r.Post("/api/contests", h.CreateContest)
		r.Get("/api/contests/{id}", h.ContestDetail)
		r.Delete("/api/contests/{id}", h.DeleteContest)
		r.Post("/api/contests/draw", h.Draw)
		r.Post("/api/contests/{id}/settle", h.Settle)
	})
}

// Auth

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{
		"user": map[string]string{"id": user.ID, "username": user.Username},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// Contests (public surface)

func (h *Handler) ListContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.lottery.Contests(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if contests == nil {
		contests = []models.Contest{}
	}
	respond(w, http.StatusOK, contests)
}

func (h *Handler) OpenContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.lottery.OpenContest(r.Context())
	if errors.Is(err, lottery.ErrNoOpenContest) {
		respondMessage(w, http.StatusNotFound, "no open contest")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, contest)
}

// ContestStatus is the lightweight polling surface for clients awaiting a
// draw: status and drawn numbers only.
func (h *Handler) ContestStatus(w http.ResponseWriter, r *http.Request) {
	contest, err := h.lottery.Contest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"status":       contest.Status,
		"drawnNumbers": contest.DrawnNumbers,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.lottery.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []lottery.HistoryEntry{}
	}
	respond(w, http.StatusOK, entries)
}

// Bets

type placeBetsRequest struct {
	ContestID string  `json:"contestId"`
	Games     [][]int `json:"games"`
}

// PlaceBets admits a batch of games for the authenticated user. The body
// shape is validated strictly before any domain rule runs.
func (h *Handler) PlaceBets(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeBetsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ContestID == "" {
		respondMessage(w, http.StatusBadRequest, "contestId is required")
		return
	}

	admitted, err := h.lottery.AdmitBets(r.Context(), identity.UserID, req.ContestID, req.Games)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]int{"admittedCount": admitted})
}

func (h *Handler) MyBets(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	bets, err := h.lottery.MyBets(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if bets == nil {
		bets = []models.BetWithContest{}
	}
	respond(w, http.StatusOK, bets)
}

// Helpers

// decode parses a JSON body strictly: unknown fields and mismatched types
// are rejected before any domain validation.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if dec.More() {
		respondMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	io.Copy(io.Discard, r.Body)
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lottery.ErrNoGames),
		errors.Is(err, lottery.ErrNumberOutOfRange),
		errors.Is(err, lottery.ErrGameTooShort),
		errors.Is(err, lottery.ErrGameTooLong),
		errors.Is(err, lottery.ErrDuplicateNumbers),
		errors.Is(err, lottery.ErrInvalidMaxNumbers),
		errors.Is(err, auth.ErrMissingCredentials):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, lottery.ErrContestNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lottery.ErrContestClosed),
		errors.Is(err, lottery.ErrNoOpenContest),
		errors.Is(err, lottery.ErrOpenContestExists),
		errors.Is(err, lottery.ErrDuplicateContest),
		errors.Is(err, lottery.ErrContestNotDrawn),
		errors.Is(err, auth.ErrUsernameTaken):
		respondMessage(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		respondMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"message": message})
}
