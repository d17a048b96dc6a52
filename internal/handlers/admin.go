package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Admin-only operations: contest creation and deletion, the draw, and the
// detail report. Role enforcement happens in the router group middleware.

type createContestRequest struct {
	Number     int             `json:"number"`
	PrizeValue decimal.Decimal `json:"prizeValue"`
	DrawDate   time.Time       `json:"drawDate"`
	MaxNumbers int             `json:"maxNumbers"`
}

func (h *Handler) CreateContest(w http.ResponseWriter, r *http.Request) {
	var req createContestRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Number <= 0 {
		respondMessage(w, http.StatusBadRequest, "contest number must be positive")
		return
	}
	if req.DrawDate.IsZero() {
		respondMessage(w, http.StatusBadRequest, "drawDate is required")
		return
	}

	contest, err := h.lottery.CreateContest(r.Context(), req.Number, req.PrizeValue, req.DrawDate, req.MaxNumbers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, contest)
}

func (h *Handler) ContestDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.lottery.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if detail.Sena == nil {
		detail.Sena = []string{}
	}
	if detail.Quina == nil {
		detail.Quina = []string{}
	}
	if detail.Quadra == nil {
		detail.Quadra = []string{}
	}
	respond(w, http.StatusOK, detail)
}

func (h *Handler) DeleteContest(w http.ResponseWriter, r *http.Request) {
	if err := h.lottery.DeleteContest(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "contest deleted")
}

func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	drawn, err := h.lottery.Draw(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string][]int{"drawnNumbers": drawn})
}

// Settle re-runs settlement for a finished contest. Settlement is
// idempotent, so this is always safe; it exists to recover from a failure
// between the draw commit and the hit write-back.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	if err := h.lottery.Settle(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "contest settled")
}
