package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mentalytics/internal/agent"
	"mentalytics/internal/device"
	"mentalytics/internal/platform/web"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type askRequest struct {
	DeviceID string `json:"device_id"`
	Question string `json:"question"`
}

type unavailableResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !web.Decode(w, r, &req) {
		return
	}
	if req.DeviceID != "" && !device.Valid(req.DeviceID) {
		web.Error(w, http.StatusBadRequest, "invalid device id")
		return
	}

	reply, err := h.svc.Ask(r.Context(), req.DeviceID, req.Question)
	var perr *agent.PreflightError
	switch {
	case err == nil:
		web.JSON(w, http.StatusOK, reply)
	case errors.Is(err, ErrEmptyQuestion), errors.Is(err, ErrQuestionTooLong):
		web.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &perr):
		web.JSON(w, http.StatusServiceUnavailable, unavailableResponse{Error: "model unavailable", Problems: perr.Problems})
	default:
		web.Error(w, http.StatusInternalServerError, "inference failed")
	}
}

type historyResponse struct {
	Entries any `json:"entries"`
}

// History returns the last ?n= entries, or all of them without n.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			web.Error(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = v
	}
	entries, err := h.svc.History(n)
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	web.JSON(w, http.StatusOK, historyResponse{Entries: entries})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Export()
	if err != nil {
		web.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="conversations.jsonl"`)
	web.Bytes(w, "application/json", data)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat", h.Ask)
	r.Get("/chat/history", h.History)
	r.Get("/chat/export", h.Export)
	r.Delete("/chat/history", h.Clear)
}
