package report

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mentalytics/internal/i18n"
	"mentalytics/internal/platform/web"
	"mentalytics/internal/store"
	"mentalytics/internal/study"
)

type Handler struct {
	svc   *Service
	table *i18n.Table
}

func NewHandler(svc *Service, table *i18n.Table) *Handler {
	return &Handler{svc: svc, table: table}
}

// requestLang reads ?lang=, defaulting to English.
func requestLang(r *http.Request) i18n.Lang {
	if l, ok := i18n.ParseLang(r.URL.Query().Get("lang")); ok {
		return l
	}
	return i18n.English
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, study.ErrNoSurvey):
		lang := requestLang(r)
		web.JSON(w, http.StatusNotFound, web.ErrorBody{
			Error: h.table.T(lang, i18n.KeyNoSurvey),
			Hint:  h.table.T(lang, i18n.KeyBack),
		})
	case errors.Is(err, store.ErrInvalidDevice):
		web.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoFont):
		web.Error(w, http.StatusServiceUnavailable, "PDF rendering unavailable")
	default:
		web.Error(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) GetGuidance(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	g, err := h.svc.Guidance(r.Context(), id, requestLang(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, g)
}

func (h *Handler) GetPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	data, err := h.svc.PDF(r.Context(), id, requestLang(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="summary_`+id+`.pdf"`)
	web.Bytes(w, "application/pdf", data)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/session/{device}/guidance", h.GetGuidance)
	r.Get("/devices/{device}/report.pdf", h.GetPDF)
}
