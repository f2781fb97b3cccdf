package study

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mentalytics/internal/device"
	"mentalytics/internal/i18n"
	"mentalytics/internal/platform/web"
	"mentalytics/internal/store"
)

type Handler struct {
	svc   Service
	table *i18n.Table
}

func NewHandler(svc Service, table *i18n.Table) *Handler {
	return &Handler{svc: svc, table: table}
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		web.JSON(w, http.StatusUnprocessableEntity, web.ErrorBody{Error: "missing required fields", Missing: verr.Missing})
	case errors.Is(err, ErrBadInput), errors.Is(err, store.ErrInvalidDevice), errors.Is(err, store.ErrInvalidName):
		web.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoSurvey):
		web.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTransitionBlocked), errors.Is(err, ErrInvalidTransition):
		web.Error(w, http.StatusConflict, err.Error())
	default:
		web.Error(w, http.StatusInternalServerError, "internal error")
	}
}

type sessionResponse struct {
	View
	Created bool `json:"created"`
}

// GetSession returns the session of the ?device= id, issuing a fresh id when
// none is supplied.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, created := device.GetOrCreate(q)
	if !device.Valid(id) {
		web.Error(w, http.StatusBadRequest, "invalid device id")
		return
	}
	view, _ := h.svc.Session(id)
	w.Header().Set(web.DeviceHeader, id)
	web.JSON(w, http.StatusOK, sessionResponse{View: view, Created: created})
}

type languageRequest struct {
	Lang string `json:"lang"`
}

func (h *Handler) SelectLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	var req languageRequest
	if !web.Decode(w, r, &req) {
		return
	}
	lang, ok := i18n.ParseLang(req.Lang)
	if !ok {
		web.Error(w, http.StatusBadRequest, "unsupported language")
		return
	}
	view, err := h.svc.SelectLanguage(r.Context(), id, lang)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, view)
}

func (h *Handler) Consent(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	var req ConsentInput
	if !web.Decode(w, r, &req) {
		return
	}
	view, err := h.svc.Consent(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	patch, ok := web.ReadBody(w, r)
	if !ok {
		return
	}
	view, err := h.svc.UpdateDraft(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, view)
}

type submitResponse struct {
	Record  store.Document `json:"record"`
	Session View           `json:"session"`
	Message string         `json:"message"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	rec, view, err := h.svc.Submit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, submitResponse{
		Record:  rec,
		Session: view,
		Message: h.table.T(view.Lang, i18n.KeySaved),
	})
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Back(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, view)
}

type agreementRequest struct {
	AgreeWithModel *bool `json:"agree_with_model"`
}

func (h *Handler) SaveAgreement(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	var req agreementRequest
	if !web.Decode(w, r, &req) {
		return
	}
	if req.AgreeWithModel == nil {
		web.Error(w, http.StatusBadRequest, "agree_with_model is required")
		return
	}
	rec, err := h.svc.SaveAgreement(r.Context(), id, *req.AgreeWithModel)
	if err != nil {
		writeError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	var doc store.Document
	if !web.Decode(w, r, &doc) {
		return
	}
	if err := h.svc.SaveProfile(r.Context(), id, doc); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Export(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.json"`)
	web.Bytes(w, "application/json", data)
}

// ExportLog streams one raw JSONL log. A log that was never written yields an
// empty body.
func (h *Handler) ExportLog(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	file := chi.URLParam(r, "file")
	name, found := strings.CutSuffix(file, ".jsonl")
	if !found {
		web.Error(w, http.StatusNotFound, "not found")
		return
	}
	data, err := h.svc.ExportLog(r.Context(), id, name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+file+`"`)
	web.Bytes(w, "application/x-ndjson", data)
}

// Strings returns every localized string and option list of one language.
func (h *Handler) Strings(w http.ResponseWriter, r *http.Request) {
	lang, ok := i18n.ParseLang(chi.URLParam(r, "lang"))
	if !ok {
		web.Error(w, http.StatusNotFound, "unsupported language")
		return
	}
	web.JSON(w, http.StatusOK, h.table.Bundle(lang))
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := web.Device(w, r)
	if !ok {
		return
	}
	h.svc.EndSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/i18n/{lang}", h.Strings)

	r.Get("/session", h.GetSession)
	r.Delete("/session/{device}", h.EndSession)
	r.Post("/session/{device}/language", h.SelectLanguage)
	r.Post("/session/{device}/consent", h.Consent)
	r.Patch("/session/{device}/survey", h.UpdateDraft)
	r.Post("/session/{device}/survey", h.Submit)
	r.Post("/session/{device}/back", h.Back)
	r.Post("/session/{device}/agreement", h.SaveAgreement)

	r.Put("/devices/{device}/profile", h.SaveProfile)
	r.Get("/devices/{device}/export", h.Export)
	r.Get("/devices/{device}/export/{file}", h.ExportLog)
}
