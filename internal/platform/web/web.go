// Package web holds the JSON response helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mentalytics/internal/device"
)

// MaxBody caps every request body read through Decode or ReadBody.
const MaxBody = 1 << 20

// DeviceHeader echoes the device id so clients can carry it in their URL.
const DeviceHeader = "X-Device-ID"

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Hint    string   `json:"hint,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Bytes writes a raw body with the given content type.
func Bytes(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Device returns the {device} URL parameter after checking it is safe to use
// as a storage namespace. On failure it writes a 400 and returns false.
func Device(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "device")
	if !device.Valid(id) {
		Error(w, http.StatusBadRequest, "invalid device id")
		return "", false
	}
	w.Header().Set(DeviceHeader, id)
	return id, true
}

// Decode reads a JSON request body into v. On failure it writes a 400 and
// returns false.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBody)).Decode(v); err != nil {
		bodyError(w, err)
		return false
	}
	return true
}

// ReadBody returns the raw request body. Bodies over MaxBody get a 413.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBody))
	if err != nil {
		bodyError(w, err)
		return nil, false
	}
	return data, true
}

func bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	Error(w, http.StatusBadRequest, "invalid request")
}
