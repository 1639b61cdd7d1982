package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"sjsage522/shopcompare/internal/cart"
	"sjsage522/shopcompare/logger"
	"sjsage522/shopcompare/pkg/errors"
	"sjsage522/shopcompare/pkg/validate"
)

const maxBodyBytes = 1 << 20

// Envelope wraps every response body
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// writeError maps not-found errors to 404 and validation errors to 400.
// Anything else is a 500 with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ForAPI().Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeJSON(w, status, Envelope{Success: false, Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case stderrors.Is(err, cart.ErrCartNotFound), stderrors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, err.Error()
	}

	var se *errors.ScrapeError
	if stderrors.As(err, &se) {
		switch se.Type {
		case errors.ErrorTypeNotFound:
			return http.StatusNotFound, se.Message
		case errors.ErrorTypeValidation:
			return http.StatusBadRequest, se.Message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.ForAPI().Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSONBody reads a bounded JSON body into dest and validates it
func decodeJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, false)
}

// decodeOptionalJSONBody accepts an empty body and leaves dest zero
func decodeOptionalJSONBody(r *http.Request, dest any) error {
	return decode(r, dest, true)
}

func decode(r *http.Request, dest any, optional bool) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if !(optional && stderrors.Is(err, io.EOF)) {
			return errors.NewValidation("", "invalid request body: "+err.Error())
		}
	}
	return validate.Struct(dest)
}
