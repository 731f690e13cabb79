// Package apihttp holds the response envelope, request decoding and
// middleware shared by every HTTP handler.
package apihttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"oee-backend/internal/apperr"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

type dataEnvelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// WriteData writes the success envelope {"data": ..., "message": "success"}.
func WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: data, Message: "success"})
}

// WriteBare writes the value as the whole response body, without the
// envelope. The calculator endpoints answer with the metrics object
// itself.
func WriteBare(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps the error's kind to a status code and writes the
// {"error": ...} envelope. Store and internal failures are logged and
// reported with a generic message so nothing internal leaks.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: msg})
}

// StatusFor maps apperr kinds to HTTP status codes.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DecodeValid decodes the request body into dst and runs struct
// validation on it. Any failure comes back as a validation error.
func DecodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validationf("invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validationf("field %s failed %s validation", verrs[0].Field(), verrs[0].Tag())
		}
		return apperr.Validationf("invalid request: %v", err)
	}
	return nil
}
