package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// respondJSON writes a JSON body, logging encode failures.
func (ms *MusicServer) respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		ms.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithError sends the uniform {success:false, message} envelope.
func (ms *MusicServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := ms.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"success": false,
		"message": message,
	}

	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		ms.logger.WithError(encErr).Error("Failed to encode error response")
	}
}

// respondWithValidationErrors sends a 400 with structured field errors.
func (ms *MusicServer) respondWithValidationErrors(w http.ResponseWriter, r *http.Request, errs []ValidationError) {
	ms.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errs,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	response := map[string]interface{}{
		"success": false,
		"message": "Validation failed",
		"errors":  errs,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		ms.logger.WithError(err).Error("Failed to encode validation response")
	}
}

// validateStruct runs the request struct through the validator, translating
// failures into the structured error shape.
func (ms *MusicServer) validateStruct(req interface{}) []ValidationError {
	err := ms.validate.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "", Message: err.Error(), Code: "INVALID"}}
	}

	errs := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: "failed on rule: " + fe.Tag(),
			Code:    "INVALID_" + fe.Tag(),
		})
	}
	return errs
}

// urlParamInt parses a chi URL parameter as a positive integer.
func urlParamInt(r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSONBody decodes a JSON request body into dst.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
