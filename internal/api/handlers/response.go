package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

const maxJSONBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithAppError turns err into exactly one error response. Messages of
// internal and remote failures are replaced so driver text never leaks.
func respondWithAppError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := apperrors.Message(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		message = "internal server error"
	}
	respondWithJSON(w, status, map[string]string{
		"error": message,
		"code":  string(apperrors.TypeOf(err)),
	})
}

func statusForError(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypePermissionDenied:
		return http.StatusForbidden
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeRemoteQuery, apperrors.ErrorTypeRemoteWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}
