package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lunara/internal/apperr"
	"lunara/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes data in a success envelope, or err mapped to its status and
// user-safe message. Internal errors are logged and never shown.
func respond(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, data any, err error) {
	if err != nil {
		respondWithError(w, r, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apperr.OK(data))
}

func respondWithError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	if apperr.IsInternal(err) {
		logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, apperr.Status(err), apperr.Fail(err))
}

// decodeJSON reads a JSON body into dst and validates its struct tags
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.ErrValidation, ErrInvalidRequestBody, err)
	}
	return validation.Struct(dst)
}

// pathID parses a numeric path value
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Wrap(apperr.ErrValidation, ErrInvalidID, errors.New(name+" must be a positive integer"))
	}
	return id, nil
}
