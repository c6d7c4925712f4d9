package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/errs"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// commandError writes a command error with the status matching its kind.
func commandError(w http.ResponseWriter, err error) {
	if errors.Is(err, command.ErrUnauthenticated) {
		jsonError(w, http.StatusUnauthorized, errs.Public(err))
		return
	}
	jsonError(w, statusFor(errs.KindOf(err)), errs.Public(err))
}

// result writes a command Result.
func result(w http.ResponseWriter, res command.Result) {
	if res.Success {
		jsonResponse(w, http.StatusOK, res)
		return
	}
	jsonResponse(w, statusFor(res.Kind()), res)
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}
