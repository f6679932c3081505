package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/swiftparcel/delivery/internal/apperr"
)

var validate = validator.New()

// DecodeJSON unmarshals and validates a request body into dst. dst must be a
// pointer to a struct with validate tags.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("malformed json body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Invalid("%v", err)
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError maps the error's kind onto an HTTP status. Unclassified errors
// become opaque 500s; their detail goes to the log, not the client.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	msg := err.Error()
	if kind == apperr.KindUnknown {
		slog.Error("internal error", "error", msg)
		msg = "internal error"
	}
	WriteJSON(w, StatusOf(kind), errorBody{Error: kind.String(), Message: msg})
}

func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RequireAPIKey guards service-to-service routes with the shared secret.
func RequireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.Header.Get("X-API-Key") != apiKey {
				WriteError(w, apperr.Unauthenticated("invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
