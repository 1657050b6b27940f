// Package httpx junta lo que los handlers de cada módulo repetían: tabla de rutas,
// JSON, mapeo de errores de dominio a status codes y reglas de validación.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Route es una entrada explícita (method, pattern) -> handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Mount registra la tabla en r. Un pattern repetido con el mismo método es un bug de wiring.
func Mount(r chi.Router, routes []Route) {
	for _, rt := range routes {
		r.Method(rt.Method, rt.Pattern, rt.Handler)
	}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor traduce un error de dominio a status HTTP.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrInvalidInput:
		return http.StatusBadRequest
	case apperr.ErrUnauthenticated:
		return http.StatusUnauthorized
	case apperr.ErrForbidden:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrConflict:
		return http.StatusConflict
	case apperr.ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError escribe {"error": "..."}; los errores internos no filtran detalle.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusServiceUnavailable:
		msg = "storage unavailable"
	}
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// UserID devuelve el actor autenticado o escribe 401.
func UserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		WriteError(w, apperr.New(apperr.ErrUnauthenticated, "unauthorized"))
		return "", false
	}
	return claims.UserID, true
}

// Decode lee el body JSON en dst. Body vacío se acepta (dst queda en zero value).
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.New(apperr.ErrInvalidInput, "invalid json")
}

// ParseCSV parte "a,b, c" en valores no vacíos.
func ParseCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
