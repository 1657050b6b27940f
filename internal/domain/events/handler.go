package events

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/platform/httpx"
	"social-coordination/internal/ports/identity"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta las lecturas de events. Crear, cancelar, inscribirse y
// desinscribirse pasan por el coordinator.
func RegisterRoutes(r chi.Router, svc *Service, dir identity.Directory) {
	httpx.Mount(r, []httpx.Route{
		{Method: http.MethodGet, Pattern: "/events", Handler: listEventsHandler(svc, dir)},
		{Method: http.MethodGet, Pattern: "/events/{eventID}", Handler: getEventHandler(svc, dir)},
	})
}

// EventResponse representa un event devuelto por la API.
type EventResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	GroupID    string    `json:"group_id"`
	Host       string    `json:"host"`
	Attendees  []string  `json:"attendees"`
	Capacity   int       `json:"capacity"`
	LocationID string    `json:"location_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

func ToResponse(ctx context.Context, dir identity.Directory, e Event) EventResponse {
	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendees = append(attendees, identity.DisplayName(ctx, dir, a))
	}
	return EventResponse{
		ID:         e.ID,
		Name:       e.Name,
		GroupID:    e.GroupID,
		Host:       identity.DisplayName(ctx, dir, e.HostID),
		Attendees:  attendees,
		Capacity:   e.Capacity,
		LocationID: e.LocationID,
		Start:      e.Start,
		End:        e.End,
	}
}

// listEventsHandler godoc
// @Summary Listar events activos
// @Description Events que todavía no terminaron. `name` filtra por nombre (substring, sin distinguir mayúsculas).
// @Tags events
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param name query string false "Texto a buscar en el nombre"
// @Param limit query int false "Máximo de events a devolver (1-200). Por defecto 50"
// @Success 200 {array} EventResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /events [get]
func listEventsHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpx.UserID(w, r); !ok {
			return
		}
		q := r.URL.Query()
		limit := 0
		if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > MaxLimit {
				httpx.WriteError(w, apperr.New(apperr.ErrInvalidInput, "limit must be between 1 and %d", MaxLimit))
				return
			}
			limit = n
		}

		items, err := svc.ListActive(r.Context(), q.Get("name"), limit)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]EventResponse, 0, len(items))
		for _, e := range items {
			out = append(out, ToResponse(r.Context(), dir, e))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func getEventHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpx.UserID(w, r); !ok {
			return
		}
		e, err := svc.GetByID(r.Context(), chi.URLParam(r, "eventID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(r.Context(), dir, e))
	}
}
