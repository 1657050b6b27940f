package groups

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/platform/httpx"
	"social-coordination/internal/ports/identity"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta las lecturas de groups. Crear, disolver, salir y pedir
// ingreso pasan por el coordinator (ver admission.RegisterRoutes).
func RegisterRoutes(r chi.Router, svc *Service, dir identity.Directory) {
	httpx.Mount(r, []httpx.Route{
		{Method: http.MethodGet, Pattern: "/groups", Handler: listGroupsHandler(svc, dir)},
		{Method: http.MethodGet, Pattern: "/groups/{groupID}", Handler: getGroupHandler(svc, dir)},
	})
}

type GroupResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	Members    []string  `json:"members"`
	Capacity   int       `json:"capacity"`
	Private    bool      `json:"private"`
	LocationID string    `json:"location_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToResponse resuelve IDs a usernames para mostrar.
func ToResponse(ctx context.Context, dir identity.Directory, g Group) GroupResponse {
	members := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, identity.DisplayName(ctx, dir, m))
	}
	return GroupResponse{
		ID:         g.ID,
		Name:       g.Name,
		Owner:      identity.DisplayName(ctx, dir, g.OwnerID),
		Members:    members,
		Capacity:   g.Capacity,
		Private:    g.Private,
		LocationID: g.LocationID,
		CreatedAt:  g.CreatedAt,
	}
}

// listGroupsHandler godoc
// @Summary Listar groups
// @Description Groups públicos más los privados donde el usuario es miembro.
// @Tags groups
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev"
// @Param Authorization header string false "Bearer token"
// @Param owner query string false "Username del dueño"
// @Param name query string false "Texto a buscar en el nombre"
// @Success 200 {array} GroupResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /groups [get]
func listGroupsHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		var filter ListFilter
		if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
			u, err := dir.ByUsername(r.Context(), owner)
			if errors.Is(err, apperr.ErrNotFound) {
				httpx.WriteJSON(w, http.StatusOK, []GroupResponse{})
				return
			}
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			filter.OwnerID = u.ID
		}
		filter.Name = r.URL.Query().Get("name")

		items, err := svc.List(r.Context(), userID, filter)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]GroupResponse, 0, len(items))
		for _, g := range items {
			out = append(out, ToResponse(r.Context(), dir, g))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getGroupHandler godoc
// @Summary Ver un group
// @Tags groups
// @Produce json
// @Param groupID path string true "ID del group"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /groups/{groupID} [get]
func getGroupHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		g, err := svc.GetByID(r.Context(), chi.URLParam(r, "groupID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		// Un group privado no existe para quien no es miembro.
		if g.Private && !g.HasMember(userID) {
			httpx.WriteError(w, apperr.New(apperr.ErrNotFound, "group %s not found", g.ID))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(r.Context(), dir, g))
	}
}
