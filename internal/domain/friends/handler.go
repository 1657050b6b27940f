package friends

import (
	"net/http"

	"social-coordination/internal/platform/httpx"
	"social-coordination/internal/ports/identity"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, dir identity.Directory) {
	httpx.Mount(r, []httpx.Route{
		{Method: http.MethodGet, Pattern: "/friends", Handler: listFriendsHandler(svc, dir)},
		{Method: http.MethodDelete, Pattern: "/friends/{username}", Handler: removeFriendHandler(svc, dir)},
	})
}

type friendsResponse struct {
	Friends []string `json:"friends"`
}

// listFriendsHandler godoc
// @Summary Listar amigos
// @Tags friends
// @Produce json
// @Success 200 {object} friendsResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /friends [get]
func listFriendsHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		ids, err := svc.List(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := friendsResponse{Friends: make([]string, 0, len(ids))}
		for _, id := range ids {
			out.Friends = append(out.Friends, identity.DisplayName(r.Context(), dir, id))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// removeFriendHandler godoc
// @Summary Eliminar un amigo
// @Tags friends
// @Param username path string true "Username del amigo"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Router /friends/{username} [delete]
func removeFriendHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		other, err := dir.ByUsername(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := svc.Remove(r.Context(), userID, other.ID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
