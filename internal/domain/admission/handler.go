package admission

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
	"social-coordination/internal/domain/groups"
	"social-coordination/internal/domain/registry"
	"social-coordination/internal/domain/requests"
	"social-coordination/internal/platform/httpx"
	"social-coordination/internal/ports/identity"

	"github.com/go-chi/chi/v5"
)

// AccountDeleter lo implementa un directory que además puede borrar usuarios.
type AccountDeleter interface {
	Delete(ctx context.Context, userID string) error
}

// RegisterRoutes monta todas las operaciones que cruzan ledger, scheduler y registry.
// stats puede ser nil (sin GET /stats).
func RegisterRoutes(r chi.Router, c *Coordinator, dir identity.Directory, stats StatsReader) {
	routes := []httpx.Route{
		// Groups
		{Method: http.MethodPost, Pattern: "/groups", Handler: createGroupHandler(c, dir)},
		{Method: http.MethodDelete, Pattern: "/groups/{groupID}", Handler: disbandGroupHandler(c)},
		{Method: http.MethodPost, Pattern: "/groups/{groupID}/leave", Handler: leaveHandler(c.LeaveGroup, "groupID")},
		{Method: http.MethodPost, Pattern: "/groups/{groupID}/requests", Handler: openMembershipHandler(c, dir, registry.KindGroup, "groupID")},
		{Method: http.MethodPatch, Pattern: "/groups/requests/{requestID}", Handler: respondMembershipHandler(c, dir, requests.KindGroup)},

		// Events
		{Method: http.MethodPost, Pattern: "/events", Handler: createEventHandler(c, dir)},
		{Method: http.MethodDelete, Pattern: "/events/{eventID}", Handler: deleteEventHandler(c)},
		{Method: http.MethodPost, Pattern: "/events/{eventID}/unregister", Handler: leaveHandler(c.UnregisterFromEvent, "eventID")},
		{Method: http.MethodPost, Pattern: "/events/{eventID}/requests", Handler: openMembershipHandler(c, dir, registry.KindEvent, "eventID")},
		{Method: http.MethodPatch, Pattern: "/events/requests/{requestID}", Handler: respondMembershipHandler(c, dir, requests.KindEvent)},

		// Friends: ambas rutas comparten el nombre del parámetro; en POST es un
		// username y en PATCH un request id.
		{Method: http.MethodPost, Pattern: "/friends/requests/{ref}", Handler: openFriendHandler(c, dir)},
		{Method: http.MethodPatch, Pattern: "/friends/requests/{ref}", Handler: respondFriendHandler(c, dir)},

		// Ledger
		{Method: http.MethodDelete, Pattern: "/requests/{requestID}", Handler: withdrawHandler(c)},
		{Method: http.MethodPost, Pattern: "/requests/{requestID}/reconcile", Handler: reconcileHandler(c, dir)},

		{Method: http.MethodDelete, Pattern: "/users/me", Handler: removeMeHandler(c, dir)},
	}
	if stats != nil {
		routes = append(routes, httpx.Route{Method: http.MethodGet, Pattern: "/stats", Handler: statsHandler(stats)})
	}
	httpx.Mount(r, routes)
}

type createGroupRequest struct {
	Name     string          `json:"name"`
	Capacity json.RawMessage `json:"capacity" swaggertype:"integer"`
	Private  json.RawMessage `json:"private" swaggertype:"boolean"` // true/false o "true"/"false"
	Location string          `json:"location"`
}

// createGroupHandler godoc
// @Summary Crear group
// @Description El creador queda como dueño (miembro implícito, no ocupa lugar). `capacity` y `private` aceptan también strings ("10", "true").
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createGroupRequest true "Datos del group"
// @Success 201 {object} groups.GroupResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "nombre duplicado"
// @Router /groups [post]
func createGroupHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		var req createGroupRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var in groups.CreateInput
		err := httpx.Validate(
			httpx.Required("name", req.Name),
			httpx.MaxLen("name", req.Name, groups.MaxNameLen),
			httpx.Int("capacity", req.Capacity, &in.Capacity),
			httpx.Positive("capacity", &in.Capacity),
			httpx.When(len(req.Private) > 0, httpx.Bool("private", req.Private, &in.Private)),
		)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		in.Name = req.Name
		in.LocationID = req.Location

		g, err := c.CreateGroup(r.Context(), userID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, groups.ToResponse(r.Context(), dir, g))
	}
}

// disbandGroupHandler godoc
// @Summary Disolver group
// @Description Solo el dueño. Borra también sus requests y events.
// @Tags groups
// @Param groupID path string true "ID del group"
// @Success 204
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /groups/{groupID} [delete]
func disbandGroupHandler(c *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		if _, err := c.DisbandGroup(r.Context(), chi.URLParam(r, "groupID"), userID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func leaveHandler(leave func(ctx context.Context, id, actorID string) error, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		if err := leave(r.Context(), chi.URLParam(r, param), userID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createEventRequest struct {
	Name     string          `json:"name"`
	GroupID  string          `json:"group_id"`
	Capacity json.RawMessage `json:"capacity" swaggertype:"integer"`
	Location string          `json:"location"`
	Start    string          `json:"start"` // RFC3339
	End      string          `json:"end"`   // RFC3339
}

// createEventHandler godoc
// @Summary Crear event
// @Description El host tiene que ser miembro del group. El event se borra solo al llegar a `end`.
// @Tags events
// @Accept json
// @Produce json
// @Param payload body createEventRequest true "Datos del event; start/end en RFC3339"
// @Success 201 {object} events.EventResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse "no es miembro del group"
// @Router /events [post]
func createEventHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		var req createEventRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		var (
			in         events.CreateInput
			start, end *time.Time
		)
		err := httpx.Validate(
			httpx.Required("name", req.Name),
			httpx.MaxLen("name", req.Name, events.MaxNameLen),
			httpx.Required("group_id", req.GroupID),
			httpx.Int("capacity", req.Capacity, &in.Capacity),
			httpx.Positive("capacity", &in.Capacity),
			httpx.Time("start", req.Start, &start, false),
			httpx.Time("end", req.End, &end, false),
			httpx.Before("start", &start, &end),
		)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		in.Name = req.Name
		in.GroupID = req.GroupID
		in.LocationID = req.Location
		in.Start = *start
		in.End = *end

		e, err := c.CreateEvent(r.Context(), userID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, events.ToResponse(r.Context(), dir, e))
	}
}

func deleteEventHandler(c *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		if _, err := c.DeleteEvent(r.Context(), chi.URLParam(r, "eventID"), userID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type openRequestBody struct {
	Message   string `json:"message"`
	ExpiresAt string `json:"expires_at"` // RFC3339 opcional
}

func decodeOpen(r *http.Request) (OpenInput, error) {
	var body openRequestBody
	if err := httpx.Decode(r, &body); err != nil {
		return OpenInput{}, err
	}
	in := OpenInput{Message: body.Message}
	err := httpx.Validate(
		httpx.MaxLen("message", body.Message, requests.MaxMessageLen),
		httpx.Time("expires_at", body.ExpiresAt, &in.ExpiresAt, true),
	)
	return in, err
}

// openMembershipHandler godoc
// @Summary Pedir ingreso a un group o event
// @Description El request va al dueño del recurso. Falla con 409 si está lleno, si ya sos miembro o si ya hay uno pending.
// @Tags requests
// @Accept json
// @Produce json
// @Param groupID path string true "ID del group (o eventID en /events/{eventID}/requests)"
// @Param payload body openRequestBody false "Mensaje y vencimiento opcionales"
// @Success 201 {object} requests.RequestResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /groups/{groupID}/requests [post]
func openMembershipHandler(c *Coordinator, dir identity.Directory, kind registry.Kind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		in, err := decodeOpen(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		ref := registry.Ref{Kind: kind, ID: chi.URLParam(r, param)}
		req, err := c.OpenMembershipRequest(r.Context(), userID, ref, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, requests.ToResponse(r.Context(), dir, req))
	}
}

type respondBody struct {
	Accept json.RawMessage `json:"accept" swaggertype:"boolean"`
}

func decodeRespond(r *http.Request) (bool, error) {
	var body respondBody
	if err := httpx.Decode(r, &body); err != nil {
		return false, err
	}
	var accept bool
	err := httpx.Validate(httpx.Bool("accept", body.Accept, &accept))
	return accept, err
}

// respondMembershipHandler godoc
// @Summary Aceptar o rechazar un request
// @Description Solo el recipient. Si acepta y el recurso se llenó entretanto, el request queda accepted y la respuesta es 409.
// @Tags requests
// @Accept json
// @Produce json
// @Param requestID path string true "ID del request"
// @Param payload body respondBody true "accept: true/false"
// @Success 200 {object} requests.RequestResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /groups/requests/{requestID} [patch]
func respondMembershipHandler(c *Coordinator, dir identity.Directory, kind requests.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		accept, err := decodeRespond(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		req, err := c.ResolveMembershipRequest(r.Context(), kind, chi.URLParam(r, "requestID"), userID, accept)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, requests.ToResponse(r.Context(), dir, req))
	}
}

func openFriendHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		in, err := decodeOpen(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		recipient, err := dir.ByUsername(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		req, err := c.OpenFriendRequest(r.Context(), userID, recipient.ID, in)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, requests.ToResponse(r.Context(), dir, req))
	}
}

func respondFriendHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		accept, err := decodeRespond(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		req, err := c.ResolveFriendRequest(r.Context(), chi.URLParam(r, "ref"), userID, accept)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, requests.ToResponse(r.Context(), dir, req))
	}
}

// withdrawHandler godoc
// @Summary Retirar un request pending
// @Description Solo el sender y solo mientras está pending. Cancela su vencimiento.
// @Tags requests
// @Param requestID path string true "ID del request"
// @Success 204
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse "ya fue respondido"
// @Router /requests/{requestID} [delete]
func withdrawHandler(c *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		if _, err := c.Withdraw(r.Context(), chi.URLParam(r, "requestID"), userID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reconcileHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		req, err := c.Reconcile(r.Context(), chi.URLParam(r, "requestID"), userID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, requests.ToResponse(r.Context(), dir, req))
	}
}

// removeMeHandler godoc
// @Summary Borrar mi cuenta
// @Description Borra requests, amistades, events que hospedo y groups de los que soy dueño; me saca del resto.
// @Tags users
// @Produce json
// @Success 200 {object} RemovalSummary
// @Router /users/me [delete]
func removeMeHandler(c *Coordinator, dir identity.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		sum, err := c.RemoveActor(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if d, ok := dir.(AccountDeleter); ok {
			if err := d.Delete(r.Context(), userID); err != nil {
				httpx.WriteError(w, err)
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, sum)
	}
}

func statsHandler(stats StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpx.UserID(w, r); !ok {
			return
		}
		totals, err := stats.Totals(r.Context())
		if err != nil {
			httpx.WriteError(w, apperr.Unavailable("stats: totals", err))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, totals)
	}
}
