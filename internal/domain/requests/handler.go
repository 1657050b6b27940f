package requests

import (
	"context"
	"net/http"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/platform/httpx"
	"social-coordination/internal/ports/identity"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta las consultas del ledger. Withdraw y reconcile viven en
// el coordinator porque tocan timers y registry.
func RegisterRoutes(r chi.Router, svc *Service, dir identity.Directory) {
	httpx.Mount(r, []httpx.Route{
		{Method: http.MethodGet, Pattern: "/requests/sent", Handler: listSentHandler(svc, dir)},
		{Method: http.MethodGet, Pattern: "/requests/received", Handler: listReceivedHandler(svc, dir)},
	})
}

// RequestResponse representa un request con sender/recipient como usernames.
type RequestResponse struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Sender      string     `json:"sender"`
	Recipient   string     `json:"recipient"`
	ResourceID  string     `json:"resource_id,omitempty"`
	Status      Status     `json:"status"`
	Message     string     `json:"message,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

func ToResponse(ctx context.Context, dir identity.Directory, r Request) RequestResponse {
	return RequestResponse{
		ID:          r.ID,
		Kind:        r.Kind(),
		Sender:      identity.DisplayName(ctx, dir, r.SenderID),
		Recipient:   identity.DisplayName(ctx, dir, r.RecipientID),
		ResourceID:  r.ResourceID(),
		Status:      r.Status,
		Message:     r.Message,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}

// parseListFilter lee ?status=pending,accepted&kind=group.
func parseListFilter(r *http.Request) (ListFilter, error) {
	var f ListFilter
	q := r.URL.Query()
	for _, raw := range httpx.ParseCSV(q.Get("status")) {
		switch s := Status(raw); s {
		case StatusPending, StatusAccepted, StatusDeclined:
			f.Statuses = append(f.Statuses, s)
		default:
			return ListFilter{}, apperr.New(apperr.ErrInvalidInput, "invalid status %q", raw)
		}
	}
	for _, raw := range httpx.ParseCSV(q.Get("kind")) {
		k, ok := ParseKind(raw)
		if !ok {
			return ListFilter{}, apperr.New(apperr.ErrInvalidInput, "invalid kind %q", raw)
		}
		f.Kinds = append(f.Kinds, k)
	}
	return f, nil
}

// listSentHandler godoc
// @Summary Requests enviados
// @Tags requests
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param status query string false "CSV: pending,accepted,declined"
// @Param kind query string false "CSV: friend,group,event"
// @Success 200 {array} RequestResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /requests/sent [get]
func listSentHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return listHandler(dir, svc.ListSentBy)
}

// listReceivedHandler godoc
// @Summary Requests recibidos
// @Tags requests
// @Produce json
// @Param status query string false "CSV: pending,accepted,declined"
// @Param kind query string false "CSV: friend,group,event"
// @Success 200 {array} RequestResponse
// @Router /requests/received [get]
func listReceivedHandler(svc *Service, dir identity.Directory) http.HandlerFunc {
	return listHandler(dir, svc.ListReceivedBy)
}

func listHandler(dir identity.Directory, list func(context.Context, string, ListFilter) ([]Request, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httpx.UserID(w, r)
		if !ok {
			return
		}
		filter, err := parseListFilter(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		items, err := list(r.Context(), userID, filter)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]RequestResponse, 0, len(items))
		for _, it := range items {
			out = append(out, ToResponse(r.Context(), dir, it))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}
