package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
	"acceso/pkg/platform/audit"
	"acceso/pkg/platform/httputil"
	request "acceso/pkg/platform/middleware/request"
)

// Purger deletes audit events older than a cutoff. Satisfied by
// audit.Recorder.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Handler exposes the audit trail to administrators: reads against the
// store, purge through the recorder.
type Handler struct {
	store  audit.Store
	purger Purger
	logger *slog.Logger
}

func New(store audit.Store, purger Purger, logger *slog.Logger) *Handler {
	return &Handler{store: store, purger: purger, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit", h.HandleListEvents)
	r.Get("/admin/audit/{id}", h.HandleGetEvent)
	r.Get("/admin/audit/users/{userID}", h.HandleListEventsByUser)
	r.Delete("/admin/audit", h.HandlePurge)
}

// EventResponse is the wire form of an audit event. Details is embedded as
// raw JSON: the recorder guarantees it is always a valid document.
type EventResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"`
	Category  string          `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
	Details   json.RawMessage `json:"details"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Count  int             `json:"count"`
}

type PurgeResponse struct {
	Removed int64 `json:"removed"`
}

// HandleListEvents lists audit events, newest first. Supports ?action=,
// ?from=&to= (RFC 3339), and ?limit=/?offset= pagination; filters are
// exclusive.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	q := r.URL.Query()

	var (
		events []audit.Event
		err    error
	)
	switch {
	case q.Get("action") != "":
		events, err = h.store.ListByAction(ctx, q.Get("action"))
	case q.Get("from") != "" || q.Get("to") != "":
		var from, to time.Time
		from, to, err = parseRange(q.Get("from"), q.Get("to"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		events, err = h.store.ListBetween(ctx, from, to)
	default:
		limit, offset := pagination(r)
		events, err = h.store.ListAll(ctx, limit, offset)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit events failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

// HandleGetEvent returns a single audit event.
func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseAuditEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid audit event id"))
		return
	}

	event, err := h.store.FindByID(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit event not found"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event))
}

// HandleListEventsByUser lists a user's audit events, newest first.
func (h *Handler) HandleListEventsByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	limit, offset := pagination(r)
	events, err := h.store.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "list user audit events failed", "error", err, "request_id", requestID, "user_id", userID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

// HandlePurge bulk-deletes events older than ?before= (RFC 3339) and returns
// the number removed. Repeating the call with the same cutoff removes zero.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	before := r.URL.Query().Get("before")
	if before == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "before parameter is required"))
		return
	}
	cutoff, err := time.Parse(time.RFC3339, before)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "before must be an RFC 3339 timestamp"))
		return
	}

	removed, err := h.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		h.logger.ErrorContext(ctx, "purge audit events failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &PurgeResponse{Removed: removed})
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeValidation, "from and to are both required")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeBadRequest, "from must be an RFC 3339 timestamp")
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeBadRequest, "to must be an RFC 3339 timestamp")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeValidation, "to must not precede from")
	}
	return from, to, nil
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func toEventResponse(e audit.Event) EventResponse {
	return EventResponse{
		ID:        e.ID.String(),
		UserID:    e.UserID.String(),
		Action:    e.Action,
		Category:  string(audit.Action(e.Action).Category()),
		Timestamp: e.Timestamp,
		Details:   json.RawMessage(e.Details),
	}
}

func toEventListResponse(events []audit.Event) *EventListResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return &EventListResponse{Events: out, Count: len(out)}
}
