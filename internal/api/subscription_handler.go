package api

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/phrazzld/newsletter-api/internal/api/shared"
	"github.com/phrazzld/newsletter-api/internal/domain"
	"github.com/phrazzld/newsletter-api/internal/store"
)

// SubscribeRequest is the body of POST /subscriptions.
// Pointer fields tell a missing key apart from an empty one.
type SubscribeRequest struct {
	Name  *string `json:"name"  validate:"required"`
	Email *string `json:"email" validate:"required"`
}

// SubscriptionHandler handles subscription HTTP requests.
type SubscriptionHandler struct {
	store  store.SubscriberStore
	logger *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
// If logger is nil, a default logger will be used.
func NewSubscriptionHandler(subscribers store.SubscriberStore, logger *slog.Logger) *SubscriptionHandler {
	if subscribers == nil {
		panic("subscriber store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{
		store:  subscribers,
		logger: logger.With(slog.String("component", "subscription_handler")),
	}
}

// Subscribe handles POST /subscriptions.
//
// 200 with an empty body once the subscriber is stored; 400 when the body
// cannot be decoded, a field is missing or a value fails validation; 500 when
// the store fails. Store failures are logged once and never retried.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSubscribeRequest(w, r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.DescribeValidationError(err), err)
		return
	}

	subscriber, err := domain.NewSubscriber(*req.Name, *req.Email)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.store.Insert(r.Context(), subscriber); err != nil {
		kind := errorKind(err)
		opts := []shared.ResponseOption{shared.WithLogAttrs(
			slog.String("error_kind", kind),
			slog.String("subscriber_id", subscriber.ID.String()),
		)}
		if kind == "conflict" {
			opts = append(opts, shared.WithLogLevel(slog.LevelWarn))
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err, opts...)
		return
	}

	h.logger.InfoContext(r.Context(), "new subscriber saved",
		slog.String("trace_id", shared.GetTraceID(r.Context())),
		slog.String("subscriber_id", subscriber.ID.String()))

	shared.RespondWithStatus(w, http.StatusOK)
}

// decodeSubscribeRequest reads a JSON body, or an urlencoded form when the
// client says so. Absent form keys stay nil so validation reports them.
func decodeSubscribeRequest(w http.ResponseWriter, r *http.Request) (SubscribeRequest, error) {
	var req SubscribeRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" {
		return req, shared.DecodeJSON(w, r, &req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, shared.MaxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	if r.PostForm.Has("name") {
		name := r.PostForm.Get("name")
		req.Name = &name
	}
	if r.PostForm.Has("email") {
		email := r.PostForm.Get("email")
		req.Email = &email
	}
	return req, nil
}
