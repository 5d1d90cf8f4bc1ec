package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"provdir/internal/provider/models"
	"provdir/internal/provider/service"
	dErrors "provdir/pkg/domain-errors"
	"provdir/pkg/platform/httputil"
	"provdir/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/provider-mocks.go -package=mocks Service

// Service defines the directory operations the handler exposes.
type Service interface {
	SynchronizeDirectory(ctx context.Context) (*service.SyncResult, error)
	RefreshRegistrations(ctx context.Context) (*service.RefreshResult, error)
	ComposeRows(ctx context.Context) ([]models.Row, error)
	UpdateProvider(ctx context.Context, npi models.NPI) (*service.TransitionResult, error)
	Register(ctx context.Context, npi models.NPI) (*service.TransitionResult, error)
	Deregister(ctx context.Context, npi models.NPI) (*service.TransitionResult, error)
	SetElectronicOnly(ctx context.Context, npi models.NPI) (*service.TransitionResult, error)
	RenameCustomer(ctx context.Context, customerID uuid.UUID, name string, now time.Time) error
}

// Handler wires directory endpoints to the provider service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a provider handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/providers", h.HandleListProviders)
	r.Post("/providers/sync", h.HandleSync)
	r.Post("/providers/refresh", h.HandleRefresh)
	r.Post("/providers/{npi}/update", h.transitionHandler("update", h.service.UpdateProvider))
	r.Post("/providers/{npi}/register", h.transitionHandler("register", h.service.Register))
	r.Post("/providers/{npi}/deregister", h.transitionHandler("deregister", h.service.Deregister))
	r.Post("/providers/{npi}/electronic-only", h.transitionHandler("electronic-only", h.service.SetElectronicOnly))
	r.Patch("/customers/{id}", h.HandleRenameCustomer)
}

// HandleListProviders handles GET /providers.
func (h *Handler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.service.ComposeRows(ctx)
	if err != nil {
		h.logError(ctx, "list providers failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"providers": rows})
}

// HandleSync handles POST /providers/sync.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	result, err := h.service.SynchronizeDirectory(ctx)
	if err != nil {
		h.logError(ctx, "directory sync failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logInfo(ctx, "directory synchronized",
		"created", result.Created,
		"updated", result.Updated,
		"registry_error", result.Err != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRefresh handles POST /providers/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	result, err := h.service.RefreshRegistrations(ctx)
	if err != nil {
		h.logError(ctx, "registration refresh failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logInfo(ctx, "registrations refreshed",
		"statuses", len(result.Statuses),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// transitionHandler adapts the single-provider operations, which share their
// request and response shape.
func (h *Handler) transitionHandler(name string, op func(ctx context.Context, npi models.NPI) (*service.TransitionResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		npi := models.NPI(chi.URLParam(r, "npi"))
		if npi == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "npi is required"))
			return
		}

		result, err := op(ctx, npi)
		if err != nil {
			h.logError(ctx, name+" failed", err, "npi", npi)
			httputil.WriteError(w, err)
			return
		}
		if result.Err != "" {
			h.logInfo(ctx, name+" reported registry failure", "npi", npi, "registry_error", result.Err)
		}
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleRenameCustomer handles PATCH /customers/{id}.
func (h *Handler) HandleRenameCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid customer id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RenameCustomerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.RenameCustomer(ctx, customerID, req.Name, requestcontext.Now(ctx)); err != nil {
		h.logError(ctx, "rename customer failed", err, "customer_id", customerID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg, append(args, "request_id", requestcontext.RequestID(ctx), "error", err)...)
	}
}

func (h *Handler) logInfo(ctx context.Context, msg string, args ...any) {
	if h.logger != nil {
		h.logger.InfoContext(ctx, msg, append(args, "request_id", requestcontext.RequestID(ctx))...)
	}
}
