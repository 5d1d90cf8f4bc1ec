// Package service hosts the three engines of the provider directory: full
// directory synchronization against the external registry, per-provider
// registration refresh, and the eMDR registration state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"provdir/internal/audit"
	"provdir/internal/platform/middleware"
	"provdir/internal/provider/metrics"
	"provdir/internal/provider/models"
	"provdir/internal/registry"
	dErrors "provdir/pkg/domain-errors"
	"provdir/pkg/platform/circuit"
	"provdir/pkg/platform/sentinel"
)

// Store is the persistence boundary the engines write through. Both the
// postgres and the in-memory implementation satisfy it.
type Store interface {
	ListProviders(ctx context.Context) ([]models.Provider, error)
	FindProviderByNPI(ctx context.Context, npi models.NPI) (*models.Provider, error)
	ExistingNPIs(ctx context.Context, npis []models.NPI) (map[models.NPI]uuid.UUID, error)
	CreateProviders(ctx context.Context, providers []*models.Provider) error
	PatchProvider(ctx context.Context, providerID uuid.UUID, patch models.ProviderPatch, now time.Time) error
	UpsertRegistrationStatus(ctx context.Context, status models.RegistrationStatus) error
	ListRegistrationStatuses(ctx context.Context) (map[uuid.UUID]models.RegistrationStatus, error)
	EnsureSystemCustomer(ctx context.Context, now time.Time) (uuid.UUID, error)
	RenameCustomer(ctx context.Context, customerID uuid.UUID, name string, now time.Time) error
	CustomerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	GroupNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// StoreTx runs one chunk of writes as a single transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}

// ListCache holds the most recently fetched full registry list. Best-effort:
// every failure is logged and swallowed.
type ListCache interface {
	Get(ctx context.Context) ([]registry.ListItem, error)
	Put(ctx context.Context, items []registry.ListItem) error
}

// Followups receives a provider after a successful registration transition
// so its persisted status and list snapshot catch up with the registry. The
// default runner executes inline; deployments may swap in a queue.
type Followups interface {
	Enqueue(ctx context.Context, provider models.Provider)
}

const (
	defaultPageSize  = 100
	updateChunkSize  = 100
	createChunkSize  = 50
	refreshGroupSize = 20
)

// Service orchestrates directory synchronization and registration state.
type Service struct {
	store    Store
	storeTx  StoreTx
	registry registry.Client

	logger    *slog.Logger
	metrics   *metrics.Metrics
	cache     ListCache
	audit     audit.Publisher
	followups Followups
	tracer    trace.Tracer
	breaker   *circuit.Breaker
	pageSize  int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithListCache(cache ListCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithFollowups(f Followups) Option {
	return func(s *Service) {
		s.followups = f
	}
}

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New constructs a Service.
func New(store Store, storeTx StoreTx, client registry.Client, opts ...Option) *Service {
	s := &Service{
		store:    store,
		storeTx:  storeTx,
		registry: client,
		pageSize: defaultPageSize,
		tracer:   otel.Tracer("provdir/internal/provider/service"),
		breaker:  circuit.New("registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.followups == nil {
		s.followups = &inlineFollowups{service: s}
	}
	return s
}

// RenameCustomer renames an ordinary customer; the reserved System customer
// is immutable.
func (s *Service) RenameCustomer(ctx context.Context, customerID uuid.UUID, name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "customer name is required")
	}

	if err := s.store.RenameCustomer(ctx, customerID, name, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "customer not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeConflict, "the System customer cannot be renamed")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return dErrors.New(dErrors.CodeConflict, "customer name must be unique")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename customer")
		}
	}
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionCustomerRenamed,
		Outcome: "ok",
		Detail:  name,
	})
	return nil
}

// fetchAllProviders pages through the registry's full list.
func (s *Service) fetchAllProviders(ctx context.Context) ([]registry.ListItem, error) {
	var items []registry.ListItem
	page := 1
	for {
		listed, err := s.registry.ListProviders(ctx, page, s.pageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, listed.Items...)
		if page >= listed.TotalPages {
			return items, nil
		}
		page++
	}
}

// cacheList repopulates the list cache, best-effort.
func (s *Service) cacheList(ctx context.Context, items []registry.ListItem) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, items); err != nil {
		s.logWarn(ctx, "list cache update failed", "error", err)
	}
}

// cachedList returns the last cached registry list, or nil when the cache is
// cold, disabled, or unreadable.
func (s *Service) cachedList(ctx context.Context) []registry.ListItem {
	if s.cache == nil {
		return nil
	}
	items, err := s.cache.Get(ctx)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logWarn(ctx, "list cache read failed", "error", err)
		}
		return nil
	}
	return items
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		event.RequestID = requestID
	}
	if userID := middleware.GetUserID(ctx); userID != "" {
		event.Actor = userID
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"npi", event.NPI, "outcome", event.Outcome, "log_type", "audit")
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logWarn(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
