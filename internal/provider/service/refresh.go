package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"provdir/internal/audit"
	"provdir/internal/provider/mapper"
	"provdir/internal/provider/models"
	dErrors "provdir/pkg/domain-errors"
	"provdir/pkg/requestcontext"
)

// errRegistrySuspended is the synthetic fetch error recorded for candidates
// skipped after the registry breaker opens mid-run.
var errRegistrySuspended = errors.New("registration lookup suspended: registry is failing")

// RefreshResult is the outcome of one registration refresh run. Statuses is
// keyed by remote provider id. Err reports a failed best-effort list fetch;
// the refreshed statuses themselves are still valid when it is set.
type RefreshResult struct {
	Statuses  map[string]models.RegistrationStatus `json:"statuses"`
	FetchedAt time.Time                            `json:"fetched_at"`
	Rows      []models.Row                         `json:"rows"`
	Err       string                               `json:"error,omitempty"`
}

// RefreshRegistrations fetches the current registration status for every
// candidate provider and persists each as a full-replace upsert. A failed
// lookup for one provider becomes a synthetic FETCH_ERROR status and never
// stops the run; only store failures abort. When enough consecutive lookups
// fail to open the registry breaker, the remaining candidates are marked
// without further calls. Afterwards a best-effort full list fetch refreshes
// the cache and decorates the returned rows in memory.
func (s *Service) RefreshRegistrations(ctx context.Context) (*RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, "provider.RefreshRegistrations")
	defer span.End()
	started := time.Now()

	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list providers")
	}

	candidates := make([]models.Provider, 0, len(providers))
	for _, p := range providers {
		if p.RegistrationCandidate() {
			candidates = append(candidates, p)
		}
	}

	now := requestcontext.Now(ctx)
	statuses := make(map[string]models.RegistrationStatus, len(candidates))
	failures := 0

	// Each run retries the registry afresh.
	s.breaker.Reset()

	for _, group := range chunk(candidates, refreshGroupSize) {
		for _, p := range group {
			var status models.RegistrationStatus
			if s.breaker.IsOpen() {
				status = mapper.FetchErrorStatus(p, errRegistrySuspended, now)
				s.metrics.IncrementFetch("skipped")
				failures++
			} else {
				var fetchErr error
				status, fetchErr = s.fetchRegistration(ctx, p, now)
				if fetchErr != nil {
					failures++
				}
			}
			if err := s.store.UpsertRegistrationStatus(ctx, status); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration status")
			}
			statuses[p.RemoteProviderID] = status
		}
	}

	rows, err := s.ComposeRows(ctx)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{
		Statuses:  statuses,
		FetchedAt: now,
		Rows:      rows,
	}

	// Best-effort decoration with a fresh full list; store state is already
	// final at this point. When the fetch fails the last cached list still
	// decorates the rows, stale but better than bare.
	if items, listErr := s.fetchAllProviders(ctx); listErr != nil {
		s.logWarn(ctx, "registration refresh: list fetch failed", "error", listErr)
		result.Err = listErr.Error()
		if cached := s.cachedList(ctx); cached != nil {
			result.Rows = mapper.MergeRemoteIntoRows(rows, cached)
		}
	} else {
		s.cacheList(ctx, items)
		result.Rows = mapper.MergeRemoteIntoRows(rows, items)
	}

	span.SetAttributes(
		attribute.Int("refresh.candidates", len(candidates)),
		attribute.Int("refresh.failures", failures),
	)
	s.metrics.ObserveRefresh(time.Since(started))
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionRegistrationsRefreshed,
		Outcome: "ok",
	})

	return result, nil
}

// fetchRegistration looks up one provider's registration, mapping a failed
// call to the synthetic FETCH_ERROR status. The returned error only signals
// that the synthetic path was taken.
func (s *Service) fetchRegistration(ctx context.Context, p models.Provider, now time.Time) (models.RegistrationStatus, error) {
	payload, err := s.registry.GetProviderRegistration(ctx, p.RemoteProviderID)
	if err != nil {
		s.logWarn(ctx, "registration fetch failed",
			"npi", p.NPI, "remote_provider_id", p.RemoteProviderID, "error", err)
		s.metrics.IncrementFetch("error")
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.logWarn(ctx, "registry breaker opened, suspending registration lookups")
		}
		return mapper.FetchErrorStatus(p, err, now), err
	}
	s.metrics.IncrementFetch("ok")
	s.breaker.RecordSuccess()
	return mapper.RegistrationFromPayload(p, payload, now), nil
}
