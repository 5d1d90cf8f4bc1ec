package service

import (
	"context"

	"provdir/internal/provider/mapper"
	"provdir/internal/provider/models"
	"provdir/pkg/requestcontext"
)

// inlineFollowups runs the post-transition catch-up synchronously. Failures
// are logged and never surface to the caller: the transition itself already
// succeeded and the next refresh or sync will converge the record anyway.
type inlineFollowups struct {
	service *Service
}

func (f *inlineFollowups) Enqueue(ctx context.Context, provider models.Provider) {
	f.service.runFollowups(ctx, provider)
}

func (s *Service) runFollowups(ctx context.Context, p models.Provider) {
	now := requestcontext.Now(ctx)

	// Fresh registration status for the transitioned provider.
	payload, err := s.registry.GetProviderRegistration(ctx, p.RemoteProviderID)
	if err != nil {
		s.logWarn(ctx, "followup registration fetch failed",
			"npi", p.NPI, "error", err)
		s.metrics.IncrementFetch("error")
	} else {
		s.metrics.IncrementFetch("ok")
		status := mapper.RegistrationFromPayload(p, payload, now)
		if err := s.store.UpsertRegistrationStatus(ctx, status); err != nil {
			s.logWarn(ctx, "followup status persist failed",
				"npi", p.NPI, "error", err)
		}
	}

	// Fresh list snapshot for the same provider.
	items, err := s.fetchAllProviders(ctx)
	if err != nil {
		s.logWarn(ctx, "followup list fetch failed",
			"npi", p.NPI, "error", err)
		return
	}
	s.cacheList(ctx, items)
	for _, item := range items {
		if models.NPI(item.NPI) != p.NPI {
			continue
		}
		patch := models.ProviderPatch{
			LastListSnapshot: models.NewListSnapshot(mapper.ListItemToDetail(item), now),
			LastListAt:       &now,
		}
		if err := s.store.PatchProvider(ctx, p.ID, patch, now); err != nil {
			s.logWarn(ctx, "followup snapshot persist failed",
				"npi", p.NPI, "error", err)
		}
		return
	}
}
