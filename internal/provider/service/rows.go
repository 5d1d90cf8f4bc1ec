package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"provdir/internal/provider/mapper"
	"provdir/internal/provider/models"
	dErrors "provdir/pkg/domain-errors"
)

// ComposeRows builds the read-facing view: every persisted provider, ordered
// by customer then NPI, joined with its registration status and resolved
// customer and group names.
func (s *Service) ComposeRows(ctx context.Context) ([]models.Row, error) {
	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list providers")
	}
	statuses, err := s.store.ListRegistrationStatuses(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registration statuses")
	}

	names, err := s.resolveNames(ctx, providers)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, 0, len(providers))
	for _, p := range providers {
		var detail *models.ListDetail
		if p.LastListSnapshot != nil {
			detail = &p.LastListSnapshot.Detail
		}
		var status *models.RegistrationStatus
		if st, ok := statuses[p.ID]; ok {
			status = &st
		}
		rows = append(rows, mapper.RowFromPersisted(p, detail, status, names))
	}
	return rows, nil
}

// resolveNames batch-looks-up customer and group display names; the two
// lookups fan out concurrently.
func (s *Service) resolveNames(ctx context.Context, providers []models.Provider) (mapper.RowNames, error) {
	customerSet := make(map[uuid.UUID]struct{})
	groupSet := make(map[uuid.UUID]struct{})
	for _, p := range providers {
		if p.CustomerID != nil {
			customerSet[*p.CustomerID] = struct{}{}
		}
		if p.ProviderGroupID != nil {
			groupSet[*p.ProviderGroupID] = struct{}{}
		}
	}

	names := mapper.RowNames{
		Customers: make(map[string]string, len(customerSet)),
		Groups:    make(map[string]string, len(groupSet)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resolved, err := s.store.CustomerNames(gctx, keys(customerSet))
		if err != nil {
			return err
		}
		for id, name := range resolved {
			names.Customers[id.String()] = name
		}
		return nil
	})
	g.Go(func() error {
		resolved, err := s.store.GroupNames(gctx, keys(groupSet))
		if err != nil {
			return err
		}
		for id, name := range resolved {
			names.Groups[id.String()] = name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return mapper.RowNames{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve names")
	}
	return names, nil
}

func keys(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
