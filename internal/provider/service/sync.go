package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"provdir/internal/audit"
	"provdir/internal/provider/mapper"
	"provdir/internal/provider/models"
	"provdir/internal/registry"
	dErrors "provdir/pkg/domain-errors"
	"provdir/pkg/requestcontext"
)

// SyncResult is the outcome of one directory synchronization run. Err carries
// registry-side failures as data; Rows is always the best-effort composed
// view of what is persisted.
type SyncResult struct {
	Rows    []models.Row `json:"rows"`
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Err     string       `json:"error,omitempty"`
}

// SynchronizeDirectory reconciles the local directory against the registry's
// full provider list: every remote provider ends up persisted locally, known
// ones via sparse patch, new ones created under the System customer. Writes
// happen in fixed-size chunks, one transaction per chunk, failing fast
// between chunks. Store failures are returned as errors; registry failures
// are reported in SyncResult.Err alongside the current composed rows.
func (s *Service) SynchronizeDirectory(ctx context.Context) (*SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "provider.SynchronizeDirectory")
	defer span.End()
	started := time.Now()

	items, err := s.fetchAllProviders(ctx)
	if err != nil {
		s.logError(ctx, "directory sync: registry list failed", "error", err)
		rows, composeErr := s.ComposeRows(ctx)
		if composeErr != nil {
			return nil, composeErr
		}
		if cached := s.cachedList(ctx); cached != nil {
			rows = mapper.MergeRemoteIntoRows(rows, cached)
		}
		s.emitAudit(ctx, audit.Event{
			Action:  audit.ActionDirectorySynced,
			Outcome: "registry_error",
			Detail:  err.Error(),
		})
		return &SyncResult{Rows: rows, Err: err.Error()}, nil
	}
	s.cacheList(ctx, items)

	updates, creates, err := s.partitionItems(ctx, items)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	var systemCustomerID uuid.UUID
	if len(creates) > 0 {
		systemCustomerID, err = s.store.EnsureSystemCustomer(ctx, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure system customer")
		}
	}

	if err := s.applyUpdates(ctx, updates, now); err != nil {
		return nil, err
	}
	if err := s.applyCreates(ctx, creates, systemCustomerID, now); err != nil {
		return nil, err
	}

	rows, err := s.ComposeRows(ctx)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sync.created", len(creates)),
		attribute.Int("sync.updated", len(updates)),
	)
	s.metrics.ObserveSync(time.Since(started), len(creates), len(updates))
	s.emitAudit(ctx, audit.Event{
		Action:  audit.ActionDirectorySynced,
		Outcome: "ok",
		Detail:  fmt.Sprintf("created=%d updated=%d", len(creates), len(updates)),
	})

	return &SyncResult{
		Rows:    rows,
		Created: len(creates),
		Updated: len(updates),
	}, nil
}

type updateItem struct {
	providerID uuid.UUID
	item       registry.ListItem
}

// partitionItems splits the remote list into updates of known NPIs and
// creates for unknown ones, with one batched existence lookup. Items without
// an NPI cannot be keyed and are skipped.
func (s *Service) partitionItems(ctx context.Context, items []registry.ListItem) ([]updateItem, []registry.ListItem, error) {
	npis := make([]models.NPI, 0, len(items))
	for _, item := range items {
		if item.NPI != "" {
			npis = append(npis, models.NPI(item.NPI))
		}
	}
	existing, err := s.store.ExistingNPIs(ctx, npis)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up existing providers")
	}

	var updates []updateItem
	var creates []registry.ListItem
	seen := make(map[models.NPI]struct{}, len(items))
	for _, item := range items {
		if item.NPI == "" {
			s.logWarn(ctx, "directory sync: list item without npi skipped")
			continue
		}
		npi := models.NPI(item.NPI)
		if _, dup := seen[npi]; dup {
			continue
		}
		seen[npi] = struct{}{}
		if id, ok := existing[npi]; ok {
			updates = append(updates, updateItem{providerID: id, item: item})
		} else {
			creates = append(creates, item)
		}
	}
	return updates, creates, nil
}

func (s *Service) applyUpdates(ctx context.Context, updates []updateItem, now time.Time) error {
	for _, group := range chunk(updates, updateChunkSize) {
		err := s.storeTx.RunInTx(ctx, func(store Store) error {
			for _, u := range group {
				patch := mapper.UpdateFromListItem(u.item)
				patch.LastListSnapshot = models.NewListSnapshot(mapper.ListItemToDetail(u.item), now)
				patch.LastListAt = &now
				if err := store.PatchProvider(ctx, u.providerID, patch, now); err != nil {
					return fmt.Errorf("patch provider %s: %w", u.item.NPI, err)
				}
			}
			return nil
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "directory sync: update chunk failed")
		}
	}
	return nil
}

func (s *Service) applyCreates(ctx context.Context, creates []registry.ListItem, systemCustomerID uuid.UUID, now time.Time) error {
	for _, group := range chunk(creates, createChunkSize) {
		providers := make([]*models.Provider, 0, len(group))
		for _, item := range group {
			p, err := models.NewProvider(uuid.New(), models.NPI(item.NPI), now)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "directory sync: invalid list item")
			}
			detail := mapper.ListItemToDetail(item)
			mapper.UpdateFromListItem(item).Apply(p, now)
			p.CustomerID = &systemCustomerID
			p.LastListSnapshot = models.NewListSnapshot(detail, now)
			p.LastListAt = &now
			providers = append(providers, p)
		}
		err := s.storeTx.RunInTx(ctx, func(store Store) error {
			return store.CreateProviders(ctx, providers)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "directory sync: create chunk failed")
		}
	}
	return nil
}
