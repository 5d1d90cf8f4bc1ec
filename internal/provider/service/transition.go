package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"provdir/internal/audit"
	"provdir/internal/provider/models"
	"provdir/internal/registry"
	dErrors "provdir/pkg/domain-errors"
	"provdir/pkg/platform/sentinel"
	"provdir/pkg/requestcontext"
)

// TransitionResult is the outcome of one registration-state transition or
// identity update. Err carries a registry-side failure as data; validation
// failures surface as coded errors before the registry is ever called.
type TransitionResult struct {
	Rows []models.Row `json:"rows"`
	Err  string       `json:"error,omitempty"`
}

const (
	opUpdate         = "update"
	opRegister       = "register"
	opDeregister     = "deregister"
	opElectronicOnly = "electronic_only"
)

// Register enrolls the provider for electronic delivery of medical record
// requests.
func (s *Service) Register(ctx context.Context, npi models.NPI) (*TransitionResult, error) {
	return s.transition(ctx, npi, opRegister, audit.ActionProviderRegistered,
		func(ctx context.Context, remoteID string) (registry.RegistrationPayload, error) {
			return s.registry.SetEmdrRegistration(ctx, remoteID, true)
		})
}

// Deregister withdraws the provider from electronic delivery entirely,
// including any electronic-only narrowing.
func (s *Service) Deregister(ctx context.Context, npi models.NPI) (*TransitionResult, error) {
	return s.transition(ctx, npi, opDeregister, audit.ActionProviderDeregistered,
		func(ctx context.Context, remoteID string) (registry.RegistrationPayload, error) {
			return s.registry.SetEmdrRegistration(ctx, remoteID, false)
		})
}

// SetElectronicOnly narrows an existing registration to electronic
// correspondence only. There is no direct widening transition; deregister
// and register again instead.
func (s *Service) SetElectronicOnly(ctx context.Context, npi models.NPI) (*TransitionResult, error) {
	return s.transition(ctx, npi, opElectronicOnly, audit.ActionElectronicOnlySet,
		s.registry.SetElectronicOnly)
}

func (s *Service) transition(
	ctx context.Context,
	npi models.NPI,
	operation string,
	action audit.Action,
	call func(ctx context.Context, remoteID string) (registry.RegistrationPayload, error),
) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "provider."+operation)
	defer span.End()
	span.SetAttributes(attribute.String("provider.npi", npi.String()))

	p, err := s.loadProvider(ctx, npi)
	if err != nil {
		return nil, err
	}
	if err := p.RequireRemoteID(); err != nil {
		s.metrics.IncrementTransition(operation, "rejected")
		return nil, err
	}

	callStarted := time.Now()
	payload, callErr := call(ctx, p.RemoteProviderID)
	s.metrics.ObserveRegistryCall(operation, time.Since(callStarted))
	if callErr != nil {
		return s.transitionFailed(ctx, p, operation, action, callErr)
	}

	now := requestcontext.Now(ctx)
	snapshot := &models.UpdateSnapshot{
		Version:          1,
		Operation:        operation,
		RemoteProviderID: payload.ProviderID,
		Registered:       payload.RegisteredForEmdr,
		ElectronicOnly:   payload.ElectronicOnly,
		Status:           payload.Status,
		Errors:           append(append([]string{}, payload.Errors...), payload.ErrorList...),
		ReceivedAt:       now,
	}
	patch := models.ProviderPatch{
		LastUpdateSnap: snapshot,
		LastUpdateAt:   &now,
	}
	if payload.ProviderID != "" && payload.ProviderID != p.RemoteProviderID {
		patch.RemoteProviderID = &payload.ProviderID
		p.RemoteProviderID = payload.ProviderID
	}
	if err := s.store.PatchProvider(ctx, p.ID, patch, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transition snapshot")
	}

	s.followups.Enqueue(ctx, *p)

	s.metrics.IncrementTransition(operation, "ok")
	s.emitAudit(ctx, audit.Event{
		Action:           action,
		NPI:              npi.String(),
		RemoteProviderID: p.RemoteProviderID,
		Outcome:          "ok",
	})

	rows, err := s.ComposeRows(ctx)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Rows: rows}, nil
}

// UpdateProvider pushes the provider's identity data to the registry to
// obtain or refresh the registry-assigned provider id. This is the step the
// transition precondition points callers at when the id is missing.
func (s *Service) UpdateProvider(ctx context.Context, npi models.NPI) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "provider.UpdateProvider")
	defer span.End()
	span.SetAttributes(attribute.String("provider.npi", npi.String()))

	p, err := s.loadProvider(ctx, npi)
	if err != nil {
		return nil, err
	}
	if p.Name == "" || !p.HasCompleteAddress() {
		s.metrics.IncrementTransition(opUpdate, "rejected")
		return nil, dErrors.New(dErrors.CodeBadRequest, "provider needs a name and a complete address before a registry update")
	}

	callStarted := time.Now()
	resp, callErr := s.registry.UpdateProvider(ctx, registry.UpdateRequest{
		NPI:     p.NPI.String(),
		Name:    p.Name,
		Street:  p.Street,
		Street2: p.Street2,
		City:    p.City,
		State:   p.State,
		Zip:     p.Zip,
	})
	s.metrics.ObserveRegistryCall(opUpdate, time.Since(callStarted))
	if callErr != nil {
		return s.transitionFailed(ctx, p, opUpdate, audit.ActionProviderUpdated, callErr)
	}

	now := requestcontext.Now(ctx)
	snapshot := &models.UpdateSnapshot{
		Version:          1,
		Operation:        opUpdate,
		RemoteProviderID: resp.ProviderID,
		Status:           resp.Status,
		Errors:           resp.Errors,
		ReceivedAt:       now,
	}
	patch := models.ProviderPatch{
		LastUpdateSnap: snapshot,
		LastUpdateAt:   &now,
	}
	if resp.ProviderID != "" {
		patch.RemoteProviderID = &resp.ProviderID
		p.RemoteProviderID = resp.ProviderID
	}
	if err := s.store.PatchProvider(ctx, p.ID, patch, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist update snapshot")
	}

	if p.RemoteProviderID != "" {
		s.followups.Enqueue(ctx, *p)
	}

	s.metrics.IncrementTransition(opUpdate, "ok")
	s.emitAudit(ctx, audit.Event{
		Action:           audit.ActionProviderUpdated,
		NPI:              npi.String(),
		RemoteProviderID: p.RemoteProviderID,
		Outcome:          "ok",
	})

	rows, err := s.ComposeRows(ctx)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Rows: rows}, nil
}

func (s *Service) loadProvider(ctx context.Context, npi models.NPI) (*models.Provider, error) {
	p, err := s.store.FindProviderByNPI(ctx, npi)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "provider not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
	}
	return p, nil
}

// transitionFailed reports a registry-side failure as data: the composed rows
// plus the error text, never a propagated error.
func (s *Service) transitionFailed(ctx context.Context, p *models.Provider, operation string, action audit.Action, callErr error) (*TransitionResult, error) {
	s.logError(ctx, "registry call failed",
		"operation", operation, "npi", p.NPI, "error", callErr)
	s.metrics.IncrementTransition(operation, "error")
	s.emitAudit(ctx, audit.Event{
		Action:           action,
		NPI:              p.NPI.String(),
		RemoteProviderID: p.RemoteProviderID,
		Outcome:          "registry_error",
		Detail:           callErr.Error(),
	})

	rows, err := s.ComposeRows(ctx)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Rows: rows, Err: callErr.Error()}, nil
}
