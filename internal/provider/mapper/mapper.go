// Package mapper holds the pure transforms between registry wire payloads,
// persisted provider records, and the read-facing row view. Nothing here
// performs I/O or panics: missing optional fields map to zero values.
package mapper

import (
	"sort"
	"time"

	"provdir/internal/provider/models"
	"provdir/internal/registry"
	pstrings "provdir/pkg/platform/strings"
)

// ListItemToDetail extracts the fields this system cares about from a raw
// registry list entry, canonicalizing the transaction-id field to one
// comma-joined string.
func ListItemToDetail(item registry.ListItem) models.ListDetail {
	detail := models.ListDetail{
		RemoteProviderID:  deref(item.ProviderID),
		Name:              deref(item.Name),
		Street:            deref(item.Street),
		Street2:           deref(item.Street2),
		City:              deref(item.City),
		State:             deref(item.State),
		Zip:               deref(item.Zip),
		RegisteredForEmdr: deref(item.RegisteredForEmdr),
		ElectronicOnly:    deref(item.ElectronicOnly),
		Stage:             deref(item.Stage),
		RegStatus:         deref(item.RegStatus),
		TransactionIDs:    item.TransactionIDList.Joined(),
		StatusChanges:     statusChanges(item.StatusChanges),
	}
	detail.Errors = mergeErrors(item.Errors, item.ErrorList)
	return detail
}

// UpdateFromListItem builds the sparse patch a reconciliation pass applies to
// an existing provider: only fields present on the remote item are set, so an
// omitted field never clears local data.
func UpdateFromListItem(item registry.ListItem) models.ProviderPatch {
	return models.ProviderPatch{
		Name:             item.Name,
		Street:           item.Street,
		Street2:          item.Street2,
		City:             item.City,
		State:            item.State,
		Zip:              item.Zip,
		RemoteProviderID: item.ProviderID,
	}
}

// RegistrationFromPayload maps a per-provider registration lookup response to
// the persisted status shape. Always a complete value: upserts fully replace.
func RegistrationFromPayload(p models.Provider, payload registry.RegistrationPayload, fetchedAt time.Time) models.RegistrationStatus {
	remoteID := payload.ProviderID
	if remoteID == "" {
		remoteID = p.RemoteProviderID
	}
	return models.RegistrationStatus{
		ProviderID:           p.ID,
		RemoteProviderID:     remoteID,
		RegisteredForEmdr:    payload.RegisteredForEmdr,
		ElectronicOnly:       payload.ElectronicOnly,
		RegStatus:            payload.RegStatus,
		Stage:                payload.Stage,
		SubmissionStatus:     payload.SubmissionStatus,
		Status:               payload.Status,
		CallErrorCode:        payload.CallErrorCode,
		CallErrorDescription: payload.CallErrorDescription,
		TransactionIDs:       payload.TransactionIDList.Joined(),
		StatusChanges:        statusChanges(payload.StatusChanges),
		Errors:               mergeErrors(payload.Errors, payload.ErrorList),
		FetchedAt:            fetchedAt,
	}
}

// FetchErrorStatus builds the synthetic status persisted when the registry
// lookup for one provider failed, so every refresh candidate ends the
// operation with some status row.
func FetchErrorStatus(p models.Provider, fetchErr error, fetchedAt time.Time) models.RegistrationStatus {
	return models.RegistrationStatus{
		ProviderID:           p.ID,
		RemoteProviderID:     p.RemoteProviderID,
		CallErrorCode:        models.CallErrorFetch,
		CallErrorDescription: fetchErr.Error(),
		FetchedAt:            fetchedAt,
	}
}

// RowNames resolves customer and group ids to display names during row
// composition.
type RowNames struct {
	Customers map[string]string
	Groups    map[string]string
}

// RowFromPersisted joins one provider with its optional list detail and
// registration status. Precedence for every field is
// RegistrationStatus > ListDetail > Provider column; absent sources fall
// back silently to the next-most-authoritative.
func RowFromPersisted(p models.Provider, detail *models.ListDetail, status *models.RegistrationStatus, names RowNames) models.Row {
	row := models.Row{
		NPI:              p.NPI,
		Name:             p.Name,
		Street:           p.Street,
		Street2:          p.Street2,
		City:             p.City,
		State:            p.State,
		Zip:              p.Zip,
		RemoteProviderID: p.RemoteProviderID,
		CustomerID:       p.CustomerID,
		ProviderGroupID:  p.ProviderGroupID,
		LastListAt:       p.LastListAt,
		LastUpdateAt:     p.LastUpdateAt,
	}
	if p.CustomerID != nil {
		row.CustomerName = names.Customers[p.CustomerID.String()]
	}
	if p.ProviderGroupID != nil {
		row.ProviderGroupName = names.Groups[p.ProviderGroupID.String()]
	}

	if detail != nil {
		if detail.Name != "" {
			row.Name = detail.Name
		}
		if detail.RemoteProviderID != "" {
			row.RemoteProviderID = detail.RemoteProviderID
		}
		row.RegisteredForEmdr = detail.RegisteredForEmdr
		row.ElectronicOnly = detail.ElectronicOnly
		row.Stage = detail.Stage
		row.RegStatus = detail.RegStatus
		row.TransactionIDs = detail.TransactionIDs
		row.StatusChanges = detail.StatusChanges
		row.Errors = detail.Errors
	}

	if status != nil {
		fetchedAt := status.FetchedAt
		row.FetchedAt = &fetchedAt
		row.CallErrorCode = status.CallErrorCode
		row.CallErrorDesc = status.CallErrorDescription
		if status.RemoteProviderID != "" {
			row.RemoteProviderID = status.RemoteProviderID
		}
		// A failed fetch carries no registration data; keep the list-derived
		// flags in that case.
		if !status.FetchFailed() {
			row.RegisteredForEmdr = status.RegisteredForEmdr
			row.ElectronicOnly = status.ElectronicOnly
			if status.RegStatus != "" {
				row.RegStatus = status.RegStatus
			}
			if status.Stage != "" {
				row.Stage = status.Stage
			}
			row.SubmissionStatus = status.SubmissionStatus
			if status.TransactionIDs != "" {
				row.TransactionIDs = status.TransactionIDs
			}
			if len(status.StatusChanges) > 0 {
				row.StatusChanges = status.StatusChanges
			}
			if len(status.Errors) > 0 {
				row.Errors = status.Errors
			}
		}
	}

	row.RegistrationState = models.DeriveRegistrationState(row.RegisteredForEmdr, row.ElectronicOnly)
	return row
}

// MergeRemoteIntoRows overlays fresh registry list items onto composed base
// rows, keyed by NPI. Base rows keep their locally owned fields (customer and
// group linkage, locally resolved name) while registry-owned fields are
// overwritten; items with no base row are appended. The result is stably
// sorted by NPI.
func MergeRemoteIntoRows(base []models.Row, items []registry.ListItem) []models.Row {
	out := make([]models.Row, len(base))
	copy(out, base)

	index := make(map[models.NPI]int, len(out))
	for i := range out {
		index[out[i].NPI] = i
	}

	for _, item := range items {
		detail := ListItemToDetail(item)
		if i, ok := index[models.NPI(item.NPI)]; ok {
			overlayDetail(&out[i], detail)
			continue
		}
		row := models.Row{
			NPI:              models.NPI(item.NPI),
			Name:             detail.Name,
			Street:           detail.Street,
			Street2:          detail.Street2,
			City:             detail.City,
			State:            detail.State,
			Zip:              detail.Zip,
			RemoteProviderID: detail.RemoteProviderID,
		}
		overlayDetail(&row, detail)
		index[row.NPI] = len(out)
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NPI < out[j].NPI
	})
	return out
}

// overlayDetail overwrites the registry-owned fields of a row from a fresh
// list detail, leaving local linkage untouched.
func overlayDetail(row *models.Row, detail models.ListDetail) {
	if detail.RemoteProviderID != "" {
		row.RemoteProviderID = detail.RemoteProviderID
	}
	if detail.Street != "" {
		row.Street = detail.Street
	}
	if detail.Street2 != "" {
		row.Street2 = detail.Street2
	}
	if detail.City != "" {
		row.City = detail.City
	}
	if detail.State != "" {
		row.State = detail.State
	}
	if detail.Zip != "" {
		row.Zip = detail.Zip
	}
	row.RegisteredForEmdr = detail.RegisteredForEmdr
	row.ElectronicOnly = detail.ElectronicOnly
	if detail.Stage != "" {
		row.Stage = detail.Stage
	}
	if detail.RegStatus != "" {
		row.RegStatus = detail.RegStatus
	}
	if detail.TransactionIDs != "" {
		row.TransactionIDs = detail.TransactionIDs
	}
	if len(detail.StatusChanges) > 0 {
		row.StatusChanges = detail.StatusChanges
	}
	if len(detail.Errors) > 0 {
		row.Errors = detail.Errors
	}
	row.RegistrationState = models.DeriveRegistrationState(row.RegisteredForEmdr, row.ElectronicOnly)
}

func statusChanges(in []registry.StatusChange) []models.StatusChange {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.StatusChange, len(in))
	for i, sc := range in {
		out[i] = models.StatusChange{
			Title:         sc.Title,
			Status:        sc.Status,
			TransactionID: sc.TransactionID,
			ChangedAt:     sc.ChangedAt,
		}
	}
	return out
}

// mergeErrors combines the two error fields the registry populates
// inconsistently into one deduplicated list.
func mergeErrors(errs, errorList []string) []string {
	combined := make([]string, 0, len(errs)+len(errorList))
	combined = append(combined, errs...)
	combined = append(combined, errorList...)
	out := pstrings.DedupeAndTrim(combined)
	if len(out) == 0 {
		return nil
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
