package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"provdir/internal/provider/models"
	"provdir/pkg/platform/sentinel"
)

// querier abstracts *sql.DB and *sql.Tx so the same store code serves both
// autocommit reads and chunked transactional writes.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresStore persists providers, registration statuses, customers and
// groups in PostgreSQL. Pure I/O; chunking and business rules live in the
// service layer.
type PostgresStore struct {
	q querier
}

// NewPostgres constructs a store over a connection pool.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// NewPostgresTx constructs a store bound to one transaction, for use inside
// a RunInTx callback.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: tx}
}

const providerColumns = `
	id, npi, name, street, street_2, city, state, zip, remote_provider_id,
	customer_id, provider_group_id, last_list_snapshot, last_list_at,
	last_update_snapshot, last_update_at, created_at, updated_at`

func (s *PostgresStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	query := `SELECT ` + providerColumns + `
		FROM providers
		ORDER BY customer_id NULLS FIRST, npi`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list providers rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindProviderByNPI(ctx context.Context, npi models.NPI) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE npi = $1`
	p, err := scanProvider(s.q.QueryRowContext(ctx, query, npi.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find provider by npi: %w", err)
	}
	return p, nil
}

// ExistingNPIs is the single batched existence lookup the reconciliation
// engine partitions creates from updates with.
func (s *PostgresStore) ExistingNPIs(ctx context.Context, npis []models.NPI) (map[models.NPI]uuid.UUID, error) {
	if len(npis) == 0 {
		return map[models.NPI]uuid.UUID{}, nil
	}
	raw := make([]string, len(npis))
	for i, npi := range npis {
		raw[i] = npi.String()
	}
	rows, err := s.q.QueryContext(ctx, `SELECT npi, id FROM providers WHERE npi = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("existing npis: %w", err)
	}
	defer rows.Close()

	out := make(map[models.NPI]uuid.UUID, len(npis))
	for rows.Next() {
		var npi string
		var id uuid.UUID
		if err := rows.Scan(&npi, &id); err != nil {
			return nil, fmt.Errorf("scan npi: %w", err)
		}
		out[models.NPI(npi)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("existing npis rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateProviders(ctx context.Context, providers []*models.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	for _, p := range providers {
		listSnap, err := marshalNullable(p.LastListSnapshot)
		if err != nil {
			return fmt.Errorf("encode list snapshot: %w", err)
		}
		updateSnap, err := marshalNullable(p.LastUpdateSnap)
		if err != nil {
			return fmt.Errorf("encode update snapshot: %w", err)
		}
		_, err = s.q.ExecContext(ctx, query,
			p.ID, p.NPI.String(), p.Name, p.Street, p.Street2, p.City, p.State, p.Zip,
			p.RemoteProviderID, p.CustomerID, p.ProviderGroupID,
			listSnap, p.LastListAt, updateSnap, p.LastUpdateAt,
			p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("create provider %s: %w", p.NPI, sentinel.ErrConflict)
			}
			return fmt.Errorf("create provider %s: %w", p.NPI, err)
		}
	}
	return nil
}

// PatchProvider applies a sparse update: only non-nil patch fields reach the
// SET clause, so registry omissions never clear local columns.
func (s *PostgresStore) PatchProvider(ctx context.Context, providerID uuid.UUID, patch models.ProviderPatch, now time.Time) error {
	sets := []string{"updated_at = $2"}
	args := []any{providerID, now}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Street != nil {
		add("street", *patch.Street)
	}
	if patch.Street2 != nil {
		add("street_2", *patch.Street2)
	}
	if patch.City != nil {
		add("city", *patch.City)
	}
	if patch.State != nil {
		add("state", *patch.State)
	}
	if patch.Zip != nil {
		add("zip", *patch.Zip)
	}
	if patch.RemoteProviderID != nil {
		add("remote_provider_id", *patch.RemoteProviderID)
	}
	if patch.CustomerID != nil {
		add("customer_id", *patch.CustomerID)
	}
	if patch.ProviderGroupID != nil {
		add("provider_group_id", *patch.ProviderGroupID)
	}
	if patch.LastListSnapshot != nil {
		raw, err := json.Marshal(patch.LastListSnapshot)
		if err != nil {
			return fmt.Errorf("encode list snapshot: %w", err)
		}
		add("last_list_snapshot", raw)
	}
	if patch.LastListAt != nil {
		add("last_list_at", *patch.LastListAt)
	}
	if patch.LastUpdateSnap != nil {
		raw, err := json.Marshal(patch.LastUpdateSnap)
		if err != nil {
			return fmt.Errorf("encode update snapshot: %w", err)
		}
		add("last_update_snapshot", raw)
	}
	if patch.LastUpdateAt != nil {
		add("last_update_at", *patch.LastUpdateAt)
	}

	query := `UPDATE providers SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch provider: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch provider rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UpsertRegistrationStatus fully replaces the provider's status row.
func (s *PostgresStore) UpsertRegistrationStatus(ctx context.Context, status models.RegistrationStatus) error {
	changes, err := marshalNullable(status.StatusChanges)
	if err != nil {
		return fmt.Errorf("encode status changes: %w", err)
	}
	errs, err := marshalNullable(status.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	query := `
		INSERT INTO registration_statuses (
			provider_id, remote_provider_id, registered_for_emdr, electronic_only,
			reg_status, stage, submission_status, status,
			call_error_code, call_error_description, transaction_ids,
			status_changes, errors, fetched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (provider_id) DO UPDATE SET
			remote_provider_id = EXCLUDED.remote_provider_id,
			registered_for_emdr = EXCLUDED.registered_for_emdr,
			electronic_only = EXCLUDED.electronic_only,
			reg_status = EXCLUDED.reg_status,
			stage = EXCLUDED.stage,
			submission_status = EXCLUDED.submission_status,
			status = EXCLUDED.status,
			call_error_code = EXCLUDED.call_error_code,
			call_error_description = EXCLUDED.call_error_description,
			transaction_ids = EXCLUDED.transaction_ids,
			status_changes = EXCLUDED.status_changes,
			errors = EXCLUDED.errors,
			fetched_at = EXCLUDED.fetched_at
	`
	_, err = s.q.ExecContext(ctx, query,
		status.ProviderID, status.RemoteProviderID, status.RegisteredForEmdr, status.ElectronicOnly,
		status.RegStatus, status.Stage, status.SubmissionStatus, status.Status,
		status.CallErrorCode, status.CallErrorDescription, status.TransactionIDs,
		changes, errs, status.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert registration status: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRegistrationStatuses(ctx context.Context) (map[uuid.UUID]models.RegistrationStatus, error) {
	query := `
		SELECT provider_id, remote_provider_id, registered_for_emdr, electronic_only,
			reg_status, stage, submission_status, status,
			call_error_code, call_error_description, transaction_ids,
			status_changes, errors, fetched_at
		FROM registration_statuses
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registration statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]models.RegistrationStatus)
	for rows.Next() {
		var st models.RegistrationStatus
		var changes, errs []byte
		if err := rows.Scan(
			&st.ProviderID, &st.RemoteProviderID, &st.RegisteredForEmdr, &st.ElectronicOnly,
			&st.RegStatus, &st.Stage, &st.SubmissionStatus, &st.Status,
			&st.CallErrorCode, &st.CallErrorDescription, &st.TransactionIDs,
			&changes, &errs, &st.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration status: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &st.StatusChanges); err != nil {
				return nil, fmt.Errorf("decode status changes: %w", err)
			}
		}
		if len(errs) > 0 {
			if err := json.Unmarshal(errs, &st.Errors); err != nil {
				return nil, fmt.Errorf("decode errors: %w", err)
			}
		}
		out[st.ProviderID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registration statuses rows: %w", err)
	}
	return out, nil
}

// EnsureSystemCustomer resolves the sentinel customer, creating it exactly
// once. The unique index on lower(name) makes concurrent ensures safe; the
// check-then-create race the naive version has cannot occur.
func (s *PostgresStore) EnsureSystemCustomer(ctx context.Context, now time.Time) (uuid.UUID, error) {
	insert := `
		INSERT INTO customers (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (lower(name)) DO NOTHING
	`
	if _, err := s.q.ExecContext(ctx, insert, uuid.New(), models.SystemCustomerName, now); err != nil {
		return uuid.Nil, fmt.Errorf("ensure system customer: %w", err)
	}

	var id uuid.UUID
	err := s.q.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE lower(name) = lower($1)`,
		models.SystemCustomerName,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find system customer: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `INSERT INTO customers (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.q.ExecContext(ctx, query, c.ID, c.Name, c.CreatedAt, c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// RenameCustomer refuses to touch the sentinel customer even when addressed
// directly by id.
func (s *PostgresStore) RenameCustomer(ctx context.Context, customerID uuid.UUID, name string, now time.Time) error {
	query := `
		UPDATE customers
		SET name = $2, updated_at = $3
		WHERE id = $1
		  AND lower(name) <> lower($4)
	`
	result, err := s.q.ExecContext(ctx, query, customerID, name, now, models.SystemCustomerName)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("rename customer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename customer rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the customer is missing or it is the sentinel.
	var existing string
	err = s.q.QueryRowContext(ctx, `SELECT name FROM customers WHERE id = $1`, customerID).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("rename customer lookup: %w", err)
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) CustomerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return s.namesByID(ctx, `SELECT id, name FROM customers WHERE id = ANY($1)`, ids)
}

func (s *PostgresStore) GroupNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return s.namesByID(ctx, `SELECT id, name FROM provider_groups WHERE id = ANY($1)`, ids)
}

func (s *PostgresStore) namesByID(ctx context.Context, query string, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	rows, err := s.q.QueryContext(ctx, query, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("names by id: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("names rows: %w", err)
	}
	return out, nil
}

type providerRow interface {
	Scan(dest ...any) error
}

func scanProvider(row providerRow) (*models.Provider, error) {
	var p models.Provider
	var npi string
	var customerID, groupID uuid.NullUUID
	var listSnap, updateSnap []byte
	var listAt, updateAt sql.NullTime

	if err := row.Scan(
		&p.ID, &npi, &p.Name, &p.Street, &p.Street2, &p.City, &p.State, &p.Zip,
		&p.RemoteProviderID, &customerID, &groupID,
		&listSnap, &listAt, &updateSnap, &updateAt,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.NPI = models.NPI(npi)
	if customerID.Valid {
		p.CustomerID = &customerID.UUID
	}
	if groupID.Valid {
		p.ProviderGroupID = &groupID.UUID
	}
	if len(listSnap) > 0 {
		var snap models.ListSnapshot
		if err := json.Unmarshal(listSnap, &snap); err != nil {
			return nil, fmt.Errorf("decode list snapshot: %w", err)
		}
		p.LastListSnapshot = &snap
	}
	if listAt.Valid {
		p.LastListAt = &listAt.Time
	}
	if len(updateSnap) > 0 {
		var snap models.UpdateSnapshot
		if err := json.Unmarshal(updateSnap, &snap); err != nil {
			return nil, fmt.Errorf("decode update snapshot: %w", err)
		}
		p.LastUpdateSnap = &snap
	}
	if updateAt.Valid {
		p.LastUpdateAt = &updateAt.Time
	}
	return &p, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *models.ListSnapshot:
		if val == nil {
			return nil, nil
		}
	case *models.UpdateSnapshot:
		if val == nil {
			return nil, nil
		}
	case []models.StatusChange:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
