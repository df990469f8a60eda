package requests

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxDB is the query surface the repository needs from a pgxpool.Pool (or a
// pgxmock pool in tests).
type PgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores service requests in the relational database.
type PostgresRepository struct {
	db PgxDB
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(db PgxDB) *PostgresRepository {
	if db == nil {
		panic("requests: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const requestColumns = `id::text, phone, category, specific_service, timeline, contact_preference,
	COALESCE(ip_address::text, ''), COALESCE(user_agent, ''), lead_score, tier, status,
	assigned_agent_id, COALESCE(notes, ''), created_at, updated_at, completed_at`

// Create inserts a new row. The caller supplies the full attribute set.
func (r *PostgresRepository) Create(ctx context.Context, req *ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	query := `
		INSERT INTO service_requests
			(id, phone, category, specific_service, timeline, contact_preference,
			 ip_address, user_agent, lead_score, tier, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::inet, NULLIF($8, ''), $9, $10, $11, NULLIF($12, ''), $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.Phone,
		string(req.Category),
		req.SpecificService,
		string(req.Timeline),
		req.ContactPreference,
		req.IPAddress,
		req.UserAgent,
		req.LeadScore,
		string(req.Tier),
		string(req.Status),
		req.Notes,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("requests: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single request.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*ServiceRequest, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("requests: select failed: %w", err)
	}
	return req, nil
}

// List returns matching requests most-recent-first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Status != nil {
		query += " AND status = $" + strconv.Itoa(argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}
	if filter.Category != nil {
		query += " AND category = $" + strconv.Itoa(argNum)
		args = append(args, string(*filter.Category))
		argNum++
	}
	if filter.Priority != nil {
		query += " AND tier = $" + strconv.Itoa(argNum)
		args = append(args, string(*filter.Priority))
		argNum++
	}

	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(argNum)
	args = append(args, filter.EffectiveLimit())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("requests: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*ServiceRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("requests: scan failed: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requests: list rows: %w", err)
	}
	return out, nil
}

// UpdateStatus performs the transition as one conditional update, so a
// concurrent conflicting transition loses instead of clobbering.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, target Status, allowedFrom []Status, now time.Time) (*ServiceRequest, error) {
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}
	query := `
		UPDATE service_requests
		SET status = $2,
		    updated_at = $3,
		    completed_at = CASE WHEN $2 = 'completed' AND completed_at IS NULL THEN $3 ELSE completed_at END
		WHERE id = $1 AND status = ANY($4)
		RETURNING ` + requestColumns
	row := r.db.QueryRow(ctx, query, id, string(target), now, from)
	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("requests: transition failed: %w", err)
	}

	// No row moved: either the id is unknown or the current state forbids it.
	current, lookupErr := r.GetByID(ctx, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, &InvalidTransitionError{From: current.Status, To: target}
}

// Assign sets the agent reference on an open request.
func (r *PostgresRepository) Assign(ctx context.Context, id string, agentID string, now time.Time) (*ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET assigned_agent_id = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
		RETURNING ` + requestColumns
	row := r.db.QueryRow(ctx, query, id, agentID, now)
	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("requests: assign failed: %w", err)
	}
	current, lookupErr := r.GetByID(ctx, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, &InvalidTransitionError{From: current.Status, To: current.Status}
}

// SetNotes replaces the notes text. Allowed in any state.
func (r *PostgresRepository) SetNotes(ctx context.Context, id string, notes string, now time.Time) (*ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET notes = NULLIF($2, ''), updated_at = $3
		WHERE id = $1
		RETURNING ` + requestColumns
	row := r.db.QueryRow(ctx, query, id, notes, now)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("requests: annotate failed: %w", err)
	}
	return req, nil
}

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var req ServiceRequest
	var category, timeline, tier, status string
	var assignedAgent *uuid.UUID
	if err := row.Scan(
		&req.ID,
		&req.Phone,
		&category,
		&req.SpecificService,
		&timeline,
		&req.ContactPreference,
		&req.IPAddress,
		&req.UserAgent,
		&req.LeadScore,
		&tier,
		&status,
		&assignedAgent,
		&req.Notes,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CompletedAt,
	); err != nil {
		return nil, err
	}
	req.Category = Category(category)
	req.Timeline = Timeline(timeline)
	req.Tier = Tier(tier)
	req.Status = Status(status)
	if assignedAgent != nil {
		id := assignedAgent.String()
		req.AssignedAgentID = &id
	}
	return &req, nil
}
