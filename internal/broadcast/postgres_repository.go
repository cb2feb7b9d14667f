package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL broadcast repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const broadcastColumns = `
	id, reference, content, status,
	area_ids, area_names, aggregate_names, simple_polygons,
	custom_discs, force_override, count_of_phones,
	count_of_phones_likely, created_at, updated_at
`

// Get retrieves a broadcast by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE id = $1`

	b, err := scanBroadcast(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBroadcastNotFound
		}
		return nil, err
	}
	return b, nil
}

// List retrieves broadcasts, newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Broadcast, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + broadcastColumns + ` FROM broadcasts`
	args := []interface{}{}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var broadcasts []*Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, b)
	}
	return broadcasts, rows.Err()
}

// Create creates a new broadcast record.
func (r *PostgresRepository) Create(ctx context.Context, b *Broadcast) error {
	polygons, discs, err := marshalGeometry(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO broadcasts (` + broadcastColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, query,
		b.ID, b.Reference, b.Content, string(b.Status),
		b.AreaIDs, b.AreaNames, b.AggregateNames, polygons,
		discs, b.ForceOverride, b.CountOfPhones, b.CountOfPhonesLikely,
		b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// Update updates an existing broadcast record.
func (r *PostgresRepository) Update(ctx context.Context, b *Broadcast) error {
	polygons, discs, err := marshalGeometry(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE broadcasts SET
			reference = $2, content = $3, status = $4,
			area_ids = $5, area_names = $6, aggregate_names = $7,
			simple_polygons = $8, custom_discs = $9,
			force_override = $10, count_of_phones = $11,
			count_of_phones_likely = $12, updated_at = $13
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		b.ID, b.Reference, b.Content, string(b.Status),
		b.AreaIDs, b.AreaNames, b.AggregateNames, polygons,
		discs, b.ForceOverride, b.CountOfPhones, b.CountOfPhonesLikely,
		b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBroadcastNotFound
	}
	return nil
}

// marshalGeometry encodes the JSON columns of a broadcast row.
func marshalGeometry(b *Broadcast) (polygons, discs []byte, err error) {
	polygons, err = json.Marshal(b.SimplePolygons)
	if err != nil {
		return nil, nil, err
	}
	discs, err = json.Marshal(b.CustomDiscs)
	if err != nil {
		return nil, nil, err
	}
	return polygons, discs, nil
}

// scanBroadcast scans one broadcast row.
func scanBroadcast(row pgx.Row) (*Broadcast, error) {
	var (
		b        Broadcast
		status   string
		polygons []byte
		discs    []byte
	)
	err := row.Scan(
		&b.ID, &b.Reference, &b.Content, &status,
		&b.AreaIDs, &b.AreaNames, &b.AggregateNames, &polygons,
		&discs, &b.ForceOverride, &b.CountOfPhones, &b.CountOfPhonesLikely,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if len(polygons) > 0 {
		if err := json.Unmarshal(polygons, &b.SimplePolygons); err != nil {
			return nil, err
		}
	}
	if len(discs) > 0 {
		if err := json.Unmarshal(discs, &b.CustomDiscs); err != nil {
			return nil, err
		}
	}
	return &b, nil
}
