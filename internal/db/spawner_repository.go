package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/spawngrid/internal/model"
)

// ErrSpawnerNotFound is returned when no row matches a spawner ID.
var ErrSpawnerNotFound = errors.New("spawner not found")

// SQLSTATE foreign_key_violation
const codeForeignKeyViolation = "23503"

var spawnerColumns = []string{
	"spawner_id", "x", "y", "z", "radius", "extra_x", "extra_y", "min_spawn", "max_spawn",
	"scale_min", "scale_max", "multi_cell", "template", "variants", "wait_time", "rotation", "inherit_rotation",
}

// SpawnerRepository stores spawner placements in PostgreSQL.
type SpawnerRepository struct {
	pool *pgxpool.Pool
}

// NewSpawnerRepository creates a new spawner repository
func NewSpawnerRepository(pool *pgxpool.Pool) *SpawnerRepository {
	return &SpawnerRepository{pool: pool}
}

// LoadAll loads all placements, skipping spawners recorded as killed.
// Every row is validated like a level file entry; errors wrap model.ErrInvalidPlacement.
func (r *SpawnerRepository) LoadAll(ctx context.Context) ([]model.Placement, error) {
	query := `
		SELECT ` + strings.Join(spawnerColumns, ", ") + `
		FROM spawners s
		WHERE NOT EXISTS (SELECT 1 FROM spawner_kills k WHERE k.spawner_id = s.spawner_id)
		ORDER BY spawner_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading all spawners: %w", err)
	}
	defer rows.Close()

	placements := make([]model.Placement, 0, 256)
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning spawner row: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("loading spawner %d: %w", p.ID, err)
		}
		placements = append(placements, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spawner rows: %w", err)
	}

	return placements, nil
}

// ReplaceAll replaces every stored placement with placements in one transaction.
// Kill records are cleared with the old rows.
func (r *SpawnerRepository) ReplaceAll(ctx context.Context, placements []model.Placement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM spawners`); err != nil {
		return fmt.Errorf("deleting spawners: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"spawners"},
		spawnerColumns,
		pgx.CopyFromSlice(len(placements), func(i int) ([]any, error) {
			p := placements[i]
			variants := p.Variants
			if variants == nil {
				variants = []string{}
			}
			return []any{
				p.ID, p.X, p.Y, p.Z, p.Radius, p.ExtraX, p.ExtraY, p.MinSpawn, p.MaxSpawn,
				p.ScaleMin, p.ScaleMax, p.MultiCell, p.Template, variants, p.WaitTime, p.Rotation, p.InheritRotation,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copying %d spawners: %w", len(placements), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// MarkKilled records spawner id as permanently dead so later loads skip it.
func (r *SpawnerRepository) MarkKilled(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO spawner_kills (spawner_id) VALUES ($1) ON CONFLICT (spawner_id) DO NOTHING`,
		id,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return fmt.Errorf("marking spawner %d killed: %w", id, ErrSpawnerNotFound)
		}
		return fmt.Errorf("marking spawner %d killed: %w", id, err)
	}
	return nil
}

// Count returns number of stored spawners
func (r *SpawnerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM spawners`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting spawners: %w", err)
	}
	return n, nil
}

func scanPlacement(row pgx.Row) (model.Placement, error) {
	var (
		p        model.Placement
		minSpawn int32
		maxSpawn int32
	)
	err := row.Scan(
		&p.ID, &p.X, &p.Y, &p.Z, &p.Radius, &p.ExtraX, &p.ExtraY, &minSpawn, &maxSpawn,
		&p.ScaleMin, &p.ScaleMax, &p.MultiCell, &p.Template, &p.Variants, &p.WaitTime, &p.Rotation, &p.InheritRotation,
	)
	if err != nil {
		return model.Placement{}, err
	}
	p.MinSpawn = int(minSpawn)
	p.MaxSpawn = int(maxSpawn)
	if len(p.Variants) == 0 {
		p.Variants = nil
	}
	return p, nil
}
