package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// FrameDataRepository stores the exact-match move statistics table. Lookups
// use substring matching on both fighter and move name because players type
// colloquial names ("fair", "up b") that only partially match sheet rows.
type FrameDataRepository struct {
	db *sql.DB
}

func NewFrameDataRepository(db *sql.DB) *FrameDataRepository {
	return &FrameDataRepository{db: db}
}

func (r *FrameDataRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082502)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS characters (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS moves (
	id BIGSERIAL PRIMARY KEY,
	character_id BIGINT NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	startup_frames INT,
	active_frames INT,
	total_frames INT,
	landing_lag INT,
	shield_stun INT,
	shield_advantage INT,
	damage_pct DOUBLE PRECISION,
	damage_1v1_pct DOUBLE PRECISION,
	note TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_moves_character_id ON moves(character_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FrameDataRepository) FindMoves(ctx context.Context, character, move string) ([]domain.MoveRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.name, m.name, m.category,
	m.startup_frames, m.active_frames, m.total_frames,
	m.landing_lag, m.shield_stun, m.shield_advantage,
	m.damage_pct, m.damage_1v1_pct, m.note
FROM moves m
JOIN characters c ON m.character_id = c.id
WHERE c.name ILIKE '%' || $1 || '%' AND m.name ILIKE '%' || $2 || '%'
ORDER BY c.name, m.name
`, character, move)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	var records []domain.MoveRecord
	for rows.Next() {
		var rec domain.MoveRecord
		var startup, active, total, landingLag, shieldStun, shieldAdvantage sql.NullInt64
		var damage, damage1v1 sql.NullFloat64

		err := rows.Scan(
			&rec.Character, &rec.Move, &rec.Category,
			&startup, &active, &total,
			&landingLag, &shieldStun, &shieldAdvantage,
			&damage, &damage1v1, &rec.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}

		rec.Startup = nullableInt(startup)
		rec.Active = nullableInt(active)
		rec.Total = nullableInt(total)
		rec.LandingLag = nullableInt(landingLag)
		rec.ShieldStun = nullableInt(shieldStun)
		rec.ShieldAdvantage = nullableInt(shieldAdvantage)
		rec.Damage = nullableFloat(damage)
		rec.Damage1v1 = nullableFloat(damage1v1)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return records, nil
}

func (r *FrameDataRepository) ReplaceCharacterMoves(ctx context.Context, character string, moves []domain.MoveRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var characterID int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO characters (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`, character).Scan(&characterID)
	if err != nil {
		return 0, fmt.Errorf("upsert character: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM moves WHERE character_id = $1`, characterID); err != nil {
		return 0, fmt.Errorf("delete stale moves: %w", err)
	}

	for _, m := range moves {
		_, err := tx.ExecContext(ctx, `
INSERT INTO moves (
	character_id, name, category,
	startup_frames, active_frames, total_frames,
	landing_lag, shield_stun, shield_advantage,
	damage_pct, damage_1v1_pct, note
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
			characterID, m.Move, m.Category,
			m.Startup, m.Active, m.Total,
			m.LandingLag, m.ShieldStun, m.ShieldAdvantage,
			m.Damage, m.Damage1v1, m.Note,
		)
		if err != nil {
			return 0, fmt.Errorf("insert move %q: %w", m.Move, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace tx: %w", err)
	}
	return len(moves), nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
