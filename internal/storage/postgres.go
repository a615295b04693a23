package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// PostgresHistory is the HistoryStore used in production deployments
type PostgresHistory struct {
	pool *pgxpool.Pool
}

// NewPostgresHistory connects to Postgres and ensures the history table exists
func NewPostgresHistory(ctx context.Context, databaseURL string) (*PostgresHistory, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_history (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			skill_type TEXT NOT NULL,
			input_content TEXT NOT NULL DEFAULT '',
			output_content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_user_history_lookup ON user_history (user_id, skill_type, created_at DESC);`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}

	return &PostgresHistory{pool: pool}, nil
}

func (p *PostgresHistory) CreateRecord(ctx context.Context, userID string, skill types.SkillType, input, output string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO user_history (user_id, skill_type, input_content, output_content)
		VALUES ($1, $2, $3, $4)`,
		userID, string(skill), input, output,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (p *PostgresHistory) UpdateLatest(ctx context.Context, userID string, skill types.SkillType, output string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE user_history SET output_content = $1
		WHERE id = (
			SELECT id FROM user_history
			WHERE user_id = $2 AND skill_type = $3
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)`,
		output, userID, string(skill),
	)
	if err != nil {
		return false, fmt.Errorf("update history: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresHistory) ListRecords(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, skill_type, input_content, output_content, created_at
		FROM user_history WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	records := make([]types.HistoryRecord, 0)
	for rows.Next() {
		var (
			rec   types.HistoryRecord
			skill string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &skill, &rec.InputContent, &rec.OutputContent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.SkillType = types.SkillType(skill)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgresHistory) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresHistory) Close() error {
	p.pool.Close()
	return nil
}
