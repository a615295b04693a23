package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// MetadataDB handles SQLite history operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (and if needed creates) the SQLite history database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS user_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		skill_type TEXT NOT NULL,
		input_content TEXT NOT NULL DEFAULT '',
		output_content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_history_lookup ON user_history(user_id, skill_type, created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// CreateRecord inserts a history row
func (mdb *MetadataDB) CreateRecord(ctx context.Context, userID string, skill types.SkillType, input, output string) error {
	query := `
	INSERT INTO user_history (user_id, skill_type, input_content, output_content, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := mdb.db.ExecContext(ctx, query, userID, string(skill), input, output, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

// UpdateLatest overwrites output_content on the user's newest row for skill
func (mdb *MetadataDB) UpdateLatest(ctx context.Context, userID string, skill types.SkillType, output string) (bool, error) {
	query := `
	UPDATE user_history SET output_content = ?
	WHERE id = (
		SELECT id FROM user_history
		WHERE user_id = ? AND skill_type = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	)
	`

	res, err := mdb.db.ExecContext(ctx, query, output, userID, string(skill))
	if err != nil {
		return false, fmt.Errorf("failed to update history record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListRecords returns the user's history, newest first
func (mdb *MetadataDB) ListRecords(ctx context.Context, userID string, limit int) ([]types.HistoryRecord, error) {
	query := `
	SELECT id, user_id, skill_type, input_content, output_content, created_at
	FROM user_history WHERE user_id = ?
	ORDER BY created_at DESC, id DESC LIMIT ?
	`

	rows, err := mdb.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := make([]types.HistoryRecord, 0)
	for rows.Next() {
		var (
			rec   types.HistoryRecord
			skill string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &skill, &rec.InputContent, &rec.OutputContent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.SkillType = types.SkillType(skill)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Ping checks the database connection
func (mdb *MetadataDB) Ping(ctx context.Context) error {
	return mdb.db.PingContext(ctx)
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
