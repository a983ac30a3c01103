package repository

import (
	"context"
	"database/sql"
	"errors"

	"teamvault/internal/vault/model"
	"teamvault/pkg/logger"
)

// documentRowID is the primary key of the only row in vault_document.
const documentRowID = 1

const createTableSQL = `CREATE TABLE IF NOT EXISTS vault_document (
	id SMALLINT PRIMARY KEY,
	content TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresRepository stores the document text in a single-row table.
type PostgresRepository struct {
	DB *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

// Migrate creates the vault_document table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, createTableSQL)
	if err != nil {
		logger.Sugar.Errorf("Failed to create vault_document table: %v", err)
	}
	return err
}

func (r *PostgresRepository) Load(ctx context.Context) ([]byte, error) {
	var content string
	err := r.DB.QueryRowContext(ctx, "SELECT content FROM vault_document WHERE id = $1", documentRowID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load document: %v", err)
		return nil, err
	}
	return []byte(content), nil
}

func (r *PostgresRepository) Save(ctx context.Context, data []byte) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO vault_document (id, content, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()`, documentRowID, string(data))
	if err != nil {
		logger.Sugar.Errorf("Failed to save document: %v", err)
	}
	return err
}
