package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/dbx"
	"github.com/securecloudx/securecloudx/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (id, owner_id, filename, storage_key, iv, ledger_index)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.Filename, file.StorageKey, file.IV, file.LedgerIndex).
		Scan(&file.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query :=
		`SELECT id, owner_id, filename, storage_key, iv, ledger_index, created_at FROM files
		 WHERE id = $1
		 `

	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&file.ID, &file.OwnerID, &file.Filename, &file.StorageKey, &file.IV, &file.LedgerIndex, &file.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error) {
	query :=
		`SELECT id, owner_id, filename, storage_key, iv, ledger_index, created_at FROM files
		 WHERE owner_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		file := &models.File{}
		if err := rows.Scan(&file.ID, &file.OwnerID, &file.Filename, &file.StorageKey, &file.IV, &file.LedgerIndex, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
