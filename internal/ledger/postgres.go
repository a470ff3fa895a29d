package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/securecloudx/securecloudx/internal/dbx"
)

// PostgresStore persists the chain in the ledger_records table, one row per
// record. Save upserts every record inside a single transaction so readers
// never observe a half-written chain.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context) ([]*Record, error) {
	query := `SELECT record_index, record_timestamp, data, previous_hash, hash
		 FROM ledger_records
		 ORDER BY record_index ASC
		 `

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var item Record
		var data []byte
		if err := rows.Scan(&item.Index, &item.Timestamp, &data, &item.PreviousHash, &item.Hash); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &item.Data); err != nil {
			return nil, fmt.Errorf("parse record %d data: %w", item.Index, err)
		}
		records = append(records, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) Save(ctx context.Context, records []*Record) error {
	query := `INSERT INTO ledger_records (record_index, record_timestamp, data, previous_hash, hash)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (record_index)
		 DO UPDATE SET
			record_timestamp = EXCLUDED.record_timestamp,
			data = EXCLUDED.data,
			previous_hash = EXCLUDED.previous_hash,
			hash = EXCLUDED.hash
		 `

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, r := range records {
			data, err := json.Marshal(r.Data)
			if err != nil {
				return fmt.Errorf("serialize record %d data: %w", r.Index, err)
			}
			if _, err := tx.ExecContext(ctx, query, r.Index, r.Timestamp, data, r.PreviousHash, r.Hash); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}
