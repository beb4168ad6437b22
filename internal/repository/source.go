package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kanso-ai/kanso/internal/domain"
)

type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	var storageKey *string
	if s.StorageKey != "" {
		storageKey = &s.StorageKey
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources (id, kind, name, storage_key, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Kind, s.Name, storageKey, s.CreatedAt,
	)
	return storageErr(err)
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var s domain.Source
	var storageKey pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, kind, name, storage_key, created_at FROM sources WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Kind, &s.Name, &storageKey, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, storageErr(err)
	}
	if storageKey.Valid {
		s.StorageKey = storageKey.String
	}
	return &s, nil
}

func (r *SourceRepository) List(ctx context.Context, kind domain.SourceKind) ([]*domain.Source, error) {
	where := ""
	var args []any
	if kind != "" {
		where = `WHERE kind = $1`
		args = append(args, kind)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, kind, name, storage_key, created_at FROM sources `+where+` ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		var s domain.Source
		var storageKey pgtype.Text
		if err := rows.Scan(&s.ID, &s.Kind, &s.Name, &storageKey, &s.CreatedAt); err != nil {
			return nil, storageErr(err)
		}
		if storageKey.Valid {
			s.StorageKey = storageKey.String
		}
		sources = append(sources, &s)
	}
	return sources, storageErr(rows.Err())
}

func (r *SourceRepository) UpdateStorageKey(ctx context.Context, id, storageKey string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sources SET storage_key = $1 WHERE id = $2`,
		storageKey, id,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}
