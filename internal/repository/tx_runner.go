package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kanso-ai/kanso/internal/service"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
	dims int
}

func NewTxRunner(pool *pgxpool.Pool, dims int) *TxRunner {
	return &TxRunner{pool: pool, dims: dims}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr(err)
	}

	repos := &txRepos{tx: tx, dims: r.dims}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return storageErr(tx.Commit(ctx))
}

type txRepos struct {
	tx   pgx.Tx
	dims int
}

func (r *txRepos) Fragments() service.ClusterFragmentRepository {
	return NewFragmentRepositoryWithTx(r.tx, r.dims)
}

func (r *txRepos) Units() service.ClusterUnitRepository {
	return NewKnowledgeUnitRepositoryWithTx(r.tx, r.dims)
}
