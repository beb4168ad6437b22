package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kanso-ai/kanso/internal/domain"
)

// dbtx abstracts over a pgx pool and a transaction so repositories can run
// in either.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// storageErr wraps an infrastructure failure in the storage sentinel so
// callers can distinguish "no result" from "store unavailable". Domain
// errors pass through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domain.DomainError); ok {
		return err
	}
	return domain.NewStorageError(err)
}
