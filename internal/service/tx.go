package service

import "context"

// TxRepositories exposes transaction-scoped repositories.
type TxRepositories interface {
	Fragments() ClusterFragmentRepository
	Units() ClusterUnitRepository
}

// TxRunner runs a function within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
