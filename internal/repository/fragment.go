package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/pagination"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/pgvector/pgvector-go"
)

const fragmentColumns = `id, source_id, category_id, title, summary, content, embedding, cluster_id, is_deleted, created_at`

// FragmentRepository persists fragments. Every read funnels through
// selectFragments, which applies the soft-delete guard unless the caller
// explicitly opted out; there is no other read path.
type FragmentRepository struct {
	db   dbtx
	dims int
}

// NewFragmentRepository creates a FragmentRepository over a pool. dims is
// the fixed embedding dimension every inbound vector is validated against.
func NewFragmentRepository(pool *pgxpool.Pool, dims int) *FragmentRepository {
	return &FragmentRepository{db: pool, dims: dims}
}

// NewFragmentRepositoryWithTx creates a FragmentRepository bound to a
// transaction.
func NewFragmentRepositoryWithTx(tx pgx.Tx, dims int) *FragmentRepository {
	return &FragmentRepository{db: tx, dims: dims}
}

// Create inserts a fragment row.
func (r *FragmentRepository) Create(ctx context.Context, f *domain.Fragment) error {
	if err := r.checkDims(f.Embedding); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO fragments (id, source_id, category_id, title, summary, content, embedding, cluster_id, is_deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.SourceID, f.CategoryID, f.Title, f.Summary, f.Content,
		nullableVector(f.Embedding), f.ClusterID, f.IsDeleted, f.CreatedAt,
	)
	return storageErr(err)
}

// GetByID returns the fragment unless it is soft-deleted, in which case it
// behaves identically to "does not exist".
func (r *FragmentRepository) GetByID(ctx context.Context, id string) (*domain.Fragment, error) {
	fragments, err := r.selectFragments(ctx, false,
		`WHERE id = $1`, nil, id)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, domain.ErrFragmentNotFound
	}
	return fragments[0], nil
}

// List returns visible fragments matching the filter, ordered by creation
// time then id.
func (r *FragmentRepository) List(ctx context.Context, filter service.FragmentFilter) ([]*domain.Fragment, error) {
	where, args := buildFragmentWhere(filter)
	return r.selectFragments(ctx, false, where, []string{"created_at ASC", "id ASC"}, args...)
}

// ListIncludingDeleted disables the soft-delete guard. Audit and recovery
// tooling only; the ranker and clustering service never call it.
func (r *FragmentRepository) ListIncludingDeleted(ctx context.Context, filter service.FragmentFilter) ([]*domain.Fragment, error) {
	where, args := buildFragmentWhere(filter)
	return r.selectFragments(ctx, true, where, []string{"created_at ASC", "id ASC"}, args...)
}

// Count returns the number of visible fragments matching the filter. Always
// equals len(List(filter)).
func (r *FragmentRepository) Count(ctx context.Context, filter service.FragmentFilter) (int, error) {
	where, args := buildFragmentWhere(filter)
	query := `SELECT count(*) FROM fragments ` + appendGuard(where, false)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

// ListWithCursor returns one page of visible fragments, newest first,
// using keyset pagination on (created_at, id).
func (r *FragmentRepository) ListWithCursor(ctx context.Context, filter service.FragmentFilter, cursor *pagination.Cursor, limit int) (*service.FragmentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	where, args := buildFragmentWhere(filter)
	if cursor != nil {
		where = andClause(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)+1, len(args)+2))
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	query := `SELECT ` + fragmentColumns + ` FROM fragments ` +
		appendGuard(where, false) +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	items, err := scanFragmentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.FragmentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// SearchByEmbedding ranks visible, embedded fragments by cosine distance to
// the query vector. Ordering is distance ASC with ties broken by creation
// time then id, so output is reproducible. The similarity threshold is
// applied before the limit.
func (r *FragmentRepository) SearchByEmbedding(ctx context.Context, query []float32, opts service.SearchOptions) ([]*service.FragmentMatch, error) {
	if r.dims > 0 && len(query) != r.dims {
		return nil, domain.ErrEmbeddingDimension
	}
	if opts.Limit < 1 {
		return nil, domain.ErrInvalidSearchLimit
	}

	vec := pgvector.NewVector(query)

	sql := `SELECT ` + fragmentColumns + `, embedding <=> $1 AS distance
		 FROM fragments
		 WHERE is_deleted = FALSE AND embedding IS NOT NULL`
	args := []any{vec}

	if opts.ExcludeClustered {
		sql += ` AND cluster_id IS NULL`
	}
	if opts.MinSimilarity != nil {
		// similarity = 1 - distance, so the similarity floor is a
		// distance ceiling.
		sql += fmt.Sprintf(` AND embedding <=> $1 <= $%d`, len(args)+1)
		args = append(args, 1-*opts.MinSimilarity)
	}

	sql += fmt.Sprintf(` ORDER BY distance ASC, created_at ASC, id ASC LIMIT $%d`, len(args)+1)
	args = append(args, opts.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var matches []*service.FragmentMatch
	for rows.Next() {
		f, distance, err := scanFragmentWithDistance(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &service.FragmentMatch{Fragment: f, Distance: distance})
	}
	return matches, storageErr(rows.Err())
}

// Update rewrites the mutable content fields of a visible fragment.
// Cluster assignment and deletion have their own conditional updates.
func (r *FragmentRepository) Update(ctx context.Context, f *domain.Fragment) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE fragments SET category_id = $1, title = $2, summary = $3, content = $4
		 WHERE id = $5 AND is_deleted = FALSE`,
		f.CategoryID, f.Title, f.Summary, f.Content, f.ID,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFragmentNotFound
	}
	return nil
}

// UpdateEmbedding attaches or replaces the embedding of a visible fragment.
func (r *FragmentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if err := r.checkDims(embedding); err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE fragments SET embedding = $1 WHERE id = $2 AND is_deleted = FALSE`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFragmentNotFound
	}
	return nil
}

// SoftDelete marks a fragment deleted. The update is conditional on the
// fragment being unclustered, so a deletion racing a cluster assignment can
// never leave a fragment both deleted and clustered. Rows are never
// physically removed.
func (r *FragmentRepository) SoftDelete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE fragments SET is_deleted = TRUE
		 WHERE id = $1 AND is_deleted = FALSE AND cluster_id IS NULL`,
		id,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}
	return r.classifyWriteConflict(ctx, id, domain.ErrFragmentClustered)
}

// AssignCluster sets cluster_id only if it is currently null: a
// compare-and-set on the clustering state. Of two concurrent callers
// exactly one wins; the other is told the fragment is already clustered.
func (r *FragmentRepository) AssignCluster(ctx context.Context, fragmentID, unitID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE fragments SET cluster_id = $1
		 WHERE id = $2 AND is_deleted = FALSE AND cluster_id IS NULL`,
		unitID, fragmentID,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}
	return r.classifyWriteConflict(ctx, fragmentID, domain.ErrAlreadyClustered)
}

// classifyWriteConflict explains a zero-rows conditional update: the
// fragment is either invisible (absent or soft-deleted) or clustered. The
// classification read is advisory only; the conditional update above is the
// sole authority on state.
func (r *FragmentRepository) classifyWriteConflict(ctx context.Context, id string, clustered error) error {
	var clusterID *string
	err := r.db.QueryRow(ctx,
		`SELECT cluster_id FROM fragments WHERE id = $1 AND is_deleted = FALSE`,
		id,
	).Scan(&clusterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFragmentNotFound
		}
		return storageErr(err)
	}
	if clusterID != nil {
		return clustered
	}
	// Raced with a concurrent deletion between the update and this read.
	return domain.ErrFragmentNotFound
}

// selectFragments is the single read funnel. includeDeleted=false appends
// the soft-delete guard; every public read except the explicit
// *IncludingDeleted variants passes false.
func (r *FragmentRepository) selectFragments(ctx context.Context, includeDeleted bool, where string, orderBy []string, args ...any) ([]*domain.Fragment, error) {
	query := `SELECT ` + fragmentColumns + ` FROM fragments ` + appendGuard(where, includeDeleted)
	for i, o := range orderBy {
		if i == 0 {
			query += ` ORDER BY ` + o
		} else {
			query += `, ` + o
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	return scanFragmentRows(rows)
}

func (r *FragmentRepository) checkDims(embedding []float32) error {
	if embedding != nil && r.dims > 0 && len(embedding) != r.dims {
		return domain.ErrEmbeddingDimension
	}
	return nil
}

// appendGuard attaches the soft-delete guard to a WHERE clause. The guard
// takes no placeholder so caller argument numbering is unaffected.
func appendGuard(where string, includeDeleted bool) string {
	if includeDeleted {
		return where
	}
	return andClause(where, "is_deleted = FALSE")
}

func andClause(where, cond string) string {
	if where == "" {
		return "WHERE " + cond
	}
	return where + " AND " + cond
}

func buildFragmentWhere(filter service.FragmentFilter) (string, []any) {
	where := ""
	var args []any

	if filter.SourceID != "" {
		args = append(args, filter.SourceID)
		where = andClause(where, fmt.Sprintf("source_id = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = andClause(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.ClusterID != "" {
		args = append(args, filter.ClusterID)
		where = andClause(where, fmt.Sprintf("cluster_id = $%d", len(args)))
	}
	if filter.Unclustered {
		where = andClause(where, "cluster_id IS NULL")
	}

	return where, args
}

func scanFragmentRows(rows pgx.Rows) ([]*domain.Fragment, error) {
	var results []*domain.Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, storageErr(rows.Err())
}

func scanFragment(row pgx.Row) (*domain.Fragment, error) {
	var f domain.Fragment
	var embedding *pgvector.Vector
	if err := row.Scan(&f.ID, &f.SourceID, &f.CategoryID, &f.Title, &f.Summary, &f.Content,
		&embedding, &f.ClusterID, &f.IsDeleted, &f.CreatedAt); err != nil {
		return nil, storageErr(err)
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return &f, nil
}

func scanFragmentWithDistance(row pgx.Row) (*domain.Fragment, float32, error) {
	var f domain.Fragment
	var embedding *pgvector.Vector
	var distance float64
	if err := row.Scan(&f.ID, &f.SourceID, &f.CategoryID, &f.Title, &f.Summary, &f.Content,
		&embedding, &f.ClusterID, &f.IsDeleted, &f.CreatedAt, &distance); err != nil {
		return nil, 0, storageErr(err)
	}
	if embedding != nil {
		f.Embedding = embedding.Slice()
	}
	return &f, float32(distance), nil
}

func nullableVector(embedding []float32) *pgvector.Vector {
	if embedding == nil {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}
