package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/pgvector/pgvector-go"
)

const unitColumns = `id, category_id, title, summary, content, confidence, embedding, is_deleted, created_at, updated_at`

// KnowledgeUnitRepository persists knowledge units. Reads funnel through
// selectUnits, which applies the soft-delete guard.
type KnowledgeUnitRepository struct {
	db   dbtx
	dims int
}

// NewKnowledgeUnitRepository creates a KnowledgeUnitRepository over a pool.
func NewKnowledgeUnitRepository(pool *pgxpool.Pool, dims int) *KnowledgeUnitRepository {
	return &KnowledgeUnitRepository{db: pool, dims: dims}
}

// NewKnowledgeUnitRepositoryWithTx creates a KnowledgeUnitRepository bound
// to a transaction.
func NewKnowledgeUnitRepositoryWithTx(tx pgx.Tx, dims int) *KnowledgeUnitRepository {
	return &KnowledgeUnitRepository{db: tx, dims: dims}
}

// Create inserts a knowledge unit row.
func (r *KnowledgeUnitRepository) Create(ctx context.Context, u *domain.KnowledgeUnit) error {
	if err := r.checkDims(u.Embedding); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_units (id, category_id, title, summary, content, confidence, embedding, is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.CategoryID, u.Title, u.Summary, u.Content, u.Confidence,
		nullableVector(u.Embedding), u.IsDeleted, u.CreatedAt, u.UpdatedAt,
	)
	return storageErr(err)
}

// GetByID returns the knowledge unit unless it is soft-deleted.
func (r *KnowledgeUnitRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeUnit, error) {
	units, err := r.selectUnits(ctx, false, `WHERE id = $1`, nil, id)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, domain.ErrKnowledgeUnitNotFound
	}
	return units[0], nil
}

// List returns visible knowledge units, optionally narrowed to a category,
// ordered by creation time then id.
func (r *KnowledgeUnitRepository) List(ctx context.Context, categoryID string) ([]*domain.KnowledgeUnit, error) {
	where, args := buildUnitWhere(categoryID)
	return r.selectUnits(ctx, false, where, []string{"created_at ASC", "id ASC"}, args...)
}

// ListIncludingDeleted disables the soft-delete guard. Audit tooling only.
func (r *KnowledgeUnitRepository) ListIncludingDeleted(ctx context.Context, categoryID string) ([]*domain.KnowledgeUnit, error) {
	where, args := buildUnitWhere(categoryID)
	return r.selectUnits(ctx, true, where, []string{"created_at ASC", "id ASC"}, args...)
}

// Count returns the number of visible knowledge units in a category.
func (r *KnowledgeUnitRepository) Count(ctx context.Context, categoryID string) (int, error) {
	where, args := buildUnitWhere(categoryID)
	query := `SELECT count(*) FROM knowledge_units ` + appendGuard(where, false)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

// SearchByEmbedding ranks visible, embedded knowledge units by cosine
// distance to the query vector, with the same deterministic ordering and
// threshold semantics as fragment search.
func (r *KnowledgeUnitRepository) SearchByEmbedding(ctx context.Context, query []float32, opts service.SearchOptions) ([]*service.UnitMatch, error) {
	if r.dims > 0 && len(query) != r.dims {
		return nil, domain.ErrEmbeddingDimension
	}
	if opts.Limit < 1 {
		return nil, domain.ErrInvalidSearchLimit
	}

	vec := pgvector.NewVector(query)

	sql := `SELECT ` + unitColumns + `, embedding <=> $1 AS distance
		 FROM knowledge_units
		 WHERE is_deleted = FALSE AND embedding IS NOT NULL`
	args := []any{vec}

	if opts.MinSimilarity != nil {
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

	var matches []*service.UnitMatch
	for rows.Next() {
		var u domain.KnowledgeUnit
		var embedding *pgvector.Vector
		var distance float64
		if err := rows.Scan(&u.ID, &u.CategoryID, &u.Title, &u.Summary, &u.Content, &u.Confidence,
			&embedding, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt, &distance); err != nil {
			return nil, storageErr(err)
		}
		if embedding != nil {
			u.Embedding = embedding.Slice()
		}
		matches = append(matches, &service.UnitMatch{Unit: &u, Distance: float32(distance)})
	}
	return matches, storageErr(rows.Err())
}

// Update rewrites the mutable fields of a visible knowledge unit.
func (r *KnowledgeUnitRepository) Update(ctx context.Context, u *domain.KnowledgeUnit) error {
	u.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_units SET category_id = $1, title = $2, summary = $3, content = $4, confidence = $5, updated_at = $6
		 WHERE id = $7 AND is_deleted = FALSE`,
		u.CategoryID, u.Title, u.Summary, u.Content, u.Confidence, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeUnitNotFound
	}
	return nil
}

// UpdateEmbedding attaches or replaces the unit's independently computed
// embedding.
func (r *KnowledgeUnitRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if err := r.checkDims(embedding); err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_units SET embedding = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeUnitNotFound
	}
	return nil
}

// SoftDelete marks a knowledge unit deleted. Member fragments keep their
// cluster_id; visibility of the membership is enforced at read time.
func (r *KnowledgeUnitRepository) SoftDelete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_units SET is_deleted = TRUE, updated_at = $1 WHERE id = $2 AND is_deleted = FALSE`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return storageErr(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeUnitNotFound
	}
	return nil
}

// selectUnits is the single read funnel for knowledge units, mirroring the
// fragment repository. includeDeleted=false appends the soft-delete guard.
func (r *KnowledgeUnitRepository) selectUnits(ctx context.Context, includeDeleted bool, where string, orderBy []string, args ...any) ([]*domain.KnowledgeUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM knowledge_units ` + appendGuard(where, includeDeleted)
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

	var results []*domain.KnowledgeUnit
	for rows.Next() {
		var u domain.KnowledgeUnit
		var embedding *pgvector.Vector
		if err := rows.Scan(&u.ID, &u.CategoryID, &u.Title, &u.Summary, &u.Content, &u.Confidence,
			&embedding, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, storageErr(err)
		}
		if embedding != nil {
			u.Embedding = embedding.Slice()
		}
		results = append(results, &u)
	}
	return results, storageErr(rows.Err())
}

func (r *KnowledgeUnitRepository) checkDims(embedding []float32) error {
	if embedding != nil && r.dims > 0 && len(embedding) != r.dims {
		return domain.ErrEmbeddingDimension
	}
	return nil
}

func buildUnitWhere(categoryID string) (string, []any) {
	if categoryID == "" {
		return "", nil
	}
	return "WHERE category_id = $1", []any{categoryID}
}
