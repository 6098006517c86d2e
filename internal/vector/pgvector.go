package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/wnsgho/legal-full/internal/core/model"
)

// PGIndex stores embeddings in Postgres with the pgvector extension. Cosine
// distance ordering with an id tiebreak keeps top-k deterministic for a
// fixed table state.
type PGIndex struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPGIndex(ctx context.Context, dsn string, dimension int) (*PGIndex, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pgvector store: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS vector_entries (
			id        TEXT PRIMARY KEY,
			kind      TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS vector_entries_kind_idx ON vector_entries (kind);
	`, dimension)
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("prepare vector schema: %w", err)
	}

	return &PGIndex{pool: pool, dimension: dimension}, nil
}

func (p *PGIndex) Close() {
	p.pool.Close()
}

func (p *PGIndex) Dimension() int {
	return p.dimension
}

func (p *PGIndex) Upsert(ctx context.Context, id string, kind Kind, vec []float32) error {
	if len(vec) != p.dimension {
		return model.Faultf(model.ErrBadInput, "embedding dimension %d, index expects %d", len(vec), p.dimension)
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO vector_entries (id, kind, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET kind = $2, embedding = $3
	`, id, string(kind), pgvector.NewVector(vec))
	if err != nil {
		return model.Faultf(model.ErrStoreUnavailable, "upsert %s: %v", id, err)
	}
	return nil
}

func (p *PGIndex) Get(ctx context.Context, id string) ([]float32, error) {
	var v pgvector.Vector
	err := p.pool.QueryRow(ctx, `SELECT embedding FROM vector_entries WHERE id = $1`, id).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.Faultf(model.ErrNotFound, "vector %s", id)
	}
	if err != nil {
		return nil, model.Faultf(model.ErrStoreUnavailable, "get %s: %v", id, err)
	}
	return v.Slice(), nil
}

func (p *PGIndex) Search(ctx context.Context, vec []float32, k int, kind Kind) ([]Hit, error) {
	if len(vec) != p.dimension {
		return nil, model.Faultf(model.ErrBadInput, "query dimension %d, index expects %d", len(vec), p.dimension)
	}

	query := `
		SELECT id, 1 - (embedding <=> $1) AS score
		FROM vector_entries
		WHERE ($2 = '' OR kind = $2)
		ORDER BY score DESC, id ASC
		LIMIT $3
	`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vec), string(kind), k)
	if err != nil {
		return nil, model.Faultf(model.ErrStoreUnavailable, "search: %v", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

var _ Index = (*PGIndex)(nil)
