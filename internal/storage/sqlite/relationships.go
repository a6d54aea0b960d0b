package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/recalld/internal/core"
)

var _ core.RelationshipRepository = (*RelationshipRepo)(nil)

type RelationshipRepo struct {
	db *sql.DB
}

func NewRelationshipRepo(db *sql.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

func (r *RelationshipRepo) Put(ctx context.Context, rel core.Relationship) error {
	metaJSON, err := json.Marshal(rel.Metadata)
	if err != nil {
		return core.StorageFailed("put_relationship", fmt.Errorf("marshal metadata: %w", err))
	}

	// Keyed by (from, to, type): relating the same pair again updates strength
	// instead of duplicating the edge, which keeps Relate retry-safe.
	query := `INSERT INTO relationships (id, from_id, to_id, type, strength, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, type) DO UPDATE SET
			strength = excluded.strength,
			metadata = excluded.metadata`

	_, err = r.db.ExecContext(ctx, query,
		rel.ID, rel.FromID, rel.ToID, rel.Type, rel.Strength,
		string(metaJSON), rel.CreatedAt.UTC(),
	)
	if err != nil {
		return core.StorageFailed("put_relationship", err)
	}
	return nil
}

func (r *RelationshipRepo) DeleteByEntry(ctx context.Context, entryID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE from_id = ? OR to_id = ?`, entryID, entryID)
	if err != nil {
		return core.StorageFailed("delete_relationships", err)
	}
	return nil
}

func (r *RelationshipRepo) LoadAll(ctx context.Context) ([]core.Relationship, error) {
	query := `SELECT id, from_id, to_id, type, strength, metadata, created_at
		FROM relationships ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.StorageFailed("load_relationships", err)
	}
	defer rows.Close()

	var rels []core.Relationship
	for rows.Next() {
		var rel core.Relationship
		var metaStr sql.NullString
		if err := rows.Scan(&rel.ID, &rel.FromID, &rel.ToID, &rel.Type,
			&rel.Strength, &metaStr, &rel.CreatedAt); err != nil {
			return nil, core.StorageFailed("load_relationships", err)
		}
		if metaStr.Valid && metaStr.String != "" && metaStr.String != "null" {
			if err := json.Unmarshal([]byte(metaStr.String), &rel.Metadata); err != nil {
				return nil, core.StorageFailed("load_relationships", fmt.Errorf("unmarshal metadata: %w", err))
			}
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailed("load_relationships", err)
	}
	return rels, nil
}

func (r *RelationshipRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&n); err != nil {
		return 0, core.StorageFailed("count_relationships", err)
	}
	return n, nil
}
