package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/recalld/internal/core"
)

var _ core.EntryRepository = (*EntryRepo)(nil)

type EntryRepo struct {
	db *sql.DB
}

func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

const entryColumns = `id, conversation_id, session_id, role, content, context_type,
	importance_score, tags, metadata, created_at, expires_at`

// notExpired lazily hides entries past their TTL even before the sweep runs.
const notExpired = `(expires_at IS NULL OR expires_at > ?)`

func (r *EntryRepo) Put(ctx context.Context, entry core.MemoryEntry) error {
	tagsJSON, err := json.Marshal(entry.Tags)
	if err != nil {
		return core.StorageFailed("put", fmt.Errorf("marshal tags: %w", err))
	}

	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return core.StorageFailed("put", fmt.Errorf("marshal metadata: %w", err))
	}

	// Upsert keyed by id so re-putting the same entry is idempotent
	query := `INSERT INTO entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			importance_score = excluded.importance_score,
			tags = excluded.tags,
			metadata = excluded.metadata,
			expires_at = excluded.expires_at`

	var expiresAt any
	if entry.ExpiresAt != nil {
		expiresAt = entry.ExpiresAt.UTC()
	}

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.ConversationID, entry.SessionID, entry.Role,
		entry.Content, string(entry.ContextType), entry.ImportanceScore,
		string(tagsJSON), string(metaJSON), entry.CreatedAt.UTC(), expiresAt,
	)
	if err != nil {
		return core.StorageFailed("put", err)
	}
	return nil
}

func (r *EntryRepo) Get(ctx context.Context, id string, now time.Time) (*core.MemoryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = ? AND ` + notExpired

	row := r.db.QueryRowContext(ctx, query, id, now.UTC())
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, core.StorageFailed("get", err)
	}
	return entry, nil
}

func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return core.StorageFailed("delete", err)
	}
	return nil
}

func (r *EntryRepo) ListByConversation(ctx context.Context, conversationID string, contextType core.ContextType, now time.Time) ([]core.MemoryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE conversation_id = ? AND ` + notExpired
	args := []any{conversationID, now.UTC()}

	if contextType != "" {
		query += ` AND context_type = ?`
		args = append(args, string(contextType))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return r.queryEntries(ctx, "list_by_conversation", query, args...)
}

func (r *EntryRepo) ListByContextType(ctx context.Context, contextType core.ContextType, limit int, now time.Time) ([]core.MemoryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE context_type = ? AND ` + notExpired + `
		ORDER BY importance_score DESC, created_at DESC, id ASC
		LIMIT ?`

	return r.queryEntries(ctx, "list_by_context_type", query, string(contextType), now.UTC(), limit)
}

func (r *EntryRepo) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return 0, core.StorageFailed("delete_by_conversation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.StorageFailed("delete_by_conversation", err)
	}
	return n, nil
}

func (r *EntryRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at ASC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, core.StorageFailed("list_expired", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.StorageFailed("list_expired", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailed("list_expired", err)
	}
	return ids, nil
}

func (r *EntryRepo) LoadAll(ctx context.Context, now time.Time) ([]core.MemoryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + notExpired + ` ORDER BY created_at ASC, id ASC`
	return r.queryEntries(ctx, "load_all", query, now.UTC())
}

func (r *EntryRepo) Count(ctx context.Context) (int64, map[core.ContextType]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT context_type, COUNT(*) FROM entries GROUP BY context_type`)
	if err != nil {
		return 0, nil, core.StorageFailed("count", err)
	}
	defer rows.Close()

	var total int64
	byType := make(map[core.ContextType]int64)
	for rows.Next() {
		var ct string
		var n int64
		if err := rows.Scan(&ct, &n); err != nil {
			return 0, nil, core.StorageFailed("count", err)
		}
		byType[core.ContextType(ct)] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return 0, nil, core.StorageFailed("count", err)
	}
	return total, byType, nil
}

func (r *EntryRepo) queryEntries(ctx context.Context, op, query string, args ...any) ([]core.MemoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.StorageFailed(op, err)
	}
	defer rows.Close()

	var entries []core.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, core.StorageFailed(op, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailed(op, err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*core.MemoryEntry, error) {
	var e core.MemoryEntry
	var sessionID, role, tagsStr, metaStr sql.NullString
	var contextType string
	var expiresAt sql.NullTime

	err := row.Scan(&e.ID, &e.ConversationID, &sessionID, &role, &e.Content,
		&contextType, &e.ImportanceScore, &tagsStr, &metaStr, &e.CreatedAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	e.SessionID = sessionID.String
	e.Role = role.String
	e.ContextType = core.ContextType(contextType)

	if tagsStr.Valid && tagsStr.String != "" && tagsStr.String != "null" {
		if err := json.Unmarshal([]byte(tagsStr.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if metaStr.Valid && metaStr.String != "" && metaStr.String != "null" {
		if err := json.Unmarshal([]byte(metaStr.String), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}

	return &e, nil
}
