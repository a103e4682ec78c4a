// Package remote provides the cloud store client: typed CRUD against the
// hosted Postgres backend plus a realtime change-event subscription.
//
// All queries run under the caller's signed-in identity. Row-level access
// is scoped per user_id by the backend; the client issues unfiltered
// queries and trusts the server to return only the owner's rows.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/driftnotes/drift/internal/entity"
)

// Client wraps a Postgres connection pool with the note/folder/settings
// operations the sync orchestrator needs.
type Client struct {
	pool        *pgxpool.Pool
	realtimeURL string
	logger      *log.Logger
}

// Dial connects to the cloud store.
//
// realtimeURL is the websocket endpoint of the change feed; it may be empty
// when the caller never subscribes. If logger is nil, a default logger
// writing to stderr is used.
//
// The caller MUST call Close() when done.
func Dial(ctx context.Context, dsn, realtimeURL string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping cloud store: %w", err)
	}

	return &Client{pool: pool, realtimeURL: realtimeURL, logger: logger}, nil
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.pool.Close()
}

// InitSchema creates the cloud tables if they don't exist. Idempotent;
// safe to call on every start. Row-level security policies are provisioned
// by the backend, not here.
func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL DEFAULT '',
		folder_id  TEXT,
		type       TEXT NOT NULL DEFAULT 'text',
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS folders (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		parent_id  TEXT,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id  TEXT PRIMARY KEY,
		settings JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
	CREATE INDEX IF NOT EXISTS idx_folders_user ON folders(user_id);
	`

	if _, err := c.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize cloud schema: %w", err)
	}
	return nil
}

// GetNotes fetches the full authoritative note collection visible to the
// current identity.
func (c *Client) GetNotes(ctx context.Context) ([]entity.Note, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, user_id, title, content, folder_id, type, updated_at
		FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []entity.Note
	for rows.Next() {
		var row noteRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Title, &row.Content,
			&row.FolderID, &row.Type, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, noteFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// GetFolders fetches the full authoritative folder collection visible to
// the current identity.
func (c *Client) GetFolders(ctx context.Context) ([]entity.Folder, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT id, user_id, name, parent_id, created_at
		FROM folders`)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []entity.Folder
	for rows.Next() {
		var row folderRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Name,
			&row.ParentID, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folderFromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating folders: %w", err)
	}
	return folders, nil
}

// UpsertNote inserts or updates a note by id, stamping the owner.
func (c *Client) UpsertNote(ctx context.Context, n entity.Note, ownerID string) error {
	row := noteToRow(n, ownerID)
	_, err := c.pool.Exec(ctx, `
		INSERT INTO notes (id, user_id, title, content, folder_id, type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			folder_id  = excluded.folder_id,
			type       = excluded.type,
			updated_at = excluded.updated_at`,
		row.ID, row.UserID, row.Title, row.Content, row.FolderID, row.Type, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", n.ID, err)
	}
	return nil
}

// UpsertFolder inserts or updates a folder by id, stamping the owner.
func (c *Client) UpsertFolder(ctx context.Context, f entity.Folder, ownerID string) error {
	row := folderToRow(f, ownerID)
	_, err := c.pool.Exec(ctx, `
		INSERT INTO folders (id, user_id, name, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name      = excluded.name,
			parent_id = excluded.parent_id`,
		row.ID, row.UserID, row.Name, row.ParentID, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert folder %s: %w", f.ID, err)
	}
	return nil
}

// DeleteNote removes a note by id. Deleting an absent id is a no-op.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

// DeleteFolder removes a folder by id. It does not cascade to child folders
// or orphan child notes; re-parenting is the orchestrator's responsibility
// before it issues the delete.
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete folder %s: %w", id, err)
	}
	return nil
}

// GetUserSettings fetches the one settings document for the identity, or
// nil if it was never saved.
func (c *Client) GetUserSettings(ctx context.Context, userID string) (*entity.Settings, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx,
		`SELECT settings FROM user_settings WHERE user_id = $1`, userID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	settings := entity.UpgradeSettings(raw)
	return &settings, nil
}

// SaveUserSettings pushes the settings document. Settings are not part of
// the realtime protocol; this is an explicit push only.
func (c *Client) SaveUserSettings(ctx context.Context, settings entity.Settings, userID string) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, settings)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET settings = excluded.settings`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
