package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg_filegate_bot/internal/domain"
)

// ChannelRegistry persists the ordered list of sponsor channel requirements.
// The insertion order returned by ListAll drives both the order membership
// is verified in and the order join buttons are rendered in.
type ChannelRegistry struct {
	db  dbtx
	now func() time.Time
}

// NewChannelRegistry constructs a ChannelRegistry over the provided handle.
func NewChannelRegistry(db dbtx) *ChannelRegistry {
	return &ChannelRegistry{
		db:  db,
		now: time.Now,
	}
}

// Insert stores a new channel requirement and returns its assigned record id.
// The chat id is kept verbatim; format problems surface later as failed
// subscription checks, which fail closed.
func (r *ChannelRegistry) Insert(ctx context.Context, chatID, joinURL, buttonLabel string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("channel registry is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if strings.TrimSpace(chatID) == "" {
		return 0, errors.New("chat id is required")
	}
	if strings.TrimSpace(joinURL) == "" {
		return 0, errors.New("join url is required")
	}
	if strings.TrimSpace(buttonLabel) == "" {
		return 0, errors.New("button label is required")
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (chat_id, url, btn_text, created_at) VALUES (?, ?, ?, ?)`,
		chatID, joinURL, buttonLabel, toMillis(r.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert channel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("channel insert id: %w", err)
	}

	return id, nil
}

// Remove deletes the channel requirement with the given record id. Removing
// an id that does not exist is a no-op, not an error.
func (r *ChannelRegistry) Remove(ctx context.Context, recordID int64) error {
	if r == nil || r.db == nil {
		return errors.New("channel registry is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, recordID); err != nil {
		return fmt.Errorf("remove channel: %w", err)
	}

	return nil
}

// ListAll returns every channel requirement in insertion order.
func (r *ChannelRegistry) ListAll(ctx context.Context) ([]domain.ChannelRequirement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("channel registry is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, url, btn_text, created_at FROM channels ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.ChannelRequirement
	for rows.Next() {
		var ch domain.ChannelRequirement
		var createdAt int64
		if err := rows.Scan(&ch.RecordID, &ch.ChatID, &ch.JoinURL, &ch.ButtonLabel, &createdAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.CreatedAt = fromMillis(createdAt)
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list channels rows: %w", err)
	}

	return channels, nil
}
