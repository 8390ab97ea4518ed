package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg_filegate_bot/internal/domain"
)

// ContentRegistry persists deliverable content items. Items are append-only:
// there is no update or delete path.
type ContentRegistry struct {
	db  dbtx
	now func() time.Time
}

// NewContentRegistry constructs a ContentRegistry over the provided handle.
func NewContentRegistry(db dbtx) *ContentRegistry {
	return &ContentRegistry{
		db:  db,
		now: time.Now,
	}
}

// Insert stores a new content item and returns its assigned id.
func (r *ContentRegistry) Insert(ctx context.Context, deliveryToken, caption string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("content registry is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if strings.TrimSpace(deliveryToken) == "" {
		return 0, errors.New("delivery token is required")
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO content (file_id, caption, created_at) VALUES (?, ?, ?)`,
		deliveryToken, caption, toMillis(r.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert content: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("content insert id: %w", err)
	}

	return id, nil
}

// Get fetches one content item by id, returning ErrNotFound when absent.
func (r *ContentRegistry) Get(ctx context.Context, itemID int64) (domain.ContentItem, error) {
	if r == nil || r.db == nil {
		return domain.ContentItem{}, errors.New("content registry is not initialized")
	}
	if ctx == nil {
		return domain.ContentItem{}, errors.New("context is required")
	}

	var item domain.ContentItem
	var createdAt int64

	row := r.db.QueryRowContext(ctx,
		`SELECT id, file_id, caption, created_at FROM content WHERE id = ?`,
		itemID,
	)
	if err := row.Scan(&item.ItemID, &item.DeliveryToken, &item.Caption, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ContentItem{}, ErrNotFound
		}
		return domain.ContentItem{}, fmt.Errorf("get content: %w", err)
	}

	item.CreatedAt = fromMillis(createdAt)
	return item, nil
}

// ListAll returns every content item in insertion order.
func (r *ContentRegistry) ListAll(ctx context.Context) ([]domain.ContentItem, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("content registry is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, file_id, caption, created_at FROM content ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var items []domain.ContentItem
	for rows.Next() {
		var item domain.ContentItem
		var createdAt int64
		if err := rows.Scan(&item.ItemID, &item.DeliveryToken, &item.Caption, &createdAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		item.CreatedAt = fromMillis(createdAt)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list content rows: %w", err)
	}

	return items, nil
}
