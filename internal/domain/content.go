package domain

import "time"

// ContentItem is a deliverable piece of content. DeliveryToken is an opaque
// Telegram file handle; the bot never interprets it.
type ContentItem struct {
	ItemID        int64     `json:"item_id"`
	DeliveryToken string    `json:"delivery_token"`
	Caption       string    `json:"caption"`
	CreatedAt     time.Time `json:"created_at"`
}
