package domain

import "time"

// ChannelRequirement is a sponsor channel a user must be subscribed to
// before any content is released. The chat id is stored verbatim as text;
// malformed ids surface later as failed (and therefore negative)
// subscription checks.
type ChannelRequirement struct {
	RecordID    int64     `json:"record_id"`
	ChatID      string    `json:"chat_id"`
	JoinURL     string    `json:"join_url"`
	ButtonLabel string    `json:"button_label"`
	CreatedAt   time.Time `json:"created_at"`
}
