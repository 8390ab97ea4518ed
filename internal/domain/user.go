// Package domain defines the shared domain types of the bot.
package domain

import "time"

// User represents a Telegram user registered with the bot.
type User struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
