package store

import (
	"context"
	"errors"
	"fmt"
)

// StatsProvider exposes collection counts for the admin /stats command
// without leaking SQL to callers.
type StatsProvider struct {
	db dbtx
}

// NewStatsProvider constructs a StatsProvider over the provided handle.
func NewStatsProvider(db dbtx) *StatsProvider {
	return &StatsProvider{db: db}
}

// CountUsers returns the number of registered users.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM users`, "users")
}

// CountContent returns the number of stored content items.
func (p *StatsProvider) CountContent(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM content`, "content")
}

// CountChannels returns the number of registered channel requirements.
func (p *StatsProvider) CountChannels(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM channels`, "channels")
}

func (p *StatsProvider) count(ctx context.Context, query, label string) (int64, error) {
	if p == nil || p.db == nil {
		return 0, errors.New("stats provider is not initialized")
	}
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	var count int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", label, err)
	}

	return count, nil
}
