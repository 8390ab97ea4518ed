// Package access gates content delivery behind sponsor channel membership.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tg_filegate_bot/internal/domain"
	"tg_filegate_bot/internal/logging"
	"tg_filegate_bot/internal/store"
)

type channelLister interface {
	ListAll(ctx context.Context) ([]domain.ChannelRequirement, error)
}

type contentGetter interface {
	Get(ctx context.Context, itemID int64) (domain.ContentItem, error)
}

type subscriptionChecker interface {
	Check(ctx context.Context, userID int64, req domain.ChannelRequirement) domain.SubscriptionStatus
}

// Gate decides whether a content request is fulfilled or deferred. Every
// request re-reads the channel registry and re-verifies every requirement;
// nothing is memoized, so a user who unsubscribes loses access on their
// very next request.
type Gate struct {
	channels channelLister
	content  contentGetter
	verifier subscriptionChecker
	logger   *logrus.Entry
}

// New constructs a Gate over the channel registry, content registry and
// subscription verifier.
func New(channels channelLister, content contentGetter, verifier subscriptionChecker, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gate{
		channels: channels,
		content:  content,
		verifier: verifier,
		logger:   logger,
	}
}

// Request runs the gating algorithm for one user and one item. Requirements
// are checked in registry order and the walk stops at the first failure;
// the prompt still carries the full requirement list so every join button
// renders. With zero requirements the item is released directly. Errors are
// returned only for registry failures; the caller converts them before
// responding.
func (g *Gate) Request(ctx context.Context, userID, itemID int64) (domain.GateResult, error) {
	if g == nil || g.channels == nil || g.content == nil || g.verifier == nil {
		return domain.GateResult{}, errors.New("access gate is not initialized")
	}
	if ctx == nil {
		return domain.GateResult{}, errors.New("context is required")
	}

	requirements, err := g.channels.ListAll(ctx)
	if err != nil {
		return domain.GateResult{}, fmt.Errorf("list channel requirements: %w", err)
	}

	for _, req := range requirements {
		if g.verifier.Check(ctx, userID, req) == domain.NotSubscribed {
			g.logger.WithFields(logging.Fields{
				"event":     "content_gated",
				"user_id":   userID,
				"item_id":   itemID,
				"record_id": req.RecordID,
			}).Info("content deferred pending subscription")

			return domain.GateResult{
				Outcome:      domain.GatePromptSubscribe,
				Requirements: requirements,
				RetryItemID:  itemID,
			}, nil
		}
	}

	item, err := g.content.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.GateResult{Outcome: domain.GateNotFound}, nil
		}
		return domain.GateResult{}, fmt.Errorf("get content: %w", err)
	}

	g.logger.WithFields(logging.Fields{
		"event":   "content_delivered",
		"user_id": userID,
		"item_id": itemID,
	}).Info("content released")

	return domain.GateResult{
		Outcome: domain.GateDelivered,
		Item:    item,
	}, nil
}
