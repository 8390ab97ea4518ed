// Package verify checks a user's membership in sponsor channels against the
// Telegram API.
package verify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_filegate_bot/internal/domain"
	"tg_filegate_bot/internal/logging"
)

// DefaultTimeout bounds a single membership lookup so a stalled API call
// cannot block a request forever.
const DefaultTimeout = 5 * time.Second

type chatMemberGetter interface {
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// Verifier decides subscription status for one user and one channel
// requirement. Any inability to prove membership — malformed chat id, API
// error, timeout — reports NotSubscribed: uncertainty never releases
// content. The condition is logged for operators and never surfaced to the
// user.
type Verifier struct {
	api     chatMemberGetter
	timeout time.Duration
	logger  *logrus.Entry
}

// New constructs a Verifier over the provided Telegram API handle.
func New(api chatMemberGetter, logger *logrus.Entry) *Verifier {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Verifier{
		api:     api,
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// Check reports whether the user is subscribed to the requirement's channel.
func (v *Verifier) Check(ctx context.Context, userID int64, req domain.ChannelRequirement) domain.SubscriptionStatus {
	if v == nil || v.api == nil {
		return domain.NotSubscribed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(req.ChatID), 10, 64)
	if err != nil {
		v.logger.WithFields(logging.Fields{
			"event":     "subscription_check_failed",
			"user_id":   userID,
			"record_id": req.RecordID,
			"chat_id":   req.ChatID,
		}).WithError(err).Warn("channel requirement has an unparsable chat id")
		return domain.NotSubscribed
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	member, err := v.api.GetChatMember(callCtx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil || member == nil {
		v.logger.WithFields(logging.Fields{
			"event":     "subscription_check_failed",
			"user_id":   userID,
			"record_id": req.RecordID,
			"chat_id":   chatID,
		}).WithError(err).Warn("membership lookup failed, treating as not subscribed")
		return domain.NotSubscribed
	}

	// Only an explicit departure counts as unsubscribed; member, admin,
	// owner and restricted-but-present all pass.
	if member.Type == models.ChatMemberTypeLeft {
		return domain.NotSubscribed
	}

	return domain.Subscribed
}
