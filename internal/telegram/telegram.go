// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_filegate_bot/internal/config"
	"tg_filegate_bot/internal/domain"
	"tg_filegate_bot/internal/feature/access"
	"tg_filegate_bot/internal/feature/wizard"
	"tg_filegate_bot/internal/logging"
	"tg_filegate_bot/internal/verify"
)

// botAPI captures the subset of bot.Bot behavior the client relies on to
// allow lightweight stubbing in tests without a live Telegram connection.
type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
	GetMe(ctx context.Context) (*models.User, error)
}

type userRegistrar interface {
	EnsureUser(ctx context.Context, userID int64) (bool, error)
}

type authorizer interface {
	IsOwner(userID int64) bool
	IsAuthorized(ctx context.Context, userID int64) bool
	Promote(ctx context.Context, userID int64) error
	Demote(ctx context.Context, userID int64) error
}

type contentRegistry interface {
	Insert(ctx context.Context, deliveryToken, caption string) (int64, error)
	Get(ctx context.Context, itemID int64) (domain.ContentItem, error)
	ListAll(ctx context.Context) ([]domain.ContentItem, error)
}

type channelRegistry interface {
	Insert(ctx context.Context, chatID, joinURL, buttonLabel string) (int64, error)
	Remove(ctx context.Context, recordID int64) error
	ListAll(ctx context.Context) ([]domain.ChannelRequirement, error)
}

type accessGate interface {
	Request(ctx context.Context, userID, itemID int64) (domain.GateResult, error)
}

type statsProvider interface {
	CountUsers(ctx context.Context) (int64, error)
	CountContent(ctx context.Context) (int64, error)
	CountChannels(ctx context.Context) (int64, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance together with the collaborators
// every handler needs. No ambient singletons: the client is built once at
// startup and owns all shared state.
type Client struct {
	api    botAPI
	logger *logrus.Entry

	users    userRegistrar
	auth     authorizer
	content  contentRegistry
	channels channelRegistry
	gate     accessGate
	sessions *wizard.Store
	stats    statsProvider

	ownerChannelURL string

	usernameMu sync.Mutex
	username   string
}

// Option customizes the Client during construction.
type Option func(*Client)

// WithUserRegistrar attaches the user registrar used on /start.
func WithUserRegistrar(r userRegistrar) Option {
	return func(c *Client) { c.users = r }
}

// WithAuthorizer attaches the admin authorizer.
func WithAuthorizer(a authorizer) Option {
	return func(c *Client) { c.auth = a }
}

// WithContentRegistry attaches the content registry.
func WithContentRegistry(r contentRegistry) Option {
	return func(c *Client) { c.content = r }
}

// WithChannelRegistry attaches the channel requirement registry.
func WithChannelRegistry(r channelRegistry) Option {
	return func(c *Client) { c.channels = r }
}

// WithWizardSessions attaches the channel registration session store.
func WithWizardSessions(s *wizard.Store) Option {
	return func(c *Client) { c.sessions = s }
}

// WithStatsProvider attaches the stats provider backing /stats.
func WithStatsProvider(p statsProvider) Option {
	return func(c *Client) { c.stats = p }
}

// WithAccessGate overrides the access gate; without it NewClient builds one
// from the attached registries and a verifier over the live bot.
func WithAccessGate(g accessGate) Option {
	return func(c *Client) { c.gate = g }
}

// NewClient initializes the Telegram bot with long polling and wires the
// update router as the default handler.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Client{
		logger:          logger,
		ownerChannelURL: cfg.OwnerChannelURL,
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(c.route),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	c.api = tgBot

	for _, opt := range opts {
		opt(c)
	}

	if c.gate == nil && c.channels != nil && c.content != nil {
		c.gate = access.New(c.channels, c.content, verify.New(tgBot, logger), logger)
	}

	return c, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.api.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) route(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.handleUpdate(ctx, update)
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

// botUsername fetches and caches the bot's own username for deep links.
func (c *Client) botUsername(ctx context.Context) string {
	c.usernameMu.Lock()
	defer c.usernameMu.Unlock()

	if c.username != "" {
		return c.username
	}

	me, err := c.api.GetMe(ctx)
	if err != nil || me == nil {
		c.logger.WithField("event", "get_me_failed").WithError(err).Warn("could not resolve bot username")
		return ""
	}

	c.username = me.Username
	return c.username
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return msg.Message.Chat.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return msg.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
