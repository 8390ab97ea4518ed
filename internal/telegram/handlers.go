package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_filegate_bot/internal/domain"
	"tg_filegate_bot/internal/feature/wizard"
	"tg_filegate_bot/internal/logging"
)

// handleUpdate is the single exhaustive dispatch over inbound events. An
// in-flight wizard session consumes plain text (including text that happens
// to look like a manual code); any slash command aborts the session first.
func (c *Client) handleUpdate(ctx context.Context, update *models.Update) {
	ev, ok := parseEvent(update)
	if !ok {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	switch ev.kind {
	case eventStart:
		c.abortWizard(ev.userID)
		c.handleStart(ctx, ev)
	case eventStartDeepLink:
		c.abortWizard(ev.userID)
		c.ensureUser(ctx, ev.userID)
		c.deliver(ctx, ev.userID, ev.chatID, ev.itemID)
	case eventManualCode:
		if c.wizardActive(ev.userID) {
			c.handleWizardInput(ctx, ev.chatID, ev.userID, strings.TrimSpace(ev.message.Text))
			return
		}
		c.deliver(ctx, ev.userID, ev.chatID, ev.itemID)
	case eventCallback:
		c.handleCallback(ctx, ev)
	case eventCommand:
		c.abortWizard(ev.userID)
		c.handleCommand(ctx, ev)
	case eventText:
		if c.wizardActive(ev.userID) {
			c.handleWizardInput(ctx, ev.chatID, ev.userID, ev.text)
			return
		}
		c.logger.WithFields(logging.Fields{
			"event":   "text_ignored",
			"user_id": ev.userID,
		}).Debug("plain text outside a wizard session")
	}
}

func (c *Client) handleStart(ctx context.Context, ev event) {
	c.ensureUser(ctx, ev.userID)
	c.send(ctx, ev.chatID, greetingText(c.ownerChannelURL), nil)
}

func (c *Client) handleCallback(ctx context.Context, ev event) {
	if _, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: ev.callbackID,
	}); err != nil {
		c.logger.WithField("event", "callback_ack_failed").WithError(err).Warn("could not answer callback query")
	}

	if ev.chatID == 0 {
		c.logger.WithFields(logging.Fields{
			"event":   "callback_without_chat",
			"user_id": ev.userID,
			"item_id": ev.itemID,
		}).Warn("retry callback arrived without an accessible chat")
		return
	}

	c.deliver(ctx, ev.userID, ev.chatID, ev.itemID)
}

// deliver runs the access gate for one request and renders its outcome.
func (c *Client) deliver(ctx context.Context, userID, chatID, itemID int64) {
	if c.gate == nil {
		c.logger.WithField("event", "gate_missing").Error("access gate is not configured")
		return
	}

	result, err := c.gate.Request(ctx, userID, itemID)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "gate_request_failed",
			"user_id": userID,
			"item_id": itemID,
		}).WithError(err).Error("content request failed")
		c.send(ctx, chatID, msgTryLater, nil)
		return
	}

	switch result.Outcome {
	case domain.GateDelivered:
		c.sendDocument(ctx, chatID, result.Item)
	case domain.GatePromptSubscribe:
		c.send(ctx, chatID, msgSubscribePrompt, subscribeKeyboard(result.Requirements, result.RetryItemID))
	case domain.GateNotFound:
		c.send(ctx, chatID, msgContentMissing, nil)
	}
}

func (c *Client) handleCommand(ctx context.Context, ev event) {
	switch ev.command {
	case "addadmin", "remadmin":
		// Owner only; declined silently without acknowledgement.
		if c.auth == nil || !c.auth.IsOwner(ev.userID) {
			c.declineSilently(ev)
			return
		}
	default:
		if c.auth == nil || !c.auth.IsAuthorized(ctx, ev.userID) {
			c.declineSilently(ev)
			return
		}
	}

	switch ev.command {
	case "admin":
		c.send(ctx, ev.chatID, msgAdminPanel, nil)
	case "addadmin":
		c.handleAdminMutation(ctx, ev, true)
	case "remadmin":
		c.handleAdminMutation(ctx, ev, false)
	case "addfile":
		c.handleAddFile(ctx, ev)
	case "list":
		c.handleListContent(ctx, ev)
	case "stats":
		c.handleStats(ctx, ev)
	case "addchannel":
		c.handleAddChannel(ctx, ev)
	case "channels":
		c.handleListChannels(ctx, ev)
	case "delchannel":
		c.handleDelChannel(ctx, ev)
	default:
		c.logger.WithFields(logging.Fields{
			"event":   "unknown_command",
			"user_id": ev.userID,
			"command": ev.command,
		}).Debug("unrecognized command ignored")
	}
}

func (c *Client) declineSilently(ev event) {
	c.logger.WithFields(logging.Fields{
		"event":   "command_declined",
		"user_id": ev.userID,
		"command": ev.command,
	}).Debug("unauthorized command declined without response")
}

func (c *Client) handleAdminMutation(ctx context.Context, ev event, promote bool) {
	usage := msgRemAdminUsage
	confirm := msgAdminRemoved
	if promote {
		usage = msgAddAdminUsage
		confirm = msgAdminAdded
	}

	targetID, ok := adminTarget(ev)
	if !ok {
		c.send(ctx, ev.chatID, usage, nil)
		return
	}

	var err error
	if promote {
		err = c.auth.Promote(ctx, targetID)
	} else {
		err = c.auth.Demote(ctx, targetID)
	}
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "admin_mutation_failed",
			"user_id": ev.userID,
			"target":  targetID,
		}).WithError(err).Error("admin set mutation failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	c.send(ctx, ev.chatID, confirm, nil)
}

// adminTarget resolves the promotion/demotion target from a numeric
// argument or, failing that, the replied-to user.
func adminTarget(ev event) (int64, bool) {
	if len(ev.args) == 1 {
		if id, err := strconv.ParseInt(ev.args[0], 10, 64); err == nil && id > 0 {
			return id, true
		}
	}

	if ev.message != nil && ev.message.ReplyToMessage != nil && ev.message.ReplyToMessage.From != nil {
		return ev.message.ReplyToMessage.From.ID, true
	}

	return 0, false
}

func (c *Client) handleAddFile(ctx context.Context, ev event) {
	if ev.message == nil || ev.message.ReplyToMessage == nil {
		c.send(ctx, ev.chatID, msgReplyToFile, nil)
		return
	}

	reply := ev.message.ReplyToMessage
	token := mediaToken(reply)
	if token == "" {
		c.send(ctx, ev.chatID, msgNotAFile, nil)
		return
	}

	caption := strings.TrimSpace(reply.Caption)
	if caption == "" {
		caption = defaultCaption
	}

	itemID, err := c.content.Insert(ctx, token, caption)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "content_insert_failed",
			"user_id": ev.userID,
		}).WithError(err).Error("content insert failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "content_added",
		"user_id": ev.userID,
		"item_id": itemID,
	}).Info("registered new content item")

	c.send(ctx, ev.chatID, contentAddedText(itemID, c.botUsername(ctx)), nil)
}

// mediaToken extracts the opaque delivery token from a replied-to message:
// document, video, or the largest photo size.
func mediaToken(msg *models.Message) string {
	switch {
	case msg.Document != nil:
		return msg.Document.FileID
	case msg.Video != nil:
		return msg.Video.FileID
	case len(msg.Photo) > 0:
		return msg.Photo[len(msg.Photo)-1].FileID
	default:
		return ""
	}
}

func (c *Client) handleListContent(ctx context.Context, ev event) {
	items, err := c.content.ListAll(ctx)
	if err != nil {
		c.logger.WithField("event", "content_list_failed").WithError(err).Error("content listing failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	if len(items) == 0 {
		c.send(ctx, ev.chatID, msgNoFiles, nil)
		return
	}

	c.send(ctx, ev.chatID, contentListText(items), nil)
}

func (c *Client) handleStats(ctx context.Context, ev event) {
	users, err := c.stats.CountUsers(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_failed").WithError(err).Error("stats lookup failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	content, err := c.stats.CountContent(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_failed").WithError(err).Error("stats lookup failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	channels, err := c.stats.CountChannels(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_failed").WithError(err).Error("stats lookup failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	c.send(ctx, ev.chatID, statsText(users, content, channels), nil)
}

func (c *Client) handleAddChannel(ctx context.Context, ev event) {
	if c.sessions == nil {
		c.logger.WithField("event", "wizard_missing").Error("wizard session store is not configured")
		return
	}

	c.sessions.Begin(ev.userID)
	c.send(ctx, ev.chatID, msgWizardChatID, nil)
}

func (c *Client) handleListChannels(ctx context.Context, ev event) {
	channels, err := c.channels.ListAll(ctx)
	if err != nil {
		c.logger.WithField("event", "channel_list_failed").WithError(err).Error("channel listing failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	if len(channels) == 0 {
		c.send(ctx, ev.chatID, msgNoChannels, nil)
		return
	}

	c.send(ctx, ev.chatID, channelListText(channels), nil)
}

func (c *Client) handleDelChannel(ctx context.Context, ev event) {
	if len(ev.args) != 1 {
		c.send(ctx, ev.chatID, msgDelChannelUsage, nil)
		return
	}

	recordID, err := strconv.ParseInt(ev.args[0], 10, 64)
	if err != nil {
		c.send(ctx, ev.chatID, msgDelChannelUsage, nil)
		return
	}

	if err := c.channels.Remove(ctx, recordID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":     "channel_remove_failed",
			"user_id":   ev.userID,
			"record_id": recordID,
		}).WithError(err).Error("channel removal failed")
		c.send(ctx, ev.chatID, msgTryLater, nil)
		return
	}

	c.send(ctx, ev.chatID, msgChannelRemoved, nil)
}

// handleWizardInput advances the registration conversation one step and
// commits the collected record to the channel registry on the final one.
func (c *Client) handleWizardInput(ctx context.Context, chatID, userID int64, text string) {
	stage, record := c.sessions.Advance(userID, text)

	if record != nil {
		if _, err := c.channels.Insert(ctx, record.ChatID, record.JoinURL, record.ButtonLabel); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "channel_insert_failed",
				"user_id": userID,
			}).WithError(err).Error("channel registration commit failed")
			c.send(ctx, chatID, msgTryLater, nil)
			return
		}

		c.logger.WithFields(logging.Fields{
			"event":   "channel_registered",
			"user_id": userID,
			"chat_id": record.ChatID,
		}).Info("registered new sponsor channel")

		c.send(ctx, chatID, msgChannelAdded, nil)
		return
	}

	switch stage {
	case wizard.StageChatID:
		c.send(ctx, chatID, msgWizardChatID, nil)
	case wizard.StageURL:
		c.send(ctx, chatID, msgWizardURL, nil)
	case wizard.StageLabel:
		c.send(ctx, chatID, msgWizardLabel, nil)
	}
}

func (c *Client) wizardActive(userID int64) bool {
	return c.sessions != nil && c.sessions.Active(userID)
}

func (c *Client) abortWizard(userID int64) {
	if c.sessions != nil {
		c.sessions.Abort(userID)
	}
}

func (c *Client) ensureUser(ctx context.Context, userID int64) {
	if c.users == nil {
		return
	}

	if _, err := c.users.EnsureUser(ctx, userID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "ensure_user_failed",
			"user_id": userID,
		}).WithError(err).Warn("user registration failed")
	}
}

func (c *Client) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := c.api.SendMessage(ctx, params); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "send_failed",
			"chat_id": chatID,
		}).WithError(err).Error("message send failed")
	}
}

func (c *Client) sendDocument(ctx context.Context, chatID int64, item domain.ContentItem) {
	if _, err := c.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileString{Data: item.DeliveryToken},
		Caption:  item.Caption,
	}); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "document_send_failed",
			"chat_id": chatID,
			"item_id": item.ItemID,
		}).WithError(err).Error("document send failed")
	}
}
