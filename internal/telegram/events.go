package telegram

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// deepLinkPrefix prefixes content ids in /start payloads and manual codes.
const deepLinkPrefix = "file"

// callbackPrefix prefixes the retry callback carrying the item to re-request.
const callbackPrefix = "checksub:"

var manualCodeRe = regexp.MustCompile(`^file(\d+)$`)

type eventKind int

const (
	eventUnknown eventKind = iota
	// eventStart is a bare /start greeting.
	eventStart
	// eventStartDeepLink is /start with a file<N> payload.
	eventStartDeepLink
	// eventManualCode is a bare file<N> message.
	eventManualCode
	// eventCallback is a checksub:<N> retry button press.
	eventCallback
	// eventCommand is any other slash command with its arguments.
	eventCommand
	// eventText is plain text, consumed by an in-flight wizard session.
	eventText
)

// event is the closed union of inbound interactions the bot reacts to.
type event struct {
	kind       eventKind
	userID     int64
	chatID     int64
	itemID     int64
	command    string
	args       []string
	text       string
	callbackID string
	message    *models.Message
}

// parseEvent classifies one update into an event. It reports false for
// updates the bot has nothing to do with (no sender, foreign callbacks,
// unsupported update types).
func parseEvent(update *models.Update) (event, bool) {
	if update == nil {
		return event{}, false
	}

	switch {
	case update.Message != nil:
		return parseMessage(update.Message)
	case update.CallbackQuery != nil:
		return parseCallback(update.CallbackQuery)
	default:
		return event{}, false
	}
}

func parseMessage(msg *models.Message) (event, bool) {
	if msg.From == nil {
		return event{}, false
	}

	ev := event{
		userID:  msg.From.ID,
		chatID:  msg.Chat.ID,
		message: msg,
	}

	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		name, args := splitCommand(text)
		if name == "start" {
			if itemID, ok := deepLinkItemID(args); ok {
				ev.kind = eventStartDeepLink
				ev.itemID = itemID
				return ev, true
			}
			ev.kind = eventStart
			return ev, true
		}

		ev.kind = eventCommand
		ev.command = name
		ev.args = args
		return ev, true
	}

	if manualCodeRe.MatchString(text) {
		if itemID, err := strconv.ParseInt(strings.TrimPrefix(text, deepLinkPrefix), 10, 64); err == nil {
			ev.kind = eventManualCode
			ev.itemID = itemID
			return ev, true
		}
	}

	ev.kind = eventText
	ev.text = text
	return ev, true
}

func parseCallback(cb *models.CallbackQuery) (event, bool) {
	data := strings.TrimSpace(cb.Data)
	if !strings.HasPrefix(data, callbackPrefix) {
		return event{}, false
	}

	itemID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackPrefix), 10, 64)
	if err != nil {
		return event{}, false
	}

	return event{
		kind:       eventCallback,
		userID:     cb.From.ID,
		chatID:     messageChatID(cb.Message),
		itemID:     itemID,
		callbackID: cb.ID,
	}, true
}

// deepLinkItemID extracts the item id from a file<N> start payload. A
// malformed payload degrades to a plain greeting.
func deepLinkItemID(args []string) (int64, bool) {
	if len(args) == 0 || !strings.HasPrefix(args[0], deepLinkPrefix) {
		return 0, false
	}

	itemID, err := strconv.ParseInt(strings.TrimPrefix(args[0], deepLinkPrefix), 10, 64)
	if err != nil {
		return 0, false
	}

	return itemID, true
}

func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	return strings.ToLower(name), fields[1:]
}
