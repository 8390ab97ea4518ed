package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"

	"tg_filegate_bot/internal/domain"
)

// User-facing copy, HTML parse mode throughout.
const (
	msgGreeting        = "👋 Привет! Я храню файлы с канала <b>Мега</b>!"
	msgSubscribePrompt = "Чтобы получить файл — подпишись на каналы спонсоров:"
	msgCheckButton     = "Проверить подписку ✅"
	msgContentMissing  = "Файл не найден."
	msgTryLater        = "Что-то пошло не так, попробуйте позже."
	msgReplyToFile     = "Используй команду ответом на файл."
	msgNotAFile        = "Это не файл!"
	msgAdminAdded      = "Админ добавлен!"
	msgAdminRemoved    = "Админ удалён!"
	msgAddAdminUsage   = "Использование: /addadmin user_id"
	msgRemAdminUsage   = "Использование: /remadmin user_id"
	msgDelChannelUsage = "Использование: /delchannel <id>"
	msgChannelAdded    = "Канал добавлен! 🎉"
	msgChannelRemoved  = "Канал удалён! ❌"
	msgNoChannels      = "Каналов нет."
	msgNoFiles         = "Файлов нет."
	msgWizardChatID    = "Введите chat_id канала (-100xxxxxxxxxx):"
	msgWizardURL       = "Теперь отправьте ссылку на канал:"
	msgWizardLabel     = "Введите текст кнопки:"

	defaultCaption = "Без названия"
)

const msgAdminPanel = "<b>👑 Админ-панель</b>\n\n" +
	"<b>/addadmin user_id</b> — добавить админа\n" +
	"<b>/remadmin user_id</b> — удалить админа\n" +
	"<b>/addfile</b> — добавить файл ответом на файл\n" +
	"<b>/list</b> — список файлов\n" +
	"<b>/stats</b> — статистика\n" +
	"<b>/addchannel</b> — добавить канал спонсора\n" +
	"<b>/channels</b> — список каналов\n" +
	"<b>/delchannel id</b> — удалить канал\n" +
	"<code>file123</code> — получить файл вручную"

// subscribeKeyboard builds one join button per requirement, in registry
// order, plus the retry button carrying the requested item id. Button order
// matches verification order because both come from the same listing.
func subscribeKeyboard(requirements []domain.ChannelRequirement, retryItemID int64) models.ReplyMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(requirements)+1)

	for _, req := range requirements {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text: req.ButtonLabel,
			URL:  req.JoinURL,
		}})
	}

	rows = append(rows, []models.InlineKeyboardButton{{
		Text:         msgCheckButton,
		CallbackData: fmt.Sprintf("%s%d", callbackPrefix, retryItemID),
	}})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func greetingText(ownerChannelURL string) string {
	if strings.TrimSpace(ownerChannelURL) == "" {
		return msgGreeting
	}

	return msgGreeting + "\n\n" + fmt.Sprintf("<a href=%q>Наш канал 🌟</a>", ownerChannelURL)
}

func channelListText(channels []domain.ChannelRequirement) string {
	var b strings.Builder
	b.WriteString("<b>📡 Каналы-спонсоры:</b>\n\n")

	for _, ch := range channels {
		fmt.Fprintf(&b, "<b>ID записи:</b> %d\n", ch.RecordID)
		fmt.Fprintf(&b, "<b>Chat ID:</b> <code>%s</code>\n", html.EscapeString(ch.ChatID))
		fmt.Fprintf(&b, "<b>URL:</b> %s\n", html.EscapeString(ch.JoinURL))
		fmt.Fprintf(&b, "<b>Название кнопки:</b> %s\n\n", html.EscapeString(ch.ButtonLabel))
	}

	return strings.TrimRight(b.String(), "\n")
}

func contentListText(items []domain.ContentItem) string {
	var b strings.Builder
	b.WriteString("<b>📁 Файлы:</b>\n\n")

	for _, item := range items {
		fmt.Fprintf(&b, "ID %d: %s\n", item.ItemID, html.EscapeString(item.Caption))
	}

	return strings.TrimRight(b.String(), "\n")
}

func statsText(users, content, channels int64) string {
	return fmt.Sprintf("📊 Пользователей: %d\n📁 Файлов: %d\n📡 Каналов: %d", users, content, channels)
}

func contentAddedText(itemID int64, username string) string {
	if username == "" {
		return fmt.Sprintf("Файл добавлен!\nID: %d", itemID)
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s%d", username, deepLinkPrefix, itemID)
	return fmt.Sprintf("Файл добавлен!\nID: %d\n🔗 %s", itemID, link)
}
