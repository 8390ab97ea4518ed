package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_filegate_bot/internal/domain"
	"tg_filegate_bot/internal/feature/wizard"
	"tg_filegate_bot/internal/store"
)

type fakeBotAPI struct {
	sent []*bot.SendMessageParams
	docs []*bot.SendDocumentParams
	acks []string

	me      *models.User
	meErr   error
	meCalls int
}

func (f *fakeBotAPI) Start(context.Context) {}

func (f *fakeBotAPI) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	return &models.Message{}, nil
}

func (f *fakeBotAPI) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	f.docs = append(f.docs, params)
	return &models.Message{}, nil
}

func (f *fakeBotAPI) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.acks = append(f.acks, params.CallbackQueryID)
	return true, nil
}

func (f *fakeBotAPI) GetChatMember(context.Context, *bot.GetChatMemberParams) (*models.ChatMember, error) {
	return nil, errors.New("not used in tests")
}

func (f *fakeBotAPI) GetMe(context.Context) (*models.User, error) {
	f.meCalls++
	return f.me, f.meErr
}

type fakeRegistrar struct {
	ensured []int64
	err     error
}

func (f *fakeRegistrar) EnsureUser(_ context.Context, userID int64) (bool, error) {
	f.ensured = append(f.ensured, userID)
	return true, f.err
}

type fakeAuthorizer struct {
	owner  int64
	admins map[int64]bool

	promoted []int64
	demoted  []int64
}

func (f *fakeAuthorizer) IsOwner(userID int64) bool { return userID == f.owner }

func (f *fakeAuthorizer) IsAuthorized(_ context.Context, userID int64) bool {
	return userID == f.owner || f.admins[userID]
}

func (f *fakeAuthorizer) Promote(_ context.Context, userID int64) error {
	f.promoted = append(f.promoted, userID)
	return nil
}

func (f *fakeAuthorizer) Demote(_ context.Context, userID int64) error {
	f.demoted = append(f.demoted, userID)
	return nil
}

type fakeContentRegistry struct {
	items    map[int64]domain.ContentItem
	nextID   int64
	inserted []domain.ContentItem
	err      error
}

func (f *fakeContentRegistry) Insert(_ context.Context, token, caption string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.inserted = append(f.inserted, domain.ContentItem{ItemID: f.nextID, DeliveryToken: token, Caption: caption})
	return f.nextID, nil
}

func (f *fakeContentRegistry) Get(_ context.Context, itemID int64) (domain.ContentItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return domain.ContentItem{}, store.ErrNotFound
	}
	return item, nil
}

func (f *fakeContentRegistry) ListAll(context.Context) ([]domain.ContentItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ContentItem, 0, len(f.inserted))
	out = append(out, f.inserted...)
	return out, nil
}

type fakeChannelRegistry struct {
	channels  []domain.ChannelRequirement
	inserted  []wizard.Record
	removed   []int64
	insertErr error
	listErr   error
}

func (f *fakeChannelRegistry) Insert(_ context.Context, chatID, joinURL, buttonLabel string) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, wizard.Record{ChatID: chatID, JoinURL: joinURL, ButtonLabel: buttonLabel})
	return int64(len(f.inserted)), nil
}

func (f *fakeChannelRegistry) Remove(_ context.Context, recordID int64) error {
	f.removed = append(f.removed, recordID)
	return nil
}

func (f *fakeChannelRegistry) ListAll(context.Context) ([]domain.ChannelRequirement, error) {
	return f.channels, f.listErr
}

type fakeGate struct {
	result domain.GateResult
	err    error

	requests [][2]int64
}

func (f *fakeGate) Request(_ context.Context, userID, itemID int64) (domain.GateResult, error) {
	f.requests = append(f.requests, [2]int64{userID, itemID})
	return f.result, f.err
}

type fakeStats struct {
	users, content, channels int64
	err                      error
}

func (f *fakeStats) CountUsers(context.Context) (int64, error)    { return f.users, f.err }
func (f *fakeStats) CountContent(context.Context) (int64, error)  { return f.content, f.err }
func (f *fakeStats) CountChannels(context.Context) (int64, error) { return f.channels, f.err }

type clientFixture struct {
	client   *Client
	api      *fakeBotAPI
	users    *fakeRegistrar
	auth     *fakeAuthorizer
	content  *fakeContentRegistry
	channels *fakeChannelRegistry
	gate     *fakeGate
	stats    *fakeStats
	sessions *wizard.Store
}

func newFixture(t *testing.T) *clientFixture {
	t.Helper()

	logger, _ := logtest.NewNullLogger()

	f := &clientFixture{
		api:      &fakeBotAPI{me: &models.User{Username: "filegate_bot"}},
		users:    &fakeRegistrar{},
		auth:     &fakeAuthorizer{owner: ownerID, admins: map[int64]bool{adminID: true}},
		content:  &fakeContentRegistry{items: map[int64]domain.ContentItem{}},
		channels: &fakeChannelRegistry{},
		gate:     &fakeGate{},
		stats:    &fakeStats{},
		sessions: wizard.NewStore(wizard.DefaultTTL),
	}

	f.client = &Client{
		api:      f.api,
		logger:   logrus.NewEntry(logger),
		users:    f.users,
		auth:     f.auth,
		content:  f.content,
		channels: f.channels,
		gate:     f.gate,
		sessions: f.sessions,
		stats:    f.stats,
	}

	return f
}

const (
	ownerID int64 = 100
	adminID int64 = 200
	userID  int64 = 300
	chatID  int64 = 1000
)

func (f *clientFixture) update(t *testing.T, from int64, text string) {
	t.Helper()
	f.client.handleUpdate(context.Background(), textUpdate(from, chatID, text))
}

func (f *clientFixture) lastSent(t *testing.T) *bot.SendMessageParams {
	t.Helper()
	if len(f.api.sent) == 0 {
		t.Fatalf("expected a message to be sent")
	}
	return f.api.sent[len(f.api.sent)-1]
}

func TestStartGreetsAndRegistersUser(t *testing.T) {
	f := newFixture(t)
	f.client.ownerChannelURL = "https://t.me/mega"

	f.update(t, userID, "/start")

	if len(f.users.ensured) != 1 || f.users.ensured[0] != userID {
		t.Fatalf("expected user to be registered, got %v", f.users.ensured)
	}

	sent := f.lastSent(t)
	if !strings.Contains(sent.Text, msgGreeting) {
		t.Fatalf("expected greeting, got %q", sent.Text)
	}
	if !strings.Contains(sent.Text, "https://t.me/mega") {
		t.Fatalf("expected owner channel link in greeting, got %q", sent.Text)
	}
	if sent.ParseMode != models.ParseModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", sent.ParseMode)
	}
}

func TestDeepLinkDeliversDocument(t *testing.T) {
	f := newFixture(t)
	f.gate.result = domain.GateResult{
		Outcome: domain.GateDelivered,
		Item:    domain.ContentItem{ItemID: 7, DeliveryToken: "file-token", Caption: "guide"},
	}

	f.update(t, userID, "/start file7")

	if len(f.gate.requests) != 1 || f.gate.requests[0] != [2]int64{userID, 7} {
		t.Fatalf("expected gate request for user %d item 7, got %v", userID, f.gate.requests)
	}
	if len(f.users.ensured) != 1 {
		t.Fatalf("expected deep link to register the user, got %v", f.users.ensured)
	}

	if len(f.api.docs) != 1 {
		t.Fatalf("expected one document send, got %d", len(f.api.docs))
	}
	doc := f.api.docs[0]
	input, ok := doc.Document.(*models.InputFileString)
	if !ok {
		t.Fatalf("expected InputFileString document, got %T", doc.Document)
	}
	if input.Data != "file-token" || doc.Caption != "guide" {
		t.Fatalf("unexpected document send: %+v", doc)
	}
}

func TestGatedRequestRendersSubscribeKeyboard(t *testing.T) {
	f := newFixture(t)
	f.gate.result = domain.GateResult{
		Outcome: domain.GatePromptSubscribe,
		Requirements: []domain.ChannelRequirement{
			{RecordID: 1, JoinURL: "https://t.me/a", ButtonLabel: "First"},
			{RecordID: 2, JoinURL: "https://t.me/b", ButtonLabel: "Second"},
		},
		RetryItemID: 7,
	}

	f.update(t, userID, "file7")

	sent := f.lastSent(t)
	if sent.Text != msgSubscribePrompt {
		t.Fatalf("expected subscribe prompt, got %q", sent.Text)
	}

	markup, ok := sent.ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", sent.ReplyMarkup)
	}

	// One row per requirement plus the retry row.
	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 keyboard rows, got %d", len(markup.InlineKeyboard))
	}
	if markup.InlineKeyboard[0][0].Text != "First" || markup.InlineKeyboard[0][0].URL != "https://t.me/a" {
		t.Fatalf("unexpected first row: %+v", markup.InlineKeyboard[0])
	}
	if markup.InlineKeyboard[1][0].Text != "Second" {
		t.Fatalf("unexpected second row: %+v", markup.InlineKeyboard[1])
	}

	retry := markup.InlineKeyboard[2][0]
	if retry.Text != msgCheckButton || retry.CallbackData != "checksub:7" {
		t.Fatalf("unexpected retry button: %+v", retry)
	}
}

func TestMissingContentReportsNotFound(t *testing.T) {
	f := newFixture(t)
	f.gate.result = domain.GateResult{Outcome: domain.GateNotFound}

	f.update(t, userID, "file999")

	if sent := f.lastSent(t); sent.Text != msgContentMissing {
		t.Fatalf("expected %q, got %q", msgContentMissing, sent.Text)
	}
}

func TestGateErrorReportsTryLater(t *testing.T) {
	f := newFixture(t)
	f.gate.err = errors.New("store unavailable")

	f.update(t, userID, "file7")

	if sent := f.lastSent(t); sent.Text != msgTryLater {
		t.Fatalf("expected %q, got %q", msgTryLater, sent.Text)
	}
}

func TestCallbackAcksAndRetriesDelivery(t *testing.T) {
	f := newFixture(t)
	f.gate.result = domain.GateResult{
		Outcome: domain.GateDelivered,
		Item:    domain.ContentItem{ItemID: 3, DeliveryToken: "file-token"},
	}

	f.client.handleUpdate(context.Background(), &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: userID},
			Data: "checksub:3",
			Message: models.MaybeInaccessibleMessage{
				Type:    models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{Chat: models.Chat{ID: chatID}},
			},
		},
	})

	if len(f.api.acks) != 1 || f.api.acks[0] != "cb-1" {
		t.Fatalf("expected callback to be acknowledged, got %v", f.api.acks)
	}
	if len(f.gate.requests) != 1 || f.gate.requests[0] != [2]int64{userID, 3} {
		t.Fatalf("expected retry to re-run the gate, got %v", f.gate.requests)
	}
	if len(f.api.docs) != 1 {
		t.Fatalf("expected document delivery on successful retry")
	}
}

func TestCallbackWithoutChatOnlyAcks(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: userID},
			Data: "checksub:3",
		},
	})

	if len(f.api.acks) != 1 {
		t.Fatalf("expected callback to be acknowledged")
	}
	if len(f.gate.requests) != 0 || len(f.api.sent) != 0 {
		t.Fatalf("expected no delivery without an accessible chat")
	}
}

func TestUnauthorizedCommandsAreDeclinedSilently(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []string{"/admin", "/addfile", "/list", "/stats", "/addchannel", "/channels", "/delchannel 1"} {
		f.update(t, userID, cmd)
	}

	if len(f.api.sent) != 0 || len(f.api.docs) != 0 {
		t.Fatalf("expected no response to unauthorized commands, got %d sends", len(f.api.sent))
	}
}

func TestAdminMutationIsOwnerOnly(t *testing.T) {
	f := newFixture(t)

	// Even a regular admin is declined silently.
	f.update(t, adminID, "/addadmin 300")
	f.update(t, adminID, "/remadmin 300")

	if len(f.api.sent) != 0 || len(f.auth.promoted) != 0 || len(f.auth.demoted) != 0 {
		t.Fatalf("expected admin mutations from non-owner to be declined")
	}

	f.update(t, ownerID, "/addadmin 300")
	if len(f.auth.promoted) != 1 || f.auth.promoted[0] != 300 {
		t.Fatalf("expected owner to promote user 300, got %v", f.auth.promoted)
	}
	if sent := f.lastSent(t); sent.Text != msgAdminAdded {
		t.Fatalf("expected %q, got %q", msgAdminAdded, sent.Text)
	}

	f.update(t, ownerID, "/remadmin 300")
	if len(f.auth.demoted) != 1 || f.auth.demoted[0] != 300 {
		t.Fatalf("expected owner to demote user 300, got %v", f.auth.demoted)
	}
	if sent := f.lastSent(t); sent.Text != msgAdminRemoved {
		t.Fatalf("expected %q, got %q", msgAdminRemoved, sent.Text)
	}
}

func TestAdminMutationTargetsRepliedUser(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), &models.Update{
		Message: &models.Message{
			From:           &models.User{ID: ownerID},
			Chat:           models.Chat{ID: chatID},
			Text:           "/addadmin",
			ReplyToMessage: &models.Message{From: &models.User{ID: 555}},
		},
	})

	if len(f.auth.promoted) != 1 || f.auth.promoted[0] != 555 {
		t.Fatalf("expected replied-to user 555 to be promoted, got %v", f.auth.promoted)
	}
}

func TestAdminMutationWithoutTargetShowsUsage(t *testing.T) {
	f := newFixture(t)

	f.update(t, ownerID, "/addadmin")
	if sent := f.lastSent(t); sent.Text != msgAddAdminUsage {
		t.Fatalf("expected %q, got %q", msgAddAdminUsage, sent.Text)
	}

	f.update(t, ownerID, "/remadmin notanumber")
	if sent := f.lastSent(t); sent.Text != msgRemAdminUsage {
		t.Fatalf("expected %q, got %q", msgRemAdminUsage, sent.Text)
	}
}

func TestAdminPanelIsShownToAdmins(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/admin")

	if sent := f.lastSent(t); sent.Text != msgAdminPanel {
		t.Fatalf("expected admin panel, got %q", sent.Text)
	}
}

func TestAddFileRequiresReplyWithMedia(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/addfile")
	if sent := f.lastSent(t); sent.Text != msgReplyToFile {
		t.Fatalf("expected %q, got %q", msgReplyToFile, sent.Text)
	}

	f.client.handleUpdate(context.Background(), &models.Update{
		Message: &models.Message{
			From:           &models.User{ID: adminID},
			Chat:           models.Chat{ID: chatID},
			Text:           "/addfile",
			ReplyToMessage: &models.Message{Text: "just text"},
		},
	})
	if sent := f.lastSent(t); sent.Text != msgNotAFile {
		t.Fatalf("expected %q, got %q", msgNotAFile, sent.Text)
	}
}

func TestAddFileRegistersDocumentAndAnnouncesDeepLink(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), &models.Update{
		Message: &models.Message{
			From: &models.User{ID: adminID},
			Chat: models.Chat{ID: chatID},
			Text: "/addfile",
			ReplyToMessage: &models.Message{
				Document: &models.Document{FileID: "doc-token"},
				Caption:  "Setup guide",
			},
		},
	})

	if len(f.content.inserted) != 1 {
		t.Fatalf("expected one content insert, got %d", len(f.content.inserted))
	}
	item := f.content.inserted[0]
	if item.DeliveryToken != "doc-token" || item.Caption != "Setup guide" {
		t.Fatalf("unexpected inserted item: %+v", item)
	}

	sent := f.lastSent(t)
	if !strings.Contains(sent.Text, "https://t.me/filegate_bot?start=file1") {
		t.Fatalf("expected deep link in confirmation, got %q", sent.Text)
	}
}

func TestAddFileDefaultsCaption(t *testing.T) {
	f := newFixture(t)

	f.client.handleUpdate(context.Background(), &models.Update{
		Message: &models.Message{
			From: &models.User{ID: adminID},
			Chat: models.Chat{ID: chatID},
			Text: "/addfile",
			ReplyToMessage: &models.Message{
				Video: &models.Video{FileID: "video-token"},
			},
		},
	})

	if len(f.content.inserted) != 1 || f.content.inserted[0].Caption != defaultCaption {
		t.Fatalf("expected default caption, got %+v", f.content.inserted)
	}
}

func TestListContent(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/list")
	if sent := f.lastSent(t); sent.Text != msgNoFiles {
		t.Fatalf("expected %q for empty registry, got %q", msgNoFiles, sent.Text)
	}

	f.content.inserted = []domain.ContentItem{{ItemID: 1, Caption: "guide <one>"}}
	f.update(t, adminID, "/list")
	sent := f.lastSent(t)
	if !strings.Contains(sent.Text, "ID 1:") {
		t.Fatalf("expected item listing, got %q", sent.Text)
	}
	if !strings.Contains(sent.Text, "guide &lt;one&gt;") {
		t.Fatalf("expected caption to be HTML escaped, got %q", sent.Text)
	}
}

func TestStatsCommand(t *testing.T) {
	f := newFixture(t)
	f.stats.users = 5
	f.stats.content = 2
	f.stats.channels = 1

	f.update(t, ownerID, "/stats")

	if sent := f.lastSent(t); sent.Text != statsText(5, 2, 1) {
		t.Fatalf("unexpected stats text: %q", sent.Text)
	}
}

func TestChannelWizardEndToEnd(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/addchannel")
	if sent := f.lastSent(t); sent.Text != msgWizardChatID {
		t.Fatalf("expected chat id prompt, got %q", sent.Text)
	}

	f.update(t, adminID, "-100222")
	if sent := f.lastSent(t); sent.Text != msgWizardURL {
		t.Fatalf("expected url prompt, got %q", sent.Text)
	}

	f.update(t, adminID, "https://t.me/y")
	if sent := f.lastSent(t); sent.Text != msgWizardLabel {
		t.Fatalf("expected label prompt, got %q", sent.Text)
	}

	f.update(t, adminID, "Sponsor")
	if sent := f.lastSent(t); sent.Text != msgChannelAdded {
		t.Fatalf("expected confirmation, got %q", sent.Text)
	}

	if len(f.channels.inserted) != 1 {
		t.Fatalf("expected one channel insert, got %d", len(f.channels.inserted))
	}
	record := f.channels.inserted[0]
	if record.ChatID != "-100222" || record.JoinURL != "https://t.me/y" || record.ButtonLabel != "Sponsor" {
		t.Fatalf("unexpected committed record: %+v", record)
	}

	if f.sessions.Active(adminID) {
		t.Fatalf("expected session to end after commit")
	}
}

func TestWizardConsumesManualCodeText(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/addchannel")
	// A chat id that happens to look like a manual code feeds the wizard
	// instead of triggering a delivery.
	f.update(t, adminID, "file7")

	if len(f.gate.requests) != 0 {
		t.Fatalf("expected no gate request while wizard is active, got %v", f.gate.requests)
	}
	if sent := f.lastSent(t); sent.Text != msgWizardURL {
		t.Fatalf("expected wizard to consume the input, got %q", sent.Text)
	}
}

func TestSlashCommandAbortsWizard(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/addchannel")
	f.update(t, adminID, "-100222")
	f.update(t, adminID, "/channels")

	if f.sessions.Active(adminID) {
		t.Fatalf("expected command to abort the wizard session")
	}
	if len(f.channels.inserted) != 0 {
		t.Fatalf("expected no partial registration, got %v", f.channels.inserted)
	}
}

func TestWizardCommitFailureReportsTryLater(t *testing.T) {
	f := newFixture(t)
	f.channels.insertErr = errors.New("store unavailable")

	f.update(t, adminID, "/addchannel")
	f.update(t, adminID, "-100222")
	f.update(t, adminID, "https://t.me/y")
	f.update(t, adminID, "Sponsor")

	if sent := f.lastSent(t); sent.Text != msgTryLater {
		t.Fatalf("expected %q, got %q", msgTryLater, sent.Text)
	}
}

func TestListChannels(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/channels")
	if sent := f.lastSent(t); sent.Text != msgNoChannels {
		t.Fatalf("expected %q for empty registry, got %q", msgNoChannels, sent.Text)
	}

	f.channels.channels = []domain.ChannelRequirement{
		{RecordID: 1, ChatID: "-100111", JoinURL: "https://t.me/x", ButtonLabel: "Join"},
	}
	f.update(t, adminID, "/channels")
	sent := f.lastSent(t)
	if !strings.Contains(sent.Text, "-100111") || !strings.Contains(sent.Text, "https://t.me/x") {
		t.Fatalf("expected channel details, got %q", sent.Text)
	}
}

func TestDelChannel(t *testing.T) {
	f := newFixture(t)

	f.update(t, adminID, "/delchannel")
	if sent := f.lastSent(t); sent.Text != msgDelChannelUsage {
		t.Fatalf("expected usage for missing arg, got %q", sent.Text)
	}

	f.update(t, adminID, "/delchannel abc")
	if sent := f.lastSent(t); sent.Text != msgDelChannelUsage {
		t.Fatalf("expected usage for bad arg, got %q", sent.Text)
	}

	f.update(t, adminID, "/delchannel 3")
	if len(f.channels.removed) != 1 || f.channels.removed[0] != 3 {
		t.Fatalf("expected record 3 removed, got %v", f.channels.removed)
	}
	if sent := f.lastSent(t); sent.Text != msgChannelRemoved {
		t.Fatalf("expected %q, got %q", msgChannelRemoved, sent.Text)
	}
}

func TestPlainTextOutsideWizardIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.update(t, userID, "hello there")

	if len(f.api.sent) != 0 {
		t.Fatalf("expected plain text to be ignored, got %d sends", len(f.api.sent))
	}
}
