package tickets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hom-bot/archive"
	"hom-bot/embeds"
	"hom-bot/lang"
	"hom-bot/storage"
	"hom-bot/templates"
)

const (
	testModRole = "mod-role"
	testAppID   = "app-id"
	testGuild   = "guild-1"
	testLogChan = "log-chan"
)

type createdChannel struct {
	guildID string
	data    discordgo.GuildChannelCreateData
}

type permissionSet struct {
	channelID, targetID string
	targetType          discordgo.PermissionOverwriteType
	allow, deny         int64
}

type fakeMessenger struct {
	created   []createdChannel
	edits     map[string]*discordgo.ChannelEdit
	sent      map[string][]*discordgo.MessageSend
	perms     []permissionSet
	deleted   []string
	responses []*discordgo.InteractionResponse
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		edits: make(map[string]*discordgo.ChannelEdit),
		sent:  make(map[string][]*discordgo.MessageSend),
	}
}

func (f *fakeMessenger) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.created = append(f.created, createdChannel{guildID: guildID, data: data})
	return &discordgo.Channel{
		ID:                   "ch-new",
		Name:                 data.Name,
		Type:                 data.Type,
		Topic:                data.Topic,
		ParentID:             data.ParentID,
		PermissionOverwrites: data.PermissionOverwrites,
	}, nil
}

func (f *fakeMessenger) ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.edits[channelID] = data
	return &discordgo.Channel{ID: channelID, Topic: data.Topic}, nil
}

func (f *fakeMessenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func (f *fakeMessenger) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error {
	f.perms = append(f.perms, permissionSet{channelID, targetID, targetType, allow, deny})
	return nil
}

func (f *fakeMessenger) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.deleted = append(f.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeMessenger) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

type fakeLedger struct {
	records []storage.ArchiveRecord
}

func (l *fakeLedger) Init() error  { return nil }
func (l *fakeLedger) Close() error { return nil }

func (l *fakeLedger) RecordArchive(rec storage.ArchiveRecord) error {
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLedger) ListArchives(guildID string, limit int) ([]storage.ArchiveRecord, error) {
	return l.records, nil
}

type fakeHistory struct {
	uploads map[string][]*discordgo.MessageSend
}

func (f *fakeHistory) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return nil, nil
}

func (f *fakeHistory) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.uploads == nil {
		f.uploads = make(map[string][]*discordgo.MessageSend)
	}
	f.uploads[channelID] = append(f.uploads[channelID], data)
	return &discordgo.Message{ID: "log-msg"}, nil
}

func testReplies(t *testing.T) *lang.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "messages.yaml")
	content := `
en:
  ticket_exists: "existing:{channel}"
  ticket_created: "created:{channel}"
  ticket_welcome: "welcome {user} {mod_role}"
  cannot_determine_owner: "cannot determine owner"
  already_closed: "already closed"
  closed_notice: "closed by {user}"
  must_close_first: "must close first"
  not_authorized: "not authorized"
  archiving: "archiving"
  archive_summary: "summary {topic} {user}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	c, err := lang.Load(path)
	require.NoError(t, err)
	return c
}

func testStore(t *testing.T) *templates.Store {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "log-message.md"), []byte("{{author}} {{timestamp}} {{content}}"), 0644)
	require.NoError(t, err)
	s, err := templates.Load(dir)
	require.NoError(t, err)
	return s
}

type serviceFixture struct {
	service   *Service
	messenger *fakeMessenger
	provider  *fakeProvider
	ledger    *fakeLedger
	history   *fakeHistory
}

func newServiceFixture(t *testing.T, channels ...*discordgo.Channel) *serviceFixture {
	t.Helper()
	messenger := newFakeMessenger()
	provider := &fakeProvider{cached: channels}
	ledger := &fakeLedger{}
	history := &fakeHistory{}
	store := testStore(t)

	svc := NewService(ServiceDeps{
		Messenger:  messenger,
		Directory:  NewDirectory(provider, testCategory),
		Embeds:     embeds.NewBuilder(store, "questions-chan", "patreon-chan"),
		Replies:    testReplies(t),
		Exporter:   archive.NewExporter(history, store, testLogChan),
		Ledger:     ledger,
		Publisher:  nil,
		ModRole:    testModRole,
		CategoryID: testCategory,
		AppID:      func() string { return testAppID },
	})

	return &serviceFixture{
		service:   svc,
		messenger: messenger,
		provider:  provider,
		ledger:    ledger,
		history:   history,
	}
}

func interaction(channelID, userID, username string, roles ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID:   testGuild,
		ChannelID: channelID,
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: userID, Username: username},
			Roles: roles,
		},
	}}
}

func firstButton(t *testing.T, components []discordgo.MessageComponent) discordgo.Button {
	t.Helper()
	require.NotEmpty(t, components)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.NotEmpty(t, row.Components)
	btn, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	return btn
}

func TestCreateNewTicket(t *testing.T) {
	fx := newServiceFixture(t)
	welcome := &discordgo.MessageEmbed{Title: "API Key"}

	ticket, err := fx.service.Create(interaction("support-chan", "111", "Alice Smith"), welcome, "API Key")
	require.NoError(t, err)

	assert.True(t, ticket.IsNew)
	assert.Equal(t, "111", ticket.Owner)
	assert.Equal(t, "ch-new", ticket.Channel)

	require.Len(t, fx.messenger.created, 1)
	created := fx.messenger.created[0]
	assert.Equal(t, testGuild, created.guildID)
	assert.Equal(t, "ticket-alice-smith", created.data.Name)
	assert.Equal(t, "API Key-111", created.data.Topic)
	assert.Equal(t, testCategory, created.data.ParentID)
	assert.Equal(t, discordgo.ChannelTypeGuildText, created.data.Type)

	// owner, mod role, bot and @everyone overwrites
	require.Len(t, created.data.PermissionOverwrites, 4)
	byID := make(map[string]*discordgo.PermissionOverwrite)
	for _, ow := range created.data.PermissionOverwrites {
		byID[ow.ID] = ow
	}
	assert.NotZero(t, byID[testGuild].Deny&discordgo.PermissionViewChannel)
	assert.NotZero(t, byID[testGuild].Allow&discordgo.PermissionReadMessageHistory)
	assert.NotZero(t, byID[testModRole].Allow&discordgo.PermissionViewChannel)
	assert.NotZero(t, byID[testAppID].Allow&discordgo.PermissionViewChannel)
	assert.NotZero(t, byID["111"].Allow&discordgo.PermissionViewChannel)

	// welcome message carries the embed and the close button
	welcomes := fx.messenger.sent["ch-new"]
	require.Len(t, welcomes, 1)
	assert.Contains(t, welcomes[0].Content, "welcome")
	require.Len(t, welcomes[0].Embeds, 1)
	assert.Equal(t, "API Key", welcomes[0].Embeds[0].Title)
	closeBtn := firstButton(t, welcomes[0].Components)
	assert.Equal(t, CloseButtonID, closeBtn.CustomID)
	require.NotNil(t, closeBtn.Emoji)
	assert.Equal(t, "\U0001F512", closeBtn.Emoji.Name)

	// ephemeral confirmation pointing at the new channel
	require.Len(t, fx.messenger.responses, 1)
	resp := fx.messenger.responses[0]
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags&discordgo.MessageFlagsEphemeral)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Contains(t, resp.Data.Embeds[0].Description, "created:ch-new")

	// the new channel is visible to the next lookup
	require.Len(t, fx.provider.recached, 1)
	assert.Equal(t, "ch-new", fx.provider.recached[0].ID)
}

func TestCreateWithExistingTicket(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111", "111"))

	ticket, err := fx.service.Create(interaction("support-chan", "111", "alice"), &discordgo.MessageEmbed{}, "Other")
	require.NoError(t, err)

	assert.False(t, ticket.IsNew)
	assert.Equal(t, "ch-open", ticket.Channel)
	assert.Empty(t, fx.messenger.created)

	require.Len(t, fx.messenger.responses, 1)
	resp := fx.messenger.responses[0]
	require.Len(t, resp.Data.Embeds, 1)
	assert.Contains(t, resp.Data.Embeds[0].Description, "existing:ch-open")
}

func TestCloseTicket(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111", "111"))

	err := fx.service.Close(interaction("ch-open", "222", "mod", testModRole))
	require.NoError(t, err)

	// owner loses the view permission
	require.Len(t, fx.messenger.perms, 1)
	perm := fx.messenger.perms[0]
	assert.Equal(t, "ch-open", perm.channelID)
	assert.Equal(t, "111", perm.targetID)
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, perm.targetType)
	assert.Zero(t, perm.allow)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), perm.deny)

	// topic gains the closed marker
	edit := fx.messenger.edits["ch-open"]
	require.NotNil(t, edit)
	assert.Equal(t, "Other-111_CLOSED", edit.Topic)

	// notice with the archive control, visible in the channel
	require.Len(t, fx.messenger.responses, 1)
	resp := fx.messenger.responses[0]
	assert.Zero(t, resp.Data.Flags&discordgo.MessageFlagsEphemeral)
	assert.Equal(t, ArchiveButtonID, firstButton(t, resp.Data.Components).CustomID)
}

func TestCloseAlreadyClosed(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111_CLOSED", "111"))

	err := fx.service.Close(interaction("ch-open", "222", "mod", testModRole))
	msg, ok := AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "already closed", msg)
	assert.Empty(t, fx.messenger.perms)
	assert.Empty(t, fx.messenger.edits)
}

func TestCloseWithMalformedTopic(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "someone wiped this", "111"))

	err := fx.service.Close(interaction("ch-open", "222", "mod", testModRole))
	msg, ok := AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "cannot determine owner", msg)
}

func TestArchiveRequiresModRole(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111_CLOSED", "111"))

	err := fx.service.Archive(interaction("ch-open", "111", "alice"))
	msg, ok := AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "not authorized", msg)
	assert.Empty(t, fx.messenger.deleted)
}

func TestArchiveRequiresClosedTicket(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111", "111"))

	err := fx.service.Archive(interaction("ch-open", "222", "mod", testModRole))
	msg, ok := AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "must close first", msg)
	assert.Empty(t, fx.messenger.deleted)
}

func TestArchiveFlow(t *testing.T) {
	fx := newServiceFixture(t, ticketChannel("ch-open", "Other-111_CLOSED", "111"))

	err := fx.service.Archive(interaction("ch-open", "222", "mod", testModRole))
	require.NoError(t, err)

	// acknowledged before the export
	require.Len(t, fx.messenger.responses, 1)
	assert.Contains(t, fx.messenger.responses[0].Data.Embeds[0].Description, "archiving")

	// transcript bundle lands in the mod log channel
	uploads := fx.history.uploads[testLogChan]
	require.Len(t, uploads, 1)
	assert.Contains(t, uploads[0].Content, "summary Other-111_CLOSED")
	require.Len(t, uploads[0].Files, 1)

	// ledger row written, channel gone
	require.Len(t, fx.ledger.records, 1)
	rec := fx.ledger.records[0]
	assert.Equal(t, testGuild, rec.GuildID)
	assert.Equal(t, "ch-open", rec.ChannelID)
	assert.Equal(t, "111", rec.OwnerID)
	assert.Equal(t, "Other", rec.Label)
	assert.Equal(t, "222", rec.ArchivedBy)
	assert.False(t, rec.ArchivedAt.IsZero())

	assert.Equal(t, []string{"ch-open"}, fx.messenger.deleted)
}

func TestAppIDResolvedAtCreateTime(t *testing.T) {
	// the bot's own id is unknown until the session is ready, which can
	// be after the service is built
	messenger := newFakeMessenger()
	provider := &fakeProvider{}
	appID := ""

	svc := NewService(ServiceDeps{
		Messenger:  messenger,
		Directory:  NewDirectory(provider, testCategory),
		Embeds:     embeds.NewBuilder(nil, "", ""),
		Replies:    testReplies(t),
		ModRole:    testModRole,
		CategoryID: testCategory,
		AppID:      func() string { return appID },
	})

	appID = "late-app-id"
	_, err := svc.Create(interaction("support-chan", "111", "alice"), &discordgo.MessageEmbed{}, "Other")
	require.NoError(t, err)

	require.Len(t, messenger.created, 1)
	ids := make([]string, 0, 4)
	for _, ow := range messenger.created[0].data.PermissionOverwrites {
		ids = append(ids, ow.ID)
	}
	assert.Contains(t, ids, "late-app-id")
}

func TestConcurrentCreateMakesOneChannel(t *testing.T) {
	fx := newServiceFixture(t)

	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = fx.service.Create(interaction("support-chan", "111", "alice"), &discordgo.MessageEmbed{}, "Other")
		}()
	}
	<-done
	<-done

	assert.Len(t, fx.messenger.created, 1)
}
