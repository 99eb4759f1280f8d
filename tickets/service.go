package tickets

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"hom-bot/archive"
	"hom-bot/embeds"
	"hom-bot/events"
	"hom-bot/lang"
	"hom-bot/storage"
)

// Messenger is the slice of the discordgo session the lifecycle
// controller needs. *discordgo.Session satisfies it.
type Messenger interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Custom IDs for the ticket control buttons.
const (
	CloseButtonID   = "ticket-close"
	ArchiveButtonID = "ticket-archive"
)

// ServiceDeps are the collaborators a Service needs. Everything is
// constructed once at startup and passed in explicitly.
type ServiceDeps struct {
	Messenger Messenger
	Directory *Directory
	Embeds    *embeds.Builder
	Replies   *lang.Catalog
	Exporter  *archive.Exporter
	Ledger    storage.Database
	Publisher *events.Publisher

	ModRole    string
	CategoryID string

	// AppID resolves the bot's own user id. It is a function because
	// handlers are wired before the gateway session is ready; the id is
	// only needed (and known) once interactions start arriving.
	AppID func() string
}

// Service orchestrates the ticket state machine:
//
//	NONE -> OPEN -> CLOSED -> (deleted)
//
// Creation makes the backing channel, closing revokes the owner's view
// permission and marks the topic, archival exports the history and
// deletes the channel.
type Service struct {
	deps        ServiceDeps
	createLocks keyedMutex
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// Create opens a ticket for the interaction's member, or points them at
// their existing open one. The per-(guild,owner) lock closes the window
// where two rapid clicks both observe "no ticket" and create twice.
func (s *Service) Create(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, label string) (*Ticket, error) {
	user := i.Member.User

	unlock := s.createLocks.lock(i.GuildID + ":" + user.ID)
	defer unlock()

	t, err := s.deps.Directory.FindByOwner(i.GuildID, user.ID)
	if err == nil {
		reply := s.deps.Replies.T("ticket_exists", "channel", t.Channel)
		return t, s.respondEmbed(i, s.deps.Embeds.Info(reply))
	}
	if !errors.Is(err, ErrNoTicket) {
		return nil, err
	}

	topic := Topic{Label: label, OwnerID: user.ID}
	ch, err := s.deps.Messenger.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(user.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic.Encode(),
		ParentID:             s.deps.CategoryID,
		PermissionOverwrites: s.overwrites(i.GuildID, user.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("tickets: create channel: %w", err)
	}
	s.deps.Directory.Cache(ch)

	// No rollback from here on: a failed welcome post or response
	// leaves the channel behind for a moderator to clean up.
	_, err = s.deps.Messenger.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content:    s.deps.Replies.T("ticket_welcome", "user", user.Mention(), "mod_role", s.deps.ModRole),
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{buttonRow("Close", "\U0001F512", CloseButtonID)},
	})
	if err != nil {
		return nil, fmt.Errorf("tickets: post welcome message: %w", err)
	}

	reply := s.deps.Replies.T("ticket_created", "channel", ch.ID)
	if err := s.respondEmbed(i, s.deps.Embeds.Success(reply)); err != nil {
		return nil, err
	}

	s.deps.Publisher.Publish(events.TicketEvent{
		Kind:      events.TicketCreated,
		GuildID:   i.GuildID,
		ChannelID: ch.ID,
		OwnerID:   user.ID,
		ActorID:   user.ID,
		Label:     label,
	})

	slog.Info("Ticket created", "channel", ch.ID, "owner", user.ID, "label", label)
	return &Ticket{Owner: user.ID, Channel: ch.ID, Topic: topic, IsNew: true}, nil
}

// Close transitions the invoking channel's ticket from OPEN to CLOSED:
// the owner loses the view permission, the topic gains the closed
// marker, and a closed notice with an archive control is posted.
// Closing an already-closed ticket is reported as a user error, not
// retried.
func (s *Service) Close(i *discordgo.InteractionCreate) error {
	t, err := s.lookup(i)
	if err != nil {
		return err
	}
	if t.Topic.Closed {
		return &UserError{Message: s.deps.Replies.T("already_closed")}
	}

	err = s.deps.Messenger.ChannelPermissionSet(
		t.Channel, t.Owner, discordgo.PermissionOverwriteTypeMember,
		0, discordgo.PermissionViewChannel,
	)
	if err != nil {
		return fmt.Errorf("tickets: revoke owner view: %w", err)
	}

	closed := t.Topic
	closed.Closed = true
	edited, err := s.deps.Messenger.ChannelEditComplex(t.Channel, &discordgo.ChannelEdit{
		Topic: closed.Encode(),
	})
	if err != nil {
		return fmt.Errorf("tickets: mark topic closed: %w", err)
	}
	s.deps.Directory.Cache(edited)

	actor := i.Member.User
	notice := s.deps.Embeds.Info(s.deps.Replies.T("closed_notice", "user", actor.Mention()))
	err = s.deps.Messenger.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{notice},
			Components: []discordgo.MessageComponent{buttonRow("Archive Ticket", "❌", ArchiveButtonID)},
		},
	})
	if err != nil {
		return err
	}

	s.deps.Publisher.Publish(events.TicketEvent{
		Kind:      events.TicketClosed,
		GuildID:   i.GuildID,
		ChannelID: t.Channel,
		OwnerID:   t.Owner,
		ActorID:   actor.ID,
		Label:     t.Topic.Label,
	})

	slog.Info("Ticket closed", "channel", t.Channel, "owner", t.Owner, "by", actor.ID)
	return nil
}

// Archive exports a closed ticket's history to the mod log, records it
// in the ledger, and deletes the channel. Terminal.
func (s *Service) Archive(i *discordgo.InteractionCreate) error {
	actor := i.Member.User
	if !hasRole(i.Member, s.deps.ModRole) {
		return &UserError{Message: s.deps.Replies.T("not_authorized")}
	}

	t, err := s.lookup(i)
	if err != nil {
		return err
	}
	if !t.Topic.Closed {
		return &UserError{Message: s.deps.Replies.T("must_close_first")}
	}

	// Acknowledge before the export: walking the history can outlive
	// the interaction token's response window.
	err = s.respondEmbed(i, s.deps.Embeds.Info(s.deps.Replies.T("archiving")))
	if err != nil {
		return err
	}

	summary := s.deps.Replies.T("archive_summary",
		"topic", t.Topic.Encode(), "user", actor.Mention())
	res, err := s.deps.Exporter.Export(t.Channel, actor.Username, summary)
	if err != nil {
		return err
	}

	if s.deps.Ledger != nil {
		err := s.deps.Ledger.RecordArchive(storage.ArchiveRecord{
			GuildID:     i.GuildID,
			ChannelID:   t.Channel,
			OwnerID:     t.Owner,
			Label:       t.Topic.Label,
			ArchivedBy:  actor.ID,
			Messages:    res.Messages,
			Attachments: res.Attachments,
			Transcript:  res.Transcript,
			ArchivedAt:  time.Now(),
		})
		if err != nil {
			slog.Error("Failed to record archive", "channel", t.Channel, "error", err)
		}
	}

	s.deps.Publisher.Publish(events.TicketEvent{
		Kind:      events.TicketArchived,
		GuildID:   i.GuildID,
		ChannelID: t.Channel,
		OwnerID:   t.Owner,
		ActorID:   actor.ID,
		Label:     t.Topic.Label,
	})

	if _, err := s.deps.Messenger.ChannelDelete(t.Channel); err != nil {
		return fmt.Errorf("tickets: delete channel: %w", err)
	}

	slog.Info("Ticket archived", "channel", t.Channel, "owner", t.Owner,
		"messages", res.Messages, "attachments", res.Attachments, "by", actor.ID)
	return nil
}

// lookup resolves the ticket for the invoking channel, folding lookup
// failures into the generic "can't determine owner" user error.
func (s *Service) lookup(i *discordgo.InteractionCreate) (*Ticket, error) {
	t, err := s.deps.Directory.FindByChannel(i.GuildID, i.ChannelID)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) {
			slog.Error("Cannot determine ticket owner", "channel", le.ChannelID, "error", le.Err)
			return nil, &UserError{Message: s.deps.Replies.T("cannot_determine_owner")}
		}
		return nil, err
	}
	return t, nil
}

// overwrites builds the permission set for a new ticket channel: the
// owner, the mod role and the bot see it; everyone else loses view but
// keeps history/attachment/reaction/embed bits so reopened access shows
// the full conversation.
func (s *Service) overwrites(guildID, ownerID string) []*discordgo.PermissionOverwrite {
	everyoneKeeps := int64(discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionAddReactions |
		discordgo.PermissionEmbedLinks)

	return []*discordgo.PermissionOverwrite{
		{
			ID:   guildID, // @everyone carries the guild id
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel, Allow: everyoneKeeps,
		},
		{
			ID:    s.deps.ModRole,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
		},
		{
			ID:    s.deps.AppID(),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		},
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		},
	}
}

func (s *Service) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.deps.Messenger.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func buttonRow(label, emoji, customID string) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    label,
				Style:    discordgo.PrimaryButton,
				CustomID: customID,
				Emoji:    &discordgo.ComponentEmoji{Name: emoji},
			},
		},
	}
}

func channelName(username string) string {
	name := strings.ToLower(strings.ReplaceAll(username, " ", "-"))
	return "ticket-" + name
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// keyedMutex hands out one mutex per key. Entries are never evicted;
// the key space is bounded by the guild's distinct ticket openers.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
