// Package bot owns the gateway session: connecting, the ready gate,
// presence, and slash-command registration.
package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"hom-bot/config"
)

type Bot struct {
	Session *discordgo.Session
	Config  *config.Config
	ready   chan struct{}
}

func New(cfg *config.Config) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("bot: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return &Bot{
		Session: s,
		Config:  cfg,
		ready:   make(chan struct{}),
	}, nil
}

// Start opens the gateway connection. The ready gate is closed on the
// first Ready event; RegisterCommands waits on it so the application id
// is known.
func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is online", "user", r.User.Username, "guilds", len(r.Guilds))

		err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: string(discordgo.StatusIdle),
			Activities: []*discordgo.Activity{
				{Name: "<#" + b.Config.SupportChannel + ">", Type: discordgo.ActivityTypeWatching},
			},
		})
		if err != nil {
			slog.Warn("Failed to set presence", "error", err)
		}

		select {
		case <-b.ready:
		default:
			close(b.ready)
		}
	})
	return b.Session.Open()
}

func (b *Bot) Stop() {
	_ = b.Session.Close()
}

// RegisterCommands bulk-overwrites the guild's slash commands and
// returns what was registered.
func (b *Bot) RegisterCommands(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	<-b.ready

	appID := b.Session.State.User.ID
	guildID := b.Config.GuildID

	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		slog.Error("Failed to bulk-overwrite commands", "error", err)
		return nil
	}

	slog.Info("Registered slash commands", "count", len(registered), "guild", guildID)
	return registered
}

// CleanupCommands removes every guild command. Used on shutdown when
// the -cleanup flag is set.
func (b *Bot) CleanupCommands() {
	<-b.ready
	appID := b.Session.State.User.ID
	guildID := b.Config.GuildID
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		slog.Error("Failed to clean up commands", "error", err)
		return
	}
	slog.Info("Cleaned up all slash commands")
}

// AppID returns the application's user id once the session is ready.
func (b *Bot) AppID() string {
	<-b.ready
	return b.Session.State.User.ID
}
