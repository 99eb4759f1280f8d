// Package handlers wires interactions from the gateway into the ticket
// services. All routing is explicit: one InteractionCreate listener
// consults a table from component custom id (or command name) to
// handler function, built once at startup.
package handlers

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"hom-bot/embeds"
	"hom-bot/lang"
	"hom-bot/tickets"
)

// HandlerFunc handles one interaction. A returned error is rendered by
// the dispatch guard: user errors become ephemeral replies, everything
// else a generic notice with a reference token.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate) error

// Handlers owns the dispatch tables and the collaborators the handlers
// call into. Construct with New and register via Register.
type Handlers struct {
	service *tickets.Service
	embeds  *embeds.Builder
	replies *lang.Catalog
	modRole string

	components map[string]HandlerFunc
	commands   map[string]HandlerFunc
}

func New(service *tickets.Service, builder *embeds.Builder, replies *lang.Catalog, modRole string) *Handlers {
	h := &Handlers{
		service: service,
		embeds:  builder,
		replies: replies,
		modRole: modRole,
	}

	h.components = map[string]HandlerFunc{
		"support-groups":  h.groupsMenu,
		"support-names":   h.namesMenu,
		"support-patreon": h.patreonTicket,
		"support-api-key": h.ticketButton("API Key", "apikey", "API Key"),
		"support-other":   h.ticketButton("Other", "other", "Other"),

		"support-groups-verify": h.ticketButton("Verify my group", "verifygroup", "Groups → Verify my group"),
		"support-groups-reset":  h.ticketButton("Reset my verification code", "resetgroupverification", "Groups → Reset my verification code"),
		"support-groups-remove": h.ticketButton("Remove me from a group", "removefromgroup", "Groups → Remove me from a group"),
		"support-groups-other":  h.ticketButton("Other", "other", "Groups → Other"),

		"support-names-approve": h.ticketButton("Approve a pending name change", "approvenamechange", "Names → Approve a pending name change"),
		"support-names-review":  h.ticketButton("Review a denied name change", "reviewnamechange", "Names → Review a denied name change"),
		"support-names-delete":  h.ticketButton("Delete name change history", "deletenamechanges", "Names → Delete name change history"),
		"support-names-other":   h.ticketButton("Other", "other", "Names → Other"),

		tickets.CloseButtonID:   h.closeTicket,
		tickets.ArchiveButtonID: h.archiveTicket,
	}

	h.commands = map[string]HandlerFunc{
		"support": h.supportCommand,
	}

	return h
}

// Register binds the single interaction listener to the session.
func (h *Handlers) Register(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" {
			return
		}

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			name := i.ApplicationCommandData().Name
			fn, ok := h.commands[name]
			if !ok {
				slog.Warn("Unknown command", "name", name)
				return
			}
			h.guard(s, i, fn)

		case discordgo.InteractionMessageComponent:
			customID := i.MessageComponentData().CustomID
			fn, ok := h.components[customID]
			if !ok {
				h.guard(s, i, h.inactiveButton)
				return
			}
			h.guard(s, i, fn)
		}
	})
}

// Commands returns the slash commands to register with the guild.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "support",
			Description: "Support related commands.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "send",
					Description: "Send the support embed to a channel.",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "The channel to send the embed to.",
							Required:    true,
						},
					},
				},
			},
		},
	}
}

func (h *Handlers) inactiveButton(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return &tickets.UserError{Message: h.replies.T("button_inactive")}
}
