package handlers

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"hom-bot/embeds"
	"hom-bot/tickets"
)

// supportCommand handles /support send <channel>: posts the support
// embed with its ticket buttons. Mods only.
func (h *Handlers) supportCommand(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if !memberHasRole(i.Member, h.modRole) {
		return &tickets.UserError{Message: h.replies.T("not_allowed")}
	}

	sub := i.ApplicationCommandData().Options[0]
	if sub.Name != "send" {
		return &tickets.UserError{Message: h.replies.T("button_inactive")}
	}

	channelID := sub.Options[0].ChannelValue(nil).ID

	embed, err := h.embeds.Support()
	if err != nil {
		return err
	}

	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{supportButtons()},
	})
	if err != nil {
		return fmt.Errorf("handlers: send support embed: %w", err)
	}

	jump := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", i.GuildID, channelID, msg.ID)
	slog.Debug("Support embed sent", "mod", i.Member.User.ID, "channel", channelID)
	return respondEmbed(s, i, h.embeds.Success(h.replies.T("support_sent", "link", jump)))
}

// groupsMenu answers the Groups button with an ephemeral set of
// group-specific ticket buttons.
func (h *Handlers) groupsMenu(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.ephemeralMenu(s, i, discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			blueButton("Verify my group", "support-groups-verify"),
			blueButton("Reset my verification code", "support-groups-reset"),
			blueButton("Remove me from a group", "support-groups-remove"),
			blueButton("Other", "support-groups-other"),
		},
	})
}

// namesMenu answers the Name Changes button with the name-change
// ticket buttons.
func (h *Handlers) namesMenu(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.ephemeralMenu(s, i, discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			blueButton("Approve a pending name change", "support-names-approve"),
			blueButton("Review a denied name change", "support-names-review"),
			blueButton("Delete name change history", "support-names-delete"),
			blueButton("Other", "support-names-other"),
		},
	})
}

// ticketButton returns a handler that opens (or points at) a ticket
// using the given embed title, template section and topic label.
func (h *Handlers) ticketButton(title, section, label string) HandlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		embed, err := h.embeds.Build(title, section, embeds.FooterPrivate)
		if err != nil {
			return err
		}
		_, err = h.service.Create(i, embed, label)
		return err
	}
}

// patreonTicket is the one ticket button with extra population: the
// embed points at the Patreon channel.
func (h *Handlers) patreonTicket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	embed, err := h.embeds.Patreon()
	if err != nil {
		return err
	}
	_, err = h.service.Create(i, embed, "Patreon")
	return err
}

func (h *Handlers) closeTicket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.service.Close(i)
}

func (h *Handlers) archiveTicket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return h.service.Archive(i)
}

func (h *Handlers) ephemeralMenu(s *discordgo.Session, i *discordgo.InteractionCreate, row discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    h.replies.T("assistance_prompt"),
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{row},
		},
	})
}

func supportButtons() discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			greenButton("Groups", "support-groups"),
			greenButton("Name Changes", "support-names"),
			greenButton("Patreon", "support-patreon"),
			greenButton("API Key", "support-api-key"),
			greenButton("Other", "support-other"),
		},
	}
}

func greenButton(label, customID string) discordgo.Button {
	return discordgo.Button{Label: label, Style: discordgo.SuccessButton, CustomID: customID}
}

func blueButton(label, customID string) discordgo.Button {
	return discordgo.Button{Label: label, Style: discordgo.PrimaryButton, CustomID: customID}
}

func memberHasRole(member *discordgo.Member, roleID string) bool {
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
