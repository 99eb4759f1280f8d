package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"

	"hom-bot/tickets"
)

// guard runs a handler and turns its failure modes into replies:
// expected user errors become ephemeral notices, command-layer rate
// limits a friendly retry hint, and anything else (including panics) a
// generic "check the logs" message carrying a random reference token
// that is also attached to the log record.
func (h *Handlers) guard(s *discordgo.Session, i *discordgo.InteractionCreate, fn HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			ref := referenceToken()
			slog.Error("Handler panicked", "ref", ref, "panic", r, "stack", string(debug.Stack()))
			h.reportUnhandled(s, i, ref)
		}
	}()

	err := fn(s, i)
	if err == nil {
		return
	}

	if msg, ok := tickets.AsUserError(err); ok {
		respondEmbed(s, i, h.embeds.Error(msg))
		return
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		respondEmbed(s, i, h.embeds.Error(h.replies.T("rate_limited")))
		return
	}

	ref := referenceToken()
	slog.Error("Unhandled error in handler", "ref", ref, "error", err)
	h.reportUnhandled(s, i, ref)
}

func (h *Handlers) reportUnhandled(s *discordgo.Session, i *discordgo.InteractionCreate, ref string) {
	respondEmbed(s, i, h.embeds.Error(h.replies.T("unhandled_error", "ref", ref)))
}

// respondEmbed sends an ephemeral embed reply, falling back to a
// followup when the interaction was already acknowledged.
func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err == nil {
		return nil
	}

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		slog.Error("Failed to deliver reply", "error", err)
	}
	return err
}

func referenceToken() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}
