package tickets

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// ChannelProvider supplies the guild channel list. The cached list is
// read-mostly and owned by the gateway library; entries fetched live are
// defensively re-inserted so later lookups in the same process can hit
// the cache. The cache is not invalidated on external channel deletion.
type ChannelProvider interface {
	CachedChannels(guildID string) []*discordgo.Channel
	FetchChannels(guildID string) ([]*discordgo.Channel, error)
	CacheChannel(ch *discordgo.Channel)
}

// SessionChannels adapts a discordgo session (its state cache plus the
// REST fallback) to the ChannelProvider interface.
type SessionChannels struct {
	Session *discordgo.Session
}

func (p *SessionChannels) CachedChannels(guildID string) []*discordgo.Channel {
	g, err := p.Session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	return g.Channels
}

func (p *SessionChannels) FetchChannels(guildID string) ([]*discordgo.Channel, error) {
	return p.Session.GuildChannels(guildID)
}

func (p *SessionChannels) CacheChannel(ch *discordgo.Channel) {
	_ = p.Session.State.ChannelAdd(ch)
}

// Directory finds ticket channels by scanning the guild channel list.
// Tickets are reconstructed from channel metadata on every lookup; the
// scan is O(channels in the ticket category), which is fine at the
// volume of a single guild's support traffic.
type Directory struct {
	provider   ChannelProvider
	categoryID string
}

func NewDirectory(provider ChannelProvider, categoryID string) *Directory {
	return &Directory{provider: provider, categoryID: categoryID}
}

// FindByOwner returns the open ticket owned by the given user, or
// ErrNoTicket. A channel counts as the user's open ticket when it sits
// in the ticket category and carries a view-allow member overwrite for
// the user. If two such channels exist (a lost race during creation)
// the first in iteration order wins.
func (d *Directory) FindByOwner(guildID, ownerID string) (*Ticket, error) {
	candidates := d.candidates(d.provider.CachedChannels(guildID))
	if len(candidates) == 0 {
		var err error
		if candidates, err = d.fetchCandidates(guildID); err != nil {
			return nil, err
		}
	}

	for _, ch := range candidates {
		if hasViewAllow(ch, ownerID) {
			t := &Ticket{Owner: ownerID, Channel: ch.ID}
			if topic, err := ParseTopic(ch.Topic); err == nil {
				t.Topic = topic
			}
			return t, nil
		}
	}
	return nil, ErrNoTicket
}

// FindByChannel resolves the ticket backed by the given channel,
// decoding the owner from the channel topic. A missing or malformed
// topic yields a LookupError.
func (d *Directory) FindByChannel(guildID, channelID string) (*Ticket, error) {
	candidates := d.candidates(d.provider.CachedChannels(guildID))
	if len(candidates) == 0 {
		var err error
		if candidates, err = d.fetchCandidates(guildID); err != nil {
			return nil, err
		}
	}

	for _, ch := range candidates {
		if ch.ID != channelID {
			continue
		}
		topic, err := ParseTopic(ch.Topic)
		if err != nil {
			return nil, &LookupError{ChannelID: channelID, Err: err}
		}
		return &Ticket{Owner: topic.OwnerID, Channel: ch.ID, Topic: topic}, nil
	}
	return nil, &LookupError{ChannelID: channelID, Err: ErrNoTicket}
}

// Cache inserts a freshly created or edited channel so lookups see it
// before the gateway delivers the corresponding event.
func (d *Directory) Cache(ch *discordgo.Channel) {
	d.provider.CacheChannel(ch)
}

// fetchCandidates is the cold-cache fallback: fetch the live channel
// list, re-filter, and re-insert the results into the shared cache.
func (d *Directory) fetchCandidates(guildID string) ([]*discordgo.Channel, error) {
	slog.Debug("Ticket channel cache empty, fetching live channel list", "guild", guildID)

	channels, err := d.provider.FetchChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("tickets: fetch guild channels: %w", err)
	}
	for _, ch := range channels {
		d.provider.CacheChannel(ch)
	}
	return d.candidates(channels), nil
}

func (d *Directory) candidates(channels []*discordgo.Channel) []*discordgo.Channel {
	var out []*discordgo.Channel
	for _, ch := range channels {
		if ch.ParentID == d.categoryID && ch.Type == discordgo.ChannelTypeGuildText {
			out = append(out, ch)
		}
	}
	return out
}

func hasViewAllow(ch *discordgo.Channel, userID string) bool {
	for _, ow := range ch.PermissionOverwrites {
		if ow.Type == discordgo.PermissionOverwriteTypeMember &&
			ow.ID == userID &&
			ow.Allow&discordgo.PermissionViewChannel != 0 {
			return true
		}
	}
	return false
}
