// Package embeds builds the display objects the bot sends: plain
// info/error/success notices and the templated support embeds.
package embeds

import (
	"github.com/bwmarrin/discordgo"

	"hom-bot/templates"
)

// Embed sidebar colors.
const (
	ColorInfo    = 0x206694
	ColorError   = 0xFF2B1C
	ColorSuccess = 0x27E65A
)

// Template sections used as embed footers.
const (
	FooterReminder = "reminder"
	FooterPrivate  = "private"
)

// Builder combines titles, populated template bodies and footers into
// embeds. It holds no session state; building is pure formatting.
type Builder struct {
	store            *templates.Store
	questionsChannel string
	patreonChannel   string
}

func NewBuilder(store *templates.Store, questionsChannel, patreonChannel string) *Builder {
	return &Builder{store: store, questionsChannel: questionsChannel, patreonChannel: patreonChannel}
}

// Build resolves the body and footer sections and returns the embed.
// The only error path is a missing template.
func (b *Builder) Build(title, bodySection, footerSection string) (*discordgo.MessageEmbed, error) {
	body, err := b.store.Get(bodySection)
	if err != nil {
		return nil, err
	}
	footer, err := b.store.Get(footerSection)
	if err != nil {
		return nil, err
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: body.Content,
		Color:       ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer.Content},
	}, nil
}

func (b *Builder) message(title, message string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: message, Color: color}
}

func (b *Builder) Info(message string) *discordgo.MessageEmbed {
	return b.message("Info", message, ColorInfo)
}

func (b *Builder) Error(message string) *discordgo.MessageEmbed {
	return b.message("Error", message, ColorError)
}

func (b *Builder) Success(message string) *discordgo.MessageEmbed {
	return b.message("Success", message, ColorSuccess)
}
