package embeds

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Support categories shown in the support embed. The arrow separates
// the button label from its description.
const (
	CategoryGroups  = "Groups → Assistance related to groups"
	CategoryNames   = "Name Changes → Assistance related to name changes"
	CategoryPatreon = "Patreon → Request help with Patreon benefits"
	CategoryAPIKey  = "API Key → Request an API key for development"
	CategoryOther   = "Other → For all other inquiries"
)

// Per-category request types listed under their category.
const (
	TypeVerifyGroup       = "Verify my group (for groups with 50+ members)"
	TypeResetVerification = "Reset my verification code"
	TypeRemoveFromGroup   = "Remove me from a group"
	TypeApproveNameChange = "Approve a pending name change"
	TypeReviewNameChange  = "Review a denied name change"
	TypeDeleteNameChanges = "Delete my name change history"
	TypeOther             = "Other"
)

const supportTitle = "Need help from one of our moderators?"

// Support returns the embed posted with the support buttons. The first
// call populates the support template: the {{categories}} marker becomes
// the category listing and {{questions-channel}} becomes the configured
// questions channel id. Population is one-shot, so later calls reuse
// the substituted content.
func (b *Builder) Support() (*discordgo.MessageEmbed, error) {
	err := b.store.Populate("support", map[string]string{
		"categories":        categoriesListing(),
		"questions-channel": b.questionsChannel,
	})
	if err != nil {
		return nil, err
	}
	return b.Build(supportTitle, "support", FooterReminder)
}

// Patreon returns the embed posted in a new Patreon ticket, populating
// the {{patreon-channel}} marker on first use.
func (b *Builder) Patreon() (*discordgo.MessageEmbed, error) {
	err := b.store.Populate("patreon", map[string]string{
		"patreon-channel": b.patreonChannel,
	})
	if err != nil {
		return nil, err
	}
	return b.Build("Patreon", "patreon", FooterPrivate)
}

// categoriesListing renders each category with its request types
// indented below it.
func categoriesListing() string {
	sections := [][]string{
		{CategoryGroups, TypeVerifyGroup, TypeResetVerification, TypeRemoveFromGroup, TypeOther},
		{CategoryNames, TypeApproveNameChange, TypeDeleteNameChanges, TypeOther},
		{CategoryPatreon},
		{CategoryAPIKey},
		{CategoryOther},
	}

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, strings.Join(s, "\n- "))
	}
	return strings.Join(parts, "\n\n")
}
