package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/clubmint/allowgate/app/modules/tier"
)

const (
	statsCommandName  = "stats"
	exportCommandName = "export"
)

// Component and modal custom IDs carry the target tier as a suffix so a
// single handler serves all three entry points.
const (
	submitButtonPrefix = "submit_wallet_"
	statusButtonPrefix = "check_status_"
	walletModalPrefix  = "wallet_modal_"
	walletInputID      = "wallet_address"
)

func submitButtonID(t tier.Tier) string { return submitButtonPrefix + string(t) }
func statusButtonID(t tier.Tier) string { return statusButtonPrefix + string(t) }
func walletModalID(t tier.Tier) string  { return walletModalPrefix + string(t) }

// tierFromCustomID strips prefix from customID and validates the
// remainder as a tier.
func tierFromCustomID(customID, prefix string) (tier.Tier, bool) {
	suffix, found := strings.CutPrefix(customID, prefix)
	if !found {
		return "", false
	}
	t := tier.Tier(suffix)
	return t, t.IsValid()
}

func (g *Gateway) commandDefinitions() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)

	commands := make([]*discordgo.ApplicationCommand, 0, len(tier.TiersByPriority)+2)
	for _, t := range tier.TiersByPriority {
		cfg, ok := g.registry.Config(t)
		if !ok {
			continue
		}
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:                     cfg.CommandName,
			Description:              fmt.Sprintf("Post the %s wallet submission message in this channel", t),
			DefaultMemberPermissions: &adminOnly,
		})
	}

	commands = append(commands,
		&discordgo.ApplicationCommand{
			Name:                     statsCommandName,
			Description:              "DM the submission statistics to the configured admins",
			DefaultMemberPermissions: &adminOnly,
		},
		&discordgo.ApplicationCommand{
			Name:                     exportCommandName,
			Description:              "DM a spreadsheet export of every submission",
			DefaultMemberPermissions: &adminOnly,
		},
	)
	return commands
}
