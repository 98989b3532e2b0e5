package member

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/clubmint/allowgate/app/modules/tier"
)

// GuildAPI is the narrow slice of the Discord guild API the resolver
// needs. *discordgo.Session is adapted to it by the gateway; tests supply
// fakes.
type GuildAPI interface {
	GuildMember(guildID, userID string) (*discordgo.Member, error)
	GuildRoles(guildID string) ([]*discordgo.Role, error)
}

// Source records which path produced a role set, so callers can tell the
// fast path from the fallback fetch from a failed resolution.
type Source int

const (
	// SourceInteraction means the roles came from the member snapshot
	// already attached to the interaction payload.
	SourceInteraction Source = iota
	// SourceFetched means the snapshot was absent and a full member fetch
	// supplied the roles.
	SourceFetched
	// SourceUnavailable means both paths failed; the returned set is
	// empty and the policy engine will treat the member as ineligible.
	SourceUnavailable
)

func (s Source) String() string {
	switch s {
	case SourceInteraction:
		return "interaction"
	case SourceFetched:
		return "fetched"
	case SourceUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Resolver derives role sets and role display labels for guild members.
// It holds no state; every call reflects the member's roles at that
// moment.
type Resolver struct {
	api    GuildAPI
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(api GuildAPI, logger *slog.Logger) *Resolver {
	return &Resolver{api: api, logger: logger}
}

// RoleSet returns the member's current roles for the interaction. The
// snapshot on the interaction payload is preferred; if it is missing, the
// resolver performs exactly one member fetch. When both fail the set is
// empty: the caller never gains access it cannot prove.
func (r *Resolver) RoleSet(ic *discordgo.InteractionCreate) (tier.RoleSet, Source) {
	if ic.GuildID == "" {
		return tier.RoleSet{}, SourceUnavailable
	}

	if ic.Member != nil && ic.Member.Roles != nil {
		return tier.NewRoleSet(ic.Member.Roles...), SourceInteraction
	}

	userID := interactionUserID(ic)
	if userID == "" {
		return tier.RoleSet{}, SourceUnavailable
	}

	m, err := r.api.GuildMember(ic.GuildID, userID)
	if err != nil {
		r.logger.Warn("member fetch failed, treating member as roleless",
			slog.String("guild_id", ic.GuildID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return tier.RoleSet{}, SourceUnavailable
	}
	return tier.NewRoleSet(m.Roles...), SourceFetched
}

// RoleLabel resolves a role ID to its display name. The second return is
// false when the role no longer exists or the lookup fails; callers abort
// the flow with a retry prompt rather than substituting a tier name.
func (r *Resolver) RoleLabel(guildID string, roleID tier.RoleID) (string, bool) {
	roles, err := r.api.GuildRoles(guildID)
	if err != nil {
		r.logger.Warn("role list fetch failed",
			slog.String("guild_id", guildID),
			slog.String("role_id", string(roleID)),
			slog.Any("error", err),
		)
		return "", false
	}
	for _, role := range roles {
		if role.ID == string(roleID) {
			return role.Name, true
		}
	}
	return "", false
}

func interactionUserID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}
