package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/clubmint/allowgate/app/modules/member"
	submissionservice "github.com/clubmint/allowgate/app/modules/submission/application"
	"github.com/clubmint/allowgate/app/modules/tier"
	"github.com/clubmint/allowgate/internal/observability"
)

// Config carries the gateway's connection and authorization settings.
type Config struct {
	Token         string
	ApplicationID string
	// GuildID scopes command registration to one guild when set; empty
	// registers the commands globally.
	GuildID      string
	AdminUserIDs []string
}

// Gateway owns the Discord session: it registers the slash commands and
// routes every interaction into the submission service.
type Gateway struct {
	session  *discordgo.Session
	service  submissionservice.Service
	resolver *member.Resolver
	registry *tier.Registry
	logger   *slog.Logger
	metrics  observability.InteractionMetrics
	cfg      Config
	admins   map[string]struct{}
}

// NewGateway builds the session and wires the interaction handler. The
// connection is not opened until Open is called.
func NewGateway(
	cfg Config,
	service submissionservice.Service,
	registry *tier.Registry,
	logger *slog.Logger,
	metrics observability.InteractionMetrics,
) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	admins := make(map[string]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}

	g := &Gateway{
		session:  session,
		service:  service,
		resolver: member.NewResolver(sessionGuildAPI{session}, logger),
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		admins:   admins,
	}

	session.AddHandler(g.onReady)
	session.AddHandler(g.onInteractionCreate)
	return g, nil
}

// Open connects to the gateway and registers the application commands.
func (g *Gateway) Open(ctx context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	commands := g.commandDefinitions()
	registered, err := g.session.ApplicationCommandBulkOverwrite(g.cfg.ApplicationID, g.cfg.GuildID, commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	scope := "global"
	if g.cfg.GuildID != "" {
		scope = "guild"
	}
	g.logger.InfoContext(ctx, "application commands registered",
		slog.String("scope", scope),
		slog.Int("count", len(registered)),
	)
	return nil
}

// Close tears down the gateway connection.
func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("discord session ready",
		slog.String("username", r.User.Username),
		slog.Int("guilds", len(r.Guilds)),
	)
}

func (g *Gateway) isAdmin(userID string) bool {
	_, ok := g.admins[userID]
	return ok
}

// sessionGuildAPI adapts *discordgo.Session to the resolver's GuildAPI.
// The variadic request options on the session methods keep the session
// from satisfying the interface directly.
type sessionGuildAPI struct {
	session *discordgo.Session
}

func (a sessionGuildAPI) GuildMember(guildID, userID string) (*discordgo.Member, error) {
	return a.session.GuildMember(guildID, userID)
}

func (a sessionGuildAPI) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	return a.session.GuildRoles(guildID)
}
