package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	submissionservice "github.com/clubmint/allowgate/app/modules/submission/application"
	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
	"github.com/clubmint/allowgate/config"
	"github.com/clubmint/allowgate/internal/discord"
	"github.com/clubmint/allowgate/internal/observability"
	"github.com/clubmint/allowgate/internal/sheetsapi"
)

// App owns the wired application: the sheet-backed store, the submission
// service, and the Discord gateway.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Gateway *discord.Gateway
	Store   submissiondb.Store
}

// NewApp initializes the application with the necessary services and
// configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.Observability.LogLevel)
	metrics := observability.NewMetrics()

	registry, err := buildRegistry(cfg.Tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to build tier registry: %w", err)
	}

	client, err := sheetsapi.NewClient(ctx, sheetsapi.Config{
		SpreadsheetID:       cfg.Sheets.SpreadsheetID,
		ServiceAccountEmail: cfg.Sheets.ServiceAccountEmail,
		PrivateKey:          cfg.Sheets.PrivateKey,
		RequestsPerMinute:   cfg.Sheets.RequestsPerMinute,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	store := submissiondb.NewSheetStore(client, logger)
	// Warm up the worksheet layout so the first member interaction does
	// not pay for sheet creation. Upsert repairs the schema on demand, so
	// a failure here is not fatal.
	if err := store.EnsureSchema(ctx); err != nil {
		logger.WarnContext(ctx, "schema warm-up failed, will retry on first submission",
			slog.Any("error", err),
		)
	}

	service := submissionservice.NewSubmissionService(
		store,
		registry,
		logger,
		metrics,
		otel.Tracer("allowgate"),
	)

	gateway, err := discord.NewGateway(discord.Config{
		Token:         cfg.Discord.Token,
		ApplicationID: cfg.Discord.ApplicationID,
		GuildID:       cfg.Discord.GuildID,
		AdminUserIDs:  cfg.Discord.AdminUserIDs,
	}, service, registry, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord gateway: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Gateway: gateway,
		Store:   store,
	}, nil
}

// Run opens the gateway and the optional metrics listener, then blocks
// until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	a.Metrics.Serve(ctx, a.Config.Observability.MetricsAddress, a.Logger)

	if err := a.Gateway.Open(ctx); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "allowgate is running")

	<-ctx.Done()
	return nil
}

// Close tears down the gateway connection.
func (a *App) Close() error {
	return a.Gateway.Close()
}

func buildRegistry(tiers config.TiersConfig) (*tier.Registry, error) {
	toRoleIDs := func(ids []string) []tier.RoleID {
		out := make([]tier.RoleID, len(ids))
		for i, id := range ids {
			out[i] = tier.RoleID(id)
		}
		return out
	}

	return tier.NewRegistry([]tier.Config{
		{
			Tier:        tier.Tier2GTD,
			RoleIDs:     toRoleIDs(tiers.TwoGTD.RoleIDs),
			CommandName: "setup-2gtd",
			ChannelLink: tiers.TwoGTD.ChannelLink,
		},
		{
			Tier:        tier.TierGTD,
			RoleIDs:     toRoleIDs(tiers.GTD.RoleIDs),
			CommandName: "setup-gtd",
			ChannelLink: tiers.GTD.ChannelLink,
		},
		{
			Tier:        tier.TierFCFS,
			RoleIDs:     toRoleIDs(tiers.FCFS.RoleIDs),
			CommandName: "setup-fcfs",
			ChannelLink: tiers.FCFS.ChannelLink,
		},
	}, tier.RoleID(tiers.OverrideRole))
}
