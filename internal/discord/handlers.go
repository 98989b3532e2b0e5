package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	submissionservice "github.com/clubmint/allowgate/app/modules/submission/application"
	"github.com/clubmint/allowgate/app/modules/tier"
)

const (
	outcomeOK       = "ok"
	outcomeBlocked  = "blocked"
	outcomeRejected = "rejected"
	outcomeDenied   = "denied"
	outcomeError    = "error"
	outcomeIgnored  = "ignored"
)

// onInteractionCreate routes every interaction. A recovered panic or an
// unhandled error degrades to one generic ephemeral message; raw errors
// never reach the member.
func (g *Gateway) onInteractionCreate(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx := context.Background()
	rsp := newResponder(s, ic)
	kind := interactionKind(ic)

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic in interaction handler",
				slog.String("kind", kind),
				slog.Any("panic", r),
			)
			g.metrics.RecordInteraction(ctx, kind, outcomeError)
			if err := rsp.failGeneric(); err != nil {
				g.logger.Error("failed to deliver failure message", slog.Any("error", err))
			}
		}
	}()

	var outcome string
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		outcome = g.handleCommand(ctx, rsp, ic)
	case discordgo.InteractionMessageComponent:
		outcome = g.handleComponent(ctx, rsp, ic)
	case discordgo.InteractionModalSubmit:
		outcome = g.handleModal(ctx, rsp, ic)
	default:
		outcome = outcomeIgnored
	}
	g.metrics.RecordInteraction(ctx, kind, outcome)
}

func interactionKind(ic *discordgo.InteractionCreate) string {
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		return "command:" + ic.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return "component:" + componentKind(ic.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		return "modal:wallet"
	}
	return "unknown"
}

func componentKind(customID string) string {
	switch {
	case strings.HasPrefix(customID, submitButtonPrefix):
		return "submit"
	case strings.HasPrefix(customID, statusButtonPrefix):
		return "status"
	}
	return "unknown"
}

func (g *Gateway) handleCommand(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	name := ic.ApplicationCommandData().Name
	switch name {
	case statsCommandName:
		return g.handleStats(ctx, rsp, ic)
	case exportCommandName:
		return g.handleExport(ctx, rsp, ic)
	}
	if cfg, ok := g.registry.ByCommand(name); ok {
		return g.handleSetup(rsp, ic, cfg)
	}
	g.logger.Warn("unknown command", slog.String("name", name))
	return outcomeIgnored
}

func (g *Gateway) handleComponent(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	customID := ic.MessageComponentData().CustomID
	if t, ok := tierFromCustomID(customID, submitButtonPrefix); ok {
		return g.handleSubmitButton(ctx, rsp, ic, t)
	}
	if _, ok := tierFromCustomID(customID, statusButtonPrefix); ok {
		return g.handleCheckStatus(ctx, rsp, ic)
	}
	g.logger.Warn("unknown component", slog.String("custom_id", customID))
	return outcomeIgnored
}

func (g *Gateway) handleModal(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	data := ic.ModalSubmitData()
	t, ok := tierFromCustomID(data.CustomID, walletModalPrefix)
	if !ok {
		g.logger.Warn("unknown modal", slog.String("custom_id", data.CustomID))
		return outcomeIgnored
	}
	return g.handleWalletModal(ctx, rsp, ic, t)
}

// handleSetup posts the tier's entry-point message into the invoking
// channel.
func (g *Gateway) handleSetup(rsp replier, ic *discordgo.InteractionCreate, cfg tier.Config) string {
	embed, components := setupMessage(cfg.Tier)
	_, err := g.session.ChannelMessageSendComplex(ic.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		g.logger.Error("failed to post setup message",
			slog.String("channel_id", ic.ChannelID),
			slog.Any("error", err),
		)
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	g.reply(rsp, fmt.Sprintf("✅ %s submission message posted.", cfg.Tier))
	return outcomeOK
}

// handleSubmitButton checks eligibility before opening the wallet modal.
// The modal must be the first response, so everything here happens inside
// the initial 3-second window.
func (g *Gateway) handleSubmitButton(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate, t tier.Tier) string {
	userID := invokerID(ic)
	roles, source := g.resolver.RoleSet(ic)
	g.logger.Debug("resolved roles for submit button",
		slog.String("user_id", userID),
		slog.String("source", source.String()),
		slog.Int("count", len(roles)),
	)

	result, err := g.service.PrepareSubmission(ctx, userID, roles, t)
	if err != nil {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	if blocked, ok := result.Failure.(submissionservice.SubmitBlocked); ok {
		g.reply(rsp, blockedMessage(blocked))
		return outcomeBlocked
	}

	ticket, ok := result.Success.(submissionservice.SubmissionTicket)
	if !ok {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	// The label must resolve before the member types a wallet; aborting
	// here is cheaper than after the modal round trip.
	if _, ok := g.roleLabel(ic.GuildID, roles, ticket.Decision); !ok {
		g.reply(rsp, "⚠️ Could not verify your role. Please try again in a moment.")
		return outcomeError
	}

	if err := rsp.modal(walletModal(t)); err != nil {
		g.logger.Error("failed to open wallet modal", slog.Any("error", err))
		return outcomeError
	}
	return outcomeOK
}

// handleWalletModal commits a submission. Roles and the display label are
// resolved fresh; nothing from the button step is trusted.
func (g *Gateway) handleWalletModal(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate, t tier.Tier) string {
	if err := rsp.deferEphemeral(); err != nil {
		g.logger.Error("failed to defer modal response", slog.Any("error", err))
		return outcomeError
	}

	userID := invokerID(ic)
	roles, _ := g.resolver.RoleSet(ic)

	label := ""
	if decision := g.registry.CanSubmit(roles, t); decision.Allowed {
		var ok bool
		if label, ok = g.roleLabel(ic.GuildID, roles, decision); !ok {
			g.reply(rsp, "⚠️ Could not verify your role. Please try again in a moment.")
			return outcomeError
		}
	}

	result, err := g.service.SubmitWallet(ctx, submissionservice.SubmitRequest{
		UserID:    userID,
		Username:  invokerName(ic),
		RoleLabel: label,
		Roles:     roles,
		Target:    t,
		Wallet:    strings.TrimSpace(walletFromModal(ic.ModalSubmitData())),
	})
	if err != nil {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}

	switch payload := result.Failure.(type) {
	case submissionservice.SubmitBlocked:
		g.reply(rsp, blockedMessage(payload))
		return outcomeBlocked
	case submissionservice.WalletRejected:
		g.reply(rsp, walletRejectedMessage(payload))
		return outcomeRejected
	}

	accepted, ok := result.Success.(submissionservice.SubmitAccepted)
	if !ok {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	g.reply(rsp, acceptedMessage(accepted, label))
	return outcomeOK
}

func (g *Gateway) handleCheckStatus(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	if err := rsp.deferEphemeral(); err != nil {
		g.logger.Error("failed to defer status response", slog.Any("error", err))
		return outcomeError
	}

	result, err := g.service.CheckStatus(ctx, invokerID(ic))
	if err != nil {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	if _, ok := result.Failure.(submissionservice.NoSubmissions); ok {
		g.reply(rsp, noSubmissionsMessage())
		return outcomeOK
	}

	report, ok := result.Success.(submissionservice.StatusReport)
	if !ok {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	g.reply(rsp, statusMessage(report))
	return outcomeOK
}

// handleStats aggregates and DMs the report to every configured admin.
// When no DM can be delivered the report lands in the ephemeral reply so
// the invoking admin still sees it.
func (g *Gateway) handleStats(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	userID := invokerID(ic)
	if !g.isAdmin(userID) {
		g.reply(rsp, "❌ You are not authorized to use this command.")
		return outcomeDenied
	}
	if err := rsp.deferEphemeral(); err != nil {
		g.logger.Error("failed to defer stats response", slog.Any("error", err))
		return outcomeError
	}

	result, err := g.service.Statistics(ctx)
	if err != nil {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	report, ok := result.Success.(submissionservice.StatsReport)
	if !ok {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}

	content := statsMessage(report)
	var chartPNG []byte
	if chart, err := submissionservice.GenerateStatsChart(report.Stats); err != nil {
		// The textual report is still worth delivering.
		g.logger.Warn("failed to render stats chart", slog.Any("error", err))
	} else {
		chartPNG = chart
	}
	// Readers are single-use; each send gets a fresh attachment.
	chartAttachment := func() *discordgo.File {
		if chartPNG == nil {
			return nil
		}
		return &discordgo.File{
			Name:        "submissions.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(chartPNG),
		}
	}

	delivered := 0
	for adminID := range g.admins {
		if g.directMessage(adminID, content, chartAttachment()) {
			delivered++
		}
	}

	if delivered == 0 {
		if attachment := chartAttachment(); attachment != nil {
			g.replyFile(rsp, content, attachment)
		} else {
			g.reply(rsp, content)
		}
		return outcomeOK
	}
	g.reply(rsp, fmt.Sprintf("📊 Statistics sent via DM to %d admin(s).", delivered))
	return outcomeOK
}

// handleExport DMs the workbook to the invoking admin.
func (g *Gateway) handleExport(ctx context.Context, rsp replier, ic *discordgo.InteractionCreate) string {
	userID := invokerID(ic)
	if !g.isAdmin(userID) {
		g.reply(rsp, "❌ You are not authorized to use this command.")
		return outcomeDenied
	}
	if err := rsp.deferEphemeral(); err != nil {
		g.logger.Error("failed to defer export response", slog.Any("error", err))
		return outcomeError
	}

	result, err := g.service.ExportWorkbook(ctx)
	if err != nil {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}
	file, ok := result.Success.(submissionservice.ExportFile)
	if !ok {
		g.reply(rsp, genericFailureMessage)
		return outcomeError
	}

	attachment := func() *discordgo.File {
		return &discordgo.File{
			Name:        file.Filename,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Reader:      bytes.NewReader(file.Content),
		}
	}
	if g.directMessage(userID, "📦 Allowlist export attached.", attachment()) {
		g.reply(rsp, "📦 Export sent via DM.")
		return outcomeOK
	}

	g.replyFile(rsp, "📦 Could not DM you; export attached here instead.", attachment())
	return outcomeOK
}

// directMessage opens a DM channel and sends content with an optional
// attachment; delivery failures are logged, not surfaced.
func (g *Gateway) directMessage(userID, content string, file *discordgo.File) bool {
	channel, err := g.session.UserChannelCreate(userID)
	if err != nil {
		g.logger.Warn("failed to open DM channel",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}

	msg := &discordgo.MessageSend{Content: content}
	if file != nil {
		msg.Files = []*discordgo.File{file}
	}
	if _, err := g.session.ChannelMessageSendComplex(channel.ID, msg); err != nil {
		g.logger.Warn("failed to deliver DM",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// roleLabel resolves the display label for the member's decision: the
// matching role from the label tier's configured list, named via the
// guild's live role list.
func (g *Gateway) roleLabel(guildID string, roles tier.RoleSet, decision tier.Decision) (string, bool) {
	roleID, ok := g.registry.MatchingRole(roles, decision.LabelTier)
	if !ok {
		return "", false
	}
	return g.resolver.RoleLabel(guildID, roleID)
}

// reply delivers content and logs delivery failures.
func (g *Gateway) reply(rsp replier, content string) {
	if err := rsp.replyEphemeral(content); err != nil {
		g.logger.Error("failed to deliver reply", slog.Any("error", err))
	}
}

func (g *Gateway) replyFile(rsp replier, content string, file *discordgo.File) {
	if err := rsp.replyEphemeralFile(content, file); err != nil {
		g.logger.Error("failed to deliver reply", slog.Any("error", err))
	}
}

func walletFromModal(data discordgo.ModalSubmitInteractionData) string {
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok && input.CustomID == walletInputID {
				return input.Value
			}
		}
	}
	return ""
}

func invokerID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}

func invokerName(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.Username
	}
	if ic.User != nil {
		return ic.User.Username
	}
	return ""
}
