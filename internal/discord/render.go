package discord

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	submissionservice "github.com/clubmint/allowgate/app/modules/submission/application"
	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

const genericFailureMessage = "⚠️ Something went wrong. Please try again later."

// replier is the response surface handlers drive. The concrete responder
// talks to Discord; tests substitute a recorder.
type replier interface {
	deferEphemeral() error
	replyEphemeral(content string) error
	replyEphemeralFile(content string, file *discordgo.File) error
	modal(data *discordgo.InteractionResponseData) error
	failGeneric() error
}

// interactionSender is the slice of the session the responder needs.
// *discordgo.Session satisfies it.
type interactionSender interface {
	InteractionRespond(*discordgo.Interaction, *discordgo.InteractionResponse, ...discordgo.RequestOption) error
	InteractionResponseEdit(*discordgo.Interaction, *discordgo.WebhookEdit, ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(*discordgo.Interaction, bool, *discordgo.WebhookParams, ...discordgo.RequestOption) (*discordgo.Message, error)
}

// responder tracks how far an interaction response has progressed, so
// error paths (including panic recovery) pick the one transition Discord
// still accepts: initial reply, edit of a deferred reply, or follow-up.
type responder struct {
	session interactionSender
	ic      *discordgo.InteractionCreate
	state   responderState
}

var _ replier = (*responder)(nil)

type responderState int

const (
	stateNone responderState = iota
	stateDeferred
	stateReplied
)

func newResponder(session interactionSender, ic *discordgo.InteractionCreate) *responder {
	return &responder{session: session, ic: ic}
}

// deferEphemeral acknowledges the interaction so slow work (sheet reads,
// DMs) can finish past the 3-second response window.
func (r *responder) deferEphemeral() error {
	err := r.session.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err == nil {
		r.state = stateDeferred
	}
	return err
}

// replyEphemeral delivers content to the invoking member only, through
// whichever transition the interaction's current state allows.
func (r *responder) replyEphemeral(content string) error {
	switch r.state {
	case stateNone:
		err := r.session.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err == nil {
			r.state = stateReplied
		}
		return err

	case stateDeferred:
		_, err := r.session.InteractionResponseEdit(r.ic.Interaction, &discordgo.WebhookEdit{
			Content: &content,
		})
		if err == nil {
			r.state = stateReplied
		}
		return err

	default:
		_, err := r.session.FollowupMessageCreate(r.ic.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		return err
	}
}

// replyEphemeralFile is replyEphemeral with one attachment.
func (r *responder) replyEphemeralFile(content string, file *discordgo.File) error {
	files := []*discordgo.File{file}
	switch r.state {
	case stateNone:
		err := r.session.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Files:   files,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err == nil {
			r.state = stateReplied
		}
		return err

	case stateDeferred:
		_, err := r.session.InteractionResponseEdit(r.ic.Interaction, &discordgo.WebhookEdit{
			Content: &content,
			Files:   files,
		})
		if err == nil {
			r.state = stateReplied
		}
		return err

	default:
		_, err := r.session.FollowupMessageCreate(r.ic.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Files:   files,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		return err
	}
}

// modal opens a modal. Only valid as the first response to a component
// interaction.
func (r *responder) modal(data *discordgo.InteractionResponseData) error {
	err := r.session.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
	if err == nil {
		r.state = stateReplied
	}
	return err
}

// failGeneric is the terminal error path; a failure to deliver it is only
// logged by the caller.
func (r *responder) failGeneric() error {
	return r.replyEphemeral(genericFailureMessage)
}

func setupMessage(t tier.Tier) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s Wallet Submission", t),
		Description: fmt.Sprintf(
			"Submit your EVM wallet address for the **%s** allowlist, or check what you have already submitted.",
			t,
		),
		Color: 0x5865F2,
	}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Submit Wallet",
					Style:    discordgo.PrimaryButton,
					CustomID: submitButtonID(t),
				},
				discordgo.Button{
					Label:    "Check Status",
					Style:    discordgo.SecondaryButton,
					CustomID: statusButtonID(t),
				},
			},
		},
	}
	return embed, components
}

func walletModal(t tier.Tier) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: walletModalID(t),
		Title:    "Submit your EVM wallet",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    walletInputID,
						Label:       "EVM wallet address",
						Style:       discordgo.TextInputShort,
						Placeholder: "0x...",
						Required:    true,
						MaxLength:   100,
					},
				},
			},
		},
	}
}

func blockedMessage(blocked submissionservice.SubmitBlocked) string {
	switch blocked.Decision.Reason {
	case tier.ReasonNoRole:
		return "❌ You don't have the required role to submit a wallet."
	case tier.ReasonHigherTierAvailable:
		if blocked.RedirectLink != "" {
			return fmt.Sprintf(
				"❌ You qualify for the **%s** list. Please submit your wallet in %s instead.",
				blocked.Decision.UserTier, blocked.RedirectLink,
			)
		}
		return fmt.Sprintf(
			"❌ You qualify for the **%s** list. Please submit your wallet in that tier's channel instead.",
			blocked.Decision.UserTier,
		)
	case tier.ReasonInvalidTier:
		return fmt.Sprintf(
			"❌ Your **%s** role does not grant access to this list.",
			blocked.Decision.UserTier,
		)
	}
	return genericFailureMessage
}

func walletRejectedMessage(rejected submissionservice.WalletRejected) string {
	return fmt.Sprintf(
		"❌ `%s` is not a valid EVM wallet address. It must start with `0x` followed by 40 hexadecimal characters.",
		sanitizeEcho(rejected.Wallet),
	)
}

// sanitizeEcho makes rejected input safe to echo inside a markdown code
// span: backticks and line breaks would terminate the span early.
func sanitizeEcho(s string) string {
	s = strings.NewReplacer("`", "", "\n", " ", "\r", " ").Replace(s)
	const maxEcho = 64
	if runes := []rune(s); len(runes) > maxEcho {
		s = string(runes[:maxEcho]) + "…"
	}
	return s
}

func acceptedMessage(accepted submissionservice.SubmitAccepted, roleLabel string) string {
	verb := "saved"
	if accepted.Outcome == submissiondb.Updated {
		verb = "updated"
	}
	msg := fmt.Sprintf("✅ Your wallet has been %s for the **%s** role!", verb, roleLabel)
	if accepted.Stacking {
		msg += fmt.Sprintf(
			"\nYour guaranteed **%s** allocation is unaffected; this entry adds you to the **%s** pool.",
			accepted.PrimaryTier, accepted.Tier,
		)
	}
	return msg
}

func statusMessage(report submissionservice.StatusReport) string {
	var b strings.Builder
	b.WriteString("📋 Your submissions:\n")
	for _, rec := range report.Records {
		fmt.Fprintf(&b, "• **%s** — `%s`\n", rec.Tier, rec.Wallet)
	}
	if report.Stacking {
		b.WriteString("You are stacked into the open pool on top of your guaranteed tier.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys(m map[string]int) []string {
	return slices.Sorted(maps.Keys(m))
}

func noSubmissionsMessage() string {
	return "You haven't submitted a wallet yet. Use the submit button in your tier's channel."
}

func statsMessage(report submissionservice.StatsReport) string {
	var b strings.Builder
	b.WriteString("📊 **Wallet submission statistics**\n")
	for _, t := range tier.TiersByPriority {
		stats := report.Stats[t]
		fmt.Fprintf(&b, "\n**%s** — %d total\n", t, stats.Total)
		for _, role := range sortedKeys(stats.ByRole) {
			fmt.Fprintf(&b, "  • %s: %d\n", role, stats.ByRole[role])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
