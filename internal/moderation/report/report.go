// Package report implements the multi-turn conversation a user goes
// through to flag a message for human review.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"

	"github.com/modsentry/modsentry/internal/gateway"
)

// Keywords the reporting conversation reacts to.
const (
	// StartKeyword begins a new reporting conversation.
	StartKeyword = "report"
	// CancelKeyword aborts the conversation from any state.
	CancelKeyword = "cancel"
	// HelpKeyword requests static usage text; it never affects state.
	HelpKeyword = "help"
)

// State identifies where a reporting conversation currently is.
type State int

const (
	StateReportStart State = iota
	StateAwaitingMessage
	StateMessageIdentified
	StateContinueReport
	StateReportComplete
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateReportStart:
		return "report_start"
	case StateAwaitingMessage:
		return "awaiting_message"
	case StateMessageIdentified:
		return "message_identified"
	case StateContinueReport:
		return "continue_report"
	case StateReportComplete:
		return "report_complete"
	default:
		return "unknown"
	}
}

// messageLinkPattern extracts the guild, channel and message IDs from a
// copied message link.
var messageLinkPattern = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

// Report tracks one in-progress reporting conversation for a single
// reporting user. It is mutated exclusively through HandleMessage.
type Report struct {
	id       uuid.UUID
	reporter snowflake.ID
	state    State
	target   *gateway.Message
	category *Category
}

// New creates a reporting conversation for the given user.
func New(reporter snowflake.ID) *Report {
	return &Report{
		id:       uuid.New(),
		reporter: reporter,
		state:    StateReportStart,
	}
}

// ID returns the report's identifier.
func (r *Report) ID() uuid.UUID { return r.id }

// Reporter returns the reporting user's ID.
func (r *Report) Reporter() snowflake.ID { return r.reporter }

// State returns the conversation's current state.
func (r *Report) State() State { return r.state }

// Target returns the message under report, once one has been identified.
func (r *Report) Target() *gateway.Message { return r.target }

// Complete reports whether the conversation reached its terminal state.
// Safe to call repeatedly.
func (r *Report) Complete() bool { return r.state == StateReportComplete }

// Filed is the structured outcome of a completed report, intended for
// the moderator channel.
type Filed struct {
	ReportID uuid.UUID
	Reporter snowflake.ID
	GuildID  snowflake.ID
	Author   string
	Content  string
	Category Category
}

// Summary renders the moderator-channel notification for a filed report.
func (f *Filed) Summary() string {
	priority := "Priority"
	if f.Category.HighPriority {
		priority = "High Priority"
	}
	return fmt.Sprintf("%s - This message was reported as %s (report %s):\n%s: \"%s\"",
		priority, f.Category.Label, f.ReportID, f.Author, f.Content)
}

// Outcome is what a single conversation turn produced: replies to send
// back to the reporter, and the filed report once a category is chosen.
type Outcome struct {
	Replies []string
	Filed   *Filed
}

// HandleMessage advances the conversation with the reporter's next
// message. The cancel keyword wins over all state-specific handling.
// User-facing failures (malformed links, unresolved guilds/channels/
// messages, unknown categories) keep the conversation alive with a
// guidance reply; only gateway transport failures return an error.
func (r *Report) HandleMessage(ctx context.Context, gw gateway.Gateway, content string) (*Outcome, error) {
	if content == CancelKeyword && r.state != StateReportComplete {
		r.state = StateReportComplete
		return &Outcome{Replies: []string{"Report cancelled."}}, nil
	}

	switch r.state {
	case StateReportStart:
		r.state = StateAwaitingMessage
		return &Outcome{Replies: []string{onboardingReply()}}, nil

	case StateAwaitingMessage:
		return r.identifyMessage(ctx, gw, content)

	case StateMessageIdentified:
		// The identification prompt has been sent; the next message is
		// already the reporter's category choice.
		r.state = StateContinueReport
		fallthrough

	case StateContinueReport:
		return r.selectCategory(content), nil

	default:
		return &Outcome{}, nil
	}
}

// identifyMessage parses a message link, resolves it through the
// gateway and, on success, stores the target and prompts for a category.
func (r *Report) identifyMessage(ctx context.Context, gw gateway.Gateway, content string) (*Outcome, error) {
	match := messageLinkPattern.FindStringSubmatch(content)
	if match == nil {
		return &Outcome{Replies: []string{
			"I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel.",
		}}, nil
	}

	guildID, err := snowflake.Parse(match[1])
	if err != nil {
		return &Outcome{Replies: []string{
			"I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel.",
		}}, nil
	}
	channelID, _ := snowflake.Parse(match[2])
	messageID, _ := snowflake.Parse(match[3])

	if err := gw.ResolveGuild(ctx, guildID); err != nil {
		if errors.Is(err, gateway.ErrGuildNotFound) {
			return &Outcome{Replies: []string{
				"I cannot accept reports of messages from guilds that I'm not in. " +
					"Please have the guild owner add me to the guild and try again.",
			}}, nil
		}
		return nil, fmt.Errorf("failed to resolve guild: %w", err)
	}

	if err := gw.ResolveChannel(ctx, guildID, channelID); err != nil {
		if errors.Is(err, gateway.ErrChannelNotFound) {
			return &Outcome{Replies: []string{
				"It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel.",
			}}, nil
		}
		return nil, fmt.Errorf("failed to resolve channel: %w", err)
	}

	target, err := gw.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		if errors.Is(err, gateway.ErrMessageNotFound) {
			return &Outcome{Replies: []string{
				"It seems this message was deleted or never existed. Please try again or say `cancel` to cancel.",
			}}, nil
		}
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	r.target = target
	r.state = StateMessageIdentified
	return &Outcome{Replies: []string{identifiedReply(target)}}, nil
}

// selectCategory matches the reporter's input against the category
// enumeration and files the report on a valid match.
func (r *Report) selectCategory(content string) *Outcome {
	category, ok := MatchCategory(content)
	if !ok {
		return &Outcome{Replies: []string{
			"Invalid response. Please choose one of the listed categories or say `cancel` to cancel.",
		}}
	}

	r.category = &category
	r.state = StateReportComplete

	return &Outcome{
		Replies: []string{
			"Thank you for your report. Our moderation team will review the message and take appropriate action.",
		},
		Filed: &Filed{
			ReportID: r.id,
			Reporter: r.reporter,
			GuildID:  r.target.GuildID,
			Author:   r.target.AuthorName,
			Content:  r.target.Content,
			Category: category,
		},
	}
}

// onboardingReply explains how to obtain a message link.
func onboardingReply() string {
	var reply strings.Builder
	reply.WriteString("Thank you for starting the reporting process. ")
	reply.WriteString("Say `help` at any time for more information.\n\n")
	reply.WriteString("Please copy paste the link to the message you want to report.\n")
	reply.WriteString("You can obtain this link by right-clicking the message and clicking `Copy Message Link`.")
	return reply.String()
}

// identifiedReply quotes the found message and lists the category
// keywords, one per line.
func identifiedReply(target *gateway.Message) string {
	var reply strings.Builder
	reply.WriteString("I found this message:\n")
	reply.WriteString("```" + target.AuthorName + ": " + target.Content + "```\n")
	reply.WriteString("Please choose why you wish to report this content\n\n")
	for _, category := range Categories {
		reply.WriteString("`" + category.Label + "`\n")
	}
	return reply.String()
}
