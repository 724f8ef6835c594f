// Package moderation contains the threshold policy, classifier,
// formatter and the orchestrator that drives one moderation cycle per
// inbound message.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/gateway"
	"github.com/modsentry/modsentry/internal/moderation/report"
)

// DefaultBanThreshold is how many toxic verdicts a user accumulates
// before the ban notice is issued.
const DefaultBanThreshold = 3

// Scorer produces per-attribute confidence scores for a piece of text.
type Scorer interface {
	Score(ctx context.Context, text string) (ScoreMap, error)
}

// Inbound is one message event handed to the orchestrator. The bot
// shell has already filtered out the bot's own messages and unmonitored
// channels.
type Inbound struct {
	Message gateway.Message
	// IsDM marks messages sent directly to the bot rather than in a
	// monitored guild channel.
	IsDM bool
}

// Result carries everything one moderation cycle produced. Routing the
// texts to their destinations is the bot shell's job.
type Result struct {
	// Replies are conversation replies owed to the reporting user.
	Replies []string
	// Filed is set when a report was filed this cycle.
	Filed *report.Filed
	// Scored is the message the verdict applies to; nil when no scoring ran.
	Scored *gateway.Message
	// Verdict and its formatted text, valid when Scored is non-nil.
	Verdict     Verdict
	VerdictText string
	// BanNotice is set exactly once, when the author reaches the ban threshold.
	BanNotice string
	// RemovalNotice reports the outcome of deleting a toxic message.
	RemovalNotice string
}

// Orchestrator owns the active-report registry and the warning-count
// table and runs the per-message moderation cycle. A single mutex
// guards both maps; contention is bounded by chat volume.
type Orchestrator struct {
	gw           gateway.Gateway
	scorer       Scorer
	logger       *zap.Logger
	banThreshold int

	mu       sync.Mutex
	reports  map[snowflake.ID]*report.Report
	warnings map[snowflake.ID]int
}

// NewOrchestrator creates an orchestrator with empty state.
func NewOrchestrator(gw gateway.Gateway, scorer Scorer, banThreshold int, logger *zap.Logger) *Orchestrator {
	if banThreshold <= 0 {
		banThreshold = DefaultBanThreshold
	}
	return &Orchestrator{
		gw:           gw,
		scorer:       scorer,
		logger:       logger.Named("moderation"),
		banThreshold: banThreshold,
		reports:      make(map[snowflake.ID]*report.Report),
		warnings:     make(map[snowflake.ID]int),
	}
}

// HandleMessage runs one moderation cycle for an inbound message.
//
// Direct messages feed the author's reporting conversation; scoring
// runs against the reported message once one has been identified, and
// warnings apply to that message's author. Channel messages are scored
// directly. A scoring failure returns the partial Result alongside the
// error so conversation replies are not lost; no verdict is invented.
func (o *Orchestrator) HandleMessage(ctx context.Context, in Inbound) (*Result, error) {
	res := &Result{}
	author := in.Message.AuthorID

	o.mu.Lock()
	rep, active := o.reports[author]
	if _, ok := o.warnings[author]; !ok {
		o.warnings[author] = 0
	}
	o.mu.Unlock()

	if in.IsDM {
		// Outside an active conversation, only the start keyword means anything.
		if !active && !strings.HasPrefix(in.Message.Content, report.StartKeyword) {
			return res, nil
		}

		if !active {
			rep = report.New(author)
			o.mu.Lock()
			o.reports[author] = rep
			o.mu.Unlock()
			active = true

			o.logger.Info("Started report",
				zap.String("reportID", rep.ID().String()),
				zap.Uint64("reporter", uint64(author)))
		}

		out, err := rep.HandleMessage(ctx, o.gw, in.Message.Content)
		if err != nil {
			return res, fmt.Errorf("report conversation failed: %w", err)
		}
		res.Replies = out.Replies
		res.Filed = out.Filed
	}

	target := o.scoringTarget(in, rep, res)
	if target != nil {
		if err := o.scoreAndAct(ctx, target, res); err != nil {
			o.evictIfComplete(author, rep)
			return res, err
		}
	}

	o.evictIfComplete(author, rep)
	return res, nil
}

// WarningCount returns the number of toxic verdicts recorded against a user.
func (o *Orchestrator) WarningCount(userID snowflake.ID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.warnings[userID]
}

// ActiveReport reports whether a user has a reporting conversation open.
func (o *Orchestrator) ActiveReport(userID snowflake.ID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.reports[userID]
	return ok
}

// scoringTarget decides which message this cycle evaluates. Channel
// messages are scored as-is. In a reporting conversation, scoring waits
// until a message has been identified and then evaluates the reported
// content; conversational meta-messages are never scored. A cancelled
// conversation suppresses scoring.
func (o *Orchestrator) scoringTarget(in Inbound, rep *report.Report, res *Result) *gateway.Message {
	if !in.IsDM {
		msg := in.Message
		return &msg
	}

	if rep == nil || rep.Target() == nil {
		return nil
	}
	if rep.Complete() && res.Filed == nil {
		return nil
	}
	return rep.Target()
}

// scoreAndAct scores the target, classifies it and applies the toxic
// side effects: warning increment, ban notice on the exact threshold
// crossing, and deletion with the permission-denied substitution.
func (o *Orchestrator) scoreAndAct(ctx context.Context, target *gateway.Message, res *Result) error {
	scores, err := o.scorer.Score(ctx, target.Content)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	verdict := Classify(scores)
	res.Scored = target
	res.Verdict = verdict
	res.VerdictText = FormatVerdict(verdict)

	if verdict.Kind != VerdictToxic {
		return nil
	}

	o.mu.Lock()
	o.warnings[target.AuthorID]++
	count := o.warnings[target.AuthorID]
	o.mu.Unlock()

	o.logger.Info("Toxic message detected",
		zap.Uint64("author", uint64(target.AuthorID)),
		zap.Int("warnings", count),
		zap.Stringer("verdict", verdict.Kind))

	if count == o.banThreshold {
		res.BanNotice = "You've been banned from the group"
	}

	switch err := o.gw.DeleteMessage(ctx, target.ChannelID, target.ID); {
	case err == nil:
		res.RemovalNotice = "This message has been removed"
	case errors.Is(err, gateway.ErrPermissionDenied):
		res.RemovalNotice = "Message cannot be deleted because permission was denied"
		o.logger.Warn("Cannot delete message", zap.Error(err))
	case errors.Is(err, gateway.ErrMessageNotFound):
		// Already gone; nothing to remove.
	default:
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// evictIfComplete removes a finished conversation from the registry.
func (o *Orchestrator) evictIfComplete(author snowflake.ID, rep *report.Report) {
	if rep == nil || !rep.Complete() {
		return
	}

	o.mu.Lock()
	delete(o.reports, author)
	o.mu.Unlock()

	o.logger.Info("Report closed",
		zap.String("reportID", rep.ID().String()),
		zap.Stringer("state", rep.State()))
}
