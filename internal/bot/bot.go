// Package bot connects the moderation orchestrator to Discord.
package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	gw "github.com/modsentry/modsentry/internal/gateway"
	"github.com/modsentry/modsentry/internal/moderation"
	"github.com/modsentry/modsentry/internal/moderation/report"
	"github.com/modsentry/modsentry/internal/setup/config"
)

// helpReply is the static usage text returned for the help keyword in DMs.
const helpReply = "Use the `report` command to begin the reporting process.\n" +
	"Use the `cancel` command to cancel the report process.\n"

// scoringDegradedNotice is posted to the moderator channel when the
// scoring service cannot be reached.
const scoringDegradedNotice = "Scoring is currently degraded; the last message could not be evaluated."

// guildChannels holds the per-guild channel IDs the bot works with.
type guildChannels struct {
	monitored snowflake.ID
	mod       snowflake.ID
}

// Bot routes Discord message events through the moderation orchestrator
// and sends its results to the right destinations. Gateway events are
// dispatched sequentially, which serializes access to the
// orchestrator's shared state.
type Bot struct {
	client       bot.Client
	gateway      gw.Gateway
	orchestrator *moderation.Orchestrator
	config       *config.Bot
	logger       *zap.Logger

	mu       sync.RWMutex
	channels map[snowflake.ID]guildChannels
}

// New initializes the Discord client with the gateway intents and event
// listeners the moderation flows need, and wires the orchestrator to it.
func New(cfg *config.Config, scorer moderation.Scorer, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		config:   &cfg.Bot,
		logger:   logger.Named("bot"),
		channels: make(map[snowflake.ID]guildChannels),
	}

	client, err := disgo.New(cfg.Bot.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnGuildReady:    b.handleGuildReady,
			OnMessageCreate: b.handleMessageCreate,
		}),
	)
	if err != nil {
		return nil, err
	}

	b.client = client
	b.gateway = gw.NewDiscord(client, logger)
	b.orchestrator = moderation.NewOrchestrator(b.gateway, scorer, cfg.Bot.BanThreshold, logger)
	return b, nil
}

// Start opens the gateway connection to receive events.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleGuildReady records the monitored channel and moderator channel
// of a guild once its channels become available.
func (b *Bot) handleGuildReady(event *events.GuildReady) {
	channels, err := b.client.Rest().GetGuildChannels(event.GuildID)
	if err != nil {
		b.logger.Error("Failed to list guild channels",
			zap.Uint64("guildID", uint64(event.GuildID)),
			zap.Error(err))
		return
	}

	var entry guildChannels
	modChannelName := b.config.MonitoredChannel + b.config.ModChannelSuffix
	for _, channel := range channels {
		switch channel.Name() {
		case b.config.MonitoredChannel:
			entry.monitored = channel.ID()
		case modChannelName:
			entry.mod = channel.ID()
		}
	}

	if entry.monitored == 0 || entry.mod == 0 {
		b.logger.Warn("Guild is missing the monitored or moderator channel",
			zap.Uint64("guildID", uint64(event.GuildID)),
			zap.String("monitoredChannel", b.config.MonitoredChannel),
			zap.String("modChannel", modChannelName))
	}

	b.mu.Lock()
	b.channels[event.GuildID] = entry
	b.mu.Unlock()

	b.logger.Info("Guild ready", zap.Uint64("guildID", uint64(event.GuildID)))
}

// handleMessageCreate routes a message event to the DM or channel flow.
func (b *Bot) handleMessageCreate(event *events.MessageCreate) {
	// Ignore our own messages and other bots
	if event.Message.Author.Bot || event.Message.Author.ID == b.client.ApplicationID() {
		return
	}

	if event.GuildID == nil {
		b.handleDM(event)
		return
	}
	b.handleChannelMessage(event, *event.GuildID)
}

// handleDM feeds a direct message into the reporting flow and returns
// the conversation replies, verdict and notices to the sender.
func (b *Bot) handleDM(event *events.MessageCreate) {
	ctx := context.Background()

	if event.Message.Content == report.HelpKeyword {
		b.send(ctx, event.ChannelID, helpReply)
		return
	}

	inbound := moderation.Inbound{Message: b.toMessage(event), IsDM: true}
	res, err := b.orchestrator.HandleMessage(ctx, inbound)

	for _, reply := range res.Replies {
		b.send(ctx, event.ChannelID, reply)
	}

	if err != nil {
		b.logger.Error("Moderation cycle failed", zap.Error(err))
		b.send(ctx, event.ChannelID, "I couldn't evaluate that message right now. Please try again later.")
		return
	}

	if res.Filed != nil {
		b.notifyModChannel(ctx, res.Filed.GuildID, res.Filed.Summary())
	}

	if res.VerdictText != "" {
		b.send(ctx, event.ChannelID, joinNotices(res.VerdictText, res.BanNotice, res.RemovalNotice))
	}
}

// handleChannelMessage moderates a message posted in the monitored
// channel: the message and its verdict are forwarded to the moderator
// channel, toxic authors are notified privately, and removal and ban
// notices are posted publicly.
func (b *Bot) handleChannelMessage(event *events.MessageCreate, guildID snowflake.ID) {
	b.mu.RLock()
	entry, ok := b.channels[guildID]
	b.mu.RUnlock()

	if !ok || event.ChannelID != entry.monitored {
		return
	}

	ctx := context.Background()
	message := b.toMessage(event)

	b.notifyModChannel(ctx, guildID,
		"Forwarded message:\n"+message.AuthorName+": \""+message.Content+"\"")

	res, err := b.orchestrator.HandleMessage(ctx, moderation.Inbound{Message: message})
	if err != nil {
		b.logger.Error("Moderation cycle failed", zap.Error(err))
		b.notifyModChannel(ctx, guildID, scoringDegradedNotice)
		return
	}

	b.notifyModChannel(ctx, guildID, res.VerdictText)

	if res.Verdict.Kind == moderation.VerdictToxic {
		text := joinNotices(res.VerdictText, res.BanNotice, res.RemovalNotice)
		if err := b.gateway.SendDirect(ctx, message.AuthorID, text); err != nil {
			b.logger.Warn("Failed to notify author", zap.Error(err))
		}
	}

	if res.RemovalNotice != "" {
		b.send(ctx, event.ChannelID, res.RemovalNotice)
	}
	if res.BanNotice != "" {
		b.send(ctx, event.ChannelID, res.BanNotice)
	}
}

// toMessage converts a message event into the gateway representation.
func (b *Bot) toMessage(event *events.MessageCreate) gw.Message {
	var guildID snowflake.ID
	if event.GuildID != nil {
		guildID = *event.GuildID
	}

	return gw.Message{
		ID:         event.MessageID,
		ChannelID:  event.ChannelID,
		GuildID:    guildID,
		AuthorID:   event.Message.Author.ID,
		AuthorName: event.Message.Author.Username,
		Content:    event.Message.Content,
	}
}

// notifyModChannel sends text to the guild's moderator channel, if one
// was discovered.
func (b *Bot) notifyModChannel(ctx context.Context, guildID snowflake.ID, text string) {
	b.mu.RLock()
	entry, ok := b.channels[guildID]
	b.mu.RUnlock()

	if !ok || entry.mod == 0 {
		b.logger.Warn("No moderator channel known for guild",
			zap.Uint64("guildID", uint64(guildID)))
		return
	}
	b.send(ctx, entry.mod, text)
}

// send posts text to a channel, logging failures.
func (b *Bot) send(ctx context.Context, channelID snowflake.ID, text string) {
	if text == "" {
		return
	}
	if err := b.gateway.SendText(ctx, channelID, text); err != nil {
		b.logger.Error("Failed to send message",
			zap.Uint64("channelID", uint64(channelID)),
			zap.Error(err))
	}
}

// joinNotices appends the ban and removal notices to the verdict text,
// each on its own line.
func joinNotices(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
