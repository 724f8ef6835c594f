package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Discord implements Gateway on top of a disgo client's REST surface.
type Discord struct {
	client bot.Client
	logger *zap.Logger
}

// NewDiscord wraps a disgo client as a Gateway.
func NewDiscord(client bot.Client, logger *zap.Logger) *Discord {
	return &Discord{
		client: client,
		logger: logger.Named("gateway"),
	}
}

// ResolveGuild checks that the bot can see the given guild.
func (d *Discord) ResolveGuild(ctx context.Context, guildID snowflake.ID) error {
	if _, err := d.client.Rest().GetGuild(guildID, false, rest.WithCtx(ctx)); err != nil {
		return mapRestError(err, ErrGuildNotFound)
	}
	return nil
}

// ResolveChannel checks that the channel exists and belongs to the guild.
func (d *Discord) ResolveChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	channel, err := d.client.Rest().GetChannel(channelID, rest.WithCtx(ctx))
	if err != nil {
		return mapRestError(err, ErrChannelNotFound)
	}

	guildChannel, ok := channel.(discord.GuildChannel)
	if !ok || guildChannel.GuildID() != guildID {
		return ErrChannelNotFound
	}
	return nil
}

// FetchMessage retrieves a message by channel and message ID.
func (d *Discord) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (*Message, error) {
	message, err := d.client.Rest().GetMessage(channelID, messageID, rest.WithCtx(ctx))
	if err != nil {
		return nil, mapRestError(err, ErrMessageNotFound)
	}

	var guildID snowflake.ID
	if message.GuildID != nil {
		guildID = *message.GuildID
	}

	return &Message{
		ID:         message.ID,
		ChannelID:  message.ChannelID,
		GuildID:    guildID,
		AuthorID:   message.Author.ID,
		AuthorName: message.Author.Username,
		Content:    message.Content,
	}, nil
}

// DeleteMessage removes a message. Permission failures surface as
// ErrPermissionDenied and are never retried.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	if err := d.client.Rest().DeleteMessage(channelID, messageID, rest.WithCtx(ctx)); err != nil {
		return mapRestError(err, ErrMessageNotFound)
	}

	d.logger.Debug("Deleted message",
		zap.Uint64("channelID", uint64(channelID)),
		zap.Uint64("messageID", uint64(messageID)))
	return nil
}

// SendText posts plain text to a channel.
func (d *Discord) SendText(ctx context.Context, channelID snowflake.ID, text string) error {
	_, err := d.client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(text).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return mapRestError(err, ErrChannelNotFound)
	}
	return nil
}

// SendDirect opens a DM channel with the user and sends text to it.
func (d *Discord) SendDirect(ctx context.Context, userID snowflake.ID, text string) error {
	dmChannel, err := d.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	return d.SendText(ctx, dmChannel.ID(), text)
}

// mapRestError translates a disgo REST error into the gateway sentinel
// taxonomy: 404 maps onto the given not-found sentinel, 403 onto
// ErrPermissionDenied. Other failures pass through wrapped.
func mapRestError(err error, notFound error) error {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return notFound
		case http.StatusForbidden:
			return ErrPermissionDenied
		}
	}
	return fmt.Errorf("gateway request failed: %w", err)
}
