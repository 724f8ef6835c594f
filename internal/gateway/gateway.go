// Package gateway abstracts the chat platform operations the moderation
// flows depend on: resolving and fetching messages, deleting them, and
// sending text to channels or users.
package gateway

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
)

var (
	// ErrGuildNotFound is returned when the bot is not in the guild.
	ErrGuildNotFound = errors.New("guild not found")
	// ErrChannelNotFound is returned when a channel does not exist in the guild.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrMessageNotFound is returned when a message was deleted or never existed.
	ErrMessageNotFound = errors.New("message not found")
	// ErrPermissionDenied is returned when the bot lacks permission for an operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// Message is a platform message reduced to the fields moderation needs.
type Message struct {
	ID         snowflake.ID
	ChannelID  snowflake.ID
	GuildID    snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	Content    string
}

// Gateway exposes the chat platform primitives consumed by the report
// state machine and the moderation orchestrator. Resolution operations
// fail with the not-found sentinels above; DeleteMessage fails with
// ErrPermissionDenied when the bot cannot delete in the channel.
type Gateway interface {
	ResolveGuild(ctx context.Context, guildID snowflake.ID) error
	ResolveChannel(ctx context.Context, guildID, channelID snowflake.ID) error
	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	SendText(ctx context.Context, channelID snowflake.ID, text string) error
	SendDirect(ctx context.Context, userID snowflake.ID, text string) error
}
