// Package orders fetches the message history of the order channel and keeps
// the messages posted by webhooks, which are the order events.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stollenaar/numbercruncher/internal/util"
)

// pageSize is the largest page Discord serves for channel history.
const pageSize = 100

var ErrChannelNotFound = errors.New("order channel not found")

// Order is a single webhook message reduced to what the analysis needs.
type Order struct {
	ID        snowflake.ID
	CreatedAt time.Time
	Webhook   bool
}

// MessageSource is the slice of the Discord REST API the fetcher uses.
type MessageSource interface {
	GetChannel(channelID snowflake.ID) (discord.Channel, error)
	GetMessages(channelID, before snowflake.ID, limit int) ([]discord.Message, error)
}

// RestSource adapts a disgo REST client to MessageSource.
type RestSource struct {
	Rest rest.Channels
}

func (s RestSource) GetChannel(channelID snowflake.ID) (discord.Channel, error) {
	return s.Rest.GetChannel(channelID)
}

func (s RestSource) GetMessages(channelID, before snowflake.ID, limit int) ([]discord.Message, error) {
	return s.Rest.GetMessages(channelID, 0, before, 0, limit)
}

type Fetcher struct {
	source MessageSource
}

func NewFetcher(source MessageSource) *Fetcher {
	return &Fetcher{source: source}
}

// Resolve checks that the channel exists and is visible to the bot.
func (f *Fetcher) Resolve(channelID snowflake.ID) (discord.Channel, error) {
	channel, err := f.source.GetChannel(channelID)
	if err != nil {
		slog.Debug("channel lookup failed", slog.String("channel", channelID.String()), slog.Any("err", err))
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	if channel == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return channel, nil
}

// Fetch resolves the channel, reads its whole history and keeps the webhook orders.
func (f *Fetcher) Fetch(ctx context.Context, channelID snowflake.ID) ([]Order, error) {
	if _, err := f.Resolve(channelID); err != nil {
		return nil, err
	}
	messages, err := f.History(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return FilterWebhooks(messages), nil
}

// History pages backwards through the whole channel, newest first, until
// Discord returns a short page.
func (f *Fetcher) History(ctx context.Context, channelID snowflake.ID) ([]discord.Message, error) {
	defer util.Elapsed("history", slog.String("channel", channelID.String()))()

	var (
		messages []discord.Message
		before   snowflake.ID
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := f.source.GetMessages(channelID, before, pageSize)
		if err != nil {
			return nil, fmt.Errorf("error fetching messages of %s before %s: %w", channelID, before, err)
		}
		messages = append(messages, page...)

		if len(page) < pageSize {
			break
		}
		before = oldest(page)
	}

	slog.Debug("history fetched", slog.String("channel", channelID.String()), slog.Int("messages", len(messages)))
	return messages, nil
}

// FilterWebhooks keeps the webhook-originated messages as orders.
func FilterWebhooks(messages []discord.Message) []Order {
	return FromMessages(util.FilterDiscordMessages(messages, func(message discord.Message) bool {
		return message.WebhookID != nil
	}))
}

func FromMessages(messages []discord.Message) []Order {
	orders := make([]Order, 0, len(messages))
	for _, message := range messages {
		orders = append(orders, Order{
			ID:        message.ID,
			CreatedAt: createdAt(message),
			Webhook:   message.WebhookID != nil,
		})
	}
	return orders
}

func createdAt(message discord.Message) time.Time {
	if !message.CreatedAt.IsZero() {
		return message.CreatedAt
	}
	return message.ID.Time()
}

func oldest(page []discord.Message) snowflake.ID {
	min := page[0].ID
	for _, message := range page[1:] {
		if message.ID < min {
			min = message.ID
		}
	}
	return min
}
