package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
)

const testChannel = snowflake.ID(1370000000000000001)

var webhookID = snowflake.ID(42)

// fakeSource serves a channel history newest-first like the Discord API does.
type fakeSource struct {
	channelErr error
	pageErr    error
	messages   []discord.Message // newest first
	calls      int
	befores    []snowflake.ID
}

func (f *fakeSource) GetChannel(channelID snowflake.ID) (discord.Channel, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return discord.GuildTextChannel{}, nil
}

func (f *fakeSource) GetMessages(channelID, before snowflake.ID, limit int) ([]discord.Message, error) {
	f.calls++
	f.befores = append(f.befores, before)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	var page []discord.Message
	for _, message := range f.messages {
		if before != 0 && message.ID >= before {
			continue
		}
		page = append(page, message)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func history(n int, webhookEvery int) []discord.Message {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := make([]discord.Message, 0, n)
	for i := n - 1; i >= 0; i-- {
		message := discord.Message{
			ID:        snowflake.ID(1000 + i),
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if webhookEvery > 0 && i%webhookEvery == 0 {
			message.WebhookID = &webhookID
		}
		messages = append(messages, message)
	}
	return messages
}

func TestHistoryPagesUntilShortPage(t *testing.T) {
	source := &fakeSource{messages: history(250, 0)}

	messages, err := NewFetcher(source).History(context.Background(), testChannel)
	require.NoError(t, err)
	require.Len(t, messages, 250)
	require.Equal(t, 3, source.calls)
	require.Equal(t, []snowflake.ID{0, 1150, 1050}, source.befores)
}

func TestHistoryExactMultipleOfPageSize(t *testing.T) {
	source := &fakeSource{messages: history(200, 0)}

	messages, err := NewFetcher(source).History(context.Background(), testChannel)
	require.NoError(t, err)
	require.Len(t, messages, 200)
	require.Equal(t, 3, source.calls)
}

func TestHistoryEmptyChannel(t *testing.T) {
	source := &fakeSource{}

	messages, err := NewFetcher(source).History(context.Background(), testChannel)
	require.NoError(t, err)
	require.Empty(t, messages)
	require.Equal(t, 1, source.calls)
}

func TestHistoryPageError(t *testing.T) {
	source := &fakeSource{pageErr: errors.New("502 bad gateway")}

	_, err := NewFetcher(source).History(context.Background(), testChannel)
	require.ErrorContains(t, err, "502 bad gateway")
	require.Equal(t, 1, source.calls)
}

func TestHistoryCancelled(t *testing.T) {
	source := &fakeSource{messages: history(10, 0)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(source).History(ctx, testChannel)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, source.calls)
}

func TestResolve(t *testing.T) {
	_, err := NewFetcher(&fakeSource{}).Resolve(testChannel)
	require.NoError(t, err)

	missing := &fakeSource{channelErr: errors.New("404 Unknown Channel")}
	_, err = NewFetcher(missing).Resolve(testChannel)
	require.ErrorIs(t, err, ErrChannelNotFound)
	require.Zero(t, missing.calls)
}

func TestFilterWebhooks(t *testing.T) {
	messages := history(30, 3)

	orders := FilterWebhooks(messages)
	require.Len(t, orders, 10)
	for _, order := range orders {
		require.True(t, order.Webhook)
		require.Zero(t, (int(order.ID)-1000)%3)
	}

	require.Empty(t, FilterWebhooks(history(5, 0)))
}

func TestFromMessagesFallsBackToSnowflakeTime(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	id := snowflake.New(at)

	orders := FromMessages([]discord.Message{{ID: id}})
	require.Len(t, orders, 1)
	require.False(t, orders[0].Webhook)
	require.True(t, orders[0].CreatedAt.Equal(at), "got %s", orders[0].CreatedAt)
}

func TestFetch(t *testing.T) {
	source := &fakeSource{messages: history(120, 4)}

	orders, err := NewFetcher(source).Fetch(context.Background(), testChannel)
	require.NoError(t, err)
	require.Len(t, orders, 30)
	require.Equal(t, 2, source.calls)

	missing := &fakeSource{channelErr: errors.New("404 Unknown Channel"), messages: history(10, 1)}
	_, err = NewFetcher(missing).Fetch(context.Background(), testChannel)
	require.ErrorIs(t, err, ErrChannelNotFound)
	require.Zero(t, missing.calls)
}
