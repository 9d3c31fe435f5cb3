package analyzecommand

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stollenaar/numbercruncher/internal/orders"
	"github.com/stollenaar/numbercruncher/internal/util"
	"github.com/stollenaar/numbercruncher/internal/util/charts"
)

// interactionLifetime is how long an interaction token accepts follow-ups.
const interactionLifetime = 15 * time.Minute

type AnalyzeCommand struct {
	Name        string
	Description string

	Config      *util.Config
	Snapshotter charts.Snapshotter
}

func NewAnalyzeCommand(cfg *util.Config) AnalyzeCommand {
	return AnalyzeCommand{
		Name:        "analyze",
		Description: fmt.Sprintf("Fetch all webhook orders and show time‑of‑day & weekday trends (in %s)", cfg.TIMEZONE_LABEL),
		Config:      cfg,
		Snapshotter: charts.ChromeSnapshotter{},
	}
}

// Handler analyses the order channel and answers with the charts as follow-ups
func (a AnalyzeCommand) Handler(event *events.ApplicationCommandInteractionCreate) {
	err := event.DeferCreateMessage(a.Config.SetEphemeral() == discord.MessageFlagEphemeral)
	if err != nil {
		slog.Error("Error deferring: ", slog.Any("err", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionLifetime)
	defer cancel()

	responder := FollowupResponder{
		Rest:          event.Client().Rest,
		ApplicationID: event.ApplicationID(),
		Token:         event.Token(),
		Flags:         a.Config.SetEphemeral(),
	}

	if err := a.Pipeline(event.Client().Rest).Run(ctx, responder); err != nil {
		slog.Error("Error running the analysis", slog.Any("err", err))
		if err := responder.Send(ctx, errorMessage); err != nil {
			slog.Error("Error sending the error response", slog.Any("err", err))
		}
	}
}

func (a AnalyzeCommand) CreateCommandArguments() []discord.ApplicationCommandOption {
	return nil
}

// Pipeline wires the Discord, DuckDB and chart backends into a run.
func (a AnalyzeCommand) Pipeline(client rest.Channels) *Pipeline {
	return &Pipeline{
		Fetcher:   orders.NewFetcher(orders.RestSource{Rest: client}),
		Renderer:  charts.NewRenderer(a.Snapshotter, a.Config.TIMEZONE_LABEL),
		OpenStore: DuckDBStore(a.Config.DEBUG),
		ChannelID: a.Config.ORDER_CHANNEL_ID,
		Location:  a.Config.TIMEZONE,
		Label:     a.Config.TIMEZONE_LABEL,
	}
}

// FollowupResponder answers through follow-up messages of a deferred interaction.
type FollowupResponder struct {
	Rest          rest.Interactions
	ApplicationID snowflake.ID
	Token         string
	Flags         discord.MessageFlags
}

func (f FollowupResponder) Send(ctx context.Context, content string, files ...*discord.File) error {
	_, err := f.Rest.CreateFollowupMessage(f.ApplicationID, f.Token, discord.MessageCreate{
		Content: content,
		Files:   files,
		Flags:   f.Flags,
	}, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("error creating follow-up message: %w", err)
	}
	return nil
}
