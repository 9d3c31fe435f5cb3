package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/stollenaar/numbercruncher/internal/commands"
	"github.com/stollenaar/numbercruncher/internal/routes"
	"github.com/stollenaar/numbercruncher/internal/util"
)

func main() {
	cfg, err := util.NewConfig()
	if err != nil {
		slog.Error("Error loading config", slog.Any("err", err))
		os.Exit(1)
	}
	util.SetupLogger(cfg.DEBUG)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	token, err := discordToken(ctx, cfg)
	if err != nil {
		slog.Error("Error getting discord token", slog.Any("err", err))
		os.Exit(1)
	}

	registry := commands.NewRegistry(cfg)
	var ready atomic.Bool

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListenerFunc(registry.OnApplicationCommand),
		bot.WithEventListenerFunc(func(event *events.Ready) {
			if _, err := event.Client().Rest.SetGlobalCommands(cfg.APPLICATION_ID, registry.ApplicationCommands); err != nil {
				slog.Error("Error syncing commands", slog.Any("err", err))
				return
			}
			ready.Store(true)
			slog.Info("logged in, slash commands synced", slog.String("user", event.User.Username), slog.Any("commands", registry.Names()))
		}),
	)
	if err != nil {
		slog.Error("Error creating bot", slog.Any("err", err))
		os.Exit(1)
	}

	go func() {
		if err := routes.CreateRouter(ctx, cfg, ready.Load); err != nil {
			slog.Error("Error running router", slog.Any("err", err))
		}
	}()

	if err = client.OpenGateway(ctx); err != nil {
		slog.Error("Error opening gateway", slog.Any("err", err))
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client.Close(closeCtx)
}

func discordToken(ctx context.Context, cfg *util.Config) (string, error) {
	if cfg.DISCORD_BOT_TOKEN != "" {
		return cfg.DISCORD_BOT_TOKEN, nil
	}
	store, err := util.NewSSMClient(ctx, cfg)
	if err != nil {
		return "", err
	}
	return cfg.GetDiscordToken(ctx, store)
}
