package commands

import (
	"log/slog"
	"reflect"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/stollenaar/numbercruncher/internal/commands/analyzecommand"
	"github.com/stollenaar/numbercruncher/internal/util"
)

type CommandI interface {
	Handler(event *events.ApplicationCommandInteractionCreate)
	CreateCommandArguments() []discord.ApplicationCommandOption
}

// Registry holds the slash commands to sync and their handlers.
type Registry struct {
	ApplicationCommands []discord.ApplicationCommandCreate
	CommandHandlers     map[string]func(event *events.ApplicationCommandInteractionCreate)
}

// NewRegistry registers the bot's commands for cfg.
func NewRegistry(cfg *util.Config) *Registry {
	return Register(analyzecommand.NewAnalyzeCommand(cfg))
}

// Register reads Name and Description off every command struct.
func Register(cmds ...CommandI) *Registry {
	r := &Registry{
		CommandHandlers: make(map[string]func(event *events.ApplicationCommandInteractionCreate)),
	}

	for _, cmd := range cmds {
		name := reflect.ValueOf(cmd).FieldByName("Name").String()
		r.ApplicationCommands = append(r.ApplicationCommands, discord.SlashCommandCreate{
			Name:        name,
			Description: reflect.ValueOf(cmd).FieldByName("Description").String(),
			Options:     cmd.CreateCommandArguments(),
		})

		r.CommandHandlers[name] = cmd.Handler
	}

	r.ApplicationCommands = append(r.ApplicationCommands,
		discord.SlashCommandCreate{
			Name:        "ping",
			Description: "pong",
		},
	)

	r.CommandHandlers["ping"] = PingCommand
	return r
}

// Names lists the registered command names in sync order.
func (r *Registry) Names() (names []string) {
	for _, cmd := range r.ApplicationCommands {
		names = append(names, cmd.CommandName())
	}
	return
}

// OnApplicationCommand dispatches an interaction to its handler.
func (r *Registry) OnApplicationCommand(event *events.ApplicationCommandInteractionCreate) {
	name := event.Data.CommandName()
	if h, ok := r.CommandHandlers[name]; ok {
		h(event)
		return
	}
	slog.Warn("unknown command", slog.String("command", name))
}

// PingCommand sends back the pong
func PingCommand(event *events.ApplicationCommandInteractionCreate) {
	err := event.CreateMessage(discord.MessageCreate{
		Content: "Pong",
	})
	if err != nil {
		slog.Error("Error responding to ping", slog.Any("err", err))
	}
}
