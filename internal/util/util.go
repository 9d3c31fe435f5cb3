package util

import (
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/disgo/discord"
)

var levelVar = new(slog.LevelVar)

// SetupLogger installs the JSON logger as the slog default.
func SetupLogger(debug bool) {
	if debug {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar})))
}

// Elapsed timing time till function completion
func Elapsed(what string, attrs ...any) func() {
	start := time.Now()
	return func() {
		slog.Debug("timing", append([]any{slog.String("step", what), slog.Duration("took", time.Since(start))}, attrs...)...)
	}
}

// FilterDiscordMessages filtering specific messages out of message slice
func FilterDiscordMessages(messages []discord.Message, condition func(discord.Message) bool) (result []discord.Message) {
	for _, message := range messages {
		if condition(message) {
			result = append(result, message)
		}
	}
	return result
}
